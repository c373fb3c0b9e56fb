package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cynaps/labelstate/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatal("server init failed: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		stop()
		log.Fatal("server exited: ", err)
	}
}
