package annotations

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cynaps/labelstate/pkg/pagination"
	"github.com/cynaps/labelstate/pkg/query"
	"github.com/cynaps/labelstate/pkg/repository"
	"github.com/cynaps/labelstate/pkg/results"
	"github.com/cynaps/labelstate/pkg/storage"
)

const exportWorkers = 4

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an annotation repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "annotations"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Annotation], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "ProjectTitle", "CompletedBy", "ModelVersion")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanAnnotation)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Annotation, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	a, err := repository.QueryOne(ctx, r.db, q, args, scanAnnotation)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &a, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Annotation, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.Kind == "" {
		cmd.Kind = KindAnnotation
	}

	a, err := r.insert(ctx, cmd, nil)
	if err != nil {
		return nil, err
	}

	r.logger.Info("annotation created",
		"id", a.ID,
		"project_id", a.ProjectID,
		"task_id", a.TaskID,
		"kind", a.Kind,
		"records", len(a.Result),
	)
	return a, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Annotation, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result, err := results.EncodeRecords(cmd.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAnnotation, err)
	}

	q := `
		UPDATE annotations
		SET result = $1,
			item_count = COALESCE($2, item_count),
			completed_by = COALESCE($3, completed_by),
			updated_at = NOW()
		WHERE id = $4`

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Annotation, error) {
		if err := repository.ExecExpectOne(ctx, tx, q, result, cmd.ItemCount, cmd.CompletedBy, id); err != nil {
			return Annotation{}, err
		}
		return findTx(ctx, tx, id)
	})
	if err != nil {
		if repository.IsCheckViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAnnotation, repository.ConstraintName(err))
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("annotation updated", "id", a.ID, "records", len(a.Result))
	return &a, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	projectID, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (uuid.UUID, error) {
		return repository.QueryOne(
			ctx, tx,
			"DELETE FROM annotations WHERE id = $1 RETURNING project_id",
			[]any{id},
			repository.ScanValue[uuid.UUID],
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.removeExport(ctx, ExportKey(projectID, id))

	r.logger.Info("annotation deleted", "id", id)
	return nil
}

func (r *repo) CopyPrediction(ctx context.Context, id uuid.UUID, cmd CopyCommand) (*Annotation, error) {
	if err := checkStruct(cmd); err != nil {
		return nil, err
	}

	src, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if src.Kind != KindPrediction {
		return nil, ErrNotPrediction
	}

	create := CreateCommand{
		ProjectID:    src.ProjectID,
		TaskID:       src.TaskID,
		Kind:         KindAnnotation,
		ItemCount:    src.ItemCount,
		Result:       withOrigin(src.Result, results.OriginPrediction),
		ModelVersion: src.ModelVersion,
		CompletedBy:  cmd.CompletedBy,
	}

	a, err := r.insert(ctx, create, &src.ID)
	if err != nil {
		return nil, err
	}

	r.logger.Info("prediction copied", "id", a.ID, "parent_id", src.ID, "records", len(a.Result))
	return a, nil
}

func (r *repo) Export(ctx context.Context, id uuid.UUID) (string, error) {
	a, err := r.Find(ctx, id)
	if err != nil {
		return "", err
	}
	return r.export(ctx, a)
}

func (r *repo) ExportProject(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("ProjectID", projectID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanAnnotation)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}

	keys := make([]string, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportWorkers)

	for i := range items {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			key, err := r.export(gctx, &items[i])
			if err != nil {
				return err
			}
			keys[i] = key
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("project exported", "project_id", projectID, "annotations", len(keys))
	return keys, nil
}

func (r *repo) insert(ctx context.Context, cmd CreateCommand, parent *uuid.UUID) (*Annotation, error) {
	result, err := results.EncodeRecords(cmd.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAnnotation, err)
	}

	id := uuid.New()
	q := `
		INSERT INTO annotations(
			id, project_id, task_id, kind, parent_id,
			item_count, result, model_version, completed_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	args := []any{
		id, cmd.ProjectID, cmd.TaskID, cmd.Kind, parent,
		cmd.ItemCount, result, cmd.ModelVersion, cmd.CompletedBy,
	}

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Annotation, error) {
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return Annotation{}, err
		}
		return findTx(ctx, tx, id)
	})
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrProjectNotFound
		}
		if repository.IsCheckViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAnnotation, repository.ConstraintName(err))
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &a, nil
}

func (r *repo) export(ctx context.Context, a *Annotation) (string, error) {
	data, err := results.EncodeRecords(a.Result)
	if err != nil {
		return "", fmt.Errorf("%w: encode %s: %w", ErrExportFailed, a.ID, err)
	}

	key := ExportKey(a.ProjectID, a.ID)
	if err := r.storage.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("%w: upload %s: %w", ErrExportFailed, key, err)
	}

	r.logger.Info("annotation exported", "id", a.ID, "key", key, "records", len(a.Result))
	return key, nil
}

// removeExport deletes a stale export blob. Failures are logged and the
// database delete stands.
func (r *repo) removeExport(ctx context.Context, key string) {
	exists, err := r.storage.Exists(ctx, key)
	if err != nil {
		r.logger.Warn("check export blob", "key", key, "error", err)
		return
	}
	if !exists {
		return
	}
	if err := r.storage.Delete(ctx, key); err != nil {
		r.logger.Warn("delete export blob", "key", key, "error", err)
	}
}

func findTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Annotation, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	return repository.QueryOne(ctx, tx, q, args, scanAnnotation)
}
