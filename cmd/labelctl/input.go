package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cynaps/labelstate/pkg/results"
)

var validate = validator.New()

// schemaFile is the on-disk control schema. JSON project exports parse too,
// since they share field names and JSON is valid YAML.
type schemaFile struct {
	Controls []results.Control `yaml:"controls" validate:"required,min=1,unique=Name,dive"`
}

func loadSchema(path string) (results.ControlSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid schema %s: %w", path, err)
	}

	return results.ControlSet(f.Controls), nil
}

// readResult reads a result list from path, or from in when path is "-".
func readResult(path string, in io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read result from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	return data, nil
}

// load reads both inputs and deserializes the result list into a fresh store.
// An empty schemaPath keeps every record opaque.
func load(schemaPath, resultPath string, in io.Reader) (*loaded, error) {
	var schema results.ControlSet
	if schemaPath != "" {
		s, err := loadSchema(schemaPath)
		if err != nil {
			return nil, err
		}
		schema = s
	}

	data, err := readResult(resultPath, in)
	if err != nil {
		return nil, err
	}
	records, err := results.DecodeRecords(data)
	if err != nil {
		return nil, err
	}

	store := results.NewStore()
	report := results.Deserialize(store, schema, records, "")

	return &loaded{
		schema:  schema,
		records: records,
		store:   store,
		report:  report,
	}, nil
}

type loaded struct {
	schema  results.ControlSet
	records []results.Record
	store   *results.Store
	report  results.LoadReport
}

// itemCount infers the item count from the highest item_index in the list.
func (l *loaded) itemCount() int {
	n := 1
	for _, rec := range l.records {
		if rec.ItemIndex != nil && *rec.ItemIndex+1 > n {
			n = *rec.ItemIndex + 1
		}
	}
	return n
}
