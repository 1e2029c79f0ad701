// Package loader reads and writes the course catalog file.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
	"github.com/0xcro3dile/coursechat-go/internal/pkg/apperrors"
)

// CatalogFile implements ports.CatalogStore over a JSON file holding an array
// of course records. Records may be bare or wrapped as GraphQL edges
// ({"node": {...}}); Save always writes the edge form.
type CatalogFile struct{}

var _ ports.CatalogStore = CatalogFile{}

// NewCatalogFile creates a catalog file store.
func NewCatalogFile() CatalogFile {
	return CatalogFile{}
}

type edge struct {
	Node entities.Course `json:"node"`
}

// Load reads every course in the file at path, in file order.
func (CatalogFile) Load(ctx context.Context, path string) ([]entities.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	courses, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return courses, nil
}

// Decode parses a catalog document. An empty array is apperrors.ErrCatalogEmpty.
func Decode(data []byte) ([]entities.Course, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("catalog is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("catalog must be a JSON array, got %s", root.Type)
	}

	records := root.Array()
	if len(records) == 0 {
		return nil, apperrors.ErrCatalogEmpty
	}

	courses := make([]entities.Course, 0, len(records))
	for i, record := range records {
		if node := record.Get("node"); node.IsObject() {
			record = node
		}
		var c entities.Course
		if err := json.Unmarshal([]byte(record.Raw), &c); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if c.ID == "" {
			return nil, fmt.Errorf("record %d: missing id", i)
		}
		courses = append(courses, c)
	}
	return courses, nil
}

// Save writes courses to path atomically, creating parent directories.
func (CatalogFile) Save(ctx context.Context, path string, courses []entities.Course) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edges := make([]edge, len(courses))
	for i, c := range courses {
		edges[i] = edge{Node: c}
	}
	data, err := json.MarshalIndent(edges, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing catalog: %w", err)
	}
	return nil
}
