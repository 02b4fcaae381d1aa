package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
)

// FileLoader reads the catalog from a JSON file holding an array of records.
// The file is re-read on every Load.
type FileLoader struct {
	path string
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

func (l *FileLoader) Load(ctx context.Context) ([]catalog.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file %s: %w", l.path, err)
	}
	var records []catalog.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", l.path, err)
	}
	return records, nil
}
