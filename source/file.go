package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/scoutdex/scoutdex/record"
)

// FileSource reads the corpus from a local JSON dataset file: an array of
// record objects. It serves as the last-known-good fallback when the primary
// provider is unreachable.
type FileSource struct {
	path string
}

// NewFileSource creates a fetcher for the given dataset path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name identifies the source.
func (f *FileSource) Name() string { return "file:" + f.path }

// Fetch reads and normalizes the dataset. Records failing validation abort
// the fetch: a broken dataset file must not silently shrink the corpus.
func (f *FileSource) Fetch(ctx context.Context) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	var raw []record.Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("source: parse %s: %w", f.path, err)
	}

	records := make([]record.Record, 0, len(raw))
	for i, r := range raw {
		if r.Source == "" {
			r.Source = "file"
		}
		if r.SourceID == "" {
			r.SourceID = strconv.Itoa(i)
		}
		normalized, err := record.Normalize(r)
		if err != nil {
			return nil, fmt.Errorf("source: %s record %d: %w", f.path, i, err)
		}
		records = append(records, normalized)
	}
	return records, nil
}
