package epx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Alexander4822/Spielwiese/internal/domain"
)

// Store persists the index series as one JSON document
type Store interface {
	Load(ctx context.Context) ([]domain.EpxIndex, error)
	Save(ctx context.Context, series []domain.EpxIndex) error
}

// storedIndex uses pointers so entries with missing fields can be rejected
type storedIndex struct {
	Month         *string  `json:"month"`
	Apartments    *float64 `json:"apartments"`
	ExistingHomes *float64 `json:"existingHomes"`
	NewHomes      *float64 `json:"newHomes"`
}

// decodeSeries reads a JSON array of indices, sorted and unique by month (the later
// entry wins). Malformed documents and incomplete entries yield no rows rather than an error.
func decodeSeries(data []byte) []domain.EpxIndex {
	var raw []storedIndex
	if err := json.Unmarshal(data, &raw); err != nil {
		return []domain.EpxIndex{}
	}

	out := make([]domain.EpxIndex, 0, len(raw))
	for _, r := range raw {
		if r.Month == nil || r.Apartments == nil || r.ExistingHomes == nil || r.NewHomes == nil {
			continue
		}
		out = append(out, domain.EpxIndex{
			Month:         *r.Month,
			Apartments:    *r.Apartments,
			ExistingHomes: *r.ExistingHomes,
			NewHomes:      *r.NewHomes,
		})
	}
	return MergeByMonth(nil, out)
}

func encodeSeries(series []domain.EpxIndex) ([]byte, error) {
	if series == nil {
		series = []domain.EpxIndex{}
	}
	data, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode EPX series: %w", err)
	}
	return append(data, '\n'), nil
}

// FileStore keeps the series in a pretty-printed JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the cache file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the cached series; a missing file is an empty series
func (s *FileStore) Load(ctx context.Context) ([]domain.EpxIndex, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.EpxIndex{}, nil
		}
		return nil, fmt.Errorf("failed to read EPX cache: %w", err)
	}
	return decodeSeries(data), nil
}

// Save writes the series through a temp file and rename, creating parent directories
func (s *FileStore) Save(ctx context.Context, series []domain.EpxIndex) error {
	data, err := encodeSeries(series)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create EPX cache directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write EPX cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace EPX cache: %w", err)
	}
	return nil
}
