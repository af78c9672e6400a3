package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// ErrCorrupt is returned by Load when the existing document cannot be parsed.
// The store is left empty in that case.
var ErrCorrupt = errors.New("result file is corrupt")

// FileName returns the result document name for a split
func FileName(split string) string {
	return split + "_ocr_results.json"
}

// Store maps image keys to their word records for one dataset split.
// It is not safe for concurrent use.
type Store struct {
	fs       afero.Fs
	filePath string
	records  map[string][]WordRecord
}

// NewStore creates an empty store bound to filePath
func NewStore(fs afero.Fs, filePath string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{
		fs:       fs,
		filePath: filePath,
		records:  make(map[string][]WordRecord),
	}
}

// Path returns the document path
func (s *Store) Path() string {
	return s.filePath
}

// Load replaces the in-memory records with the document on disk.
// A missing document yields an empty store and no error.
func (s *Store) Load() error {
	s.records = make(map[string][]WordRecord)

	data, err := afero.ReadFile(s.fs, s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read result file: %w", err)
	}

	var records map[string][]WordRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, s.filePath, err)
	}

	for key, words := range records {
		if words == nil {
			words = []WordRecord{}
		}
		s.records[key] = words
	}
	return nil
}

// Save writes every record to disk atomically
func (s *Store) Save() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s.records); err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := afero.WriteFile(s.fs, tmpFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write temp result file: %w", err)
	}

	if err := s.fs.Rename(tmpFile, s.filePath); err != nil {
		_ = s.fs.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp result file: %w", err)
	}

	return nil
}

// Has reports whether key was already processed, even if it has no words
func (s *Store) Has(key string) bool {
	_, ok := s.records[key]
	return ok
}

// Get returns the records for key
func (s *Store) Get(key string) ([]WordRecord, bool) {
	words, ok := s.records[key]
	return words, ok
}

// Set stores the records for key, marking it processed
func (s *Store) Set(key string, words []WordRecord) {
	if words == nil {
		words = []WordRecord{}
	}
	s.records[key] = words
}

// Len returns the number of processed images
func (s *Store) Len() int {
	return len(s.records)
}

// Keys returns all image keys in sorted order
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
