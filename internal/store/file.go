package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore implements MediaStore as a JSON document on local disk. Every
// write rewrites the document through a temp file and rename.
type FileStore struct {
	mu    sync.Mutex
	path  string
	media map[string]*Media
}

// Compile-time interface check.
var _ MediaStore = (*FileStore)(nil)

// fileDocument is the on-disk layout.
type fileDocument struct {
	Version int      `json:"version"`
	Media   []*Media `json:"media"`
}

const fileDocumentVersion = 1

// OpenFileStore loads the store at path, creating an empty one if the file does not exist.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, media: make(map[string]*Media)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("Media store file not found, starting empty")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read media store %s: %w", path, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse media store %s: %w", path, err)
	}
	for i, m := range doc.Media {
		if m == nil || m.ID == "" {
			return nil, fmt.Errorf("parse media store %s: entry %d has no id", path, i)
		}
		s.media[m.ID] = m
	}

	log.Debug().Str("path", path).Int("records", len(s.media)).Msg("Media store loaded")
	return s, nil
}

// NewMemoryStore returns a FileStore that never touches disk.
func NewMemoryStore() *FileStore {
	return &FileStore{media: make(map[string]*Media)}
}

// Path returns the backing file, or "" for a memory store.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) PutMedia(ctx context.Context, m *Media) error {
	if m.ID == "" {
		return fmt.Errorf("put media: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	if err := s.commit(cloneMedia(m)); err != nil {
		return fmt.Errorf("put media %s: %w", m.ID, err)
	}
	return nil
}

func (s *FileStore) GetMedia(ctx context.Context, id string) (*Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.media[id]
	if !ok {
		return nil, nil
	}
	return cloneMedia(m), nil
}

func (s *FileStore) FindByPath(ctx context.Context, path string) (*Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.media {
		if m.Path == path {
			return cloneMedia(m), nil
		}
	}
	return nil, nil
}

func (s *FileStore) UpdateAnalysis(ctx context.Context, id, description string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.media[id]
	if !ok {
		return fmt.Errorf("update analysis %s: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	updated := cloneMedia(m)
	updated.Description = description
	updated.Tags = append([]string(nil), tags...)
	updated.Analyzed = true
	updated.AnalyzedAt = now
	updated.UpdatedAt = now

	if err := s.commit(updated); err != nil {
		return fmt.Errorf("update analysis %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) RenameMedia(ctx context.Context, id, newPath, newFilename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.media[id]
	if !ok {
		return fmt.Errorf("rename media %s: %w", id, ErrNotFound)
	}
	updated := cloneMedia(m)
	updated.Path = newPath
	updated.Filename = newFilename
	updated.UpdatedAt = time.Now().UTC()

	if err := s.commit(updated); err != nil {
		return fmt.Errorf("rename media %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) ListUnanalyzed(ctx context.Context, limit int) ([]*Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return oldestUnanalyzed(s.snapshot(), limit), nil
}

func (s *FileStore) ListMedia(ctx context.Context) ([]*Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.snapshot()
	sortByPath(items)
	return items, nil
}

// snapshot copies every record. Caller holds mu.
func (s *FileStore) snapshot() []*Media {
	items := make([]*Media, 0, len(s.media))
	for _, m := range s.media {
		items = append(items, cloneMedia(m))
	}
	return items
}

// commit stores m and saves the document. If the save fails the previous
// record is restored so memory matches disk. Caller holds mu.
func (s *FileStore) commit(m *Media) error {
	prev, had := s.media[m.ID]
	s.media[m.ID] = m
	if err := s.save(); err != nil {
		if had {
			s.media[m.ID] = prev
		} else {
			delete(s.media, m.ID)
		}
		return err
	}
	return nil
}

// save writes the document atomically. Caller holds mu.
func (s *FileStore) save() error {
	if s.path == "" {
		return nil
	}

	items := s.snapshot()
	sortByPath(items)
	data, err := json.MarshalIndent(fileDocument{Version: fileDocumentVersion, Media: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".media-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func cloneMedia(m *Media) *Media {
	c := *m
	c.Tags = append([]string(nil), m.Tags...)
	return &c
}
