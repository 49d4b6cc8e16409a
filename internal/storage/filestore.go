package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"justibot/internal/domain"
)

type fileData struct {
	NextID uint                       `json:"nextId"`
	Cases  map[uint]domain.LegalCase `json:"cases"`
}

// FileStore is a JSON-file-backed CaseStore. It covers local development
// without a database and the test suite; saves go through a temp file plus
// rename so a crash never leaves a truncated file behind.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data fileData
}

func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	store := &FileStore{path: filepath.Join(baseDir, "cases.json")}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = fileData{NextID: 1, Cases: map[uint]domain.LegalCase{}}

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("open case file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			return s.saveLocked()
		}
		return fmt.Errorf("decode case file: %w", err)
	}

	if s.data.Cases == nil {
		s.data.Cases = map[uint]domain.LegalCase{}
	}
	if s.data.NextID == 0 {
		s.data.NextID = 1
	}
	return nil
}

func (s *FileStore) Insert(ctx context.Context, c *domain.LegalCase) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.data.NextID
	s.data.NextID++

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = domain.CaseStatusDraft
	}

	s.data.Cases[c.ID] = *c
	return s.saveLocked()
}

func (s *FileStore) FetchByID(ctx context.Context, id uint) (domain.LegalCase, error) {
	if err := ctx.Err(); err != nil {
		return domain.LegalCase{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data.Cases[id]
	if !ok {
		return domain.LegalCase{}, domain.ErrCaseNotFound
	}
	return c, nil
}

func (s *FileStore) UpdateByID(ctx context.Context, id uint, patch domain.CasePatch) (domain.LegalCase, error) {
	if err := ctx.Err(); err != nil {
		return domain.LegalCase{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data.Cases[id]
	if !ok {
		return domain.LegalCase{}, domain.ErrCaseNotFound
	}

	if patch.CompletesCase() && c.Completed() {
		return domain.LegalCase{}, domain.ErrAlreadyFinalized
	}

	applyPatch(&c, patch)
	c.UpdatedAt = time.Now()
	s.data.Cases[id] = c

	if err := s.saveLocked(); err != nil {
		return domain.LegalCase{}, err
	}
	return c, nil
}

func applyPatch(c *domain.LegalCase, patch domain.CasePatch) {
	if patch.CitizenName != nil {
		c.CitizenName = *patch.CitizenName
	}
	if patch.CitizenID != nil {
		c.CitizenID = *patch.CitizenID
	}
	if patch.City != nil {
		c.City = *patch.City
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	if patch.PDFPath != nil {
		c.PDFPath = *patch.PDFPath
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
}

func (s *FileStore) saveLocked() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "cases-*.json")
	if err != nil {
		return fmt.Errorf("create temp case file: %w", err)
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode case file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp case file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace case file: %w", err)
	}

	return nil
}
