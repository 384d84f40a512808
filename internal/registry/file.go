// file.go — File-backed registry store for single-node deployments.
//
// The whole registry is one JSON document:
//
//	{
//	  "users":   {"0xwallet": {"library": "0x…", "watchlist": "0x…"}},
//	  "reviews": "0x…"
//	}
//
// Every mutation rewrites the document through a temp file + rename, under a
// process-wide mutex, so readers never observe a torn write and concurrent
// mutations serialize.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements Store on a JSON document at a fixed path.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

// fileDoc is the persisted document shape.
type fileDoc struct {
	Users   map[string]fileHandles `json:"users"`
	Reviews string                 `json:"reviews,omitempty"`
}

type fileHandles struct {
	Library   string `json:"library"`
	Watchlist string `json:"watchlist"`
}

// NewFileStore creates a store backed by the document at path.
// A missing file reads as an empty registry.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// load reads and parses the document. Callers must hold mu when loading for
// a mutation.
func (s *FileStore) load() (*fileDoc, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &fileDoc{Users: map[string]fileHandles{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry read: %w", err)
	}
	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("registry parse: %w", err)
	}
	if doc.Users == nil {
		doc.Users = map[string]fileHandles{}
	}
	return &doc, nil
}

// save atomically replaces the document: write temp file, fsync, rename.
func (s *FileStore) save(doc *fileDoc) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("registry encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".registry-*")
	if err != nil {
		return fmt.Errorf("registry write: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("registry write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("registry sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("registry close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("registry replace: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, wallet string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	h, ok := doc.Users[wallet]
	if !ok {
		return nil, ErrNotFound
	}
	return &Entry{Wallet: wallet, LibraryHandle: h.Library, WatchlistHandle: h.Watchlist}, nil
}

func (s *FileStore) Create(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Users[e.Wallet]; ok {
		return ErrAlreadyExists
	}
	doc.Users[e.Wallet] = fileHandles{Library: e.LibraryHandle, Watchlist: e.WatchlistHandle}
	return s.save(doc)
}

func (s *FileStore) Put(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Users[e.Wallet] = fileHandles{Library: e.LibraryHandle, Watchlist: e.WatchlistHandle}
	return s.save(doc)
}

func (s *FileStore) Delete(ctx context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Users[wallet]; !ok {
		return ErrNotFound
	}
	delete(doc.Users, wallet)
	return s.save(doc)
}

func (s *FileStore) List(ctx context.Context) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	entries := make(map[string]Entry, len(doc.Users))
	for wallet, h := range doc.Users {
		entries[wallet] = Entry{Wallet: wallet, LibraryHandle: h.Library, WatchlistHandle: h.Watchlist}
	}
	return entries, nil
}

func (s *FileStore) ReviewsHandle(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return "", err
	}
	return doc.Reviews, nil
}

func (s *FileStore) SetReviewsHandle(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if doc.Reviews != "" {
		return ErrReviewsAlreadySet
	}
	doc.Reviews = handle
	return s.save(doc)
}
