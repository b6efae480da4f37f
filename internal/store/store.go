// Package store keeps the latest extraction of every package in memory.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/hierarchy"
)

type Entry struct {
	Result    *asset.PackageResult
	Hierarchy hierarchy.Document
	UpdatedAt time.Time
}

// Info is the listing view of an entry.
type Info struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Parts     int       `json:"parts"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a pipeline sink safe for concurrent readers.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	opts    []hierarchy.Option
	now     func() time.Time
}

func New(opts ...hierarchy.Option) *Store {
	return &Store{entries: make(map[string]*Entry), opts: opts, now: time.Now}
}

// Consume replaces the entry of res's package.
func (s *Store) Consume(_ context.Context, res *asset.PackageResult) error {
	e := &Entry{Result: res, Hierarchy: hierarchy.BuildDocument(res, s.opts...), UpdatedAt: s.now()}
	s.mu.Lock()
	s.entries[res.Name] = e
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Get(name string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	return e, ok
}

// List returns every package sorted by name.
func (s *Store) List() []Info {
	s.mu.RLock()
	out := make([]Info, 0, len(s.entries))
	for name, e := range s.entries {
		out = append(out, Info{
			Name:      name,
			Path:      e.Result.Path,
			Checksum:  e.Result.Checksum,
			Parts:     len(e.Result.Parts),
			UpdatedAt: e.UpdatedAt,
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
