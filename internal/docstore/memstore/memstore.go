// Package memstore is an in-memory docstore.Store used in tests and as
// a fallback when no database is configured.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mbertoldo/finbook/internal/docstore"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]docstore.Document
}

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]docstore.Document),
	}
}

func (s *Store) Insert(_ context.Context, collection string, data docstore.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insert(collection, data), nil
}

func (s *Store) InsertUnique(_ context.Context, collection string, data docstore.Document, keys ...string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.collections[collection] {
		if matchesAll(doc, data, keys) {
			return "", docstore.ErrConflict
		}
	}

	return s.insert(collection, data), nil
}

func (s *Store) GetByID(_ context.Context, collection string, id string) (docstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return docstore.Record{}, docstore.ErrNotFound
	}

	return docstore.Record{ID: id, Data: clone(doc)}, nil
}

func (s *Store) Query(_ context.Context, collection string, field string, value string, opts ...docstore.QueryOption) ([]docstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]docstore.Record, 0)
	for id, doc := range s.collections[collection] {
		if fieldString(doc, field) == value {
			records = append(records, docstore.Record{ID: id, Data: clone(doc)})
		}
	}

	o := docstore.BuildQueryOptions(opts)
	if o.OrderField != "" {
		sort.SliceStable(records, func(i, j int) bool {
			a := fieldString(records[i].Data, o.OrderField)
			b := fieldString(records[j].Data, o.OrderField)
			if o.Desc {
				return a > b
			}
			return a < b
		})
	}

	return records, nil
}

func (s *Store) Update(_ context.Context, collection string, id string, fields docstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return docstore.ErrNotFound
	}

	for k, v := range fields {
		doc[k] = v
	}

	return nil
}

func (s *Store) Delete(_ context.Context, collection string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return docstore.ErrNotFound
	}
	delete(s.collections[collection], id)

	return nil
}

// insert assumes s.mu is held
func (s *Store) insert(collection string, data docstore.Document) string {
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]docstore.Document)
	}

	id := uuid.NewString()
	s.collections[collection][id] = clone(data)
	return id
}

func matchesAll(doc docstore.Document, data docstore.Document, keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	for _, key := range keys {
		if fieldString(doc, key) != fieldString(data, key) {
			return false
		}
	}
	return true
}

func clone(doc docstore.Document) docstore.Document {
	c := make(docstore.Document, len(doc))
	for k, v := range doc {
		c[k] = v
	}
	return c
}

func fieldString(doc docstore.Document, field string) string {
	v, ok := doc[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
