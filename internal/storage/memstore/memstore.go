// Package memstore is an in-memory schema.Capability used by tests and
// the delf demo CLI path. It keeps every table as a slice of rows
// behind a mutex — no indexing, no query planning, just enough to
// exercise the deletion engine's cascades without a real database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcmcgrath13/delf/internal/schema"
	"github.com/mcmcgrath13/delf/internal/storage"
)

func init() {
	// Registered as "memory" so a config document can opt a storage
	// into the in-memory backend for the demo CLI path without a real
	// database — every Store instance it builds is independent.
	storage.DefaultRegistry.Register("memory", func(_ string) (schema.Capability, error) {
		return New(), nil
	})
}

// row is one record in a table: a flat string-keyed map of column
// name to value. Values are stored and compared as strings; this store
// ignores IDType.
type row map[string]string

// Store is a process-local, table-oriented schema.Capability. Tables
// are created lazily on first write; reads against an unknown table
// return no rows rather than an error, matching how a freshly migrated
// database behaves before any data has been inserted.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]row
}

// New returns an empty Store.
func New() *Store {
	return &Store{tables: make(map[string][]row)}
}

// Seed inserts a row into table, overwriting nothing — callers build
// up fixture data before running a scenario through the engine.
func (s *Store) Seed(table string, fields map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(row, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	s.tables[table] = append(s.tables[table], cp)
}

// Rows returns a snapshot of every row currently in table, for test
// assertions.
func (s *Store) Rows(table string) []map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]string, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		cp := make(map[string]string, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// DeleteObject deletes the row in obj.Name whose IDField equals id.
func (s *Store) DeleteObject(_ context.Context, obj *schema.Object, id string) (bool, error) {
	return s.deleteMatching(obj.Name, obj.IDField, id), nil
}

// DeleteEdge removes an edge instance. With a mapping table, that's a
// row deletion keyed on Field (the from-side match) and the target's
// own id column. Without one, the foreign key lives on the target's
// own row alongside the rest of its columns, so the edge is severed by
// clearing Field rather than removing the row outright.
func (s *Store) DeleteEdge(_ context.Context, target *schema.Object, fromID string, toID *string, edge *schema.Edge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if edge.To.MappingTable != "" {
		table := edge.To.MappingTable
		rows := s.tables[table]
		kept := rows[:0:0]
		removed := false
		for _, r := range rows {
			matchFrom := r[edge.To.Field] == fromID
			matchTo := toID == nil || r[target.IDField] == *toID
			if matchFrom && matchTo {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		s.tables[table] = kept
		return removed, nil
	}

	removed := false
	for _, r := range s.tables[target.Name] {
		if r[edge.To.Field] != fromID {
			continue
		}
		if toID != nil && r[target.IDField] != *toID {
			continue
		}
		delete(r, edge.To.Field)
		removed = true
	}
	return removed, nil
}

// GetObjectIDs returns the ids of every row in table whose field column
// equals fromID.
func (s *Store) GetObjectIDs(_ context.Context, fromID string, _ schema.IDType, field, table, idField string, _ schema.IDType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, r := range s.tables[table] {
		if r[field] == fromID {
			ids = append(ids, r[idField])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetObjectIDsByTime returns the ids of every row in table whose
// timeField parses as an RFC3339 timestamp <= now.
func (s *Store) GetObjectIDsByTime(_ context.Context, table, timeField, idField string, _ schema.IDType, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, r := range s.tables[table] {
		ts, err := time.Parse(time.RFC3339, r[timeField])
		if err != nil {
			continue
		}
		if !ts.After(now) {
			ids = append(ids, r[idField])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// HasEdge reports whether any row of edge's table references (target,
// id) — used by the refcount probe. With a mapping table, that's a row
// whose target id column (target.IDField) matches id. Without one, the foreign key lives on
// the target's own row, so a live reference is a target row with that
// id whose Field column is populated.
func (s *Store) HasEdge(_ context.Context, target *schema.Object, id string, edge *schema.Edge) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if edge.To.MappingTable != "" {
		for _, r := range s.tables[edge.To.MappingTable] {
			if r[target.IDField] == id {
				return true, nil
			}
		}
		return false, nil
	}

	for _, r := range s.tables[target.Name] {
		if r[target.IDField] == id && r[edge.To.Field] != "" {
			return true, nil
		}
	}
	return false, nil
}

// ValidateObject is a no-op: memstore has no schema to check against.
func (s *Store) ValidateObject(_ context.Context, _ *schema.Object) error {
	return nil
}

// ValidateEdge is a no-op: memstore has no schema to check against.
func (s *Store) ValidateEdge(_ context.Context, _ *schema.Edge) error {
	return nil
}

func (s *Store) deleteMatching(table, idField, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.tables[table]
	for i, r := range rows {
		if r[idField] == id {
			s.tables[table] = append(rows[:i], rows[i+1:]...)
			return true
		}
	}
	return false
}
