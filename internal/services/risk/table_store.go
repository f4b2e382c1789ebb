package risk

import (
	"sort"
	"sync"
	"sync/atomic"

	"FinRisk/internal/domain/models"
)

// TableSnapshot is an immutable view of all coefficient tables.
type TableSnapshot struct {
	tables map[string]models.BandCoefficientTable
}

// Get returns the table of symbol, if any.
func (s *TableSnapshot) Get(symbol string) (models.BandCoefficientTable, bool) {
	if s == nil {
		return models.BandCoefficientTable{}, false
	}
	t, ok := s.tables[symbol]
	return t, ok
}

// Symbols lists the symbols with a table, sorted.
func (s *TableSnapshot) Symbols() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.tables))
	for sym := range s.tables {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tables in the snapshot.
func (s *TableSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tables)
}

// TableStore publishes coefficient tables with read-copy-update semantics:
// writers build a new map and swap it in, readers never lock.
type TableStore struct {
	mu  sync.Mutex // serialises writers
	cur atomic.Pointer[TableSnapshot]
}

func NewTableStore() *TableStore {
	s := &TableStore{}
	s.cur.Store(&TableSnapshot{tables: map[string]models.BandCoefficientTable{}})
	return s
}

// Snapshot returns the current immutable view. Hold on to it for the
// duration of a batch to keep results consistent.
func (s *TableStore) Snapshot() *TableSnapshot {
	return s.cur.Load()
}

// Get is a shorthand for Snapshot().Get.
func (s *TableStore) Get(symbol string) (models.BandCoefficientTable, bool) {
	return s.Snapshot().Get(symbol)
}

// Put installs or replaces the tables of the given symbols atomically.
func (s *TableStore) Put(tables ...models.BandCoefficientTable) {
	if len(tables) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.cur.Load()
	next := make(map[string]models.BandCoefficientTable, len(old.tables)+len(tables))
	for k, v := range old.tables {
		next[k] = v
	}
	for _, t := range tables {
		next[t.Symbol] = t
	}
	s.cur.Store(&TableSnapshot{tables: next})
}

// Remove drops the tables of the given symbols.
func (s *TableStore) Remove(symbols ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.cur.Load()
	next := make(map[string]models.BandCoefficientTable, len(old.tables))
	for k, v := range old.tables {
		next[k] = v
	}
	for _, sym := range symbols {
		delete(next, sym)
	}
	s.cur.Store(&TableSnapshot{tables: next})
}
