package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	"FinRisk/internal/service/cache"
)

var (
	_ domrepo.StateStore         = (*MemoryStateStore)(nil)
	_ domrepo.StateStore         = (*CachedStateStore)(nil)
	_ domrepo.DistributionSource = (*StaticDistributions)(nil)
)

// MemoryStateStore keeps band histories in process memory.
type MemoryStateStore struct {
	mu sync.RWMutex
	m  map[string]models.CoefficientState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{m: make(map[string]models.CoefficientState)}
}

func (s *MemoryStateStore) LoadState(_ context.Context, symbol string) (models.CoefficientState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[symbol], nil
}

func (s *MemoryStateStore) SaveState(_ context.Context, symbol string, st models.CoefficientState) error {
	s.mu.Lock()
	s.m[symbol] = st
	s.mu.Unlock()
	return nil
}

func (s *MemoryStateStore) DeleteState(_ context.Context, symbol string) error {
	s.mu.Lock()
	delete(s.m, symbol)
	s.mu.Unlock()
	return nil
}

// CachedStateStore is a write-through TTL cache in front of another store.
type CachedStateStore struct {
	next  domrepo.StateStore
	cache *cache.TTLCache[models.CoefficientState]
}

func NewCachedStateStore(next domrepo.StateStore, ttl time.Duration) *CachedStateStore {
	return &CachedStateStore{next: next, cache: cache.NewTTLCache[models.CoefficientState](ttl)}
}

func (s *CachedStateStore) LoadState(ctx context.Context, symbol string) (models.CoefficientState, error) {
	if st, ok := s.cache.Get(symbol); ok {
		return st, nil
	}
	st, err := s.next.LoadState(ctx, symbol)
	if err != nil {
		return models.CoefficientState{}, err
	}
	s.cache.Set(symbol, st)
	return st, nil
}

func (s *CachedStateStore) SaveState(ctx context.Context, symbol string, st models.CoefficientState) error {
	if err := s.next.SaveState(ctx, symbol, st); err != nil {
		s.cache.Delete(symbol)
		return err
	}
	s.cache.Set(symbol, st)
	return nil
}

func (s *CachedStateStore) DeleteState(ctx context.Context, symbol string) error {
	s.cache.Delete(symbol)
	return s.next.DeleteState(ctx, symbol)
}

// Invalidate drops cached states for symbols, or all when none given.
func (s *CachedStateStore) Invalidate(symbols ...string) int {
	if len(symbols) == 0 {
		return s.cache.Purge()
	}
	return s.cache.Delete(symbols...)
}

// StaticDistributions serves fixed day counts, typically seeded from config.
type StaticDistributions struct {
	m map[string]models.HistoricalBandDistribution
}

func NewStaticDistributions(ds ...models.HistoricalBandDistribution) *StaticDistributions {
	m := make(map[string]models.HistoricalBandDistribution, len(ds))
	for _, d := range ds {
		m[d.Symbol] = d
	}
	return &StaticDistributions{m: m}
}

func (s *StaticDistributions) Distribution(_ context.Context, symbol string) (models.HistoricalBandDistribution, error) {
	d, ok := s.m[symbol]
	if !ok {
		return models.HistoricalBandDistribution{}, fmt.Errorf("distribution %q: %w", symbol, domrepo.ErrNotFound)
	}
	return d, nil
}
