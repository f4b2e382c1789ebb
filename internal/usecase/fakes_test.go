package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
)

type fakeBounds struct {
	m           map[string]models.SymbolBounds
	invalidated []string
}

func newFakeBounds(bs ...models.SymbolBounds) *fakeBounds {
	f := &fakeBounds{m: map[string]models.SymbolBounds{}}
	for _, b := range bs {
		f.m[b.Symbol] = b
	}
	return f
}

func (f *fakeBounds) Resolve(_ context.Context, symbol string) (models.SymbolBounds, error) {
	b, ok := f.m[symbol]
	if !ok {
		return models.SymbolBounds{}, fmt.Errorf("bounds %q: %w", symbol, domrepo.ErrNotFound)
	}
	return b, nil
}

func (f *fakeBounds) Invalidate(symbols ...string) int {
	if len(symbols) == 0 {
		f.invalidated = append(f.invalidated, "*")
		return len(f.m)
	}
	f.invalidated = append(f.invalidated, symbols...)
	return len(symbols)
}

type fakePrices struct {
	m map[string]float64
}

func (f fakePrices) LatestPrice(_ context.Context, symbol string) (float64, time.Time, error) {
	p, ok := f.m[symbol]
	if !ok {
		return 0, time.Time{}, domrepo.ErrNotFound
	}
	return p, time.Now(), nil
}

type failingStates struct {
	domrepo.StateStore
}

func (failingStates) LoadState(context.Context, string) (models.CoefficientState, error) {
	return models.CoefficientState{}, nil
}

func (failingStates) SaveState(context.Context, string, models.CoefficientState) error {
	return errors.New("redis down")
}

type recordingPublisher struct {
	mu       sync.Mutex
	results  []models.ScoreResult
	versions []string
	err      error
}

func (p *recordingPublisher) PublishScore(_ context.Context, res models.ScoreResult, version string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, res)
	p.versions = append(p.versions, version)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingMetrics struct {
	mu       sync.Mutex
	scores   int
	errors   map[string]int
	rebuilds map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{errors: map[string]int{}, rebuilds: map[string]int{}}
}

func (m *recordingMetrics) RecordScore(models.ScoreResult) {
	m.mu.Lock()
	m.scores++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

func (m *recordingMetrics) RecordTableRebuild(_ string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.rebuilds["error"]++
		return
	}
	m.rebuilds["ok"]++
}

type mapDistributions map[string]models.HistoricalBandDistribution

func (m mapDistributions) Distribution(_ context.Context, symbol string) (models.HistoricalBandDistribution, error) {
	d, ok := m[symbol]
	if !ok {
		return models.HistoricalBandDistribution{}, domrepo.ErrNotFound
	}
	return d, nil
}
