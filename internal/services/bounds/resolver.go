package bounds

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/domain/repository"
	"FinRisk/internal/service/cache"
	"FinRisk/internal/services/risk"
	applogger "FinRisk/pkg/logger"
)

// Option configures Resolver.
type Option func(*Resolver)

// WithStore consults store before the static calibration.
func WithStore(store repository.BoundsStore) Option {
	return func(r *Resolver) { r.store = store }
}

// WithCacheTTL caches resolved bounds for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

func WithLogger(l *applogger.Logger) Option {
	return func(r *Resolver) { r.l = l }
}

// Resolver supplies validated calibrated bounds per symbol. A configured
// store wins over the static set; the static set is the fallback when the
// store has no row or is unavailable.
type Resolver struct {
	static map[string]models.SymbolBounds
	store  repository.BoundsStore
	cache  *cache.TTLCache[models.SymbolBounds]
	ttl    time.Duration
	l      *applogger.Logger
}

// NewResolver validates every static entry up front.
func NewResolver(static []models.SymbolBounds, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		static: make(map[string]models.SymbolBounds, len(static)),
		l:      applogger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, b := range static {
		if err := risk.ValidateBounds(b); err != nil {
			return nil, err
		}
		r.static[b.Symbol] = b
	}
	if r.ttl > 0 {
		r.cache = cache.NewTTLCache[models.SymbolBounds](r.ttl)
	}
	return r, nil
}

// Resolve returns the bounds of symbol or an error wrapping
// repository.ErrNotFound or risk.ErrInvalidBounds.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (models.SymbolBounds, error) {
	if r.cache != nil {
		if b, ok := r.cache.Get(symbol); ok {
			return b, nil
		}
	}

	b, err := r.lookup(ctx, symbol)
	if err != nil {
		return models.SymbolBounds{}, err
	}
	if err := risk.ValidateBounds(b); err != nil {
		return models.SymbolBounds{}, err
	}
	if r.cache != nil {
		r.cache.Set(symbol, b)
	}
	return b, nil
}

func (r *Resolver) lookup(ctx context.Context, symbol string) (models.SymbolBounds, error) {
	static, hasStatic := r.static[symbol]
	if r.store == nil {
		if hasStatic {
			return static, nil
		}
		return models.SymbolBounds{}, fmt.Errorf("bounds %q: %w", symbol, repository.ErrNotFound)
	}

	b, err := r.store.GetBounds(ctx, symbol)
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, repository.ErrNotFound) && hasStatic:
		return static, nil
	case errors.Is(err, repository.ErrNotFound):
		return models.SymbolBounds{}, fmt.Errorf("bounds %q: %w", symbol, err)
	case hasStatic:
		r.l.Warn("bounds store unavailable, using static calibration",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return static, nil
	default:
		return models.SymbolBounds{}, fmt.Errorf("bounds %q: %w", symbol, err)
	}
}

// Publish stores b in the backing store, if any, and drops the cached copy.
func (r *Resolver) Publish(ctx context.Context, b models.SymbolBounds) error {
	if err := risk.ValidateBounds(b); err != nil {
		return err
	}
	if r.store == nil {
		return errors.New("no bounds store configured")
	}
	if err := r.store.UpsertBounds(ctx, b); err != nil {
		return fmt.Errorf("upsert bounds %q: %w", b.Symbol, err)
	}
	r.Invalidate(b.Symbol)
	return nil
}

// Invalidate drops cached bounds for symbols, or all of them when none given.
func (r *Resolver) Invalidate(symbols ...string) int {
	if r.cache == nil {
		return 0
	}
	if len(symbols) == 0 {
		return r.cache.Purge()
	}
	return r.cache.Delete(symbols...)
}

// Symbols lists the statically calibrated symbols, sorted.
func (r *Resolver) Symbols() []string {
	out := make([]string, 0, len(r.static))
	for s := range r.static {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
