package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	"FinRisk/internal/services/risk"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/metrics"
)

var (
	// ErrNoPrice is returned when no price was given and no price source is configured.
	ErrNoPrice = errors.New("no price available")
	// ErrSymbolRequired is returned by operations that need a symbol.
	ErrSymbolRequired = errors.New("symbol is required")
)

// BoundsResolver supplies validated bounds per symbol.
type BoundsResolver interface {
	Resolve(ctx context.Context, symbol string) (models.SymbolBounds, error)
	Invalidate(symbols ...string) int
}

type ScoringOption func(*RiskScoringUseCase)

func WithLogger(l *applogger.Logger) ScoringOption {
	return func(u *RiskScoringUseCase) {
		if l != nil {
			u.l = l
		}
	}
}

func WithMetrics(m domrepo.Metrics) ScoringOption {
	return func(u *RiskScoringUseCase) {
		if m != nil {
			u.metrics = m
		}
	}
}

// WithPublisher forwards every computed score to p.
func WithPublisher(p domrepo.ScorePublisher) ScoringOption {
	return func(u *RiskScoringUseCase) { u.publisher = p }
}

// WithStateStore loads and persists the band history of each symbol.
// Without a store every evaluation starts from an empty history.
func WithStateStore(s domrepo.StateStore) ScoringOption {
	return func(u *RiskScoringUseCase) { u.states = s }
}

// WithPriceSource is used when a request carries no price.
func WithPriceSource(p domrepo.PriceSource) ScoringOption {
	return func(u *RiskScoringUseCase) { u.prices = p }
}

// WithWorkers bounds batch parallelism.
func WithWorkers(n int) ScoringOption {
	return func(u *RiskScoringUseCase) {
		if n > 0 {
			u.workers = n
		}
	}
}

func WithClock(now func() time.Time) ScoringOption {
	return func(u *RiskScoringUseCase) {
		if now != nil {
			u.now = now
		}
	}
}

// RiskScoringUseCase gathers bounds, price, state and the coefficient table
// of a symbol and runs them through the engine.
type RiskScoringUseCase struct {
	engine    *risk.Engine
	bounds    BoundsResolver
	tables    *risk.TableStore
	states    domrepo.StateStore
	prices    domrepo.PriceSource
	publisher domrepo.ScorePublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	workers   int
	now       func() time.Time

	locks sync.Map // symbol -> *sync.Mutex
}

func NewRiskScoringUseCase(engine *risk.Engine, bounds BoundsResolver, tables *risk.TableStore, opts ...ScoringOption) *RiskScoringUseCase {
	u := &RiskScoringUseCase{
		engine:  engine,
		bounds:  bounds,
		tables:  tables,
		metrics: metrics.Nop{},
		l:       applogger.Nop(),
		workers: 4,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ScoreInput identifies one evaluation. A zero Price means "use the latest
// observed price"; a zero At means now.
type ScoreInput struct {
	Symbol string
	Price  float64
	At     time.Time
}

type ScoreOutput struct {
	Result       models.ScoreResult
	Bounds       models.SymbolBounds
	DBI          risk.DBIResult
	Price        float64
	TableVersion string
}

// Score evaluates a single symbol.
func (u *RiskScoringUseCase) Score(ctx context.Context, in ScoreInput) (ScoreOutput, error) {
	return u.score(ctx, u.tables.Snapshot(), in)
}

type BatchInput struct {
	Symbols []string
	Prices  map[string]float64
	At      time.Time
}

// BatchItem holds the outcome of one symbol; exactly one of Output and Err is set.
type BatchItem struct {
	Symbol string
	Output *ScoreOutput
	Err    error
}

// ScoreBatch evaluates symbols in parallel against a single table snapshot.
// Per-symbol failures are reported in the items, not as the returned error.
func (u *RiskScoringUseCase) ScoreBatch(ctx context.Context, in BatchInput) ([]BatchItem, error) {
	symbols := dedupe(in.Symbols)
	if len(symbols) == 0 {
		return nil, ErrSymbolRequired
	}
	at := in.At
	if at.IsZero() {
		at = u.now()
	}
	snap := u.tables.Snapshot()
	items := make([]BatchItem, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			items[i].Symbol = sym
			if err := gctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			out, err := u.score(gctx, snap, ScoreInput{Symbol: sym, Price: in.Prices[sym], At: at})
			if err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Output = &out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, ctx.Err()
}

func (u *RiskScoringUseCase) score(ctx context.Context, snap *risk.TableSnapshot, in ScoreInput) (ScoreOutput, error) {
	start := time.Now()
	defer func() { u.metrics.RecordLatency("score", time.Since(start).Seconds()) }()

	if in.Symbol == "" {
		return ScoreOutput{}, u.fail("validation", ErrSymbolRequired)
	}
	at := in.At
	if at.IsZero() {
		at = u.now()
	}

	b, err := u.bounds.Resolve(ctx, in.Symbol)
	if err != nil {
		return ScoreOutput{}, u.fail(ErrorKind(err), err)
	}

	price := in.Price
	if price == 0 {
		if price, err = u.latestPrice(ctx, in.Symbol); err != nil {
			return ScoreOutput{}, u.fail(ErrorKind(err), err)
		}
	}

	mu := u.symbolLock(in.Symbol)
	mu.Lock()
	defer mu.Unlock()

	st, err := u.loadState(ctx, in.Symbol)
	if err != nil {
		return ScoreOutput{}, u.fail("state", err)
	}

	var table *models.BandCoefficientTable
	if t, ok := snap.Get(in.Symbol); ok {
		table = &t
	}

	ev, err := u.engine.Evaluate(risk.EvalInput{Bounds: b, Price: price, Table: table, State: st, At: at})
	if err != nil {
		return ScoreOutput{}, u.fail(ErrorKind(err), fmt.Errorf("evaluate %s: %w", in.Symbol, err))
	}

	out := ScoreOutput{Result: ev.Result, Bounds: b, DBI: ev.DBI, Price: price}
	if table != nil {
		out.TableVersion = table.Version
	}

	// The score stands even if persisting side effects fails.
	if u.states != nil {
		if err := u.states.SaveState(ctx, in.Symbol, ev.NextState); err != nil {
			u.metrics.RecordError("state_save")
			u.l.Warn("failed to save coefficient state", applogger.String("symbol", in.Symbol), applogger.Error(err))
		}
	}
	if u.publisher != nil {
		if err := u.publisher.PublishScore(ctx, ev.Result, out.TableVersion); err != nil {
			u.metrics.RecordError("publish")
			u.l.Warn("failed to publish score", applogger.String("symbol", in.Symbol), applogger.Error(err))
		}
	}

	u.metrics.RecordScore(ev.Result)
	u.l.Debug("scored",
		applogger.String("symbol", in.Symbol),
		applogger.Float64("risk", ev.Result.RiskValue),
		applogger.Float64("coefficient", ev.Result.Coefficient),
		applogger.String("rule", string(ev.DBI.Rule)),
		applogger.String("signal", string(ev.Result.Signal)),
	)
	return out, nil
}

// PriceForRisk returns the price at which symbol reaches risk r.
func (u *RiskScoringUseCase) PriceForRisk(ctx context.Context, symbol string, r float64) (float64, models.SymbolBounds, error) {
	if symbol == "" {
		return 0, models.SymbolBounds{}, ErrSymbolRequired
	}
	b, err := u.bounds.Resolve(ctx, symbol)
	if err != nil {
		return 0, models.SymbolBounds{}, err
	}
	p, err := risk.PriceFromRisk(b, r)
	if err != nil {
		return 0, models.SymbolBounds{}, err
	}
	return p, b, nil
}

// BandRow describes one risk band of a symbol in price terms.
type BandRow struct {
	Band        int
	RiskLow     float64
	RiskHigh    float64
	PriceLow    float64
	PriceHigh   float64
	Coefficient float64 // zero when no table is loaded
}

type BandTable struct {
	Bounds       models.SymbolBounds
	TableVersion string
	Rows         []BandRow
}

// Bands lists the ten bands of symbol with their price ranges and, when a
// table is loaded, their coefficients.
func (u *RiskScoringUseCase) Bands(ctx context.Context, symbol string) (BandTable, error) {
	if symbol == "" {
		return BandTable{}, ErrSymbolRequired
	}
	b, err := u.bounds.Resolve(ctx, symbol)
	if err != nil {
		return BandTable{}, err
	}
	table, hasTable := u.tables.Get(symbol)

	out := BandTable{Bounds: b, Rows: make([]BandRow, 0, models.BandCount)}
	if hasTable {
		out.TableVersion = table.Version
	}
	for i := 0; i < models.BandCount; i++ {
		lo, hi := risk.BandBounds(i)
		row := BandRow{Band: i, RiskLow: lo, RiskHigh: hi}
		if row.PriceLow, err = risk.PriceFromRisk(b, lo); err != nil {
			return BandTable{}, err
		}
		if row.PriceHigh, err = risk.PriceFromRisk(b, hi); err != nil {
			return BandTable{}, err
		}
		if hasTable {
			row.Coefficient = table.Coefficients[i]
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Invalidation scopes.
const (
	ScopeAll    = "all"
	ScopeBounds = "bounds"
	ScopeState  = "state"
)

// Invalidate drops cached bounds and/or the stored band history. Clearing
// state requires a symbol. It returns the number of dropped bounds entries.
func (u *RiskScoringUseCase) Invalidate(ctx context.Context, symbol, scope string) (int, error) {
	if scope == "" {
		scope = ScopeAll
	}
	n := 0
	if scope == ScopeAll || scope == ScopeBounds {
		if symbol == "" {
			n = u.bounds.Invalidate()
		} else {
			n = u.bounds.Invalidate(symbol)
		}
	}
	if scope == ScopeAll || scope == ScopeState {
		if symbol == "" {
			if scope == ScopeState {
				return n, ErrSymbolRequired
			}
			return n, nil
		}
		if u.states != nil {
			if err := u.states.DeleteState(ctx, symbol); err != nil {
				return n, fmt.Errorf("delete state %s: %w", symbol, err)
			}
		}
	}
	u.l.Info("cache invalidated", applogger.String("symbol", symbol), applogger.String("scope", scope), applogger.Int("bounds", n))
	return n, nil
}

func (u *RiskScoringUseCase) latestPrice(ctx context.Context, symbol string) (float64, error) {
	if u.prices == nil {
		return 0, fmt.Errorf("%s: %w", symbol, ErrNoPrice)
	}
	p, at, err := u.prices.LatestPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("latest price %s: %w", symbol, err)
	}
	u.metrics.RecordLatency("price_age", u.now().Sub(at).Seconds())
	return p, nil
}

func (u *RiskScoringUseCase) loadState(ctx context.Context, symbol string) (models.CoefficientState, error) {
	if u.states == nil {
		return models.CoefficientState{}, nil
	}
	st, err := u.states.LoadState(ctx, symbol)
	if errors.Is(err, domrepo.ErrNotFound) {
		return models.CoefficientState{}, nil
	}
	if err != nil {
		return models.CoefficientState{}, fmt.Errorf("load state %s: %w", symbol, err)
	}
	return st, nil
}

func (u *RiskScoringUseCase) symbolLock(symbol string) *sync.Mutex {
	if m, ok := u.locks.Load(symbol); ok {
		return m.(*sync.Mutex)
	}
	m, _ := u.locks.LoadOrStore(symbol, &sync.Mutex{})
	return m.(*sync.Mutex)
}

func (u *RiskScoringUseCase) fail(kind string, err error) error {
	u.metrics.RecordError(kind)
	return err
}

// ErrorKind classifies err for metrics and transport mapping.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSymbolRequired), risk.IsValidation(err):
		return "validation"
	case errors.Is(err, domrepo.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoPrice):
		return "no_price"
	case errors.Is(err, risk.ErrDistribution):
		return "distribution"
	case errors.Is(err, risk.ErrScoreComputation):
		return "computation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
