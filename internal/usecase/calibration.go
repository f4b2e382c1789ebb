package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	"FinRisk/internal/services/risk"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/metrics"
)

// ErrNoDistributionSource is returned by Rebuild when neither a source nor a
// seeded distribution exists for the symbol.
var ErrNoDistributionSource = errors.New("no distribution source")

// CalibrationSeed is the statically configured calibration of one symbol:
// either explicit coefficients or a time-in-band distribution.
type CalibrationSeed struct {
	Symbol       string
	Coefficients []float64
	Distribution *models.HistoricalBandDistribution
}

// CalibrationUseCase builds coefficient tables and installs them in the
// table store.
type CalibrationUseCase struct {
	params  risk.Params
	tables  *risk.TableStore
	source  domrepo.DistributionSource
	seeds   map[string]CalibrationSeed
	version string
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time
}

func NewCalibrationUseCase(params risk.Params, tables *risk.TableStore, source domrepo.DistributionSource, version string, seeds []CalibrationSeed) *CalibrationUseCase {
	c := &CalibrationUseCase{
		params:  params,
		tables:  tables,
		source:  source,
		seeds:   make(map[string]CalibrationSeed, len(seeds)),
		version: version,
		metrics: metrics.Nop{},
		l:       applogger.Nop(),
		now:     time.Now,
	}
	for _, s := range seeds {
		c.seeds[s.Symbol] = s
	}
	return c
}

func (c *CalibrationUseCase) SetLogger(l *applogger.Logger) {
	if l != nil {
		c.l = l
	}
}

func (c *CalibrationUseCase) SetMetrics(m domrepo.Metrics) {
	if m != nil {
		c.metrics = m
	}
}

func (c *CalibrationUseCase) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Seed installs the tables of every configured seed in one swap.
func (c *CalibrationUseCase) Seed() error {
	builtAt := c.now().UTC()
	tables := make([]models.BandCoefficientTable, 0, len(c.seeds))
	var errs []error
	for sym, s := range c.seeds {
		var (
			t   models.BandCoefficientTable
			err error
		)
		switch {
		case len(s.Coefficients) > 0:
			t, err = risk.TableFromCoefficients(sym, c.version, s.Coefficients, c.params, builtAt)
		case s.Distribution != nil:
			t, err = risk.BuildCoefficientTable(*s.Distribution, c.params, c.versionAt(builtAt), builtAt)
		default:
			continue
		}
		c.metrics.RecordTableRebuild(sym, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("seed %s: %w", sym, err))
			continue
		}
		tables = append(tables, t)
	}
	c.tables.Put(tables...)
	c.l.Info("coefficient tables seeded", applogger.Int("tables", len(tables)), applogger.Int("errors", len(errs)))
	return errors.Join(errs...)
}

// Rebuild reads the distribution of symbol and replaces its table. A seeded
// distribution is used when the source has no data for the symbol.
func (c *CalibrationUseCase) Rebuild(ctx context.Context, symbol string) (models.BandCoefficientTable, error) {
	d, err := c.distribution(ctx, symbol)
	if err != nil {
		c.metrics.RecordTableRebuild(symbol, err)
		return models.BandCoefficientTable{}, err
	}
	return c.RebuildFromDistribution(d)
}

// RebuildFromDistribution builds a table from d and installs it. The
// previous table stays in place when building fails.
func (c *CalibrationUseCase) RebuildFromDistribution(d models.HistoricalBandDistribution) (models.BandCoefficientTable, error) {
	builtAt := c.now().UTC()
	t, err := risk.BuildCoefficientTable(d, c.params, c.versionAt(builtAt), builtAt)
	c.metrics.RecordTableRebuild(d.Symbol, err)
	if err != nil {
		c.l.Warn("coefficient table rebuild failed", applogger.String("symbol", d.Symbol), applogger.Error(err))
		return models.BandCoefficientTable{}, err
	}
	c.tables.Put(t)
	c.l.Info("coefficient table rebuilt",
		applogger.String("symbol", t.Symbol),
		applogger.String("version", t.Version),
		applogger.Int("total_days", d.TotalDays),
	)
	return t, nil
}

// RebuildAll rebuilds every symbol and installs the successful tables in a
// single swap, so readers see either none or all of them.
func (c *CalibrationUseCase) RebuildAll(ctx context.Context, symbols []string) error {
	builtAt := c.now().UTC()
	version := c.versionAt(builtAt)
	tables := make([]models.BandCoefficientTable, 0, len(symbols))
	var errs []error
	for _, sym := range dedupe(symbols) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		d, err := c.distribution(ctx, sym)
		if err == nil {
			var t models.BandCoefficientTable
			if t, err = risk.BuildCoefficientTable(d, c.params, version, builtAt); err == nil {
				tables = append(tables, t)
			}
		}
		c.metrics.RecordTableRebuild(sym, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("rebuild %s: %w", sym, err))
		}
	}
	c.tables.Put(tables...)
	c.l.Info("coefficient tables rebuilt", applogger.Int("tables", len(tables)), applogger.Int("errors", len(errs)))
	return errors.Join(errs...)
}

// Table returns the current table of symbol.
func (c *CalibrationUseCase) Table(symbol string) (models.BandCoefficientTable, bool) {
	return c.tables.Get(symbol)
}

func (c *CalibrationUseCase) distribution(ctx context.Context, symbol string) (models.HistoricalBandDistribution, error) {
	if symbol == "" {
		return models.HistoricalBandDistribution{}, ErrSymbolRequired
	}
	seed, hasSeed := c.seeds[symbol]
	hasSeed = hasSeed && seed.Distribution != nil
	if c.source == nil {
		if hasSeed {
			return *seed.Distribution, nil
		}
		return models.HistoricalBandDistribution{}, fmt.Errorf("%s: %w", symbol, ErrNoDistributionSource)
	}
	d, err := c.source.Distribution(ctx, symbol)
	switch {
	case err == nil:
		return d, nil
	case errors.Is(err, domrepo.ErrNotFound) && hasSeed:
		return *seed.Distribution, nil
	default:
		return models.HistoricalBandDistribution{}, fmt.Errorf("distribution %s: %w", symbol, err)
	}
}

func (c *CalibrationUseCase) versionAt(t time.Time) string {
	return c.version + "@" + t.Format("20060102T150405Z")
}
