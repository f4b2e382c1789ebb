package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	applogger "FinRisk/pkg/logger"
)

var (
	_ domrepo.DistributionSource = (*CHBandStore)(nil)
	_ domrepo.PriceSource        = (*CHBandStore)(nil)
)

// CHBandStore reads daily band observations and latest prices from ClickHouse.
//
// The distribution table holds one row per symbol and day with the band the
// day closed in; rows with a band outside 0..9 count toward the total only.
type CHBandStore struct {
	db         *sql.DB
	distTable  string
	priceTable string
	l          *applogger.Logger
}

func NewCHBandStore(db *sql.DB, distTable, priceTable string) *CHBandStore {
	return &CHBandStore{db: db, distTable: distTable, priceTable: priceTable, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHBandStore) SetLogger(l *applogger.Logger) { s.l = l }

// BandStoreSchema returns the DDL for the tables read by CHBandStore.
func BandStoreSchema(database, distTable, priceTable string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			symbol LowCardinality(String),
			day Date,
			band Int16
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, day)`, database, distTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			symbol LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			price Float64
		) ENGINE = ReplacingMergeTree(ts) ORDER BY symbol`, database, priceTable),
	}
}

func (s *CHBandStore) Distribution(ctx context.Context, symbol string) (models.HistoricalBandDistribution, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT band, count() AS days
        FROM %s FINAL
        WHERE symbol = ?
        GROUP BY band
        ORDER BY band
    `, s.distTable)

	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		s.l.Error("clickhouse distribution query error",
			applogger.String("table", s.distTable),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return models.HistoricalBandDistribution{}, fmt.Errorf("distribution query: %w", err)
	}
	defer rows.Close()

	d := models.HistoricalBandDistribution{Symbol: symbol}
	for rows.Next() {
		var (
			band int16
			days uint64
		)
		if err := rows.Scan(&band, &days); err != nil {
			return models.HistoricalBandDistribution{}, fmt.Errorf("scan distribution: %w", err)
		}
		d.TotalDays += int(days)
		if band >= 0 && int(band) < models.BandCount {
			d.DaysSpent[band] += int(days)
		}
	}
	if err := rows.Err(); err != nil {
		return models.HistoricalBandDistribution{}, fmt.Errorf("rows: %w", err)
	}
	if d.TotalDays == 0 {
		return models.HistoricalBandDistribution{}, fmt.Errorf("distribution %q: %w", symbol, domrepo.ErrNotFound)
	}

	s.l.Debug("clickhouse distribution ok",
		applogger.String("symbol", symbol),
		applogger.Int("total_days", d.TotalDays),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return d, nil
}

func (s *CHBandStore) LatestPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	q := fmt.Sprintf(`
        SELECT price, ts
        FROM %s
        WHERE symbol = ?
        ORDER BY ts DESC
        LIMIT 1
    `, s.priceTable)

	var (
		price float64
		ts    time.Time
	)
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&price, &ts)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, time.Time{}, fmt.Errorf("price %q: %w", symbol, domrepo.ErrNotFound)
	case err != nil:
		s.l.Error("clickhouse latest price query error",
			applogger.String("table", s.priceTable),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return 0, time.Time{}, fmt.Errorf("latest price: %w", err)
	}
	return price, ts, nil
}
