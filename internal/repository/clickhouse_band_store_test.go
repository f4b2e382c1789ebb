package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domrepo "FinRisk/internal/domain/repository"
)

func TestCHBandStore_Distribution(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"band", "days"}).
		AddRow(int64(-1), uint64(12)).
		AddRow(int64(0), uint64(30)).
		AddRow(int64(4), uint64(200)).
		AddRow(int64(9), uint64(5))
	mock.ExpectQuery(regexp.QuoteMeta("FROM band_days FINAL")).WithArgs("BTC").WillReturnRows(rows)

	s := NewCHBandStore(db, "band_days", "prices_latest")
	d, err := s.Distribution(context.Background(), "BTC")
	require.NoError(t, err)

	assert.Equal(t, "BTC", d.Symbol)
	assert.Equal(t, 30, d.DaysSpent[0])
	assert.Equal(t, 200, d.DaysSpent[4])
	assert.Equal(t, 5, d.DaysSpent[9])
	assert.Equal(t, 247, d.TotalDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHBandStore_DistributionEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT band").WithArgs("DOGE").WillReturnRows(sqlmock.NewRows([]string{"band", "days"}))

	_, err = NewCHBandStore(db, "band_days", "prices_latest").Distribution(context.Background(), "DOGE")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestCHBandStore_DistributionQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT band").WillReturnError(errors.New("timeout"))

	_, err = NewCHBandStore(db, "band_days", "prices_latest").Distribution(context.Background(), "BTC")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domrepo.ErrNotFound)
}

func TestCHBandStore_LatestPrice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM prices_latest")).WithArgs("BTC").
		WillReturnRows(sqlmock.NewRows([]string{"price", "ts"}).AddRow(95509.0, ts))
	mock.ExpectQuery(regexp.QuoteMeta("FROM prices_latest")).WithArgs("DOGE").
		WillReturnRows(sqlmock.NewRows([]string{"price", "ts"}))

	s := NewCHBandStore(db, "band_days", "prices_latest")
	price, at, err := s.LatestPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 95509.0, price)
	assert.Equal(t, ts, at)

	_, _, err = s.LatestPrice(context.Background(), "DOGE")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestBandStoreSchema(t *testing.T) {
	stmts := BandStoreSchema("finrisk", "band_days", "prices_latest")
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[1], "finrisk.band_days")
	assert.Contains(t, stmts[2], "finrisk.prices_latest")
}
