package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
)

var _ domrepo.BoundsStore = (*PGBoundsStore)(nil)

// pgxConn is the subset of *pgxpool.Pool used by PGBoundsStore.
type pgxConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PGBoundsStore keeps calibrated bounds in the symbol_bounds table.
type PGBoundsStore struct {
	db pgxConn
}

func NewPGBoundsStore(db pgxConn) *PGBoundsStore {
	return &PGBoundsStore{db: db}
}

func (s *PGBoundsStore) GetBounds(ctx context.Context, symbol string) (models.SymbolBounds, error) {
	row := s.db.QueryRow(ctx, `
		select symbol, min_price, max_price, epoch
		from symbol_bounds
		where symbol = $1
	`, symbol)

	var b models.SymbolBounds
	if err := row.Scan(&b.Symbol, &b.MinPrice, &b.MaxPrice, &b.Epoch); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SymbolBounds{}, fmt.Errorf("bounds %q: %w", symbol, domrepo.ErrNotFound)
		}
		return models.SymbolBounds{}, fmt.Errorf("select bounds: %w", err)
	}
	return b, nil
}

func (s *PGBoundsStore) UpsertBounds(ctx context.Context, b models.SymbolBounds) error {
	_, err := s.db.Exec(ctx, `
		insert into symbol_bounds (symbol, min_price, max_price, epoch, updated_at)
		values ($1, $2, $3, $4, now())
		on conflict (symbol) do update set
			min_price = excluded.min_price,
			max_price = excluded.max_price,
			epoch = excluded.epoch,
			updated_at = now()
	`, b.Symbol, b.MinPrice, b.MaxPrice, b.Epoch)
	if err != nil {
		return fmt.Errorf("upsert bounds: %w", err)
	}
	return nil
}
