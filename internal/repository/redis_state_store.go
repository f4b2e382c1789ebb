package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
)

var _ domrepo.StateStore = (*RedisStateStore)(nil)

const (
	fieldCurrentBand  = "current_band"
	fieldPreviousBand = "previous_band"
	fieldChangeDate   = "last_band_change_date"
	fieldObservedDate = "last_observed_date"
)

// RedisStateStore keeps one hash per symbol holding its band history.
type RedisStateStore struct {
	cli    redis.UniversalClient
	prefix string
	expiry time.Duration
}

// NewRedisStateStore stores states under prefix+symbol. A positive expiry
// lets idle symbols age out.
func NewRedisStateStore(cli redis.UniversalClient, prefix string, expiry time.Duration) *RedisStateStore {
	return &RedisStateStore{cli: cli, prefix: prefix, expiry: expiry}
}

func (s *RedisStateStore) key(symbol string) string { return s.prefix + symbol }

// LoadState returns the zero state when nothing is stored.
func (s *RedisStateStore) LoadState(ctx context.Context, symbol string) (models.CoefficientState, error) {
	h, err := s.cli.HGetAll(ctx, s.key(symbol)).Result()
	if err != nil {
		return models.CoefficientState{}, fmt.Errorf("load state %q: %w", symbol, err)
	}
	st, err := decodeState(h)
	if err != nil {
		return models.CoefficientState{}, fmt.Errorf("decode state %q: %w", symbol, err)
	}
	return st, nil
}

func (s *RedisStateStore) SaveState(ctx context.Context, symbol string, st models.CoefficientState) error {
	key := s.key(symbol)
	_, err := s.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		if fields := encodeState(st); len(fields) > 0 {
			p.HSet(ctx, key, fields)
		}
		if s.expiry > 0 {
			p.Expire(ctx, key, s.expiry)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save state %q: %w", symbol, err)
	}
	return nil
}

func (s *RedisStateStore) DeleteState(ctx context.Context, symbol string) error {
	if err := s.cli.Del(ctx, s.key(symbol)).Err(); err != nil {
		return fmt.Errorf("delete state %q: %w", symbol, err)
	}
	return nil
}

func encodeState(st models.CoefficientState) map[string]any {
	out := make(map[string]any, 4)
	if st.CurrentBand != nil {
		out[fieldCurrentBand] = strconv.Itoa(*st.CurrentBand)
	}
	if st.PreviousBand != nil {
		out[fieldPreviousBand] = strconv.Itoa(*st.PreviousBand)
	}
	if st.LastBandChangeDate != nil {
		out[fieldChangeDate] = st.LastBandChangeDate.UTC().Format(time.RFC3339)
	}
	if st.LastObservedDate != nil {
		out[fieldObservedDate] = st.LastObservedDate.UTC().Format(time.RFC3339)
	}
	return out
}

func decodeState(h map[string]string) (models.CoefficientState, error) {
	var st models.CoefficientState
	var err error
	if st.CurrentBand, err = parseIntField(h, fieldCurrentBand); err != nil {
		return st, err
	}
	if st.PreviousBand, err = parseIntField(h, fieldPreviousBand); err != nil {
		return st, err
	}
	if st.LastBandChangeDate, err = parseTimeField(h, fieldChangeDate); err != nil {
		return st, err
	}
	if st.LastObservedDate, err = parseTimeField(h, fieldObservedDate); err != nil {
		return st, err
	}
	return st, nil
}

func parseIntField(h map[string]string, key string) (*int, error) {
	v, ok := h[key]
	if !ok || v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &n, nil
}

func parseTimeField(h map[string]string, key string) (*time.Time, error) {
	v, ok := h[key]
	if !ok || v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &t, nil
}
