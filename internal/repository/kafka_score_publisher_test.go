package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRisk/internal/domain/models"
)

type recordedMessage struct {
	topic string
	key   []byte
	value interface{}
}

type fakeProducer struct {
	sent   []recordedMessage
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.sent = append(f.sent, recordedMessage{topic: topic, key: key, value: value})
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaScorePublisher(t *testing.T) {
	prod := &fakeProducer{}
	p := NewKafkaScorePublisher(prod, "risk.scores")

	at := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	res := models.ScoreResult{Symbol: "BTC", RiskValue: 0.475, Band: 4, BaseScore: 52.5, Coefficient: 1.03725, FinalScore: 54.46, Signal: models.SignalNeutral, ComputedAt: at}
	require.NoError(t, p.PublishScore(context.Background(), res, "v1@20250310"))

	require.Len(t, prod.sent, 1)
	msg := prod.sent[0]
	assert.Equal(t, "risk.scores", msg.topic)
	assert.Equal(t, []byte("BTC"), msg.key)

	ev, ok := msg.value.(models.ScoreEvent)
	require.True(t, ok)
	assert.Equal(t, "BTC", ev.Symbol)
	assert.Equal(t, models.SignalNeutral, ev.Signal)
	assert.Equal(t, "v1@20250310", ev.TableVersion)
	_, err := uuid.Parse(ev.EventID)
	assert.NoError(t, err)

	require.NoError(t, p.Close())
	assert.True(t, prod.closed)
}
