package repository

import (
	"context"

	"github.com/google/uuid"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
)

var _ domrepo.ScorePublisher = (*KafkaScorePublisher)(nil)

// messageProducer is satisfied by *pkg/kafka.Producer.
type messageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaScorePublisher publishes score events keyed by symbol so a symbol's
// scores stay ordered within a partition.
type KafkaScorePublisher struct {
	producer messageProducer
	topic    string
	newID    func() string
}

func NewKafkaScorePublisher(producer messageProducer, topic string) *KafkaScorePublisher {
	return &KafkaScorePublisher{producer: producer, topic: topic, newID: uuid.NewString}
}

func (p *KafkaScorePublisher) PublishScore(ctx context.Context, res models.ScoreResult, tableVersion string) error {
	return p.producer.Publish(ctx, p.topic, []byte(res.Symbol), models.ScoreEvent{
		EventID:      p.newID(),
		Symbol:       res.Symbol,
		RiskValue:    res.RiskValue,
		Band:         res.Band,
		BaseScore:    res.BaseScore,
		Coefficient:  res.Coefficient,
		FinalScore:   res.FinalScore,
		Signal:       res.Signal,
		Degraded:     res.Degraded,
		TableVersion: tableVersion,
		ComputedAt:   res.ComputedAt,
	})
}

func (p *KafkaScorePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
