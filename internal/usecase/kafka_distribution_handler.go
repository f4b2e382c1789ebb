package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	pkgkafka "FinRisk/pkg/kafka"
)

// KafkaDistributionHandler rebuilds a symbol's coefficient table whenever its
// time-in-band statistics change.
type KafkaDistributionHandler struct {
	topic   string
	calib   *CalibrationUseCase
	metrics domrepo.Metrics
}

func NewKafkaDistributionHandler(topic string, calib *CalibrationUseCase, metrics domrepo.Metrics) *KafkaDistributionHandler {
	return &KafkaDistributionHandler{topic: topic, calib: calib, metrics: metrics}
}

func (h *KafkaDistributionHandler) Topic() string { return h.topic }

// Handle accepts a DistributionUpdatedEvent. Events carrying day counts are
// applied directly; bare events trigger a re-read from the distribution source.
func (h *KafkaDistributionHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.DistributionUpdatedEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode distribution event: %w", err)
	}
	if ev.Symbol == "" {
		h.metrics.RecordError("consumer_validation")
		return fmt.Errorf("distribution event %s: %w", ev.EventID, ErrSymbolRequired)
	}

	if len(ev.DaysSpent) == 0 {
		_, err := h.calib.Rebuild(ctx, ev.Symbol)
		return err
	}
	if len(ev.DaysSpent) != models.BandCount {
		h.metrics.RecordError("consumer_validation")
		return fmt.Errorf("distribution event %s: expected %d bands, got %d", ev.EventID, models.BandCount, len(ev.DaysSpent))
	}
	d := models.HistoricalBandDistribution{Symbol: ev.Symbol, TotalDays: ev.TotalDays}
	copy(d.DaysSpent[:], ev.DaysSpent)
	_, err := h.calib.RebuildFromDistribution(d)
	return err
}

var _ pkgkafka.MessageHandler = (*KafkaDistributionHandler)(nil)
