package di

import (
	"FinRisk/internal/usecase"
	"FinRisk/pkg/config"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/metrics"
)

// Offline bundles the use cases backed only by the static calibration:
// no external stores, in-memory band history, no publishing.
type Offline struct {
	Scoring     *usecase.RiskScoringUseCase
	Calibration *usecase.CalibrationUseCase
}

func NewOffline(cfg *config.Config, l *applogger.Logger) (*Offline, error) {
	if l == nil {
		l = applogger.Nop()
	}
	params, err := ProvideRiskParams(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := ProvideEngine(params, cfg)
	if err != nil {
		return nil, err
	}
	m := metrics.Nop{}
	tables := ProvideTableStore()
	calib, err := ProvideCalibration(params, tables, ProvideDistributionSource(nil, cfg, l), m, l, cfg)
	if err != nil {
		return nil, err
	}
	resolver, err := ProvideBoundsResolver(cfg, nil, l)
	if err != nil {
		return nil, err
	}
	states := ProvideStateStore(nil, cfg)
	return &Offline{
		Scoring:     ProvideRiskScoring(engine, resolver, tables, states, nil, nil, m, l, cfg),
		Calibration: calib,
	}, nil
}
