package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/usecase"
	xhttp "FinRisk/pkg/http"
	xlogger "FinRisk/pkg/logger"
	"FinRisk/pkg/util"
)

// RiskEchoHandler exposes scoring, inverse pricing, band tables and
// calibration over HTTP.
type RiskEchoHandler struct {
	logger  *xlogger.Logger
	scoring *usecase.RiskScoringUseCase
	calib   *usecase.CalibrationUseCase
}

var _ xhttp.Handler = (*RiskEchoHandler)(nil)

func NewRiskEchoHandler(logger *xlogger.Logger, scoring *usecase.RiskScoringUseCase, calib *usecase.CalibrationUseCase) *RiskEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &RiskEchoHandler{logger: logger, scoring: scoring, calib: calib}
}

func (h *RiskEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/score", h.Score)
	g.POST("/score/batch", h.ScoreBatch)
	g.GET("/price", h.Price)
	g.GET("/bands/:symbol", h.Bands)
	g.POST("/calibration/:symbol", h.Rebuild)
	g.POST("/cache/invalidate", h.Invalidate)
}

type scoreDTO struct {
	Symbol       string              `json:"symbol"`
	Price        float64             `json:"price"`
	RiskValue    float64             `json:"risk_value"`
	Band         int                 `json:"band"`
	BaseScore    float64             `json:"base_score"`
	Coefficient  float64             `json:"coefficient"`
	FinalScore   float64             `json:"final_score"`
	Signal       models.Signal       `json:"signal"`
	Rule         string              `json:"rule"`
	Degraded     bool                `json:"degraded"`
	TableVersion string              `json:"table_version,omitempty"`
	Bounds       models.SymbolBounds `json:"bounds"`
	ComputedAt   time.Time           `json:"computed_at"`
}

func toScoreDTO(out usecase.ScoreOutput) scoreDTO {
	r := out.Result
	return scoreDTO{
		Symbol:       r.Symbol,
		Price:        round(out.Price, 8),
		RiskValue:    round(r.RiskValue, 6),
		Band:         r.Band,
		BaseScore:    round(r.BaseScore, 4),
		Coefficient:  round(r.Coefficient, 6),
		FinalScore:   round(r.FinalScore, 4),
		Signal:       r.Signal,
		Rule:         string(out.DBI.Rule),
		Degraded:     r.Degraded,
		TableVersion: out.TableVersion,
		Bounds:       out.Bounds,
		ComputedAt:   r.ComputedAt,
	}
}

// Score handles GET /api/score?symbol=BTC[&price=95509][&at=2024-03-01].
func (h *RiskEchoHandler) Score(c echo.Context) error {
	req := &models.ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	at, ok := parseAt(req.At)
	if !ok {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_TIME", Field: "at", Message: "at must be RFC3339, YYYY-MM-DD or unix seconds"}})
	}

	out, err := h.scoring.Score(c.Request().Context(), usecase.ScoreInput{Symbol: req.Symbol, Price: req.Price, At: at})
	if err != nil {
		h.logger.Warn("score failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, toScoreDTO(out))
}

type batchItemDTO struct {
	Symbol string          `json:"symbol"`
	Result *scoreDTO       `json:"result,omitempty"`
	Error  *xhttp.AppError `json:"error,omitempty"`
}

type batchDTO struct {
	Items     []batchItemDTO `json:"items"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}

// ScoreBatch handles POST /api/score/batch. Symbols that fail are reported
// per item; the request itself only fails on bad input.
func (h *RiskEchoHandler) ScoreBatch(c echo.Context) error {
	req := &models.BatchScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	at, ok := parseAt(req.At)
	if !ok {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_TIME", Field: "at", Message: "at must be RFC3339, YYYY-MM-DD or unix seconds"}})
	}

	items, err := h.scoring.ScoreBatch(c.Request().Context(), usecase.BatchInput{Symbols: req.Symbols, Prices: req.Prices, At: at})
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	resp := batchDTO{Items: make([]batchItemDTO, 0, len(items))}
	for _, it := range items {
		item := batchItemDTO{Symbol: it.Symbol}
		if it.Err != nil {
			item.Error = toAppError(it.Err)
			resp.Failed++
		} else {
			dto := toScoreDTO(*it.Output)
			item.Result = &dto
			resp.Succeeded++
		}
		resp.Items = append(resp.Items, item)
	}
	return xhttp.SuccessResponse(c, resp)
}

// Price handles GET /api/price?symbol=BTC&risk=0.5.
func (h *RiskEchoHandler) Price(c echo.Context) error {
	req := &models.PriceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	price, b, err := h.scoring.PriceForRisk(c.Request().Context(), req.Symbol, req.Risk)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol": req.Symbol,
		"risk":   req.Risk,
		"price":  round(price, 8),
		"bounds": b,
	})
}

type bandDTO struct {
	Band        int      `json:"band"`
	RiskLow     float64  `json:"risk_low"`
	RiskHigh    float64  `json:"risk_high"`
	PriceLow    float64  `json:"price_low"`
	PriceHigh   float64  `json:"price_high"`
	Coefficient *float64 `json:"coefficient,omitempty"`
}

// Bands handles GET /api/bands/:symbol.
func (h *RiskEchoHandler) Bands(c echo.Context) error {
	bt, err := h.scoring.Bands(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	rows := make([]bandDTO, 0, len(bt.Rows))
	for _, r := range bt.Rows {
		row := bandDTO{
			Band:      r.Band,
			RiskLow:   round(r.RiskLow, 2),
			RiskHigh:  round(r.RiskHigh, 2),
			PriceLow:  round(r.PriceLow, 8),
			PriceHigh: round(r.PriceHigh, 8),
		}
		if bt.TableVersion != "" {
			coef := round(r.Coefficient, 6)
			row.Coefficient = &coef
		}
		rows = append(rows, row)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":        bt.Bounds.Symbol,
		"bounds":        bt.Bounds,
		"table_version": bt.TableVersion,
		"bands":         rows,
	})
}

// Rebuild handles POST /api/calibration/:symbol.
func (h *RiskEchoHandler) Rebuild(c echo.Context) error {
	symbol := c.Param("symbol")
	t, err := h.calib.Rebuild(c.Request().Context(), symbol)
	if err != nil {
		h.logger.Warn("table rebuild failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	coefs := make([]float64, len(t.Coefficients))
	for i, v := range t.Coefficients {
		coefs[i] = round(v, 6)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":       t.Symbol,
		"version":      t.Version,
		"built_at":     t.BuiltAt,
		"coefficients": coefs,
	})
}

// Invalidate handles POST /api/cache/invalidate.
func (h *RiskEchoHandler) Invalidate(c echo.Context) error {
	req := &models.InvalidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	n, err := h.scoring.Invalidate(c.Request().Context(), req.Symbol, req.Scope)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":             req.Symbol,
		"scope":              req.Scope,
		"bounds_invalidated": n,
	})
}

func parseAt(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	return util.ParseTime(s)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
