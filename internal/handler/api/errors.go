package api

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker"

	"FinRisk/internal/usecase"
	xhttp "FinRisk/pkg/http"
)

// toAppError maps use case and engine errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return xhttp.ServiceUnavailableError("upstream source temporarily unavailable").WithError(err)
	}
	if errors.Is(err, usecase.ErrNoDistributionSource) {
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	}
	switch usecase.ErrorKind(err) {
	case "validation":
		return xhttp.NewAppError("ERR_VALIDATION", "", err.Error(), http.StatusBadRequest).WithError(err)
	case "not_found":
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case "no_price", "distribution":
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case "canceled":
		return xhttp.ServiceUnavailableError("request canceled").WithError(err)
	default:
		return xhttp.InternalError("score computation failed").WithError(err)
	}
}
