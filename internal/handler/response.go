package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"scout/internal/ratelimit"
	"scout/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeServiceError maps service-layer errors onto HTTP statuses. The
// services themselves carry no HTTP vocabulary; this is the only place
// where their sentinel errors become status codes.
func writeServiceError(c echo.Context, err error) error {
	var statusErr *service.StatusError
	switch {
	case errors.Is(err, ratelimit.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
	case errors.Is(err, service.ErrInvalid):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	case errors.Is(err, service.ErrBlocked):
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "upstream blocked the request"})
	case errors.Is(err, service.ErrUpstream), errors.As(err, &statusErr):
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "upstream request failed"})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
