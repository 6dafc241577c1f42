package http

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"scout/pkg/logger"
	"scout/pkg/snowflake"
)

// APIKeyHeader is the request header carrying the client's key.
const APIKeyHeader = "x-api-key"

// RequestIDHeader carries the generated request ID back to the client.
const RequestIDHeader = "X-Request-Id"

type errorResponse struct {
	Error string `json:"error"`
}

// APIKeyMiddleware rejects requests whose x-api-key header matches
// neither configured key. The secondary key exists for rotation. With
// no keys configured the gateway runs open, which is only sensible in
// local development.
func APIKeyMiddleware(primary, secondary string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if primary == "" && secondary == "" {
				return next(c)
			}
			presented := c.Request().Header.Get(APIKeyHeader)
			if keyMatches(presented, primary) || keyMatches(presented, secondary) {
				return next(c)
			}
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid api key"})
		}
	}
}

func keyMatches(presented, configured string) bool {
	if configured == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

// RequestIDMiddleware tags every request with a snowflake ID, exposed
// in the response headers and available to handlers via the context.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := strconv.FormatInt(snowflake.NextID(), 10)
			c.Set("request_id", id)
			c.Response().Header().Set(RequestIDHeader, id)
			return next(c)
		}
	}
}

// RequestLoggerMiddleware logs one line per request, levelled by the
// response status.
func RequestLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Get("request_id"),
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("request failed", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("request rejected", fields...)
			default:
				logger.Info("request served", fields...)
			}
			return nil
		}
	}
}
