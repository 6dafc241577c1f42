package ai

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
)

// statusOf extracts the HTTP status and response headers from a provider
// SDK error. It reports false for transport failures that never reached
// the upstream.
func statusOf(err error) (int, http.Header, bool) {
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return oaiErr.StatusCode, responseHeader(oaiErr.Response), true
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return antErr.StatusCode, responseHeader(antErr.Response), true
	}
	return 0, nil, false
}

func responseHeader(resp *http.Response) http.Header {
	if resp == nil {
		return nil
	}
	return resp.Header
}

// retryAfterHint reads the server's suggested wait from rate limit
// headers. Reset values arrive either as a Go-style duration ("6m12s")
// or as fractional seconds.
func retryAfterHint(h http.Header) (time.Duration, bool) {
	if h == nil {
		return 0, false
	}
	for _, name := range []string{"x-ratelimit-reset-requests", "Retry-After"} {
		raw := h.Get(name)
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d, true
		}
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second)), true
		}
	}
	return 0, false
}
