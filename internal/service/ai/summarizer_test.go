package ai_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/require"

	"scout/internal/ratelimit"
	"scout/internal/service/ai"
)

const pageText = "The quick brown fox jumps over the lazy dog, twice, for good measure."

type stubProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (p *stubProvider) Complete(ctx context.Context, system, content string) (string, error) {
	i := p.calls
	p.calls++
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(p.responses) {
		return p.responses[i], nil
	}
	return p.responses[len(p.responses)-1], nil
}

func (p *stubProvider) Name() string { return "stub" }

type admitAll struct{}

func (admitAll) Check(ctx context.Context) error { return nil }

type admitNone struct{}

func (admitNone) Check(ctx context.Context) error { return ratelimit.ErrRateLimited }

func openaiStatusErr(code int, header http.Header) error {
	return &openai.Error{
		StatusCode: code,
		Request: &http.Request{
			Method: http.MethodPost,
			URL:    &url.URL{Scheme: "https", Host: "upstream.test", Path: "/v1/chat/completions"},
		},
		Response: &http.Response{StatusCode: code, Header: header},
	}
}

func anthropicStatusErr(code int) error {
	return &anthropic.Error{
		StatusCode: code,
		Request: &http.Request{
			Method: http.MethodPost,
			URL:    &url.URL{Scheme: "https", Host: "upstream.test", Path: "/v1/messages"},
		},
		Response: &http.Response{StatusCode: code, Header: http.Header{}},
	}
}

func newTestSummarizer(p ai.Provider, limiter ai.Admitter, attempts int) *ai.Summarizer {
	return ai.NewSummarizer(p, limiter, ai.SummarizerConfig{
		SystemPrompt:   "summarize",
		MaxInputLength: 5000,
		MaxAttempts:    attempts,
		BaseDelay:      5 * time.Millisecond,
	})
}

func TestSummarize_ShortContentSkipsProvider(t *testing.T) {
	p := &stubProvider{responses: []string{"should not be called"}}
	s := newTestSummarizer(p, admitAll{}, 2)

	got, err := s.Summarize(context.Background(), "query", "tiny")
	require.NoError(t, err)
	require.Equal(t, ai.Summary{}, got)
	require.Zero(t, p.calls)
}

func TestSummarize_ParsesStructuredResponse(t *testing.T) {
	p := &stubProvider{responses: []string{
		`{"summary":"Foxes jump.","isQueryRelated":true,"relatedURLs":["https://example.com/foxes","not a url"]}`,
	}}
	s := newTestSummarizer(p, admitAll{}, 2)

	got, err := s.Summarize(context.Background(), "foxes", pageText)
	require.NoError(t, err)
	require.Equal(t, "Foxes jump.", got.Text)
	require.True(t, got.QueryRelated)
	require.Equal(t, []string{"https://example.com/foxes"}, got.RelatedURLs)
}

func TestSummarize_StripsReasoningAndFences(t *testing.T) {
	p := &stubProvider{responses: []string{
		"<think>let me think about foxes</think>```json\n{\"summary\":\"clean\",\"isQueryRelated\":false}\n```",
	}}
	s := newTestSummarizer(p, admitAll{}, 2)

	got, err := s.Summarize(context.Background(), "foxes", pageText)
	require.NoError(t, err)
	require.Equal(t, "clean", got.Text)
	require.False(t, got.QueryRelated)
}

func TestSummarize_PlainTextFallback(t *testing.T) {
	p := &stubProvider{responses: []string{"A dog was outpaced by a fox."}}
	s := newTestSummarizer(p, admitAll{}, 2)

	got, err := s.Summarize(context.Background(), "foxes", pageText)
	require.NoError(t, err)
	require.Equal(t, "A dog was outpaced by a fox.", got.Text)
	require.False(t, got.QueryRelated)
	require.Empty(t, got.RelatedURLs)
}

func TestSummarize_RetriesOnOverload(t *testing.T) {
	p := &stubProvider{
		errs:      []error{openaiStatusErr(http.StatusServiceUnavailable, http.Header{})},
		responses: []string{"", `{"summary":"eventually","isQueryRelated":true}`},
	}
	s := newTestSummarizer(p, admitAll{}, 4)

	got, err := s.Summarize(context.Background(), "foxes", pageText)
	require.NoError(t, err)
	require.Equal(t, "eventually", got.Text)
	require.Equal(t, 2, p.calls)
}

func TestSummarize_OverloadWaitUsesServerHint(t *testing.T) {
	header := http.Header{}
	header.Set("x-ratelimit-reset-requests", "0.03")
	p := &stubProvider{
		errs:      []error{openaiStatusErr(http.StatusServiceUnavailable, header)},
		responses: []string{"", `{"summary":"hinted"}`},
	}
	s := ai.NewSummarizer(p, admitAll{}, ai.SummarizerConfig{
		MaxInputLength: 5000,
		MaxAttempts:    2,
		BaseDelay:      10 * time.Second,
	})

	start := time.Now()
	got, err := s.Summarize(context.Background(), "foxes", pageText)
	require.NoError(t, err)
	require.Equal(t, "hinted", got.Text)
	elapsed := time.Since(start)
	require.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	require.Less(t, elapsed, 5*time.Second)
}

func TestSummarize_BadRequestIsTerminalAndDegrades(t *testing.T) {
	p := &stubProvider{errs: []error{
		openaiStatusErr(http.StatusBadRequest, http.Header{}),
		openaiStatusErr(http.StatusBadRequest, http.Header{}),
	}}
	s := newTestSummarizer(p, admitAll{}, 4)

	got, err := s.Summarize(context.Background(), "foxes", pageText)
	require.NoError(t, err)
	require.Equal(t, ai.Summary{}, got)
	require.Equal(t, 1, p.calls)
}

func TestSummarize_ExhaustionDegrades(t *testing.T) {
	p := &stubProvider{errs: []error{
		anthropicStatusErr(http.StatusServiceUnavailable),
		anthropicStatusErr(http.StatusServiceUnavailable),
	}}
	s := newTestSummarizer(p, admitAll{}, 2)

	got, err := s.Summarize(context.Background(), "foxes", pageText)
	require.NoError(t, err)
	require.Equal(t, ai.Summary{}, got)
	require.Equal(t, 2, p.calls)
}

func TestSummarize_RateLimitedSurfaces(t *testing.T) {
	p := &stubProvider{responses: []string{"unused"}}
	s := newTestSummarizer(p, admitNone{}, 2)

	_, err := s.Summarize(context.Background(), "foxes", pageText)
	require.ErrorIs(t, err, ratelimit.ErrRateLimited)
	require.Zero(t, p.calls)
}
