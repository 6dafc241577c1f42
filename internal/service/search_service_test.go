package service_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scout/internal/ratelimit"
	"scout/internal/service"
	"scout/pkg/network"
)

type stubAdmitter struct {
	err   error
	calls int32
}

func (s *stubAdmitter) Check(ctx context.Context) error {
	atomic.AddInt32(&s.calls, 1)
	return s.err
}

type stubPacer struct {
	err   error
	calls int32
}

func (s *stubPacer) AcquireSlot(ctx context.Context) error {
	atomic.AddInt32(&s.calls, 1)
	return s.err
}

func serpPage(links ...string) string {
	page := "<html><body><div id=\"search\">"
	for _, link := range links {
		page += fmt.Sprintf(`<a href="/url?q=%s&sa=U"><h3>result</h3></a>`, link)
	}
	page += "</div></body></html>"
	return page
}

func newSearchService(t *testing.T, handler http.HandlerFunc, cfg service.SearchConfig) (*service.SearchService, *stubAdmitter, *stubPacer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL + "/search"
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = 5 * time.Millisecond
	}
	limiter := &stubAdmitter{}
	pacer := &stubPacer{}
	svc := service.NewSearchService(limiter, pacer, network.NewClientFactory(""), cfg)
	return svc, limiter, pacer
}

func TestSearch_FiltersResults(t *testing.T) {
	svc, limiter, pacer := newSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, serpPage(
			"https://example.com/article",
			"https://spam.example.net/page",
			"https://sub.spam.example.net/page",
			"https://example.org/report.pdf",
			"https://example.com/article",
		))
	}, service.SearchConfig{BlacklistedDomains: []string{"spam.example.net"}})

	got, err := svc.Search(context.Background(), "golang", 10, "", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/article"}, got.URLs)
	require.Equal(t, "none", got.EffectiveTimeframe)
	require.EqualValues(t, 1, limiter.calls)
	require.EqualValues(t, 1, pacer.calls)
}

func TestSearch_RateLimitedShortCircuits(t *testing.T) {
	limited := &stubAdmitter{err: ratelimit.ErrRateLimited}
	pacer := &stubPacer{}
	svc := service.NewSearchService(limited, pacer, network.NewClientFactory(""), service.SearchConfig{BaseURL: "http://127.0.0.1:9"})

	_, err := svc.Search(context.Background(), "golang", 10, "", nil)
	require.ErrorIs(t, err, ratelimit.ErrRateLimited)
	require.Zero(t, atomic.LoadInt32(&pacer.calls), "pacing slot is not claimed for rejected calls")
}

func TestSearch_RetriesOnTooManyRequests(t *testing.T) {
	requests := int32(0)
	svc, _, _ := newSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, serpPage("https://example.com/a", "https://example.com/b"))
	}, service.SearchConfig{})

	got, err := svc.Search(context.Background(), "golang", 10, "", nil)
	require.NoError(t, err)
	require.Len(t, got.URLs, 2)
	require.EqualValues(t, 2, atomic.LoadInt32(&requests))
}

func TestSearch_RetryExhaustionIsHardError(t *testing.T) {
	requests := int32(0)
	svc, _, _ := newSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, service.SearchConfig{MaxAttempts: 3})

	_, err := svc.Search(context.Background(), "golang", 10, "", nil)
	require.Error(t, err)
	require.True(t, service.IsStatus(err, http.StatusTooManyRequests))
	require.EqualValues(t, 3, atomic.LoadInt32(&requests))
}

func TestSearch_ServerErrorIsTerminal(t *testing.T) {
	requests := int32(0)
	svc, _, _ := newSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, service.SearchConfig{})

	_, err := svc.Search(context.Background(), "golang", 10, "", nil)
	require.Error(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&requests))
}

func TestSearch_WeekTimeframeWidensUntilSufficient(t *testing.T) {
	requests := int32(0)
	svc, _, _ := newSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&requests, 1) {
		case 1:
			// week: too few usable results
			fmt.Fprint(w, serpPage("https://example.com/only"))
		default:
			fmt.Fprint(w, serpPage(
				"https://example.com/a",
				"https://example.com/b",
				"https://example.com/c",
				"https://example.com/d",
			))
		}
	}, service.SearchConfig{})

	got, err := svc.Search(context.Background(), "golang", 10, "week", nil)
	require.NoError(t, err)
	require.Equal(t, "year", got.EffectiveTimeframe)
	require.Len(t, got.URLs, 4)
	require.EqualValues(t, 2, atomic.LoadInt32(&requests))
}

func TestSearch_WeekTimeframeFallsAllTheWayBack(t *testing.T) {
	requests := int32(0)
	var queries []string
	svc, _, _ := newSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		queries = append(queries, r.URL.Query().Get("q"))
		fmt.Fprint(w, serpPage("https://example.com/only"))
	}, service.SearchConfig{})

	got, err := svc.Search(context.Background(), "golang", 10, "week", nil)
	require.NoError(t, err)
	require.Equal(t, "none", got.EffectiveTimeframe)
	require.Equal(t, []string{"https://example.com/only"}, got.URLs)
	require.EqualValues(t, 3, atomic.LoadInt32(&requests))

	require.Contains(t, queries[0], "after:")
	require.Contains(t, queries[1], "after:")
	require.NotContains(t, queries[2], "after:")
}

func TestSearch_SiteFiltersAndTimeframeInQuery(t *testing.T) {
	var gotQuery string
	svc, _, _ := newSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, serpPage("https://example.com/a"))
	}, service.SearchConfig{})

	got, err := svc.Search(context.Background(), "golang", 10, "month", []string{"example.com", "example.org"})
	require.NoError(t, err)
	require.Equal(t, "month", got.EffectiveTimeframe)
	require.Contains(t, gotQuery, "site:example.com OR site:example.org")
	require.Contains(t, gotQuery, "after:")
}

func TestSearch_InvalidTimeframeIgnored(t *testing.T) {
	var gotQuery string
	svc, _, _ := newSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, serpPage("https://example.com/a"))
	}, service.SearchConfig{})

	got, err := svc.Search(context.Background(), "golang", 10, "fortnight", nil)
	require.NoError(t, err)
	require.Equal(t, "none", got.EffectiveTimeframe)
	require.NotContains(t, gotQuery, "after:")
}
