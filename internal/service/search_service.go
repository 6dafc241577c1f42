package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Noooste/azuretls-client"
	"golang.org/x/net/html"

	"scout/internal/config"
	"scout/internal/retry"
	"scout/internal/urlutil"
	"scout/pkg/logger"
	"scout/pkg/network"
)

const searchTimeout = 20 * time.Second

// Admitter gates one operation class. *ratelimit.Limiter satisfies it.
type Admitter interface {
	Check(ctx context.Context) error
}

// Pacer spaces successive upstream calls. *ratelimit.PacingGate
// satisfies it.
type Pacer interface {
	AcquireSlot(ctx context.Context) error
}

// SearchConfig tunes one SearchService.
type SearchConfig struct {
	// BaseURL of the results page, overridable in tests.
	BaseURL            string
	BlacklistedDomains []string
	MaxAttempts        int
	BaseDelay          time.Duration
}

// SearchResult carries the filtered result URLs and the timeframe that
// actually produced them.
type SearchResult struct {
	URLs               []string `json:"results"`
	EffectiveTimeframe string   `json:"effectiveTimeframe"`
}

// SearchService scrapes search-engine result pages. Calls are admitted
// by the search limiter, spaced by the pacing gate, and the page fetch
// retries only on upstream 429.
type SearchService struct {
	limiter   Admitter
	pacer     Pacer
	factory   *network.ClientFactory
	baseURL   string
	blacklist []string
	policy    retry.Policy
	now       func() time.Time
}

func NewSearchService(limiter Admitter, pacer Pacer, factory *network.ClientFactory, cfg SearchConfig) *SearchService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.google.com/search"
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}

	return &SearchService{
		limiter:   limiter,
		pacer:     pacer,
		factory:   factory,
		baseURL:   baseURL,
		blacklist: cfg.BlacklistedDomains,
		policy: retry.Policy{
			MaxAttempts: attempts,
			BaseDelay:   delay,
			ShouldRetry: func(err error) bool { return IsStatus(err, http.StatusTooManyRequests) },
		},
		now: time.Now,
	}
}

// Search returns result URLs for the query. A "week" timeframe that
// yields fewer than three usable results widens to "year" and then to no
// timeframe at all, and the response reports which one was used.
func (s *SearchService) Search(ctx context.Context, query string, maxResults int, timeframe string, sites []string) (SearchResult, error) {
	if err := s.limiter.Check(ctx); err != nil {
		return SearchResult{}, err
	}
	if err := s.pacer.AcquireSlot(ctx); err != nil {
		return SearchResult{}, err
	}

	query = withSiteFilters(query, sites)
	timeframe = strings.ToLower(strings.TrimSpace(timeframe))

	if timeframe == "week" {
		return s.searchWithFallback(ctx, query, maxResults)
	}

	effective := "none"
	searchQuery := query
	if timeframe != "" {
		if dated := s.applyTimeframe(query, timeframe); dated != query {
			searchQuery = dated
			effective = timeframe
		} else {
			logger.Warn("ignoring invalid timeframe", "timeframe", timeframe)
		}
	}

	urls, err := s.fetchResults(ctx, searchQuery, maxResults)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{URLs: s.filterResults(urls), EffectiveTimeframe: effective}, nil
}

// searchWithFallback widens the timeframe until enough usable results
// come back: week, then year, then unrestricted.
func (s *SearchService) searchWithFallback(ctx context.Context, query string, maxResults int) (SearchResult, error) {
	const sufficientResults = 3

	var filtered []string
	effective := "none"
	for _, tf := range []string{"week", "year", ""} {
		searchQuery := query
		if tf != "" {
			searchQuery = s.applyTimeframe(query, tf)
		}

		urls, err := s.fetchResults(ctx, searchQuery, maxResults)
		if err != nil {
			if ctx.Err() != nil {
				return SearchResult{}, ctx.Err()
			}
			logger.Warn("search attempt failed, widening timeframe", "timeframe", tf, "error", err)
			urls = nil
		}

		filtered = s.filterResults(urls)
		if len(filtered) >= sufficientResults {
			if tf != "" {
				effective = tf
			}
			return SearchResult{URLs: filtered, EffectiveTimeframe: effective}, nil
		}
	}
	return SearchResult{URLs: filtered, EffectiveTimeframe: effective}, nil
}

// applyTimeframe appends an after: date filter. Unknown timeframes leave
// the query unchanged.
func (s *SearchService) applyTimeframe(query, timeframe string) string {
	var days int
	switch timeframe {
	case "24h":
		days = 1
	case "week":
		days = 7
	case "month":
		days = 30
	case "year":
		days = 365
	default:
		return query
	}
	date := s.now().AddDate(0, 0, -days)
	return fmt.Sprintf("%s after:%s", query, date.Format("2006-01-02"))
}

func withSiteFilters(query string, sites []string) string {
	cleaned := make([]string, 0, len(sites))
	for _, site := range sites {
		site = strings.TrimSpace(site)
		if site != "" {
			cleaned = append(cleaned, "site:"+site)
		}
	}
	if len(cleaned) == 0 {
		return query
	}
	return fmt.Sprintf("(%s) %s", strings.Join(cleaned, " OR "), query)
}

// fetchResults performs one retried results-page fetch and extracts the
// outbound links.
func (s *SearchService) fetchResults(ctx context.Context, query string, maxResults int) ([]string, error) {
	endpoint := fmt.Sprintf("%s?q=%s&num=%d&hl=en", s.baseURL, url.QueryEscape(query), maxResults)

	body, err := retry.DoValue(ctx, s.policy, func() ([]byte, error) {
		return s.fetchPage(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}

	links, err := parseResultLinks(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse results page: %v", ErrUpstream, err)
	}
	if len(links) > maxResults {
		links = links[:maxResults]
	}
	return links, nil
}

func (s *SearchService) fetchPage(ctx context.Context, endpoint string) ([]byte, error) {
	session := s.factory.NewAzureSession(ctx, searchTimeout)
	defer session.Close()

	resp, err := session.Do(&azuretls.Request{
		Method: http.MethodGet,
		Url:    endpoint,
		OrderedHeaders: azuretls.OrderedHeaders{
			{"accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			{"accept-language", "en-US,en;q=0.9"},
			{"sec-ch-ua", config.ChromeSecChUa},
			{"sec-ch-ua-mobile", "?0"},
			{"sec-ch-ua-platform", `"Windows"`},
			{"user-agent", config.ChromeUserAgent},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// parseResultLinks extracts outbound result URLs from the page. Links
// come either as /url?q= redirects or as absolute hrefs.
func parseResultLinks(body []byte) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var links []string
	walkTree(doc, func(n *html.Node) {
		if n.Data != "a" {
			return
		}
		for _, attr := range n.Attr {
			if attr.Key != "href" {
				continue
			}
			link := resultLink(attr.Val)
			if link != "" && !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		}
	})
	return links, nil
}

func resultLink(href string) string {
	if strings.HasPrefix(href, "/url?") {
		parsed, err := url.Parse(href)
		if err != nil {
			return ""
		}
		href = parsed.Query().Get("q")
	}
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return ""
	}
	host := strings.ToLower(network.ExtractHost(href))
	if host == "" || strings.Contains(host, "google.") {
		return ""
	}
	return href
}

// filterResults drops PDFs and blacklisted domains.
func (s *SearchService) filterResults(urls []string) []string {
	filtered := make([]string, 0, len(urls))
	for _, u := range urls {
		if strings.HasSuffix(strings.ToLower(u), ".pdf") {
			continue
		}
		if urlutil.IsBlacklisted(u, s.blacklist) {
			continue
		}
		filtered = append(filtered, u)
	}
	return filtered
}

// walkTree traverses all descendant element nodes and calls fn for each.
func walkTree(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkTree(c, fn)
	}
}
