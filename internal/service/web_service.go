package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/Noooste/azuretls-client"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"scout/internal/config"
	"scout/internal/model"
	"scout/internal/ratelimit"
	"scout/internal/service/ai"
	"scout/internal/urlutil"
	"scout/pkg/logger"
	"scout/pkg/network"
	"scout/pkg/sanitizer"
)

// ScrapeCache is the optional cache-aside store for scrape records.
// *ratelimit.ReconnectingClient satisfies it.
type ScrapeCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Summarizer enriches page text. *ai.Summarizer satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, query, content string) (ai.Summary, error)
}

// WebConfig tunes one WebService.
type WebConfig struct {
	Concurrency   int
	URLTimeout    time.Duration
	BatchTimeout  time.Duration
	CacheTTL      time.Duration
	FetchAttempts int
	RetryDelay    time.Duration
	JitterMin     time.Duration
	JitterMax     time.Duration
}

func (c WebConfig) withDefaults() WebConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.URLTimeout <= 0 {
		c.URLTimeout = 10 * time.Second
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 45 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Minute
	}
	if c.FetchAttempts <= 0 {
		c.FetchAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	return c
}

// antiBotMarkers are phrases that identify block pages served with a 200.
var antiBotMarkers = []string{"access denied", "captcha", "bot check"}

// WebService scrapes batches of pages and enriches them with summaries.
// One admission covers a whole batch; page fetches run concurrently with
// per-URL and per-batch deadlines so a hung upstream cannot stall the
// request.
type WebService struct {
	limiter    Admitter
	factory    *network.ClientFactory
	cache      ScrapeCache
	summarizer Summarizer
	cfg        WebConfig
}

func NewWebService(limiter Admitter, factory *network.ClientFactory, cache ScrapeCache, summarizer Summarizer, cfg WebConfig) *WebService {
	return &WebService{
		limiter:    limiter,
		factory:    factory,
		cache:      cache,
		summarizer: summarizer,
		cfg:        cfg.withDefaults(),
	}
}

// ScrapeURLs fetches every valid URL in the batch and returns one record
// per page. Unreadable pages are dropped; every other failure is
// recorded in the page's Error field instead of failing the batch.
func (s *WebService) ScrapeURLs(ctx context.Context, urls []string, query string) ([]model.ScrapeResult, error) {
	if err := s.limiter.Check(ctx); err != nil {
		return nil, err
	}

	valid := make([]string, 0, len(urls))
	for _, u := range urls {
		if urlutil.IsValid(u) {
			valid = append(valid, u)
		} else {
			logger.Debug("skipping invalid scrape url", "url", u)
		}
	}

	batchCtx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
	defer cancel()

	records := make([]*model.ScrapeResult, len(valid))
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for i, u := range valid {
		g.Go(func() error {
			records[i] = s.scrapeOne(batchCtx, u, query)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]model.ScrapeResult, 0, len(records))
	for _, r := range records {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, nil
}

// scrapeCacheKey derives the cache key for a page. Fragments and
// surrounding whitespace never produce distinct entries.
func scrapeCacheKey(pageURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(urlutil.StripFragment(pageURL))))
	return "scrape:" + hex.EncodeToString(sum[:])
}

// scrapeOne produces the record for a single URL, or nil when the page
// content is unreadable. The per-URL deadline is enforced here even if
// the underlying fetch does not come back.
func (s *WebService) scrapeOne(ctx context.Context, pageURL, query string) *model.ScrapeResult {
	cacheKey := scrapeCacheKey(pageURL)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			var record model.ScrapeResult
			if jsonErr := json.Unmarshal([]byte(cached), &record); jsonErr == nil {
				logger.Debug("scrape cache hit", "url", pageURL)
				return &record
			}
		case !errors.Is(err, ratelimit.ErrCacheMiss):
			logger.Warn("scrape cache read failed", "url", pageURL, "error", err)
		}
	}

	urlCtx, cancel := context.WithTimeout(ctx, s.cfg.URLTimeout)
	defer cancel()

	done := make(chan *model.ScrapeResult, 1)
	go func() {
		done <- s.fetchAndExtract(urlCtx, pageURL, query)
	}()

	var record *model.ScrapeResult
	select {
	case record = <-done:
	case <-urlCtx.Done():
		record = &model.ScrapeResult{URL: pageURL, Error: "scrape timed out"}
	}

	// Failed and timed-out records are not cached, so the next batch
	// retries them.
	if record != nil && record.Error == "" && s.cache != nil {
		if encoded, err := json.Marshal(record); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(encoded), s.cfg.CacheTTL); err != nil {
				logger.Warn("scrape cache write failed", "url", pageURL, "error", err)
			}
		}
	}
	return record
}

func (s *WebService) fetchAndExtract(ctx context.Context, pageURL, query string) *model.ScrapeResult {
	record := &model.ScrapeResult{URL: pageURL}

	// Jitter before hitting the page, so batch fetches do not land in
	// lockstep.
	if s.cfg.JitterMax > s.cfg.JitterMin {
		jitter := s.cfg.JitterMin + time.Duration(rand.Int63n(int64(s.cfg.JitterMax-s.cfg.JitterMin)))
		timer := time.NewTimer(jitter)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			record.Error = "scrape timed out"
			return record
		}
	}

	body, status, err := s.fetchWithFreshSessions(ctx, pageURL)
	record.Status = status
	if err != nil {
		record.Error = err.Error()
		return record
	}
	if status != http.StatusOK {
		record.Error = fmt.Sprintf("non-200 status code: %d", status)
		return record
	}
	if len(bytes.TrimSpace(body)) == 0 {
		record.Error = "empty response body"
		return record
	}

	page := extractPage(body, pageURL)
	record.Title = page.title
	record.MetaDescription = page.metaDescription

	if isAntiBotPage(body) && len(page.title) < 5 {
		record.Error = "anti-bot protection triggered"
		return record
	}

	if page.text != "" {
		if !isReadableText(page.text) {
			logger.Warn("scraped content unreadable, dropping", "url", pageURL)
			return nil
		}
		record.TextPreview = truncatePreview(page.text, 200)
		record.FullText = page.text

		if s.summarizer != nil {
			summary, err := s.summarizer.Summarize(ctx, query, page.text)
			if err != nil {
				record.Error = err.Error()
			} else {
				record.Summary = summary.Text
				record.IsQueryRelated = summary.QueryRelated
				record.RelatedURLs = summary.RelatedURLs
			}
		}
	}
	return record
}

// fetchWithFreshSessions fetches the page, opening a brand new session
// (and with it a new TLS fingerprint identity) for every attempt.
// Transport failures get up to FetchAttempts tries with a short fixed
// delay between them.
func (s *WebService) fetchWithFreshSessions(ctx context.Context, pageURL string) ([]byte, int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.FetchAttempts; attempt++ {
		body, status, err := s.fetchOnce(ctx, pageURL)
		if err == nil {
			return body, status, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, 0, lastErr
		}
		if attempt < s.cfg.FetchAttempts {
			logger.Debug("scrape fetch failed, retrying with fresh session",
				"url", pageURL, "attempt", attempt, "error", err)
			timer := time.NewTimer(s.cfg.RetryDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, 0, lastErr
			}
		}
	}
	return nil, 0, lastErr
}

func (s *WebService) fetchOnce(ctx context.Context, pageURL string) ([]byte, int, error) {
	session := s.factory.NewAzureSession(ctx, s.cfg.URLTimeout)
	defer session.Close()

	resp, err := session.Do(&azuretls.Request{
		Method: http.MethodGet,
		Url:    pageURL,
		OrderedHeaders: azuretls.OrderedHeaders{
			{"accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			{"accept-language", "en-US,en;q=0.9"},
			{"referer", "https://www.google.com/"},
			{"sec-ch-ua", config.ChromeSecChUa},
			{"sec-ch-ua-mobile", "?0"},
			{"sec-ch-ua-platform", `"Windows"`},
			{"user-agent", config.ChromeUserAgent},
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	return resp.Body, resp.StatusCode, nil
}

type pageContent struct {
	title           string
	metaDescription string
	text            string
}

// extractPage pulls the title, meta description and readable text out of
// the page. Article extraction is attempted first; pages readability
// cannot parse fall back to whole-document text.
func extractPage(body []byte, pageURL string) pageContent {
	var page pageContent

	doc, err := html.Parse(bytes.NewReader(body))
	if err == nil {
		walkTree(doc, func(n *html.Node) {
			switch n.Data {
			case "title":
				if page.title == "" && n.FirstChild != nil {
					page.title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				var name, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "name":
						name = attr.Val
					case "content":
						content = attr.Val
					}
				}
				if strings.EqualFold(name, "description") {
					page.metaDescription = strings.TrimSpace(content)
				}
			}
		})
	}

	page.text = articleText(body, pageURL)
	if page.text == "" {
		page.text = sanitizer.StripTags(string(body))
	}
	return page
}

func articleText(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(body), parsed)
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if err := article.RenderHTML(&buf); err != nil {
		return ""
	}
	return sanitizer.StripTags(buf.String())
}

func isAntiBotPage(body []byte) bool {
	lower := strings.ToLower(string(body))
	for _, marker := range antiBotMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// isReadableText rejects text where mojibake dominates: more than 20%
// replacement characters means the page decoded with the wrong charset.
func isReadableText(text string) bool {
	if text == "" {
		return false
	}
	runes := []rune(text)
	replacements := 0
	for _, r := range runes {
		if r == '�' {
			replacements++
		}
	}
	return float64(replacements)/float64(len(runes)) <= 0.2
}

func truncatePreview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
