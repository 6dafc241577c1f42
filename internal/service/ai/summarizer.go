package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"scout/internal/retry"
	"scout/internal/urlutil"
	"scout/pkg/logger"
	"scout/pkg/sanitizer"
)

// Content shorter than this carries no signal worth a completion call.
const minSummarizableLength = 20

var (
	thinkBlockRe  = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFenceRe   = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	defaultPolicy = retry.Policy{MaxAttempts: 4, BaseDelay: time.Second}
)

// Summary is the structured result of one summarization call.
type Summary struct {
	Text         string
	QueryRelated bool
	RelatedURLs  []string
}

// Admitter gates summarization calls. *ratelimit.Limiter satisfies it.
type Admitter interface {
	Check(ctx context.Context) error
}

// SummarizerConfig tunes one Summarizer.
type SummarizerConfig struct {
	SystemPrompt   string
	MaxInputLength int
	MaxAttempts    int
	BaseDelay      time.Duration
}

// Summarizer turns scraped page text into a query-focused summary. Upstream
// overload (503) is retried with the server's suggested wait when one is
// sent; a rejected request (400) is terminal. Either way exhaustion
// degrades to an empty summary instead of failing the caller.
type Summarizer struct {
	provider Provider
	limiter  Admitter
	policy   retry.Policy
	system   string
	maxLen   int
}

func NewSummarizer(provider Provider, limiter Admitter, cfg SummarizerConfig) *Summarizer {
	policy := defaultPolicy
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		policy.BaseDelay = cfg.BaseDelay
	}
	policy.ShouldRetry = func(err error) bool {
		code, _, ok := statusOf(err)
		return ok && code == http.StatusServiceUnavailable
	}
	policy.RetryAfter = func(err error) (time.Duration, bool) {
		_, header, ok := statusOf(err)
		if !ok {
			return 0, false
		}
		return retryAfterHint(header)
	}

	return &Summarizer{
		provider: provider,
		limiter:  limiter,
		policy:   policy,
		system:   cfg.SystemPrompt,
		maxLen:   cfg.MaxInputLength,
	}
}

// Summarize runs one completion for the page content. A rate limit
// rejection is returned to the caller; provider failures degrade to an
// empty Summary with a nil error so a scrape batch keeps its page text.
func (s *Summarizer) Summarize(ctx context.Context, query, content string) (Summary, error) {
	content = strings.TrimSpace(content)
	if len([]rune(content)) < minSummarizableLength {
		return Summary{}, nil
	}
	content = truncateRunes(content, s.maxLen)

	if s.limiter != nil {
		if err := s.limiter.Check(ctx); err != nil {
			return Summary{}, err
		}
	}

	prompt := fmt.Sprintf("Query: %s\n\nContent:\n%s", query, content)
	raw, err := retry.DoValue(ctx, s.policy, func() (string, error) {
		return s.provider.Complete(ctx, s.system, prompt)
	})
	if err != nil {
		if ctx.Err() != nil {
			return Summary{}, ctx.Err()
		}
		logger.Warn("summarization failed, returning empty summary",
			"provider", s.provider.Name(), "error", err)
		return Summary{}, nil
	}

	return parseSummary(raw), nil
}

// parseSummary decodes the model response. Reasoning traces and markdown
// fences are stripped first; when the remainder is not the expected JSON
// object the whole text is used as the summary.
func parseSummary(raw string) Summary {
	cleaned := strings.TrimSpace(thinkBlockRe.ReplaceAllString(raw, ""))
	if m := codeFenceRe.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	}

	var payload struct {
		Summary        string   `json:"summary"`
		IsQueryRelated bool     `json:"isQueryRelated"`
		RelatedURLs    []string `json:"relatedURLs"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return Summary{Text: sanitizer.SanitizeText(cleaned)}
	}

	related := make([]string, 0, len(payload.RelatedURLs))
	for _, u := range payload.RelatedURLs {
		if urlutil.IsValid(u) {
			related = append(related, u)
		}
	}
	return Summary{
		Text:         sanitizer.SanitizeText(payload.Summary),
		QueryRelated: payload.IsQueryRelated,
		RelatedURLs:  related,
	}
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
