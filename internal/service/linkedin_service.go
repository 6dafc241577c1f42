package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/Noooste/azuretls-client"
	"golang.org/x/net/html"

	"scout/internal/config"
	"scout/internal/model"
	"scout/internal/retry"
	"scout/pkg/logger"
	"scout/pkg/network"
)

const (
	linkedinTimeout  = 20 * time.Second
	maxCandidates    = 100
	candidateDefault = 10
)

// knownSkills is the vocabulary matched against posting titles when
// extracting skills.
var knownSkills = []string{
	"python", "java", "javascript", "typescript", "c++", "ruby", "php", "scala", "go", "rust",
	"react", "angular", "vue", "node.js", "django", "flask", "spring", "rails",
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform",
	"machine learning", "data science", "sql", "nosql", "mongodb", "postgresql", "mysql",
	"agile", "scrum", "devops", "sre",
}

// LinkedInConfig tunes one LinkedInService.
type LinkedInConfig struct {
	// BaseURL of the guest jobs search endpoint, overridable in tests.
	BaseURL     string
	Cookie      string
	MaxAttempts int
	BaseDelay   time.Duration
}

// CandidateResult is the normalized candidate search response.
type CandidateResult struct {
	Candidates []model.Candidate `json:"candidates"`
	TotalFound int               `json:"totalFound"`
	Limit      int               `json:"limit"`
}

// LinkedInService scrapes the guest jobs listing for candidate leads.
// Calls are limiter-admitted and the listing fetch is retried on 429.
type LinkedInService struct {
	limiter Admitter
	factory *network.ClientFactory
	baseURL string
	cookie  string
	policy  retry.Policy
}

func NewLinkedInService(limiter Admitter, factory *network.ClientFactory, cfg LinkedInConfig) *LinkedInService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}

	return &LinkedInService{
		limiter: limiter,
		factory: factory,
		baseURL: baseURL,
		cookie:  cfg.Cookie,
		policy: retry.Policy{
			MaxAttempts: attempts,
			BaseDelay:   delay,
			ShouldRetry: func(err error) bool { return IsStatus(err, http.StatusTooManyRequests) },
		},
	}
}

// FindCandidates searches job postings matching the criteria and maps
// each one to a candidate lead.
func (s *LinkedInService) FindCandidates(ctx context.Context, search model.CandidateSearch) (CandidateResult, error) {
	if err := s.limiter.Check(ctx); err != nil {
		return CandidateResult{}, err
	}

	if strings.TrimSpace(search.Keywords) == "" {
		return CandidateResult{}, fmt.Errorf("%w: keywords are required", ErrInvalid)
	}

	limit := search.Limit
	if limit <= 0 {
		limit = candidateDefault
	}
	if limit > maxCandidates {
		limit = maxCandidates
	}

	body, err := retry.DoValue(ctx, s.policy, func() ([]byte, error) {
		return s.fetchListing(ctx, search)
	})
	if err != nil {
		return CandidateResult{}, err
	}

	candidates, err := parseJobCards(body)
	if err != nil {
		return CandidateResult{}, fmt.Errorf("%w: parse job listing: %v", ErrUpstream, err)
	}

	total := len(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for i := range candidates {
		candidates[i].Skills = extractSkills(candidates[i].Title, search.Skills)
	}

	logger.Info("candidate search completed", "keywords", search.Keywords, "found", total, "returned", len(candidates))
	return CandidateResult{Candidates: candidates, TotalFound: total, Limit: limit}, nil
}

func (s *LinkedInService) fetchListing(ctx context.Context, search model.CandidateSearch) ([]byte, error) {
	query := url.Values{}
	keywords := search.Keywords
	if len(search.Skills) > 0 {
		primary := search.Skills
		if len(primary) > 3 {
			primary = primary[:3]
		}
		keywords = keywords + " " + strings.Join(primary, " ")
	}
	query.Set("keywords", keywords)
	if search.Location != "" {
		query.Set("location", search.Location)
	}
	// Postings from the last month only.
	query.Set("f_TPR", "r2592000")
	if level := experienceFilter(search.ExperienceYearsMin); level != "" {
		query.Set("f_E", level)
	}
	query.Set("start", "0")

	session := s.factory.NewAzureSession(ctx, linkedinTimeout)
	defer session.Close()

	headers := azuretls.OrderedHeaders{
		{"accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		{"accept-language", "en-US,en;q=0.9"},
		{"user-agent", config.ChromeUserAgent},
	}
	if s.cookie != "" {
		headers = append(headers, []string{"cookie", "li_at=" + s.cookie})
	}

	resp, err := session.Do(&azuretls.Request{
		Method:         http.MethodGet,
		Url:            s.baseURL + "?" + query.Encode(),
		OrderedHeaders: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// experienceFilter maps minimum years of experience onto the listing's
// experience level codes.
func experienceFilter(years int) string {
	switch {
	case years <= 0:
		return ""
	case years <= 1:
		return "1,2"
	case years <= 3:
		return "3"
	case years <= 5:
		return "4"
	default:
		return "5"
	}
}

// parseJobCards extracts candidates from the guest listing markup. Each
// posting is a card carrying title, company, location, link and posting
// date elements identified by their class names.
func parseJobCards(body []byte) ([]model.Candidate, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	var candidates []model.Candidate
	walkTree(doc, func(n *html.Node) {
		if n.Data != "div" || !hasClass(n, "base-card") {
			return
		}
		candidate := model.Candidate{}
		walkTree(n, func(child *html.Node) {
			switch {
			case child.Data == "h3" && hasClass(child, "base-search-card__title"):
				candidate.Title = nodeText(child)
			case child.Data == "h4" && hasClass(child, "base-search-card__subtitle"):
				candidate.Company = nodeText(child)
			case child.Data == "span" && hasClass(child, "job-search-card__location"):
				candidate.Location = nodeText(child)
			case child.Data == "a" && hasClass(child, "base-card__full-link"):
				candidate.Link = attrValue(child, "href")
			case child.Data == "time":
				candidate.PostedAt = attrValue(child, "datetime")
			}
		})
		if candidate.Title != "" {
			candidates = append(candidates, candidate)
		}
	})
	return candidates, nil
}

// extractSkills matches known and requested skill names inside the
// posting title.
func extractSkills(title string, requested []string) []string {
	vocabulary := make([]string, 0, len(knownSkills)+len(requested))
	vocabulary = append(vocabulary, knownSkills...)
	for _, skill := range requested {
		if skill = strings.TrimSpace(skill); skill != "" {
			vocabulary = append(vocabulary, skill)
		}
	}

	lower := strings.ToLower(title)
	seen := make(map[string]bool)
	skills := make([]string, 0, 4)
	for _, skill := range vocabulary {
		key := strings.ToLower(skill)
		if seen[key] {
			continue
		}
		pattern := regexp.MustCompile(`(?i)(^|[^a-z0-9])` + regexp.QuoteMeta(key) + `($|[^a-z0-9+.])`)
		if pattern.MatchString(lower) {
			seen[key] = true
			skills = append(skills, key)
		}
	}
	return skills
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
