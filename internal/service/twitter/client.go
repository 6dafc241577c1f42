// Package twitter is a cookie-authenticated client for the x.com GraphQL
// web API, plus the timeline parsing that turns its nested payloads into
// flat tweet lists.
package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Noooste/azuretls-client"

	"scout/internal/config"
	"scout/pkg/logger"
	"scout/pkg/network"
)

const (
	apiBase        = "https://x.com/i/api/graphql"
	requestTimeout = 15 * time.Second

	// Public bearer token of the x.com web client.
	bearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"
)

// Query identifiers of the web client GraphQL operations.
const (
	opUserTweets         = "V7H0Ap3_Hh2FyS75OCDO3Q/UserTweets"
	opHomeTimeline       = "HJFjzBgCs16TqxewQOeLNg/HomeTimeline"
	opHomeLatestTimeline = "DiTkXJgLqBBxCs7zaYsbtA/HomeLatestTimeline"
	opSearchTimeline     = "nK1dw4oV3k4w5TdtcAdSww/SearchTimeline"
	opCreateTweet        = "a1p9RWpkYKBjWv_I3WzS-A/CreateTweet"
	opCreateRetweet      = "ojPdsZsimiJrUGLR1sjUtA/CreateRetweet"
	opFavoriteTweet      = "lI07N6Otwv1PhnEgXILM7A/FavoriteTweet"
)

var (
	ErrMissingCookies = errors.New("twitter: cookies with auth_token and ct0 are required")
	ErrNotLoggedIn    = errors.New("twitter: not logged in, check cookies")
)

// featureFlags is the feature set the web client sends with every query.
// The API rejects requests that omit flags it knows about.
var featureFlags = map[string]bool{
	"responsive_web_graphql_exclude_directive_enabled":                        true,
	"responsive_web_graphql_timeline_navigation_enabled":                      true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
	"responsive_web_enhance_cards_enabled":                                    false,
	"responsive_web_edit_tweet_api_enabled":                                   true,
	"responsive_web_twitter_article_tweet_consumption_enabled":                true,
	"responsive_web_media_download_video_enabled":                             false,
	"creator_subscriptions_tweet_preview_api_enabled":                         true,
	"communities_web_enable_tweet_community_results_fetch":                    true,
	"c9s_tweet_anatomy_moderator_badge_enabled":                               true,
	"tweetypie_unmention_optimization_enabled":                                true,
	"view_counts_everywhere_api_enabled":                                      true,
	"longform_notetweets_consumption_enabled":                                 true,
	"longform_notetweets_rich_text_read_enabled":                              true,
	"longform_notetweets_inline_media_enabled":                                true,
	"freedom_of_speech_not_reach_fetch_enabled":                               true,
	"standardized_nudges_misinfo":                                             true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
	"rweb_tipjar_consumption_enabled":                                         true,
	"articles_preview_enabled":                                                true,
	"creator_subscriptions_quote_tweet_preview_enabled":                       false,
	"verified_phone_label_enabled":                                            false,
}

// Client talks to the GraphQL API with session cookies taken from a
// logged-in browser. A fresh azuretls session per request keeps the
// Chrome TLS fingerprint consistent with the Chrome headers.
type Client struct {
	factory  *network.ClientFactory
	cookies  map[string]string
	username string

	mu       sync.Mutex
	loggedIn bool
}

// NewClient parses the cookie JSON (name to value, as exported by
// browser extensions) and validates the session cookies are present.
func NewClient(factory *network.ClientFactory, cookiesJSON, username string) (*Client, error) {
	if strings.TrimSpace(cookiesJSON) == "" {
		return nil, ErrMissingCookies
	}
	var cookies map[string]string
	if err := json.Unmarshal([]byte(cookiesJSON), &cookies); err != nil {
		return nil, fmt.Errorf("twitter: parse cookies: %w", err)
	}
	if cookies["auth_token"] == "" || cookies["ct0"] == "" {
		return nil, ErrMissingCookies
	}
	return &Client{factory: factory, cookies: cookies, username: username}, nil
}

// Username returns the configured account handle, if known.
func (c *Client) Username() string {
	return c.username
}

// EnsureLogin verifies the cookies once by fetching a single home
// timeline entry. Success is cached for the process lifetime.
func (c *Client) EnsureLogin(ctx context.Context) error {
	c.mu.Lock()
	ok := c.loggedIn
	c.mu.Unlock()
	if ok {
		return nil
	}

	if _, err := c.HomeTimeline(ctx, 1); err != nil {
		logger.Warn("twitter login check failed", "error", err)
		return ErrNotLoggedIn
	}

	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()
	return nil
}

// UserTweets fetches a user's timeline.
func (c *Client) UserTweets(ctx context.Context, userID string, count int) (map[string]any, error) {
	return c.get(ctx, opUserTweets, map[string]any{
		"userId":                 userID,
		"count":                  count,
		"includePromotedContent": false,
		"withVoice":              true,
	})
}

// HomeTimeline fetches the algorithmic home timeline.
func (c *Client) HomeTimeline(ctx context.Context, count int) (map[string]any, error) {
	return c.get(ctx, opHomeTimeline, map[string]any{
		"count":                  count,
		"includePromotedContent": false,
		"latestControlAvailable": true,
	})
}

// HomeLatestTimeline fetches the chronological "Following" timeline.
func (c *Client) HomeLatestTimeline(ctx context.Context, count int) (map[string]any, error) {
	return c.get(ctx, opHomeLatestTimeline, map[string]any{
		"count":                  count,
		"includePromotedContent": false,
		"latestControlAvailable": true,
	})
}

// SearchTimeline runs a search. product is one of Latest, Top, People,
// Photos or Videos.
func (c *Client) SearchTimeline(ctx context.Context, query string, count int, product string) (map[string]any, error) {
	return c.get(ctx, opSearchTimeline, map[string]any{
		"rawQuery":    query,
		"count":       count,
		"querySource": "typed_query",
		"product":     product,
	})
}

// CreateTweet posts a tweet. replyToID and quoteURL are optional.
func (c *Client) CreateTweet(ctx context.Context, text, replyToID, quoteURL string) (string, error) {
	variables := map[string]any{
		"tweet_text":   text,
		"dark_request": false,
		"media": map[string]any{
			"media_entities":     []any{},
			"possibly_sensitive": false,
		},
		"semantic_annotation_ids": []any{},
	}
	if replyToID != "" {
		variables["reply"] = map[string]any{
			"in_reply_to_tweet_id":   replyToID,
			"exclude_reply_user_ids": []any{},
		}
	}
	if quoteURL != "" {
		variables["attachment_url"] = quoteURL
	}

	payload, err := c.post(ctx, opCreateTweet, variables)
	if err != nil {
		return "", err
	}
	if id := createdTweetID(payload); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("twitter: create tweet response missing id")
}

// Retweet retweets the given tweet.
func (c *Client) Retweet(ctx context.Context, tweetID string) error {
	_, err := c.post(ctx, opCreateRetweet, map[string]any{
		"tweet_id":     tweetID,
		"dark_request": false,
	})
	return err
}

// Like likes the given tweet.
func (c *Client) Like(ctx context.Context, tweetID string) error {
	_, err := c.post(ctx, opFavoriteTweet, map[string]any{
		"tweet_id": tweetID,
	})
	return err
}

func (c *Client) get(ctx context.Context, operation string, variables map[string]any) (map[string]any, error) {
	variablesJSON, err := json.Marshal(variables)
	if err != nil {
		return nil, err
	}
	featuresJSON, err := json.Marshal(featureFlags)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("variables", string(variablesJSON))
	query.Set("features", string(featuresJSON))
	endpoint := fmt.Sprintf("%s/%s?%s", apiBase, operation, query.Encode())

	return c.do(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) post(ctx context.Context, operation string, variables map[string]any) (map[string]any, error) {
	body, err := json.Marshal(map[string]any{
		"variables": variables,
		"features":  featureFlags,
		"queryId":   strings.SplitN(operation, "/", 2)[0],
	})
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/%s", apiBase, operation)
	return c.do(ctx, http.MethodPost, endpoint, body)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (map[string]any, error) {
	session := c.factory.NewAzureSession(ctx, requestTimeout)
	defer session.Close()

	headers := azuretls.OrderedHeaders{
		{"authorization", "Bearer " + bearerToken},
		{"content-type", "application/json"},
		{"cookie", c.cookieHeader()},
		{"user-agent", config.ChromeUserAgent},
		{"x-csrf-token", c.cookies["ct0"]},
		{"x-twitter-active-user", "yes"},
		{"x-twitter-auth-type", "OAuth2Session"},
		{"x-twitter-client-language", "en"},
	}

	req := &azuretls.Request{
		Method:         method,
		Url:            endpoint,
		OrderedHeaders: headers,
	}
	if body != nil {
		req.Body = body
	}

	resp, err := session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter: request failed: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrNotLoggedIn
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter: http %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("twitter: decode response: %w", err)
	}
	return payload, nil
}

func (c *Client) cookieHeader() string {
	pairs := make([]string, 0, len(c.cookies))
	for name, value := range c.cookies {
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, "; ")
}

func createdTweetID(payload map[string]any) string {
	data, ok := payload["data"].(map[string]any)
	if !ok {
		return ""
	}
	create, ok := data["create_tweet"].(map[string]any)
	if !ok {
		return ""
	}
	results, ok := create["tweet_results"].(map[string]any)
	if !ok {
		return ""
	}
	result, ok := results["result"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := result["rest_id"].(string)
	return id
}
