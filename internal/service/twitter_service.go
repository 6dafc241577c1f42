package service

import (
	"context"
	"fmt"

	"scout/internal/model"
	"scout/internal/service/twitter"
	"scout/pkg/logger"
)

// TwitterAPI is the GraphQL client surface the service needs.
// *twitter.Client satisfies it.
type TwitterAPI interface {
	EnsureLogin(ctx context.Context) error
	Username() string
	UserTweets(ctx context.Context, userID string, count int) (map[string]any, error)
	HomeTimeline(ctx context.Context, count int) (map[string]any, error)
	HomeLatestTimeline(ctx context.Context, count int) (map[string]any, error)
	SearchTimeline(ctx context.Context, query string, count int, product string) (map[string]any, error)
	CreateTweet(ctx context.Context, text, replyToID, quoteURL string) (string, error)
	Retweet(ctx context.Context, tweetID string) error
	Like(ctx context.Context, tweetID string) error
}

// TwitterService exposes the normalized read and write operations. Every
// call is admitted by the shared twitter limiter and runs against a
// login-verified client. Write failures are reported as not-ok rather
// than errors, matching the best-effort nature of social writes.
type TwitterService struct {
	limiter Admitter
	client  TwitterAPI
}

func NewTwitterService(limiter Admitter, client TwitterAPI) *TwitterService {
	return &TwitterService{limiter: limiter, client: client}
}

func (s *TwitterService) admit(ctx context.Context) error {
	if err := s.limiter.Check(ctx); err != nil {
		return err
	}
	return s.client.EnsureLogin(ctx)
}

// GetUserTweets returns tweets from one user's timeline.
func (s *TwitterService) GetUserTweets(ctx context.Context, userID string, count int) ([]model.Tweet, error) {
	if err := s.admit(ctx); err != nil {
		return nil, err
	}
	payload, err := s.client.UserTweets(ctx, userID, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return twitter.MapTweets(twitter.FlattenTimeline([]any{payload})), nil
}

// GetHomeTimeline returns the algorithmic home timeline.
func (s *TwitterService) GetHomeTimeline(ctx context.Context, count int) ([]model.Tweet, error) {
	if err := s.admit(ctx); err != nil {
		return nil, err
	}
	payload, err := s.client.HomeTimeline(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return twitter.MapTweets(twitter.FlattenTimeline([]any{payload})), nil
}

// GetFollowingTimeline returns the chronological "Following" timeline.
func (s *TwitterService) GetFollowingTimeline(ctx context.Context, count int) ([]model.Tweet, error) {
	if err := s.admit(ctx); err != nil {
		return nil, err
	}
	payload, err := s.client.HomeLatestTimeline(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return twitter.MapTweets(twitter.FlattenTimeline([]any{payload})), nil
}

// SearchTweets searches tweets in the given mode.
func (s *TwitterService) SearchTweets(ctx context.Context, query string, maxTweets int, mode model.SearchMode) ([]model.Tweet, error) {
	if err := s.admit(ctx); err != nil {
		return nil, err
	}
	payload, err := s.client.SearchTimeline(ctx, query, maxTweets, searchProduct(mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return twitter.MapTweets(twitter.FlattenTimeline([]any{payload})), nil
}

// GetMentions searches recent mentions of the configured account.
func (s *TwitterService) GetMentions(ctx context.Context) ([]model.Tweet, error) {
	username := s.client.Username()
	if username == "" {
		logger.Warn("mentions requested without a configured username")
		return []model.Tweet{}, nil
	}
	return s.SearchTweets(ctx, "@"+username, 10, model.SearchLatest)
}

// PostTweet posts a new tweet, or a reply when inReplyToID is set. It
// returns the posted tweet ID and whether the write succeeded.
func (s *TwitterService) PostTweet(ctx context.Context, text, inReplyToID string) (string, bool, error) {
	if err := s.admit(ctx); err != nil {
		return "", false, err
	}
	id, err := s.client.CreateTweet(ctx, text, inReplyToID, "")
	if err != nil {
		logger.Error("post tweet failed", "error", err)
		return "", false, nil
	}
	return id, true, nil
}

// PostQuoteTweet posts a quote of the given tweet.
func (s *TwitterService) PostQuoteTweet(ctx context.Context, text, quoteID string) (string, bool, error) {
	if err := s.admit(ctx); err != nil {
		return "", false, err
	}
	quoteURL := "https://x.com/i/web/status/" + quoteID
	id, err := s.client.CreateTweet(ctx, text, "", quoteURL)
	if err != nil {
		logger.Error("quote tweet failed", "error", err)
		return "", false, nil
	}
	return id, true, nil
}

// Retweet retweets the given tweet and reports success.
func (s *TwitterService) Retweet(ctx context.Context, tweetID string) (bool, error) {
	if err := s.admit(ctx); err != nil {
		return false, err
	}
	if err := s.client.Retweet(ctx, tweetID); err != nil {
		logger.Error("retweet failed", "tweet_id", tweetID, "error", err)
		return false, nil
	}
	return true, nil
}

// LikeTweet likes the given tweet and reports success.
func (s *TwitterService) LikeTweet(ctx context.Context, tweetID string) (bool, error) {
	if err := s.admit(ctx); err != nil {
		return false, err
	}
	if err := s.client.Like(ctx, tweetID); err != nil {
		logger.Error("like failed", "tweet_id", tweetID, "error", err)
		return false, nil
	}
	return true, nil
}

func searchProduct(mode model.SearchMode) string {
	switch mode {
	case model.SearchLatest, model.SearchTop, model.SearchPeople, model.SearchPhotos, model.SearchVideos:
		return string(mode)
	default:
		return string(model.SearchTop)
	}
}
