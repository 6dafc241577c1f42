package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"scout/internal/model"
)

const (
	defaultTweetCount = 20
	maxTweetCount     = 100
)

// TwitterService is the surface the twitter endpoints need.
// *service.TwitterService satisfies it.
type TwitterService interface {
	GetUserTweets(ctx context.Context, userID string, count int) ([]model.Tweet, error)
	GetHomeTimeline(ctx context.Context, count int) ([]model.Tweet, error)
	GetFollowingTimeline(ctx context.Context, count int) ([]model.Tweet, error)
	SearchTweets(ctx context.Context, query string, maxTweets int, mode model.SearchMode) ([]model.Tweet, error)
	GetMentions(ctx context.Context) ([]model.Tweet, error)
	PostTweet(ctx context.Context, text, inReplyToID string) (string, bool, error)
	PostQuoteTweet(ctx context.Context, text, quoteID string) (string, bool, error)
	Retweet(ctx context.Context, tweetID string) (bool, error)
	LikeTweet(ctx context.Context, tweetID string) (bool, error)
}

type TwitterHandler struct {
	service TwitterService
}

type postTweetRequest struct {
	Text string `json:"text"`
}

type replyTweetRequest struct {
	Text    string `json:"text"`
	TweetID string `json:"tweetId"`
}

type tweetActionRequest struct {
	TweetID string `json:"tweetId"`
}

type tweetListResponse struct {
	Tweets []model.Tweet `json:"tweets"`
}

type tweetWriteResponse struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
}

func NewTwitterHandler(service TwitterService) *TwitterHandler {
	return &TwitterHandler{service: service}
}

func (h *TwitterHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/twitter/user/:id/tweets", h.UserTweets)
	g.GET("/twitter/home", h.Home)
	g.GET("/twitter/following", h.Following)
	g.GET("/twitter/search", h.Search)
	g.GET("/twitter/mentions", h.Mentions)
	g.POST("/twitter/tweet", h.Tweet)
	g.POST("/twitter/reply", h.Reply)
	g.POST("/twitter/quote", h.Quote)
	g.POST("/twitter/retweet", h.Retweet)
	g.POST("/twitter/like", h.Like)
}

func (h *TwitterHandler) UserTweets(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "user id is required"})
	}
	count, err := parseCount(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid count"})
	}
	tweets, err := h.service.GetUserTweets(c.Request().Context(), userID, count)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tweetListResponse{Tweets: tweets})
}

func (h *TwitterHandler) Home(c echo.Context) error {
	count, err := parseCount(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid count"})
	}
	tweets, err := h.service.GetHomeTimeline(c.Request().Context(), count)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tweetListResponse{Tweets: tweets})
}

func (h *TwitterHandler) Following(c echo.Context) error {
	count, err := parseCount(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid count"})
	}
	tweets, err := h.service.GetFollowingTimeline(c.Request().Context(), count)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tweetListResponse{Tweets: tweets})
}

func (h *TwitterHandler) Search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("query"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "query is required"})
	}
	count, err := parseCount(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid count"})
	}
	mode := model.SearchMode(c.QueryParam("mode"))
	if mode == "" {
		mode = model.SearchTop
	}
	tweets, err := h.service.SearchTweets(c.Request().Context(), query, count, mode)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tweetListResponse{Tweets: tweets})
}

func (h *TwitterHandler) Mentions(c echo.Context) error {
	tweets, err := h.service.GetMentions(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tweetListResponse{Tweets: tweets})
}

func (h *TwitterHandler) Tweet(c echo.Context) error {
	var req postTweetRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "text is required"})
	}
	id, ok, err := h.service.PostTweet(c.Request().Context(), req.Text, "")
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tweetWriteResponse{ID: id, Success: ok})
}

func (h *TwitterHandler) Reply(c echo.Context) error {
	var req replyTweetRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Text) == "" || req.TweetID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "text and tweetId are required"})
	}
	id, ok, err := h.service.PostTweet(c.Request().Context(), req.Text, req.TweetID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tweetWriteResponse{ID: id, Success: ok})
}

func (h *TwitterHandler) Quote(c echo.Context) error {
	var req replyTweetRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Text) == "" || req.TweetID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "text and tweetId are required"})
	}
	id, ok, err := h.service.PostQuoteTweet(c.Request().Context(), req.Text, req.TweetID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tweetWriteResponse{ID: id, Success: ok})
}

func (h *TwitterHandler) Retweet(c echo.Context) error {
	var req tweetActionRequest
	if err := c.Bind(&req); err != nil || req.TweetID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "tweetId is required"})
	}
	ok, err := h.service.Retweet(c.Request().Context(), req.TweetID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tweetWriteResponse{Success: ok})
}

func (h *TwitterHandler) Like(c echo.Context) error {
	var req tweetActionRequest
	if err := c.Bind(&req); err != nil || req.TweetID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "tweetId is required"})
	}
	ok, err := h.service.LikeTweet(c.Request().Context(), req.TweetID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tweetWriteResponse{Success: ok})
}

func parseCount(c echo.Context) (int, error) {
	raw := c.QueryParam("count")
	if raw == "" {
		return defaultTweetCount, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 || parsed > maxTweetCount {
		return 0, errInvalidCount
	}
	return parsed, nil
}
