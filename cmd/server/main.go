package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scout/internal/config"
	"scout/internal/handler"
	scouthttp "scout/internal/http"
	"scout/internal/model"
	"scout/internal/ratelimit"
	"scout/internal/service"
	"scout/internal/service/ai"
	"scout/internal/service/twitter"
	"scout/pkg/logger"
	"scout/pkg/network"
	"scout/pkg/snowflake"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.ParseLevel(cfg.LogLevel))

	if err := snowflake.Init(0); err != nil {
		logger.Error("snowflake init failed", "error", err)
		os.Exit(1)
	}

	// Absent REDIS_URL the gateway runs fully in-memory: process-local
	// limiting and pacing, no scrape cache.
	var store *ratelimit.ReconnectingClient
	if cfg.RedisURL != "" {
		client, err := ratelimit.NewReconnectingClient(cfg.RedisURL)
		if err != nil {
			logger.Error("redis client init failed", "url", cfg.RedisURL, "error", err)
			os.Exit(1)
		}
		defer client.Close()
		store = client
	} else {
		logger.Warn("REDIS_URL not set, rate limiting is process-local")
	}

	factory := network.NewClientFactory(cfg.ProxyURL)

	searchLimiter := newLimiter("search", cfg.SearchLimit, store)
	scrapeLimiter := newLimiter("scrape", cfg.ScrapeLimit, store)
	summarizeLimiter := newLimiter("summarize", cfg.SummarizeLimit, store)
	twitterLimiter := newLimiter("twitter", cfg.TwitterLimit, store)
	linkedinLimiter := newLimiter("linkedin", cfg.LinkedInLimit, store)
	emailLimiter := newLimiter("email", cfg.EmailLimit, store)

	searchPacer := ratelimit.NewPacingGate("search", cfg.SearchMinInterval, pacingStore(store))

	searchService := service.NewSearchService(searchLimiter, searchPacer, factory, service.SearchConfig{
		BlacklistedDomains: cfg.SearchBlacklistedDomains,
	})

	var summarizer service.Summarizer
	if cfg.AIAPIKey != "" {
		provider, err := ai.NewProvider(ai.Config{
			Provider:    cfg.AIProvider,
			APIKey:      cfg.AIAPIKey,
			BaseURL:     cfg.AIBaseURL,
			Model:       cfg.AIModel,
			Temperature: cfg.AITemperature,
		})
		if err != nil {
			logger.Error("ai provider init failed", "provider", cfg.AIProvider, "error", err)
			os.Exit(1)
		}
		summarizer = ai.NewSummarizer(provider, summarizeLimiter, ai.SummarizerConfig{
			SystemPrompt:   cfg.AISystemPrompt,
			MaxInputLength: cfg.MaxSummarizeLength,
		})
	} else {
		logger.Warn("AI_API_KEY not set, scraped pages will not be summarized")
	}

	webService := service.NewWebService(scrapeLimiter, factory, scrapeCache(store), summarizer, service.WebConfig{
		Concurrency:  cfg.ScrapeConcurrency,
		URLTimeout:   cfg.ScrapeURLTimeout,
		BatchTimeout: cfg.ScrapeBatchTimeout,
		CacheTTL:     cfg.ScrapeCacheTTL,
	})

	twitterClient, err := twitter.NewClient(factory, cfg.TwitterCookiesJSON, cfg.TwitterUsername)
	if err != nil {
		logger.Warn("twitter client unavailable", "error", err)
	}
	twitterService := service.NewTwitterService(twitterLimiter, twitterAPI(twitterClient))

	linkedinService := service.NewLinkedInService(linkedinLimiter, factory, service.LinkedInConfig{
		Cookie: cfg.LinkedInCookie,
	})

	var emailService handler.EmailService
	if cfg.SMTPHost != "" && cfg.SMTPFrom != "" {
		svc, err := service.NewEmailService(emailLimiter, service.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			logger.Error("smtp client init failed", "host", cfg.SMTPHost, "error", err)
			os.Exit(1)
		}
		emailService = svc
	} else {
		logger.Warn("SMTP not configured, email dispatch is disabled")
		emailService = unconfiguredEmail{}
	}

	e := scouthttp.NewRouter(
		handler.NewSearchHandler(searchService),
		handler.NewWebHandler(webService),
		handler.NewTwitterHandler(twitterService),
		handler.NewLinkedInHandler(linkedinService),
		handler.NewEmailHandler(emailService),
		scouthttp.RouterConfig{APIKey: cfg.APIKey, APIKey2: cfg.APIKey2},
	)

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func newLimiter(name string, limit config.RateLimit, store *ratelimit.ReconnectingClient) *ratelimit.Limiter {
	// A typed nil must not reach the limiter's interface field.
	var counters ratelimit.CounterStore
	if store != nil {
		counters = store
	}
	return ratelimit.NewLimiter(name, ratelimit.Config{
		MaxRequests: limit.MaxRequests,
		Window:      limit.Window,
	}, counters)
}

// pacingStore keeps a typed nil from reaching the gate's interface
// field when redis is absent.
func pacingStore(store *ratelimit.ReconnectingClient) ratelimit.PacingStore {
	if store == nil {
		return nil
	}
	return store
}

func scrapeCache(store *ratelimit.ReconnectingClient) service.ScrapeCache {
	if store == nil {
		return nil
	}
	return store
}

func twitterAPI(client *twitter.Client) service.TwitterAPI {
	if client == nil {
		return unconfiguredTwitter{}
	}
	return client
}

// unconfiguredTwitter stands in when cookies are missing so twitter
// routes answer with a clean upstream error instead of panicking.
type unconfiguredTwitter struct{}

var errTwitterUnconfigured = fmt.Errorf("%w: twitter cookies not configured", service.ErrUpstream)

func (unconfiguredTwitter) EnsureLogin(ctx context.Context) error { return errTwitterUnconfigured }
func (unconfiguredTwitter) Username() string                      { return "" }
func (unconfiguredTwitter) UserTweets(ctx context.Context, userID string, count int) (map[string]any, error) {
	return nil, errTwitterUnconfigured
}
func (unconfiguredTwitter) HomeTimeline(ctx context.Context, count int) (map[string]any, error) {
	return nil, errTwitterUnconfigured
}
func (unconfiguredTwitter) HomeLatestTimeline(ctx context.Context, count int) (map[string]any, error) {
	return nil, errTwitterUnconfigured
}
func (unconfiguredTwitter) SearchTimeline(ctx context.Context, query string, count int, product string) (map[string]any, error) {
	return nil, errTwitterUnconfigured
}
func (unconfiguredTwitter) CreateTweet(ctx context.Context, text, replyToID, quoteURL string) (string, error) {
	return "", errTwitterUnconfigured
}
func (unconfiguredTwitter) Retweet(ctx context.Context, tweetID string) error {
	return errTwitterUnconfigured
}
func (unconfiguredTwitter) Like(ctx context.Context, tweetID string) error {
	return errTwitterUnconfigured
}

// unconfiguredEmail answers email requests when SMTP settings are
// absent.
type unconfiguredEmail struct{}

func (unconfiguredEmail) Send(ctx context.Context, msg model.EmailMessage) error {
	return fmt.Errorf("%w: smtp is not configured", service.ErrInvalid)
}
