package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"scout/internal/handler"
)

// RouterConfig carries the router-level settings.
type RouterConfig struct {
	APIKey    string
	APIKey2   string
	BodyLimit string
}

// NewRouter assembles the echo instance: recover, body limit, request
// IDs and request logging on everything; API-key auth on every route
// except the health probe.
func NewRouter(
	searchHandler *handler.SearchHandler,
	webHandler *handler.WebHandler,
	twitterHandler *handler.TwitterHandler,
	linkedinHandler *handler.LinkedInHandler,
	emailHandler *handler.EmailHandler,
	cfg RouterConfig,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	bodyLimit := cfg.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "1M"
	}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(RequestIDMiddleware())
	e.Use(RequestLoggerMiddleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("", APIKeyMiddleware(cfg.APIKey, cfg.APIKey2))
	searchHandler.RegisterRoutes(api)
	webHandler.RegisterRoutes(api)
	twitterHandler.RegisterRoutes(api)
	linkedinHandler.RegisterRoutes(api)
	emailHandler.RegisterRoutes(api)

	return e
}
