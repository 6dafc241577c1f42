package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"scout/internal/model"
)

const maxScrapeBatch = 100

// WebService is the surface the scrape endpoint needs.
// *service.WebService satisfies it.
type WebService interface {
	ScrapeURLs(ctx context.Context, urls []string, query string) ([]model.ScrapeResult, error)
}

type WebHandler struct {
	service WebService
}

type scrapeRequest struct {
	URLs  []string `json:"urls"`
	Query string   `json:"query"`
}

type scrapeResponse struct {
	Results []model.ScrapeResult `json:"results"`
}

func NewWebHandler(service WebService) *WebHandler {
	return &WebHandler{service: service}
}

func (h *WebHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/web/scrape", h.Scrape)
}

func (h *WebHandler) Scrape(c echo.Context) error {
	var req scrapeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}
	if len(req.URLs) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "urls are required"})
	}
	if len(req.URLs) > maxScrapeBatch {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "too many urls in one batch"})
	}

	results, err := h.service.ScrapeURLs(c.Request().Context(), req.URLs, req.Query)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, scrapeResponse{Results: results})
}
