package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"scout/internal/service"
)

// SearchService is the surface the search endpoint needs.
// *service.SearchService satisfies it.
type SearchService interface {
	Search(ctx context.Context, query string, maxResults int, timeframe string, sites []string) (service.SearchResult, error)
}

type SearchHandler struct {
	service SearchService
}

func NewSearchHandler(service SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/google/search", h.Search)
}

func (h *SearchHandler) Search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("query"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "query is required"})
	}

	maxResults := 10
	if raw := c.QueryParam("max_results"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "max_results must be between 1 and 1000"})
		}
		maxResults = parsed
	}

	var sites []string
	if raw := c.QueryParam("sites"); raw != "" {
		for _, site := range strings.Split(raw, ",") {
			if site = strings.TrimSpace(site); site != "" {
				sites = append(sites, site)
			}
		}
	}

	result, err := h.service.Search(c.Request().Context(), query, maxResults, c.QueryParam("timeframe"), sites)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
