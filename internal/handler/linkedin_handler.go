package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"scout/internal/model"
	"scout/internal/service"
)

// LinkedInService is the surface the candidate endpoint needs.
// *service.LinkedInService satisfies it.
type LinkedInService interface {
	FindCandidates(ctx context.Context, search model.CandidateSearch) (service.CandidateResult, error)
}

type LinkedInHandler struct {
	service LinkedInService
}

func NewLinkedInHandler(service LinkedInService) *LinkedInHandler {
	return &LinkedInHandler{service: service}
}

func (h *LinkedInHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/linkedin/candidates", h.FindCandidates)
}

func (h *LinkedInHandler) FindCandidates(c echo.Context) error {
	var req model.CandidateSearch
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}
	result, err := h.service.FindCandidates(c.Request().Context(), req)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
