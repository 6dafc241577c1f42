package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"scout/internal/model"
)

// EmailService is the surface the mail endpoint needs.
// *service.EmailService satisfies it.
type EmailService interface {
	Send(ctx context.Context, msg model.EmailMessage) error
}

type EmailHandler struct {
	service EmailService
}

type emailSentResponse struct {
	Success bool `json:"success"`
}

func NewEmailHandler(service EmailService) *EmailHandler {
	return &EmailHandler{service: service}
}

func (h *EmailHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/email/send", h.Send)
}

func (h *EmailHandler) Send(c echo.Context) error {
	var req model.EmailMessage
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}
	if err := h.service.Send(c.Request().Context(), req); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, emailSentResponse{Success: true})
}
