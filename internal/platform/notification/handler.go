package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SessionIDFunc resolves the console session of a request.
type SessionIDFunc func(c echo.Context) (string, error)

// Handler exposes pending toasts over HTTP.
type Handler struct {
	center  *Center
	session SessionIDFunc
}

// NewHandler creates a Handler.
func NewHandler(center *Center, session SessionIDFunc) *Handler {
	return &Handler{center: center, session: session}
}

// RegisterRoutes mounts the drain endpoint on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.HandleDrain)
}

// HandleDrain returns and clears the session's pending toasts.
func (h *Handler) HandleDrain(c echo.Context) error {
	sessionID, err := h.session(c)
	if err != nil {
		return err
	}
	toasts, err := h.center.Drain(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": toasts,
		"count":         len(toasts),
	})
}
