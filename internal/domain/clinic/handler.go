package clinic

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinicconsole/internal/platform/auth"
	"github.com/ehr/clinicconsole/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the registration review endpoints. Submitting a
// registration goes through the console wizard.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/clinics", auth.RequireRole(auth.RoleAdmin))
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/review", h.Review)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	recs, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(recs, total, p))
}

func (h *Handler) Get(c echo.Context) error {
	rec, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "clinic registration not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

type reviewRequest struct {
	Status string `json:"status"`
}

func (h *Handler) Review(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err := h.svc.Review(c.Request().Context(), c.Param("id"), req.Status)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "clinic registration not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
