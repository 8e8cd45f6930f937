package scheduling

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinicconsole/internal/platform/auth"
)

type Handler struct {
	svc *Service
	now func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// RegisterRoutes mounts the read-only day schedule. Appointment changes go
// through the console panels.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments", auth.RequireStaff())
	g.GET("", h.ListDay)
}

// AppointmentView is an appointment with its status badge.
type AppointmentView struct {
	Appointment
	Badge Badge `json:"badge"`
}

// ListDay returns the caller's clinic schedule for ?date=YYYY-MM-DD (default
// today, UTC).
func (h *Handler) ListDay(c echo.Context) error {
	user, err := auth.RequireUser(c)
	if err != nil {
		return err
	}
	day := h.now().UTC()
	if d := c.QueryParam("date"); d != "" {
		day, err = time.Parse(time.DateOnly, d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
	}
	appts, err := h.svc.Appointments(c.Request().Context(), user.ClinicID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := []AppointmentView{}
	for _, a := range OnDay(appts, day) {
		out = append(out, AppointmentView{Appointment: a, Badge: StatusBadge(a.Status)})
	}
	return c.JSON(http.StatusOK, map[string]any{"date": day.Format(time.DateOnly), "appointments": out})
}

// OnDay returns the appointments starting on day's UTC calendar date.
func OnDay(appts []Appointment, day time.Time) []Appointment {
	y, m, d := day.UTC().Date()
	var out []Appointment
	for _, a := range appts {
		ay, am, ad := a.StartTime.UTC().Date()
		if ay == y && am == m && ad == d {
			out = append(out, a)
		}
	}
	return out
}
