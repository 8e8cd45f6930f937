package console

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/domain/dashboard"
	"github.com/ehr/clinicconsole/internal/domain/scheduling"
	"github.com/ehr/clinicconsole/internal/domain/staff"
	"github.com/ehr/clinicconsole/internal/platform/auth"
	"github.com/ehr/clinicconsole/internal/platform/notification"
	"github.com/ehr/clinicconsole/internal/platform/panel"
)

// SessionHeader carries the console session id. SessionQueryParam carries it
// where headers cannot be set.
const (
	SessionHeader     = "X-Console-Session"
	SessionQueryParam = "session"
)

type Handler struct {
	store  *SessionStore
	deps   Deps
	logger zerolog.Logger
}

func NewHandler(store *SessionStore, deps Deps) *Handler {
	return &Handler{store: store, deps: deps, logger: deps.Logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions/current", h.GetSession)
	api.DELETE("/sessions/current", h.DeleteSession)

	reg := api.Group("/registration")
	reg.GET("", h.GetRegistration)
	reg.PUT("/fields", h.SetRegistrationFields)
	reg.POST("/toggle", h.ToggleRegistrationOption)
	reg.POST("/validate", h.ValidateRegistrationStep)
	reg.POST("/next", h.NextStep)
	reg.POST("/back", h.PreviousStep)
	reg.POST("/submit", h.SubmitRegistration)
	reg.POST("/reset", h.ResetRegistration)

	p := api.Group("/panels/:panel")
	p.GET("", h.GetPanel)
	p.POST("/add", h.OpenAdd)
	p.POST("/items/:id/edit", h.OpenEdit)
	p.POST("/items/:id/delete", h.OpenDelete)
	p.POST("/items/:id/view", h.OpenView)
	p.POST("/items/:id/primary", h.SetExclusive)
	p.POST("/items/:id/actions/:action", h.OpenAction)
	p.PUT("/form", h.SetPanelFields)
	p.POST("/save", h.Save)
	p.POST("/delete", h.ConfirmDelete)
	p.POST("/confirm", h.Confirm)
	p.POST("/cancel", h.Cancel)
	p.POST("/refresh", h.Refresh)

	api.GET("/dashboard", h.Dashboard)

	notification.NewHandler(h.deps.Center, h.SessionID).RegisterRoutes(api)
}

// -- Sessions --

func (h *Handler) session(c echo.Context) (*Session, error) {
	user, err := auth.RequireUser(c)
	if err != nil {
		return nil, err
	}
	id := c.Request().Header.Get(SessionHeader)
	if id == "" {
		// WebSocket handshakes carry the session in the query.
		id = c.QueryParam(SessionQueryParam)
	}
	if id == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, SessionHeader+" header is required")
	}
	s, err := h.store.Get(id, user.ID)
	if err != nil {
		return nil, httpError(err)
	}
	return s, nil
}

// SessionID resolves the request's session for the notification drain.
func (h *Handler) SessionID(c echo.Context) (string, error) {
	s, err := h.session(c)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

func (h *Handler) CreateSession(c echo.Context) error {
	user, err := auth.RequireUser(c)
	if err != nil {
		return err
	}
	s := h.store.Create(user)
	if err := s.RefreshAll(c.Request().Context()); err != nil {
		h.logger.Warn().Err(err).Str("session_id", s.ID).Msg("initial panel load failed")
	}
	c.Response().Header().Set(SessionHeader, s.ID)
	return c.JSON(http.StatusCreated, s.View())
}

func (h *Handler) GetSession(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.View())
}

func (h *Handler) DeleteSession(c echo.Context) error {
	user, err := auth.RequireUser(c)
	if err != nil {
		return err
	}
	if err := h.store.Delete(c.Request().Header.Get(SessionHeader), user.ID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Registration wizard --

func (h *Handler) registration(c echo.Context, op func(s *Session) error) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if err := op(s); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Wizard.Snapshot())
}

func (h *Handler) GetRegistration(c echo.Context) error {
	return h.registration(c, func(*Session) error { return nil })
}

// SetRegistrationFields merges a JSON object of field values into the form.
// Either every field is applied or none is.
func (h *Handler) SetRegistrationFields(c echo.Context) error {
	var fields map[string]string
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.registration(c, func(s *Session) error {
		return fieldError(s.Wizard.SetFields(fields))
	})
}

type toggleRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *Handler) ToggleRegistrationOption(c echo.Context) error {
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.registration(c, func(s *Session) error {
		return fieldError(s.Wizard.ToggleMultiSelect(req.Field, req.Value))
	})
}

// ValidateRegistrationStep checks ?step=N (default: the active step) without
// moving.
func (h *Handler) ValidateRegistrationStep(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	step := s.Wizard.CurrentStep()
	if q := c.QueryParam("step"); q != "" {
		if step, err = strconv.Atoi(q); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "step must be a number")
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"step": step, "valid": s.Wizard.ValidateStep(step)})
}

func (h *Handler) NextStep(c echo.Context) error {
	return h.registration(c, func(s *Session) error { return httpError(s.Wizard.Advance()) })
}

func (h *Handler) PreviousStep(c echo.Context) error {
	return h.registration(c, func(s *Session) error { return httpError(s.Wizard.Retreat()) })
}

func (h *Handler) SubmitRegistration(c echo.Context) error {
	return h.registration(c, func(s *Session) error {
		return httpError(s.Wizard.Submit(c.Request().Context()))
	})
}

func (h *Handler) ResetRegistration(c echo.Context) error {
	return h.registration(c, func(s *Session) error { return httpError(s.Wizard.Reset()) })
}

// -- Panels --

func (h *Handler) panel(c echo.Context, op func(p panel.Controller) error) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	p, ok := s.Panel(c.Param("panel"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown panel "+strconv.Quote(c.Param("panel")))
	}
	if err := op(p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.View())
}

func (h *Handler) GetPanel(c echo.Context) error {
	return h.panel(c, func(panel.Controller) error { return nil })
}

func (h *Handler) OpenAdd(c echo.Context) error {
	return h.panel(c, func(p panel.Controller) error { return httpError(p.OpenAdd()) })
}

func (h *Handler) OpenEdit(c echo.Context) error {
	return h.panel(c, func(p panel.Controller) error { return httpError(p.OpenEditByID(c.Param("id"))) })
}

func (h *Handler) OpenDelete(c echo.Context) error {
	return h.panel(c, func(p panel.Controller) error { return httpError(p.OpenDeleteByID(c.Param("id"))) })
}

func (h *Handler) OpenView(c echo.Context) error {
	return h.panel(c, func(p panel.Controller) error { return httpError(p.OpenViewByID(c.Param("id"))) })
}

func (h *Handler) OpenAction(c echo.Context) error {
	return h.panel(c, func(p panel.Controller) error {
		return httpError(p.OpenConfirmByID(c.Param("id"), c.Param("action")))
	})
}

func (h *Handler) SetExclusive(c echo.Context) error {
	return h.panel(c, func(p panel.Controller) error { return httpError(p.SetExclusiveFlag(c.Param("id"))) })
}

// SetPanelFields merges a JSON object of field values into the modal form.
func (h *Handler) SetPanelFields(c echo.Context) error {
	var fields map[string]string
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.panel(c, func(p panel.Controller) error {
		return fieldError(p.SetFields(fields))
	})
}

func (h *Handler) Save(c echo.Context) error {
	return h.panel(c, func(p panel.Controller) error { return httpError(p.ConfirmSave(c.Request().Context())) })
}

func (h *Handler) ConfirmDelete(c echo.Context) error {
	return h.panel(c, func(p panel.Controller) error { return httpError(p.ConfirmDelete(c.Request().Context())) })
}

func (h *Handler) Confirm(c echo.Context) error {
	return h.panel(c, func(p panel.Controller) error { return httpError(p.Confirm(c.Request().Context())) })
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.panel(c, func(p panel.Controller) error { return httpError(p.Cancel()) })
}

func (h *Handler) Refresh(c echo.Context) error {
	return h.panel(c, func(p panel.Controller) error { return httpError(p.Refresh(c.Request().Context())) })
}

// -- Dashboard --

func (h *Handler) Dashboard(c echo.Context) error {
	user, err := auth.RequireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var appts []scheduling.Appointment
	if h.deps.Appointments != nil {
		if appts, err = h.deps.Appointments.Appointments(ctx, user.ClinicID); err != nil {
			return httpError(err)
		}
	}
	var members []staff.Member
	if h.deps.Staff != nil {
		if members, err = h.deps.Staff.Members(ctx, user.ClinicID); err != nil {
			return httpError(err)
		}
	}
	d, err := dashboard.Build(user, appts, members, h.deps.now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}
