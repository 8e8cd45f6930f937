package console

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinicconsole/internal/domain/dashboard"
	"github.com/ehr/clinicconsole/internal/platform/hooks"
	"github.com/ehr/clinicconsole/internal/platform/modal"
	"github.com/ehr/clinicconsole/internal/platform/panel"
	"github.com/ehr/clinicconsole/internal/platform/stepform"
)

var (
	unprocessable = []error{panel.ErrValidation, stepform.ErrValidation}
	conflicts     = []error{
		panel.ErrRejected, stepform.ErrRejected,
		modal.ErrBusy, modal.ErrNotOpen, modal.ErrInvalidTransition,
		panel.ErrWrongMode, panel.ErrActionNotAllowed, panel.ErrStale, panel.ErrUnmounted,
		stepform.ErrNotFinalStep, stepform.ErrCompleted, stepform.ErrSubmitting, stepform.ErrUnmounted,
	}
	notFound = []error{ErrSessionNotFound, panel.ErrNotFound, panel.ErrUnknownAction, panel.ErrNoExclusiveFlag}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// httpError maps console errors to HTTP errors. Unexpected errors are hidden
// behind the generic failure message.
func httpError(err error) error {
	var he *echo.HTTPError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &he):
		return he
	case isAny(err, unprocessable):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case isAny(err, conflicts):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case isAny(err, notFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrNoDashboard):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, hooks.GenericFailure).SetInternal(err)
}

// fieldError maps an error from a form edit. Errors the form itself raises
// for a bad key or value are client errors.
func fieldError(err error) error {
	if err == nil {
		return nil
	}
	if isAny(err, conflicts) || isAny(err, notFound) {
		return httpError(err)
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
