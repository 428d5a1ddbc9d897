package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/api"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/flow"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/span"
)

var (
	errBadRequest  = errors.New("malformed request")
	errUnknownPref = errors.New("unknown preference value")
)

// statusOf maps domain and backend errors onto HTTP statuses
func statusOf(err error) int {
	var apiErr *api.Error
	switch {
	case errors.Is(err, flow.ErrEmptyQuery),
		errors.Is(err, flow.ErrEmptySQL),
		errors.Is(err, span.ErrInvalidRange),
		errors.Is(err, span.ErrNoMatches),
		errors.Is(err, errBadRequest),
		errors.Is(err, errUnknownPref):
		return http.StatusBadRequest
	case errors.Is(err, flow.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, span.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, flow.ErrBusy),
		errors.Is(err, flow.ErrDiscarded),
		errors.Is(err, flow.ErrReadOnly),
		errors.Is(err, flow.ErrInvalidTransition),
		errors.Is(err, flow.ErrNotEditing),
		errors.Is(err, span.ErrOverlap):
		return http.StatusConflict
	case errors.As(err, &apiErr):
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusNotFound, http.StatusBadRequest, http.StatusConflict:
			return apiErr.Status
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// httpError wraps err for echo's error handler, keeping the backend detail visible
func httpError(err error) *echo.HTTPError {
	msg := err.Error()
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		msg = api.DetailOf(err)
	}
	return echo.NewHTTPError(statusOf(err), msg).SetInternal(err)
}

// describe returns the message shown on the page for err
func describe(tr *i18n.Translator, err error) string {
	switch {
	case errors.Is(err, span.ErrOverlap):
		return tr.T("input.overlap")
	case errors.Is(err, flow.ErrAuthRequired):
		return tr.T("input.login_required")
	case errors.Is(err, span.ErrNoMatches):
		return tr.T("term_validation.select")
	}
	return tr.T("general.error") + ": " + api.DetailOf(err)
}
