package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/api"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/flow"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/render"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/span"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/terminology"
)

// The HTML surface: GET / renders the page, every form posts to /ui/*
// and redirects back with a one-shot notice or error.

func (s *Server) page(c echo.Context) error {
	e := s.sessions.lookup(c)
	st := s.deps.State
	tr := st.Translator()
	ctx := c.Request().Context()
	notice, failure := e.takeFlash()

	v := render.PageView{
		Snapshot:   e.flow.Snapshot(),
		Translator: tr,
		Theme:      st.Theme(),
		User:       st.User(),
		Examples:   i18n.Examples(tr.Language()),
		Notice:     notice,
		Error:      failure,
	}

	if id := c.QueryParam("fragment"); id != "" {
		p, frag, err := s.openPicker(ctx, e, id)
		if err != nil {
			v.Error = describe(tr, err)
		} else {
			v.Picker, v.PickerFragment = p, &frag
		}
	} else {
		e.closePicker()
	}

	e.mu.Lock()
	showHistory := e.showHistory
	e.mu.Unlock()
	if showHistory && st.IsAuthenticated() {
		items, err := s.deps.History.History(ctx, 0, s.deps.HistorySize)
		if err != nil {
			v.Error = describe(tr, err)
		}
		if items == nil {
			items = []model.QuerySummary{}
		}
		v.History = items
	}

	body, err := render.Page(v)
	if err != nil {
		return httpError(err)
	}
	return c.HTMLBlob(http.StatusOK, body)
}

// openPicker returns the picker for fragment id, reusing the open one so
// that selections survive paging
func (s *Server) openPicker(ctx context.Context, e *entry, id string) (*terminology.Picker, model.Fragment, error) {
	frag, ok := e.flow.Fragment(id)
	if !ok {
		return nil, model.Fragment{}, fmt.Errorf("%w: %s", span.ErrNotFound, id)
	}

	e.mu.Lock()
	if e.pickerFor == id && e.picker != nil {
		p := e.picker
		e.mu.Unlock()
		return p, frag, nil
	}
	e.mu.Unlock()

	frag, matches, err := s.termsFor(ctx, e.flow, id)
	if err != nil {
		return nil, frag, err
	}
	p := s.newPicker(frag, matches)

	e.mu.Lock()
	e.pickerFor, e.picker = id, p
	e.mu.Unlock()
	return p, frag, nil
}

func (s *Server) finish(c echo.Context, e *entry, err error) error {
	return s.finishAt(c, e, err, "/")
}

func (s *Server) finishAt(c echo.Context, e *entry, err error, location string) error {
	if err != nil {
		s.log.Debug().Err(err).Str("path", c.Path()).Msg("UI action failed")
		e.flash("", describe(s.deps.State.Translator(), err))
	}
	return c.Redirect(http.StatusSeeOther, location)
}

func (s *Server) notify(c echo.Context, e *entry, key string) error {
	e.flash(s.deps.State.Translator().T(key), "")
	return c.Redirect(http.StatusSeeOther, "/")
}

func pickerURL(id string) string {
	return "/?fragment=" + url.QueryEscape(id)
}

func formInt(c echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.FormValue(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadRequest, name, c.FormValue(name))
	}
	return n, nil
}

func (s *Server) uiSubmit(c echo.Context) error {
	e := s.sessions.lookup(c)
	e.closePicker()
	return s.finish(c, e, s.submit(c.Request().Context(), e.flow, c.FormValue("text")))
}

func (s *Server) uiDraft(c echo.Context) error {
	e := s.sessions.lookup(c)
	e.closePicker()
	return s.finish(c, e, e.flow.Draft(c.FormValue("text")))
}

func (s *Server) uiReset(c echo.Context) error {
	e := s.sessions.lookup(c)
	e.closePicker()
	e.flow.NewQuery()
	return s.finish(c, e, nil)
}

func (s *Server) uiEditQuery(c echo.Context) error {
	e := s.sessions.lookup(c)
	return s.finish(c, e, e.flow.EditQuery())
}

func (s *Server) uiEditMode(c echo.Context) error {
	e := s.sessions.lookup(c)
	return s.finish(c, e, e.flow.SetEditMode(c.FormValue("on") == "true"))
}

func (s *Server) uiClick(c echo.Context) error {
	e := s.sessions.lookup(c)
	id := c.FormValue("fragment")

	result, err := e.flow.Click(id)
	if err != nil {
		return s.finish(c, e, err)
	}
	if result == flow.ClickConfirm {
		return c.Redirect(http.StatusSeeOther, pickerURL(id))
	}
	return s.finish(c, e, nil)
}

func (s *Server) uiSelect(c echo.Context) error {
	e := s.sessions.lookup(c)
	start, err := formInt(c, "start")
	if err != nil {
		return s.finish(c, e, err)
	}
	end, err := formInt(c, "end")
	if err != nil {
		return s.finish(c, e, err)
	}
	_, err = e.flow.Select(start, end)
	return s.finish(c, e, err)
}

// uiConfirm applies the checkboxes of the current page, then either moves
// to another page or confirms everything selected
func (s *Server) uiConfirm(c echo.Context) error {
	e := s.sessions.lookup(c)
	id := c.FormValue("fragment")

	p, _, err := s.openPicker(c.Request().Context(), e, id)
	if err != nil {
		return s.finish(c, e, err)
	}

	params, err := c.FormParams()
	if err != nil {
		return s.finish(c, e, fmt.Errorf("%w: %v", errBadRequest, err))
	}
	checked := make(map[string]bool)
	for _, code := range params["code"] {
		checked[code] = true
	}

	move := c.FormValue("move")
	e.mu.Lock()
	for _, m := range p.Items() {
		if p.IsSelected(m.Code) != checked[m.Code] {
			p.ToggleCode(m.Code)
		}
	}
	switch move {
	case "next":
		p.Next()
	case "prev":
		p.Prev()
	}
	selected := p.Selected()
	e.mu.Unlock()

	if move != "" {
		return c.Redirect(http.StatusSeeOther, pickerURL(id))
	}
	if err := e.flow.Confirm(id, selected); err != nil {
		return s.finishAt(c, e, err, pickerURL(id))
	}
	e.closePicker()
	return s.finish(c, e, nil)
}

func (s *Server) uiGenerate(c echo.Context) error {
	e := s.sessions.lookup(c)
	return s.finish(c, e, e.flow.Generate(c.Request().Context()))
}

func (s *Server) uiCheckSQL(c echo.Context) error {
	e := s.sessions.lookup(c)
	if sql := c.FormValue("sql"); sql != e.flow.Snapshot().SQL {
		if err := e.flow.EditSQL(sql); err != nil {
			return s.finish(c, e, err)
		}
	}
	return s.finish(c, e, e.flow.CheckSQL(c.Request().Context()))
}

func (s *Server) uiLogin(c echo.Context) error {
	e := s.sessions.lookup(c)
	_, err := s.signIn(c.Request().Context(), c.FormValue("email"), c.FormValue("password"))
	if api.IsUnauthorized(err) {
		e.flash("", s.deps.State.Translator().T("login.invalid_credentials"))
		return c.Redirect(http.StatusSeeOther, "/")
	}
	if err != nil {
		return s.finish(c, e, err)
	}
	return s.notify(c, e, "login.login_success")
}

func (s *Server) uiLogout(c echo.Context) error {
	e := s.sessions.lookup(c)
	s.deps.State.Logout()
	e.mu.Lock()
	e.showHistory = false
	e.mu.Unlock()
	return s.notify(c, e, "login.logged_out")
}

func (s *Server) uiLanguage(c echo.Context) error {
	e := s.sessions.lookup(c)
	return s.finish(c, e, s.applyPrefs(c.FormValue("language"), ""))
}

func (s *Server) uiTheme(c echo.Context) error {
	e := s.sessions.lookup(c)
	s.deps.State.ToggleTheme()
	return s.finish(c, e, nil)
}

func (s *Server) uiHistory(c echo.Context) error {
	e := s.sessions.lookup(c)
	if !s.deps.State.IsAuthenticated() {
		e.flash("", s.deps.State.Translator().T("history.login_required"))
		return c.Redirect(http.StatusSeeOther, "/")
	}
	e.mu.Lock()
	e.showHistory = !e.showHistory
	e.mu.Unlock()
	return s.finish(c, e, nil)
}

func (s *Server) uiDeleteHistory(c echo.Context) error {
	e := s.sessions.lookup(c)
	if err := s.requireAuth(); err != nil {
		return s.finish(c, e, err)
	}
	id, err := formInt(c, "id")
	if err != nil {
		return s.finish(c, e, err)
	}
	if err := s.deps.History.DeleteQuery(c.Request().Context(), id); err != nil {
		return s.finish(c, e, err)
	}
	return s.notify(c, e, "history.deleted")
}
