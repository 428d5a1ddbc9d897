package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/flow"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/span"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/terminology"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/theme"
)

type stateResponse struct {
	Session  flow.Snapshot `json:"session"`
	User     *model.User   `json:"user,omitempty"`
	Language i18n.Language `json:"language"`
	Theme    theme.Theme   `json:"theme"`
}

type termsResponse struct {
	Fragment model.Fragment           `json:"fragment"`
	Items    []model.TerminologyMatch `json:"items"`
	Selected []string                 `json:"selected"`
	Page     int                      `json:"page"`
	Pages    int                      `json:"pages"`
	Total    int                      `json:"total"`
	Range    string                   `json:"range"`
}

type prefsResponse struct {
	Language   i18n.Language `json:"language"`
	Theme      theme.Theme   `json:"theme"`
	ThemeSaved bool          `json:"theme_saved"`
}

type textRequest struct {
	Text string `json:"text"`
}

type editModeRequest struct {
	On bool `json:"on"`
}

type selectRequest struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type confirmRequest struct {
	Codes []string `json:"codes"`
}

type sqlRequest struct {
	SQL string `json:"sql"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type prefsRequest struct {
	Language string `json:"language,omitempty"`
	Theme    string `json:"theme,omitempty"`
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return httpError(fmt.Errorf("%w: %v", errBadRequest, err))
	}
	return nil
}

func (s *Server) view(e *entry) stateResponse {
	st := s.deps.State
	return stateResponse{
		Session:  e.flow.Snapshot(),
		User:     st.User(),
		Language: st.Language(),
		Theme:    st.Theme(),
	}
}

func (s *Server) respond(c echo.Context, e *entry, err error) error {
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.view(e))
}

// Shared operations

func (s *Server) requireAuth() error {
	if !s.deps.State.IsAuthenticated() {
		return flow.ErrAuthRequired
	}
	return nil
}

// submit sends text as a new query. A query past drafting is replaced, but
// never while one of its calls is outstanding.
func (s *Server) submit(ctx context.Context, sess *flow.Session, text string) error {
	if sess.State() == flow.Drafting {
		if err := sess.SetText(text); err != nil {
			return err
		}
	} else if err := sess.Draft(text); err != nil {
		return err
	}
	return sess.Submit(ctx)
}

// termsFor looks up the candidates for one fragment of the session
func (s *Server) termsFor(ctx context.Context, sess *flow.Session, id string) (model.Fragment, []model.TerminologyMatch, error) {
	frag, ok := sess.Fragment(id)
	if !ok {
		return model.Fragment{}, nil, fmt.Errorf("%w: %s", span.ErrNotFound, id)
	}
	matches, err := s.deps.Terms.Search(ctx, frag.Text)
	if err != nil {
		return frag, nil, fmt.Errorf("search terms for %q: %w", frag.Text, err)
	}
	return frag, matches, nil
}

// newPicker preselects the matches already attached to frag
func (s *Server) newPicker(frag model.Fragment, matches []model.TerminologyMatch) *terminology.Picker {
	p := terminology.NewPicker(matches, s.deps.PageSize)
	for _, m := range frag.Matches {
		p.ToggleCode(m.Code)
	}
	return p
}

func (s *Server) signIn(ctx context.Context, email, password string) (*model.User, error) {
	token, err := s.deps.Accounts.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.deps.State.Login(ctx, token, s.deps.Accounts), nil
}

func pickCodes(matches []model.TerminologyMatch, codes []string) []model.TerminologyMatch {
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	var out []model.TerminologyMatch
	for _, m := range matches {
		if want[m.Code] {
			out = append(out, m)
		}
	}
	return out
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errBadRequest, name, raw)
	}
	return n, nil
}

func paramID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, fmt.Errorf("%w: id %q", errBadRequest, c.Param("id"))
	}
	return id, nil
}

// Query session

func (s *Server) getState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.view(s.sessions.lookup(c)))
}

func (s *Server) submitQuery(c echo.Context) error {
	e := s.sessions.lookup(c)
	var req textRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	e.closePicker()
	return s.respond(c, e, s.submit(c.Request().Context(), e.flow, req.Text))
}

func (s *Server) draft(c echo.Context) error {
	e := s.sessions.lookup(c)
	var req textRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	e.closePicker()
	return s.respond(c, e, e.flow.Draft(req.Text))
}

func (s *Server) reset(c echo.Context) error {
	e := s.sessions.lookup(c)
	e.closePicker()
	e.flow.NewQuery()
	return s.respond(c, e, nil)
}

func (s *Server) editQuery(c echo.Context) error {
	e := s.sessions.lookup(c)
	return s.respond(c, e, e.flow.EditQuery())
}

func (s *Server) setEditMode(c echo.Context) error {
	e := s.sessions.lookup(c)
	var req editModeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return s.respond(c, e, e.flow.SetEditMode(req.On))
}

func (s *Server) selectFragment(c echo.Context) error {
	e := s.sessions.lookup(c)
	var req selectRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	frag, err := e.flow.Select(req.Start, req.End)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"fragment": frag,
		"session":  e.flow.Snapshot(),
	})
}

func (s *Server) clickFragment(c echo.Context) error {
	e := s.sessions.lookup(c)
	result, err := e.flow.Click(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"result":  result,
		"session": e.flow.Snapshot(),
	})
}

func (s *Server) fragmentTerms(c echo.Context) error {
	e := s.sessions.lookup(c)
	page, err := queryInt(c, "page", 0)
	if err != nil {
		return httpError(err)
	}

	frag, matches, err := s.termsFor(c.Request().Context(), e.flow, c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	p := s.newPicker(frag, matches)
	for i := 0; i < page && p.Next(); i++ {
	}

	selected := make([]string, 0)
	for _, m := range p.Selected() {
		selected = append(selected, m.Code)
	}
	return c.JSON(http.StatusOK, termsResponse{
		Fragment: frag,
		Items:    p.Items(),
		Selected: selected,
		Page:     p.Page(),
		Pages:    p.Pages(),
		Total:    p.Total(),
		Range:    p.RangeText(s.deps.State.Translator().T("term_validation.of")),
	})
}

func (s *Server) confirmFragment(c echo.Context) error {
	e := s.sessions.lookup(c)
	var req confirmRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	id := c.Param("id")
	_, matches, err := s.termsFor(c.Request().Context(), e.flow, id)
	if err != nil {
		return httpError(err)
	}
	return s.respond(c, e, e.flow.Confirm(id, pickCodes(matches, req.Codes)))
}

func (s *Server) generate(c echo.Context) error {
	e := s.sessions.lookup(c)
	return s.respond(c, e, e.flow.Generate(c.Request().Context()))
}

func (s *Server) editSQL(c echo.Context) error {
	e := s.sessions.lookup(c)
	var req sqlRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return s.respond(c, e, e.flow.EditSQL(req.SQL))
}

func (s *Server) checkSQL(c echo.Context) error {
	e := s.sessions.lookup(c)
	var req sqlRequest
	if c.Request().ContentLength > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	if req.SQL != "" {
		if err := e.flow.EditSQL(req.SQL); err != nil {
			return httpError(err)
		}
	}
	return s.respond(c, e, e.flow.CheckSQL(c.Request().Context()))
}

// Account

func (s *Server) login(c echo.Context) error {
	var req credentials
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := s.signIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"user": user})
}

func (s *Server) register(c echo.Context) error {
	var req credentials
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.deps.Accounts.Register(ctx, req.Email, req.Password); err != nil {
		return httpError(err)
	}
	user, err := s.signIn(ctx, req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) logout(c echo.Context) error {
	s.deps.State.Logout()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) me(c echo.Context) error {
	if err := s.requireAuth(); err != nil {
		return httpError(err)
	}
	user := s.deps.State.Refresh(c.Request().Context(), s.deps.Accounts)
	if user == nil {
		return httpError(flow.ErrAuthRequired)
	}
	return c.JSON(http.StatusOK, user)
}

// History

func (s *Server) listHistory(c echo.Context) error {
	if err := s.requireAuth(); err != nil {
		return httpError(err)
	}
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		return httpError(err)
	}
	limit, err := queryInt(c, "limit", s.deps.HistorySize)
	if err != nil {
		return httpError(err)
	}

	items, err := s.deps.History.History(c.Request().Context(), skip, limit)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []model.QuerySummary{}
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) getHistory(c echo.Context) error {
	if err := s.requireAuth(); err != nil {
		return httpError(err)
	}
	id, err := paramID(c)
	if err != nil {
		return httpError(err)
	}
	detail, err := s.deps.History.Query(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (s *Server) deleteHistory(c echo.Context) error {
	if err := s.requireAuth(); err != nil {
		return httpError(err)
	}
	id, err := paramID(c)
	if err != nil {
		return httpError(err)
	}
	if err := s.deps.History.DeleteQuery(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Preferences

func (s *Server) prefs() prefsResponse {
	st := s.deps.State
	return prefsResponse{Language: st.Language(), Theme: st.Theme(), ThemeSaved: st.ThemeSaved()}
}

func (s *Server) getPrefs(c echo.Context) error {
	return c.JSON(http.StatusOK, s.prefs())
}

func (s *Server) putPrefs(c echo.Context) error {
	var req prefsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.applyPrefs(req.Language, req.Theme); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.prefs())
}

// applyPrefs validates both values before changing either
func (s *Server) applyPrefs(language, themeName string) error {
	var (
		lang i18n.Language
		th   theme.Theme
		err  error
	)
	if language != "" {
		if lang, err = i18n.Parse(language); err != nil {
			return fmt.Errorf("%w: %v", errUnknownPref, err)
		}
	}
	if themeName != "" {
		if th, err = theme.Parse(themeName); err != nil {
			return fmt.Errorf("%w: %v", errUnknownPref, err)
		}
	}

	if language != "" {
		s.deps.State.SetLanguage(lang)
	}
	if themeName != "" {
		s.deps.State.SetTheme(th)
	}
	return nil
}
