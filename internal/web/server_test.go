package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/api"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/flow"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/session"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/theme"
)

const query = "Patients with breast cancer in upper inner quadrant of breast treated with lumpectomy"

type fakeBackend struct {
	mu            sync.Mutex
	deleted       []int
	checked       []string
	generateBlock chan struct{} // when set, GenerateSQL waits on it
}

func (f *fakeBackend) Extract(_ context.Context, _ string, _ i18n.Language) ([]model.Entity, error) {
	return []model.Entity{
		{Word: "upper inner quadrant of breast", Start: 31, End: 61},
		{Word: "lumpectomy", Start: 75, End: 85},
	}, nil
}

func (f *fakeBackend) GenerateSQL(_ context.Context, question string, terms []model.TermPair) (*model.SQLResult, error) {
	f.mu.Lock()
	block := f.generateBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return &model.SQLResult{Question: question, SQL: "SELECT COUNT(*) FROM person", IsExecutable: true, AttemptsCount: 1}, nil
}

func (f *fakeBackend) ValidateSQL(_ context.Context, sql, _ string) (*model.Validation, error) {
	f.mu.Lock()
	f.checked = append(f.checked, sql)
	f.mu.Unlock()
	return &model.Validation{SQL: sql, IsValid: true, IsExecutable: true}, nil
}

func (f *fakeBackend) LogQuery(context.Context, string) error { return nil }

func (f *fakeBackend) Login(_ context.Context, email, password string) (string, error) {
	if password != "secret" {
		return "", &api.Error{Method: http.MethodPost, Path: "/auth/login", Status: http.StatusUnauthorized, Detail: "Incorrect email or password"}
	}
	return "token-for-" + email, nil
}

func (f *fakeBackend) Register(_ context.Context, email, _ string) (*model.User, error) {
	return &model.User{ID: 2, Email: email, IsActive: true}, nil
}

func (f *fakeBackend) Me(_ context.Context, token string) (*model.User, error) {
	return &model.User{ID: 1, Email: strings.TrimPrefix(token, "token-for-"), IsActive: true}, nil
}

func (f *fakeBackend) History(_ context.Context, _, _ int) ([]model.QuerySummary, error) {
	return []model.QuerySummary{{ID: 7, Question: "Patients with asthma", IsExecutable: true}}, nil
}

func (f *fakeBackend) Query(_ context.Context, id int) (*model.QueryDetail, error) {
	if id != 7 {
		return nil, &api.Error{Method: http.MethodGet, Path: fmt.Sprintf("/queries/%d", id), Status: http.StatusNotFound, Detail: "Query not found"}
	}
	return &model.QueryDetail{QuerySummary: model.QuerySummary{ID: 7, Question: "Patients with asthma"}}, nil
}

func (f *fakeBackend) DeleteQuery(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

// Search returns 20 candidates for any term
func (f *fakeBackend) Search(_ context.Context, term string) ([]model.TerminologyMatch, error) {
	out := make([]model.TerminologyMatch, 20)
	for i := range out {
		out[i] = model.TerminologyMatch{Term: term, Code: fmt.Sprintf("%d", 100+i), Label: fmt.Sprintf("%s %d", term, i), Similarity: 0.9}
	}
	return out, nil
}

func newServer(t *testing.T) (*Server, *fakeBackend, *session.State) {
	t.Helper()
	b := &fakeBackend{}
	st := session.Load(session.NewMemoryStore(), zerolog.Nop(),
		session.WithLocales("en_US.UTF-8"),
		session.WithSystemTheme(func() theme.Theme { return theme.Light }))

	srv := New(Deps{
		State:    st,
		Accounts: b,
		History:  b,
		Terms:    b,
		NewFlow: func() *flow.Session {
			return flow.New(flow.Deps{
				Extractor: b,
				Generator: b,
				Validator: b,
				History:   b,
				Auth:      st,
				Language:  st,
			}, zerolog.Nop())
		},
	}, zerolog.Nop())
	return srv, b, st
}

// browser replays the session cookie like a real client
type browser struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, srv *Server) *browser {
	return &browser{t: t, h: srv.Handler(), cookies: map[string]*http.Cookie{}}
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) json(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			b.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return b.send(req)
}

func (b *browser) form(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, want, rec.Body.String())
	}
}

func submitQuery(t *testing.T, b *browser) stateResponse {
	t.Helper()
	rec := b.json(http.MethodPost, "/api/query", textRequest{Text: query})
	expectStatus(t, rec, http.StatusOK)
	return decode[stateResponse](t, rec)
}

func TestAPI_QueryFlow(t *testing.T) {
	srv, b, _ := newServer(t)
	br := newBrowser(t, srv)

	state := submitQuery(t, br)
	if state.Session.State != flow.FragmentsPending || len(state.Session.Fragments) != 2 {
		t.Fatalf("unexpected session after submit: %+v", state.Session)
	}

	first := state.Session.Fragments[0]
	rec := br.get("/api/fragments/" + first.ID + "/terms")
	expectStatus(t, rec, http.StatusOK)
	terms := decode[termsResponse](t, rec)
	if len(terms.Items) != 15 || terms.Total != 20 || terms.Pages != 2 || terms.Range != "1–15 of 20" {
		t.Errorf("unexpected first page: %d items, %d total, %d pages, %q", len(terms.Items), terms.Total, terms.Pages, terms.Range)
	}

	rec = br.get("/api/fragments/" + first.ID + "/terms?page=1")
	expectStatus(t, rec, http.StatusOK)
	if terms := decode[termsResponse](t, rec); len(terms.Items) != 5 || terms.Page != 1 {
		t.Errorf("second page: %d items, page %d", len(terms.Items), terms.Page)
	}

	for _, f := range state.Session.Fragments {
		rec = br.json(http.MethodPost, "/api/fragments/"+f.ID+"/confirm", confirmRequest{Codes: []string{"101"}})
		expectStatus(t, rec, http.StatusOK)
	}
	state = decode[stateResponse](t, rec)
	if state.Session.State != flow.FragmentsConfirmed || !state.Session.AllConfirmed {
		t.Fatalf("expected confirmed session, got %s", state.Session.State)
	}

	expectStatus(t, br.json(http.MethodPost, "/api/generate", nil), http.StatusUnauthorized)

	rec = br.json(http.MethodPost, "/api/auth/login", credentials{Email: "doc@example.com", Password: "secret"})
	expectStatus(t, rec, http.StatusOK)

	rec = br.json(http.MethodPost, "/api/generate", nil)
	expectStatus(t, rec, http.StatusOK)
	state = decode[stateResponse](t, rec)
	if state.Session.State != flow.ResultReady || state.Session.SQL != "SELECT COUNT(*) FROM person" {
		t.Fatalf("unexpected result: %+v", state.Session)
	}
	if state.User == nil || state.User.Email != "doc@example.com" {
		t.Errorf("User = %+v", state.User)
	}

	rec = br.json(http.MethodPost, "/api/sql/check", sqlRequest{SQL: "SELECT 1"})
	expectStatus(t, rec, http.StatusOK)
	state = decode[stateResponse](t, rec)
	if state.Session.Validation == nil || state.Session.Validation.Outcome() != model.OutcomeExecutable {
		t.Errorf("Validation = %+v", state.Session.Validation)
	}
	if len(b.checked) != 1 || b.checked[0] != "SELECT 1" {
		t.Errorf("checked SQL = %v", b.checked)
	}
}

func TestAPI_SubmitWhileGenerating(t *testing.T) {
	srv, b, _ := newServer(t)
	br := newBrowser(t, srv)

	expectStatus(t, br.json(http.MethodPost, "/api/auth/login", credentials{Email: "doc@example.com", Password: "secret"}), http.StatusOK)
	state := submitQuery(t, br)
	for _, f := range state.Session.Fragments {
		expectStatus(t, br.json(http.MethodPost, "/api/fragments/"+f.ID+"/confirm", confirmRequest{Codes: []string{"101"}}), http.StatusOK)
	}

	b.mu.Lock()
	b.generateBlock = make(chan struct{})
	b.mu.Unlock()

	// The generate request runs on its own goroutine with a copy of the cookie
	req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
	for _, c := range br.cookies {
		req.AddCookie(c)
	}
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		done <- rec
	}()

	deadline := time.Now().Add(2 * time.Second)
	for decode[stateResponse](t, br.get("/api/state")).Session.Busy != flow.OpGenerating {
		if time.Now().After(deadline) {
			close(b.generateBlock)
			t.Fatal("Generation never started")
		}
		time.Sleep(time.Millisecond)
	}

	expectStatus(t, br.json(http.MethodPost, "/api/query", textRequest{Text: "Patients with asthma"}), http.StatusConflict)
	expectStatus(t, br.json(http.MethodPost, "/api/draft", textRequest{Text: "Patients with asthma"}), http.StatusConflict)

	close(b.generateBlock)
	rec := <-done
	expectStatus(t, rec, http.StatusOK)
	state = decode[stateResponse](t, rec)
	if state.Session.State != flow.ResultReady || state.Session.Result == nil {
		t.Fatalf("Expected the generation to finish, got %+v", state.Session)
	}
	if state.Session.Text != query || len(state.Session.Fragments) != 2 {
		t.Errorf("Confirmed query was replaced: %+v", state.Session)
	}
}

func TestAPI_SessionsAreIsolated(t *testing.T) {
	srv, _, _ := newServer(t)
	a := newBrowser(t, srv)
	other := newBrowser(t, srv)

	submitQuery(t, a)

	rec := other.get("/api/state")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[stateResponse](t, rec); got.Session.State != flow.Drafting {
		t.Errorf("second browser sees state %s", got.Session.State)
	}
	if srv.sessions.Len() != 2 {
		t.Errorf("sessions = %d, want 2", srv.sessions.Len())
	}
}

func TestAPI_Select(t *testing.T) {
	srv, _, _ := newServer(t)
	br := newBrowser(t, srv)
	submitQuery(t, br)

	expectStatus(t, br.json(http.MethodPost, "/api/fragments", selectRequest{Start: 0, End: 8}), http.StatusConflict)

	expectStatus(t, br.json(http.MethodPut, "/api/edit-mode", editModeRequest{On: true}), http.StatusOK)

	expectStatus(t, br.json(http.MethodPost, "/api/fragments", selectRequest{Start: 40, End: 50}), http.StatusConflict)
	expectStatus(t, br.json(http.MethodPost, "/api/fragments", selectRequest{Start: 5, End: 500}), http.StatusBadRequest)

	rec := br.json(http.MethodPost, "/api/fragments", selectRequest{Start: 0, End: 9})
	expectStatus(t, rec, http.StatusCreated)
	got := decode[struct {
		Fragment model.Fragment `json:"fragment"`
		Session  flow.Snapshot  `json:"session"`
	}](t, rec)
	if got.Fragment.Text != "Patients" || len(got.Session.Fragments) != 3 {
		t.Errorf("selected %q, %d fragments", got.Fragment.Text, len(got.Session.Fragments))
	}

	rec = br.json(http.MethodPost, "/api/fragments/"+got.Fragment.ID+"/click", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"result":"deleted"`) {
		t.Errorf("click body = %s", rec.Body.String())
	}
}

func TestAPI_Errors(t *testing.T) {
	srv, _, _ := newServer(t)
	br := newBrowser(t, srv)

	expectStatus(t, br.json(http.MethodPost, "/api/query", textRequest{Text: "  "}), http.StatusBadRequest)
	expectStatus(t, br.get("/api/fragments/nope/terms"), http.StatusNotFound)
	expectStatus(t, br.json(http.MethodPost, "/api/edit-query", nil), http.StatusConflict)

	rec := br.json(http.MethodPost, "/api/auth/login", credentials{Email: "doc@example.com", Password: "wrong"})
	expectStatus(t, rec, http.StatusUnauthorized)
	if !strings.Contains(rec.Body.String(), "Incorrect email or password") {
		t.Errorf("login error body = %s", rec.Body.String())
	}
}

func TestAPI_History(t *testing.T) {
	srv, b, _ := newServer(t)
	br := newBrowser(t, srv)

	expectStatus(t, br.get("/api/history"), http.StatusUnauthorized)

	expectStatus(t, br.json(http.MethodPost, "/api/auth/register", credentials{Email: "new@example.com", Password: "secret"}), http.StatusCreated)

	rec := br.get("/api/history?skip=0&limit=10")
	expectStatus(t, rec, http.StatusOK)
	if items := decode[[]model.QuerySummary](t, rec); len(items) != 1 || items[0].ID != 7 {
		t.Errorf("history = %+v", items)
	}

	expectStatus(t, br.get("/api/history/7"), http.StatusOK)
	expectStatus(t, br.get("/api/history/8"), http.StatusNotFound)
	expectStatus(t, br.get("/api/history/abc"), http.StatusBadRequest)
	expectStatus(t, br.get("/api/history?limit=-1"), http.StatusBadRequest)

	expectStatus(t, br.json(http.MethodDelete, "/api/history/7", nil), http.StatusNoContent)
	if len(b.deleted) != 1 || b.deleted[0] != 7 {
		t.Errorf("deleted = %v", b.deleted)
	}

	expectStatus(t, br.json(http.MethodPost, "/api/auth/logout", nil), http.StatusNoContent)
	expectStatus(t, br.get("/api/auth/me"), http.StatusUnauthorized)
}

func TestAPI_Prefs(t *testing.T) {
	srv, _, st := newServer(t)
	br := newBrowser(t, srv)

	rec := br.json(http.MethodPut, "/api/prefs", prefsRequest{Language: "es", Theme: "dark"})
	expectStatus(t, rec, http.StatusOK)
	if st.Language() != i18n.Spanish || st.Theme() != theme.Dark {
		t.Errorf("prefs not applied: %s %s", st.Language(), st.Theme())
	}

	expectStatus(t, br.json(http.MethodPut, "/api/prefs", prefsRequest{Language: "fr", Theme: "light"}), http.StatusBadRequest)
	if st.Theme() != theme.Dark {
		t.Error("invalid request must not change any preference")
	}
}

func TestUI_ReviewAndConfirm(t *testing.T) {
	srv, _, _ := newServer(t)
	br := newBrowser(t, srv)

	rec := br.form("/ui/submit", url.Values{"text": {query}})
	expectStatus(t, rec, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q", loc)
	}

	rec = br.get("/")
	expectStatus(t, rec, http.StatusOK)
	page := rec.Body.String()
	if !strings.Contains(page, `class="chip chip-pending"`) || !strings.Contains(page, "lumpectomy") {
		t.Fatal("review page should show pending chips")
	}

	state := decode[stateResponse](t, br.get("/api/state"))
	id := state.Session.Fragments[1].ID

	rec = br.form("/ui/click", url.Values{"fragment": {id}})
	expectStatus(t, rec, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/?fragment="+id {
		t.Fatalf("Location = %q", loc)
	}

	page = br.get("/?fragment=" + id).Body.String()
	if !strings.Contains(page, `role="dialog"`) || !strings.Contains(page, "1–15 of 20") {
		t.Fatal("expected the term picker")
	}

	// Select on the first page, move to the second, confirm from there
	rec = br.form("/ui/confirm", url.Values{"fragment": {id}, "code": {"102"}, "move": {"next"}})
	expectStatus(t, rec, http.StatusSeeOther)
	if page := br.get("/?fragment=" + id).Body.String(); !strings.Contains(page, "16–20 of 20") {
		t.Error("expected the second page")
	}

	rec = br.form("/ui/confirm", url.Values{"fragment": {id}})
	expectStatus(t, rec, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q", loc)
	}

	state = decode[stateResponse](t, br.get("/api/state"))
	frag := state.Session.Fragments[1]
	if !frag.Confirmed || len(frag.Matches) != 1 || frag.Matches[0].Code != "102" {
		t.Errorf("fragment after confirm = %+v", frag)
	}
}

func TestUI_ConfirmWithoutSelection(t *testing.T) {
	srv, _, _ := newServer(t)
	br := newBrowser(t, srv)
	br.form("/ui/submit", url.Values{"text": {query}})
	id := decode[stateResponse](t, br.get("/api/state")).Session.Fragments[0].ID

	rec := br.form("/ui/confirm", url.Values{"fragment": {id}})
	expectStatus(t, rec, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/?fragment="+id {
		t.Errorf("Location = %q", loc)
	}
	if page := br.get("/?fragment=" + id).Body.String(); !strings.Contains(page, "Select at least one term") {
		t.Error("expected an error on the picker")
	}
}

func TestUI_ErrorFlashShownOnce(t *testing.T) {
	srv, _, _ := newServer(t)
	br := newBrowser(t, srv)

	expectStatus(t, br.form("/ui/submit", url.Values{"text": {""}}), http.StatusSeeOther)

	if page := br.get("/").Body.String(); !strings.Contains(page, "Error: query text is empty") {
		t.Error("expected error message")
	}
	if page := br.get("/").Body.String(); strings.Contains(page, "query text is empty") {
		t.Error("error should only be shown once")
	}
}

func TestUI_Login(t *testing.T) {
	srv, _, st := newServer(t)
	br := newBrowser(t, srv)

	br.form("/ui/login", url.Values{"email": {"doc@example.com"}, "password": {"wrong"}})
	if page := br.get("/").Body.String(); !strings.Contains(page, "Invalid credentials") {
		t.Error("expected invalid credentials message")
	}

	br.form("/ui/login", url.Values{"email": {"doc@example.com"}, "password": {"secret"}})
	if !st.IsAuthenticated() {
		t.Fatal("expected signed in")
	}
	page := br.get("/").Body.String()
	if !strings.Contains(page, "Login successful!") || !strings.Contains(page, "doc@example.com") {
		t.Error("expected signed-in header")
	}

	br.form("/ui/history", nil)
	if page := br.get("/").Body.String(); !strings.Contains(page, "Patients with asthma") {
		t.Error("expected history drawer")
	}

	br.form("/ui/logout", nil)
	if st.IsAuthenticated() {
		t.Error("expected signed out")
	}
}

func TestUI_Preferences(t *testing.T) {
	srv, _, st := newServer(t)
	br := newBrowser(t, srv)

	br.form("/ui/language", url.Values{"language": {"es"}})
	br.form("/ui/theme", nil)

	if st.Language() != i18n.Spanish || st.Theme() != theme.Dark {
		t.Errorf("prefs = %s %s", st.Language(), st.Theme())
	}
	if page := br.get("/").Body.String(); !strings.Contains(page, `lang="es"`) || !strings.Contains(page, "theme-dark") {
		t.Error("page should follow preferences")
	}
}
