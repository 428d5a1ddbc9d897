package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/span"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/worker"
)

const lumpectomyQuery = "Patients with breast cancer in upper inner quadrant of breast treated with lumpectomy"

type fakeBackend struct {
	mu sync.Mutex

	entities    []model.Entity
	extractErr  error
	extractLang i18n.Language
	block       chan struct{} // when set, Extract waits on it

	result        *model.SQLResult
	generateErr   error
	generateBlock chan struct{} // when set, GenerateSQL waits on it
	terms       []model.TermPair

	validation  *model.Validation
	validateErr error
	validated   string

	logged  []string
	logErr  error
	fetched []string
}

func (f *fakeBackend) Extract(_ context.Context, _ string, lang i18n.Language) ([]model.Entity, error) {
	f.mu.Lock()
	f.extractLang = lang
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.entities, f.extractErr
}

func (f *fakeBackend) GenerateSQL(_ context.Context, _ string, terms []model.TermPair) (*model.SQLResult, error) {
	f.mu.Lock()
	block := f.generateBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms = terms
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	r := *f.result
	return &r, nil
}

func (f *fakeBackend) ValidateSQL(_ context.Context, sql, _ string) (*model.Validation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validated = sql
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	v := *f.validation
	return &v, nil
}

func (f *fakeBackend) LogQuery(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logged = append(f.logged, text)
	return f.logErr
}

func (f *fakeBackend) Prefetch(_ context.Context, terms []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, terms...)
	return 0
}

type fakeAuth struct{ ok bool }

func (a fakeAuth) IsAuthenticated() bool { return a.ok }

type fixedLanguage i18n.Language

func (l fixedLanguage) Language() i18n.Language { return i18n.Language(l) }

func newBackend() *fakeBackend {
	return &fakeBackend{
		entities: []model.Entity{
			{Word: "upper inner quadrant of breast", Start: 31, End: 61},
			{Word: "lumpectomy", Start: 75, End: 85},
		},
		result: &model.SQLResult{
			Question:      lumpectomyQuery,
			SQL:           "SELECT COUNT(*) FROM person",
			IsExecutable:  true,
			AttemptsCount: 1,
		},
		validation: &model.Validation{IsValid: true, IsExecutable: true},
	}
}

func newSession(b *fakeBackend, authenticated bool) *Session {
	return New(Deps{
		Extractor:  b,
		Generator:  b,
		Validator:  b,
		History:    b,
		Prefetcher: b,
		Auth:       fakeAuth{ok: authenticated},
		Language:   fixedLanguage(i18n.English),
	}, zerolog.Nop())
}

func match(code string) []model.TerminologyMatch {
	return []model.TerminologyMatch{{Term: "t", Code: code, Label: "L" + code}}
}

// submitted returns a session with the lumpectomy query extracted
func submitted(t *testing.T, b *fakeBackend, authenticated bool) *Session {
	t.Helper()
	s := newSession(b, authenticated)
	if err := s.SetText(lumpectomyQuery); err != nil {
		t.Fatal(err)
	}
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return s
}

// confirmedAll confirms every fragment
func confirmedAll(t *testing.T, s *Session) {
	t.Helper()
	for i, f := range s.Fragments() {
		if err := s.Confirm(f.ID, match(string(rune('a'+i)))); err != nil {
			t.Fatalf("Confirm failed: %v", err)
		}
	}
}

func TestSubmit_PopulatesFragments(t *testing.T) {
	b := newBackend()
	s := submitted(t, b, false)

	if s.State() != FragmentsPending {
		t.Errorf("State = %s", s.State())
	}
	frags := s.Fragments()
	if len(frags) != 2 || frags[0].Text != "upper inner quadrant of breast" {
		t.Fatalf("Fragments = %+v", frags)
	}
	if b.extractLang != i18n.English {
		t.Errorf("Extract language = %s", b.extractLang)
	}

	segs := s.Segments()
	if span.Join(segs) != lumpectomyQuery {
		t.Error("Segments do not reproduce the query")
	}
}

func TestSubmit_EmptyQuery(t *testing.T) {
	s := newSession(newBackend(), false)
	_ = s.SetText("   ")
	if err := s.Submit(context.Background()); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Expected ErrEmptyQuery, got %v", err)
	}
	if s.State() != Drafting {
		t.Errorf("State = %s", s.State())
	}
}

func TestSubmit_FailureKeepsDraft(t *testing.T) {
	b := newBackend()
	b.extractErr = errors.New("connection refused")
	s := newSession(b, false)
	_ = s.SetText("hola")

	if err := s.Submit(context.Background()); err == nil {
		t.Fatal("Expected error")
	}
	if s.State() != Drafting {
		t.Errorf("State = %s", s.State())
	}
	if err := s.SetText("hola de nuevo"); err != nil {
		t.Errorf("Draft should remain editable: %v", err)
	}
}

func TestSubmit_NoEntities(t *testing.T) {
	b := newBackend()
	b.entities = nil
	s := submitted(t, b, false)

	if s.State() != FragmentsPending {
		t.Errorf("State = %s", s.State())
	}
	if s.AllConfirmed() {
		t.Error("Empty set must not count as all confirmed")
	}
}

func TestSubmit_LogsHistoryWhenAuthenticated(t *testing.T) {
	b := newBackend()
	b.logErr = errors.New("history down")

	s := submitted(t, b, true)
	s.Wait()

	if len(b.logged) != 1 || b.logged[0] != lumpectomyQuery {
		t.Errorf("logged = %v", b.logged)
	}
	if s.State() != FragmentsPending {
		t.Error("History failure must not affect the flow")
	}
}

func TestSubmit_NoHistoryWhenAnonymous(t *testing.T) {
	b := newBackend()
	s := submitted(t, b, false)
	s.Wait()

	if len(b.logged) != 0 {
		t.Errorf("logged = %v", b.logged)
	}
}

func TestSubmit_PrefetchesTerms(t *testing.T) {
	b := newBackend()
	s := submitted(t, b, false)
	s.Wait()

	if len(b.fetched) != 2 {
		t.Errorf("fetched = %v", b.fetched)
	}
}

func TestSubmit_BackgroundPool(t *testing.T) {
	b := newBackend()
	b.logErr = errors.New("history down")

	var mu sync.Mutex
	var failures []error
	pool := worker.NewPool(2, func(err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	})
	pool.Start()

	s := New(Deps{
		Extractor:  b,
		Generator:  b,
		Validator:  b,
		History:    b,
		Prefetcher: b,
		Auth:       fakeAuth{ok: true},
		Language:   fixedLanguage(i18n.English),
		Background: pool,
	}, zerolog.Nop())
	if err := s.SetText(lumpectomyQuery); err != nil {
		t.Fatal(err)
	}
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	pool.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.logged) != 1 || len(b.fetched) != 2 {
		t.Errorf("logged = %v, fetched = %v", b.logged, b.fetched)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(failures) != 1 || !errors.Is(failures[0], b.logErr) {
		t.Errorf("Expected history failure reported to the pool, got %v", failures)
	}
}

func TestSubmit_ClosedPoolFallsBack(t *testing.T) {
	b := newBackend()
	pool := worker.NewPool(1, nil)
	pool.Start()
	pool.Close()

	s := New(Deps{
		Extractor:  b,
		Generator:  b,
		Validator:  b,
		History:    b,
		Auth:       fakeAuth{ok: true},
		Language:   fixedLanguage(i18n.English),
		Background: pool,
	}, zerolog.Nop())
	if err := s.SetText(lumpectomyQuery); err != nil {
		t.Fatal(err)
	}
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	s.Wait()

	if len(b.logged) != 1 {
		t.Errorf("logged = %v", b.logged)
	}
}

func TestSubmit_Busy(t *testing.T) {
	b := newBackend()
	b.block = make(chan struct{})
	s := newSession(b, false)
	_ = s.SetText(lumpectomyQuery)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for s.Snapshot().Busy != OpExtracting {
		if time.Now().After(deadline) {
			t.Fatal("Submit never became busy")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	if err := s.SetText("other"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for SetText, got %v", err)
	}

	close(b.block)
	if err := <-done; err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
}

func TestNewQuery_DiscardsInFlightExtraction(t *testing.T) {
	b := newBackend()
	b.block = make(chan struct{})
	s := newSession(b, false)
	_ = s.SetText(lumpectomyQuery)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()

	for s.Snapshot().Busy != OpExtracting {
		time.Sleep(time.Millisecond)
	}
	s.NewQuery()
	close(b.block)
	if err := <-done; !errors.Is(err, ErrDiscarded) {
		t.Errorf("Expected ErrDiscarded from the stale Submit, got %v", err)
	}

	snap := s.Snapshot()
	if snap.State != Drafting || snap.Text != "" || len(snap.Fragments) != 0 {
		t.Errorf("Stale extraction leaked into new query: %+v", snap)
	}
}

func TestSetText_ReadOnlyAfterSubmit(t *testing.T) {
	s := submitted(t, newBackend(), false)
	if err := s.SetText("changed"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
}

func TestConfirm_LastFragmentFlipsState(t *testing.T) {
	s := submitted(t, newBackend(), false)
	frags := s.Fragments()

	_ = s.Confirm(frags[0].ID, match("1"))
	if s.State() != FragmentsPending || s.AllConfirmed() {
		t.Error("One confirmation left; state should still be pending")
	}

	_ = s.Confirm(frags[1].ID, match("2"))
	if s.State() != FragmentsConfirmed || !s.AllConfirmed() {
		t.Errorf("State = %s after confirming all", s.State())
	}
}

func TestConfirm_Errors(t *testing.T) {
	s := submitted(t, newBackend(), false)

	if err := s.Confirm("missing", match("1")); !errors.Is(err, span.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.Confirm(s.Fragments()[0].ID, nil); !errors.Is(err, span.ErrNoMatches) {
		t.Errorf("Expected ErrNoMatches, got %v", err)
	}

	draft := newSession(newBackend(), false)
	if err := draft.Confirm("x", match("1")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition in drafting, got %v", err)
	}
}

func TestClick(t *testing.T) {
	s := submitted(t, newBackend(), false)
	frags := s.Fragments()

	res, err := s.Click(frags[0].ID)
	if err != nil || res != ClickConfirm {
		t.Errorf("Click outside edit mode = %s, %v", res, err)
	}
	if len(s.Fragments()) != 2 {
		t.Error("Click outside edit mode must not delete")
	}

	_ = s.SetEditMode(true)
	res, err = s.Click(frags[0].ID)
	if err != nil || res != ClickDeleted {
		t.Errorf("Click in edit mode = %s, %v", res, err)
	}

	remaining := s.Fragments()
	if len(remaining) != 1 || remaining[0].ID != frags[1].ID {
		t.Fatalf("remaining = %+v", remaining)
	}
	if remaining[0].Start != frags[1].Start || remaining[0].End != frags[1].End {
		t.Error("Deleting must not move other fragments")
	}
}

func TestClick_DeletingLastUnconfirmedConfirmsState(t *testing.T) {
	s := submitted(t, newBackend(), false)
	frags := s.Fragments()
	_ = s.Confirm(frags[0].ID, match("1"))

	_ = s.SetEditMode(true)
	if _, err := s.Click(frags[1].ID); err != nil {
		t.Fatal(err)
	}

	if s.State() != FragmentsConfirmed {
		t.Errorf("State = %s", s.State())
	}
}

func TestSelect(t *testing.T) {
	b := newBackend()
	b.entities = []model.Entity{{Word: "lumpectomy", Start: 75, End: 85}}
	s := submitted(t, b, false)

	if _, err := s.Select(14, 27); !errors.Is(err, ErrNotEditing) {
		t.Errorf("Expected ErrNotEditing, got %v", err)
	}

	_ = s.SetEditMode(true)

	// " breast cancer " trims to "breast cancer"
	frag, err := s.Select(13, 28)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if frag.Text != "breast cancer" || frag.Start != 14 || frag.End != 27 || frag.Confirmed {
		t.Errorf("frag = %+v", frag)
	}
	if len(s.Fragments()) != 2 {
		t.Errorf("Fragments = %d", len(s.Fragments()))
	}
}

func TestSelect_Rejections(t *testing.T) {
	s := submitted(t, newBackend(), false)
	_ = s.SetEditMode(true)
	before := s.Fragments()

	tests := []struct {
		name       string
		start, end int
		want       error
	}{
		{"overlap", 50, 70, span.ErrOverlap},
		{"blank", 13, 14, span.ErrInvalidRange},
		{"reversed", 20, 10, span.ErrInvalidRange},
		{"out of range", 80, 200, span.ErrInvalidRange},
		{"negative", -1, 5, span.ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Select(tt.start, tt.end); !errors.Is(err, tt.want) {
				t.Errorf("Select(%d,%d) = %v, want %v", tt.start, tt.end, err, tt.want)
			}
		})
	}

	if len(s.Fragments()) != len(before) {
		t.Error("Rejected selections must not change the set")
	}
}

func TestSelect_ReopensConfirmedState(t *testing.T) {
	s := submitted(t, newBackend(), false)
	confirmedAll(t, s)
	_ = s.SetEditMode(true)

	if _, err := s.Select(14, 27); err != nil {
		t.Fatal(err)
	}
	if s.State() != FragmentsPending {
		t.Errorf("State = %s, new unconfirmed fragment should reopen review", s.State())
	}
}

func TestSelect_RuneOffsets(t *testing.T) {
	b := newBackend()
	b.entities = nil
	s := newSession(b, false)
	_ = s.SetText("Pacientes con cáncer de mama y mastectomía")
	_ = s.Submit(context.Background())
	_ = s.SetEditMode(true)

	frag, err := s.Select(31, 42)
	if err != nil {
		t.Fatal(err)
	}
	if frag.Text != "mastectomía" {
		t.Errorf("Text = %q", frag.Text)
	}
}

func TestGenerate_RequiresAuth(t *testing.T) {
	b := newBackend()
	s := submitted(t, b, false)
	confirmedAll(t, s)

	if err := s.Generate(context.Background()); !errors.Is(err, ErrAuthRequired) {
		t.Errorf("Expected ErrAuthRequired, got %v", err)
	}
	if b.terms != nil {
		t.Error("Generator must not be called without auth")
	}
	if s.State() != FragmentsConfirmed {
		t.Errorf("State = %s", s.State())
	}
}

func TestGenerate_RequiresConfirmation(t *testing.T) {
	s := submitted(t, newBackend(), true)
	if err := s.Generate(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestGenerate_Success(t *testing.T) {
	b := newBackend()
	s := submitted(t, b, true)
	confirmedAll(t, s)
	_ = s.SetEditMode(true)

	if err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != ResultReady || snap.Result == nil || snap.SQL != "SELECT COUNT(*) FROM person" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.EditMode {
		t.Error("Edit mode should be off after generation")
	}
	if len(b.terms) != 2 || b.terms[0].Term != "upper inner quadrant of breast" || b.terms[0].Code != "a" {
		t.Errorf("terms = %+v", b.terms)
	}
}

func TestGenerate_FailureReturnsToConfirmed(t *testing.T) {
	b := newBackend()
	b.generateErr = errors.New("timeout")
	s := submitted(t, b, true)
	confirmedAll(t, s)

	if err := s.Generate(context.Background()); err == nil {
		t.Fatal("Expected error")
	}
	if s.State() != FragmentsConfirmed {
		t.Errorf("State = %s", s.State())
	}
	if s.Snapshot().Busy != OpNone {
		t.Error("Busy flag should be cleared")
	}
}

func resultReady(t *testing.T, b *fakeBackend) *Session {
	t.Helper()
	s := submitted(t, b, true)
	confirmedAll(t, s)
	if err := s.Generate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCheckSQL_UsesEditedSQL(t *testing.T) {
	b := newBackend()
	b.validation = &model.Validation{IsValid: true, IsExecutable: false, ExecutionError: "no such table"}
	s := resultReady(t, b)

	if err := s.EditSQL("SELECT * FROM persons"); err != nil {
		t.Fatal(err)
	}
	if err := s.CheckSQL(context.Background()); err != nil {
		t.Fatalf("CheckSQL failed: %v", err)
	}

	if b.validated != "SELECT * FROM persons" {
		t.Errorf("validated %q", b.validated)
	}
	snap := s.Snapshot()
	if snap.Validation == nil || snap.Validation.Outcome() != model.OutcomeNotExecutable {
		t.Errorf("validation = %+v", snap.Validation)
	}
	if !snap.SQLEdited {
		t.Error("Expected SQLEdited")
	}
}

func TestEditSQL_InvalidatesValidation(t *testing.T) {
	s := resultReady(t, newBackend())
	_ = s.CheckSQL(context.Background())
	if s.Snapshot().Validation == nil {
		t.Fatal("Expected validation")
	}

	_ = s.EditSQL("SELECT 2")
	if s.Snapshot().Validation != nil {
		t.Error("Editing SQL should discard the previous check")
	}
}

func TestCheckSQL_Errors(t *testing.T) {
	s := resultReady(t, newBackend())
	_ = s.EditSQL("   ")
	if err := s.CheckSQL(context.Background()); !errors.Is(err, ErrEmptySQL) {
		t.Errorf("Expected ErrEmptySQL, got %v", err)
	}

	draft := newSession(newBackend(), true)
	if err := draft.CheckSQL(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
	if err := draft.EditSQL("x"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestEditQuery(t *testing.T) {
	s := resultReady(t, newBackend())

	if err := s.EditQuery(); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.State != FragmentsConfirmed || snap.Result != nil || len(snap.Fragments) != 2 {
		t.Errorf("snapshot = %+v", snap)
	}

	if err := s.EditQuery(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestNewQuery_Resets(t *testing.T) {
	s := resultReady(t, newBackend())
	s.NewQuery()

	snap := s.Snapshot()
	if snap.State != Drafting || snap.Text != "" || len(snap.Fragments) != 0 || snap.Result != nil {
		t.Errorf("snapshot = %+v", snap)
	}
	if err := s.SetText("again"); err != nil {
		t.Errorf("SetText after reset: %v", err)
	}
}

func TestDraft(t *testing.T) {
	s := submitted(t, newBackend(), false)
	if err := s.Draft("from history"); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	if snap.State != Drafting || snap.Text != "from history" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestDraft_RefusesWhileBusy(t *testing.T) {
	b := newBackend()
	s := submitted(t, b, true)
	confirmedAll(t, s)

	b.mu.Lock()
	b.generateBlock = make(chan struct{})
	b.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Generate(context.Background()) }()
	for s.Snapshot().Busy != OpGenerating {
		time.Sleep(time.Millisecond)
	}

	if err := s.Draft("Patients with asthma"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	close(b.generateBlock)
	if err := <-done; err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if snap := s.Snapshot(); snap.State != ResultReady || snap.Result == nil {
		t.Errorf("Expected the in-flight generation to complete, got %+v", snap)
	}
}

func TestGenerate_DiscardedByNewQuery(t *testing.T) {
	b := newBackend()
	s := submitted(t, b, true)
	confirmedAll(t, s)

	b.mu.Lock()
	b.generateBlock = make(chan struct{})
	b.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Generate(context.Background()) }()
	for s.Snapshot().Busy != OpGenerating {
		time.Sleep(time.Millisecond)
	}
	s.NewQuery()
	close(b.generateBlock)

	if err := <-done; !errors.Is(err, ErrDiscarded) {
		t.Errorf("Expected ErrDiscarded, got %v", err)
	}
	if s.Snapshot().Result != nil {
		t.Error("Stale result leaked into the new query")
	}
}

func TestSetEditMode_OnlyWhileReviewing(t *testing.T) {
	s := newSession(newBackend(), false)
	if err := s.SetEditMode(true); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
	if err := s.SetEditMode(false); err != nil {
		t.Errorf("Turning edit mode off is always allowed: %v", err)
	}
}

func TestSnapshot_CanGenerate(t *testing.T) {
	s := submitted(t, newBackend(), true)
	if s.Snapshot().CanGenerate() {
		t.Error("Cannot generate with unconfirmed fragments")
	}
	confirmedAll(t, s)
	if !s.Snapshot().CanGenerate() {
		t.Error("Expected CanGenerate once all confirmed")
	}
}
