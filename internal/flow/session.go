package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/span"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/worker"
)

// Extractor detects medical entities
type Extractor interface {
	Extract(ctx context.Context, text string, lang i18n.Language) ([]model.Entity, error)
}

// Generator turns a question and confirmed terms into SQL
type Generator interface {
	GenerateSQL(ctx context.Context, question string, terms []model.TermPair) (*model.SQLResult, error)
}

// Validator checks SQL against the clinical database
type Validator interface {
	ValidateSQL(ctx context.Context, sql, question string) (*model.Validation, error)
}

// HistoryLogger records submitted questions
type HistoryLogger interface {
	LogQuery(ctx context.Context, text string) error
}

// Prefetcher warms terminology lookups for new fragments
type Prefetcher interface {
	Prefetch(ctx context.Context, terms []string) int
}

// Auth reports whether a user is signed in
type Auth interface {
	IsAuthenticated() bool
}

// LanguageSource reports the interface language, which selects the extraction model
type LanguageSource interface {
	Language() i18n.Language
}

// Background runs fire-and-forget jobs shared by many sessions
type Background interface {
	Submit(job worker.Job) error
}

// Deps are the collaborators of a Session. Prefetcher and Background are
// optional; without Background each job gets its own goroutine.
type Deps struct {
	Extractor  Extractor
	Generator  Generator
	Validator  Validator
	History    HistoryLogger
	Prefetcher Prefetcher
	Auth       Auth
	Language   LanguageSource
	Background Background
}

const backgroundTimeout = 30 * time.Second

// Session is the state of one query. It is safe for concurrent use;
// backend calls run without holding the lock.
type Session struct {
	mu   sync.Mutex
	deps Deps
	log  zerolog.Logger

	state      State
	busy       Operation
	epoch      uint64 // bumped on reset; stale call results are discarded
	text       string
	fragments  *span.Set
	editMode   bool
	result     *model.SQLResult
	sql        string
	validation *model.Validation

	background sync.WaitGroup
}

// New creates a session in the drafting state
func New(deps Deps, log zerolog.Logger) *Session {
	return &Session{
		deps:      deps,
		log:       log,
		state:     Drafting,
		fragments: span.NewSet(),
	}
}

// State returns the current phase
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetText replaces the draft
func (s *Session) SetText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Drafting {
		return ErrReadOnly
	}
	if s.busy != OpNone {
		return ErrBusy
	}
	s.text = text
	return nil
}

// Submit sends the draft for term extraction and moves to fragments-pending.
// On failure the session stays in drafting.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.busy != OpNone {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state != Drafting {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if strings.TrimSpace(s.text) == "" {
		s.mu.Unlock()
		return ErrEmptyQuery
	}
	s.busy = OpExtracting
	text := s.text
	epoch := s.epoch
	s.mu.Unlock()

	if s.deps.Auth != nil && s.deps.Auth.IsAuthenticated() && s.deps.History != nil {
		s.logHistory(ctx, text)
	}

	entities, err := s.deps.Extractor.Extract(ctx, text, s.language())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return ErrDiscarded
	}
	s.busy = OpNone
	if err != nil {
		return fmt.Errorf("extract terms: %w", err)
	}

	set, dropped := span.FromEntities(text, entities)
	if dropped > 0 {
		s.log.Warn().Int("dropped", dropped).Int("kept", set.Len()).Msg("Discarded unusable extracted entities")
	}
	s.fragments = set
	s.state = FragmentsPending

	s.log.Info().Int("fragments", set.Len()).Msg("Terms extracted")

	if s.deps.Prefetcher != nil && set.Len() > 0 {
		terms := make([]string, 0, set.Len())
		for _, f := range set.Fragments() {
			terms = append(terms, f.Text)
		}
		s.prefetch(ctx, terms)
	}
	return nil
}

// Fragment returns one fragment by id
func (s *Session) Fragment(id string) (model.Fragment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fragments.Get(id)
}

// Fragments returns the fragments in document order
func (s *Session) Fragments() []model.Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fragments.Fragments()
}

// Segments returns the query split into plain and highlighted pieces
func (s *Session) Segments() []span.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return span.Reconcile(s.text, s.fragments.Fragments())
}

// AllConfirmed reports whether every fragment has a mapping
func (s *Session) AllConfirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fragments.AllConfirmed()
}

// Confirm attaches terminology matches to a fragment
func (s *Session) Confirm(id string, matches []model.TerminologyMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.reviewing() {
		return ErrInvalidTransition
	}
	if err := s.fragments.Confirm(id, matches); err != nil {
		return err
	}
	s.syncReviewState()
	return nil
}

// SetEditMode toggles adding and removing fragments
func (s *Session) SetEditMode(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if on && !s.reviewing() {
		return ErrInvalidTransition
	}
	s.editMode = on
	return nil
}

// EditMode reports whether edit mode is on
func (s *Session) EditMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editMode
}

// Click handles a click on a fragment: deletion in edit mode, otherwise a
// request to open term confirmation.
func (s *Session) Click(id string) (ClickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.reviewing() {
		return "", ErrInvalidTransition
	}
	if _, ok := s.fragments.Get(id); !ok {
		return "", fmt.Errorf("%w: %s", span.ErrNotFound, id)
	}
	if !s.editMode {
		return ClickConfirm, nil
	}
	if err := s.fragments.Delete(id); err != nil {
		return "", err
	}
	s.syncReviewState()
	return ClickDeleted, nil
}

// Select creates an unconfirmed fragment from the rune range [start,end) of
// the query, trimmed of surrounding whitespace
func (s *Session) Select(start, end int) (model.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.reviewing() {
		return model.Fragment{}, ErrInvalidTransition
	}
	if !s.editMode {
		return model.Fragment{}, ErrNotEditing
	}

	runes := []rune(s.text)
	if start < 0 || end > len(runes) || start >= end {
		return model.Fragment{}, fmt.Errorf("%w: [%d,%d) in text of length %d", span.ErrInvalidRange, start, end, len(runes))
	}
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	if start == end {
		return model.Fragment{}, fmt.Errorf("%w: selection is blank", span.ErrInvalidRange)
	}

	frag, err := s.fragments.Insert(model.Fragment{
		Text:  string(runes[start:end]),
		Start: start,
		End:   end,
	}, len(runes))
	if err != nil {
		return model.Fragment{}, err
	}
	s.syncReviewState()
	return frag, nil
}

// Generate requests SQL for the confirmed question
func (s *Session) Generate(ctx context.Context) error {
	s.mu.Lock()
	if s.busy != OpNone {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state != FragmentsConfirmed {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if !s.authenticated() {
		s.mu.Unlock()
		return ErrAuthRequired
	}
	s.busy = OpGenerating
	s.state = Generating
	s.editMode = false
	question := s.text
	terms := s.fragments.TermPairs()
	epoch := s.epoch
	s.mu.Unlock()

	result, err := s.deps.Generator.GenerateSQL(ctx, question, terms)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return ErrDiscarded
	}
	s.busy = OpNone
	if err != nil {
		s.state = FragmentsConfirmed
		return fmt.Errorf("generate sql: %w", err)
	}

	s.result = result
	s.sql = result.SQL
	s.validation = nil
	s.state = ResultReady

	s.log.Info().
		Bool("executable", result.IsExecutable).
		Int("attempts", result.AttemptsCount).
		Msg("SQL generated")
	return nil
}

// EditSQL replaces the SQL to be checked; any earlier check is discarded
func (s *Session) EditSQL(sql string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ResultReady {
		return ErrInvalidTransition
	}
	if s.busy != OpNone {
		return ErrBusy
	}
	s.sql = sql
	s.validation = nil
	return nil
}

// CheckSQL validates the current SQL against the clinical database
func (s *Session) CheckSQL(ctx context.Context) error {
	s.mu.Lock()
	if s.busy != OpNone {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state != ResultReady {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if !s.authenticated() {
		s.mu.Unlock()
		return ErrAuthRequired
	}
	if strings.TrimSpace(s.sql) == "" {
		s.mu.Unlock()
		return ErrEmptySQL
	}
	s.busy = OpChecking
	sql := s.sql
	question := s.text
	epoch := s.epoch
	s.mu.Unlock()

	validation, err := s.deps.Validator.ValidateSQL(ctx, sql, question)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return ErrDiscarded
	}
	s.busy = OpNone
	if err != nil {
		return fmt.Errorf("check sql: %w", err)
	}
	s.validation = validation
	return nil
}

// NewQuery discards everything and returns to an empty draft.
// Results of calls still in flight are ignored.
func (s *Session) NewQuery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Draft starts a new query pre-filled with text, e.g. from history.
// Unlike NewQuery it refuses to discard a call in flight.
func (s *Session) Draft(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy != OpNone {
		return ErrBusy
	}
	s.reset()
	s.text = text
	return nil
}

// EditQuery leaves the result and goes back to the confirmed fragments
func (s *Session) EditQuery() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ResultReady {
		return ErrInvalidTransition
	}
	if s.busy != OpNone {
		return ErrBusy
	}
	s.result = nil
	s.sql = ""
	s.validation = nil
	s.syncReviewState()
	return nil
}

// Wait blocks until background work (history logging, prefetch) started
// outside Deps.Background finishes
func (s *Session) Wait() {
	s.background.Wait()
}

func (s *Session) reset() {
	s.epoch++
	s.state = Drafting
	s.busy = OpNone
	s.text = ""
	s.fragments = span.NewSet()
	s.editMode = false
	s.result = nil
	s.sql = ""
	s.validation = nil
}

// reviewing reports whether fragments may be confirmed, added or removed
func (s *Session) reviewing() bool {
	return s.busy == OpNone && (s.state == FragmentsPending || s.state == FragmentsConfirmed)
}

// syncReviewState derives pending/confirmed from the fragment set
func (s *Session) syncReviewState() {
	if s.fragments.AllConfirmed() {
		s.state = FragmentsConfirmed
	} else {
		s.state = FragmentsPending
	}
}

func (s *Session) authenticated() bool {
	return s.deps.Auth != nil && s.deps.Auth.IsAuthenticated()
}

func (s *Session) language() i18n.Language {
	if s.deps.Language == nil {
		return i18n.Default
	}
	return s.deps.Language.Language()
}

func (s *Session) logHistory(ctx context.Context, text string) {
	s.spawn(ctx, func(ctx context.Context) error {
		if err := s.deps.History.LogQuery(ctx, text); err != nil {
			return fmt.Errorf("save query to history: %w", err)
		}
		return nil
	})
}

func (s *Session) prefetch(ctx context.Context, terms []string) {
	s.spawn(ctx, func(ctx context.Context) error {
		if failed := s.deps.Prefetcher.Prefetch(ctx, terms); failed > 0 {
			s.log.Debug().Int("failed", failed).Int("terms", len(terms)).Msg("Terminology prefetch incomplete")
		}
		return nil
	})
}

// spawn runs fn detached from the caller's cancellation, on Deps.Background
// when one is set and still open
func (s *Session) spawn(ctx context.Context, fn func(context.Context) error) {
	run := func(base context.Context) error {
		bgCtx, cancel := context.WithTimeout(base, backgroundTimeout)
		defer cancel()
		return fn(bgCtx)
	}

	if s.deps.Background != nil {
		if err := s.deps.Background.Submit(worker.JobFunc(run)); err == nil {
			return
		}
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := run(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn().Err(err).Msg("Background job failed")
		}
	}()
}
