package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/theme"
)

// UserFetcher resolves the account behind a token
type UserFetcher interface {
	Me(ctx context.Context, token string) (*model.User, error)
}

// State is the process-wide session: token, user, language and theme.
// It is read from the store once at Load and written through on every change.
// Store failures are logged and never surface to callers.
type State struct {
	mu    sync.RWMutex
	store Store
	log   zerolog.Logger

	token      string
	user       *model.User
	language   i18n.Language
	theme      theme.Theme
	themeSaved bool

	locales     []string
	systemTheme func() theme.Theme
}

// Option customises Load
type Option func(*State)

// WithLocales overrides the locale hints used when no language is saved
func WithLocales(locales ...string) Option {
	return func(s *State) { s.locales = locales }
}

// WithSystemTheme overrides how the system theme preference is read
func WithSystemTheme(fn func() theme.Theme) Option {
	return func(s *State) { s.systemTheme = fn }
}

// Load restores the state from the store
func Load(store Store, log zerolog.Logger, opts ...Option) *State {
	s := &State{
		store:       store,
		log:         log,
		locales:     []string{os.Getenv("LC_ALL"), os.Getenv("LC_MESSAGES"), os.Getenv("LANG")},
		systemTheme: theme.System,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.token = s.get(KeyToken)
	s.user = s.loadUser()
	s.language = s.loadLanguage()
	s.theme, s.themeSaved = s.loadTheme()

	return s
}

func (s *State) loadUser() *model.User {
	raw := s.get(KeyUser)
	if raw == "" {
		return nil
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Warn().Err(err).Msg("Discarding unreadable saved user")
		return nil
	}
	return &u
}

func (s *State) loadLanguage() i18n.Language {
	if saved := s.get(KeyLanguage); saved != "" {
		if lang, err := i18n.Parse(saved); err == nil {
			return lang
		}
		s.log.Warn().Str("language", saved).Msg("Ignoring unsupported saved language")
	}
	return i18n.Detect(s.locales...)
}

func (s *State) loadTheme() (theme.Theme, bool) {
	if saved := s.get(KeyTheme); saved != "" {
		if th, err := theme.Parse(saved); err == nil {
			return th, true
		}
		s.log.Warn().Str("theme", saved).Msg("Ignoring unsupported saved theme")
	}
	return s.systemTheme(), false
}

// Reload re-reads everything from the store, e.g. after another process
// logged in or changed preferences
func (s *State) Reload() {
	token, _, err := s.store.Get(KeyToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("Reloading saved state failed, keeping current values")
		return
	}
	user := s.loadUser()
	lang := s.loadLanguage()
	th, saved := s.loadTheme()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	s.language = lang
	s.theme = th
	s.themeSaved = saved
}

// Token returns the bearer token, empty when logged out
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a token is held
func (s *State) IsAuthenticated() bool {
	return s.Token() != ""
}

// User returns a copy of the current user, nil when unknown
func (s *State) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Login stores the token and resolves the user. When the user cannot be
// fetched, one is derived from the token's user_id claim.
func (s *State) Login(ctx context.Context, token string, users UserFetcher) *model.User {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.set(KeyToken, token)

	return s.Refresh(ctx, users)
}

// Refresh re-resolves the user for the held token. It returns nil when
// logged out or when neither the backend nor the token identify a user.
func (s *State) Refresh(ctx context.Context, users UserFetcher) *model.User {
	token := s.Token()
	if token == "" {
		return nil
	}

	userID, hasID := UserIDFromToken(token)

	var user *model.User
	if users != nil {
		u, err := users.Me(ctx, token)
		if err != nil {
			s.log.Warn().Err(err).Msg("Fetching current user failed")
		} else {
			user = u
		}
	}
	if user == nil && hasID {
		user = &model.User{
			ID:       userID,
			Email:    fmt.Sprintf("user%d@example.com", userID),
			IsActive: true,
		}
	}
	if user == nil {
		return s.User()
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	if data, err := json.Marshal(user); err == nil {
		s.set(KeyUser, string(data))
	}

	u := *user
	return &u
}

// Logout clears the token and user
func (s *State) Logout() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	s.del(KeyToken)
	s.del(KeyUser)
}

// Language returns the interface language
func (s *State) Language() i18n.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// SetLanguage changes and persists the interface language
func (s *State) SetLanguage(lang i18n.Language) {
	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()
	s.set(KeyLanguage, string(lang))
}

// Theme returns the active theme
func (s *State) Theme() theme.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// ThemeSaved reports whether the theme was chosen explicitly rather than
// following the system preference
func (s *State) ThemeSaved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.themeSaved
}

// SetTheme changes and persists the theme
func (s *State) SetTheme(th theme.Theme) {
	s.mu.Lock()
	s.theme = th
	s.themeSaved = true
	s.mu.Unlock()
	s.set(KeyTheme, string(th))
}

// ToggleTheme switches between light and dark and returns the new theme
func (s *State) ToggleTheme() theme.Theme {
	next := s.Theme().Toggle()
	s.SetTheme(next)
	return next
}

// Translator returns a translator for the current language
func (s *State) Translator() *i18n.Translator {
	return i18n.NewTranslator(s.Language(), s.log)
}

func (s *State) get(key string) string {
	v, ok, err := s.store.Get(key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Reading saved state failed")
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (s *State) set(key, value string) {
	if err := s.store.Set(key, value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Saving state failed")
	}
}

func (s *State) del(key string) {
	if err := s.store.Delete(key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Clearing saved state failed")
	}
}

// UserIDFromToken extracts the user_id claim without verifying the signature.
// The client never holds the signing key; the backend verifies on every call.
func UserIDFromToken(token string) (int, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, false
	}

	switch v := claims["user_id"].(type) {
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
