package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/flow"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/terminology"
)

// CookieName identifies the browser's query session
const CookieName = "cortex_session"

// entry is one browser tab's query plus the page state around it
type entry struct {
	flow *flow.Session

	mu          sync.Mutex
	pickerFor   string
	picker      *terminology.Picker
	showHistory bool
	notice      string
	failure     string
}

// flash stores a one-shot message for the next page render
func (e *entry) flash(notice, failure string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notice, e.failure = notice, failure
}

func (e *entry) takeFlash() (notice, failure string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	notice, failure = e.notice, e.failure
	e.notice, e.failure = "", ""
	return notice, failure
}

func (e *entry) closePicker() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pickerFor, e.picker = "", nil
}

// Sessions maps session cookies to query sessions. Idle sessions expire.
type Sessions struct {
	mu      sync.Mutex
	entries *gocache.Cache
	ttl     time.Duration
	factory func() *flow.Session
}

// NewSessions creates a registry that builds new sessions with factory
func NewSessions(factory func() *flow.Session, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Sessions{
		entries: gocache.New(ttl, ttl/2),
		ttl:     ttl,
		factory: factory,
	}
}

// Len returns the number of live sessions
func (s *Sessions) Len() int {
	return s.entries.ItemCount()
}

// lookup returns the caller's session, creating it and setting the cookie
// when the request has none or it expired
func (s *Sessions) lookup(c echo.Context) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cookie, err := c.Cookie(CookieName); err == nil {
		if v, ok := s.entries.Get(cookie.Value); ok {
			e := v.(*entry)
			s.entries.Set(cookie.Value, e, s.ttl)
			return e
		}
	}

	id := uuid.NewString()
	e := &entry{flow: s.factory()}
	s.entries.Set(id, e, s.ttl)
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return e
}
