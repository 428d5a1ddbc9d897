// Package web serves the query editor as HTML pages and a JSON API.
// Each browser gets its own query session; sign-in and preferences are
// shared with the CLI through session.State.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/flow"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/session"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/terminology"
)

// Accounts signs users in against the backend
type Accounts interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password string) (*model.User, error)
	Me(ctx context.Context, token string) (*model.User, error)
}

// History reads and edits the signed-in user's saved queries
type History interface {
	History(ctx context.Context, skip, limit int) ([]model.QuerySummary, error)
	Query(ctx context.Context, id int) (*model.QueryDetail, error)
	DeleteQuery(ctx context.Context, id int) error
}

// Terms looks up terminology candidates for a fragment
type Terms interface {
	Search(ctx context.Context, term string) ([]model.TerminologyMatch, error)
}

// Deps wires the server to the rest of the client
type Deps struct {
	State    *session.State
	Accounts Accounts
	History  History
	Terms    Terms
	NewFlow  func() *flow.Session

	PageSize    int
	HistorySize int
	SessionTTL  time.Duration
	CORSOrigins []string
}

const shutdownTimeout = 10 * time.Second

// Server is the local web UI
type Server struct {
	echo     *echo.Echo
	deps     Deps
	sessions *Sessions
	log      zerolog.Logger
}

// New builds the server and registers its routes
func New(deps Deps, log zerolog.Logger) *Server {
	if deps.PageSize <= 0 {
		deps.PageSize = terminology.DefaultPageSize
	}
	if deps.HistorySize <= 0 {
		deps.HistorySize = 50
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(Recovery(log))
	e.Use(RequestID())
	e.Use(Logger(log))
	e.Use(SecurityHeaders())
	e.Use(echomw.BodyLimit("1M"))
	if len(deps.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderContentType, RequestIDHeader},
			AllowCredentials: true,
		}))
	}

	s := &Server{
		echo:     e,
		deps:     deps,
		sessions: NewSessions(deps.NewFlow, deps.SessionTTL),
		log:      log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/", s.page)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	api.GET("/state", s.getState)
	api.POST("/query", s.submitQuery)
	api.POST("/draft", s.draft)
	api.POST("/reset", s.reset)
	api.POST("/edit-query", s.editQuery)
	api.PUT("/edit-mode", s.setEditMode)
	api.POST("/fragments", s.selectFragment)
	api.POST("/fragments/:id/click", s.clickFragment)
	api.GET("/fragments/:id/terms", s.fragmentTerms)
	api.POST("/fragments/:id/confirm", s.confirmFragment)
	api.POST("/generate", s.generate)
	api.PUT("/sql", s.editSQL)
	api.POST("/sql/check", s.checkSQL)
	api.POST("/auth/login", s.login)
	api.POST("/auth/register", s.register)
	api.POST("/auth/logout", s.logout)
	api.GET("/auth/me", s.me)
	api.GET("/history", s.listHistory)
	api.GET("/history/:id", s.getHistory)
	api.DELETE("/history/:id", s.deleteHistory)
	api.GET("/prefs", s.getPrefs)
	api.PUT("/prefs", s.putPrefs)

	ui := e.Group("/ui")
	ui.POST("/submit", s.uiSubmit)
	ui.POST("/draft", s.uiDraft)
	ui.POST("/reset", s.uiReset)
	ui.POST("/edit-query", s.uiEditQuery)
	ui.POST("/edit-mode", s.uiEditMode)
	ui.POST("/click", s.uiClick)
	ui.POST("/select", s.uiSelect)
	ui.POST("/confirm", s.uiConfirm)
	ui.POST("/generate", s.uiGenerate)
	ui.POST("/sql", s.uiCheckSQL)
	ui.POST("/login", s.uiLogin)
	ui.POST("/logout", s.uiLogout)
	ui.POST("/language", s.uiLanguage)
	ui.POST("/theme", s.uiTheme)
	ui.POST("/history", s.uiHistory)
	ui.POST("/history/delete", s.uiDeleteHistory)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Starting web UI")
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down web UI")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
