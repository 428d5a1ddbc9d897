package cli

import (
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/api"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/cache"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/flow"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/render"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/session"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/terminology"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/worker"
)

// app is the composition root shared by all commands
type app struct {
	cfg      *model.Config
	log      zerolog.Logger
	store    session.Store
	state    *session.State
	client   *api.Client
	searcher *terminology.Searcher
	pool     *worker.Pool // set by long-running commands

	closeStore func() error
}

// newApp loads config and wires the client. Callers must Close it.
func newApp(cmd *cobra.Command, jsonLogs bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, jsonLogs)

	store, closeStore, dir := openStoreOrMemory(cfg.Storage, log)
	if cfg.Cache.Enabled && cfg.Cache.Dir == "" && dir != "" && cfg.Storage.Backend != model.StorageMemory {
		cfg.Cache.Dir = filepath.Join(dir, "cache")
	}

	state := session.Load(store, log)
	client := api.NewClient(cfg, state, log)
	searcher := terminology.NewSearcher(client, cache.New(cfg.Cache), cfg.Concurrency.PrefetchWorkers, log)

	log.Debug().
		Str("api", cfg.API.BaseURL).
		Str("medical", cfg.MedicalBaseURL()).
		Str("storage", cfg.Storage.Backend).
		Msg("Client configured")

	return &app{
		cfg:        cfg,
		log:        log,
		store:      store,
		state:      state,
		client:     client,
		searcher:   searcher,
		closeStore: closeStore,
	}, nil
}

// newFlow starts a query session wired to the backend
func (a *app) newFlow() *flow.Session {
	deps := flow.Deps{
		Extractor:  a.client,
		Generator:  a.client,
		Validator:  a.client,
		History:    a.client,
		Prefetcher: a.searcher,
		Auth:       a.state,
		Language:   a.state,
	}
	if a.pool != nil {
		deps.Background = a.pool
	}
	return flow.New(deps, a.log)
}

// view renders with the current language and theme
func (a *app) view() *render.Terminal {
	return render.NewTerminal(a.state.Theme(), a.state.Translator())
}

func (a *app) requireAuth() error {
	if !a.state.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

func (a *app) Close() {
	if a.closeStore == nil {
		return
	}
	if err := a.closeStore(); err != nil {
		a.log.Warn().Err(err).Msg("Closing session store failed")
	}
}

// openStoreOrMemory opens the configured store and degrades to memory when
// the home directory or the store is unusable. The returned dir is empty
// when nothing should be written to disk.
func openStoreOrMemory(cfg model.StorageConfig, log zerolog.Logger) (session.Store, func() error, string) {
	memory := func() (session.Store, func() error, string) {
		return session.NewMemoryStore(), func() error { return nil }, ""
	}

	dir, err := cortexDir()
	if err != nil {
		dir = ""
		if cfg.Backend != model.StorageMemory && cfg.Path == "" {
			log.Warn().Err(err).Msg("No home directory, keeping the session in memory")
			return memory()
		}
	}

	store, closeStore, err := openStore(cfg, dir)
	if err != nil {
		log.Warn().Err(err).Str("storage", cfg.Backend).Msg("Session store unavailable, keeping the session in memory")
		return memory()
	}
	if cfg.Backend == model.StorageMemory {
		dir = ""
	}
	return store, closeStore, dir
}

// openStore builds the configured session store
func openStore(cfg model.StorageConfig, dir string) (session.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case model.StorageMemory:
		return session.NewMemoryStore(), noop, nil
	case model.StorageSQLite:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(dir, "state.db")
		}
		store, err := session.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(dir, "state.yaml")
		}
		return session.NewFileStore(path), noop, nil
	}
}

// newLogger writes human-readable logs, or JSON for long-running services
func newLogger(w io.Writer, level string, jsonLogs bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}

	if jsonLogs && !verbose {
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).With().Timestamp().Logger()
}
