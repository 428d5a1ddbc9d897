package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/session"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/web"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the query editor in the browser",
	Long: `Serve starts a local web UI with the same query flow as 'cortex ask'.
Sign-in and preferences are shared with the CLI through the session store.

Example:
  cortex serve
  cortex serve --addr 127.0.0.1:8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	_ = viper.BindPFlag("web.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()
	a.pruneCache()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// History logging and prefetch for every browser share one pool
	a.pool = worker.NewPool(a.cfg.Concurrency.PrefetchWorkers, func(err error) {
		a.log.Warn().Err(err).Msg("Background job failed")
	})
	a.pool.Start()
	defer a.pool.Close()

	if fs, ok := a.store.(*session.FileStore); ok {
		watchStore(ctx, a, fs)
	}

	srv := web.New(web.Deps{
		State:       a.state,
		Accounts:    a.client,
		History:     a.client,
		Terms:       a.searcher,
		NewFlow:     a.newFlow,
		PageSize:    a.cfg.Terminology.PageSize,
		SessionTTL:  a.cfg.Web.SessionTTL,
		CORSOrigins: a.cfg.Web.CORSOrigins,
	}, a.log)

	fmt.Fprintf(cmd.OutOrStdout(), "cortex listening on http://%s\n", a.cfg.Web.Addr)
	return srv.Run(ctx, a.cfg.Web.Addr)
}

// watchStore picks up logins and preference changes made by other cortex commands
func watchStore(ctx context.Context, a *app, fs *session.FileStore) {
	changes, err := fs.Watch(ctx)
	if err != nil {
		a.log.Warn().Err(err).Str("path", fs.Path()).Msg("Not watching session file")
		return
	}
	go func() {
		for range changes {
			a.state.Reload()
			a.log.Debug().Str("path", fs.Path()).Msg("Session file changed, preferences reloaded")
		}
	}()
}
