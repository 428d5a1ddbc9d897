package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the terminology result cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired entries from the disk cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		disk := a.diskCache()
		if disk == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "no disk cache configured")
			return nil
		}
		removed, err := disk.Prune()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries from %s\n", removed, a.cfg.Cache.Dir)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the disk cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		disk := a.diskCache()
		if disk == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "no disk cache configured")
			return nil
		}
		if err := disk.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", a.cfg.Cache.Dir)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// diskCache returns the on-disk layer, or nil when caching stays in memory
func (a *app) diskCache() *cache.DiskCache {
	if !a.cfg.Cache.Enabled || a.cfg.Cache.Dir == "" {
		return nil
	}
	return cache.NewDiskCache(a.cfg.Cache.Dir, a.cfg.Cache.DiskTTL)
}

// pruneCache drops expired disk entries, logging instead of failing
func (a *app) pruneCache() {
	disk := a.diskCache()
	if disk == nil {
		return
	}
	removed, err := disk.Prune()
	if err != nil {
		a.log.Warn().Err(err).Str("dir", a.cfg.Cache.Dir).Msg("Pruning disk cache failed")
		return
	}
	a.log.Debug().Int("removed", removed).Str("dir", a.cfg.Cache.Dir).Msg("Disk cache pruned")
}
