package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "backend: %s\n", a.client.BaseURL())

		health, err := a.client.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("backend unavailable: %w", err)
		}
		fmt.Fprintf(out, "status:  %s\n", health.Status)

		keys := make([]string, 0, len(health.Details))
		for k := range health.Details {
			if k != "status" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %v\n", k, health.Details[k])
		}

		if a.state.IsAuthenticated() {
			if user := a.state.User(); user != nil {
				fmt.Fprintf(out, "user:    %s\n", user.Email)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
