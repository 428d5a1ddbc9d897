package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/terminology"
)

var termsPage int

var termsCmd = &cobra.Command{
	Use:   "terms <term>",
	Short: "Look up terminology candidates for a medical term",
	Long: `Terms lists the concepts the similarity service returns for a term,
one page at a time, as the confirmation dialog shows them.

Example:
  cortex terms lumpectomy
  cortex terms "breast cancer" --page 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		term := strings.Join(args, " ")
		matches, err := a.searcher.Search(cmd.Context(), term)
		if err != nil {
			return err
		}

		p := terminology.NewPicker(matches, a.cfg.Terminology.PageSize)
		for i := 1; i < termsPage && p.Next(); i++ {
		}
		fmt.Fprint(cmd.OutOrStdout(), a.view().Picker(term, p))
		return nil
	},
}

func init() {
	termsCmd.Flags().IntVar(&termsPage, "page", 1, "page to show (1-based)")
	rootCmd.AddCommand(termsCmd)
}
