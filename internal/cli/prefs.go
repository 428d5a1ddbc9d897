package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/i18n"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/theme"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change language and theme",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		source := "saved"
		if !a.state.ThemeSaved() {
			source = "system"
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "language: %s\n", a.state.Language())
		fmt.Fprintf(out, "theme:    %s (%s)\n", a.state.Theme(), source)
		return nil
	},
}

var prefsLanguageCmd = &cobra.Command{
	Use:       "language <es|en>",
	Short:     "Set the interface and extraction language",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(i18n.Spanish), string(i18n.English)},
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := i18n.Parse(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		a.state.SetLanguage(lang)
		fmt.Fprintf(cmd.OutOrStdout(), "language: %s\n", lang)
		return nil
	},
}

var prefsThemeCmd = &cobra.Command{
	Use:       "theme <light|dark|toggle>",
	Short:     "Set the colour theme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(theme.Light), string(theme.Dark), "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		var th theme.Theme
		if args[0] == "toggle" {
			th = a.state.ToggleTheme()
		} else {
			if th, err = theme.Parse(args[0]); err != nil {
				return err
			}
			a.state.SetTheme(th)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "theme: %s\n", th)
		return nil
	},
}

func init() {
	prefsCmd.AddCommand(prefsLanguageCmd, prefsThemeCmd)
	rootCmd.AddCommand(prefsCmd)
}
