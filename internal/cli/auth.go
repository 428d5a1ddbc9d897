package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/api"
)

var errNotSignedIn = errors.New("not signed in: run 'cortex login' first")

var (
	authEmail    string
	authPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the CORTEX backend",
	Long: `Sign in and keep the session token in the configured store.

Without --email/--password the values are read from standard input.
CORTEX_PASSWORD can be used instead of --password.`,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		a.state.Logout()
		fmt.Fprintln(cmd.OutOrStdout(), a.state.Translator().T("login.logged_out"))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.requireAuth(); err != nil {
			return err
		}
		user := a.state.Refresh(cmd.Context(), a.client)
		if user == nil {
			return errNotSignedIn
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "account email")
		c.Flags().StringVar(&authPassword, "password", "", "account password")
	}
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

// credentials fills in whatever the flags did not provide
func credentials(cmd *cobra.Command) (email, password string, err error) {
	email, password = authEmail, authPassword
	if password == "" {
		password = os.Getenv("CORTEX_PASSWORD")
	}

	in := bufio.NewScanner(cmd.InOrStdin())
	if email == "" {
		if email, err = prompt(cmd.OutOrStdout(), in, "Email: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = prompt(cmd.OutOrStdout(), in, "Password: "); err != nil {
			return "", "", err
		}
	}
	if email == "" || password == "" {
		return "", "", errors.New("email and password are required")
	}
	return email, password, nil
}

func prompt(out io.Writer, in *bufio.Scanner, label string) (string, error) {
	fmt.Fprint(out, label)
	if !in.Scan() {
		if err := in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(in.Text()), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	email, password, err := credentials(cmd)
	if err != nil {
		return err
	}
	return signIn(cmd, a, email, password)
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	email, password, err := credentials(cmd)
	if err != nil {
		return err
	}

	tr := a.state.Translator()
	if _, err := a.client.Register(cmd.Context(), email, password); err != nil {
		return fmt.Errorf("%s: %s", tr.T("login.registration_error"), api.DetailOf(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), tr.T("login.register_success"))
	return signIn(cmd, a, email, password)
}

func signIn(cmd *cobra.Command, a *app, email, password string) error {
	tr := a.state.Translator()
	token, err := a.client.Login(cmd.Context(), email, password)
	if api.IsUnauthorized(err) {
		return errors.New(tr.T("login.invalid_credentials"))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", tr.T("login.auth_error"), err)
	}

	user := a.state.Login(cmd.Context(), token, a.client)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tr.T("login.login_success"))
	if user != nil {
		fmt.Fprintf(out, "%s (id %d)\n", user.Email, user.ID)
	}
	return nil
}
