package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eislager/eislager-pro/internal/session"
	"github.com/eislager/eislager-pro/sdk"
)

// loginOutput is the JSON form of a login.
type loginOutput struct {
	User      sdk.User      `json:"user"`
	Token     *session.Info `json:"token,omitempty"`
	Persisted bool          `json:"persisted"`
}

func (a *app) loginCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session for later commands",
		Long: `Log in against the auth service and store the session token in the
configured token store. The password may also be given in EISLAGER_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: a.withServices(func(cmd *cobra.Command, args []string, services *sdk.Services) error {
			if password == "" {
				password = os.Getenv("EISLAGER_PASSWORD")
			}

			result, err := services.Login(cmd.Context(), email, password)
			if result == nil {
				return a.fail(cmd.OutOrStdout(), err)
			}
			out := loginOutput{User: result.User, Persisted: err == nil}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: session not persisted: %v\n", err)
			}

			info, ierr := session.Inspect(result.Token)
			if ierr == nil {
				out.Token = &info
			} else if !errors.Is(ierr, session.ErrOpaqueToken) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", ierr)
			}

			w := cmd.OutOrStdout()
			if a.output == outputJSON {
				return writeJSON(w, out)
			}

			fmt.Fprintf(w, "logged in as %s <%s> (%s)\n", out.User.Name, out.User.Email, out.User.Role)
			switch {
			case out.Token == nil:
			case out.Token.Offline:
				fmt.Fprintln(w, "offline session: the auth service is unreachable")
			case !out.Token.ExpiresAt.IsZero():
				fmt.Fprintf(w, "token expires %s (in %s)\n",
					out.Token.ExpiresAt.Local().Format(time.RFC1123), time.Until(out.Token.ExpiresAt).Round(time.Minute))
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: a.withServices(func(cmd *cobra.Command, args []string, services *sdk.Services) error {
			if err := services.Logout(cmd.Context()); err != nil {
				return a.fail(cmd.OutOrStdout(), err)
			}
			if a.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]bool{"authenticated": false})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		}),
	}
}
