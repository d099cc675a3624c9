package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/model"
	"github.com/mmeshcher/labelprint/internal/session"
)

// Section описывает раздел консоли, доступный роли.
type Section struct {
	Name    string
	Command string
}

// Navigation возвращает разделы, доступные роли, в порядке меню.
func Navigation(role model.Role) []Section {
	if role.IsElevated() {
		return []Section{
			{Name: "Dashboard", Command: "dashboard"},
			{Name: "Product", Command: "fgcode"},
			{Name: "Users", Command: "users"},
			{Name: "People", Command: "profile"},
			{Name: "Order", Command: "order create"},
		}
	}
	return []Section{
		{Name: "People", Command: "profile"},
		{Name: "Order", Command: "order create"},
	}
}

func (a *app) newSignInCmd() *cobra.Command {
	var name, password string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || password == "" {
				var missing []string
				if name == "" {
					missing = append(missing, "name")
				}
				if password == "" {
					missing = append(missing, "password")
				}
				return apperr.Missing(missing...)
			}

			ctx := cmd.Context()
			res, err := a.client().SignIn(ctx, name, password)
			if err != nil {
				return err
			}

			profile, err := a.client().WithToken(res.Token).AdminInfo(ctx)
			if err != nil {
				return err
			}

			sess := &session.Session{
				Name:  profile.Name,
				Email: profile.Email,
				Role:  profile.Role,
				Token: res.Token,
			}
			if err := a.sessions.Save(sess); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", sess.Name, sess.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")

	return cmd
}

func (a *app) newSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func (a *app) newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", sess.Name, sess.Role)
			if sess.Email != "" {
				fmt.Fprintf(out, "email: %s\n", sess.Email)
			}
			fmt.Fprintf(out, "session expires: %s\n", sess.ExpiresAt.Local().Format("02/01/2006 15:04"))
			return nil
		}),
	}
}

func (a *app) newNavCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nav",
		Short: "List console sections available to the signed-in role",
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", sess.Name, sess.Role)
			for _, s := range Navigation(sess.Role) {
				fmt.Fprintf(out, "  %-10s printerctl %s\n", s.Name, s.Command)
			}
			return nil
		}),
	}
}
