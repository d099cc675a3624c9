package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/model"
	"github.com/mmeshcher/labelprint/internal/printerapi"
	"github.com/mmeshcher/labelprint/internal/session"
	"github.com/mmeshcher/labelprint/internal/validation"
)

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

func (a *app) newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the profile of the signed-in user",
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			p, err := a.client().WithToken(sess.Token).AdminInfo(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:  %s\n", p.Name)
			fmt.Fprintf(out, "email: %s\n", p.Email)
			fmt.Fprintf(out, "role:  %s\n", p.Role)
			return nil
		}),
	}

	var name, email, password, confirm string
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Change name, email or password of the signed-in user",
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			if err := validation.ConfirmPassword(password, confirm); err != nil {
				return err
			}

			in := printerapi.ProfileInput{Name: sess.Name, Email: sess.Email, Password: password}
			if name != "" {
				in.Name = name
			}
			if email != "" {
				in.Email = email
			}
			if err := a.client().WithToken(sess.Token).EditProfile(cmd.Context(), in); err != nil {
				return err
			}

			sess.Name = in.Name
			sess.Email = in.Email
			if err := a.sessions.Save(sess); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "profile updated")
			return nil
		}),
	}
	edit.Flags().StringVar(&name, "name", "", "new user name")
	edit.Flags().StringVar(&email, "email", "", "new email")
	edit.Flags().StringVar(&password, "password", "", "new password, empty keeps the current one")
	edit.Flags().StringVar(&confirm, "confirm", "", "new password confirmation")

	cmd.AddCommand(edit)
	return cmd
}

func (a *app) newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage console users (admin)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			if err := requireElevated(sess, "manage users"); err != nil {
				return err
			}
			users, err := a.client().WithToken(sess.Token).ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			return renderUsers(cmd.OutOrStdout(), users)
		}),
	}

	var in printerapi.UserInput
	var role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			if err := requireElevated(sess, "manage users"); err != nil {
				return err
			}
			in.Role = model.Role(role)
			if err := a.client().WithToken(sess.Token).CreateUser(cmd.Context(), in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s created\n", in.Name)
			return nil
		}),
	}
	userFlags(create, &in, &role)

	var upd printerapi.UserInput
	var updRole string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user; an empty password keeps the current one",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			if err := requireElevated(sess, "manage users"); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			upd.ID = id
			upd.Role = model.Role(updRole)
			if err := a.client().WithToken(sess.Token).UpdateUser(cmd.Context(), upd); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d updated\n", id)
			return nil
		}),
	}
	userFlags(update, &upd, &updRole)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			if err := requireElevated(sess, "manage users"); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client().WithToken(sess.Token).DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d deleted\n", id)
			return nil
		}),
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

func userFlags(cmd *cobra.Command, in *printerapi.UserInput, role *string) {
	cmd.Flags().StringVar(&in.Name, "name", "", "user name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	cmd.Flags().StringVar(role, "role", "", "role: admin or user")
}

func (a *app) newProductCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fgcode",
		Aliases: []string{"product"},
		Short:   "Manage the product catalog",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List product codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			codes, err := a.client().ListProductCodes(cmd.Context())
			if err != nil {
				return err
			}
			return renderProductCodes(cmd.OutOrStdout(), codes)
		},
	}

	var name, exp string
	create := &cobra.Command{
		Use:   "create <id>",
		Short: "Add a product code",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			if err := requireElevated(sess, "manage products"); err != nil {
				return err
			}
			p := model.ProductCode{ID: args[0], Name: name, Exp: exp}
			if err := validation.ValidateProductCode(p); err != nil {
				return err
			}
			if err := a.client().WithToken(sess.Token).CreateProductCode(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "product %s created\n", p.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&name, "name", "", "product name")
	create.Flags().StringVar(&exp, "exp", "", "shelf life, e.g. \"3 months\"")

	var updName, updExp string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change name and shelf life of a product code",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			if err := requireElevated(sess, "manage products"); err != nil {
				return err
			}
			p := model.ProductCode{ID: args[0], Name: updName, Exp: updExp}
			if err := validation.ValidateProductCode(p); err != nil {
				return err
			}
			if err := a.client().WithToken(sess.Token).UpdateProductCode(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "product %s updated\n", p.ID)
			return nil
		}),
	}
	update.Flags().StringVar(&updName, "name", "", "product name")
	update.Flags().StringVar(&updExp, "exp", "", "shelf life, e.g. \"3 months\"")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product code",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			if err := requireElevated(sess, "manage products"); err != nil {
				return err
			}
			if err := a.client().WithToken(sess.Token).DeleteProductCode(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "product %s deleted\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}
