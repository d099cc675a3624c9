package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/config"
	"github.com/mmeshcher/labelprint/internal/dashboard"
	"github.com/mmeshcher/labelprint/internal/draft"
	"github.com/mmeshcher/labelprint/internal/model"
	"github.com/mmeshcher/labelprint/internal/orderstore"
	"github.com/mmeshcher/labelprint/internal/session"
)

// orderTimeLayout задаёт формат флага --at.
const orderTimeLayout = "2006-01-02 15:04"

func (a *app) newOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Enter and manage label print orders",
	}
	cmd.AddCommand(
		a.newOrderCreateCmd(),
		a.newOrderListCmd(),
		a.newOrderUpdateCmd(),
		a.newOrderDeleteCmd(),
		a.newOrderClearCmd(),
	)
	return cmd
}

func (a *app) newOrderCreateCmd() *cobra.Command {
	var lot, product, produced, quantity, notes, at string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Fill in an order draft and submit it",
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			ctx := cmd.Context()

			d := draft.New(a.calc, a.loadCatalog(ctx), draft.WithClock(a.now))
			if at != "" {
				t, err := time.ParseInLocation(orderTimeLayout, at, time.Local)
				if err != nil {
					return apperr.Validation(fmt.Sprintf("order time must look like %q", orderTimeLayout))
				}
				if err := d.SetOrderTime(t); err != nil {
					return err
				}
			}

			steps := []func() error{
				func() error { return d.SetLotNumber(lot) },
				func() error { return d.SetProductionDate(produced) },
				func() error { return d.SetProductID(product) },
				func() error { return d.SetQuantity(quantity) },
				func() error { return d.SetNotes(notes) },
			}
			for _, step := range steps {
				if err := step(); err != nil {
					return err
				}
			}

			created, err := d.Submit(ctx, a.orderStore(ctx, sess), sess)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "order %d submitted\n", created.ID)
			fmt.Fprintf(out, "product: %s %s\n", created.ProductID, created.ProductName)
			exp := dashboard.FormatDualDate(created.ExpiryDate)
			fmt.Fprintf(out, "expiry:  %s (%s)\n", exp.Thai, exp.Gregorian)
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&lot, "lot", "", "lot number")
	f.StringVar(&product, "product", "", "product code (fgcode)")
	f.StringVar(&produced, "production-date", "", "production date, YYYY-MM-DD")
	f.StringVar(&quantity, "quantity", "1", "number of labels")
	f.StringVar(&notes, "notes", "", "free-form notes")
	f.StringVar(&at, "at", "", "order date and time, \"YYYY-MM-DD HH:MM\"; defaults to now")

	return cmd
}

func (a *app) newOrderListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all orders, newest first",
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			view := dashboard.NewView(a.orderStore(cmd.Context(), sess), sess)
			if err := view.Refresh(cmd.Context()); err != nil {
				return err
			}
			return renderOrders(cmd.OutOrStdout(), view.Visible(dashboard.WindowAll, ""), a.now())
		}),
	}
}

func (a *app) newOrderUpdateCmd() *cobra.Command {
	var lot, product, produced, notes string
	var quantity int

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an order (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var patch model.OrderPatch
			f := cmd.Flags()
			if f.Changed("lot") {
				patch.LotNumber = &lot
			}
			if f.Changed("product") {
				patch.ProductID = &product
			}
			if f.Changed("production-date") {
				patch.ProductionDate = &produced
			}
			if f.Changed("quantity") {
				patch.Quantity = &quantity
			}
			if f.Changed("notes") {
				patch.Notes = &notes
			}
			if patch.IsEmpty() {
				return apperr.Validation("nothing to update")
			}

			view := dashboard.NewView(a.orderStore(cmd.Context(), sess), sess)
			updated, err := view.Update(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %d updated, expiry %s\n", updated.ID, updated.ExpiryDate)
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&lot, "lot", "", "lot number")
	f.StringVar(&product, "product", "", "product code (fgcode)")
	f.StringVar(&produced, "production-date", "", "production date, YYYY-MM-DD")
	f.IntVar(&quantity, "quantity", 0, "number of labels")
	f.StringVar(&notes, "notes", "", "free-form notes")

	return cmd
}

func (a *app) newOrderDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an order (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			view := dashboard.NewView(a.orderStore(cmd.Context(), sess), sess)
			if err := view.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %d deleted\n", id)
			return nil
		}),
	}
}

func (a *app) newOrderClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every order from the local mirror (admin)",
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			if a.cfg.Store != config.StoreMirror {
				return apperr.Validation("clear is only available with --store=mirror")
			}
			if err := requireElevated(sess, "clear orders"); err != nil {
				return err
			}
			m, ok := a.orderStore(cmd.Context(), sess).(*orderstore.Mirror)
			if !ok {
				return apperr.New(apperr.KindInternal, "mirror store is not available")
			}
			if err := m.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all orders removed")
			return nil
		}),
	}
}
