package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/config"
	"github.com/mmeshcher/labelprint/internal/dashboard"
	"github.com/mmeshcher/labelprint/internal/model"
	"github.com/mmeshcher/labelprint/internal/poller"
	"github.com/mmeshcher/labelprint/internal/session"
)

func (a *app) newDashboardCmd() *cobra.Command {
	var window, term string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show orders with search, time window and statistics",
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			w, err := dashboard.ParseWindow(window)
			if err != nil {
				return apperr.Wrap(apperr.KindValidation, "unknown window", err)
			}

			var (
				orders  []model.Order
				summary dashboard.Summary
			)
			if a.cfg.Store == config.StoreMirror {
				view := dashboard.NewView(a.orderStore(cmd.Context(), sess), sess)
				if err := view.Refresh(cmd.Context()); err != nil {
					return err
				}
				orders, summary = view.Visible(w, term), view.Summary()
			} else {
				res, err := a.client().WithToken(sess.Token).Dashboard(cmd.Context(), w, term)
				if err != nil {
					return err
				}
				orders, summary = res.Orders, res.Summary
			}

			out := cmd.OutOrStdout()
			if err := renderOrders(out, orders, a.now()); err != nil {
				return err
			}
			fmt.Fprintln(out)
			return renderSummary(out, summary)
		}),
	}
	cmd.Flags().StringVarP(&window, "window", "w", "all", "time window: all, today, this_week")
	cmd.Flags().StringVarP(&term, "search", "q", "", "lot number substring")

	return cmd
}

func (a *app) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the order collection and report changes",
		RunE: a.withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
			out := cmd.OutOrStdout()
			store := a.orderStore(cmd.Context(), sess)

			onChange := func(orders []model.Order) {
				s := dashboard.Aggregate(orders, a.now())
				fmt.Fprintf(out, "%s orders: %d total, %d today\n", a.now().Format("15:04:05"), s.Total, s.Today)
			}

			return poller.NewWatcher(store, a.cfg.PollInterval, a.logger, onChange).Run(cmd.Context())
		}),
	}
}
