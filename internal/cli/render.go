package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mmeshcher/labelprint/internal/dashboard"
	"github.com/mmeshcher/labelprint/internal/expiry"
	"github.com/mmeshcher/labelprint/internal/model"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func renderUsers(out io.Writer, users []model.User) error {
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
	}
	return tw.Flush()
}

func renderProductCodes(out io.Writer, codes []model.ProductCode) error {
	tw := newTable(out)
	fmt.Fprintln(tw, "CODE\tNAME\tSHELF LIFE")
	for _, p := range codes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.Exp)
	}
	return tw.Flush()
}

// statusLabel подписывает состояние срока годности для таблицы заказов.
func statusLabel(s expiry.Status) string {
	switch s.State {
	case expiry.StateExpired:
		return fmt.Sprintf("expired %dd ago", -s.DaysLeft)
	case expiry.StateNearExpiry:
		return fmt.Sprintf("near expiry, %dd left", s.DaysLeft)
	case expiry.StateNormal:
		return fmt.Sprintf("ok, %dd left", s.DaysLeft)
	default:
		return "-"
	}
}

func dualDate(date string) string {
	d := dashboard.FormatDualDate(date)
	if d.Thai == "" {
		return dashboard.Unspecified
	}
	if d.Thai == d.Gregorian {
		return d.Thai
	}
	return d.Thai + " (" + d.Gregorian + ")"
}

func renderOrders(out io.Writer, orders []model.Order, now time.Time) error {
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tORDERED\tLOT\tPRODUCT\tPRODUCED\tEXPIRES\tSTATUS\tQTY\tBY")
	for _, o := range orders {
		by := o.CreatedBy
		if by == "" {
			by = dashboard.Unspecified
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s %s\t%s\t%s\t%s\t%d\t%s\n",
			o.ID,
			dashboard.FormatOrderDateTime(o, now.Location()),
			o.LotNumber,
			o.ProductID, o.ProductName,
			dualDate(o.ProductionDate),
			dualDate(o.ExpiryDate),
			statusLabel(expiry.ClassifyDate(o.ExpiryDate, now)),
			o.Quantity,
			by,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d orders\n", len(orders))
	return err
}

func renderSummary(out io.Writer, s dashboard.Summary) error {
	fmt.Fprintf(out, "total: %d  today: %d  submitters: %d\n", s.Total, s.Today, s.Submitters)
	if s.Top != nil {
		fmt.Fprintf(out, "top submitter: %s (%d)\n", s.Top.CreatedBy, s.Top.Count)
	}

	tw := newTable(out)
	for _, g := range s.Series {
		fmt.Fprintf(tw, "  %s\t%d\n", g.CreatedBy, g.Count)
	}
	return tw.Flush()
}
