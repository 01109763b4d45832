package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/runger/ridebook/internal/booking"
	"github.com/runger/ridebook/internal/consistency"
	"github.com/runger/ridebook/internal/metrics"
)

// errInconsistent makes `report verify` exit non-zero when discrepancies
// were found.
var errInconsistent = errors.New("consistency check found discrepancies")

var (
	reportEventType string
	reportBookingID int64
)

var reportCmd = &cobra.Command{
	Use:     "report",
	Short:   "Revenue and consistency reports",
	GroupID: groupReports,
}

var reportRevenueCmd = &cobra.Command{
	Use:   "revenue",
	Short: "Sum event revenue and compare it with booking prices",
	Long: `Sum the revenue recorded on events of one type and compare it with the
summed price of the bookings that have such an event.

Examples:
  ridebook report revenue
  ridebook report revenue --event-type booking_confirmed`,
	Args: cobra.NoArgs,
	RunE: runReportRevenue,
}

var reportVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check revenue and event trails for consistency",
	Long: `Check that every booking_created event carries the booking price, that
each booking has one booking_created event first in its trail, and that
replaying the trail yields the stored status. Nothing is modified.

Trails are replayed without strict transition rules, so bookings moved
while lifecycle.strict_transitions was false still verify after it is
turned on. Events after completed or cancelled are always reported.

Exits non-zero when a discrepancy is found.

Examples:
  ridebook report verify
  ridebook report verify --booking 42`,
	Args: cobra.NoArgs,
	RunE: runReportVerify,
}

var reportMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Run a consistency pass and print the counters it produced",
	Args:  cobra.NoArgs,
	RunE:  runReportMetrics,
}

func init() {
	reportRevenueCmd.Flags().StringVar(&reportEventType, "event-type", string(booking.EventBookingCreated), "event type to aggregate")
	reportVerifyCmd.Flags().Int64Var(&reportBookingID, "booking", 0, "check a single booking")

	reportCmd.AddCommand(reportRevenueCmd)
	reportCmd.AddCommand(reportVerifyCmd)
	reportCmd.AddCommand(reportMetricsCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReportRevenue(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.checker.VerifyAggregate(ctx, reportEventType)
	if err != nil {
		return err
	}

	fmt.Printf("%sRevenue: %s%s\n", colorBold, r.EventType, colorReset)
	fmt.Printf("  Events revenue: %s\n", r.Revenue.StringFixed(2))
	fmt.Printf("  Booking prices: %s (%d bookings)\n", r.Expected.StringFixed(2), r.Bookings)
	if r.OK {
		fmt.Printf("  Status:         %sconsistent%s\n", colorGreen, colorReset)
	} else {
		fmt.Printf("  Status:         %smismatch%s\n", colorRed, colorReset)
	}
	return nil
}

func runReportVerify(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var discrepancies []consistency.Discrepancy
	if reportBookingID > 0 {
		rev, err := a.checker.VerifyRevenueConsistency(ctx, reportBookingID)
		if err != nil {
			return err
		}
		trail, err := a.checker.VerifyEventTrail(ctx, reportBookingID)
		if err != nil {
			return err
		}
		discrepancies = append(rev.Discrepancies, trail.Discrepancies...)

		fmt.Printf("%sBooking %d%s\n", colorBold, reportBookingID, colorReset)
		fmt.Printf("  Status:  %s (trail implies %s)\n", trail.StoredStatus, trail.ReplayedStatus)
		fmt.Printf("  Events:  %d\n", trail.Events)
	} else {
		s, err := a.checker.VerifyAll(ctx)
		if err != nil {
			return err
		}
		discrepancies = s.Discrepancies

		fmt.Printf("%sConsistency%s\n", colorBold, colorReset)
		fmt.Printf("  Bookings: %d\n", s.Bookings)
		fmt.Printf("  Revenue:  %s (prices %s)\n",
			s.Aggregate.Revenue.StringFixed(2), s.Aggregate.Expected.StringFixed(2))
	}

	if len(discrepancies) == 0 {
		fmt.Printf("  Result:  %sOK%s\n", colorGreen, colorReset)
		return nil
	}

	fmt.Printf("  Result:  %s%d discrepancies%s\n\n", colorRed, len(discrepancies), colorReset)
	t := newTable("CHECK", "BOOKING", "DETAIL")
	for _, d := range discrepancies {
		bookingCol := "-"
		if d.BookingID != 0 {
			bookingCol = strconv.FormatInt(d.BookingID, 10)
		}
		t.add(d.Check, bookingCol, d.Detail)
	}
	t.render(os.Stdout)
	return errInconsistent
}

func runReportMetrics(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.checker.VerifyAll(ctx); err != nil {
		return err
	}

	snap, err := metrics.Global.Snapshot()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable("METRIC", "VALUE")
	for _, k := range keys {
		t.add(k, strconv.FormatFloat(snap[k], 'f', -1, 64))
	}
	t.render(os.Stdout)
	return nil
}
