package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/runger/ridebook/internal/booking"
	"github.com/runger/ridebook/internal/storage"
)

var (
	bookingUserID     int64
	bookingUserEmail  string
	bookingPickup     string
	bookingDropoff    string
	bookingPrice      string
	bookingDistanceKm string

	bookingListUserID int64
	bookingListStatus string
	bookingListLimit  int
)

var bookingCmd = &cobra.Command{
	Use:     "booking",
	Short:   "Create bookings and move them through their lifecycle",
	GroupID: groupBookings,
	Long: `Create bookings and move them through their lifecycle.

  pending → confirmed → driver_assigned → completed
  (cancel is allowed from any status before completed)

Every change writes the new status and one booking event in a single
transaction.`,
}

var bookingCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a pending booking",
	Long: `Create a pending booking and its booking_created event.

The price comes from --price when given. Otherwise a fixed route price is
looked up for pickup/dropoff, and if the route is unknown --distance-km is
priced with the configured base and per-km rates.

Examples:
  ridebook booking create --user 1 --pickup "Geneva Airport" --dropoff Chamonix
  ridebook booking create --email john@alps.com --pickup Geneva --dropoff Chamonix --distance-km 50
  ridebook booking create --user 1 --pickup A --dropoff B --price 99.50`,
	Args: cobra.NoArgs,
	RunE: runBookingCreate,
}

var bookingShowCmd = &cobra.Command{
	Use:   "show <id|reference>",
	Short: "Show a booking and its event trail",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookingShow,
}

var bookingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookings",
	Args:  cobra.NoArgs,
	RunE:  runBookingList,
}

func newTransitionCmd(use, short, transition string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBookingTransition(cmd, args[0], transition)
		},
	}
}

func init() {
	bookingCreateCmd.Flags().Int64Var(&bookingUserID, "user", 0, "rider id")
	bookingCreateCmd.Flags().StringVar(&bookingUserEmail, "email", "", "rider email (alternative to --user)")
	bookingCreateCmd.Flags().StringVar(&bookingPickup, "pickup", "", "pickup location (required)")
	bookingCreateCmd.Flags().StringVar(&bookingDropoff, "dropoff", "", "dropoff location (required)")
	bookingCreateCmd.Flags().StringVar(&bookingPrice, "price", "", "explicit price, e.g. 230.00")
	bookingCreateCmd.Flags().StringVar(&bookingDistanceKm, "distance-km", "", "distance used when the route has no fixed price")

	bookingListCmd.Flags().Int64Var(&bookingListUserID, "user", 0, "only bookings of this rider")
	bookingListCmd.Flags().StringVar(&bookingListStatus, "status", "", "only bookings in this status")
	bookingListCmd.Flags().IntVarP(&bookingListLimit, "limit", "n", 50, "maximum number of bookings")

	bookingCmd.AddCommand(bookingCreateCmd)
	bookingCmd.AddCommand(newTransitionCmd("confirm", "Confirm a pending booking", booking.TransitionConfirm))
	bookingCmd.AddCommand(newTransitionCmd("assign", "Assign a driver to a confirmed booking", booking.TransitionAssignDriver))
	bookingCmd.AddCommand(newTransitionCmd("complete", "Complete a booking with an assigned driver", booking.TransitionComplete))
	bookingCmd.AddCommand(newTransitionCmd("cancel", "Cancel a booking", booking.TransitionCancel))
	bookingCmd.AddCommand(bookingShowCmd)
	bookingCmd.AddCommand(bookingListCmd)
	rootCmd.AddCommand(bookingCmd)
}

func runBookingCreate(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	userID, err := resolveUserID(ctx, a)
	if err != nil {
		return err
	}

	price, err := resolvePrice(a)
	if err != nil {
		return err
	}

	b, err := a.bookings.Create(ctx, booking.CreateRequest{
		UserID:  userID,
		Pickup:  bookingPickup,
		Dropoff: bookingDropoff,
		Price:   price,
	})
	if err != nil {
		return err
	}

	printBooking(b)
	return nil
}

func resolveUserID(ctx context.Context, a *app) (int64, error) {
	if bookingUserID > 0 {
		return bookingUserID, nil
	}
	if bookingUserEmail == "" {
		return 0, errors.New("--user or --email is required")
	}
	u, err := a.store.GetUserByEmail(ctx, bookingUserEmail)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return 0, fmt.Errorf("no user with email %s", bookingUserEmail)
		}
		return 0, err
	}
	return u.ID, nil
}

func resolvePrice(a *app) (decimal.Decimal, error) {
	if bookingPrice != "" {
		p, err := decimal.NewFromString(bookingPrice)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid --price %q: %w", bookingPrice, err)
		}
		return p, nil
	}

	pricer, err := a.cfg.Pricer()
	if err != nil {
		return decimal.Zero, err
	}

	var km *decimal.Decimal
	if bookingDistanceKm != "" {
		d, err := decimal.NewFromString(bookingDistanceKm)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid --distance-km %q: %w", bookingDistanceKm, err)
		}
		km = &d
	}
	return pricer.Price(bookingPickup, bookingDropoff, km)
}

func runBookingTransition(cmd *cobra.Command, rawID, transition string) error {
	id, err := parseBookingID(rawID)
	if err != nil {
		return err
	}

	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.bookings.Apply(ctx, id, transition)
	if err != nil {
		return err
	}

	printBooking(b)
	return nil
}

func runBookingShow(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var id int64
	if n, err := strconv.ParseInt(args[0], 10, 64); err == nil {
		id = n
	} else {
		b, err := a.store.GetBookingByReference(ctx, args[0])
		if err != nil {
			return err
		}
		id = b.ID
	}

	h, err := a.bookings.History(ctx, id)
	if err != nil {
		return err
	}

	printBooking(h.Booking)
	fmt.Println()

	t := newTable("#", "EVENT", "REVENUE", "AT")
	for i, e := range h.Events {
		revenue := "-"
		if e.Revenue.Valid {
			revenue = e.Revenue.Decimal.StringFixed(2)
		}
		t.add(strconv.Itoa(i+1), e.EventType, revenue, formatUnixMs(e.TsUnixMs))
	}
	t.render(os.Stdout)
	return nil
}

func runBookingList(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	bookings, err := a.store.QueryBookings(ctx, storage.BookingQuery{
		UserID: bookingListUserID,
		Status: bookingListStatus,
		Limit:  bookingListLimit,
	})
	if err != nil {
		return err
	}

	t := newTable("ID", "STATUS", "PRICE", "PICKUP", "DROPOFF", "USER")
	t.colorize = func(col int, cell string) string {
		if col != 1 {
			return cell
		}
		if c := statusColor(strings.TrimRight(cell, " ")); c != "" {
			return c + cell + colorReset
		}
		return cell
	}
	for _, b := range bookings {
		t.add(
			strconv.FormatInt(b.ID, 10),
			b.Status,
			b.Price.StringFixed(2),
			b.Pickup,
			b.Dropoff,
			strconv.FormatInt(b.UserID, 10),
		)
	}
	t.render(os.Stdout)
	return nil
}

func printBooking(b *storage.Booking) {
	fmt.Printf("%sBooking %d%s  %s\n", colorBold, b.ID, colorReset, b.Reference)
	fmt.Printf("  Status:  %s%s%s\n", statusColor(b.Status), b.Status, colorReset)
	fmt.Printf("  Route:   %s → %s\n", b.Pickup, b.Dropoff)
	fmt.Printf("  Price:   %s\n", b.Price.StringFixed(2))
	fmt.Printf("  User:    %d\n", b.UserID)
	fmt.Printf("  Created: %s\n", formatUnixMs(b.CreatedAtUnixMs))
}

func parseBookingID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid booking id %q", raw)
	}
	return id, nil
}

func formatUnixMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
