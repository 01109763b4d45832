package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/ridebook/internal/booking"
	"github.com/runger/ridebook/internal/pricing"
)

func runCaptured(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	var err error
	out := captureStdout(t, func() {
		err = fn()
	})
	return out, err
}

func TestBookingCreate_RoutePrice(t *testing.T) {
	withTempDB(t)
	withPlainColors(t)
	seedRider(t, "John Doe", "john@alps.com")
	withBookingGlobals(t, bookingGlobals{userID: 1, pickup: "Geneva Airport", dropoff: "Chamonix"})

	out, err := runCaptured(t, func() error { return runBookingCreate(bookingCreateCmd, nil) })
	require.NoError(t, err)
	assert.Contains(t, out, "Booking 1")
	assert.Contains(t, out, "Status:  pending")
	assert.Contains(t, out, "Price:   230.00")
}

func TestBookingCreate_ByEmailAndDistance(t *testing.T) {
	withTempDB(t)
	withPlainColors(t)
	seedRider(t, "Jane Roe", "jane@alps.com")
	withBookingGlobals(t, bookingGlobals{
		email:      "jane@alps.com",
		pickup:     "Lyon",
		dropoff:    "Val Thorens",
		distanceKm: "50",
	})

	out, err := runCaptured(t, func() error { return runBookingCreate(bookingCreateCmd, nil) })
	require.NoError(t, err)
	assert.Contains(t, out, "Price:   150.00")
	assert.Contains(t, out, "User:    1")
}

func TestBookingCreate_ExplicitPrice(t *testing.T) {
	withTempDB(t)
	withPlainColors(t)
	seedRider(t, "John Doe", "john@alps.com")
	withBookingGlobals(t, bookingGlobals{userID: 1, pickup: "A", dropoff: "B", price: "99.5"})

	out, err := runCaptured(t, func() error { return runBookingCreate(bookingCreateCmd, nil) })
	require.NoError(t, err)
	assert.Contains(t, out, "Price:   99.50")
}

func TestBookingCreate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		globals bookingGlobals
		wantErr error
		wantMsg string
	}{
		{
			name:    "no rider",
			globals: bookingGlobals{pickup: "A", dropoff: "B", price: "10"},
			wantMsg: "--user or --email is required",
		},
		{
			name:    "unknown email",
			globals: bookingGlobals{email: "nobody@alps.com", pickup: "A", dropoff: "B", price: "10"},
			wantMsg: "no user with email nobody@alps.com",
		},
		{
			name:    "unpriced route",
			globals: bookingGlobals{userID: 1, pickup: "Nowhere", dropoff: "Elsewhere"},
			wantErr: pricing.ErrRouteNotFound,
		},
		{
			name:    "bad price",
			globals: bookingGlobals{userID: 1, pickup: "A", dropoff: "B", price: "abc"},
			wantMsg: "invalid --price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withTempDB(t)
			seedRider(t, "John Doe", "john@alps.com")
			withBookingGlobals(t, tt.globals)

			_, err := runCaptured(t, func() error { return runBookingCreate(bookingCreateCmd, nil) })
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestBookingTransitions_Lifecycle(t *testing.T) {
	withTempDB(t)
	withPlainColors(t)
	seedRider(t, "John Doe", "john@alps.com")
	withBookingGlobals(t, bookingGlobals{userID: 1, pickup: "Geneva Airport", dropoff: "Chamonix"})

	_, err := runCaptured(t, func() error { return runBookingCreate(bookingCreateCmd, nil) })
	require.NoError(t, err)

	steps := []struct {
		transition string
		want       string
	}{
		{booking.TransitionConfirm, "confirmed"},
		{booking.TransitionAssignDriver, "driver_assigned"},
		{booking.TransitionComplete, "completed"},
	}
	for _, s := range steps {
		out, err := runCaptured(t, func() error {
			return runBookingTransition(bookingCmd, "1", s.transition)
		})
		require.NoError(t, err, s.transition)
		assert.Contains(t, out, "Status:  "+s.want)
	}

	out, err := runCaptured(t, func() error { return runBookingShow(bookingShowCmd, []string{"1"}) })
	require.NoError(t, err)
	assert.Contains(t, out, "booking_created")
	assert.Contains(t, out, "booking_confirmed")
	assert.Contains(t, out, "driver_assigned")
	assert.Contains(t, out, "booking_completed")
	assert.Contains(t, out, "230.00")
}

func TestBookingTransition_Rejected(t *testing.T) {
	withTempDB(t)
	withPlainColors(t)
	seedRider(t, "John Doe", "john@alps.com")
	withBookingGlobals(t, bookingGlobals{userID: 1, pickup: "A", dropoff: "B", price: "40"})

	_, err := runCaptured(t, func() error { return runBookingCreate(bookingCreateCmd, nil) })
	require.NoError(t, err)

	_, err = runCaptured(t, func() error {
		return runBookingTransition(bookingCmd, "1", booking.TransitionComplete)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	out, err := runCaptured(t, func() error { return runBookingShow(bookingShowCmd, []string{"1"}) })
	require.NoError(t, err)
	assert.Contains(t, out, "Status:  pending")
	assert.NotContains(t, out, "booking_completed")
}

func TestBookingTransition_InvalidID(t *testing.T) {
	withTempDB(t)

	for _, raw := range []string{"abc", "0", "-3"} {
		err := runBookingTransition(bookingCmd, raw, booking.TransitionConfirm)
		require.Error(t, err, raw)
		assert.Contains(t, err.Error(), "invalid booking id")
	}
}

func TestBookingList_FiltersByStatus(t *testing.T) {
	withTempDB(t)
	withPlainColors(t)
	seedRider(t, "John Doe", "john@alps.com")

	withBookingGlobals(t, bookingGlobals{userID: 1, pickup: "Geneva Airport", dropoff: "Chamonix"})
	_, err := runCaptured(t, func() error { return runBookingCreate(bookingCreateCmd, nil) })
	require.NoError(t, err)
	withBookingGlobals(t, bookingGlobals{userID: 1, pickup: "Munich Airport", dropoff: "Garmisch"})
	_, err = runCaptured(t, func() error { return runBookingCreate(bookingCreateCmd, nil) })
	require.NoError(t, err)
	_, err = runCaptured(t, func() error {
		return runBookingTransition(bookingCmd, "2", booking.TransitionCancel)
	})
	require.NoError(t, err)

	oldUser, oldStatus, oldLimit := bookingListUserID, bookingListStatus, bookingListLimit
	t.Cleanup(func() {
		bookingListUserID, bookingListStatus, bookingListLimit = oldUser, oldStatus, oldLimit
	})
	bookingListUserID, bookingListStatus, bookingListLimit = 0, "cancelled", 50

	out, err := runCaptured(t, func() error { return runBookingList(bookingListCmd, nil) })
	require.NoError(t, err)
	assert.Contains(t, out, "Garmisch")
	assert.Contains(t, out, "120.00")
	assert.NotContains(t, out, "Chamonix")
}

func TestFormatUnixMs(t *testing.T) {
	assert.Equal(t, "1970-01-01T00:00:00Z", formatUnixMs(0))
	assert.Equal(t, "2024-01-01T00:00:00Z", formatUnixMs(1704067200000))
}
