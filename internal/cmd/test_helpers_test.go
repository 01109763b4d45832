package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type bookingGlobals struct {
	userID     int64
	email      string
	pickup     string
	dropoff    string
	price      string
	distanceKm string
}

// withTempDB points --db at a fresh database file and --config at a file
// that does not exist, so every test starts from defaults.
func withTempDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldDB, oldCfg := flagDBPath, flagConfigPath
	flagDBPath = filepath.Join(dir, "ridebook.db")
	flagConfigPath = filepath.Join(dir, "config.yaml")
	t.Setenv("RIDEBOOK_DB_PATH", "")
	t.Setenv("RIDEBOOK_LOG_LEVEL", "error")
	t.Cleanup(func() {
		flagDBPath = oldDB
		flagConfigPath = oldCfg
	})
	return dir
}

func withUserGlobals(t *testing.T, name, email string) {
	t.Helper()
	oldName, oldEmail := userName, userEmail
	userName, userEmail = name, email
	t.Cleanup(func() {
		userName, userEmail = oldName, oldEmail
	})
}

func withBookingGlobals(t *testing.T, g bookingGlobals) {
	t.Helper()
	old := bookingGlobals{
		userID:     bookingUserID,
		email:      bookingUserEmail,
		pickup:     bookingPickup,
		dropoff:    bookingDropoff,
		price:      bookingPrice,
		distanceKm: bookingDistanceKm,
	}
	bookingUserID = g.userID
	bookingUserEmail = g.email
	bookingPickup = g.pickup
	bookingDropoff = g.dropoff
	bookingPrice = g.price
	bookingDistanceKm = g.distanceKm

	t.Cleanup(func() {
		bookingUserID = old.userID
		bookingUserEmail = old.email
		bookingPickup = old.pickup
		bookingDropoff = old.dropoff
		bookingPrice = old.price
		bookingDistanceKm = old.distanceKm
	})
}

// withPlainColors disables ANSI codes for the duration of a test.
func withPlainColors(t *testing.T) {
	t.Helper()
	saved := []string{colorRed, colorGreen, colorYellow, colorCyan, colorDim, colorBold, colorReset}
	disableColors()
	t.Cleanup(func() {
		colorRed, colorGreen, colorYellow, colorCyan = saved[0], saved[1], saved[2], saved[3]
		colorDim, colorBold, colorReset = saved[4], saved[5], saved[6]
	})
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() failed: %v", err)
	}
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()
	_ = w.Close()
	os.Stdout = old
	out := <-outC
	_ = r.Close()
	return out
}

// seedRider registers a rider through `user add`. The first rider in a
// fresh database gets id 1.
func seedRider(t *testing.T, name, email string) {
	t.Helper()
	withUserGlobals(t, name, email)
	var err error
	captureStdout(t, func() {
		err = runUserAdd(userAddCmd, nil)
	})
	require.NoError(t, err)
}
