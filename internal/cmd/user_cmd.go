package cmd

import (
	"errors"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/runger/ridebook/internal/storage"
)

var (
	userName  string
	userEmail string
)

var userCmd = &cobra.Command{
	Use:     "user",
	Short:   "Manage riders",
	GroupID: groupBookings,
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a rider",
	Long: `Register a rider. Email addresses are unique.

Examples:
  ridebook user add --name "John Doe" --email john@alps.com`,
	Args: cobra.NoArgs,
	RunE: runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List riders",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

func init() {
	userAddCmd.Flags().StringVar(&userName, "name", "", "rider name (required)")
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "rider email (required, unique)")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	u := &storage.User{Name: userName, Email: userEmail}
	if err := a.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrIntegrityViolation) {
			return errors.New("a user with that email already exists")
		}
		return err
	}

	t := newTable("ID", "NAME", "EMAIL")
	t.add(strconv.FormatInt(u.ID, 10), u.Name, u.Email)
	t.render(os.Stdout)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return err
	}

	t := newTable("ID", "NAME", "EMAIL", "CREATED")
	for _, u := range users {
		t.add(
			strconv.FormatInt(u.ID, 10),
			u.Name,
			u.Email,
			formatUnixMs(u.CreatedAtUnixMs),
		)
	}
	t.render(os.Stdout)
	return nil
}
