package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"papertrade/internal/domain"
	"papertrade/internal/utils"
)

func newUsersCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage ledger accounts",
	}
	cmd.AddCommand(newUsersAddCmd(s), newUsersListCmd(s))
	return cmd
}

func newUsersAddCmd(s *session) *cobra.Command {
	var (
		password string
		cash     string
		admin    bool
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account with a starting cash balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(password) < 6 {
				return fmt.Errorf("password must be at least 6 characters")
			}
			balance, err := domain.ParseMoney(cash)
			if err != nil {
				return fmt.Errorf("cash: %w", err)
			}
			if balance.IsNegative() {
				return fmt.Errorf("cash must not be negative")
			}

			if err := s.open(false); err != nil {
				return err
			}
			defer s.close()

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			role := domain.RoleUser
			if admin {
				role = domain.RoleAdmin
			}
			now := utils.Now()
			user := &domain.User{
				ID:           uuid.New(),
				Username:     args[0],
				PasswordHash: string(hash),
				Role:         role,
				Cash:         balance,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.store.Create(cmd.Context(), user); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with %s\n", user.Username, user.ID, user.Cash.Format())
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "login password (min 6 characters)")
	cmd.Flags().StringVar(&cash, "cash", getEnv("STARTING_CASH", "10000.00"), "starting cash balance")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	return cmd
}

func newUsersListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts and their cash balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(false); err != nil {
				return err
			}
			defer s.close()

			users, err := s.store.GetAll(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tROLE\tCASH\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Username, u.Role, u.Cash.Format(), utils.FormatTimestamp(u.CreatedAt))
			}
			return w.Flush()
		},
	}
}

// lookupUser resolves a username argument to an account
func (s *session) lookupUser(cmd *cobra.Command, username string) (*domain.User, error) {
	user, err := s.store.GetByUsername(cmd.Context(), username)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", username, err)
	}
	return user, nil
}
