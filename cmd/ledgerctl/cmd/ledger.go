package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"papertrade/internal/domain"
	"papertrade/internal/service"
	"papertrade/internal/utils"
)

func newQuoteCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol>",
		Short: "Look up the current price of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(true); err != nil {
				return err
			}
			defer s.close()

			q, err := s.trading.Quote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n", q.Name, q.Symbol, q.Price.Format())
			return nil
		},
	}
}

func newPortfolioCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio <username>",
		Short: "Value an account's holdings at current prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(true); err != nil {
				return err
			}
			defer s.close()

			user, err := s.lookupUser(cmd, args[0])
			if err != nil {
				return err
			}
			snap, err := s.trading.Portfolio(cmd.Context(), user.ID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tNAME\tSHARES\tPRICE\tTOTAL")
			for _, h := range snap.Holdings {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", h.Symbol, h.Name, h.Shares, h.Price.Format(), h.Value.Format())
			}
			for _, f := range snap.Failures {
				fmt.Fprintf(w, "%s\t?\t%d\t-\t-\n", f.Symbol, f.Shares)
			}
			fmt.Fprintf(w, "CASH\t\t\t\t%s\n", snap.Cash.Format())
			fmt.Fprintf(w, "TOTAL\t\t\t\t%s\n", snap.Total.Format())
			if err := w.Flush(); err != nil {
				return err
			}

			if snap.Partial() {
				symbols := make([]string, 0, len(snap.Failures))
				for _, f := range snap.Failures {
					symbols = append(symbols, f.Symbol)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: no quote for %s, total excludes them\n", strings.Join(symbols, ", "))
			}
			return nil
		},
	}
}

func newTradeCmd(s *session, side string) *cobra.Command {
	return &cobra.Command{
		Use:   side + " <username> <symbol> <shares>",
		Short: strings.ToUpper(side[:1]) + side[1:] + " whole shares at the current price",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := domain.ParseTradeOrder(args[1], args[2])
			if err != nil {
				return err
			}

			if err := s.open(true); err != nil {
				return err
			}
			defer s.close()

			user, err := s.lookupUser(cmd, args[0])
			if err != nil {
				return err
			}

			var receipt *domain.TradeReceipt
			if side == "buy" {
				receipt, err = s.trading.Buy(cmd.Context(), user.ID, order)
			} else {
				receipt, err = s.trading.Sell(cmd.Context(), user.ID, order)
			}
			if err != nil {
				return err
			}

			rec := receipt.Record
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s @ %s = %s | cash %s\n",
				strings.ToUpper(string(rec.Kind)), rec.Shares, rec.Symbol,
				rec.Price.Format(), receipt.Total.Format(), receipt.Balance.Format())
			return nil
		},
	}
}

func newDepositCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <username> <amount>",
		Short: "Add cash to an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := domain.ParseDeposit(args[1])
			if err != nil {
				return err
			}

			if err := s.open(false); err != nil {
				return err
			}
			defer s.close()

			user, err := s.lookupUser(cmd, args[0])
			if err != nil {
				return err
			}
			balance, err := s.trading.Deposit(cmd.Context(), user.ID, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deposited %s | cash %s\n", amount.Format(), balance.Format())
			return nil
		},
	}
}

func newHistoryCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "history <username>",
		Short: "List an account's transactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(false); err != nil {
				return err
			}
			defer s.close()

			user, err := s.lookupUser(cmd, args[0])
			if err != nil {
				return err
			}
			records, err := s.trading.History(cmd.Context(), user.ID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTYPE\tSYMBOL\tSHARES\tPRICE")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					utils.FormatTimestamp(r.CreatedAt), r.Kind, r.Symbol, r.Shares, r.Price.Format())
			}
			return w.Flush()
		},
	}
}

func newAuditCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Replay every account's ledger and report violations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(false); err != nil {
				return err
			}
			defer s.close()

			report, err := service.NewAuditService(s.store, s.store).RunAudit(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "audited %d account(s) in %s\n", report.Accounts, report.Duration)
			for _, p := range report.Problems {
				switch {
				case p.Error != "":
					fmt.Fprintf(out, "  %s: unreadable: %s\n", p.Username, p.Error)
				case p.Malformed != "":
					fmt.Fprintf(out, "  %s: malformed: %s\n", p.Username, p.Malformed)
				default:
					for _, v := range p.Violations {
						fmt.Fprintf(out, "  %s: %s\n", p.Username, v)
					}
					if p.Cash.IsNegative() {
						fmt.Fprintf(out, "  %s: negative cash %s\n", p.Username, p.Cash)
					}
				}
			}
			if !report.Clean() {
				return fmt.Errorf("%d account(s) failed the audit", len(report.Problems))
			}
			return nil
		},
	}
}
