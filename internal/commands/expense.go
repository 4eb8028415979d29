package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gastos/internal/core"
)

func newExpenseCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"gasto"},
		Short:   "Record and browse expenses",
	}
	cmd.AddCommand(
		newExpenseAddCommand(s),
		newExpenseListCommand(s),
		newExpenseDayCommand(s),
		newExpenseUpdateCommand(s),
		newExpenseDeleteCommand(s),
		newExpenseTrashCommand(s),
		newExpenseRestoreCommand(s),
		newExpensePurgeCommand(s),
		newExpenseClearCommand(s),
	)
	return cmd
}

func newExpenseAddCommand(s *session) *cobra.Command {
	var category, date, note string

	cmd := &cobra.Command{
		Use:   "add AMOUNT",
		Short: "Record an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			amount, err := core.ParseAmount(args[0])
			if err != nil {
				return err
			}
			day, err := parseDay(date, s.app.Location)
			if err != nil {
				return err
			}
			ref, err := s.categoryRef(ctx, category)
			if err != nil {
				return err
			}

			id, err := s.app.Expenses.Create(ctx, nil, core.NewExpense{
				Amount:      amount,
				Category:    ref,
				Date:        day,
				Description: note,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created expense %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category id or name")
	cmd.Flags().StringVarP(&date, "date", "d", "today", "date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&note, "note", "n", "", "description")
	return cmd
}

func newExpenseListCommand(s *session) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a month's expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if month == "" {
				month = time.Now().In(s.app.Location).Format(core.MonthLayout)
			}
			items, err := s.app.Expenses.Month(cmd.Context(), month)
			if err != nil {
				return err
			}
			return s.printExpenses(cmd.Context(), cmd.OutOrStdout(), items, false)
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month (YYYY-MM), default current")
	return cmd
}

func newExpenseDayCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "day [DATE]",
		Short: "List one day's expenses in entry order, latest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			day, err := parseDay(arg, s.app.Location)
			if err != nil {
				return err
			}
			items, err := s.app.Expenses.Day(cmd.Context(), day)
			if err != nil {
				return err
			}
			return s.printExpenses(cmd.Context(), cmd.OutOrStdout(), items, false)
		},
	}
}

func newExpenseUpdateCommand(s *session) *cobra.Command {
	var amount, category, date, note string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var patch core.ExpensePatch
			flags := cmd.Flags()
			if flags.Changed("amount") {
				a, err := core.ParseAmount(amount)
				if err != nil {
					return err
				}
				patch.Amount = &a
			}
			if flags.Changed("category") {
				ref, err := s.categoryRef(ctx, category)
				if err != nil {
					return err
				}
				patch.Category = &ref
			}
			if flags.Changed("date") {
				d, err := parseDay(date, s.app.Location)
				if err != nil {
					return err
				}
				patch.Date = &d
			}
			if flags.Changed("note") {
				patch.Description = &note
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update")
			}

			if err := s.app.Expenses.Update(ctx, nil, id, patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated expense %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "amount")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category id or name")
	cmd.Flags().StringVarP(&date, "date", "d", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&note, "note", "n", "", "description")
	return cmd
}

func newExpenseDeleteCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Move an expense to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := s.app.Expenses.Delete(cmd.Context(), nil, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved expense %d to the trash\n", id)
			return nil
		},
	}
}

func newExpenseTrashCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "trash",
		Short: "List trashed expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := s.app.Expenses.Trash(cmd.Context())
			if err != nil {
				return err
			}
			return s.printExpenses(cmd.Context(), cmd.OutOrStdout(), items, true)
		},
	}
}

func newExpenseRestoreCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "restore ID",
		Short: "Take an expense out of the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := s.app.Expenses.Restore(cmd.Context(), nil, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored expense %d\n", id)
			return nil
		},
	}
}

func newExpensePurgeCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "purge ID",
		Short: "Delete an expense permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := s.app.Expenses.Purge(cmd.Context(), nil, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged expense %d\n", id)
			return nil
		},
	}
}

func newExpenseClearCommand(s *session) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every expense, trash included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear expenses without --yes")
			}
			if err := s.app.Expenses.Clear(cmd.Context(), nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All expenses deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}
