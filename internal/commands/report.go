package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gastos/internal/core"
	"gastos/internal/services"
)

func newSummaryCommand(s *session) *cobra.Command {
	var month, from, to string
	var half int

	cmd := &cobra.Command{
		Use:     "summary",
		Aliases: []string{"resumen"},
		Short:   "Totals for a month, half month or custom range",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			period, err := s.period(month, half, from, to)
			if err != nil {
				return err
			}
			summary, err := s.app.Expenses.Summary(ctx, period)
			if err != nil {
				return err
			}
			list, err := s.app.Expenses.ForPeriod(ctx, period)
			if err != nil {
				return err
			}
			categories, err := s.app.Categories.List(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s (%d expenses)\n\n", period, core.FormatAmount(summary.Total), summary.Count)

			tw := newTable(out)
			fmt.Fprintln(tw, "CATEGORIA\tGASTOS\tTOTAL")
			for _, t := range services.CategoryTotals(list, categories) {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Category.Name, t.Count, core.FormatAmount(t.Total))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			tw = newTable(out)
			fmt.Fprintln(tw, "DIA\tTOTAL")
			for _, d := range summary.ByDay {
				fmt.Fprintf(tw, "%s\t%s\n", d.Day, core.FormatAmount(d.Total))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month (YYYY-MM), default current")
	cmd.Flags().IntVar(&half, "half", 0, "half of the month: 1 (days 1-15) or 2 (16-end)")
	cmd.Flags().StringVar(&from, "from", "", "custom range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "custom range end (YYYY-MM-DD)")
	cmd.MarkFlagsRequiredTogether("from", "to")
	cmd.MarkFlagsMutuallyExclusive("from", "month")
	cmd.MarkFlagsMutuallyExclusive("from", "half")
	return cmd
}

func (s *session) period(month string, half int, from, to string) (core.Period, error) {
	loc := s.app.Location
	if from != "" {
		start, err := core.ParseDate(from, loc)
		if err != nil {
			return core.Period{}, err
		}
		end, err := core.ParseDate(to, loc)
		if err != nil {
			return core.Period{}, err
		}
		return core.CustomPeriod(start, end), nil
	}

	if month == "" {
		month = time.Now().In(loc).Format(core.MonthLayout)
	}
	year, m, err := core.ParseMonth(month)
	if err != nil {
		return core.Period{}, err
	}
	if half != 0 {
		return core.HalfMonthPeriod(year, m, core.Half(half)), nil
	}
	return core.MonthlyPeriod(year, m), nil
}

func newMonthsCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "List the months that have expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := s.app.Expenses.AvailableMonths(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(idx) == 0 {
				fmt.Fprintln(out, "No expenses.")
				return nil
			}
			for _, year := range idx.Years() {
				months := make([]string, len(idx[year]))
				for i, m := range idx[year] {
					months[i] = fmt.Sprintf("%02d", int(m))
				}
				fmt.Fprintf(out, "%d: %s\n", year, strings.Join(months, " "))
			}
			return nil
		},
	}
}
