package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gastos/internal/core"
	"gastos/internal/log"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseDay reads YYYY-MM-DD in loc; "today" and "" mean the current day.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today", "hoy":
		return core.StartOfDay(time.Now(), loc), nil
	}
	return core.ParseDate(s, loc)
}

// categoryRef accepts an id or an exact category name.
func (s *session) categoryRef(ctx context.Context, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", nil
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		c, err := s.app.Categories.Get(ctx, id)
		if err != nil {
			return "", err
		}
		return core.CategoryRef(c.ID), nil
	}
	c, err := s.app.Categories.GetByName(ctx, arg)
	if err != nil {
		return "", err
	}
	log.FromContext(ctx).DebugContext(ctx, "Resolved category by name",
		log.NewFields().WithCategory(c.ID, c.Name).ToSlice()...)
	return core.CategoryRef(c.ID), nil
}

func (s *session) printExpenses(ctx context.Context, w io.Writer, list []core.Expense, trashed bool) error {
	categories, err := s.app.Categories.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No expenses.")
		return err
	}

	tw := newTable(w)
	header := "ID\tFECHA\tCANTIDAD\tCATEGORIA\tDESCRIPCION"
	if trashed {
		header += "\tBORRADO"
	}
	fmt.Fprintln(tw, header)
	loc := s.app.Location
	for _, e := range list {
		row := fmt.Sprintf("%d\t%s\t%s\t%s\t%s",
			e.ID,
			e.Date.In(loc).Format(core.DateLayout),
			core.FormatAmount(e.Amount),
			core.ResolveCategory(e.Category, categories).Name,
			e.Description)
		if trashed && e.DeletedAt != nil {
			row += "\t" + e.DeletedAt.In(loc).Format("2006-01-02 15:04")
		}
		fmt.Fprintln(tw, row)
	}
	fmt.Fprintf(tw, "\tTOTAL\t%s\t\t\n", core.FormatAmount(core.Sum(list)))
	return tw.Flush()
}
