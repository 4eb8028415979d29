package core

import (
	"errors"
	"fmt"
	"time"
)

type (
	PeriodKind string

	// Half selects one side of a month for half-month periods.
	Half int

	// Period is a user-selected range of days used by summaries.
	Period struct {
		Kind  PeriodKind
		Year  int
		Month time.Month
		Half  Half
		Start time.Time // custom only
		End   time.Time // custom only
	}
)

const (
	Monthly   PeriodKind = "monthly"
	HalfMonth PeriodKind = "half-month"
	Custom    PeriodKind = "custom"
)

const (
	FirstHalf  Half = 1 // days 1-15
	SecondHalf Half = 2 // days 16-last
)

var ErrInvalidPeriod = errors.New("invalid period")

func MonthlyPeriod(year int, month time.Month) Period {
	return Period{Kind: Monthly, Year: year, Month: month}
}

func HalfMonthPeriod(year int, month time.Month, half Half) Period {
	return Period{Kind: HalfMonth, Year: year, Month: month, Half: half}
}

func CustomPeriod(start, end time.Time) Period {
	return Period{Kind: Custom, Start: start, End: end}
}

func (p Period) Validate() error {
	switch p.Kind {
	case Monthly, HalfMonth:
		if p.Month < time.January || p.Month > time.December {
			return fmt.Errorf("%w: month %d", ErrInvalidPeriod, p.Month)
		}
		if p.Year < 1 || p.Year > 9999 {
			return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
		}
		if p.Kind == HalfMonth && p.Half != FirstHalf && p.Half != SecondHalf {
			return fmt.Errorf("%w: half %d", ErrInvalidPeriod, p.Half)
		}
	case Custom:
		if p.Start.IsZero() || p.End.IsZero() {
			return fmt.Errorf("%w: custom period needs start and end", ErrInvalidPeriod)
		}
		if p.End.Before(p.Start) {
			return fmt.Errorf("%w: end before start", ErrInvalidPeriod)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPeriod, p.Kind)
	}
	return nil
}

// Days resolves the period to its inclusive first and last day, both as
// local midnights in loc.
func (p Period) Days(loc *time.Location) (time.Time, time.Time, error) {
	if err := p.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	loc = location(loc)
	switch p.Kind {
	case HalfMonth:
		first, last := MonthBounds(p.Year, p.Month, loc)
		if p.Half == FirstHalf {
			return first, time.Date(p.Year, p.Month, 15, 0, 0, 0, 0, loc), nil
		}
		return time.Date(p.Year, p.Month, 16, 0, 0, 0, 0, loc), last, nil
	case Custom:
		return StartOfDay(p.Start, loc), StartOfDay(p.End, loc), nil
	default:
		first, last := MonthBounds(p.Year, p.Month, loc)
		return first, last, nil
	}
}

// Key is a stable identifier suitable for cache keys.
func (p Period) Key() string {
	switch p.Kind {
	case HalfMonth:
		return fmt.Sprintf("%s:%04d-%02d:%d", p.Kind, p.Year, p.Month, p.Half)
	case Custom:
		return fmt.Sprintf("%s:%s:%s", p.Kind, FormatTimestamp(p.Start), FormatTimestamp(p.End))
	default:
		return fmt.Sprintf("%s:%04d-%02d", p.Kind, p.Year, p.Month)
	}
}

func (p Period) String() string {
	switch p.Kind {
	case HalfMonth:
		if p.Half == FirstHalf {
			return fmt.Sprintf("%04d-%02d (1-15)", p.Year, p.Month)
		}
		return fmt.Sprintf("%04d-%02d (16-%d)", p.Year, p.Month, LastDayOfMonth(p.Year, p.Month))
	case Custom:
		return fmt.Sprintf("%s..%s", p.Start.Format(DateLayout), p.End.Format(DateLayout))
	default:
		return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
	}
}
