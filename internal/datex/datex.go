// Package datex works with calendar dates. A date is a time.Time at midnight
// UTC; the wall clock of the caller is only used to decide what "today" is.
package datex

import (
	"iter"
	"time"

	"github.com/jinzhu/now"
)

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the time of day from t, keeping its calendar date.
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// Parse reads a YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// AddMonths moves d by n calendar months, clamping the day to the end of the
// target month (Mar 31 - 1 month = Feb 29 in a leap year).
func AddMonths(d time.Time, n int) time.Time {
	first := Date(d.Year(), d.Month()+time.Month(n), 1)
	day := d.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return Date(first.Year(), first.Month(), day)
}

func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

func MonthStart(d time.Time) time.Time {
	return DateOf(now.With(d).BeginningOfMonth())
}

func MonthEnd(d time.Time) time.Time {
	return DateOf(now.With(d).EndOfMonth())
}

// CalendarDiff returns the months and days that take from to to, such that
// AddCalendar(from, months, days) == to when from <= to.
func CalendarDiff(from, to time.Time) (months, days int) {
	from, to = DateOf(from), DateOf(to)
	if to.Before(from) {
		return 0, 0
	}
	months = (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	if AddMonths(from, months).After(to) {
		months--
	}
	days = int(to.Sub(AddMonths(from, months)).Hours() / 24)
	return months, days
}

func AddCalendar(d time.Time, months, days int) time.Time {
	return AddDays(AddMonths(d, months), days)
}

// YearMonth names one calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

func MonthOf(d time.Time) YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

func (ym YearMonth) index() int { return ym.Year*12 + int(ym.Month) - 1 }

func (ym YearMonth) Before(o YearMonth) bool { return ym.index() < o.index() }
func (ym YearMonth) After(o YearMonth) bool  { return ym.index() > o.index() }

func (ym YearMonth) Next() YearMonth {
	return MonthOf(Date(ym.Year, ym.Month+1, 1))
}

func (ym YearMonth) First() time.Time {
	return Date(ym.Year, ym.Month, 1)
}

// Months yields every calendar month touched by [start, end], oldest first.
// The sequence is empty when end is before start.
func Months(start, end time.Time) iter.Seq[YearMonth] {
	return func(yield func(YearMonth) bool) {
		last := MonthOf(end)
		for ym := MonthOf(start); !ym.After(last); ym = ym.Next() {
			if !yield(ym) {
				return
			}
		}
	}
}

// Between reports whether d lies in [start, end].
func Between(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}
