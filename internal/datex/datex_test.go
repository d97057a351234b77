package datex

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		in   time.Time
		n    int
		want time.Time
	}{
		{Date(2024, 3, 31), -1, Date(2024, 2, 29)},
		{Date(2023, 3, 31), -1, Date(2023, 2, 28)},
		{Date(2024, 1, 31), 1, Date(2024, 2, 29)},
		{Date(2024, 1, 15), 12, Date(2025, 1, 15)},
		{Date(2024, 12, 10), 1, Date(2025, 1, 10)},
		{Date(2024, 5, 31), 6, Date(2024, 11, 30)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AddMonths(tt.in, tt.n), "%s %+d", tt.in.Format(time.DateOnly), tt.n)
	}
}

func TestCalendarDiffRoundTrips(t *testing.T) {
	tests := []struct {
		from, to     time.Time
		months, days int
	}{
		{Date(2024, 1, 1), Date(2024, 12, 31), 11, 30},
		{Date(2024, 1, 1), Date(2024, 3, 31), 2, 30},
		{Date(2024, 1, 31), Date(2024, 2, 29), 1, 0},
		{Date(2024, 1, 31), Date(2024, 2, 28), 0, 28},
		{Date(2024, 2, 10), Date(2024, 2, 10), 0, 0},
		{Date(2023, 6, 15), Date(2024, 6, 14), 11, 30},
	}
	for _, tt := range tests {
		m, d := CalendarDiff(tt.from, tt.to)
		assert.Equal(t, tt.months, m)
		assert.Equal(t, tt.days, d)
		assert.Equal(t, tt.to, AddCalendar(tt.from, m, d))
	}
}

func TestMonthsIsInclusiveAndRestartable(t *testing.T) {
	seq := Months(Date(2024, 11, 20), Date(2025, 2, 3))
	want := []YearMonth{{2024, 11}, {2024, 12}, {2025, 1}, {2025, 2}}

	assert.Equal(t, want, slices.Collect(seq))
	assert.Equal(t, want, slices.Collect(seq))
	assert.Empty(t, slices.Collect(Months(Date(2024, 2, 1), Date(2024, 1, 1))))
}

func TestMonthBounds(t *testing.T) {
	d := Date(2024, 2, 17)
	assert.Equal(t, Date(2024, 2, 1), MonthStart(d))
	assert.Equal(t, Date(2024, 2, 29), MonthEnd(d))
}
