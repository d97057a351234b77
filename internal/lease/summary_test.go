package lease

import (
	"slices"
	"testing"

	"rental-backend/internal/datex"
	"rental-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quarterLease() models.Lease {
	return models.Lease{
		ID:          1,
		MonthlyRent: dec("300"),
		StartDate:   datex.Date(2024, 1, 1),
		EndDate:     datex.Date(2024, 3, 31),
	}
}

func TestSummaryExample(t *testing.T) {
	paid := PaidByMonth([]models.Payment{{Amount: dec("300"), ForMonth: 1, ForYear: 2024}})
	got := slices.Collect(Summary(quarterLease(), paid, datex.Date(2024, 2, 15), "en"))

	require.Len(t, got, 3)
	assert.Equal(t, MonthPaid, got[0].Status)
	assert.True(t, got[0].Balance.IsZero())
	assert.Equal(t, "January", got[0].MonthName)

	assert.Equal(t, MonthDue, got[1].Status)
	assert.Equal(t, "300", got[1].Balance.String())

	assert.Equal(t, MonthUpcoming, got[2].Status)
	assert.Equal(t, 3, got[2].Month)
	assert.Equal(t, 2024, got[2].Year)
}

func TestSummarySumsPaymentsPerMonth(t *testing.T) {
	paid := PaidByMonth([]models.Payment{
		{Amount: dec("100"), ForMonth: 2, ForYear: 2024},
		{Amount: dec("50.5"), ForMonth: 2, ForYear: 2024},
		{Amount: dec("400"), ForMonth: 1, ForYear: 2024},
	})
	got := slices.Collect(Summary(quarterLease(), paid, datex.Date(2024, 3, 10), "ar"))

	assert.Equal(t, MonthPaid, got[0].Status)
	assert.Equal(t, "-100", got[0].Balance.String(), "overpayment does not spill over")
	assert.Equal(t, MonthPartial, got[1].Status)
	assert.Equal(t, "149.5", got[1].Balance.String())
	assert.Equal(t, MonthDue, got[2].Status, "current month with nothing paid is due")
	assert.Equal(t, "مارس", got[2].MonthName)
}

func TestSummaryCoversPartialMonthsAndRestarts(t *testing.T) {
	l := quarterLease()
	l.StartDate = datex.Date(2024, 1, 20)
	l.EndDate = datex.Date(2025, 1, 19)

	seq := Summary(l, nil, datex.Date(2024, 1, 25), "en")
	first := slices.Collect(seq)
	require.Len(t, first, 13)
	assert.Equal(t, first, slices.Collect(seq))

	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestTotal(t *testing.T) {
	paid := PaidByMonth([]models.Payment{{Amount: dec("100"), ForMonth: 1, ForYear: 2024}})
	tot := Total(slices.Collect(Summary(quarterLease(), paid, datex.Date(2024, 2, 15), "en")))

	assert.Equal(t, "900", tot.RentDue.String())
	assert.Equal(t, "100", tot.AmountPaid.String())
	assert.Equal(t, "500", tot.Outstanding.String())
	assert.Equal(t, 1, tot.DueMonths)
}
