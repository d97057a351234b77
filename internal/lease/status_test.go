package lease

import (
	"testing"
	"time"

	"rental-backend/internal/datex"
	"rental-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	today := datex.Date(2024, 2, 15)
	tests := []struct {
		name    string
		current models.LeaseStatus
		end     time.Time
		want    models.LeaseStatus
	}{
		{"ended yesterday", models.LeaseActive, datex.Date(2024, 2, 14), models.LeaseExpired},
		{"ends today", models.LeaseActive, today, models.LeaseExpiringSoon},
		{"ends within a month", models.LeaseActive, datex.Date(2024, 3, 15), models.LeaseExpiringSoon},
		{"ends just over a month out", models.LeaseActive, datex.Date(2024, 3, 16), models.LeaseActive},
		{"month end clamps", models.LeaseActive, datex.Date(2024, 3, 31), models.LeaseActive},
		{"expired lease extended", models.LeaseExpired, datex.Date(2025, 1, 1), models.LeaseActive},
		{"cancelled stays cancelled", models.LeaseCancelled, datex.Date(2025, 1, 1), models.LeaseCancelled},
		{"cancelled past end", models.LeaseCancelled, datex.Date(2023, 1, 1), models.LeaseCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.current, tt.end, today, 1)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, DeriveStatus(got, tt.end, today, 1), "idempotent")
		})
	}
}

func TestUpdateStatusReportsChange(t *testing.T) {
	l := &models.Lease{Status: models.LeaseActive, EndDate: datex.Date(2024, 1, 31)}
	assert.True(t, UpdateStatus(l, datex.Date(2024, 2, 1), 1))
	assert.Equal(t, models.LeaseExpired, l.Status)
	assert.False(t, UpdateStatus(l, datex.Date(2024, 2, 1), 1))
}

func TestRegistrationFee(t *testing.T) {
	rate := decimal.RequireFromString("0.03")
	assert.Equal(t, "108", RegistrationFee(decimal.NewFromInt(300), rate).String())
	assert.Equal(t, "45.36", RegistrationFee(decimal.RequireFromString("126"), rate).String())
	assert.Equal(t, "44.82", RegistrationFee(decimal.RequireFromString("124.5"), rate).String())
}
