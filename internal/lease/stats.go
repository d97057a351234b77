package lease

import (
	"rental-backend/internal/models"

	"gorm.io/gorm"
)

// StatusCounts is the number of leases per status.
type StatusCounts struct {
	Active       int64 `json:"active"`
	ExpiringSoon int64 `json:"expiring_soon"`
	Expired      int64 `json:"expired"`
	Cancelled    int64 `json:"cancelled"`
	Total        int64 `json:"total"`
}

func CountByStatus(db *gorm.DB) (StatusCounts, error) {
	type row struct {
		Status models.LeaseStatus
		N      int64
	}
	var rows []row
	if err := db.Model(&models.Lease{}).Select("status, COUNT(*) as n").Group("status").Scan(&rows).Error; err != nil {
		return StatusCounts{}, err
	}
	var out StatusCounts
	for _, r := range rows {
		switch r.Status {
		case models.LeaseActive:
			out.Active = r.N
		case models.LeaseExpiringSoon:
			out.ExpiringSoon = r.N
		case models.LeaseExpired:
			out.Expired = r.N
		case models.LeaseCancelled:
			out.Cancelled = r.N
		}
		out.Total += r.N
	}
	return out, nil
}
