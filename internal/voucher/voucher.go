// Package voucher hands out year-scoped sequential voucher numbers.
package voucher

import (
	"errors"
	"fmt"

	"rental-backend/internal/database"
	"rental-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Kind string

const (
	Payment Kind = "payment"
	Expense Kind = "expense"
)

func (k Kind) prefix() string {
	switch k {
	case Payment:
		return "PAY"
	case Expense:
		return "EXP"
	}
	return "VCH"
}

// Format renders a voucher number such as PAY-2024-0001.
func Format(k Kind, year, n int) string {
	return fmt.Sprintf("%s-%d-%04d", k.prefix(), year, n)
}

// Next reserves the next number of kind for year. It must run inside the
// transaction that stores the voucher so a rollback releases the number.
func Next(tx *gorm.DB, k Kind, year int) (string, error) {
	q := tx
	if database.IsPostgres(tx) {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var seq models.VoucherSequence
	err := q.Where("kind = ? AND year = ?", string(k), year).First(&seq).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		seq = models.VoucherSequence{Kind: string(k), Year: year, Last: 1}
		if err := tx.Create(&seq).Error; err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	default:
		seq.Last++
		if err := tx.Model(&models.VoucherSequence{}).
			Where("kind = ? AND year = ?", seq.Kind, seq.Year).
			Update("last", seq.Last).Error; err != nil {
			return "", err
		}
	}
	return Format(k, year, seq.Last), nil
}
