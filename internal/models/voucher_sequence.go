package models

// VoucherSequence holds the last issued voucher number per kind and year.
type VoucherSequence struct {
	Kind string `gorm:"primaryKey;size:20"`
	Year int    `gorm:"primaryKey;autoIncrement:false"`
	Last int    `gorm:"not null"`
}
