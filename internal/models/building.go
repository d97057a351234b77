package models

import "time"

type Building struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null"`
	Address   string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Units []Unit
}
