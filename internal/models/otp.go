package models

import "time"

type OTPPurpose string

const (
	OTPLogin         OTPPurpose = "login"
	OTPResetPassword OTPPurpose = "reset_password"
	OTPVerifyPhone   OTPPurpose = "verify_phone"
)

type OTP struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"index;not null"`
	User      User
	Code      string     `gorm:"size:6;not null"`
	Phone     string     `gorm:"size:20;not null"`
	Purpose   OTPPurpose `gorm:"size:20;not null"`
	ExpiresAt time.Time  `gorm:"index;not null"`
	IsUsed    bool       `gorm:"not null;default:false"`
	CreatedAt time.Time  `gorm:"index"`
}

func (o OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
