package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Defaults returns the built-in configuration without reading the
// environment. Tests and tools that construct services directly use it.
func Defaults() *Config {
	return &Config{
		HTTPPort:    "8080",
		CORSOrigins: defaultCORS,
		ReceiptPath: "./receipts",
		Locale:      "ar",
		Loc:         time.UTC,
		Lease: LeaseRules{
			RegistrationFeeRate:  decimal.RequireFromString("0.03"),
			DefaultOfficeFee:     decimal.RequireFromString("5.00"),
			DefaultAdminFee:      decimal.RequireFromString("1.00"),
			ExpiringWindowMonths: 1,
			CurrencyLabel:        "OMR",
		},
		Notice: NoticeRules{
			ReminderLeadDays: 7,
			OverdueDay:       5,
			EscalationMonths: 3,
			DedupDays:        30,
		},
		SMS: SMSConfig{Provider: "console", Sender: "RENTAL"},
		OTP: OTPConfig{
			TTL:         5 * time.Minute,
			MaxPerHour:  3,
			PhonePrefix: "+968",
			PhoneDigits: 8,
		},
		Cron: CronConfig{
			LeaseStatus: "5 0 * * *",
			Reminders:   "0 9 * * *",
			Renewals:    "15 0 * * *",
		},
		StrictVouchers: true,
	}
}
