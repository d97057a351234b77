package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultDSN  = "host=localhost user=postgres password=postgres dbname=rental port=5432 sslmode=disable"
	defaultCORS = "http://localhost:5173"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string
	SQLDebug    bool

	ReceiptPath string // expense receipt uploads
	PDFFontPath string // optional UTF-8 TTF used for Arabic text

	Lease  LeaseRules
	Notice NoticeRules
	Locale string
	Loc    *time.Location
	SMS    SMSConfig
	OTP    OTPConfig
	Cron   CronConfig

	// StrictVouchers rejects edits to voucher-numbered payments.
	StrictVouchers bool
}

// LeaseRules: jurisdiction specific constants applied when a lease is saved.
type LeaseRules struct {
	RegistrationFeeRate  decimal.Decimal
	DefaultOfficeFee     decimal.Decimal
	DefaultAdminFee      decimal.Decimal
	ExpiringWindowMonths int
	CurrencyLabel        string
}

type NoticeRules struct {
	ReminderLeadDays int
	OverdueDay       int
	OverdueWindow    bool // notify on every day up to OverdueDay instead of only that day
	EscalationMonths int
	DedupDays        int
}

type SMSConfig struct {
	Provider     string // console | http
	GatewayURL   string
	GatewayToken string
	Sender       string
}

type OTPConfig struct {
	TTL         time.Duration
	MaxPerHour  int
	PhonePrefix string
	PhoneDigits int
}

type CronConfig struct {
	Enabled     bool
	LeaseStatus string
	Reminders   string
	Renewals    string
}

// Load reads the environment (and .env when present). It never exits; the
// server calls RequireJWTSecret separately so that CLI jobs can run without one.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[CONFIG] no .env file found, using process environment")
	}

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", defaultCORS),
		SQLDebug:    getBool("SQL_DEBUG", false),
		ReceiptPath: getEnv("RECEIPT_PATH", "./receipts"),
		PDFFontPath: getEnv("PDF_FONT_PATH", ""),
		Locale:      getEnv("LOCALE", "ar"),
		Lease: LeaseRules{
			RegistrationFeeRate:  getDecimal("REGISTRATION_FEE_RATE", "0.03"),
			DefaultOfficeFee:     getDecimal("DEFAULT_OFFICE_FEE", "5.00"),
			DefaultAdminFee:      getDecimal("DEFAULT_ADMIN_FEE", "1.00"),
			ExpiringWindowMonths: getInt("EXPIRING_WINDOW_MONTHS", 1),
			CurrencyLabel:        getEnv("CURRENCY_LABEL", "OMR"),
		},
		Notice: NoticeRules{
			ReminderLeadDays: getInt("REMINDER_LEAD_DAYS", 7),
			OverdueDay:       getInt("OVERDUE_NOTICE_DAY", 5),
			OverdueWindow:    getBool("OVERDUE_NOTICE_WINDOW", false),
			EscalationMonths: getInt("ESCALATION_MONTHS", 3),
			DedupDays:        getInt("NOTIFICATION_DEDUP_DAYS", 30),
		},
		SMS: SMSConfig{
			Provider:     getEnv("SMS_PROVIDER", "console"),
			GatewayURL:   getEnv("SMS_GATEWAY_URL", ""),
			GatewayToken: getEnv("SMS_GATEWAY_TOKEN", ""),
			Sender:       getEnv("SMS_SENDER", "RENTAL"),
		},
		OTP: OTPConfig{
			TTL:         time.Duration(getInt("OTP_TTL_MINUTES", 5)) * time.Minute,
			MaxPerHour:  getInt("OTP_MAX_PER_HOUR", 3),
			PhonePrefix: getEnv("PHONE_PREFIX", "+968"),
			PhoneDigits: getInt("PHONE_DIGITS", 8),
		},
		Cron: CronConfig{
			Enabled:     getBool("SCHEDULER_ENABLED", false),
			LeaseStatus: getEnv("CRON_LEASE_STATUS", "5 0 * * *"),
			Reminders:   getEnv("CRON_REMINDERS", "0 9 * * *"),
			Renewals:    getEnv("CRON_RENEWALS", "15 0 * * *"),
		},
		StrictVouchers: getBool("STRICT_VOUCHERS", true),
	}

	tz := getEnv("TIMEZONE", "Asia/Muscat")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("[WARN] TIMEZONE=%s could not be loaded, using UTC: %v", tz, err)
		loc = time.UTC
	}
	cfg.Loc = loc

	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN default value in use, set your own Postgres connection for production.")
	}
	if cfg.CORSOrigins == defaultCORS {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS default value in use, set your own domain for production.")
	}
	if cfg.SMS.Provider == "http" && cfg.SMS.GatewayURL == "" {
		log.Println("[WARN] SMS_PROVIDER=http but SMS_GATEWAY_URL is empty, falling back to console.")
		cfg.SMS.Provider = "console"
	}

	return cfg
}

// RequireJWTSecret stops the process when the signing secret is missing or weak.
func (c *Config) RequireJWTSecret() {
	if c.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set. It is required to start the server.")
	}
	if len(c.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters.")
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[WARN] %s=%q is not an integer, using %d", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[WARN] %s=%q is not a boolean, using %t", key, v, def)
		return def
	}
	return b
}

func getDecimal(key, def string) decimal.Decimal {
	v := getEnv(key, def)
	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Printf("[WARN] %s=%q is not a number, using %s", key, v, def)
		return decimal.RequireFromString(def)
	}
	return d
}
