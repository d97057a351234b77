// Package otp issues and checks one-time login codes sent by SMS.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/config"
	"rental-backend/internal/models"
	"rental-backend/internal/sms"

	"gorm.io/gorm"
)

var ErrInvalidCode = errors.New("invalid or expired code")

type Service struct {
	db     *gorm.DB
	cfg    config.OTPConfig
	sender sms.Sender
	locale string

	Clock func() time.Time
}

func NewService(db *gorm.DB, cfg config.OTPConfig, sender sms.Sender, locale string) *Service {
	return &Service{db: db, cfg: cfg, sender: sender, locale: locale, Clock: time.Now}
}

// NormalizePhone accepts local or international input ("9123 4567",
// "00968 91234567") and returns the canonical "+968XXXXXXXX" form.
func (s *Service) NormalizePhone(raw string) (string, error) {
	return NormalizePhone(s.cfg, raw)
}

// NormalizePhone is the configuration-driven form of Service.NormalizePhone.
func NormalizePhone(cfg config.OTPConfig, raw string) (string, error) {
	p := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	prefix := cfg.PhonePrefix
	cc := strings.TrimPrefix(prefix, "+")
	switch {
	case strings.HasPrefix(p, "00"+cc):
		p = "+" + p[2:]
	case strings.HasPrefix(p, cc) && len(p) == len(cc)+cfg.PhoneDigits:
		p = "+" + p
	case len(p) == cfg.PhoneDigits:
		p = prefix + p
	}

	rest, ok := strings.CutPrefix(p, prefix)
	if !ok || len(rest) != cfg.PhoneDigits || strings.Trim(rest, "0123456789") != "" {
		return "", apperror.Invalid("phone", fmt.Sprintf("must be %s followed by %d digits", prefix, cfg.PhoneDigits))
	}
	return p, nil
}

func (s *Service) userByPhone(tx *gorm.DB, phone string) (*models.User, error) {
	var u models.User
	err := tx.Where("phone = ? AND is_active = ?", phone, true).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Request creates a code for the user owning phone and sends it by SMS.
// Unknown numbers get the same response as known ones; callers must not
// reveal which numbers are registered.
func (s *Service) Request(ctx context.Context, rawPhone string, purpose models.OTPPurpose) error {
	phone, err := s.NormalizePhone(rawPhone)
	if err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	now := s.Clock()

	user, err := s.userByPhone(db, phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[OTP] code requested for unknown phone %s", phone)
		return nil
	}
	if err != nil {
		return apperror.Internal(err)
	}

	if err := db.Where("user_id = ? AND expires_at <= ?", user.ID, now).Delete(&models.OTP{}).Error; err != nil {
		return apperror.Internal(err)
	}

	var recent int64
	if err := db.Model(&models.OTP{}).
		Where("user_id = ? AND created_at >= ?", user.ID, now.Add(-time.Hour)).
		Count(&recent).Error; err != nil {
		return apperror.Internal(err)
	}
	if int(recent) >= s.cfg.MaxPerHour {
		log.Printf("[OTP] rate limit reached for user %d", user.ID)
		return apperror.TooManyRequests("too many codes requested, try again later")
	}

	code, err := generateCode()
	if err != nil {
		return apperror.Internal(err)
	}
	o := models.OTP{
		UserID:    user.ID,
		Code:      code,
		Phone:     phone,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}
	if err := db.Create(&o).Error; err != nil {
		return apperror.Internal(err)
	}

	if err := s.sender.Send(ctx, phone, sms.OTPMessage(code, s.cfg.TTL, s.locale)); err != nil {
		log.Printf("[OTP] sms delivery failed for user %d: %v", user.ID, err)
		return apperror.External("could not send the verification code, please try again", err)
	}
	log.Printf("[OTP] code issued for user %d (%s)", user.ID, purpose)
	return nil
}

// Verify consumes the newest unused code matching phone and purpose and
// returns its user. A code can be used once.
func (s *Service) Verify(ctx context.Context, rawPhone, code string, purpose models.OTPPurpose) (*models.User, error) {
	phone, err := s.NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	now := s.Clock()

	var user *models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.userByPhone(tx, phone)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCode
			}
			return err
		}

		var o models.OTP
		err = tx.Where("user_id = ? AND code = ? AND purpose = ? AND is_used = ?", u.ID, strings.TrimSpace(code), purpose, false).
			Order("created_at DESC, id DESC").
			First(&o).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCode
		}
		if err != nil {
			return err
		}
		if o.Expired(now) || o.Phone != phone {
			return ErrInvalidCode
		}

		res := tx.Model(&models.OTP{}).Where("id = ? AND is_used = ?", o.ID, false).Update("is_used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidCode
		}
		user = u
		return nil
	})
	if errors.Is(err, ErrInvalidCode) {
		log.Printf("[OTP] rejected code for %s", phone)
		return nil, apperror.Unauthorized(ErrInvalidCode.Error())
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return user, nil
}

// Cleanup deletes expired codes and returns how many were removed.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.Clock()).Delete(&models.OTP{})
	return res.RowsAffected, res.Error
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
