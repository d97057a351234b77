// Package sms delivers text messages through a configurable provider.
package sms

import (
	"context"
	"fmt"
	"log"
	"time"

	"rental-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// New returns the sender selected by cfg.Provider.
func New(cfg config.SMSConfig) Sender {
	switch cfg.Provider {
	case "http":
		return &GatewaySender{
			URL:     cfg.GatewayURL,
			Token:   cfg.GatewayToken,
			From:    cfg.Sender,
			Timeout: 10 * time.Second,
		}
	default:
		return ConsoleSender{}
	}
}

// ConsoleSender writes messages to the log. Used in development.
type ConsoleSender struct{}

func (ConsoleSender) Send(_ context.Context, phone, message string) error {
	log.Printf("[SMS] to=%s message=%q", phone, message)
	return nil
}

// GatewaySender posts messages as JSON to an HTTP SMS gateway.
type GatewaySender struct {
	URL     string
	Token   string
	From    string
	Timeout time.Duration
}

type gatewayRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

func (g *GatewaySender) Send(ctx context.Context, phone, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := g.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout || timeout == 0 {
			timeout = left
		}
	}

	agent := fiber.Post(g.URL).
		JSON(gatewayRequest{To: phone, From: g.From, Message: message}).
		Timeout(timeout)
	if g.Token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+g.Token)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("sms gateway: %w", errs[0])
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("sms gateway: status %d: %s", code, truncate(string(body), 200))
	}
	log.Printf("[SMS] sent to=%s via gateway", phone)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// OTPMessage is the text sent with a one-time code.
func OTPMessage(code string, ttl time.Duration, locale string) string {
	minutes := int(ttl.Minutes())
	if locale == "ar" {
		return fmt.Sprintf("رمز التحقق الخاص بك هو: %s. صالح لمدة %d دقائق.", code, minutes)
	}
	return fmt.Sprintf("Your verification code is: %s. Valid for %d minutes.", code, minutes)
}
