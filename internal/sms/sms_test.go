package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rental-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsProvider(t *testing.T) {
	assert.IsType(t, ConsoleSender{}, New(config.SMSConfig{Provider: "console"}))
	assert.IsType(t, &GatewaySender{}, New(config.SMSConfig{Provider: "http", GatewayURL: "http://sms.local"}))
}

func TestGatewaySenderPostsJSON(t *testing.T) {
	var got gatewayRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	g := &GatewaySender{URL: srv.URL, Token: "secret", From: "RENTAL", Timeout: 5 * time.Second}
	require.NoError(t, g.Send(context.Background(), "+96891234567", "hello"))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, gatewayRequest{To: "+96891234567", From: "RENTAL", Message: "hello"}, got)
}

func TestGatewaySenderReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	g := &GatewaySender{URL: srv.URL, Timeout: 5 * time.Second}
	err := g.Send(context.Background(), "+96891234567", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
}

func TestOTPMessage(t *testing.T) {
	assert.Equal(t, "Your verification code is: 123456. Valid for 5 minutes.", OTPMessage("123456", 5*time.Minute, "en"))
	assert.Contains(t, OTPMessage("123456", 5*time.Minute, "ar"), "123456")
}
