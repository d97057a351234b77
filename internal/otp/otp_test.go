package otp_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/config"
	"rental-backend/internal/models"
	"rental-backend/internal/otp"
	"rental-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, phone, message string) error {
	args := m.Called(ctx, phone, message)
	return args.Error(0)
}

func setup(t *testing.T) (*otp.Service, *gorm.DB, *mockSender, *models.User) {
	t.Helper()
	db := testutil.NewDB(t)
	phone := "+96891234567"
	u := &models.User{Username: "tenant1", Name: "Tenant", Phone: &phone, PasswordHash: "x", Role: models.RoleTenant, IsActive: true}
	require.NoError(t, db.Create(u).Error)

	sender := &mockSender{}
	svc := otp.NewService(db, config.Defaults().OTP, sender, "en")
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.Clock = func() time.Time { return now }
	return svc, db, sender, u
}

func lastCode(t *testing.T, db *gorm.DB) models.OTP {
	t.Helper()
	var o models.OTP
	require.NoError(t, db.Order("id DESC").First(&o).Error)
	return o
}

func TestNormalizePhone(t *testing.T) {
	svc := otp.NewService(nil, config.Defaults().OTP, nil, "en")
	for in, want := range map[string]string{
		"91234567":       "+96891234567",
		"9123 4567":      "+96891234567",
		"96891234567":    "+96891234567",
		"0096891234567":  "+96891234567",
		"+968 9123-4567": "+96891234567",
	} {
		got, err := svc.NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "1234", "+97191234567", "+9689123456a"} {
		_, err := svc.NormalizePhone(bad)
		var ve *apperror.ValidationError
		assert.ErrorAs(t, err, &ve, bad)
	}
}

func TestRequestAndVerify(t *testing.T) {
	svc, db, sender, u := setup(t)
	sender.On("Send", mock.Anything, "+96891234567", mock.AnythingOfType("string")).Return(nil)

	require.NoError(t, svc.Request(context.Background(), "91234567", models.OTPLogin))
	o := lastCode(t, db)
	assert.Len(t, o.Code, 6)
	sender.AssertExpectations(t)

	got, err := svc.Verify(context.Background(), "+96891234567", o.Code, models.OTPLogin)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Verify(context.Background(), "+96891234567", o.Code, models.OTPLogin)
	var ue *apperror.UnauthorizedError
	assert.ErrorAs(t, err, &ue, "a used code cannot be replayed")
}

func TestVerifyRejectsExpiredAndWrongPurpose(t *testing.T) {
	svc, db, sender, _ := setup(t)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, svc.Request(context.Background(), "91234567", models.OTPLogin))
	o := lastCode(t, db)

	_, err := svc.Verify(context.Background(), "91234567", o.Code, models.OTPResetPassword)
	assert.Error(t, err)

	later := svc.Clock().Add(6 * time.Minute)
	svc.Clock = func() time.Time { return later }
	_, err = svc.Verify(context.Background(), "91234567", o.Code, models.OTPLogin)
	assert.Error(t, err)
}

func TestRequestRateLimit(t *testing.T) {
	svc, _, sender, _ := setup(t)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Request(context.Background(), "91234567", models.OTPLogin))
	}
	err := svc.Request(context.Background(), "91234567", models.OTPLogin)
	var tm *apperror.TooManyRequestsError
	assert.ErrorAs(t, err, &tm)
	sender.AssertNumberOfCalls(t, "Send", 3)
}

func TestRequestUnknownPhoneIsSilent(t *testing.T) {
	svc, db, sender, _ := setup(t)
	require.NoError(t, svc.Request(context.Background(), "99999999", models.OTPLogin))

	var n int64
	db.Model(&models.OTP{}).Count(&n)
	assert.Zero(t, n)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestSMSFailure(t *testing.T) {
	svc, _, sender, _ := setup(t)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("gateway down"))

	err := svc.Request(context.Background(), "91234567", models.OTPLogin)
	var ee *apperror.ExternalError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Error(), "try again")
}

func TestCleanup(t *testing.T) {
	svc, db, sender, _ := setup(t)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, svc.Request(context.Background(), "91234567", models.OTPLogin))

	n, err := svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	later := svc.Clock().Add(time.Hour)
	svc.Clock = func() time.Time { return later }
	n, err = svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	var left int64
	db.Model(&models.OTP{}).Count(&left)
	assert.Zero(t, left)
}
