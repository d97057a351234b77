package tenant

import (
	"context"
	"fmt"
	"testing"

	"rental-backend/internal/apperror"
	"rental-backend/internal/config"
	"rental-backend/internal/models"
	"rental-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(testutil.NewDB(t), config.Defaults())
}

func TestCreateNormalizesPhoneAndDefaultsRating(t *testing.T) {
	svc := newService(t)
	tn, err := svc.Create(context.Background(), Input{
		Name:                " Nasser ",
		Type:                models.TenantIndividual,
		Phone:               "9123 4567",
		Email:               strp(" Nasser@Example.com "),
		AuthorizedSignatory: "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "Nasser", tn.Name)
	assert.Equal(t, "+96891234567", tn.Phone)
	assert.Equal(t, "nasser@example.com", *tn.Email)
	assert.Equal(t, 5, tn.Rating)
	assert.Empty(t, tn.AuthorizedSignatory)
}

func TestCreateRejectsBadPhone(t *testing.T) {
	svc := newService(t)
	_, err := svc.Create(context.Background(), Input{Name: "X", Type: models.TenantCompany, Phone: "12"})
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "phone")
}

func TestProvisionUserFromEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	tn, err := svc.Create(ctx, Input{Name: "Maryam", Type: models.TenantIndividual, Phone: "91112222", Email: strp("maryam@mail.om")})
	require.NoError(t, err)

	u, err := svc.ProvisionUser(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, "maryam", u.Username)
	assert.Equal(t, models.RoleTenant, u.Role)
	assert.Equal(t, "+96891112222", *u.Phone)
	assert.Equal(t, "maryam@mail.om", *u.Email)

	got, err := svc.Get(ctx, tn.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UserID)
	assert.Equal(t, u.ID, *got.UserID)

	_, err = svc.ProvisionUser(ctx, tn.ID)
	var ce *apperror.ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestProvisionUserNameCollision(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.DB().Create(&models.User{Username: "user_96893334444", Name: "old", PasswordHash: "x", Role: models.RoleStaff, IsActive: true}).Error)

	tn, err := svc.Create(ctx, Input{Name: "Salim", Type: models.TenantIndividual, Phone: "93334444"})
	require.NoError(t, err)
	u, err := svc.ProvisionUser(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("user_96893334444_%d", tn.ID), u.Username)
	assert.Nil(t, u.Email)
}

func TestProvisionUserPhoneTaken(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	phone := "+96895556666"
	require.NoError(t, svc.DB().Create(&models.User{Username: "clerk", Name: "Clerk", Phone: &phone, PasswordHash: "x", Role: models.RoleStaff, IsActive: true}).Error)

	tn, err := svc.Create(ctx, Input{Name: "Ali", Type: models.TenantIndividual, Phone: phone})
	require.NoError(t, err)
	_, err = svc.ProvisionUser(ctx, tn.ID)
	var ce *apperror.ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestSendMessage(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	staff := models.User{Username: "clerk", Name: "Clerk", PasswordHash: "x", Role: models.RoleStaff, IsActive: true}
	require.NoError(t, svc.DB().Create(&staff).Error)
	tn, err := svc.Create(ctx, Input{Name: "Ali", Type: models.TenantIndividual, Phone: "97778888"})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, tn.ID, staff.ID, "hello")
	var ce *apperror.ConflictError
	require.ErrorAs(t, err, &ce)

	u, err := svc.ProvisionUser(ctx, tn.ID)
	require.NoError(t, err)
	n, err := svc.SendMessage(ctx, tn.ID, staff.ID, "  water cut on Sunday ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, n.UserID)
	assert.Equal(t, "water cut on Sunday", n.Message)
	require.NotNil(t, n.SentByID)
	assert.Equal(t, staff.ID, *n.SentByID)
}

func TestUpdateSyncsAccountAndDeleteDeactivates(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	tn, err := svc.Create(ctx, Input{Name: "Ali", Type: models.TenantIndividual, Phone: "97778888"})
	require.NoError(t, err)
	u, err := svc.ProvisionUser(ctx, tn.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, tn.ID, Input{Name: "Ali Said", Type: models.TenantIndividual, Phone: "97779999", Rating: 4})
	require.NoError(t, err)
	var got models.User
	require.NoError(t, svc.DB().First(&got, u.ID).Error)
	assert.Equal(t, "Ali Said", got.Name)
	assert.Equal(t, "+96897779999", *got.Phone)

	_, err = svc.Delete(ctx, tn.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DB().First(&got, u.ID).Error)
	assert.False(t, got.IsActive)
	assert.Nil(t, got.Phone)
}
