package admin

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/auth"
	"rental-backend/internal/config"
	"rental-backend/internal/datex"
	"rental-backend/internal/expense"
	"rental-backend/internal/models"
	"rental-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStoresProfitLoss(t *testing.T) {
	db := testutil.NewDB(t)
	exp := expense.NewService(db, config.Defaults())
	b := models.Building{Name: "Mabela Court", Address: "Mabela"}
	require.NoError(t, db.Create(&b).Error)
	cat := models.ExpenseCategory{Name: "Security"}
	require.NoError(t, db.Create(&cat).Error)
	require.NoError(t, db.Create(&models.Expense{BuildingID: b.ID, CategoryID: cat.ID,
		Amount: decimal.RequireFromString("75"), Date: datex.Date(2024, 2, 14)}).Error)

	now := datex.Date(2024, 3, 1)
	ctx := context.Background()

	_, err := Snapshot(ctx, db, exp, 2024, time.March, false, 1, now)
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)

	r, err := Snapshot(ctx, db, exp, 2024, time.February, false, 1, now)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("-75").Equal(r.NetProfit))
	assert.Contains(t, string(r.ReportData), "Security")

	_, err = Snapshot(ctx, db, exp, 2024, time.February, false, 1, now)
	var ce *apperror.ConflictError
	require.ErrorAs(t, err, &ce)

	again, err := Snapshot(ctx, db, exp, 2024, time.February, true, 1, now)
	require.NoError(t, err)
	assert.Equal(t, r.ID, again.ID)

	var n int64
	require.NoError(t, db.Model(&models.MonthlyReport{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestUserManagement(t *testing.T) {
	db := testutil.NewDB(t)
	root, err := EnsureAdmin(db, "root", "Root", "correct horse")
	require.NoError(t, err)
	_, err = EnsureAdmin(db, "root", "Root", "correct horse")
	require.ErrorIs(t, err, ErrUserExists)

	app := testutil.NewApp(testutil.Caller{UserID: root.ID, Role: models.RoleAdmin})
	app.Get("/users", ListUsersHandler(db))
	app.Post("/users", CreateUserHandler(db))
	app.Put("/users/:id", UpdateUserHandler(db))
	app.Post("/users/:id/password", ResetPasswordHandler(db))

	var clerk UserResponse
	status := testutil.Do(t, app, http.MethodPost, "/users", CreateUserRequest{
		Username: "clerk", Name: "Clerk", Email: "Clerk@Example.com", Password: "password1", Role: models.RoleStaff,
	}, &clerk)
	require.Equal(t, fiber.StatusCreated, status)
	require.NotNil(t, clerk.Email)
	assert.Equal(t, "clerk@example.com", *clerk.Email)

	status = testutil.Do(t, app, http.MethodPost, "/users", CreateUserRequest{
		Username: "clerk", Name: "Other", Password: "password1", Role: models.RoleStaff,
	}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	status = testutil.Do(t, app, http.MethodPost, "/users", CreateUserRequest{
		Username: "tenant1", Name: "Tenant", Password: "password1", Role: models.RoleTenant,
	}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	off := false
	status = testutil.Do(t, app, http.MethodPut, "/users/"+strconv.Itoa(int(root.ID)), UpdateUserRequest{IsActive: &off}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	status = testutil.Do(t, app, http.MethodPut, "/users/"+strconv.Itoa(int(clerk.ID)), UpdateUserRequest{IsActive: &off}, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status = testutil.Do(t, app, http.MethodPost, "/users/"+strconv.Itoa(int(clerk.ID))+"/password", ResetPasswordRequest{Password: "new-password"}, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	var u models.User
	require.NoError(t, db.First(&u, clerk.ID).Error)
	assert.True(t, auth.CheckPassword(u.PasswordHash, "new-password"))
	assert.False(t, u.IsActive)

	var list []UserResponse
	require.Equal(t, fiber.StatusOK, testutil.Do(t, app, http.MethodGet, "/users?active=true", nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "root", list[0].Username)
}
