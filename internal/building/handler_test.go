package building

import (
	"net/http"
	"testing"

	"rental-backend/internal/models"
	"rental-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	admin := models.User{Username: "admin", Name: "Admin", PasswordHash: "x", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, db.Create(&admin).Error)

	app := testutil.NewApp(testutil.Caller{UserID: admin.ID, Role: admin.Role})
	app.Get("/buildings", ListBuildingsHandler(db))
	app.Post("/buildings", CreateBuildingHandler(db))
	app.Get("/buildings/:id", GetBuildingHandler(db))
	app.Put("/buildings/:id", UpdateBuildingHandler(db))
	app.Delete("/buildings/:id", DeleteBuildingHandler(db))
	app.Get("/units", ListUnitsHandler(db))
	app.Post("/units", CreateUnitHandler(db))
	app.Put("/units/:id", UpdateUnitHandler(db))
	app.Delete("/units/:id", DeleteUnitHandler(db))
	return app, db
}

func TestBuildingAndUnitLifecycle(t *testing.T) {
	app, db := newApp(t)

	var b BuildingResponse
	status := testutil.Do(t, app, http.MethodPost, "/buildings", BuildingRequest{Name: " Al Mouj ", Address: "Seeb"}, &b)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Al Mouj", b.Name)

	var u UnitResponse
	status = testutil.Do(t, app, http.MethodPost, "/units", CreateUnitRequest{
		BuildingID: b.ID, UnitNumber: "A1", Type: models.UnitTypeOffice, Floor: 2,
	}, &u)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, u.IsAvailable)
	assert.Equal(t, models.UnitStatusReady, u.Status)

	var list []BuildingResponse
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/buildings", nil, &list))
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, list[0].UnitCount)
	assert.EqualValues(t, 1, list[0].VacantUnit)

	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&logs).Error)
	assert.EqualValues(t, 2, logs)

	require.Equal(t, http.StatusNoContent, testutil.Do(t, app, http.MethodDelete, "/buildings/1", nil, nil))
	var units int64
	require.NoError(t, db.Model(&models.Unit{}).Count(&units).Error)
	assert.Zero(t, units)
}

func TestDuplicateUnitNumberRejected(t *testing.T) {
	app, _ := newApp(t)
	var b BuildingResponse
	testutil.Do(t, app, http.MethodPost, "/buildings", BuildingRequest{Name: "Tower", Address: "Ghubra"}, &b)

	req := CreateUnitRequest{BuildingID: b.ID, UnitNumber: "5", Type: models.UnitTypeShop}
	require.Equal(t, http.StatusCreated, testutil.Do(t, app, http.MethodPost, "/units", req, nil))

	var body map[string]any
	status := testutil.Do(t, app, http.MethodPost, "/units", req, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["fields"], "unit_number")
}

func TestUnitTypeValidated(t *testing.T) {
	app, _ := newApp(t)
	var b BuildingResponse
	testutil.Do(t, app, http.MethodPost, "/buildings", BuildingRequest{Name: "Tower", Address: "Ghubra"}, &b)

	var body map[string]any
	status := testutil.Do(t, app, http.MethodPost, "/units", map[string]any{
		"building_id": b.ID, "unit_number": "9", "type": "warehouse",
	}, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["fields"], "type")
}

func TestUnitWithLeaseCannotBeDeleted(t *testing.T) {
	app, db := newApp(t)
	var b BuildingResponse
	testutil.Do(t, app, http.MethodPost, "/buildings", BuildingRequest{Name: "Tower", Address: "Ghubra"}, &b)
	var u UnitResponse
	testutil.Do(t, app, http.MethodPost, "/units", CreateUnitRequest{BuildingID: b.ID, UnitNumber: "7", Type: models.UnitTypeApartment}, &u)

	tn := models.Tenant{Name: "T", Type: models.TenantIndividual, Phone: "+96890000001", Rating: 5}
	require.NoError(t, db.Create(&tn).Error)
	l := models.Lease{UnitID: u.ID, TenantID: tn.ID, ContractNumber: "X-1", Status: models.LeaseActive}
	require.NoError(t, db.Omit("Unit", "Tenant").Create(&l).Error)

	assert.Equal(t, http.StatusConflict, testutil.Do(t, app, http.MethodDelete, "/units/1", nil, nil))
	assert.Equal(t, http.StatusConflict, testutil.Do(t, app, http.MethodDelete, "/buildings/1", nil, nil))
}
