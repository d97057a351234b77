package report

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"rental-backend/internal/config"
	"rental-backend/internal/datex"
	"rental-backend/internal/expense"
	"rental-backend/internal/models"
	"rental-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var (
	today = datex.Date(2024, time.March, 20)
	optEN = Options{Locale: "en", Currency: "OMR"}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	db      *gorm.DB
	tenant  models.Tenant
	lease   models.Lease
	payment models.Payment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{db: db}

	b := models.Building{Name: "Al Khuwair Tower", Address: "Way 3012"}
	require.NoError(t, db.Create(&b).Error)
	u := models.Unit{BuildingID: b.ID, UnitNumber: "504", Type: models.UnitTypeOffice, Floor: 5, IsAvailable: true, Status: models.UnitStatusReady}
	require.NoError(t, db.Create(&u).Error)
	require.NoError(t, db.Create(&models.Unit{BuildingID: b.ID, UnitNumber: "505", Type: models.UnitTypeShop, IsAvailable: true, Status: models.UnitStatusReady}).Error)

	f.tenant = models.Tenant{Name: "Sohar Logistics", Type: models.TenantCompany, Phone: "+96893330000", AuthorizedSignatory: "Salim", Rating: 5}
	require.NoError(t, db.Create(&f.tenant).Error)
	require.NoError(t, db.Create(&models.Tenant{Name: "Aisha", Type: models.TenantIndividual, Phone: "+96893330001", Rating: 4}).Error)

	f.lease = models.Lease{
		UnitID: u.ID, TenantID: f.tenant.ID, ContractNumber: "C-77",
		MonthlyRent: dec("300"), StartDate: datex.Date(2024, 1, 1), EndDate: datex.Date(2024, 12, 31),
		Status: models.LeaseActive, OfficeFee: dec("5"), AdminFee: dec("1"), RegistrationFee: dec("108"),
	}
	require.NoError(t, db.Create(&f.lease).Error)

	voucher := "PAY-2024-0001"
	f.payment = models.Payment{LeaseID: f.lease.ID, VoucherNumber: &voucher, PaymentDate: datex.Date(2024, 3, 2),
		Amount: dec("300"), ForYear: 2024, ForMonth: 3, Method: models.PaymentCash}
	require.NoError(t, db.Create(&f.payment).Error)
	require.NoError(t, db.Create(&models.Payment{LeaseID: f.lease.ID, PaymentDate: datex.Date(2024, 3, 9),
		Amount: dec("100"), ForYear: 2024, ForMonth: 1, Method: models.PaymentCheque,
		ChequeNumber: "991", ChequeStatus: models.ChequePending}).Error)

	cat := models.ExpenseCategory{Name: "Electricity"}
	require.NoError(t, db.Create(&cat).Error)
	require.NoError(t, db.Create(&models.Expense{BuildingID: b.ID, CategoryID: cat.ID, Amount: dec("40"), Date: datex.Date(2024, 3, 5)}).Error)
	return f
}

func openXLSX(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	x, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = x.Close() })
	return x
}

func value(t *testing.T, x *excelize.File, cell string) string {
	t.Helper()
	v, err := x.GetCellValue(sheet, cell)
	require.NoError(t, err)
	return v
}

func TestTenantsExport(t *testing.T) {
	f := newFixture(t)
	data, err := Tenants(f.db, optEN)
	require.NoError(t, err)

	x := openXLSX(t, data)
	assert.Equal(t, "Tenants", value(t, x, "A1"))
	assert.Equal(t, "Name", value(t, x, "B2"))
	assert.Equal(t, "Aisha", value(t, x, "B3"))
	assert.Equal(t, "Company", value(t, x, "C4"))
	assert.Equal(t, "Total tenants", value(t, x, "A6"))
	assert.Equal(t, "2", value(t, x, "G6"))
}

func TestExportHeadersFollowLocale(t *testing.T) {
	f := newFixture(t)
	data, err := Tenants(f.db, Options{Locale: "ar", Currency: "OMR"})
	require.NoError(t, err)
	x := openXLSX(t, data)
	assert.Equal(t, "قائمة المستأجرين", value(t, x, "A1"))
	assert.Equal(t, "الاسم", value(t, x, "B2"))
}

func TestPaymentsExportTotals(t *testing.T) {
	f := newFixture(t)
	data, err := Payments(f.db.Model(&models.Payment{}), optEN)
	require.NoError(t, err)

	rows, err := openXLSX(t, data).GetRows(sheet)
	require.NoError(t, err)
	var labels []string
	for _, r := range rows {
		if len(r) > 0 {
			labels = append(labels, r[0])
		}
	}
	assert.Contains(t, labels, "Total amount")
	assert.Contains(t, labels, "Cash share")
	// title, header, two payments, blank, four totals, two shares
	assert.Len(t, rows, 11)
}

func TestUnitsExportOccupancy(t *testing.T) {
	f := newFixture(t)
	data, err := Units(f.db, optEN)
	require.NoError(t, err)
	x := openXLSX(t, data)
	assert.Equal(t, "Sohar Logistics", value(t, x, "G3"))
	assert.Equal(t, "", value(t, x, "G4"))
	assert.Equal(t, "Occupancy", value(t, x, "A10"))
	assert.Contains(t, value(t, x, "H10"), "50")
}

func TestTenantStatement(t *testing.T) {
	f := newFixture(t)
	d, err := TenantStatement(f.db, f.tenant.ID, today, optEN)
	require.NoError(t, err)

	require.Len(t, d.Sections, 4) // tenant, lease, payments, totals
	lease := d.Sections[1]
	require.Len(t, lease.Table.Rows, 12)
	assert.Equal(t, []string{"January 2024", "300.00", "100.00", "200.00", "Partial"}, lease.Table.Rows[0])
	assert.Equal(t, "Due", lease.Table.Rows[1][4])
	assert.Equal(t, "Paid", lease.Table.Rows[2][4])

	totals := d.Sections[3].Summary
	assert.Equal(t, "400.00 OMR", totals[1].Value)
	assert.Equal(t, "500.00 OMR", totals[2].Value) // 200 for January and 300 for February
	assert.Equal(t, "1", totals[3].Value)

	_, err = TenantStatement(f.db, 9999, today, optEN)
	assert.Error(t, err)
}

func TestPDFAndHTMLFallback(t *testing.T) {
	f := newFixture(t)
	d, err := PaymentReceipt(f.db, f.payment.ID, today, optEN)
	require.NoError(t, err)

	pdf, err := PDF(d, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = PDF(d, filepath.Join(t.TempDir(), "missing.ttf"))
	require.Error(t, err)

	page, err := HTML(d, err)
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, "PDF generation failed")
	assert.Contains(t, html, "PAY-2024-0001")
	assert.Contains(t, html, "سند قبض")
}

func TestReceiptHandlerFallsBackToHTML(t *testing.T) {
	f := newFixture(t)
	opt := optEN
	opt.FontPath = filepath.Join(t.TempDir(), "missing.ttf")
	app := testutil.NewApp(testutil.Caller{UserID: 1, Role: models.RoleStaff})
	app.Get("/receipt/:id", PaymentReceiptHandler(f.db, opt, func() time.Time { return today }))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/receipt/"+itoa(f.payment.ID), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "text/html"))
}

func TestReceiptHandlerHidesOtherTenantsPayments(t *testing.T) {
	f := newFixture(t)
	other := uint(9999)
	app := testutil.NewApp(testutil.Caller{UserID: 1, Role: models.RoleTenant, TenantID: &other})
	app.Get("/receipt/:id", PaymentReceiptHandler(f.db, optEN, func() time.Time { return today }))

	status := testutil.Do(t, app, http.MethodGet, "/receipt/"+itoa(f.payment.ID), nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestProfitLoss(t *testing.T) {
	f := newFixture(t)
	exp := expense.NewService(f.db, config.Defaults())

	pl, err := ComputeProfitLoss(context.Background(), exp, 2024, time.March)
	require.NoError(t, err)
	assert.True(t, dec("400").Equal(pl.Income))
	assert.True(t, dec("40").Equal(pl.Expenses))
	assert.True(t, dec("360").Equal(pl.Net))
	assert.Equal(t, "90", pl.Margin.String())
	assert.Equal(t, int64(2), pl.PaymentCount)
	require.Len(t, pl.IncomeByMethod, 2)
	require.Len(t, pl.Buildings, 1)
	assert.True(t, dec("360").Equal(pl.Buildings[0].Net))

	d := ProfitLossDocument(pl, today, optEN)
	assert.Equal(t, "360.00 OMR", d.Sections[0].Summary[2].Value)

	_, err = ComputeProfitLoss(context.Background(), exp, 2024, 13)
	assert.Error(t, err)
}

func TestContractUsesTemplate(t *testing.T) {
	f := newFixture(t)
	d, err := Contract(f.db, f.lease.ID, today, optEN)
	require.NoError(t, err)
	assert.Contains(t, strings.Join(d.Sections[0].Lines, "\n"), "Monthly rent: 300.00 OMR")

	tpl := models.ContractTemplate{Name: "Short", Body: "{{.TenantName}} rents {{.UnitNumber}} until {{.EndDate}}"}
	require.NoError(t, f.db.Create(&tpl).Error)
	require.NoError(t, f.db.Model(&f.lease).Update("template_id", tpl.ID).Error)

	d, err = Contract(f.db, f.lease.ID, today, optEN)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sohar Logistics rents 504 until 2024-12-31"}, d.Sections[0].Lines)
}

func TestParseContractRejectsUnknownFields(t *testing.T) {
	_, err := ParseContract("{{.Landlord}}")
	assert.Error(t, err)
	_, err = ParseContract("{{.TenantName")
	assert.Error(t, err)
	_, err = ParseContract(defaultContractBody)
	assert.NoError(t, err)
}

func TestTemplateHandlers(t *testing.T) {
	f := newFixture(t)
	app := testutil.NewApp(testutil.Caller{UserID: 1, Role: models.RoleAdmin})
	app.Post("/templates", CreateTemplateHandler(f.db))
	app.Delete("/templates/:id", DeleteTemplateHandler(f.db))

	var created ContractTemplateResponse
	status := testutil.Do(t, app, http.MethodPost, "/templates", ContractTemplateRequest{Name: "Office", Body: "{{.TenantName}}"}, &created)
	require.Equal(t, fiber.StatusCreated, status)

	status = testutil.Do(t, app, http.MethodPost, "/templates", ContractTemplateRequest{Name: "Broken", Body: "{{.Nope}}"}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	status = testutil.Do(t, app, http.MethodPost, "/templates", ContractTemplateRequest{Name: "Office", Body: "x"}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	require.NoError(t, f.db.Model(&f.lease).Update("template_id", created.ID).Error)
	status = testutil.Do(t, app, http.MethodDelete, "/templates/"+itoa(created.ID), nil, nil)
	assert.Equal(t, fiber.StatusConflict, status)
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
