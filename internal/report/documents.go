package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/datex"
	"rental-backend/internal/expense"
	"rental-backend/internal/lease"
	"rental-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func money(d decimal.Decimal, currency string) string {
	return d.StringFixed(2) + " " + currency
}

func day(t time.Time) string { return t.Format(time.DateOnly) }

var monthStatuses = map[lease.MonthStatus]Label{
	lease.MonthPaid:     {"Paid", "مدفوع"},
	lease.MonthPartial:  {"Partial", "جزئي"},
	lease.MonthDue:      {"Due", "مستحق"},
	lease.MonthUpcoming: {"Upcoming", "قادم"},
}

func first(db *gorm.DB, dst any, id uint, resource string) error {
	if err := db.First(dst, id).Error; err != nil {
		return apperror.FromDB(err, resource)
	}
	return nil
}

// TenantStatement lists every lease of a tenant with its month-by-month
// payment summary and the payments received.
func TenantStatement(db *gorm.DB, tenantID uint, today time.Time, opt Options) (*Document, error) {
	var t models.Tenant
	if err := first(db, &t, tenantID, "tenant"); err != nil {
		return nil, err
	}
	var leases []models.Lease
	if err := db.Preload("Unit.Building").Where("tenant_id = ?", t.ID).Order("start_date").Find(&leases).Error; err != nil {
		return nil, apperror.Internal(err)
	}

	doc := &Document{Title: Label{"Tenant statement", "كشف حساب المستأجر"}, Date: today}
	info := Section{Title: Label{"Tenant", "المستأجر"}, Summary: []SummaryLine{
		{lName, t.Name},
		{lType, caption(tenantTypes, t.Type, "en")},
		{lPhone, t.Phone},
	}}
	if t.AuthorizedSignatory != "" {
		info.Summary = append(info.Summary, SummaryLine{lSignatory, t.AuthorizedSignatory})
	}
	doc.Sections = append(doc.Sections, info)

	var grand lease.Totals
	for _, l := range leases {
		records, err := lease.LoadSummary(db, l, today, opt.Locale)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		tbl := &Table{Headers: []Label{lMonth, lDue, lPaid, lBalance, lStatus}, Widths: []float64{2, 1.5, 1.5, 1.5, 1.2}}
		for _, r := range records {
			tbl.Rows = append(tbl.Rows, []string{
				fmt.Sprintf("%s %d", r.MonthName, r.Year),
				r.RentDue.StringFixed(2), r.AmountPaid.StringFixed(2), r.Balance.StringFixed(2),
				caption(monthStatuses, r.Status, opt.Locale),
			})
		}
		tot := lease.Total(records)
		grand.RentDue = grand.RentDue.Add(tot.RentDue)
		grand.AmountPaid = grand.AmountPaid.Add(tot.AmountPaid)
		grand.Outstanding = grand.Outstanding.Add(tot.Outstanding)
		grand.DueMonths += tot.DueMonths

		doc.Sections = append(doc.Sections, Section{
			Title: Label{"Lease " + l.ContractNumber, "العقد " + l.ContractNumber},
			Lines: []string{fmt.Sprintf("%s / %s, %s to %s, %s",
				l.Unit.Building.Name, l.Unit.UnitNumber, day(l.StartDate), day(l.EndDate),
				leaseStatuses[l.Status].EN)},
			Table: tbl,
			Summary: []SummaryLine{
				{lDue, money(tot.RentDue, opt.Currency)},
				{lPaid, money(tot.AmountPaid, opt.Currency)},
				{Label{"Outstanding", "المبلغ المستحق"}, money(tot.Outstanding, opt.Currency)},
			},
		})
	}

	var payments []models.Payment
	if err := db.Preload("Lease").
		Where("lease_id IN (?)", db.Model(&models.Lease{}).Select("id").Where("tenant_id = ?", t.ID)).
		Order("payment_date, id").Find(&payments).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	if len(payments) > 0 {
		tbl := &Table{Headers: []Label{lVoucher, lContract, lPayDate, lMonth, lMethod, lAmount}}
		for _, p := range payments {
			v := ""
			if p.VoucherNumber != nil {
				v = *p.VoucherNumber
			}
			tbl.Rows = append(tbl.Rows, []string{v, p.Lease.ContractNumber, day(p.PaymentDate),
				monthLabel(p.ForYear, p.ForMonth), paymentMethods[p.Method].EN, p.Amount.StringFixed(2)})
		}
		doc.Sections = append(doc.Sections, Section{Title: Label{"Payments", "المدفوعات"}, Table: tbl})
	}

	doc.Sections = append(doc.Sections, Section{Title: Label{"Totals", "الإجماليات"}, Summary: []SummaryLine{
		{lDue, money(grand.RentDue, opt.Currency)},
		{lPaid, money(grand.AmountPaid, opt.Currency)},
		{Label{"Outstanding", "المبلغ المستحق"}, money(grand.Outstanding, opt.Currency)},
		{Label{"Unpaid months", "الأشهر غير المدفوعة"}, strconv.Itoa(grand.DueMonths)},
	}})
	return doc, nil
}

// PaymentReceipt is the printable voucher for one payment.
func PaymentReceipt(db *gorm.DB, paymentID uint, today time.Time, opt Options) (*Document, error) {
	var p models.Payment
	if err := db.Preload("Lease.Tenant").Preload("Lease.Unit.Building").First(&p, paymentID).Error; err != nil {
		return nil, apperror.FromDB(err, "payment")
	}
	voucher := "-"
	if p.VoucherNumber != nil {
		voucher = *p.VoucherNumber
	}
	lines := []SummaryLine{
		{lVoucher, voucher},
		{lPayDate, day(p.PaymentDate)},
		{lTenant, p.Lease.Tenant.Name},
		{lContract, p.Lease.ContractNumber},
		{lUnit, p.Lease.Unit.Building.Name + " / " + p.Lease.Unit.UnitNumber},
		{lMonth, fmt.Sprintf("%s %d", lease.MonthName(time.Month(p.ForMonth), "en"), p.ForYear)},
		{lMethod, paymentMethods[p.Method].EN},
		{lAmount, money(p.Amount, opt.Currency)},
	}
	if p.Method == models.PaymentCheque {
		lines = append(lines,
			SummaryLine{Label{"Cheque number", "رقم الشيك"}, p.ChequeNumber},
			SummaryLine{Label{"Bank", "البنك"}, p.ChequeBank},
			SummaryLine{lCheque, chequeStatuses[p.ChequeStatus].EN},
		)
		if p.ChequeDueDate != nil {
			lines = append(lines, SummaryLine{Label{"Cheque due date", "تاريخ استحقاق الشيك"}, day(*p.ChequeDueDate)})
		}
	}
	sec := Section{Title: Label{"Payment details", "تفاصيل الدفع"}, Summary: lines}
	if p.Notes != "" {
		sec.Lines = []string{p.Notes}
	}
	return &Document{
		Title:    Label{"Payment receipt", "سند قبض"},
		Date:     today,
		Sections: []Section{sec},
	}, nil
}

type MethodTotal struct {
	Method models.PaymentMethod `json:"method"`
	Total  decimal.Decimal      `json:"total"`
	Count  int64                `json:"count"`
}

type BuildingTotal struct {
	BuildingID uint            `json:"building_id"`
	Name       string          `json:"name"`
	Income     decimal.Decimal `json:"income"`
	Expenses   decimal.Decimal `json:"expenses"`
	Net        decimal.Decimal `json:"net"`
}

// ProfitLoss compares rent received (by payment date) with expenses (by
// expense date) for one calendar month.
type ProfitLoss struct {
	Year               int                     `json:"year"`
	Month              int                     `json:"month"`
	Income             decimal.Decimal         `json:"income"`
	Expenses           decimal.Decimal         `json:"expenses"`
	Net                decimal.Decimal         `json:"net"`
	Margin             decimal.Decimal         `json:"margin"` // percent of income
	PaymentCount       int64                   `json:"payment_count"`
	ExpenseCount       int64                   `json:"expense_count"`
	IncomeByMethod     []MethodTotal           `json:"income_by_method"`
	ExpensesByCategory []expense.CategoryTotal `json:"expenses_by_category"`
	Buildings          []BuildingTotal         `json:"buildings"`
}

func ComputeProfitLoss(ctx context.Context, exp *expense.Service, year int, month time.Month) (*ProfitLoss, error) {
	if month < time.January || month > time.December {
		return nil, apperror.Invalid("month", "must be between 1 and 12")
	}
	db := exp.DB().WithContext(ctx)
	from := datex.Date(year, month, 1)
	to := datex.MonthEnd(from)
	pl := &ProfitLoss{Year: year, Month: int(month)}

	if err := db.Model(&models.Payment{}).
		Select("method, SUM(amount) AS total, COUNT(*) AS count").
		Where("payment_date BETWEEN ? AND ?", from, to).
		Group("method").Order("method").
		Scan(&pl.IncomeByMethod).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	for _, m := range pl.IncomeByMethod {
		pl.Income = pl.Income.Add(m.Total)
		pl.PaymentCount += m.Count
	}

	cats, err := exp.Summary(ctx, 0, year, month)
	if err != nil {
		return nil, err
	}
	pl.ExpensesByCategory = cats.Items
	pl.Expenses = cats.GrandTotal
	if err := db.Model(&models.Expense{}).Where("expense_date BETWEEN ? AND ?", from, to).Count(&pl.ExpenseCount).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	pl.Net = pl.Income.Sub(pl.Expenses)
	pl.Margin = share(pl.Net, pl.Income)

	type row struct {
		BuildingID uint
		Name       string
		Total      decimal.Decimal
	}
	var income, spent []row
	if err := db.Table("payments").
		Select("buildings.id AS building_id, buildings.name AS name, SUM(payments.amount) AS total").
		Joins("JOIN leases ON leases.id = payments.lease_id").
		Joins("JOIN units ON units.id = leases.unit_id").
		Joins("JOIN buildings ON buildings.id = units.building_id").
		Where("payments.payment_date BETWEEN ? AND ?", from, to).
		Group("buildings.id, buildings.name").
		Scan(&income).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	if err := db.Table("expenses").
		Select("buildings.id AS building_id, buildings.name AS name, SUM(expenses.amount) AS total").
		Joins("JOIN buildings ON buildings.id = expenses.building_id").
		Where("expenses.expense_date BETWEEN ? AND ?", from, to).
		Group("buildings.id, buildings.name").
		Scan(&spent).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	byID := map[uint]*BuildingTotal{}
	var order []uint
	get := func(r row) *BuildingTotal {
		b, ok := byID[r.BuildingID]
		if !ok {
			b = &BuildingTotal{BuildingID: r.BuildingID, Name: r.Name}
			byID[r.BuildingID] = b
			order = append(order, r.BuildingID)
		}
		return b
	}
	for _, r := range income {
		get(r).Income = r.Total
	}
	for _, r := range spent {
		get(r).Expenses = r.Total
	}
	pl.Buildings = make([]BuildingTotal, 0, len(order))
	for _, id := range order {
		b := byID[id]
		b.Net = b.Income.Sub(b.Expenses)
		pl.Buildings = append(pl.Buildings, *b)
	}
	return pl, nil
}

// ProfitLossDocument lays out a computed profit and loss report.
func ProfitLossDocument(pl *ProfitLoss, today time.Time, opt Options) *Document {
	period := fmt.Sprintf("%s %d", lease.MonthName(time.Month(pl.Month), "en"), pl.Year)
	doc := &Document{Title: Label{"Profit and loss " + period, "تقرير الأرباح والخسائر " + monthLabel(pl.Year, pl.Month)}, Date: today}

	doc.Sections = append(doc.Sections, Section{Title: Label{"Summary", "الملخص"}, Summary: []SummaryLine{
		{Label{"Total income", "إجمالي الإيرادات"}, money(pl.Income, opt.Currency)},
		{Label{"Total expenses", "إجمالي المصروفات"}, money(pl.Expenses, opt.Currency)},
		{Label{"Net profit", "صافي الربح"}, money(pl.Net, opt.Currency)},
		{Label{"Profit margin", "هامش الربح"}, pl.Margin.String() + "%"},
	}})

	income := &Table{Headers: []Label{lMethod, Label{"Payments", "عدد المدفوعات"}, lAmount}}
	for _, m := range pl.IncomeByMethod {
		income.Rows = append(income.Rows, []string{paymentMethods[m.Method].EN, strconv.FormatInt(m.Count, 10), m.Total.StringFixed(2)})
	}
	doc.Sections = append(doc.Sections, Section{Title: Label{"Income by payment method", "الإيرادات حسب طريقة الدفع"}, Table: income})

	spent := &Table{Headers: []Label{lCategory, lAmount, Label{"Share", "النسبة"}}}
	for _, c := range pl.ExpensesByCategory {
		spent.Rows = append(spent.Rows, []string{c.CategoryName, c.Total.StringFixed(2), share(c.Total, pl.Expenses).String() + "%"})
	}
	doc.Sections = append(doc.Sections, Section{Title: Label{"Expenses by category", "المصروفات حسب الفئة"}, Table: spent})

	if len(pl.Buildings) > 0 {
		b := &Table{Headers: []Label{lBuilding, Label{"Income", "الإيرادات"}, Label{"Expenses", "المصروفات"}, Label{"Net", "الصافي"}}}
		for _, r := range pl.Buildings {
			b.Rows = append(b.Rows, []string{r.Name, r.Income.StringFixed(2), r.Expenses.StringFixed(2), r.Net.StringFixed(2)})
		}
		doc.Sections = append(doc.Sections, Section{Title: Label{"By building", "حسب المبنى"}, Table: b})
	}
	return doc
}

// ContractData is what a contract template body can refer to.
type ContractData struct {
	ContractNumber     string
	ContractFormNumber string
	TenantName         string
	TenantPhone        string
	Signatory          string
	BuildingName       string
	BuildingAddress    string
	UnitNumber         string
	UnitType           string
	Floor              int
	MonthlyRent        string
	OfficeFee          string
	AdminFee           string
	RegistrationFee    string
	Currency           string
	StartDate          string
	EndDate            string
	ElectricityMeter   string
	WaterMeter         string
	Today              string
}

const defaultContractBody = `Lease contract {{.ContractNumber}}

The landlord lets unit {{.UnitNumber}} ({{.UnitType}}, floor {{.Floor}}) in {{.BuildingName}}, {{.BuildingAddress}} to {{.TenantName}}{{if .Signatory}}, represented by {{.Signatory}}{{end}}.

Term: from {{.StartDate}} to {{.EndDate}}.
Monthly rent: {{.MonthlyRent}} {{.Currency}}, payable in advance at the start of each month.
Office fee: {{.OfficeFee}} {{.Currency}}. Administration fee: {{.AdminFee}} {{.Currency}}. Registration fee: {{.RegistrationFee}} {{.Currency}}.
Electricity meter: {{.ElectricityMeter}}. Water meter: {{.WaterMeter}}.

Signed on {{.Today}}.`

var errTemplate = errors.New("contract template")

// ParseContract checks that body is a template that renders against a lease.
func ParseContract(body string) (*template.Template, error) {
	tpl, err := template.New("contract").Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTemplate, err)
	}
	if err := tpl.Execute(new(strings.Builder), ContractData{}); err != nil {
		return nil, fmt.Errorf("%w: %v", errTemplate, err)
	}
	return tpl, nil
}

func contractData(l *models.Lease, today time.Time, opt Options) ContractData {
	return ContractData{
		ContractNumber:     l.ContractNumber,
		ContractFormNumber: l.ContractFormNumber,
		TenantName:         l.Tenant.Name,
		TenantPhone:        l.Tenant.Phone,
		Signatory:          l.Tenant.AuthorizedSignatory,
		BuildingName:       l.Unit.Building.Name,
		BuildingAddress:    l.Unit.Building.Address,
		UnitNumber:         l.Unit.UnitNumber,
		UnitType:           unitTypes[l.Unit.Type].EN,
		Floor:              l.Unit.Floor,
		MonthlyRent:        l.MonthlyRent.StringFixed(2),
		OfficeFee:          l.OfficeFee.StringFixed(2),
		AdminFee:           l.AdminFee.StringFixed(2),
		RegistrationFee:    l.RegistrationFee.StringFixed(2),
		Currency:           opt.Currency,
		StartDate:          day(l.StartDate),
		EndDate:            day(l.EndDate),
		ElectricityMeter:   l.ElectricityMeter,
		WaterMeter:         l.WaterMeter,
		Today:              day(today),
	}
}

// Contract renders the lease through its template, or the built-in body
// when the lease has none.
func Contract(db *gorm.DB, leaseID uint, today time.Time, opt Options) (*Document, error) {
	var l models.Lease
	if err := db.Preload("Tenant").Preload("Unit.Building").Preload("Template").First(&l, leaseID).Error; err != nil {
		return nil, apperror.FromDB(err, "lease")
	}
	body := defaultContractBody
	if l.Template != nil {
		body = l.Template.Body
	}
	tpl, err := ParseContract(body)
	if err != nil {
		return nil, err
	}
	var out strings.Builder
	if err := tpl.Execute(&out, contractData(&l, today, opt)); err != nil {
		return nil, fmt.Errorf("%w: %v", errTemplate, err)
	}
	return &Document{
		Title:    Label{"Lease contract " + l.ContractNumber, "عقد إيجار " + l.ContractNumber},
		Date:     today,
		Sections: []Section{{Lines: strings.Split(out.String(), "\n")}},
	}, nil
}
