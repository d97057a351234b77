package report

import (
	"fmt"
	"sort"

	"rental-backend/internal/dashboard"
	"rental-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newExporter(opt Options) *Exporter {
	return NewExporter(opt.Currency, opt.Locale == "ar")
}

func monthLabel(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Tenants exports every tenant ordered by name.
func Tenants(db *gorm.DB, opt Options) ([]byte, error) {
	var rows []models.Tenant
	if err := db.Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	loc := opt.Locale
	cols := []Label{lNo, lName, lType, lPhone, lEmail, lSignatory, lRating}
	x := newExporter(opt).
		Title(Label{"Tenants", "قائمة المستأجرين"}.In(loc), len(cols)).
		Header(labels(loc, cols...), []ValueKind{KindNumber, KindText, KindText, KindText, KindText, KindText, KindNumber})
	for i, t := range rows {
		x.Row(i+1, t.Name, caption(tenantTypes, t.Type, loc), t.Phone, t.Email, t.AuthorizedSignatory, t.Rating)
	}
	return x.Blank().
		Total(Label{"Total tenants", "إجمالي المستأجرين"}.In(loc), len(rows), KindNumber).
		Widths(6, 30, 12, 18, 28, 24, 10).
		Bytes()
}

// Leases exports the leases matched by q.
func Leases(q *gorm.DB, opt Options) ([]byte, error) {
	var rows []models.Lease
	if err := q.Preload("Tenant").Preload("Unit.Building").Order("start_date desc, id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	loc := opt.Locale
	cols := []Label{lNo, lContract, lTenant, lUnit, lRent, lStart, lEnd, lStatus}
	x := newExporter(opt).
		Title(Label{"Leases", "قائمة العقود"}.In(loc), len(cols)).
		Header(labels(loc, cols...), []ValueKind{KindNumber, KindText, KindText, KindText, KindCurrency, KindDate, KindDate, KindText})

	rent := decimal.Zero
	active := 0
	for i, l := range rows {
		x.Row(i+1, l.ContractNumber, l.Tenant.Name, l.Unit.Building.Name+" / "+l.Unit.UnitNumber,
			l.MonthlyRent, l.StartDate, l.EndDate, caption(leaseStatuses, l.Status, loc))
		if l.Status.Occupies() {
			active++
			rent = rent.Add(l.MonthlyRent)
		}
	}
	x.Blank().
		Total(Label{"Total leases", "إجمالي العقود"}.In(loc), len(rows), KindNumber).
		Total(Label{"Active leases", "العقود النشطة"}.In(loc), active, KindNumber).
		Total(Label{"Total monthly rent", "إجمالي الإيجار الشهري"}.In(loc), rent, KindCurrency)
	if len(rows) > 0 {
		x.Percent(Label{"Active share", "نسبة العقود النشطة"}.In(loc), dashboard.Percent(int64(active), int64(len(rows))))
	}
	return x.Widths(6, 16, 28, 22, 16, 14, 14, 14).Bytes()
}

// share returns part/whole as a percentage with one decimal.
func share(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).Round(1)
}

// Payments exports the payments matched by q.
func Payments(q *gorm.DB, opt Options) ([]byte, error) {
	var rows []models.Payment
	if err := q.Preload("Lease.Tenant").Order("payments.payment_date desc, payments.id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	loc := opt.Locale
	cols := []Label{lNo, lVoucher, lContract, lTenant, lAmount, lPayDate, lMonth, lMethod, lCheque}
	x := newExporter(opt).
		Title(Label{"Payments", "قائمة المدفوعات"}.In(loc), len(cols)).
		Header(labels(loc, cols...), []ValueKind{KindNumber, KindText, KindText, KindText, KindCurrency, KindDate, KindText, KindText, KindText})

	total, cash, cheque := decimal.Zero, decimal.Zero, decimal.Zero
	for i, p := range rows {
		status := ""
		if p.Method == models.PaymentCheque {
			status = caption(chequeStatuses, p.ChequeStatus, loc)
		}
		x.Row(i+1, p.VoucherNumber, p.Lease.ContractNumber, p.Lease.Tenant.Name, p.Amount, p.PaymentDate,
			monthLabel(p.ForYear, p.ForMonth), caption(paymentMethods, p.Method, loc), status)
		total = total.Add(p.Amount)
		switch p.Method {
		case models.PaymentCash:
			cash = cash.Add(p.Amount)
		case models.PaymentCheque:
			cheque = cheque.Add(p.Amount)
		}
	}
	x.Blank().
		Total(Label{"Number of payments", "إجمالي المدفوعات"}.In(loc), len(rows), KindNumber).
		Total(Label{"Total amount", "إجمالي المبالغ"}.In(loc), total, KindCurrency).
		Total(Label{"Cash payments", "المدفوعات النقدية"}.In(loc), cash, KindCurrency).
		Total(Label{"Cheque payments", "مدفوعات الشيكات"}.In(loc), cheque, KindCurrency)
	if total.IsPositive() {
		x.Percent(Label{"Cash share", "نسبة المدفوعات النقدية"}.In(loc), share(cash, total)).
			Percent(Label{"Cheque share", "نسبة مدفوعات الشيكات"}.In(loc), share(cheque, total))
	}
	return x.Widths(6, 16, 16, 28, 14, 14, 10, 16, 14).Bytes()
}

// Expenses exports the expenses matched by q with a per-category breakdown.
func Expenses(q *gorm.DB, opt Options) ([]byte, error) {
	var rows []models.Expense
	if err := q.Preload("Building").Preload("Category").Order("expense_date desc, id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	loc := opt.Locale
	cols := []Label{lNo, lVoucher, lBuilding, lCategory, lDescription, lAmount, lExpDate}
	x := newExporter(opt).
		Title(Label{"Expenses", "قائمة المصروفات"}.In(loc), len(cols)).
		Header(labels(loc, cols...), []ValueKind{KindNumber, KindText, KindText, KindText, KindText, KindCurrency, KindDate})

	total := decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	for i, e := range rows {
		x.Row(i+1, e.VoucherNumber, e.Building.Name, e.Category.Name, e.Description, e.Amount, e.Date)
		total = total.Add(e.Amount)
		byCategory[e.Category.Name] = byCategory[e.Category.Name].Add(e.Amount)
	}
	x.Blank().
		Total(Label{"Number of expenses", "إجمالي المصروفات"}.In(loc), len(rows), KindNumber).
		Total(Label{"Total amount", "إجمالي المبالغ"}.In(loc), total, KindCurrency)

	names := make([]string, 0, len(byCategory))
	for n := range byCategory {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		x.Total(n, byCategory[n], KindCurrency)
	}
	if total.IsPositive() {
		for _, n := range names {
			x.Percent(n+" %", share(byCategory[n], total))
		}
	}
	return x.Widths(6, 16, 20, 18, 36, 14, 14).Bytes()
}

// Units exports every unit with its current tenant and rent.
func Units(db *gorm.DB, opt Options) ([]byte, error) {
	var units []models.Unit
	if err := db.Preload("Building").Order("building_id, unit_number").Find(&units).Error; err != nil {
		return nil, err
	}
	var current []models.Lease
	if err := db.Preload("Tenant").Where("status IN ?", models.OccupyingStatuses).Find(&current).Error; err != nil {
		return nil, err
	}
	byUnit := make(map[uint]models.Lease, len(current))
	for _, l := range current {
		byUnit[l.UnitID] = l
	}

	loc := opt.Locale
	cols := []Label{lNo, lBuilding, lUnitNumber, lType, lFloor, lStatus, lCurrent, lRent}
	x := newExporter(opt).
		Title(Label{"Units", "قائمة الوحدات"}.In(loc), len(cols)).
		Header(labels(loc, cols...), []ValueKind{KindNumber, KindText, KindText, KindText, KindNumber, KindText, KindText, KindCurrency})

	occupied := 0
	rent := decimal.Zero
	for i, u := range units {
		state := Label{"Available", "متاحة"}
		tenant, unitRent := "", decimal.Zero
		if l, ok := byUnit[u.ID]; ok {
			state = Label{"Occupied", "مشغولة"}
			tenant, unitRent = l.Tenant.Name, l.MonthlyRent
			occupied++
			rent = rent.Add(l.MonthlyRent)
		}
		x.Row(i+1, u.Building.Name, u.UnitNumber, caption(unitTypes, u.Type, loc), u.Floor, state.In(loc), tenant, unitRent)
	}
	x.Blank().
		Total(Label{"Total units", "إجمالي الوحدات"}.In(loc), len(units), KindNumber).
		Total(Label{"Occupied units", "الوحدات المشغولة"}.In(loc), occupied, KindNumber).
		Total(Label{"Available units", "الوحدات المتاحة"}.In(loc), len(units)-occupied, KindNumber).
		Total(Label{"Total monthly rent", "إجمالي الإيجار الشهري"}.In(loc), rent, KindCurrency)
	if len(units) > 0 {
		x.Percent(Label{"Occupancy", "نسبة الإشغال"}.In(loc), dashboard.Percent(int64(occupied), int64(len(units))))
	}
	return x.Widths(6, 22, 12, 14, 8, 12, 28, 16).Bytes()
}

// Maintenance exports the requests matched by q.
func Maintenance(q *gorm.DB, opt Options) ([]byte, error) {
	var rows []models.MaintenanceRequest
	if err := q.Preload("Lease.Tenant").Preload("Lease.Unit").Order("reported_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	loc := opt.Locale
	cols := []Label{lNo, lTitle, lTenant, lUnit, lPriority, lStatus, lReported}
	x := newExporter(opt).
		Title(Label{"Maintenance requests", "قائمة طلبات الصيانة"}.In(loc), len(cols)).
		Header(labels(loc, cols...), []ValueKind{KindNumber, KindText, KindText, KindText, KindText, KindText, KindDate})

	counts := map[models.MaintenanceStatus]int{}
	for i, r := range rows {
		x.Row(i+1, r.Title, r.Lease.Tenant.Name, r.Lease.Unit.UnitNumber,
			caption(priorities, r.Priority, loc), caption(maintenanceStatuses, r.Status, loc), r.ReportedAt)
		counts[r.Status]++
	}
	x.Blank().
		Total(Label{"Total requests", "إجمالي الطلبات"}.In(loc), len(rows), KindNumber).
		Total(Label{"Submitted", "طلبات معلقة"}.In(loc), counts[models.MaintenanceSubmitted], KindNumber).
		Total(Label{"In progress", "طلبات قيد التنفيذ"}.In(loc), counts[models.MaintenanceInProgress], KindNumber).
		Total(Label{"Completed", "طلبات مكتملة"}.In(loc), counts[models.MaintenanceCompleted], KindNumber)
	if len(rows) > 0 {
		x.Percent(Label{"Completion rate", "نسبة الإنجاز"}.In(loc),
			dashboard.Percent(int64(counts[models.MaintenanceCompleted]), int64(len(rows))))
	}
	return x.Widths(6, 32, 26, 12, 12, 14, 16).Bytes()
}
