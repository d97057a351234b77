package report

import (
	"rental-backend/internal/config"
	"rental-backend/internal/models"
)

// Label is a caption in English and Arabic.
type Label struct {
	EN string
	AR string
}

// In picks the caption for locale; anything but "ar" is English.
func (l Label) In(locale string) string {
	if locale == "ar" && l.AR != "" {
		return l.AR
	}
	return l.EN
}

func labels(locale string, ls ...Label) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.In(locale)
	}
	return out
}

// Options carries the presentation settings shared by every report.
type Options struct {
	Locale   string
	Currency string
	FontPath string // UTF-8 TTF for PDF output; empty falls back to a core font
}

var (
	lNo          = Label{"#", "#"}
	lName        = Label{"Name", "الاسم"}
	lType        = Label{"Type", "النوع"}
	lPhone       = Label{"Phone", "رقم الهاتف"}
	lEmail       = Label{"Email", "البريد الإلكتروني"}
	lSignatory   = Label{"Authorized signatory", "المفوض بالتوقيع"}
	lRating      = Label{"Rating", "التقييم"}
	lContract    = Label{"Contract", "رقم العقد"}
	lTenant      = Label{"Tenant", "المستأجر"}
	lUnit        = Label{"Unit", "الوحدة"}
	lBuilding    = Label{"Building", "المبنى"}
	lRent        = Label{"Monthly rent", "الإيجار الشهري"}
	lStart       = Label{"Start date", "تاريخ البدء"}
	lEnd         = Label{"End date", "تاريخ الانتهاء"}
	lStatus      = Label{"Status", "الحالة"}
	lVoucher     = Label{"Voucher", "رقم السند"}
	lAmount      = Label{"Amount", "المبلغ"}
	lPayDate     = Label{"Payment date", "تاريخ الدفع"}
	lMonth       = Label{"Month", "الشهر"}
	lMethod      = Label{"Method", "طريقة الدفع"}
	lCheque      = Label{"Cheque status", "حالة الشيك"}
	lCategory    = Label{"Category", "الفئة"}
	lDescription = Label{"Description", "الوصف"}
	lExpDate     = Label{"Expense date", "تاريخ المصروف"}
	lUnitNumber  = Label{"Unit number", "رقم الوحدة"}
	lFloor       = Label{"Floor", "الطابق"}
	lCurrent     = Label{"Current tenant", "المستأجر الحالي"}
	lTitle       = Label{"Title", "العنوان"}
	lPriority    = Label{"Priority", "الأولوية"}
	lReported    = Label{"Reported", "تاريخ الإبلاغ"}
	lDue         = Label{"Rent due", "الإيجار المستحق"}
	lPaid        = Label{"Paid", "المدفوع"}
	lBalance     = Label{"Balance", "المتبقي"}
)

var tenantTypes = map[models.TenantType]Label{
	models.TenantIndividual: {"Individual", "فرد"},
	models.TenantCompany:    {"Company", "شركة"},
}

var leaseStatuses = map[models.LeaseStatus]Label{
	models.LeaseActive:       {"Active", "نشط"},
	models.LeaseExpiringSoon: {"Expiring soon", "ينتهي قريباً"},
	models.LeaseExpired:      {"Expired", "منتهي"},
	models.LeaseCancelled:    {"Cancelled", "ملغي"},
}

var paymentMethods = map[models.PaymentMethod]Label{
	models.PaymentCash:         {"Cash", "نقدي"},
	models.PaymentBankTransfer: {"Bank transfer", "تحويل بنكي"},
	models.PaymentCheque:       {"Cheque", "شيك"},
	models.PaymentOnline:       {"Online", "دفع إلكتروني"},
}

var chequeStatuses = map[models.ChequeStatus]Label{
	models.ChequePending:  {"Pending", "قيد الانتظار"},
	models.ChequeCashed:   {"Cashed", "تم الصرف"},
	models.ChequeReturned: {"Returned", "مرتجع"},
}

var unitTypes = map[models.UnitType]Label{
	models.UnitTypeOffice:    {"Office", "مكتب"},
	models.UnitTypeApartment: {"Apartment", "شقة"},
	models.UnitTypeShop:      {"Shop", "محل"},
}

var maintenanceStatuses = map[models.MaintenanceStatus]Label{
	models.MaintenanceSubmitted:  {"Submitted", "مقدم"},
	models.MaintenanceInProgress: {"In progress", "قيد التنفيذ"},
	models.MaintenanceCompleted:  {"Completed", "مكتمل"},
	models.MaintenanceCancelled:  {"Cancelled", "ملغي"},
}

var priorities = map[models.MaintenancePriority]Label{
	models.PriorityLow:    {"Low", "منخفضة"},
	models.PriorityMedium: {"Medium", "متوسطة"},
	models.PriorityHigh:   {"High", "عالية"},
}

// caption looks up a value in one of the tables above and falls back to the
// raw value.
func caption[K ~string](table map[K]Label, k K, locale string) string {
	if l, ok := table[k]; ok {
		return l.In(locale)
	}
	return string(k)
}

func OptionsFrom(cfg *config.Config) Options {
	return Options{Locale: cfg.Locale, Currency: cfg.Lease.CurrencyLabel, FontPath: cfg.PDFFontPath}
}
