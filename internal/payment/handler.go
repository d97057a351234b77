package payment

import (
	"fmt"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/audit"
	"rental-backend/internal/auth"
	"rental-backend/internal/httpx"
	"rental-backend/internal/models"
	"rental-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type PaymentRequest struct {
	LeaseID       uint                 `json:"lease_id" validate:"required"`
	PaymentDate   string               `json:"payment_date" validate:"required"`
	Amount        decimal.Decimal      `json:"amount"`
	ForMonth      int                  `json:"payment_for_month" validate:"required,min=1,max=12"`
	ForYear       int                  `json:"payment_for_year" validate:"required,min=2000,max=2100"`
	Method        models.PaymentMethod `json:"payment_method" validate:"required,oneof=cash bank_transfer cheque online"`
	ChequeNumber  string               `json:"cheque_number" validate:"max=50"`
	ChequeBank    string               `json:"cheque_bank" validate:"max=100"`
	ChequeDueDate *string              `json:"cheque_due_date"`
	Notes         string               `json:"notes"`
}

type ChequeStatusRequest struct {
	Status models.ChequeStatus `json:"cheque_status" validate:"required,oneof=pending cashed returned"`
}

type PaymentResponse struct {
	ID             uint                 `json:"id"`
	VoucherNumber  *string              `json:"voucher_number"`
	LeaseID        uint                 `json:"lease_id"`
	ContractNumber string               `json:"contract_number,omitempty"`
	TenantName     string               `json:"tenant_name,omitempty"`
	UnitNumber     string               `json:"unit_number,omitempty"`
	PaymentDate    string               `json:"payment_date"`
	Amount         decimal.Decimal      `json:"amount"`
	ForMonth       int                  `json:"payment_for_month"`
	ForYear        int                  `json:"payment_for_year"`
	Method         models.PaymentMethod `json:"payment_method"`
	ChequeNumber   string               `json:"cheque_number,omitempty"`
	ChequeBank     string               `json:"cheque_bank,omitempty"`
	ChequeDueDate  *string              `json:"cheque_due_date,omitempty"`
	ChequeStatus   models.ChequeStatus  `json:"cheque_status,omitempty"`
	Notes          string               `json:"notes"`
}

func ToResponse(p models.Payment) PaymentResponse {
	r := PaymentResponse{
		ID:             p.ID,
		VoucherNumber:  p.VoucherNumber,
		LeaseID:        p.LeaseID,
		ContractNumber: p.Lease.ContractNumber,
		TenantName:     p.Lease.Tenant.Name,
		UnitNumber:     p.Lease.Unit.UnitNumber,
		PaymentDate:    p.PaymentDate.Format(time.DateOnly),
		Amount:         p.Amount,
		ForMonth:       p.ForMonth,
		ForYear:        p.ForYear,
		Method:         p.Method,
		ChequeNumber:   p.ChequeNumber,
		ChequeBank:     p.ChequeBank,
		ChequeStatus:   p.ChequeStatus,
		Notes:          p.Notes,
	}
	if p.ChequeDueDate != nil {
		s := p.ChequeDueDate.Format(time.DateOnly)
		r.ChequeDueDate = &s
	}
	return r
}

func ToResponses(ps []models.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, ToResponse(p))
	}
	return out
}

func parsePayment(c *fiber.Ctx) (Input, error) {
	var body PaymentRequest
	if err := c.BodyParser(&body); err != nil {
		return Input{}, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(body); err != nil {
		return Input{}, err
	}
	date, err := httpx.Date("payment_date", body.PaymentDate)
	if err != nil {
		return Input{}, err
	}
	due, err := httpx.OptionalDate("cheque_due_date", body.ChequeDueDate)
	if err != nil {
		return Input{}, err
	}
	return Input{
		LeaseID:       body.LeaseID,
		PaymentDate:   date,
		Amount:        body.Amount,
		ForMonth:      body.ForMonth,
		ForYear:       body.ForYear,
		Method:        body.Method,
		ChequeNumber:  body.ChequeNumber,
		ChequeBank:    body.ChequeBank,
		ChequeDueDate: due,
		Notes:         body.Notes,
	}, nil
}

// FilterFromQuery reads the list filters shared by the list and export
// endpoints.
func FilterFromQuery(c *fiber.Ctx) (Filter, error) {
	var f Filter
	var err error
	for name, dst := range map[string]*uint{"lease_id": &f.LeaseID, "tenant_id": &f.TenantID, "building_id": &f.BuildingID} {
		if *dst, err = httpx.QueryUint(c, name); err != nil {
			return f, err
		}
	}
	if f.From, err = httpx.QueryDate(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = httpx.QueryDate(c, "to"); err != nil {
		return f, err
	}
	f.Method = models.PaymentMethod(c.Query("method"))
	f.ChequeStatus = models.ChequeStatus(c.Query("cheque_status"))
	f.Year = c.QueryInt("year")
	f.Month = c.QueryInt("month")
	return f, nil
}

// GET /api/payments?lease_id=&tenant_id=&building_id=&method=&cheque_status=&from=&to=&year=&month=
func ListPaymentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := FilterFromQuery(c)
		if err != nil {
			return err
		}
		var total int64
		if err := svc.Query(f).Count(&total).Error; err != nil {
			return apperror.Internal(err)
		}
		var sum struct{ Total decimal.Decimal }
		if err := svc.Query(f).Select("COALESCE(SUM(payments.amount), 0) AS total").Scan(&sum).Error; err != nil {
			return apperror.Internal(err)
		}

		page := httpx.Paging(c)
		var rows []models.Payment
		if err := svc.Query(f).Preload("Lease.Tenant").Preload("Lease.Unit").
			Order("payments.payment_date desc, payments.id desc").
			Limit(page.Limit).Offset(page.Offset).Find(&rows).Error; err != nil {
			return apperror.Internal(err)
		}
		return c.JSON(fiber.Map{"items": ToResponses(rows), "total": total, "total_amount": sum.Total})
	}
}

// GET /api/payments/:id
func GetPaymentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		p, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(*p))
	}
}

// POST /api/payments
func CreatePaymentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := parsePayment(c)
		if err != nil {
			return err
		}
		p, err := svc.Create(c.UserContext(), in, auth.UserID(c))
		if err != nil {
			return err
		}
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "payment",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Payment %s of %s recorded", *p.VoucherNumber, p.Amount.StringFixed(2)),
			After:       ToResponse(*p),
		})
		return c.Status(fiber.StatusCreated).JSON(ToResponse(*p))
	}
}

// PUT /api/payments/:id
func UpdatePaymentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		in, err := parsePayment(c)
		if err != nil {
			return err
		}
		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		p, err := svc.Update(c.UserContext(), id, in)
		if err != nil {
			return err
		}
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "payment",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Payment %d updated", p.ID),
			Before:      ToResponse(*before),
			After:       ToResponse(*p),
		})
		return c.JSON(ToResponse(*p))
	}
}

// PATCH /api/payments/:id/cheque-status
func ChequeStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ID(c, "id")
		if err != nil {
			return err
		}
		var body ChequeStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.Struct(body); err != nil {
			return err
		}
		p, err := svc.SetChequeStatus(c.UserContext(), id, body.Status)
		if err != nil {
			return err
		}
		audit.Record(c, svc.DB(), audit.LogOptions{
			EntityType:  "payment",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Cheque %s marked %s", p.ChequeNumber, p.ChequeStatus),
		})
		return c.JSON(ToResponse(*p))
	}
}
