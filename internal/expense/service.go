// Package expense keeps the building expense ledger and its categories.
package expense

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rental-backend/internal/apperror"
	"rental-backend/internal/config"
	"rental-backend/internal/datex"
	"rental-backend/internal/models"
	"rental-backend/internal/voucher"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxReceiptSize = 5 << 20

var receiptTypes = map[string]bool{".pdf": true, ".jpg": true, ".jpeg": true, ".png": true}

type Service struct {
	db         *gorm.DB
	receiptDir string
}

func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, receiptDir: cfg.ReceiptPath}
}

func (s *Service) DB() *gorm.DB { return s.db }

type Input struct {
	BuildingID  uint
	CategoryID  uint
	Description string
	Amount      decimal.Decimal
	Date        time.Time
}

func (s *Service) checkRefs(tx *gorm.DB, in Input) error {
	fields := map[string]string{}
	if !in.Amount.IsPositive() {
		fields["amount"] = "must be greater than 0"
	}
	var n int64
	if err := tx.Model(&models.Building{}).Where("id = ?", in.BuildingID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		fields["building_id"] = "building does not exist"
	}
	if err := tx.Model(&models.ExpenseCategory{}).Where("id = ?", in.CategoryID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		fields["category_id"] = "category does not exist"
	}
	if len(fields) > 0 {
		return apperror.Validation(fields)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Expense, error) {
	var e models.Expense
	if err := s.db.WithContext(ctx).Preload("Building").Preload("Category").First(&e, id).Error; err != nil {
		return nil, apperror.FromDB(err, "expense")
	}
	return &e, nil
}

// Create records an expense under the next voucher number of its year.
func (s *Service) Create(ctx context.Context, in Input) (*models.Expense, error) {
	var e models.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRefs(tx, in); err != nil {
			return err
		}
		number, err := voucher.Next(tx, voucher.Expense, in.Date.Year())
		if err != nil {
			return err
		}
		e = models.Expense{
			BuildingID:    in.BuildingID,
			CategoryID:    in.CategoryID,
			VoucherNumber: &number,
			Description:   strings.TrimSpace(in.Description),
			Amount:        in.Amount.Round(2),
			Date:          in.Date,
		}
		return tx.Omit(clause.Associations).Create(&e).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "expense")
	}
	log.Printf("[EXPENSE] %s building=%d amount=%s", *e.VoucherNumber, e.BuildingID, e.Amount.StringFixed(2))
	return &e, nil
}

// Delete removes an expense and returns the deleted row so the caller can
// keep it in the audit log.
func (s *Service) Delete(ctx context.Context, id uint) (*models.Expense, error) {
	var e models.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&e, id).Error; err != nil {
			return err
		}
		return tx.Delete(&e).Error
	})
	if err != nil {
		return nil, apperror.FromDB(err, "expense")
	}
	return &e, nil
}

// AttachReceipt stores an uploaded receipt under the receipt directory and
// links it to the expense, replacing any previous file.
func (s *Service) AttachReceipt(ctx context.Context, id uint, fh *multipart.FileHeader) (*models.Expense, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !receiptTypes[ext] {
		return nil, apperror.Invalid("receipt", "must be a PDF, JPG or PNG file")
	}
	if fh.Size > maxReceiptSize {
		return nil, apperror.Invalid("receipt", "must be at most 5 MB")
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rel := filepath.Join(e.Date.Format("2006"), fmt.Sprintf("%d-%s%s", e.ID, uuid.NewString(), ext))
	if err := s.save(fh, rel); err != nil {
		return nil, apperror.Internal(err)
	}
	old := e.ReceiptPath
	if err := s.db.WithContext(ctx).Model(&models.Expense{}).Where("id = ?", id).Update("receipt_path", rel).Error; err != nil {
		_ = os.Remove(filepath.Join(s.receiptDir, rel))
		return nil, apperror.Internal(err)
	}
	if old != "" {
		if err := os.Remove(filepath.Join(s.receiptDir, old)); err != nil && !os.IsNotExist(err) {
			log.Printf("[EXPENSE] could not remove old receipt %s: %v", old, err)
		}
	}
	e.ReceiptPath = rel
	return e, nil
}

func (s *Service) save(fh *multipart.FileHeader, rel string) error {
	dst := filepath.Join(s.receiptDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ReceiptFile returns the absolute path of the stored receipt.
func (s *Service) ReceiptFile(ctx context.Context, id uint) (string, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if e.ReceiptPath == "" {
		return "", apperror.NotFound("receipt")
	}
	return filepath.Join(s.receiptDir, e.ReceiptPath), nil
}

type CategoryTotal struct {
	CategoryID   uint            `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
}

type MonthlySummary struct {
	BuildingID uint            `json:"building_id,omitempty"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Items      []CategoryTotal `json:"items"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Summary totals the expenses of one month per category. A zero buildingID
// covers every building.
func (s *Service) Summary(ctx context.Context, buildingID uint, year int, month time.Month) (*MonthlySummary, error) {
	first := datex.Date(year, month, 1)
	q := s.db.WithContext(ctx).Model(&models.Expense{}).
		Select("expenses.category_id AS category_id, expense_categories.name AS category_name, SUM(expenses.amount) AS total").
		Joins("JOIN expense_categories ON expense_categories.id = expenses.category_id").
		Where("expenses.expense_date BETWEEN ? AND ?", first, datex.MonthEnd(first))
	if buildingID > 0 {
		q = q.Where("expenses.building_id = ?", buildingID)
	}

	var items []CategoryTotal
	if err := q.Group("expenses.category_id, expense_categories.name").
		Order("total desc").
		Scan(&items).Error; err != nil {
		return nil, apperror.Internal(err)
	}

	sum := &MonthlySummary{BuildingID: buildingID, Year: year, Month: int(month), Items: items, GrandTotal: decimal.Zero}
	if sum.Items == nil {
		sum.Items = []CategoryTotal{}
	}
	for _, it := range items {
		sum.GrandTotal = sum.GrandTotal.Add(it.Total)
	}
	return sum, nil
}
