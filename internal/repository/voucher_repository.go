package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sjperalta/advance-portal/internal/models"
)

// VoucherRepository defines the interface for voucher data access
type VoucherRepository interface {
	FindByAutoID(ctx context.Context, autoID uint) (*models.Voucher, error)
	Create(ctx context.Context, voucher *models.Voucher) error
	MarkApplied(ctx context.Context, autoID, borrowerID uint, amount decimal.Decimal) error
	UpdateDetails(ctx context.Context, voucher *models.Voucher) (int64, error)
	Delete(ctx context.Context, autoID uint) (int64, error)
	List(ctx context.Context) ([]models.Voucher, error)
	ListByEmployee(ctx context.Context, empID string) ([]models.Voucher, error)
	Count(ctx context.Context) (int64, error)
}

type voucherRepository struct {
	db *gorm.DB
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *gorm.DB) VoucherRepository {
	return &voucherRepository{db: db}
}

func (r *voucherRepository) FindByAutoID(ctx context.Context, autoID uint) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).First(&voucher, autoID).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *voucherRepository) Create(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

// MarkApplied records which borrower the voucher debited and by how much.
func (r *voucherRepository) MarkApplied(ctx context.Context, autoID, borrowerID uint, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("auto_id = ?", autoID).
		Updates(map[string]interface{}{
			"applied_borrower_id": borrowerID,
			"applied_amount":      amount,
		}).Error
}

func (r *voucherRepository) UpdateDetails(ctx context.Context, voucher *models.Voucher) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("auto_id = ?", voucher.AutoID).
		Select("Number", "EmpID", "EmpName", "ApplicationNo", "VoucherDate", "Amount", "Month").
		Updates(voucher)
	return result.RowsAffected, result.Error
}

func (r *voucherRepository) Delete(ctx context.Context, autoID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("auto_id = ?", autoID).Delete(&models.Voucher{})
	return result.RowsAffected, result.Error
}

// List returns every voucher, newest first
func (r *voucherRepository) List(ctx context.Context) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("auto_id DESC").
		Find(&vouchers).Error
	return vouchers, err
}

func (r *voucherRepository) ListByEmployee(ctx context.Context, empID string) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	err := r.db.WithContext(ctx).
		Where("emp_id = ?", empID).
		Order("voucher_date DESC").
		Order("auto_id DESC").
		Find(&vouchers).Error
	return vouchers, err
}

func (r *voucherRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Voucher{}).Count(&count).Error
	return count, err
}
