package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sjperalta/advance-portal/internal/models"
)

// BorrowerRepository defines the interface for borrower data access
type BorrowerRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Borrower, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Borrower, error)
	FindByApplicationNoForUpdate(ctx context.Context, applicationNo string) (*models.Borrower, error)
	ApplicationNoExists(ctx context.Context, applicationNo string) (bool, error)
	FindActiveByApplicationNoForUpdate(ctx context.Context, applicationNo string) (*models.Borrower, error)
	FindOldestActiveByEmployeeForUpdate(ctx context.Context, empID string) (*models.Borrower, error)
	Create(ctx context.Context, borrower *models.Borrower) error
	SetApplicationNo(ctx context.Context, id uint, applicationNo string) error
	UpdateDetails(ctx context.Context, borrower *models.Borrower) (int64, error)
	UpdateBalance(ctx context.Context, id uint, outstanding decimal.Decimal, status string) (int64, error)
	TransitionStatus(ctx context.Context, id uint, from, to string) (int64, error)
	List(ctx context.Context, status string) ([]models.Borrower, error)
	ListByEmployee(ctx context.Context, empID string) ([]models.Borrower, error)
	CountActiveByEmployee(ctx context.Context, empID string) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	SumActiveOutstanding(ctx context.Context) (decimal.Decimal, error)
}

type borrowerRepository struct {
	db *gorm.DB
}

// NewBorrowerRepository creates a new borrower repository
func NewBorrowerRepository(db *gorm.DB) BorrowerRepository {
	return &borrowerRepository{db: db}
}

func (r *borrowerRepository) FindByID(ctx context.Context, id uint) (*models.Borrower, error) {
	var borrower models.Borrower
	if err := r.db.WithContext(ctx).First(&borrower, id).Error; err != nil {
		return nil, err
	}
	return &borrower, nil
}

func (r *borrowerRepository) forUpdate(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *borrowerRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Borrower, error) {
	var borrower models.Borrower
	if err := r.forUpdate(ctx).First(&borrower, id).Error; err != nil {
		return nil, err
	}
	return &borrower, nil
}

func (r *borrowerRepository) FindByApplicationNoForUpdate(ctx context.Context, applicationNo string) (*models.Borrower, error) {
	var borrower models.Borrower
	err := r.forUpdate(ctx).Where("application_no = ?", applicationNo).First(&borrower).Error
	if err != nil {
		return nil, err
	}
	return &borrower, nil
}

func (r *borrowerRepository) ApplicationNoExists(ctx context.Context, applicationNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Borrower{}).
		Where("application_no = ?", applicationNo).
		Count(&count).Error
	return count > 0, err
}

func (r *borrowerRepository) FindActiveByApplicationNoForUpdate(ctx context.Context, applicationNo string) (*models.Borrower, error) {
	var borrower models.Borrower
	err := r.forUpdate(ctx).
		Where("application_no = ? AND status = ?", applicationNo, models.BorrowerStatusActive).
		First(&borrower).Error
	if err != nil {
		return nil, err
	}
	return &borrower, nil
}

func (r *borrowerRepository) FindOldestActiveByEmployeeForUpdate(ctx context.Context, empID string) (*models.Borrower, error) {
	var borrower models.Borrower
	err := r.forUpdate(ctx).
		Where("emp_id = ? AND status = ?", empID, models.BorrowerStatusActive).
		Order("created_at ASC").
		Order("id ASC").
		Limit(1).
		Find(&borrower).Error
	if err != nil {
		return nil, err
	}
	if borrower.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &borrower, nil
}

func (r *borrowerRepository) Create(ctx context.Context, borrower *models.Borrower) error {
	return r.db.WithContext(ctx).Create(borrower).Error
}

func (r *borrowerRepository) SetApplicationNo(ctx context.Context, id uint, applicationNo string) error {
	return r.db.WithContext(ctx).
		Model(&models.Borrower{}).
		Where("id = ?", id).
		Update("application_no", applicationNo).Error
}

// UpdateDetails writes the editable fields of an active borrower.
func (r *borrowerRepository) UpdateDetails(ctx context.Context, borrower *models.Borrower) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Borrower{}).
		Where("id = ? AND status = ?", borrower.ID, models.BorrowerStatusActive).
		Select("EmpID", "Name", "Amount", "OutstandingAmount", "Emi", "Months", "DisbursedDate").
		Updates(borrower)
	return result.RowsAffected, result.Error
}

// UpdateBalance only touches rows that are still active.
func (r *borrowerRepository) UpdateBalance(ctx context.Context, id uint, outstanding decimal.Decimal, status string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Borrower{}).
		Where("id = ? AND status = ?", id, models.BorrowerStatusActive).
		Updates(map[string]interface{}{
			"outstanding_amount": outstanding,
			"status":             status,
		})
	return result.RowsAffected, result.Error
}

func (r *borrowerRepository) TransitionStatus(ctx context.Context, id uint, from, to string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Borrower{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

// List returns borrowers newest first. An empty status returns every row.
func (r *borrowerRepository) List(ctx context.Context, status string) ([]models.Borrower, error) {
	var borrowers []models.Borrower
	db := r.db.WithContext(ctx)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Order("created_at DESC").Order("id DESC").Find(&borrowers).Error
	return borrowers, err
}

func (r *borrowerRepository) ListByEmployee(ctx context.Context, empID string) ([]models.Borrower, error) {
	var borrowers []models.Borrower
	err := r.db.WithContext(ctx).
		Where("emp_id = ?", empID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&borrowers).Error
	return borrowers, err
}

func (r *borrowerRepository) CountActiveByEmployee(ctx context.Context, empID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Borrower{}).
		Where("emp_id = ? AND status = ?", empID, models.BorrowerStatusActive).
		Count(&count).Error
	return count, err
}

func (r *borrowerRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Borrower{}).
		Where("status = ?", models.BorrowerStatusActive).
		Count(&count).Error
	return count, err
}

func (r *borrowerRepository) SumActiveOutstanding(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Borrower{}).
		Select("SUM(outstanding_amount)").
		Where("status = ?", models.BorrowerStatusActive).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
