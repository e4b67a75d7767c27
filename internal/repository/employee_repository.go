package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sjperalta/advance-portal/internal/models"
)

// EmployeeRepository defines the interface for employee data access
type EmployeeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	FindActiveByID(ctx context.Context, id string) (*models.Employee, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, employee *models.Employee) error
	Rename(ctx context.Context, id, name string) (int64, error)
	TransitionStatus(ctx context.Context, id, from, to string) (int64, error)
	ListActive(ctx context.Context) ([]models.Employee, error)
	CountActive(ctx context.Context) (int64, error)
}

type employeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&employee).Error
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) FindActiveByID(ctx context.Context, id string) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.EmployeeStatusActive).
		First(&employee).Error
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

// Exists ignores status: inactive employees still anchor historical records.
func (r *employeeRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Employee{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *employeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

func (r *employeeRepository) Rename(ctx context.Context, id, name string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("id = ? AND status = ?", id, models.EmployeeStatusActive).
		Update("name", name)
	return result.RowsAffected, result.Error
}

// TransitionStatus moves an employee from one status to another and reports
// how many rows matched the expected source status.
func (r *employeeRepository) TransitionStatus(ctx context.Context, id, from, to string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

func (r *employeeRepository) ListActive(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	err := r.db.WithContext(ctx).
		Where("status = ?", models.EmployeeStatusActive).
		Order("id ASC").
		Find(&employees).Error
	return employees, err
}

func (r *employeeRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("status = ?", models.EmployeeStatusActive).
		Count(&count).Error
	return count, err
}
