package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/internal/repository"
	"github.com/sjperalta/advance-portal/internal/statemachine"
	"github.com/sjperalta/advance-portal/pkg/logger"
)

// EmployeeService manages the employee registry
type EmployeeService struct {
	repos    *repository.Repositories
	auditSvc *AuditService
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(repos *repository.Repositories, auditSvc *AuditService) *EmployeeService {
	return &EmployeeService{repos: repos, auditSvc: auditSvc}
}

// List returns active employees ordered by id
func (s *EmployeeService) List(ctx context.Context) ([]models.Employee, error) {
	employees, err := s.repos.Employee.ListActive(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	return employees, nil
}

// Create registers a new employee. Ids are never reused, even after deactivation.
func (s *EmployeeService) Create(ctx context.Context, actor Actor, id, name string) (*models.Employee, error) {
	employee, err := createEmployee(ctx, s.repos, id, name)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("[Employee] Created", "emp_id", employee.ID, "user_id", actor.UserID)
	s.auditSvc.Log(ctx, actor, models.AuditCreate, "Employee", employee.ID, fmt.Sprintf("Created employee %s", employee.Name))
	return employee, nil
}

func createEmployee(ctx context.Context, repos *repository.Repositories, id, name string) (*models.Employee, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return nil, validationError("Employee ID and name are required")
	}

	exists, err := repos.Employee.Exists(ctx, id)
	if err != nil {
		return nil, dbError(err)
	}
	if exists {
		return nil, ErrDuplicateEmployee
	}

	employee := &models.Employee{ID: id, Name: name, Status: models.EmployeeStatusActive}
	if err := repos.Employee.Create(ctx, employee); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrDuplicateEmployee
		}
		return nil, dbError(err)
	}
	return employee, nil
}

// Rename changes the name of an active employee
func (s *EmployeeService) Rename(ctx context.Context, actor Actor, id, name string) error {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return validationError("Employee ID and name are required")
	}

	rows, err := s.repos.Employee.Rename(ctx, id, name)
	if err != nil {
		return dbError(err)
	}
	if rows == 0 {
		return ErrEmployeeNotFound
	}

	s.auditSvc.Log(ctx, actor, models.AuditUpdate, "Employee", id, fmt.Sprintf("Renamed employee to %s", name))
	return nil
}

// Deactivate retires an employee. The row stays so existing advances keep their reference.
func (s *EmployeeService) Deactivate(ctx context.Context, actor Actor, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return validationError("Employee ID is required")
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		employee, err := tx.Employee.FindActiveByID(ctx, id)
		if repository.IsNotFound(err) {
			return ErrEmployeeNotFound
		}
		if err != nil {
			return dbError(err)
		}

		from := employee.Status
		if err := statemachine.NewEmployeeFSM(employee).Deactivate(ctx); err != nil {
			if errors.Is(err, statemachine.ErrInvalidTransition) {
				return ErrEmployeeNotFound
			}
			return err
		}

		rows, err := tx.Employee.TransitionStatus(ctx, id, from, employee.Status)
		if err != nil {
			return dbError(err)
		}
		if rows == 0 {
			return ErrEmployeeNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("[Employee] Deactivated", "emp_id", id, "user_id", actor.UserID)
	s.auditSvc.Log(ctx, actor, models.AuditDelete, "Employee", id, "Deactivated employee")
	return nil
}
