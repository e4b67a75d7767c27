package models

import (
	"time"

	"gorm.io/gorm"
)

// Employee is a staff member who can receive advances. The id is assigned by HR.
type Employee struct {
	ID        string    `gorm:"primaryKey;size:50" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Status    string    `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Employee
func (Employee) TableName() string {
	return "employees"
}

// Employee status constants
const (
	EmployeeStatusActive   = "active"
	EmployeeStatusInactive = "inactive"
)

// BeforeCreate hook for setting defaults
func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.Status == "" {
		e.Status = EmployeeStatusActive
	}
	return nil
}

// MayDeactivate returns true if the employee can transition to inactive
func (e *Employee) MayDeactivate() bool {
	return e.Status == EmployeeStatusActive
}

// EmployeeResponse is the JSON response format for employees
type EmployeeResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ToResponse converts Employee to EmployeeResponse
func (e *Employee) ToResponse() EmployeeResponse {
	return EmployeeResponse{
		ID:     e.ID,
		Name:   e.Name,
		Status: e.Status,
	}
}
