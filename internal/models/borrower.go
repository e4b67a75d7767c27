package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sjperalta/advance-portal/pkg/datefmt"
)

// Borrower is one salary-advance loan. OutstandingAmount stays within [0, Amount].
type Borrower struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	ApplicationNo     string          `gorm:"size:50;not null;uniqueIndex" json:"application_no"`
	EmpID             string          `gorm:"size:50;not null;index" json:"emp_id"`
	Name              string          `gorm:"size:100;not null" json:"name"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"outstanding_amount"`
	Emi               decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"emi"`
	Months            int             `gorm:"not null" json:"months"`
	DisbursedDate     time.Time       `gorm:"type:date;not null" json:"disbursed_date"`
	EntryDate         *time.Time      `gorm:"type:date" json:"entry_date"`
	Status            string          `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Associations
	Employee *Employee `gorm:"foreignKey:EmpID;references:ID" json:"-"`
}

// TableName specifies the table name for Borrower
func (Borrower) TableName() string {
	return "borrowers"
}

// Borrower status constants
const (
	BorrowerStatusActive    = "active"
	BorrowerStatusCompleted = "completed"
	BorrowerStatusCancelled = "cancelled"
)

const (
	applicationNoPrefix = "APP"
	applicationNoWidth  = 6
)

// ApplicationNoFor derives the application number for a borrower id, e.g. APP000001.
func ApplicationNoFor(id uint) string {
	return fmt.Sprintf("%s%0*d", applicationNoPrefix, applicationNoWidth, id)
}

// BeforeCreate hook for setting defaults
func (b *Borrower) BeforeCreate(tx *gorm.DB) error {
	if b.Status == "" {
		b.Status = BorrowerStatusActive
	}
	return nil
}

// IsActive returns true while money is outstanding and the loan is live
func (b *Borrower) IsActive() bool {
	return b.Status == BorrowerStatusActive
}

// MayEdit returns true if administrative corrections are allowed
func (b *Borrower) MayEdit() bool {
	return b.Status == BorrowerStatusActive
}

// MayComplete returns true if the borrower can transition to completed
func (b *Borrower) MayComplete() bool {
	return b.Status == BorrowerStatusActive
}

// MayCancel returns true if the borrower can transition to cancelled
func (b *Borrower) MayCancel() bool {
	return b.Status == BorrowerStatusActive
}

// BorrowerResponse is the JSON response format for borrowers
type BorrowerResponse struct {
	ID                uint      `json:"id"`
	ApplicationNo     string    `json:"applicationNo"`
	EmpID             string    `json:"empId"`
	Name              string    `json:"name"`
	Amount            float64   `json:"amount"`
	OutstandingAmount float64   `json:"outstandingAmount"`
	Emi               float64   `json:"emi"`
	Month             int       `json:"month"`
	DisbursedDate     string    `json:"disbursedDate"`
	EntryDate         string    `json:"entryDate,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ToResponse converts Borrower to BorrowerResponse
func (b *Borrower) ToResponse() BorrowerResponse {
	return BorrowerResponse{
		ID:                b.ID,
		ApplicationNo:     b.ApplicationNo,
		EmpID:             b.EmpID,
		Name:              b.Name,
		Amount:            b.Amount.InexactFloat64(),
		OutstandingAmount: b.OutstandingAmount.InexactFloat64(),
		Emi:               b.Emi.InexactFloat64(),
		Month:             b.Months,
		DisbursedDate:     datefmt.Display(b.DisbursedDate),
		EntryDate:         datefmt.DisplayPtr(b.EntryDate),
		Status:            b.Status,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}
