package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/advance-portal/pkg/datefmt"
)

// Voucher is an append-only payment record. Number is the human voucher number
// and may repeat; AutoID is the identity.
type Voucher struct {
	AutoID        uint            `gorm:"column:auto_id;primaryKey" json:"auto_id"`
	Number        string          `gorm:"column:voucher_no;size:50;index" json:"voucher_no"`
	EmpID         string          `gorm:"size:50;not null;index" json:"emp_id"`
	EmpName       string          `gorm:"size:100;not null" json:"emp_name"`
	ApplicationNo string          `gorm:"size:50;index" json:"application_no"`
	VoucherDate   time.Time       `gorm:"type:date;not null" json:"voucher_date"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Month         string          `gorm:"size:20" json:"month"`

	// Set when the voucher reduced a borrower balance.
	AppliedBorrowerID *uint           `gorm:"index" json:"applied_borrower_id"`
	AppliedAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"applied_amount"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Voucher
func (Voucher) TableName() string {
	return "vouchers"
}

// ReducedBalance returns true if creating this voucher debited a borrower
func (v *Voucher) ReducedBalance() bool {
	return v.AppliedBorrowerID != nil && v.AppliedAmount.IsPositive()
}

// VoucherResponse is the JSON response format for vouchers
type VoucherResponse struct {
	AutoID            uint      `json:"autoId"`
	ID                string    `json:"id"`
	EmpID             string    `json:"empId"`
	EmpName           string    `json:"empName"`
	ApplicationNo     string    `json:"applicationNo"`
	Date              string    `json:"date"`
	Amount            float64   `json:"amount"`
	Month             string    `json:"month"`
	AppliedBorrowerID *uint     `json:"appliedBorrowerId,omitempty"`
	AppliedAmount     float64   `json:"appliedAmount"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ToResponse converts Voucher to VoucherResponse
func (v *Voucher) ToResponse() VoucherResponse {
	return VoucherResponse{
		AutoID:            v.AutoID,
		ID:                v.Number,
		EmpID:             v.EmpID,
		EmpName:           v.EmpName,
		ApplicationNo:     v.ApplicationNo,
		Date:              datefmt.Display(v.VoucherDate),
		Amount:            v.Amount.InexactFloat64(),
		Month:             v.Month,
		AppliedBorrowerID: v.AppliedBorrowerID,
		AppliedAmount:     v.AppliedAmount.InexactFloat64(),
		CreatedAt:         v.CreatedAt,
	}
}
