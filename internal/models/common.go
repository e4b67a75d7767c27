package models

import (
	"time"
)

// Session is a server-side login session addressed by an opaque cookie token
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for Session
func (Session) TableName() string {
	return "sessions"
}

// IsExpired returns true if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// DashboardStats are the headline figures shown on the dashboard.
// ActiveVouchers counts every voucher row.
type DashboardStats struct {
	TotalEmployees    int64   `json:"totalEmployees"`
	ActiveBorrowers   int64   `json:"activeBorrowers"`
	ActiveVouchers    int64   `json:"activeVouchers"`
	OutstandingAmount float64 `json:"outstandingAmount"`
}

// BorrowerHistorySummary aggregates an employee's advances
type BorrowerHistorySummary struct {
	Total            int     `json:"total"`
	Active           int     `json:"active"`
	Completed        int     `json:"completed"`
	Cancelled        int     `json:"cancelled"`
	TotalOutstanding float64 `json:"totalOutstanding"`
}

// BorrowerHistory lists every advance and repayment voucher of an employee,
// newest first
type BorrowerHistory struct {
	EmpID     string                 `json:"empId"`
	Borrowers []BorrowerResponse     `json:"borrowers"`
	Vouchers  []VoucherResponse      `json:"vouchers"`
	Summary   BorrowerHistorySummary `json:"summary"`
}
