package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User     UserRepository
	Employee EmployeeRepository
	Borrower BorrowerRepository
	Voucher  VoucherRepository
	Session  SessionRepository

	db *gorm.DB
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Employee: NewEmployeeRepository(db),
		Borrower: NewBorrowerRepository(db),
		Voucher:  NewVoucherRepository(db),
		Session:  NewSessionRepository(db),
		db:       db,
	}
}

// Transaction runs fn with repositories bound to a single database transaction.
// Any error returned by fn, or a panic, rolls the transaction back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
