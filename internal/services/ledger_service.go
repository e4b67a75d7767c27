package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/internal/repository"
	"github.com/sjperalta/advance-portal/internal/statemachine"
	"github.com/sjperalta/advance-portal/pkg/logger"
)

// maxApplicationNoAttempts bounds the suffix search when a derived number is
// already taken by a manually supplied one.
const maxApplicationNoAttempts = 10

// statsQueryTimeout bounds a shared dashboard stats round.
const statsQueryTimeout = 30 * time.Second

// LedgerService owns borrowers, vouchers and the balance reduction between them
type LedgerService struct {
	repos    *repository.Repositories
	auditSvc *AuditService
	sf       *singleflight.Group
}

// NewLedgerService creates a new ledger service
func NewLedgerService(repos *repository.Repositories, auditSvc *AuditService) *LedgerService {
	return &LedgerService{repos: repos, auditSvc: auditSvc, sf: &singleflight.Group{}}
}

// BorrowerInput carries the fields of a new or edited advance
type BorrowerInput struct {
	ApplicationNo string
	EmpID         string
	Name          string
	Amount        decimal.Decimal
	Emi           decimal.Decimal
	Months        int
	DisbursedDate time.Time

	// Import only. Nil means the full amount is outstanding.
	OutstandingAmount *decimal.Decimal
	EntryDate         *time.Time
}

func (in *BorrowerInput) normalize() {
	in.ApplicationNo = strings.TrimSpace(in.ApplicationNo)
	in.EmpID = strings.TrimSpace(in.EmpID)
	in.Name = strings.TrimSpace(in.Name)
}

func (in *BorrowerInput) validate() error {
	switch {
	case in.EmpID == "":
		return validationError("Employee ID is required")
	case !in.Amount.IsPositive():
		return validationError("Amount must be greater than zero")
	case in.Emi.IsNegative():
		return validationError("EMI cannot be negative")
	case in.Months <= 0:
		return validationError("Months must be greater than zero")
	case in.DisbursedDate.IsZero():
		return validationError("Disbursed date is required")
	}
	if in.OutstandingAmount != nil {
		if in.OutstandingAmount.IsNegative() || in.OutstandingAmount.GreaterThan(in.Amount) {
			return validationError("Outstanding amount must be between 0 and the advance amount")
		}
	}
	return nil
}

// BorrowerRef identifies a borrower by numeric id or by application number
type BorrowerRef struct {
	ID            uint
	ApplicationNo string
}

func (r BorrowerRef) String() string {
	if r.ID != 0 {
		return idString(r.ID)
	}
	return r.ApplicationNo
}

// BorrowerResult is returned by CreateBorrower
type BorrowerResult struct {
	Borrower models.BorrowerResponse `json:"borrower"`
	Notice   string                  `json:"notice,omitempty"`
}

// VoucherInput carries the fields of a new or edited voucher
type VoucherInput struct {
	Number        string
	EmpID         string
	EmpName       string
	ApplicationNo string
	VoucherDate   time.Time
	Amount        decimal.Decimal
	Month         string
}

func (in *VoucherInput) normalize() {
	in.Number = strings.TrimSpace(in.Number)
	in.EmpID = strings.TrimSpace(in.EmpID)
	in.EmpName = strings.TrimSpace(in.EmpName)
	in.ApplicationNo = strings.TrimSpace(in.ApplicationNo)
	in.Month = strings.TrimSpace(in.Month)
}

func (in *VoucherInput) validate() error {
	switch {
	case !in.Amount.IsPositive():
		return validationError("Amount must be greater than zero")
	case in.EmpID == "":
		return validationError("Employee ID is required")
	case in.EmpName == "":
		return validationError("Employee name is required")
	case in.VoucherDate.IsZero():
		return validationError("Voucher date is required")
	case in.Month == "":
		return validationError("Month is required")
	}
	return nil
}

// BorrowerUpdate describes the balance change a voucher caused
type BorrowerUpdate struct {
	BorrowerID     uint    `json:"borrowerId"`
	ApplicationNo  string  `json:"applicationNo"`
	OldOutstanding float64 `json:"oldOutstanding"`
	NewOutstanding float64 `json:"newOutstanding"`
	ReducedBy      float64 `json:"reducedBy"`
	Status         string  `json:"status"`
}

// VoucherResult is returned by CreateVoucher. BorrowerUpdate is nil when no
// active advance was debited.
type VoucherResult struct {
	Voucher        models.VoucherResponse `json:"voucher"`
	BorrowerUpdate *BorrowerUpdate        `json:"borrowerUpdate"`
	Warnings       []string               `json:"warnings,omitempty"`
}

// VoucherEditResult is returned by EditVoucher and DeleteVoucher
type VoucherEditResult struct {
	Voucher  *models.VoucherResponse `json:"voucher,omitempty"`
	Warnings []string                `json:"warnings,omitempty"`
}

// CreateBorrower records a new advance for an existing employee
func (s *LedgerService) CreateBorrower(ctx context.Context, actor Actor, in BorrowerInput) (*BorrowerResult, error) {
	var (
		borrower *models.Borrower
		notice   string
	)
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		borrower, notice, err = createBorrower(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("[Ledger] Borrower created",
		"borrower_id", borrower.ID,
		"application_no", borrower.ApplicationNo,
		"emp_id", borrower.EmpID,
		"amount", borrower.Amount.String(),
	)
	s.auditSvc.Log(ctx, actor, models.AuditCreate, "Borrower", borrower.ApplicationNo,
		fmt.Sprintf("Advance of %s for employee %s", borrower.Amount.StringFixed(2), borrower.EmpID))

	return &BorrowerResult{Borrower: borrower.ToResponse(), Notice: notice}, nil
}

// createBorrower runs inside tx. Preconditions are read before anything is written.
func createBorrower(ctx context.Context, tx *repository.Repositories, in BorrowerInput) (*models.Borrower, string, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, "", err
	}

	employee, err := tx.Employee.FindByID(ctx, in.EmpID)
	if repository.IsNotFound(err) {
		return nil, "", ErrEmployeeNotFound
	}
	if err != nil {
		return nil, "", dbError(err)
	}
	if in.Name == "" {
		in.Name = employee.Name
	}

	if in.ApplicationNo != "" {
		exists, err := tx.Borrower.ApplicationNoExists(ctx, in.ApplicationNo)
		if err != nil {
			return nil, "", dbError(err)
		}
		if exists {
			return nil, "", ErrDuplicateApplicationNo
		}
	}

	var notice string
	activeCount, err := tx.Borrower.CountActiveByEmployee(ctx, in.EmpID)
	if err != nil {
		return nil, "", dbError(err)
	}
	if activeCount > 0 {
		notice = fmt.Sprintf("Employee %s already has %d active advance(s)", in.EmpID, activeCount)
	}

	outstanding := in.Amount
	if in.OutstandingAmount != nil {
		outstanding = *in.OutstandingAmount
	}

	borrower := &models.Borrower{
		ApplicationNo:     in.ApplicationNo,
		EmpID:             in.EmpID,
		Name:              in.Name,
		Amount:            in.Amount.Round(2),
		OutstandingAmount: outstanding.Round(2),
		Emi:               in.Emi.Round(2),
		Months:            in.Months,
		DisbursedDate:     in.DisbursedDate,
		EntryDate:         in.EntryDate,
		Status:            models.BorrowerStatusActive,
	}
	if borrower.OutstandingAmount.IsZero() {
		borrower.Status = models.BorrowerStatusCompleted
	}

	derive := borrower.ApplicationNo == ""
	if derive {
		// Phase one: a unique placeholder until the row id is known.
		borrower.ApplicationNo = "TMP-" + uuid.NewString()
	}

	if err := tx.Borrower.Create(ctx, borrower); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, "", ErrDuplicateApplicationNo
		}
		return nil, "", dbError(err)
	}

	if derive {
		// Phase two: derive the number from the generated id and write it back.
		applicationNo, err := assignApplicationNo(ctx, tx, borrower.ID)
		if err != nil {
			return nil, "", err
		}
		borrower.ApplicationNo = applicationNo
	}

	return borrower, notice, nil
}

func assignApplicationNo(ctx context.Context, tx *repository.Repositories, id uint) (string, error) {
	base := models.ApplicationNoFor(id)
	for attempt := 0; attempt < maxApplicationNoAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s-%d", base, attempt)
		}

		taken, err := tx.Borrower.ApplicationNoExists(ctx, candidate)
		if err != nil {
			return "", dbError(err)
		}
		if taken {
			continue
		}

		if err := tx.Borrower.SetApplicationNo(ctx, id, candidate); err != nil {
			return "", dbError(err)
		}
		return candidate, nil
	}
	return "", &Error{Kind: ErrServer, Message: "Could not generate a unique application number"}
}

// CreateVoucher records a payment and applies it to the matching active advance.
// The voucher insert and the balance update commit or roll back together.
func (s *LedgerService) CreateVoucher(ctx context.Context, actor Actor, in VoucherInput) (*VoucherResult, error) {
	var result *VoucherResult
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		result, err = applyVoucher(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	details := fmt.Sprintf("Voucher %s of %s for employee %s", result.Voucher.ID,
		decimal.NewFromFloat(result.Voucher.Amount).StringFixed(2), result.Voucher.EmpID)
	if update := result.BorrowerUpdate; update != nil {
		log.Info("[Ledger] Voucher applied",
			"voucher_auto_id", result.Voucher.AutoID,
			"application_no", update.ApplicationNo,
			"old_outstanding", update.OldOutstanding,
			"new_outstanding", update.NewOutstanding,
			"status", update.Status,
		)
		details += fmt.Sprintf("; reduced %s from %.2f to %.2f", update.ApplicationNo, update.OldOutstanding, update.NewOutstanding)
	} else {
		log.Info("[Ledger] Voucher recorded without balance change",
			"voucher_auto_id", result.Voucher.AutoID,
			"emp_id", result.Voucher.EmpID,
		)
	}
	s.auditSvc.Log(ctx, actor, models.AuditCreate, "Voucher", idString(result.Voucher.AutoID), details)

	return result, nil
}

// applyVoucher runs inside tx
func applyVoucher(ctx context.Context, tx *repository.Repositories, in VoucherInput) (*VoucherResult, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	var warnings []string
	known, err := tx.Employee.Exists(ctx, in.EmpID)
	if err != nil {
		return nil, dbError(err)
	}
	if !known {
		warnings = append(warnings, fmt.Sprintf("Employee ID %s is not registered; voucher recorded anyway", in.EmpID))
	}

	voucher := &models.Voucher{
		Number:        in.Number,
		EmpID:         in.EmpID,
		EmpName:       in.EmpName,
		ApplicationNo: in.ApplicationNo,
		VoucherDate:   in.VoucherDate,
		Amount:        in.Amount.Round(2),
		Month:         in.Month,
	}
	if err := tx.Voucher.Create(ctx, voucher); err != nil {
		return nil, dbError(err)
	}

	target, warning, err := findVoucherTarget(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		warnings = append(warnings, warning)
	}

	result := &VoucherResult{Warnings: warnings}
	if target == nil {
		result.Voucher = voucher.ToResponse()
		return result, nil
	}

	update, reducedBy, err := reduceBalance(ctx, tx, target, voucher.Amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Voucher.MarkApplied(ctx, voucher.AutoID, target.ID, reducedBy); err != nil {
		return nil, dbError(err)
	}
	voucher.AppliedBorrowerID = &target.ID
	voucher.AppliedAmount = reducedBy

	result.Voucher = voucher.ToResponse()
	result.BorrowerUpdate = update
	return result, nil
}

// findVoucherTarget locks the advance a voucher pays down. A supplied
// application number must match an active advance; otherwise the employee's
// oldest active advance is used.
func findVoucherTarget(ctx context.Context, tx *repository.Repositories, in VoucherInput) (*models.Borrower, string, error) {
	if in.ApplicationNo != "" {
		borrower, err := tx.Borrower.FindActiveByApplicationNoForUpdate(ctx, in.ApplicationNo)
		if repository.IsNotFound(err) {
			return nil, fmt.Sprintf("Application number %s not found or not active; no balance updated", in.ApplicationNo), nil
		}
		if err != nil {
			return nil, "", dbError(err)
		}
		return borrower, "", nil
	}

	borrower, err := tx.Borrower.FindOldestActiveByEmployeeForUpdate(ctx, in.EmpID)
	if repository.IsNotFound(err) {
		return nil, fmt.Sprintf("No active advance found for employee %s; no balance updated", in.EmpID), nil
	}
	if err != nil {
		return nil, "", dbError(err)
	}
	return borrower, "", nil
}

// reduceBalance debits amount from an active advance. The balance never goes
// below zero and an advance reaching zero is completed.
func reduceBalance(ctx context.Context, tx *repository.Repositories, borrower *models.Borrower, amount decimal.Decimal) (*BorrowerUpdate, decimal.Decimal, error) {
	oldOutstanding := borrower.OutstandingAmount
	newOutstanding := oldOutstanding.Sub(amount)
	if newOutstanding.IsNegative() {
		newOutstanding = decimal.Zero
	}
	reducedBy := oldOutstanding.Sub(newOutstanding)

	if newOutstanding.IsZero() {
		if err := statemachine.NewBorrowerFSM(borrower).Complete(ctx); err != nil {
			return nil, decimal.Zero, &Error{Kind: ErrServer, Message: "Server error occurred", Err: err}
		}
	}

	rows, err := tx.Borrower.UpdateBalance(ctx, borrower.ID, newOutstanding, borrower.Status)
	if err != nil {
		return nil, decimal.Zero, dbError(err)
	}
	if rows == 0 {
		return nil, decimal.Zero, ErrConcurrentUpdate
	}
	borrower.OutstandingAmount = newOutstanding

	return &BorrowerUpdate{
		BorrowerID:     borrower.ID,
		ApplicationNo:  borrower.ApplicationNo,
		OldOutstanding: oldOutstanding.InexactFloat64(),
		NewOutstanding: newOutstanding.InexactFloat64(),
		ReducedBy:      reducedBy.InexactFloat64(),
		Status:         borrower.Status,
	}, reducedBy, nil
}

func findBorrowerForUpdate(ctx context.Context, tx *repository.Repositories, ref BorrowerRef) (*models.Borrower, error) {
	var (
		borrower *models.Borrower
		err      error
	)
	switch {
	case ref.ID != 0:
		borrower, err = tx.Borrower.FindByIDForUpdate(ctx, ref.ID)
	case strings.TrimSpace(ref.ApplicationNo) != "":
		borrower, err = tx.Borrower.FindByApplicationNoForUpdate(ctx, strings.TrimSpace(ref.ApplicationNo))
	default:
		return nil, validationError("Borrower ID or application number is required")
	}
	if repository.IsNotFound(err) {
		return nil, ErrBorrowerNotFound
	}
	if err != nil {
		return nil, dbError(err)
	}
	return borrower, nil
}

// rescaleOutstanding keeps the repaid fraction when the advance amount changes
func rescaleOutstanding(oldAmount, oldOutstanding, newAmount decimal.Decimal) decimal.Decimal {
	if newAmount.Equal(oldAmount) {
		return oldOutstanding
	}

	var outstanding decimal.Decimal
	if oldAmount.IsZero() {
		outstanding = newAmount
	} else {
		outstanding = newAmount.Mul(oldOutstanding).Div(oldAmount).Round(2)
	}

	if outstanding.IsNegative() {
		return decimal.Zero
	}
	if outstanding.GreaterThan(newAmount) {
		return newAmount
	}
	return outstanding
}

// EditBorrower corrects the details of an active advance
func (s *LedgerService) EditBorrower(ctx context.Context, actor Actor, ref BorrowerRef, in BorrowerInput) (*models.Borrower, error) {
	in.normalize()
	in.OutstandingAmount = nil
	if err := in.validate(); err != nil {
		return nil, err
	}

	var borrower *models.Borrower
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		borrower, err = findBorrowerForUpdate(ctx, tx, ref)
		if err != nil {
			return err
		}
		if !statemachine.NewBorrowerFSM(borrower).CanEdit() {
			return ErrBorrowerNotFound
		}

		employee, err := tx.Employee.FindByID(ctx, in.EmpID)
		if repository.IsNotFound(err) {
			return ErrEmployeeNotFound
		}
		if err != nil {
			return dbError(err)
		}

		newAmount := in.Amount.Round(2)
		borrower.OutstandingAmount = rescaleOutstanding(borrower.Amount, borrower.OutstandingAmount, newAmount)
		borrower.Amount = newAmount
		borrower.EmpID = in.EmpID
		borrower.Name = in.Name
		if borrower.Name == "" {
			borrower.Name = employee.Name
		}
		borrower.Emi = in.Emi.Round(2)
		borrower.Months = in.Months
		borrower.DisbursedDate = in.DisbursedDate

		rows, err := tx.Borrower.UpdateDetails(ctx, borrower)
		if err != nil {
			return dbError(err)
		}
		if rows == 0 {
			return ErrBorrowerNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditUpdate, "Borrower", borrower.ApplicationNo,
		fmt.Sprintf("Amount %s, outstanding %s", borrower.Amount.StringFixed(2), borrower.OutstandingAmount.StringFixed(2)))
	return borrower, nil
}

// DeleteBorrower cancels an active advance
func (s *LedgerService) DeleteBorrower(ctx context.Context, actor Actor, ref BorrowerRef) error {
	var applicationNo string
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		borrower, err := findBorrowerForUpdate(ctx, tx, ref)
		if err != nil {
			return err
		}
		applicationNo = borrower.ApplicationNo

		from := borrower.Status
		if err := statemachine.NewBorrowerFSM(borrower).Cancel(ctx); err != nil {
			if errors.Is(err, statemachine.ErrInvalidTransition) {
				return ErrBorrowerNotFound
			}
			return err
		}

		rows, err := tx.Borrower.TransitionStatus(ctx, borrower.ID, from, borrower.Status)
		if err != nil {
			return dbError(err)
		}
		if rows == 0 {
			return ErrBorrowerNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("[Ledger] Borrower cancelled", "application_no", applicationNo, "user_id", actor.UserID)
	s.auditSvc.Log(ctx, actor, models.AuditDelete, "Borrower", applicationNo, "Cancelled advance")
	return nil
}

// DeleteVoucher removes a voucher. A balance it reduced is not restored; the
// caller is warned instead.
func (s *LedgerService) DeleteVoucher(ctx context.Context, actor Actor, autoID uint) (*VoucherEditResult, error) {
	if autoID == 0 {
		return nil, validationError("Voucher ID is required")
	}

	var voucher *models.Voucher
	var borrower *models.Borrower
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		voucher, err = tx.Voucher.FindByAutoID(ctx, autoID)
		if repository.IsNotFound(err) {
			return ErrVoucherNotFound
		}
		if err != nil {
			return dbError(err)
		}

		if voucher.ReducedBalance() {
			borrower, err = tx.Borrower.FindByID(ctx, *voucher.AppliedBorrowerID)
			if err != nil && !repository.IsNotFound(err) {
				return dbError(err)
			}
		}

		rows, err := tx.Voucher.Delete(ctx, autoID)
		if err != nil {
			return dbError(err)
		}
		if rows == 0 {
			return ErrVoucherNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &VoucherEditResult{}
	if voucher.ReducedBalance() {
		target := fmt.Sprintf("borrower #%d", *voucher.AppliedBorrowerID)
		if borrower != nil {
			target = borrower.ApplicationNo
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"This voucher had reduced %s by %s; the outstanding balance was not restored",
			target, voucher.AppliedAmount.StringFixed(2)))
		logger.FromContext(ctx).Warn("[Ledger] Deleted voucher had reduced a balance",
			"voucher_auto_id", autoID,
			"borrower", target,
			"applied_amount", voucher.AppliedAmount.String(),
		)
	}

	s.auditSvc.Log(ctx, actor, models.AuditDelete, "Voucher", idString(autoID),
		fmt.Sprintf("Deleted voucher %s of %s", voucher.Number, voucher.Amount.StringFixed(2)))
	return result, nil
}

// EditVoucher corrects a voucher's details. Balances are not recalculated.
func (s *LedgerService) EditVoucher(ctx context.Context, actor Actor, autoID uint, in VoucherInput) (*VoucherEditResult, error) {
	if autoID == 0 {
		return nil, validationError("Voucher ID is required")
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	var voucher *models.Voucher
	var warnings []string
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		voucher, err = tx.Voucher.FindByAutoID(ctx, autoID)
		if repository.IsNotFound(err) {
			return ErrVoucherNotFound
		}
		if err != nil {
			return dbError(err)
		}

		amount := in.Amount.Round(2)
		if voucher.ReducedBalance() && !amount.Equal(voucher.Amount) {
			warnings = append(warnings, fmt.Sprintf(
				"Amount changed from %s to %s; the advance balance this voucher reduced was not recalculated",
				voucher.Amount.StringFixed(2), amount.StringFixed(2)))
		}

		voucher.Number = in.Number
		voucher.EmpID = in.EmpID
		voucher.EmpName = in.EmpName
		voucher.ApplicationNo = in.ApplicationNo
		voucher.VoucherDate = in.VoucherDate
		voucher.Amount = amount
		voucher.Month = in.Month

		rows, err := tx.Voucher.UpdateDetails(ctx, voucher)
		if err != nil {
			return dbError(err)
		}
		if rows == 0 {
			return ErrVoucherNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(warnings) > 0 {
		logger.FromContext(ctx).Warn("[Ledger] Applied voucher amount edited", "voucher_auto_id", autoID)
	}
	s.auditSvc.Log(ctx, actor, models.AuditUpdate, "Voucher", idString(autoID),
		fmt.Sprintf("Voucher %s amount %s", voucher.Number, voucher.Amount.StringFixed(2)))

	resp := voucher.ToResponse()
	return &VoucherEditResult{Voucher: &resp, Warnings: warnings}, nil
}

// DashboardStats returns the headline figures. Concurrent callers share a
// single round of count queries. The shared round is detached from any one
// caller's cancellation; each caller stops waiting when its own ctx ends.
func (s *LedgerService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	ch := s.sf.DoChan("dashboard-stats", func() (interface{}, error) {
		queryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsQueryTimeout)
		defer cancel()
		return s.loadDashboardStats(queryCtx)
	})

	select {
	case <-ctx.Done():
		return nil, dbError(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		stats := *res.Val.(*models.DashboardStats)
		return &stats, nil
	}
}

func (s *LedgerService) loadDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	employees, err := s.repos.Employee.CountActive(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	borrowers, err := s.repos.Borrower.CountActive(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	vouchers, err := s.repos.Voucher.Count(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	outstanding, err := s.repos.Borrower.SumActiveOutstanding(ctx)
	if err != nil {
		return nil, dbError(err)
	}

	return &models.DashboardStats{
		TotalEmployees:    employees,
		ActiveBorrowers:   borrowers,
		ActiveVouchers:    vouchers,
		OutstandingAmount: outstanding.InexactFloat64(),
	}, nil
}

// BorrowerHistory lists every advance of an employee, newest first
func (s *LedgerService) BorrowerHistory(ctx context.Context, empID string) (*models.BorrowerHistory, error) {
	empID = strings.TrimSpace(empID)
	if empID == "" {
		return nil, validationError("Employee ID is required")
	}

	exists, err := s.repos.Employee.Exists(ctx, empID)
	if err != nil {
		return nil, dbError(err)
	}
	if !exists {
		return nil, ErrEmployeeNotFound
	}

	borrowers, err := s.repos.Borrower.ListByEmployee(ctx, empID)
	if err != nil {
		return nil, dbError(err)
	}

	vouchers, err := s.repos.Voucher.ListByEmployee(ctx, empID)
	if err != nil {
		return nil, dbError(err)
	}

	history := &models.BorrowerHistory{
		EmpID:     empID,
		Borrowers: make([]models.BorrowerResponse, 0, len(borrowers)),
		Vouchers:  make([]models.VoucherResponse, 0, len(vouchers)),
	}
	totalOutstanding := decimal.Zero
	for i := range borrowers {
		b := &borrowers[i]
		history.Borrowers = append(history.Borrowers, b.ToResponse())
		history.Summary.Total++
		if b.IsActive() {
			totalOutstanding = totalOutstanding.Add(b.OutstandingAmount)
		}
		switch b.Status {
		case models.BorrowerStatusActive:
			history.Summary.Active++
		case models.BorrowerStatusCompleted:
			history.Summary.Completed++
		case models.BorrowerStatusCancelled:
			history.Summary.Cancelled++
		}
	}
	history.Summary.TotalOutstanding = totalOutstanding.InexactFloat64()
	for i := range vouchers {
		history.Vouchers = append(history.Vouchers, vouchers[i].ToResponse())
	}
	return history, nil
}

// BorrowerFilterAll lists borrowers in every status
const BorrowerFilterAll = "all"

// ListBorrowers returns borrowers newest first. An empty filter means active only.
func (s *LedgerService) ListBorrowers(ctx context.Context, filter string) ([]models.Borrower, error) {
	status := strings.ToLower(strings.TrimSpace(filter))
	switch status {
	case "":
		status = models.BorrowerStatusActive
	case BorrowerFilterAll:
		status = ""
	case models.BorrowerStatusActive, models.BorrowerStatusCompleted, models.BorrowerStatusCancelled:
	default:
		return nil, validationError("Unknown borrower status %q", filter)
	}

	borrowers, err := s.repos.Borrower.List(ctx, status)
	if err != nil {
		return nil, dbError(err)
	}
	return borrowers, nil
}

// ListVouchers returns all vouchers newest first
func (s *LedgerService) ListVouchers(ctx context.Context) ([]models.Voucher, error) {
	vouchers, err := s.repos.Voucher.List(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	return vouchers, nil
}
