package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/internal/repository"
	"github.com/sjperalta/advance-portal/pkg/datefmt"
	"github.com/sjperalta/advance-portal/pkg/logger"
)

// Cell is a spreadsheet value. Rows come from parsed workbooks, so a cell may
// arrive as a JSON string, number, bool or null.
type Cell string

func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Cell(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*c = Cell(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("unsupported cell value %s", data)
	}
	*c = Cell(strconv.FormatBool(b))
	return nil
}

func (c Cell) String() string {
	return strings.TrimSpace(string(c))
}

// Decimal parses the cell as an amount. Thousands separators are ignored.
func (c Cell) Decimal() (decimal.Decimal, error) {
	s := strings.ReplaceAll(c.String(), ",", "")
	if s == "" {
		return decimal.Zero, errors.New("empty")
	}
	return decimal.NewFromString(s)
}

// maxWholeNumber bounds whole-number cells so ids and month counts convert
// without overflow on any platform.
const maxWholeNumber = math.MaxInt32

// Int parses the cell as a whole number. Spreadsheets often send 5 as 5.0.
func (c Cell) Int() (int, error) {
	d, err := c.Decimal()
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, errors.New("not a whole number")
	}
	if d.Abs().GreaterThan(decimal.NewFromInt(maxWholeNumber)) {
		return 0, errors.New("whole number out of range")
	}
	return int(d.IntPart()), nil
}

// Date parses the cell as a calendar date in either boundary or storage format.
func (c Cell) Date() (time.Time, error) {
	return datefmt.Parse(c.String())
}

// EmployeeRow is one row of an employee import
type EmployeeRow struct {
	ID   Cell `json:"id"`
	Name Cell `json:"name"`
}

// BorrowerRow is one row of a borrower import
type BorrowerRow struct {
	ApplicationNo     Cell `json:"applicationNo"`
	EmpID             Cell `json:"empId"`
	Name              Cell `json:"name"`
	Amount            Cell `json:"amount"`
	OutstandingAmount Cell `json:"outstandingAmount"`
	Emi               Cell `json:"emi"`
	Month             Cell `json:"month"`
	DisbursedDate     Cell `json:"disbursedDate"`
	EntryDate         Cell `json:"entryDate"`
}

// VoucherRow is one row of a voucher import
type VoucherRow struct {
	ID            Cell `json:"id"`
	EmpID         Cell `json:"empId"`
	EmpName       Cell `json:"empName"`
	ApplicationNo Cell `json:"applicationNo"`
	Date          Cell `json:"date"`
	Amount        Cell `json:"amount"`
	Month         Cell `json:"month"`
}

// RowError reports a skipped row. Row is 1-based.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (e RowError) String() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Reason)
}

// ImportResult summarises a batch. Errors holds printable lines for the
// dashboard; RowErrors carries the same information structured.
type ImportResult struct {
	SuccessCount int        `json:"successCount"`
	ErrorCount   int        `json:"errorCount"`
	Errors       []string   `json:"errors"`
	RowErrors    []RowError `json:"rowErrors"`
	Warnings     []string   `json:"warnings,omitempty"`
}

func (r *ImportResult) skip(row int, err error) {
	rowErr := RowError{Row: row, Reason: Message(err)}
	r.ErrorCount++
	r.RowErrors = append(r.RowErrors, rowErr)
	r.Errors = append(r.Errors, rowErr.String())
}

// Summary is the envelope message for the batch
func (r *ImportResult) Summary(entity string) string {
	total := r.SuccessCount + r.ErrorCount
	if r.ErrorCount == 0 {
		return fmt.Sprintf("Successfully imported %d %s", r.SuccessCount, entity)
	}
	return fmt.Sprintf("Imported %d of %d %s; %d row(s) skipped", r.SuccessCount, total, entity, r.ErrorCount)
}

// ImportService loads batches of spreadsheet rows. Each batch runs in one
// transaction: rows that fail a check are skipped and reported, while a store
// fault rolls back the whole batch.
type ImportService struct {
	repos    *repository.Repositories
	auditSvc *AuditService
}

// NewImportService creates a new import service
func NewImportService(repos *repository.Repositories, auditSvc *AuditService) *ImportService {
	return &ImportService{repos: repos, auditSvc: auditSvc}
}

// isRowError reports whether err only concerns the row that produced it
func isRowError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateKey)
}

// faultMessages maps store faults to the message shown for a rolled back batch
var faultMessages = map[repository.Fault]string{
	repository.FaultDuplicateKey:   "Duplicate entry found. One of the records already exists.",
	repository.FaultForeignKey:     "Referenced employee does not exist.",
	repository.FaultDataTooLong:    "One of the values is too long for its column.",
	repository.FaultInvalidDate:    "Invalid date value. Use DD-MM-YYYY.",
	repository.FaultInvalidDecimal: "Invalid numeric amount.",
	repository.FaultConnection:     "Lost connection to the database. Please try again.",
	repository.FaultLockTimeout:    "The database is busy. Please try again in a moment.",
}

// batchFault wraps a store failure that aborted a batch
func batchFault(err error) error {
	cause := Cause(err)
	msg, ok := faultMessages[repository.ClassifyFault(cause)]
	if !ok {
		msg = "Database error occurred"
	}
	return &Error{Kind: ErrDatabase, Message: msg, Err: cause}
}

func (s *ImportService) run(ctx context.Context, actor Actor, entity string, rows int, fn func(tx *repository.Repositories, result *ImportResult) error) (*ImportResult, error) {
	if rows == 0 {
		return nil, validationError("No %s data provided", entity)
	}

	var result *ImportResult
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		result = &ImportResult{Errors: []string{}, RowErrors: []RowError{}}
		return fn(tx, result)
	})
	if err != nil {
		logger.FromContext(ctx).Error("[Import] Batch rolled back",
			"entity", entity,
			"rows", rows,
			"error", Cause(err),
		)
		if isRowError(err) {
			return nil, err
		}
		return nil, batchFault(err)
	}

	logger.FromContext(ctx).Info("[Import] Batch committed",
		"entity", entity,
		"success", result.SuccessCount,
		"skipped", result.ErrorCount,
	)
	s.auditSvc.Log(ctx, actor, models.AuditImport, entity, "",
		fmt.Sprintf("Imported %d, skipped %d", result.SuccessCount, result.ErrorCount))
	return result, nil
}

// applyRow runs one row inside a savepoint, so a statement that failed for
// that row is undone without aborting the batch transaction.
func applyRow(ctx context.Context, tx *repository.Repositories, result *ImportResult, row int, fn func(rowTx *repository.Repositories) error) error {
	return step(result, row, tx.Transaction(ctx, fn))
}

// step records the outcome of one row. Row-level failures are recorded;
// anything else aborts.
func step(result *ImportResult, row int, err error) error {
	if err == nil {
		result.SuccessCount++
		return nil
	}
	if isRowError(err) {
		result.skip(row, err)
		return nil
	}
	return err
}

// ImportEmployees registers a batch of employees
func (s *ImportService) ImportEmployees(ctx context.Context, actor Actor, rows []EmployeeRow) (*ImportResult, error) {
	return s.run(ctx, actor, "employees", len(rows), func(tx *repository.Repositories, result *ImportResult) error {
		for i, row := range rows {
			err := applyRow(ctx, tx, result, i+1, func(rowTx *repository.Repositories) error {
				_, err := createEmployee(ctx, rowTx, row.ID.String(), row.Name.String())
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ImportBorrowers records a batch of advances
func (s *ImportService) ImportBorrowers(ctx context.Context, actor Actor, rows []BorrowerRow) (*ImportResult, error) {
	return s.run(ctx, actor, "borrowers", len(rows), func(tx *repository.Repositories, result *ImportResult) error {
		for i, row := range rows {
			err := applyRow(ctx, tx, result, i+1, func(rowTx *repository.Repositories) error {
				in, err := row.input()
				if err != nil {
					return err
				}
				_, notice, err := createBorrower(ctx, rowTx, in)
				if err == nil && notice != "" {
					result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: %s", i+1, notice))
				}
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ImportVouchers records a batch of vouchers, applying each to its advance in order
func (s *ImportService) ImportVouchers(ctx context.Context, actor Actor, rows []VoucherRow) (*ImportResult, error) {
	return s.run(ctx, actor, "vouchers", len(rows), func(tx *repository.Repositories, result *ImportResult) error {
		for i, row := range rows {
			err := applyRow(ctx, tx, result, i+1, func(rowTx *repository.Repositories) error {
				in, err := row.input()
				if err != nil {
					return err
				}
				applied, err := applyVoucher(ctx, rowTx, in)
				if err == nil {
					for _, w := range applied.Warnings {
						result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: %s", i+1, w))
					}
				}
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r BorrowerRow) input() (BorrowerInput, error) {
	in := BorrowerInput{
		ApplicationNo: r.ApplicationNo.String(),
		EmpID:         r.EmpID.String(),
		Name:          r.Name.String(),
	}
	if in.EmpID == "" {
		return in, validationError("Employee ID is required")
	}

	var err error
	if in.Amount, err = r.Amount.Decimal(); err != nil {
		return in, validationError("Invalid amount %q", r.Amount.String())
	}
	if r.OutstandingAmount.String() != "" {
		outstanding, err := r.OutstandingAmount.Decimal()
		if err != nil {
			return in, validationError("Invalid outstanding amount %q", r.OutstandingAmount.String())
		}
		in.OutstandingAmount = &outstanding
	}
	if in.Emi, err = r.Emi.Decimal(); err != nil {
		return in, validationError("Invalid EMI %q", r.Emi.String())
	}
	if in.Months, err = r.Month.Int(); err != nil {
		return in, validationError("Invalid number of months %q", r.Month.String())
	}
	if in.DisbursedDate, err = r.DisbursedDate.Date(); err != nil {
		return in, validationError("Invalid disbursed date %q. Use DD-MM-YYYY", r.DisbursedDate.String())
	}
	if r.EntryDate.String() != "" {
		entry, err := r.EntryDate.Date()
		if err != nil {
			return in, validationError("Invalid entry date %q. Use DD-MM-YYYY", r.EntryDate.String())
		}
		in.EntryDate = &entry
	}
	return in, nil
}

func (r VoucherRow) input() (VoucherInput, error) {
	in := VoucherInput{
		Number:        r.ID.String(),
		EmpID:         r.EmpID.String(),
		EmpName:       r.EmpName.String(),
		ApplicationNo: r.ApplicationNo.String(),
		Month:         r.Month.String(),
	}

	var err error
	if in.Amount, err = r.Amount.Decimal(); err != nil {
		return in, validationError("Invalid amount %q", r.Amount.String())
	}
	if in.VoucherDate, err = r.Date.Date(); err != nil {
		return in, validationError("Invalid voucher date %q. Use DD-MM-YYYY", r.Date.String())
	}
	return in, nil
}
