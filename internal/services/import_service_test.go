package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sjperalta/advance-portal/internal/models"
)

func TestCell_UnmarshalJSON(t *testing.T) {
	var row BorrowerRow
	payload := `{"applicationNo": null, "empId": " E1 ", "amount": 1000, "outstandingAmount": "1,000.50",
		"emi": 200.5, "month": 5.0, "disbursedDate": "15-01-2024", "entryDate": true}`
	require.NoError(t, json.Unmarshal([]byte(payload), &row))

	assert.Equal(t, "", row.ApplicationNo.String())
	assert.Equal(t, "E1", row.EmpID.String())
	assert.Equal(t, "1000", row.Amount.String())
	assert.Equal(t, "true", row.EntryDate.String())

	outstanding, err := row.OutstandingAmount.Decimal()
	require.NoError(t, err)
	assert.Equal(t, "1000.5", outstanding.String())

	months, err := row.Month.Int()
	require.NoError(t, err)
	assert.Equal(t, 5, months)

	_, err = Cell("2.5").Int()
	assert.Error(t, err)
	_, err = Cell("18446744073709551617").Int()
	assert.Error(t, err, "beyond the whole-number range")
	largest, err := Cell("2147483647").Int()
	require.NoError(t, err)
	assert.Equal(t, 2147483647, largest)
	_, err = Cell("").Decimal()
	assert.Error(t, err)

	date, err := row.DisbursedDate.Date()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", date.Format("2006-01-02"))
}

func borrowerRow(empID, applicationNo string) BorrowerRow {
	return BorrowerRow{
		ApplicationNo: Cell(applicationNo),
		EmpID:         Cell(empID),
		Name:          "Imported",
		Amount:        "1000",
		Emi:           "200",
		Month:         "5",
		DisbursedDate: "15-01-2024",
		EntryDate:     "2024-01-16",
	}
}

func TestImport_BorrowersSkipsBadRows(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.employee(t, "E1", "Ana")
	f.employee(t, "E3", "Cris")

	result, err := f.imports.ImportBorrowers(ctx, testActor, []BorrowerRow{
		borrowerRow("E1", ""),
		borrowerRow("E2", ""),
		borrowerRow("E3", "LOAN-3"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, 2, result.RowErrors[0].Row)
	assert.Equal(t, "Employee ID not found", result.RowErrors[0].Reason)
	assert.Equal(t, []string{"Row 2: Employee ID not found"}, result.Errors)
	assert.Equal(t, "Imported 2 of 3 borrowers; 1 row(s) skipped", result.Summary("borrowers"))

	all, err := f.ledger.ListBorrowers(ctx, BorrowerFilterAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
	numbers := []string{all[0].ApplicationNo, all[1].ApplicationNo}
	assert.ElementsMatch(t, []string{"APP000001", "LOAN-3"}, numbers)
	for _, b := range all {
		require.NotNil(t, b.EntryDate)
		assert.Equal(t, "16-01-2024", b.ToResponse().EntryDate)
	}
}

func TestImport_BorrowerOutstandingAndDuplicates(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.employee(t, "E1", "Ana")

	paid := borrowerRow("E1", "LOAN-1")
	paid.OutstandingAmount = "0"
	partial := borrowerRow("E1", "LOAN-2")
	partial.OutstandingAmount = "250"
	dup := borrowerRow("E1", "LOAN-1")
	tooMuch := borrowerRow("E1", "LOAN-4")
	tooMuch.OutstandingAmount = "1500"
	badDate := borrowerRow("E1", "LOAN-5")
	badDate.DisbursedDate = "31-02-2024"

	result, err := f.imports.ImportBorrowers(ctx, testActor, []BorrowerRow{paid, partial, dup, tooMuch, badDate})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 3, result.ErrorCount)
	rows := []int{result.RowErrors[0].Row, result.RowErrors[1].Row, result.RowErrors[2].Row}
	assert.Equal(t, []int{3, 4, 5}, rows)
	assert.Equal(t, "Application number already exists", result.RowErrors[0].Reason)
	assert.Empty(t, result.Warnings, "a completed advance does not count as active")

	all, err := f.ledger.ListBorrowers(ctx, BorrowerFilterAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, b := range all {
		switch b.ApplicationNo {
		case "LOAN-1":
			assert.Equal(t, models.BorrowerStatusCompleted, b.Status)
			assert.True(t, b.OutstandingAmount.IsZero())
		case "LOAN-2":
			assert.Equal(t, models.BorrowerStatusActive, b.Status)
			assert.Equal(t, 250.0, b.OutstandingAmount.InexactFloat64())
		}
	}
}

func TestImport_Employees(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.employee(t, "E1", "Ana")

	result, err := f.imports.ImportEmployees(ctx, testActor, []EmployeeRow{
		{ID: "E2", Name: "Bea"},
		{ID: "E1", Name: "Ana again"},
		{ID: "E2", Name: "Bea twice"},
		{ID: "", Name: "Nobody"},
		{ID: "E3", Name: "Cris"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 3, result.ErrorCount)
	assert.Equal(t, "Row 2: Employee ID already exists", result.Errors[0])
	assert.Equal(t, "Row 3: Employee ID already exists", result.Errors[1])
	assert.Equal(t, 4, result.RowErrors[2].Row)

	employees, err := f.employees.List(ctx)
	require.NoError(t, err)
	assert.Len(t, employees, 3)
}

func TestImport_FailedInsertIsUndoneWithinBatch(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	// The insert lands, then the driver reports a unique violation for it.
	require.NoError(t, f.db.Callback().Create().After("gorm:create").Register("test:late_duplicate", func(tx *gorm.DB) {
		if emp, ok := tx.Statement.Dest.(*models.Employee); ok && emp.ID == "E1" {
			_ = tx.AddError(errors.New("UNIQUE constraint failed: employees.id"))
		}
	}))

	result, err := f.imports.ImportEmployees(ctx, testActor, []EmployeeRow{
		{ID: "E1", Name: "Ana"},
		{ID: "E2", Name: "Bea"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, "Row 1: Employee ID already exists", result.Errors[0])

	exists, err := f.repos.Employee.Exists(ctx, "E1")
	require.NoError(t, err)
	assert.False(t, exists, "skipped row must leave nothing behind")
	exists, err = f.repos.Employee.Exists(ctx, "E2")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestImport_VouchersApplyBalances(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.employee(t, "E1", "Ana")
	b := f.borrower(t, "E1", "", 1000)

	result, err := f.imports.ImportVouchers(ctx, testActor, []VoucherRow{
		{ID: "V1", EmpID: "E1", EmpName: "Ana", ApplicationNo: "APP000001", Date: "31-01-2024", Amount: "200", Month: "January"},
		{ID: "V2", EmpID: "E1", EmpName: "Ana", Date: "29-02-2024", Amount: "abc", Month: "February"},
		{ID: "V3", EmpID: "E1", EmpName: "Ana", Date: "2024-03-31", Amount: "300", Month: "March"},
		{ID: "V4", EmpID: "E7", EmpName: "Ghost", Date: "2024-03-31", Amount: "50", Month: "March"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 2, result.RowErrors[0].Row)
	assert.Len(t, result.Warnings, 2, "unknown employee and no active advance for row 4")

	assert.Equal(t, 500.0, f.reload(t, b.ID).OutstandingAmount.InexactFloat64())
}

func TestImport_EmptyBatch(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.imports.ImportVouchers(context.Background(), testActor, nil)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "No vouchers data provided", Message(err))
}

func TestImport_StoreFaultRollsBackBatch(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.employee(t, "E1", "Ana")
	b := f.borrower(t, "E1", "", 1000)

	calls := 0
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_second_voucher", func(tx *gorm.DB) {
		if tx.Statement.Table != "vouchers" {
			return
		}
		calls++
		if calls == 2 {
			_ = tx.AddError(errors.New("database is locked"))
		}
	}))

	_, err := f.imports.ImportVouchers(ctx, testActor, []VoucherRow{
		{ID: "V1", EmpID: "E1", EmpName: "Ana", Date: "31-01-2024", Amount: "200", Month: "January"},
		{ID: "V2", EmpID: "E1", EmpName: "Ana", Date: "29-02-2024", Amount: "200", Month: "February"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatabase)
	assert.Equal(t, "The database is busy. Please try again in a moment.", Message(err))

	count, err := f.repos.Voucher.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 1000.0, f.reload(t, b.ID).OutstandingAmount.InexactFloat64())
}

func TestBatchFault_Messages(t *testing.T) {
	tests := []struct {
		cause error
		want  string
	}{
		{errors.New("UNIQUE constraint failed: borrowers.application_no"), "Duplicate entry found. One of the records already exists."},
		{errors.New("FOREIGN KEY constraint failed"), "Referenced employee does not exist."},
		{errors.New("value too long for type character varying(50)"), "One of the values is too long for its column."},
		{errors.New("something odd"), "Database error occurred"},
	}
	for _, tt := range tests {
		err := batchFault(dbError(tt.cause))
		assert.Equal(t, tt.want, Message(err))
		assert.ErrorIs(t, err, tt.cause)
	}
}
