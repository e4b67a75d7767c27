package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/internal/repository"
	"github.com/sjperalta/advance-portal/pkg/datefmt"
)

// Export kinds
const (
	ExportEmployees = "employees"
	ExportBorrowers = "borrowers"
	ExportVouchers  = "vouchers"
	ExportAll       = "all"
)

// Export formats
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv"
)

// Export is a rendered file ready for download
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

type sheet struct {
	name    string
	headers []string
	rows    [][]interface{}
}

// ExportService renders registry and ledger data as spreadsheets
type ExportService struct {
	repos *repository.Repositories
}

func NewExportService(repos *repository.Repositories) *ExportService {
	return &ExportService{repos: repos}
}

// Export renders kind as a workbook, or as CSV for a single kind
func (s *ExportService) Export(ctx context.Context, kind, format string) (*Export, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatCSV {
		return nil, validationError("Unsupported export format %q", format)
	}

	var kinds []string
	switch kind {
	case ExportEmployees, ExportBorrowers, ExportVouchers:
		kinds = []string{kind}
	case ExportAll, "":
		if format == FormatCSV {
			return nil, validationError("CSV export needs a single type")
		}
		kind = ExportAll
		kinds = []string{ExportEmployees, ExportBorrowers, ExportVouchers}
	default:
		return nil, validationError("Unknown export type %q", kind)
	}

	sheets := make([]sheet, 0, len(kinds))
	for _, k := range kinds {
		sh, err := s.load(ctx, k)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sh)
	}

	stamp := time.Now().Format("2006-01-02")
	if format == FormatCSV {
		data, err := writeCSV(sheets[0])
		if err != nil {
			return nil, &Error{Kind: ErrServer, Message: "Could not render export", Err: err}
		}
		return &Export{
			Filename:    fmt.Sprintf("%s_%s.csv", kind, stamp),
			ContentType: contentTypeCSV,
			Data:        data,
		}, nil
	}

	data, err := writeWorkbook(sheets)
	if err != nil {
		return nil, &Error{Kind: ErrServer, Message: "Could not render export", Err: err}
	}
	return &Export{
		Filename:    fmt.Sprintf("%s_%s.xlsx", kind, stamp),
		ContentType: contentTypeXLSX,
		Data:        data,
	}, nil
}

// Template renders an empty import workbook with one example row
func (s *ExportService) Template(ctx context.Context, kind string) (*Export, error) {
	var sh sheet
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case ExportEmployees:
		sh = sheet{
			name:    "Employees",
			headers: []string{"Employee ID", "Name"},
			rows:    [][]interface{}{{"EMP001", "Jane Doe"}},
		}
	case ExportBorrowers:
		sh = sheet{
			name: "Borrowers",
			headers: []string{"Application No", "Employee ID", "Name", "Advance Amount",
				"Outstanding Amount", "EMI", "Month", "Disbursed Date", "Entry Date"},
			rows: [][]interface{}{{"", "EMP001", "Jane Doe", 1000, 1000, 200, 5, "15-01-2024", "15-01-2024"}},
		}
	case ExportVouchers:
		sh = sheet{
			name:    "Vouchers",
			headers: []string{"Voucher ID", "Employee ID", "Employee Name", "Application No", "Date", "Amount", "Month"},
			rows:    [][]interface{}{{"V-0001", "EMP001", "Jane Doe", "APP000001", "31-01-2024", 200, "January"}},
		}
	default:
		return nil, validationError("Unknown template type %q", kind)
	}

	data, err := writeWorkbook([]sheet{sh})
	if err != nil {
		return nil, &Error{Kind: ErrServer, Message: "Could not render template", Err: err}
	}
	return &Export{
		Filename:    fmt.Sprintf("%s_import_template.xlsx", strings.ToLower(sh.name)),
		ContentType: contentTypeXLSX,
		Data:        data,
	}, nil
}

func (s *ExportService) load(ctx context.Context, kind string) (sheet, error) {
	switch kind {
	case ExportEmployees:
		employees, err := s.repos.Employee.ListActive(ctx)
		if err != nil {
			return sheet{}, dbError(err)
		}
		return employeeSheet(employees), nil
	case ExportBorrowers:
		borrowers, err := s.repos.Borrower.List(ctx, "")
		if err != nil {
			return sheet{}, dbError(err)
		}
		return borrowerSheet(borrowers), nil
	default:
		vouchers, err := s.repos.Voucher.List(ctx)
		if err != nil {
			return sheet{}, dbError(err)
		}
		return voucherSheet(vouchers), nil
	}
}

func employeeSheet(employees []models.Employee) sheet {
	sh := sheet{name: "Employees", headers: []string{"Employee ID", "Name", "Status"}}
	for _, e := range employees {
		sh.rows = append(sh.rows, []interface{}{e.ID, e.Name, e.Status})
	}
	return sh
}

func borrowerSheet(borrowers []models.Borrower) sheet {
	sh := sheet{
		name: "Borrowers",
		headers: []string{"Application No", "Employee ID", "Name", "Advance Amount",
			"Outstanding Amount", "EMI", "Month", "Disbursed Date", "Entry Date", "Status"},
	}
	for _, b := range borrowers {
		sh.rows = append(sh.rows, []interface{}{
			b.ApplicationNo,
			b.EmpID,
			b.Name,
			b.Amount.InexactFloat64(),
			b.OutstandingAmount.InexactFloat64(),
			b.Emi.InexactFloat64(),
			b.Months,
			datefmt.Display(b.DisbursedDate),
			datefmt.DisplayPtr(b.EntryDate),
			b.Status,
		})
	}
	return sh
}

func voucherSheet(vouchers []models.Voucher) sheet {
	sh := sheet{
		name: "Vouchers",
		headers: []string{"Voucher ID", "Employee ID", "Employee Name", "Application No",
			"Date", "Amount", "Month", "Applied Amount"},
	}
	for _, v := range vouchers {
		sh.rows = append(sh.rows, []interface{}{
			v.Number,
			v.EmpID,
			v.EmpName,
			v.ApplicationNo,
			datefmt.Display(v.VoucherDate),
			v.Amount.InexactFloat64(),
			v.Month,
			v.AppliedAmount.InexactFloat64(),
		})
	}
	return sh
}

func writeWorkbook(sheets []sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return nil, err
		}

		if err := f.SetSheetRow(sh.name, "A1", &sh.headers); err != nil {
			return nil, err
		}
		last, err := excelize.CoordinatesToCellName(len(sh.headers), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sh.name, "A1", last, headerStyle); err != nil {
			return nil, err
		}

		for r, row := range sh.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			row := row
			if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
				return nil, err
			}
		}

		lastCol, _ := excelize.ColumnNumberToName(len(sh.headers))
		_ = f.SetColWidth(sh.name, "A", lastCol, 18)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSV(sh sheet) ([]byte, error) {
	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	if err := writer.Write(sh.headers); err != nil {
		return nil, err
	}
	for _, row := range sh.rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}
