package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/internal/repository"
	"github.com/sjperalta/advance-portal/pkg/datefmt"
)

// ReportService renders printable ledger reports
type ReportService struct {
	repos *repository.Repositories
}

func NewReportService(repos *repository.Repositories) *ReportService {
	return &ReportService{repos: repos}
}

var outstandingColumns = []struct {
	title string
	width float64
	align string
}{
	{"Application No", 32, "L"},
	{"Employee ID", 26, "L"},
	{"Name", 62, "L"},
	{"Amount", 30, "R"},
	{"Outstanding", 30, "R"},
	{"EMI", 26, "R"},
	{"Months", 18, "R"},
	{"Disbursed", 28, "C"},
}

// OutstandingPDF lists every active advance with its remaining balance
func (s *ReportService) OutstandingPDF(ctx context.Context) (*Export, error) {
	borrowers, err := s.repos.Borrower.List(ctx, models.BorrowerStatusActive)
	if err != nil {
		return nil, dbError(err)
	}

	now := time.Now()
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Outstanding Advances", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Outstanding Advances")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 8, "Generated "+now.Format("02-01-2006 15:04"))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(224, 224, 224)
	for _, col := range outstandingColumns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	total := decimal.Zero
	for _, b := range borrowers {
		values := []string{
			b.ApplicationNo,
			b.EmpID,
			b.Name,
			b.Amount.StringFixed(2),
			b.OutstandingAmount.StringFixed(2),
			b.Emi.StringFixed(2),
			fmt.Sprintf("%d", b.Months),
			datefmt.Display(b.DisbursedDate),
		}
		for i, col := range outstandingColumns {
			pdf.CellFormat(col.width, 7, values[i], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
		total = total.Add(b.OutstandingAmount)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Active advances: %d    Total outstanding: %s", len(borrowers), total.StringFixed(2)))

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, &Error{Kind: ErrServer, Message: "Could not render report", Err: err}
	}

	return &Export{
		Filename:    fmt.Sprintf("outstanding_%s.pdf", now.Format("2006-01-02")),
		ContentType: "application/pdf",
		Data:        buf.Bytes(),
	}, nil
}
