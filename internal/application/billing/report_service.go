package billing

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/billing"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ReportService exports billing data for school accountants
type ReportService struct {
	invoiceRepo billing.InvoiceRepository
	logger      *zap.Logger
}

// ReportServiceConfig holds configuration for the report service
type ReportServiceConfig struct {
	InvoiceRepo billing.InvoiceRepository
	Logger      *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(config ReportServiceConfig) *ReportService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		invoiceRepo: config.InvoiceRepo,
		logger:      logger,
	}
}

// MonthlyReport is an xlsx export of one billing month
type MonthlyReport struct {
	FileName string
	Content  []byte
}

var reportHeaders = []string{
	"Invoice Code", "Student ID", "Month", "Total Amount", "Absent Days",
	"Holiday Days", "Amount To Pay", "Paid Amount", "Outstanding", "Status", "Needs Review",
}

// ExportMonthly renders all of a school's invoices for one month into an
// xlsx workbook.
func (s *ReportService) ExportMonthly(ctx context.Context, schoolID uuid.UUID, year, monthNo int) (*MonthlyReport, error) {
	if monthNo < 1 || monthNo > 12 {
		return nil, shared.NewValidationError(fmt.Sprintf("Month %d is out of range", monthNo))
	}

	filter := shared.DefaultFilter()
	filter.PageSize = 10000
	invoices, _, err := s.invoiceRepo.FindByMonth(ctx, schoolID, year, monthNo, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("%04d-%02d", year, monthNo)
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, err
	}

	for col, header := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	f.SetColWidth(sheet, "A", "B", 24)
	f.SetColWidth(sheet, "C", "K", 14)

	for row, inv := range invoices {
		values := []interface{}{
			inv.InvoiceCode,
			inv.StudentID.String(),
			fmt.Sprintf("%04d-%02d", inv.Year, inv.MonthNo),
			inv.TotalAmount.InexactFloat64(),
			inv.AbsentDays,
			inv.HolidayDays,
			inv.AmountToPay.InexactFloat64(),
			inv.PaidAmount().InexactFloat64(),
			inv.OutstandingAmount().InexactFloat64(),
			string(inv.Status),
			inv.NeedsReview,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}

	s.logger.Info("Monthly report exported",
		zap.String("school_id", schoolID.String()),
		zap.String("month", sheet),
		zap.Int("invoices", len(invoices)))

	return &MonthlyReport{
		FileName: fmt.Sprintf("meal-fee-invoices-%s.xlsx", sheet),
		Content:  buf.Bytes(),
	}, nil
}
