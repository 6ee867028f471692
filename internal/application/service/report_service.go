package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
)

const (
	reportSheet    = "Expenses"
	reportPageSize = 500
)

var reportHeaders = []string{"ID", "Date", "Owner", "Category", "Description", "Amount", "Status", "Approvals"}

// ReportService renders expense spreadsheets
type ReportService interface {
	ExportExpenses(ctx context.Context, userID int64, status string) ([]byte, error)
}

type reportServiceImpl struct {
	expenseRepo  port.ExpenseRepository
	approvalRepo port.ApprovalRepository
	memberRepo   port.MemberRepository
	logger       Logger
}

// NewReportService creates a new ReportService
func NewReportService(expenseRepo port.ExpenseRepository, approvalRepo port.ApprovalRepository, memberRepo port.MemberRepository, logger Logger) ReportService {
	return &reportServiceImpl{
		expenseRepo:  expenseRepo,
		approvalRepo: approvalRepo,
		memberRepo:   memberRepo,
		logger:       logger,
	}
}

// ExportExpenses writes every expense of the caller's company, optionally
// filtered by status, into an XLSX workbook.
func (s *reportServiceImpl) ExportExpenses(ctx context.Context, userID int64, status string) ([]byte, error) {
	member, err := loadMember(ctx, s.memberRepo, userID)
	if err != nil {
		return nil, err
	}

	filter := port.ExpenseFilter{CompanyID: member.CompanyID, Limit: reportPageSize}
	if status != "" {
		state := workflow.State(strings.ToUpper(status))
		if !state.IsValid() {
			return nil, invalid("status", fmt.Sprintf("unknown status %q", status))
		}
		filter.Status = state
	}

	var expenses []*entity.Expense
	for {
		page, err := s.expenseRepo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		expenses = append(expenses, page...)
		if len(page) < reportPageSize {
			break
		}
		filter.Offset += reportPageSize
	}

	counts, err := s.approvalRepo.CountByCompany(ctx, member.CompanyID, entity.LedgerApproval)
	if err != nil {
		return nil, fmt.Errorf("count approvals: %w", err)
	}
	members, err := s.memberRepo.GetByCompanyID(ctx, member.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	names := make(map[int64]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	data, err := renderExpenseSheet(expenses, names, counts)
	if err != nil {
		s.logger.Error("Failed to render expense report", "error", err, "company_id", member.CompanyID)
		return nil, err
	}

	s.logger.Info("Expense report exported",
		"company_id", member.CompanyID,
		"user_id", userID,
		"rows", len(expenses),
	)
	return data, nil
}

func renderExpenseSheet(expenses []*entity.Expense, names map[int64]string, counts map[int64]int) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(reportSheet, "A1", &reportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(reportSheet, "A1", "H1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	amountFormat := "#,##0.00"
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &amountFormat})
	if err != nil {
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}

	for i, e := range expenses {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}

		amount, _ := e.Amount().Float64()
		values := []interface{}{
			e.ID,
			e.ExpenseDate.Format("2006-01-02"),
			names[e.OwnerID],
			e.Category,
			e.Description,
			amount,
			string(e.Status),
			counts[e.ID],
		}
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}

		amountCell := fmt.Sprintf("F%d", row)
		if err := f.SetCellStyle(reportSheet, amountCell, amountCell, amountStyle); err != nil {
			return nil, fmt.Errorf("failed to style amount at row %d: %w", row, err)
		}
	}

	if err := f.SetColWidth(reportSheet, "E", "E", 48); err != nil {
		return nil, fmt.Errorf("failed to size description column: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
