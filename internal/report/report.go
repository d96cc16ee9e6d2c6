// Package report renders dashboard aggregates as downloadable workbooks.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/skilldesk/skilldesk/internal/progress"
)

const sheetName = "Team Progress"

// TeamWorkbook builds an xlsx workbook for a team overview: one row per
// member plus a totals row. Users supplies names and emails; members with no
// matching user row still appear, by ID.
func TeamWorkbook(team *progress.TeamOverview, users []progress.User) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	byID := make(map[string]progress.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	headers := []string{"Name", "Email", "Completed Items", "Total Items", "Progress %"}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	row := 2
	for _, m := range team.Members {
		name, email := m.UserID, ""
		if u, ok := byID[m.UserID]; ok {
			name, email = u.Name, u.Email
		}
		if err := writeRow(f, row, name, email, m.CompletedItems, m.TotalItems, m.Progress); err != nil {
			return nil, err
		}
		row++
	}

	if err := writeRow(f, row+1, "Team total", "", team.CompletedItems, team.TotalItems, team.Progress); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(sheetName, "A", "B", 28); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	return f, nil
}

func writeRow(f *excelize.File, row int, name, email string, completed, total, pct int) error {
	values := []any{name, email, completed, total, pct}
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("row cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return nil
}
