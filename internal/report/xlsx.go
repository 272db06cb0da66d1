package report

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gotrs-io/boardcheck/internal/runner"
)

const resultsSheet = "Results"

var xlsxHeader = []interface{}{
	"ID", "App", "Column", "Task", "Tags", "Status", "Kind", "Message", "Duration (ms)", "Screenshot",
}

// WriteXLSX writes one row per scenario to a spreadsheet.
func WriteXLSX(path string, s *runner.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &xlsxHeader); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(resultsSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, r := range s.Results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			r.Scenario.ID,
			r.Scenario.App,
			r.Scenario.Column,
			r.Scenario.Task,
			strings.Join(r.Scenario.Tags, ", "),
			string(r.Status),
			string(r.Kind),
			r.Message,
			r.Duration.Milliseconds(),
			r.Screenshot,
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(resultsSheet, "D", "D", 30); err != nil {
		return err
	}
	if err := f.SetColWidth(resultsSheet, "H", "H", 60); err != nil {
		return err
	}
	return f.SaveAs(path)
}
