package service

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"
)

// OutcomeCSVHeader is the header line of the outcome CSV export
var OutcomeCSVHeader = []string{
	"Month",
	"Segment",
	"Successful",
	"Cancelled",
	"Abandoned",
	"Other",
	"Total Attempts",
	"Conversion %",
}

const outcomeSheet = "Placement Outcomes"

// OutcomesCSVFilename names the export for a date range.
func OutcomesCSVFilename(start, end string) string {
	return fmt.Sprintf("placement_outcomes_%s_to_%s.csv", start, end)
}

// EscapeCSV quotes a value containing a comma, quote or line break and
// doubles any quotes inside it.
func EscapeCSV(value string) string {
	if strings.ContainsAny(value, "\",\n\r") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

// BuildOutcomesCSV renders rows as CSV text, lines separated by "\n" with no
// trailing newline.
func BuildOutcomesCSV(rows []OutcomeRow) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(OutcomeCSVHeader, ","))
	for _, row := range rows {
		cells := row.Cells()
		for i, c := range cells {
			cells[i] = EscapeCSV(c)
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n")
}

// WriteOutcomesCSV writes BuildOutcomesCSV(rows) to w.
func WriteOutcomesCSV(w io.Writer, rows []OutcomeRow) error {
	_, err := io.WriteString(w, BuildOutcomesCSV(rows))
	return err
}

// WriteOutcomeTable prints rows as an aligned text table.
func WriteOutcomeTable(w io.Writer, rows []OutcomeRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(OutcomeCSVHeader, "\t")+"\t")
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row.Cells(), "\t")+"\t")
	}
	tw.Flush()
}

// WriteOutcomesXLSX writes rows as a single-sheet workbook. Counts are stored
// as numbers; total rows are bold.
func WriteOutcomesXLSX(w io.Writer, rows []OutcomeRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", outcomeSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(OutcomeCSVHeader))
	for i, h := range OutcomeCSVHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(outcomeSheet, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(outcomeSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, row := range rows {
		line := i + 2
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.Month, row.Segment,
			row.Successful, row.Cancelled, row.Abandoned, row.Other, row.Total,
			row.Conversion,
		}
		if err := f.SetSheetRow(outcomeSheet, cell, &values); err != nil {
			return err
		}
		if row.IsTotal {
			if err := f.SetRowStyle(outcomeSheet, line, line, bold); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}
