package service

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func outcomeSession(fi string, placements ...map[string]interface{}) map[string]interface{} {
	list := make([]interface{}, len(placements))
	for i, p := range placements {
		list[i] = p
	}
	return map[string]interface{}{"fi_lookup_key": fi, "placements": list}
}

func completed(date, status string) map[string]interface{} {
	return map[string]interface{}{"completed_on": date, "status": status}
}

func TestRollupPlacementOutcomesMonthSegment(t *testing.T) {
	sso := NewKeySet("advancial")
	report := RollupPlacementOutcomes([]interface{}{
		outcomeSession("Advancial",
			completed("2025-03-04T10:00:00Z", "successful"),
			completed("2025-03-20", "canceled"),
		),
	}, sso)

	require.Len(t, report.Rows, 6)
	row := report.Rows[0]
	assert.Equal(t, "2025-03", row.Month)
	assert.Equal(t, SegmentSSO, row.Segment)
	assert.Equal(t, OutcomeCounts{Successful: 1, Cancelled: 1, Total: 2}, row.OutcomeCounts)
	assert.Equal(t, "50.0%", row.Conversion)
	assert.False(t, row.IsTotal)

	assert.Equal(t, SegmentNonSSO, report.Rows[1].Segment)
	assert.Equal(t, 0, report.Rows[1].Total)
	assert.Equal(t, "0.0%", report.Rows[1].Conversion)
	assert.Equal(t, SegmentTotal, report.Rows[2].Segment)
	assert.Equal(t, 2, report.Rows[2].Total)
	assert.Equal(t, 2, report.PlacementsCounted)
}

func TestRollupPlacementOutcomesRowOrderAndTotals(t *testing.T) {
	sso := NewKeySet("sso-fi")
	report := RollupPlacementOutcomes([]interface{}{
		outcomeSession("other",
			completed("2025-02-01", "abandoned"),
			completed("2025-01-15", "weird"),
			map[string]interface{}{"completedOn": "2025-01-16", "status": "SUCCESSFUL"},
			map[string]interface{}{"completed": "2025/01/16", "status": "successful"},
			map[string]interface{}{"status": "successful"},
		),
		map[string]interface{}{
			"fi_key":         "SSO-FI",
			"placements_raw": "not an array",
			"card_placements": []interface{}{
				completed("2025-02-10", "cancelled"),
				"garbage",
			},
		},
		"garbage",
	}, sso)

	var labels []string
	for _, r := range report.Rows {
		labels = append(labels, r.Month+"/"+r.Segment)
	}
	assert.Equal(t, []string{
		"2025-01/SSO", "2025-01/non-SSO", "2025-01/Total",
		"2025-02/SSO", "2025-02/non-SSO", "2025-02/Total",
		"All Months/SSO", "All Months/non-SSO", "All Months/Total",
	}, labels)

	grand := report.Rows[len(report.Rows)-1]
	assert.True(t, grand.IsTotal)
	assert.Equal(t, OutcomeCounts{Successful: 1, Cancelled: 1, Abandoned: 1, Other: 1, Total: 4}, grand.OutcomeCounts)
	assert.Equal(t, "25.0%", grand.Conversion)
	assert.Equal(t, 4, report.PlacementsCounted)

	for _, r := range report.Rows {
		assert.Equal(t, r.Total, r.Successful+r.Cancelled+r.Abandoned+r.Other)
	}
	for i := 0; i+2 < len(report.Rows); i += 3 {
		assert.Equal(t, report.Rows[i].Total+report.Rows[i+1].Total, report.Rows[i+2].Total)
	}
}

func TestRollupPlacementOutcomesEmpty(t *testing.T) {
	report := RollupPlacementOutcomes(nil, nil)
	require.Len(t, report.Rows, 3)
	for _, r := range report.Rows {
		assert.Equal(t, AllMonths, r.Month)
		assert.Equal(t, "0.0%", r.Conversion)
	}
}

func TestCompletionMonth(t *testing.T) {
	cases := []struct {
		rec   map[string]interface{}
		month string
		ok    bool
	}{
		{map[string]interface{}{"completed_on": "2024-12-31T23:59:59Z"}, "2024-12", true},
		{map[string]interface{}{"completed_on": nil, "completedOn": "2024-11-01"}, "2024-11", true},
		{map[string]interface{}{"completed_on": "", "completedOn": "2024-11-01"}, "", false},
		{map[string]interface{}{"completed": "2024-1-1"}, "", false},
		{map[string]interface{}{"completed": float64(20241101)}, "", false},
		{map[string]interface{}{}, "", false},
	}
	for _, tc := range cases {
		month, ok := CompletionMonth(tc.rec)
		assert.Equal(t, tc.ok, ok, tc.rec)
		assert.Equal(t, tc.month, month, tc.rec)
	}
}

func TestNormalizeOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccessful, NormalizeOutcome(" Successful "))
	assert.Equal(t, OutcomeCancelled, NormalizeOutcome("CANCELED"))
	assert.Equal(t, OutcomeCancelled, NormalizeOutcome("cancelled"))
	assert.Equal(t, OutcomeAbandoned, NormalizeOutcome("abandoned"))
	assert.Equal(t, OutcomeOther, NormalizeOutcome("failed"))
	assert.Equal(t, OutcomeOther, NormalizeOutcome(""))
}

func TestEscapeCSV(t *testing.T) {
	assert.Equal(t, "plain", EscapeCSV("plain"))
	assert.Equal(t, `"1,234"`, EscapeCSV("1,234"))
	assert.Equal(t, `"say ""hi"""`, EscapeCSV(`say "hi"`))
	assert.Equal(t, "\"two\nlines\"", EscapeCSV("two\nlines"))
	assert.Equal(t, "\"cr\ronly\"", EscapeCSV("cr\ronly"))
	assert.Equal(t, "\"crlf\r\nline\"", EscapeCSV("crlf\r\nline"))
	assert.Equal(t, "", EscapeCSV(""))
}

func TestBuildOutcomesCSVRoundTrips(t *testing.T) {
	var placements []map[string]interface{}
	for i := 0; i < 1500; i++ {
		placements = append(placements, completed("2025-03-01", "successful"))
	}
	report := RollupPlacementOutcomes([]interface{}{outcomeSession("acme", placements...)}, nil)

	text := BuildOutcomesCSV(report.Rows)
	assert.False(t, strings.HasSuffix(text, "\n"))
	assert.True(t, strings.HasPrefix(text, "Month,Segment,Successful,Cancelled,Abandoned,Other,Total Attempts,Conversion %\n"))

	parsed, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	require.NoError(t, err)
	require.Len(t, parsed, len(report.Rows)+1)
	assert.Equal(t, OutcomeCSVHeader, parsed[0])
	for i, row := range report.Rows {
		assert.Equal(t, row.Cells(), parsed[i+1])
	}
	assert.Equal(t, []string{"2025-03", "non-SSO", "1,500", "0", "0", "0", "1,500", "100.0%"}, parsed[2])
}

func TestWriteOutcomesXLSX(t *testing.T) {
	report := RollupPlacementOutcomes([]interface{}{
		outcomeSession("acme", completed("2025-03-01", "successful"), completed("2025-03-02", "abandoned")),
	}, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteOutcomesXLSX(&buf, report.Rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(outcomeSheet)
	require.NoError(t, err)
	require.Len(t, rows, len(report.Rows)+1)
	assert.Equal(t, OutcomeCSVHeader, rows[0])
	assert.Equal(t, []string{"2025-03", "non-SSO", "1", "0", "1", "0", "2", "50.0%"}, rows[2])
}

func TestOutcomesCSVFilename(t *testing.T) {
	assert.Equal(t, "placement_outcomes_2025-01-01_to_2025-03-31.csv", OutcomesCSVFilename("2025-01-01", "2025-03-31"))
}

func TestWriteOutcomeTable(t *testing.T) {
	report := RollupPlacementOutcomes([]interface{}{
		outcomeSession("acme", completed("2025-01-02", "successful"), completed("2025-01-03", "canceled")),
	}, NewKeySet())

	var buf bytes.Buffer
	WriteOutcomeTable(&buf, report.Rows)
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[0], "Total Attempts")
	assert.Contains(t, lines[3], "50.0%")
	assert.Equal(t, len(lines[0]), len(lines[1]), "columns aligned")
}

func TestEscapeCSVParsesBack(t *testing.T) {
	values := []string{"plain", "1,234", `say "hi"`, "two\nlines", `a,"b"` + "\nc"}
	for _, v := range values {
		parsed, err := csv.NewReader(strings.NewReader(EscapeCSV(v))).Read()
		require.NoError(t, err, v)
		assert.Equal(t, []string{v}, parsed)
	}

	// encoding/csv folds a quoted \r\n into \n, so only the quoting is pinned
	// for carriage returns.
	crlf := "x\r\ny"
	escaped := EscapeCSV(crlf)
	assert.Equal(t, `"`+crlf+`"`, escaped)
	parsed, err := csv.NewReader(strings.NewReader(escaped)).Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"x\ny"}, parsed)
}
