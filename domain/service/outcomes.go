package service

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

// AllMonths labels the grand-total rows of an outcome report
const AllMonths = "All Months"

// Outcome categories a placement status normalizes into
const (
	OutcomeSuccessful = "successful"
	OutcomeCancelled  = "cancelled"
	OutcomeAbandoned  = "abandoned"
	OutcomeOther      = "other"
)

var (
	placementArrayFields = []string{"placements_raw", "placements", "card_placements", "placement_events"}
	completedFields      = []string{"completed_on", "completedOn", "completed"}
	sessionFIFields      = []string{"fi_lookup_key", "fi_key", "financial_institution_lookup_key"}
)

// OutcomeCounts tallies placements per outcome category
type OutcomeCounts struct {
	Successful int `json:"successful"`
	Cancelled  int `json:"cancelled"`
	Abandoned  int `json:"abandoned"`
	Other      int `json:"other"`
	Total      int `json:"total"`
}

func (c *OutcomeCounts) increment(outcome string) {
	switch outcome {
	case OutcomeSuccessful:
		c.Successful++
	case OutcomeCancelled:
		c.Cancelled++
	case OutcomeAbandoned:
		c.Abandoned++
	default:
		c.Other++
	}
	c.Total++
}

func (c OutcomeCounts) plus(o OutcomeCounts) OutcomeCounts {
	return OutcomeCounts{
		Successful: c.Successful + o.Successful,
		Cancelled:  c.Cancelled + o.Cancelled,
		Abandoned:  c.Abandoned + o.Abandoned,
		Other:      c.Other + o.Other,
		Total:      c.Total + o.Total,
	}
}

// Conversion is the successful share of all attempts as a percentage.
func (c OutcomeCounts) Conversion() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Successful) / float64(c.Total) * 100
}

// OutcomeRow is one line of the placement outcome table
type OutcomeRow struct {
	Month      string `json:"month"`
	Segment    string `json:"segment"`
	OutcomeCounts
	Conversion string `json:"conversion"`
	IsTotal    bool   `json:"isTotal"`
}

func newOutcomeRow(month, segment string, counts OutcomeCounts, isTotal bool) OutcomeRow {
	return OutcomeRow{
		Month:         month,
		Segment:       segment,
		OutcomeCounts: counts,
		Conversion:    FormatPercent(counts.Conversion()),
		IsTotal:       isTotal,
	}
}

// Cells renders the row as displayed, with thousands separators on counts.
func (r OutcomeRow) Cells() []string {
	return []string{
		r.Month,
		r.Segment,
		humanize.Comma(int64(r.Successful)),
		humanize.Comma(int64(r.Cancelled)),
		humanize.Comma(int64(r.Abandoned)),
		humanize.Comma(int64(r.Other)),
		humanize.Comma(int64(r.Total)),
		r.Conversion,
	}
}

// OutcomeReport is the result of RollupPlacementOutcomes
type OutcomeReport struct {
	Rows              []OutcomeRow `json:"rows"`
	PlacementsCounted int          `json:"placementsCounted"`
}

// FormatPercent renders a percentage with one decimal place, e.g. "66.7%".
func FormatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}

// NormalizeOutcome maps a placement status onto an outcome category.
func NormalizeOutcome(status string) string {
	switch NormalizeKey(status) {
	case "successful":
		return OutcomeSuccessful
	case "cancelled", "canceled":
		return OutcomeCancelled
	case "abandoned":
		return OutcomeAbandoned
	default:
		return OutcomeOther
	}
}

// SessionPlacements returns the placement sub-records of a session: the first
// array among placements_raw, placements, card_placements and placement_events.
func SessionPlacements(session entity.Record) []interface{} {
	arr, _ := session.Array(placementArrayFields...)
	return arr
}

// SessionFIKey resolves the normalized FI key of a session record.
func SessionFIKey(session entity.Record) string {
	return NormalizeKey(session.String(sessionFIFields...))
}

// CompletionMonth returns the YYYY-MM month a placement completed in. The
// completion value must start with a YYYY-MM-DD date.
func CompletionMonth(placement entity.Record) (string, bool) {
	var completed string
	for _, field := range completedFields {
		v, ok := placement[field]
		if !ok || v == nil {
			continue
		}
		completed = stringify(v)
		break
	}
	if len(completed) < 10 {
		return "", false
	}
	prefix := completed[:10]
	if prefix[4] != '-' || prefix[7] != '-' {
		return "", false
	}
	return prefix[:7], true
}

// RollupPlacementOutcomes counts placement outcomes per completion month and
// segment. Rows come month by month in ascending order as SSO, non-SSO and
// Total, followed by the same three rows for all months combined.
func RollupPlacementOutcomes(sessions []interface{}, sso KeySet) *OutcomeReport {
	type monthCounts struct {
		sso, nonSSO OutcomeCounts
	}
	months := make(map[string]*monthCounts)
	var totals monthCounts
	report := &OutcomeReport{}

	for _, raw := range sessions {
		session, ok := entity.AsRecord(raw)
		if !ok {
			continue
		}
		isSSO := sso.Has(SessionFIKey(session))

		for _, rawPlacement := range SessionPlacements(session) {
			placement, ok := entity.AsRecord(rawPlacement)
			if !ok {
				continue
			}
			month, ok := CompletionMonth(placement)
			if !ok {
				continue
			}

			mc, ok := months[month]
			if !ok {
				mc = &monthCounts{}
				months[month] = mc
			}

			outcome := OutcomeOther
			if status, ok := placement["status"]; ok && status != nil {
				outcome = NormalizeOutcome(stringify(status))
			}

			if isSSO {
				mc.sso.increment(outcome)
				totals.sso.increment(outcome)
			} else {
				mc.nonSSO.increment(outcome)
				totals.nonSSO.increment(outcome)
			}
			report.PlacementsCounted++
		}
	}

	keys := make([]string, 0, len(months))
	for m := range months {
		keys = append(keys, m)
	}
	sort.Strings(keys)

	report.Rows = make([]OutcomeRow, 0, 3*len(keys)+3)
	for _, m := range keys {
		mc := months[m]
		report.Rows = append(report.Rows,
			newOutcomeRow(m, SegmentSSO, mc.sso, false),
			newOutcomeRow(m, SegmentNonSSO, mc.nonSSO, false),
			newOutcomeRow(m, SegmentTotal, mc.sso.plus(mc.nonSSO), false),
		)
	}
	report.Rows = append(report.Rows,
		newOutcomeRow(AllMonths, SegmentSSO, totals.sso, true),
		newOutcomeRow(AllMonths, SegmentNonSSO, totals.nonSSO, true),
		newOutcomeRow(AllMonths, SegmentTotal, totals.sso.plus(totals.nonSSO), true),
	)

	return report
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
