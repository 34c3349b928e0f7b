package service

import (
	"strings"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

// HealthIndicator grades a merchant's placement success rate
type HealthIndicator string

// Merchant health grades
const (
	HealthRed    HealthIndicator = "RED"
	HealthYellow HealthIndicator = "YELLOW"
	HealthGreen  HealthIndicator = "GREEN"
)

// ClassifyMerchantHealth grades a success percentage: below 50 is RED,
// below 70 is YELLOW, anything else GREEN.
func ClassifyMerchantHealth(successPct float64) HealthIndicator {
	switch {
	case successPct < 50:
		return HealthRed
	case successPct < 70:
		return HealthYellow
	default:
		return HealthGreen
	}
}

// MerchantHealth is one row of the merchant health overview
type MerchantHealth struct {
	Merchant   string          `json:"merchant"`
	Total      int             `json:"total"`
	Success    int             `json:"success"`
	Failed     int             `json:"failed"`
	SuccessPct float64         `json:"successPct"`
	Indicator  HealthIndicator `json:"indicator"`
}

// MerchantHealthReport grades every merchant and counts the grades
type MerchantHealthReport struct {
	Merchants []MerchantHealth        `json:"merchants"`
	Counts    map[HealthIndicator]int `json:"counts"`
}

// BuildMerchantHealth grades merchant summaries, keeping their order.
func BuildMerchantHealth(summaries []*MerchantSummary) *MerchantHealthReport {
	report := &MerchantHealthReport{
		Merchants: make([]MerchantHealth, 0, len(summaries)),
		Counts:    map[HealthIndicator]int{HealthRed: 0, HealthYellow: 0, HealthGreen: 0},
	}
	for _, s := range summaries {
		pct := s.Overall.SuccessRate()
		indicator := ClassifyMerchantHealth(pct)
		report.Merchants = append(report.Merchants, MerchantHealth{
			Merchant:   s.Merchant,
			Total:      s.Overall.Total,
			Success:    s.Overall.Success,
			Failed:     s.Overall.Failed,
			SuccessPct: pct,
			Indicator:  indicator,
		})
		report.Counts[indicator]++
	}
	return report
}

// PlacementHealth classifies why a placement ended the way it did
type PlacementHealth string

// Placement health classes
const (
	PlacementHealthy     PlacementHealth = "HEALTHY"
	PlacementUserFlow    PlacementHealth = "USER_FLOW"
	PlacementSiteFailure PlacementHealth = "SITE_FAILURE"
)

var userFlowCodes = map[string]struct{}{
	"USER_DATA_FAILURE":        {},
	"NEVER_STARTED":            {},
	"TIMEOUT_TFA":              {},
	"TIMEOUT_CREDENTIALS":      {},
	"ACCOUNT_SETUP_INCOMPLETE": {},
	"CANCELED":                 {},
	"ABANDONED_QUICKSTART":     {},
	"TOO_MANY_LOGIN_FAILURES":  {},
	"PASSWORD_RESET_REQUIRED":  {},
	"ACCOUNT_LOCKED":           {},
}

// ClassifyPlacementHealth returns HEALTHY for billable placements, USER_FLOW
// when the termination or status is a cardholder-side code, and SITE_FAILURE
// otherwise.
func ClassifyPlacementHealth(placement entity.Record) PlacementHealth {
	termination := strings.ToUpper(placement.String("termination_type"))
	status := strings.ToUpper(placement.String("status"))

	if termination == TerminationBillable {
		return PlacementHealthy
	}
	if _, ok := userFlowCodes[termination]; ok {
		return PlacementUserFlow
	}
	if _, ok := userFlowCodes[status]; ok {
		return PlacementUserFlow
	}
	return PlacementSiteFailure
}

// PlacementHealthStats counts placement health classes for one merchant
type PlacementHealthStats struct {
	Merchant     string  `json:"merchant"`
	Total        int     `json:"total"`
	Healthy      int     `json:"healthy"`
	SiteFailures int     `json:"siteFailures"`
	UserFlow     int     `json:"userFlow"`
	HealthyPct   float64 `json:"healthyPct"`
	SitePct      float64 `json:"sitePct"`
	Band         string  `json:"band"`
}

// HealthBand colors a healthy percentage: 80 and above green, 60 and above
// yellow, red below.
func HealthBand(healthyPct float64) string {
	switch {
	case healthyPct >= 80:
		return "green"
	case healthyPct >= 60:
		return "yellow"
	default:
		return "red"
	}
}

// SummarizePlacementHealth classifies placements per merchant. Merchants are
// ordered by total placements, largest first; equal totals keep first-seen order.
func SummarizePlacementHealth(records []interface{}) []*PlacementHealthStats {
	index := make(map[string]*PlacementHealthStats)
	var order []*PlacementHealthStats

	for _, raw := range records {
		rec, ok := entity.AsRecord(raw)
		if !ok {
			continue
		}
		merchant := ResolvePlacementOutcome(rec).Merchant
		stats, ok := index[merchant]
		if !ok {
			stats = &PlacementHealthStats{Merchant: merchant}
			index[merchant] = stats
			order = append(order, stats)
		}
		stats.Total++
		switch ClassifyPlacementHealth(rec) {
		case PlacementHealthy:
			stats.Healthy++
		case PlacementUserFlow:
			stats.UserFlow++
		default:
			stats.SiteFailures++
		}
	}

	for _, s := range order {
		if s.Total > 0 {
			s.HealthyPct = float64(s.Healthy) / float64(s.Total) * 100
			s.SitePct = float64(s.SiteFailures) / float64(s.Total) * 100
		}
		s.Band = HealthBand(s.HealthyPct)
	}

	sortByTotal(order, func(s *PlacementHealthStats) int { return s.Total })
	return order
}
