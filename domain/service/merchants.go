package service

import (
	"strings"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

// Placement status and termination values the summaries key on
const (
	StatusSuccessful    = "SUCCESSFUL"
	StatusUnknown       = "UNKNOWN"
	TerminationBillable = "BILLABLE"
	UnknownMerchant     = "UNKNOWN"
	merchantIDPrefix    = "merchant_"
)

// OutcomeBucket tallies placement outcomes for one merchant slice
type OutcomeBucket struct {
	Total         int            `json:"total"`
	Success       int            `json:"success"`
	Failed        int            `json:"failed"`
	ByStatus      map[string]int `json:"byStatus"`
	ByTermination map[string]int `json:"byTermination"`
}

func newOutcomeBucket() *OutcomeBucket {
	return &OutcomeBucket{
		ByStatus:      make(map[string]int),
		ByTermination: make(map[string]int),
	}
}

func (b *OutcomeBucket) record(status, termination string, success bool) {
	b.Total++
	if success {
		b.Success++
	} else {
		b.Failed++
	}
	b.ByStatus[status]++
	if termination != "" {
		b.ByTermination[termination]++
	}
}

// SuccessRate returns the success percentage, 0 when the bucket is empty.
func (b *OutcomeBucket) SuccessRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Success) / float64(b.Total) * 100
}

// MerchantSummary is one merchant's outcome buckets
type MerchantSummary struct {
	Merchant string         `json:"merchant"`
	Overall  *OutcomeBucket `json:"overall"`
	SSO      *OutcomeBucket `json:"sso"`
	NonSSO   *OutcomeBucket `json:"nonSso"`
}

// PlacementOutcome is the normalized view of a placement record used by the
// merchant and daily summaries.
type PlacementOutcome struct {
	Merchant    string
	FIKey       string
	Status      string
	Termination string
	Success     bool
}

// ResolvePlacementOutcome normalizes merchant, FI, status and termination of
// a placement record.
func ResolvePlacementOutcome(rec entity.Record) PlacementOutcome {
	merchant := NormalizeKey(rec.String("merchant_site_hostname"))
	if merchant == "" {
		if id := rec.String("merchant_site_id"); id != "" {
			merchant = merchantIDPrefix + id
		} else {
			merchant = UnknownMerchant
		}
	}

	status := strings.ToUpper(strings.TrimSpace(rec.String("status")))
	if status == "" {
		status = StatusUnknown
	}
	termination := strings.ToUpper(strings.TrimSpace(rec.String("termination_type")))

	return PlacementOutcome{
		Merchant:    merchant,
		FIKey:       fiKeyOrUnknown(rec, "fi_lookup_key", "fi_name", "financial_institution_lookup_key"),
		Status:      status,
		Termination: termination,
		Success:     status == StatusSuccessful || termination == TerminationBillable,
	}
}

// SummarizeMerchantFailures groups placements by merchant and tallies
// outcomes overall and per SSO segment. Merchants are ordered by total
// placements, largest first; equal totals keep first-seen order.
func SummarizeMerchantFailures(records []interface{}, sso KeySet) []*MerchantSummary {
	index := make(map[string]*MerchantSummary)
	var order []*MerchantSummary

	for _, raw := range records {
		rec, ok := entity.AsRecord(raw)
		if !ok {
			continue
		}
		p := ResolvePlacementOutcome(rec)

		summary, ok := index[p.Merchant]
		if !ok {
			summary = &MerchantSummary{
				Merchant: p.Merchant,
				Overall:  newOutcomeBucket(),
				SSO:      newOutcomeBucket(),
				NonSSO:   newOutcomeBucket(),
			}
			index[p.Merchant] = summary
			order = append(order, summary)
		}

		summary.Overall.record(p.Status, p.Termination, p.Success)
		if sso.Has(p.FIKey) {
			summary.SSO.record(p.Status, p.Termination, p.Success)
		} else {
			summary.NonSSO.record(p.Status, p.Termination, p.Success)
		}
	}

	sortByTotal(order, func(s *MerchantSummary) int { return s.Overall.Total })
	return order
}
