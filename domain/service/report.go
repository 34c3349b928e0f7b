package service

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

// PlacementAggregate tallies placements per FI and per SSO segment
type PlacementAggregate struct {
	ByFI   map[string]*OutcomeBucket `json:"byFi"`
	SSO    *OutcomeBucket            `json:"sso"`
	NonSSO *OutcomeBucket            `json:"nonSso"`
}

// AggregatePlacementsByFI tallies placement outcomes per FI key.
func AggregatePlacementsByFI(records []interface{}, sso KeySet) *PlacementAggregate {
	agg := &PlacementAggregate{
		ByFI:   make(map[string]*OutcomeBucket),
		SSO:    newOutcomeBucket(),
		NonSSO: newOutcomeBucket(),
	}
	for _, raw := range records {
		rec, ok := entity.AsRecord(raw)
		if !ok {
			continue
		}
		p := ResolvePlacementOutcome(rec)
		bucket, ok := agg.ByFI[p.FIKey]
		if !ok {
			bucket = newOutcomeBucket()
			agg.ByFI[p.FIKey] = bucket
		}
		bucket.record(p.Status, p.Termination, p.Success)
		if sso.Has(p.FIKey) {
			agg.SSO.record(p.Status, p.Termination, p.Success)
		} else {
			agg.NonSSO.record(p.Status, p.Termination, p.Success)
		}
	}
	return agg
}

// WriteSessionSummary prints sessions per FI and per SSO segment.
func WriteSessionSummary(w io.Writer, agg *SessionAggregate) {
	fmt.Fprintln(w, "Sessions by FI (combined):")
	for _, b := range agg.SortedFIs() {
		fmt.Fprintf(w, "- %s: %d sessions | %d with jobs (%s%%) | %d successful (%s%% of job sessions)\n",
			b.FIKey, b.TotalSessions, b.WithJobs, pct(b.WithJobs, b.TotalSessions),
			b.SuccessfulSessions, pct(b.SuccessfulSessions, b.WithJobs))
	}

	fmt.Fprintln(w, "\nSessions by SSO grouping (combined):")
	for _, seg := range []struct {
		label  string
		totals SegmentTotals
	}{{"SSO", agg.SSO}, {"NON-SSO", agg.NonSSO}} {
		fmt.Fprintf(w, "- %s: %d total | %d with jobs (%s%%) | %d successful (%s%% of job sessions)\n",
			seg.label, seg.totals.Total, seg.totals.WithJobs, pct(seg.totals.WithJobs, seg.totals.Total),
			seg.totals.Successful, pct(seg.totals.Successful, seg.totals.WithJobs))
	}
}

// WritePlacementSummary prints placement outcomes per FI, per SSO segment and per merchant.
func WritePlacementSummary(w io.Writer, agg *PlacementAggregate, merchants []*MerchantSummary) {
	fmt.Fprintln(w, "\nCard placement summary by FI (combined):")
	keys := make([]string, 0, len(agg.ByFI))
	for k := range agg.ByFI {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := agg.ByFI[keys[i]].Total, agg.ByFI[keys[j]].Total
		if ti != tj {
			return ti > tj
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		writeBucketLine(w, "- "+k+": ", agg.ByFI[k])
	}

	fmt.Fprintln(w, "\nCard placements by SSO grouping (combined):")
	for _, seg := range []struct {
		label  string
		bucket *OutcomeBucket
	}{{"SSO", agg.SSO}, {"NON-SSO", agg.NonSSO}} {
		fmt.Fprintf(w, "- %s: %d placements | %d success | %d failed | success%%=%s\n",
			seg.label, seg.bucket.Total, seg.bucket.Success, seg.bucket.Failed,
			pct(seg.bucket.Success, seg.bucket.Total))
	}

	fmt.Fprintln(w, "\nCard placement summary by merchant (combined):")
	for _, m := range merchants {
		writeBucketLine(w, "- "+m.Merchant+": ", m.Overall)
	}
}

// WriteMerchantReport prints the top merchants with their status and
// termination breakdowns and the per-segment lines.
func WriteMerchantReport(w io.Writer, summaries []*MerchantSummary, top int) {
	if top <= 0 || top > len(summaries) {
		top = len(summaries)
	}
	fmt.Fprintf(w, "\nTop merchant card placement outcomes (top %d):\n", top)
	for _, m := range summaries[:top] {
		writeBucketLine(w, "- "+m.Merchant+": ", m.Overall)
		writeBreakdowns(w, "  ", m.Overall)

		if m.SSO.Total > 0 {
			writeBucketLine(w, "  SSO -> ", m.SSO)
			writeBreakdowns(w, "    ", m.SSO)
		}
		if m.NonSSO.Total > 0 {
			writeBucketLine(w, "  NON-SSO -> ", m.NonSSO)
			writeBreakdowns(w, "    ", m.NonSSO)
		}
	}
}

// WriteMerchantHealth prints the merchant health table and grade counts.
func WriteMerchantHealth(w io.Writer, report *MerchantHealthReport) {
	fmt.Fprintln(w, "\nMerchant health overview:")
	fmt.Fprintln(w, "Merchant | total | success | failed | success% | health")
	fmt.Fprintln(w, strings.Repeat("-", 57))
	for _, m := range report.Merchants {
		fmt.Fprintf(w, "%s | %d | %d | %d | %s | %s\n",
			m.Merchant, m.Total, m.Success, m.Failed, FormatPercent(m.SuccessPct), m.Indicator)
	}
	fmt.Fprintf(w, "\nOverall merchant health: %d RED, %d YELLOW, %d GREEN\n",
		report.Counts[HealthRed], report.Counts[HealthYellow], report.Counts[HealthGreen])
}

// WritePlacementHealth prints per-merchant placement health.
func WritePlacementHealth(w io.Writer, stats []*PlacementHealthStats) {
	fmt.Fprintln(w, "\nMerchant placement health:")
	for _, s := range stats {
		fmt.Fprintf(w, "  [%s] %s: total=%d, healthy=%d (%s), site_failures=%d (%s), user_flow=%d\n",
			strings.ToUpper(s.Band), s.Merchant, s.Total, s.Healthy, FormatPercent(s.HealthyPct),
			s.SiteFailures, FormatPercent(s.SitePct), s.UserFlow)
	}
}

// FormatBreakdown renders counts as "KEY:n" pairs, largest count first.
func FormatBreakdown(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

func writeBucketLine(w io.Writer, prefix string, b *OutcomeBucket) {
	fmt.Fprintf(w, "%stotal=%d, success=%d, failed=%d, success%%=%s\n",
		prefix, b.Total, b.Success, b.Failed, pct(b.Success, b.Total))
}

func writeBreakdowns(w io.Writer, indent string, b *OutcomeBucket) {
	fmt.Fprintf(w, "%sstatuses: %s\n", indent, orNone(FormatBreakdown(b.ByStatus)))
	fmt.Fprintf(w, "%sterminations: %s\n", indent, orNone(FormatBreakdown(b.ByTermination)))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// pct renders part/whole as a one-decimal percentage without the sign.
func pct(part, whole int) string {
	if whole <= 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(part)/float64(whole)*100)
}

func sortByTotal[T any](items []T, total func(T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		return total(items[i]) > total(items[j])
	})
}
