package service

import (
	"sort"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

// SessionBucket counts sessions for one FI
type SessionBucket struct {
	FIKey              string `json:"fi_key"`
	TotalSessions      int    `json:"totalSessions"`
	WithJobs           int    `json:"withJobs"`
	SuccessfulSessions int    `json:"successfulSessions"`
}

// SegmentTotals sums session buckets for one segment
type SegmentTotals struct {
	Total      int `json:"total"`
	WithJobs   int `json:"withJobs"`
	Successful int `json:"successful"`
}

func (t *SegmentTotals) add(b *SessionBucket) {
	t.Total += b.TotalSessions
	t.WithJobs += b.WithJobs
	t.Successful += b.SuccessfulSessions
}

// SessionAggregate is the result of AggregateSessions
type SessionAggregate struct {
	ByFI   map[string]*SessionBucket `json:"byFi"`
	SSO    SegmentTotals             `json:"sso"`
	NonSSO SegmentTotals             `json:"nonSso"`
}

// SortedFIs returns the FI buckets ordered by session count, largest first.
// Ties are ordered by FI key.
func (a *SessionAggregate) SortedFIs() []*SessionBucket {
	out := make([]*SessionBucket, 0, len(a.ByFI))
	for _, b := range a.ByFI {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSessions != out[j].TotalSessions {
			return out[i].TotalSessions > out[j].TotalSessions
		}
		return out[i].FIKey < out[j].FIKey
	})
	return out
}

// AggregateSessions counts sessions per FI and splits the totals into SSO and
// non-SSO by membership of the FI key in sso. Entries that are not JSON
// objects are skipped; counters that are missing or not numeric count as 0.
func AggregateSessions(records []interface{}, sso KeySet) *SessionAggregate {
	agg := &SessionAggregate{ByFI: make(map[string]*SessionBucket)}

	for _, raw := range records {
		rec, ok := entity.AsRecord(raw)
		if !ok {
			continue
		}

		fiKey := fiKeyOrUnknown(rec, "financial_institution_lookup_key")
		bucket, ok := agg.ByFI[fiKey]
		if !ok {
			bucket = &SessionBucket{FIKey: fiKey}
			agg.ByFI[fiKey] = bucket
		}

		bucket.TotalSessions++
		if rec.Number("total_jobs") > 0 {
			bucket.WithJobs++
		}
		if rec.Number("successful_jobs") > 0 {
			bucket.SuccessfulSessions++
		}
	}

	for fiKey, bucket := range agg.ByFI {
		if sso.Has(fiKey) {
			agg.SSO.add(bucket)
		} else {
			agg.NonSSO.add(bucket)
		}
	}

	return agg
}
