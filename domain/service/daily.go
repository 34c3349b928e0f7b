package service

import (
	"slices"
	"strings"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

// Funnel page prefixes counted in daily snapshots
const (
	PageSelectMerchants    = "/select-merchants"
	PageUserDataCollection = "/user-data-collection"
	PageCredentialEntry    = "/credential-entry"
)

var sessionInstanceFields = []string{"instance", "_instance"}

// GADayBucket holds one FI's funnel page views and GA instances for a day
type GADayBucket struct {
	Views     entity.GAFunnelViews
	Instances []string
}

// BucketGARowsByFI sums funnel page views per FI for rows dated day.
// Rows without an FI key are ignored.
func BucketGARowsByFI(rows []entity.GARow, day string) map[string]*GADayBucket {
	out := make(map[string]*GADayBucket)
	for _, r := range rows {
		if r.Date != day {
			continue
		}
		fiKey := NormalizeKey(r.FIKey)
		if fiKey == "" {
			continue
		}
		bucket, ok := out[fiKey]
		if !ok {
			bucket = &GADayBucket{Instances: []string{}}
			out[fiKey] = bucket
		}

		switch {
		case strings.HasPrefix(r.Page, PageSelectMerchants):
			bucket.Views.SelectMerchants += r.Views
		case strings.HasPrefix(r.Page, PageUserDataCollection):
			bucket.Views.UserDataCollection += r.Views
		case strings.HasPrefix(r.Page, PageCredentialEntry):
			bucket.Views.CredentialEntry += r.Views
		}

		if inst := strings.ToLower(r.Instance); inst != "" && !slices.Contains(bucket.Instances, inst) {
			bucket.Instances = append(bucket.Instances, inst)
		}
	}
	return out
}

// SessionDayRollup holds a day's session counters per FI and per FI instance
type SessionDayRollup struct {
	ByFI       map[string]*entity.SessionCounts
	ByInstance map[string]*entity.FIInstanceDaily
}

// BucketSessionsByFI counts a day's sessions per FI and per FI instance using
// the same job and success predicates as AggregateSessions. Sessions without
// an FI key are ignored.
func BucketSessionsByFI(records []interface{}) *SessionDayRollup {
	out := &SessionDayRollup{
		ByFI:       make(map[string]*entity.SessionCounts),
		ByInstance: make(map[string]*entity.FIInstanceDaily),
	}
	for _, raw := range records {
		rec, ok := entity.AsRecord(raw)
		if !ok {
			continue
		}
		fiKey := SessionFIKey(rec)
		if fiKey == "" {
			continue
		}
		counts, ok := out.ByFI[fiKey]
		if !ok {
			counts = &entity.SessionCounts{}
			out.ByFI[fiKey] = counts
		}
		withJobs := rec.Number("total_jobs") > 0
		withSuccess := rec.Number("successful_jobs") > 0
		bumpSessionCounts(counts, withJobs, withSuccess)

		inst := NormalizeInstance(rec.String(sessionInstanceFields...))
		key := fiKey + keySeparator + inst
		daily, ok := out.ByInstance[key]
		if !ok {
			daily = &entity.FIInstanceDaily{FILookupKey: fiKey, Instance: inst}
			out.ByInstance[key] = daily
		}
		bumpSessionCounts(&daily.Sessions, withJobs, withSuccess)
	}
	return out
}

func bumpSessionCounts(c *entity.SessionCounts, withJobs, withSuccess bool) {
	c.Total++
	if withJobs {
		c.WithJobs++
	}
	if withSuccess {
		c.WithSuccess++
	}
	c.WithoutJobs = c.Total - c.WithJobs
}

// BucketPlacementsByFI counts a day's placements per FI with a per-termination
// breakdown. Placements without an FI key are ignored.
func BucketPlacementsByFI(records []interface{}) map[string]*entity.PlacementCounts {
	out := make(map[string]*entity.PlacementCounts)
	for _, raw := range records {
		rec, ok := entity.AsRecord(raw)
		if !ok {
			continue
		}
		if rec.String("fi_lookup_key", "fi_name", "financial_institution_lookup_key") == "" {
			continue
		}
		p := ResolvePlacementOutcome(rec)
		counts, ok := out[p.FIKey]
		if !ok {
			counts = &entity.PlacementCounts{ByTermination: make(map[string]int)}
			out[p.FIKey] = counts
		}
		counts.TotalPlacements++
		if p.Success {
			counts.SuccessfulPlacements++
		}
		term := p.Termination
		if term == "" {
			term = StatusUnknown
		}
		counts.ByTermination[term]++
	}
	return out
}

// BuildDailySnapshot merges the per-FI buckets of one day into a snapshot
// document. Every FI present in any input gets an entry with zeroed counters
// for the inputs that lack it.
func BuildDailySnapshot(day string, ga map[string]*GADayBucket, sessions *SessionDayRollup, placements map[string]*entity.PlacementCounts) *entity.DailySnapshot {
	if sessions == nil {
		sessions = &SessionDayRollup{}
	}

	doc := &entity.DailySnapshot{
		Date: day,
		Sources: entity.SnapshotSources{
			GA:            len(ga) > 0,
			SISSessions:   len(sessions.ByFI) > 0,
			SISPlacements: len(placements) > 0,
		},
		FI:          make(map[string]*entity.FIDaily),
		FIInstances: sessions.ByInstance,
	}

	keys := make(map[string]struct{})
	for k := range ga {
		keys[k] = struct{}{}
	}
	for k := range sessions.ByFI {
		keys[k] = struct{}{}
	}
	for k := range placements {
		keys[k] = struct{}{}
	}

	for k := range keys {
		entry := &entity.FIDaily{
			GAInstances: []string{},
			Placements:  entity.PlacementCounts{ByTermination: map[string]int{}},
		}
		if g, ok := ga[k]; ok {
			entry.GA = g.Views
			entry.GAInstances = append(entry.GAInstances, g.Instances...)
		}
		if s, ok := sessions.ByFI[k]; ok {
			entry.Sessions = *s
			entry.Sessions.WithoutJobs = max(0, s.Total-s.WithJobs)
		}
		if p, ok := placements[k]; ok {
			entry.Placements = *p
		}
		doc.FI[k] = entry
	}

	return doc
}
