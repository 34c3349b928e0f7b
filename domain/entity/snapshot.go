package entity

import "time"

// DailySnapshot is the per-day rollup document written to data/daily/<date>.json
type DailySnapshot struct {
	Date        string                      `json:"date"`
	Sources     SnapshotSources             `json:"sources"`
	FI          map[string]*FIDaily         `json:"fi"`
	FIInstances map[string]*FIInstanceDaily `json:"fi_instances,omitempty"`
}

// SnapshotSources records which inputs contributed to a snapshot
type SnapshotSources struct {
	GA            bool `json:"ga"`
	SISSessions   bool `json:"sis_sessions"`
	SISPlacements bool `json:"sis_placements"`
}

// FIDaily holds one FI's counters for a day
type FIDaily struct {
	GA          GAFunnelViews   `json:"ga"`
	GAInstances []string        `json:"ga_instances"`
	Sessions    SessionCounts   `json:"sessions"`
	Placements  PlacementCounts `json:"placements"`
}

// FIInstanceDaily holds one FI instance's session counters for a day
type FIInstanceDaily struct {
	FILookupKey string        `json:"fi_lookup_key"`
	Instance    string        `json:"instance"`
	Sessions    SessionCounts `json:"sessions"`
}

// GAFunnelViews sums page views on the three funnel pages
type GAFunnelViews struct {
	SelectMerchants    int64 `json:"select_merchants"`
	UserDataCollection int64 `json:"user_data_collection"`
	CredentialEntry    int64 `json:"credential_entry"`
}

// SessionCounts are the session counters of a snapshot
type SessionCounts struct {
	Total       int `json:"total"`
	WithJobs    int `json:"with_jobs"`
	WithSuccess int `json:"with_success"`
	WithoutJobs int `json:"without_jobs"`
}

// PlacementCounts are the placement counters of a snapshot
type PlacementCounts struct {
	TotalPlacements      int            `json:"total_placements"`
	SuccessfulPlacements int            `json:"successful_placements"`
	ByTermination        map[string]int `json:"by_termination"`
}

// RawType names one of the raw per-day data sets
type RawType string

// Raw data sets
const (
	RawGA         RawType = "ga"
	RawSessions   RawType = "sessions"
	RawPlacements RawType = "placements"
)

// RawTypes lists every raw data set
var RawTypes = []RawType{RawSessions, RawPlacements, RawGA}

// RowsField returns the JSON field holding the rows of a raw day file
func (t RawType) RowsField() string {
	if t == RawGA {
		return "rows"
	}
	return string(t)
}

// RawMetadata is stamped on every raw day file under "_metadata"
type RawMetadata struct {
	FetchedAt  time.Time `json:"fetchedAt"`
	IsComplete bool      `json:"isComplete"`
}
