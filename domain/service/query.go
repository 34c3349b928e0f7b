package service

import (
	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

// Filter values meaning "no filter"
const (
	AllFIs          = "__all__"
	AllPartners     = "__all_partners__"
	AllIntegrations = "(all)"
	AllInstances    = "__all_instances__"
)

// Test traffic markers
const (
	TestInstance    = "customer-dev"
	TestIntegration = "test"
)

// SessionQuery selects sessions over an inclusive day range.
type SessionQuery struct {
	Start        string
	End          string
	IncludeTests bool
	FI           string
	Partner      string
	Integration  string
	Instance     string
}

// AllSessions returns a query over every FI, partner, integration and
// instance, tests included.
func AllSessions(start, end string) SessionQuery {
	return SessionQuery{
		Start:        start,
		End:          end,
		IncludeTests: true,
		FI:           AllFIs,
		Partner:      AllPartners,
		Integration:  AllIntegrations,
		Instance:     AllInstances,
	}
}

// WithDefaults fills empty filters with their "no filter" value.
func (q SessionQuery) WithDefaults() SessionQuery {
	q.FI = orDefault(q.FI, AllFIs)
	q.Partner = orDefault(q.Partner, AllPartners)
	q.Integration = orDefault(q.Integration, AllIntegrations)
	q.Instance = orDefault(q.Instance, AllInstances)
	return q
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Matches reports whether session passes every filter of q.
func (q SessionQuery) Matches(session entity.Record) bool {
	q = q.WithDefaults()
	if !q.IncludeTests && IsTestSession(session) {
		return false
	}
	if q.FI != AllFIs && SessionFIKey(session) != NormalizeKey(q.FI) {
		return false
	}
	if q.Partner != AllPartners && NormalizeKey(session.String("partner")) != NormalizeKey(q.Partner) {
		return false
	}
	if q.Integration != AllIntegrations && sessionIntegration(session) != NormalizeKey(q.Integration) {
		return false
	}
	if q.Instance != AllInstances && sessionInstance(session) != NormalizeKey(q.Instance) {
		return false
	}
	return true
}

// IsTestSession reports whether a session came from the customer-dev
// instance or a test integration.
func IsTestSession(session entity.Record) bool {
	return sessionInstance(session) == TestInstance || sessionIntegration(session) == TestIntegration
}

func sessionInstance(session entity.Record) string {
	return NormalizeKey(session.String("instance", "_instance"))
}

func sessionIntegration(session entity.Record) string {
	return NormalizeKey(session.String("integration_display", "integration", "integration_type"))
}

// FilterSessions returns the sessions matching q, in order.
func FilterSessions(sessions []interface{}, q SessionQuery) []interface{} {
	out := make([]interface{}, 0, len(sessions))
	for _, s := range sessions {
		rec, ok := entity.AsRecord(s)
		if !ok {
			continue
		}
		if q.Matches(rec) {
			out = append(out, s)
		}
	}
	return out
}
