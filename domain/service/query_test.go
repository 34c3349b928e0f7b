package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

func TestIsTestSession(t *testing.T) {
	cases := []struct {
		name string
		rec  entity.Record
		want bool
	}{
		{"customer-dev instance", entity.Record{"instance": " Customer-Dev "}, true},
		{"underscored instance", entity.Record{"_instance": "customer-dev"}, true},
		{"test display integration", entity.Record{"integration_display": "TEST"}, true},
		{"test integration type", entity.Record{"integration_type": "test"}, true},
		{"display wins over type", entity.Record{"integration_display": "SSO", "integration_type": "test"}, false},
		{"prod", entity.Record{"instance": "prod", "integration": "SSO"}, false},
		{"empty", entity.Record{}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsTestSession(tc.rec), tc.name)
	}
}

func TestSessionQueryMatches(t *testing.T) {
	rec := entity.Record{
		"fi_lookup_key": "Acme",
		"partner":       "Alkami",
		"integration":   "SSO",
		"instance":      "prod",
	}

	assert.True(t, AllSessions("2025-01-01", "2025-01-02").Matches(rec))
	assert.True(t, SessionQuery{}.Matches(rec), "empty filters mean no filter")
	assert.True(t, SessionQuery{FI: " ACME ", Partner: "alkami", Integration: "sso", Instance: "PROD"}.Matches(rec))

	assert.False(t, SessionQuery{FI: "beta"}.Matches(rec))
	assert.False(t, SessionQuery{Partner: "other"}.Matches(rec))
	assert.False(t, SessionQuery{Integration: "NON-SSO"}.Matches(rec))
	assert.False(t, SessionQuery{Instance: "dev"}.Matches(rec))
}

func TestFilterSessionsExcludesTests(t *testing.T) {
	sessions := []interface{}{
		map[string]interface{}{"fi_lookup_key": "acme", "instance": "prod"},
		map[string]interface{}{"fi_lookup_key": "acme", "instance": "customer-dev"},
		map[string]interface{}{"fi_lookup_key": "beta", "integration": "test"},
		"junk",
	}

	q := AllSessions("2025-01-01", "2025-01-01")
	assert.Len(t, FilterSessions(sessions, q), 3)

	q.IncludeTests = false
	got := FilterSessions(sessions, q)
	assert.Len(t, got, 1)
	assert.Equal(t, "prod", got[0].(map[string]interface{})["instance"])
}
