package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteSessionSummary(t *testing.T) {
	agg := AggregateSessions([]interface{}{
		session("advancial", float64(1), float64(1)),
		session("advancial", float64(1), float64(0)),
		session("acme", float64(0), float64(0)),
	}, NewKeySet("advancial"))

	var buf bytes.Buffer
	WriteSessionSummary(&buf, agg)
	out := buf.String()

	assert.Contains(t, out, "- advancial: 2 sessions | 2 with jobs (100.0%) | 1 successful (50.0% of job sessions)")
	assert.Contains(t, out, "- acme: 1 sessions | 0 with jobs (0.0%) | 0 successful (0.0% of job sessions)")
	assert.Contains(t, out, "- SSO: 2 total | 2 with jobs (100.0%) | 1 successful (50.0% of job sessions)")
	assert.Contains(t, out, "- NON-SSO: 1 total | 0 with jobs (0.0%)")
}

func TestWritePlacementSummary(t *testing.T) {
	records := []interface{}{
		placement("merchant_site_hostname", "shop.com", "fi_lookup_key", "advancial", "status", "SUCCESSFUL"),
		placement("merchant_site_hostname", "shop.com", "fi_lookup_key", "acme", "status", "FAILED"),
	}
	sso := NewKeySet("advancial")
	agg := AggregatePlacementsByFI(records, sso)
	assert.Equal(t, 1, agg.SSO.Success)
	assert.Equal(t, 1, agg.NonSSO.Failed)

	var buf bytes.Buffer
	WritePlacementSummary(&buf, agg, SummarizeMerchantFailures(records, sso))
	out := buf.String()

	assert.Contains(t, out, "- advancial: total=1, success=1, failed=0, success%=100.0")
	assert.Contains(t, out, "- SSO: 1 placements | 1 success | 0 failed | success%=100.0")
	assert.Contains(t, out, "- shop.com: total=2, success=1, failed=1, success%=50.0")
}

func TestFormatBreakdown(t *testing.T) {
	assert.Equal(t, "B:3, A:1, C:1", FormatBreakdown(map[string]int{"A": 1, "B": 3, "C": 1}))
	assert.Equal(t, "", FormatBreakdown(nil))
}
