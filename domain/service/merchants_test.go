package service

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placement(fields ...string) map[string]interface{} {
	rec := make(map[string]interface{})
	for i := 0; i+1 < len(fields); i += 2 {
		rec[fields[i]] = fields[i+1]
	}
	return rec
}

func TestSummarizeMerchantFailures(t *testing.T) {
	sso := NewKeySet("advancial")
	records := []interface{}{
		placement("merchant_site_hostname", "Amazon.com", "status", "successful", "fi_lookup_key", "advancial"),
		placement("merchant_site_hostname", "amazon.com", "status", "FAILED", "termination_type", "billable", "fi_name", "Acme"),
		placement("merchant_site_hostname", "amazon.com", "status", "FAILED", "termination_type", "TIMEOUT_TFA"),
		map[string]interface{}{"merchant_site_id": float64(77), "status": "CANCELLED"},
		placement("termination_type", "NEVER_STARTED"),
		"garbage",
	}

	summaries := SummarizeMerchantFailures(records, sso)
	require.Len(t, summaries, 3)

	amazon := summaries[0]
	assert.Equal(t, "amazon.com", amazon.Merchant)
	assert.Equal(t, 3, amazon.Overall.Total)
	assert.Equal(t, 2, amazon.Overall.Success)
	assert.Equal(t, 1, amazon.Overall.Failed)
	assert.Equal(t, map[string]int{"SUCCESSFUL": 1, "FAILED": 2}, amazon.Overall.ByStatus)
	assert.Equal(t, map[string]int{"BILLABLE": 1, "TIMEOUT_TFA": 1}, amazon.Overall.ByTermination)
	assert.Equal(t, 1, amazon.SSO.Total)
	assert.Equal(t, 2, amazon.NonSSO.Total)

	assert.Equal(t, "merchant_77", summaries[1].Merchant)
	assert.Equal(t, map[string]int{"CANCELLED": 1}, summaries[1].Overall.ByStatus)
	assert.Empty(t, summaries[1].Overall.ByTermination)

	unknown := summaries[2]
	assert.Equal(t, UnknownMerchant, unknown.Merchant)
	assert.Equal(t, map[string]int{StatusUnknown: 1}, unknown.Overall.ByStatus)
	assert.Equal(t, 1, unknown.Overall.Failed)
}

func TestSummarizeMerchantFailuresOrdering(t *testing.T) {
	var records []interface{}
	add := func(host string, n int) {
		for i := 0; i < n; i++ {
			records = append(records, placement("merchant_site_hostname", host, "status", "SUCCESSFUL"))
		}
	}
	add("first.com", 1)
	add("big.com", 3)
	add("second.com", 1)

	summaries := SummarizeMerchantFailures(records, nil)
	require.Len(t, summaries, 3)
	assert.Equal(t, "big.com", summaries[0].Merchant)
	assert.Equal(t, "first.com", summaries[1].Merchant)
	assert.Equal(t, "second.com", summaries[2].Merchant)

	for _, s := range summaries {
		assert.Equal(t, s.Overall.Total, s.Overall.Success+s.Overall.Failed)
		assert.Equal(t, s.Overall.Total, s.SSO.Total+s.NonSSO.Total)
	}
}

func TestWriteMerchantReport(t *testing.T) {
	summaries := SummarizeMerchantFailures([]interface{}{
		placement("merchant_site_hostname", "shop.com", "status", "SUCCESSFUL", "fi_lookup_key", "advancial"),
		placement("merchant_site_hostname", "shop.com", "status", "FAILED", "termination_type", "TIMEOUT_TFA"),
		placement("merchant_site_hostname", "other.com", "status", "FAILED"),
	}, NewKeySet("advancial"))

	var buf bytes.Buffer
	WriteMerchantReport(&buf, summaries, 1)
	out := buf.String()

	assert.Contains(t, out, "(top 1)")
	assert.Contains(t, out, "- shop.com: total=2, success=1, failed=1, success%=50.0")
	assert.Contains(t, out, "  statuses: FAILED:1, SUCCESSFUL:1")
	assert.Contains(t, out, "  terminations: TIMEOUT_TFA:1")
	assert.Contains(t, out, "  SSO -> total=1, success=1, failed=0, success%=100.0")
	assert.Contains(t, out, "    terminations: none")
	assert.Contains(t, out, "  NON-SSO -> total=1")
	assert.False(t, strings.Contains(out, "other.com"))
}
