package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

func TestClassifyMerchantHealth(t *testing.T) {
	assert.Equal(t, HealthRed, ClassifyMerchantHealth(0))
	assert.Equal(t, HealthRed, ClassifyMerchantHealth(49.9))
	assert.Equal(t, HealthYellow, ClassifyMerchantHealth(50))
	assert.Equal(t, HealthYellow, ClassifyMerchantHealth(69.99))
	assert.Equal(t, HealthGreen, ClassifyMerchantHealth(70))
}

func TestClassifyPlacementHealth(t *testing.T) {
	assert.Equal(t, PlacementHealthy, ClassifyPlacementHealth(entity.Record{"termination_type": "billable", "status": "CANCELED"}))
	assert.Equal(t, PlacementUserFlow, ClassifyPlacementHealth(entity.Record{"termination_type": "timeout_tfa"}))
	assert.Equal(t, PlacementUserFlow, ClassifyPlacementHealth(entity.Record{"status": "canceled"}))
	assert.Equal(t, PlacementSiteFailure, ClassifyPlacementHealth(entity.Record{"termination_type": "SITE_DOWN"}))
	assert.Equal(t, PlacementSiteFailure, ClassifyPlacementHealth(entity.Record{}))
}

func TestBuildMerchantHealth(t *testing.T) {
	var records []interface{}
	for i := 0; i < 4; i++ {
		status := "FAILED"
		if i < 3 {
			status = "SUCCESSFUL"
		}
		records = append(records, placement("merchant_site_hostname", "good.com", "status", status))
	}
	records = append(records, placement("merchant_site_hostname", "bad.com", "status", "FAILED"))

	report := BuildMerchantHealth(SummarizeMerchantFailures(records, nil))
	require.Len(t, report.Merchants, 2)
	assert.Equal(t, HealthGreen, report.Merchants[0].Indicator)
	assert.InDelta(t, 75.0, report.Merchants[0].SuccessPct, 0.001)
	assert.Equal(t, HealthRed, report.Merchants[1].Indicator)
	assert.Equal(t, map[HealthIndicator]int{HealthRed: 1, HealthYellow: 0, HealthGreen: 1}, report.Counts)

	var buf bytes.Buffer
	WriteMerchantHealth(&buf, report)
	assert.Contains(t, buf.String(), "good.com | 4 | 3 | 1 | 75.0% | GREEN")
	assert.Contains(t, buf.String(), "Overall merchant health: 1 RED, 0 YELLOW, 1 GREEN")
}

func TestSummarizePlacementHealth(t *testing.T) {
	stats := SummarizePlacementHealth([]interface{}{
		placement("merchant_site_hostname", "a.com", "termination_type", "BILLABLE"),
		placement("merchant_site_hostname", "a.com", "termination_type", "NEVER_STARTED"),
		placement("merchant_site_hostname", "a.com", "termination_type", "SITE_CHANGED"),
		placement("merchant_site_hostname", "a.com", "termination_type", "BILLABLE"),
		placement("merchant_site_hostname", "b.com", "termination_type", "BILLABLE"),
	})
	require.Len(t, stats, 2)

	a := stats[0]
	assert.Equal(t, "a.com", a.Merchant)
	assert.Equal(t, 4, a.Total)
	assert.Equal(t, 2, a.Healthy)
	assert.Equal(t, 1, a.UserFlow)
	assert.Equal(t, 1, a.SiteFailures)
	assert.InDelta(t, 50.0, a.HealthyPct, 0.001)
	assert.Equal(t, "red", a.Band)
	assert.Equal(t, "green", stats[1].Band)

	var buf bytes.Buffer
	WritePlacementHealth(&buf, stats)
	assert.Contains(t, buf.String(), "[RED] a.com: total=4, healthy=2 (50.0%), site_failures=1 (25.0%), user_flow=1")
}

func TestHealthBand(t *testing.T) {
	assert.Equal(t, "green", HealthBand(80))
	assert.Equal(t, "yellow", HealthBand(60))
	assert.Equal(t, "red", HealthBand(59.9))
}
