package analytics

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeReporter struct {
	rows        []ReportRow
	realtime    []ReportRow
	err         error
	realtimeErr error
	requests    []ReportRequest
}

func (f *fakeReporter) RunReport(_ context.Context, req ReportRequest) ([]ReportRow, error) {
	f.requests = append(f.requests, req)
	return f.rows, f.err
}

func (f *fakeReporter) RunRealtimeReport(_ context.Context, req ReportRequest) ([]ReportRow, error) {
	f.requests = append(f.requests, req)
	return f.realtime, f.realtimeErr
}

func TestResolveFIFromHost(t *testing.T) {
	cases := []struct {
		host string
		want *HostFI
	}{
		{"", nil},
		{"acme.prod.cardupdatr.app", &HostFI{FIKey: "acme", Instance: "prod", IsCardUpdatr: true}},
		{"default.advancial-prod.cardupdatr.app", &HostFI{FIKey: "advancial-prod", Instance: "advancial-prod", IsCardUpdatr: true}},
		{"solo.cardupdatr.app", &HostFI{FIKey: "solo", Instance: "solo", IsCardUpdatr: true}},
		{".cardupdatr.app", &HostFI{FIKey: ".cardupdatr.app", Instance: "unknown", IsCardUpdatr: true}},
		{"developer.dev.alkamitech.com", &HostFI{FIKey: "developer", Instance: "dev.alkamitech.com"}},
		{"localhost", &HostFI{FIKey: "localhost", Instance: "unknown"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveFIFromHost(tc.host), tc.host)
	}
}

func TestNormalizeGADate(t *testing.T) {
	assert.Equal(t, "2025-03-01", NormalizeGADate("20250301", "x"))
	assert.Equal(t, "2025-03-01", NormalizeGADate("2025-03-01", "x"))
	assert.Equal(t, "x", NormalizeGADate("", "x"))
	assert.Equal(t, "x", NormalizeGADate("2025", "x"))
}

func TestIsFunnelPage(t *testing.T) {
	assert.True(t, IsFunnelPage("/select-merchants?fi=acme"))
	assert.True(t, IsFunnelPage("/credential-entry"))
	assert.False(t, IsFunnelPage("/"))
	assert.False(t, IsFunnelPage(""))
}

func TestFetchRows(t *testing.T) {
	reporter := &fakeReporter{rows: []ReportRow{
		{Dimensions: []string{"20250301", "ACME.prod.cardupdatr.app", "/select-merchants", "09"}, Metrics: []string{"12", "3"}},
		{Dimensions: []string{"", "", "", "10"}, Metrics: []string{"5", "1"}},
		{Dimensions: []string{"", "", "/orphan", "11"}, Metrics: []string{"bogus", ""}},
	}}
	f := NewFetcher(reporter, Config{PropertyID: "1"}, zaptest.NewLogger(t))

	rows, err := f.FetchRows(context.Background(), "2025-03-01", "2025-03-02")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2025-03-01", rows[0].Date)
	assert.Equal(t, "acme", rows[0].FIKey)
	assert.Equal(t, "prod", rows[0].Instance)
	assert.True(t, rows[0].IsCardUpdatr)
	assert.True(t, rows[0].IsFunnelPage)
	assert.Equal(t, int64(12), rows[0].Views)
	assert.Equal(t, int64(3), rows[0].ActiveUsers)

	assert.Equal(t, "2025-03-01", rows[1].Date, "missing date falls back to start")
	assert.Empty(t, rows[1].FIKey)
	assert.Zero(t, rows[1].Views)

	require.Len(t, reporter.requests, 1)
	assert.Equal(t, DefaultDimensions, reporter.requests[0].Dimensions)
	assert.Equal(t, int64(DefaultLimit), reporter.requests[0].Limit)
}

func TestFetchDayAttributesRowsToDay(t *testing.T) {
	reporter := &fakeReporter{rows: []ReportRow{
		{Dimensions: []string{"20250302", "a.b.cardupdatr.app", "/x", "00"}, Metrics: []string{"1", "1"}},
	}}
	rows, err := NewFetcher(reporter, Config{}, nil).FetchDay(context.Background(), "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", rows[0].Date)
}

func TestFetchRowsError(t *testing.T) {
	reporter := &fakeReporter{err: errors.New("quota")}
	_, err := NewFetcher(reporter, Config{}, nil).FetchRows(context.Background(), "2025-03-01", "2025-03-01")
	assert.EqualError(t, err, "quota")
}

func TestCheckFreshness(t *testing.T) {
	reporter := &fakeReporter{
		rows: []ReportRow{
			{Dimensions: []string{"b.host", "/p", "09"}, Metrics: []string{"1"}},
			{Dimensions: []string{"a.host", "/p", "09"}, Metrics: []string{"1"}},
			{Dimensions: []string{"a.host", "/q", "10"}, Metrics: []string{"1"}},
		},
		realtime: []ReportRow{{Dimensions: []string{"Select Merchants", "3"}, Metrics: []string{"7"}}},
	}
	fresh, err := NewFetcher(reporter, Config{}, zaptest.NewLogger(t)).CheckFreshness(context.Background(), "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Rows)
	assert.Equal(t, []string{"a.host", "b.host"}, fresh.Hosts)
	assert.Equal(t, map[string]int{"09": 2, "10": 1}, fresh.HourCounts)
	assert.Equal(t, []RealtimeRow{{Screen: "Select Merchants", MinutesAgo: "3", Views: 7}}, fresh.Realtime)

	reporter.realtimeErr = errors.New("realtime unavailable")
	fresh, err = NewFetcher(reporter, Config{}, nil).CheckFreshness(context.Background(), "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, "realtime unavailable", fresh.RealtimeError)
}
