package entity

// GARow is one row of the GA4 report after host resolution
type GARow struct {
	Date         string `json:"date"`
	Host         string `json:"host"`
	Page         string `json:"page"`
	Hour         string `json:"hour,omitempty"`
	Views        int64  `json:"views"`
	ActiveUsers  int64  `json:"active_users"`
	FIKey        string `json:"fi_key,omitempty"`
	Instance     string `json:"instance,omitempty"`
	IsCardUpdatr bool   `json:"is_cardupdatr"`
	IsFunnelPage bool   `json:"is_funnel_page"`
}
