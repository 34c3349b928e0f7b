package entity

import (
	"encoding/json"
	"sort"
	"strings"
)

// Integration types recorded on registry entries
const (
	IntegrationSSO    = "SSO"
	IntegrationNonSSO = "NON-SSO"
	IntegrationTest   = "TEST"
)

// DefaultPartner is recorded when no partner is known for an FI instance
const DefaultPartner = "Unknown"

// RegistryEntry is one FI instance in fi_registry.json
type RegistryEntry struct {
	FIName          string `json:"fi_name"`
	FILookupKey     string `json:"fi_lookup_key"`
	Instance        string `json:"instance"`
	Integration     string `json:"integration"`
	IntegrationType string `json:"integration_type"`
	Partner         string `json:"partner"`
}

// Registry maps "<fi_key>__<instance>" to its entry. Entries are held as raw
// JSON so fields this service does not model survive a rewrite.
type Registry map[string]json.RawMessage

// Keys returns the registry keys in sorted order
func (r Registry) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LowerKeys returns the set of lower-cased registry keys
func (r Registry) LowerKeys() map[string]struct{} {
	out := make(map[string]struct{}, len(r))
	for k := range r {
		out[strings.ToLower(k)] = struct{}{}
	}
	return out
}

// Entry decodes the entry under key. Entries that are not objects decode to nil.
func (r Registry) Entry(key string) *RegistryEntry {
	raw, ok := r[key]
	if !ok {
		return nil
	}
	var entry RegistryEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil
	}
	return &entry
}

// Add stores entry under key, replacing nothing that already exists.
func (r Registry) Add(key string, entry RegistryEntry) (bool, error) {
	if _, exists := r[key]; exists {
		return false, nil
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	r[key] = raw
	return true, nil
}
