package service

import (
	"sort"
	"strings"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

// UnknownInstance stands in for an FI instance that was not recorded
const UnknownInstance = "unknown"

const keySeparator = "__"

// NormalizeInstance normalizes an instance name, mapping empty to "unknown".
func NormalizeInstance(inst string) string {
	if s := NormalizeKey(inst); s != "" {
		return s
	}
	return UnknownInstance
}

// RegistryKey builds the composite "<fi>__<instance>" registry key.
func RegistryKey(fi, instance string) string {
	return NormalizeKey(fi) + keySeparator + NormalizeInstance(instance)
}

// IntegrationPolicy guesses the integration type of a newly discovered FI instance.
type IntegrationPolicy func(instance string) string

// GuessIntegration marks instances whose name mentions dev or test as TEST
// and everything else as NON-SSO.
func GuessIntegration(instance string) string {
	lower := strings.ToLower(instance)
	if strings.Contains(lower, "dev") || strings.Contains(lower, "test") {
		return entity.IntegrationTest
	}
	return entity.IntegrationNonSSO
}

// SnapshotIndex is the part of a daily snapshot file the reconciler reads.
type SnapshotIndex struct {
	Name        string                 `json:"-"`
	FIInstances map[string]interface{} `json:"fi_instances"`
	FI          map[string]interface{} `json:"fi"`
}

// Combo is an FI and instance pair seen in the daily snapshots
type Combo struct {
	Key      string
	FI       string
	Instance string
}

// ComboSet keeps combos in first-seen order, deduplicated by registry key.
type ComboSet struct {
	order []Combo
	seen  map[string]struct{}
}

// NewComboSet returns an empty ComboSet
func NewComboSet() *ComboSet {
	return &ComboSet{seen: make(map[string]struct{})}
}

// Add records fi and instance unless their key was already seen.
func (s *ComboSet) Add(fi, instance string) bool {
	key := RegistryKey(fi, instance)
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.order = append(s.order, Combo{Key: key, FI: fi, Instance: instance})
	return true
}

// Combos returns the combos in first-seen order
func (s *ComboSet) Combos() []Combo {
	return s.order
}

// Len returns the number of distinct combos
func (s *ComboSet) Len() int {
	return len(s.order)
}

// CollectSnapshotCombos gathers every FI and instance pair named by the
// snapshots, in snapshot order. Within a snapshot, fi_instances entries come
// before fi entries and each map is walked in key order.
func CollectSnapshotCombos(snapshots ...*SnapshotIndex) *ComboSet {
	combos := NewComboSet()
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}

		for _, key := range sortedKeys(snap.FIInstances) {
			val, _ := entity.AsRecord(snap.FIInstances[key])
			keyFI, keyInst := splitRegistryKey(key)

			fi := val.String("fi_lookup_key", "fi_name", "fi")
			if fi == "" {
				fi = keyFI
			}
			inst := val.String("instance")
			if inst == "" {
				inst = keyInst
			}
			if inst == "" {
				inst = UnknownInstance
			}
			if fi == "" {
				continue
			}
			combos.Add(fi, inst)
		}

		for _, fiName := range sortedKeys(snap.FI) {
			entry, _ := entity.AsRecord(snap.FI[fiName])
			for _, inst := range snapshotInstances(entry) {
				combos.Add(fiName, inst)
			}
		}
	}
	return combos
}

// snapshotInstances returns ga_instances when it is a non-empty array, else
// the entry's single instance, else "unknown".
func snapshotInstances(entry entity.Record) []string {
	if arr, ok := entry.Array("ga_instances"); ok && len(arr) > 0 {
		out := make([]string, 0, len(arr))
		for _, v := range arr {
			if v == nil {
				out = append(out, "")
				continue
			}
			out = append(out, stringify(v))
		}
		return out
	}
	if inst := entry.String("instance"); inst != "" {
		return []string{inst}
	}
	return []string{UnknownInstance}
}

// ReconcileResult reports what ReconcileRegistry changed
type ReconcileResult struct {
	Added []string `json:"added"`
	Total int      `json:"total"`
}

// ReconcileRegistry inserts an entry for every combo whose key is not already
// in the registry, comparing keys case-insensitively. Existing entries are
// never modified or removed.
func ReconcileRegistry(reg entity.Registry, combos *ComboSet, policy IntegrationPolicy) (*ReconcileResult, error) {
	if policy == nil {
		policy = GuessIntegration
	}

	existing := reg.LowerKeys()
	partners := partnerIndex(reg)
	result := &ReconcileResult{}

	for _, c := range combos.Combos() {
		if _, ok := existing[c.Key]; ok {
			continue
		}

		integration := policy(c.Instance)
		partner := partners[c.Key]
		if partner == "" {
			partner = entity.DefaultPartner
		}

		added, err := reg.Add(c.Key, entity.RegistryEntry{
			FIName:          c.FI,
			FILookupKey:     NormalizeKey(c.FI),
			Instance:        c.Instance,
			Integration:     integration,
			IntegrationType: integration,
			Partner:         partner,
		})
		if err != nil {
			return nil, err
		}
		if added {
			result.Added = append(result.Added, c.Key)
		}
	}

	result.Total = len(reg)
	return result, nil
}

// partnerIndex maps normalized registry keys to the partner their entry
// names, so an entry differing only by case or padding lends its partner.
func partnerIndex(reg entity.Registry) map[string]string {
	out := make(map[string]string, len(reg))
	for _, key := range reg.Keys() {
		entry := reg.Entry(key)
		if entry == nil || entry.Partner == "" {
			continue
		}
		fi, inst := splitRegistryKey(key)
		norm := RegistryKey(fi, inst)
		if _, ok := out[norm]; !ok {
			out[norm] = entry.Partner
		}
	}
	return out
}

func splitRegistryKey(key string) (string, string) {
	parts := strings.Split(key, keySeparator)
	fi := parts[0]
	inst := ""
	if len(parts) > 1 {
		inst = parts[1]
	}
	return fi, inst
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
