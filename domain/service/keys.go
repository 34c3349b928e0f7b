package service

import (
	"strings"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

// UnknownFI is the bucket for records with no resolvable FI key
const UnknownFI = "unknown"

// NormalizeKey trims and lower-cases an FI, merchant or instance key.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// KeySet is a set of normalized FI keys, used for SSO membership.
type KeySet map[string]struct{}

// NewKeySet builds a KeySet, normalizing every key.
func NewKeySet(keys ...string) KeySet {
	set := make(KeySet, len(keys))
	for _, k := range keys {
		if n := NormalizeKey(k); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Has reports whether key, once normalized, is in the set.
func (s KeySet) Has(key string) bool {
	_, ok := s[NormalizeKey(key)]
	return ok
}

// Segment labels used by every report
const (
	SegmentSSO    = "SSO"
	SegmentNonSSO = "non-SSO"
	SegmentTotal  = "Total"
)

// SegmentOf returns the segment label for an FI key.
func (s KeySet) SegmentOf(fiKey string) string {
	if s.Has(fiKey) {
		return SegmentSSO
	}
	return SegmentNonSSO
}

func fiKeyOrUnknown(rec entity.Record, fields ...string) string {
	if k := NormalizeKey(rec.String(fields...)); k != "" {
		return k
	}
	return UnknownFI
}
