// Package announcekey models the tracker address(es) declared in a
// torrent's metainfo: either a single announce URL, or a BEP-12 tiered
// list-of-lists. It mirrors the shape of the reference client's
// MetaInfo.Announce / MetaInfo.AnnounceList fields (internal/metainfo) one
// level up, as an immutable value usable as a set element.
package announcekey

import "strings"

// AnnounceKey is immutable once constructed.
type AnnounceKey struct {
	tiers [][]string
}

// Single builds an AnnounceKey from one tracker URL.
func Single(url string) AnnounceKey {
	return AnnounceKey{tiers: [][]string{{url}}}
}

// Tiered builds a BEP-12 multi-tracker AnnounceKey. The input is copied so
// the result is safe to retain even if the caller mutates its slices.
func Tiered(tiers [][]string) AnnounceKey {
	cp := make([][]string, len(tiers))
	for i, tier := range tiers {
		cpTier := make([]string, len(tier))
		copy(cpTier, tier)
		cp[i] = cpTier
	}
	return AnnounceKey{tiers: cp}
}

// Tiers returns the tiered URL lists, outermost slice ordered by priority.
func (k AnnounceKey) Tiers() [][]string {
	return k.tiers
}

// URLs returns every URL across every tier, flattened, in tier order.
func (k AnnounceKey) URLs() []string {
	var out []string
	for _, tier := range k.tiers {
		out = append(out, tier...)
	}
	return out
}

// IsZero reports whether the key carries no URLs at all.
func (k AnnounceKey) IsZero() bool {
	return len(k.URLs()) == 0
}

// CanonicalString returns a stable representation suitable for use as a map
// key, letting callers (the registry's extra-announce-keys set) dedupe
// AnnounceKeys by value rather than by pointer identity.
func (k AnnounceKey) CanonicalString() string {
	tiers := make([]string, len(k.tiers))
	for i, tier := range k.tiers {
		tiers[i] = strings.Join(tier, ",")
	}
	return strings.Join(tiers, "|")
}

func (k AnnounceKey) String() string {
	return k.CanonicalString()
}
