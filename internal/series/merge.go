package series

import (
	"sort"

	"BarVault/internal/market"
)

// Merge reconciles freshly fetched bars into an existing persisted series.
// Bars are deduplicated on the timeframe's date key with the incoming bar
// winning, so revised bars from the provider override stale rows sharing
// the same key. The result is sorted ascending and holds strictly
// increasing keys. An empty incoming slice returns existing unchanged, so
// callers must not advance the checkpoint in that case.
func Merge(tf market.Timeframe, existing, incoming []market.Bar) []market.Bar {
	if len(incoming) == 0 {
		return existing
	}

	byKey := make(map[string]market.Bar, len(existing)+len(incoming))
	for _, b := range existing {
		byKey[tf.Key(b.Time)] = b
	}
	for _, b := range incoming {
		byKey[tf.Key(b.Time)] = b
	}

	merged := make([]market.Bar, 0, len(byKey))
	for _, b := range byKey {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })
	return merged
}
