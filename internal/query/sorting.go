package query

import "strings"

// SortKey selects both the result ordering and a field boost profile.
type SortKey string

const (
	SortFileName     SortKey = "file_name"
	SortDescription  SortKey = "description"
	SortMetadata     SortKey = "metadata"
	SortContent      SortKey = "content"
	SortMostMatches  SortKey = "most_matches"
	SortLeastMatches SortKey = "least_matches"
)

type boostProfile struct {
	// Multiplier applies to every field before overrides.
	Multiplier float64
	Overrides  map[string]float64
}

var sortBoosts = map[SortKey]boostProfile{
	SortFileName: {
		Multiplier: 1,
		Overrides:  map[string]float64{"file_name": 3},
	},
	SortDescription: {
		Multiplier: 1,
		Overrides:  map[string]float64{"description": 3, "file_name": 2},
	},
	SortMetadata: {
		Multiplier: 100,
		Overrides:  map[string]float64{"file_name": 0.2, "content": 0.1},
	},
	SortContent: {
		Multiplier: 1,
		Overrides:  map[string]float64{"content": 3, "file_name": 2},
	},
	SortMostMatches:  {Multiplier: 1},
	SortLeastMatches: {Multiplier: 1},
}

// ParseSortKey maps a raw value to a known key. Unknown values fall back to
// file_name and report ok=false.
func ParseSortKey(raw string) (SortKey, bool) {
	key := SortKey(strings.ToLower(strings.TrimSpace(raw)))
	if key == "" {
		return SortFileName, true
	}
	if _, ok := sortBoosts[key]; ok {
		return key, true
	}
	return SortFileName, false
}

func (k SortKey) boost(field string, base float64) float64 {
	profile, ok := sortBoosts[k]
	if !ok {
		profile = sortBoosts[SortFileName]
	}
	if override, ok := profile.Overrides[field]; ok {
		return override
	}
	return base * profile.Multiplier
}

func (k SortKey) scoreOrder() string {
	if k == SortLeastMatches {
		return "asc"
	}
	return "desc"
}
