package query

import (
	"sort"
	"strings"
)

// MatchType describes how a field takes part in free-text matching.
type MatchType string

const (
	MatchExactPhrase MatchType = "exact_phrase"
	MatchFuzzy       MatchType = "fuzzy"
)

// FieldPolicy is the fixed match policy for one indexed field.
type FieldPolicy struct {
	Match MatchType
	Boost float64
	// PrefixLength is the number of leading characters a fuzzy term must
	// match exactly. Ignored for exact fields.
	PrefixLength int
}

// FieldPolicies is the match-policy table for the documents index.
// Identifiers and dates are exact; descriptive text is fuzzy.
var FieldPolicies = map[string]FieldPolicy{
	// exact
	"consignment_reference": {Match: MatchExactPhrase, Boost: 1},
	"citeable_reference":    {Match: MatchExactPhrase, Boost: 1},
	"file_reference":        {Match: MatchExactPhrase, Boost: 1},
	"series_name":           {Match: MatchExactPhrase, Boost: 1},
	"series_id":             {Match: MatchExactPhrase, Boost: 1},
	"date_last_modified":    {Match: MatchExactPhrase, Boost: 1},
	"opening_date":          {Match: MatchExactPhrase, Boost: 1},
	"closure_start_date":    {Match: MatchExactPhrase, Boost: 1},
	"end_date":              {Match: MatchExactPhrase, Boost: 1},

	// fuzzy
	"file_name":                   {Match: MatchFuzzy, Boost: 1, PrefixLength: 1},
	"description":                 {Match: MatchFuzzy, Boost: 1, PrefixLength: 1},
	"content":                     {Match: MatchFuzzy, Boost: 1},
	"transferring_body":           {Match: MatchFuzzy, Boost: 1, PrefixLength: 1},
	"closure_type":                {Match: MatchFuzzy, Boost: 1, PrefixLength: 1},
	"legal_status":                {Match: MatchFuzzy, Boost: 1, PrefixLength: 1},
	"held_by":                     {Match: MatchFuzzy, Boost: 1, PrefixLength: 1},
	"language":                    {Match: MatchFuzzy, Boost: 1, PrefixLength: 1},
	"rights_copyright":            {Match: MatchFuzzy, Boost: 1, PrefixLength: 1},
	"former_reference_department": {Match: MatchFuzzy, Boost: 1, PrefixLength: 1},
}

// SearchArea names a predefined set of fields a query runs against.
type SearchArea string

const (
	AreaEverywhere SearchArea = "everywhere"
	AreaMetadata   SearchArea = "metadata"
	AreaRecord     SearchArea = "record"
)

var recordFields = []string{"content"}

// metadata is everything except the record itself and its file name
var nonMetadataFields = []string{"file_name", "content"}

// ParseSearchArea maps a raw value to a known area. Unknown or empty values
// fall back to everywhere and report ok=false for non-empty input.
func ParseSearchArea(raw string) (SearchArea, bool) {
	switch SearchArea(strings.ToLower(strings.TrimSpace(raw))) {
	case AreaEverywhere:
		return AreaEverywhere, true
	case AreaMetadata:
		return AreaMetadata, true
	case AreaRecord:
		return AreaRecord, true
	case "":
		return AreaEverywhere, true
	default:
		return AreaEverywhere, false
	}
}

// ResolveFields returns the sorted set of fields a request searches. An
// explicit field list wins over the area and every entry must exist in
// policies; a missing entry is a *ConfigurationError.
func ResolveFields(policies map[string]FieldPolicy, area SearchArea, explicit []string) ([]string, error) {
	seen := make(map[string]struct{}, len(explicit))
	selected := make([]string, 0, len(explicit))
	for _, field := range explicit {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, ok := policies[field]; !ok {
			return nil, &ConfigurationError{Field: field, Reason: "is not in the field match-policy table"}
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		selected = append(selected, field)
	}
	if len(selected) > 0 {
		sort.Strings(selected)
		return selected, nil
	}

	var fields []string
	switch area {
	case AreaRecord:
		for _, field := range recordFields {
			if _, ok := policies[field]; !ok {
				return nil, &ConfigurationError{Field: field, Reason: "is required by the record search area but has no match policy"}
			}
		}
		fields = append(fields, recordFields...)
	case AreaMetadata:
		for field := range policies {
			if !contains(nonMetadataFields, field) {
				fields = append(fields, field)
			}
		}
	default:
		for field := range policies {
			fields = append(fields, field)
		}
	}

	sort.Strings(fields)
	return fields, nil
}

// partitionFields splits fields into exact and fuzzy groups, preserving order.
func partitionFields(policies map[string]FieldPolicy, fields []string) (exact, fuzzy []string) {
	for _, field := range fields {
		if policies[field].Match == MatchFuzzy {
			fuzzy = append(fuzzy, field)
		} else {
			exact = append(exact, field)
		}
	}
	return exact, fuzzy
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
