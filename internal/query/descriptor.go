package query

import (
	"math"
	"strconv"
)

const (
	// tieBreaker lets a token that matches several fuzzy fields score a
	// little above one matching a single field.
	tieBreaker    = 0.3
	maxExpansions = 50

	transferringBodyField = "transferring_body_id.keyword"
	seriesFilterField     = "series_name.keyword"
	dateFilterField       = "date_last_modified"
	tieBreakSortField     = "file_name.keyword"
)

// Occurrence says how a clause contributes to a match.
type Occurrence string

const (
	OccurMust   Occurrence = "must"
	OccurShould Occurrence = "should"
	OccurFilter Occurrence = "filter"
)

// FieldTarget is one field a clause searches, with its effective boost.
type FieldTarget struct {
	Field        string  `json:"field"`
	Boost        float64 `json:"boost"`
	PrefixLength int     `json:"prefix_length,omitempty"`
}

// Clause is a single free-text clause of a built query.
type Clause struct {
	Match  MatchType     `json:"match"`
	Occur  Occurrence    `json:"occur"`
	Query  string        `json:"query"`
	Fields []FieldTarget `json:"fields"`
	// Fuzziness is the engine parameter; EditDistance is what it resolves
	// to for Query as a whole.
	Fuzziness    string `json:"fuzziness,omitempty"`
	EditDistance int    `json:"edit_distance"`
}

// ClauseGroup is a set of should clauses with its own match floor.
type ClauseGroup struct {
	Match              MatchType `json:"match"`
	Clauses            []Clause  `json:"clauses"`
	MinimumShouldMatch int       `json:"minimum_should_match"`
}

// TextQuery holds the free-text part of a descriptor. A document matches when
// at least MinimumShouldMatch of the groups match.
type TextQuery struct {
	Query              string        `json:"query"`
	Tokens             []string      `json:"tokens"`
	Groups             []ClauseGroup `json:"groups"`
	MinimumShouldMatch int           `json:"minimum_should_match"`
}

// Filter is a mandatory, non-scoring restriction.
type Filter struct {
	Field string     `json:"field"`
	Term  string     `json:"term,omitempty"`
	Range *DateRange `json:"range,omitempty"`
}

// Highlight configures fragment markup for fuzzy fields.
type Highlight struct {
	Tag    string   `json:"tag"`
	Fields []string `json:"fields"`
}

// SummaryAggregation groups matches by transferring body.
type SummaryAggregation struct {
	Field       string `json:"field"`
	Size        int    `json:"size"`
	SourceField string `json:"source_field"`
}

const (
	SummaryAggregationName = "aggregate_by_transferring_body"
	SummaryTopHitsName     = "top_transferring_body_hits"
)

// Descriptor is an engine-neutral description of a search, renderable to
// OpenSearch DSL with Body.
type Descriptor struct {
	Area        SearchArea          `json:"area"`
	Fields      []string            `json:"fields"`
	Text        *TextQuery          `json:"text,omitempty"`
	Filters     []Filter            `json:"filters,omitempty"`
	Highlight   *Highlight          `json:"highlight,omitempty"`
	Sort        SortKey             `json:"sort"`
	From        int                 `json:"from"`
	Size        int                 `json:"size"`
	Summary     *SummaryAggregation `json:"summary,omitempty"`
	Diagnostics []Diagnostic        `json:"diagnostics,omitempty"`
}

// Clauses flattens every free-text clause in group order.
func (d *Descriptor) Clauses() []Clause {
	if d.Text == nil {
		return nil
	}
	var clauses []Clause
	for _, group := range d.Text.Groups {
		clauses = append(clauses, group.Clauses...)
	}
	return clauses
}

// Body renders the descriptor as an OpenSearch search request body.
func (d *Descriptor) Body() map[string]interface{} {
	boolQuery := map[string]interface{}{}

	if d.Text != nil {
		boolQuery["must"] = []map[string]interface{}{d.Text.body()}
	}

	if len(d.Filters) > 0 {
		filters := make([]map[string]interface{}, 0, len(d.Filters))
		for _, f := range d.Filters {
			filters = append(filters, f.body())
		}
		boolQuery["filter"] = filters
	}

	if len(boolQuery) == 0 {
		boolQuery["must"] = []map[string]interface{}{
			{"match_all": map[string]interface{}{}},
		}
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
		"from":             d.From,
		"size":             d.Size,
		"track_total_hits": true,
	}

	if d.Summary != nil {
		body["aggs"] = d.Summary.body()
		return body
	}

	body["_source"] = true
	body["sort"] = []map[string]interface{}{
		{"_score": map[string]interface{}{"order": d.Sort.scoreOrder()}},
		{tieBreakSortField: map[string]interface{}{"order": "asc", "unmapped_type": "keyword"}},
	}

	if d.Highlight != nil && len(d.Highlight.Fields) > 0 {
		body["highlight"] = d.Highlight.body()
	}

	return body
}

func (t *TextQuery) body() map[string]interface{} {
	groups := make([]map[string]interface{}, 0, len(t.Groups))
	for _, group := range t.Groups {
		groups = append(groups, group.body())
	}
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               groups,
			"minimum_should_match": t.MinimumShouldMatch,
		},
	}
}

func (g ClauseGroup) body() map[string]interface{} {
	clauses := make([]map[string]interface{}, 0, len(g.Clauses))
	for _, clause := range g.Clauses {
		clauses = append(clauses, clause.body())
	}
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               clauses,
			"minimum_should_match": g.MinimumShouldMatch,
		},
	}
}

func (c Clause) body() map[string]interface{} {
	if c.Match == MatchExactPhrase {
		fields := make([]string, 0, len(c.Fields))
		for _, target := range c.Fields {
			fields = append(fields, target.boosted())
		}
		return map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":   c.Query,
				"fields":  fields,
				"type":    "phrase",
				"lenient": true,
			},
		}
	}

	// operator and: analysers split tokens like TDR-2023-GXFG into sub-terms,
	// and every sub-term has to match.
	queries := make([]map[string]interface{}, 0, len(c.Fields))
	for _, target := range c.Fields {
		queries = append(queries, map[string]interface{}{
			"match": map[string]interface{}{
				target.Field: map[string]interface{}{
					"query":          c.Query,
					"operator":       "and",
					"fuzziness":      c.Fuzziness,
					"prefix_length":  target.PrefixLength,
					"max_expansions": maxExpansions,
					"boost":          target.Boost,
					"lenient":        true,
				},
			},
		})
	}
	return map[string]interface{}{
		"dis_max": map[string]interface{}{
			"queries":     queries,
			"tie_breaker": tieBreaker,
		},
	}
}

func (t FieldTarget) boosted() string {
	if t.Boost == 1 {
		return t.Field
	}
	return t.Field + "^" + strconv.FormatFloat(t.Boost, 'f', -1, 64)
}

func (f Filter) body() map[string]interface{} {
	if f.Range != nil {
		return f.Range.body()
	}
	return map[string]interface{}{
		"term": map[string]interface{}{
			f.Field: f.Term,
		},
	}
}

func (h *Highlight) body() map[string]interface{} {
	fields := make(map[string]interface{}, len(h.Fields))
	for _, field := range h.Fields {
		fields[field] = map[string]interface{}{}
	}
	return map[string]interface{}{
		"pre_tags":            []string{"<" + h.Tag + ">"},
		"post_tags":           []string{"</" + h.Tag + ">"},
		"require_field_match": true,
		"fields":              fields,
	}
}

func (s *SummaryAggregation) body() map[string]interface{} {
	return map[string]interface{}{
		SummaryAggregationName: map[string]interface{}{
			"terms": map[string]interface{}{
				"field": s.Field,
				"size":  s.Size,
			},
			"aggs": map[string]interface{}{
				SummaryTopHitsName: map[string]interface{}{
					"top_hits": map[string]interface{}{
						"size":    1,
						"_source": []string{s.SourceField},
					},
				},
			},
		},
	}
}

// MatchFloor derives a minimum-should-match count from the number of should
// clauses: max(1, floor(n*Ratio)), capped at n. Zero only when n is zero.
type MatchFloor struct {
	Ratio float64
}

// Required returns how many of n should clauses must match.
func (f MatchFloor) Required(n int) int {
	if n <= 0 {
		return 0
	}
	required := int(math.Floor(float64(n) * f.Ratio))
	if required < 1 {
		required = 1
	}
	if required > n {
		required = n
	}
	return required
}
