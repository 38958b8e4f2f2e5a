package query

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	DefaultPerPage      = 20
	MaxPerPage          = 100
	MaxPage             = 10000
	DefaultMaxTokens    = 32
	DefaultHighlightTag = "mark"
	summaryBucketSize   = 100
)

// MaxResultWindow is OpenSearch's default index.max_result_window. The engine
// rejects from+size past it, so pages are clamped to fit.
const MaxResultWindow = 10000

// SearchRequest is a trusted search request. The caller has already scoped
// TransferringBodyID to what the user may see and validated paging.
type SearchRequest struct {
	Query      string     `json:"query"`
	SearchArea SearchArea `json:"search_area,omitempty"`
	// Fields, when set, replaces SearchArea with an explicit field set.
	Fields             []string `json:"fields,omitempty"`
	TransferringBodyID string   `json:"transferring_body_id,omitempty"`
	DateFrom           string   `json:"date_from,omitempty"`
	DateTo             string   `json:"date_to,omitempty"`
	SeriesFilter       string   `json:"series_filter,omitempty"`
	Sort               SortKey  `json:"sort,omitempty"`
	Page               int      `json:"page"`
	PerPage            int      `json:"per_page"`
	HighlightTag       string   `json:"highlight_tag,omitempty"`
}

// Builder turns search requests into descriptors. It holds no mutable state
// and is safe for concurrent use.
type Builder struct {
	policies       map[string]FieldPolicy
	fuzziness      Fuzziness
	groupFloor     MatchFloor
	tokenFloor     MatchFloor
	maxTokens      int
	defaultPerPage int
}

// NewBuilder returns a builder over FieldPolicies. A non-positive
// defaultPerPage falls back to DefaultPerPage.
func NewBuilder(defaultPerPage int) *Builder {
	if defaultPerPage <= 0 || defaultPerPage > MaxPerPage {
		defaultPerPage = DefaultPerPage
	}
	return &Builder{
		policies:       FieldPolicies,
		fuzziness:      DefaultFuzziness,
		groupFloor:     MatchFloor{Ratio: 0},
		tokenFloor:     MatchFloor{Ratio: 0.75},
		maxTokens:      DefaultMaxTokens,
		defaultPerPage: defaultPerPage,
	}
}

var defaultBuilder = NewBuilder(DefaultPerPage)

// Build builds req with the default builder.
func Build(req SearchRequest) (*Descriptor, error) {
	return defaultBuilder.Build(req)
}

// BuildSummary builds a per-transferring-body summary of req with the default
// builder.
func BuildSummary(req SearchRequest) (*Descriptor, error) {
	return defaultBuilder.BuildSummary(req)
}

// Build produces the descriptor for a results page. The only error it
// returns is *ConfigurationError; problems with user input are recorded in
// Descriptor.Diagnostics.
func (b *Builder) Build(req SearchRequest) (*Descriptor, error) {
	d, fuzzyFields, err := b.buildText(req)
	if err != nil {
		return nil, err
	}

	if id := strings.TrimSpace(req.TransferringBodyID); id != "" {
		d.Filters = append(d.Filters, Filter{Field: transferringBodyField, Term: id})
	}

	if series := strings.TrimSpace(req.SeriesFilter); series != "" {
		d.Filters = append(d.Filters, Filter{Field: seriesFilterField, Term: series})
	}

	dateRange, diags := resolveDateRange(dateFilterField, req.DateFrom, req.DateTo)
	d.Diagnostics = append(d.Diagnostics, diags...)
	if dateRange != nil {
		d.Filters = append(d.Filters, Filter{Field: dateFilterField, Range: dateRange})
	}

	b.applyWindow(d, req.Page, req.PerPage)

	if d.Text != nil && len(fuzzyFields) > 0 {
		tag := strings.TrimSpace(req.HighlightTag)
		if tag == "" {
			tag = DefaultHighlightTag
		}
		d.Highlight = &Highlight{Tag: tag, Fields: fuzzyFields}
	}

	return d, nil
}

// BuildSummary produces an aggregation-only descriptor counting matches per
// transferring body. Body, series and date filters are not applied.
func (b *Builder) BuildSummary(req SearchRequest) (*Descriptor, error) {
	d, _, err := b.buildText(req)
	if err != nil {
		return nil, err
	}
	d.From = 0
	d.Size = 0
	d.Summary = &SummaryAggregation{
		Field:       transferringBodyField,
		Size:        summaryBucketSize,
		SourceField: "transferring_body",
	}
	return d, nil
}

func (b *Builder) buildText(req SearchRequest) (*Descriptor, []string, error) {
	d := &Descriptor{}

	area, ok := ParseSearchArea(string(req.SearchArea))
	if !ok {
		d.Diagnostics = append(d.Diagnostics, Diagnostic{
			Code:    DiagUnknownSearchArea,
			Field:   "search_area",
			Message: fmt.Sprintf("unknown search area %q, searching everywhere", req.SearchArea),
		})
	}
	d.Area = area

	sortKey, ok := ParseSortKey(string(req.Sort))
	if !ok {
		d.Diagnostics = append(d.Diagnostics, Diagnostic{
			Code:    DiagUnknownSort,
			Field:   "sort",
			Message: fmt.Sprintf("unknown sort %q, sorting by %s", req.Sort, SortFileName),
		})
	}
	d.Sort = sortKey

	fields, err := ResolveFields(b.policies, area, req.Fields)
	if err != nil {
		return nil, nil, err
	}
	d.Fields = fields

	text, tokens, truncated := b.tokenize(req.Query)
	if truncated {
		d.Diagnostics = append(d.Diagnostics, Diagnostic{
			Code:    DiagTokensTruncated,
			Field:   "query",
			Message: fmt.Sprintf("query truncated to its first %d distinct terms", b.maxTokens),
		})
	}
	if len(tokens) == 0 {
		d.Diagnostics = append(d.Diagnostics, Diagnostic{
			Code:    DiagEmptyQuery,
			Field:   "query",
			Message: "empty query, applying filters only",
		})
		return d, nil, nil
	}

	exactFields, fuzzyFields := partitionFields(b.policies, fields)
	textQuery := &TextQuery{Query: text, Tokens: tokens}

	if len(exactFields) > 0 {
		group := ClauseGroup{Match: MatchExactPhrase}
		for _, field := range exactFields {
			group.Clauses = append(group.Clauses, Clause{
				Match:  MatchExactPhrase,
				Occur:  OccurShould,
				Query:  text,
				Fields: []FieldTarget{b.target(sortKey, field)},
			})
		}
		group.MinimumShouldMatch = b.groupFloor.Required(len(group.Clauses))
		textQuery.Groups = append(textQuery.Groups, group)
	}

	if len(fuzzyFields) > 0 {
		targets := make([]FieldTarget, 0, len(fuzzyFields))
		for _, field := range fuzzyFields {
			targets = append(targets, b.target(sortKey, field))
		}
		group := ClauseGroup{Match: MatchFuzzy}
		for _, token := range tokens {
			fuzziness, distance := b.fuzziness.forToken(token)
			group.Clauses = append(group.Clauses, Clause{
				Match:        MatchFuzzy,
				Occur:        OccurShould,
				Query:        token,
				Fields:       targets,
				Fuzziness:    fuzziness,
				EditDistance: distance,
			})
		}
		group.MinimumShouldMatch = b.tokenFloor.Required(len(group.Clauses))
		textQuery.Groups = append(textQuery.Groups, group)
	}

	textQuery.MinimumShouldMatch = b.groupFloor.Required(len(textQuery.Groups))
	d.Text = textQuery

	return d, fuzzyFields, nil
}

func (b *Builder) target(sortKey SortKey, field string) FieldTarget {
	policy := b.policies[field]
	target := FieldTarget{
		Field: field,
		Boost: sortKey.boost(field, policy.Boost),
	}
	if policy.Match == MatchFuzzy {
		target.PrefixLength = policy.PrefixLength
	}
	return target
}

// tokenize normalises raw query text and splits it into distinct terms,
// compared case-insensitively, keeping first occurrences in order.
func (b *Builder) tokenize(raw string) (string, []string, bool) {
	words := strings.Fields(norm.NFKC.String(raw))
	if len(words) == 0 {
		return "", nil, false
	}

	seen := make(map[string]struct{}, len(words))
	tokens := make([]string, 0, len(words))
	truncated := false
	for _, word := range words {
		key := strings.ToLower(word)
		if _, dup := seen[key]; dup {
			continue
		}
		if len(tokens) == b.maxTokens {
			truncated = true
			break
		}
		seen[key] = struct{}{}
		tokens = append(tokens, word)
	}

	return strings.Join(words, " "), tokens, truncated
}

func (b *Builder) applyWindow(d *Descriptor, page, perPage int) {
	if page < 1 || page > MaxPage {
		adjusted := 1
		if page > MaxPage {
			adjusted = MaxPage
		}
		if page != 0 {
			d.Diagnostics = append(d.Diagnostics, Diagnostic{
				Code:    DiagPageAdjusted,
				Field:   "page",
				Message: fmt.Sprintf("page %d out of range, using %d", page, adjusted),
			})
		}
		page = adjusted
	}

	switch {
	case perPage <= 0:
		perPage = b.defaultPerPage
	case perPage > MaxPerPage:
		d.Diagnostics = append(d.Diagnostics, Diagnostic{
			Code:    DiagPageAdjusted,
			Field:   "per_page",
			Message: fmt.Sprintf("per_page %d above maximum, using %d", perPage, MaxPerPage),
		})
		perPage = MaxPerPage
	}

	if lastPage := MaxResultWindow / perPage; page > lastPage {
		d.Diagnostics = append(d.Diagnostics, Diagnostic{
			Code:    DiagPageAdjusted,
			Field:   "page",
			Message: fmt.Sprintf("page %d is past the first %d results, using %d", page, MaxResultWindow, lastPage),
		})
		page = lastPage
	}

	d.From = perPage * (page - 1)
	d.Size = perPage
}
