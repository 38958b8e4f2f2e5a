package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolSection(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	querySection, ok := body["query"].(map[string]interface{})
	require.True(t, ok, "query section missing")
	boolQuery, ok := querySection["bool"].(map[string]interface{})
	require.True(t, ok, "bool query missing")
	return boolQuery
}

func groupByMatch(t *testing.T, d *Descriptor, match MatchType) ClauseGroup {
	t.Helper()
	require.NotNil(t, d.Text)
	for _, group := range d.Text.Groups {
		if group.Match == match {
			return group
		}
	}
	t.Fatalf("no %s group in descriptor", match)
	return ClauseGroup{}
}

func TestBuildEmptyQueryUsesFiltersOnly(t *testing.T) {
	d, err := Build(SearchRequest{
		Query:              "   ",
		TransferringBodyID: "c3e3fd83-4d52-4638-a085-1f4e4e4dfa50",
	})
	require.NoError(t, err)

	assert.Nil(t, d.Text)
	assert.Nil(t, d.Highlight)
	require.Len(t, d.Filters, 1)
	assert.Equal(t, transferringBodyField, d.Filters[0].Field)
	assert.Equal(t, DiagEmptyQuery, d.Diagnostics[0].Code)

	boolQuery := boolSection(t, d.Body())
	_, hasMust := boolQuery["must"]
	assert.False(t, hasMust, "filters alone must define the result set")
	filters, ok := boolQuery["filter"].([]map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{
		"term": map[string]interface{}{transferringBodyField: "c3e3fd83-4d52-4638-a085-1f4e4e4dfa50"},
	}, filters[0])
}

func TestBuildEmptyQueryWithoutFiltersMatchesAll(t *testing.T) {
	d, err := Build(SearchRequest{})
	require.NoError(t, err)

	boolQuery := boolSection(t, d.Body())
	must, ok := boolQuery["must"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, must, 1)
	_, isMatchAll := must[0]["match_all"]
	assert.True(t, isMatchAll)
}

func TestBuildSeparatesExactAndFuzzyFields(t *testing.T) {
	d, err := Build(SearchRequest{Query: "TDR-2023-GXFH", SearchArea: AreaEverywhere})
	require.NoError(t, err)

	exact := groupByMatch(t, d, MatchExactPhrase)
	fuzzy := groupByMatch(t, d, MatchFuzzy)

	for _, clause := range exact.Clauses {
		require.Len(t, clause.Fields, 1)
		policy := FieldPolicies[clause.Fields[0].Field]
		assert.Equal(t, MatchExactPhrase, policy.Match, "field %s", clause.Fields[0].Field)
		assert.Empty(t, clause.Fuzziness)
		assert.Equal(t, "TDR-2023-GXFH", clause.Query)
	}

	for _, clause := range fuzzy.Clauses {
		for _, target := range clause.Fields {
			assert.Equal(t, MatchFuzzy, FieldPolicies[target.Field].Match, "field %s", target.Field)
		}
	}

	var exactFields []string
	for _, clause := range exact.Clauses {
		exactFields = append(exactFields, clause.Fields[0].Field)
	}
	assert.Contains(t, exactFields, "consignment_reference")
	assert.Contains(t, exactFields, "date_last_modified")
}

func TestBuildIdentifierTokenIsNeverFuzzy(t *testing.T) {
	d, err := Build(SearchRequest{Query: "TDR-2023-GXFG"})
	require.NoError(t, err)

	fuzzy := groupByMatch(t, d, MatchFuzzy)
	require.Len(t, fuzzy.Clauses, 1)
	assert.Equal(t, "0", fuzzy.Clauses[0].Fuzziness)
	assert.Equal(t, 0, fuzzy.Clauses[0].EditDistance)
}

func TestBuildFuzzyMatchRequiresEverySubTerm(t *testing.T) {
	d, err := Build(SearchRequest{Query: "TDR-2023-GXFG"})
	require.NoError(t, err)

	fuzzy := groupByMatch(t, d, MatchFuzzy)
	require.Len(t, fuzzy.Clauses, 1)
	disMax := fuzzy.Clauses[0].body()["dis_max"].(map[string]interface{})
	queries := disMax["queries"].([]map[string]interface{})
	require.Len(t, queries, len(fuzzy.Clauses[0].Fields))

	for _, q := range queries {
		for field, raw := range q["match"].(map[string]interface{}) {
			params := raw.(map[string]interface{})
			assert.Equal(t, "TDR-2023-GXFG", params["query"], field)
			assert.Equal(t, "and", params["operator"], field)
			assert.Equal(t, "0", params["fuzziness"], field)
		}
	}
}

func TestBuildExactClauseRendersAsPhrase(t *testing.T) {
	d, err := Build(SearchRequest{Query: "TDR-2023-GXFH", Fields: []string{"consignment_reference"}})
	require.NoError(t, err)

	boolQuery := boolSection(t, d.Body())
	must := boolQuery["must"].([]map[string]interface{})
	outer := must[0]["bool"].(map[string]interface{})
	assert.Equal(t, 1, outer["minimum_should_match"])

	groups := outer["should"].([]map[string]interface{})
	require.Len(t, groups, 1)
	inner := groups[0]["bool"].(map[string]interface{})
	clauses := inner["should"].([]map[string]interface{})
	require.Len(t, clauses, 1)

	multiMatch, ok := clauses[0]["multi_match"].(map[string]interface{})
	require.True(t, ok, "expected multi_match clause")
	assert.Equal(t, "phrase", multiMatch["type"])
	assert.Equal(t, "TDR-2023-GXFH", multiMatch["query"])
	assert.Equal(t, []string{"consignment_reference"}, multiMatch["fields"])
	_, hasFuzziness := multiMatch["fuzziness"]
	assert.False(t, hasFuzziness)

	assert.Nil(t, d.Highlight, "exact-only searches are not highlighted")
	_, hasHighlight := d.Body()["highlight"]
	assert.False(t, hasHighlight)
}

func TestBuildFuzzyClauseRendersDisMax(t *testing.T) {
	d, err := Build(SearchRequest{Query: "fil", SearchArea: AreaRecord})
	require.NoError(t, err)

	fuzzy := groupByMatch(t, d, MatchFuzzy)
	require.Len(t, fuzzy.Clauses, 1)
	assert.Equal(t, 1, fuzzy.Clauses[0].EditDistance)
	assert.Equal(t, "AUTO:3,6", fuzzy.Clauses[0].Fuzziness)

	body := fuzzy.Clauses[0].body()
	disMax, ok := body["dis_max"].(map[string]interface{})
	require.True(t, ok)
	queries := disMax["queries"].([]map[string]interface{})
	require.Len(t, queries, 1)
	match := queries[0]["match"].(map[string]interface{})
	content := match["content"].(map[string]interface{})
	assert.Equal(t, "fil", content["query"])
	assert.Equal(t, "AUTO:3,6", content["fuzziness"])
	assert.Equal(t, "and", content["operator"])
	assert.Equal(t, true, content["lenient"])
}

func TestBuildMinimumShouldMatchNeverZero(t *testing.T) {
	cases := []struct {
		name        string
		query       string
		wantTokens  int
		wantFloor   int
		area        SearchArea
		wantGroups  int
		explicitSet []string
	}{
		{name: "single term", query: "xyzabcnonexistentterms123", wantTokens: 1, wantFloor: 1, wantGroups: 2},
		{name: "two terms", query: "annual report", wantTokens: 2, wantFloor: 1, wantGroups: 2},
		{name: "three terms", query: "annual report 2024", wantTokens: 3, wantFloor: 2, wantGroups: 2},
		{name: "four terms", query: "a b c d", wantTokens: 4, wantFloor: 3, wantGroups: 2},
		{name: "record area", query: "fil", wantTokens: 1, wantFloor: 1, area: AreaRecord, wantGroups: 1},
		{name: "duplicates collapse", query: "File file FILE", wantTokens: 1, wantFloor: 1, wantGroups: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Build(SearchRequest{Query: tc.query, SearchArea: tc.area, Fields: tc.explicitSet})
			require.NoError(t, err)
			require.NotNil(t, d.Text)

			assert.Len(t, d.Text.Tokens, tc.wantTokens)
			assert.Len(t, d.Text.Groups, tc.wantGroups)
			assert.Equal(t, 1, d.Text.MinimumShouldMatch)

			fuzzy := groupByMatch(t, d, MatchFuzzy)
			assert.Equal(t, tc.wantFloor, fuzzy.MinimumShouldMatch)
			for _, group := range d.Text.Groups {
				assert.GreaterOrEqual(t, group.MinimumShouldMatch, 1)
			}
		})
	}
}

func TestBuildHighlightsOnlyFuzzyFields(t *testing.T) {
	d, err := Build(SearchRequest{Query: "file"})
	require.NoError(t, err)
	require.NotNil(t, d.Highlight)

	assert.Equal(t, "mark", d.Highlight.Tag)
	for _, field := range d.Highlight.Fields {
		assert.Equal(t, MatchFuzzy, FieldPolicies[field].Match, "field %s", field)
	}
	assert.Contains(t, d.Highlight.Fields, "file_name")
	assert.NotContains(t, d.Highlight.Fields, "consignment_reference")

	highlight := d.Body()["highlight"].(map[string]interface{})
	assert.Equal(t, []string{"<mark>"}, highlight["pre_tags"])
	assert.Equal(t, []string{"</mark>"}, highlight["post_tags"])
	fields := highlight["fields"].(map[string]interface{})
	_, hasExact := fields["series_name"]
	assert.False(t, hasExact)
}

func TestBuildDateFilters(t *testing.T) {
	t.Run("inclusive range", func(t *testing.T) {
		d, err := Build(SearchRequest{Query: "report", DateFrom: "01/01/2023", DateTo: "2023-12-31"})
		require.NoError(t, err)
		require.Len(t, d.Filters, 1)

		rangeBody := d.Filters[0].body()["range"].(map[string]interface{})
		bounds := rangeBody[dateFilterField].(map[string]interface{})
		assert.Equal(t, "2023-01-01", bounds["gte"])
		assert.Equal(t, "2023-12-31", bounds["lte"])
	})

	t.Run("half open", func(t *testing.T) {
		d, err := Build(SearchRequest{DateTo: "5/6/2022"})
		require.NoError(t, err)
		require.Len(t, d.Filters, 1)

		bounds := d.Filters[0].body()["range"].(map[string]interface{})[dateFilterField].(map[string]interface{})
		_, hasLower := bounds["gte"]
		assert.False(t, hasLower)
		assert.Equal(t, "2022-06-05", bounds["lte"])
	})

	t.Run("invalid bound dropped with diagnostic", func(t *testing.T) {
		d, err := Build(SearchRequest{Query: "report", DateFrom: "31/02/2023", DateTo: "not a date"})
		require.NoError(t, err)
		assert.Empty(t, d.Filters)

		var codes []DiagnosticCode
		for _, diag := range d.Diagnostics {
			codes = append(codes, diag.Code)
		}
		assert.Equal(t, []DiagnosticCode{DiagInvalidDate, DiagInvalidDate}, codes)
	})

	t.Run("inverted range dropped", func(t *testing.T) {
		d, err := Build(SearchRequest{Query: "report", DateFrom: "01/01/2024", DateTo: "01/01/2023"})
		require.NoError(t, err)
		assert.Empty(t, d.Filters)
		require.Len(t, d.Diagnostics, 1)
		assert.Equal(t, DiagInvertedDateRange, d.Diagnostics[0].Code)
	})
}

func TestBuildSeriesFilter(t *testing.T) {
	d, err := Build(SearchRequest{Query: "minutes", SeriesFilter: " MOCK1 123 "})
	require.NoError(t, err)
	require.Len(t, d.Filters, 1)
	assert.Equal(t, Filter{Field: seriesFilterField, Term: "MOCK1 123"}, d.Filters[0])
}

func TestBuildUnknownExplicitFieldIsConfigurationError(t *testing.T) {
	_, err := Build(SearchRequest{Query: "file", Fields: []string{"file_name", "shoe_size"}})
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "shoe_size", cfgErr.Field)
}

func TestBuildRecordAreaNeedsPolicy(t *testing.T) {
	b := NewBuilder(DefaultPerPage)
	b.policies = map[string]FieldPolicy{
		"file_name": {Match: MatchFuzzy, Boost: 1},
	}

	_, err := b.Build(SearchRequest{Query: "file", SearchArea: AreaRecord})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "content", cfgErr.Field)
}

func TestBuildUnknownAreaAndSortDegrade(t *testing.T) {
	d, err := Build(SearchRequest{Query: "file", SearchArea: "attic", Sort: "random"})
	require.NoError(t, err)

	assert.Equal(t, AreaEverywhere, d.Area)
	assert.Equal(t, SortFileName, d.Sort)
	require.Len(t, d.Diagnostics, 2)
	assert.Equal(t, DiagUnknownSearchArea, d.Diagnostics[0].Code)
	assert.Equal(t, DiagUnknownSort, d.Diagnostics[1].Code)
}

func TestBuildSortBoosts(t *testing.T) {
	boostOf := func(d *Descriptor, field string) float64 {
		for _, clause := range d.Clauses() {
			for _, target := range clause.Fields {
				if target.Field == field {
					return target.Boost
				}
			}
		}
		t.Fatalf("field %s not found", field)
		return 0
	}

	d, err := Build(SearchRequest{Query: "file", Sort: SortDescription})
	require.NoError(t, err)
	assert.Equal(t, 3.0, boostOf(d, "description"))
	assert.Equal(t, 2.0, boostOf(d, "file_name"))
	assert.Equal(t, 1.0, boostOf(d, "content"))

	d, err = Build(SearchRequest{Query: "file", Sort: SortMetadata})
	require.NoError(t, err)
	assert.Equal(t, 100.0, boostOf(d, "closure_type"))
	assert.Equal(t, 0.2, boostOf(d, "file_name"))
	assert.Equal(t, 0.1, boostOf(d, "content"))

	d, err = Build(SearchRequest{Query: "file", Sort: SortLeastMatches})
	require.NoError(t, err)
	sortSection := d.Body()["sort"].([]map[string]interface{})
	assert.Equal(t, map[string]interface{}{"order": "asc"}, sortSection[0]["_score"])
}

func TestBuildPaginationWindow(t *testing.T) {
	cases := []struct {
		name     string
		page     int
		perPage  int
		wantFrom int
		wantSize int
		wantDiag bool
	}{
		{name: "first page default size", page: 1, wantFrom: 0, wantSize: DefaultPerPage},
		{name: "third page", page: 3, perPage: 5, wantFrom: 10, wantSize: 5},
		{name: "unset page", page: 0, perPage: 10, wantFrom: 0, wantSize: 10},
		{name: "negative page", page: -4, perPage: 10, wantFrom: 0, wantSize: 10, wantDiag: true},
		{name: "page beyond limit", page: MaxPage + 1, perPage: 1, wantFrom: MaxPage - 1, wantSize: 1, wantDiag: true},
		{name: "oversized page", page: 2, perPage: 500, wantFrom: MaxPerPage, wantSize: MaxPerPage, wantDiag: true},
		{name: "last page inside result window", page: 100, perPage: 100, wantFrom: 9900, wantSize: 100},
		{name: "page past result window", page: 250, perPage: 100, wantFrom: 9900, wantSize: 100, wantDiag: true},
		{name: "uneven page size", page: MaxPage, perPage: 3, wantFrom: 9996, wantSize: 3, wantDiag: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Build(SearchRequest{Query: "file", Page: tc.page, PerPage: tc.perPage})
			require.NoError(t, err)
			assert.Equal(t, tc.wantFrom, d.From)
			assert.Equal(t, tc.wantSize, d.Size)

			adjusted := false
			for _, diag := range d.Diagnostics {
				if diag.Code == DiagPageAdjusted {
					adjusted = true
				}
			}
			assert.Equal(t, tc.wantDiag, adjusted)
		})
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	req := SearchRequest{
		Query:              "annual report 2024 fil",
		SearchArea:         AreaEverywhere,
		TransferringBodyID: "c3e3fd83-4d52-4638-a085-1f4e4e4dfa50",
		DateFrom:           "01/01/2020",
		DateTo:             "31/12/2024",
		SeriesFilter:       "MOCK1 123",
		Sort:               SortContent,
		Page:               2,
		PerPage:            10,
	}

	first, err := Build(req)
	require.NoError(t, err)
	second, err := Build(req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Body(), second.Body())
}

func TestBuildSummaryAggregatesByTransferringBody(t *testing.T) {
	d, err := BuildSummary(SearchRequest{
		Query:              "file",
		TransferringBodyID: "c3e3fd83-4d52-4638-a085-1f4e4e4dfa50",
		Page:               4,
	})
	require.NoError(t, err)

	assert.Empty(t, d.Filters)
	assert.Equal(t, 0, d.Size)
	assert.Nil(t, d.Highlight)

	body := d.Body()
	aggs := body["aggs"].(map[string]interface{})
	byBody := aggs[SummaryAggregationName].(map[string]interface{})
	terms := byBody["terms"].(map[string]interface{})
	assert.Equal(t, transferringBodyField, terms["field"])
	_, hasSort := body["sort"]
	assert.False(t, hasSort)
}

func TestBuildNormalizesQueryText(t *testing.T) {
	d, err := Build(SearchRequest{Query: "  ｆｉｌｅ \t  report  "})
	require.NoError(t, err)
	require.NotNil(t, d.Text)
	assert.Equal(t, "file report", d.Text.Query)
	assert.Equal(t, []string{"file", "report"}, d.Text.Tokens)
}

func TestBuildTruncatesLongQueries(t *testing.T) {
	b := NewBuilder(DefaultPerPage)
	b.maxTokens = 2

	d, err := b.Build(SearchRequest{Query: "one two three"})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, d.Text.Tokens)
	assert.Equal(t, DiagTokensTruncated, d.Diagnostics[0].Code)
}
