package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ayr-records/recordsearch/internal/opensearch"
	"github.com/ayr-records/recordsearch/internal/pagination"
	"github.com/ayr-records/recordsearch/internal/query"
	"github.com/ayr-records/recordsearch/internal/search"
	"github.com/ayr-records/recordsearch/internal/types"
	"github.com/ayr-records/recordsearch/internal/usage"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type searchOptions struct {
	query    string
	area     string
	fields   []string
	bodyID   string
	series   string
	dateFrom string
	dateTo   string
	sort     string
	page     int
	perPage  int
	summary  bool
	dryRun   bool
	output   string
	index    string
	timeout  time.Duration
}

var searchOpts searchOptions

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search records",
	Long: `
Search records in the documents index.

Examples:
  # Everywhere, first page
  recordsearch search -q "annual report"

  # Only within record metadata, one transferring body, a date range
  recordsearch search -q "minutes" --area metadata \
    --body-id 8ffacc5a-8f9b-4e2c-8f2e-6c1e3f1b2a10 \
    --date-from 01/01/2023 --date-to 31/12/2023

  # Print the query DSL without contacting OpenSearch
  recordsearch search -q "TDR-2023-ABC" --dry-run -o yaml
`,
	RunE: runSearch,
}

func init() {
	flags := searchCmd.Flags()
	flags.StringVarP(&searchOpts.query, "query", "q", "", "Text to search for")
	flags.StringVar(&searchOpts.area, "area", "", "Search area: everywhere|record|metadata")
	flags.StringSliceVar(&searchOpts.fields, "field", nil, "Explicit field to search (repeatable, overrides --area)")
	flags.StringVar(&searchOpts.bodyID, "body-id", "", "Restrict to one transferring body (UUID)")
	flags.StringVar(&searchOpts.series, "series", "", "Restrict to series matching this value")
	flags.StringVar(&searchOpts.dateFrom, "date-from", "", "Earliest last-modified date (dd/mm/yyyy)")
	flags.StringVar(&searchOpts.dateTo, "date-to", "", "Latest last-modified date (dd/mm/yyyy)")
	flags.StringVar(&searchOpts.sort, "sort", "", "Sort: file_name|description|metadata|content|most_matches|least_matches")
	flags.IntVarP(&searchOpts.page, "page", "p", 1, "Page number")
	flags.IntVar(&searchOpts.perPage, "per-page", 0, "Records per page (defaults to config)")
	flags.BoolVar(&searchOpts.summary, "summary", false, "Also count matches per transferring body")
	flags.BoolVar(&searchOpts.dryRun, "dry-run", false, "Print the query DSL instead of running it")
	flags.StringVarP(&searchOpts.output, "output", "o", outputText, "Output format: text|json|yaml")
	addIndexFlag(flags, &searchOpts.index)
	flags.DurationVar(&searchOpts.timeout, "timeout", 30*time.Second, "Request timeout")
}

func runSearch(cmd *cobra.Command, args []string) error {
	return executeSearch(cmd.Context(), cmd.OutOrStdout(), searchOpts)
}

func executeSearch(ctx context.Context, w io.Writer, opts searchOptions) error {
	req, err := opts.request()
	if err != nil {
		return err
	}
	if err := validateOutput(opts.output); err != nil {
		return err
	}

	cfg, done, err := setup()
	if err != nil {
		return err
	}
	defer done()

	if opts.dryRun {
		usage.Record(usage.EventDryRun)
		return printPlan(w, opts.output, cfg, req)
	}

	svcConfig := *cfg
	svcConfig.OpenSearchIndex = resolveIndex(cfg, opts.index)

	store, err := newRecordStore(&svcConfig)
	if err != nil {
		return err
	}

	svc, err := search.NewService(&svcConfig, store)
	if err != nil {
		return fmt.Errorf("failed to create search service: %w", err)
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	resp, err := svc.Search(ctx, req)
	if err != nil {
		usage.Record(usage.EventSearchFailed)
		return fmt.Errorf("search failed: %w", err)
	}
	usage.Record(usage.EventSearch)
	if resp.Total == 0 {
		usage.Record(usage.EventZeroResults)
	}

	return writeResponse(w, opts.output, opts.query, resp)
}

func (o searchOptions) request() (search.Request, error) {
	bodyID := strings.TrimSpace(o.bodyID)
	if bodyID != "" {
		if _, err := uuid.Parse(bodyID); err != nil {
			return search.Request{}, fmt.Errorf("invalid --body-id %q: %w", bodyID, err)
		}
	}

	return search.Request{
		SearchRequest: query.SearchRequest{
			Query:              o.query,
			SearchArea:         query.SearchArea(o.area),
			Fields:             o.fields,
			TransferringBodyID: bodyID,
			DateFrom:           o.dateFrom,
			DateTo:             o.dateTo,
			SeriesFilter:       o.series,
			Sort:               query.SortKey(o.sort),
			Page:               o.page,
			PerPage:            o.perPage,
		},
		WithSummary: o.summary,
	}, nil
}

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("invalid output format: %s. Valid formats: text, json, yaml", format)
	}
}

// printPlan writes the DSL a search would send. Text output falls back to
// JSON since the DSL has no table form.
func printPlan(w io.Writer, format string, cfg *types.Config, req search.Request) error {
	if req.HighlightTag == "" {
		req.HighlightTag = cfg.HighlightTag
	}

	builder := query.NewBuilder(cfg.DefaultPageSize)
	d, err := builder.Build(req.SearchRequest)
	if err != nil {
		return err
	}
	for _, diag := range d.Diagnostics {
		log.Printf("search: %s", diag)
	}

	plan := map[string]interface{}{"search": d.Body()}
	if req.WithSummary {
		summary, err := builder.BuildSummary(req.SearchRequest)
		if err != nil {
			return err
		}
		plan["summary"] = summary.Body()
	}

	if format == outputYAML {
		return writeYAML(w, plan)
	}
	return writeJSON(w, plan)
}

func writeResponse(w io.Writer, format, queryText string, resp *search.Response) error {
	switch format {
	case outputJSON:
		return writeJSON(w, resp)
	case outputYAML:
		return writeYAML(w, resp)
	default:
		printResults(w, queryText, resp)
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	return nil
}

// writeYAML round-trips v through JSON so the YAML keys follow the json tags.
func writeYAML(w io.Writer, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML output: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to marshal YAML output: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to marshal YAML output: %w", err)
	}
	return enc.Close()
}

var resultFields = []struct {
	key   string
	label string
}{
	{"file_reference", "Reference"},
	{"transferring_body", "Transferring body"},
	{"series_name", "Series"},
	{"date_last_modified", "Last modified"},
}

func printResults(w io.Writer, queryText string, resp *search.Response) {
	if queryText != "" {
		fmt.Fprintf(w, "\nQuery: %s\n", queryText)
	}
	fmt.Fprintf(w, "Found %d records (page %d of %d, %v)\n", resp.Total, resp.Page, resp.TotalPages, resp.Took)

	for _, diag := range resp.Diagnostics {
		fmt.Fprintf(w, "Note: %s\n", diag.Message)
	}

	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No records found.")
	}

	offset := (resp.Page - 1) * resp.PerPage
	for i, hit := range resp.Results {
		fmt.Fprintf(w, "\n%d. %s\n", offset+i+1, sourceString(hit.Source, "file_name", hit.ID))
		for _, f := range resultFields {
			if v := sourceString(hit.Source, f.key, ""); v != "" {
				fmt.Fprintf(w, "   %s: %s\n", f.label, v)
			}
		}
		printHighlights(w, hit)
	}

	if len(resp.Summary) > 0 {
		fmt.Fprintln(w, "\nRecords by transferring body:")
		for _, s := range resp.Summary {
			fmt.Fprintf(w, "   %s (%s): %d\n", s.TransferringBody, s.TransferringBodyID, s.Records)
		}
	}

	if resp.Pagination != nil {
		fmt.Fprintf(w, "\nPages: %s\n", formatPages(resp.Page, resp.Pagination))
	}
}

func printHighlights(w io.Writer, hit opensearch.Hit) {
	if len(hit.Highlight) == 0 {
		return
	}
	fields := make([]string, 0, len(hit.Highlight))
	for field := range hit.Highlight {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		fmt.Fprintf(w, "   ~ %s: %s\n", field, strings.Join(hit.Highlight[field], " ... "))
	}
}

func sourceString(source map[string]interface{}, key, fallback string) string {
	v, ok := source[key]
	if !ok || v == nil {
		return fallback
	}
	s := fmt.Sprint(v)
	if s == "" {
		return fallback
	}
	return s
}

func formatPages(current int, p *pagination.Pagination) string {
	parts := make([]string, 0, len(p.Pages))
	for _, page := range p.Pages {
		switch page {
		case pagination.Ellipsis:
			parts = append(parts, "...")
		case current:
			parts = append(parts, fmt.Sprintf("[%d]", page))
		default:
			parts = append(parts, fmt.Sprint(page))
		}
	}
	return strings.Join(parts, " ")
}
