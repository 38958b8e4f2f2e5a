package search

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ayr-records/recordsearch/internal/opensearch"
	"github.com/ayr-records/recordsearch/internal/pagination"
	"github.com/ayr-records/recordsearch/internal/query"
	"github.com/ayr-records/recordsearch/internal/types"
)

var searchTracer = otel.Tracer("recordsearch/search")

// Engine executes built descriptors. *opensearch.Client implements it.
type Engine interface {
	Search(ctx context.Context, index string, d *query.Descriptor) (*opensearch.SearchResult, error)
	Summary(ctx context.Context, index string, d *query.Descriptor) ([]opensearch.BodySummary, error)
}

// Service runs record searches against one index.
type Service struct {
	engine       Engine
	builder      *query.Builder
	index        string
	highlightTag string
	logger       *log.Logger
	stats        Stats
}

// Request is a search request plus the service-level options.
type Request struct {
	query.SearchRequest
	// WithSummary also counts matches per transferring body.
	WithSummary bool `json:"with_summary"`
}

// Response is one page of results.
type Response struct {
	Results     []opensearch.Hit         `json:"results"`
	Total       int                      `json:"total"`
	Page        int                      `json:"page"`
	PerPage     int                      `json:"per_page"`
	TotalPages  int                      `json:"total_pages"`
	Pagination  *pagination.Pagination   `json:"pagination,omitempty"`
	Summary     []opensearch.BodySummary `json:"summary,omitempty"`
	Diagnostics []query.Diagnostic       `json:"diagnostics,omitempty"`
	Took        time.Duration            `json:"took"`
}

type Option func(*Service)

// WithLogger replaces the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(cfg *types.Config, engine Engine, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("search engine cannot be nil")
	}
	if cfg.OpenSearchIndex == "" {
		return nil, fmt.Errorf("OpenSearch index not configured")
	}

	s := &Service{
		engine:       engine,
		builder:      query.NewBuilder(cfg.DefaultPageSize),
		index:        cfg.OpenSearchIndex,
		highlightTag: cfg.HighlightTag,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Plan builds the descriptors a request would run without executing them.
// The summary descriptor is nil unless the request asks for one.
func (s *Service) Plan(req Request) (*query.Descriptor, *query.Descriptor, error) {
	if req.HighlightTag == "" {
		req.HighlightTag = s.highlightTag
	}

	d, err := s.builder.Build(req.SearchRequest)
	if err != nil {
		return nil, nil, err
	}
	if !req.WithSummary {
		return d, nil, nil
	}
	summary, err := s.builder.BuildSummary(req.SearchRequest)
	if err != nil {
		return nil, nil, err
	}
	return d, summary, nil
}

// Search builds and runs the request. Builder configuration errors and
// engine errors are returned unchanged.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	ctx, span := searchTracer.Start(ctx, "search.records", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	d, summaryDesc, err := s.Plan(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build_failed")
		s.record(ctx, startTime, 0, err)
		return nil, err
	}

	for _, diag := range d.Diagnostics {
		s.logger.Printf("search: %s", diag)
	}

	span.SetAttributes(
		attribute.String("search.index", s.index),
		attribute.String("search.area", string(d.Area)),
		attribute.String("search.sort", string(d.Sort)),
		attribute.Int("search.fields", len(d.Fields)),
		attribute.Int("search.filters", len(d.Filters)),
		attribute.Int("search.from", d.From),
		attribute.Int("search.size", d.Size),
		attribute.Int("search.diagnostics", len(d.Diagnostics)),
		attribute.Bool("search.summary", summaryDesc != nil),
	)
	if d.Text != nil {
		span.SetAttributes(attribute.Int("search.tokens", len(d.Text.Tokens)))
	}

	var (
		result    *opensearch.SearchResult
		summaries []opensearch.BodySummary
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		r, err := s.engine.Search(groupCtx, s.index, d)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if summaryDesc != nil {
		group.Go(func() error {
			sm, err := s.engine.Summary(groupCtx, s.index, summaryDesc)
			if err != nil {
				return err
			}
			summaries = sm
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search_failed")
		s.record(ctx, startTime, 0, err)
		return nil, err
	}

	resp := &Response{
		Results:     opensearch.PostProcess(result.Hits),
		Total:       result.Total,
		PerPage:     d.Size,
		Summary:     summaries,
		Diagnostics: d.Diagnostics,
	}
	if d.Size > 0 {
		resp.Page = d.From/d.Size + 1
	}
	resp.TotalPages = pagination.TotalPages(resp.Total, resp.PerPage)
	if resp.PerPage > 0 && resp.TotalPages > query.MaxResultWindow/resp.PerPage {
		resp.TotalPages = query.MaxResultWindow / resp.PerPage
	}
	resp.Pagination = pagination.Window(resp.Page, resp.TotalPages)
	resp.Took = time.Since(startTime)

	s.logger.Printf("search: %d of %d records on page %d/%d in %s",
		len(resp.Results), resp.Total, resp.Page, resp.TotalPages, resp.Took)

	span.SetAttributes(
		attribute.Int("search.results.total_hits", resp.Total),
		attribute.Int("search.results.returned", len(resp.Results)),
	)
	span.SetStatus(codes.Ok, "search_completed")
	s.record(ctx, startTime, resp.Total, nil)

	return resp, nil
}

// Stats returns the service's request counters.
func (s *Service) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}
