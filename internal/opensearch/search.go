package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/ayr-records/recordsearch/internal/query"
	"github.com/ayr-records/recordsearch/internal/types"
)

// Search runs a results-page descriptor against index.
func (c *Client) Search(ctx context.Context, index string, d *query.Descriptor) (*SearchResult, error) {
	if d == nil {
		return nil, NewSearchError(types.ErrorTypeValidation, "descriptor cannot be nil")
	}
	if d.Summary != nil {
		return nil, NewSearchError(types.ErrorTypeValidation, "summary descriptors must be run with Summary")
	}

	resp, err := c.execute(ctx, index, d, "Search")
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		Total:     resp.Hits.Total.Value,
		Took:      time.Duration(resp.Took) * time.Millisecond,
		TimedOut:  resp.Timeout,
		Hits:      make([]Hit, 0, len(resp.Hits.Hits)),
		FromIndex: index,
	}

	for _, h := range resp.Hits.Hits {
		hit := Hit{
			Index:     h.Index,
			ID:        h.ID,
			Score:     float64(h.Score),
			Highlight: h.Highlight,
		}
		if len(h.Source) > 0 {
			if err := json.Unmarshal(h.Source, &hit.Source); err != nil {
				return nil, WrapError(err, types.ErrorTypeOpenSearchResponse, fmt.Sprintf("decode hit %s", h.ID))
			}
		}
		if hit.Score > result.MaxScore {
			result.MaxScore = hit.Score
		}
		result.Hits = append(result.Hits, hit)
	}

	return result, nil
}

// Summary runs an aggregation descriptor and returns one entry per
// transferring body, in bucket order.
func (c *Client) Summary(ctx context.Context, index string, d *query.Descriptor) ([]BodySummary, error) {
	if d == nil || d.Summary == nil {
		return nil, NewSearchError(types.ErrorTypeValidation, "descriptor has no summary aggregation")
	}

	resp, err := c.execute(ctx, index, d, "Summary")
	if err != nil {
		return nil, err
	}

	summaries, err := parseSummary(resp.Aggregations, d.Summary.SourceField)
	if err != nil {
		return nil, WrapError(err, types.ErrorTypeOpenSearchResponse, "Summary")
	}
	return summaries, nil
}

func (c *Client) execute(ctx context.Context, index string, d *query.Descriptor, operationName string) (*opensearchapi.SearchResp, error) {
	startTime := time.Now()

	body, err := json.Marshal(d.Body())
	if err != nil {
		return nil, WrapError(err, types.ErrorTypeOpenSearchQuery, operationName)
	}

	var resp *opensearchapi.SearchResp
	operation := func() error {
		if err := c.WaitForRateLimit(ctx); err != nil {
			return WrapError(err, types.ErrorTypeRateLimit, operationName)
		}

		req := &opensearchapi.SearchReq{
			Indices: []string{index},
			Body:    bytes.NewReader(body),
		}
		searchResp, err := c.client.Search(ctx, req)
		if err != nil {
			return classifyError(err, operationName)
		}
		if searchResp == nil {
			return NewSearchError(types.ErrorTypeOpenSearchResponse, "received nil response from OpenSearch")
		}
		resp = searchResp
		return nil
	}

	err = c.ExecuteWithRetry(ctx, operation, fmt.Sprintf("%s[%s]", operationName, index))
	c.RecordRequest(time.Since(startTime), err == nil)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func parseSummary(raw json.RawMessage, sourceField string) ([]BodySummary, error) {
	if len(raw) == 0 {
		return []BodySummary{}, nil
	}

	var aggs map[string]struct {
		Buckets []map[string]json.RawMessage `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &aggs); err != nil {
		return nil, fmt.Errorf("failed to decode aggregations: %w", err)
	}

	buckets := aggs[query.SummaryAggregationName].Buckets
	summaries := make([]BodySummary, 0, len(buckets))
	for _, bucket := range buckets {
		var s BodySummary
		if err := json.Unmarshal(bucket["key"], &s.TransferringBodyID); err != nil {
			return nil, fmt.Errorf("failed to decode bucket key: %w", err)
		}
		if err := json.Unmarshal(bucket["doc_count"], &s.Records); err != nil {
			return nil, fmt.Errorf("failed to decode bucket count for %s: %w", s.TransferringBodyID, err)
		}

		if topHits, ok := bucket[query.SummaryTopHitsName]; ok {
			var th struct {
				Hits struct {
					Hits []struct {
						Source map[string]interface{} `json:"_source"`
					} `json:"hits"`
				} `json:"hits"`
			}
			if err := json.Unmarshal(topHits, &th); err != nil {
				return nil, fmt.Errorf("failed to decode top hits for %s: %w", s.TransferringBodyID, err)
			}
			if len(th.Hits.Hits) > 0 {
				s.TransferringBody, _ = th.Hits.Hits[0].Source[sourceField].(string)
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
