package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/ayr-records/recordsearch/internal/query"
	"github.com/ayr-records/recordsearch/internal/types"
)

// DefaultBulkBatchSize is the number of records sent per bulk request.
const DefaultBulkBatchSize = 500

const indexDateFormat = "yyyy-MM-dd||strict_date_optional_time"

// identifier fields that are stored and filtered on but not searched.
var storedKeywordFields = []string{"file_id", "file_path", "transferring_body_id", "consignment_id"}

// DocumentsMapping returns the index mapping for record documents. Every
// searchable field is text with a keyword sub-field; date-named fields are
// dates.
func DocumentsMapping(policies map[string]query.FieldPolicy) map[string]interface{} {
	properties := make(map[string]interface{}, len(policies)+len(storedKeywordFields))

	fields := make([]string, 0, len(policies))
	for field := range policies {
		fields = append(fields, field)
	}
	fields = append(fields, storedKeywordFields...)
	sort.Strings(fields)

	for _, field := range fields {
		if strings.Contains(field, "date") {
			properties[field] = map[string]interface{}{
				"type":   "date",
				"format": indexDateFormat,
			}
			continue
		}
		properties[field] = map[string]interface{}{
			"type": "text",
			"fields": map[string]interface{}{
				"keyword": map[string]interface{}{
					"type":         "keyword",
					"ignore_above": 256,
				},
			},
		}
	}

	return map[string]interface{}{
		"settings": map[string]interface{}{
			"index": map[string]interface{}{
				"number_of_shards":   1,
				"number_of_replicas": 1,
			},
		},
		"mappings": map[string]interface{}{
			"properties": properties,
		},
	}
}

// CreateDocumentsIndex creates index with the record documents mapping.
func (c *Client) CreateDocumentsIndex(ctx context.Context, index string) error {
	body, err := json.Marshal(DocumentsMapping(query.FieldPolicies))
	if err != nil {
		return WrapError(err, types.ErrorTypeOpenSearchMapping, index)
	}

	operation := func() error {
		if err := c.WaitForRateLimit(ctx); err != nil {
			return WrapError(err, types.ErrorTypeRateLimit, index)
		}
		req := opensearchapi.IndicesCreateReq{
			Index: index,
			Body:  bytes.NewReader(body),
		}
		return c.do(ctx, req, nil, "CreateIndex")
	}

	startTime := time.Now()
	err = c.ExecuteWithRetry(ctx, operation, fmt.Sprintf("CreateIndex[%s]", index))
	c.RecordRequest(time.Since(startTime), err == nil)
	if err != nil {
		return WrapError(err, types.ErrorTypeOpenSearchMapping, index)
	}

	log.Printf("opensearch: created index %s", index)
	return nil
}

// IndexExists reports whether index exists.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	if err := c.WaitForRateLimit(ctx); err != nil {
		return false, WrapError(err, types.ErrorTypeRateLimit, index)
	}

	resp, err := c.client.Client.Do(ctx, opensearchapi.IndicesExistsReq{Indices: []string{index}}, nil)
	if err != nil {
		return false, classifyError(err, "IndexExists")
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	switch {
	case resp.StatusCode == 404:
		return false, nil
	case resp.IsError():
		searchErr := ClassifyHTTPError(resp.StatusCode, "")
		searchErr.Operation = "IndexExists"
		return false, searchErr
	}
	return true, nil
}

func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	operation := func() error {
		if err := c.WaitForRateLimit(ctx); err != nil {
			return WrapError(err, types.ErrorTypeRateLimit, index)
		}
		return c.do(ctx, opensearchapi.IndicesDeleteReq{Indices: []string{index}}, nil, "DeleteIndex")
	}

	if err := c.ExecuteWithRetry(ctx, operation, fmt.Sprintf("DeleteIndex[%s]", index)); err != nil {
		return WrapError(err, types.ErrorTypeOpenSearchIndexing, index)
	}
	log.Printf("opensearch: deleted index %s", index)
	return nil
}

// bulkResponse is the subset of the _bulk response body the client reads.
type bulkResponse struct {
	Errors bool                          `json:"errors"`
	Items  []map[string]bulkResponseItem `json:"items"`
}

type bulkResponseItem struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

// IndexDocuments bulk-indexes docs into index in batches, using file_id as
// the document id. Invalid documents fail the whole call before anything is
// sent. It returns the number of documents indexed.
func (c *Client) IndexDocuments(ctx context.Context, index string, docs []types.RecordDocument) (int, error) {
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return 0, WrapError(err, types.ErrorTypeValidation, fmt.Sprintf("document %d", i))
		}
	}

	indexed := 0
	for start := 0; start < len(docs); start += DefaultBulkBatchSize {
		end := start + DefaultBulkBatchSize
		if end > len(docs) {
			end = len(docs)
		}

		n, err := c.indexBatch(ctx, index, docs[start:end])
		indexed += n
		if err != nil {
			return indexed, err
		}
		log.Printf("opensearch: bulk progress %d/%d documents", indexed, len(docs))
	}
	return indexed, nil
}

func (c *Client) indexBatch(ctx context.Context, index string, docs []types.RecordDocument) (int, error) {
	body, err := buildBulkBody(index, docs)
	if err != nil {
		return 0, WrapError(err, types.ErrorTypeValidation, "bulk body")
	}

	var resp bulkResponse
	operation := func() error {
		if err := c.WaitForRateLimit(ctx); err != nil {
			return WrapError(err, types.ErrorTypeRateLimit, index)
		}
		resp = bulkResponse{}
		req := opensearchapi.BulkReq{
			Index: index,
			Body:  bytes.NewReader(body),
		}
		return c.do(ctx, req, &resp, "Bulk")
	}

	startTime := time.Now()
	err = c.ExecuteWithRetry(ctx, operation, fmt.Sprintf("Bulk[%d docs]", len(docs)))
	c.RecordRequest(time.Since(startTime), err == nil)
	if err != nil {
		return 0, WrapError(err, types.ErrorTypeOpenSearchBulkIndex, index)
	}

	if !resp.Errors {
		return len(docs), nil
	}

	var failed []string
	for _, item := range resp.Items {
		for _, result := range item {
			if result.Status < 300 {
				continue
			}
			reason := fmt.Sprintf("status %d", result.Status)
			if result.Error != nil {
				reason = result.Error.Reason
			}
			failed = append(failed, fmt.Sprintf("%s: %s", result.ID, reason))
		}
	}
	searchErr := NewSearchError(types.ErrorTypeOpenSearchBulkIndex,
		fmt.Sprintf("%d of %d documents failed: %s", len(failed), len(docs), strings.Join(failed, "; ")))
	searchErr.Operation = index
	return len(docs) - len(failed), searchErr
}

func buildBulkBody(index string, docs []types.RecordDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": index,
				"_id":    docs[i].FileID,
			},
		}
		if err := enc.Encode(action); err != nil {
			return nil, err
		}
		if err := enc.Encode(&docs[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
