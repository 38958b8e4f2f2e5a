package opensearch

import (
	"strings"
	"time"

	"github.com/ayr-records/recordsearch/internal/query"
)

// Hit is one matched record.
type Hit struct {
	Index     string                 `json:"index"`
	ID        string                 `json:"id"`
	Score     float64                `json:"score"`
	Source    map[string]interface{} `json:"source"`
	Highlight map[string][]string    `json:"highlight,omitempty"`
}

// SearchResult is one page of hits plus the total match count. MaxScore is
// the best score on the page.
type SearchResult struct {
	Total     int           `json:"total"`
	MaxScore  float64       `json:"max_score"`
	Took      time.Duration `json:"took"`
	TimedOut  bool          `json:"timed_out"`
	Hits      []Hit         `json:"hits"`
	FromIndex string        `json:"from_index"`
}

// BodySummary counts the matches held for one transferring body.
type BodySummary struct {
	TransferringBodyID string `json:"transferring_body_id"`
	TransferringBody   string `json:"transferring_body"`
	Records            int    `json:"records"`
}

// PostProcess prepares hits for display: highlight entries for keyword
// sub-fields are dropped and source fields whose name contains "date" are
// rendered as dd/mm/yyyy. Hits are modified in place.
func PostProcess(hits []Hit) []Hit {
	for i := range hits {
		for key, value := range hits[i].Source {
			if !strings.Contains(key, "date") {
				continue
			}
			raw, _ := value.(string)
			hits[i].Source[key] = formatDisplayDate(raw)
		}
		for key := range hits[i].Highlight {
			if strings.Contains(key, ".keyword") {
				delete(hits[i].Highlight, key)
			}
		}
	}
	return hits
}

// formatDisplayDate renders an index date or timestamp as dd/mm/yyyy.
// Anything that does not start with yyyy-mm-dd is returned unchanged.
func formatDisplayDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(time.DateOnly) {
		return raw
	}
	t, err := time.Parse(time.DateOnly, raw[:len(time.DateOnly)])
	if err != nil {
		return raw
	}
	return t.Format(query.DisplayDateLayout)
}
