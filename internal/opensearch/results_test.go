package opensearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostProcess(t *testing.T) {
	hits := []Hit{
		{
			ID: "f-1",
			Source: map[string]interface{}{
				"file_name":          "report.docx",
				"date_last_modified": "2023-02-01T10:00:00",
				"opening_date":       "2040-12-31",
				"end_date":           nil,
				"closure_start_date": "unknown",
			},
			Highlight: map[string][]string{
				"file_name":           {"<mark>report</mark>.docx"},
				"file_name.keyword":   {"<mark>report.docx</mark>"},
				"description.keyword": {"x"},
			},
		},
		{ID: "f-2"},
	}

	got := PostProcess(hits)

	assert.Equal(t, "report.docx", got[0].Source["file_name"])
	assert.Equal(t, "01/02/2023", got[0].Source["date_last_modified"])
	assert.Equal(t, "31/12/2040", got[0].Source["opening_date"])
	assert.Equal(t, "", got[0].Source["end_date"])
	assert.Equal(t, "unknown", got[0].Source["closure_start_date"])
	assert.Equal(t, map[string][]string{"file_name": {"<mark>report</mark>.docx"}}, got[0].Highlight)
	assert.Nil(t, got[1].Source)
}
