package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/ayr-records/recordsearch/internal/types"
)

// columnIndex maps a record field's json name to its struct field index.
var columnIndex = buildColumnIndex()

func buildColumnIndex() map[string]int {
	t := reflect.TypeOf(types.RecordDocument{})
	index := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			index[name] = i
		}
	}
	return index
}

// ReadCSV reads records from CSV with a header row. Headers are matched to
// record fields case-insensitively, with spaces and dashes read as
// underscores ("File Name" is file_name). Unknown columns are ignored.
// Date columns are normalised to yyyy-mm-dd.
func ReadCSV(r io.Reader, sourcePath string) ([]types.RecordDocument, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty: %s", sourcePath)
	}

	headers := rows[0]
	columns := make([]int, len(headers))
	matched := 0
	for i, header := range headers {
		columns[i] = -1
		if field, ok := columnIndex[normalizeHeader(header)]; ok {
			columns[i] = field
			matched++
		}
	}
	if matched == 0 {
		return nil, fmt.Errorf("invalid CSV header row in file %s: no column matches a record field", sourcePath)
	}

	var docs []types.RecordDocument
	for rowIdx, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}

		rowNum := rowIdx + 2
		var doc types.RecordDocument
		v := reflect.ValueOf(&doc).Elem()
		for i, cell := range row {
			if i >= len(columns) || columns[i] < 0 {
				continue
			}
			value := strings.TrimSpace(cell)
			if value == "" {
				continue
			}
			if strings.Contains(normalizeHeader(headers[i]), "date") {
				parsed, err := parseDate(value)
				if err != nil {
					return nil, fmt.Errorf("%s row %d: %w", sourcePath, rowNum, err)
				}
				value = parsed.Format("2006-01-02")
			}
			v.Field(columns[i]).SetString(value)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func normalizeHeader(header string) string {
	h := strings.TrimPrefix(header, "\ufeff")
	h = norm.NFC.String(strings.TrimSpace(h))
	h = strings.ToLower(h)
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseDate accepts ISO dates, timestamps and the day-first layout records
// are catalogued with.
func parseDate(dateStr string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		"02/01/2006",
		"2/1/2006",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006/01/02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}
