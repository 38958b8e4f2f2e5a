package query

import (
	"fmt"
	"strings"
	"time"
)

const (
	// indexDateLayout is the layout dates are stored and filtered with.
	indexDateLayout = "2006-01-02"
	// DisplayDateLayout is the day/month/year layout users type and read.
	DisplayDateLayout = "02/01/2006"
)

var acceptedDateLayouts = []string{
	"2/1/2006",
	indexDateLayout,
}

// ParseDate parses a calendar date in day/month/year or ISO form.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateRange is an inclusive calendar range; a nil bound is open.
type DateRange struct {
	Field string
	From  *time.Time
	To    *time.Time
}

func (r *DateRange) body() map[string]interface{} {
	bounds := map[string]interface{}{
		"format": "yyyy-MM-dd",
	}
	if r.From != nil {
		bounds["gte"] = r.From.Format(indexDateLayout)
	}
	if r.To != nil {
		bounds["lte"] = r.To.Format(indexDateLayout)
	}
	return map[string]interface{}{
		"range": map[string]interface{}{
			r.Field: bounds,
		},
	}
}

// resolveDateRange turns raw bounds into a range filter. Unparsable bounds are
// dropped with a diagnostic; an inverted range drops the filter entirely.
func resolveDateRange(field, rawFrom, rawTo string) (*DateRange, []Diagnostic) {
	var diags []Diagnostic
	rangeFilter := &DateRange{Field: field}

	if strings.TrimSpace(rawFrom) != "" {
		if t, ok := ParseDate(rawFrom); ok {
			rangeFilter.From = &t
		} else {
			diags = append(diags, Diagnostic{
				Code:    DiagInvalidDate,
				Field:   "date_from",
				Message: fmt.Sprintf("invalid date_from value %q ignored", rawFrom),
			})
		}
	}

	if strings.TrimSpace(rawTo) != "" {
		if t, ok := ParseDate(rawTo); ok {
			rangeFilter.To = &t
		} else {
			diags = append(diags, Diagnostic{
				Code:    DiagInvalidDate,
				Field:   "date_to",
				Message: fmt.Sprintf("invalid date_to value %q ignored", rawTo),
			})
		}
	}

	if rangeFilter.From == nil && rangeFilter.To == nil {
		return nil, diags
	}

	if rangeFilter.From != nil && rangeFilter.To != nil && rangeFilter.From.After(*rangeFilter.To) {
		diags = append(diags, Diagnostic{
			Code:  DiagInvertedDateRange,
			Field: "date_from",
			Message: fmt.Sprintf("date_from %s is after date_to %s; date filter dropped",
				rangeFilter.From.Format(DisplayDateLayout), rangeFilter.To.Format(DisplayDateLayout)),
		})
		return nil, diags
	}

	return rangeFilter, diags
}
