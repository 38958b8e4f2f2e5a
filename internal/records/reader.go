// Package records reads record fixtures and exports for bulk loading.
package records

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ayr-records/recordsearch/internal/types"
)

// ReadFile decodes a record list, choosing the decoder by file extension:
// .yaml/.yml and .json hold a list of records, .csv one record per row.
func ReadFile(path string) ([]types.RecordDocument, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml", ".json", ".csv":
	default:
		return nil, fmt.Errorf("unsupported records file extension %q: use .yaml, .yml, .json or .csv", ext)
	}

	if ext == ".csv" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open records file: %w", err)
		}
		defer file.Close()
		return ReadCSV(file, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	var docs []types.RecordDocument
	if ext == ".json" {
		err = json.Unmarshal(data, &docs)
	} else {
		err = yaml.Unmarshal(data, &docs)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return docs, nil
}
