package records

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadFileYAML(t *testing.T) {
	path := writeFile(t, "records.yaml", `
- file_id: f-1
  file_name: report.docx
  transferring_body_id: body-1
  date_last_modified: "2023-02-01"
- file_id: f-2
  file_name: minutes.pdf
  transferring_body_id: body-1
`)

	docs, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "report.docx", docs[0].FileName)
	assert.Equal(t, "2023-02-01", docs[0].DateLastModified)
	assert.Equal(t, "minutes.pdf", docs[1].FileName)
}

func TestReadFileJSON(t *testing.T) {
	path := writeFile(t, "records.json", `[{"file_id":"f-3","transferring_body_id":"body-2","series_name":"MOCK 1"}]`)

	docs, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "MOCK 1", docs[0].SeriesName)
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ReadFile(writeFile(t, "records.txt", "file_id: f-1"))
	assert.ErrorContains(t, err, "unsupported")

	_, err = ReadFile(writeFile(t, "records.json", `{"file_id": "f-1"}`))
	assert.Error(t, err, "a single object is not a record list")
}

func TestReadFileCSV(t *testing.T) {
	path := writeFile(t, "records.csv", strings.Join([]string{
		"\ufeffFile ID,File Name,Transferring Body ID,Date Last Modified,Closure-Type,Shoe Size",
		"f-1,report.docx,body-1,01/02/2023,Open,9",
		",,,,,",
		"f-2,minutes.pdf,body-1,2023-03-04T10:00:00Z,,",
	}, "\n"))

	docs, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "f-1", docs[0].FileID)
	assert.Equal(t, "report.docx", docs[0].FileName)
	assert.Equal(t, "body-1", docs[0].TransferringBodyID)
	assert.Equal(t, "2023-02-01", docs[0].DateLastModified)
	assert.Equal(t, "Open", docs[0].ClosureType)

	assert.Equal(t, "2023-03-04", docs[1].DateLastModified)
	assert.Empty(t, docs[1].ClosureType)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "empty.csv")
	assert.ErrorContains(t, err, "empty")

	_, err = ReadCSV(strings.NewReader("colour,size\nred,9\n"), "unknown.csv")
	assert.ErrorContains(t, err, "no column matches")

	_, err = ReadCSV(strings.NewReader("file_id,end_date\nf-1,sometime\n"), "dates.csv")
	assert.ErrorContains(t, err, "row 2")
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "file_name", normalizeHeader(" File Name "))
	assert.Equal(t, "closure_type", normalizeHeader("Closure-Type"))
	assert.Equal(t, "file_id", normalizeHeader("\ufeffFILE_ID"))
}
