package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/moamenhredeen/oasrec/internal/models"
)

// Format represents the output format type
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ExportTestSummary exports record results to the specified format
func ExportTestSummary(summary models.TestSummary, format Format, filePath string) error {
	w, closer, err := getWriter(filePath)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	return WriteTestSummary(w, summary, format)
}

// WriteTestSummary writes record results to w
func WriteTestSummary(w io.Writer, summary models.TestSummary, format Format) error {
	switch format {
	case FormatJSON:
		return exportTestJSON(w, summary)
	case FormatCSV:
		return exportTestCSV(w, summary)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// getWriter returns an io.Writer for output (stdout or file)
func getWriter(filePath string) (io.Writer, io.Closer, error) {
	if filePath == "" {
		return os.Stdout, nil, nil
	}

	f, err := os.Create(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f, nil
}

func exportTestJSON(w io.Writer, summary models.TestSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// resultColumns are the CSV columns of a record run, in order
var resultColumns = []struct {
	name  string
	value func(models.TestResult) string
}{
	{"method", func(r models.TestResult) string { return r.Key().Method }},
	{"path", func(r models.TestResult) string { return r.Path }},
	{"operation_id", func(r models.TestResult) string { return r.OperationID }},
	{"recorded", func(r models.TestResult) string { return strconv.FormatBool(r.Recorded) }},
	{"passed", func(r models.TestResult) string { return strconv.FormatBool(r.Passed) }},
	{"status_code", func(r models.TestResult) string { return strconv.Itoa(r.StatusCode) }},
	{"response_time_ms", func(r models.TestResult) string {
		return strconv.FormatFloat(float64(r.ResponseTime.Microseconds())/1000, 'f', 2, 64)
	}},
	{"validation_errors", models.TestResult.Failures},
	{"error", func(r models.TestResult) string { return r.Error }},
}

func exportTestCSV(w io.Writer, summary models.TestSummary) error {
	cw := csv.NewWriter(w)
	row := make([]string, len(resultColumns))
	for i, c := range resultColumns {
		row[i] = c.name
	}
	if err := cw.Write(row); err != nil {
		return err
	}
	for _, r := range summary.Results {
		for i, c := range resultColumns {
			row[i] = c.value(r)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseFormat parses a string into a Format, returning error if invalid
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("invalid format '%s': must be 'json' or 'csv'", s)
	}
}
