package models

import (
	"strings"
	"time"
)

// TestResult is the outcome of recording one operation against a live server
type TestResult struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	OperationID string `json:"operation_id,omitempty"`

	// Recorded is set once the exchange reached the log, whether or not
	// the response matched the published document.
	Recorded bool   `json:"recorded"`
	Passed   bool   `json:"passed"`
	Error    string `json:"error,omitempty"`

	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time_ns"`

	ValidationErrors []ValidationError `json:"validation_errors,omitempty"`
}

// Key identifies the operation the result belongs to
func (r TestResult) Key() OperationKey {
	return NewOperationKey(r.Method, r.Path)
}

// Failures joins the validation errors into one line
func (r TestResult) Failures() string {
	msgs := make([]string, len(r.ValidationErrors))
	for i, v := range r.ValidationErrors {
		msgs[i] = v.String()
	}
	return strings.Join(msgs, "; ")
}

// ValidationError is one mismatch between a response and the published document
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// TestSummary aggregates the results of a recording run
type TestSummary struct {
	TotalTests int          `json:"total"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Recorded   int          `json:"recorded"`
	Results    []TestResult `json:"results"`
}

// AddResult adds a test result to the summary
func (s *TestSummary) AddResult(result TestResult) {
	s.TotalTests++
	s.Results = append(s.Results, result)
	if result.Recorded {
		s.Recorded++
	}
	if result.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
}
