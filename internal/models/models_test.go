package models

import "testing"

func TestExchangeKey(t *testing.T) {
	ex := Exchange{Method: "get", Path: "/pets/{id}"}
	if got := ex.Key(); got != (OperationKey{Method: "GET", Path: "/pets/{id}"}) {
		t.Errorf("unexpected key %v", got)
	}
	if got := ex.Key().String(); got != "GET /pets/{id}" {
		t.Errorf("unexpected key string %q", got)
	}
}

func TestSummaryCounts(t *testing.T) {
	var s TestSummary
	s.AddResult(TestResult{Passed: true, Recorded: true})
	s.AddResult(TestResult{Passed: false, Recorded: true})
	s.AddResult(TestResult{Passed: false})

	if s.TotalTests != 3 || s.Passed != 1 || s.Failed != 2 || s.Recorded != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestResultFailures(t *testing.T) {
	r := TestResult{Method: "post", Path: "/pets", ValidationErrors: []ValidationError{
		{Field: "status_code", Message: "unexpected"},
		{Message: "no body"},
	}}
	if got := r.Failures(); got != "status_code: unexpected; no body" {
		t.Errorf("unexpected failures %q", got)
	}
	if got := r.Key().String(); got != "POST /pets" {
		t.Errorf("unexpected key %q", got)
	}
}
