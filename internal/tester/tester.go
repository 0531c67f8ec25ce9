package tester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/moamenhredeen/oasrec/internal/capture"
	"github.com/moamenhredeen/oasrec/internal/models"
	"github.com/moamenhredeen/oasrec/internal/parser"
	"github.com/moamenhredeen/oasrec/internal/tree"
)

// EventType represents the type of test event
type EventType int

const (
	// EventStarting indicates a request is about to be sent
	EventStarting EventType = iota
	// EventCompleted indicates a request has completed
	EventCompleted
)

// TestEvent represents an event during a recording run
type TestEvent struct {
	Type      EventType
	Operation models.Operation
	Result    *models.TestResult // nil for Starting events
	Index     int                // current test index (0-based)
	Total     int                // total number of tests
}

// OnTestEvent is a callback function for test events
type OnTestEvent func(event TestEvent)

// Run pairs the result of exercising an operation with the exchange it
// recorded, nil when the request never completed.
type Run struct {
	Result   models.TestResult
	Exchange *models.Exchange
}

// Tester exercises API operations and records the traffic
type Tester struct {
	requestBuilder *RequestBuilder
	validator      *Validator
	recorder       *capture.Recorder
	client         *http.Client
}

// NewTester creates a tester whose client records every round trip.
// router resolves recorded paths to templates.
func NewTester(timeout time.Duration, router *capture.Router) *Tester {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	recorder := capture.NewRecorder(http.DefaultTransport, router)
	return &Tester{
		requestBuilder: NewRequestBuilder(),
		validator:      NewValidator(),
		recorder:       recorder,
		client: &http.Client{
			Timeout:   timeout,
			Transport: recorder,
		},
	}
}

// Recorder returns the recorder behind the tester's client
func (t *Tester) Recorder() *capture.Recorder {
	return t.recorder
}

// TestOperation sends one request for op and records it
func (t *Tester) TestOperation(ctx context.Context, op models.Operation, p *parser.Parser) Run {
	result := models.TestResult{
		Path:        op.Path,
		Method:      op.Method,
		OperationID: op.OperationID,
	}

	opDetails, err := p.GetOperationDetails(op.Path, op.Method)
	if err != nil {
		result.Error = fmt.Sprintf("failed to get operation details: %v", err)
		return Run{Result: result}
	}

	req, err := t.requestBuilder.BuildRequest(ctx, opDetails, op.ServerURL)
	if err != nil {
		result.Error = fmt.Sprintf("failed to build request: %v", err)
		return Run{Result: result}
	}

	before := t.recorder.Len()
	startTime := time.Now()
	resp, err := t.client.Do(req)
	result.ResponseTime = time.Since(startTime)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return Run{Result: result}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	result.StatusCode = resp.StatusCode
	exchanges := t.recorder.Exchanges()
	if len(exchanges) <= before {
		result.Error = "request was not recorded"
		return Run{Result: result}
	}
	ex := exchanges[len(exchanges)-1]
	result.Recorded = true
	return Run{Result: result, Exchange: &ex}
}

// TestOperations exercises operations in order with optional live event
// reporting. It stops early when ctx is cancelled.
func (t *Tester) TestOperations(ctx context.Context, operations []models.Operation, p *parser.Parser, onEvent OnTestEvent) []Run {
	runs := make([]Run, 0, len(operations))
	total := len(operations)

	for i, op := range operations {
		if ctx.Err() != nil {
			break
		}
		if onEvent != nil {
			onEvent(TestEvent{Type: EventStarting, Operation: op, Index: i, Total: total})
		}

		run := t.TestOperation(ctx, op, p)
		runs = append(runs, run)

		if onEvent != nil {
			onEvent(TestEvent{Type: EventCompleted, Operation: op, Result: &run.Result, Index: i, Total: total})
		}
	}

	return runs
}

// Exchanges returns the exchanges recorded by runs
func Exchanges(runs []Run) []models.Exchange {
	var out []models.Exchange
	for _, r := range runs {
		if r.Exchange != nil {
			out = append(out, *r.Exchange)
		}
	}
	return out
}

// Verify validates every recorded exchange against doc and summarizes the
// runs. Runs that recorded nothing count as failed.
func (t *Tester) Verify(doc *tree.Node, runs []Run) models.TestSummary {
	summary := models.TestSummary{
		Results: make([]models.TestResult, 0, len(runs)),
	}

	for _, run := range runs {
		result := run.Result
		if run.Exchange != nil {
			result.ValidationErrors = t.validator.ValidateExchange(doc, *run.Exchange)
			if len(result.ValidationErrors) == 0 {
				result.Passed = true
			} else {
				var errorMsgs []string
				for _, ve := range result.ValidationErrors {
					errorMsgs = append(errorMsgs, fmt.Sprintf("%s: %s", ve.Field, ve.Message))
				}
				result.Error = fmt.Sprintf("validation failed: %s", strings.Join(errorMsgs, "; "))
			}
		}
		summary.AddResult(result)
	}

	return summary
}
