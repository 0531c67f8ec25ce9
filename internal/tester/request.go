package tester

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/moamenhredeen/oasrec/internal/capture"
	"github.com/moamenhredeen/oasrec/internal/parser"
)

// UserAgent is sent with every request
const UserAgent = "oasrec/1.0"

// RequestBuilder builds HTTP requests from OpenAPI operations
type RequestBuilder struct {
	sampler *Sampler
}

// NewRequestBuilder creates a request builder with deterministic samples
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{sampler: NewSampler(1)}
}

// BuildRequest builds an HTTP request from an OpenAPI operation. The
// operation's summary and tags travel with the request context so that
// the recorded exchange documents the same operation.
func (rb *RequestBuilder) BuildRequest(ctx context.Context, opDetails *parser.OperationDetails, serverURL string) (*http.Request, error) {
	if opDetails == nil {
		return nil, fmt.Errorf("operation details is nil")
	}

	fullPath := opDetails.Path
	query := url.Values{}
	headers := http.Header{}
	for _, param := range opDetails.Parameters {
		if param == nil {
			continue
		}
		if param.In == "query" && (param.Required == nil || !*param.Required) && rb.sampler.rng.Float64() < 0.5 {
			continue
		}
		val, err := rb.sampler.Parameter(param)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s parameter %s: %w", param.In, param.Name, err)
		}
		switch param.In {
		case "path":
			fullPath = strings.ReplaceAll(fullPath, "{"+param.Name+"}", url.PathEscape(val))
		case "query":
			query.Add(param.Name, val)
		case "header":
			headers.Set(param.Name, val)
		}
	}

	fullURL := strings.TrimSuffix(serverURL, "/") + fullPath
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	ann := capture.Annotation{Template: opDetails.Path}
	if op := opDetails.Operation; op != nil {
		ann.Summary = op.Summary
		ann.OperationID = op.OperationId
		ann.Tags = op.Tags
	}
	ctx = capture.WithAnnotation(ctx, ann)

	var req *http.Request
	var err error
	if opDetails.RequestBody != nil && opDetails.Method != http.MethodGet && opDetails.Method != http.MethodHead {
		bodyBytes, contentType, err := rb.sampler.RequestBody(opDetails.RequestBody)
		if err != nil {
			return nil, fmt.Errorf("failed to generate request body: %w", err)
		}
		req, err = http.NewRequestWithContext(ctx, opDetails.Method, fullURL, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
	} else {
		req, err = http.NewRequestWithContext(ctx, opDetails.Method, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	for name, values := range headers {
		req.Header[name] = values
	}

	return req, nil
}
