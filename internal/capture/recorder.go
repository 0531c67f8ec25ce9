package capture

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"slices"
	"sync"

	"github.com/moamenhredeen/oasrec/internal/models"
)

// Annotation documents the operation exercised by a request
type Annotation struct {
	Summary     string
	Description string
	OperationID string
	Tags        []string

	// Template the request path was built from. It is matched against the
	// end of the request path so that server base paths are ignored.
	Template string
}

type annotationKey struct{}

// WithAnnotation attaches a to requests made with the returned context
func WithAnnotation(ctx context.Context, a Annotation) context.Context {
	return context.WithValue(ctx, annotationKey{}, a)
}

func annotationFrom(ctx context.Context) Annotation {
	a, _ := ctx.Value(annotationKey{}).(Annotation)
	return a
}

// Recorder is an http.RoundTripper that records every round trip as an
// exchange. It is safe for concurrent use.
type Recorder struct {
	next   http.RoundTripper
	router *Router

	mu        sync.Mutex
	exchanges []models.Exchange
}

// NewRecorder wraps next, http.DefaultTransport when nil. Paths are
// resolved to templates with router, which may be nil.
func NewRecorder(next http.RoundTripper, router *Router) *Recorder {
	if next == nil {
		next = http.DefaultTransport
	}
	if router == nil {
		router = NewRouter()
	}
	return &Recorder{next: next, router: router}
}

// RoundTrip implements http.RoundTripper. Bodies are buffered and handed
// on unchanged.
func (r *Recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	var reqBody []byte
	if req.Body != nil && req.Body != http.NoBody {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		reqBody = b
		req = req.Clone(req.Context())
		req.Body = io.NopCloser(bytes.NewReader(b))
	}

	resp, err := r.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	resBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(resBody))

	ex := NewExchange(r.router, req, reqBody, resp.StatusCode, resp.Header, resBody)
	r.mu.Lock()
	r.exchanges = append(r.exchanges, ex)
	r.mu.Unlock()
	return resp, nil
}

// Exchanges returns a copy of everything recorded so far
func (r *Recorder) Exchanges() []models.Exchange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.exchanges)
}

// Len returns the number of recorded exchanges
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exchanges)
}

// Reset drops recorded exchanges
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.exchanges = nil
	r.mu.Unlock()
}

// NewExchange normalizes one request/response pair
func NewExchange(router *Router, req *http.Request, reqBody []byte, status int, header http.Header, resBody []byte) models.Exchange {
	ann := annotationFrom(req.Context())
	template, params := router.Match(req.URL.EscapedPath())
	if ann.Template != "" {
		if p, ok := matchTail(ann.Template, req.URL.EscapedPath()); ok {
			template, params = ann.Template, p
		}
	}

	ex := models.Exchange{
		Method:              req.Method,
		Path:                template,
		PathParams:          params,
		RequestHeaders:      flatten(req.Header),
		RequestContentType:  req.Header.Get("Content-Type"),
		RequestBody:         string(reqBody),
		StatusCode:          status,
		ResponseHeaders:     flatten(header),
		ResponseContentType: header.Get("Content-Type"),
		ResponseBody:        string(resBody),
		Summary:             ann.Summary,
		Description:         ann.Description,
		OperationID:         ann.OperationID,
		Tags:                ann.Tags,
	}
	if q := req.URL.Query(); len(q) > 0 {
		ex.Query = make(map[string]string, len(q))
		for k := range q {
			ex.Query[k] = q.Get(k)
		}
	}
	return ex
}

// flatten keeps the first value of every header
func flatten(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[http.CanonicalHeaderKey(k)] = v[0]
		}
	}
	return out
}
