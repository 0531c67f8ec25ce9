package models

// Exchange is one observed HTTP request/response pair, normalized by a
// capture hook. Path is the templated route, e.g. /pets/{id}; the concrete
// segment values are in PathParams. Header names are canonical.
type Exchange struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	PathParams map[string]string `json:"path_params,omitempty"`
	Query      map[string]string `json:"query,omitempty"`

	RequestHeaders     map[string]string `json:"request_headers,omitempty"`
	RequestContentType string            `json:"request_content_type,omitempty"`
	RequestBody        string            `json:"request_body,omitempty"`

	StatusCode          int               `json:"status_code"`
	ResponseHeaders     map[string]string `json:"response_headers,omitempty"`
	ResponseContentType string            `json:"response_content_type,omitempty"`
	ResponseBody        string            `json:"response_body,omitempty"`

	// Optional documentation carried by the test that produced the exchange
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	OperationID string   `json:"operation_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Key returns the operation the exchange belongs to
func (e Exchange) Key() OperationKey {
	return NewOperationKey(e.Method, e.Path)
}
