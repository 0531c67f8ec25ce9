// Package generator folds observed exchanges into per-operation schemas and
// assembles them into a candidate OpenAPI document.
package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/moamenhredeen/oasrec/internal/models"
	"github.com/moamenhredeen/oasrec/internal/schema"
	"github.com/moamenhredeen/oasrec/internal/tree"
)

// ErrMalformedExchange is logged for exchanges that cannot be used for
// inference; the exchange is skipped and accumulation continues.
var ErrMalformedExchange = errors.New("malformed exchange")

// Config controls the candidate document
type Config struct {
	OpenAPIVersion string
	Title          string
	Version        string
	Servers        []string

	// Header names documented as parameters or response headers
	RequestHeaders  []string
	ResponseHeaders []string

	// 0 disables examples, 1 emits a single example, more emits a named
	// examples map of at most that size.
	MaxExamples int
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() Config {
	return Config{
		OpenAPIVersion: "3.0.3",
		Title:          "API",
		Version:        "1.0.0",
		MaxExamples:    1,
	}
}

var templateParam = regexp.MustCompile(`\{([^{}]+)\}`)

// PathParams returns the parameter names of a path template in order
func PathParams(template string) []string {
	var names []string
	for _, m := range templateParam.FindAllStringSubmatch(template, -1) {
		names = append(names, m[1])
	}
	return names
}

type paramKey struct {
	name string
	in   string
}

type param struct {
	paramKey
	schema *schema.Node
	seen   int
}

type example struct {
	name    string
	summary string
	value   *tree.Node
}

type media struct {
	contentType string
	schema      *schema.Node
	examples    []example
}

// content keeps media types in first-seen order
type content struct {
	media []*media
}

func (c *content) get(contentType string) *media {
	for _, m := range c.media {
		if m.contentType == contentType {
			return m
		}
	}
	m := &media{contentType: contentType, schema: &schema.Node{Kind: schema.Unknown}}
	c.media = append(c.media, m)
	return m
}

type header struct {
	name   string
	schema *schema.Node
}

type response struct {
	status      int
	description string
	headers     []*header
	content     content
}

type operation struct {
	key         models.OperationKey
	summary     string
	operationID string
	tags        []string

	exchanges int
	params    []*param
	bodies    int
	request   content
	responses map[int]*response
}

// Accumulator collects exchanges per operation. It is not safe for
// concurrent use; combine per-worker logs before accumulating.
type Accumulator struct {
	cfg     Config
	log     *zap.Logger
	ops     map[models.OperationKey]*operation
	skipped int
}

// NewAccumulator creates an empty accumulator. A nil logger discards logs.
func NewAccumulator(cfg Config, log *zap.Logger) *Accumulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Accumulator{
		cfg: cfg,
		log: log,
		ops: make(map[models.OperationKey]*operation),
	}
}

// Skipped returns the number of exchanges rejected as malformed
func (a *Accumulator) Skipped() int {
	return a.skipped
}

// Len returns the number of operations seen so far
func (a *Accumulator) Len() int {
	return len(a.ops)
}

// Add folds one exchange into its operation. A malformed exchange is
// logged, counted and otherwise ignored.
func (a *Accumulator) Add(ex models.Exchange) {
	reqBody, resBody, err := decodeBodies(ex)
	if err != nil {
		a.skipped++
		a.log.Warn("skipping exchange",
			zap.String("operation", ex.Key().String()),
			zap.Int("status", ex.StatusCode),
			zap.Error(err),
		)
		return
	}

	key := ex.Key()
	op, ok := a.ops[key]
	if !ok {
		op = &operation{key: key, responses: make(map[int]*response)}
		a.ops[key] = op
	}
	op.exchanges++
	if op.summary == "" {
		op.summary = ex.Summary
	}
	if op.operationID == "" {
		op.operationID = ex.OperationID
	}
	for _, tag := range ex.Tags {
		if !slices.Contains(op.tags, tag) {
			op.tags = append(op.tags, tag)
		}
	}

	for _, name := range PathParams(ex.Path) {
		op.observeParam(paramKey{name, "path"}, ex.PathParams[name])
	}
	for _, name := range sortedKeys(ex.Query) {
		op.observeParam(paramKey{name, "query"}, ex.Query[name])
	}
	for _, name := range a.cfg.RequestHeaders {
		if v, ok := lookupHeader(ex.RequestHeaders, name); ok {
			op.observeParam(paramKey{http.CanonicalHeaderKey(name), "header"}, v)
		}
	}

	if reqBody != nil {
		op.bodies++
		a.observeMedia(op.request.get(mediaType(ex.RequestContentType)), reqBody, ex.Description)
	}

	res, ok := op.responses[ex.StatusCode]
	if !ok {
		res = &response{status: ex.StatusCode}
		op.responses[ex.StatusCode] = res
	}
	if res.description == "" {
		res.description = ex.Description
	}
	for _, name := range a.cfg.ResponseHeaders {
		v, ok := lookupHeader(ex.ResponseHeaders, name)
		if !ok {
			continue
		}
		res.observeHeader(http.CanonicalHeaderKey(name), v)
	}
	if resBody != nil {
		a.observeMedia(res.content.get(mediaType(ex.ResponseContentType)), resBody, ex.Description)
	}
}

func (op *operation) observeParam(k paramKey, value string) {
	for _, p := range op.params {
		if p.paramKey == k {
			p.schema = schema.Merge(p.schema, ParamSchema(value))
			p.seen++
			return
		}
	}
	op.params = append(op.params, &param{paramKey: k, schema: ParamSchema(value), seen: 1})
}

func (res *response) observeHeader(name, value string) {
	for _, h := range res.headers {
		if h.name == name {
			h.schema = schema.Merge(h.schema, ParamSchema(value))
			return
		}
	}
	res.headers = append(res.headers, &header{name: name, schema: ParamSchema(value)})
}

func (a *Accumulator) observeMedia(m *media, body *tree.Node, description string) {
	m.schema = schema.Merge(m.schema, schema.Infer(body))
	if len(m.examples) >= a.cfg.MaxExamples {
		return
	}
	name := exampleName(description, len(m.examples)+1)
	for _, e := range m.examples {
		if e.name == name {
			name = exampleName("", len(m.examples)+1)
			break
		}
	}
	m.examples = append(m.examples, example{name: name, summary: description, value: body.Clone()})
}

// ParamSchema infers the schema of a parameter or header from its string
// form: integers, numbers and booleans are recognized, anything else is a
// string.
func ParamSchema(value string) *schema.Node {
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return &schema.Node{Kind: schema.Integer}
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return &schema.Node{Kind: schema.Number}
	}
	if value == "true" || value == "false" {
		return &schema.Node{Kind: schema.Boolean}
	}
	return schema.Infer(tree.FromString(value))
}

// decodeBodies parses both bodies up front so that a malformed exchange
// leaves the accumulator untouched. Empty bodies decode to nil.
func decodeBodies(ex models.Exchange) (req, res *tree.Node, err error) {
	if ex.Method == "" || ex.Path == "" {
		return nil, nil, fmt.Errorf("%w: missing method or path", ErrMalformedExchange)
	}
	if ex.StatusCode < 100 || ex.StatusCode > 599 {
		return nil, nil, fmt.Errorf("%w: status code %d", ErrMalformedExchange, ex.StatusCode)
	}
	if req, err = decodeBody(ex.RequestContentType, ex.RequestBody); err != nil {
		return nil, nil, fmt.Errorf("%w: request body: %w", ErrMalformedExchange, err)
	}
	if res, err = decodeBody(ex.ResponseContentType, ex.ResponseBody); err != nil {
		return nil, nil, fmt.Errorf("%w: response body: %w", ErrMalformedExchange, err)
	}
	return req, res, nil
}

func decodeBody(contentType, body string) (*tree.Node, error) {
	if body == "" {
		return nil, nil
	}
	if !IsJSON(contentType) {
		return tree.FromString(body), nil
	}
	if !json.Valid([]byte(body)) {
		return nil, errors.New("invalid json")
	}
	return tree.Decode([]byte(body))
}

// IsJSON reports whether a content type carries JSON
func IsJSON(contentType string) bool {
	mt := mediaType(contentType)
	return strings.HasSuffix(mt, "/json") || strings.HasSuffix(mt, "+json")
}

// mediaType strips parameters such as charset from a content type
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	mt = strings.ToLower(strings.TrimSpace(mt))
	if mt == "" {
		return "application/octet-stream"
	}
	return mt
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	if v, ok := headers[http.CanonicalHeaderKey(name)]; ok {
		return v, true
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func exampleName(description string, n int) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(description), "_"), "_")
	if slug == "" {
		return "example_" + strconv.Itoa(n)
	}
	return slug
}
