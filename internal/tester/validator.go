package tester

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/moamenhredeen/oasrec/internal/generator"
	"github.com/moamenhredeen/oasrec/internal/models"
	"github.com/moamenhredeen/oasrec/internal/schema"
	"github.com/moamenhredeen/oasrec/internal/tree"
)

// maxRefDepth bounds $ref inlining; deeper or cyclic references accept anything
const maxRefDepth = 16

// Validator checks recorded exchanges against an OpenAPI document tree
type Validator struct {
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateExchange validates one exchange against the operation doc
// documents for it
func (v *Validator) ValidateExchange(doc *tree.Node, ex models.Exchange) []models.ValidationError {
	var errors []models.ValidationError

	op, ok := doc.At(tree.Fields("paths", ex.Path, strings.ToLower(ex.Method)))
	if !ok {
		return []models.ValidationError{{
			Field:   "operation",
			Message: fmt.Sprintf("%s is not documented", ex.Key()),
		}}
	}

	if ex.RequestBody != "" {
		if content, ok := op.At(tree.Fields("requestBody", "content")); ok {
			errors = append(errors, v.validateBody(doc, "request_body", content, ex.RequestContentType, ex.RequestBody)...)
		}
	}

	responseDef, ok := findResponse(op, ex.StatusCode)
	if !ok {
		return append(errors, models.ValidationError{
			Field:   "status_code",
			Message: fmt.Sprintf("unexpected status code %d, not defined in document", ex.StatusCode),
		})
	}

	if headers, ok := responseDef.Get("headers"); ok && headers.IsMap() {
		for i, name := range headers.Keys {
			required, _ := headers.Values[i].Get("required")
			if required == nil || required.Kind != tree.BoolKind || !required.Bool {
				continue
			}
			if _, present := lookupHeader(ex.ResponseHeaders, name); !present {
				errors = append(errors, models.ValidationError{
					Field:   fmt.Sprintf("header.%s", name),
					Message: fmt.Sprintf("missing required header: %s", name),
				})
			}
		}
	}

	if content, ok := responseDef.Get("content"); ok && ex.ResponseBody != "" {
		errors = append(errors, v.validateBody(doc, "body", content, ex.ResponseContentType, ex.ResponseBody)...)
	}

	return errors
}

// findResponse looks up the exact status, then its range, then default
func findResponse(op *tree.Node, status int) (*tree.Node, bool) {
	responses, ok := op.Get("responses")
	if !ok {
		return nil, false
	}
	code := strconv.Itoa(status)
	for _, key := range []string{code, code[:1] + "XX", code[:1] + "xx", "default"} {
		if r, ok := responses.Get(key); ok && r.IsMap() {
			return r, true
		}
	}
	return nil, false
}

func (v *Validator) validateBody(doc *tree.Node, field string, content *tree.Node, contentType, body string) []models.ValidationError {
	if !content.IsMap() || content.Len() == 0 {
		return nil
	}
	mt, _, _ := strings.Cut(contentType, ";")
	mt = strings.ToLower(strings.TrimSpace(mt))

	media, ok := content.Get(mt)
	if !ok {
		return []models.ValidationError{{
			Field:   "content_type",
			Message: fmt.Sprintf("unexpected content type: %s", contentType),
		}}
	}
	s, ok := media.Get("schema")
	if !ok || !generator.IsJSON(mt) {
		return nil
	}

	if !json.Valid([]byte(body)) {
		return []models.ValidationError{{
			Field:   field,
			Message: "failed to parse JSON: invalid syntax",
		}}
	}
	value, err := tree.Decode([]byte(body))
	if err != nil {
		return []models.ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
		}}
	}
	if err := schema.Conforms(inlineRefs(doc, s, 0), value); err != nil {
		return []models.ValidationError{{Field: field, Message: err.Error()}}
	}
	return nil
}

// inlineRefs replaces local $ref schemas with their targets
func inlineRefs(doc, s *tree.Node, depth int) *tree.Node {
	switch {
	case s.IsMap():
		if ref, ok := s.Get("$ref"); ok && ref.Kind == tree.StringKind {
			target, ok := resolvePointer(doc, ref.Str)
			if !ok || depth >= maxRefDepth {
				return tree.NewMap()
			}
			return inlineRefs(doc, target, depth+1)
		}
		out := tree.NewMap()
		for i, k := range s.Keys {
			out.Set(k, inlineRefs(doc, s.Values[i], depth))
		}
		return out
	case s.IsSeq():
		items := make([]*tree.Node, len(s.Items))
		for i, item := range s.Items {
			items[i] = inlineRefs(doc, item, depth)
		}
		return tree.FromSlice(items)
	}
	return s.Clone()
}

// resolvePointer follows a local JSON pointer such as #/components/schemas/Pet
func resolvePointer(doc *tree.Node, ref string) (*tree.Node, bool) {
	pointer, ok := strings.CutPrefix(ref, "#/")
	if !ok {
		return nil, false
	}
	var p tree.Path
	for _, tok := range strings.Split(pointer, "/") {
		if unescaped, err := url.PathUnescape(tok); err == nil {
			tok = unescaped
		}
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		p = append(p, tree.Field(tok))
	}
	return doc.At(p)
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
