package tester

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// ErrNoSchema is returned when there is no schema to sample from
var ErrNoSchema = errors.New("no schema")

// maxDepth stops sampling recursive schemas
const maxDepth = 8

// Sampler produces request values from OpenAPI schemas. Examples and
// defaults win over generated values; generated values are deterministic
// for a given seed.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler creates a sampler seeded with seed
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Value samples a value for schema
func (s *Sampler) Value(schema *base.Schema) (any, error) {
	if schema == nil {
		return nil, ErrNoSchema
	}
	return s.value(schema, 0), nil
}

func (s *Sampler) value(schema *base.Schema, depth int) any {
	if schema.Example != nil {
		var v any
		if err := schema.Example.Decode(&v); err == nil {
			return v
		}
	}
	if schema.Default != nil {
		var v any
		if err := schema.Default.Decode(&v); err == nil {
			return v
		}
	}
	if len(schema.Enum) > 0 && schema.Enum[0] != nil {
		var v any
		if err := schema.Enum[0].Decode(&v); err == nil {
			return v
		}
	}
	if depth > maxDepth {
		return nil
	}

	if len(schema.AllOf) > 0 {
		return s.allOf(schema.AllOf, depth)
	}
	for _, alts := range [][]*base.SchemaProxy{schema.OneOf, schema.AnyOf} {
		if len(alts) == 0 {
			continue
		}
		if sub := alts[0].Schema(); sub != nil {
			return s.value(sub, depth+1)
		}
	}

	if len(schema.Type) > 0 {
		switch schema.Type[0] {
		case "string":
			return s.stringValue(schema)
		case "integer":
			return int64(s.number(schema, 0, 100))
		case "number":
			return s.number(schema, 0, 100)
		case "boolean":
			return true
		case "array":
			return s.array(schema, depth)
		case "object":
			return s.object(schema, depth)
		case "null":
			return nil
		}
	}
	if schema.Properties != nil && schema.Properties.Len() > 0 {
		return s.object(schema, depth)
	}
	if schema.Format != "" {
		return s.formatted(schema.Format)
	}
	return "sample"
}

// allOf merges the object samples of every member
func (s *Sampler) allOf(members []*base.SchemaProxy, depth int) any {
	merged := map[string]any{}
	var last any
	for _, m := range members {
		sub := m.Schema()
		if sub == nil {
			continue
		}
		v := s.value(sub, depth+1)
		obj, ok := v.(map[string]any)
		if !ok {
			last = v
			continue
		}
		for k, val := range obj {
			merged[k] = val
		}
	}
	if len(merged) == 0 && last != nil {
		return last
	}
	return merged
}

func (s *Sampler) stringValue(schema *base.Schema) string {
	if schema.Format != "" {
		if str, ok := s.formatted(schema.Format).(string); ok {
			return str
		}
	}
	if schema.Pattern != "" {
		// patterns are not expanded
		return "sample"
	}

	minLength, maxLength := 1, 10
	if schema.MinLength != nil {
		minLength = int(*schema.MinLength)
	}
	if schema.MaxLength != nil {
		maxLength = int(*schema.MaxLength)
	}
	length := minLength
	if maxLength > minLength {
		length = minLength + s.rng.Intn(maxLength-minLength+1)
	}
	if length <= 0 {
		return ""
	}
	return strings.Repeat("a", length)
}

func (s *Sampler) number(schema *base.Schema, lo, hi float64) float64 {
	if schema.Minimum != nil {
		lo = *schema.Minimum
	}
	if schema.Maximum != nil {
		hi = *schema.Maximum
	}
	if hi < lo {
		hi = lo
	}
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *Sampler) array(schema *base.Schema, depth int) []any {
	minItems, maxItems := 1, 3
	if schema.MinItems != nil {
		minItems = int(*schema.MinItems)
	}
	if schema.MaxItems != nil {
		maxItems = int(*schema.MaxItems)
	}
	count := minItems
	if maxItems > minItems {
		count = minItems + s.rng.Intn(maxItems-minItems+1)
	}

	var items *base.Schema
	if schema.Items != nil && schema.Items.IsA() && schema.Items.A != nil {
		items = schema.Items.A.Schema()
	}
	result := make([]any, count)
	for i := range result {
		if items == nil {
			result[i] = "item"
			continue
		}
		result[i] = s.value(items, depth+1)
	}
	return result
}

// object fills required properties always and optional ones at random
func (s *Sampler) object(schema *base.Schema, depth int) map[string]any {
	result := make(map[string]any)
	if schema.Properties == nil {
		return result
	}
	for pair := schema.Properties.First(); pair != nil; pair = pair.Next() {
		name := pair.Key()
		required := false
		for _, r := range schema.Required {
			if r == name {
				required = true
				break
			}
		}
		if !required && s.rng.Float64() < 0.5 {
			continue
		}
		if sub := pair.Value().Schema(); sub != nil {
			result[name] = s.value(sub, depth+1)
		}
	}
	return result
}

func (s *Sampler) formatted(format string) any {
	switch format {
	case "date":
		return "2024-01-02"
	case "date-time":
		return "2024-01-02T03:04:05Z"
	case "email":
		return "test@example.com"
	case "uri", "url":
		return "https://example.com"
	case "uuid":
		return "123e4567-e89b-12d3-a456-426614174000"
	case "int32":
		return s.rng.Int31n(1000)
	case "int64":
		return s.rng.Int63n(1000)
	case "float", "double":
		return s.rng.Float64() * 100
	default:
		return "sample"
	}
}

// Parameter samples a parameter value in its string form
func (s *Sampler) Parameter(param *v3.Parameter) (string, error) {
	if param == nil {
		return "", fmt.Errorf("parameter: %w", ErrNoSchema)
	}
	if param.Example != nil {
		var v any
		if err := param.Example.Decode(&v); err == nil {
			return fmt.Sprint(v), nil
		}
	}
	if param.Schema != nil {
		if schema := param.Schema.Schema(); schema != nil {
			return fmt.Sprint(s.value(schema, 0)), nil
		}
	}
	return "sample", nil
}

// RequestBody samples a request body, preferring a JSON media type
func (s *Sampler) RequestBody(requestBody *v3.RequestBody) ([]byte, string, error) {
	if requestBody == nil || requestBody.Content == nil || requestBody.Content.Len() == 0 {
		return nil, "", fmt.Errorf("request body: %w", ErrNoSchema)
	}

	var contentType string
	var media *v3.MediaType
	for pair := requestBody.Content.First(); pair != nil; pair = pair.Next() {
		if contentType == "" || (!strings.Contains(contentType, "json") && strings.Contains(pair.Key(), "json")) {
			contentType, media = pair.Key(), pair.Value()
		}
	}

	var value any = map[string]any{}
	switch {
	case media != nil && media.Example != nil:
		if err := media.Example.Decode(&value); err != nil {
			return nil, "", fmt.Errorf("failed to decode example: %w", err)
		}
	case media != nil && media.Schema != nil && media.Schema.Schema() != nil:
		value = s.value(media.Schema.Schema(), 0)
	}

	if !strings.Contains(contentType, "json") {
		return []byte(fmt.Sprint(value)), contentType, nil
	}
	body, err := json.Marshal(value)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode request body: %w", err)
	}
	return body, contentType, nil
}
