package tester

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pb33f/libopenapi/datamodel/high/base"
	"github.com/pb33f/libopenapi/orderedmap"
)

func TestSampleString(t *testing.T) {
	s := NewSampler(1)

	val, err := s.Value(&base.Schema{Type: []string{"string"}})
	if err != nil {
		t.Fatalf("Failed to sample value: %v", err)
	}

	str, ok := val.(string)
	if !ok {
		t.Fatalf("Expected string, got %T", val)
	}
	if len(str) < 1 || len(str) > 10 {
		t.Errorf("Expected length within default bounds, got %q", str)
	}
}

func TestSampleStringFormat(t *testing.T) {
	s := NewSampler(1)
	tests := map[string]string{
		"date":      "2024-01-02",
		"date-time": "2024-01-02T03:04:05Z",
		"email":     "test@example.com",
		"uuid":      "123e4567-e89b-12d3-a456-426614174000",
	}
	for format, want := range tests {
		val, _ := s.Value(&base.Schema{Type: []string{"string"}, Format: format})
		if val != want {
			t.Errorf("%s: expected %q, got %v", format, want, val)
		}
	}
}

func TestSampleInteger(t *testing.T) {
	s := NewSampler(1)
	lo, hi := 5.0, 7.0

	for i := 0; i < 20; i++ {
		val, err := s.Value(&base.Schema{Type: []string{"integer"}, Minimum: &lo, Maximum: &hi})
		if err != nil {
			t.Fatalf("Failed to sample value: %v", err)
		}
		n, ok := val.(int64)
		if !ok {
			t.Fatalf("Expected int64, got %T", val)
		}
		if n < 5 || n > 7 {
			t.Errorf("Expected value within [5, 7], got %d", n)
		}
	}
}

func TestSampleBoolean(t *testing.T) {
	val, _ := NewSampler(1).Value(&base.Schema{Type: []string{"boolean"}})
	if _, ok := val.(bool); !ok {
		t.Errorf("Expected boolean, got %T", val)
	}
}

func TestSampleArray(t *testing.T) {
	minItems, maxItems := int64(2), int64(2)
	schema := &base.Schema{
		Type:     []string{"array"},
		MinItems: &minItems,
		MaxItems: &maxItems,
		Items: &base.DynamicValue[*base.SchemaProxy, bool]{
			A: base.CreateSchemaProxy(&base.Schema{Type: []string{"boolean"}}),
		},
	}

	val, err := NewSampler(1).Value(schema)
	if err != nil {
		t.Fatalf("Failed to sample value: %v", err)
	}
	arr, ok := val.([]any)
	if !ok {
		t.Fatalf("Expected array, got %T", val)
	}
	if len(arr) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(arr))
	}
	for _, item := range arr {
		if _, ok := item.(bool); !ok {
			t.Errorf("Expected boolean item, got %T", item)
		}
	}
}

func TestSampleObjectKeepsRequired(t *testing.T) {
	props := orderedmap.New[string, *base.SchemaProxy]()
	props.Set("id", base.CreateSchemaProxy(&base.Schema{Type: []string{"integer"}}))
	props.Set("name", base.CreateSchemaProxy(&base.Schema{Type: []string{"string"}}))
	schema := &base.Schema{
		Type:       []string{"object"},
		Properties: props,
		Required:   []string{"id"},
	}

	s := NewSampler(1)
	for i := 0; i < 10; i++ {
		val, err := s.Value(schema)
		if err != nil {
			t.Fatalf("Failed to sample value: %v", err)
		}
		obj, ok := val.(map[string]any)
		if !ok {
			t.Fatalf("Expected object, got %T", val)
		}
		if _, ok := obj["id"]; !ok {
			t.Errorf("Required property id missing from %v", obj)
		}
	}
}

func TestSampleIsDeterministic(t *testing.T) {
	schema := &base.Schema{Type: []string{"number"}}
	a, _ := NewSampler(42).Value(schema)
	b, _ := NewSampler(42).Value(schema)
	if a != b {
		t.Errorf("Expected equal samples for equal seeds, got %v and %v", a, b)
	}
}

func TestSampleNilSchema(t *testing.T) {
	if _, err := NewSampler(1).Value(nil); !errors.Is(err, ErrNoSchema) {
		t.Errorf("Expected ErrNoSchema, got %v", err)
	}
}

func TestSampleRequestBodyIsJSON(t *testing.T) {
	p := parsePetStore(t)
	details, err := p.GetOperationDetails("/pets", "POST")
	if err != nil {
		t.Fatalf("Failed to get operation details: %v", err)
	}

	body, contentType, err := NewSampler(1).RequestBody(details.RequestBody)
	if err != nil {
		t.Fatalf("Failed to sample request body: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("Expected application/json, got %s", contentType)
	}

	var pet map[string]any
	if err := json.Unmarshal(body, &pet); err != nil {
		t.Fatalf("Expected JSON body, got %q: %v", body, err)
	}
	if _, ok := pet["id"]; !ok {
		t.Errorf("Expected id in %s", body)
	}
	if _, ok := pet["name"]; !ok {
		t.Errorf("Expected name in %s", body)
	}
}
