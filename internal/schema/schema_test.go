package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamenhredeen/oasrec/internal/tree"
)

func value(t *testing.T, src string) *tree.Node {
	t.Helper()
	n, err := tree.Decode([]byte(src))
	require.NoError(t, err)
	return n
}

func inferAll(t *testing.T, srcs ...string) *Node {
	t.Helper()
	acc := &Node{Kind: Unknown}
	for _, s := range srcs {
		acc = Merge(acc, Infer(value(t, s)))
	}
	return acc
}

func TestInferScalars(t *testing.T) {
	tests := []struct {
		src  string
		kind Kind
	}{
		{`null`, Null},
		{`true`, Boolean},
		{`42`, Integer},
		{`4.5`, Number},
		{`"x"`, String},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.kind, Infer(value(t, tt.src)).Kind)
		})
	}
}

func TestInferObjectKeepsOrderAndRequiresAll(t *testing.T) {
	n := Infer(value(t, `{"id": 1, "name": "a", "tags": []}`))

	require.Equal(t, Object, n.Kind)
	names := []string{}
	for _, p := range n.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"id", "name", "tags"}, names)
	assert.Equal(t, []string{"id", "name", "tags"}, n.Required)

	tags, _ := n.Property("tags")
	assert.Equal(t, Array, tags.Kind)
	assert.Equal(t, Unknown, tags.Items.Kind)
}

func TestInferArrayMergesElements(t *testing.T) {
	n := Infer(value(t, `[1, 2.5, null]`))
	require.Equal(t, Array, n.Kind)
	assert.Equal(t, Number, n.Items.Kind)
	assert.True(t, n.Items.Nullable)
}

func TestEmptyArrayResolvesOnLaterObservation(t *testing.T) {
	n := inferAll(t, `{"tags": []}`, `{"tags": ["a"]}`)
	tags, _ := n.Property("tags")
	assert.Equal(t, String, tags.Items.Kind)
}

func TestStringFormat(t *testing.T) {
	tests := map[string]string{
		"2024-01-02T03:04:05Z":                 "date-time",
		"2024-01-02":                           "date",
		"123e4567-e89b-12d3-a456-426614174000": "uuid",
		"test@example.com":                     "email",
		"https://example.com/a":                "uri",
		"hello":                                "",
		"":                                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, StringFormat(in), in)
	}
}

func TestMergeScalars(t *testing.T) {
	tests := []struct {
		name     string
		a, b     *Node
		kind     Kind
		nullable bool
	}{
		{"same", &Node{Kind: String}, &Node{Kind: String}, String, false},
		{"numeric widen", &Node{Kind: Integer}, &Node{Kind: Number}, Number, false},
		{"null string", &Node{Kind: Null}, &Node{Kind: String}, String, true},
		{"string null", &Node{Kind: String}, &Node{Kind: Null}, String, true},
		{"null null", &Node{Kind: Null}, &Node{Kind: Null}, Null, false},
		{"unknown", &Node{Kind: Unknown}, &Node{Kind: Boolean}, Boolean, false},
		{"incompatible", &Node{Kind: Boolean}, &Node{Kind: String}, OneOf, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.a, tt.b)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.nullable, got.Nullable)
		})
	}
}

func TestMergeNullWithString(t *testing.T) {
	got := Merge(Infer(value(t, `null`)), Infer(value(t, `"a"`)))
	assert.True(t, Equal(&Node{Kind: String, Nullable: true}, got))
}

func TestMergeObjectsIntersectsRequired(t *testing.T) {
	got := inferAll(t, `{"id": 1, "name": "a"}`, `{"id": 2, "name": "b", "tag": "x"}`)

	require.Equal(t, Object, got.Kind)
	for _, name := range []string{"id", "name", "tag"} {
		_, ok := got.Property(name)
		assert.True(t, ok, name)
	}
	id, _ := got.Property("id")
	assert.Equal(t, Integer, id.Kind)
	tag, _ := got.Property("tag")
	assert.Equal(t, String, tag.Kind)
	assert.ElementsMatch(t, []string{"id", "name"}, got.Required)
}

func TestMergeDisjointRequired(t *testing.T) {
	got := inferAll(t, `{"a": 1}`, `{"b": 2}`)
	assert.Empty(t, got.Required)
	assert.Len(t, got.Properties, 2)
}

func TestMergeIsCommutativeAndIdempotent(t *testing.T) {
	samples := []string{
		`{"id": 1, "name": "a", "meta": {"x": true}}`,
		`{"id": 2.5, "meta": null, "extra": [1]}`,
		`[1, "a"]`,
		`"s"`,
		`null`,
		`{"k": [{"a": 1}, {"b": "x"}]}`,
		`[]`,
		`true`,
	}
	for _, sa := range samples {
		a := Infer(value(t, sa))
		assert.True(t, Equal(a, Merge(a, a)), "idempotent %s", sa)
		for _, sb := range samples {
			b := Infer(value(t, sb))
			ab, ba := Merge(a, b), Merge(b, a)
			assert.True(t, Equal(ab, ba), "commutative %s / %s", sa, sb)
			assert.True(t, Equal(ab, Merge(ab, ab)), "idempotent result %s / %s", sa, sb)
		}
	}
}

func TestMergeDoesNotModifyArguments(t *testing.T) {
	a := Infer(value(t, `{"a": 1}`))
	b := Infer(value(t, `{"b": null}`))
	before := a.Clone()
	Merge(a, b)
	assert.True(t, Equal(before, a))
}

func TestOneOfKeepsOneVariantPerShape(t *testing.T) {
	got := inferAll(t, `1`, `"a"`, `2.5`, `"b"`)
	require.Equal(t, OneOf, got.Kind)
	require.Len(t, got.Variants, 2)
	assert.Equal(t, Number, got.Variants[0].Kind)
	assert.Equal(t, String, got.Variants[1].Kind)
}

func TestOneOfCollapsesPastCap(t *testing.T) {
	got := inferAll(t, `true`, `1`, `"a"`, `[1]`, `{"x": 1}`)
	require.Equal(t, OneOf, got.Kind)
	require.Len(t, got.Variants, MaxOneOfVariants)
	assert.Equal(t, Boolean, got.Variants[0].Kind)
	assert.Equal(t, Integer, got.Variants[1].Kind)
	assert.Equal(t, Any, got.Variants[MaxOneOfVariants-1].Kind)

	again := Merge(got, Infer(value(t, `{"y": 2}`)))
	assert.LessOrEqual(t, len(again.Variants), MaxOneOfVariants)
}

func TestOneOfNullableLiftsToTop(t *testing.T) {
	got := inferAll(t, `1`, `null`, `"a"`)
	require.Equal(t, OneOf, got.Kind)
	assert.True(t, got.Nullable)
	for _, v := range got.Variants {
		assert.False(t, v.Nullable)
	}
}

func TestToTree(t *testing.T) {
	n := inferAll(t, `{"id": 1, "name": null, "tags": ["a"]}`, `{"id": 2, "name": "b", "tags": []}`)
	got := ToTree(n)
	want := value(t, `{
		"type": "object",
		"properties": {
			"id": {"type": "integer"},
			"name": {"type": "string", "nullable": true},
			"tags": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["id", "name", "tags"]
	}`)
	if !tree.Equal(want, got) {
		out, _ := got.MarshalJSON()
		t.Fatalf("unexpected schema: %s", out)
	}

	empty := ToTree(Infer(value(t, `[]`)))
	items, _ := empty.Get("items")
	assert.Equal(t, 0, items.Len())

	null := ToTree(Infer(value(t, `null`)))
	assert.Equal(t, []string{"nullable"}, null.Keys)
}

func TestInferredSchemaAcceptsObservations(t *testing.T) {
	observations := []string{
		`{"id": 1, "name": "a", "owner": {"email": "a@b.c"}}`,
		`{"id": 2, "name": null, "tags": ["x", 1]}`,
		`{"id": 3.5, "name": "c", "owner": null}`,
	}
	n := inferAll(t, observations...)
	rendered := ToTree(n)
	for _, o := range observations {
		assert.NoError(t, Conforms(rendered, value(t, o)), o)
	}
	assert.Error(t, Conforms(rendered, value(t, `{"name": "missing id"}`)))
	assert.Error(t, Conforms(rendered, value(t, `[1]`)))
}

func TestToJSONSchema(t *testing.T) {
	in := value(t, `{"oneOf": [{"type": "integer"}, {"$ref": "#/components/schemas/X"}], "nullable": true, "x-internal": true, "example": 1}`)
	got := ToJSONSchema(in)
	want := value(t, `{"anyOf": [{"type": "integer"}, {}, {"type": "null"}]}`)
	if !tree.Equal(want, got) {
		out, _ := got.MarshalJSON()
		t.Fatalf("unexpected json schema: %s", out)
	}
}
