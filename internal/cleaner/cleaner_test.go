package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamenhredeen/oasrec/internal/selector"
	"github.com/moamenhredeen/oasrec/internal/tree"
)

func doc(t *testing.T, src string) *tree.Node {
	t.Helper()
	n, err := tree.Decode([]byte(src))
	require.NoError(t, err)
	return n
}

func assertTree(t *testing.T, want string, got *tree.Node) {
	t.Helper()
	w := doc(t, want)
	if !tree.Equal(w, got) {
		out, _ := got.MarshalJSON()
		t.Fatalf("trees differ\nwant: %s\n got: %s", want, out)
	}
}

func TestCleanupFieldRemovesStaleKeys(t *testing.T) {
	target := doc(t, `{"paths": {"/a": {"x": 1}, "/b": {"x": 2}, "/c": {}}, "info": {"title": "t"}}`)
	reference := doc(t, `{"paths": {"/a": {}, "/c": {"y": 1}, "/d": {}}}`)

	got := CleanupField(target, reference, selector.MustParse("paths.*"))

	assertTree(t, `{"paths": {"/a": {"x": 1}, "/c": {}}, "info": {"title": "t"}}`, got)
	// input untouched
	paths, _ := target.Get("paths")
	assert.Equal(t, 3, paths.Len())
}

func TestCleanupFieldKeepsEmptiedAncestors(t *testing.T) {
	target := doc(t, `{"a": {"b": {"c": 1}}}`)
	reference := doc(t, `{"a": {"b": {}}}`)

	got := CleanupField(target, reference, selector.MustParse("a.b.c"))
	assertTree(t, `{"a": {"b": {}}}`, got)
}

func TestCleanupFieldParentKeysAreIntersection(t *testing.T) {
	target := doc(t, `{"p": {"k1": 1, "k2": 2, "k3": 3}}`)
	reference := doc(t, `{"p": {"k2": "changed", "k3": null, "k4": 4}}`)

	for _, k := range []string{"k1", "k2", "k3"} {
		got := CleanupField(target, reference, selector.MustParse("p."+k))
		p, _ := got.Get("p")
		_, inRef := reference.At(tree.Fields("p", k))
		assert.Equal(t, inRef, p.Has(k), k)
		// untouched siblings
		assert.Equal(t, 2+boolInt(inRef), p.Len(), k)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestCleanupFieldNoMatchIsNoop(t *testing.T) {
	target := doc(t, `{"a": 1}`)
	got := CleanupField(target, doc(t, `{}`), selector.MustParse("x.*.y"))
	assert.True(t, tree.Equal(target, got))
}

func TestCleanupFieldSequenceElements(t *testing.T) {
	target := doc(t, `{"l": ["a", "b", "c", "d"]}`)
	reference := doc(t, `{"l": ["x", "y"]}`)

	got := CleanupField(target, reference, selector.MustParse("l.*"))
	assertTree(t, `{"l": ["a", "b"]}`, got)
}

func TestCleanupArrayFullEquality(t *testing.T) {
	target := doc(t, `{"tags": ["a", "b", {"n": 1}, "c"]}`)
	reference := doc(t, `{"tags": ["c", {"n": 1}, "a"]}`)
	sel := selector.MustParse("tags")

	once, err := CleanupArray(target, reference, sel, nil)
	require.NoError(t, err)
	assertTree(t, `{"tags": ["a", {"n": 1}, "c"]}`, once)

	twice, err := CleanupArray(once, reference, sel, nil)
	require.NoError(t, err)
	assert.True(t, tree.Equal(once, twice))

	tags, _ := once.Get("tags")
	refTags, _ := reference.Get("tags")
	for _, kept := range tags.Items {
		assert.True(t, containsEquivalent(refTags.Items, kept, nil))
	}
}

func TestCleanupArrayCompareKeys(t *testing.T) {
	target := doc(t, `
paths:
  /pets:
    get:
      parameters:
        - {name: limit, in: query, description: "page size", schema: {type: integer}}
        - {name: limit, in: header, schema: {type: integer}}
        - {name: offset, in: query}
`)
	reference := doc(t, `
paths:
  /pets:
    get:
      parameters:
        - {name: limit, in: query, schema: {type: string}}
        - {name: offset, in: path}
`)

	got, err := CleanupArray(target, reference, selector.MustParse("paths.*.*.parameters"), []string{"name", "in"})
	require.NoError(t, err)

	params, ok := got.At(tree.Fields("paths", "/pets", "get", "parameters"))
	require.True(t, ok)
	require.Equal(t, 1, params.Len())
	kept := params.Items[0]
	desc, ok := kept.Get("description")
	require.True(t, ok, "kept element must not be truncated to compare keys")
	assert.Equal(t, "page size", desc.Str)
	schema, _ := kept.At(tree.Fields("schema", "type"))
	assert.Equal(t, "integer", schema.Str)
}

func TestCleanupArrayMissingReferenceLeavesTarget(t *testing.T) {
	target := doc(t, `{"a": {"l": [1, 2]}}`)
	got, err := CleanupArray(target, doc(t, `{"a": {}}`), selector.MustParse("a.l"), nil)
	require.NoError(t, err)
	assert.True(t, tree.Equal(target, got))
}

func TestCleanupArrayIncompatible(t *testing.T) {
	_, err := CleanupArray(doc(t, `{"a": {"x": 1}}`), doc(t, `{"a": []}`), selector.MustParse("a"), nil)
	assert.ErrorIs(t, err, ErrIncompatibleArrayCleanup)

	_, err = CleanupArray(doc(t, `{"a": []}`), doc(t, `{"a": "s"}`), selector.MustParse("a"), nil)
	assert.ErrorIs(t, err, ErrIncompatibleArrayCleanup)
}

func TestCleanupArrayNoMatchIsNoop(t *testing.T) {
	target := doc(t, `{"a": 1}`)
	got, err := CleanupArray(target, doc(t, `{}`), selector.MustParse("b.c"), []string{"name"})
	require.NoError(t, err)
	assert.True(t, tree.Equal(target, got))
}
