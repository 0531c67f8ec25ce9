// Package reconcile merges a freshly generated document into a persisted,
// possibly hand-edited one. Rules name the machine-owned parts; everything
// else in the persisted document is left exactly as it was.
package reconcile

import (
	"fmt"

	"github.com/moamenhredeen/oasrec/internal/cleaner"
	"github.com/moamenhredeen/oasrec/internal/selector"
	"github.com/moamenhredeen/oasrec/internal/tree"
)

// Rule marks the nodes reached by Selector as machine-owned. Field rules
// drop persisted nodes the candidate no longer has; array rules prune
// sequence elements instead, matching them on CompareKeys when given.
type Rule struct {
	Selector    selector.Selector
	Array       bool
	CompareKeys []string
}

// FieldRule returns a rule owning the nodes reached by sel
func FieldRule(sel string) Rule {
	return Rule{Selector: selector.MustParse(sel)}
}

// ArrayRule returns a rule owning the elements of the sequences reached by sel
func ArrayRule(sel string, compareKeys ...string) Rule {
	return Rule{Selector: selector.MustParse(sel), Array: true, CompareKeys: compareKeys}
}

// Methods are the operation keys of an OpenAPI path item
var Methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// operationRules are the owned parts of one operation, relative to it
var operationRules = []struct {
	suffix      string
	array       bool
	compareKeys []string
}{
	{suffix: ""},
	{suffix: ".parameters"},
	{suffix: ".parameters", array: true, compareKeys: []string{"name", "in"}},
	{suffix: ".requestBody"},
	{suffix: ".requestBody.content.*"},
	{suffix: ".requestBody.content.*.schema.properties.*"},
	{suffix: ".requestBody.content.*.examples.*"},
	{suffix: ".responses.*"},
	{suffix: ".responses.*.headers.*"},
	{suffix: ".responses.*.content.*"},
	{suffix: ".responses.*.content.*.schema.properties.*"},
	{suffix: ".responses.*.content.*.schema.items.properties.*"},
	{suffix: ".responses.*.content.*.examples.*"},
}

// DefaultRules owns what the generator produces for every operation. Path
// item fields other than the operations themselves, such as a shared
// summary, stay hand-owned.
func DefaultRules() []Rule {
	rules := []Rule{FieldRule("paths.*")}
	for _, m := range Methods {
		for _, r := range operationRules {
			sel := "paths.*." + m + r.suffix
			if r.array {
				rules = append(rules, ArrayRule(sel, r.compareKeys...))
				continue
			}
			rules = append(rules, FieldRule(sel))
		}
	}
	return rules
}

// Merger reconciles documents under a fixed rule set
type Merger struct {
	rules []Rule

	// DropEmpty lists map keys whose empty sequence value in the candidate
	// removes the key instead of being written.
	DropEmpty []string
}

// New returns a Merger for rules. OpenAPI 3.0 forbids an empty "required"
// list, so it is dropped rather than written.
func New(rules []Rule) *Merger {
	return &Merger{rules: rules, DropEmpty: []string{"required"}}
}

// Reconcile is a convenience for New(rules).Reconcile
func Reconcile(persisted, candidate *tree.Node, rules []Rule) (*tree.Node, error) {
	return New(rules).Reconcile(persisted, candidate)
}

// Reconcile returns persisted updated from candidate. Inputs are not
// modified. For every rule, stale owned content is first removed using
// candidate as the reference, then owned nodes present in candidate are
// written over persisted by a deep merge.
func (m *Merger) Reconcile(persisted, candidate *tree.Node) (*tree.Node, error) {
	out := persisted.Clone()
	if !out.IsMap() {
		out = tree.NewMap()
	}
	if candidate == nil {
		candidate = tree.NewMap()
	}

	for _, r := range m.rules {
		if !r.Array {
			out = cleaner.CleanupField(out, candidate, r.Selector)
			continue
		}
		cleaned, err := cleaner.CleanupArray(out, candidate, r.Selector, r.CompareKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to clean %s: %w", r.Selector, err)
		}
		out = cleaned
	}

	for _, r := range m.rules {
		for _, p := range r.Selector.MatchedPaths(candidate) {
			if referenced(out, p) {
				continue
			}
			cv, _ := candidate.At(p)
			pv, _ := out.At(p)
			if err := out.SetAt(p, m.overwrite(pv, cv, p)); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", p, err)
			}
		}
	}
	return out, nil
}

// overwrite deep-merges cv onto pv. Maps merge key by key with persisted-only
// keys kept, except the generated keywords of a schema and stale property
// names; a persisted map holding $ref is kept whole; sequences owned by an
// array rule with compare keys merge element-wise; anything else is replaced
// by the candidate.
func (m *Merger) overwrite(pv, cv *tree.Node, p tree.Path) *tree.Node {
	switch {
	case pv == nil:
		return m.copy(cv, p)
	case pv.IsMap() && pv.Has("$ref") && cv.IsMap():
		return pv.Clone()
	case pv.IsMap() && cv.IsMap():
		sc := scopeOf(p)
		out := pv.Clone()
		for i, k := range cv.Keys {
			v := cv.Values[i]
			if sc == schemaScope && m.dropsEmpty(k, v) {
				out.Delete(k)
				continue
			}
			prev, _ := out.Get(k)
			out.Set(k, m.overwrite(prev, v, p.Append(tree.Field(k))))
		}
		switch sc {
		case schemaScope:
			for _, k := range generatedKeywords {
				if !cv.Has(k) {
					out.Delete(k)
				}
			}
		case propertiesScope:
			for _, k := range pv.Keys {
				if !cv.Has(k) {
					out.Delete(k)
				}
			}
		}
		return out
	case pv.IsSeq() && cv.IsSeq():
		if keys, ok := m.identity(p); ok {
			return m.mergeElements(pv, cv, keys, p)
		}
	}
	return m.copy(cv, p)
}

// generatedKeywords are the schema keywords inference writes. Absent from a
// candidate schema they are stale; any other persisted keyword is hand-owned.
var generatedKeywords = []string{"type", "format", "nullable", "items", "properties", "required", "oneOf"}

type scope int

const (
	plainScope      scope = iota
	schemaScope           // a schema object
	propertiesScope       // property names to schemas
	variantsScope         // a list of schemas
	dataScope             // example values and other opaque content
)

// scopeOf classifies the node at p by walking p from the document root
func scopeOf(p tree.Path) scope {
	sc := plainScope
	for _, k := range p {
		switch sc {
		case plainScope:
			switch {
			case k.IsIndex:
			case k.Name == "schema":
				sc = schemaScope
			case k.Name == "example" || k.Name == "examples":
				sc = dataScope
			}
		case schemaScope:
			switch {
			case k.IsIndex:
				sc = dataScope
			case k.Name == "properties":
				sc = propertiesScope
			case k.Name == "items" || k.Name == "additionalProperties" || k.Name == "not":
			case k.Name == "oneOf" || k.Name == "anyOf" || k.Name == "allOf":
				sc = variantsScope
			default:
				sc = dataScope
			}
		case propertiesScope, variantsScope:
			sc = schemaScope
		}
	}
	return sc
}

// referenced reports whether a proper ancestor of p in n is a $ref map
func referenced(n *tree.Node, p tree.Path) bool {
	cur := n
	for _, k := range p {
		if cur.IsMap() && cur.Has("$ref") {
			return true
		}
		next, ok := cur.Child(k)
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

// copy clones cv, leaving out empty DropEmpty keys of schemas
func (m *Merger) copy(cv *tree.Node, p tree.Path) *tree.Node {
	switch {
	case cv.IsMap():
		schema := scopeOf(p) == schemaScope
		out := tree.NewMap()
		for i, k := range cv.Keys {
			if !schema || !m.dropsEmpty(k, cv.Values[i]) {
				out.Set(k, m.copy(cv.Values[i], p.Append(tree.Field(k))))
			}
		}
		return out
	case cv.IsSeq():
		items := make([]*tree.Node, len(cv.Items))
		for i, item := range cv.Items {
			items[i] = m.copy(item, p.Append(tree.Index(i)))
		}
		return tree.FromSlice(items)
	}
	return cv.Clone()
}

func (m *Merger) dropsEmpty(k string, v *tree.Node) bool {
	if !v.IsSeq() || v.Len() > 0 {
		return false
	}
	for _, d := range m.DropEmpty {
		if d == k {
			return true
		}
	}
	return false
}

// identity returns the compare keys of an array rule owning p
func (m *Merger) identity(p tree.Path) ([]string, bool) {
	for _, r := range m.rules {
		if r.Array && len(r.CompareKeys) > 0 && r.Selector.Match(p) {
			return r.CompareKeys, true
		}
	}
	return nil, false
}

func (m *Merger) mergeElements(pv, cv *tree.Node, keys []string, p tree.Path) *tree.Node {
	out := tree.FromSlice(make([]*tree.Node, 0, len(pv.Items)+len(cv.Items)))
	used := make([]bool, len(cv.Items))
	for _, pe := range pv.Items {
		merged := pe.Clone()
		for j, ce := range cv.Items {
			if !used[j] && cleaner.Equivalent(pe, ce, keys) {
				merged = m.overwrite(pe, ce, p.Append(tree.Index(len(out.Items))))
				used[j] = true
				break
			}
		}
		out.Append(merged)
	}
	for j, ce := range cv.Items {
		if !used[j] {
			out.Append(m.copy(ce, p.Append(tree.Index(len(out.Items)))))
		}
	}
	return out
}
