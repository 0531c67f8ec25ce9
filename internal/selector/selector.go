// Package selector evaluates dotted selectors such as "paths.*.*.parameters"
// against trees. A selector of depth d denotes exactly the nodes reached by
// descending d levels; shallower and deeper nodes never match.
package selector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/moamenhredeen/oasrec/internal/tree"
)

// Wildcard matches any key of a map or any index of a sequence
const Wildcard = "*"

// ErrInvalidSelector is returned by Parse for empty selectors or segments
var ErrInvalidSelector = errors.New("invalid selector")

type segment struct {
	name     string
	wildcard bool
}

// Selector is an immutable parsed selector
type Selector struct {
	raw  string
	segs []segment
}

// Parse parses a dot-separated selector. A backslash escapes a literal
// dot or star, e.g. `paths./v1\.0/pets`.
func Parse(s string) (Selector, error) {
	if s == "" {
		return Selector{}, fmt.Errorf("%w: empty selector", ErrInvalidSelector)
	}
	var (
		segs    []segment
		cur     strings.Builder
		escaped bool
		literal bool
	)
	flush := func() error {
		name := cur.String()
		if name == "" && !literal {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidSelector, s)
		}
		segs = append(segs, segment{name: name, wildcard: name == Wildcard && !literal})
		cur.Reset()
		literal = false
		return nil
	}
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			literal = true
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			if err := flush(); err != nil {
				return Selector{}, err
			}
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		return Selector{}, fmt.Errorf("%w: trailing escape in %q", ErrInvalidSelector, s)
	}
	if err := flush(); err != nil {
		return Selector{}, err
	}
	return Selector{raw: s, segs: segs}, nil
}

// MustParse is like Parse but panics on error
func MustParse(s string) Selector {
	sel, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sel
}

func (s Selector) String() string {
	return s.raw
}

// Depth returns the number of segments
func (s Selector) Depth() int {
	return len(s.segs)
}

// HasWildcard reports whether any segment is a wildcard
func (s Selector) HasWildcard() bool {
	for _, seg := range s.segs {
		if seg.wildcard {
			return true
		}
	}
	return false
}

// Match reports whether the concrete path p is denoted by s
func (s Selector) Match(p tree.Path) bool {
	if len(p) != len(s.segs) {
		return false
	}
	for i, seg := range s.segs {
		if !seg.matches(p[i]) {
			return false
		}
	}
	return true
}

func (seg segment) matches(k tree.Key) bool {
	if seg.wildcard {
		return true
	}
	if k.IsIndex {
		return seg.name == strconv.Itoa(k.Index)
	}
	return seg.name == k.Name
}

// key resolves a literal segment against node: a map field, or a sequence
// index when node is a sequence and the segment is a decimal in range.
func (seg segment) key(node *tree.Node) (tree.Key, bool) {
	switch {
	case node.IsMap():
		return tree.Field(seg.name), node.Has(seg.name)
	case node.IsSeq():
		i, err := strconv.Atoi(seg.name)
		if err != nil || i < 0 || i >= node.Len() {
			return tree.Key{}, false
		}
		return tree.Index(i), true
	}
	return tree.Key{}, false
}

// MatchedPaths returns every concrete path in root denoted by s, in
// pre-order. A branch that ends before the selector's depth contributes
// nothing; this is the normal "no match" case, never an error.
func (s Selector) MatchedPaths(root *tree.Node) []tree.Path {
	var out []tree.Path
	s.walk(root, nil, 0, &out)
	return out
}

func (s Selector) walk(node *tree.Node, prefix tree.Path, depth int, out *[]tree.Path) {
	if depth == len(s.segs) {
		*out = append(*out, prefix)
		return
	}
	if node == nil || node.Kind.IsScalar() {
		return
	}
	seg := s.segs[depth]
	if seg.wildcard {
		for _, k := range node.ChildKeys() {
			child, _ := node.Child(k)
			s.walk(child, prefix.Append(k), depth+1, out)
		}
		return
	}
	k, ok := seg.key(node)
	if !ok {
		return
	}
	child, _ := node.Child(k)
	s.walk(child, prefix.Append(k), depth+1, out)
}

// AllFieldPaths returns the path of every node below root, containers
// included, in pre-order. The root itself is not listed, so an empty tree
// yields no paths.
func AllFieldPaths(root *tree.Node) []tree.Path {
	var out []tree.Path
	collect(root, nil, &out)
	return out
}

func collect(node *tree.Node, prefix tree.Path, out *[]tree.Path) {
	for _, k := range node.ChildKeys() {
		child, _ := node.Child(k)
		p := prefix.Append(k)
		*out = append(*out, p)
		collect(child, p, out)
	}
}
