package tree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotContainer is returned when a path descends through a scalar
	ErrNotContainer = errors.New("path descends through a scalar")
	// ErrIndexRange is returned when a sequence index is past the end
	ErrIndexRange = errors.New("sequence index out of range")
)

// Key addresses one child: a map field or a sequence index
type Key struct {
	Name    string
	Index   int
	IsIndex bool
}

// Field returns a key addressing a map entry
func Field(name string) Key {
	return Key{Name: name}
}

// Index returns a key addressing a sequence item
func Index(i int) Key {
	return Key{Index: i, IsIndex: true}
}

func (k Key) String() string {
	if k.IsIndex {
		return "[" + strconv.Itoa(k.Index) + "]"
	}
	return k.Name
}

// Path is a concrete location in a tree, root first
type Path []Key

// Fields builds a path made only of map fields
func Fields(names ...string) Path {
	p := make(Path, len(names))
	for i, n := range names {
		p[i] = Field(n)
	}
	return p
}

// Append returns a new path with k added; p is not modified
func (p Path) Append(k Key) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, k)
}

// Parent returns the path without its last key
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Last returns the final key of p
func (p Path) Last() Key {
	return p[len(p)-1]
}

// Equal reports whether both paths address the same location
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	var b strings.Builder
	for i, k := range p {
		if i > 0 && !k.IsIndex {
			b.WriteByte('.')
		}
		b.WriteString(k.String())
	}
	return b.String()
}

// At returns the node at p. The empty path addresses n itself.
func (n *Node) At(p Path) (*Node, bool) {
	cur := n
	for _, k := range p {
		next, ok := cur.Child(k)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// SetAt stores v at p. Missing intermediate map fields are created as maps;
// an index equal to the sequence length appends.
func (n *Node) SetAt(p Path, v *Node) error {
	if len(p) == 0 {
		return fmt.Errorf("set at empty path: %w", ErrNotContainer)
	}
	cur := n
	for i, k := range p {
		last := i == len(p)-1
		switch {
		case cur.IsMap() && !k.IsIndex:
			if last {
				cur.Set(k.Name, v)
				return nil
			}
			next, ok := cur.Get(k.Name)
			if !ok || next.Kind.IsScalar() {
				next = NewMap()
				cur.Set(k.Name, next)
			}
			cur = next
		case cur.IsSeq() && k.IsIndex:
			if k.Index < 0 || k.Index > len(cur.Items) {
				return fmt.Errorf("set at %s: %w", p[:i+1], ErrIndexRange)
			}
			if k.Index == len(cur.Items) {
				fill := v
				if !last {
					fill = NewMap()
				}
				cur.Items = append(cur.Items, fill)
			} else if last {
				cur.Items[k.Index] = v
			}
			if last {
				return nil
			}
			cur = cur.Items[k.Index]
		default:
			return fmt.Errorf("set at %s: %w", p[:i+1], ErrNotContainer)
		}
	}
	return nil
}

// DeleteAt removes the node at p from its parent and reports whether
// anything was removed. Ancestors are never removed.
func (n *Node) DeleteAt(p Path) bool {
	if len(p) == 0 {
		return false
	}
	parent, ok := n.At(p.Parent())
	if !ok {
		return false
	}
	k := p.Last()
	switch {
	case parent.IsMap() && !k.IsIndex:
		return parent.Delete(k.Name)
	case parent.IsSeq() && k.IsIndex:
		if k.Index < 0 || k.Index >= len(parent.Items) {
			return false
		}
		parent.Items = append(parent.Items[:k.Index:k.Index], parent.Items[k.Index+1:]...)
		return true
	}
	return false
}
