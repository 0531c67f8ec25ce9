package tree

// Kind identifies which variant of Node is populated
type Kind int

const (
	NullKind Kind = iota
	BoolKind
	IntKind
	FloatKind
	StringKind
	MapKind
	SeqKind
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case BoolKind:
		return "bool"
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case StringKind:
		return "string"
	case MapKind:
		return "map"
	case SeqKind:
		return "seq"
	}
	return "<unknown kind>"
}

// IsScalar reports whether the kind holds no children
func (k Kind) IsScalar() bool {
	return k != MapKind && k != SeqKind
}

// Node is a JSON-like value: an ordered map, a sequence or a scalar.
// Only the fields matching Kind are meaningful. Map entries are kept in
// insertion order as parallel Keys/Values slices.
type Node struct {
	Kind Kind

	Bool  bool
	Int   int64
	Float float64
	Str   string

	Keys   []string
	Values []*Node

	Items []*Node
}

// KeyVal is a single map entry used to build maps in order
type KeyVal struct {
	Key   string
	Value *Node
}

// Null returns a new null node
func Null() *Node {
	return &Node{Kind: NullKind}
}

// FromBool returns a boolean node
func FromBool(v bool) *Node {
	return &Node{Kind: BoolKind, Bool: v}
}

// FromInt returns an integer node
func FromInt(v int64) *Node {
	return &Node{Kind: IntKind, Int: v}
}

// FromFloat returns a floating point node
func FromFloat(v float64) *Node {
	return &Node{Kind: FloatKind, Float: v}
}

// FromString returns a string node
func FromString(v string) *Node {
	return &Node{Kind: StringKind, Str: v}
}

// NewMap returns a map node holding the given entries in order.
// A repeated key replaces the earlier value in its original position.
func NewMap(entries ...KeyVal) *Node {
	n := &Node{
		Kind:   MapKind,
		Keys:   make([]string, 0, len(entries)),
		Values: make([]*Node, 0, len(entries)),
	}
	for _, e := range entries {
		n.Set(e.Key, e.Value)
	}
	return n
}

// FromSlice returns a sequence node holding items
func FromSlice(items []*Node) *Node {
	if items == nil {
		items = []*Node{}
	}
	return &Node{Kind: SeqKind, Items: items}
}

// IsMap reports whether n is a non-nil map
func (n *Node) IsMap() bool {
	return n != nil && n.Kind == MapKind
}

// IsSeq reports whether n is a non-nil sequence
func (n *Node) IsSeq() bool {
	return n != nil && n.Kind == SeqKind
}

// Len returns the number of map entries or sequence items, 0 for scalars
func (n *Node) Len() int {
	switch {
	case n.IsMap():
		return len(n.Keys)
	case n.IsSeq():
		return len(n.Items)
	}
	return 0
}

func (n *Node) index(key string) int {
	for i, k := range n.Keys {
		if k == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored under key in a map node
func (n *Node) Get(key string) (*Node, bool) {
	if !n.IsMap() {
		return nil, false
	}
	i := n.index(key)
	if i < 0 {
		return nil, false
	}
	return n.Values[i], true
}

// Has reports whether a map node holds key
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Set stores v under key, replacing an existing value in place or
// appending a new entry. It panics when n is not a map.
func (n *Node) Set(key string, v *Node) {
	if !n.IsMap() {
		panic("tree: Set on non-map node")
	}
	if v == nil {
		v = Null()
	}
	if i := n.index(key); i >= 0 {
		n.Values[i] = v
		return
	}
	n.Keys = append(n.Keys, key)
	n.Values = append(n.Values, v)
}

// Delete removes key from a map node and reports whether it was present
func (n *Node) Delete(key string) bool {
	if !n.IsMap() {
		return false
	}
	i := n.index(key)
	if i < 0 {
		return false
	}
	n.Keys = append(n.Keys[:i:i], n.Keys[i+1:]...)
	n.Values = append(n.Values[:i:i], n.Values[i+1:]...)
	return true
}

// Append adds items to a sequence node. It panics when n is not a sequence.
func (n *Node) Append(items ...*Node) {
	if !n.IsSeq() {
		panic("tree: Append on non-seq node")
	}
	n.Items = append(n.Items, items...)
}

// Child returns the child addressed by k
func (n *Node) Child(k Key) (*Node, bool) {
	switch {
	case n.IsMap() && !k.IsIndex:
		return n.Get(k.Name)
	case n.IsSeq() && k.IsIndex:
		if k.Index < 0 || k.Index >= len(n.Items) {
			return nil, false
		}
		return n.Items[k.Index], true
	}
	return nil, false
}

// ChildKeys returns the keys of every direct child, in order
func (n *Node) ChildKeys() []Key {
	switch {
	case n.IsMap():
		keys := make([]Key, len(n.Keys))
		for i, k := range n.Keys {
			keys[i] = Field(k)
		}
		return keys
	case n.IsSeq():
		keys := make([]Key, len(n.Items))
		for i := range n.Items {
			keys[i] = Index(i)
		}
		return keys
	}
	return nil
}

// Clone returns a deep copy of n
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	dst := &Node{
		Kind:  n.Kind,
		Bool:  n.Bool,
		Int:   n.Int,
		Float: n.Float,
		Str:   n.Str,
	}
	switch n.Kind {
	case MapKind:
		dst.Keys = make([]string, len(n.Keys))
		copy(dst.Keys, n.Keys)
		dst.Values = make([]*Node, len(n.Values))
		for i, v := range n.Values {
			dst.Values[i] = v.Clone()
		}
	case SeqKind:
		dst.Items = make([]*Node, len(n.Items))
		for i, v := range n.Items {
			dst.Items[i] = v.Clone()
		}
	}
	return dst
}

// Equal reports whether a and b hold the same value. Map key order is
// ignored, sequence order is not, and an integer never equals a float.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case NullKind:
		return true
	case BoolKind:
		return a.Bool == b.Bool
	case IntKind:
		return a.Int == b.Int
	case FloatKind:
		return a.Float == b.Float
	case StringKind:
		return a.Str == b.Str
	case SeqKind:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case MapKind:
		if len(a.Keys) != len(b.Keys) {
			return false
		}
		for i, k := range a.Keys {
			bv, ok := b.Get(k)
			if !ok || !Equal(a.Values[i], bv) {
				return false
			}
		}
		return true
	}
	return false
}
