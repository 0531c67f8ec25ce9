package schema

// class groups kinds that merge into a single node. Variants of a oneOf
// hold at most one node per class, ordered by class.
type class int

const (
	classBoolean class = iota
	classNumeric
	classString
	classArray
	classObject
	classAny
)

func classOf(k Kind) class {
	switch k {
	case Boolean:
		return classBoolean
	case Integer, Number:
		return classNumeric
	case String:
		return classString
	case Array:
		return classArray
	case Object:
		return classObject
	}
	return classAny
}

func isUnknown(n *Node) bool {
	return n == nil || n.Kind == Unknown
}

// Merge folds two schemas observed at the same position into one. It is
// commutative up to property order, idempotent, and never modifies its
// arguments.
//
// Unknown yields to the other side, null makes the other side nullable,
// integer and number widen to number, objects union their properties and
// intersect their required sets, arrays merge items, and anything else
// becomes a oneOf with at most MaxOneOfVariants variants.
func Merge(a, b *Node) *Node {
	if isUnknown(a) {
		if isUnknown(b) {
			return &Node{Kind: Unknown}
		}
		return b.Clone()
	}
	if isUnknown(b) {
		return a.Clone()
	}

	nullable := a.Nullable || b.Nullable
	var out *Node
	switch {
	case a.Kind == Null && b.Kind == Null:
		out = &Node{Kind: Null}
	case a.Kind == Null:
		out = b.Clone()
		nullable = true
	case b.Kind == Null:
		out = a.Clone()
		nullable = true
	case a.Kind == Any || b.Kind == Any:
		out = &Node{Kind: Any}
	case a.Kind == OneOf || b.Kind == OneOf || classOf(a.Kind) != classOf(b.Kind):
		out = mergeVariants(variantsOf(a), variantsOf(b))
	default:
		out = mergeSameClass(a, b)
	}
	out.Nullable = nullable
	return out
}

// variantsOf returns n's alternatives with nullability lifted off
func variantsOf(n *Node) []*Node {
	if n.Kind == OneOf {
		return n.Variants
	}
	v := n.Clone()
	v.Nullable = false
	return []*Node{v}
}

func mergeVariants(xs, ys []*Node) *Node {
	var byClass [classAny + 1]*Node
	for _, v := range append(append([]*Node{}, xs...), ys...) {
		c := classOf(v.Kind)
		if byClass[c] == nil {
			byClass[c] = v.Clone()
			continue
		}
		byClass[c] = mergeSameClass(byClass[c], v)
	}

	variants := make([]*Node, 0, len(byClass))
	for _, v := range byClass {
		if v != nil {
			variants = append(variants, v)
		}
	}
	if len(variants) > MaxOneOfVariants {
		variants = append(variants[:MaxOneOfVariants-1], &Node{Kind: Any})
	}
	if len(variants) == 1 {
		return variants[0]
	}
	return &Node{Kind: OneOf, Variants: variants}
}

// mergeSameClass merges two nodes of one class; the result is not nullable
func mergeSameClass(a, b *Node) *Node {
	switch classOf(a.Kind) {
	case classBoolean:
		return &Node{Kind: Boolean}
	case classNumeric:
		if a.Kind == Integer && b.Kind == Integer {
			return &Node{Kind: Integer}
		}
		return &Node{Kind: Number}
	case classString:
		out := &Node{Kind: String}
		if a.Format == b.Format {
			out.Format = a.Format
		}
		return out
	case classArray:
		return &Node{Kind: Array, Items: Merge(a.Items, b.Items)}
	case classObject:
		return mergeObjects(a, b)
	}
	return &Node{Kind: Any}
}

func mergeObjects(a, b *Node) *Node {
	out := &Node{
		Kind:       Object,
		Properties: make([]Property, 0, len(a.Properties)+len(b.Properties)),
		Required:   make([]string, 0, len(a.Required)),
	}
	for _, p := range a.Properties {
		merged := p.Schema.Clone()
		if other, ok := b.Property(p.Name); ok {
			merged = Merge(p.Schema, other)
		}
		out.Properties = append(out.Properties, Property{Name: p.Name, Schema: merged})
	}
	for _, p := range b.Properties {
		if _, ok := a.Property(p.Name); !ok {
			out.Properties = append(out.Properties, Property{Name: p.Name, Schema: p.Schema.Clone()})
		}
	}
	for _, r := range a.Required {
		if b.IsRequired(r) {
			out.Required = append(out.Required, r)
		}
	}
	return out
}
