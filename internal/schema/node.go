// Package schema infers OpenAPI schemas from observed values and folds the
// schemas of repeated observations into one.
package schema

import "slices"

// Kind is the shape of a schema node
type Kind int

const (
	// Unknown is the placeholder for a position never observed with a value,
	// such as the items of an empty array. It is absorbed by any merge.
	Unknown Kind = iota
	// Any accepts every value. It stands in for shapes beyond MaxOneOfVariants.
	Any
	Null
	Boolean
	Integer
	Number
	String
	Object
	Array
	OneOf
)

// MaxOneOfVariants caps the number of variants in a oneOf node. Shapes past
// the cap collapse into a single Any variant.
const MaxOneOfVariants = 3

func (k Kind) String() string {
	switch k {
	case Unknown:
		return "unknown"
	case Any:
		return "any"
	case Null:
		return "null"
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Number:
		return "number"
	case String:
		return "string"
	case Object:
		return "object"
	case Array:
		return "array"
	case OneOf:
		return "oneOf"
	}
	return "<unknown kind>"
}

// Property is a named object member
type Property struct {
	Name   string
	Schema *Node
}

// Node is a schema tagged by Kind. Properties and Required apply to
// objects, Items to arrays, Variants to oneOf, Format to strings.
type Node struct {
	Kind     Kind
	Nullable bool
	Format   string

	Properties []Property
	Required   []string
	Items      *Node
	Variants   []*Node
}

// Property returns the schema of the named property
func (n *Node) Property(name string) (*Node, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

// IsRequired reports whether name is in the required set
func (n *Node) IsRequired(name string) bool {
	return slices.Contains(n.Required, name)
}

// Clone returns a deep copy of n
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:     n.Kind,
		Nullable: n.Nullable,
		Format:   n.Format,
		Items:    n.Items.Clone(),
	}
	if n.Properties != nil {
		out.Properties = make([]Property, len(n.Properties))
		for i, p := range n.Properties {
			out.Properties[i] = Property{Name: p.Name, Schema: p.Schema.Clone()}
		}
	}
	if n.Required != nil {
		out.Required = slices.Clone(n.Required)
	}
	if n.Variants != nil {
		out.Variants = make([]*Node, len(n.Variants))
		for i, v := range n.Variants {
			out.Variants[i] = v.Clone()
		}
	}
	return out
}

// Equal reports whether a and b describe the same schema. Property and
// required order are ignored, variant order is not.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Nullable != b.Nullable || a.Format != b.Format {
		return false
	}
	if len(a.Properties) != len(b.Properties) || len(a.Required) != len(b.Required) {
		return false
	}
	for _, p := range a.Properties {
		other, ok := b.Property(p.Name)
		if !ok || !Equal(p.Schema, other) {
			return false
		}
	}
	for _, r := range a.Required {
		if !b.IsRequired(r) {
			return false
		}
	}
	if !Equal(a.Items, b.Items) {
		return false
	}
	if len(a.Variants) != len(b.Variants) {
		return false
	}
	for i := range a.Variants {
		if !Equal(a.Variants[i], b.Variants[i]) {
			return false
		}
	}
	return true
}
