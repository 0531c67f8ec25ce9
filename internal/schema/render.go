package schema

import "github.com/moamenhredeen/oasrec/internal/tree"

// ToTree renders n as an OpenAPI 3.0 schema object. Objects always carry a
// required list, possibly empty, so that a later reconcile can clear a
// stale one.
func ToTree(n *Node) *tree.Node {
	out := tree.NewMap()
	if n == nil {
		return out
	}
	switch n.Kind {
	case Unknown, Any:
	case Null:
		out.Set("nullable", tree.FromBool(true))
		return out
	case OneOf:
		variants := make([]*tree.Node, len(n.Variants))
		for i, v := range n.Variants {
			variants[i] = ToTree(v)
		}
		out.Set("oneOf", tree.FromSlice(variants))
	default:
		out.Set("type", tree.FromString(n.Kind.String()))
	}
	if n.Format != "" {
		out.Set("format", tree.FromString(n.Format))
	}
	if n.Nullable {
		out.Set("nullable", tree.FromBool(true))
	}
	switch n.Kind {
	case Array:
		out.Set("items", ToTree(n.Items))
	case Object:
		if len(n.Properties) > 0 {
			props := tree.NewMap()
			for _, p := range n.Properties {
				props.Set(p.Name, ToTree(p.Schema))
			}
			out.Set("properties", props)
		}
		required := make([]*tree.Node, len(n.Required))
		for i, r := range n.Required {
			required[i] = tree.FromString(r)
		}
		out.Set("required", tree.FromSlice(required))
	}
	return out
}
