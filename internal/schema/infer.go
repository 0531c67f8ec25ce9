package schema

import (
	"net/mail"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/moamenhredeen/oasrec/internal/tree"
)

// Infer returns the schema of a single observed value. Object properties
// follow the value's key order and all start out required; array items are
// the merge of every element's schema, Unknown when the array is empty.
func Infer(v *tree.Node) *Node {
	if v == nil {
		return &Node{Kind: Unknown}
	}
	switch v.Kind {
	case tree.NullKind:
		return &Node{Kind: Null}
	case tree.BoolKind:
		return &Node{Kind: Boolean}
	case tree.IntKind:
		return &Node{Kind: Integer}
	case tree.FloatKind:
		return &Node{Kind: Number}
	case tree.StringKind:
		return &Node{Kind: String, Format: StringFormat(v.Str)}
	case tree.MapKind:
		out := &Node{
			Kind:       Object,
			Properties: make([]Property, len(v.Keys)),
			Required:   make([]string, len(v.Keys)),
		}
		for i, k := range v.Keys {
			out.Properties[i] = Property{Name: k, Schema: Infer(v.Values[i])}
			out.Required[i] = k
		}
		return out
	case tree.SeqKind:
		items := &Node{Kind: Unknown}
		for _, item := range v.Items {
			items = Merge(items, Infer(item))
		}
		return &Node{Kind: Array, Items: items}
	}
	return &Node{Kind: Unknown}
}

// StringFormat guesses an OpenAPI format for s, or returns ""
func StringFormat(s string) string {
	if s == "" {
		return ""
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return "date-time"
	}
	if _, err := time.Parse(time.DateOnly, s); err == nil {
		return "date"
	}
	if len(s) == 36 {
		if _, err := uuid.Parse(s); err == nil {
			return "uuid"
		}
	}
	if addr, err := mail.ParseAddress(s); err == nil && addr.Address == s && addr.Name == "" {
		return "email"
	}
	if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return "uri"
	}
	return ""
}
