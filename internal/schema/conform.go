package schema

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/moamenhredeen/oasrec/internal/tree"
)

const conformResource = "openapi-schema.json"

// Conforms validates value against an OpenAPI 3.0 schema object. The schema
// is translated to JSON Schema 2020-12 first: nullable becomes a type union,
// oneOf is checked as anyOf, and unresolvable $ref accept anything.
func Conforms(openapiSchema, value *tree.Node) error {
	raw, err := ToJSONSchema(openapiSchema).MarshalJSON()
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	if err := compiler.AddResource(conformResource, doc); err != nil {
		return fmt.Errorf("failed to add schema: %w", err)
	}
	compiled, err := compiler.Compile(conformResource)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	instRaw, err := value.MarshalJSON()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(instRaw))
	if err != nil {
		return fmt.Errorf("failed to load value: %w", err)
	}
	return compiled.Validate(inst)
}

// ToJSONSchema translates an OpenAPI 3.0 schema object into JSON Schema
func ToJSONSchema(s *tree.Node) *tree.Node {
	if !s.IsMap() {
		return tree.NewMap()
	}
	if s.Has("$ref") {
		return tree.NewMap()
	}
	out := tree.NewMap()
	for i, k := range s.Keys {
		v := s.Values[i]
		switch {
		case k == "nullable", k == "example", k == "examples", k == "discriminator",
			k == "xml", k == "externalDocs", strings.HasPrefix(k, "x-"):
		case k == "oneOf" || k == "anyOf" || k == "allOf":
			name := k
			if k == "oneOf" {
				name = "anyOf"
			}
			out.Set(name, convertList(v))
		case k == "properties" || k == "patternProperties":
			props := tree.NewMap()
			if v.IsMap() {
				for j, pk := range v.Keys {
					props.Set(pk, ToJSONSchema(v.Values[j]))
				}
			}
			out.Set(k, props)
		case k == "items" || k == "not" || (k == "additionalProperties" && v.IsMap()):
			out.Set(k, ToJSONSchema(v))
		default:
			out.Set(k, v.Clone())
		}
	}

	if nullable, ok := s.Get("nullable"); !ok || nullable.Kind != tree.BoolKind || !nullable.Bool {
		return out
	}
	if t, ok := out.Get("type"); ok && t.Kind == tree.StringKind {
		out.Set("type", tree.FromSlice([]*tree.Node{t, tree.FromString("null")}))
	}
	if alts, ok := out.Get("anyOf"); ok && alts.IsSeq() {
		alts.Append(tree.NewMap(tree.KeyVal{Key: "type", Value: tree.FromString("null")}))
	}
	return out
}

func convertList(v *tree.Node) *tree.Node {
	if !v.IsSeq() {
		return tree.FromSlice(nil)
	}
	items := make([]*tree.Node, len(v.Items))
	for i, item := range v.Items {
		items[i] = ToJSONSchema(item)
	}
	return tree.FromSlice(items)
}
