package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// ErrUnsupportedValue is returned by FromAny for Go values with no tree form
var ErrUnsupportedValue = errors.New("unsupported value")

// Decode parses a YAML or JSON document into a tree, keeping map order.
// Empty input decodes to a null node.
func Decode(data []byte) (*Node, error) {
	var v any
	if err := yaml.UnmarshalWithOptions(data, &v, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return FromAny(v)
}

// FromAny converts a decoded Go value into a tree
func FromAny(v any) (*Node, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case *Node:
		return t.Clone(), nil
	case bool:
		return FromBool(t), nil
	case string:
		return FromString(t), nil
	case int:
		return FromInt(int64(t)), nil
	case int8:
		return FromInt(int64(t)), nil
	case int16:
		return FromInt(int64(t)), nil
	case int32:
		return FromInt(int64(t)), nil
	case int64:
		return FromInt(t), nil
	case uint:
		return fromUint(uint64(t)), nil
	case uint8:
		return FromInt(int64(t)), nil
	case uint16:
		return FromInt(int64(t)), nil
	case uint32:
		return FromInt(int64(t)), nil
	case uint64:
		return fromUint(t), nil
	case float32:
		return FromFloat(float64(t)), nil
	case float64:
		return FromFloat(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return FromInt(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", t, ErrUnsupportedValue)
		}
		return FromFloat(f), nil
	case time.Time:
		return FromString(t.Format(time.RFC3339Nano)), nil
	case yaml.MapSlice:
		m := NewMap()
		for _, item := range t {
			child, err := FromAny(item.Value)
			if err != nil {
				return nil, err
			}
			m.Set(fmt.Sprint(item.Key), child)
		}
		return m, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		m := NewMap()
		for _, k := range keys {
			child, err := FromAny(t[k])
			if err != nil {
				return nil, err
			}
			m.Set(k, child)
		}
		return m, nil
	case map[any]any:
		conv := make(map[string]any, len(t))
		for k, val := range t {
			conv[fmt.Sprint(k)] = val
		}
		return FromAny(conv)
	case []any:
		items := make([]*Node, len(t))
		for i, item := range t {
			child, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			items[i] = child
		}
		return FromSlice(items), nil
	}
	return nil, fmt.Errorf("%s: %w", reflect.TypeOf(v), ErrUnsupportedValue)
}

func fromUint(u uint64) *Node {
	if u > math.MaxInt64 {
		return FromFloat(float64(u))
	}
	return FromInt(int64(u))
}

// ToAny converts the tree into plain Go values. Maps become yaml.MapSlice
// so that encoders keep the original key order.
func (n *Node) ToAny() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case BoolKind:
		return n.Bool
	case IntKind:
		return n.Int
	case FloatKind:
		return n.Float
	case StringKind:
		return n.Str
	case MapKind:
		out := make(yaml.MapSlice, len(n.Keys))
		for i, k := range n.Keys {
			out[i] = yaml.MapItem{Key: k, Value: n.Values[i].ToAny()}
		}
		return out
	case SeqKind:
		out := make([]any, len(n.Items))
		for i, item := range n.Items {
			out[i] = item.ToAny()
		}
		return out
	}
	return nil
}

// EncodeYAML renders the tree as a YAML document
func EncodeYAML(n *Node) ([]byte, error) {
	out, err := yaml.MarshalWithOptions(n.ToAny(),
		yaml.Indent(2),
		yaml.IndentSequence(true),
		yaml.UseLiteralStyleIfMultiline(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	return out, nil
}

// EncodeJSON renders the tree as indented JSON followed by a newline
func EncodeJSON(n *Node) ([]byte, error) {
	compact, err := n.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent json: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// MarshalJSON writes compact JSON keeping map order
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes any JSON value into n
func (n *Node) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*n = *decoded
	return nil
}

func writeJSON(buf *bytes.Buffer, n *Node) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case NullKind:
		buf.WriteString("null")
	case BoolKind:
		buf.WriteString(strconv.FormatBool(n.Bool))
	case IntKind:
		buf.WriteString(strconv.FormatInt(n.Int, 10))
	case FloatKind:
		buf.WriteString(formatFloat(n.Float))
	case StringKind:
		writeJSONString(buf, n.Str)
	case MapKind:
		buf.WriteByte('{')
		for i, k := range n.Keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			if err := writeJSON(buf, n.Values[i]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case SeqKind:
		buf.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("kind %s: %w", n.Kind, ErrUnsupportedValue)
	}
	return nil
}

// formatFloat keeps a fractional part on whole numbers so that a float
// does not read back as an integer.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func writeJSONString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encode only fails on unsupported types; a string always encodes.
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}
