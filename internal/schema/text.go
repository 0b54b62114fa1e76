package schema

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// nodeValue converts a YAML node to a value of kind dt.
//
// A null node is no value. Scalars use the value text form; sequence kinds
// take a YAML list of element text forms. For enum kinds, items may be
// symbolic names of enum.
func nodeValue(dt value.DataType, enum *model.Enumeration, node *yaml.Node) (value.Value, error) {
	if node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return value.Absent(dt), nil
	}

	if !dt.IsSequence() {
		if node.Kind != yaml.ScalarNode {
			return value.Value{}, queryerr.TypeMismatch("line %d: %s value must be a scalar", node.Line, dt)
		}
		return textValue(dt, enum, node.Value)
	}

	if node.Kind != yaml.SequenceNode {
		return value.Value{}, queryerr.TypeMismatch("line %d: %s value must be a list", node.Line, dt)
	}
	items := make([]string, len(node.Content))
	for i, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return value.Value{}, queryerr.TypeMismatch("line %d: %s items must be scalars", item.Line, dt)
		}
		items[i] = item.Value
	}
	return textsValue(dt, enum, items)
}

// textValue parses one scalar text form.
func textValue(dt value.DataType, enum *model.Enumeration, text string) (value.Value, error) {
	switch dt {
	case value.DTString:
		// "" is a present empty string here, not "no value".
		return value.NewString(text), nil
	case value.DTEnum:
		code, err := enumCode(enum, text)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewEnum(code), nil
	default:
		return value.FromString(dt, text)
	}
}

// textsValue builds a sequence value from element text forms.
func textsValue(dt value.DataType, enum *model.Enumeration, items []string) (value.Value, error) {
	switch dt {
	case value.DSString:
		return value.NewStringSeq(items...), nil
	case value.DSDate:
		return value.Of(value.DateSeq(items)), nil
	case value.DSEnum:
		codes := make([]int32, len(items))
		for i, item := range items {
			code, err := enumCode(enum, item)
			if err != nil {
				return value.Value{}, err
			}
			codes[i] = code
		}
		return value.NewEnumSeq(codes...), nil
	default:
		for _, item := range items {
			if item == "" {
				return value.Value{}, queryerr.TypeMismatch("empty %s item", dt.Elem())
			}
		}
		return value.FromString(dt, strings.Join(items, ","))
	}
}

// enumCode resolves a symbolic item name, or an integer code.
func enumCode(enum *model.Enumeration, text string) (int32, error) {
	if enum != nil {
		if code, ok := enum.ItemCode(text); ok {
			return code, nil
		}
	}
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		if enum != nil {
			return 0, queryerr.TypeMismatch("%q is not an item of enumeration %s", text, enum.Name)
		}
		return 0, queryerr.TypeMismatch("%q is not an enum code", text)
	}
	return int32(n), nil
}
