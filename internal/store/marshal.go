package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// marshalValue converts a present value to its stored TEXT form.
//
// Sequences whose elements may contain the separators of the text form
// (strings, dates, byte strings, external references) are stored as a JSON
// array of element texts. Every other kind uses the value text form, which
// round-trips through value.FromString.
func marshalValue(v value.Value) (string, error) {
	if !v.Present() {
		return "", fmt.Errorf("marshal value: absent %s value has no stored form", v.Type)
	}
	switch p := v.Payload.(type) {
	case value.StrSeq, value.DateSeq:
		return marshalJSON(value.Strings(v))
	case value.ByteStrSeq:
		items := make([]string, len(p))
		for i, b := range p {
			items[i] = value.Of(value.ByteStr(b)).String()
		}
		return marshalJSON(items)
	case value.ExtRefSeq:
		items := make([]string, len(p))
		for i, r := range p {
			items[i] = value.Of(r).String()
		}
		return marshalJSON(items)
	}
	return value.ToString(v), nil
}

// unmarshalValue parses a stored TEXT form back into a present value.
func unmarshalValue(dt value.DataType, text string) (value.Value, error) {
	switch {
	case dt == value.DSString || dt == value.DSDate:
		var items []string
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return value.Value{}, fmt.Errorf("unmarshal %s value: %w", dt, err)
		}
		if items == nil {
			items = []string{}
		}
		if dt == value.DSDate {
			return value.Of(value.DateSeq(items)), nil
		}
		return value.Of(value.StrSeq(items)), nil

	case dt == value.DSByteStr || dt == value.DSExtRef:
		var items []string
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return value.Value{}, fmt.Errorf("unmarshal %s value: %w", dt, err)
		}
		return elementsValue(dt, items)

	case text == "" && !dt.IsSequence():
		// The text form of a present empty scalar is ""; FromString would
		// read it back as no value.
		p, err := value.Zero(dt)
		if err != nil {
			return value.Value{}, err
		}
		return value.Of(p), nil

	default:
		return value.FromString(dt, text)
	}
}

// elementsValue rebuilds a byte-string or external-reference sequence from
// its element texts.
func elementsValue(dt value.DataType, items []string) (value.Value, error) {
	strs := value.ByteStrSeq{}
	refs := value.ExtRefSeq{}
	for i, item := range items {
		elem, err := unmarshalValue(dt.Elem(), item)
		if err != nil {
			return value.Value{}, fmt.Errorf("unmarshal %s element %d: %w", dt, i, err)
		}
		switch p := elem.Payload.(type) {
		case value.ByteStr:
			strs = append(strs, []byte(p))
		case value.ExtRef:
			refs = append(refs, p)
		}
	}
	if dt == value.DSByteStr {
		return value.Of(strs), nil
	}
	return value.Of(refs), nil
}

// marshalJSON encodes v with HTML escaping disabled.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalElement(data string) (*model.Element, error) {
	var e model.Element
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, fmt.Errorf("unmarshal element: %w", err)
	}
	return &e, nil
}

func unmarshalEnumeration(data string) (*model.Enumeration, error) {
	var e model.Enumeration
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, fmt.Errorf("unmarshal enumeration: %w", err)
	}
	return &e, nil
}
