package results

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Type identifies the payload carried by a control's result.
type Type string

const (
	TypeChoices  Type = "choices"
	TypeNumber   Type = "number"
	TypeRating   Type = "rating"
	TypeTaxonomy Type = "taxonomy"
)

// Known reports whether t is one of the handled control types.
func (t Type) Known() bool {
	switch t {
	case TypeChoices, TypeNumber, TypeRating, TypeTaxonomy:
		return true
	}
	return false
}

// Value is a closed tagged variant holding one control answer.
// The zero Value is absent.
type Value struct {
	kind     Type
	choices  []string
	number   float64
	rating   int
	taxonomy [][]string
}

// ChoicesValue returns a choices payload.
func ChoicesValue(choices ...string) Value {
	return Value{kind: TypeChoices, choices: slices.Clone(choices)}
}

// NumberValue returns a number payload.
func NumberValue(n float64) Value {
	return Value{kind: TypeNumber, number: n}
}

// RatingValue returns a rating payload.
func RatingValue(n int) Value {
	return Value{kind: TypeRating, rating: n}
}

// TaxonomyValue returns a taxonomy payload; each path lists the nodes from root to leaf.
func TaxonomyValue(paths ...[]string) Value {
	cloned := make([][]string, len(paths))
	for i, p := range paths {
		cloned[i] = slices.Clone(p)
	}
	return Value{kind: TypeTaxonomy, taxonomy: cloned}
}

// Type returns the payload type, or "" for an absent value.
func (v Value) Type() Type { return v.kind }

// Choices returns the selected choices of a choices payload.
func (v Value) Choices() []string { return slices.Clone(v.choices) }

// Number returns the number of a number payload.
func (v Value) Number() float64 { return v.number }

// Rating returns the rating of a rating payload.
func (v Value) Rating() int { return v.rating }

// Taxonomy returns the selected paths of a taxonomy payload.
func (v Value) Taxonomy() [][]string {
	out := make([][]string, len(v.taxonomy))
	for i, p := range v.taxonomy {
		out[i] = slices.Clone(p)
	}
	return out
}

// Empty reports whether the value fails the requirement check for its type.
// A number or rating is present once written, zero included.
func (v Value) Empty() bool {
	switch v.kind {
	case TypeChoices:
		return len(v.choices) == 0
	case TypeNumber, TypeRating:
		return false
	case TypeTaxonomy:
		return len(v.taxonomy) == 0
	}
	return true
}

// Equal reports whether two values carry the same payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case TypeChoices:
		return slices.Equal(v.choices, o.choices)
	case TypeNumber:
		return v.number == o.number
	case TypeRating:
		return v.rating == o.rating
	case TypeTaxonomy:
		return slices.EqualFunc(v.taxonomy, o.taxonomy, func(a, b []string) bool {
			return slices.Equal(a, b)
		})
	}
	return true
}

// MarshalJSON encodes the value in its wire shape, {"<type>": payload}.
func (v Value) MarshalJSON() ([]byte, error) {
	payload, err := v.payload()
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{string(v.kind): payload})
}

// UnmarshalJSON decodes a {"<type>": payload} object into a typed value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, t := range []Type{TypeChoices, TypeNumber, TypeRating, TypeTaxonomy} {
		if raw, ok := fields[string(t)]; ok {
			decoded, err := decodePayload(t, raw)
			if err != nil {
				return err
			}
			*v = decoded
			return nil
		}
	}
	return fmt.Errorf("value carries no known payload")
}

func (v Value) payload() (json.RawMessage, error) {
	switch v.kind {
	case TypeChoices:
		choices := v.choices
		if choices == nil {
			choices = []string{}
		}
		return json.Marshal(choices)
	case TypeNumber:
		return json.Marshal(v.number)
	case TypeRating:
		return json.Marshal(v.rating)
	case TypeTaxonomy:
		paths := v.taxonomy
		if paths == nil {
			paths = [][]string{}
		}
		return json.Marshal(paths)
	}
	return nil, fmt.Errorf("no payload for type %q", v.kind)
}

func decodePayload(t Type, raw json.RawMessage) (Value, error) {
	switch t {
	case TypeChoices:
		var choices []string
		if err := json.Unmarshal(raw, &choices); err != nil {
			return Value{}, fmt.Errorf("decode choices: %w", err)
		}
		return Value{kind: TypeChoices, choices: choices}, nil
	case TypeNumber:
		var n *float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, fmt.Errorf("decode number: %w", err)
		}
		if n == nil {
			return Value{}, fmt.Errorf("decode number: null")
		}
		return NumberValue(*n), nil
	case TypeRating:
		var n *int
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, fmt.Errorf("decode rating: %w", err)
		}
		if n == nil {
			return Value{}, fmt.Errorf("decode rating: null")
		}
		return RatingValue(*n), nil
	case TypeTaxonomy:
		var paths [][]string
		if err := json.Unmarshal(raw, &paths); err != nil {
			return Value{}, fmt.Errorf("decode taxonomy: %w", err)
		}
		return Value{kind: TypeTaxonomy, taxonomy: paths}, nil
	}
	return Value{}, fmt.Errorf("unknown type %q", t)
}
