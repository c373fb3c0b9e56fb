package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Record is one element of the flat result list exchanged with the platform.
// Fields the binding model does not use are kept in Extra, and value keys other
// than the typed payload stay in Value, so a record re-encodes to the same JSON object.
type Record struct {
	ID        string
	FromName  string
	ToName    string
	Type      string
	Value     map[string]json.RawMessage
	ItemIndex *int
	Origin    string
	Extra     map[string]json.RawMessage
}

// Clone returns a copy that shares no maps with r.
func (r Record) Clone() Record {
	r.Value = maps.Clone(r.Value)
	r.Extra = maps.Clone(r.Extra)
	if r.ItemIndex != nil {
		idx := *r.ItemIndex
		r.ItemIndex = &idx
	}
	return r
}

// MarshalJSON encodes the record as a single JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Extra)+7)
	maps.Copy(out, r.Extra)

	set := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		out[key] = data
		return nil
	}

	if r.ID != "" {
		if err := set("id", r.ID); err != nil {
			return nil, err
		}
	}
	if r.FromName != "" {
		if err := set("from_name", r.FromName); err != nil {
			return nil, err
		}
	}
	if r.ToName != "" {
		if err := set("to_name", r.ToName); err != nil {
			return nil, err
		}
	}
	if r.Type != "" {
		if err := set("type", r.Type); err != nil {
			return nil, err
		}
	}
	if r.Value != nil {
		if err := set("value", r.Value); err != nil {
			return nil, err
		}
	}
	if r.ItemIndex != nil {
		if err := set("item_index", *r.ItemIndex); err != nil {
			return nil, err
		}
	}
	if r.Origin != "" {
		if err := set("origin", r.Origin); err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes a record object. A known field whose JSON shape does not
// match is kept in Extra rather than rejected.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("result record must be an object")
	}

	*r = Record{}
	extra := make(map[string]json.RawMessage)

	for k, raw := range fields {
		var ok bool
		switch k {
		case "id":
			ok = json.Unmarshal(raw, &r.ID) == nil
		case "from_name":
			ok = json.Unmarshal(raw, &r.FromName) == nil
		case "to_name":
			ok = json.Unmarshal(raw, &r.ToName) == nil
		case "type":
			ok = json.Unmarshal(raw, &r.Type) == nil
		case "origin":
			ok = json.Unmarshal(raw, &r.Origin) == nil
		case "value":
			var v map[string]json.RawMessage
			if json.Unmarshal(raw, &v) == nil && v != nil {
				r.Value = v
				ok = true
			}
		case "item_index":
			var idx *int
			if json.Unmarshal(raw, &idx) == nil && idx != nil {
				r.ItemIndex = idx
				ok = true
			}
		}
		if !ok {
			extra[k] = raw
		}
	}

	if len(extra) > 0 {
		r.Extra = extra
	}
	return nil
}

// DecodeRecords parses a JSON result list.
func DecodeRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode result list: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// EncodeRecords renders a result list as JSON. A nil list encodes as [].
func EncodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}
