package results

import (
	"encoding/json"
	"maps"
)

// LoadReport counts how the records of a result list were stored.
type LoadReport struct {
	Bound  int `json:"bound"`
	Opaque int `json:"opaque"`
}

// Serialize flattens the store into the platform result list, in creation order.
// item_index is written for perItem and perRegion entries only; perRegion entries
// carry their region in the record id.
func Serialize(s *Store) []Record {
	out := make([]Record, 0, s.Len())
	for e := range s.All() {
		out = append(out, toRecord(e))
	}
	return out
}

// Deserialize loads records into s, binding each one through the binding mode of the
// control it names. Records that cannot be bound are kept as opaque entries so the
// list serializes back with the same length and values; so is every record after the
// first that binds to an already loaded key. Records without an origin take
// defaultOrigin when it is set.
//
// A perRegion record without item_index belongs to the item of its region's shape
// record, or item 0 when the region has no shape.
func Deserialize(s *Store, schema Schema, records []Record, defaultOrigin Origin) LoadReport {
	var report LoadReport
	owners := regionItems(records)
	for _, rec := range records {
		rec = rec.Clone()
		if rec.Origin == "" && defaultOrigin != "" {
			rec.Origin = string(defaultOrigin)
		}

		e, ok := bind(schema, owners, rec)
		if !ok || s.has(e.Key) {
			s.AddOpaque(rec)
			report.Opaque++
			continue
		}

		s.insert(&e)
		report.Bound++
	}
	return report
}

// regionItems maps each region id to the item of its first shape record,
// matching what DiscoverRegions reports once the records are loaded.
func regionItems(records []Record) map[string]int {
	owners := make(map[string]int)
	for _, rec := range records {
		if rec.ID == "" || !IsRegionType(rec.Type) {
			continue
		}
		if _, ok := owners[rec.ID]; ok {
			continue
		}
		item := 0
		if rec.ItemIndex != nil {
			item = *rec.ItemIndex
		}
		owners[rec.ID] = item
	}
	return owners
}

func bind(schema Schema, owners map[string]int, rec Record) (Entry, bool) {
	if schema == nil {
		return Entry{}, false
	}
	ctrl, ok := schema.Control(rec.FromName)
	if !ok || string(ctrl.Type) != rec.Type || !ctrl.Type.Known() {
		return Entry{}, false
	}

	raw, ok := rec.Value[rec.Type]
	if !ok {
		return Entry{}, false
	}
	v, err := decodePayload(ctrl.Type, raw)
	if err != nil {
		return Entry{}, false
	}

	m := meta{
		id:       rec.ID,
		fromName: rec.FromName,
		toName:   rec.ToName,
		extra:    maps.Clone(rec.Extra),
	}
	if len(rec.Value) > 1 {
		m.valueExtra = maps.Clone(rec.Value)
		delete(m.valueExtra, rec.Type)
	}

	var key Key
	switch ctrl.Mode {
	case PerItem:
		if rec.ItemIndex == nil {
			return Entry{}, false
		}
		key = ItemKey(ctrl.Name, *rec.ItemIndex)
	case PerRegion:
		if rec.ID == "" {
			return Entry{}, false
		}
		item := owners[rec.ID]
		if rec.ItemIndex != nil {
			item = *rec.ItemIndex
		} else {
			m.omitItem = true
		}
		key = RegionKey(ctrl.Name, item, rec.ID)
	default:
		m.tagItem = rec.ItemIndex
		key = TagKey(ctrl.Name)
	}

	return Entry{
		Key:      key,
		Control:  ctrl,
		Value:    v,
		Required: ctrl.Required,
		Origin:   Origin(rec.Origin),
		meta:     m,
	}, true
}

func toRecord(e Entry) Record {
	if e.Opaque() {
		return e.Raw.Clone()
	}

	rec := Record{
		ID:       e.meta.id,
		FromName: e.meta.fromName,
		ToName:   e.meta.toName,
		Type:     string(e.Control.Type),
		Origin:   string(e.Origin),
		Extra:    maps.Clone(e.meta.extra),
	}
	if rec.FromName == "" {
		rec.FromName = e.Control.Name
	}
	if rec.ToName == "" {
		rec.ToName = e.Control.ToName
	}

	rec.Value = maps.Clone(e.meta.valueExtra)
	if rec.Value == nil {
		rec.Value = make(map[string]json.RawMessage, 1)
	}
	if payload, err := e.Value.payload(); err == nil {
		rec.Value[rec.Type] = payload
	}

	switch {
	case e.Control.Mode == PerTag:
		if e.meta.tagItem != nil {
			idx := *e.meta.tagItem
			rec.ItemIndex = &idx
		}
	case !e.meta.omitItem:
		idx := e.Key.Item
		rec.ItemIndex = &idx
	}
	if e.Control.Mode == PerRegion {
		rec.ID = e.Key.Region
	}

	return rec
}
