// Package results implements the classification result binding model used by the
// annotation editor: a keyed store of control answers, the resolver that routes reads
// and writes by binding mode and navigation, the serializer that exchanges the store
// with the platform's flat result list, and the required-control validator.
//
// All operations are synchronous and in-memory. A Store is owned by a single
// annotation session and is not safe for concurrent use.
package results

import (
	"encoding/json"
	"fmt"
	"maps"
)

// BindingMode decides where a control's answer is attached.
type BindingMode string

const (
	// PerTag shares one answer across the whole task.
	PerTag BindingMode = "perTag"
	// PerItem keeps one answer per item of a multi-item group.
	PerItem BindingMode = "perItem"
	// PerRegion keeps one answer per drawn region.
	PerRegion BindingMode = "perRegion"
)

// Valid reports whether m is a known binding mode.
func (m BindingMode) Valid() bool {
	switch m {
	case PerTag, PerItem, PerRegion:
		return true
	}
	return false
}

// Origin records where a result came from.
type Origin string

const (
	OriginManual            Origin = "manual"
	OriginPrediction        Origin = "prediction"
	OriginPredictionChanged Origin = "prediction-changed"
)

// Control is the static declaration of a classification control.
type Control struct {
	Name            string      `json:"name" yaml:"name" validate:"required,max=128"`
	Type            Type        `json:"type" yaml:"type" validate:"required,oneof=choices number rating taxonomy"`
	Mode            BindingMode `json:"binding_mode" yaml:"binding_mode" validate:"required,oneof=perTag perItem perRegion"`
	Required        bool        `json:"required" yaml:"required"`
	RequiredMessage string      `json:"required_message,omitempty" yaml:"required_message,omitempty"`
	ToName          string      `json:"to_name,omitempty" yaml:"to_name,omitempty"`
}

// Schema exposes the controls declared by a labeling configuration.
type Schema interface {
	Control(name string) (Control, bool)
	Controls() []Control
}

// ControlSet is a Schema backed by a declaration-ordered slice.
type ControlSet []Control

func (s ControlSet) Control(name string) (Control, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Control{}, false
}

func (s ControlSet) Controls() []Control {
	return s
}

// NoItem marks a key that is not scoped to an item.
const NoItem = -1

// Key addresses one entry in the store.
type Key struct {
	Control string
	Item    int
	Region  string
}

// TagKey addresses a perTag entry.
func TagKey(control string) Key {
	return Key{Control: control, Item: NoItem}
}

// ItemKey addresses a perItem entry.
func ItemKey(control string, item int) Key {
	return Key{Control: control, Item: item}
}

// RegionKey addresses a perRegion entry for a region owned by item.
func RegionKey(control string, item int, region string) Key {
	return Key{Control: control, Item: item, Region: region}
}

func (k Key) String() string {
	return fmt.Sprintf("%s[item=%d,region=%q]", k.Control, k.Item, k.Region)
}

// Entry is one live control answer for an (item, region) context.
// Opaque entries hold records that could not be bound to a control; their
// Value is absent and Raw holds the record as loaded.
type Entry struct {
	Key      Key
	Control  Control
	Value    Value
	Required bool
	Origin   Origin
	Raw      *Record

	meta meta
}

// Opaque reports whether the entry passes a record through unbound.
func (e Entry) Opaque() bool {
	return e.Raw != nil
}

// meta holds wire fields that belong to the record but not to the binding model.
type meta struct {
	id         string
	fromName   string
	toName     string
	extra      map[string]json.RawMessage
	valueExtra map[string]json.RawMessage

	// omitItem keeps a perRegion record loaded without item_index in that shape.
	omitItem bool

	// tagItem is the item_index a perTag record was loaded with, if any.
	tagItem *int
}

func (m meta) clone() meta {
	m.extra = maps.Clone(m.extra)
	m.valueExtra = maps.Clone(m.valueExtra)
	if m.tagItem != nil {
		idx := *m.tagItem
		m.tagItem = &idx
	}
	return m
}

func (e Entry) clone() Entry {
	e.meta = e.meta.clone()
	if e.Raw != nil {
		raw := e.Raw.Clone()
		e.Raw = &raw
	}
	return e
}
