package results

import (
	"fmt"
	"iter"
	"slices"
)

// opaquePrefix starts the synthetic control reference of pass-through entries.
// Control names declared by a configuration never contain it.
const opaquePrefix = "~opaque:"

// Store maps keys to entries and remembers the order entries were created in.
// Replacing a value never moves an entry; serialization order is creation order.
type Store struct {
	entries map[Key]*Entry
	order   []Key
	seq     int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[Key]*Entry),
		order:   make([]Key, 0),
	}
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return len(s.order)
}

// Get returns the entry stored under key.
func (s *Store) Get(key Key) (Entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Upsert creates the entry for key at the tail of the store, or replaces the value
// of the existing entry in place. The required flag is copied from the control
// when the entry is created. It reports whether the entry was created.
func (s *Store) Upsert(key Key, ctrl Control, v Value) (Entry, bool) {
	if e, ok := s.entries[key]; ok {
		e.Value = v
		switch e.Origin {
		case OriginPrediction:
			e.Origin = OriginPredictionChanged
		case "":
			e.Origin = OriginManual
		}
		return e.clone(), false
	}

	e := &Entry{
		Key:      key,
		Control:  ctrl,
		Value:    v,
		Required: ctrl.Required,
		Origin:   OriginManual,
	}
	s.insert(e)
	return e.clone(), true
}

// AddOpaque appends a record that is not bound to any declared control. The
// record is kept unchanged and serializes back exactly as given.
func (s *Store) AddOpaque(rec Record) Entry {
	e := s.opaque(rec)
	s.insert(e)
	return e.clone()
}

// Remove deletes the entry under key. Removing an absent key is a no-op.
func (s *Store) Remove(key Key) bool {
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	s.order = slices.DeleteFunc(s.order, func(k Key) bool { return k == key })
	return true
}

// RemoveByRegion deletes every perRegion entry attached to region and returns
// how many were removed.
func (s *Store) RemoveByRegion(region string) int {
	if region == "" {
		return 0
	}
	return s.removeFunc(func(e *Entry) bool {
		return !e.Opaque() && e.Key.Region == region
	})
}

// RemoveOpaque deletes pass-through entries whose record id matches id and returns
// how many were removed. Region stores use it to drop a region's own shape records.
func (s *Store) RemoveOpaque(id string) int {
	if id == "" {
		return 0
	}
	return s.removeFunc(func(e *Entry) bool {
		return e.Opaque() && e.Raw.ID == id
	})
}

// All yields entries in creation order. Each range re-walks the store as it is
// when iteration starts; mutations during iteration are not observed.
func (s *Store) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		keys := slices.Clone(s.order)
		for _, k := range keys {
			e, ok := s.entries[k]
			if !ok {
				continue
			}
			if !yield(e.clone()) {
				return
			}
		}
	}
}

// Snapshot captures the store contents for a later Restore.
func (s *Store) Snapshot() []Entry {
	return slices.Collect(s.All())
}

// Restore replaces the store contents with a snapshot, keeping its order.
func (s *Store) Restore(snapshot []Entry) {
	s.entries = make(map[Key]*Entry, len(snapshot))
	s.order = make([]Key, 0, len(snapshot))
	for _, e := range snapshot {
		c := e.clone()
		s.insert(&c)
	}
}

// Reset discards every entry.
func (s *Store) Reset() {
	s.Restore(nil)
}

func (s *Store) opaque(rec Record) *Entry {
	s.seq++
	raw := rec.Clone()
	return &Entry{
		Key:    Key{Control: fmt.Sprintf("%s%d", opaquePrefix, s.seq), Item: NoItem},
		Origin: Origin(rec.Origin),
		Raw:    &raw,
	}
}

func (s *Store) has(key Key) bool {
	_, ok := s.entries[key]
	return ok
}

func (s *Store) insert(e *Entry) {
	if _, ok := s.entries[e.Key]; !ok {
		s.order = append(s.order, e.Key)
	}
	s.entries[e.Key] = e
}

func (s *Store) removeFunc(match func(*Entry) bool) int {
	removed := 0
	for k, e := range s.entries {
		if match(e) {
			delete(s.entries, k)
			removed++
		}
	}
	if removed > 0 {
		s.order = slices.DeleteFunc(s.order, func(k Key) bool {
			_, ok := s.entries[k]
			return !ok
		})
	}
	return removed
}
