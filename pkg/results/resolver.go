package results

// Navigation is the editor context a read or write happens in.
// Region is empty when no region is selected.
type Navigation struct {
	Item   int    `json:"item"`
	Region string `json:"region,omitempty"`
}

// Resolver routes control reads and writes to store entries by binding mode.
type Resolver struct {
	store *Store
}

// NewResolver creates a Resolver over store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Key computes the entry key for ctrl in nav. It reports false when the context
// is unaddressable: a perRegion control with no region selected.
func (r *Resolver) Key(ctrl Control, nav Navigation) (Key, bool) {
	switch ctrl.Mode {
	case PerItem:
		return ItemKey(ctrl.Name, nav.Item), true
	case PerRegion:
		if nav.Region == "" {
			return Key{}, false
		}
		return RegionKey(ctrl.Name, nav.Item, nav.Region), true
	default:
		return TagKey(ctrl.Name), true
	}
}

// Read returns the value ctrl shows in nav. The boolean is false when nothing
// has been written there yet.
func (r *Resolver) Read(ctrl Control, nav Navigation) (Value, bool) {
	key, ok := r.Key(ctrl, nav)
	if !ok {
		return Value{}, false
	}
	e, ok := r.store.Get(key)
	if !ok {
		return Value{}, false
	}
	return e.Value, true
}

// Write stores v as ctrl's answer in nav. Writes to an unaddressable context are
// dropped and report false.
func (r *Resolver) Write(ctrl Control, nav Navigation, v Value) (Entry, bool) {
	key, ok := r.Key(ctrl, nav)
	if !ok {
		return Entry{}, false
	}
	e, _ := r.store.Upsert(key, ctrl, v)
	return e, true
}

// Clear removes ctrl's answer in nav and reports whether one existed.
func (r *Resolver) Clear(ctrl Control, nav Navigation) bool {
	key, ok := r.Key(ctrl, nav)
	if !ok {
		return false
	}
	return r.store.Remove(key)
}
