package results

import (
	"fmt"
	"slices"
	"strings"
)

// shapeTypes are the record types that draw a region without a label list.
// Every "*labels" type draws one as well.
var shapeTypes = []string{
	"rectangle",
	"polygon",
	"polyline",
	"ellipse",
	"keypoint",
	"brush",
	"bitmask",
	"videorectangle",
}

// IsRegionType reports whether records of type t define a region rather than
// answer a control about one.
func IsRegionType(t string) bool {
	return strings.HasSuffix(t, "labels") || slices.Contains(shapeTypes, t)
}

// Region is a drawn annotation target as known to the validator: an id and the
// item that owns it.
type Region struct {
	ID   string `json:"id"`
	Item int    `json:"item"`
}

// Scope describes the task a validation runs against.
type Scope struct {
	Items   int      `json:"items"`
	Regions []Region `json:"regions"`
}

// Warning reports a required control with at least one missing answer.
type Warning struct {
	Control string `json:"control"`
	Message string `json:"message"`
}

// Validate checks every required control against the store and returns one warning
// per control that is missing an answer in any context it must be answered in.
// Warnings follow control declaration order. An empty result means the task passes.
func Validate(s *Store, controls []Control, scope Scope) []Warning {
	items := max(scope.Items, 1)
	warnings := make([]Warning, 0)

	for _, ctrl := range controls {
		if !ctrl.Required {
			continue
		}

		satisfied := true
		switch ctrl.Mode {
		case PerItem:
			for i := range items {
				if !answered(s, ItemKey(ctrl.Name, i)) {
					satisfied = false
					break
				}
			}
		case PerRegion:
			for _, r := range scope.Regions {
				if !answered(s, RegionKey(ctrl.Name, r.Item, r.ID)) {
					satisfied = false
					break
				}
			}
		default:
			satisfied = answered(s, TagKey(ctrl.Name))
		}

		if !satisfied {
			warnings = append(warnings, Warning{
				Control: ctrl.Name,
				Message: RequiredMessage(ctrl),
			})
		}
	}

	return warnings
}

// RequiredMessage returns the warning text shown when ctrl is left unanswered.
func RequiredMessage(ctrl Control) string {
	if ctrl.RequiredMessage != "" {
		return ctrl.RequiredMessage
	}
	kind := "Control"
	switch ctrl.Type {
	case TypeChoices:
		kind = "Checkbox"
	case TypeNumber:
		kind = "Number"
	case TypeRating:
		kind = "Rating"
	case TypeTaxonomy:
		kind = "Taxonomy"
	}
	return fmt.Sprintf("%s %q is required.", kind, ctrl.Name)
}

// DiscoverRegions lists the regions defined by pass-through shape records: every
// opaque entry with a record id and a region type defines a region owned by its
// item_index, or item 0. Opaque answers such as an unbound textarea are not
// regions. Regions are returned in store order without duplicates.
func DiscoverRegions(s *Store) []Region {
	regions := make([]Region, 0)
	for e := range s.All() {
		if !e.Opaque() || e.Raw.ID == "" || !IsRegionType(e.Raw.Type) {
			continue
		}
		if slices.ContainsFunc(regions, func(r Region) bool { return r.ID == e.Raw.ID }) {
			continue
		}
		item := 0
		if e.Raw.ItemIndex != nil {
			item = *e.Raw.ItemIndex
		}
		regions = append(regions, Region{ID: e.Raw.ID, Item: item})
	}
	return regions
}

func answered(s *Store, key Key) bool {
	e, ok := s.Get(key)
	return ok && !e.Value.Empty()
}
