package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cynaps/labelstate/internal/annotations"
	"github.com/cynaps/labelstate/internal/projects"
	"github.com/cynaps/labelstate/pkg/drafts"
	"github.com/cynaps/labelstate/pkg/results"
)

// Session is one open annotation view. It owns its result store exclusively and
// runs one operation at a time under its mutex, so reads always observe the
// completed effect of earlier writes. The closed flag and last use time are
// atomic so the registry reads them without waiting on a running operation.
type Session struct {
	mu sync.Mutex

	id           uuid.UUID
	annotation   *annotations.Annotation
	project      *projects.Project
	store        *results.Store
	resolver     *results.Resolver
	regions      []results.Region
	nav          results.Navigation
	history      []snapshot
	historyLimit int
	dirty        bool
	restored     bool
	openedAt     time.Time

	closed   atomic.Bool
	lastUsed atomic.Int64 // unix nanoseconds

	annotations Annotations
	drafts      drafts.System
	logger      *slog.Logger
}

type snapshot struct {
	entries []results.Entry
	regions []results.Region
	nav     results.Navigation
}

// State is the externally visible view of a session in its current navigation.
type State struct {
	ID           uuid.UUID          `json:"id"`
	AnnotationID uuid.UUID          `json:"annotation_id"`
	ProjectID    uuid.UUID          `json:"project_id"`
	Kind         annotations.Kind   `json:"kind"`
	ItemCount    int                `json:"item_count"`
	Navigation   results.Navigation `json:"navigation"`
	Regions      []results.Region   `json:"regions"`
	Controls     []ControlState     `json:"controls"`
	Entries      int                `json:"entries"`
	Dirty        bool               `json:"dirty"`
	CanUndo      bool               `json:"can_undo"`
	Restored     bool               `json:"restored"`
	OpenedAt     time.Time          `json:"opened_at"`
}

// ControlState is a declared control with the value it shows in the current navigation.
type ControlState struct {
	results.Control
	Addressable bool           `json:"addressable"`
	Value       *results.Value `json:"value,omitempty"`
	Origin      results.Origin `json:"origin,omitempty"`
}

// ValueState is the answer one control shows in the current navigation.
// Addressable is false for a perRegion control while no region is selected.
type ValueState struct {
	Control     string         `json:"control"`
	Addressable bool           `json:"addressable"`
	Value       *results.Value `json:"value,omitempty"`
	Origin      results.Origin `json:"origin,omitempty"`
}

// WriteResult reports the outcome of a value write. Written is false when the
// write targeted an unaddressable context and was dropped.
type WriteResult struct {
	Control string         `json:"control"`
	Written bool           `json:"written"`
	Origin  results.Origin `json:"origin,omitempty"`
}

// SaveCommand controls how a session is persisted.
type SaveCommand struct {
	Submit      bool    `json:"submit"`
	CompletedBy *string `json:"completed_by"`
}

// SaveResult reports a save. A submit blocked by validation has Saved false and
// lists the warnings; nothing is written in that case.
type SaveResult struct {
	Saved      bool                    `json:"saved"`
	Warnings   []results.Warning       `json:"warnings"`
	Annotation *annotations.Annotation `json:"annotation,omitempty"`
}

// Validation is the result of checking required controls.
type Validation struct {
	Valid    bool              `json:"valid"`
	Warnings []results.Warning `json:"warnings"`
}

func newSession(
	a *annotations.Annotation,
	p *projects.Project,
	ann Annotations,
	store drafts.System,
	historyLimit int,
	logger *slog.Logger,
) *Session {
	id := uuid.New()
	now := time.Now()
	rs := results.NewStore()

	s := &Session{
		id:           id,
		annotation:   a,
		project:      p,
		store:        rs,
		resolver:     results.NewResolver(rs),
		regions:      make([]results.Region, 0),
		history:      make([]snapshot, 0),
		historyLimit: historyLimit,
		openedAt:     now,
		annotations:  ann,
		drafts:       store,
		logger:       logger.With("session", id, "annotation_id", a.ID),
	}
	s.lastUsed.Store(now.UnixNano())
	return s
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// AnnotationID returns the id of the annotation the session edits.
func (s *Session) AnnotationID() uuid.UUID { return s.annotation.ID }

// load fills the store from the autosaved draft when one exists, otherwise
// from the stored annotation result.
func (s *Session) load(ctx context.Context) results.LoadReport {
	records := s.annotation.Result

	draft, err := s.drafts.Load(ctx, s.annotation.ID)
	switch {
	case err == nil:
		records = draft.Result
		s.restored = true
		s.dirty = true
	case !errors.Is(err, drafts.ErrNotFound):
		s.logger.Warn("draft load failed, using stored result", "error", err)
	}

	report := results.Deserialize(s.store, s.project.Schema(), records, s.annotation.DefaultOrigin())
	s.regions = results.DiscoverRegions(s.store)

	if draft != nil && s.validNav(draft.Navigation) {
		s.nav = draft.Navigation
	}

	return report
}

// State returns the session view in its current navigation.
func (s *Session) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return State{}, err
	}
	return s.state(), nil
}

// Navigate moves to item. A selected region on another item is deselected.
func (s *Session) Navigate(item int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return State{}, err
	}
	if err := s.checkItem(item); err != nil {
		return State{}, err
	}

	s.nav.Item = item
	if s.nav.Region != "" {
		if r, ok := s.region(s.nav.Region); !ok || r.Item != item {
			s.nav.Region = ""
		}
	}
	return s.state(), nil
}

// SelectRegion selects a region and moves to its item. An empty id clears the selection.
func (s *Session) SelectRegion(id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return State{}, err
	}

	if id == "" {
		s.nav.Region = ""
		return s.state(), nil
	}

	r, ok := s.region(id)
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrRegionNotFound, id)
	}
	s.nav = results.Navigation{Item: r.Item, Region: r.ID}
	return s.state(), nil
}

// CreateRegion registers a drawn region from its shape record. The record keeps
// its own item_index; without one it is attached to the current item.
func (s *Session) CreateRegion(ctx context.Context, rec results.Record) (results.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return results.Region{}, err
	}
	if rec.ID == "" || !results.IsRegionType(rec.Type) {
		return results.Region{}, ErrInvalidRegion
	}
	if _, ok := s.region(rec.ID); ok {
		return results.Region{}, fmt.Errorf("%w: %s", ErrDuplicateRegion, rec.ID)
	}

	item := s.nav.Item
	if rec.ItemIndex != nil {
		item = *rec.ItemIndex
		if err := s.checkItem(item); err != nil {
			return results.Region{}, err
		}
	} else if item != 0 {
		rec.ItemIndex = &item
	}

	s.record()
	s.store.AddOpaque(rec)
	region := results.Region{ID: rec.ID, Item: item}
	s.regions = append(s.regions, region)
	s.changed(ctx)

	return region, nil
}

// DeleteRegion removes a region, its shape records, and every perRegion answer
// attached to it before returning.
func (s *Session) DeleteRegion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return err
	}

	idx := slices.IndexFunc(s.regions, func(r results.Region) bool { return r.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrRegionNotFound, id)
	}

	s.record()
	shapes := s.store.RemoveOpaque(id)
	answers := s.store.RemoveByRegion(id)
	s.regions = slices.Delete(s.regions, idx, idx+1)
	if s.nav.Region == id {
		s.nav.Region = ""
	}
	s.changed(ctx)

	s.logger.Debug("region deleted", "region", id, "shapes", shapes, "answers", answers)
	return nil
}

// SetValue writes v as the answer of control in the current navigation.
func (s *Session) SetValue(ctx context.Context, control string, v results.Value) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return WriteResult{}, err
	}
	ctrl, err := s.control(control)
	if err != nil {
		return WriteResult{}, err
	}
	if v.Type() != ctrl.Type {
		return WriteResult{}, fmt.Errorf("%w: %s is %s, got %s", ErrTypeMismatch, ctrl.Name, ctrl.Type, v.Type())
	}

	if _, ok := s.resolver.Key(ctrl, s.nav); !ok {
		droppedWrites.Inc()
		return WriteResult{Control: ctrl.Name}, nil
	}

	s.record()
	e, _ := s.resolver.Write(ctrl, s.nav, v)
	valueWrites.WithLabelValues(string(ctrl.Mode)).Inc()
	s.changed(ctx)

	return WriteResult{Control: ctrl.Name, Written: true, Origin: e.Origin}, nil
}

// ClearValue removes control's answer in the current navigation and reports
// whether one existed.
func (s *Session) ClearValue(ctx context.Context, control string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return false, err
	}
	ctrl, err := s.control(control)
	if err != nil {
		return false, err
	}

	if _, ok := s.resolver.Read(ctrl, s.nav); !ok {
		return false, nil
	}

	s.record()
	s.resolver.Clear(ctrl, s.nav)
	s.changed(ctx)
	return true, nil
}

// Value returns the answer control shows in the current navigation.
func (s *Session) Value(control string) (ValueState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return ValueState{}, err
	}
	ctrl, err := s.control(control)
	if err != nil {
		return ValueState{}, err
	}

	cs := s.controlState(ctrl)
	return ValueState{
		Control:     ctrl.Name,
		Addressable: cs.Addressable,
		Value:       cs.Value,
		Origin:      cs.Origin,
	}, nil
}

// Undo restores the store, regions, and navigation to their state before the
// last mutation.
func (s *Session) Undo(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return State{}, err
	}
	if len(s.history) == 0 {
		return State{}, ErrNothingToUndo
	}

	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]

	s.store.Restore(last.entries)
	s.regions = last.regions
	s.nav = last.nav
	s.dirty = true
	s.autosave(ctx)

	return s.state(), nil
}

// Validate checks every required control against the session's items and regions.
func (s *Session) Validate() (Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return Validation{}, err
	}
	w := s.validate()
	return Validation{Valid: len(w) == 0, Warnings: w}, nil
}

// Result serializes the store into the platform result list.
func (s *Session) Result() ([]results.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return nil, err
	}
	return results.Serialize(s.store), nil
}

// Save writes the serialized store to the annotation and drops the draft.
// A submit runs validation first and is blocked by any warning.
func (s *Session) Save(ctx context.Context, cmd SaveCommand) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return nil, err
	}

	if cmd.Submit {
		if w := s.validate(); len(w) > 0 {
			saves.WithLabelValues("blocked").Inc()
			s.logger.Info("session submit blocked", "warnings", len(w))
			return &SaveResult{Saved: false, Warnings: w}, nil
		}
	}

	records := results.Serialize(s.store)
	a, err := s.annotations.Update(ctx, s.annotation.ID, annotations.UpdateCommand{
		Result:      records,
		CompletedBy: cmd.CompletedBy,
	})
	if err != nil {
		saves.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("save annotation %s: %w", s.annotation.ID, err)
	}

	s.annotation = a
	s.dirty = false
	if err := s.drafts.Delete(ctx, a.ID); err != nil {
		s.logger.Warn("draft delete failed", "error", err)
	}

	saves.WithLabelValues("saved").Inc()
	s.logger.Info("session saved", "records", len(records), "submit", cmd.Submit)

	return &SaveResult{Saved: true, Warnings: []results.Warning{}, Annotation: a}, nil
}

// close marks the session closed. An operation already running completes;
// later ones fail with ErrSessionNotFound.
func (s *Session) close() {
	s.closed.Store(true)
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		ID:           s.id,
		AnnotationID: s.annotation.ID,
		ProjectID:    s.annotation.ProjectID,
		Dirty:        s.dirty,
		OpenedAt:     s.openedAt,
		LastUsed:     s.idleSince(),
	}
}

func (s *Session) check() error {
	if s.closed.Load() {
		return ErrSessionNotFound
	}
	s.lastUsed.Store(time.Now().UnixNano())
	return nil
}

func (s *Session) itemCount() int {
	return max(s.annotation.ItemCount, 1)
}

func (s *Session) checkItem(item int) error {
	if item < 0 || item >= s.itemCount() {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrItemOutOfRange, item, s.itemCount())
	}
	return nil
}

func (s *Session) validNav(nav results.Navigation) bool {
	if s.checkItem(nav.Item) != nil {
		return false
	}
	if nav.Region == "" {
		return true
	}
	r, ok := s.region(nav.Region)
	return ok && r.Item == nav.Item
}

func (s *Session) region(id string) (results.Region, bool) {
	for _, r := range s.regions {
		if r.ID == id {
			return r, true
		}
	}
	return results.Region{}, false
}

func (s *Session) control(name string) (results.Control, error) {
	ctrl, ok := s.project.Controls.Control(name)
	if !ok {
		return results.Control{}, fmt.Errorf("%w: %s", ErrUnknownControl, name)
	}
	return ctrl, nil
}

func (s *Session) controlState(ctrl results.Control) ControlState {
	cs := ControlState{Control: ctrl}

	key, ok := s.resolver.Key(ctrl, s.nav)
	if !ok {
		return cs
	}
	cs.Addressable = true

	if e, ok := s.store.Get(key); ok {
		v := e.Value
		cs.Value = &v
		cs.Origin = e.Origin
	}
	return cs
}

func (s *Session) state() State {
	controls := make([]ControlState, 0, len(s.project.Controls))
	for _, ctrl := range s.project.Controls {
		controls = append(controls, s.controlState(ctrl))
	}

	return State{
		ID:           s.id,
		AnnotationID: s.annotation.ID,
		ProjectID:    s.annotation.ProjectID,
		Kind:         s.annotation.Kind,
		ItemCount:    s.itemCount(),
		Navigation:   s.nav,
		Regions:      slices.Clone(s.regions),
		Controls:     controls,
		Entries:      s.store.Len(),
		Dirty:        s.dirty,
		CanUndo:      len(s.history) > 0,
		Restored:     s.restored,
		OpenedAt:     s.openedAt,
	}
}

func (s *Session) validate() []results.Warning {
	scope := results.Scope{
		Items:   s.itemCount(),
		Regions: slices.Clone(s.regions),
	}
	w := results.Validate(s.store, s.project.Controls, scope)
	validationWarnings.Add(float64(len(w)))
	return w
}

// record pushes an undo snapshot, dropping the oldest beyond the history limit.
func (s *Session) record() {
	s.history = append(s.history, snapshot{
		entries: s.store.Snapshot(),
		regions: slices.Clone(s.regions),
		nav:     s.nav,
	})
	if over := len(s.history) - s.historyLimit; over > 0 {
		s.history = slices.Delete(s.history, 0, over)
	}
}

func (s *Session) changed(ctx context.Context) {
	s.dirty = true
	s.autosave(ctx)
}

// autosave writes the current state as the annotation's draft. Failures are
// logged; the live session stays authoritative.
func (s *Session) autosave(ctx context.Context) {
	d := drafts.Draft{
		AnnotationID: s.annotation.ID,
		Result:       results.Serialize(s.store),
		Regions:      slices.Clone(s.regions),
		Navigation:   s.nav,
	}
	if err := s.drafts.Save(ctx, d); err != nil {
		s.logger.Warn("draft autosave failed", "error", err)
	}
}
