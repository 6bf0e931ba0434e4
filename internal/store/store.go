// Package store owns the canonical annotation records. Edits either go
// straight to the canonical state as one undoable step, or accumulate in
// a live overlay while a gesture is in flight and are committed at the
// end of it.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/host"
)

const DefaultHistoryLimit = 250

var (
	ErrDuplicateID        = errors.New("duplicate feature id")
	ErrLastCommentArrow   = errors.New("comment must keep at least one arrow")
	ErrDrawingInProgress  = errors.New("drawing already in progress")
	ErrHistoryUnavailable = errors.New("history unavailable while editing")
)

type Store struct {
	logger *slog.Logger
	limit  int

	present State
	past    []State
	future  []State

	live map[string]*annotation.Feature

	batchDepth int
	batchBase  State
	pending    Change
	hasPending bool
	dirty      bool

	drawing  []string
	drawBase State

	selection     []string
	camera        host.Camera
	lastCommitted []string

	listeners []func(Change)
	subs      []*subscriber
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithHistoryLimit caps the number of undo steps kept.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		logger:  slog.Default(),
		limit:   DefaultHistoryLimit,
		present: emptyState(),
		live:    make(map[string]*annotation.Feature),
		camera:  host.DefaultCamera(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Reads ---

// State is the canonical snapshot, ignoring the live overlay.
func (s *Store) State() State { return s.present }

// Get returns the live record for id if one is being edited, otherwise
// the canonical record.
func (s *Store) Get(id string) (*annotation.Feature, bool) {
	if f, ok := s.live[id]; ok {
		return f, true
	}
	return s.present.Get(id)
}

// Canonical returns the committed record for id.
func (s *Store) Canonical(id string) (*annotation.Feature, bool) {
	return s.present.Get(id)
}

// Features returns every record in insertion order, live overlay applied.
func (s *Store) Features() []*annotation.Feature {
	out := s.present.Features()
	if len(s.live) == 0 {
		return out
	}
	for i, f := range out {
		if lf, ok := s.live[f.ID]; ok {
			out[i] = lf
		}
	}
	return out
}

// Order returns the insertion position of id, or -1.
func (s *Store) Order(id string) int {
	return slices.Index(s.present.order, id)
}

func (s *Store) Len() int { return s.present.Len() }

func (s *Store) IsLive(id string) bool {
	_, ok := s.live[id]
	return ok
}

// LiveIDs lists the ids currently held in the overlay.
func (s *Store) LiveIDs() []string {
	out := make([]string, 0, len(s.live))
	for _, id := range s.present.order {
		if _, ok := s.live[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// LastCommitted lists the ids written by the last live commit.
func (s *Store) LastCommitted() []string { return s.lastCommitted }

// AttachedArrows lists the arrows with an endpoint linked to id.
func (s *Store) AttachedArrows(id string) []*annotation.Feature {
	var out []*annotation.Feature
	for _, f := range s.Features() {
		if f.Kind == annotation.KindArrow && f.LinkedTo(id) {
			out = append(out, f)
		}
	}
	return out
}

// --- Immediate writes ---

// AddFeatures inserts new records as one step.
func (s *Store) AddFeatures(features ...*annotation.Feature) error {
	next := s.present
	ch := Change{}
	for _, f := range features {
		if err := f.Validate(); err != nil {
			s.logger.Warn("add feature refused", "id", f.ID, "error", err)
			return err
		}
		if _, exists := next.Get(f.ID); exists {
			s.logger.Warn("add feature refused", "id", f.ID, "error", ErrDuplicateID)
			return fmt.Errorf("add %s: %w", f.ID, ErrDuplicateID)
		}
		next = next.with(f)
		ch.Added = append(ch.Added, f.ID)
	}
	return s.commit(next, ch)
}

// UpdateFeature replaces the canonical record of id with fn's result. It
// reports false for unknown ids, a nil result or an unchanged record.
func (s *Store) UpdateFeature(id string, fn func(*annotation.Feature) *annotation.Feature) bool {
	f, ok := s.present.Get(id)
	if !ok {
		return false
	}
	next := fn(f)
	if next == nil || sameRecord(f, next) {
		return false
	}
	if next.ID != id {
		s.logger.Warn("update changed feature id", "id", id, "next", next.ID)
		return false
	}
	if err := next.Validate(); err != nil {
		s.logger.Warn("update refused", "id", id, "error", err)
		return false
	}
	held, live := s.live[id]
	delete(s.live, id)
	if err := s.commit(s.present.with(next), Change{Updated: []string{id}}); err != nil {
		if live {
			s.live[id] = held
		}
		return false
	}
	return true
}

// RemoveFeatures deletes ids together with everything the deletion
// cascades to, as one step. Unknown ids are ignored.
func (s *Store) RemoveFeatures(ids ...string) error {
	plan, err := planRemoval(s.present, ids)
	if err != nil {
		s.logger.Warn("remove refused", "ids", ids, "error", err)
		return err
	}
	if len(plan.order) == 0 {
		return nil
	}

	next := s.present.without(plan.ids)
	ch := Change{Removed: plan.order}
	for _, f := range plan.unlinked {
		next = next.with(f)
		ch.Updated = append(ch.Updated, f.ID)
	}
	held := make(map[string]*annotation.Feature)
	for _, id := range plan.order {
		if f, ok := s.live[id]; ok {
			held[id] = f
			delete(s.live, id)
		}
	}
	if err := s.commit(next, ch); err != nil {
		maps.Copy(s.live, held)
		return err
	}
	s.selection = slices.DeleteFunc(slices.Clone(s.selection), func(id string) bool { return plan.ids[id] })
	return nil
}

// Reset replaces all records and drops history, selection and overlay.
func (s *Store) Reset(features []*annotation.Feature) error {
	next := emptyState()
	for _, f := range features {
		if err := f.Validate(); err != nil {
			return err
		}
		if _, exists := next.Get(f.ID); exists {
			return fmt.Errorf("reset %s: %w", f.ID, ErrDuplicateID)
		}
		next = next.with(f)
	}
	ch := diff(s.present, next)
	ch.Updated = append(ch.Updated, s.LiveIDs()...)
	s.present = next
	s.past, s.future = nil, nil
	s.live = make(map[string]*annotation.Feature)
	s.selection = nil
	s.drawing = nil
	s.emit(ch)
	return nil
}

// --- Live overlay ---

// StartLiveUpdate snapshots ids into the overlay. Ids already live keep
// their overlay record.
func (s *Store) StartLiveUpdate(ids ...string) {
	for _, id := range ids {
		if _, ok := s.live[id]; ok {
			continue
		}
		if f, ok := s.present.Get(id); ok {
			s.live[id] = f
		}
	}
}

// ApplyLiveUpdate writes records into the overlay without touching the
// canonical state or history. Only ids scoped by StartLiveUpdate or
// BeginDrawing are accepted; others are ignored.
func (s *Store) ApplyLiveUpdate(features ...*annotation.Feature) {
	ch := Change{Live: true}
	for _, f := range features {
		if _, ok := s.live[f.ID]; !ok {
			s.logger.Warn("live update outside session", "id", f.ID)
			continue
		}
		s.live[f.ID] = f
		ch.Updated = append(ch.Updated, f.ID)
	}
	if !ch.Empty() {
		s.emit(ch)
	}
}

// CommitLiveUpdates merges the overlay (or only ids, when given) into the
// canonical state as a single step and clears those entries. Records that
// did not change are dropped silently. It returns the ids actually written.
// A commit that would leave a Comment without arrows is refused and the
// entries are discarded.
func (s *Store) CommitLiveUpdates(ids ...string) ([]string, error) {
	if len(ids) == 0 {
		ids = s.LiveIDs()
	}

	next := s.present
	var changed, reverted []string
	for _, id := range ids {
		f, ok := s.live[id]
		if !ok {
			continue
		}
		delete(s.live, id)
		if canon, ok := s.present.Get(id); ok && !sameRecord(canon, f) {
			next = next.with(f)
			changed = append(changed, id)
		} else {
			reverted = append(reverted, id)
		}
	}

	s.lastCommitted = nil
	if len(changed) > 0 {
		if err := s.commit(next, Change{Updated: changed}); err != nil {
			s.emit(Change{Updated: append(changed, reverted...), Live: true})
			return nil, err
		}
	}
	s.lastCommitted = changed
	if len(reverted) > 0 {
		s.emit(Change{Updated: reverted, Live: true})
	}
	return changed, nil
}

// CancelLiveUpdates discards the whole overlay.
func (s *Store) CancelLiveUpdates() {
	ids := s.LiveIDs()
	if len(ids) == 0 {
		return
	}
	s.live = make(map[string]*annotation.Feature)
	s.emit(Change{Updated: ids, Live: true})
}

// --- Drawing sessions ---

// BeginDrawing inserts placeholder records without recording history and
// opens a live session over them. CompleteDrawing turns the whole session
// into one undo step; CancelDrawing removes the placeholders.
func (s *Store) BeginDrawing(features ...*annotation.Feature) error {
	if len(s.drawing) > 0 {
		return ErrDrawingInProgress
	}
	base := s.present
	next := s.present
	ch := Change{}
	for _, f := range features {
		if err := f.Validate(); err != nil {
			return err
		}
		if _, exists := next.Get(f.ID); exists {
			return fmt.Errorf("draw %s: %w", f.ID, ErrDuplicateID)
		}
		next = next.with(f)
		ch.Added = append(ch.Added, f.ID)
	}
	s.drawBase = base
	for _, f := range features {
		s.drawing = append(s.drawing, f.ID)
	}
	s.present = next
	s.StartLiveUpdate(s.drawing...)
	s.emit(ch)
	return nil
}

// Drawing lists the placeholder ids of the active session.
func (s *Store) Drawing() []string { return s.drawing }

// IsDrawing reports whether id belongs to the active drawing session.
func (s *Store) IsDrawing(id string) bool { return slices.Contains(s.drawing, id) }

func (s *Store) CompleteDrawing() []string {
	if len(s.drawing) == 0 {
		return nil
	}
	if _, err := s.CommitLiveUpdates(); err != nil {
		s.logger.Warn("drawing edits discarded", "error", err)
	}
	ids := s.drawing
	s.drawing = nil
	if !StatesEqual(s.drawBase, s.present) {
		s.pushHistory(s.drawBase)
		s.notify()
	}
	s.drawBase = State{}
	return ids
}

func (s *Store) CancelDrawing() []string {
	if len(s.drawing) == 0 {
		return nil
	}
	s.CancelLiveUpdates()
	ids := s.drawing
	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	s.present = s.present.without(remove)
	s.selection = slices.DeleteFunc(slices.Clone(s.selection), func(id string) bool { return remove[id] })
	s.drawing = nil
	s.drawBase = State{}
	s.emit(Change{Removed: ids})
	return ids
}

// --- History ---

func (s *Store) CanUndo() bool { return len(s.past) > 0 }
func (s *Store) CanRedo() bool { return len(s.future) > 0 }

// HistoryLen returns the number of undo and redo steps available.
func (s *Store) HistoryLen() (undo, redo int) { return len(s.past), len(s.future) }

func (s *Store) Undo() bool {
	if len(s.past) == 0 || !s.historyAvailable() {
		return false
	}
	prev := s.present
	s.present = s.past[len(s.past)-1]
	s.past = s.past[:len(s.past)-1]
	s.future = append(s.future, prev)
	s.afterJump(prev)
	return true
}

func (s *Store) Redo() bool {
	if len(s.future) == 0 || !s.historyAvailable() {
		return false
	}
	prev := s.present
	s.present = s.future[len(s.future)-1]
	s.future = s.future[:len(s.future)-1]
	s.past = append(s.past, prev)
	s.afterJump(prev)
	return true
}

func (s *Store) ClearHistory() {
	if len(s.past) == 0 && len(s.future) == 0 {
		return
	}
	s.past, s.future = nil, nil
	s.notify()
}

func (s *Store) historyAvailable() bool {
	if s.batchDepth > 0 || len(s.drawing) > 0 {
		s.logger.Debug("history jump refused", "error", ErrHistoryUnavailable)
		return false
	}
	return true
}

func (s *Store) afterJump(prev State) {
	ch := diff(prev, s.present)
	ch.Updated = append(ch.Updated, s.LiveIDs()...)
	s.live = make(map[string]*annotation.Feature)
	s.selection = slices.DeleteFunc(slices.Clone(s.selection), func(id string) bool {
		_, ok := s.present.Get(id)
		return !ok
	})
	s.emit(ch)
}

func (s *Store) pushHistory(prev State) {
	s.past = append(s.past, prev)
	if over := len(s.past) - s.limit; over > 0 {
		s.past = slices.Delete(s.past, 0, over)
	}
	s.future = nil
}

// commit installs next as the canonical state. History is recorded unless
// a batch or a drawing session is collecting the step.
func (s *Store) commit(next State, ch Change) error {
	if StatesEqual(s.present, next) {
		return nil
	}
	if err := validateLinks(s.present, next); err != nil {
		s.logger.Warn("commit refused", "error", err)
		return err
	}
	prev := s.present
	s.present = next
	if s.batchDepth == 0 && len(s.drawing) == 0 {
		s.pushHistory(prev)
	}
	s.emit(ch)
	return nil
}

// Batch runs fn with history capture suspended; everything fn commits
// becomes a single undo step. Batches nest.
func (s *Store) Batch(fn func()) {
	if s.batchDepth == 0 {
		s.batchBase = s.present
	}
	s.batchDepth++
	defer func() {
		s.batchDepth--
		if s.batchDepth > 0 {
			return
		}
		if len(s.drawing) == 0 && !StatesEqual(s.batchBase, s.present) {
			s.pushHistory(s.batchBase)
		}
		s.batchBase = State{}
		if s.hasPending {
			ch := s.pending
			s.pending, s.hasPending = Change{}, false
			s.emit(ch)
		} else if s.dirty {
			s.notify()
		}
	}()
	fn()
}

// --- Selection and camera (outside history) ---

func (s *Store) Selection() []string { return slices.Clone(s.selection) }

func (s *Store) IsSelected(id string) bool { return slices.Contains(s.selection, id) }

// SetSelection replaces the selection. Unknown ids are dropped.
func (s *Store) SetSelection(ids ...string) {
	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.present.Get(id); ok && !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	s.selection = next
	s.notify()
}

func (s *Store) Unselect(ids ...string) {
	s.selection = slices.DeleteFunc(slices.Clone(s.selection), func(id string) bool {
		return slices.Contains(ids, id)
	})
	s.notify()
}

func (s *Store) Camera() host.Camera { return s.camera }

// SetCamera records the camera. It never creates a history step.
func (s *Store) SetCamera(cam host.Camera) {
	s.camera = cam
	s.notify()
}

// --- Notifications ---

// OnChange registers fn to receive every record change, before
// subscribers are notified.
func (s *Store) OnChange(fn func(Change)) {
	s.listeners = append(s.listeners, fn)
}

func (s *Store) emit(ch Change) {
	if s.batchDepth > 0 {
		if s.hasPending {
			s.pending.merge(ch)
		} else {
			s.pending, s.hasPending = ch, true
		}
		return
	}
	for _, fn := range s.listeners {
		fn(ch)
	}
	s.notify()
}
