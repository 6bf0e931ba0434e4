// Package event carries engine notifications to whoever embeds the engine.
package event

import "github.com/inamate/annotate/internal/annotation"

type Type string

const (
	Add              Type = "add"
	Remove           Type = "remove"
	Update           Type = "update"
	Select           Type = "select"
	Unselect         Type = "unselect"
	DragStart        Type = "dragstart"
	DragEnd          Type = "dragend"
	History          Type = "history"
	Link             Type = "link"
	DrawingCompleted Type = "drawing-completed"
	DrawingCancelled Type = "drawing-cancelled"
	EditText         Type = "edit-text"
)

type Event struct {
	Type Type             `json:"type"`
	IDs  []string         `json:"ids,omitempty"`
	Link *annotation.Link `json:"-"`
	Data map[string]any   `json:"data,omitempty"`
}

// Emitter receives engine notifications.
type Emitter interface {
	Emit(ev Event)
}

// Listener handles one event.
type Listener func(ev Event)

// Bus fans events out to listeners registered per type or for all types.
type Bus struct {
	listeners map[Type][]Listener
	any       []Listener
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[Type][]Listener)}
}

// On registers a listener for one event type.
func (b *Bus) On(t Type, l Listener) {
	b.listeners[t] = append(b.listeners[t], l)
}

// OnAny registers a listener for every event.
func (b *Bus) OnAny(l Listener) {
	b.any = append(b.any, l)
}

func (b *Bus) Emit(ev Event) {
	for _, l := range b.listeners[ev.Type] {
		l(ev)
	}
	for _, l := range b.any {
		l(ev)
	}
}

// Recorder is an Emitter that keeps every event, for tests and replays.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(ev Event) {
	r.Events = append(r.Events, ev)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	out := make([]Type, len(r.Events))
	for i, ev := range r.Events {
		out[i] = ev.Type
	}
	return out
}

// Last returns the most recent event of type t.
func (r *Recorder) Last(t Type) (Event, bool) {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].Type == t {
			return r.Events[i], true
		}
	}
	return Event{}, false
}
