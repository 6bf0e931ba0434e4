package remote

import (
	"encoding/json"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/event"
	"github.com/inamate/annotate/internal/host"
)

type Message struct {
	Type     string          `json:"type"`
	CanvasID string          `json:"canvasId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	// Connection
	TypeWelcome = "welcome"
	TypeError   = "error"

	// Host → engine
	TypeFeatureAdd    = "feature.add"
	TypeFeatureRemove = "feature.remove"
	TypeFeatureUpdate = "feature.update"
	TypeFeatureScale  = "feature.scale"
	TypePointer       = "pointer"
	TypeCamera        = "camera"
	TypeGraphSync     = "graph.sync"
	TypeUndo          = "history.undo"
	TypeRedo          = "history.redo"
	TypeHistoryClear  = "history.clear"
	TypeSelectionSet  = "selection.set"
	TypeDrawingEnable = "drawing.enable"
	TypeDrawingCancel = "drawing.cancel"
	TypeDocLoad       = "doc.load"

	// Engine → host
	TypeDocSync = "doc.sync"
	TypeEvent   = "event"
	TypeRender  = "render"
	TypeAck     = "ack"
)

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	CanvasID string `json:"canvasId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Seq     int64  `json:"seq,omitempty"`
}

type AckPayload struct {
	Seq int64    `json:"seq"`
	IDs []string `json:"ids,omitempty"`
	OK  bool     `json:"ok"`
}

type IDsPayload struct {
	IDs []string `json:"ids"`
}

// UpdatePayload carries the fields of feature.update; absent fields are
// left alone.
type UpdatePayload struct {
	ID       string                  `json:"id"`
	Style    *annotation.RecordStyle `json:"style,omitempty"`
	Content  *string                 `json:"content,omitempty"`
	Geometry *UpdateGeometry         `json:"geometry,omitempty"`
}

type UpdateGeometry struct {
	Coordinates [][2]float64 `json:"coordinates"`
	Width       float64      `json:"width,omitempty"`
	Height      float64      `json:"height,omitempty"`
}

type ScalePayload struct {
	ID     string  `json:"id"`
	Factor float64 `json:"factor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// PointerPayload is a pointer event in screen coordinates. Kind is one of
// down, move, up, click or escape.
type PointerPayload struct {
	Kind    string  `json:"kind"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Pressed bool    `json:"pressed,omitempty"`
}

type CameraPayload struct {
	Camera host.Camera       `json:"camera"`
	Reason host.ChangeReason `json:"reason"`
}

type DrawingPayload struct {
	Kind annotation.Kind `json:"kind"`
}

type EventPayload struct {
	Event event.Event `json:"event"`
}
