//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/config"
	"github.com/inamate/annotate/internal/engine"
	"github.com/inamate/annotate/internal/event"
	"github.com/inamate/annotate/internal/handle"
	"github.com/inamate/annotate/internal/host"
)

var eng *engine.Engine

func main() {
	annotateEngine := js.Global().Get("Object").New()

	// --- Setup ---
	annotateEngine.Set("init", js.FuncOf(initEngine))

	// --- Commands (frontend → engine) ---
	annotateEngine.Set("add", js.FuncOf(add))
	annotateEngine.Set("remove", js.FuncOf(remove))
	annotateEngine.Set("load", js.FuncOf(load))
	annotateEngine.Set("loadSample", js.FuncOf(loadSample))
	annotateEngine.Set("updateStyle", js.FuncOf(updateStyle))
	annotateEngine.Set("updateContent", js.FuncOf(updateContent))
	annotateEngine.Set("setScale", js.FuncOf(setScale))
	annotateEngine.Set("undo", js.FuncOf(undo))
	annotateEngine.Set("redo", js.FuncOf(redo))
	annotateEngine.Set("clearHistory", js.FuncOf(clearHistory))
	annotateEngine.Set("setSelection", js.FuncOf(setSelection))
	annotateEngine.Set("enableDrawing", js.FuncOf(enableDrawing))
	annotateEngine.Set("cancelDrawing", js.FuncOf(cancelDrawing))
	annotateEngine.Set("pointer", js.FuncOf(pointer))
	annotateEngine.Set("cameraChanged", js.FuncOf(cameraChanged))

	// --- Queries (frontend ← engine) ---
	annotateEngine.Set("render", js.FuncOf(render))
	annotateEngine.Set("hitTest", js.FuncOf(hitTest))
	annotateEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	annotateEngine.Set("getDocument", js.FuncOf(getDocument))
	annotateEngine.Set("getSelection", js.FuncOf(getSelection))
	annotateEngine.Set("getState", js.FuncOf(getState))

	js.Global().Set("annotateEngine", annotateEngine)
	js.Global().Set("annotateWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// initEngine(host, onEvent) binds the engine to the page's canvas. onEvent
// receives every notification as a JSON string.
func initEngine(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return js.ValueOf(map[string]interface{}{"error": "missing host object"})
	}
	eng = engine.NewEngine(jsCanvas{host: args[0]}, config.DefaultEngine())

	if len(args) > 1 && args[1].Type() == js.TypeFunction {
		onEvent := args[1]
		eng.OnAny(func(ev event.Event) {
			data, err := json.Marshal(ev)
			if err != nil {
				return
			}
			onEvent.Invoke(string(data))
		})
	}
	return okResult()
}

// --- Command Handlers ---

func add(this js.Value, args []js.Value) interface{} {
	if eng == nil || len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing features JSON"})
	}
	ids, err := eng.AddRecords([]byte(args[0].String()))
	if err != nil {
		return errorResult(err)
	}
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "ids": out})
}

func remove(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return nil
	}
	if err := eng.Remove(stringArgs(args)...); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func load(this js.Value, args []js.Value) interface{} {
	if eng == nil || len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}
	if err := eng.Load([]byte(args[0].String())); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func loadSample(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return nil
	}
	eng.LoadSample()
	return okResult()
}

func updateStyle(this js.Value, args []js.Value) interface{} {
	if eng == nil || len(args) < 2 {
		return js.ValueOf(false)
	}
	var style annotation.RecordStyle
	if err := json.Unmarshal([]byte(args[1].String()), &style); err != nil {
		return errorResult(err)
	}
	return js.ValueOf(eng.UpdateStyle(args[0].String(), annotation.Style(style)))
}

func updateContent(this js.Value, args []js.Value) interface{} {
	if eng == nil || len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.UpdateContent(args[0].String(), args[1].String()))
}

// setScale(id, factor, originX, originY)
func setScale(this js.Value, args []js.Value) interface{} {
	if eng == nil || len(args) < 4 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.SetScale(args[0].String(), args[1].Float(), args[2].Float(), args[3].Float()))
}

func undo(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.Redo())
}

func clearHistory(this js.Value, args []js.Value) interface{} {
	if eng != nil {
		eng.ClearHistory()
	}
	return nil
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return nil
	}
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		eng.ClearSelection()
		return nil
	}

	arr := args[0]
	length := arr.Length()
	ids := make([]string, length)
	for i := 0; i < length; i++ {
		ids[i] = arr.Index(i).String()
	}
	if len(ids) == 0 {
		eng.ClearSelection()
		return nil
	}
	eng.Select(ids...)
	return nil
}

func enableDrawing(this js.Value, args []js.Value) interface{} {
	if eng == nil || len(args) < 1 {
		return nil
	}
	if err := eng.EnableDrawing(annotation.Kind(args[0].String())); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func cancelDrawing(this js.Value, args []js.Value) interface{} {
	if eng != nil {
		eng.CancelDrawing()
	}
	return nil
}

var pointerTypes = map[string]handle.EventType{
	"down":   handle.PointerDown,
	"move":   handle.PointerMove,
	"up":     handle.PointerUp,
	"click":  handle.Click,
	"escape": handle.Escape,
}

// pointer(kind, x, y, pressed) feeds a screen-space pointer event.
func pointer(this js.Value, args []js.Value) interface{} {
	if eng == nil || len(args) < 3 {
		return nil
	}
	typ, ok := pointerTypes[args[0].String()]
	if !ok {
		return js.ValueOf(map[string]interface{}{"error": "unknown pointer kind"})
	}
	ev := handle.Event{Type: typ, Screen: r2.Point{X: args[1].Float(), Y: args[2].Float()}}
	if len(args) > 3 {
		ev.Pressed = args[3].Truthy()
	}
	out := eng.HandleEvent(ev)
	return js.ValueOf(map[string]interface{}{
		"id":     out.ID,
		"handle": out.Handle.String(),
	})
}

func cameraChanged(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return nil
	}
	reason := host.ChangeZoom
	if len(args) > 0 {
		reason = host.ChangeReason(args[0].String())
	}
	eng.CameraChanged(reason)
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if eng == nil || len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(r2.Point{X: args[0].Float(), Y: args[1].Float()}))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(eng.SelectionBounds())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(eng.Document())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(eng.SelectionJSON())
}

func getState(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(eng.StateJSON())
}

func stringArgs(args []js.Value) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, a.String())
	}
	return out
}
