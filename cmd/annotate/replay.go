package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/golang/geo/r2"
	"github.com/spf13/cobra"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/config"
	"github.com/inamate/annotate/internal/engine"
	"github.com/inamate/annotate/internal/event"
	"github.com/inamate/annotate/internal/handle"
	"github.com/inamate/annotate/internal/host"
)

// Script is a recorded session: a host graph, an optional starting
// document and the steps to feed through the engine.
type Script struct {
	Graph    host.GraphState `json:"graph"`
	Sample   bool            `json:"sample,omitempty"`
	Document json.RawMessage `json:"document,omitempty"`
	Steps    []Step          `json:"steps"`
}

// Step is one scripted action. Op selects which fields apply.
type Step struct {
	Op      string       `json:"op"`
	Kind    string       `json:"kind,omitempty"`
	X       float64      `json:"x,omitempty"`
	Y       float64      `json:"y,omitempty"`
	Pressed bool         `json:"pressed,omitempty"`
	IDs     []string     `json:"ids,omitempty"`
	Factor  float64      `json:"factor,omitempty"`
	Camera  *host.Camera `json:"camera,omitempty"`
	// WaitMs advances the replay clock before the step runs.
	WaitMs int `json:"waitMs,omitempty"`
}

// Result is what replay prints.
type Result struct {
	Events    []event.Event   `json:"events"`
	Document  json.RawMessage `json:"document"`
	Selection []string        `json:"selection"`
	CanUndo   bool            `json:"canUndo"`
	CanRedo   bool            `json:"canRedo"`
}

var replayVerbose bool

var replayCmd = &cobra.Command{
	Use:   "replay [script.json]",
	Short: "Replay a scripted gesture session",
	Long: `Feed a JSON script of pointer, camera and editing steps through the
engine against an in-memory canvas, then print the emitted events and the
final document.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "log engine activity to stderr")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	var script Script
	if err := json.Unmarshal(data, &script); err != nil {
		return fmt.Errorf("parse script: %w", err)
	}

	level := slog.LevelWarn
	if replayVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.LoadEngine()
	if err != nil {
		return err
	}
	res, err := Replay(script, cfg, logger)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), res)
}

// Replay runs script on a fresh engine. Time only moves when a step asks
// for it, so click suppression is deterministic.
func Replay(script Script, cfg config.Engine, logger *slog.Logger) (*Result, error) {
	graph := host.NewGraph(r2.Point{})
	graph.Load(script.Graph)

	clock := time.Unix(0, 0)
	eng := engine.NewEngine(graph, cfg,
		engine.WithLogger(logger),
		engine.WithClock(func() time.Time { return clock }),
	)

	switch {
	case script.Sample:
		eng.LoadSample()
	case len(script.Document) > 0:
		if err := eng.Load(script.Document); err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
	}

	rec := &event.Recorder{}
	eng.OnAny(rec.Emit)

	for i, step := range script.Steps {
		clock = clock.Add(time.Duration(step.WaitMs) * time.Millisecond)
		if err := apply(eng, graph, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		logger.Debug("step", "index", i, "op", step.Op, "features", eng.Len())
	}

	return &Result{
		Events:    rec.Events,
		Document:  json.RawMessage(eng.Document()),
		Selection: eng.Selection(),
		CanUndo:   eng.CanUndo(),
		CanRedo:   eng.CanRedo(),
	}, nil
}

var pointerKinds = map[string]handle.EventType{
	"down":   handle.PointerDown,
	"move":   handle.PointerMove,
	"up":     handle.PointerUp,
	"click":  handle.Click,
	"escape": handle.Escape,
}

func apply(eng *engine.Engine, graph *host.Graph, step Step) error {
	switch step.Op {
	case "pointer":
		typ, ok := pointerKinds[step.Kind]
		if !ok {
			return fmt.Errorf("unknown pointer kind %q", step.Kind)
		}
		eng.HandleEvent(handle.Event{Type: typ, Screen: r2.Point{X: step.X, Y: step.Y}, Pressed: step.Pressed})
	case "draw":
		return eng.EnableDrawing(annotation.Kind(step.Kind))
	case "cancel":
		eng.CancelDrawing()
	case "camera":
		if step.Camera != nil {
			graph.SetCamera(*step.Camera)
		}
		reason := host.ChangeReason(step.Kind)
		if reason == "" {
			reason = host.ChangeZoom
		}
		eng.CameraChanged(reason)
	case "select":
		eng.Select(step.IDs...)
	case "clear-selection":
		eng.ClearSelection()
	case "remove":
		return eng.Remove(step.IDs...)
	case "scale":
		for _, id := range step.IDs {
			if !eng.SetScale(id, step.Factor, step.X, step.Y) {
				return fmt.Errorf("scale %s refused", id)
			}
		}
	case "undo":
		eng.Undo()
	case "redo":
		eng.Redo()
	case "clear-history":
		eng.ClearHistory()
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func writeResult(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
