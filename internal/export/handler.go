// Package export serves canvas documents over HTTP, for saving and
// restoring annotations outside a websocket session.
package export

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/annotate/internal/remote"
)

const maxUploadSize = 8 << 20 // 8MB

// Sessions is the part of the hub the handler needs.
type Sessions interface {
	Session(canvasID string) (*remote.Session, bool)
	Open(canvasID string) *remote.Session
}

type Handler struct {
	sessions Sessions
	logger   *slog.Logger
}

func NewHandler(sessions Sessions, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, logger: logger}
}

// ExportDocument writes the canvas as a download. format is "geojson"
// (default) or "render" for the draw command list.
func (h *Handler) ExportDocument(w http.ResponseWriter, r *http.Request) {
	canvasID := mux.Vars(r)["canvasId"]
	session, ok := h.sessions.Session(canvasID)
	if !ok {
		http.Error(w, "canvas not found", http.StatusNotFound)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "geojson"
	}
	var body string
	switch format {
	case "geojson":
		body = session.Document()
	case "render":
		body = session.Render()
	default:
		http.Error(w, "invalid format: must be geojson or render", http.StatusBadRequest)
		return
	}

	name := sanitize(r.URL.Query().Get("name"))
	if name == "" {
		name = sanitize(canvasID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s.json"`, name, format))
	io.WriteString(w, body)

	h.logger.Info("export complete", "canvas", canvasID, "format", format, "size", len(body))
}

// ImportDocument replaces the canvas document with the request body. A
// connected host receives the new document immediately.
func (h *Handler) ImportDocument(w http.ResponseWriter, r *http.Request) {
	canvasID := mux.Vars(r)["canvasId"]
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "request too large", http.StatusBadRequest)
		return
	}

	session := h.sessions.Open(canvasID)
	if err := session.Load(data); err != nil {
		h.logger.Warn("import rejected", "canvas", canvasID, "error", err)
		http.Error(w, fmt.Sprintf("invalid document: %v", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"features":%d}`, session.Len())
	h.logger.Info("import complete", "canvas", canvasID, "features", session.Len())
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
