package remote

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/inamate/annotate/internal/config"
)

// Hub owns one session per canvas and admits a single writer to each.
type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]*Session // canvasID -> session
	writers    map[string]*Client  // canvasID -> attached client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	cfg        config.Engine
	logger     *slog.Logger
}

func NewHub(cfg config.Engine, logger *slog.Logger) *Hub {
	return &Hub{
		sessions:   make(map[string]*Session),
		writers:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		cfg:        cfg,
		logger:     logger,
	}
}

// Run serves registrations until ctx is done, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return nil
		}
	}
}

// Register attaches client to its canvas. After Run has stopped the
// client is closed instead.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Busy reports whether canvasID already has a writer.
func (h *Hub) Busy(canvasID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.writers[canvasID]
	return ok
}

// Session returns the session of canvasID, if one was ever opened.
func (h *Hub) Session(canvasID string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[canvasID]
	return s, ok
}

// Open returns the session for canvasID, creating an empty one.
func (h *Hub) Open(canvasID string) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[canvasID]
	if !ok {
		s = NewSession(canvasID, h.cfg, h.logger)
		h.sessions[canvasID] = s
	}
	return s
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	if _, busy := h.writers[client.CanvasID]; busy {
		h.mu.Unlock()
		client.SendError(0, ErrCanvasBusy.Error())
		client.close()
		h.logger.Warn("second writer rejected", "canvas", client.CanvasID, "user", client.UserID)
		return
	}
	session, ok := h.sessions[client.CanvasID]
	if !ok {
		session = NewSession(client.CanvasID, h.cfg, h.logger)
		h.sessions[client.CanvasID] = session
	}
	h.writers[client.CanvasID] = client
	h.mu.Unlock()

	welcome, _ := json.Marshal(WelcomePayload{ClientID: client.ClientID, CanvasID: client.CanvasID})
	client.Send(&Message{Type: TypeWelcome, CanvasID: client.CanvasID, Payload: welcome})
	session.Attach(client.Send)

	h.logger.Info("client joined", "user", client.UserID, "canvas", client.CanvasID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if h.writers[client.CanvasID] != client {
		// rejected writer, already closed
		h.mu.Unlock()
		return
	}
	delete(h.writers, client.CanvasID)
	session := h.sessions[client.CanvasID]
	h.mu.Unlock()

	session.Detach()
	client.close()

	h.logger.Info("client left", "user", client.UserID, "canvas", client.CanvasID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	writers := h.writers
	h.writers = make(map[string]*Client)
	h.mu.Unlock()

	for canvasID, client := range writers {
		h.sessions[canvasID].Detach()
		client.close()
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	h.mu.RLock()
	session, ok := h.sessions[sender.CanvasID]
	attached := h.writers[sender.CanvasID] == sender
	h.mu.RUnlock()
	if !ok || !attached {
		return
	}

	if err := session.Handle(msg); err != nil {
		h.logger.Warn("message refused", "type", msg.Type, "canvas", sender.CanvasID, "error", err)
		sender.SendError(msg.Seq, err.Error())
	}
}
