package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/inamate/annotate/internal/auth"
	"github.com/inamate/annotate/internal/config"
	"github.com/inamate/annotate/internal/export"
	mw "github.com/inamate/annotate/internal/middleware"
	"github.com/inamate/annotate/internal/remote"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Server.Level()})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	authService := auth.NewService(cfg.Server.JWTSecret)
	hub := remote.NewHub(cfg.Engine, slog.Default())

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Server.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Document export and import
	exportHandler := export.NewHandler(hub, slog.Default())
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("/canvas/{canvasId}/document", exportHandler.ExportDocument).Methods("GET")
	api.HandleFunc("/canvas/{canvasId}/document", exportHandler.ImportDocument).Methods("PUT")

	// WebSocket endpoint, one writer per canvas
	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(authService.AuthMiddleware)
	ws.HandleFunc("/canvas/{canvasId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, cfg)
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *remote.Hub, cfg *config.Config) {
	canvasID := mux.Vars(r)["canvasId"]
	userID := auth.UserIDFromContext(r.Context())

	if hub.Busy(canvasID) {
		http.Error(w, remote.ErrCanvasBusy.Error(), http.StatusConflict)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(cfg.Server.Origins()),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.Server.MessageRate), cfg.Server.MessageBurst)
	client := remote.NewClient(hub, conn, userID, canvasID, limiter)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// originPatterns strips the scheme, which the websocket origin check does
// not match on.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		out = append(out, strings.TrimPrefix(o, "http://"))
	}
	return out
}
