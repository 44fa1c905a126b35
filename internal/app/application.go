// Package app assembles the server: store, registry, emitter, websocket
// handler and HTTP API behind a single lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"classwire/internal/api"
	"classwire/internal/config"
	"classwire/internal/emitter"
	"classwire/internal/registry"
	"classwire/internal/store"
	"classwire/internal/websocket"
)

type Application struct {
	cfg        *config.Config
	log        *slog.Logger
	store      *store.Store
	registry   *registry.Registry
	emitter    *emitter.Emitter
	httpServer *http.Server
}

// New wires the components in dependency order: store, registry, emitter,
// transport handler, API.
func New(cfg *config.Config, log *slog.Logger) (*Application, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	reg := registry.New(log)
	em := emitter.New(reg, log)

	wsHandler := websocket.NewHandler(reg, websocket.Config{
		PingInterval: cfg.PingInterval,
		ReadTimeout:  cfg.WSReadTimeout,
		WriteTimeout: cfg.WSWriteTimeout,
		SendBuffer:   cfg.SendBuffer,
	}, log)

	apiServer := api.NewServer(st, em, reg, cfg.AuthSecret, log)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.Handle("/ws", wsHandler)

	return &Application{
		cfg:      cfg,
		log:      log,
		store:    st,
		registry: reg,
		emitter:  em,
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      mux,
			ReadTimeout:  cfg.HTTPReadTimeout,
			WriteTimeout: cfg.HTTPWriteTimeout,
		},
	}, nil
}

// Run serves until the listener fails.
func (a *Application) Run() error {
	a.log.Info("server listening", "addr", a.httpServer.Addr)
	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the listener and closes the store, in that order.
func (a *Application) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Warn("http shutdown", "error", err)
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}
