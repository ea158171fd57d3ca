package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"unfuddle-plugin/internal/common"
	"unfuddle-plugin/internal/handlers"
	"unfuddle-plugin/internal/interfaces"
	"unfuddle-plugin/internal/middleware"

	"github.com/ternarybob/arbor"
)

// webServer exposes the host-facing plugin API
type webServer struct {
	config      *common.Config
	server      *http.Server
	logger      arbor.ILogger
	apiHandlers *handlers.APIHandlers
	hub         *handlers.EventHub
	running     bool
}

// NewWebServer wires the plugin facade, option store and event hub into the
// HTTP surface the host calls.
func NewWebServer(cfg *common.Config, plugin *Plugin, store interfaces.OptionStore, logger arbor.ILogger) (interfaces.WebService, error) {
	mux := http.NewServeMux()

	hub := handlers.NewEventHub(logger)
	plugin.SetEvents(hub)

	apiHandlers := handlers.NewAPIHandlers(cfg, plugin, store, logger, hub)

	ws := &webServer{
		config:      cfg,
		logger:      logger,
		apiHandlers: apiHandlers,
		hub:         hub,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Plugin.Port),
			Handler: mux,
		},
	}

	logMiddleware := middleware.Logging(logger)
	corsMiddleware := middleware.CORS
	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return logMiddleware(corsMiddleware(h))
	}

	mux.HandleFunc("GET /health", wrap(apiHandlers.HealthHandler))
	mux.HandleFunc("GET /version", wrap(apiHandlers.VersionHandler))
	mux.HandleFunc("GET /status", wrap(apiHandlers.StatusHandler))

	mux.HandleFunc("GET /api/projects/{key}/options", wrap(apiHandlers.OptionsHandler))
	mux.HandleFunc("POST /api/projects/{key}/options", wrap(apiHandlers.SaveOptionsHandler))
	mux.HandleFunc("DELETE /api/projects/{key}/options", wrap(apiHandlers.DeleteOptionsHandler))

	mux.HandleFunc("POST /api/projects/{key}/issue-form", wrap(apiHandlers.IssueFormHandler))
	mux.HandleFunc("POST /api/projects/{key}/issues", wrap(apiHandlers.CreateIssueHandler))
	mux.HandleFunc("GET /api/projects/{key}/issues/{id}/link", wrap(apiHandlers.IssueLinkHandler))

	mux.HandleFunc("/ws", hub.Handler)

	return ws, nil
}

func (ws *webServer) Start(ctx context.Context) error {
	ws.running = true

	errCh := make(chan error, 1)
	go func() {
		ws.logger.Info().Str("addr", ws.server.Addr).Msg("Plugin API listening")
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return ws.Stop()
	case err := <-errCh:
		ws.running = false
		return fmt.Errorf("web server failed: %w", err)
	}
}

func (ws *webServer) Stop() error {
	ws.running = false

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown failed: %w", err)
	}
	ws.logger.Info().Msg("Plugin API stopped")
	return nil
}

func (ws *webServer) IsRunning() bool {
	return ws.running
}
