// Package server exposes the HTTP surface: the synchronous extension
// endpoint, the WhatsApp and Telegram webhooks, liveness and metrics.
// Webhook handlers ack fast and dispatch out of band; channel
// authentication happens here, before any payload is parsed.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"factrelay/internal/config"
	"factrelay/internal/dispatch"
	"factrelay/internal/domain"
	"factrelay/internal/metrics"
)

type Config struct {
	Server    config.ServerConfig
	Channels  config.ChannelsConfig
	Metrics   config.MetricsConfig
	AgentWait time.Duration // bound for out-of-band dispatches
	Logger    *slog.Logger
}

type Server struct {
	cfg    Config
	orch   *dispatch.Orchestrator
	logger *slog.Logger

	httpServer *http.Server

	// bgCtx bounds webhook dispatches that outlive their HTTP request.
	bgCtx context.Context
	wg    sync.WaitGroup
}

func New(cfg Config, orch *dispatch.Orchestrator) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.AgentWait <= 0 {
		cfg.AgentWait = 6 * time.Minute
	}
	return &Server{
		cfg:    cfg,
		orch:   orch,
		logger: cfg.Logger,
		bgCtx:  context.Background(),
	}
}

// Routes builds the request mux. Exposed for handler tests.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /verify", s.handleLiveness)

	if s.cfg.Channels.Extension.Enabled {
		mux.HandleFunc("POST /verify_for_frontend_extension_app", s.handleExtension)
	}
	if s.cfg.Channels.WhatsApp.Enabled {
		mux.HandleFunc("GET /whatsapp", s.handleWhatsAppVerification)
		mux.HandleFunc("POST /whatsapp", s.handleWhatsAppWebhook)
	}
	if s.cfg.Channels.Telegram.Enabled {
		mux.HandleFunc("POST /telegram/{token}", s.handleTelegramWebhook)
	}
	if s.cfg.Metrics.Enabled {
		endpoint := s.cfg.Metrics.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		mux.HandleFunc("GET "+endpoint, metrics.Collector.Handler())
	}
	return mux
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully and waits (bounded) for out-of-band dispatches.
func (s *Server) Start(ctx context.Context) error {
	s.bgCtx = ctx

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("http server starting", "addr", s.httpServer.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			s.logger.Warn("shutdown timed out waiting for in-flight dispatches")
		}
		return err
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// dispatchDetached runs a webhook envelope after the 2xx ack has been
// sent. The context is detached from the HTTP request (which is already
// gone) and bounded by the agent wait budget.
func (s *Server) dispatchDetached(env domain.InboundEnvelope) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.bgCtx, s.cfg.AgentWait)
		defer cancel()
		s.orch.Dispatch(ctx, env)
	}()
}

func newEnvelope(ch domain.Channel, payload []byte) domain.InboundEnvelope {
	return domain.InboundEnvelope{
		ID:         uuid.NewString(),
		Channel:    ch,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}
}
