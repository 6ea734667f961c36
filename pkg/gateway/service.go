// Package gateway runs the channel adapters and exposes the status HTTP
// surface (health, readiness, metrics).
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weatherbot/pkg/channel"
	"weatherbot/pkg/config"
	"weatherbot/pkg/relay"
	"weatherbot/pkg/weather"
)

const (
	defaultStatusHost = "0.0.0.0"
	defaultStatusPort = 18790
)

const backendProbeInterval = 30 * time.Second

// Backend is the weather API surface the gateway owns: query dispatch for
// the relay plus a reachability probe for readiness.
type Backend interface {
	Query(ctx context.Context, q weather.Query) weather.Outcome
	Health(ctx context.Context) error
}

// Service wires the relay pipeline into every enabled channel adapter and
// serves the status endpoints.
type Service struct {
	cfg      *config.Config
	log      *slog.Logger
	backend  Backend
	relay    *relay.Relay
	channels []channel.Adapter

	mu              sync.RWMutex
	startedAt       time.Time
	backendLastOKAt time.Time
	backendLastErr  string
	channelStates   map[string]channelState
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status          string                  `json:"status"`
	UptimeSeconds   int64                   `json:"uptime_seconds"`
	BackendLastOKAt string                  `json:"backend_last_ok_at,omitempty"`
	BackendLastErr  string                  `json:"backend_last_error,omitempty"`
	Channels        map[string]channelState `json:"channels"`
}

// NewService validates its collaborators and builds the relay they share.
func NewService(cfg *config.Config, backend Backend, adapters []channel.Adapter, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}

	messageRelay, err := relay.New(backend, log)
	if err != nil {
		return nil, fmt.Errorf("initialize relay: %w", err)
	}

	channelStates := make(map[string]channelState, len(adapters))
	for _, adapter := range adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		backend:       backend,
		relay:         messageRelay,
		channels:      adapters,
		channelStates: channelStates,
	}, nil
}

// Run starts the status server, the periodic backend probe, and one
// goroutine per channel adapter, then blocks until cancellation or the
// first fatal failure.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	// A down backend is a degraded state, not a startup failure: the bots
	// keep answering with the transport-error reply until it recovers.
	if err := s.checkBackendHealth(ctx); err != nil {
		s.log.Warn("Backend unreachable at startup", "error", err)
	}

	serverErrors := make(chan error, 1)
	go s.runStatusServer(ctx, serverErrors)

	ticker := time.NewTicker(backendProbeInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.checkBackendHealth(ctx)
			}
		}
	}()

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		adapter := adapter
		s.setChannelState(adapter.Name(), channelState{Running: true})

		go func() {
			err := adapter.Run(ctx, s.relay.Handle)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-errCh:
		return err
	}
}

func (s *Service) runStatusServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultStatusHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultStatusPort
	}

	addr := host + ":" + strconv.Itoa(port)
	router := chi.NewRouter()
	router.Get("/healthz", s.handleHealth)
	router.Get("/readyz", s.handleReady)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	backendLastOK := ""
	if !s.backendLastOKAt.IsZero() {
		backendLastOK = s.backendLastOKAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:          status,
		UptimeSeconds:   uptime,
		BackendLastOKAt: backendLastOK,
		BackendLastErr:  s.backendLastErr,
		Channels:        channels,
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	anyRunning := false
	for _, state := range s.channelStates {
		if state.Running {
			anyRunning = true
			break
		}
	}
	if !anyRunning {
		return false
	}

	if s.backendLastOKAt.IsZero() {
		return false
	}

	return s.backendLastErr == ""
}

func (s *Service) checkBackendHealth(ctx context.Context) error {
	if err := s.backend.Health(ctx); err != nil {
		s.mu.Lock()
		s.backendLastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("backend health check failed: %w", err)
	}

	s.mu.Lock()
	s.backendLastErr = ""
	s.backendLastOKAt = time.Now().UTC()
	s.mu.Unlock()

	return nil
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
