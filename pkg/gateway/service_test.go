package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"weatherbot/pkg/channel"
	"weatherbot/pkg/config"
	"weatherbot/pkg/relay"
	"weatherbot/pkg/weather"
)

type recordingBackend struct {
	mu sync.Mutex

	healthCalls int
	healthErr   error
	cities      []string
}

func (b *recordingBackend) Query(_ context.Context, q weather.Query) weather.Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cities = append(b.cities, q.City)
	return weather.Success(weather.Report{
		City:        q.City,
		Description: "soleado",
		Temperature: "20",
		FeelsLike:   "19",
		Humidity:    "40",
		Pressure:    "1015",
		WindSpeed:   "2",
	})
}

func (b *recordingBackend) Health(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.healthCalls++
	return b.healthErr
}

func (b *recordingBackend) setHealthErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.healthErr = err
}

func (b *recordingBackend) snapshot() (int, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cities := make([]string, len(b.cities))
	copy(cities, b.cities)
	return b.healthCalls, cities
}

type scriptedAdapter struct {
	name    string
	inbound []relay.InboundMessage

	mu       sync.Mutex
	outbound []relay.OutboundMessage
	done     chan struct{}
}

func (a *scriptedAdapter) Name() string {
	return a.name
}

func (a *scriptedAdapter) Run(ctx context.Context, handler channel.Handler) error {
	for _, inbound := range a.inbound {
		outbound := handler(ctx, inbound)

		a.mu.Lock()
		a.outbound = append(a.outbound, outbound)
		a.mu.Unlock()
	}

	close(a.done)

	<-ctx.Done()
	return nil
}

func (a *scriptedAdapter) outbounds() []relay.OutboundMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	outbound := make([]relay.OutboundMessage, len(a.outbound))
	copy(outbound, a.outbound)
	return outbound
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	t.Parallel()

	adapter := &scriptedAdapter{name: "telegram"}
	backend := &recordingBackend{}

	if _, err := NewService(nil, backend, []channel.Adapter{adapter}, nil); err == nil {
		t.Fatal("expected error without config")
	}
	if _, err := NewService(&config.Config{}, nil, []channel.Adapter{adapter}, nil); err == nil {
		t.Fatal("expected error without backend")
	}
	if _, err := NewService(&config.Config{}, backend, nil, nil); err == nil {
		t.Fatal("expected error without adapters")
	}
}

func TestIsReady(t *testing.T) {
	t.Parallel()

	svc := &Service{channelStates: map[string]channelState{"telegram": {Running: true}}}
	if svc.isReady() {
		t.Fatal("expected not ready without a backend health success")
	}

	svc.backendLastOKAt = time.Now().UTC()
	if !svc.isReady() {
		t.Fatal("expected ready with running channel and healthy backend")
	}

	svc.backendLastErr = "boom"
	if svc.isReady() {
		t.Fatal("expected not ready when backend has error")
	}

	svc.backendLastErr = ""
	svc.channelStates["telegram"] = channelState{Running: false, Error: "stopped"}
	if svc.isReady() {
		t.Fatal("expected not ready without a running channel")
	}
}

func TestServiceRunRelaysScriptedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &recordingBackend{}
	cfg := &config.Config{
		Gateway: config.GatewayConfig{
			Host: "127.0.0.1",
			Port: freeTCPPort(t),
		},
	}

	adapter := &scriptedAdapter{
		name: "telegram",
		inbound: []relay.InboundMessage{
			{Platform: weather.PlatformTelegram, SenderID: "100", Username: "ana", ChatID: "100", Content: "Madrid"},
			{Platform: weather.PlatformTelegram, SenderID: "100", Username: "ana", ChatID: "100", Content: "/help"},
			{Platform: weather.PlatformTelegram, SenderID: "200", Username: "luis", ChatID: "200", Content: "Bogotá"},
		},
		done: make(chan struct{}),
	}

	svc, err := NewService(cfg, backend, []channel.Adapter{adapter}, slog.Default())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	select {
	case <-adapter.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for adapter scripted messages")
	}

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}

	healthCalls, cities := backend.snapshot()
	require.GreaterOrEqual(t, healthCalls, 1)
	require.Equal(t, []string{"Madrid", "Bogotá"}, cities)

	outbounds := adapter.outbounds()
	require.Len(t, outbounds, 3)
	require.Contains(t, outbounds[0].Text, "Madrid")
	require.Contains(t, outbounds[1].Text, "Bot del Clima - Ayuda")
	require.Contains(t, outbounds[2].Text, "Bogotá")
	require.Equal(t, "100", outbounds[0].ChatID)
	require.Equal(t, "200", outbounds[2].ChatID)
}

func TestServiceStatusEndpoints(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &recordingBackend{}
	port := freeTCPPort(t)
	cfg := &config.Config{
		Gateway: config.GatewayConfig{Host: "127.0.0.1", Port: port},
	}

	adapter := &scriptedAdapter{name: "whatsapp", done: make(chan struct{})}
	svc, err := NewService(cfg, backend, []channel.Adapter{adapter}, slog.Default())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitForStatusServer(t, baseURL+"/healthz")

	status := fetchStatus(t, baseURL+"/readyz", http.StatusOK)
	require.Equal(t, "ready", status.Status)
	require.NotEmpty(t, status.BackendLastOKAt)
	require.True(t, status.Channels["whatsapp"].Running)

	resp, err := http.Get(baseURL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	backend.setHealthErr(errors.New("connection refused"))
	require.Error(t, svc.checkBackendHealth(ctx))

	notReady := fetchStatus(t, baseURL+"/readyz", http.StatusServiceUnavailable)
	require.Equal(t, "not_ready", notReady.Status)
	require.Contains(t, notReady.BackendLastErr, "connection refused")

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}
}

func fetchStatus(t *testing.T, url string, wantCode int) statusResponse {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, wantCode, resp.StatusCode)

	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	return status
}

func waitForStatusServer(t *testing.T, url string) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("status server never came up at %s", url)
}

func freeTCPPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}
