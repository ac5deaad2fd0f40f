package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"superstore-dashboard/internal/config"
	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/services"
)

func testServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := services.NewDashboard(logger)
	d.SetData([]models.Record{
		{OrderDate: time.Date(2017, 5, 1, 0, 0, 0, 0, time.UTC), Region: "South", State: "Texas", Category: "Technology", SubCategory: "Phones", ProductName: "Phone", Sales: 10, Quantity: 1, Profit: 2},
	})
	page := func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "page") }
	return NewServer(d, logger, &TemplateHandlers{Dashboard: page})
}

func TestServer_Routes(t *testing.T) {
	srv := testServer()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/admin/stats", http.StatusOK},
		{http.MethodPost, "/admin/reload", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/options", http.StatusOK},
		{http.MethodGet, "/api/dashboard", http.StatusOK},
		{http.MethodGet, "/api/kpis", http.StatusOK},
		{http.MethodGet, "/api/views", http.StatusOK},
		{http.MethodGet, "/api/heatmap", http.StatusOK},
		{http.MethodGet, "/api/benchmark", http.StatusOK},
		{http.MethodGet, "/api/export", http.StatusOK},
		{http.MethodGet, "/sse/dashboard", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodPost, "/api/kpis", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestGracefulServer_ShutdownRunsHooks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{Server: config.ServerConfig{ShutdownTimeout: 5 * time.Second}}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gs := NewGracefulServer(&http.Server{Handler: testServer()}, logger, cfg)

	var ran atomic.Int32
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	hookErr := errors.New("flush failed")
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		ran.Add(1)
		return hookErr
	})

	result := make(chan error, 1)
	go func() { result <- gs.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `"success":true`) {
		t.Errorf("unexpected health body: %s", body)
	}

	gs.signals <- syscall.SIGTERM

	select {
	case err := <-result:
		if !errors.Is(err, hookErr) {
			t.Errorf("Serve() error = %v, want %v", err, hookErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if ran.Load() != 2 {
		t.Errorf("hooks run = %d, want 2", ran.Load())
	}
}
