// Package gateway exposes the typed-write HTTP endpoint. It validates and
// maps inbound documents and upserts the result into the document store,
// reporting store failures honestly instead of masking them as successes.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/darko-mesaros/adventures-of-json/component"
	"github.com/darko-mesaros/adventures-of-json/docstore"
	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/metric"
	"github.com/darko-mesaros/adventures-of-json/record"
)

// Response bodies follow the original write API contract.
const (
	successMessage = "Item added successfully"
	errorPrefix    = "Error: "
)

// Config holds gateway configuration.
type Config struct {
	// Addr is the listen address.
	Addr string `json:"addr"`

	// Path is the write endpoint path.
	Path string `json:"path"`

	// MaxRequestSize caps the request body in bytes.
	MaxRequestSize int64 `json:"max_request_size"`

	// StoreTimeout bounds a single document store write.
	StoreTimeout time.Duration `json:"store_timeout"`
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		Path:           "/hubert",
		MaxRequestSize: 1 << 20, // 1 MiB
		StoreTimeout:   5 * time.Second,
	}
}

// Gateway is the HTTP write gateway component.
type Gateway struct {
	config  Config
	store   docstore.Store
	logger  *slog.Logger
	metrics *metric.Metrics

	server *http.Server

	running   atomic.Bool
	startTime time.Time
	failed    atomic.Int64
	lastErr   atomic.Value // stores string
}

var _ component.LifecycleComponent = (*Gateway)(nil)

// New creates a gateway writing to the given document store.
func New(cfg Config, store docstore.Store, deps component.Dependencies) *Gateway {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Path == "" {
		cfg.Path = "/hubert"
	}
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = 1 << 20
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &Gateway{
		config:  cfg,
		store:   store,
		logger:  deps.GetLoggerWithComponent("gateway"),
		metrics: deps.GetMetrics(),
	}
}

// Initialize validates the gateway configuration.
func (g *Gateway) Initialize() error {
	if g.store == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Gateway", "Initialize", "nil document store")
	}
	return nil
}

// Start begins serving. It returns once the listener goroutine is launched;
// listen errors surface through Health.
func (g *Gateway) Start(_ context.Context) error {
	if !g.running.CompareAndSwap(false, true) {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Gateway", "Start", "gateway already running")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(g.config.Path, g.handleUpsert)

	g.server = &http.Server{
		Addr:              g.config.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.startTime = time.Now()

	go func() {
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			g.running.Store(false)
			g.lastErr.Store(err.Error())
			g.logger.Error("Gateway server failed", slog.String("error", err.Error()))
		}
	}()

	g.logger.Info("Gateway started",
		slog.String("addr", g.config.Addr),
		slog.String("path", g.config.Path))
	return nil
}

// Stop shuts the server down, waiting for in-flight requests up to timeout.
func (g *Gateway) Stop(timeout time.Duration) error {
	if !g.running.CompareAndSwap(true, false) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := g.server.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "Gateway", "Stop", "server shutdown")
	}
	return nil
}

// Handler returns the upsert handler for mounting in tests.
func (g *Gateway) Handler() http.HandlerFunc {
	return g.handleUpsert
}

// handleUpsert is the single write endpoint: validate, map, upsert.
func (g *Gateway) handleUpsert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()
	logger := g.logger.With(slog.String("request_id", requestID))

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Request-ID", requestID)

	if r.Method != http.MethodPost {
		g.writeResponse(w, http.StatusMethodNotAllowed,
			errorPrefix+fmt.Sprintf("method %s not allowed", r.Method))
		g.observe(http.StatusMethodNotAllowed, start)
		return
	}

	defer r.Body.Close()

	bodyReader := io.LimitReader(r.Body, g.config.MaxRequestSize+1)
	body, err := io.ReadAll(bodyReader)
	if err != nil {
		g.writeResponse(w, http.StatusBadRequest, errorPrefix+"failed to read request body")
		g.observe(http.StatusBadRequest, start)
		return
	}
	if int64(len(body)) > g.config.MaxRequestSize {
		g.writeResponse(w, http.StatusRequestEntityTooLarge,
			errorPrefix+fmt.Sprintf("request body exceeds %d bytes", g.config.MaxRequestSize))
		g.observe(http.StatusRequestEntityTooLarge, start)
		return
	}

	// Field-level validation before any coercion so the caller sees every
	// shape problem at once
	if err := record.Validate(body); err != nil {
		logger.Debug("Document failed validation", slog.String("error", err.Error()))
		g.writeResponse(w, http.StatusBadRequest, errorPrefix+err.Error())
		g.observe(http.StatusBadRequest, start)
		return
	}

	rec, err := record.Map(body)
	if err != nil {
		logger.Debug("Document failed mapping", slog.String("error", err.Error()))
		g.writeResponse(w, http.StatusBadRequest, errorPrefix+err.Error())
		g.observe(http.StatusBadRequest, start)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.config.StoreTimeout)
	defer cancel()

	if err := g.store.Upsert(ctx, rec); err != nil {
		status := g.mapStoreError(err)
		g.metrics.StoreWrites.WithLabelValues("error").Inc()
		g.failed.Add(1)
		g.lastErr.Store(err.Error())
		logger.Error("Store write failed",
			slog.String("name", rec.Name),
			slog.Int("status", status),
			slog.String("error", err.Error()))
		g.writeResponse(w, status, errorPrefix+sanitizeStoreError(err))
		g.observe(status, start)
		return
	}

	g.metrics.StoreWrites.WithLabelValues("ok").Inc()
	logger.Info("Document stored", slog.String("name", rec.Name))
	g.writeResponse(w, http.StatusOK, successMessage)
	g.observe(http.StatusOK, start)
}

// mapStoreError converts a classified store error to an HTTP status.
// A failed write is never reported as success.
func (g *Gateway) mapStoreError(err error) int {
	switch {
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case errors.IsTransient(err):
		if strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline") {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sanitizeStoreError returns a client-safe message for a store failure.
func sanitizeStoreError(err error) string {
	switch {
	case errors.IsInvalid(err):
		return "invalid document"
	case errors.IsTransient(err):
		if strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline") {
			return "store timeout"
		}
		return "store temporarily unavailable"
	default:
		return "internal server error"
	}
}

// writeResponse writes the JSON response envelope.
func (g *Gateway) writeResponse(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	data, _ := json.Marshal(map[string]string{"message": msg})
	_, _ = w.Write(data)
}

// observe records request metrics.
func (g *Gateway) observe(status int, start time.Time) {
	g.metrics.GatewayRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	g.metrics.GatewayDuration.Observe(time.Since(start).Seconds())
}

// Meta returns component metadata.
func (g *Gateway) Meta() component.Metadata {
	return component.Metadata{
		Name:        "gateway",
		Type:        "gateway",
		Description: fmt.Sprintf("Typed-write HTTP gateway on %s%s", g.config.Addr, g.config.Path),
		Version:     "1.0.0",
	}
}

// Health returns the current health status.
func (g *Gateway) Health() component.HealthStatus {
	lastErr, _ := g.lastErr.Load().(string)
	return component.HealthStatus{
		Healthy:    g.running.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(g.failed.Load()),
		LastError:  lastErr,
		Uptime:     time.Since(g.startTime),
	}
}
