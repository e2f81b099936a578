package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/askracha/askracha/internal/logging"
)

// HealthServer is a tiny HTTP listener served alongside the bot so cloud
// platforms have something to probe. It reports the gate's store health.
type HealthServer struct {
	server *http.Server
	gate   *Gate
	logger *logging.Logger
}

func NewHealthServer(port string, gate *Gate, logger *logging.Logger) *HealthServer {
	if logger == nil {
		logger = logging.Default()
	}

	h := &HealthServer{gate: gate, logger: logger.Named("bot-health")}

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleHealth)
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/ping", h.handleHealth)

	h.server = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	return h
}

func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := h.gate.Healthy(r.Context())

	status := http.StatusOK
	word := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		word = "unhealthy"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  word,
		"service": "askracha-discord-bot",
	})
}

// Start begins serving in the background.
func (h *HealthServer) Start() {
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("health server failed", logging.WithField("error", err.Error()))
		}
	}()
	h.logger.Info("health server started", logging.WithField("addr", h.server.Addr))
}

// Stop shuts the listener down.
func (h *HealthServer) Stop(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}
