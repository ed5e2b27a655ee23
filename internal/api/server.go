package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"BarVault/internal/config"
	"BarVault/internal/engine"
	"BarVault/internal/store"
)

// Server exposes the sync engine over a small authenticated REST surface.
type Server struct {
	cfg        *config.Config
	engine     *engine.Engine
	store      *store.FileStore
	httpServer *http.Server
	log        *logrus.Logger
	apiKey     string
}

func NewServer(cfg *config.Config, eng *engine.Engine, fs *store.FileStore, log *logrus.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		engine: eng,
		store:  fs,
		log:    log,
		apiKey: cfg.API.APIKey,
	}

	mux := http.NewServeMux()

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /auth", s.handleAuth)
	mux.HandleFunc("POST /update", s.handleUpdate)
	mux.HandleFunc("GET /status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:         cfg.API.ListenAddr,
		Handler:      s.authMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("api server started")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing X-API-Key header")
			return
		}
		if key != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAuth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

// handleUpdate triggers a sync cycle in the background. A cycle already in
// flight answers 409 without starting another one.
func (s *Server) handleUpdate(w http.ResponseWriter, _ *http.Request) {
	if s.engine.Running() {
		writeError(w, http.StatusConflict, "sync cycle already running")
		return
	}

	go func() {
		if err := s.engine.SyncAll(context.Background()); err != nil {
			s.log.WithError(err).Error("triggered sync cycle failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

type instrumentStatus struct {
	Exchange    string            `json:"exchange"`
	Symbol      string            `json:"symbol"`
	Checkpoints map[string]string `json:"checkpoints"`
}

// handleStatus reports the stored checkpoints for every configured
// instrument.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var out []instrumentStatus
	for _, inst := range s.cfg.Instruments() {
		cps, err := s.store.ReadCheckpoints(inst.Exchange, inst.Ticker)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		status := instrumentStatus{
			Exchange:    inst.Exchange,
			Symbol:      inst.Ticker,
			Checkpoints: make(map[string]string, len(cps)),
		}
		for tf, cp := range cps {
			status.Checkpoints[string(tf)] = cp
		}
		out = append(out, status)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"running":     s.engine.Running(),
		"instruments": out,
	})
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
