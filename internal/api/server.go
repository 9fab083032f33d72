package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/IshaanNene/gh-trending/internal/config"
	"github.com/IshaanNene/gh-trending/internal/observability"
	"github.com/IshaanNene/gh-trending/internal/pipeline"
	"github.com/IshaanNene/gh-trending/internal/storage"
	"github.com/IshaanNene/gh-trending/internal/types"
)

// TrendingService is the part of pipeline.Service the API drives.
type TrendingService interface {
	Get(ctx context.Context, period types.Period, force bool) pipeline.Result
}

// SettingsEditor reads and updates the persisted settings.
type SettingsEditor interface {
	Current() config.Settings
	Update(fn func(*config.Settings)) (config.Settings, error)
}

// Server is the local HTTP API over the trending pipeline.
type Server struct {
	router    chi.Router
	srv       *http.Server
	trending  TrendingService
	history   storage.HistoryStore
	snapshots storage.SnapshotStore
	settings  SettingsEditor
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewServer creates the API server and registers its routes. metrics may be nil.
func NewServer(cfg *config.ServerConfig, trending TrendingService, history storage.HistoryStore,
	snapshots storage.SnapshotStore, settings SettingsEditor, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		trending:  trending,
		history:   history,
		snapshots: snapshots,
		settings:  settings,
		metrics:   metrics,
		logger:    logger.With("component", "api_server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/trending/{period}", s.handleTrending)

		r.Get("/history", s.handleListHistory)
		r.Post("/history", s.handleAppendHistory)
		r.Delete("/history", s.handleClearHistory)

		r.Delete("/cache/{period}", s.handleClearCache)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	s.router = r
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler for use in tests or other servers.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("API server shutting down")
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

type trendingResponse struct {
	pipeline.Result
	Saved        bool `json:"saved"`
	HistoryAdded int  `json:"historyAdded"`
}

// handleTrending serves one period and records what it returned in history.
// GET /api/trending/{period}?force=true
func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	period, err := types.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		force, err = strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'force' parameter. Must be a boolean.")
			return
		}
	}

	res := s.trending.Get(r.Context(), period, force)
	resp := trendingResponse{Result: res, Saved: res.PersistErr == nil}

	if len(res.Records) > 0 {
		added, err := s.history.Append(res.Records)
		if err != nil {
			s.logger.Error("failed to append history", "period", period, "error", err)
			resp.Saved = false
		}
		resp.HistoryAdded = added
		if s.metrics != nil {
			s.metrics.HistoryAdded.Add(int64(added))
		}
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// GET /api/history
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.history.List()
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, types.HistoryDocument{Repositories: records})
}

// POST /api/history with a JSON array of records.
func (s *Server) handleAppendHistory(w http.ResponseWriter, r *http.Request) {
	var records []types.RepositoryRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10<<20)).Decode(&records); err != nil {
		respondWithError(w, http.StatusBadRequest, "Body must be a JSON array of repositories.")
		return
	}
	for _, rec := range records {
		if rec.RepoURL == "" {
			respondWithError(w, http.StatusBadRequest, "Every repository needs a repoUrl.")
			return
		}
	}

	added, err := s.history.Append(records)
	if err != nil {
		s.logger.Error("failed to append history", "error", err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "added": 0})
		return
	}
	if s.metrics != nil {
		s.metrics.HistoryAdded.Add(int64(added))
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"ok": true, "added": added})
}

// DELETE /api/history
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(); err != nil {
		s.logger.Error("failed to clear history", "error", err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]bool{"ok": false})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// DELETE /api/cache/{period}, where period may be "all".
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "period")

	var err error
	if raw == "all" {
		err = s.snapshots.ClearAll()
	} else {
		period, perr := types.ParsePeriod(raw)
		if perr != nil {
			respondWithError(w, http.StatusBadRequest, perr.Error())
			return
		}
		err = s.snapshots.Clear(period)
	}

	if err != nil {
		s.logger.Error("failed to clear cache", "period", raw, "error", err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]bool{"ok": false})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type settingsView struct {
	APIKey         string `json:"apiKey"`
	HasAPIKey      bool   `json:"hasApiKey"`
	UpdateInterval int    `json:"updateInterval"`
	ProxyURL       string `json:"proxyUrl"`
	Language       string `json:"language"`
}

func viewOf(st config.Settings) settingsView {
	return settingsView{
		APIKey:         st.MaskedAPIKey(),
		HasAPIKey:      st.HasCredential(),
		UpdateInterval: st.UpdateIntervalHours,
		ProxyURL:       st.ProxyURL,
		Language:       st.Language,
	}
}

// GET /api/settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, viewOf(s.settings.Current()))
}

type settingsPatch struct {
	APIKey         *string `json:"apiKey"`
	UpdateInterval *int    `json:"updateInterval"`
	ProxyURL       *string `json:"proxyUrl"`
	Language       *string `json:"language"`
}

// PUT /api/settings with any subset of the settings fields.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&patch); err != nil {
		respondWithError(w, http.StatusBadRequest, "Body must be a JSON object.")
		return
	}

	updated, err := s.settings.Update(func(st *config.Settings) {
		if patch.APIKey != nil {
			st.APIKey = *patch.APIKey
		}
		if patch.UpdateInterval != nil {
			st.UpdateIntervalHours = *patch.UpdateInterval
		}
		if patch.ProxyURL != nil {
			st.ProxyURL = *patch.ProxyURL
		}
		if patch.Language != nil {
			st.Language = *patch.Language
		}
	})
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, viewOf(updated))
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}
