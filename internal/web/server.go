// Package web provides the HTTP server for the commentbox JSON API.
package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/comment"
	"github.com/evcraddock/commentbox/internal/logging"
	"github.com/evcraddock/commentbox/internal/reply"
	"github.com/evcraddock/commentbox/internal/upload"
	"github.com/evcraddock/commentbox/internal/user"
)

// Config holds server settings.
type Config struct {
	// UploadDir is where attachments are written.
	UploadDir string
	// PublicURL is the externally visible base URL, used in attachment links.
	PublicURL string
	Rate      auth.RateConfig
}

// Server is the API HTTP server.
type Server struct {
	comments  *comment.Repository
	replies   *reply.Repository
	users     *user.Repository
	apiKeys   *auth.APIKeyStore
	files     *upload.Disk
	userCache *cache.Cache
	metrics   *metrics
	router    *mux.Router
	handler   http.Handler
}

// NewServer creates a server backed by db.
func NewServer(db *sql.DB, cfg Config) (*Server, error) {
	if cfg.UploadDir == "" {
		return nil, errors.New("upload directory is required")
	}
	files, err := upload.NewDisk(cfg.UploadDir, strings.TrimRight(cfg.PublicURL, "/")+"/files")
	if err != nil {
		return nil, fmt.Errorf("opening upload store: %w", err)
	}

	s := &Server{
		comments:  comment.NewRepository(db),
		replies:   reply.NewRepository(db),
		users:     user.NewRepository(db),
		apiKeys:   auth.NewAPIKeyStore(db),
		files:     files,
		userCache: cache.New(time.Minute, 5*time.Minute),
		metrics:   newMetrics(),
		router:    mux.NewRouter(),
	}
	s.routes()

	s.handler = logging.RequestLogger(auth.RequireAPIKey(s.apiKeys, s.users, cfg.Rate, s.router))
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.metrics.middleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/files/{name}", s.handleFile).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/comments", s.apiListComments).Methods(http.MethodGet)
	api.HandleFunc("/comments", s.apiCreateComment).Methods(http.MethodPost)
	api.HandleFunc("/comments/{id}", s.apiGetComment).Methods(http.MethodGet)
	api.HandleFunc("/comments/{id}/reactions", s.apiGetReactions).Methods(http.MethodGet)
	api.HandleFunc("/comments/{id}/reactions", s.apiPutReactions).Methods(http.MethodPut)
	api.HandleFunc("/comments/{id}/reactions", s.apiIncrementReaction).Methods(http.MethodPost)
	api.HandleFunc("/comments/{id}/replies", s.apiListReplies).Methods(http.MethodGet)
	api.HandleFunc("/comments/{id}/replies", s.apiCreateReply).Methods(http.MethodPost)
	api.HandleFunc("/users", s.apiListUsers).Methods(http.MethodGet)
	api.HandleFunc("/me", s.apiMe).Methods(http.MethodGet)
	api.HandleFunc("/uploads", s.apiUpload).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.files.Path(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	http.ServeFile(w, r, path)
}
