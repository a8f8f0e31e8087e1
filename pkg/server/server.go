package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/layout"
	"github.com/matzehuels/macroviewer/pkg/observability/prom"
	"github.com/matzehuels/macroviewer/pkg/session"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	SessionTTL     time.Duration
	Viewport       layout.Viewport
	SettleWindow   time.Duration
	TickInterval   time.Duration
	// Seed fixes the layout seed of new sessions; zero is time-based.
	Seed int64
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = session.DefaultTTL
	}
	if c.TickInterval <= 0 {
		c.TickInterval = layout.DefaultTickInterval
	}
	if c.SettleWindow <= 0 {
		c.SettleWindow = layout.DefaultSettleWindow
	}
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithStore persists session states. Defaults to no persistence.
func WithStore(st session.Store) Option { return func(s *Server) { s.store = st } }

// WithMetrics serves /metrics and records every request on m.
func WithMetrics(m *prom.Hooks) Option { return func(s *Server) { s.metrics = m } }

// Server serves viewer sessions over one dataset.
type Server struct {
	cfg      Config
	logger   *log.Logger
	store    session.Store
	metrics  *prom.Hooks
	upgrader websocket.Upgrader
	router   chi.Router

	mu      sync.RWMutex
	data    *dataset.Dataset
	viewers map[string]*viewer

	httpServer *http.Server
}

// New creates a server over d. A nil d is reported as DATASET_MISSING.
func New(cfg Config, d *dataset.Dataset, opts ...Option) (*Server, error) {
	if d == nil {
		return nil, errors.New(errors.ErrCodeDatasetMissing, "dataset is absent")
	}
	cfg.setDefaults()
	s := &Server{
		cfg:     cfg,
		logger:  log.Default(),
		store:   session.NewCacheStore(nil, nil),
		data:    d,
		viewers: make(map[string]*viewer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.buildRouter()
	return s, nil
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.observe)
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", sessionHeader},
		ExposedHeaders:   []string{sessionHeader, requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/frame", s.handleFrame)
		r.Post("/actions", s.handleAction)
		r.Get("/countries/{iso2}", s.handleCountry)
		r.Get("/tooltips/{iso2}", s.handleTooltip)
		r.Get("/search", s.handleSearch)
		r.Get("/render.{format}", s.handleRender)
		r.Delete("/session", s.handleEndSession)
	})

	r.Get("/ws", s.handleWS)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Dataset returns the dataset new sessions start from.
func (s *Server) Dataset() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.viewers)
}

// Reload switches every session to d. Each view keeps its filter state
// where d allows it and its node positions where the countries remain.
func (s *Server) Reload(ctx context.Context, d *dataset.Dataset) error {
	if d == nil {
		return errors.New(errors.ErrCodeDatasetMissing, "dataset is absent")
	}
	s.mu.Lock()
	s.data = d
	viewers := make([]*viewer, 0, len(s.viewers))
	for _, v := range s.viewers {
		viewers = append(viewers, v)
	}
	s.mu.Unlock()

	for _, v := range viewers {
		if err := v.reload(ctx, d); err != nil {
			s.logger.Warn("session reload failed", "session", v.id, "err", err)
		}
	}
	s.logger.Info("dataset reloaded", "nodes", len(d.Nodes), "links", len(d.Links), "sessions", len(viewers))
	return nil
}

// Sweep closes sessions without sockets that were idle for longer than
// the session TTL. Their states stay in the store.
func (s *Server) Sweep() int {
	cutoff := time.Now().Add(-s.cfg.SessionTTL)
	s.mu.Lock()
	var idle []*viewer
	for id, v := range s.viewers {
		if v.idleSince(cutoff) {
			idle = append(idle, v)
			delete(s.viewers, id)
		}
	}
	s.mu.Unlock()
	for _, v := range idle {
		v.close()
	}
	if len(idle) > 0 {
		s.logger.Debug("swept idle sessions", "count", len(idle))
	}
	return len(idle)
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully. Idle sessions are swept periodically.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("macroviewer server listening", "addr", s.cfg.Addr)
		errc <- s.httpServer.ListenAndServe()
	}()

	sweep := time.NewTicker(min(s.cfg.SessionTTL, 10*time.Minute))
	defer sweep.Stop()
	for {
		select {
		case err := <-errc:
			if stderrors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-sweep.C:
			s.Sweep()
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return s.Shutdown(shutdownCtx)
		}
	}
}

// Shutdown stops the listener and closes every session.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.mu.Lock()
	viewers := s.viewers
	s.viewers = make(map[string]*viewer)
	s.mu.Unlock()
	for _, v := range viewers {
		v.close()
	}
	return err
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if matchOrigin(allowed, origin) {
			return true
		}
	}
	return false
}
