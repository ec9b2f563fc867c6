// Package api provides the Juniper Quran REST and websocket server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/JuniperQuran/core/cache"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
	"github.com/FocuswithJustin/JuniperQuran/internal/images"
	"github.com/FocuswithJustin/JuniperQuran/internal/logging"
	"github.com/FocuswithJustin/JuniperQuran/internal/server"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// textKey identifies rendered text by surah pointer, so entries from a
// replaced corpus never match.
type textKey struct {
	surah *quran.Surah
	limit int
}

// Server serves one corpus. The corpus can be swapped with SetCorpus while
// requests are in flight.
type Server struct {
	cfg      Config
	corpus   atomic.Pointer[quran.Corpus]
	images   *images.Store
	texts    cache.Cache[textKey, []string]
	hub      *Hub
	metrics  *Metrics
	upgrader websocket.Upgrader
	wsConfig WebSocketSecurityConfig
	wsLimits *WebSocketRateLimiter
	limiter  *RateLimiter
}

// New returns a Server for corpus. imgs may be nil when no page images are
// configured.
func New(cfg Config, corpus *quran.Corpus, imgs *images.Store) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:      cfg,
		images:   imgs,
		texts:    cache.NewLRUCache[textKey, []string](cache.Config{MaxSize: 256}),
		hub:      NewHub(),
		wsConfig: DefaultWebSocketSecurityConfig(),
		wsLimits: NewWebSocketRateLimiter(),
	}
	s.wsConfig.AllowedOrigins = cfg.AllowedOrigins
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     CheckOriginWithConfig(s.wsConfig),
	}
	if cfg.RateLimitRequests > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		})
	}
	s.metrics = NewMetrics(s)
	s.corpus.Store(corpus)
	s.metrics.observeCorpus(corpus)
	return s
}

// Corpus returns the corpus currently being served.
func (s *Server) Corpus() *quran.Corpus {
	return s.corpus.Load()
}

// SetCorpus replaces the served corpus and notifies /ws/events clients.
func (s *Server) SetCorpus(c *quran.Corpus) {
	s.corpus.Store(c)
	s.texts.Clear()
	s.metrics.observeCorpus(c)
	s.metrics.reloads.Inc()
	s.hub.Broadcast(Event{
		Type:     "corpus_loaded",
		CorpusID: c.ID,
		Surahs:   len(c.Surahs()),
		Ayat:     c.Len(),
	})
}

// surahText returns the chunked text of sr.
func (s *Server) surahText(sr *quran.Surah, limit int) []string {
	chunks, _ := cache.Fetch(s.texts, textKey{surah: sr, limit: limit}, func() ([]string, error) {
		return quran.SurahText(sr, limit), nil
	})
	return chunks
}

// routes configures all HTTP routes.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	handle := func(pattern, route string, h http.HandlerFunc) {
		mux.Handle(pattern, s.metrics.Instrument(route, h))
	}

	handle("/", "root", s.handleRoot)
	handle("GET /health", "health", s.handleHealth)
	handle("GET /surahs", "surahs", s.handleSurahs)
	handle("GET /surahs/{name}", "surah", s.handleSurah)
	handle("GET /surahs/{name}/text", "surah_text", s.handleSurahText)
	handle("GET /surahs/{name}/ayat/{number}", "ayah", s.handleAyah)
	handle("GET /surahs/{name}/ayat/{number}/tafseer", "tafseer", s.handleTafseer)
	handle("GET /pages/{number}", "page", s.handlePage)
	handle("GET /ws/surahs/{name}/text", "ws_text", s.handleTextStream)
	handle("GET /ws/events", "ws_events", s.handleEvents)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return mux
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), s.routes())

	handler = AuthMiddleware(s.cfg.Auth, handler)
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	handler = server.TimingMiddleware(handler)

	return logging.CombinedMiddleware(handler)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := ValidateAuthConfig(s.cfg.Auth); err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}
	if s.cfg.TLS.Enabled {
		if s.cfg.TLS.CertFile == "" || s.cfg.TLS.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
		if _, err := os.Stat(s.cfg.TLS.CertFile); err != nil {
			return fmt.Errorf("TLS cert file not found: %w", err)
		}
		if _, err := os.Stat(s.cfg.TLS.KeyFile); err != nil {
			return fmt.Errorf("TLS key file not found: %w", err)
		}
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)
	if s.limiter != nil {
		defer s.limiter.Stop()
	}

	protocol, wsProtocol := "http", "ws"
	if s.cfg.TLS.Enabled {
		protocol, wsProtocol = "https", "wss"
		logging.Info("TLS enabled", "cert_file", s.cfg.TLS.CertFile)
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}
	c := s.Corpus()
	logging.ServerStartup("rest_api", protocol, s.cfg.Port,
		"websocket_protocol", wsProtocol,
		"corpus_id", c.ID,
		"ayat", c.Len(),
		"auth", s.cfg.Auth.Enabled,
		"rate_limit", s.cfg.RateLimitRequests,
		"allowed_origins", len(s.cfg.AllowedOrigins))
	if s.images != nil {
		logging.Info("page images", "dir", server.AbsPath(s.images.Dir()))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if s.cfg.TLS.Enabled {
			errc <- srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			errc <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logging.Info("server_shutdown", "reason", context.Cause(ctx))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
