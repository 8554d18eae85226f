// Package http serves the savings club UI and the JSON chart feed.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cassa/internal/cache"
	"cassa/internal/core"
	"cassa/internal/log"
	"cassa/internal/middleware/ratelimit"
	"cassa/internal/middleware/security"
	"cassa/internal/middleware/trace"
	appweb "cassa/web"
)

// Service is what the handlers need from the application layer.
type Service interface {
	CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
	UpdatePayment(ctx context.Context, p core.Payment) error
	ValidatePayment(ctx context.Context, p core.Payment, forCreate bool) core.FieldErrors
	DeletePayment(ctx context.Context, id int64) error
	GetPayment(ctx context.Context, id int64) (core.Payment, error)
	Statistics(ctx context.Context, f core.Filter) (core.Statistics, error)

	CreateMember(ctx context.Context, m core.Member) (core.Member, error)
	UpdateMember(ctx context.Context, m core.Member) error
	DeleteMember(ctx context.Context, id int64) error
	GetMember(ctx context.Context, id int64) (core.Member, error)
	ListMembers(ctx context.Context) ([]core.Member, error)
}

// Pinger reports whether the backing store is reachable. Used by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options bundles the server dependencies.
type Options struct {
	Addr               string
	Service            Service
	Pinger             Pinger
	Logger             *log.Logger
	UploadDir          string
	MaxUploadSizeBytes int64
}

type Server struct {
	http.Server
	service   Service
	pinger    Pinger
	logger    *log.Logger
	templates *template.Template

	uploadDir     string
	maxUploadSize int64

	// The member dropdown is read on every form render; members change
	// rarely, so a short TTL cache is safe. Invalidated on member writes.
	membersCache *cache.LRUCache[[]core.Member]
	cacheManager *cache.Manager

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

const membersCacheKey = "members"

// NewServer configures routes, middleware and templates.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("service is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		service:       opts.Service,
		pinger:        opts.Pinger,
		logger:        opts.Logger.WithComponent(log.ComponentHTTP),
		uploadDir:     opts.UploadDir,
		maxUploadSize: opts.MaxUploadSizeBytes,
		membersCache:  cache.NewLRUCache[[]core.Member](1, 5*time.Minute),
		cacheManager:  cache.NewManager(),
		rateLimiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}
	s.cacheManager.Register(s.membersCache)
	s.cacheManager.StartCleanup(time.Minute)

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	extractor := security.NewIPExtractor()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(opts.Logger, extractor.ExtractClientIP)
	limited := s.rateLimiter.Middleware(extractor.ExtractClientIP, nil)

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("failed to mount embedded static FS", log.FieldError, err)
	}
	if s.uploadDir != "" {
		uploads := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadDir)))
		mux.Handle("GET /uploads/", security.StaticAssetMiddleware(3600)(uploads))
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /payments/new", s.handleNewPaymentForm)
	mux.HandleFunc("POST /payments", s.handleCreatePayment)
	mux.HandleFunc("GET /payments/{id}/edit", s.handleEditPaymentForm)
	mux.HandleFunc("POST /payments/{id}", s.handleUpdatePayment)
	mux.HandleFunc("POST /payments/{id}/delete", s.handleDeletePayment)

	mux.HandleFunc("GET /members", s.handleListMembers)
	mux.HandleFunc("GET /members/new", s.handleNewMemberForm)
	mux.HandleFunc("POST /members", s.handleCreateMember)
	mux.HandleFunc("GET /members/{id}/edit", s.handleEditMemberForm)
	mux.HandleFunc("POST /members/{id}", s.handleUpdateMember)
	mux.HandleFunc("POST /members/{id}/delete", s.handleDeleteMember)
	mux.HandleFunc("POST /members/{id}/image", s.handleMemberImageUpload)

	mux.HandleFunc("GET /api/chart/top5", s.handleChartTop5)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := headers.Middleware(mux)
	handler = limited(handler)
	handler = instrumentHandler(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Shutdown stops the HTTP server and the middleware housekeeping.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// listMembers serves the member dropdown from cache when possible.
func (s *Server) listMembers(ctx context.Context) ([]core.Member, error) {
	if members, ok := s.membersCache.Get(membersCacheKey); ok {
		return members, nil
	}
	members, err := s.service.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	s.membersCache.Set(membersCacheKey, members)
	return members, nil
}

func (s *Server) invalidateMembers() {
	s.membersCache.Delete(membersCacheKey)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.ErrorContext(r.Context(), "readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
