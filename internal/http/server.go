package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/securecookie"

	"kanisafin/internal/cache"
	applog "kanisafin/internal/log"
	"kanisafin/internal/middleware/ratelimit"
	"kanisafin/internal/middleware/security"
	"kanisafin/internal/middleware/trace"
	"kanisafin/internal/report"
	"kanisafin/internal/services"
	"kanisafin/internal/session"
	appweb "kanisafin/web"
)

const (
	// handlerTimeout bounds every backend round trip of a request.
	handlerTimeout = 7 * time.Second

	csrfCookieName = "kanisa_csrf"
)

// Options configures a Server.
type Options struct {
	Addr     string
	Service  *services.RecordService
	Sessions *session.Store

	ReportCacheSize int
	ReportCacheTTL  time.Duration

	// CSRFKey is a 32-byte key; a random one is generated when empty.
	CSRFKey []byte
	// Secure marks cookies Secure and enables the TLS-only CSRF checks.
	Secure bool

	LoginRateLimit int
	TrustedProxies []string

	// Ready reports backend readiness for /readyz.
	Ready func(ctx context.Context) error

	Logger *applog.Logger
}

// Server is the KanisaFin web application.
type Server struct {
	http.Server
	templates *template.Template
	svc       *services.RecordService
	sessions  *session.Store

	// reports holds each user's report page state, keyed by user ID.
	reports *cache.LRUCache[*report.State]
	caches  *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *applog.Logger
	ready    func(ctx context.Context) error

	now          func() time.Time
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer parses templates, mounts routes and returns a server ready to
// ListenAndServe.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil || opts.Sessions == nil {
		return nil, fmt.Errorf("new server: service and session store are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	size := opts.ReportCacheSize
	if size <= 0 {
		size = 100
	}
	ttl := opts.ReportCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
	}

	limit := ratelimit.DefaultConfig()
	if opts.LoginRateLimit > 0 {
		limit.RequestsPerMinute = opts.LoginRateLimit
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		templates: tmpl,
		svc:       opts.Service,
		sessions:  opts.Sessions,
		reports:   cache.NewLRUCache[*report.State](size, ttl),
		caches:    cache.NewManager(),
		limiter:   ratelimit.NewLimiter(limit),
		detector:  detector,
		tracer:    trace.NewMiddleware(logger, detector.ExtractClientIP),
		logger:    logger,
		ready:     opts.Ready,
		now:       time.Now,
		started:   time.Now(),
	}
	s.caches.Register("reports", s.reports)
	s.caches.StartCleanup(5 * time.Minute)

	csrfKey := opts.CSRFKey
	if len(csrfKey) == 0 {
		logger.Warn("CSRF_KEY not set, generating an ephemeral key")
		csrfKey = securecookie.GenerateRandomKey(32)
	}
	protect := csrf.Protect(csrfKey,
		csrf.CookieName(csrfCookieName),
		csrf.Path("/"),
		csrf.Secure(opts.Secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(s.handleCSRFFailure)),
	)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = opts.Sessions.Middleware(handler)
	handler = protect(handler)
	if !opts.Secure {
		handler = plaintext(handler)
	}
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.recoverer(handler)
	handler = detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	s.Handler = handler

	return s, nil
}

// routes mounts every endpoint on mux.
func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	throttle := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.Handle("POST /login", throttle(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /logout", s.handleLogout)

	app := func(h http.HandlerFunc) http.Handler {
		return session.RequireAuth(session.RequirePasswordCurrent(withTimeout(handlerTimeout, h)))
	}

	mux.Handle("GET /app/{section}", app(s.handleSection))

	mux.Handle("GET /api/dashboard/series", app(s.handleDashboardSeries))
	mux.Handle("GET /dashboard/recent", app(s.handleDashboardRecent))

	mux.Handle("GET /expenses/list", app(s.handleExpenseList))
	mux.Handle("POST /expenses", app(s.handleCreateExpense))
	mux.Handle("GET /expenses/{id}/edit", app(s.handleEditExpenseForm))
	mux.Handle("POST /expenses/{id}/edit", app(s.handleUpdateExpense))
	mux.Handle("POST /expenses/{id}/delete", app(s.handleDeleteExpense))

	mux.Handle("GET /offerings/list", app(s.handleOfferingList))
	mux.Handle("POST /offerings/regular", app(s.handleCreateRegularOffering))
	mux.Handle("POST /offerings/envelope", app(s.handleCreateEnvelopeOffering))
	mux.Handle("GET /offerings/regular/{id}/edit", app(s.handleEditRegularForm))
	mux.Handle("POST /offerings/regular/{id}/edit", app(s.handleUpdateRegularOffering))
	mux.Handle("POST /offerings/regular/{id}/delete", app(s.handleDeleteRegularOffering))
	mux.Handle("GET /offerings/envelope/{id}/edit", app(s.handleEditEnvelopeForm))
	mux.Handle("POST /offerings/envelope/{id}/edit", app(s.handleUpdateEnvelopeOffering))
	mux.Handle("POST /offerings/envelope/{id}/delete", app(s.handleDeleteEnvelopeOffering))

	mux.Handle("GET /donors/list", app(s.handleDonorList))
	mux.Handle("POST /donors", app(s.handleRegisterDonor))
	mux.Handle("GET /donors/{envelope}/edit", app(s.handleEditDonorForm))
	mux.Handle("POST /donors/{envelope}/edit", app(s.handleUpdateDonor))

	mux.Handle("GET /jengo/pledges", app(s.handlePledgeList))
	mux.Handle("POST /jengo/pledges", app(s.handleSetPledge))
	mux.Handle("GET /jengo/history", app(s.handleDonorHistory))

	mux.Handle("GET /reports", app(s.handleReportPanel))
	mux.Handle("POST /reports/filter", app(s.handleReportFilter))
	mux.Handle("POST /reports/generate", app(s.handleReportGenerate))
	mux.Handle("GET /reports/print", app(s.handleReportPrint))

	mux.Handle("GET /admin/users", app(s.handleUserList))
	mux.Handle("POST /admin/users", app(s.handleCreateUser))
	mux.Handle("POST /admin/users/{id}/delete", app(s.handleDeleteUser))

	mux.Handle("POST /profile/password", app(s.handleChangePassword))
}

// plaintext tells the CSRF layer the request arrived over plain HTTP so the
// TLS-only Referer check is skipped.
func plaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// withTimeout bounds the request context.
func withTimeout(d time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "CSRF validation failed",
		applog.FieldComponent, applog.ComponentSecurity,
		applog.FieldPath, r.URL.Path,
		applog.FieldError, csrf.FailureReason(r))
	ForbiddenError(MsgCSRF).Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		ErrorResponse(http.StatusTooManyRequests, MsgRateLimited).Write(w)
		return
	}
	s.renderLogin(w, r, http.StatusTooManyRequests, loginView{
		Email: sanitizeInput(r.PostFormValue("email")),
		Error: MsgRateLimited,
	})
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and the backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok", "backend": "ok"}
	if s.templates == nil {
		checks["templates"] = "not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", applog.FieldComponent, applog.ComponentBackend, applog.FieldError, err)
			checks["backend"] = err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	tm := s.tracer.GetMetrics()
	cs := s.reports.Stats()

	metric := func(name, kind, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests)
	metric("http_requests_in_flight", "gauge", "Requests currently being served", tm.InFlight)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", tm.ServerErrors)
	metric("security_blocked_requests_total", "counter", "Requests refused by the probe detector", s.detector.Blocked())
	metric("login_rate_limited_total", "counter", "Login attempts refused by the rate limiter", s.limiter.Rejected())
	metric("login_rate_limit_clients", "gauge", "Clients tracked by the login rate limiter", int64(s.limiter.ActiveClients()))
	metric("report_cache_entries", "gauge", "Report states held in memory", int64(cs.Size))
	metric("report_cache_hits_total", "counter", "Report state cache hits", cs.Hits)
	metric("report_cache_misses_total", "counter", "Report state cache misses", cs.Misses)
	metric("report_cache_evictions_total", "counter", "Report states evicted", cs.Evictions)
	metric("uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.started).Seconds()))
}
