package web

import (
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"github.com/vbonduro/canary/internal/auth"
	"github.com/vbonduro/canary/internal/notify"
	"github.com/vbonduro/canary/internal/photostore"
	"github.com/vbonduro/canary/internal/service"
)

const sessionCookie = "canary_session"

// Options configures request protection. A nil CSRFKey disables CSRF checks.
type Options struct {
	CSRFKey       []byte
	SecureCookies bool
}

type Server struct {
	service    *service.ClubService
	templates  fs.FS
	photoStore photostore.PhotoStore
	auth       *auth.Authenticator
	sessions   *auth.Sessions
	opts       Options
	mux        *http.ServeMux
	handler    http.Handler
	tmplFuncs  template.FuncMap
	logger     *slog.Logger
}

// NewServer wires the public and admin routes. ps may be nil when gallery
// uploads are stored inline, in which case /photos/ always 404s.
func NewServer(
	svc *service.ClubService,
	tmpl fs.FS,
	ps photostore.PhotoStore,
	authn *auth.Authenticator,
	sessions *auth.Sessions,
	opts Options,
	logger *slog.Logger,
) *Server {
	s := &Server{
		service:    svc,
		templates:  tmpl,
		photoStore: ps,
		auth:       authn,
		sessions:   sessions,
		opts:       opts,
		mux:        http.NewServeMux(),
		logger:     logger,
		tmplFuncs: template.FuncMap{
			"truncate":  truncate,
			"markdown":  notify.RenderMessage,
			"firstRune": firstRune,
			"imageSrc":  imageSrc,
			"formURL":   formURL,
		},
	}
	s.registerRoutes()
	s.handler = s.protect(s.mux)
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("POST /contact", s.handleContact)
	s.mux.HandleFunc("GET /members", s.handleMembers)
	s.mux.HandleFunc("GET /photos/{key}", s.handleGetPhoto)

	s.mux.HandleFunc("GET /admin", s.handleAdmin)
	s.mux.HandleFunc("POST /admin/login", s.handleLogin)
	s.mux.HandleFunc("POST /admin/logout", s.handleLogout)

	s.mux.HandleFunc("POST /admin/members", s.requireAdmin(s.handleSaveMember))
	s.mux.HandleFunc("POST /admin/members/{id}/delete", s.requireAdmin(s.handleDeleteMember))
	s.mux.HandleFunc("POST /admin/members/reset", s.requireAdmin(s.handleResetMembers))
	s.mux.HandleFunc("POST /admin/gallery", s.requireAdmin(s.handleSaveGallery))
	s.mux.HandleFunc("POST /admin/gallery/{id}/delete", s.requireAdmin(s.handleDeleteGallery))
	s.mux.HandleFunc("POST /admin/gallery/reset", s.requireAdmin(s.handleResetGallery))
	s.mux.HandleFunc("POST /admin/inquiries/{id}/delete", s.requireAdmin(s.handleDeleteInquiry))
}

// protect wraps next in gorilla/csrf when a key is configured. Over plain
// HTTP the request is marked so the TLS-only referer check is skipped.
func (s *Server) protect(next http.Handler) http.Handler {
	if len(s.opts.CSRFKey) == 0 {
		return next
	}
	guarded := csrf.Protect(s.opts.CSRFKey,
		csrf.Secure(s.opts.SecureCookies),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
			http.Error(w, "forbidden", http.StatusForbidden)
		})),
	)(next)
	if s.opts.SecureCookies {
		return guarded
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		guarded.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// securityHeaders sets browser hardening headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; "+
				"font-src https://fonts.gstatic.com; "+
				"img-src 'self' data: https:; "+
				"form-action 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.handler)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

// renderPage parses and executes a full-page template set with the given status.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial parses and executes a single named partial template with the
// given status. The file must contain exactly one {{define "name"}}...{{end}} block.
func (s *Server) renderPartial(w http.ResponseWriter, status int, file string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	basename := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		basename = file[idx+1:]
	}
	for _, t := range tmpl.Templates() {
		if n := t.Name(); n != "" && n != basename {
			return t.Execute(w, data)
		}
	}
	return tmpl.ExecuteTemplate(w, basename, data)
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(n int, s string) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// firstRune is the avatar placeholder for members without a photo.
func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// imageSrc lets inline data:image URIs past html/template's URL filter.
func imageSrc(u string) any {
	if strings.HasPrefix(u, "data:image/") {
		return template.URL(u)
	}
	return u
}

// formURL is the image URL echoed into an edit form. Inline data URIs are
// left out; a blank field on edit keeps the current image.
func formURL(u string) string {
	if strings.HasPrefix(u, "data:") {
		return ""
	}
	return u
}
