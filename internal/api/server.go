package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server handles HTTP requests for bills
type Server struct {
	service   *Service
	basicAuth BasicAuth
	router    chi.Router
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with a fresh router
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	return NewServerWithRouter(service, basicAuth, chi.NewRouter())
}

// NewServerWithRouter creates a new Server on a caller-provided router
func NewServerWithRouter(service *Service, basicAuth BasicAuth, router chi.Router) *Server {
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		router:    router,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers and answers preflight requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request once it completed
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) registerRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(corsMiddleware)

	s.router.Group(func(r chi.Router) {
		if s.basicAuth.Username != "" || s.basicAuth.Password != "" {
			r.Use(middleware.BasicAuth("Billed", map[string]string{
				s.basicAuth.Username: s.basicAuth.Password,
			}))
		}

		r.Route("/api/bills", func(r chi.Router) {
			r.Get("/", s.handleListBills)
			r.Post("/", s.handleCreateBill)
			r.Get("/{id}", s.handleGetBill)
			r.Put("/{id}", s.handleUpdateBill)
			r.Delete("/{id}", s.handleDeleteBill)
		})
	})

	// Receipt files are public
	s.router.Get("/files/{name}", s.handleGetFile)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
