package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultServiceName = "madoguchi"
	maxBodyBytes       = 64 << 10
)

type Server struct {
	router      *chi.Mux
	handler     http.Handler
	search      SearchUseCase
	feedback    FeedbackUseCase
	corsOrigins []string
	serviceName string
	version     string
}

type Options func(*Server)

// WithCORS allows browsers on origins to call the API. "*" allows any origin.
func WithCORS(origins []string) Options {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithServiceInfo sets the name and version reported by /health
func WithServiceInfo(name, version string) Options {
	return func(s *Server) {
		s.serviceName = name
		s.version = version
	}
}

func New(search SearchUseCase, feedback FeedbackUseCase, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:      r,
		search:      search,
		feedback:    feedback,
		serviceName: DefaultServiceName,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)
	if len(s.corsOrigins) > 0 {
		r.Use(corsMiddleware(s.corsOrigins))
	}

	r.Get("/health", s.healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.searchHandler)
		r.Get("/answer", s.answerHandler)
		r.Get("/faq", s.faqHandler)
		r.Get("/faq/categories", s.categoriesHandler)
		r.Get("/stats", s.statsHandler)
		r.Post("/feedback", s.postFeedbackHandler)
		r.Get("/feedback", s.listFeedbackHandler)
	})

	s.handler = otelhttp.NewHandler(r, s.serviceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
