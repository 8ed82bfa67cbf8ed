package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/usecase"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

func New(uc *usecase.UseCases) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/followup", func(r chi.Router) {
			r.Post("/review", s.handleFollowUp(types.DirectiveReview))
			r.Post("/document", s.handleFollowUp(types.DirectiveDocument))
			r.Post("/custom", s.handleFollowUp(types.DirectiveCustom))
		})

		r.Route("/task", func(r chi.Router) {
			r.Post("/", s.handleStartTask)
			r.Get("/", s.handleActiveTask)
			r.Post("/complete", s.handleCompleteTask)
			r.Post("/abort", s.handleAbortTask)
			r.Get("/{taskID}/messages", s.handleTaskMessages)
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
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
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
