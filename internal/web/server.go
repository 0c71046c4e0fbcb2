package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/daikw/protoeval/internal/session"
	"github.com/daikw/protoeval/internal/voice"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// SessionCookie names the cookie that carries the session id
const SessionCookie = "protoeval_session"

// DefaultMaxUploadBytes caps uploads and paste payloads
const DefaultMaxUploadBytes = 20 << 20

//go:embed static
var staticFiles embed.FS

// Options configures a Server
type Options struct {
	Registry       *session.Registry
	Catalog        *persona.Catalog
	Narrator       *voice.Narrator
	PreviewWidth   int
	PreviewHeight  int
	MaxUploadBytes int64
}

// Server is the interactive evaluation front end
type Server struct {
	registry       *session.Registry
	catalog        *persona.Catalog
	narrator       *voice.Narrator
	previewWidth   int
	previewHeight  int
	maxUploadBytes int64
	router         chi.Router
}

type sessionKey struct{}

// New creates a server and registers its routes
func New(opts Options) *Server {
	s := &Server{
		registry:       opts.Registry,
		catalog:        opts.Catalog,
		narrator:       opts.Narrator,
		previewWidth:   opts.PreviewWidth,
		previewHeight:  opts.PreviewHeight,
		maxUploadBytes: opts.MaxUploadBytes,
	}
	if s.previewWidth <= 0 {
		s.previewWidth = imagesource.DefaultPreviewWidth
	}
	if s.previewHeight <= 0 {
		s.previewHeight = imagesource.DefaultPreviewHeight
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = DefaultMaxUploadBytes
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Method(http.MethodGet, "/", ComponentHandler(s.handleIndex))
		r.Post("/credential", s.handleCredential)
		r.Post("/mode", s.handleMode)
		r.Post("/method", s.handleMethod)
		r.Post("/personas", s.handlePersonas)
		r.Post("/evaluate", s.handleEvaluate)

		r.Route("/slots/{slot}", func(r chi.Router) {
			r.Post("/upload", s.handleUpload)
			r.Post("/paste", s.handlePaste)
			r.Post("/clear", s.handleClear)
			r.Get("/preview.png", s.handlePreview)
		})

		r.Get("/results/{index}/audio", s.handleAudio)
	})

	return r
}

// withSession attaches the caller's controller to the request context,
// creating a session and setting its cookie when needed
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}

		ctrl, id, created := s.registry.Get(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			log.Debug().Str("session", id).Msg("Created session")
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, ctrl)))
	})
}

func controllerFrom(r *http.Request) *session.Controller {
	ctrl, _ := r.Context().Value(sessionKey{}).(*session.Controller)
	return ctrl
}

// accessLog writes one structured line per request
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("HTTP request")
		}()
		next.ServeHTTP(ww, r)
	})
}
