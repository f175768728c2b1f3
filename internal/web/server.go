package web

import (
	"embed"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"chat-widget/internal/widget"
)

//go:embed static/index.html
var static embed.FS

// Server hosts the browser chat widget. Every websocket connection is one
// page session with its own controller and transcript.
type Server struct {
	replier  widget.Replier
	logger   *slog.Logger
	opts     []widget.Option
	upgrader websocket.Upgrader
}

func NewServer(replier widget.Replier, logger *slog.Logger, opts ...widget.Option) (*Server, error) {
	if replier == nil {
		return nil, errors.New("web: replier must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		replier: replier,
		logger:  logger,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}, nil
}

// Router wires the page, health check and websocket routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", s.handleWebSocket)

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		s.logger.Error("read embedded page", "err", err)
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
