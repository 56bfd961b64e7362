// internal/httpserver/server.go
//
// HTTP server wiring for the wholepart backend.
// Responsibilities:
//   - Router + middleware (CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/" (page shell), "/static/*", "/health".
//   - Activity endpoints (optional auth): POST /session, GET /scene,
//     POST /action, GET /ws. See routes_activity.go.
//   - Auth + progress endpoints: /auth/*, /progress/mine. See auth.go.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token is present;
//     routes can still run for guests.
//   - The websocket route sits outside the timeout group; it is long-lived.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wholepart/assets"
	"github.com/robalobadob/wholepart/internal/activity"
	"github.com/robalobadob/wholepart/internal/config"
	"github.com/robalobadob/wholepart/internal/progress"
	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/store"
)

// Options are the server's dependencies.
type Options struct {
	Config   *config.Config
	Sessions store.Store
	Factory  *activity.Factory
	Progress *progress.Store
	DB       *sql.DB
	Scenes   []scene.Descriptor
}

// Server bundles the router with the session registry and the database.
type Server struct {
	r        *chi.Mux
	cfg      *config.Config
	sessions store.Store
	factory  *activity.Factory
	progress *progress.Store
	db       *sql.DB
	scenes   []scene.Descriptor
	upgrader websocket.Upgrader
}

// New constructs a Server, installs middleware, and registers routes.
func New(o Options) *Server {
	cfg := o.Config
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      cfg,
		sessions: o.Sessions,
		factory:  o.Factory,
		progress: o.Progress,
		db:       o.DB,
		scenes:   o.Scenes,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(accessLog)
	s.r.Use(s.cors)

	// --- page shell ---
	s.r.Get("/", s.handleIndex)
	s.r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(assets.Static()))))

	// long-lived
	s.r.With(s.withOptionalAuth()).Get("/ws", s.handleSocket)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(chimw.Compress(5))               // gzip markup responses
		r.Use(jsonContentType)                 // default JSON responses

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "sessions": s.sessions.Len()})
		})

		// Activity endpoints. OPTIONAL AUTH (guests can play)
		s.mountActivity(r.With(s.withOptionalAuth()))

		// Auth + progress
		s.mountAuthRoutes(r)

		// Debug: authored sequence
		r.Get("/debug/scenes", s.handleDebugScenes)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Router exposes the internal router (used by the serve command and tests).
func (s *Server) Router() chi.Router { return s.r }

// Close closes every live session.
func (s *Server) Close() {
	for _, sess := range s.sessions.Sweep(time.Now().Add(time.Hour)) {
		sess.Close()
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := assets.IndexHTML()
	if err != nil {
		log.Error().Err(err).Msg("read index.html")
		writeError(w, http.StatusInternalServerError, "page_unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(page)
}

type sceneSummary struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Layout   string `json:"layout"`
	Food     string `json:"food,omitempty"`
	Tool     string `json:"tool,omitempty"`
	Parts    int    `json:"parts,omitempty"`
	Quiz     bool   `json:"quiz,omitempty"`
	Counting bool   `json:"counting,omitempty"`
}

func (s *Server) handleDebugScenes(w http.ResponseWriter, r *http.Request) {
	out := make([]sceneSummary, 0, len(s.scenes))
	for i, d := range s.scenes {
		out = append(out, sceneSummary{
			Index:    i,
			ID:       d.ID,
			Layout:   d.Layout().String(),
			Food:     string(d.FoodType),
			Tool:     string(d.ToolMode),
			Parts:    len(d.PlacedParts) + len(d.AvailableParts),
			Quiz:     d.IsQuiz(),
			Counting: d.Interactive == scene.InteractiveCounting,
		})
	}
	_ = json.NewEncoder(w).Encode(out)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin accepts same-host pages and the configured client origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == s.cfg.ClientOrigin {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// accessLog writes one debug line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("http")
		}()
		next.ServeHTTP(ww, r)
	})
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": code}.
func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
