// internal/httpserver/routes_activity.go
//
// HTTP routes for the activity itself.
//   - POST /session → create or resume the learner's session, return its markup
//   - GET  /scene   → current markup of the session
//   - POST /action  → apply one learner action, return the new markup
//   - GET  /ws      → websocket: renders are pushed, actions are read
//
// The session is identified by a signed cookie holding its id. Sessions live
// in memory (internal/store); their progress is saved per owner, so a learner
// who returns after the session was evicted resumes where they left off.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wholepart/internal/activity"
	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/store"
	"github.com/robalobadob/wholepart/internal/view"
)

const (
	sessionCookieName = "wholepart_session"
	actionTimeout     = 5 * time.Second
	maxActionBytes    = 4 << 10
	pongWait          = 60 * time.Second
	pingPeriod        = pongWait * 9 / 10
)

var errNoSession = errors.New("no session")

// mountActivity registers the session and action routes.
func (s *Server) mountActivity(r chi.Router) {
	r.Post("/session", s.handleSession)
	r.Get("/scene", s.handleScene)
	r.Post("/action", s.handleAction)
}

type sessionReq struct {
	Lang string `json:"lang"`
}

// sceneRes is what the page swaps into #app.
type sceneRes struct {
	SessionID string   `json:"sessionId,omitempty"`
	HTML      string   `json:"html"`
	Index     int      `json:"index"`
	Total     int      `json:"total"`
	Languages []string `json:"languages,omitempty"`
	Resumed   bool     `json:"resumed,omitempty"`
}

// handleSession resumes the session named by the cookie when it belongs to
// the same owner, otherwise starts a new one (restoring saved progress).
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
	}
	if req.Lang != "" && !slices.Contains(s.factory.Languages(), req.Lang) {
		writeError(w, http.StatusBadRequest, "unknown_language")
		return
	}
	owner := s.ownerID(w, r)

	if sess, err := s.currentSession(r); err == nil {
		if o, err := sess.Owner(r.Context()); err == nil && o == owner {
			if req.Lang != "" {
				_ = sess.Dispatch(r.Context(), activity.Action{Name: view.ActLang, Arg: req.Lang})
			}
			s.writeScene(w, r, sess, true)
			return
		}
		// owner changed (logout); the old session ends here
		_ = s.sessions.Delete(r.Context(), sess.ID())
		go sess.Close()
	}

	sess, err := s.factory.New(r.Context(), owner, req.Lang)
	if err != nil {
		log.Error().Err(err).Msg("create session")
		writeError(w, http.StatusInternalServerError, "session_failed")
		return
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		sess.Close()
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	tok, err := s.signSession(sess.ID())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setCookie(w, sessionCookieName, tok, time.Time{})
	s.writeScene(w, r, sess, false)
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	s.writeScene(w, r, sess, false)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var a activity.Action
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBytes)).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := sess.Dispatch(r.Context(), a); err != nil {
		status, code := actionError(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("session", sess.ID()).Msg("dispatch")
		}
		writeError(w, status, code)
		return
	}
	s.writeScene(w, r, sess, false)
}

func (s *Server) writeScene(w http.ResponseWriter, r *http.Request, sess *activity.Session, resumed bool) {
	markup, err := sess.Markup(r.Context())
	if err != nil {
		status, code := actionError(err)
		writeError(w, status, code)
		return
	}
	_ = json.NewEncoder(w).Encode(sceneRes{
		SessionID: sess.ID(),
		HTML:      markup,
		Index:     sess.Index(),
		Total:     sess.Len(),
		Languages: s.factory.Languages(),
		Resumed:   resumed,
	})
}

// actionError maps dispatch errors to a status and an error code.
func actionError(err error) (int, string) {
	switch {
	case errors.Is(err, activity.ErrUnknownAction):
		return http.StatusBadRequest, "unknown_action"
	case errors.Is(err, activity.ErrBadArg),
		errors.Is(err, scene.ErrUnknownOption),
		errors.Is(err, scene.ErrPartUnavailable):
		return http.StatusBadRequest, "bad_argument"
	case errors.Is(err, scene.ErrNotPartsMode),
		errors.Is(err, scene.ErrNotQuizMode),
		errors.Is(err, scene.ErrQuizAnswered),
		errors.Is(err, scene.ErrQuizGate):
		return http.StatusConflict, "not_allowed_here"
	case errors.Is(err, activity.ErrStopped):
		return http.StatusGone, "session_closed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "busy"
	default:
		return http.StatusInternalServerError, "action_failed"
	}
}

// ------------------------------- websocket ---------------------------------

// handleSocket attaches a websocket to the session. Every render is pushed as
// a {"type":"render"} frame; each text message is read as an Action. Failed
// actions answer with an {"type":"error"} frame.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no_session")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	sc := activity.NewSocketContainer(conn)
	detach, err := sess.Attach(r.Context(), sc)
	if err != nil {
		_ = sc.Send(activity.Frame{Type: "error", Error: "session_closed"})
		return
	}
	defer detach()
	log.Debug().Str("session", sess.ID()).Msg("websocket attached")

	conn.SetReadLimit(maxActionBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(pingPeriod)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := sc.Ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		var a activity.Action
		if err := conn.ReadJSON(&a); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("session", sess.ID()).Msg("websocket closed")
			}
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		err := sess.Dispatch(ctx, a)
		cancel()
		if err != nil {
			_, code := actionError(err)
			if sendErr := sc.Send(activity.Frame{Type: "error", Error: code}); sendErr != nil {
				return
			}
			if errors.Is(err, activity.ErrStopped) {
				return
			}
		}
	}
}

// ------------------------------ session cookie -----------------------------

// signSession returns a signed token naming the session.
func (s *Server) signSession(id string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  id,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	})
	return t.SignedString([]byte(s.cfg.JWTSecret))
}

// currentSession resolves the session cookie to a live session.
func (s *Server) currentSession(r *http.Request) (*activity.Session, error) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil, errNoSession
	}
	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(c.Value, &claims, s.keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid || claims.Subject == "" {
		return nil, errNoSession
	}
	return s.sessions.Get(r.Context(), claims.Subject)
}

// requireSession writes 401 when there is no live session.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (*activity.Session, bool) {
	sess, err := s.currentSession(r)
	if errors.Is(err, errNoSession) || errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "no_session")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error")
		return nil, false
	}
	return sess, true
}
