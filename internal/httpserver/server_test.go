package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"

	"github.com/robalobadob/wholepart/assets"
	"github.com/robalobadob/wholepart/internal/activity"
	"github.com/robalobadob/wholepart/internal/config"
	"github.com/robalobadob/wholepart/internal/content"
	"github.com/robalobadob/wholepart/internal/progress"
	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/store"
)

type testEnv struct {
	srv      *Server
	ts       *httptest.Server
	progress *progress.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	migrations, err := assets.Migrations()
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range migrations {
		if _, err := db.Exec(m.SQL); err != nil {
			t.Fatalf("apply %s: %v", m.Name, err)
		}
	}

	scenes, err := scene.Default()
	if err != nil {
		t.Fatal(err)
	}
	catalogs, err := content.LoadDefault("en")
	if err != nil {
		t.Fatal(err)
	}
	manifest, err := content.DefaultAssets()
	if err != nil {
		t.Fatal(err)
	}
	ps := progress.NewStore(db)
	factory, err := activity.NewFactory(activity.Options{
		Scenes:   scenes,
		Content:  catalogs,
		Assets:   manifest,
		Progress: ps,
	})
	if err != nil {
		t.Fatal(err)
	}

	srv := New(Options{
		Config:   config.Default(),
		Sessions: store.NewMemoryStore(),
		Factory:  factory,
		Progress: ps,
		DB:       db,
		Scenes:   scenes,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return &testEnv{srv: srv, ts: ts, progress: ps}
}

func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

// do sends a JSON request and decodes a JSON response into out (when non-nil).
func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return res.StatusCode
}

func (e *testEnv) cookie(t *testing.T, c *http.Client, name string) string {
	t.Helper()
	u, _ := url.Parse(e.ts.URL)
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublicEndpoints(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var health map[string]any
	if code := e.do(t, c, http.MethodGet, "/health", nil, &health); code != http.StatusOK || health["ok"] != true {
		t.Errorf("Expected healthy, got %d %v", code, health)
	}

	res, err := c.Get(e.ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	page, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if !strings.HasPrefix(res.Header.Get("Content-Type"), "text/html") || !strings.Contains(string(page), `id="app"`) {
		t.Errorf("Expected the page shell, got %q", res.Header.Get("Content-Type"))
	}

	res, err = c.Get(e.ts.URL + "/static/img/slicer.svg")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK || !strings.Contains(res.Header.Get("Content-Type"), "svg") {
		t.Errorf("Expected an svg, got %d %q", res.StatusCode, res.Header.Get("Content-Type"))
	}

	var notFound map[string]string
	if code := e.do(t, c, http.MethodGet, "/nope", nil, &notFound); code != http.StatusNotFound || notFound["error"] != "not_found" {
		t.Errorf("Expected JSON 404, got %d %v", code, notFound)
	}

	var scenes []sceneSummary
	e.do(t, c, http.MethodGet, "/debug/scenes", nil, &scenes)
	if len(scenes) != 24 || scenes[0].Layout != "intro" {
		t.Errorf("Expected 24 scenes starting with intro, got %d", len(scenes))
	}
}

func TestSessionFlow(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var errRes map[string]string
	if code := e.do(t, c, http.MethodPost, "/action", activity.Action{Name: "next"}, &errRes); code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a session, got %d", code)
	}

	var first sceneRes
	if code := e.do(t, c, http.MethodPost, "/session", nil, &first); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if first.Index != 0 || first.Total != 24 || !strings.Contains(first.HTML, `data-layout="intro"`) {
		t.Errorf("Expected the intro, got index %d of %d", first.Index, first.Total)
	}
	if len(first.Languages) != 2 || first.Languages[0] != "en" {
		t.Errorf("Expected en first among 2 languages, got %v", first.Languages)
	}
	if !strings.HasPrefix(e.cookie(t, c, anonCookieName), "anon-") {
		t.Error("Expected an anonymous learner cookie")
	}

	var next sceneRes
	e.do(t, c, http.MethodPost, "/action", activity.Action{Name: "next"}, &next)
	if next.Index != 1 || !strings.Contains(next.HTML, `data-layout="characters"`) {
		t.Errorf("Expected characters at 1, got %d", next.Index)
	}

	tests := []struct {
		action activity.Action
		status int
		code   string
	}{
		{activity.Action{Name: "dance"}, http.StatusBadRequest, "unknown_action"},
		{activity.Action{Name: "goto", Arg: "x"}, http.StatusBadRequest, "bad_argument"},
		{activity.Action{Name: "quiz", Arg: "a"}, http.StatusConflict, "not_allowed_here"},
	}
	for _, tt := range tests {
		errRes = nil
		if code := e.do(t, c, http.MethodPost, "/action", tt.action, &errRes); code != tt.status || errRes["error"] != tt.code {
			t.Errorf("%v: Expected %d %s, got %d %v", tt.action, tt.status, tt.code, code, errRes)
		}
	}

	var cur sceneRes
	e.do(t, c, http.MethodGet, "/scene", nil, &cur)
	if cur.Index != 1 || cur.SessionID != first.SessionID {
		t.Errorf("Expected the same session at 1, got %s at %d", cur.SessionID, cur.Index)
	}

	var again sceneRes
	e.do(t, c, http.MethodPost, "/session", nil, &again)
	if !again.Resumed || again.SessionID != first.SessionID || again.Index != 1 {
		t.Errorf("Expected the session resumed at 1, got %+v", again)
	}
}

func TestSessionLanguage(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var errRes map[string]string
	if code := e.do(t, c, http.MethodPost, "/session", sessionReq{Lang: "fr"}, &errRes); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown language, got %d", code)
	}
	var res sceneRes
	e.do(t, c, http.MethodPost, "/session", sessionReq{Lang: "es"}, &res)
	e.do(t, c, http.MethodPost, "/action", activity.Action{Name: "goto", Arg: "2"}, &res)
	if !strings.Contains(res.HTML, "Escena 3 de 24") {
		t.Errorf("Expected Spanish markup, got %s", res.HTML)
	}
}

func TestProgressRestoredAfterEviction(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var res sceneRes
	e.do(t, c, http.MethodPost, "/session", nil, &res)
	e.do(t, c, http.MethodPost, "/action", activity.Action{Name: "goto", Arg: "5"}, &res)
	anon := e.cookie(t, c, anonCookieName)

	// Close waits for in-flight saves.
	e.srv.Close()
	snap, err := e.progress.Load(context.Background(), anon)
	if err != nil || snap.CurrentIndex != 5 {
		t.Fatalf("Expected index 5 saved, got %+v %v", snap, err)
	}

	var restored sceneRes
	e.do(t, c, http.MethodPost, "/session", nil, &restored)
	if restored.Resumed || restored.Index != 5 {
		t.Errorf("Expected a new session restored at 5, got %+v", restored)
	}
}

func TestSignupLoginAndProgress(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var errRes map[string]string
	if code := e.do(t, c, http.MethodGet, "/auth/me", nil, &errRes); code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", code)
	}

	var res sceneRes
	e.do(t, c, http.MethodPost, "/session", nil, &res)
	e.do(t, c, http.MethodPost, "/action", activity.Action{Name: "goto", Arg: "3"}, &res)

	creds := credentials{Username: "ada_l", Password: "correct horse"}
	var user map[string]any
	if code := e.do(t, c, http.MethodPost, "/auth/signup", creds, &user); code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d %v", code, user)
	}

	var me authUser
	e.do(t, c, http.MethodGet, "/auth/me", nil, &me)
	if me.Username != "ada_l" || me.ID != user["id"] {
		t.Errorf("Expected ada_l, got %+v", me)
	}

	// the live session now saves under the account
	eventually(t, "account progress", func() bool {
		var snap progress.Snapshot
		code := e.do(t, c, http.MethodGet, "/progress/mine", nil, &snap)
		return code == http.StatusOK && snap.CurrentIndex == 3 && snap.OwnerID == me.ID
	})

	var again sceneRes
	e.do(t, c, http.MethodPost, "/session", nil, &again)
	if !again.Resumed || again.SessionID != res.SessionID {
		t.Errorf("Expected the rebound session resumed, got %+v", again)
	}

	// a second browser logs in and restores the account's progress
	other := e.client(t)
	if code := e.do(t, other, http.MethodPost, "/auth/login", credentials{Username: "ADA_L", Password: "correct horse"}, nil); code != http.StatusOK {
		t.Fatalf("Expected login 200, got %d", code)
	}
	var fresh sceneRes
	e.do(t, other, http.MethodPost, "/session", nil, &fresh)
	if fresh.Resumed || fresh.Index != 3 {
		t.Errorf("Expected a new session at 3, got %+v", fresh)
	}

	e.do(t, other, http.MethodPost, "/auth/logout", nil, nil)
	if code := e.do(t, other, http.MethodGet, "/auth/me", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after logout, got %d", code)
	}
}

func TestAuthValidation(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	tests := []struct {
		path   string
		creds  credentials
		status int
	}{
		{"/auth/signup", credentials{Username: "ab", Password: "long enough"}, http.StatusBadRequest},
		{"/auth/signup", credentials{Username: "bad name", Password: "long enough"}, http.StatusBadRequest},
		{"/auth/signup", credentials{Username: "grace", Password: "short"}, http.StatusBadRequest},
		{"/auth/signup", credentials{Username: "grace", Password: "long enough"}, http.StatusCreated},
		{"/auth/signup", credentials{Username: "Grace", Password: "long enough"}, http.StatusConflict},
		{"/auth/login", credentials{Username: "grace", Password: "wrong password"}, http.StatusUnauthorized},
		{"/auth/login", credentials{Username: "nobody", Password: "long enough"}, http.StatusUnauthorized},
		{"/auth/login", credentials{Username: " grace ", Password: "long enough"}, http.StatusOK},
	}
	for _, tt := range tests {
		if code := e.do(t, c, http.MethodPost, tt.path, tt.creds, nil); code != tt.status {
			t.Errorf("%s %q: Expected %d, got %d", tt.path, tt.creds.Username, tt.status, code)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, e.ts.URL+"/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a bad bearer token, got %d", res.StatusCode)
	}
}

func TestWebsocketPushesRenders(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	var res sceneRes
	e.do(t, c, http.MethodPost, "/session", nil, &res)

	if _, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(e.ts.URL, "http")+"/ws", nil); err == nil {
		t.Error("Expected the upgrade refused without a session")
	}

	h := http.Header{}
	h.Set("Cookie", fmt.Sprintf("%s=%s", sessionCookieName, e.cookie(t, c, sessionCookieName)))
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(e.ts.URL, "http")+"/ws", h)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	read := func() activity.Frame {
		t.Helper()
		var f activity.Frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read: %v", err)
		}
		return f
	}

	if f := read(); f.Type != "render" || !strings.Contains(f.HTML, `data-layout="intro"`) {
		t.Errorf("Expected the current markup on attach, got %+v", f.Type)
	}
	if err := conn.WriteJSON(activity.Action{Name: "next"}); err != nil {
		t.Fatal(err)
	}
	if f := read(); f.Type != "render" || !strings.Contains(f.HTML, `data-layout="characters"`) {
		t.Errorf("Expected characters pushed, got %+v", f.Type)
	}
	if err := conn.WriteJSON(activity.Action{Name: "dance"}); err != nil {
		t.Fatal(err)
	}
	if f := read(); f.Type != "error" || f.Error != "unknown_action" {
		t.Errorf("Expected an error frame, got %+v", f)
	}

	// the HTTP view agrees with what was pushed
	var cur sceneRes
	e.do(t, c, http.MethodGet, "/scene", nil, &cur)
	if cur.Index != 1 {
		t.Errorf("Expected index 1, got %d", cur.Index)
	}
}

func TestActionErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrap: %w", activity.ErrBadArg), http.StatusBadRequest},
		{scene.ErrPartUnavailable, http.StatusBadRequest},
		{scene.ErrQuizAnswered, http.StatusConflict},
		{scene.ErrQuizGate, http.StatusConflict},
		{activity.ErrStopped, http.StatusGone},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := actionError(tt.err); got != tt.status {
			t.Errorf("actionError(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}
