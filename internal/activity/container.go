// internal/activity/container.go
//
// Render targets for a session.
// Responsibilities:
//   - BufferContainer: the latest markup, served over HTTP.
//   - SocketContainer: pushes render frames over a websocket.
//   - tee: fans one render out to the buffer and every attached socket,
//     dropping sockets whose writes fail.

package activity

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robalobadob/wholepart/internal/ui"
)

const writeWait = 10 * time.Second

// BufferContainer keeps the last markup written to it.
type BufferContainer struct {
	mu     sync.RWMutex
	markup string
	writes int
}

func (b *BufferContainer) Replace(markup string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markup = markup
	b.writes++
	return nil
}

// Markup returns the last markup written.
func (b *BufferContainer) Markup() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.markup
}

// Writes counts Replace calls.
func (b *BufferContainer) Writes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes
}

// Frame is the JSON message pushed to the browser.
type Frame struct {
	Type  string `json:"type"`
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

// SocketContainer writes markup frames to a websocket connection. Writes are
// serialized and bounded by a deadline.
type SocketContainer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewSocketContainer(conn *websocket.Conn) *SocketContainer {
	return &SocketContainer{conn: conn}
}

func (s *SocketContainer) Replace(markup string) error {
	return s.Send(Frame{Type: "render", HTML: markup})
}

// Send writes one frame.
func (s *SocketContainer) Send(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Ping sends a keepalive control frame. Safe to call alongside Send.
func (s *SocketContainer) Ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// tee is the session's mount point: a buffer that always holds the current
// markup plus any attached live containers.
type tee struct {
	buf BufferContainer

	mu       sync.Mutex
	attached map[ui.Container]struct{}
}

func (t *tee) Replace(markup string) error {
	_ = t.buf.Replace(markup)
	t.mu.Lock()
	targets := make([]ui.Container, 0, len(t.attached))
	for c := range t.attached {
		targets = append(targets, c)
	}
	t.mu.Unlock()

	var firstErr error
	for _, c := range targets {
		if err := c.Replace(markup); err != nil {
			t.detach(c)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (t *tee) attach(c ui.Container) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.attached == nil {
		t.attached = make(map[ui.Container]struct{})
	}
	t.attached[c] = struct{}{}
}

func (t *tee) detach(c ui.Container) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attached, c)
}

func (t *tee) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.attached)
}
