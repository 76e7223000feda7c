package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/explorer"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
	"github.com/arboimoveis/mapexplorer/internal/core/usecases"
	"github.com/arboimoveis/mapexplorer/internal/pkg/metrics"
)

const (
	wsPingInterval  = 30 * time.Second
	wsActionTimeout = 15 * time.Second
)

// wsMessage is sent from client to drive its explorer session.
type wsMessage struct {
	Action  string          `json:"action"`  // same names as the REST action routes
	Payload json.RawMessage `json:"payload"` // action body, omitted for clear-search/refresh/style-loaded
}

// wsEvent is pushed to the client.
type wsEvent struct {
	Type    string       `json:"type"` // "session" | "error"
	Session *SessionView `json:"session,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// revisioned is implemented by engines that count their scene changes.
type revisioned interface {
	Revision() uint64
}

// sceneRevision returns the engine and its revision. ok is false when the engine
// does not count changes.
func sceneRevision(exp *explorer.Explorer) (eng ports.MapEngine, rev uint64, ok bool) {
	eng = exp.Engine()
	r, counted := eng.(revisioned)
	if !counted {
		return eng, 0, false
	}
	return eng, r.Revision(), true
}

// ExplorerSocketHandler returns a handler that streams an explorer session to a
// client and applies the actions it sends.
// Clients send JSON: {"action":"view-mode","payload":{"mode":"cluster"}}
// Every list update and every action that changes the scene is answered with the
// full session view.
func ExplorerSocketHandler(svc *usecases.ExplorerService) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		id := c.Params("id")
		logger := slog.Default().With("session", id, "remote", c.RemoteAddr().String())

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		if svc == nil {
			_ = writeJSON(wsEvent{Type: "error", Error: "explorer sessions not available"})
			return
		}
		sess, err := svc.Get(id)
		if err != nil {
			_ = writeJSON(wsEvent{Type: "error", Error: err.Error()})
			return
		}

		// Latest snapshot wins; the view sent is always read fresh from the session.
		updates := make(chan struct{}, 1)
		notify := func() {
			select {
			case updates <- struct{}{}:
			default:
			}
		}
		cancel, err := svc.Watch(id, func(domain.ListSnapshot) { notify() })
		if err != nil {
			_ = writeJSON(wsEvent{Type: "error", Error: err.Error()})
			return
		}
		defer cancel()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		logger.Info("ws client connected")

		push := func() error {
			view := newSessionView(sess)
			return writeJSON(wsEvent{Type: "session", Session: &view})
		}
		if err := push(); err != nil {
			return
		}

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-updates:
					if err := push(); err != nil {
						return
					}
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(wsEvent{Type: "error", Error: "invalid JSON"})
				continue
			}

			if _, err := svc.Get(id); err != nil {
				_ = writeJSON(wsEvent{Type: "error", Error: err.Error()})
				break
			}
			engBefore, revBefore, counted := sceneRevision(sess.Explorer)
			ctx, cancelAction := context.WithTimeout(context.Background(), wsActionTimeout)
			err = applyAction(ctx, sess.Explorer, m.Action, m.Payload)
			cancelAction()
			if err != nil {
				_ = writeJSON(wsEvent{Type: "error", Error: err.Error()})
				continue
			}

			// Camera eases and style layers change the scene without touching the list.
			engAfter, revAfter, _ := sceneRevision(sess.Explorer)
			if !counted || engAfter != engBefore || revAfter != revBefore {
				notify()
			}
		}

		close(done)
		logger.Info("ws client disconnected")
	}
}
