package http_test

import (
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"

	handler "github.com/arboimoveis/mapexplorer/internal/adapters/http"
	"github.com/arboimoveis/mapexplorer/internal/adapters/scene"
	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/explorer"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
)

type socketEvent struct {
	Type    string               `json:"type"`
	Session *handler.SessionView `json:"session"`
	Error   string               `json:"error"`
}

type sceneView struct {
	Revision uint64            `json:"revision"`
	Camera   ports.Camera      `json:"camera"`
	Layers   []ports.LayerSpec `json:"layers"`
}

func serve(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func dialSession(t *testing.T, addr, id string) *fastws.Conn {
	t.Helper()
	var (
		conn *fastws.Conn
		err  error
	)
	// The listener goroutine may not be accepting yet.
	for i := 0; i < 20; i++ {
		conn, _, err = fastws.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws/explorer/%s", addr, id), nil)
		if err == nil {
			t.Cleanup(func() { _ = conn.Close() })
			return conn
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("dial: %v", err)
	return nil
}

func readScene(t *testing.T, conn *fastws.Conn) sceneView {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev socketEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode event: %v (%s)", err, data)
	}
	if ev.Type != "session" || ev.Session == nil {
		t.Fatalf("expected session event, got %s", data)
	}
	var sv sceneView
	if err := json.Unmarshal(ev.Session.Scene, &sv); err != nil {
		t.Fatalf("decode scene: %v", err)
	}
	return sv
}

// readSceneUntil reads pushes until ok accepts one. A list update may arrive
// before the push carrying the change under test.
func readSceneUntil(t *testing.T, conn *fastws.Conn, ok func(sceneView) bool) sceneView {
	t.Helper()
	for i := 0; i < 5; i++ {
		if sv := readScene(t, conn); ok(sv) {
			return sv
		}
	}
	t.Fatal("no matching session event pushed")
	return sceneView{}
}

func sendAction(t *testing.T, conn *fastws.Conn, action string, payload any) {
	t.Helper()
	msg := map[string]any{"action": action}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", action, err)
	}
}

func TestWebSocket_ClusterClickPushesCamera(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	sess := createSession(t, app)
	if code, body := doJSON(t, app, "POST", "/v1/explorer/sessions/"+sess.ID+"/view-mode", `{"mode":"cluster"}`); code != 200 {
		t.Fatalf("view-mode: expected 200, got %d: %s", code, body)
	}

	addr := serve(t, app)
	conn := dialSession(t, addr, sess.ID)

	initial := readScene(t, conn)
	if initial.Camera.Zoom != 6 {
		t.Fatalf("expected initial zoom 6, got %v", initial.Camera.Zoom)
	}

	s, err := deps.Explorers.Get(sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	m, ok := s.Explorer.Engine().(*scene.Map)
	if !ok {
		t.Fatal("expected a scene map")
	}
	at := domain.LonLat{Lon: -46.6333, Lat: -23.5505}
	sendAction(t, conn, "click", ports.ClickEvent{Point: m.Project(at), LngLat: at})

	got := readSceneUntil(t, conn, func(sv sceneView) bool { return sv.Revision > initial.Revision })
	if got.Camera.Zoom <= initial.Camera.Zoom {
		t.Errorf("expected the camera to zoom in past %v, got %v", initial.Camera.Zoom, got.Camera.Zoom)
	}
	if server := m.State().Camera; got.Camera != server {
		t.Errorf("pushed camera %+v differs from server camera %+v", got.Camera, server)
	}
}

func TestWebSocket_StyleLoadedPushesBuildings(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	sess := createSession(t, app)
	if code, body := doJSON(t, app, "POST", "/v1/explorer/sessions/"+sess.ID+"/style", `{"style":"3d"}`); code != 200 {
		t.Fatalf("style: expected 200, got %d: %s", code, body)
	}

	conn := dialSession(t, serve(t, app), sess.ID)
	initial := readScene(t, conn)

	sendAction(t, conn, "style-loaded", nil)

	hasBuildings := func(sv sceneView) bool {
		for _, l := range sv.Layers {
			if l.ID == explorer.BuildingsLayer {
				return true
			}
		}
		return false
	}
	if hasBuildings(initial) {
		t.Fatal("buildings drawn before the style loaded")
	}
	readSceneUntil(t, conn, hasBuildings)
}

func TestWebSocket_CameraReportIsNotEchoed(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	sess := createSession(t, app)

	conn := dialSession(t, serve(t, app), sess.ID)
	readScene(t, conn)

	sendAction(t, conn, "camera", ports.Camera{Center: domain.LonLat{Lon: -46.6, Lat: -23.5}, Zoom: 9})
	sendAction(t, conn, "view-mode", map[string]string{"mode": "heatmap"})

	// The first push after the camera report is the view-mode rebuild.
	sv := readScene(t, conn)
	found := false
	for _, l := range sv.Layers {
		if l.ID == explorer.HeatmapLayer {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the heatmap push first, got layers %+v", sv.Layers)
	}
}
