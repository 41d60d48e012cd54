package inspect

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/autoroute/pkg/autoroute"
)

func newTestHub(t *testing.T, config Config) (*Hub, *httptest.Server) {
	t.Helper()
	config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(config)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dialWS(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(baseURL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%q) failed: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", hub.Clients(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if typ != websocket.TextMessage {
		t.Fatalf("message type = %d, want text", typ)
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev
}

func TestHubStreamsHookEvents(t *testing.T) {
	hub, srv := newTestHub(t, Config{})
	conn := dialWS(t, srv.URL)
	waitClients(t, hub, 1)

	req := autoroute.RequestEvent{
		OriginalURL: "/users/7?full=1",
		Action:      "read",
		Params:      autoroute.Params{"id": "7", "full": "1"},
		Meta:        autoroute.Meta{"method": "GET"},
	}
	if err := hub.OnRequest(context.Background(), req); err != nil {
		t.Fatalf("OnRequest: %v", err)
	}
	if err := hub.OnResponse(context.Background(), autoroute.ResponseEvent{RequestEvent: req, Result: map[string]any{"name": "ada"}}); err != nil {
		t.Fatalf("OnResponse: %v", err)
	}

	first := readEvent(t, conn)
	if first.Type != TypeRequest || first.Action != "read" || first.OriginalURL != "/users/7?full=1" {
		t.Errorf("request event = %+v", first)
	}
	if first.Params["id"] != "7" {
		t.Errorf("request params = %v", first.Params)
	}
	if first.ID == "" {
		t.Error("request event has no id")
	}

	second := readEvent(t, conn)
	if second.Type != TypeResponse {
		t.Errorf("second event type = %q, want %q", second.Type, TypeResponse)
	}
	result, _ := second.Result.(map[string]any)
	if result["name"] != "ada" {
		t.Errorf("response result = %v", second.Result)
	}
	if second.ID == first.ID {
		t.Error("events share an id")
	}
}

func TestHubRecordsRouteFromContext(t *testing.T) {
	hub, srv := newTestHub(t, Config{})
	conn := dialWS(t, srv.URL)
	waitClients(t, hub, 1)

	ar := autoroute.New(func() *autoroute.Table { return autoroute.NewTable() }, autoroute.DefaultActions,
		autoroute.WithOnRequest(hub.OnRequest),
		autoroute.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	h := ar.Handler(autoroute.ControllerMap{
		"read": func(context.Context, autoroute.Params, autoroute.Meta) (any, error) { return "ok", nil },
	}, "read", nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things?x=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	ev := readEvent(t, conn)
	if ev.Action != "read" || ev.Params["x"] != "1" {
		t.Errorf("event = %+v", ev)
	}
}

func TestHubWithoutClientsIsNoop(t *testing.T) {
	hub, _ := newTestHub(t, Config{})
	if err := hub.OnRequest(context.Background(), autoroute.RequestEvent{Action: "read"}); err != nil {
		t.Fatalf("OnRequest: %v", err)
	}
	if hub.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", hub.Dropped())
	}
}

func TestHubUnmarshalableResultIsDropped(t *testing.T) {
	hub, srv := newTestHub(t, Config{})
	conn := dialWS(t, srv.URL)
	waitClients(t, hub, 1)

	ev := autoroute.ResponseEvent{RequestEvent: autoroute.RequestEvent{Action: "bad"}, Result: make(chan int)}
	if err := hub.OnResponse(context.Background(), ev); err != nil {
		t.Fatalf("OnResponse returned %v, want nil", err)
	}
	if err := hub.OnRequest(context.Background(), autoroute.RequestEvent{Action: "next"}); err != nil {
		t.Fatal(err)
	}
	if got := readEvent(t, conn); got.Action != "next" {
		t.Errorf("first delivered event = %q, want next", got.Action)
	}
}

func TestHubRemovesDisconnectedClients(t *testing.T) {
	hub, srv := newTestHub(t, Config{})
	conn := dialWS(t, srv.URL)
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}

func TestHubCloseRefusesNewClients(t *testing.T) {
	hub, srv := newTestHub(t, Config{})
	conn := dialWS(t, srv.URL)
	waitClients(t, hub, 1)

	hub.Close()
	if hub.Clients() != 0 {
		t.Fatalf("Clients() after Close = %d", hub.Clients())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage after Close = %v, want going away", err)
	}

	late := dialWS(t, srv.URL)
	_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Error("connection after Close was kept open")
	}
}

func TestHubRejectsPlainHTTP(t *testing.T) {
	hub := NewHub(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestNewHubDefaults(t *testing.T) {
	hub := NewHub(Config{})
	d := DefaultConfig()
	if hub.writeTimeout != d.WriteTimeout || hub.queueSize != d.QueueSize {
		t.Errorf("defaults not applied: timeout=%v queue=%d", hub.writeTimeout, hub.queueSize)
	}
	if hub.logger == nil {
		t.Error("logger is nil")
	}
}
