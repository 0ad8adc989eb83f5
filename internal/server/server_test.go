package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"waypoint-tracker/internal/hud"
	"waypoint-tracker/internal/publisher"
)

type fakeSource struct {
	mu  sync.Mutex
	msg *publisher.SnapshotMessage
}

func (f *fakeSource) Latest() (publisher.SnapshotMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.msg == nil {
		return publisher.SnapshotMessage{}, false
	}
	return *f.msg, true
}

func (f *fakeSource) set(m publisher.SnapshotMessage) {
	f.mu.Lock()
	f.msg = &m
	f.mu.Unlock()
}

type fakeSettings struct {
	mu sync.Mutex
	s  hud.Settings
}

func (f *fakeSettings) Settings() hud.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *fakeSettings) SetSettings(s hud.Settings) {
	f.mu.Lock()
	f.s = s
	f.mu.Unlock()
}

type fakeMetrics struct {
	mu         sync.Mutex
	clients    int
	broadcasts int
}

func (m *fakeMetrics) WSClientsSet(n int) {
	m.mu.Lock()
	m.clients = n
	m.mu.Unlock()
}

func (m *fakeMetrics) WSBroadcastInc() {
	m.mu.Lock()
	m.broadcasts++
	m.mu.Unlock()
}

func (m *fakeMetrics) get() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients, m.broadcasts
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHealthz(t *testing.T) {
	srv := New(&fakeSource{}, nil, "", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	src := &fakeSource{}
	srv := New(src, nil, "", nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status before first tick = %d, want 503", rec.Code)
	}

	src.set(publisher.SnapshotMessage{Entity: "main", DeliveredCount: 3})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got publisher.SnapshotMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Entity != "main" || got.DeliveredCount != 3 {
		t.Fatalf("snapshot = %+v", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/snapshot", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", rec.Code)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	store := &fakeSettings{s: hud.DefaultSettings()}
	path := filepath.Join(t.TempDir(), "settings.yaml")
	h := New(&fakeSource{}, store, path, nil).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"speedUnit":"mph"`) {
		t.Fatalf("GET settings = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"speedUnit":"kmh"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT settings = %d %s", rec.Code, rec.Body.String())
	}
	if got := store.Settings(); got.SpeedUnit != hud.UnitKmh || got.StreamerMode {
		t.Fatalf("stored settings = %+v", got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not written: %v", err)
	}
	saved, err := hud.LoadSettings(path)
	if err != nil || saved.SpeedUnit != hud.UnitKmh {
		t.Fatalf("saved settings = %+v, %v", saved, err)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"speedUnit":"knots"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid unit status = %d, want 400", rec.Code)
	}
	if store.Settings().SpeedUnit != hud.UnitKmh {
		t.Fatal("invalid update must not change settings")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json status = %d, want 400", rec.Code)
	}
}

func TestSettingsDisabledWithoutStore(t *testing.T) {
	h := New(&fakeSource{}, nil, "", nil).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestWebSocketReceivesLatestAndBroadcasts(t *testing.T) {
	src := &fakeSource{}
	src.set(publisher.SnapshotMessage{Entity: "main", DeliveredCount: 1})
	m := &fakeMetrics{}
	srv := New(src, nil, "", m)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first publisher.SnapshotMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if first.DeliveredCount != 1 {
		t.Fatalf("initial snapshot = %+v", first)
	}
	waitFor(t, "client registration", func() bool { return srv.ClientCount() == 1 })

	if err := srv.Publish(publisher.SnapshotMessage{Entity: "main", DeliveredCount: 2}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	var next publisher.SnapshotMessage
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if next.DeliveredCount != 2 {
		t.Fatalf("broadcast snapshot = %+v", next)
	}
	if clients, broadcasts := m.get(); clients != 1 || broadcasts != 1 {
		t.Fatalf("metrics clients=%d broadcasts=%d, want 1/1", clients, broadcasts)
	}

	conn.Close()
	waitFor(t, "client removal", func() bool { return srv.ClientCount() == 0 })
	if clients, _ := m.get(); clients != 0 {
		t.Fatalf("clients gauge = %d after disconnect", clients)
	}
}

func TestPublishWithoutClients(t *testing.T) {
	m := &fakeMetrics{}
	srv := New(&fakeSource{}, nil, "", m)
	if err := srv.Publish(publisher.SnapshotMessage{Entity: "main"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, broadcasts := m.get(); broadcasts != 0 {
		t.Fatalf("broadcasts = %d, want 0 with no clients", broadcasts)
	}
}
