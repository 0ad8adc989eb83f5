package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"waypoint-tracker/internal/hud"
	"waypoint-tracker/internal/publisher"
)

// SnapshotSource provides the latest snapshot for GET /api/snapshot and for
// newly connected WebSocket clients.
type SnapshotSource interface {
	Latest() (publisher.SnapshotMessage, bool)
}

// SettingsStore holds the current presentation settings.
type SettingsStore interface {
	Settings() hud.Settings
	SetSettings(s hud.Settings)
}

type Metrics interface {
	WSClientsSet(n int)
	WSBroadcastInc()
}

const (
	sendBuffer   = 8
	writeTimeout = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Server exposes snapshots over HTTP and streams them to WebSocket clients.
// It implements sim.Sink.
type Server struct {
	src          SnapshotSource
	settings     SettingsStore
	settingsPath string
	metrics      Metrics
	upgrader     websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New returns a server. settings may be nil, in which case the settings
// endpoints are not registered; settingsPath, if set, persists updates.
func New(src SnapshotSource, settings SettingsStore, settingsPath string, m Metrics) *Server {
	return &Server{
		src:          src,
		settings:     settings,
		settingsPath: settingsPath,
		metrics:      m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	if s.settings != nil {
		api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
		api.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut)
	}
	return r
}

// Serve starts an HTTP server on addr.
func (s *Server) Serve(addr string) *http.Server {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()
	log.Printf("http listening on %s", addr)
	return srv
}

// Close disconnects every WebSocket client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.close()
		delete(s.clients, c)
	}
	s.clientsChanged()
}

// Publish broadcasts msg to every connected client. Clients that fall
// behind are disconnected.
func (s *Server) Publish(msg publisher.SnapshotMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) == 0 {
		return nil
	}
	for c := range s.clients {
		select {
		case c.send <- b:
		default:
			log.Printf("websocket client too slow, disconnecting")
			c.close()
			delete(s.clients, c)
		}
	}
	s.clientsChanged()
	if s.metrics != nil {
		s.metrics.WSBroadcastInc()
	}
	return nil
}

// ClientCount reports the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// clientsChanged must be called with mu held.
func (s *Server) clientsChanged() {
	if s.metrics != nil {
		s.metrics.WSClientsSet(len(s.clients))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.src.Latest()
	if !ok {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, msg)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, settingsBody(s.settings.Settings()))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	body := settingsBody(s.settings.Settings())
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	next := hud.Settings{SpeedUnit: body.SpeedUnit, StreamerMode: body.StreamerMode, PanelCollapsed: body.PanelCollapsed}
	if err := next.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid settings: %v", err), http.StatusBadRequest)
		return
	}
	if s.settingsPath != "" {
		if err := hud.SaveSettings(s.settingsPath, next); err != nil {
			log.Printf("save settings: %v", err)
			http.Error(w, "failed to save settings", http.StatusInternalServerError)
			return
		}
	}
	s.settings.SetSettings(next)
	log.Printf("settings updated: %+v", next)
	writeJSON(w, settingsBody(next))
}

type settingsJSON struct {
	SpeedUnit      string `json:"speedUnit"`
	StreamerMode   bool   `json:"streamerMode"`
	PanelCollapsed bool   `json:"panelCollapsed"`
}

func settingsBody(s hud.Settings) settingsJSON {
	return settingsJSON{SpeedUnit: s.SpeedUnit, StreamerMode: s.StreamerMode, PanelCollapsed: s.PanelCollapsed}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	// queue the current snapshot before the client can receive broadcasts
	if msg, ok := s.src.Latest(); ok {
		if b, err := json.Marshal(msg); err == nil {
			c.send <- b
		}
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.clientsChanged()
	s.mu.Unlock()
	log.Printf("websocket client connected, total %d", n)

	go s.writeLoop(c)
	s.readLoop(c)
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Printf("websocket write error: %v", err)
			s.drop(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// readLoop discards client messages until the connection closes.
func (s *Server) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(c)
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		c.close()
		s.clientsChanged()
		log.Printf("websocket client disconnected, total %d", len(s.clients))
	}
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
