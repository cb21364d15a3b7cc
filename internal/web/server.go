// internal/web/server.go
package web

import (
	"context"
	"encoding/json"
	"html"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-viewer/internal/formatter"
	"github.com/tamzrod/modbus-viewer/internal/poller"
	"github.com/tamzrod/modbus-viewer/internal/status"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the dashboard is served from this same server; any origin may watch it
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 5 * time.Second

// Poller is the slice of *poller.Poller the browser dashboard drives.
type Poller interface {
	Start(ctx context.Context, cfg poller.ConnectionConfig) error
	Stop()
	Running() bool
	Snapshot() poller.Snapshot
	Subscribe(fn func(poller.Snapshot))
}

// Connection is the non-secret part of the connection shown to browsers.
type Connection struct {
	Host string `json:"host"`
	Port string `json:"port"`
	URL  string `json:"url"`
}

// View is the JSON document pushed to the page on every change.
type View struct {
	State       string           `json:"state"`
	Connection  Connection       `json:"connection"`
	Error       string           `json:"error,omitempty"`
	Panel       *formatter.Panel `json:"panel,omitempty"`
	Fetches     uint64           `json:"fetches"`
	Failures    uint64           `json:"failures"`
	LastSuccess *time.Time       `json:"last_success,omitempty"`
}

// NewView renders a poller snapshot for the page. The panel is present only with a payload.
func NewView(s poller.Snapshot) View {
	v := View{
		State: s.State.String(),
		Connection: Connection{
			Host: s.Config.Host,
			Port: s.Config.Port,
		},
		Fetches:  s.Fetches,
		Failures: s.Failures,
	}
	if s.Config.Host != "" || s.Config.Port != "" {
		v.Connection.URL = s.Config.URL()
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	if s.Payload != nil {
		panel := formatter.BuildPanel(*s.Payload)
		v.Panel = &panel
	}
	if !s.LastSuccess.IsZero() {
		at := s.LastSuccess
		v.LastSuccess = &at
	}
	return v
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Server is the browser dashboard.
type Server struct {
	ctx     context.Context
	p       Poller
	initial poller.ConnectionConfig
	log     zerolog.Logger

	// startMu serializes connect and stop requests.
	startMu sync.Mutex

	clients   map[*client]struct{}
	clientsMu sync.RWMutex
	broadcast chan []byte
}

// New builds the dashboard and subscribes it to p. Broadcasting stops when ctx is done.
func New(ctx context.Context, p Poller, initial poller.ConnectionConfig, log zerolog.Logger) *Server {
	s := &Server{
		ctx:       ctx,
		p:         p,
		initial:   initial,
		log:       log.With().Str("component", "web").Logger(),
		clients:   make(map[*client]struct{}),
		broadcast: make(chan []byte, 64),
	}

	p.Subscribe(s.publish)
	go s.handleBroadcasts()

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUI)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/connect", s.handleConnect)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ---- handlers ----

func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fill := strings.NewReplacer(
		"{{HOST}}", htmlAttr(s.initial.Host),
		"{{PORT}}", htmlAttr(s.initial.Port),
		"{{TOKEN}}", htmlAttr(s.initial.Token),
	)
	_, _ = fill.WriteString(w, uiHTML)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, NewView(s.p.Snapshot()))
}

// handleConnect fetches with the posted parameters. A live timer bound to other
// parameters is stopped first; with the same parameters the start is idempotent.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var cfg poller.ConnectionConfig
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	if err := dec.Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid connection: "+err.Error())
		return
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.Token = strings.TrimSpace(cfg.Token)

	s.startMu.Lock()
	if s.p.Running() && s.p.Snapshot().Config != cfg {
		s.p.Stop()
	}
	err := s.p.Start(s.ctx, cfg)
	s.startMu.Unlock()

	view := NewView(s.p.Snapshot())
	if err != nil {
		s.log.Debug().Err(err).Str("url", cfg.URL()).Msg("connect failed")
		writeJSON(w, http.StatusBadGateway, view)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.startMu.Lock()
	s.p.Stop()
	s.startMu.Unlock()
	writeJSON(w, http.StatusOK, NewView(s.p.Snapshot()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.p.Snapshot()
	st := status.Snapshot{Health: snap.State.Health(), LastSuccess: snap.LastSuccess}
	if snap.Err != nil {
		st.LastError = snap.Err.Error()
		st.LastErrorCode = status.ErrorCode(snap.Err)
	}
	writeJSON(w, http.StatusOK, status.Encode(st))
}

// handleWebSocket upgrades the connection, sends the current view and keeps the
// client registered until it disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("websocket client connected")

	if data, err := json.Marshal(NewView(s.p.Snapshot())); err == nil {
		_ = c.write(data)
	}

	// Wait for client disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("websocket client disconnected")
}

// ---- broadcasting ----

// publish runs on poller goroutines; it never blocks them.
func (s *Server) publish(snap poller.Snapshot) {
	data, err := json.Marshal(NewView(snap))
	if err != nil {
		s.log.Error().Err(err).Msg("encode view")
		return
	}
	select {
	case s.broadcast <- data:
	default:
		s.log.Warn().Msg("broadcast queue full, dropping update")
	}
}

// handleBroadcasts sends views to all connected clients until ctx is done.
func (s *Server) handleBroadcasts() {
	for {
		select {
		case <-s.ctx.Done():
			s.closeClients()
			return
		case msg := <-s.broadcast:
			var dead []*client
			s.clientsMu.RLock()
			for c := range s.clients {
				if err := c.write(msg); err != nil {
					dead = append(dead, c)
				}
			}
			s.clientsMu.RUnlock()

			if len(dead) > 0 {
				s.clientsMu.Lock()
				for _, c := range dead {
					_ = c.conn.Close()
					delete(s.clients, c)
				}
				s.clientsMu.Unlock()
			}
		}
	}
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		_ = c.conn.Close()
		delete(s.clients, c)
	}
}

// ---- encoding ----

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func htmlAttr(s string) string {
	return html.EscapeString(s)
}
