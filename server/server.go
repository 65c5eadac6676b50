// Package server exposes a mapping/preview session over HTTP: JSON
// endpoints for mapping operations and a WebSocket stream that pushes
// batch preview state to connected clients as records resolve.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teleskop/fieldbridge/session"
)

// Server serves one session. Sessions are cheap; a multi-tenant frontend
// would hold one server per open mapping workspace.
type Server struct {
	session  *session.Session
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]struct{}

	httpSrv *http.Server
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// last broadcast state fingerprint, to suppress no-op pushes
	lastState string
}

// statePushInterval is how often the broadcaster checks for state changes
const statePushInterval = 500 * time.Millisecond

// New creates a server over a session. allowedOrigins is the browser
// origin allow list for websocket upgrades; requests without an Origin
// header (non-browser clients) always pass.
func New(sess *session.Session, logger *zap.SugaredLogger, allowedOrigins []string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		session: sess,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigins, r)
			},
		},
		clients: make(map[*Client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Routes returns the server's HTTP mux
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/mappings", s.handleMappings)
	mux.HandleFunc("POST /api/mappings/automap", s.handleAutomap)
	mux.HandleFunc("GET /api/mappings/validate", s.handleValidate)
	mux.HandleFunc("GET /api/preview/{record}", s.handlePreview)
	mux.HandleFunc("POST /api/batch/page/{page}", s.handleLoadPage)
	mux.HandleFunc("POST /api/batch/reload/{record}", s.handleReload)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start serves until Shutdown. It blocks.
func (s *Server) Start(port int) error {
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Routes(),
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.logger.Infow("Server listening",
		"port", port,
		"session", s.session.ID())
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the broadcaster, closes clients, and drains the listener
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for c := range s.clients {
		c.close()
	}
	s.clients = make(map[*Client]struct{})
	s.mu.Unlock()

	s.wg.Wait()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// broadcastLoop pushes batch state to clients whenever it changes
func (s *Server) broadcastLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(statePushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.broadcastState()
		}
	}
}

// broadcastState sends the current batch snapshot to every client if it
// differs from the last pushed state. Map key order in encoding/json is
// deterministic, so the marshaled snapshot doubles as the fingerprint;
// the timestamped envelope is built only for states that actually ship.
func (s *Server) broadcastState() {
	snap := s.session.BatchState()
	fingerprint, err := json.Marshal(snap)
	if err != nil {
		s.logger.Errorw("Failed to marshal batch state", "error", err)
		return
	}

	s.mu.Lock()
	if string(fingerprint) == s.lastState {
		s.mu.Unlock()
		return
	}
	s.lastState = string(fingerprint)
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	payload, err := json.Marshal(StateMessage{
		Type:      "batch_state",
		SessionID: s.session.ID(),
		State:     snap,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		s.logger.Errorw("Failed to marshal state message", "error", err)
		return
	}

	for _, c := range clients {
		c.send(payload)
	}
}

// registerClient adds a connected websocket client
func (s *Server) registerClient(c *Client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	count := len(s.clients)
	// Force a push on the next tick so the new client sees current state
	s.lastState = ""
	s.mu.Unlock()

	s.logger.Debugw("WebSocket client connected", "clients", count)
}

// unregisterClient removes a disconnected client
func (s *Server) unregisterClient(c *Client) {
	s.mu.Lock()
	delete(s.clients, c)
	count := len(s.clients)
	s.mu.Unlock()

	s.logger.Debugw("WebSocket client disconnected", "clients", count)
}
