package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teleskop/fieldbridge/batch"
)

// WebSocket timeout constants following Gorilla best practices
// See: https://github.com/gorilla/websocket/blob/master/examples/chat/client.go
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Outbound buffer; a slow client that falls this far behind drops frames
	sendBuffer = 16
)

// originAllowed matches the request's Origin against the configured
// allow list by scheme and hostname, ignoring ports so a dev frontend on
// any localhost port passes. An absent Origin header means a non-browser
// client and is allowed; with an Origin present, an empty allow list
// admits nobody.
func originAllowed(allowed []string, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, entry := range allowed {
		au, err := url.Parse(entry)
		if err != nil {
			continue
		}
		if strings.EqualFold(au.Scheme, u.Scheme) && strings.EqualFold(au.Hostname(), u.Hostname()) {
			return true
		}
	}
	return false
}

// StateMessage is the batch-state frame pushed to clients
type StateMessage struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	State     batch.Snapshot `json:"state"`
	Timestamp int64          `json:"timestamp"`
}

// commandMessage is an inbound client frame
type commandMessage struct {
	Type     string `json:"type"`
	Page     int    `json:"page,omitempty"`
	RecordID string `json:"record_id,omitempty"`
}

// Client is one connected websocket peer
type Client struct {
	server    *Server
	conn      *websocket.Conn
	sendCh    chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

// handleWebSocket upgrades the connection and starts the client pumps
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("WebSocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		server: s,
		conn:   conn,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	s.registerClient(c)

	go c.writePump()
	go c.readPump()
}

// send queues a frame for the client, dropping it if the client is behind
func (c *Client) send(payload []byte) {
	select {
	case c.sendCh <- payload:
	default:
	}
}

// close tears the connection down once
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump consumes client commands until the connection drops
func (c *Client) readPump() {
	defer func() {
		c.server.unregisterClient(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Debugw("WebSocket read error", "error", err)
			}
			return
		}

		var cmd commandMessage
		if err := json.Unmarshal(payload, &cmd); err != nil {
			c.server.logger.Debugw("Ignoring malformed client frame", "error", err)
			continue
		}
		c.dispatch(cmd)
	}
}

// dispatch runs one client command. Commands fetch records, so they run
// off the read loop to keep the connection responsive.
func (c *Client) dispatch(cmd commandMessage) {
	switch cmd.Type {
	case "load_page":
		go c.server.session.LoadPage(c.server.ctx, cmd.Page)
	case "reload":
		go c.server.session.Reload(c.server.ctx, cmd.RecordID)
	default:
		c.server.logger.Debugw("Unknown client command", "type", cmd.Type)
	}
}

// writePump drains the outbound queue and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
