// internal/control/client.go
package control

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jdharms/termynal/internal/engine"
	"github.com/jdharms/termynal/internal/player"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Client is a websocket connection following one player
type Client struct {
	id          string
	conn        *websocket.Conn
	server      *Server
	player      *player.Player
	send        chan []byte
	cancel      context.CancelFunc
	connectedAt time.Time
	logger      *logrus.Entry
}

// handleWebSocket upgrades the connection and streams the player's events
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	p := playerFrom(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	client := &Client{
		id:          id,
		conn:        conn,
		server:      s,
		player:      p,
		send:        make(chan []byte, sendBuffer),
		cancel:      cancel,
		connectedAt: time.Now(),
		logger: s.logger.WithFields(logrus.Fields{
			"client":   id,
			"remote":   conn.RemoteAddr().String(),
			"instance": p.InstanceID(),
		}),
	}

	s.registerClient(client)

	// The status frame is queued ahead of any event
	events := p.Subscribe(ctx)
	client.sendStatus()

	go client.writePump()
	go client.readPump()
	go client.forwardEvents(events)
}

// forwardEvents relays player events until the client leaves or the player
// is destroyed
func (c *Client) forwardEvents(events <-chan engine.Event) {
	for ev := range events {
		c.sendMessage(Message{Type: MessageEvent, Event: &ev})
	}
	c.logger.Debug("Event stream ended")
	c.close()
}

// readPump pumps commands from the websocket connection to the player
func (c *Client) readPump() {
	defer func() {
		c.server.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Error("WebSocket read error")
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// writePump pumps frames from the send queue to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WithError(err).Error("WebSocket write error")
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

// handleIncomingMessage runs a command received from the client
func (c *Client) handleIncomingMessage(message []byte) {
	c.logger.WithField("message", string(message)).Debug("Received message from control client")

	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.logger.WithError(err).Warn("Failed to parse incoming message")
		c.sendError("invalid message: " + err.Error())
		return
	}

	switch cmd.Command {
	case CommandPing:
		c.sendMessage(Message{Type: MessagePong})
	case CommandStatus:
		c.sendStatus()
	default:
		if err := apply(c.player, cmd); err != nil {
			c.logger.WithError(err).WithField("command", cmd.Command).Debug("Rejected command from control client")
			c.sendError(err.Error())
			return
		}
		c.logger.WithField("command", cmd.Command).Info("Command applied by control client")
		c.sendStatus()
	}
}

func (c *Client) sendStatus() {
	status := c.player.Status()
	c.sendMessage(Message{Type: MessageStatus, Status: &status})
}

func (c *Client) sendError(text string) {
	c.sendMessage(Message{Type: MessageError, Error: text})
}

func (c *Client) sendMessage(msg Message) {
	msg.Timestamp = time.Now()

	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.WithError(err).Error("Failed to marshal message")
		return
	}

	c.server.enqueue(c, data)
}

func (c *Client) info() ClientInfo {
	return ClientInfo{
		ID:          c.id,
		Instance:    c.player.InstanceID(),
		RemoteAddr:  c.conn.RemoteAddr().String(),
		ConnectedAt: c.connectedAt,
	}
}

// close closes the client connection
func (c *Client) close() {
	c.conn.Close()
}
