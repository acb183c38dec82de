package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/pslog"
	"pkt.systems/tileboard/schema"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize leaves room for large pdf_load payloads.
	maxMessageSize = 64 << 20
	sendQueueDepth = 256
)

// client is one connected participant. The hub loop owns identity and
// roster membership; the pumps own the websocket.
type client struct {
	id       schema.ParticipantID
	name     string
	role     schema.Role
	streamID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  pslog.Logger
}

func (c *client) participant() schema.Participant {
	return schema.Participant{ID: c.id, Name: c.name, Role: c.role}
}

// readPump feeds inbound frames to the hub loop until the connection
// drops, then unregisters.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read failed", "err", err)
			}
			return
		}
		select {
		case c.hub.inbound <- inboundFrame{from: c, data: data}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump drains the send queue and keeps the link alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
