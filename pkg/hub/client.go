package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// writeWait bounds a single websocket write.
	writeWait = 10 * time.Second

	// pongWait is how long a client may go silent before being cut.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound reads. Feed clients only send
	// control frames, never payloads.
	maxMessageSize = 1024

	// sendBuffer is the per-client queue; overflow drops the client.
	sendBuffer = 256
)

// Client is one websocket subscriber of a feed.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient wraps a websocket connection and registers it with the hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
	select {
	case hub.register <- client:
	case <-hub.quit:
	}
	return client
}

// ID returns the client's feed-local identifier.
func (c *Client) ID() string {
	return c.id
}

// Run pumps the connection until it closes. Call from the websocket
// handler; it blocks for the connection's lifetime.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump drains inbound frames. Clients send nothing we care about,
// but reading is what surfaces pongs and disconnects.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump is the only goroutine that writes to the connection.
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
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			wsType := websocket.TextMessage
			if message.Type == BinaryMessage {
				wsType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(wsType, message.Data); err != nil {
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
