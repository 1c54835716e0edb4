package ws

import (
	"encoding/json"
	"sync"
	"time"

	"coin_ledger/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 64
)

// Client is one feed connection bound to one login session.
type Client struct {
	AccountID string
	SessionID string
	Admin     bool
	Conn      *websocket.Conn
	Send      chan []byte

	Hub       *Hub
	Done      chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
}

func NewClient(accountID, sessionID string, admin bool, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		AccountID: accountID,
		SessionID: sessionID,
		Admin:     admin,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		Hub:       hub,
		Done:      make(chan struct{}),
		quit:      make(chan struct{}),
	}
}

// Run registers the client and blocks until it disconnects.
func (c *Client) Run() {
	go c.writePump()

	c.Hub.Register(c)
	c.queue(Envelope{Type: MsgReady, Data: ReadyPayload{AccountID: c.AccountID, Admin: c.Admin}})

	c.readPump()
}

// Close asks the writer to send a close frame and hang up. Safe to call
// more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
}

//read
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Close()
		_ = c.Conn.Close()
		close(c.Done)
	}()

	c.Conn.SetReadLimit(4096)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "account_id", c.AccountID, "error", err)
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(msg, &in); err != nil {
			c.queue(Envelope{Type: MsgError, Data: ErrorPayload{Message: "invalid json"}})
			continue
		}
		switch in.Type {
		case MsgPing:
			c.queue(Envelope{Type: MsgPong, At: time.Now().UTC()})
		default:
			// лента только на чтение
			c.queue(Envelope{Type: MsgError, Data: ErrorPayload{Message: "unsupported message"}})
		}
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "account_id", c.AccountID, "error", err)
				return
			}

		case <-c.quit:
			c.flush()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session revoked"))
			return

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush writes whatever is already queued.
func (c *Client) flush() {
	for {
		select {
		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// queue never blocks; a full buffer drops the message.
func (c *Client) queue(env Envelope) bool {
	b, err := json.Marshal(env)
	if err != nil {
		logger.Error("ws marshal failed", "type", env.Type, "error", err)
		return false
	}
	return c.offer(b)
}

func (c *Client) offer(b []byte) bool {
	select {
	case c.Send <- b:
		return true
	default:
		return false
	}
}
