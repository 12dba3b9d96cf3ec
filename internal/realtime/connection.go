package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"portfolio_chat/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrBufferFull       = errors.New("connection buffer exceeded")
)

type Options struct {
	SendBuffer    int
	MaxFrameBytes int64
}

// Connection wraps a websocket. Writes go through a buffered channel drained by a
// single writer goroutine, so Send never blocks the caller.
type Connection struct {
	ID     string
	UserID string

	ws          *websocket.Conn
	send        chan []byte
	done        chan struct{}
	once        sync.Once
	closeCode   int
	closeReason string
	maxRead     int64
	log         logger.Logger
}

func NewConnection(userID string, ws *websocket.Conn, opts Options, log logger.Logger) *Connection {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	id := uuid.NewString()
	return &Connection{
		ID:      id,
		UserID:  userID,
		ws:      ws,
		send:    make(chan []byte, opts.SendBuffer),
		done:    make(chan struct{}),
		maxRead: opts.MaxFrameBytes,
		log:     log.With("user_id", userID, "conn_id", id),
	}
}

// Start launches the write loop, which owns every write to the socket including the
// close frame. Call it once.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload and never waits on the socket. A slow client whose buffer fills
// up is disconnected.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	case c.send <- payload:
		return nil
	default:
		c.log.Warn("Send buffer full, closing connection")
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrBufferFull
	}
}

// ReadLoop blocks reading text frames and passes each one to handle in order. It returns
// when the peer goes away or the connection is closed.
func (c *Connection) ReadLoop(handle func(payload []byte)) error {
	if c.maxRead > 0 {
		c.ws.SetReadLimit(c.maxRead)
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return err
			}
			return nil
		}
		if messageType != websocket.TextMessage {
			continue
		}
		handle(payload)
	}
}

// Close marks the connection closed with code and reason and returns at once. The write
// loop sends the close frame and releases the socket. The first call wins.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		deadline := time.Now().Add(writeWait)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(c.closeCode, c.closeReason), deadline)
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.log.Debug("Write failed", "error", err)
				c.Close(websocket.CloseGoingAway, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseGoingAway, "write failed")
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}

// Reject closes a freshly upgraded socket with a policy violation before any state exists.
func Reject(ws *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	_ = ws.Close()
}
