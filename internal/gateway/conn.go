package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	obsmetrics "github.com/smallbiznis/retailpulse/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 32
)

// Conn is one dashboard websocket connection. All writes to the socket go
// through the send channel so the write pump is the only writer.
type Conn struct {
	ID       string
	TenantID string
	UserID   string
	Role     string

	ws   *websocket.Conn
	send chan []byte
	log  *zap.Logger

	mu       sync.Mutex
	subs     Subscriptions
	filters  Filters
	lastSeen time.Time
	closed   bool
}

func newConn(id string, claims Claims, ws *websocket.Conn, log *zap.Logger) *Conn {
	return &Conn{
		ID:       id,
		TenantID: claims.TenantID,
		UserID:   claims.UserID,
		Role:     claims.Role,
		ws:       ws,
		send:     make(chan []byte, sendBuffer),
		log:      log,
		subs:     DefaultSubscriptions(),
		lastSeen: time.Now(),
	}
}

func (c *Conn) Subscriptions() Subscriptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs
}

func (c *Conn) Filters() Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Update merges the provided subscription flags into the current set and
// replaces the filters. Flags the client did not send stay as they are.
func (c *Conn) Update(patch *subscriptionPatch, filters *Filters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if patch != nil {
		if patch.Metrics != nil {
			c.subs.Metrics = *patch.Metrics
		}
		if patch.Activity != nil {
			c.subs.Activity = *patch.Activity
		}
		if patch.Alerts != nil {
			c.subs.Alerts = *patch.Alerts
		}
		if patch.SegmentUpdates != nil {
			c.subs.SegmentUpdates = *patch.SegmentUpdates
		}
	}
	if filters != nil {
		c.filters = *filters
	}
}

func (c *Conn) Touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

func (c *Conn) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// enqueue hands a frame to the write pump without blocking. A full buffer
// means the client is not keeping up; the frame is dropped, not queued.
func (c *Conn) enqueue(frame []byte) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	select {
	case c.send <- frame:
		return true
	default:
		obsmetrics.Gateway().IncDropped()
		return false
	}
}

func (c *Conn) sendFrame(msgType string, data any) {
	frame, err := marshalFrame(msgType, data)
	if err != nil {
		c.log.Error("frame marshal failed", zap.String("type", msgType), zap.Error(err))
		return
	}
	if c.enqueue(frame) {
		obsmetrics.Gateway().IncFrame(msgType)
	}
}

func (c *Conn) sendError(message string) {
	c.sendFrame(MsgError, errorPayload{Message: message})
}

// closeSend stops the write pump. Safe to call more than once.
func (c *Conn) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
