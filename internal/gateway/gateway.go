package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	alertdomain "github.com/smallbiznis/retailpulse/internal/alert/domain"
	"github.com/smallbiznis/retailpulse/internal/dashboard"
	"github.com/smallbiznis/retailpulse/pkg/tenantctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const openAlertLimit = 50

// Config carries the gateway tunables.
type Config struct {
	AuthSecret      string
	RefreshInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 30 * time.Second
	}
	return c
}

// Gateway upgrades dashboard websocket connections, fans domain events out
// to tenant-scoped subscribers and answers on-demand snapshot requests.
type Gateway struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	registry  *Registry
	dashboard *dashboard.Service
	alerts    alertdomain.Repository
	upgrader  websocket.Upgrader
}

func New(db *gorm.DB, log *zap.Logger, cfg Config, registry *Registry, svc *dashboard.Service, alerts alertdomain.Repository) *Gateway {
	return &Gateway{
		db:        db,
		log:       log.Named("gateway"),
		cfg:       cfg.withDefaults(),
		registry:  registry,
		dashboard: svc,
		alerts:    alerts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// HandleWS upgrades the request and runs the connection until the peer
// goes away. The token travels in the query string because browsers cannot
// set websocket headers.
func (g *Gateway) HandleWS(c *gin.Context) {
	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	claims, err := VerifyToken(g.cfg.AuthSecret, c.Query("token"))
	if err != nil {
		frame, _ := marshalFrame(MsgError, errorPayload{Message: "authentication failed"})
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		ws.WriteMessage(websocket.TextMessage, frame)
		ws.Close()
		return
	}

	conn := newConn(uuid.NewString(), claims, ws, g.log)
	g.registry.Add(conn)
	g.log.Info("dashboard connected",
		zap.String("conn_id", conn.ID),
		zap.String("tenant_id", conn.TenantID),
		zap.String("user_id", conn.UserID),
	)

	ctx := tenantctx.WithUserID(tenantctx.WithTenantID(c.Request.Context(), claims.TenantID), claims.UserID)

	go conn.writePump()
	g.sendInitialState(ctx, conn)
	g.readLoop(conn)
}

func (g *Gateway) readLoop(conn *Conn) {
	defer func() {
		g.registry.Remove(conn.ID)
		conn.closeSend()
		g.log.Info("dashboard disconnected",
			zap.String("conn_id", conn.ID),
			zap.String("tenant_id", conn.TenantID),
		)
	}()

	conn.ws.SetReadLimit(maxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Warn("websocket read failed", zap.String("conn_id", conn.ID), zap.Error(err))
			}
			return
		}
		conn.Touch()
		g.handleMessage(conn, raw)
	}
}

// handleMessage dispatches one inbound frame. A malformed or unknown
// message answers with an error frame on that connection only.
func (g *Gateway) handleMessage(conn *Conn, raw []byte) {
	var msg Envelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		conn.sendError("malformed message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch msg.Type {
	case MsgPing:
		conn.sendFrame(MsgPong, map[string]any{"ts": time.Now().UTC()})

	case MsgSubscribeMetrics:
		var req subscribeRequest
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				conn.sendError("malformed subscription request")
				return
			}
		}
		conn.Update(req.Subscriptions, req.Filters)
		if conn.Subscriptions().Metrics {
			g.pushMetrics(ctx, conn)
		}

	case MsgRequestLiveActivity:
		var req activityRequest
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				conn.sendError("malformed activity request")
				return
			}
		}
		activity, err := g.dashboard.LiveActivity(ctx, conn.TenantID, req.Limit, req.ActivityTypes)
		if err != nil {
			g.log.Error("live activity lookup failed", zap.String("tenant_id", conn.TenantID), zap.Error(err))
			conn.sendError("activity unavailable")
			return
		}
		conn.sendFrame(MsgLiveActivityUpdate, activity)

	case MsgRequestSegmentPerf:
		var req segmentPerfRequest
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				conn.sendError("malformed segment request")
				return
			}
		}
		stats, err := g.dashboard.SegmentPerformance(ctx, conn.TenantID, req.Segments)
		if err != nil {
			g.log.Error("segment performance lookup failed", zap.String("tenant_id", conn.TenantID), zap.Error(err))
			conn.sendError("segment performance unavailable")
			return
		}
		conn.sendFrame(MsgSegmentPerfUpdate, stats)

	case MsgAdminConnectionStats:
		if conn.Role != RoleOperator {
			conn.sendError("operator role required")
			return
		}
		conn.sendFrame(MsgConnectionStats, g.registry.Stats())

	case MsgAdminBroadcastMessage:
		if conn.Role != RoleOperator {
			conn.sendError("operator role required")
			return
		}
		var req adminBroadcastRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.Message == "" {
			conn.sendError("malformed broadcast request")
			return
		}
		g.adminBroadcast(req)

	default:
		conn.sendError("unknown message type: " + msg.Type)
	}
}

// sendInitialState pushes the connected ack plus the snapshots the default
// subscriptions imply. Snapshot failures degrade to an error frame; the
// connection stays up.
func (g *Gateway) sendInitialState(ctx context.Context, conn *Conn) {
	conn.sendFrame(MsgConnected, map[string]any{
		"connection_id": conn.ID,
		"tenant_id":     conn.TenantID,
		"subscriptions": conn.Subscriptions(),
	})

	metrics, err := g.dashboard.TenantMetrics(ctx, conn.TenantID)
	if err != nil {
		g.log.Error("initial metrics failed", zap.String("tenant_id", conn.TenantID), zap.Error(err))
		conn.sendError("metrics unavailable")
	} else {
		conn.sendFrame(MsgInitialMetrics, metrics)
	}

	activity, err := g.dashboard.LiveActivity(ctx, conn.TenantID, 0, nil)
	if err != nil {
		g.log.Error("initial activity failed", zap.String("tenant_id", conn.TenantID), zap.Error(err))
	} else {
		conn.sendFrame(MsgInitialActivity, activity)
	}

	alerts, err := g.alerts.ListOpen(ctx, g.db, conn.TenantID, openAlertLimit)
	if err != nil {
		g.log.Error("initial alerts failed", zap.String("tenant_id", conn.TenantID), zap.Error(err))
	} else {
		conn.sendFrame(MsgInitialAlerts, alerts)
	}

	insights, err := g.dashboard.RegionalInsights(ctx, conn.TenantID)
	if err != nil {
		g.log.Error("initial regional insights failed", zap.String("tenant_id", conn.TenantID), zap.Error(err))
	} else {
		conn.sendFrame(MsgRegionalInsights, insights)
	}
}

func (g *Gateway) pushMetrics(ctx context.Context, conn *Conn) {
	metrics, err := g.dashboard.TenantMetrics(ctx, conn.TenantID)
	if err != nil {
		g.log.Error("metrics push failed", zap.String("tenant_id", conn.TenantID), zap.Error(err))
		conn.sendError("metrics unavailable")
		return
	}
	conn.sendFrame(MsgMetricsUpdate, metrics)
}

// Publish fans one domain event out to the event's tenant. Delivery is
// best effort per connection; a slow consumer drops frames rather than
// stalling the caller.
func (g *Gateway) Publish(event dashboard.Event) {
	for _, conn := range g.registry.TenantConns(event.TenantID) {
		if !subscribed(conn.Subscriptions(), event.Type) {
			continue
		}
		if !matches(conn.Filters(), event) {
			continue
		}
		conn.sendFrame(event.Type, event.Payload)
	}
}

func (g *Gateway) adminBroadcast(req adminBroadcastRequest) {
	tenants := req.TargetTenants
	if len(tenants) == 0 {
		tenants = g.registry.ActiveTenants()
	}
	payload := map[string]any{"message": req.Message, "ts": time.Now().UTC()}
	for _, tenantID := range tenants {
		for _, conn := range g.registry.TenantConns(tenantID) {
			conn.sendFrame(MsgAdminMessage, payload)
		}
	}
}

func subscribed(subs Subscriptions, eventType string) bool {
	switch eventType {
	case dashboard.EventMetricsUpdate, dashboard.EventRegionalInsights:
		return subs.Metrics
	case dashboard.EventLiveActivity:
		return subs.Activity
	case dashboard.EventAlertCreated, dashboard.EventAlertResolved:
		return subs.Alerts
	case dashboard.EventSegmentPerformance:
		return subs.SegmentUpdates || subs.Metrics
	default:
		return true
	}
}

func matches(filters Filters, event dashboard.Event) bool {
	if event.Segment != "" && len(filters.Segments) > 0 && !containsString(filters.Segments, event.Segment) {
		return false
	}
	if event.Region != "" && len(filters.Regions) > 0 && !containsString(filters.Regions, event.Region) {
		return false
	}
	if event.ActivityKind != "" && len(filters.ActivityKinds) > 0 && !containsString(filters.ActivityKinds, event.ActivityKind) {
		return false
	}
	return true
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
