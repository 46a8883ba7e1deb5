package gateway

import (
	"encoding/json"
	"testing"

	"github.com/smallbiznis/retailpulse/internal/dashboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func drainFrames(c *Conn) []Envelope {
	var out []Envelope
	for {
		select {
		case frame := <-c.send:
			var env Envelope
			if err := json.Unmarshal(frame, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func newTestGateway() *Gateway {
	return &Gateway{
		log:      zap.NewNop(),
		cfg:      Config{AuthSecret: "secret"}.withDefaults(),
		registry: NewRegistry(),
	}
}

func TestPublish_TenantScoped(t *testing.T) {
	g := newTestGateway()

	t1 := testConn("conn-1", "t1")
	t2 := testConn("conn-2", "t2")
	g.registry.Add(t1)
	g.registry.Add(t2)

	g.Publish(dashboard.Event{
		Type:     dashboard.EventLiveActivity,
		TenantID: "t1",
		Payload:  map[string]any{"order_id": "O-1"},
	})

	require.Len(t, drainFrames(t1), 1)
	assert.Empty(t, drainFrames(t2), "events must never cross tenants")
}

func TestPublish_RespectsSubscriptionFlags(t *testing.T) {
	g := newTestGateway()

	conn := testConn("conn-1", "t1")
	off := false
	conn.Update(&subscriptionPatch{Activity: &off, Alerts: &off}, nil)
	g.registry.Add(conn)

	g.Publish(dashboard.Event{Type: dashboard.EventLiveActivity, TenantID: "t1", Payload: "x"})
	g.Publish(dashboard.Event{Type: dashboard.EventAlertCreated, TenantID: "t1", Payload: "x"})
	assert.Empty(t, drainFrames(conn))

	g.Publish(dashboard.Event{Type: dashboard.EventMetricsUpdate, TenantID: "t1", Payload: "x"})
	frames := drainFrames(conn)
	require.Len(t, frames, 1)
	assert.Equal(t, dashboard.EventMetricsUpdate, frames[0].Type)
}

func TestPublish_AppliesAttributeFilters(t *testing.T) {
	g := newTestGateway()

	conn := testConn("conn-1", "t1")
	conn.Update(nil, &Filters{Segments: []string{"vip"}, Regions: []string{"jakarta"}})
	g.registry.Add(conn)

	g.Publish(dashboard.Event{Type: dashboard.EventLiveActivity, TenantID: "t1", Segment: "new", Payload: "x"})
	g.Publish(dashboard.Event{Type: dashboard.EventLiveActivity, TenantID: "t1", Segment: "vip", Region: "surabaya", Payload: "x"})
	assert.Empty(t, drainFrames(conn))

	g.Publish(dashboard.Event{Type: dashboard.EventLiveActivity, TenantID: "t1", Segment: "vip", Region: "jakarta", Payload: "x"})
	assert.Len(t, drainFrames(conn), 1)

	// Events without the attribute pass an attribute filter.
	g.Publish(dashboard.Event{Type: dashboard.EventAlertCreated, TenantID: "t1", Payload: "x"})
	assert.Len(t, drainFrames(conn), 1)
}

func TestSubscribed_EventTypeMapping(t *testing.T) {
	all := Subscriptions{Metrics: true, Activity: true, Alerts: true, SegmentUpdates: true}
	none := Subscriptions{}

	for _, eventType := range []string{
		dashboard.EventMetricsUpdate,
		dashboard.EventRegionalInsights,
		dashboard.EventLiveActivity,
		dashboard.EventAlertCreated,
		dashboard.EventAlertResolved,
		dashboard.EventSegmentPerformance,
	} {
		assert.True(t, subscribed(all, eventType), eventType)
		assert.False(t, subscribed(none, eventType), eventType)
	}

	assert.True(t, subscribed(Subscriptions{Metrics: true}, dashboard.EventSegmentPerformance),
		"metrics subscribers also get segment rollups")
}

func TestPublish_AfterRemoveDeliversNothing(t *testing.T) {
	g := newTestGateway()

	conn := testConn("conn-1", "t1")
	g.registry.Add(conn)
	require.NotNil(t, g.registry.Remove(conn.ID))

	g.Publish(dashboard.Event{Type: dashboard.EventLiveActivity, TenantID: "t1", Payload: "x"})
	g.Publish(dashboard.Event{Type: dashboard.EventMetricsUpdate, TenantID: "t1", Payload: "x"})

	assert.Empty(t, drainFrames(conn), "a removed connection must not receive broadcasts")
	assert.Zero(t, g.registry.Len())
}

func TestConn_SubscribeMergesFlags(t *testing.T) {
	conn := testConn("conn-1", "t1")

	on := true
	conn.Update(&subscriptionPatch{SegmentUpdates: &on}, nil)
	subs := conn.Subscriptions()
	assert.True(t, subs.SegmentUpdates)
	assert.True(t, subs.Metrics, "omitted flags keep their value")
	assert.True(t, subs.Activity)
	assert.True(t, subs.Alerts)

	off := false
	conn.Update(&subscriptionPatch{Activity: &off}, nil)
	subs = conn.Subscriptions()
	assert.False(t, subs.Activity)
	assert.True(t, subs.Metrics)
	assert.True(t, subs.SegmentUpdates)
}

func TestConn_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	conn := testConn("conn-1", "t1")

	delivered := 0
	for i := 0; i < sendBuffer+10; i++ {
		if conn.enqueue([]byte(`{}`)) {
			delivered++
		}
	}
	assert.Equal(t, sendBuffer, delivered)
}

func TestConn_ClosedSendRejectsFrames(t *testing.T) {
	conn := testConn("conn-1", "t1")
	conn.closeSend()
	conn.closeSend() // idempotent

	assert.False(t, conn.enqueue([]byte(`{}`)))
}

func TestDefaultSubscriptions(t *testing.T) {
	subs := DefaultSubscriptions()
	assert.True(t, subs.Metrics)
	assert.True(t, subs.Activity)
	assert.True(t, subs.Alerts)
	assert.False(t, subs.SegmentUpdates)
}
