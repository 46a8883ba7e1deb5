package gateway

import "encoding/json"

// Inbound message types.
const (
	MsgSubscribeMetrics      = "subscribe_metrics"
	MsgRequestLiveActivity   = "request_live_activity"
	MsgRequestSegmentPerf    = "request_segment_performance"
	MsgPing                  = "ping"
	MsgAdminConnectionStats  = "admin_get_connection_stats"
	MsgAdminBroadcastMessage = "admin_broadcast_message"
)

// Outbound message types.
const (
	MsgConnected          = "connected"
	MsgInitialMetrics     = "initial_metrics"
	MsgInitialActivity    = "initial_activity"
	MsgInitialAlerts      = "initial_alerts"
	MsgMetricsUpdate      = "metrics_update"
	MsgLiveActivityUpdate = "live_activity_update"
	MsgSegmentPerfUpdate  = "segment_performance_update"
	MsgRegionalInsights   = "indonesian_insights_update"
	MsgPong               = "pong"
	MsgError              = "error"
	MsgConnectionStats    = "connection_stats"
	MsgAdminMessage       = "admin_message"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Subscriptions are the per-connection delivery flags. New connections
// default to metrics, activity and alerts.
type Subscriptions struct {
	Metrics        bool `json:"metrics"`
	Activity       bool `json:"activity"`
	Alerts         bool `json:"alerts"`
	SegmentUpdates bool `json:"segment_updates"`
}

func DefaultSubscriptions() Subscriptions {
	return Subscriptions{Metrics: true, Activity: true, Alerts: true}
}

// Filters narrow delivery further; an empty list matches everything.
type Filters struct {
	Segments      []string `json:"segments,omitempty"`
	Regions       []string `json:"regions,omitempty"`
	ActivityKinds []string `json:"activity_kinds,omitempty"`
}

// subscriptionPatch carries only the flags the client sent; omitted flags
// keep their current value when merged.
type subscriptionPatch struct {
	Metrics        *bool `json:"metrics,omitempty"`
	Activity       *bool `json:"activity,omitempty"`
	Alerts         *bool `json:"alerts,omitempty"`
	SegmentUpdates *bool `json:"segment_updates,omitempty"`
}

type subscribeRequest struct {
	Subscriptions *subscriptionPatch `json:"subscriptions,omitempty"`
	Filters       *Filters           `json:"filters,omitempty"`
}

type activityRequest struct {
	Limit         int      `json:"limit,omitempty"`
	ActivityTypes []string `json:"activity_types,omitempty"`
}

type segmentPerfRequest struct {
	Segments []string `json:"segments,omitempty"`
}

type adminBroadcastRequest struct {
	Message       string   `json:"message"`
	TargetTenants []string `json:"target_tenants,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func marshalFrame(msgType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Data: raw})
}
