package dashboard

// Outbound domain event types relayed to dashboard viewers.
const (
	EventMetricsUpdate      = "metrics_update"
	EventLiveActivity       = "live_activity_created"
	EventSegmentPerformance = "segment_performance_updated"
	EventRegionalInsights   = "indonesian_insights_update"
	EventAlertCreated       = "alert_created"
	EventAlertResolved      = "alert_resolved"
)

// Event is one domain event bound for the broadcast layer. The attribute
// fields drive per-connection subscription filtering; Payload is delivered
// verbatim.
type Event struct {
	Type         string `json:"type"`
	TenantID     string `json:"tenant_id"`
	Segment      string `json:"segment,omitempty"`
	Region       string `json:"region,omitempty"`
	ActivityKind string `json:"activity_kind,omitempty"`
	Payload      any    `json:"payload"`
}

// Broadcaster fans a domain event out to matching subscribers. The gateway
// provides the live implementation; NopBroadcaster serves tests and
// gateway-less deployments.
type Broadcaster interface {
	Publish(event Event)
}

type NopBroadcaster struct{}

func (NopBroadcaster) Publish(Event) {}
