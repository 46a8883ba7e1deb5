package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/retailpulse/internal/alert"
	alertdomain "github.com/smallbiznis/retailpulse/internal/alert/domain"
	alertrepo "github.com/smallbiznis/retailpulse/internal/alert/repository"
	"github.com/smallbiznis/retailpulse/internal/batch"
	"github.com/smallbiznis/retailpulse/internal/clock"
	"github.com/smallbiznis/retailpulse/internal/config"
	customerdomain "github.com/smallbiznis/retailpulse/internal/customer/domain"
	customerrepo "github.com/smallbiznis/retailpulse/internal/customer/repository"
	"github.com/smallbiznis/retailpulse/internal/dashboard"
	"github.com/smallbiznis/retailpulse/internal/gateway"
	"github.com/smallbiznis/retailpulse/internal/health"
	"github.com/smallbiznis/retailpulse/internal/insight"
	orderdomain "github.com/smallbiznis/retailpulse/internal/order/domain"
	orderrepo "github.com/smallbiznis/retailpulse/internal/order/repository"
	"github.com/smallbiznis/retailpulse/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type serverFixture struct {
	server *Server
	queue  *pipeline.MemoryQueue
	db     *gorm.DB
}

func newServerFixture(t *testing.T, apiKey string) *serverFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.CustomerProfile{},
		&customerdomain.Transaction{},
		&orderdomain.Order{},
		&alertdomain.Alert{},
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	log := zap.NewNop()
	cfg := config.Config{
		HTTPAddr:          ":0",
		APIKey:            apiKey,
		GatewayAuthSecret: "test-secret",
	}

	customers := customerrepo.Provide()
	engine := insight.New(insight.Config{})
	refresher := pipeline.NewRefresher(db, log, customers, engine)
	coordinator := batch.NewCoordinator(log, refresher, batch.Config{ChunkPause: time.Millisecond})
	clk := clock.NewFakeClock(time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC))
	monitor := health.NewMonitor(health.Config{}, clk, log)
	queue := pipeline.NewMemoryQueue()

	dashboardSvc := dashboard.NewService(db, log, customers, clk)
	gw := gateway.New(db, log, gateway.Config{AuthSecret: cfg.GatewayAuthSecret}, gateway.NewRegistry(), dashboardSvc, alertrepo.Provide())

	alerts := alert.NewService(db, log, alertrepo.Provide(), node, dashboard.NopBroadcaster{})
	handler := pipeline.NewHandler(db, log, orderrepo.Provide(), customers, engine, refresher, coordinator, monitor,
		alerts, dashboard.NopBroadcaster{}, node)
	runner := pipeline.NewRunner(queue, handler, monitor, pipeline.Policy{}, pipeline.Config{}, log)

	return &serverFixture{
		server: New(cfg, log, queue, coordinator, monitor, runner, gw, node),
		queue:  queue,
		db:     db,
	}
}

func (f *serverFixture) do(method, path, apiKey string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	rec := httptest.NewRecorder()
	f.server.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestIngestEvent_Queued(t *testing.T) {
	f := newServerFixture(t, "")

	rec := f.do(http.MethodPost, "/api/v1/events", "", map[string]any{
		"tenant_id": "t1",
		"type":      "order-completed",
		"order_id":  "O-1",
	})

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["job_id"])
	assert.Equal(t, "queued", body["status"])

	depth, err := f.queue.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}

func TestIngestEvent_RejectsUnknownKind(t *testing.T) {
	f := newServerFixture(t, "")

	rec := f.do(http.MethodPost, "/api/v1/events", "", map[string]any{
		"tenant_id": "t1",
		"type":      "mystery-kind",
		"order_id":  "O-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	depth, err := f.queue.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestIngestEvent_TenantFromHeader(t *testing.T) {
	f := newServerFixture(t, "")

	raw, _ := json.Marshal(map[string]any{"type": "order-completed", "order_id": "O-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "t9")

	rec := httptest.NewRecorder()
	f.server.http.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	job, err := f.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "t9", job.TenantID)
}

func TestIngestEvent_RejectsMissingFields(t *testing.T) {
	f := newServerFixture(t, "")

	rec := f.do(http.MethodPost, "/api/v1/events", "", map[string]any{"type": "order-completed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPipelineHealth_Open(t *testing.T) {
	f := newServerFixture(t, "")

	rec := f.do(http.MethodGet, "/api/v1/pipeline/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Pipeline    health.Snapshot `json:"pipeline"`
		QueueDepth  int64           `json:"queue_depth"`
		FailedCount int             `json:"failed_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, health.StatusHealthy, body.Pipeline.Status)
	assert.Equal(t, int64(0), body.QueueDepth)
	assert.Equal(t, 0, body.FailedCount)
}

func TestAdminRoutes_RequireAPIKey(t *testing.T) {
	f := newServerFixture(t, "sekrit")

	rec := f.do(http.MethodGet, "/api/v1/pipeline/failed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/pipeline/failed", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/pipeline/failed", "sekrit", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes_ClosedWhenKeyUnset(t *testing.T) {
	f := newServerFixture(t, "")

	rec := f.do(http.MethodGet, "/api/v1/pipeline/failed", "anything", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRefresh_RunsSynchronously(t *testing.T) {
	f := newServerFixture(t, "sekrit")

	require.NoError(t, f.db.Create(&customerdomain.CustomerProfile{
		ID:            1,
		TenantID:      "t1",
		CustomerID:    "C-1",
		LifetimeSpend: 10_000_000,
		OrderCount:    15,
		Segment:       customerdomain.SegmentNew,
	}).Error)

	rec := f.do(http.MethodPost, "/api/v1/insights/refresh", "sekrit", map[string]any{
		"tenant_id":    "t1",
		"customer_ids": []string{"C-1", "C-ghost"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result batch.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, batch.Result{Processed: 2, Succeeded: 1, Failed: 1}, result)
}

func TestRefresh_BasicAnalysisSkipsWindowEnrichment(t *testing.T) {
	f := newServerFixture(t, "sekrit")

	require.NoError(t, f.db.Create(&customerdomain.CustomerProfile{
		ID:            1,
		TenantID:      "t1",
		CustomerID:    "C-1",
		LifetimeSpend: 10_000_000,
		OrderCount:    15,
		AvgOrderValue: 1,
		Segment:       customerdomain.SegmentNew,
	}).Error)

	rec := f.do(http.MethodPost, "/api/v1/insights/refresh", "sekrit", map[string]any{
		"tenant_id":                 "t1",
		"customer_ids":              []string{"C-1"},
		"include_advanced_analysis": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile customerdomain.CustomerProfile
	require.NoError(t, f.db.Where("tenant_id = ? AND customer_id = ?", "t1", "C-1").Take(&profile).Error)
	assert.Equal(t, customerdomain.SegmentRegular, profile.Segment)
	assert.Equal(t, int64(666_666), profile.AvgOrderValue)
	assert.Equal(t, customerdomain.MaturityBasic, profile.DigitalMaturity, "pattern analysis is opt-out here")
	assert.Empty(t, profile.PreferredPayment)
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t, "")

	rec := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
