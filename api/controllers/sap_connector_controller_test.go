/*
 * @module api/controllers/sap_connector_controller_test
 * @description SAP连接器控制器单元测试
 * @architecture 测试层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 测试准备 -> 请求构建 -> 响应验证
 * @rules 确保连接器API的正确性和完整性
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package controllers

import (
	"context"
	"dpp-integration-service/service/event"
	"dpp-integration-service/service/integration"
	"dpp-integration-service/service/models"
	"dpp-integration-service/service/sap_sync"
	"dpp-integration-service/testutil"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubRunner 可编程的同步触发入口
type stubRunner struct {
	triggerErr  error
	testErr     error
	lastTrigger string
}

func (s *stubRunner) Trigger(ctx context.Context, connectorID, triggeredBy string) (*models.SyncRun, error) {
	if s.triggerErr != nil {
		return nil, s.triggerErr
	}
	s.lastTrigger = triggeredBy
	return &models.SyncRun{
		ID:          "run-1",
		ConnectorID: connectorID,
		Status:      models.SyncRunStatusRunning,
		StartedAt:   time.Now(),
		TriggeredBy: triggeredBy,
	}, nil
}

func (s *stubRunner) TestConnection(ctx context.Context, connectorID string) (*models.ConnectorHealth, error) {
	if s.testErr != nil {
		return nil, s.testErr
	}
	return &models.ConnectorHealth{
		ConnectorID:  connectorID,
		Status:       "active",
		LastCheck:    time.Now(),
		ResponseTime: 50 * time.Millisecond,
	}, nil
}

type controllerFixture struct {
	db      *testutil.TestDB
	factory *testutil.TestDataFactory
	runner  *stubRunner
	events  *event.EventService
	router  *chi.Mux
}

func newControllerFixture(t *testing.T) *controllerFixture {
	tdb := testutil.NewTestDB()
	runner := &stubRunner{}
	events := event.NewEventService(tdb.DB)
	t.Cleanup(func() {
		events.Stop()
		tdb.Close()
	})

	controller := NewSAPConnectorController(
		integration.NewIntegrationService(tdb.DB),
		runner,
		events,
		nil,
	)

	router := chi.NewRouter()
	router.Route("/api/integrations", func(r chi.Router) {
		r.Route("/connectors", func(r chi.Router) {
			r.Get("/", controller.ListConnectors)
			r.Post("/", controller.CreateConnector)
			r.Get("/{id}", controller.GetConnector)
			r.Patch("/{id}", controller.UpdateConnector)
			r.Post("/{id}/test", controller.TestConnector)
			r.Post("/{id}/sync", controller.TriggerSync)
			r.Get("/{id}/logs", controller.ListSyncRuns)
			r.Get("/{id}/stats", controller.GetConnectorStats)
		})
		r.Get("/runs/{runId}", controller.GetSyncRun)
		r.Get("/meta", controller.GetConnectorMeta)
		r.Get("/errors", controller.ListErrorCatalog)
	})

	return &controllerFixture{
		db:      tdb,
		factory: testutil.NewTestDataFactory(tdb.DB),
		runner:  runner,
		events:  events,
		router:  router,
	}
}

func (f *controllerFixture) do(t *testing.T, method, url string, body interface{}) *httptest.ResponseRecorder {
	helper := testutil.NewHTTPTestHelper()
	req, err := helper.CreateJSONRequest(method, url, body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	var resp APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestCreateConnector(t *testing.T) {
	f := newControllerFixture(t)

	w := f.do(t, http.MethodPost, "/api/integrations/connectors", map[string]interface{}{
		"name":           "生产S4HANA",
		"system_type":    "s4hana",
		"hostname":       "sap.example.com",
		"client":         "100",
		"system_id":      "PRD",
		"sync_direction": "bidirectional",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, 0, resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, "pending", data["status"])
	// 缺省值已填充
	assert.Equal(t, "odata", data["api_type"])
	assert.Equal(t, float64(44300), data["port"])
}

func TestCreateConnector_ValidationError(t *testing.T) {
	f := newControllerFixture(t)

	w := f.do(t, http.MethodPost, "/api/integrations/connectors", map[string]interface{}{
		"name":        "缺少主机",
		"system_type": "s4hana",
		"client":      "100",
		"system_id":   "PRD",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	fields, ok := data["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "hostname")

	// 校验失败不落库
	var count int64
	f.db.DB.Model(&models.ConnectorConfig{}).Count(&count)
	assert.Zero(t, count)
}

func TestGetConnector_NotFound(t *testing.T) {
	f := newControllerFixture(t)

	w := f.do(t, http.MethodGet, "/api/integrations/connectors/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListConnectors(t *testing.T) {
	f := newControllerFixture(t)
	f.factory.CreateConnector()
	f.factory.CreateConnector()

	w := f.do(t, http.MethodGet, "/api/integrations/connectors/", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 2)
}

func TestUpdateConnector_PartialMerge(t *testing.T) {
	f := newControllerFixture(t)
	connector := f.factory.CreateConnector()

	w := f.do(t, http.MethodPatch, "/api/integrations/connectors/"+connector.ID, map[string]interface{}{
		"name": "改名后的连接器",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var stored models.ConnectorConfig
	require.NoError(t, f.db.DB.First(&stored, "id = ?", connector.ID).Error)
	assert.Equal(t, "改名后的连接器", stored.Name)
	// 未提交的字段保持不变
	assert.Equal(t, connector.Hostname, stored.Hostname)
	assert.Equal(t, connector.Client, stored.Client)
}

func TestUpdateConnector_EmptyBody(t *testing.T) {
	f := newControllerFixture(t)
	connector := f.factory.CreateConnector()

	w := f.do(t, http.MethodPatch, "/api/integrations/connectors/"+connector.ID, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerSync(t *testing.T) {
	f := newControllerFixture(t)
	connector := f.factory.CreateConnector()

	w := f.do(t, http.MethodPost, "/api/integrations/connectors/"+connector.ID+"/sync", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sap_sync.TriggeredByManual, f.runner.lastTrigger)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "running", data["status"])
}

func TestTriggerSync_AlreadyRunning(t *testing.T) {
	f := newControllerFixture(t)
	connector := f.factory.CreateConnector()
	f.runner.triggerErr = &sap_sync.AlreadyRunningError{ConnectorID: connector.ID}

	w := f.do(t, http.MethodPost, "/api/integrations/connectors/"+connector.ID+"/sync", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTriggerSync_InvalidState(t *testing.T) {
	f := newControllerFixture(t)
	connector := f.factory.CreateConnector()
	f.runner.triggerErr = &sap_sync.InvalidStateError{ConnectorID: connector.ID, Status: "inactive"}

	w := f.do(t, http.MethodPost, "/api/integrations/connectors/"+connector.ID+"/sync", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTriggerSync_UnknownConnector(t *testing.T) {
	f := newControllerFixture(t)
	f.runner.triggerErr = gorm.ErrRecordNotFound

	w := f.do(t, http.MethodPost, "/api/integrations/connectors/no-such-id/sync", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTestConnector(t *testing.T) {
	f := newControllerFixture(t)
	connector := f.factory.CreateConnector()

	w := f.do(t, http.MethodPost, "/api/integrations/connectors/"+connector.ID+"/test", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "active", data["status"])
}

func TestListSyncRuns(t *testing.T) {
	f := newControllerFixture(t)
	connector := f.factory.CreateConnector()
	f.factory.CreateSyncRun(connector.ID, testutil.WithCompletedRun(100, 60, 40))
	f.factory.CreateSyncRun(connector.ID, testutil.WithFailedRun("CONNECTION_REFUSED", "connection refused"))

	w := f.do(t, http.MethodGet, "/api/integrations/connectors/"+connector.ID+"/logs", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 2)
}

func TestListSyncRuns_UnknownConnector(t *testing.T) {
	f := newControllerFixture(t)

	w := f.do(t, http.MethodGet, "/api/integrations/connectors/no-such-id/logs", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSyncRun(t *testing.T) {
	f := newControllerFixture(t)
	connector := f.factory.CreateConnector()
	run := f.factory.CreateSyncRun(connector.ID, testutil.WithCompletedRun(50, 30, 20))

	w := f.do(t, http.MethodGet, "/api/integrations/runs/"+run.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, float64(50), data["records_processed"])
}

func TestGetConnectorStats(t *testing.T) {
	f := newControllerFixture(t)
	connector := f.factory.CreateConnector()
	f.factory.CreateSyncRun(connector.ID, testutil.WithCompletedRun(100, 60, 40))
	f.factory.CreateSyncRun(connector.ID, testutil.WithFailedRun("RFC_ERROR", "RFC_SYS_EXCEPTION"))

	w := f.do(t, http.MethodGet, "/api/integrations/connectors/"+connector.ID+"/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["total_runs"])
	assert.Equal(t, float64(50), data["success_rate"])
	assert.Equal(t, float64(100), data["records_processed"])
}

func TestGetConnectorMeta(t *testing.T) {
	f := newControllerFixture(t)

	w := f.do(t, http.MethodGet, "/api/integrations/meta", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data, "system_types")
	assert.Contains(t, data, "sync_frequencies")
	assert.Contains(t, data, "transformations")
}

func TestListErrorCatalog(t *testing.T) {
	f := newControllerFixture(t)

	w := f.do(t, http.MethodGet, "/api/integrations/errors", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data)

	first, ok := data[0].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, first, "code")
	assert.Contains(t, first, "category")
	assert.Contains(t, first, "severity")
	assert.Contains(t, first, "suggestion")
}
