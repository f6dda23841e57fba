/*
 * @module service/monitoring/health_checker_test
 * @description 连接器健康检查器单元测试
 * @architecture 测试层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 可控客户端 -> 多轮探测 -> 断言状态迁移
 * @rules 覆盖连续失败阈值与整体状态聚合
 * @dependencies github.com/stretchr/testify
 * @refs health_checker.go
 */

package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dpp-integration-service/service/meta"
	"dpp-integration-service/service/models"
	"dpp-integration-service/service/sap_errors"
)

// probeClient 按主机名决定探测结果的客户端替身
type probeClient struct {
	failing map[string]bool
}

func (c *probeClient) Execute(ctx context.Context, connector *models.ConnectorConfig, run *models.SyncRun) error {
	return nil
}

func (c *probeClient) TestConnection(ctx context.Context, connector *models.ConnectorConfig) (time.Duration, error) {
	if c.failing[connector.Hostname] {
		return 0, sap_errors.NewSAPError(sap_errors.CodeConnectionRefused, "connection refused")
	}
	return 35 * time.Millisecond, nil
}

func newHealthTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ConnectorConfig{}, &models.SyncRun{}))
	return db
}

func createHealthConnector(t *testing.T, db *gorm.DB, name, hostname string) *models.ConnectorConfig {
	connector := &models.ConnectorConfig{
		Name:          name,
		SystemType:    meta.SystemTypeS4HANA,
		Hostname:      hostname,
		Port:          44300,
		Client:        "100",
		SystemID:      "PRD",
		APIType:       meta.APITypeOData,
		SyncDirection: meta.SyncDirectionInbound,
		SyncFrequency: meta.SyncFrequencyManual,
		Status:        meta.ConnectorStatusPending,
	}
	require.NoError(t, db.Create(connector).Error)
	return connector
}

func TestHealthChecker_CheckAll(t *testing.T) {
	db := newHealthTestDB(t)
	good := createHealthConnector(t, db, "正常连接器", "sap-ok.example.com")
	bad := createHealthConnector(t, db, "故障连接器", "sap-down.example.com")

	client := &probeClient{failing: map[string]bool{"sap-down.example.com": true}}
	checker := NewHealthChecker(db, client)

	status, err := checker.CheckAll(context.Background())
	require.NoError(t, err)

	require.Len(t, status.Connectors, 2)
	assert.Equal(t, models.OverallDegraded, status.Overall)

	byID := make(map[string]models.ConnectorHealth)
	for _, c := range status.Connectors {
		byID[c.ConnectorID] = c
	}

	assert.Equal(t, meta.ConnectorStatusActive, byID[good.ID].Status)
	assert.Equal(t, 35*time.Millisecond, byID[good.ID].ResponseTime)
	assert.Equal(t, 0, byID[good.ID].ConsecutiveFailures)

	assert.Equal(t, meta.ConnectorStatusDegraded, byID[bad.ID].Status)
	assert.Equal(t, 1, byID[bad.ID].ConsecutiveFailures)
	assert.NotEmpty(t, byID[bad.ID].Error)

	// 状态回写
	var saved models.ConnectorConfig
	require.NoError(t, db.First(&saved, "id = ?", good.ID).Error)
	assert.Equal(t, meta.ConnectorStatusActive, saved.Status)
	assert.NotNil(t, saved.LastCheckAt)
}

func TestHealthChecker_ConsecutiveFailuresEscalate(t *testing.T) {
	db := newHealthTestDB(t)
	bad := createHealthConnector(t, db, "持续故障", "sap-down.example.com")

	client := &probeClient{failing: map[string]bool{"sap-down.example.com": true}}
	checker := NewHealthChecker(db, client)
	ctx := context.Background()

	// 前两轮降级
	for round := 1; round <= 2; round++ {
		status, err := checker.CheckAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, meta.ConnectorStatusDegraded, status.Connectors[0].Status)
		assert.Equal(t, round, status.Connectors[0].ConsecutiveFailures)
	}

	// 第三轮升级为error
	status, err := checker.CheckAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, meta.ConnectorStatusError, status.Connectors[0].Status)
	assert.Equal(t, models.OverallCritical, status.Overall)

	// 恢复后计数清零
	client.failing["sap-down.example.com"] = false
	status, err = checker.CheckAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, meta.ConnectorStatusActive, status.Connectors[0].Status)
	assert.Equal(t, 0, status.Connectors[0].ConsecutiveFailures)

	var saved models.ConnectorConfig
	require.NoError(t, db.First(&saved, "id = ?", bad.ID).Error)
	assert.Equal(t, meta.ConnectorStatusActive, saved.Status)
}

func TestHealthChecker_SkipsInactiveConnectors(t *testing.T) {
	db := newHealthTestDB(t)
	inactive := createHealthConnector(t, db, "已停用", "sap-off.example.com")
	require.NoError(t, db.Model(inactive).Update("status", meta.ConnectorStatusInactive).Error)

	checker := NewHealthChecker(db, &probeClient{})
	status, err := checker.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, status.Connectors)
	assert.Equal(t, models.OverallHealthy, status.Overall)
}

func TestHealthChecker_LastStatus(t *testing.T) {
	db := newHealthTestDB(t)
	createHealthConnector(t, db, "缓存测试", "sap-ok.example.com")

	checker := NewHealthChecker(db, &probeClient{})
	assert.Nil(t, checker.LastStatus())

	status, err := checker.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, status, checker.LastStatus())
}

func TestDeriveOverall(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		expected string
	}{
		{"无连接器", nil, models.OverallHealthy},
		{"全部正常", []string{meta.ConnectorStatusActive, meta.ConnectorStatusActive}, models.OverallHealthy},
		{"部分降级", []string{meta.ConnectorStatusActive, meta.ConnectorStatusDegraded}, models.OverallDegraded},
		{"半数故障", []string{meta.ConnectorStatusActive, meta.ConnectorStatusError}, models.OverallCritical},
		{"全部故障", []string{meta.ConnectorStatusError, meta.ConnectorStatusError}, models.OverallCritical},
		{"未激活不算故障", []string{meta.ConnectorStatusActive, meta.ConnectorStatusActive, meta.ConnectorStatusPending}, models.OverallDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connectors := make([]models.ConnectorHealth, 0, len(tt.statuses))
			for _, s := range tt.statuses {
				connectors = append(connectors, models.ConnectorHealth{Status: s})
			}
			assert.Equal(t, tt.expected, deriveOverall(connectors))
		})
	}
}

func TestMetricsCollector(t *testing.T) {
	collector := newMetricsCollector(prometheus.NewRegistry())

	completed := &models.SyncRun{
		Status:           models.SyncRunStatusCompleted,
		RecordsProcessed: 100,
	}
	now := time.Now()
	completed.StartedAt = now.Add(-3 * time.Second)
	completed.CompletedAt = &now

	collector.PublishTerminal(completed)
	collector.PublishProgress(completed)
	collector.ObserveHealth(&models.SAPHealthStatus{
		Connectors: []models.ConnectorHealth{
			{ConnectorID: "c1", Status: meta.ConnectorStatusActive, ResponseTime: 40 * time.Millisecond},
			{ConnectorID: "c2", Status: meta.ConnectorStatusError},
		},
	})

	assert.Equal(t, float64(1), promtestutil.ToFloat64(collector.runsTotal.WithLabelValues(models.SyncRunStatusCompleted, "")))
	assert.Equal(t, float64(100), promtestutil.ToFloat64(collector.recordsProcessed))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(collector.progressEvents))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(collector.connectorHealth.WithLabelValues("c1")))
	assert.Equal(t, float64(0), promtestutil.ToFloat64(collector.connectorHealth.WithLabelValues("c2")))
}

func TestHealthChecker_EmitsHealthMetrics(t *testing.T) {
	db := newHealthTestDB(t)
	good := createHealthConnector(t, db, "指标正常", "sap-ok.example.com")
	bad := createHealthConnector(t, db, "指标故障", "sap-down.example.com")

	collector := newMetricsCollector(prometheus.NewRegistry())
	client := &probeClient{failing: map[string]bool{"sap-down.example.com": true}}
	checker := NewHealthChecker(db, client).WithCollector(collector)

	_, err := checker.CheckAll(context.Background())
	require.NoError(t, err)

	// 探测结果写入健康gauge：active=1, degraded=0.5
	assert.Equal(t, float64(1), promtestutil.ToFloat64(collector.connectorHealth.WithLabelValues(good.ID)))
	assert.Equal(t, float64(0.5), promtestutil.ToFloat64(collector.connectorHealth.WithLabelValues(bad.ID)))
}
