/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"dpp-integration-service/service/models"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.ConnectorConfig{},
		&models.SyncRun{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	// 清空所有表的数据
	tables := []string{
		"sync_runs",
		"connector_configs",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// ConnectorOption 连接器选项函数类型
type ConnectorOption func(*models.ConnectorConfig)

// CreateConnector 创建测试连接器
func (f *TestDataFactory) CreateConnector(opts ...ConnectorOption) *models.ConnectorConfig {
	connector := &models.ConnectorConfig{
		ID:            generateID("conn"),
		Name:          "测试连接器_" + generateSuffix(),
		SystemType:    "s4hana",
		Hostname:      "sap.example.com",
		Port:          44300,
		Client:        "100",
		SystemID:      "TST",
		APIType:       "odata",
		SyncDirection: "inbound",
		SyncFrequency: "manual",
		Status:        "active",
		FieldMappings: models.FieldMappingList{
			{SourceField: "MATNR", TargetField: "material_number", Transformation: "trim"},
		},
		CreatedBy: "test",
		UpdatedBy: "test",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(connector)
	}

	err := f.DB.Create(connector).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test connector: %v", err))
	}

	return connector
}

// SyncRunOption 同步运行选项函数类型
type SyncRunOption func(*models.SyncRun)

// CreateSyncRun 创建测试同步运行记录
func (f *TestDataFactory) CreateSyncRun(connectorID string, opts ...SyncRunOption) *models.SyncRun {
	now := time.Now()
	run := &models.SyncRun{
		ID:          generateID("run"),
		ConnectorID: connectorID,
		Status:      models.SyncRunStatusRunning,
		StartedAt:   now,
		Progress:    0,
		TriggeredBy: "manual",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// 应用选项
	for _, opt := range opts {
		opt(run)
	}

	err := f.DB.Create(run).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test sync run: %v", err))
	}

	return run
}

// WithCompletedRun 将运行标记为已完成并填充统计
func WithCompletedRun(processed, created, updated int64) SyncRunOption {
	return func(run *models.SyncRun) {
		now := time.Now()
		run.Status = models.SyncRunStatusCompleted
		run.Progress = 100
		run.CompletedAt = &now
		run.RecordsProcessed = processed
		run.RecordsCreated = created
		run.RecordsUpdated = updated
	}
}

// WithFailedRun 将运行标记为失败并填充错误码
func WithFailedRun(errorCode, errorMessage string) SyncRunOption {
	return func(run *models.SyncRun) {
		now := time.Now()
		run.Status = models.SyncRunStatusFailed
		run.CompletedAt = &now
		run.ErrorCode = errorCode
		run.ErrorMessage = errorMessage
	}
}

func generateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}

func generateSuffix() string {
	return uuid.New().String()[:8]
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
