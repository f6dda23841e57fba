/*
 * @module service/integration/service_test
 * @description 连接器配置存储服务单元测试
 * @architecture 测试层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 内存数据库 -> 服务调用 -> 断言持久化结果
 * @rules 使用SQLite内存数据库隔离测试
 * @dependencies github.com/stretchr/testify, gorm.io/driver/sqlite
 * @refs service.go, stats.go
 */

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dpp-integration-service/service/meta"
	"dpp-integration-service/service/models"
)

type IntegrationServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *IntegrationService
	ctx     context.Context
}

func (suite *IntegrationServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)

	err = db.AutoMigrate(&models.ConnectorConfig{}, &models.SyncRun{})
	require.NoError(suite.T(), err)

	suite.db = db
	suite.service = NewIntegrationService(db)
	suite.ctx = context.Background()
}

// validConnector 构造一个合法的连接器配置
func (suite *IntegrationServiceTestSuite) validConnector() *models.ConnectorConfig {
	return &models.ConnectorConfig{
		Name:          "测试S4连接器",
		SystemType:    meta.SystemTypeS4HANA,
		Hostname:      "sap-prd.example.com",
		Port:          44300,
		Client:        "100",
		SystemID:      "PRD",
		APIType:       meta.APITypeOData,
		SyncDirection: meta.SyncDirectionInbound,
		SyncFrequency: meta.SyncFrequencyManual,
		FieldMappings: models.FieldMappingList{
			{SourceField: "MATNR", TargetField: "sku", Transformation: "trim"},
			{SourceField: "MAKTX", TargetField: "name"},
		},
	}
}

func (suite *IntegrationServiceTestSuite) TestCreateConnector() {
	connector := suite.validConnector()
	err := suite.service.CreateConnector(suite.ctx, connector)
	require.NoError(suite.T(), err)

	assert.NotEmpty(suite.T(), connector.ID)
	assert.Equal(suite.T(), meta.ConnectorStatusPending, connector.Status)

	saved, err := suite.service.GetConnector(suite.ctx, connector.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "测试S4连接器", saved.Name)
	assert.Len(suite.T(), saved.FieldMappings, 2)
}

func (suite *IntegrationServiceTestSuite) TestCreateConnector_AppliesDefaults() {
	connector := &models.ConnectorConfig{
		Name:       "最小配置",
		SystemType: meta.SystemTypeECC,
		Hostname:   "ecc.example.com",
		Client:     "200",
		SystemID:   "EC1",
	}
	err := suite.service.CreateConnector(suite.ctx, connector)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), meta.SyncFrequencyManual, connector.SyncFrequency)
	assert.Equal(suite.T(), meta.SyncDirectionInbound, connector.SyncDirection)
	assert.Equal(suite.T(), meta.APITypeOData, connector.APIType)
	assert.Equal(suite.T(), 44300, connector.Port)
}

func (suite *IntegrationServiceTestSuite) TestCreateConnector_ValidationErrors() {
	tests := []struct {
		name          string
		modify        func(*models.ConnectorConfig)
		expectedField string
	}{
		{
			name:          "名称为空",
			modify:        func(c *models.ConnectorConfig) { c.Name = "" },
			expectedField: "name",
		},
		{
			name:          "主机名为空",
			modify:        func(c *models.ConnectorConfig) { c.Hostname = "" },
			expectedField: "hostname",
		},
		{
			name:          "主机名格式无效",
			modify:        func(c *models.ConnectorConfig) { c.Hostname = "-bad-host-" },
			expectedField: "hostname",
		},
		{
			name:          "端口越界",
			modify:        func(c *models.ConnectorConfig) { c.Port = 70000 },
			expectedField: "port",
		},
		{
			name:          "集团编号为空",
			modify:        func(c *models.ConnectorConfig) { c.Client = "" },
			expectedField: "client",
		},
		{
			name:          "集团编号非3位数字",
			modify:        func(c *models.ConnectorConfig) { c.Client = "10A" },
			expectedField: "client",
		},
		{
			name:          "系统标识为空",
			modify:        func(c *models.ConnectorConfig) { c.SystemID = "" },
			expectedField: "system_id",
		},
		{
			name:          "系统类型无效",
			modify:        func(c *models.ConnectorConfig) { c.SystemType = "r3" },
			expectedField: "system_type",
		},
		{
			name: "映射源字段为空",
			modify: func(c *models.ConnectorConfig) {
				c.FieldMappings = models.FieldMappingList{{TargetField: "sku"}}
			},
			expectedField: "field_mappings[0].source_field",
		},
		{
			name: "目标字段重复",
			modify: func(c *models.ConnectorConfig) {
				c.FieldMappings = models.FieldMappingList{
					{SourceField: "MATNR", TargetField: "sku"},
					{SourceField: "EAN11", TargetField: "sku"},
				}
			},
			expectedField: "field_mappings",
		},
		{
			name: "转换类型不支持",
			modify: func(c *models.ConnectorConfig) {
				c.FieldMappings = models.FieldMappingList{
					{SourceField: "MATNR", TargetField: "sku", Transformation: "reverse"},
				}
			},
			expectedField: "field_mappings[0].transformation",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			connector := suite.validConnector()
			tt.modify(connector)

			err := suite.service.CreateConnector(suite.ctx, connector)
			require.Error(suite.T(), err)

			verr, ok := err.(*ValidationError)
			require.True(suite.T(), ok, "期望ValidationError, 实际: %T", err)
			assert.Contains(suite.T(), verr.Fields, tt.expectedField)

			// 校验失败不落库
			var count int64
			suite.db.Model(&models.ConnectorConfig{}).Count(&count)
			assert.Zero(suite.T(), count)
		})
	}
}

func (suite *IntegrationServiceTestSuite) TestCreateConnector_AggregatesAllProblems() {
	connector := suite.validConnector()
	connector.Name = ""
	connector.Port = 0
	connector.APIType = "soap"

	err := suite.service.CreateConnector(suite.ctx, connector)
	require.Error(suite.T(), err)

	verr, ok := err.(*ValidationError)
	require.True(suite.T(), ok)
	assert.Len(suite.T(), verr.Fields, 3)
}

func (suite *IntegrationServiceTestSuite) TestGetConnector_NotFound() {
	_, err := suite.service.GetConnector(suite.ctx, "nonexistent-id")
	require.Error(suite.T(), err)

	_, ok := err.(*NotFoundError)
	assert.True(suite.T(), ok)
}

func (suite *IntegrationServiceTestSuite) TestListConnectors() {
	first := suite.validConnector()
	require.NoError(suite.T(), suite.service.CreateConnector(suite.ctx, first))

	second := suite.validConnector()
	second.Name = "第二个连接器"
	require.NoError(suite.T(), suite.service.CreateConnector(suite.ctx, second))

	connectors, err := suite.service.ListConnectors(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), connectors, 2)
}

func (suite *IntegrationServiceTestSuite) TestUpdateConnector_PartialMerge() {
	connector := suite.validConnector()
	require.NoError(suite.T(), suite.service.CreateConnector(suite.ctx, connector))
	originalID := connector.ID

	updated, err := suite.service.UpdateConnector(suite.ctx, originalID, map[string]interface{}{
		"name": "更名后的连接器",
		"port": 8443,
	})
	require.NoError(suite.T(), err)

	// 更新的字段生效
	assert.Equal(suite.T(), "更名后的连接器", updated.Name)
	assert.Equal(suite.T(), 8443, updated.Port)
	// 未提及的字段保持原值
	assert.Equal(suite.T(), "sap-prd.example.com", updated.Hostname)
	assert.Equal(suite.T(), meta.SystemTypeS4HANA, updated.SystemType)
	assert.Len(suite.T(), updated.FieldMappings, 2)
	assert.Equal(suite.T(), originalID, updated.ID)
}

func (suite *IntegrationServiceTestSuite) TestUpdateConnector_StatusImmutable() {
	connector := suite.validConnector()
	require.NoError(suite.T(), suite.service.CreateConnector(suite.ctx, connector))

	updated, err := suite.service.UpdateConnector(suite.ctx, connector.ID, map[string]interface{}{
		"status": meta.ConnectorStatusActive,
		"id":     "attacker-chosen-id",
		"name":   "正常更新",
	})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), meta.ConnectorStatusPending, updated.Status)
	assert.Equal(suite.T(), connector.ID, updated.ID)
	assert.Equal(suite.T(), "正常更新", updated.Name)
}

func (suite *IntegrationServiceTestSuite) TestUpdateConnector_InvalidMergeRejected() {
	connector := suite.validConnector()
	require.NoError(suite.T(), suite.service.CreateConnector(suite.ctx, connector))

	_, err := suite.service.UpdateConnector(suite.ctx, connector.ID, map[string]interface{}{
		"hostname": "",
	})
	require.Error(suite.T(), err)
	_, ok := err.(*ValidationError)
	assert.True(suite.T(), ok)

	// 数据库中的配置未被破坏
	saved, err := suite.service.GetConnector(suite.ctx, connector.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "sap-prd.example.com", saved.Hostname)
}

func (suite *IntegrationServiceTestSuite) TestUpdateConnector_FieldMappingsFromJSON() {
	connector := suite.validConnector()
	require.NoError(suite.T(), suite.service.CreateConnector(suite.ctx, connector))

	// 模拟HTTP层解码出的泛型JSON形态
	updated, err := suite.service.UpdateConnector(suite.ctx, connector.ID, map[string]interface{}{
		"field_mappings": []interface{}{
			map[string]interface{}{
				"source_field":   "EAN11",
				"target_field":   "gtin",
				"transformation": "uppercase",
			},
		},
	})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), updated.FieldMappings, 1)
	assert.Equal(suite.T(), "EAN11", updated.FieldMappings[0].SourceField)
	assert.Equal(suite.T(), "uppercase", updated.FieldMappings[0].Transformation)
}

func (suite *IntegrationServiceTestSuite) TestDeleteConnector_CascadesRuns() {
	connector := suite.validConnector()
	require.NoError(suite.T(), suite.service.CreateConnector(suite.ctx, connector))

	run := &models.SyncRun{ConnectorID: connector.ID, Status: models.SyncRunStatusCompleted}
	require.NoError(suite.T(), suite.db.Create(run).Error)

	require.NoError(suite.T(), suite.service.DeleteConnector(suite.ctx, connector.ID))

	_, err := suite.service.GetConnector(suite.ctx, connector.ID)
	assert.Error(suite.T(), err)

	var count int64
	suite.db.Model(&models.SyncRun{}).Where("connector_id = ?", connector.ID).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

func (suite *IntegrationServiceTestSuite) TestUpdateConnectorStatus() {
	connector := suite.validConnector()
	require.NoError(suite.T(), suite.service.CreateConnector(suite.ctx, connector))

	checkedAt := time.Now()
	err := suite.service.UpdateConnectorStatus(suite.ctx, connector.ID, meta.ConnectorStatusActive, checkedAt)
	require.NoError(suite.T(), err)

	saved, err := suite.service.GetConnector(suite.ctx, connector.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), meta.ConnectorStatusActive, saved.Status)
	require.NotNil(suite.T(), saved.LastCheckAt)

	// 不存在的连接器
	err = suite.service.UpdateConnectorStatus(suite.ctx, "nonexistent", meta.ConnectorStatusError, checkedAt)
	_, ok := err.(*NotFoundError)
	assert.True(suite.T(), ok)

	// 非法状态
	err = suite.service.UpdateConnectorStatus(suite.ctx, connector.ID, "broken", checkedAt)
	assert.Error(suite.T(), err)
}

func (suite *IntegrationServiceTestSuite) TestGetConnectorStats() {
	connector := suite.validConnector()
	require.NoError(suite.T(), suite.service.CreateConnector(suite.ctx, connector))

	now := time.Now()
	runs := []*models.SyncRun{
		{ConnectorID: connector.ID, Status: models.SyncRunStatusCompleted,
			RecordsProcessed: 100, RecordsCreated: 60, RecordsUpdated: 40,
			StartedAt: now.Add(-2 * time.Hour)},
		{ConnectorID: connector.ID, Status: models.SyncRunStatusCompleted,
			RecordsProcessed: 50, RecordsCreated: 30, RecordsUpdated: 20,
			StartedAt: now.Add(-1 * time.Hour)},
		{ConnectorID: connector.ID, Status: models.SyncRunStatusFailed,
			StartedAt: now.Add(-30 * time.Minute)},
	}
	for _, run := range runs {
		require.NoError(suite.T(), suite.db.Create(run).Error)
	}

	stats, err := suite.service.GetConnectorStats(suite.ctx, connector.ID)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), int64(3), stats.TotalRuns)
	assert.Equal(suite.T(), int64(2), stats.CompletedRuns)
	assert.Equal(suite.T(), int64(1), stats.FailedRuns)
	assert.InDelta(suite.T(), 66.67, stats.SuccessRate, 0.01)
	assert.Equal(suite.T(), int64(150), stats.RecordsProcessed)
	assert.Equal(suite.T(), int64(90), stats.RecordsCreated)
	assert.Equal(suite.T(), int64(60), stats.RecordsUpdated)
	require.NotNil(suite.T(), stats.LastRunAt)
}

func (suite *IntegrationServiceTestSuite) TestGetConnectorStats_NoHistory() {
	connector := suite.validConnector()
	require.NoError(suite.T(), suite.service.CreateConnector(suite.ctx, connector))

	stats, err := suite.service.GetConnectorStats(suite.ctx, connector.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), stats.TotalRuns)
	assert.Equal(suite.T(), float64(0), stats.SuccessRate)
	assert.Nil(suite.T(), stats.LastRunAt)
}

func (suite *IntegrationServiceTestSuite) TestListSyncRuns() {
	connector := suite.validConnector()
	require.NoError(suite.T(), suite.service.CreateConnector(suite.ctx, connector))

	now := time.Now()
	for i := 0; i < 5; i++ {
		run := &models.SyncRun{
			ConnectorID: connector.ID,
			Status:      models.SyncRunStatusCompleted,
			StartedAt:   now.Add(time.Duration(-i) * time.Hour),
		}
		require.NoError(suite.T(), suite.db.Create(run).Error)
	}

	runs, err := suite.service.ListSyncRuns(suite.ctx, connector.ID, 3)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), runs, 3)
	// 按开始时间倒序
	assert.True(suite.T(), runs[0].StartedAt.After(runs[1].StartedAt))
	assert.True(suite.T(), runs[1].StartedAt.After(runs[2].StartedAt))

	// 连接器不存在
	_, err = suite.service.ListSyncRuns(suite.ctx, "nonexistent", 10)
	_, ok := err.(*NotFoundError)
	assert.True(suite.T(), ok)
}

func TestIntegrationService(t *testing.T) {
	suite.Run(t, new(IntegrationServiceTestSuite))
}
