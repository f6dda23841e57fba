/*
 * @module service/integration/stats
 * @description 连接器同步历史查询与统计聚合
 * @architecture 服务层 - 查询服务
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 同步历史查询 -> 聚合计算 -> 统计视图返回
 * @rules 成功率只统计终态运行；无历史时返回零值统计而非错误
 * @dependencies gorm.io/gorm
 * @refs service/models/sync_run.go, api/controllers/connector_controller.go
 */

package integration

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"dpp-integration-service/service/models"
)

// DefaultRunListLimit 同步历史默认返回条数
const DefaultRunListLimit = 20

// ListSyncRuns 查询连接器的同步历史，按开始时间倒序
func (s *IntegrationService) ListSyncRuns(ctx context.Context, connectorID string, limit int) ([]models.SyncRun, error) {
	if _, err := s.GetConnector(ctx, connectorID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = DefaultRunListLimit
	}

	var runs []models.SyncRun
	err := s.db.WithContext(ctx).
		Where("connector_id = ?", connectorID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("查询同步历史失败: %w", err)
	}
	return runs, nil
}

// GetSyncRun 按ID查询单次同步运行
func (s *IntegrationService) GetSyncRun(ctx context.Context, runID string) (*models.SyncRun, error) {
	var run models.SyncRun
	err := s.db.WithContext(ctx).First(&run, "id = ?", runID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("同步运行", runID)
		}
		return nil, fmt.Errorf("查询同步运行失败: %w", err)
	}
	return &run, nil
}

// GetConnectorStats 聚合连接器的同步统计
func (s *IntegrationService) GetConnectorStats(ctx context.Context, connectorID string) (*models.ConnectorStatistics, error) {
	if _, err := s.GetConnector(ctx, connectorID); err != nil {
		return nil, err
	}

	var runs []models.SyncRun
	err := s.db.WithContext(ctx).
		Where("connector_id = ?", connectorID).
		Order("started_at DESC").
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("查询同步历史失败: %w", err)
	}

	stats := &models.ConnectorStatistics{ConnectorID: connectorID}
	for _, run := range runs {
		stats.TotalRuns++
		switch run.Status {
		case models.SyncRunStatusCompleted:
			stats.CompletedRuns++
		case models.SyncRunStatusFailed:
			stats.FailedRuns++
		}
		stats.RecordsProcessed += run.RecordsProcessed
		stats.RecordsCreated += run.RecordsCreated
		stats.RecordsUpdated += run.RecordsUpdated
		if stats.LastRunAt == nil || run.StartedAt.After(*stats.LastRunAt) {
			t := run.StartedAt
			stats.LastRunAt = &t
		}
	}

	if terminal := stats.CompletedRuns + stats.FailedRuns; terminal > 0 {
		stats.SuccessRate = float64(stats.CompletedRuns) / float64(terminal) * 100
	}
	return stats, nil
}
