/*
 * @module service/models/health_models
 * @description 连接器健康状态模型，供健康检查器和SAP健康接口使用
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 连通性探测 -> 健康状态计算 -> 状态上报
 * @rules overall由各连接器状态聚合得出
 * @dependencies time
 * @refs service/monitoring, api/controllers/sap_health_controller.go
 */

package models

import "time"

// 整体健康状态
const (
	OverallHealthy  = "healthy"
	OverallDegraded = "degraded"
	OverallCritical = "critical"
)

// ConnectorHealth 单个连接器的健康状态
type ConnectorHealth struct {
	ConnectorID         string        `json:"connector_id"`
	Status              string        `json:"status"` // pending, active, degraded, error, inactive
	LastCheck           time.Time     `json:"last_check"`
	ResponseTime        time.Duration `json:"response_time"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Error               string        `json:"error,omitempty"`
}

// SAPHealthStatus SAP集成整体健康状态
type SAPHealthStatus struct {
	Overall    string            `json:"overall"` // healthy, degraded, critical
	Timestamp  time.Time         `json:"timestamp"`
	Connectors []ConnectorHealth `json:"connectors"`
}

// ConnectorStatistics 连接器生命周期统计
type ConnectorStatistics struct {
	ConnectorID      string     `json:"connector_id"`
	TotalRuns        int64      `json:"total_runs"`
	CompletedRuns    int64      `json:"completed_runs"`
	FailedRuns       int64      `json:"failed_runs"`
	SuccessRate      float64    `json:"success_rate"` // 百分比 0-100
	RecordsProcessed int64      `json:"records_processed"`
	RecordsCreated   int64      `json:"records_created"`
	RecordsUpdated   int64      `json:"records_updated"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
}
