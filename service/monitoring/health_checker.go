/*
 * @module service/monitoring/health_checker
 * @description 连接器健康检查器，周期性探测SAP连通性并聚合整体健康状态
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 连接器列表 -> 连通性探测 -> 连续失败计数 -> 状态回写 -> 整体状态聚合
 * @rules 连续失败1-2次降级为degraded，3次及以上标记error；探测结果必须回写连接器状态
 * @dependencies gorm.io/gorm
 * @refs service/sap_sync/simulator.go, api/controllers/sap_health_controller.go
 */

package monitoring

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"dpp-integration-service/service/meta"
	"dpp-integration-service/service/models"
	"dpp-integration-service/service/sap_sync"
)

const (
	// DefaultCheckInterval 默认探测周期
	DefaultCheckInterval = 30 * time.Second
	// degradedThreshold 进入degraded的连续失败次数
	degradedThreshold = 1
	// errorThreshold 进入error的连续失败次数
	errorThreshold = 3
)

// HealthChecker 连接器健康检查器
type HealthChecker struct {
	db        *gorm.DB
	client    sap_sync.SAPClient
	interval  time.Duration
	collector *MetricsCollector

	mutex      sync.RWMutex
	failures   map[string]int
	lastStatus *models.SAPHealthStatus

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(db *gorm.DB, client sap_sync.SAPClient) *HealthChecker {
	return &HealthChecker{
		db:       db,
		client:   client,
		interval: DefaultCheckInterval,
		failures: make(map[string]int),
		stopCh:   make(chan struct{}),
	}
}

// WithInterval 替换探测周期
func (h *HealthChecker) WithInterval(interval time.Duration) *HealthChecker {
	h.interval = interval
	return h
}

// WithCollector 挂接指标收集器，每轮探测结果写入健康gauge与探测时长直方图
func (h *HealthChecker) WithCollector(collector *MetricsCollector) *HealthChecker {
	h.collector = collector
	return h
}

// Start 启动后台周期探测
func (h *HealthChecker) Start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), h.interval)
				if _, err := h.CheckAll(ctx); err != nil {
					slog.Warn("健康检查轮次失败", "error", err)
				}
				cancel()
			}
		}
	}()
	slog.Info("连接器健康检查器已启动", "interval", h.interval)
}

// Stop 停止后台探测
func (h *HealthChecker) Stop() {
	close(h.stopCh)
	h.wg.Wait()
}

// CheckAll 对全部未停用的连接器执行一轮探测并聚合整体状态
func (h *HealthChecker) CheckAll(ctx context.Context) (*models.SAPHealthStatus, error) {
	var connectors []models.ConnectorConfig
	err := h.db.WithContext(ctx).
		Where("status <> ?", meta.ConnectorStatusInactive).
		Order("created_at").
		Find(&connectors).Error
	if err != nil {
		return nil, err
	}

	status := &models.SAPHealthStatus{
		Timestamp:  time.Now(),
		Connectors: make([]models.ConnectorHealth, 0, len(connectors)),
	}

	for i := range connectors {
		health := h.checkOne(ctx, &connectors[i])
		status.Connectors = append(status.Connectors, *health)
	}

	status.Overall = deriveOverall(status.Connectors)

	h.mutex.Lock()
	h.lastStatus = status
	h.mutex.Unlock()

	if h.collector != nil {
		h.collector.ObserveHealth(status)
	}

	return status, nil
}

// checkOne 探测单个连接器并回写状态
func (h *HealthChecker) checkOne(ctx context.Context, connector *models.ConnectorConfig) *models.ConnectorHealth {
	health := &models.ConnectorHealth{
		ConnectorID: connector.ID,
		LastCheck:   time.Now(),
	}

	latency, err := h.client.TestConnection(ctx, connector)

	h.mutex.Lock()
	if err != nil {
		h.failures[connector.ID]++
	} else {
		h.failures[connector.ID] = 0
	}
	health.ConsecutiveFailures = h.failures[connector.ID]
	h.mutex.Unlock()

	if err != nil {
		health.Error = err.Error()
		switch {
		case health.ConsecutiveFailures >= errorThreshold:
			health.Status = meta.ConnectorStatusError
		case health.ConsecutiveFailures >= degradedThreshold:
			health.Status = meta.ConnectorStatusDegraded
		default:
			health.Status = connector.Status
		}
	} else {
		health.ResponseTime = latency
		health.Status = meta.ConnectorStatusActive
	}

	updateErr := h.db.Model(&models.ConnectorConfig{}).
		Where("id = ?", connector.ID).
		Updates(map[string]interface{}{
			"status":        health.Status,
			"last_check_at": health.LastCheck,
		}).Error
	if updateErr != nil {
		slog.Warn("健康状态回写失败", "connector_id", connector.ID, "error", updateErr)
	}

	return health
}

// LastStatus 返回最近一轮探测的聚合结果，尚未探测过返回nil
func (h *HealthChecker) LastStatus() *models.SAPHealthStatus {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.lastStatus
}

// deriveOverall 由各连接器状态聚合整体健康状态
// 无连接器或全部active为healthy；半数及以上error为critical；其余为degraded
func deriveOverall(connectors []models.ConnectorHealth) string {
	if len(connectors) == 0 {
		return models.OverallHealthy
	}

	errorCount := 0
	healthyCount := 0
	for _, c := range connectors {
		switch c.Status {
		case meta.ConnectorStatusError:
			errorCount++
		case meta.ConnectorStatusActive:
			healthyCount++
		}
	}

	if healthyCount == len(connectors) {
		return models.OverallHealthy
	}
	if errorCount*2 >= len(connectors) {
		return models.OverallCritical
	}
	return models.OverallDegraded
}
