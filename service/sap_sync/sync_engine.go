/*
 * @module service/sap_sync/sync_engine
 * @description 同步引擎，管理连接器同步运行的生命周期：触发、进度推进、终态落库
 * @architecture 服务层 - 并发引擎
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow Trigger -> 并发守卫 -> 创建running记录 -> goroutine定时推进进度 -> 客户端结果决定终态
 * @rules 每个连接器至多一个运行中的同步；终态前进度不超过95；定时器在全部退出路径上释放
 * @dependencies gorm.io/gorm
 * @refs simulator.go, service/sap_errors, service/integration
 */

package sap_sync

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"gorm.io/gorm"

	"dpp-integration-service/service/meta"
	"dpp-integration-service/service/models"
	"dpp-integration-service/service/sap_errors"
)

const (
	// DefaultTickInterval 进度推进的默认节拍
	DefaultTickInterval = 800 * time.Millisecond
	// MaxProgressBeforeTerminal 终态前允许的最大进度
	MaxProgressBeforeTerminal = 95
	// maxProgressStep 单次节拍的最大进度增量
	maxProgressStep = 10
)

// TriggeredByManual 手动触发来源标识
const TriggeredByManual = "manual"

// RunPublisher 同步运行事件发布接口，由事件子系统实现
type RunPublisher interface {
	PublishProgress(run *models.SyncRun)
	PublishTerminal(run *models.SyncRun)
}

// SyncRunner 同步触发入口抽象，供控制器、调度器和MQTT触发器共用
type SyncRunner interface {
	Trigger(ctx context.Context, connectorID, triggeredBy string) (*models.SyncRun, error)
	TestConnection(ctx context.Context, connectorID string) (*models.ConnectorHealth, error)
}

// SyncEngine 同步引擎
type SyncEngine struct {
	db        *gorm.DB
	client    SAPClient
	publisher RunPublisher
	interval  time.Duration

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
	stopped bool
}

// NewSyncEngine 创建同步引擎，使用模拟SAP客户端与默认节拍
func NewSyncEngine(db *gorm.DB) *SyncEngine {
	return &SyncEngine{
		db:       db,
		client:   NewSimulatedSAPClient(),
		interval: DefaultTickInterval,
		running:  make(map[string]context.CancelFunc),
	}
}

// WithClient 替换SAP客户端，测试与真实环境接入使用
func (e *SyncEngine) WithClient(client SAPClient) *SyncEngine {
	e.client = client
	return e
}

// WithInterval 替换进度节拍
func (e *SyncEngine) WithInterval(interval time.Duration) *SyncEngine {
	e.interval = interval
	return e
}

// WithPublisher 附加运行事件发布器
func (e *SyncEngine) WithPublisher(publisher RunPublisher) *SyncEngine {
	e.publisher = publisher
	return e
}

// Trigger 触发一次同步，立即返回running状态的运行记录
func (e *SyncEngine) Trigger(ctx context.Context, connectorID, triggeredBy string) (*models.SyncRun, error) {
	var connector models.ConnectorConfig
	if err := e.db.WithContext(ctx).First(&connector, "id = ?", connectorID).Error; err != nil {
		return nil, err
	}

	if !connector.CanSync() {
		return nil, &InvalidStateError{ConnectorID: connectorID, Status: connector.Status}
	}

	// 并发守卫: 标记必须在goroutine启动前占住
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil, &InvalidStateError{ConnectorID: connectorID, Status: meta.ConnectorStatusInactive}
	}
	if _, exists := e.running[connectorID]; exists {
		e.mu.Unlock()
		return nil, &AlreadyRunningError{ConnectorID: connectorID}
	}
	runCtx, cancel := context.WithCancel(context.Background())
	e.running[connectorID] = cancel
	e.mu.Unlock()

	run := &models.SyncRun{
		ConnectorID: connectorID,
		Status:      models.SyncRunStatusRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   time.Now(),
	}
	run.AppendLog(time.Now().Format("15:04:05") + " [SYS] 同步已启动: " + connector.Name)
	run.AppendLog(time.Now().Format("15:04:05") + " [NET] 正在建立SAP连接...")

	if err := e.db.Create(run).Error; err != nil {
		e.release(connectorID)
		cancel()
		return nil, err
	}

	e.wg.Add(1)
	go e.execute(runCtx, &connector, run)

	slog.Info("同步已触发",
		"connector_id", connectorID,
		"run_id", run.ID,
		"triggered_by", triggeredBy)
	return run, nil
}

// execute 运行goroutine：节拍推进进度，客户端结果决定终态
func (e *SyncEngine) execute(ctx context.Context, connector *models.ConnectorConfig, run *models.SyncRun) {
	defer e.wg.Done()
	defer e.release(connector.ID)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- e.client.Execute(ctx, connector, run)
	}()

	for {
		select {
		case <-ctx.Done():
			e.finalize(run, ctx.Err())
			return
		case err := <-resultCh:
			e.finalize(run, err)
			return
		case <-ticker.C:
			e.advance(run)
		}
	}
}

// advance 推进一次进度并持久化
func (e *SyncEngine) advance(run *models.SyncRun) {
	run.Progress += rand.Intn(maxProgressStep + 1)
	if run.Progress > MaxProgressBeforeTerminal {
		run.Progress = MaxProgressBeforeTerminal
	}
	run.AppendLog(RandomProgressLine())

	err := e.db.Model(&models.SyncRun{}).Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"progress":  run.Progress,
			"log_lines": run.LogLines,
		}).Error
	if err != nil {
		slog.Warn("同步进度持久化失败", "run_id", run.ID, "error", err)
	}

	if e.publisher != nil {
		e.publisher.PublishProgress(run)
	}
}

// finalize 将运行落入终态
func (e *SyncEngine) finalize(run *models.SyncRun, execErr error) {
	now := time.Now()
	run.CompletedAt = &now

	if execErr != nil {
		classified := sap_errors.ClassifyAndLog(run.ConnectorID, execErr)
		run.Status = models.SyncRunStatusFailed
		run.ErrorCode = classified.Code
		run.ErrorMessage = classified.UserMessage
		run.AppendLog(now.Format("15:04:05") + " [SYS] 同步失败: " + classified.Code)
	} else {
		run.Status = models.SyncRunStatusCompleted
		run.Progress = 100
		run.AppendLog(now.Format("15:04:05") + " " + run.StatsLine())
	}

	err := e.db.Model(&models.SyncRun{}).Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":            run.Status,
			"progress":          run.Progress,
			"completed_at":      run.CompletedAt,
			"records_processed": run.RecordsProcessed,
			"records_created":   run.RecordsCreated,
			"records_updated":   run.RecordsUpdated,
			"error_code":        run.ErrorCode,
			"error_message":     run.ErrorMessage,
			"log_lines":         run.LogLines,
		}).Error
	if err != nil {
		slog.Error("同步终态持久化失败", "run_id", run.ID, "error", err)
	}

	if e.publisher != nil {
		e.publisher.PublishTerminal(run)
	}

	slog.Info("同步已结束",
		"connector_id", run.ConnectorID,
		"run_id", run.ID,
		"status", run.Status,
		"records_processed", run.RecordsProcessed)
}

// release 释放连接器的并发守卫
func (e *SyncEngine) release(connectorID string) {
	e.mu.Lock()
	delete(e.running, connectorID)
	e.mu.Unlock()
}

// IsRunning 查询连接器是否有同步在运行
func (e *SyncEngine) IsRunning(connectorID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, exists := e.running[connectorID]
	return exists
}

// TestConnection 探测连接器连通性并回写连接器状态
func (e *SyncEngine) TestConnection(ctx context.Context, connectorID string) (*models.ConnectorHealth, error) {
	var connector models.ConnectorConfig
	if err := e.db.WithContext(ctx).First(&connector, "id = ?", connectorID).Error; err != nil {
		return nil, err
	}

	health := &models.ConnectorHealth{
		ConnectorID: connectorID,
		LastCheck:   time.Now(),
	}

	latency, err := e.client.TestConnection(ctx, &connector)
	if err != nil {
		classified := sap_errors.Classify(err)
		health.Status = meta.ConnectorStatusError
		health.Error = classified.UserMessage
	} else {
		health.Status = meta.ConnectorStatusActive
		health.ResponseTime = latency
	}

	updateErr := e.db.Model(&models.ConnectorConfig{}).Where("id = ?", connectorID).
		Updates(map[string]interface{}{
			"status":        health.Status,
			"last_check_at": health.LastCheck,
		}).Error
	if updateErr != nil {
		slog.Warn("连通性检查状态回写失败", "connector_id", connectorID, "error", updateErr)
	}

	return health, nil
}

// Stop 优雅关闭引擎：取消所有运行中的同步并等待goroutine退出
func (e *SyncEngine) Stop() {
	e.mu.Lock()
	e.stopped = true
	for _, cancel := range e.running {
		cancel()
	}
	e.mu.Unlock()

	e.wg.Wait()
	slog.Info("同步引擎已停止")
}
