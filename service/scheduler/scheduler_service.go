/*
 * @module service/scheduler/scheduler_service
 * @description 同步调度器，按连接器的同步频率注册cron任务并定时触发同步
 * @architecture 基于cron的调度器模式
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 加载连接器 -> 注册cron条目 -> 到点触发同步 -> 配置变更后Reload重建
 * @rules hourly整点触发，daily凌晨2点触发；manual与realtime连接器不注册cron
 * @dependencies github.com/robfig/cron/v3, gorm.io/gorm
 * @refs service/sap_sync/sync_engine.go, service/models/connector.go
 */

package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"dpp-integration-service/service/models"
	"dpp-integration-service/service/sap_sync"
)

// TriggeredByScheduler 调度器触发来源标识
const TriggeredByScheduler = "scheduler"

// SchedulerService 同步调度器
type SchedulerService struct {
	db     *gorm.DB
	runner sap_sync.SyncRunner

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// NewSchedulerService 创建调度器
func NewSchedulerService(db *gorm.DB, runner sap_sync.SyncRunner) *SchedulerService {
	return &SchedulerService{
		db:      db,
		runner:  runner,
		cron:    cron.New(cron.WithSeconds()),
		entries: make(map[string]cron.EntryID),
	}
}

// Start 启动调度器并加载现有连接器的调度条目
func (s *SchedulerService) Start() error {
	slog.Info("启动同步调度器")

	s.cron.Start()
	if err := s.loadConnectors(); err != nil {
		slog.Error("加载调度连接器失败", "error", err)
		return err
	}

	slog.Info("同步调度器启动完成", "entries", len(s.entries))
	return nil
}

// Stop 停止调度器，等待正在执行的触发回调结束
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()

	if c != nil {
		ctx := c.Stop()
		<-ctx.Done()
	}
	slog.Info("同步调度器已停止")
}

// Reload 配置变更后重建全部调度条目
// cron库不支持可靠的按条目热更新，整体重建最为稳妥
func (s *SchedulerService) Reload() error {
	s.mu.Lock()
	old := s.cron
	s.cron = cron.New(cron.WithSeconds())
	s.entries = make(map[string]cron.EntryID)
	s.cron.Start()
	s.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	return s.loadConnectors()
}

// loadConnectors 为所有配置了hourly/daily频率的连接器注册cron条目
func (s *SchedulerService) loadConnectors() error {
	var connectors []models.ConnectorConfig
	if err := s.db.Find(&connectors).Error; err != nil {
		return err
	}

	for i := range connectors {
		s.scheduleConnector(&connectors[i])
	}
	return nil
}

// scheduleConnector 注册单个连接器的调度条目
func (s *SchedulerService) scheduleConnector(connector *models.ConnectorConfig) {
	spec := connector.CronSpec()
	if spec == "" {
		return
	}

	connectorID := connector.ID
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(spec, func() {
		s.triggerSync(connectorID)
	})
	if err != nil {
		slog.Error("注册调度条目失败",
			"connector_id", connectorID,
			"spec", spec,
			"error", err)
		return
	}

	s.entries[connectorID] = entryID
	slog.Info("调度条目已注册",
		"connector_id", connectorID,
		"frequency", connector.SyncFrequency,
		"spec", spec)
}

// triggerSync 到点触发同步，已在运行或状态不允许时只记录日志
func (s *SchedulerService) triggerSync(connectorID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	run, err := s.runner.Trigger(ctx, connectorID, TriggeredByScheduler)
	if err != nil {
		switch err.(type) {
		case *sap_sync.AlreadyRunningError:
			slog.Info("调度触发跳过: 同步已在运行", "connector_id", connectorID)
		case *sap_sync.InvalidStateError:
			slog.Info("调度触发跳过: 连接器状态不允许", "connector_id", connectorID)
		default:
			slog.Error("调度触发同步失败", "connector_id", connectorID, "error", err)
		}
		return
	}

	slog.Info("调度触发同步成功", "connector_id", connectorID, "run_id", run.ID)
}

// ScheduledConnectorIDs 返回当前已注册调度的连接器ID，诊断用
func (s *SchedulerService) ScheduledConnectorIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}
