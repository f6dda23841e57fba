/*
 * @module service/cleanup/run_cleanup_service
 * @description 同步运行记录清理服务，定期删除超过保留期的终态运行记录
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 定时触发 -> 读取保留期配置 -> 执行清理 -> 记录结果
 * @rules 只清理终态运行，running状态的记录不受保留期影响
 * @dependencies gorm.io/gorm, github.com/robfig/cron/v3
 * @refs service/models/sync_run.go
 */

package cleanup

import (
	"context"
	"dpp-integration-service/service/models"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DefaultRunRetentionDays 终态运行记录的默认保留天数
const DefaultRunRetentionDays = 30

// RunCleanupService 同步运行记录清理服务
type RunCleanupService struct {
	db            *gorm.DB
	retentionDays int
	cron          *cron.Cron
	ctx           context.Context
	cancel        context.CancelFunc
	started       bool
}

// NewRunCleanupService 创建运行记录清理服务实例
// 保留天数通过SYNC_RUN_RETENTION_DAYS环境变量配置
func NewRunCleanupService(db *gorm.DB) *RunCleanupService {
	ctx, cancel := context.WithCancel(context.Background())

	retentionDays := DefaultRunRetentionDays
	if raw := os.Getenv("SYNC_RUN_RETENTION_DAYS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			retentionDays = parsed
		}
	}

	return &RunCleanupService{
		db:            db,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithSeconds()),
		ctx:           ctx,
		cancel:        cancel,
		started:       false,
	}
}

// CleanupExpiredRuns 清理超过保留期的终态运行记录
func (s *RunCleanupService) CleanupExpiredRuns(ctx context.Context) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -s.retentionDays)

	slog.Debug("清理终态同步运行记录", "cutoff_date", cutoffDate.Format("2006-01-02 15:04:05"), "retention_days", s.retentionDays)

	result := s.db.WithContext(ctx).
		Where("status IN ?", []string{models.SyncRunStatusCompleted, models.SyncRunStatusFailed}).
		Where("completed_at < ?", cutoffDate).
		Delete(&models.SyncRun{})

	if result.Error != nil {
		return 0, fmt.Errorf("删除同步运行记录失败: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// StartScheduledCleanup 启动定时清理任务
func (s *RunCleanupService) StartScheduledCleanup() error {
	if s.started {
		return fmt.Errorf("运行记录清理调度器已经启动")
	}

	slog.Info("启动运行记录清理调度器")

	// 每天凌晨3点执行清理任务
	// Cron表达式：秒 分 时 日 月 周
	_, err := s.cron.AddFunc("0 0 3 * * *", func() {
		slog.Info("开始执行定时运行记录清理任务")

		deleted, err := s.CleanupExpiredRuns(s.ctx)
		if err != nil {
			slog.Error("定时运行记录清理任务失败", "error", err)
			return
		}
		slog.Info("定时运行记录清理任务完成", "deleted_count", deleted, "retention_days", s.retentionDays)
	})

	if err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true

	slog.Info("运行记录清理调度器启动成功，将于每天凌晨3点执行清理任务")
	return nil
}

// StopScheduledCleanup 停止定时清理任务
func (s *RunCleanupService) StopScheduledCleanup() {
	if !s.started {
		return
	}

	slog.Info("停止运行记录清理调度器")

	s.cancel()

	if s.cron != nil {
		s.cron.Stop()
	}

	s.started = false
}
