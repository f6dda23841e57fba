/*
 * @module service/models/sync_run
 * @description 同步运行记录模型，记录单次同步的进度、日志和统计结果
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow running -> completed/failed，进入终态后记录不可变
 * @rules 日志缓冲只保留最近MaxLogLines条；created+updated不得超过processed
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/sap_sync, service/integration
 */

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxLogLines 单次同步保留的日志行数上限
const MaxLogLines = 25

// 同步运行状态
const (
	SyncRunStatusRunning   = "running"
	SyncRunStatusCompleted = "completed"
	SyncRunStatusFailed    = "failed"
)

// SyncRun 同步运行记录
type SyncRun struct {
	ID               string      `json:"id" gorm:"primaryKey;type:varchar(36)" example:"550e8400-e29b-41d4-a716-446655440000"`
	ConnectorID      string      `json:"connector_id" gorm:"not null;type:varchar(36);index" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status           string      `json:"status" gorm:"not null;size:20;default:'running';index" example:"running"` // running, completed, failed
	StartedAt        time.Time   `json:"started_at" gorm:"not null"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	Progress         int         `json:"progress" gorm:"default:0" example:"0"` // 进度百分比 0-100
	RecordsProcessed int64       `json:"records_processed" gorm:"default:0" example:"0"`
	RecordsCreated   int64       `json:"records_created" gorm:"default:0" example:"0"`
	RecordsUpdated   int64       `json:"records_updated" gorm:"default:0" example:"0"`
	LogLines         LogLineList `json:"log_lines" gorm:"type:jsonb"`
	ErrorCode        string      `json:"error_code,omitempty" gorm:"size:50"`
	ErrorMessage     string      `json:"error_message,omitempty" gorm:"type:text"`
	TriggeredBy      string      `json:"triggered_by" gorm:"not null;default:'manual';size:20" example:"manual"` // manual, scheduler, mqtt
	CreatedAt        time.Time   `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time   `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Connector *ConnectorConfig `json:"connector,omitempty" gorm:"foreignKey:ConnectorID"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	return r.ValidateCounts()
}

// ValidateCounts 验证记录计数不变式
func (r *SyncRun) ValidateCounts() error {
	if r.RecordsProcessed < 0 || r.RecordsCreated < 0 || r.RecordsUpdated < 0 {
		return errors.New("记录计数不能为负数")
	}
	if r.RecordsCreated+r.RecordsUpdated > r.RecordsProcessed {
		return errors.New("创建与更新的记录数之和不能超过已处理记录数")
	}
	return nil
}

// AppendLog 追加一行日志，超过上限时丢弃最旧的行
func (r *SyncRun) AppendLog(line string) {
	r.LogLines = append(r.LogLines, line)
	if len(r.LogLines) > MaxLogLines {
		r.LogLines = r.LogLines[len(r.LogLines)-MaxLogLines:]
	}
}

// IsTerminal 判断运行是否已进入终态
func (r *SyncRun) IsTerminal() bool {
	return r.Status == SyncRunStatusCompleted || r.Status == SyncRunStatusFailed
}

// IsRunning 判断运行是否仍在进行
func (r *SyncRun) IsRunning() bool {
	return r.Status == SyncRunStatusRunning
}

// Duration 获取运行时长，未结束时返回nil
func (r *SyncRun) Duration() *time.Duration {
	if r.CompletedAt == nil {
		return nil
	}
	d := r.CompletedAt.Sub(r.StartedAt)
	return &d
}

// StatsLine 生成终态统计日志行
func (r *SyncRun) StatsLine() string {
	return fmt.Sprintf("[SYS] 同步完成: +%d created / ~%d updated (processed %d)",
		r.RecordsCreated, r.RecordsUpdated, r.RecordsProcessed)
}

// SyncRunStats 同步运行的对外统计结构
type SyncRunStats struct {
	RecordsProcessed int64 `json:"records_processed" example:"120"`
	RecordsCreated   int64 `json:"records_created" example:"80"`
	RecordsUpdated   int64 `json:"records_updated" example:"40"`
}

// Stats 提取运行的统计结果
func (r *SyncRun) Stats() SyncRunStats {
	return SyncRunStats{
		RecordsProcessed: r.RecordsProcessed,
		RecordsCreated:   r.RecordsCreated,
		RecordsUpdated:   r.RecordsUpdated,
	}
}
