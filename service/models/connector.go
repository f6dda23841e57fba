/*
 * @module service/models/connector
 * @description SAP连接器配置模型，包含连接坐标、同步策略、字段映射和健康状态
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 配置创建(pending) -> 连通性检查(active/error) -> 同步执行(degraded/error) -> 停用(inactive)
 * @rules 状态字段只能由健康检查/同步子系统变更，用户保存配置不影响状态
 * @dependencies gorm.io/gorm, github.com/google/uuid, service/meta
 * @refs service/integration, service/sap_sync
 */

package models

import (
	"dpp-integration-service/service/meta"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConnectorConfig SAP连接器配置模型
type ConnectorConfig struct {
	ID            string           `json:"id" gorm:"primaryKey;type:varchar(36)" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name          string           `json:"name" gorm:"not null;size:100" example:"生产S/4HANA"`
	Description   string           `json:"description,omitempty" gorm:"type:text" example:"生产环境物料主数据同步"`
	SystemType    string           `json:"system_type" gorm:"not null;size:20;index" example:"s4hana"` // s4hana, ecc, business_one
	Hostname      string           `json:"hostname" gorm:"not null;size:255" example:"sap.example.com"`
	Port          int              `json:"port" gorm:"not null" example:"44300"`
	Client        string           `json:"client" gorm:"not null;size:10" example:"100"`
	SystemID      string           `json:"system_id" gorm:"not null;size:10" example:"PRD"`
	APIType       string           `json:"api_type" gorm:"not null;size:10" example:"odata"` // odata, rfc, idoc
	OAuthEnabled  bool             `json:"oauth_enabled" gorm:"default:false" example:"true"`
	SyncDirection string           `json:"sync_direction" gorm:"not null;size:20" example:"bidirectional"` // inbound, outbound, bidirectional
	SyncFrequency string           `json:"sync_frequency" gorm:"not null;size:20;default:'manual'" example:"hourly"` // realtime, hourly, daily, manual
	FieldMappings FieldMappingList `json:"field_mappings" gorm:"type:jsonb"`
	Config        JSONB            `json:"config,omitempty" gorm:"type:jsonb"` // 按SystemType区分的扩展配置
	Status        string           `json:"status" gorm:"not null;size:20;default:'pending';index" example:"pending"` // pending, active, degraded, error, inactive
	LastCheckAt   *time.Time       `json:"last_check_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	CreatedBy     string           `json:"created_by" gorm:"not null;default:'system';size:100" example:"admin"`
	UpdatedAt     time.Time        `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedBy     string           `json:"updated_by" gorm:"size:100" example:"admin"`
}

// ApplyDefaults 填充缺省值，创建前由服务层调用
func (c *ConnectorConfig) ApplyDefaults() {
	if c.SyncFrequency == "" {
		c.SyncFrequency = meta.SyncFrequencyManual
	}
	if c.SyncDirection == "" {
		c.SyncDirection = meta.SyncDirectionInbound
	}
	if c.APIType == "" {
		c.APIType = meta.APITypeOData
	}
	if c.Status == "" {
		c.Status = meta.ConnectorStatusPending
	}
	if c.Port == 0 {
		c.Port = 44300
	}
}

// BeforeCreate GORM钩子，创建前生成UUID并验证枚举字段
func (c *ConnectorConfig) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedBy == "" {
		c.CreatedBy = "system"
	}
	if c.Status == "" {
		c.Status = meta.ConnectorStatusPending
	}
	return c.ValidateEnums()
}

// BeforeUpdate GORM钩子，更新前验证枚举字段
func (c *ConnectorConfig) BeforeUpdate(tx *gorm.DB) error {
	return c.ValidateEnums()
}

// ValidateEnums 验证枚举字段的合法性
func (c *ConnectorConfig) ValidateEnums() error {
	if !meta.IsValidSystemType(c.SystemType) {
		return errors.New("无效的系统类型: " + c.SystemType)
	}
	if !meta.IsValidAPIType(c.APIType) {
		return errors.New("无效的接口类型: " + c.APIType)
	}
	if !meta.IsValidSyncDirection(c.SyncDirection) {
		return errors.New("无效的同步方向: " + c.SyncDirection)
	}
	if c.SyncFrequency != "" && !meta.IsValidSyncFrequency(c.SyncFrequency) {
		return errors.New("无效的同步频率: " + c.SyncFrequency)
	}
	if c.Status != "" && !meta.IsValidConnectorStatus(c.Status) {
		return errors.New("无效的连接器状态: " + c.Status)
	}
	return nil
}

// CanSync 判断连接器当前是否允许触发同步
func (c *ConnectorConfig) CanSync() bool {
	return c.Status == meta.ConnectorStatusActive
}

// IsRealtime 判断是否为实时同步连接器
func (c *ConnectorConfig) IsRealtime() bool {
	return c.SyncFrequency == meta.SyncFrequencyRealtime
}

// CronSpec 返回调度表达式，手动/实时连接器返回空串
func (c *ConnectorConfig) CronSpec() string {
	switch c.SyncFrequency {
	case meta.SyncFrequencyHourly:
		return "0 0 * * * *"
	case meta.SyncFrequencyDaily:
		return "0 0 2 * * *"
	default:
		return ""
	}
}

// GetSystemDisplayName 获取系统类型的显示名称
func (c *ConnectorConfig) GetSystemDisplayName() string {
	return meta.GetSystemTypeDisplayName(c.SystemType)
}
