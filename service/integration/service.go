/*
 * @module service/integration/service
 * @description SAP连接器配置存储服务，提供配置的增删改查与校验
 * @architecture 服务层 - 领域服务
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 请求校验 -> 数据库持久化 -> 缓存失效 -> 返回完整配置
 * @rules 部分更新按字段合并后整体校验，ID与运行状态不可被客户端修改
 * @dependencies gorm.io/gorm, github.com/spf13/cast
 * @refs service/models/connector.go, cache.go, transform.go
 */

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/spf13/cast"
	"gorm.io/gorm"

	"dpp-integration-service/service/meta"
	"dpp-integration-service/service/models"
)

var (
	hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9.-]*[a-zA-Z0-9])?$`)
	clientPattern   = regexp.MustCompile(`^\d{3}$`)
)

// IntegrationService 连接器配置存储服务
type IntegrationService struct {
	db        *gorm.DB
	cache     *ConnectorCache
	transform *TransformExecutor
}

// NewIntegrationService 创建连接器配置服务
func NewIntegrationService(db *gorm.DB) *IntegrationService {
	return &IntegrationService{
		db:        db,
		transform: NewTransformExecutor(),
	}
}

// WithCache 附加Redis列表缓存，缓存为nil时自动降级
func (s *IntegrationService) WithCache(cache *ConnectorCache) *IntegrationService {
	s.cache = cache
	return s
}

// Transform 暴露转换执行器供同步引擎复用
func (s *IntegrationService) Transform() *TransformExecutor {
	return s.transform
}

// CreateConnector 创建连接器配置
func (s *IntegrationService) CreateConnector(ctx context.Context, connector *models.ConnectorConfig) error {
	connector.ApplyDefaults()

	if verr := s.validateConnector(connector); verr.hasErrors() {
		return verr
	}

	if err := s.db.WithContext(ctx).Create(connector).Error; err != nil {
		return fmt.Errorf("创建连接器配置失败: %w", err)
	}

	s.cache.Invalidate(ctx)
	slog.Info("连接器配置已创建",
		"connector_id", connector.ID,
		"name", connector.Name,
		"system_type", connector.SystemType)
	return nil
}

// GetConnector 按ID查询连接器配置
func (s *IntegrationService) GetConnector(ctx context.Context, id string) (*models.ConnectorConfig, error) {
	var connector models.ConnectorConfig
	err := s.db.WithContext(ctx).First(&connector, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("连接器", id)
		}
		return nil, fmt.Errorf("查询连接器配置失败: %w", err)
	}
	return &connector, nil
}

// ListConnectors 列出全部连接器配置，按创建时间倒序，优先走缓存
func (s *IntegrationService) ListConnectors(ctx context.Context) ([]models.ConnectorConfig, error) {
	if cached := s.cache.GetList(ctx); cached != nil {
		return cached, nil
	}

	var connectors []models.ConnectorConfig
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&connectors).Error
	if err != nil {
		return nil, fmt.Errorf("查询连接器列表失败: %w", err)
	}

	s.cache.SetList(ctx, connectors)
	return connectors, nil
}

// UpdateConnector 部分更新连接器配置
// 只合并请求中出现的字段，ID与status不可修改，合并后整体校验
func (s *IntegrationService) UpdateConnector(ctx context.Context, id string, updates map[string]interface{}) (*models.ConnectorConfig, error) {
	connector, err := s.GetConnector(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.mergeUpdates(connector, updates); err != nil {
		return nil, err
	}

	if verr := s.validateConnector(connector); verr.hasErrors() {
		return nil, verr
	}

	connector.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(connector).Error; err != nil {
		return nil, fmt.Errorf("更新连接器配置失败: %w", err)
	}

	s.cache.Invalidate(ctx)
	slog.Info("连接器配置已更新", "connector_id", id)
	return connector, nil
}

// DeleteConnector 删除连接器配置及其同步历史
func (s *IntegrationService) DeleteConnector(ctx context.Context, id string) error {
	connector, err := s.GetConnector(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("connector_id = ?", id).Delete(&models.SyncRun{}).Error; err != nil {
			return err
		}
		return tx.Delete(connector).Error
	})
	if err != nil {
		return fmt.Errorf("删除连接器配置失败: %w", err)
	}

	s.cache.Invalidate(ctx)
	slog.Info("连接器配置已删除", "connector_id", id, "name", connector.Name)
	return nil
}

// UpdateConnectorStatus 更新连接器运行状态与最近检查时间，供健康检查回写
func (s *IntegrationService) UpdateConnectorStatus(ctx context.Context, id, status string, checkedAt time.Time) error {
	if !meta.IsValidConnectorStatus(status) {
		return fmt.Errorf("无效的连接器状态: %s", status)
	}

	result := s.db.WithContext(ctx).Model(&models.ConnectorConfig{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"last_check_at": checkedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("更新连接器状态失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("连接器", id)
	}

	s.cache.Invalidate(ctx)
	return nil
}

// mergeUpdates 将请求字段合并到现有配置上
func (s *IntegrationService) mergeUpdates(connector *models.ConnectorConfig, updates map[string]interface{}) error {
	for key, value := range updates {
		switch key {
		case "name":
			connector.Name = cast.ToString(value)
		case "description":
			connector.Description = cast.ToString(value)
		case "system_type":
			connector.SystemType = cast.ToString(value)
		case "hostname":
			connector.Hostname = cast.ToString(value)
		case "port":
			connector.Port = cast.ToInt(value)
		case "client":
			connector.Client = cast.ToString(value)
		case "system_id":
			connector.SystemID = cast.ToString(value)
		case "api_type":
			connector.APIType = cast.ToString(value)
		case "oauth_enabled":
			connector.OAuthEnabled = cast.ToBool(value)
		case "sync_direction":
			connector.SyncDirection = cast.ToString(value)
		case "sync_frequency":
			connector.SyncFrequency = cast.ToString(value)
		case "field_mappings":
			mappings, err := decodeFieldMappings(value)
			if err != nil {
				return &ValidationError{Fields: map[string]string{
					"field_mappings": "字段映射格式无效",
				}}
			}
			connector.FieldMappings = mappings
		case "config":
			if m, ok := value.(map[string]interface{}); ok {
				connector.Config = m
			}
		case "id", "status", "created_at", "updated_at", "created_by", "updated_by":
			// 不可被客户端修改的字段，静默忽略
		}
	}
	return nil
}

// decodeFieldMappings 将任意JSON形态的字段映射解码为模型类型
func decodeFieldMappings(value interface{}) (models.FieldMappingList, error) {
	if mappings, ok := value.(models.FieldMappingList); ok {
		return mappings, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var mappings models.FieldMappingList
	if err := json.Unmarshal(data, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

// validateConnector 校验连接器配置，聚合全部字段问题
func (s *IntegrationService) validateConnector(c *models.ConnectorConfig) *ValidationError {
	verr := newValidationError()

	if c.Name == "" {
		verr.add("name", "连接器名称不能为空")
	} else if len(c.Name) > 100 {
		verr.add("name", "连接器名称不能超过100个字符")
	}

	if c.Hostname == "" {
		verr.add("hostname", "主机名不能为空")
	} else if !hostnamePattern.MatchString(c.Hostname) {
		verr.add("hostname", "主机名格式无效")
	}

	if c.Port < 1 || c.Port > 65535 {
		verr.add("port", "端口必须在1到65535之间")
	}

	if c.Client == "" {
		verr.add("client", "SAP集团编号不能为空")
	} else if !clientPattern.MatchString(c.Client) {
		verr.add("client", "SAP集团编号必须是3位数字")
	}

	if c.SystemID == "" {
		verr.add("system_id", "系统标识不能为空")
	}

	if !meta.IsValidSystemType(c.SystemType) {
		verr.add("system_type", fmt.Sprintf("无效的系统类型: %s", c.SystemType))
	}
	if !meta.IsValidAPIType(c.APIType) {
		verr.add("api_type", fmt.Sprintf("无效的接口类型: %s", c.APIType))
	}
	if !meta.IsValidSyncDirection(c.SyncDirection) {
		verr.add("sync_direction", fmt.Sprintf("无效的同步方向: %s", c.SyncDirection))
	}
	if !meta.IsValidSyncFrequency(c.SyncFrequency) {
		verr.add("sync_frequency", fmt.Sprintf("无效的同步频率: %s", c.SyncFrequency))
	}

	s.validateFieldMappings(c.FieldMappings, verr)
	return verr
}

// validateFieldMappings 校验字段映射：源/目标字段非空、目标字段不重复、转换定义可用
func (s *IntegrationService) validateFieldMappings(mappings models.FieldMappingList, verr *ValidationError) {
	for i, m := range mappings {
		prefix := fmt.Sprintf("field_mappings[%d]", i)
		if m.SourceField == "" {
			verr.add(prefix+".source_field", "源字段不能为空")
		}
		if m.TargetField == "" {
			verr.add(prefix+".target_field", "目标字段不能为空")
		}
		if m.Transformation != "" {
			if err := s.transform.ValidateTransform(m.Transformation); err != nil {
				verr.add(prefix+".transformation", err.Error())
			}
		}
	}

	for _, dup := range mappings.DuplicateTargets() {
		verr.add("field_mappings", fmt.Sprintf("目标字段重复: %s", dup))
	}
}
