/*
 * @module service/meta/connector_types
 * @description SAP连接器相关枚举常量定义和验证函数
 * @architecture 常量层 - 元数据定义
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 常量定义 -> 验证函数 -> 业务逻辑使用
 * @rules 统一管理连接器枚举常量，确保类型安全
 * @dependencies 无外部依赖
 * @refs service/models, service/integration
 */

package meta

// SAP系统类型常量
const (
	SystemTypeS4HANA      = "s4hana"
	SystemTypeECC         = "ecc"
	SystemTypeBusinessOne = "business_one"
)

// 接口类型常量
const (
	APITypeOData = "odata"
	APITypeRFC   = "rfc"
	APITypeIDoc  = "idoc"
)

// 同步方向常量
const (
	SyncDirectionInbound       = "inbound"
	SyncDirectionOutbound      = "outbound"
	SyncDirectionBidirectional = "bidirectional"
)

// 同步频率常量
const (
	SyncFrequencyRealtime = "realtime"
	SyncFrequencyHourly   = "hourly"
	SyncFrequencyDaily    = "daily"
	SyncFrequencyManual   = "manual"
)

// 连接器状态常量
const (
	ConnectorStatusPending  = "pending"
	ConnectorStatusActive   = "active"
	ConnectorStatusDegraded = "degraded"
	ConnectorStatusError    = "error"
	ConnectorStatusInactive = "inactive"
)

// 系统类型显示名称映射
var SystemTypeDisplayNames = map[string]string{
	SystemTypeS4HANA:      "SAP S/4HANA",
	SystemTypeECC:         "SAP ECC",
	SystemTypeBusinessOne: "SAP Business One",
}

// IsValidSystemType 验证系统类型是否有效
func IsValidSystemType(systemType string) bool {
	validTypes := map[string]bool{
		SystemTypeS4HANA:      true,
		SystemTypeECC:         true,
		SystemTypeBusinessOne: true,
	}
	return validTypes[systemType]
}

// IsValidAPIType 验证接口类型是否有效
func IsValidAPIType(apiType string) bool {
	validTypes := map[string]bool{
		APITypeOData: true,
		APITypeRFC:   true,
		APITypeIDoc:  true,
	}
	return validTypes[apiType]
}

// IsValidSyncDirection 验证同步方向是否有效
func IsValidSyncDirection(direction string) bool {
	validDirections := map[string]bool{
		SyncDirectionInbound:       true,
		SyncDirectionOutbound:      true,
		SyncDirectionBidirectional: true,
	}
	return validDirections[direction]
}

// IsValidSyncFrequency 验证同步频率是否有效
func IsValidSyncFrequency(frequency string) bool {
	validFrequencies := map[string]bool{
		SyncFrequencyRealtime: true,
		SyncFrequencyHourly:   true,
		SyncFrequencyDaily:    true,
		SyncFrequencyManual:   true,
	}
	return validFrequencies[frequency]
}

// IsValidConnectorStatus 验证连接器状态是否有效
func IsValidConnectorStatus(status string) bool {
	validStatuses := map[string]bool{
		ConnectorStatusPending:  true,
		ConnectorStatusActive:   true,
		ConnectorStatusDegraded: true,
		ConnectorStatusError:    true,
		ConnectorStatusInactive: true,
	}
	return validStatuses[status]
}

// GetSystemTypeDisplayName 获取系统类型的显示名称
func GetSystemTypeDisplayName(systemType string) string {
	if displayName, exists := SystemTypeDisplayNames[systemType]; exists {
		return displayName
	}
	return "未知系统类型"
}

// GetAllSystemTypes 获取所有支持的系统类型
func GetAllSystemTypes() []string {
	return []string{SystemTypeS4HANA, SystemTypeECC, SystemTypeBusinessOne}
}

// GetAllAPITypes 获取所有支持的接口类型
func GetAllAPITypes() []string {
	return []string{APITypeOData, APITypeRFC, APITypeIDoc}
}

// GetAllSyncDirections 获取所有支持的同步方向
func GetAllSyncDirections() []string {
	return []string{SyncDirectionInbound, SyncDirectionOutbound, SyncDirectionBidirectional}
}

// GetAllSyncFrequencies 获取所有支持的同步频率
func GetAllSyncFrequencies() []string {
	return []string{SyncFrequencyRealtime, SyncFrequencyHourly, SyncFrequencyDaily, SyncFrequencyManual}
}
