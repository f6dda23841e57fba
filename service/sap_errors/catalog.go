/*
 * @module service/sap_errors/catalog
 * @description SAP错误目录定义，提供错误码到分类、级别、用户提示的静态映射
 * @architecture 常量层 - 静态错误目录
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 目录定义 -> 分类查询 -> 用户展示
 * @rules 目录条目一经定义不在运行时修改；UNKNOWN_ERROR作为兜底条目必须存在
 * @dependencies 无外部依赖
 * @refs classifier.go
 */

package sap_errors

// Category 错误分类
type Category string

const (
	CategoryConnection     Category = "connection"
	CategoryAuthentication Category = "authentication"
	CategoryData           Category = "data"
	CategorySystem         Category = "system"
	CategoryUnknown        Category = "unknown"
)

// Severity 错误严重级别，用于前端展示强调程度
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// 错误码常量
const (
	CodeConnectionRefused       = "CONNECTION_REFUSED"
	CodeConnectionTimeout       = "CONNECTION_TIMEOUT"
	CodeHostUnreachable         = "HOST_UNREACHABLE"
	CodeTLSHandshakeFailed      = "TLS_HANDSHAKE_FAILED"
	CodeAuthenticationFailed    = "AUTHENTICATION_FAILED"
	CodeTokenExpired            = "TOKEN_EXPIRED"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeDataNotFound            = "DATA_NOT_FOUND"
	CodeInvalidFieldMapping     = "INVALID_FIELD_MAPPING"
	CodeDuplicateRecord         = "DUPLICATE_RECORD"
	CodeDataValidationFailed    = "DATA_VALIDATION_FAILED"
	CodeRFCError                = "RFC_ERROR"
	CodeODataError              = "ODATA_ERROR"
	CodeIDocError               = "IDOC_ERROR"
	CodeRateLimited             = "RATE_LIMITED"
	CodeSAPSystemError          = "SAP_SYSTEM_ERROR"
	CodeUnknownError            = "UNKNOWN_ERROR"
)

// ClassifiedError 规范化后的错误信息，可安全展示给终端用户
type ClassifiedError struct {
	Code             string   `json:"code" example:"CONNECTION_TIMEOUT"`
	Category         Category `json:"category" example:"connection"`
	Severity         Severity `json:"severity" example:"high"`
	UserMessage      string   `json:"user_message"`
	Suggestion       string   `json:"suggestion"`
	DocumentationURL string   `json:"documentation_url,omitempty"`
}

const docBase = "https://docs.dpp-passport.io/integrations/sap/errors/"

// catalogOrder 目录条目的声明顺序，子串扫描按此顺序进行
var catalogOrder = []string{
	CodeConnectionRefused,
	CodeConnectionTimeout,
	CodeHostUnreachable,
	CodeTLSHandshakeFailed,
	CodeAuthenticationFailed,
	CodeTokenExpired,
	CodeInsufficientPermissions,
	CodeDataNotFound,
	CodeInvalidFieldMapping,
	CodeDuplicateRecord,
	CodeDataValidationFailed,
	CodeRFCError,
	CodeODataError,
	CodeIDocError,
	CodeRateLimited,
	CodeSAPSystemError,
	CodeUnknownError,
}

// catalog 静态错误目录
var catalog = map[string]ClassifiedError{
	CodeConnectionRefused: {
		Code:             CodeConnectionRefused,
		Category:         CategoryConnection,
		Severity:         SeverityHigh,
		UserMessage:      "无法连接到SAP系统，连接被拒绝",
		Suggestion:       "请检查主机名和端口配置，确认SAP系统网关已启动",
		DocumentationURL: docBase + "connection-refused",
	},
	CodeConnectionTimeout: {
		Code:             CodeConnectionTimeout,
		Category:         CategoryConnection,
		Severity:         SeverityHigh,
		UserMessage:      "连接SAP系统超时",
		Suggestion:       "请检查网络连通性与防火墙规则，稍后重试",
		DocumentationURL: docBase + "connection-timeout",
	},
	CodeHostUnreachable: {
		Code:             CodeHostUnreachable,
		Category:         CategoryConnection,
		Severity:         SeverityHigh,
		UserMessage:      "SAP主机不可达",
		Suggestion:       "请确认主机名拼写正确且DNS解析正常",
		DocumentationURL: docBase + "host-unreachable",
	},
	CodeTLSHandshakeFailed: {
		Code:             CodeTLSHandshakeFailed,
		Category:         CategoryConnection,
		Severity:         SeverityMedium,
		UserMessage:      "与SAP系统建立安全连接失败",
		Suggestion:       "请检查证书配置，确认SAP系统的TLS证书有效",
		DocumentationURL: docBase + "tls-handshake",
	},
	CodeAuthenticationFailed: {
		Code:             CodeAuthenticationFailed,
		Category:         CategoryAuthentication,
		Severity:         SeverityHigh,
		UserMessage:      "SAP系统认证失败",
		Suggestion:       "请检查用户名、密码或OAuth配置是否正确",
		DocumentationURL: docBase + "authentication-failed",
	},
	CodeTokenExpired: {
		Code:             CodeTokenExpired,
		Category:         CategoryAuthentication,
		Severity:         SeverityMedium,
		UserMessage:      "访问令牌已过期",
		Suggestion:       "请重新授权或检查OAuth令牌刷新配置",
		DocumentationURL: docBase + "token-expired",
	},
	CodeInsufficientPermissions: {
		Code:             CodeInsufficientPermissions,
		Category:         CategoryAuthentication,
		Severity:         SeverityHigh,
		UserMessage:      "SAP账号权限不足",
		Suggestion:       "请联系SAP管理员为集成账号授予所需的权限对象",
		DocumentationURL: docBase + "insufficient-permissions",
	},
	CodeDataNotFound: {
		Code:             CodeDataNotFound,
		Category:         CategoryData,
		Severity:         SeverityMedium,
		UserMessage:      "请求的数据在SAP系统中不存在",
		Suggestion:       "请检查物料号/对象标识是否正确，或确认数据已在SAP中维护",
		DocumentationURL: docBase + "data-not-found",
	},
	CodeInvalidFieldMapping: {
		Code:             CodeInvalidFieldMapping,
		Category:         CategoryData,
		Severity:         SeverityMedium,
		UserMessage:      "字段映射配置无效",
		Suggestion:       "请检查字段映射中的源字段与目标字段是否存在且类型兼容",
		DocumentationURL: docBase + "field-mapping",
	},
	CodeDuplicateRecord: {
		Code:             CodeDuplicateRecord,
		Category:         CategoryData,
		Severity:         SeverityLow,
		UserMessage:      "存在重复记录",
		Suggestion:       "请检查同步方向与主键映射，避免重复写入",
		DocumentationURL: docBase + "duplicate-record",
	},
	CodeDataValidationFailed: {
		Code:             CodeDataValidationFailed,
		Category:         CategoryData,
		Severity:         SeverityMedium,
		UserMessage:      "数据校验未通过",
		Suggestion:       "请检查必填字段与数据格式后重新同步",
		DocumentationURL: docBase + "data-validation",
	},
	CodeRFCError: {
		Code:             CodeRFCError,
		Category:         CategorySystem,
		Severity:         SeverityHigh,
		UserMessage:      "RFC调用失败",
		Suggestion:       "请检查RFC目标配置与函数模块授权",
		DocumentationURL: docBase + "rfc-error",
	},
	CodeODataError: {
		Code:             CodeODataError,
		Category:         CategorySystem,
		Severity:         SeverityHigh,
		UserMessage:      "OData服务调用失败",
		Suggestion:       "请确认OData服务已在SAP网关中激活",
		DocumentationURL: docBase + "odata-error",
	},
	CodeIDocError: {
		Code:             CodeIDocError,
		Category:         CategorySystem,
		Severity:         SeverityHigh,
		UserMessage:      "IDoc处理失败",
		Suggestion:       "请检查IDoc端口与伙伴协议配置",
		DocumentationURL: docBase + "idoc-error",
	},
	CodeRateLimited: {
		Code:             CodeRateLimited,
		Category:         CategoryConnection,
		Severity:         SeverityLow,
		UserMessage:      "请求过于频繁，已被SAP系统限流",
		Suggestion:       "请降低同步频率或稍后重试",
		DocumentationURL: docBase + "rate-limited",
	},
	CodeSAPSystemError: {
		Code:             CodeSAPSystemError,
		Category:         CategorySystem,
		Severity:         SeverityCritical,
		UserMessage:      "SAP系统内部错误",
		Suggestion:       "请查看SAP系统日志(SM21/ST22)并联系SAP管理员",
		DocumentationURL: docBase + "sap-system-error",
	},
	CodeUnknownError: {
		Code:        CodeUnknownError,
		Category:    CategoryUnknown,
		Severity:    SeverityMedium,
		UserMessage: "发生未知错误",
		Suggestion:  "请稍后重试，如问题持续出现请联系技术支持",
	},
}

// GetByCode 按错误码查询目录条目
func GetByCode(code string) (ClassifiedError, bool) {
	entry, exists := catalog[code]
	return entry, exists
}

// ListByCategory 按分类列出目录条目，保持目录声明顺序
func ListByCategory(category Category) []ClassifiedError {
	var result []ClassifiedError
	for _, code := range catalogOrder {
		if entry := catalog[code]; entry.Category == category {
			result = append(result, entry)
		}
	}
	return result
}

// ListAll 按目录声明顺序列出全部条目
func ListAll() []ClassifiedError {
	result := make([]ClassifiedError, 0, len(catalogOrder))
	for _, code := range catalogOrder {
		result = append(result, catalog[code])
	}
	return result
}

// Fallback 返回兜底的未知错误条目
func Fallback() ClassifiedError {
	return catalog[CodeUnknownError]
}
