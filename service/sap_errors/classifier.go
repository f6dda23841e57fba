/*
 * @module service/sap_errors/classifier
 * @description SAP错误分类器，将任意形态的错误输入规范化为目录条目
 * @architecture 服务层 - 纯函数分类器
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 显式错误码 -> 正则匹配 -> 子串扫描 -> 兜底条目
 * @rules 分类器为全函数，任何输入(包括nil与panic)都返回有效目录条目，绝不向调用方抛出异常
 * @dependencies github.com/lib/pq, github.com/spf13/cast
 * @refs catalog.go, service/sap_sync
 */

package sap_errors

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/spf13/cast"
)

// SAPError 携带显式错误码的SAP调用错误
type SAPError struct {
	Code    string
	Message string
	Cause   error
}

func (e *SAPError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SAPError) Unwrap() error {
	return e.Cause
}

// ErrorCode 返回显式错误码
func (e *SAPError) ErrorCode() string {
	return e.Code
}

// NewSAPError 创建携带错误码的SAP错误
func NewSAPError(code, message string) *SAPError {
	return &SAPError{Code: code, Message: message}
}

// coder 任何能提供显式错误码的类型
type coder interface {
	ErrorCode() string
}

// patternRule 消息正则规则，按声明顺序匹配，先匹配先得
type patternRule struct {
	pattern *regexp.Regexp
	code    string
}

var patternRules = []patternRule{
	{regexp.MustCompile(`(?i)connection refused|ECONNREFUSED`), CodeConnectionRefused},
	{regexp.MustCompile(`(?i)i/o timeout|timed? ?out|ETIMEDOUT|context deadline exceeded`), CodeConnectionTimeout},
	{regexp.MustCompile(`(?i)no such host|host is unreachable|network is unreachable|EHOSTUNREACH`), CodeHostUnreachable},
	{regexp.MustCompile(`(?i)tls|x509|certificate`), CodeTLSHandshakeFailed},
	{regexp.MustCompile(`(?i)token.{0,20}expired|expired.{0,20}token`), CodeTokenExpired},
	{regexp.MustCompile(`(?i)unauthori[sz]ed|401|invalid credentials|logon|authentication fail`), CodeAuthenticationFailed},
	{regexp.MustCompile(`(?i)forbidden|403|not authori[sz]ed|permission denied`), CodeInsufficientPermissions},
	{regexp.MustCompile(`(?i)not found|404|does not exist`), CodeDataNotFound},
	{regexp.MustCompile(`(?i)duplicate|already exists|unique constraint`), CodeDuplicateRecord},
	{regexp.MustCompile(`(?i)field mapping|unknown field|invalid mapping`), CodeInvalidFieldMapping},
	{regexp.MustCompile(`(?i)rate limit|429|too many requests`), CodeRateLimited},
	{regexp.MustCompile(`(?i)RFC_|rfc call|function module`), CodeRFCError},
	{regexp.MustCompile(`(?i)odata|\$metadata|gateway service`), CodeODataError},
	{regexp.MustCompile(`(?i)idoc`), CodeIDocError},
	{regexp.MustCompile(`(?i)short ?dump|ST22|internal server error|500`), CodeSAPSystemError},
}

// logSink 分类日志下沉钩子，由服务初始化时注入(Loki推送)，可为空
var logSink func(labels map[string]string, line string)

// SetLogSink 注入分类日志的外部下沉通道
func SetLogSink(sink func(labels map[string]string, line string)) {
	logSink = sink
}

// Classify 将任意错误输入规范化为目录条目
// 优先级: 显式错误码 -> 正则规则 -> 目录码子串扫描 -> UNKNOWN_ERROR兜底
func Classify(input interface{}) (result ClassifiedError) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("错误分类过程发生panic，返回兜底条目", "panic", r)
			result = Fallback()
		}
	}()

	if input == nil {
		return Fallback()
	}

	// 第一优先级: 显式错误码
	if code, ok := explicitCode(input); ok {
		if entry, exists := GetByCode(code); exists {
			return entry
		}
	}

	message := extractMessage(input)
	if message == "" {
		return Fallback()
	}

	// 第二优先级: 按声明顺序匹配正则规则
	for _, rule := range patternRules {
		if rule.pattern.MatchString(message) {
			return catalog[rule.code]
		}
	}

	// 第三优先级: 消息中出现目录码字面量
	upper := strings.ToUpper(message)
	for _, code := range catalogOrder {
		if code == CodeUnknownError {
			continue
		}
		if strings.Contains(upper, code) {
			return catalog[code]
		}
	}

	return Fallback()
}

// explicitCode 提取输入携带的显式错误码
func explicitCode(input interface{}) (string, bool) {
	switch v := input.(type) {
	case coder:
		if code := v.ErrorCode(); code != "" {
			return code, true
		}
	case *pq.Error:
		return pqErrorCode(v), true
	case map[string]interface{}:
		if code := cast.ToString(v["code"]); code != "" {
			return code, true
		}
	}
	return "", false
}

// pqErrorCode 将PostgreSQL错误类别映射为目录码
func pqErrorCode(err *pq.Error) string {
	class := err.Code.Class()
	switch {
	case err.Code == "23505":
		return CodeDuplicateRecord
	case class == "08":
		return CodeConnectionRefused
	case class == "28":
		return CodeAuthenticationFailed
	case class == "22", class == "23":
		return CodeDataValidationFailed
	case class == "42":
		return CodeInvalidFieldMapping
	default:
		return CodeSAPSystemError
	}
}

// extractMessage 提取输入的文本描述
func extractMessage(input interface{}) string {
	switch v := input.(type) {
	case error:
		return v.Error()
	case string:
		return v
	case map[string]interface{}:
		return cast.ToString(v["message"])
	default:
		return fmt.Sprint(v)
	}
}

// ClassifyAndLog 分类并异步下沉错误日志，用于同步失败路径
func ClassifyAndLog(connectorID string, input interface{}) ClassifiedError {
	entry := Classify(input)
	slog.Warn("SAP错误已分类",
		"connector_id", connectorID,
		"code", entry.Code,
		"category", entry.Category,
		"severity", entry.Severity,
		"raw", extractMessage(input))
	if logSink != nil {
		sink := logSink
		go sink(map[string]string{
			"app":          "dpp-integration-service",
			"connector_id": connectorID,
			"error_code":   entry.Code,
			"category":     string(entry.Category),
		}, extractMessage(input))
	}
	return entry
}

// APIError 错误在HTTP响应中的展示形态
type APIError struct {
	Code             string `json:"code"`
	Category         string `json:"category"`
	Severity         string `json:"severity"`
	Message          string `json:"message"`
	Suggestion       string `json:"suggestion"`
	DocumentationURL string `json:"documentation_url,omitempty"`
}

// ToAPIError 转换为HTTP响应形态
func (e ClassifiedError) ToAPIError() APIError {
	return APIError{
		Code:             e.Code,
		Category:         string(e.Category),
		Severity:         string(e.Severity),
		Message:          e.UserMessage,
		Suggestion:       e.Suggestion,
		DocumentationURL: e.DocumentationURL,
	}
}
