/*
 * @module service/integration/errors
 * @description 连接器配置存储的领域错误类型定义
 * @architecture 服务层 - 错误类型
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 服务层产生 -> 控制器层类型断言 -> HTTP状态码映射
 * @rules 校验错误必须携带逐字段说明，便于前端逐项展示
 * @dependencies 无外部依赖
 * @refs service.go, api/controllers/connector_controller.go
 */

package integration

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError 配置校验错误，按字段聚合全部问题
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "配置校验失败"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "配置校验失败: " + strings.Join(parts, "; ")
}

// newValidationError 创建校验错误
func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// add 记录一个字段问题，同一字段只保留首个问题
func (e *ValidationError) add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// hasErrors 是否存在校验问题
func (e *ValidationError) hasErrors() bool {
	return len(e.Fields) > 0
}

// NotFoundError 资源不存在错误
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s不存在: %s", e.Resource, e.ID)
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}
