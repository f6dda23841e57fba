/*
 * @module service/integration/transform
 * @description 字段映射转换执行器，支持内置转换与自定义Go脚本转换
 * @architecture 服务层 - 转换引擎
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 转换名解析 -> 内置转换直接执行 / custom:脚本编译缓存后执行
 * @rules 自定义脚本必须包含return语句且签名固定；编译结果按脚本哈希缓存复用
 * @dependencies github.com/traefik/yaegi, golang.org/x/text
 * @refs service.go, service/models/jsonb.go
 */

package integration

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// 内置转换名称
const (
	TransformUppercase = "uppercase"
	TransformLowercase = "lowercase"
	TransformTrim      = "trim"
	TransformTitlecase = "titlecase"

	// CustomTransformPrefix 自定义脚本转换的前缀
	CustomTransformPrefix = "custom:"
)

var titleCaser = cases.Title(language.Und)

// compiledTransform 编译后的自定义转换函数
type compiledTransform struct {
	fn func(string) (string, error)
}

// TransformExecutor 字段转换执行器，自定义脚本按哈希缓存编译结果
type TransformExecutor struct {
	mu    sync.RWMutex
	cache map[string]*compiledTransform
}

// NewTransformExecutor 创建转换执行器
func NewTransformExecutor() *TransformExecutor {
	return &TransformExecutor{
		cache: make(map[string]*compiledTransform),
	}
}

// BuiltinTransforms 内置转换名称列表，元数据接口使用
func BuiltinTransforms() []string {
	return []string{TransformUppercase, TransformLowercase, TransformTrim, TransformTitlecase}
}

// IsBuiltinTransform 是否为内置转换名
func IsBuiltinTransform(name string) bool {
	switch name {
	case TransformUppercase, TransformLowercase, TransformTrim, TransformTitlecase:
		return true
	}
	return false
}

// Apply 对字段值执行转换，transformation为空时原样返回
func (t *TransformExecutor) Apply(transformation, value string) (string, error) {
	switch transformation {
	case "":
		return value, nil
	case TransformUppercase:
		return strings.ToUpper(value), nil
	case TransformLowercase:
		return strings.ToLower(value), nil
	case TransformTrim:
		return strings.TrimSpace(value), nil
	case TransformTitlecase:
		return titleCaser.String(value), nil
	}

	if strings.HasPrefix(transformation, CustomTransformPrefix) {
		script := strings.TrimPrefix(transformation, CustomTransformPrefix)
		return t.applyCustom(script, value)
	}

	return "", fmt.Errorf("不支持的转换类型: %s", transformation)
}

// applyCustom 执行自定义脚本转换
func (t *TransformExecutor) applyCustom(script, value string) (string, error) {
	hash := scriptHash(script)

	t.mu.RLock()
	compiled, exists := t.cache[hash]
	t.mu.RUnlock()

	if !exists {
		var err error
		compiled, err = compileTransform(script)
		if err != nil {
			return "", fmt.Errorf("转换脚本编译失败: %w", err)
		}

		t.mu.Lock()
		t.cache[hash] = compiled
		t.mu.Unlock()
	}

	return compiled.fn(value)
}

// ValidateTransform 校验转换定义是否可用，配置保存时调用
func (t *TransformExecutor) ValidateTransform(transformation string) error {
	if transformation == "" || IsBuiltinTransform(transformation) {
		return nil
	}
	if strings.HasPrefix(transformation, CustomTransformPrefix) {
		script := strings.TrimPrefix(transformation, CustomTransformPrefix)
		if strings.TrimSpace(script) == "" {
			return fmt.Errorf("自定义转换脚本不能为空")
		}
		_, err := compileTransform(script)
		if err != nil {
			return fmt.Errorf("自定义转换脚本无效: %w", err)
		}
		return nil
	}
	return fmt.Errorf("不支持的转换类型: %s", transformation)
}

// compileTransform 编译脚本为可执行函数
// 脚本是Transform函数的函数体，value为入参，必须return (string, error)
func compileTransform(script string) (*compiledTransform, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库符号失败: %w", err)
	}

	wrapped := fmt.Sprintf(`
package main

import (
	"fmt"
	"strings"
	"strconv"
	"time"
)

var _ = fmt.Sprintf
var _ = strings.TrimSpace
var _ = strconv.Itoa
var _ = time.Now

func Transform(value string) (string, error) {
%s
}
`, script)

	if _, err := i.Eval(wrapped); err != nil {
		return nil, err
	}

	v, err := i.Eval("Transform")
	if err != nil {
		return nil, fmt.Errorf("脚本缺少 Transform 函数: %w", err)
	}

	fn, ok := v.Interface().(func(string) (string, error))
	if !ok {
		return nil, fmt.Errorf("Transform 函数签名必须是 func(string) (string, error)")
	}

	return &compiledTransform{fn: fn}, nil
}

// scriptHash 计算脚本哈希作为缓存键
func scriptHash(script string) string {
	h := sha1.Sum([]byte(script))
	return hex.EncodeToString(h[:])
}
