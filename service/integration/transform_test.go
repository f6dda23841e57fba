/*
 * @module service/integration/transform_test
 * @description 字段转换执行器单元测试
 * @architecture 测试层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 转换定义 -> 执行 -> 断言输出
 * @rules 覆盖内置转换、自定义脚本与非法定义
 * @dependencies github.com/stretchr/testify
 * @refs transform.go
 */

package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformExecutor_Builtins(t *testing.T) {
	executor := NewTransformExecutor()

	tests := []struct {
		name           string
		transformation string
		input          string
		expected       string
	}{
		{"空转换原样返回", "", "  Hello ", "  Hello "},
		{"大写", TransformUppercase, "matnr-1001", "MATNR-1001"},
		{"小写", TransformLowercase, "MAKTX", "maktx"},
		{"去空白", TransformTrim, "  PRD-100  ", "PRD-100"},
		{"标题格式", TransformTitlecase, "stainless steel bottle", "Stainless Steel Bottle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := executor.Apply(tt.transformation, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestTransformExecutor_UnsupportedTransform(t *testing.T) {
	executor := NewTransformExecutor()
	_, err := executor.Apply("reverse", "abc")
	assert.Error(t, err)
}

func TestTransformExecutor_CustomScript(t *testing.T) {
	executor := NewTransformExecutor()

	script := CustomTransformPrefix + `return "MAT-" + strings.TrimSpace(value), nil`
	result, err := executor.Apply(script, "  1001 ")
	require.NoError(t, err)
	assert.Equal(t, "MAT-1001", result)

	// 再次执行走编译缓存
	result, err = executor.Apply(script, "2002")
	require.NoError(t, err)
	assert.Equal(t, "MAT-2002", result)
}

func TestTransformExecutor_CustomScriptCompileError(t *testing.T) {
	executor := NewTransformExecutor()

	_, err := executor.Apply(CustomTransformPrefix+`this is not go`, "x")
	assert.Error(t, err)
}

func TestValidateTransform(t *testing.T) {
	executor := NewTransformExecutor()

	assert.NoError(t, executor.ValidateTransform(""))
	assert.NoError(t, executor.ValidateTransform(TransformUppercase))
	assert.NoError(t, executor.ValidateTransform(CustomTransformPrefix+`return strings.ToUpper(value), nil`))

	assert.Error(t, executor.ValidateTransform("reverse"))
	assert.Error(t, executor.ValidateTransform(CustomTransformPrefix+"   "))
	assert.Error(t, executor.ValidateTransform(CustomTransformPrefix+`return 42`))
}

func TestIsBuiltinTransform(t *testing.T) {
	assert.True(t, IsBuiltinTransform(TransformUppercase))
	assert.True(t, IsBuiltinTransform(TransformTitlecase))
	assert.False(t, IsBuiltinTransform(""))
	assert.False(t, IsBuiltinTransform("custom:return value, nil"))
}
