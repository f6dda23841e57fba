package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// 通用 JSON 类型
type JSONB map[string]interface{}

// FieldMapping 字段映射项，顺序即展示/处理顺序
type FieldMapping struct {
	SourceField    string `json:"source_field"`
	TargetField    string `json:"target_field"`
	Transformation string `json:"transformation,omitempty"` // uppercase, lowercase, trim, titlecase, custom:<脚本>
}

// FieldMappingList 以 JSONB 存储的有序字段映射列表
type FieldMappingList []FieldMapping

// LogLineList 以 JSONB 存储的日志行列表
type LogLineList []string

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("类型断言失败: 不是 []byte 或 string")
	}
}

// 实现 Scanner 接口
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, j)
}

// 实现 Valuer 接口
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// FieldMappingList 的 Scanner 接口实现
func (l *FieldMappingList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, l)
}

// FieldMappingList 的 Valuer 接口实现
func (l FieldMappingList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// TargetFields 按声明顺序返回目标字段名
func (l FieldMappingList) TargetFields() []string {
	fields := make([]string, 0, len(l))
	for _, m := range l {
		fields = append(fields, m.TargetField)
	}
	return fields
}

// DuplicateTargets 返回重复出现的目标字段名
func (l FieldMappingList) DuplicateTargets() []string {
	seen := make(map[string]int)
	var dups []string
	for _, m := range l {
		seen[m.TargetField]++
		if seen[m.TargetField] == 2 {
			dups = append(dups, m.TargetField)
		}
	}
	return dups
}

// LogLineList 的 Scanner 接口实现
func (l *LogLineList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, l)
}

// LogLineList 的 Valuer 接口实现
func (l LogLineList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}
