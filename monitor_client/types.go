package monitor_client

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/common/model"
)

// QueryResultResp Prometheus兼容接口的响应外壳
type QueryResultResp struct {
	Status string      `json:"status"`
	Data   QueryResult `json:"data"`
}

// QueryResult Prometheus兼容接口的查询结果
type QueryResult struct {
	ResultType string          `json:"resultType"` // vector, matrix
	Result     json.RawMessage `json:"result"`
}

// Vector 将结果解析为即时向量
func (r *QueryResult) Vector() (model.Vector, error) {
	if r.ResultType != "vector" {
		return nil, fmt.Errorf("结果类型不是vector: %s", r.ResultType)
	}
	var vector model.Vector
	if err := json.Unmarshal(r.Result, &vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// Matrix 将结果解析为区间矩阵
func (r *QueryResult) Matrix() (model.Matrix, error) {
	if r.ResultType != "matrix" {
		return nil, fmt.Errorf("结果类型不是matrix: %s", r.ResultType)
	}
	var matrix model.Matrix
	if err := json.Unmarshal(r.Result, &matrix); err != nil {
		return nil, err
	}
	return matrix, nil
}

// LokiQueryResultResp Loki查询响应外壳
type LokiQueryResultResp struct {
	Status string          `json:"status"`
	Data   LokiQueryResult `json:"data"`
}

// LokiQueryResult Loki查询结果
type LokiQueryResult struct {
	ResultType string       `json:"resultType"` // streams
	Result     []LokiStream `json:"result"`
}

// LokiStream 单个日志流，Values为[时间戳纳秒, 日志行]对
type LokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// LokiLabelValueResp Loki标签值响应
type LokiLabelValueResp struct {
	Status string   `json:"status"`
	Data   []string `json:"data"`
}

// lokiPushPayload Loki推送请求体
type lokiPushPayload struct {
	Streams []lokiPushStream `json:"streams"`
}

type lokiPushStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}
