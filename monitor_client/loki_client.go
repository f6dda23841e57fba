package monitor_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cast"
)

var LokiUrl = "http://loki:3100"
var lokiClient = &http.Client{
	Timeout: 30 * time.Second,
}

func init() {
	if envUrl := os.Getenv("LOKI_URL"); envUrl != "" {
		LokiUrl = envUrl
	}
}

// SetLokiUrl 设置 Loki 的 URL（用于测试）
func SetLokiUrl(url string) {
	LokiUrl = url
}

// GetLokiUrl 获取当前 Loki 的 URL
func GetLokiUrl() string {
	return LokiUrl
}

// LokiPush 推送一条日志到Loki，同步错误分类后的原始错误经此下沉
// 调用方以fire-and-forget方式使用，失败只记录日志
func LokiPush(labels map[string]string, line string) {
	payload := lokiPushPayload{
		Streams: []lokiPushStream{
			{
				Stream: labels,
				Values: [][2]string{
					{cast.ToString(time.Now().UnixNano()), line},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("Loki推送序列化失败", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		LokiUrl+"/loki/api/v1/push", bytes.NewReader(body))
	if err != nil {
		slog.Warn("创建Loki推送请求失败", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := lokiClient.Do(req)
	if err != nil {
		slog.Warn("Loki推送失败", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Warn("Loki推送被拒绝", "status_code", resp.StatusCode)
	}
}

// LokiRangeQuery 执行 Loki 区间查询，错误日志查询接口使用
func LokiRangeQuery(ctx context.Context, query string, limit int, start, end time.Time) (result *LokiQueryResult, err error) {
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}

	if limit <= 0 {
		limit = 1000 // 默认限制1000条
	}

	values := url.Values{}
	values.Add("query", query)
	values.Add("limit", cast.ToString(limit))
	values.Add("start", cast.ToString(start.UnixNano()))
	values.Add("end", cast.ToString(end.UnixNano()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, LokiUrl+"/loki/api/v1/query_range", nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.URL.RawQuery = values.Encode()

	resp, err := lokiClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP请求失败: 状态码=%d", resp.StatusCode)
	}

	var lokiResp LokiQueryResultResp
	if err = json.NewDecoder(resp.Body).Decode(&lokiResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if lokiResp.Status != "success" {
		return nil, fmt.Errorf("查询失败: %s", lokiResp.Status)
	}

	return &lokiResp.Data, nil
}

// LokiLabelValues 获取指定标签的所有值
func LokiLabelValues(ctx context.Context, label string) (result []string, err error) {
	if label == "" {
		return nil, errors.New("label cannot be empty")
	}

	urlSuffix := "/loki/api/v1/label/" + label + "/values"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, LokiUrl+urlSuffix, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := lokiClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	var lokiResp LokiLabelValueResp
	if err = json.NewDecoder(resp.Body).Decode(&lokiResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if lokiResp.Status != "success" {
		return nil, fmt.Errorf("查询失败: %s", lokiResp.Status)
	}

	return lokiResp.Data, nil
}
