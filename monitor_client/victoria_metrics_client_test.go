package monitor_client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestQuery(t *testing.T) {
	// 创建测试服务器
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query" {
			t.Errorf("期望路径 /api/v1/query, 实际 %s", r.URL.Path)
		}

		query := r.URL.Query().Get("query")
		if query == "" {
			t.Error("query 参数不能为空")
		}

		resp := QueryResultResp{
			Status: "success",
			Data: QueryResult{
				ResultType: "vector",
				Result:     json.RawMessage(`[]`),
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	// 设置测试URL
	SetVictoriaMetricsUrl(server.URL)

	tests := []struct {
		name      string
		query     string
		queryTime time.Time
		wantErr   bool
	}{
		{
			name:      "正常查询",
			query:     `sum(rate(dpp_sap_sync_runs_total[5m]))`,
			queryTime: time.Now(),
			wantErr:   false,
		},
		{
			name:      "空查询字符串",
			query:     "",
			queryTime: time.Now(),
			wantErr:   true,
		},
		{
			name:      "零时间使用当前时间",
			query:     "dpp_sap_connector_healthy",
			queryTime: time.Time{},
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			result, err := Query(ctx, tt.query, tt.queryTime)

			if (err != nil) != tt.wantErr {
				t.Errorf("Query() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && result == nil {
				t.Error("期望非空结果")
			}
			if !tt.wantErr && result.ResultType != "vector" {
				t.Errorf("期望 resultType=vector, 实际 %s", result.ResultType)
			}
		})
	}
}

func TestQueryRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query_range" {
			t.Errorf("期望路径 /api/v1/query_range, 实际 %s", r.URL.Path)
		}

		resp := QueryResultResp{
			Status: "success",
			Data: QueryResult{
				ResultType: "matrix",
				Result:     json.RawMessage(`[]`),
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	SetVictoriaMetricsUrl(server.URL)

	now := time.Now()
	tests := []struct {
		name    string
		query   string
		start   time.Time
		end     time.Time
		step    time.Duration
		wantErr bool
	}{
		{
			name:    "正常区间查询",
			query:   "dpp_sap_sync_records_processed_total",
			start:   now.Add(-time.Hour),
			end:     now,
			step:    time.Minute,
			wantErr: false,
		},
		{
			name:    "空查询字符串",
			query:   "",
			start:   now.Add(-time.Hour),
			end:     now,
			step:    time.Minute,
			wantErr: true,
		},
		{
			name:    "开始时间晚于结束时间",
			query:   "up",
			start:   now,
			end:     now.Add(-time.Hour),
			step:    time.Minute,
			wantErr: true,
		},
		{
			name:    "零步长使用默认值",
			query:   "up",
			start:   now.Add(-time.Hour),
			end:     now,
			step:    0,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := QueryRange(context.Background(), tt.query, tt.start, tt.end, tt.step)
			if (err != nil) != tt.wantErr {
				t.Errorf("QueryRange() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && result.ResultType != "matrix" {
				t.Errorf("期望 resultType=matrix, 实际 %s", result.ResultType)
			}
		})
	}
}

func TestQuery_FailedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(QueryResultResp{Status: "error"})
	}))
	defer server.Close()

	SetVictoriaMetricsUrl(server.URL)

	_, err := Query(context.Background(), "up", time.Now())
	if err == nil {
		t.Error("期望失败状态返回错误")
	}
}

func TestQueryResult_Vector(t *testing.T) {
	raw := `[{"metric":{"__name__":"dpp_sap_connector_healthy","connector_id":"c-1"},"value":[1700000000,"1"]}]`
	result := &QueryResult{ResultType: "vector", Result: json.RawMessage(raw)}

	vec, err := result.Vector()
	if err != nil {
		t.Fatalf("Vector() 解码失败: %v", err)
	}
	if len(vec) != 1 {
		t.Fatalf("期望1个样本, 实际 %d", len(vec))
	}
	if got := string(vec[0].Metric["connector_id"]); got != "c-1" {
		t.Errorf("期望 connector_id=c-1, 实际 %s", got)
	}

	// matrix结果不能按vector解码
	result.ResultType = "matrix"
	if _, err := result.Vector(); err == nil {
		t.Error("期望非vector类型返回错误")
	}
}
