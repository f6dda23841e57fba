/*
 * @module api/controllers/sap_monitoring_controller
 * @description SAP集成运行观测接口，从Loki查询近期分类错误，从VictoriaMetrics查询同步指标
 * @architecture RESTful API架构
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow HTTP请求 -> 构造查询 -> 监控后端查询 -> 结果组装
 * @rules 监控后端不可用时返回502，不影响核心同步链路
 * @dependencies dpp-integration-service/monitor_client
 * @refs monitor_client/loki_client.go, monitor_client/victoria_metrics_client.go
 */

package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"dpp-integration-service/monitor_client"
)

// SAPMonitoringController SAP集成运行观测控制器
type SAPMonitoringController struct{}

// NewSAPMonitoringController 创建观测控制器
func NewSAPMonitoringController() *SAPMonitoringController {
	return &SAPMonitoringController{}
}

// RecentError 近期分类错误条目
type RecentError struct {
	Timestamp   string `json:"timestamp"`
	ConnectorID string `json:"connector_id"`
	ErrorCode   string `json:"error_code"`
	Category    string `json:"category"`
	Message     string `json:"message"`
}

// GetRecentErrors 查询近期分类错误
// @Summary 查询近期分类错误
// @Description 从Loki查询最近时间窗口内的分类错误日志，可按连接器过滤
// @Tags SAP集成观测
// @Param connector_id query string false "连接器ID"
// @Param limit query int false "返回条数上限，默认50"
// @Param hours query int false "回溯小时数，默认24"
// @Success 200 {object} APIResponse
// @Router /api/integrations/errors/recent [get]
func (c *SAPMonitoringController) GetRecentErrors(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			render.Render(w, r, BadRequestResponse("limit参数无效", err))
			return
		}
		limit = parsed
	}

	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	query := `{app="dpp-integration-service"}`
	if connectorID := r.URL.Query().Get("connector_id"); connectorID != "" {
		query = fmt.Sprintf(`{app="dpp-integration-service", connector_id="%s"}`, connectorID)
	}

	end := time.Now()
	start := end.Add(-time.Duration(hours) * time.Hour)

	result, err := monitor_client.LokiRangeQuery(r.Context(), query, limit, start, end)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadGateway, "查询错误日志失败", err))
		return
	}

	errorList := make([]RecentError, 0)
	for _, stream := range result.Result {
		for _, value := range stream.Values {
			errorList = append(errorList, RecentError{
				Timestamp:   value[0],
				ConnectorID: stream.Stream["connector_id"],
				ErrorCode:   stream.Stream["error_code"],
				Category:    stream.Stream["category"],
				Message:     value[1],
			})
		}
	}

	render.JSON(w, r, SuccessResponse("查询成功", map[string]interface{}{
		"errors": errorList,
		"window_hours": hours,
	}))
}

// GetConnectorMetrics 查询连接器同步指标
// @Summary 查询连接器同步指标
// @Description 从VictoriaMetrics查询同步运行计数与健康状态抽样
// @Tags SAP集成观测
// @Param id path string true "连接器ID"
// @Success 200 {object} APIResponse
// @Router /api/integrations/connectors/{id}/metrics [get]
func (c *SAPMonitoringController) GetConnectorMetrics(w http.ResponseWriter, r *http.Request) {
	connectorID := chi.URLParam(r, "id")
	now := time.Now()

	metrics := map[string]interface{}{"connector_id": connectorID}

	healthQuery := fmt.Sprintf(`dpp_sap_connector_healthy{connector_id="%s"}`, connectorID)
	if result, err := monitor_client.Query(r.Context(), healthQuery, now); err == nil {
		if vector, verr := result.Vector(); verr == nil && len(vector) > 0 {
			metrics["health_gauge"] = float64(vector[0].Value)
		}
	}

	runsResult, err := monitor_client.Query(r.Context(), `sum by (status) (dpp_sap_sync_runs_total)`, now)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadGateway, "查询同步指标失败", err))
		return
	}

	runCounts := map[string]float64{}
	if vector, verr := runsResult.Vector(); verr == nil {
		for _, sample := range vector {
			runCounts[string(sample.Metric["status"])] = float64(sample.Value)
		}
	}
	metrics["runs_by_status"] = runCounts

	render.JSON(w, r, SuccessResponse("查询成功", metrics))
}
