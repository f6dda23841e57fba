/*
 * @module api/controllers/sap_connector_controller
 * @description SAP连接器控制器，处理连接器配置CRUD、连通性测试、同步触发和运行查询
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow HTTP请求处理流程，同步触发与SSE事件推送流程
 * @rules 统一的错误处理和响应格式，分类后的错误才允许进入响应体
 * @dependencies dpp-integration-service/service, github.com/go-chi/render
 * @refs service/integration, service/sap_sync, service/sap_errors
 */

package controllers

import (
	"dpp-integration-service/service/event"
	"dpp-integration-service/service/integration"
	"dpp-integration-service/service/meta"
	"dpp-integration-service/service/models"
	"dpp-integration-service/service/sap_errors"
	"dpp-integration-service/service/sap_sync"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// SAPConnectorController SAP连接器控制器
type SAPConnectorController struct {
	integrationService *integration.IntegrationService
	runner             sap_sync.SyncRunner
	eventService       *event.EventService
	scheduler          schedulerReloader
}

// schedulerReloader 连接器变更后重建调度表
type schedulerReloader interface {
	Reload() error
}

// NewSAPConnectorController 创建SAP连接器控制器实例
func NewSAPConnectorController(integrationService *integration.IntegrationService, runner sap_sync.SyncRunner,
	eventService *event.EventService, scheduler schedulerReloader) *SAPConnectorController {
	return &SAPConnectorController{
		integrationService: integrationService,
		runner:             runner,
		eventService:       eventService,
		scheduler:          scheduler,
	}
}

// @Summary 获取连接器列表
// @Description 获取所有SAP连接器配置，按创建时间倒序
// @Tags SAP集成
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.ConnectorConfig}
// @Failure 500 {object} APIResponse
// @Router /integrations/connectors [get]
func (c *SAPConnectorController) ListConnectors(w http.ResponseWriter, r *http.Request) {
	connectors, err := c.integrationService.ListConnectors(r.Context())
	if err != nil {
		render.Render(w, r, InternalErrorResponse("获取连接器列表失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取连接器列表成功", connectors))
}

// @Summary 创建连接器
// @Description 创建SAP连接器配置，校验失败时返回按字段分组的错误
// @Tags SAP集成
// @Accept json
// @Produce json
// @Param request body models.ConnectorConfig true "连接器配置"
// @Success 200 {object} APIResponse{data=models.ConnectorConfig}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /integrations/connectors [post]
func (c *SAPConnectorController) CreateConnector(w http.ResponseWriter, r *http.Request) {
	var req models.ConnectorConfig
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	if err := c.integrationService.CreateConnector(r.Context(), &req); err != nil {
		var verr *integration.ValidationError
		if errors.As(err, &verr) {
			render.Render(w, r, validationErrorResponse(verr))
			return
		}
		render.Render(w, r, InternalErrorResponse("创建连接器失败", err))
		return
	}

	c.reloadScheduler()
	render.JSON(w, r, SuccessResponse("创建连接器成功", req))
}

// @Summary 获取连接器详情
// @Description 按ID获取单个连接器配置
// @Tags SAP集成
// @Produce json
// @Param id path string true "连接器ID"
// @Success 200 {object} APIResponse{data=models.ConnectorConfig}
// @Failure 404 {object} APIResponse
// @Router /integrations/connectors/{id} [get]
func (c *SAPConnectorController) GetConnector(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	connector, err := c.integrationService.GetConnector(r.Context(), id)
	if err != nil {
		var nferr *integration.NotFoundError
		if errors.As(err, &nferr) {
			render.Render(w, r, NotFoundResponse("连接器不存在", err))
			return
		}
		render.Render(w, r, InternalErrorResponse("获取连接器失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取连接器成功", connector))
}

// @Summary 更新连接器
// @Description 部分更新连接器配置，未提交的字段保持不变；id、status等字段不可通过此接口修改
// @Tags SAP集成
// @Accept json
// @Produce json
// @Param id path string true "连接器ID"
// @Param request body map[string]interface{} true "要更新的字段"
// @Success 200 {object} APIResponse{data=models.ConnectorConfig}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /integrations/connectors/{id} [patch]
func (c *SAPConnectorController) UpdateConnector(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var updates map[string]interface{}
	if err := render.DecodeJSON(r.Body, &updates); err != nil {
		render.Render(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	if len(updates) == 0 {
		render.Render(w, r, BadRequestResponse("没有要更新的字段", nil))
		return
	}

	connector, err := c.integrationService.UpdateConnector(r.Context(), id, updates)
	if err != nil {
		var verr *integration.ValidationError
		var nferr *integration.NotFoundError
		switch {
		case errors.As(err, &verr):
			render.Render(w, r, validationErrorResponse(verr))
		case errors.As(err, &nferr):
			render.Render(w, r, NotFoundResponse("连接器不存在", err))
		default:
			render.Render(w, r, InternalErrorResponse("更新连接器失败", err))
		}
		return
	}

	c.reloadScheduler()
	render.JSON(w, r, SuccessResponse("更新连接器成功", connector))
}

// @Summary 测试连接器连通性
// @Description 对连接器执行一次连通性探测并返回更新后的健康状态
// @Tags SAP集成
// @Produce json
// @Param id path string true "连接器ID"
// @Success 200 {object} APIResponse{data=models.ConnectorHealth}
// @Failure 404 {object} APIResponse
// @Router /integrations/connectors/{id}/test [post]
func (c *SAPConnectorController) TestConnector(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	health, err := c.runner.TestConnection(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.Render(w, r, NotFoundResponse("连接器不存在", nil))
			return
		}
		render.Render(w, r, InternalErrorResponse("连通性测试失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("连通性测试完成", health))
}

// @Summary 触发同步
// @Description 触发一次同步运行并立即返回running状态的运行记录，进度通过SSE或轮询获取
// @Tags SAP集成
// @Produce json
// @Param id path string true "连接器ID"
// @Success 200 {object} APIResponse{data=models.SyncRun}
// @Failure 404 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Failure 422 {object} APIResponse
// @Router /integrations/connectors/{id}/sync [post]
func (c *SAPConnectorController) TriggerSync(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := c.runner.Trigger(r.Context(), id, sap_sync.TriggeredByManual)
	if err != nil {
		var arErr *sap_sync.AlreadyRunningError
		var isErr *sap_sync.InvalidStateError
		switch {
		case errors.As(err, &arErr):
			render.Render(w, r, ConflictResponse("同步任务已在运行", err))
		case errors.As(err, &isErr):
			render.Render(w, r, ErrorResponse(http.StatusUnprocessableEntity, "连接器状态不允许同步", err))
		case errors.Is(err, gorm.ErrRecordNotFound):
			render.Render(w, r, NotFoundResponse("连接器不存在", nil))
		default:
			classified := sap_errors.Classify(err)
			render.Render(w, r, &errRenderer{
				APIResponse: APIResponse{
					Status: http.StatusInternalServerError,
					Msg:    "触发同步失败",
					Data:   classified.ToAPIError(),
				},
				httpStatus: http.StatusInternalServerError,
			})
		}
		return
	}

	render.JSON(w, r, SuccessResponse("同步已启动", run))
}

// @Summary 获取同步运行历史
// @Description 获取连接器最近的同步运行摘要，按开始时间倒序
// @Tags SAP集成
// @Produce json
// @Param id path string true "连接器ID"
// @Param limit query int false "返回条数，默认20，最大100"
// @Success 200 {object} APIResponse{data=[]models.SyncRun}
// @Failure 404 {object} APIResponse
// @Router /integrations/connectors/{id}/logs [get]
func (c *SAPConnectorController) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := integration.DefaultRunListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			render.Render(w, r, BadRequestResponse("limit参数格式错误", err))
			return
		}
		limit = parsed
	}

	runs, err := c.integrationService.ListSyncRuns(r.Context(), id, limit)
	if err != nil {
		var nferr *integration.NotFoundError
		if errors.As(err, &nferr) {
			render.Render(w, r, NotFoundResponse("连接器不存在", err))
			return
		}
		render.Render(w, r, InternalErrorResponse("获取同步历史失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取同步历史成功", runs))
}

// @Summary 获取单次运行详情
// @Description 按运行ID获取完整运行记录，包含日志行和错误信息
// @Tags SAP集成
// @Produce json
// @Param runId path string true "运行ID"
// @Success 200 {object} APIResponse{data=models.SyncRun}
// @Failure 404 {object} APIResponse
// @Router /integrations/runs/{runId} [get]
func (c *SAPConnectorController) GetSyncRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")

	run, err := c.integrationService.GetSyncRun(r.Context(), runID)
	if err != nil {
		var nferr *integration.NotFoundError
		if errors.As(err, &nferr) {
			render.Render(w, r, NotFoundResponse("同步运行不存在", err))
			return
		}
		render.Render(w, r, InternalErrorResponse("获取运行详情失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取运行详情成功", run))
}

// @Summary 获取连接器统计
// @Description 获取连接器生命周期内的运行次数、成功率和记录计数
// @Tags SAP集成
// @Produce json
// @Param id path string true "连接器ID"
// @Success 200 {object} APIResponse{data=models.ConnectorStatistics}
// @Failure 404 {object} APIResponse
// @Router /integrations/connectors/{id}/stats [get]
func (c *SAPConnectorController) GetConnectorStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stats, err := c.integrationService.GetConnectorStats(r.Context(), id)
	if err != nil {
		var nferr *integration.NotFoundError
		if errors.As(err, &nferr) {
			render.Render(w, r, NotFoundResponse("连接器不存在", err))
			return
		}
		render.Render(w, r, InternalErrorResponse("获取连接器统计失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取连接器统计成功", stats))
}

// @Summary 订阅同步事件流
// @Description SSE流式推送同步运行的进度和终态事件，断开连接自动取消订阅
// @Tags SAP集成
// @Produce text/event-stream
// @Param id path string true "连接器ID"
// @Success 200 {string} string "SSE事件流"
// @Router /integrations/connectors/{id}/events [get]
func (c *SAPConnectorController) StreamEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	subscriberID, events := c.eventService.Subscribe(id)
	defer c.eventService.Unsubscribe(subscriberID)

	// 发送连接成功事件
	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"subscriber_id\":\"%s\",\"timestamp\":\"%s\"}\n\n",
		subscriberID, time.Now().Format(time.RFC3339))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, toJSON(ev))
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}

		case <-r.Context().Done():
			return
		}
	}
}

// @Summary 获取连接器元数据
// @Description 获取连接器配置可选的枚举值，供前端表单渲染
// @Tags SAP集成
// @Produce json
// @Success 200 {object} APIResponse{data=map[string]interface{}}
// @Router /integrations/meta [get]
func (c *SAPConnectorController) GetConnectorMeta(w http.ResponseWriter, r *http.Request) {
	connectorMeta := map[string]interface{}{
		"system_types":         meta.GetAllSystemTypes(),
		"system_display_names": meta.SystemTypeDisplayNames,
		"api_types":            meta.GetAllAPITypes(),
		"sync_directions":      meta.GetAllSyncDirections(),
		"sync_frequencies":     meta.GetAllSyncFrequencies(),
		"transformations":      integration.BuiltinTransforms(),
	}
	render.JSON(w, r, SuccessResponse("获取连接器元数据成功", connectorMeta))
}

// @Summary 获取错误目录
// @Description 获取SAP集成错误目录，包含错误码、分类、严重级别和处理建议
// @Tags SAP集成
// @Produce json
// @Success 200 {object} APIResponse{data=[]sap_errors.ClassifiedError}
// @Router /integrations/errors [get]
func (c *SAPConnectorController) ListErrorCatalog(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取错误目录成功", sap_errors.ListAll()))
}

func (c *SAPConnectorController) reloadScheduler() {
	if c.scheduler == nil {
		return
	}
	if err := c.scheduler.Reload(); err != nil {
		// 调度表重建失败不影响本次配置变更
		slog.Warn("调度表重建失败", "error", err)
	}
}

// validationErrorResponse 按字段分组的400响应
func validationErrorResponse(verr *integration.ValidationError) render.Renderer {
	return &errRenderer{
		APIResponse: APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "配置校验失败",
			Data:   map[string]interface{}{"fields": verr.Fields},
		},
		httpStatus: http.StatusBadRequest,
	}
}
