/*
 * @module api/controllers/sap_health_controller
 * @description SAP集成健康状态控制器，供前端30秒轮询整体与各连接器健康
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 优先返回后台巡检缓存的状态，缓存为空时同步执行一轮检查
 * @rules 健康状态只读，状态变更由健康检查器负责
 * @dependencies dpp-integration-service/service, github.com/go-chi/render
 * @refs service/monitoring/health_checker.go
 */

package controllers

import (
	"dpp-integration-service/service/monitoring"
	"net/http"

	"github.com/go-chi/render"
)

// SAPHealthController SAP集成健康状态控制器
type SAPHealthController struct {
	checker *monitoring.HealthChecker
}

// NewSAPHealthController 创建SAP健康状态控制器实例
func NewSAPHealthController(checker *monitoring.HealthChecker) *SAPHealthController {
	return &SAPHealthController{
		checker: checker,
	}
}

// @Summary 获取SAP集成健康状态
// @Description 获取整体健康级别和各连接器的最近检查结果
// @Tags SAP集成
// @Produce json
// @Success 200 {object} APIResponse{data=models.SAPHealthStatus}
// @Failure 500 {object} APIResponse
// @Router /integrations/sap/health [get]
func (c *SAPHealthController) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := c.checker.LastStatus()
	if status == nil {
		// 后台巡检还未跑完第一轮，同步执行一次
		fresh, err := c.checker.CheckAll(r.Context())
		if err != nil {
			render.Render(w, r, InternalErrorResponse("健康检查失败", err))
			return
		}
		status = fresh
	}

	render.JSON(w, r, SuccessResponse("获取健康状态成功", status))
}
