/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, api/middleware
 */

package api

import (
	"dpp-integration-service/api/controllers"
	custommw "dpp-integration-service/api/middleware"
	"dpp-integration-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Token鉴权，白名单路径直接放行
	authMiddleware := custommw.NewTokenAuthMiddleware()
	r.Use(authMiddleware.Middleware)

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// Prometheus指标抓取
	r.Handle("/metrics", promhttp.Handler())

	// SAP集成
	r.Route("/api/integrations", func(r chi.Router) {
		connectorController := controllers.NewSAPConnectorController(
			service.GlobalIntegrationService,
			service.GlobalSyncEngine,
			service.GlobalEventService,
			service.GlobalSchedulerService,
		)
		sapHealthController := controllers.NewSAPHealthController(service.GlobalHealthChecker)
		monitoringController := controllers.NewSAPMonitoringController()

		// 连接器配置管理
		r.Route("/connectors", func(r chi.Router) {
			r.Get("/", connectorController.ListConnectors)
			r.Post("/", connectorController.CreateConnector)
			r.Get("/{id}", connectorController.GetConnector)
			r.Patch("/{id}", connectorController.UpdateConnector)

			// 连通性测试与同步触发，手动触发受Redis限流保护
			r.Post("/{id}/test", connectorController.TestConnector)
			r.With(custommw.SyncTriggerRateLimit(service.GlobalRateLimiter)).
				Post("/{id}/sync", connectorController.TriggerSync)

			// 同步历史与统计
			r.Get("/{id}/logs", connectorController.ListSyncRuns)
			r.Get("/{id}/stats", connectorController.GetConnectorStats)

			// SSE事件流
			r.Get("/{id}/events", connectorController.StreamEvents)

			// 监控后端指标
			r.Get("/{id}/metrics", monitoringController.GetConnectorMetrics)
		})

		// 单次运行详情
		r.Get("/runs/{runId}", connectorController.GetSyncRun)

		// 元数据与错误目录
		r.Get("/meta", connectorController.GetConnectorMeta)
		r.Get("/errors", connectorController.ListErrorCatalog)
		r.Get("/errors/recent", monitoringController.GetRecentErrors)

		// 整体健康状态，前端每30秒轮询
		r.Get("/sap/health", sapHealthController.GetHealth)
	})
}
