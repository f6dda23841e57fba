/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、配置加载等初始化工作
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs service/database/migrate.go
 */

package service

import (
	"context"
	"dpp-integration-service/monitor_client"
	"dpp-integration-service/service/cleanup"
	"dpp-integration-service/service/database"
	"dpp-integration-service/service/event"
	"dpp-integration-service/service/integration"
	"dpp-integration-service/service/monitoring"
	"dpp-integration-service/service/rate_limiter"
	"dpp-integration-service/service/realtime"
	"dpp-integration-service/service/sap_errors"
	"dpp-integration-service/service/sap_sync"
	"dpp-integration-service/service/scheduler"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                       *gorm.DB
	GlobalEventService       *event.EventService
	GlobalIntegrationService *integration.IntegrationService
	GlobalSyncEngine         *sap_sync.SyncEngine
	GlobalMetricsCollector   *monitoring.MetricsCollector
	GlobalHealthChecker      *monitoring.HealthChecker
	GlobalSchedulerService   *scheduler.SchedulerService
	GlobalMQTTTrigger        *realtime.MQTTTrigger
	GlobalRateLimiter        *rate_limiter.RedisRateLimiter
	GlobalRunCleanupService  *cleanup.RunCleanupService
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")

	if err := database.InitializeData(DB); err != nil {
		log.Fatalf("基础数据初始化失败: %v", err)
	}
	log.Println("基础数据初始化完成")

	if err := database.AutoMigrateView(DB); err != nil {
		log.Fatalf("视图迁移失败: %v", err)
	}
	log.Println("视图迁移完成")

	log.Println("所有数据库迁移任务完成")
}

// initServices 初始化服务
func initServices() {
	// 分类后的原始错误下沉到Loki，便于按错误码检索
	sap_errors.SetLogSink(monitor_client.LokiPush)

	// 初始化事件服务和指标收集器
	GlobalEventService = event.NewEventService(DB)
	GlobalMetricsCollector = monitoring.NewMetricsCollector()

	// 连接器配置服务，列表查询走Redis缓存
	GlobalIntegrationService = integration.NewIntegrationService(DB).
		WithCache(integration.NewConnectorCache())

	// 同步引擎，运行事件同时推送给SSE订阅者和指标收集器
	GlobalSyncEngine = sap_sync.NewSyncEngine(DB).
		WithPublisher(sap_sync.NewMultiPublisher(GlobalEventService, GlobalMetricsCollector))

	// 健康检查器与调度器
	GlobalHealthChecker = monitoring.NewHealthChecker(DB, sap_sync.NewSimulatedSAPClient()).
		WithCollector(GlobalMetricsCollector)
	GlobalSchedulerService = scheduler.NewSchedulerService(DB, GlobalSyncEngine)

	// MQTT实时触发器，未配置MQTT_BROKER时自动禁用
	GlobalMQTTTrigger = realtime.NewMQTTTrigger(DB, GlobalSyncEngine)

	// 同步触发限流器，Redis不可用时降级为不限流
	var err error
	GlobalRateLimiter, err = rate_limiter.NewRedisRateLimiter()
	if err != nil {
		log.Printf("限流器初始化失败，同步触发不限流: %v", err)
		GlobalRateLimiter = nil
	}

	// 终态运行记录保留期清理
	GlobalRunCleanupService = cleanup.NewRunCleanupService(DB)

	// 首次健康检查同步执行，让状态在API可用前就绪
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := GlobalHealthChecker.CheckAll(ctx); err != nil {
		log.Printf("初始健康检查失败: %v", err)
	}

	GlobalHealthChecker.Start()

	if err := GlobalSchedulerService.Start(); err != nil {
		log.Printf("启动调度器服务失败: %v", err)
	}

	if err := GlobalMQTTTrigger.Start(); err != nil {
		log.Printf("启动MQTT触发器失败: %v", err)
	}

	if err := GlobalRunCleanupService.StartScheduledCleanup(); err != nil {
		log.Printf("启动运行记录清理调度器失败: %v", err)
	}

	log.Println("服务初始化完成")
}

// Shutdown 按依赖逆序停止后台服务
func Shutdown() {
	if GlobalRunCleanupService != nil {
		GlobalRunCleanupService.StopScheduledCleanup()
	}
	if GlobalRateLimiter != nil {
		GlobalRateLimiter.Close()
	}
	if GlobalMQTTTrigger != nil {
		GlobalMQTTTrigger.Stop()
	}
	if GlobalSchedulerService != nil {
		GlobalSchedulerService.Stop()
	}
	if GlobalHealthChecker != nil {
		GlobalHealthChecker.Stop()
	}
	if GlobalSyncEngine != nil {
		GlobalSyncEngine.Stop()
	}
	if GlobalEventService != nil {
		GlobalEventService.Stop()
	}
	log.Println("服务已全部停止")
}
