/*
 * @module service/sap_sync/simulator
 * @description 模拟SAP客户端，在没有真实SAP系统的环境下产生可信的同步过程
 * @architecture 服务层 - 外部系统适配
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow Execute阻塞模拟数据传输 -> 随机成功/失败 -> 回填记录统计
 * @rules 失败时必须返回可被分类器识别的错误；记录计数满足 created+updated <= processed
 * @dependencies math/rand
 * @refs sync_engine.go, service/sap_errors
 */

package sap_sync

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"dpp-integration-service/service/models"
	"dpp-integration-service/service/sap_errors"
)

// SAPClient SAP系统客户端抽象，生产环境可替换为真实RFC/OData客户端
type SAPClient interface {
	// Execute 执行一次数据同步，阻塞直到完成或失败，成功时回填run的记录统计
	Execute(ctx context.Context, connector *models.ConnectorConfig, run *models.SyncRun) error
	// TestConnection 探测SAP系统连通性，返回响应耗时
	TestConnection(ctx context.Context, connector *models.ConnectorConfig) (time.Duration, error)
}

// 进度日志行模板，按阶段标签分组
var progressLogTemplates = []string{
	"[DATA] 正在读取物料主数据 (MARA/MAKT)...",
	"[DATA] 已获取 %d 条记录，继续分页拉取",
	"[DATA] 批次 %d 数据校验通过",
	"[MAP] 应用字段映射: MATNR -> sku",
	"[MAP] 应用字段映射: MAKTX -> name",
	"[MAP] 字段转换完成，%d 条记录待写入",
	"[REG] 正在写入产品护照注册表...",
	"[REG] 批次 %d 写入完成",
	"[REG] DPP标识符生成完成",
	"[NET] OData请求往返耗时 %dms",
	"[NET] 连接池状态正常 (active=%d)",
	"[NET] 会话令牌已刷新",
}

// 模拟失败时可能出现的错误
var simulatedFailures = []error{
	sap_errors.NewSAPError(sap_errors.CodeRFCError, "RFC call BAPI_MATERIAL_GETLIST failed"),
	sap_errors.NewSAPError(sap_errors.CodeODataError, "failed to fetch $metadata from gateway service"),
	sap_errors.NewSAPError(sap_errors.CodeDataNotFound, "material range returned empty result set"),
	errors.New("read tcp 10.0.0.8:44300: i/o timeout"),
	errors.New("dial tcp 10.0.0.8:44300: connect: connection refused"),
	errors.New("401 Unauthorized: access token expired"),
}

// RandomProgressLine 生成一条带时间戳的模拟进度日志
func RandomProgressLine() string {
	line := progressLogTemplates[rand.Intn(len(progressLogTemplates))]
	if strings.Contains(line, "%d") {
		line = fmt.Sprintf(line, rand.Intn(900)+100)
	}
	return fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), line)
}

// SimulatedSAPClient 模拟SAP客户端
type SimulatedSAPClient struct {
	// MinDuration/MaxDuration 单次同步的模拟时长区间
	MinDuration time.Duration
	MaxDuration time.Duration
	// FailureRate 失败概率 0-1
	FailureRate float64
}

// NewSimulatedSAPClient 创建默认参数的模拟客户端
func NewSimulatedSAPClient() *SimulatedSAPClient {
	return &SimulatedSAPClient{
		MinDuration: 4 * time.Second,
		MaxDuration: 9 * time.Second,
		FailureRate: 0.15,
	}
}

// Execute 模拟一次数据同步
func (c *SimulatedSAPClient) Execute(ctx context.Context, connector *models.ConnectorConfig, run *models.SyncRun) error {
	duration := c.MinDuration
	if c.MaxDuration > c.MinDuration {
		duration += time.Duration(rand.Int63n(int64(c.MaxDuration - c.MinDuration)))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(duration):
	}

	if rand.Float64() < c.FailureRate {
		return simulatedFailures[rand.Intn(len(simulatedFailures))]
	}

	processed := int64(rand.Intn(450) + 50)
	created := int64(rand.Int63n(processed + 1))
	updated := int64(rand.Int63n(processed - created + 1))
	run.RecordsProcessed = processed
	run.RecordsCreated = created
	run.RecordsUpdated = updated
	return nil
}

// TestConnection 模拟连通性探测，状态为error的主机名模拟失败
func (c *SimulatedSAPClient) TestConnection(ctx context.Context, connector *models.ConnectorConfig) (time.Duration, error) {
	latency := time.Duration(rand.Intn(180)+20) * time.Millisecond

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(latency):
	}

	// 约定: 主机名包含unreachable时模拟探测失败，用于演示环境
	if connector.Hostname == "" || strings.Contains(connector.Hostname, "unreachable") {
		return 0, sap_errors.NewSAPError(sap_errors.CodeHostUnreachable,
			fmt.Sprintf("dial tcp: lookup %s: no such host", connector.Hostname))
	}
	return latency, nil
}
