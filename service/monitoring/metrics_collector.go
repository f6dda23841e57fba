/*
 * @module service/monitoring/metrics_collector
 * @description Prometheus指标收集器，暴露同步运行与连接器健康指标
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 同步事件 -> 计数/直方图打点 -> /metrics拉取
 * @rules 指标注册到默认Registry，由主程序挂载promhttp暴露
 * @dependencies github.com/prometheus/client_golang
 * @refs service/sap_sync/sync_engine.go, main.go
 */

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dpp-integration-service/service/meta"
	"dpp-integration-service/service/models"
)

// MetricsCollector 同步与健康指标收集器，实现sap_sync.RunPublisher
type MetricsCollector struct {
	runsTotal        *prometheus.CounterVec
	recordsProcessed prometheus.Counter
	runDuration      prometheus.Histogram
	progressEvents   prometheus.Counter
	connectorHealth  *prometheus.GaugeVec
	probeDuration    prometheus.Histogram
}

// NewMetricsCollector 创建指标收集器并注册到默认Registry
func NewMetricsCollector() *MetricsCollector {
	return newMetricsCollector(prometheus.DefaultRegisterer)
}

func newMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)
	return &MetricsCollector{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dpp",
			Subsystem: "sap_sync",
			Name:      "runs_total",
			Help:      "同步运行终态计数，按状态与错误码分组",
		}, []string{"status", "error_code"}),
		recordsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dpp",
			Subsystem: "sap_sync",
			Name:      "records_processed_total",
			Help:      "已处理的SAP记录总数",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dpp",
			Subsystem: "sap_sync",
			Name:      "run_duration_seconds",
			Help:      "同步运行时长分布",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		progressEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dpp",
			Subsystem: "sap_sync",
			Name:      "progress_events_total",
			Help:      "同步进度推进事件总数",
		}),
		connectorHealth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dpp",
			Subsystem: "sap_connector",
			Name:      "healthy",
			Help:      "连接器健康状态 (1=active, 0.5=degraded, 0=error)",
		}, []string{"connector_id"}),
		probeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dpp",
			Subsystem: "sap_connector",
			Name:      "probe_duration_seconds",
			Help:      "连通性探测响应时间分布",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
	}
}

// PublishProgress 进度事件打点
func (m *MetricsCollector) PublishProgress(run *models.SyncRun) {
	m.progressEvents.Inc()
}

// PublishTerminal 终态事件打点
func (m *MetricsCollector) PublishTerminal(run *models.SyncRun) {
	m.runsTotal.WithLabelValues(run.Status, run.ErrorCode).Inc()
	m.recordsProcessed.Add(float64(run.RecordsProcessed))
	if d := run.Duration(); d != nil {
		m.runDuration.Observe(d.Seconds())
	}
}

// ObserveHealth 记录一轮健康检查结果
func (m *MetricsCollector) ObserveHealth(status *models.SAPHealthStatus) {
	for _, c := range status.Connectors {
		var value float64
		switch c.Status {
		case meta.ConnectorStatusActive:
			value = 1
		case meta.ConnectorStatusDegraded:
			value = 0.5
		}
		m.connectorHealth.WithLabelValues(c.ConnectorID).Set(value)

		if c.ResponseTime > 0 {
			m.probeDuration.Observe(c.ResponseTime.Seconds())
		}
	}
}
