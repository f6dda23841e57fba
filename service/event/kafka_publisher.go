/*
 * @module service/event/kafka_publisher
 * @description Kafka终态事件发布器，将同步运行的终态投递到下游消费方
 * @architecture 事件驱动架构 - 消息投递
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 终态事件 -> JSON序列化 -> 按连接器ID分区投递
 * @rules KAFKA_BROKERS未配置时发布器禁用；投递失败只记录日志不影响同步流程
 * @dependencies github.com/segmentio/kafka-go
 * @refs event_service.go
 */

package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"dpp-integration-service/service/models"
)

// DefaultSyncRunTopic 终态事件的默认topic
const DefaultSyncRunTopic = "dpp.sap.sync-runs"

// KafkaPublisher Kafka终态事件发布器
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaPublisher 从环境变量创建发布器，未配置KAFKA_BROKERS时返回禁用实例
func NewKafkaPublisher() *KafkaPublisher {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		slog.Info("KAFKA_BROKERS未配置，同步终态Kafka投递已禁用")
		return &KafkaPublisher{}
	}

	topic := getEnvWithDefault("KAFKA_SYNC_RUN_TOPIC", DefaultSyncRunTopic)
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
	}

	slog.Info("Kafka终态事件发布器已启用", "brokers", brokers, "topic", topic)
	return &KafkaPublisher{writer: writer, topic: topic}
}

// PublishTerminalAsync 异步投递终态事件
func (p *KafkaPublisher) PublishTerminalAsync(run *models.SyncRun) {
	if p == nil || p.writer == nil {
		return
	}

	go func() {
		payload, err := json.Marshal(&RunEvent{
			Type:      EventTypeTerminal,
			Timestamp: time.Now(),
			Run:       run,
		})
		if err != nil {
			slog.Error("终态事件序列化失败", "run_id", run.ID, "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err = p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(run.ConnectorID),
			Value: payload,
		})
		if err != nil {
			slog.Warn("终态事件Kafka投递失败",
				"run_id", run.ID,
				"topic", p.topic,
				"error", err)
			return
		}

		slog.Debug("终态事件已投递Kafka", "run_id", run.ID, "status", run.Status)
	}()
}

// Close 关闭发布器
func (p *KafkaPublisher) Close() {
	if p == nil || p.writer == nil {
		return
	}
	if err := p.writer.Close(); err != nil {
		slog.Warn("关闭Kafka发布器失败", "error", err)
	}
}
