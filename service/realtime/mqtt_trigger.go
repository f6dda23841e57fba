/*
 * @module service/realtime/mqtt_trigger
 * @description MQTT实时触发器，订阅外部系统的变更通知并立即触发对应连接器的同步
 * @architecture 发布订阅模式 - 连接MQTT broker并订阅触发主题
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 连接broker -> 订阅dpp/connectors/+/sync -> 收到消息 -> 校验实时连接器 -> 触发同步
 * @rules 仅sync_frequency为realtime的连接器响应MQTT触发；broker未配置时触发器禁用
 * @dependencies github.com/eclipse/paho.mqtt.golang, gorm.io/gorm
 * @refs service/sap_sync/sync_engine.go
 */

package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"gorm.io/gorm"

	"dpp-integration-service/service/models"
	"dpp-integration-service/service/sap_sync"
)

const (
	// TriggerTopicPattern 触发主题模式，+为连接器ID
	TriggerTopicPattern = "dpp/connectors/+/sync"
	// TriggeredByMQTT MQTT触发来源标识
	TriggeredByMQTT = "mqtt"

	defaultQoS     = 1
	connectTimeout = 10 * time.Second
)

// MQTTTrigger MQTT实时同步触发器
type MQTTTrigger struct {
	db     *gorm.DB
	runner sap_sync.SyncRunner
	client mqtt.Client
	broker string
}

// NewMQTTTrigger 从环境变量创建触发器，MQTT_BROKER未配置时返回禁用实例
func NewMQTTTrigger(db *gorm.DB, runner sap_sync.SyncRunner) *MQTTTrigger {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		slog.Info("MQTT_BROKER未配置，实时同步触发器已禁用")
		return &MQTTTrigger{db: db, runner: runner}
	}
	return &MQTTTrigger{db: db, runner: runner, broker: broker}
}

// Start 连接broker并订阅触发主题
func (t *MQTTTrigger) Start() error {
	if t.broker == "" {
		return nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(t.broker).
		SetClientID(fmt.Sprintf("dpp-integration-%d", time.Now().UnixNano())).
		SetUsername(os.Getenv("MQTT_USERNAME")).
		SetPassword(os.Getenv("MQTT_PASSWORD")).
		SetAutoReconnect(true).
		SetKeepAlive(60 * time.Second).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(func(client mqtt.Client) {
			token := client.Subscribe(TriggerTopicPattern, defaultQoS, t.handleMessage)
			if token.Wait() && token.Error() != nil {
				slog.Error("订阅MQTT触发主题失败", "topic", TriggerTopicPattern, "error", token.Error())
				return
			}
			slog.Info("MQTT触发主题已订阅", "topic", TriggerTopicPattern)
		}).
		SetConnectionLostHandler(func(client mqtt.Client, err error) {
			slog.Warn("MQTT连接断开", "error", err)
		})

	t.client = mqtt.NewClient(opts)
	token := t.client.Connect()
	if !token.WaitTimeout(connectTimeout) || token.Error() != nil {
		return fmt.Errorf("连接MQTT broker失败: %v", token.Error())
	}

	slog.Info("MQTT实时触发器已启动", "broker", t.broker)
	return nil
}

// handleMessage 处理触发消息，主题格式 dpp/connectors/<id>/sync
func (t *MQTTTrigger) handleMessage(client mqtt.Client, msg mqtt.Message) {
	connectorID := ExtractConnectorID(msg.Topic())
	if connectorID == "" {
		slog.Warn("无法从MQTT主题解析连接器ID", "topic", msg.Topic())
		return
	}

	var connector models.ConnectorConfig
	if err := t.db.First(&connector, "id = ?", connectorID).Error; err != nil {
		slog.Warn("MQTT触发的连接器不存在", "connector_id", connectorID)
		return
	}
	if !connector.IsRealtime() {
		slog.Info("MQTT触发跳过: 连接器非实时同步模式",
			"connector_id", connectorID,
			"sync_frequency", connector.SyncFrequency)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	run, err := t.runner.Trigger(ctx, connectorID, TriggeredByMQTT)
	if err != nil {
		switch err.(type) {
		case *sap_sync.AlreadyRunningError:
			slog.Info("MQTT触发跳过: 同步已在运行", "connector_id", connectorID)
		default:
			slog.Error("MQTT触发同步失败", "connector_id", connectorID, "error", err)
		}
		return
	}

	slog.Info("MQTT触发同步成功", "connector_id", connectorID, "run_id", run.ID)
}

// Stop 断开MQTT连接
func (t *MQTTTrigger) Stop() {
	if t.client != nil && t.client.IsConnected() {
		t.client.Disconnect(250)
		slog.Info("MQTT实时触发器已停止")
	}
}

// ExtractConnectorID 从触发主题中解析连接器ID
func ExtractConnectorID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "dpp" || parts[1] != "connectors" || parts[3] != "sync" {
		return ""
	}
	return parts[2]
}
