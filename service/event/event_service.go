/*
 * @module service/event/event_service
 * @description 同步运行事件服务，向SSE订阅者分发进度/终态事件，并将终态投递到Kafka
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 引擎发布事件 -> 按连接器分发SSE订阅者 -> 终态异步投递Kafka
 * @rules 订阅者通道满时丢弃事件不阻塞引擎；Kafka不可用时只记录日志
 * @dependencies github.com/lib/pq, github.com/google/uuid, gorm.io/gorm
 * @refs service/sap_sync/sync_engine.go, api/controllers/connector_controller.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"dpp-integration-service/service/models"
)

// 事件类型
const (
	EventTypeProgress = "sync.progress"
	EventTypeTerminal = "sync.terminal"
)

// pgNotifyChannel 数据库变更通知通道名
const pgNotifyChannel = "dpp_sync_events"

// RunEvent 同步运行事件
type RunEvent struct {
	Type      string          `json:"type"` // sync.progress, sync.terminal
	Timestamp time.Time       `json:"timestamp"`
	Run       *models.SyncRun `json:"run"`
}

// subscriber 单个SSE订阅者
type subscriber struct {
	id          string
	connectorID string // 为空表示订阅全部连接器
	ch          chan *RunEvent
}

// EventService 同步运行事件服务，实现sap_sync.RunPublisher
type EventService struct {
	db    *gorm.DB
	kafka *KafkaPublisher

	mu          sync.RWMutex
	subscribers map[string]*subscriber

	dbListener *pq.Listener
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewEventService 创建事件服务
func NewEventService(db *gorm.DB) *EventService {
	ctx, cancel := context.WithCancel(context.Background())

	service := &EventService{
		db:          db,
		kafka:       NewKafkaPublisher(),
		subscribers: make(map[string]*subscriber),
		ctx:         ctx,
		cancel:      cancel,
	}

	// PostgreSQL环境下启动数据库变更监听，其他写入方的同步记录变更也能推送
	if connStr := postgresConnString(); connStr != "" {
		go service.startDBListener(connStr)
	}

	return service
}

// Subscribe 订阅连接器的运行事件，connectorID为空订阅全部
func (s *EventService) Subscribe(connectorID string) (string, <-chan *RunEvent) {
	sub := &subscriber{
		id:          uuid.New().String(),
		connectorID: connectorID,
		ch:          make(chan *RunEvent, 64),
	}

	s.mu.Lock()
	s.subscribers[sub.id] = sub
	s.mu.Unlock()

	slog.Info("SSE订阅已建立", "subscriber_id", sub.id, "connector_id", connectorID)
	return sub.id, sub.ch
}

// Unsubscribe 取消订阅
func (s *EventService) Unsubscribe(subscriberID string) {
	s.mu.Lock()
	sub, exists := s.subscribers[subscriberID]
	if exists {
		delete(s.subscribers, subscriberID)
	}
	s.mu.Unlock()

	if exists {
		close(sub.ch)
		slog.Info("SSE订阅已取消", "subscriber_id", subscriberID)
	}
}

// SubscriberCount 当前订阅者数量，诊断用
func (s *EventService) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// PublishProgress 分发进度事件
func (s *EventService) PublishProgress(run *models.SyncRun) {
	s.dispatch(&RunEvent{Type: EventTypeProgress, Timestamp: time.Now(), Run: run})
}

// PublishTerminal 分发终态事件并异步投递Kafka
func (s *EventService) PublishTerminal(run *models.SyncRun) {
	s.dispatch(&RunEvent{Type: EventTypeTerminal, Timestamp: time.Now(), Run: run})
	s.kafka.PublishTerminalAsync(run)
}

// dispatch 向匹配的订阅者分发事件，通道满时丢弃
func (s *EventService) dispatch(event *RunEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscribers {
		if sub.connectorID != "" && sub.connectorID != event.Run.ConnectorID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			slog.Warn("订阅者事件队列已满，事件被丢弃",
				"subscriber_id", sub.id,
				"event_type", event.Type)
		}
	}
}

// startDBListener 监听sync_runs表的数据库变更通知
func (s *EventService) startDBListener(connStr string) {
	s.dbListener = pq.NewListener(connStr, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				slog.Warn("PostgreSQL监听器事件", "event", ev, "error", err)
			}
		})

	if err := s.dbListener.Listen(pgNotifyChannel); err != nil {
		slog.Warn("监听数据库通知失败", "channel", pgNotifyChannel, "error", err)
		return
	}

	if err := s.ensureNotifyTrigger(); err != nil {
		slog.Warn("创建数据库通知触发器失败", "error", err)
	}

	slog.Info("同步事件数据库监听器已启动", "channel", pgNotifyChannel)

	for {
		select {
		case notification := <-s.dbListener.Notify:
			if notification != nil {
				s.handleDBNotification(notification)
			}
		case <-s.ctx.Done():
			slog.Info("同步事件数据库监听器已停止")
			return
		}
	}
}

// handleDBNotification 将数据库变更通知转为运行事件分发
func (s *EventService) handleDBNotification(notification *pq.Notification) {
	var payload struct {
		RecordID string `json:"record_id"`
		Type     string `json:"type"`
	}
	if err := json.Unmarshal([]byte(notification.Extra), &payload); err != nil {
		slog.Warn("解析数据库通知失败", "error", err)
		return
	}

	var run models.SyncRun
	if err := s.db.First(&run, "id = ?", payload.RecordID).Error; err != nil {
		return
	}

	eventType := EventTypeProgress
	if run.IsTerminal() {
		eventType = EventTypeTerminal
	}
	s.dispatch(&RunEvent{Type: eventType, Timestamp: time.Now(), Run: &run})
}

// ensureNotifyTrigger 确保sync_runs表的通知函数与触发器存在
func (s *EventService) ensureNotifyTrigger() error {
	createFunctionSQL := fmt.Sprintf(`
CREATE OR REPLACE FUNCTION notify_dpp_sync_events()
RETURNS TRIGGER AS $$
BEGIN
    PERFORM pg_notify('%s', json_build_object(
        'record_id', NEW.id,
        'type', TG_OP,
        'timestamp', extract(epoch from now())
    )::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;`, pgNotifyChannel)

	if err := s.db.Exec(createFunctionSQL).Error; err != nil {
		return err
	}

	createTriggerSQL := `
CREATE OR REPLACE TRIGGER sync_runs_notify
AFTER INSERT OR UPDATE ON sync_runs
FOR EACH ROW
EXECUTE FUNCTION notify_dpp_sync_events();`

	return s.db.Exec(createTriggerSQL).Error
}

// Stop 停止事件服务并关闭全部订阅
func (s *EventService) Stop() {
	s.cancel()

	if s.dbListener != nil {
		s.dbListener.Close()
	}

	s.mu.Lock()
	for _, sub := range s.subscribers {
		close(sub.ch)
	}
	s.subscribers = make(map[string]*subscriber)
	s.mu.Unlock()

	s.kafka.Close()
	slog.Info("事件服务已停止")
}

// postgresConnString 构造PostgreSQL连接串，非PG环境返回空
func postgresConnString() string {
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		return connStr
	}
	if os.Getenv("DB_HOST") == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnvWithDefault("DB_HOST", "localhost"),
		getEnvWithDefault("DB_PORT", "5432"),
		getEnvWithDefault("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		getEnvWithDefault("DB_NAME", "postgres"),
		getEnvWithDefault("DB_SSLMODE", "disable"))
}

// getEnvWithDefault 获取环境变量，不存在时返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
