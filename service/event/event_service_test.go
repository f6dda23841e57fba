/*
 * @module service/event/event_service_test
 * @description 同步运行事件服务单元测试
 * @architecture 测试层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 订阅 -> 发布 -> 断言分发结果
 * @rules 不依赖外部PostgreSQL与Kafka
 * @dependencies github.com/stretchr/testify
 * @refs event_service.go, kafka_publisher.go
 */

package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dpp-integration-service/service/models"
)

func newEventTestService(t *testing.T) *EventService {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	service := NewEventService(db)
	t.Cleanup(service.Stop)
	return service
}

func receiveEvent(t *testing.T, ch <-chan *RunEvent) *RunEvent {
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("未在期限内收到事件")
		return nil
	}
}

func TestEventService_SubscribeAndPublish(t *testing.T) {
	service := newEventTestService(t)

	_, ch := service.Subscribe("conn-1")
	assert.Equal(t, 1, service.SubscriberCount())

	run := &models.SyncRun{ID: "run-1", ConnectorID: "conn-1", Progress: 30}
	service.PublishProgress(run)

	event := receiveEvent(t, ch)
	assert.Equal(t, EventTypeProgress, event.Type)
	assert.Equal(t, "run-1", event.Run.ID)
	assert.Equal(t, 30, event.Run.Progress)
}

func TestEventService_FiltersByConnector(t *testing.T) {
	service := newEventTestService(t)

	_, matching := service.Subscribe("conn-1")
	_, other := service.Subscribe("conn-2")
	_, all := service.Subscribe("")

	service.PublishProgress(&models.SyncRun{ID: "run-1", ConnectorID: "conn-1"})

	assert.Equal(t, "run-1", receiveEvent(t, matching).Run.ID)
	assert.Equal(t, "run-1", receiveEvent(t, all).Run.ID)

	select {
	case event := <-other:
		t.Fatalf("不应收到其他连接器的事件: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventService_TerminalEvent(t *testing.T) {
	service := newEventTestService(t)

	_, ch := service.Subscribe("conn-1")

	run := &models.SyncRun{
		ID:          "run-9",
		ConnectorID: "conn-1",
		Status:      models.SyncRunStatusCompleted,
		Progress:    100,
	}
	// Kafka未配置时投递静默禁用，不影响SSE分发
	service.PublishTerminal(run)

	event := receiveEvent(t, ch)
	assert.Equal(t, EventTypeTerminal, event.Type)
	assert.Equal(t, models.SyncRunStatusCompleted, event.Run.Status)
}

func TestEventService_Unsubscribe(t *testing.T) {
	service := newEventTestService(t)

	id, ch := service.Subscribe("conn-1")
	service.Unsubscribe(id)
	assert.Equal(t, 0, service.SubscriberCount())

	// 通道已关闭
	_, open := <-ch
	assert.False(t, open)

	// 重复取消订阅无副作用
	service.Unsubscribe(id)
}

func TestEventService_FullBufferDoesNotBlock(t *testing.T) {
	service := newEventTestService(t)

	_, ch := service.Subscribe("conn-1")

	// 超出缓冲容量的发布不阻塞
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			service.PublishProgress(&models.SyncRun{ID: "run", ConnectorID: "conn-1", Progress: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("发布被订阅者阻塞")
	}

	// 缓冲中的事件仍可读取
	assert.NotNil(t, receiveEvent(t, ch))
}

func TestKafkaPublisher_DisabledWithoutBrokers(t *testing.T) {
	publisher := NewKafkaPublisher()
	assert.Nil(t, publisher.writer)

	// 禁用状态下投递与关闭都是空操作
	publisher.PublishTerminalAsync(&models.SyncRun{ID: "run-1"})
	publisher.Close()
}
