/*
 * @module service/integration/cache
 * @description 连接器列表的Redis缓存，写操作后失效
 * @architecture 服务层 - 缓存
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 列表查询 -> 缓存命中直接返回 / 未命中回源后写缓存；任何写操作 -> 缓存失效
 * @rules 缓存不可用时静默降级为直连数据库，不影响主流程
 * @dependencies github.com/go-redis/redis/v8
 * @refs service.go
 */

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"dpp-integration-service/service/models"
)

const (
	connectorListKey = "dpp:integrations:connectors"
	connectorListTTL = 60 * time.Second
)

// ConnectorCache 连接器列表缓存
type ConnectorCache struct {
	client *redis.Client
}

// NewConnectorCache 创建连接器缓存，Redis不可达时返回nil并降级
func NewConnectorCache() *ConnectorCache {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis不可达，连接器列表缓存已禁用", "error", err)
		return nil
	}

	slog.Info("连接器列表缓存初始化成功", "redis_host", host, "redis_port", port)
	return &ConnectorCache{client: client}
}

// GetList 读取缓存的连接器列表，未命中或反序列化失败返回nil
func (c *ConnectorCache) GetList(ctx context.Context) []models.ConnectorConfig {
	if c == nil {
		return nil
	}

	data, err := c.client.Get(ctx, connectorListKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("读取连接器列表缓存失败", "error", err)
		}
		return nil
	}

	var connectors []models.ConnectorConfig
	if err := json.Unmarshal(data, &connectors); err != nil {
		slog.Warn("连接器列表缓存反序列化失败", "error", err)
		return nil
	}
	return connectors
}

// SetList 写入连接器列表缓存
func (c *ConnectorCache) SetList(ctx context.Context, connectors []models.ConnectorConfig) {
	if c == nil {
		return
	}

	data, err := json.Marshal(connectors)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, connectorListKey, data, connectorListTTL).Err(); err != nil {
		slog.Warn("写入连接器列表缓存失败", "error", err)
	}
}

// Invalidate 使连接器列表缓存失效
func (c *ConnectorCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, connectorListKey).Err(); err != nil {
		slog.Warn("失效连接器列表缓存失败", "error", err)
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
