/*
 * @module api/middleware/rate_limit
 * @description 同步触发限流中间件，限制手动触发同步的频率
 * @architecture 中间件层
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow 提取连接器ID -> 检查Redis限流 -> 超限返回429
 * @rules 限流器未配置（Redis不可用）时直接放行，保证核心功能可用
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/rate_limiter/redis_rate_limiter.go, api/routes.go
 */

package middleware

import (
	"dpp-integration-service/service/rate_limiter"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// SyncTriggerRateLimit 同步触发限流中间件
// limiter为nil时不做任何限制
func SyncTriggerRateLimit(limiter *rate_limiter.RedisRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			connectorID := chi.URLParam(r, "id")
			rules := rate_limiter.SyncTriggerRules(connectorID)

			result, err := limiter.CheckRateLimit(r.Context(), rules)
			if err != nil {
				// 限流检查失败时放行，避免Redis故障阻断同步
				slog.Warn("同步触发限流检查失败", "connector_id", connectorID, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, map[string]interface{}{
					"status": -1,
					"msg":    result.Message,
					"data": map[string]interface{}{
						"limit_type": result.RateLimitType,
						"limit":      result.Limit,
						"reset_at":   result.ResetAt,
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
