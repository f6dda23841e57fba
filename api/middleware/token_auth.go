/*
 * @module api/middleware/token_auth
 * @description Token鉴权中间件，校验Bearer Token并注入请求上下文
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference ai_docs/sap_connector_req.md
 * @stateFlow Token提取 -> bcrypt校验 -> 上下文注入 -> 下一个处理器
 * @rules 统一鉴权、安全验证、错误处理；校验通过的Token短期缓存以摊薄bcrypt开销
 * @dependencies net/http, golang.org/x/crypto/bcrypt
 * @refs api/routes.go
 */

package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
)

// ContextKey 上下文键类型
type ContextKey string

// TokenKey Token在上下文中的键
const TokenKey ContextKey = "token"

// TokenAuthMiddleware Bearer Token认证中间件
// Token的bcrypt哈希通过AUTH_TOKEN_HASH环境变量下发，未配置时鉴权自动关闭
type TokenAuthMiddleware struct {
	tokenHash string
	// 校验通过的Token缓存
	cache      map[string]time.Time
	cacheMutex sync.RWMutex
	cacheTTL   time.Duration
	// 白名单路径（不需要鉴权）
	whitelistPaths []string
}

// NewTokenAuthMiddleware 创建Token认证中间件实例
func NewTokenAuthMiddleware() *TokenAuthMiddleware {
	return &TokenAuthMiddleware{
		tokenHash: os.Getenv("AUTH_TOKEN_HASH"),
		cache:     make(map[string]time.Time),
		cacheTTL:  5 * time.Minute, // 缓存5分钟
		whitelistPaths: []string{
			"/health",                      // 健康检查
			"/ready",                       // 就绪检查
			"/swagger",                     // Swagger文档
			"/metrics",                     // Prometheus抓取
			"/api/integrations/sap/health", // 前端健康轮询
		},
	}
}

// Enabled 鉴权是否启用
func (m *TokenAuthMiddleware) Enabled() bool {
	return m.tokenHash != ""
}

// AddWhitelistPath 添加白名单路径
func (m *TokenAuthMiddleware) AddWhitelistPath(path string) {
	m.whitelistPaths = append(m.whitelistPaths, path)
}

// IsWhitelistPath 检查路径是否在白名单中
func (m *TokenAuthMiddleware) IsWhitelistPath(path string) bool {
	for _, whitelistPath := range m.whitelistPaths {
		// 支持前缀匹配
		if strings.HasPrefix(path, whitelistPath) {
			return true
		}
	}
	return false
}

// Middleware 认证中间件处理函数
func (m *TokenAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 未配置Token哈希时跳过鉴权
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		// 检查是否在白名单中
		if m.IsWhitelistPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		// 从Authorization头中提取Token
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w, r, "缺少Authorization头")
			return
		}

		// 验证Bearer格式
		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.respondUnauthorized(w, r, "无效的Authorization格式，需要Bearer Token")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			m.respondUnauthorized(w, r, "Token为空")
			return
		}

		if !m.verifyToken(token) {
			m.respondUnauthorized(w, r, "Token验证失败")
			return
		}

		// 将Token注入到上下文中
		ctx := context.WithValue(r.Context(), TokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verifyToken 校验Token，命中缓存时跳过bcrypt比较
func (m *TokenAuthMiddleware) verifyToken(token string) bool {
	m.cacheMutex.RLock()
	expiresAt, hit := m.cache[token]
	m.cacheMutex.RUnlock()
	if hit && time.Now().Before(expiresAt) {
		return true
	}

	if err := bcrypt.CompareHashAndPassword([]byte(m.tokenHash), []byte(token)); err != nil {
		return false
	}

	m.cacheMutex.Lock()
	m.cache[token] = time.Now().Add(m.cacheTTL)
	m.cacheMutex.Unlock()
	return true
}

// respondUnauthorized 返回401响应
func (m *TokenAuthMiddleware) respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusUnauthorized,
		"msg":    message,
	})
}
