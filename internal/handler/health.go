package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReadinessChecker 就绪检查
type ReadinessChecker interface {
	Ready(ctx context.Context) (recovered bool, err error)
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	checker ReadinessChecker
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health 健康检查
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready 就绪检查，存储不可读时返回 503
// 存储内容损坏并按空集合读取时仍就绪，但带上 warning
func (h *HealthHandler) Ready(c *gin.Context) {
	resp := gin.H{"status": "ready"}
	if h.checker != nil {
		recovered, err := h.checker.Ready(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		if recovered {
			resp["warning"] = "stored conversations were malformed and read as empty"
		}
	}
	c.JSON(http.StatusOK, resp)
}
