package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gemchat/internal/model"
	"gemchat/internal/service"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler 创建对话处理器
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Chat 发送消息
// @Summary      发送消息
// @Description  chatId 为空时创建新对话，否则在已有对话中继续
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        request  body      model.ChatRequest  true  "对话请求"
// @Success      200      {object}  model.ChatResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      500      {object}  model.ErrorResponse
// @Router       /api/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	// 请求体缺失或不是 JSON 时按消息为空处理
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, service.ErrMessageRequired)
		return
	}

	resp, err := h.chatService.Chat(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
