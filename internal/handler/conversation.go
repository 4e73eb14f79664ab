package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gemchat/internal/model"
	"gemchat/internal/service"
)

// ConversationHandler 对话管理处理器
type ConversationHandler struct {
	chatService *service.ChatService
}

// NewConversationHandler 创建对话管理处理器
func NewConversationHandler(chatService *service.ChatService) *ConversationHandler {
	return &ConversationHandler{
		chatService: chatService,
	}
}

// List 对话列表
// @Summary      对话列表
// @Description  按 updated_at 倒序，不含消息
// @Tags         对话
// @Produce      json
// @Success      200  {array}   model.Conversation
// @Failure      500  {object}  model.ErrorResponse
// @Router       /api/chats [get]
func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.chatService.ListConversations(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, convs)
}

// Get 对话详情
// @Summary      对话详情
// @Tags         对话
// @Produce      json
// @Param        id   path      string  true  "对话ID"
// @Success      200  {object}  model.Conversation
// @Failure      404  {object}  model.ErrorResponse
// @Failure      500  {object}  model.ErrorResponse
// @Router       /api/chats/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.chatService.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// Delete 删除对话
// @Summary      删除对话
// @Tags         对话
// @Produce      json
// @Param        id   path      string  true  "对话ID"
// @Success      200  {object}  model.DeleteResponse
// @Failure      404  {object}  model.ErrorResponse
// @Failure      500  {object}  model.ErrorResponse
// @Router       /api/chats/{id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.chatService.DeleteConversation(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.DeleteResponse{Success: true})
}

// Import 导入对话
// @Summary      导入对话
// @Description  _id 可选，已存在时返回 409
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        request  body      model.ImportConversationRequest  true  "导入请求"
// @Success      201      {object}  model.Conversation
// @Failure      400      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      500      {object}  model.ErrorResponse
// @Router       /api/chats [post]
func (h *ConversationHandler) Import(c *gin.Context) {
	var req model.ImportConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	conv, err := h.chatService.ImportConversation(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conv)
}

// Update 更新对话
// @Summary      更新对话
// @Description  更新标题和/或替换消息
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "对话ID"
// @Param        request  body      model.UpdateConversationRequest  true  "更新请求"
// @Success      200      {object}  model.Conversation
// @Failure      400      {object}  model.ErrorResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      500      {object}  model.ErrorResponse
// @Router       /api/chats/{id} [patch]
func (h *ConversationHandler) Update(c *gin.Context) {
	var req model.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	conv, err := h.chatService.UpdateConversation(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}
