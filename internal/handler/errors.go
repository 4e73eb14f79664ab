package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"gemchat/internal/model"
	"gemchat/internal/pkg/ctxutil"
	"gemchat/internal/repository"
	"gemchat/internal/service"
)

// 对外错误信息
const (
	msgMessageRequired = "Message is required"
	msgChatNotFound    = "Chat not found"
	msgChatExists      = "Chat already exists"
	msgInvalidBody     = "Invalid request body"
)

// abortWithError 按错误类型写入状态码和 {"error": ...}
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()

	switch {
	case errors.Is(err, service.ErrMessageRequired):
		status, msg = http.StatusBadRequest, msgMessageRequired
	case errors.Is(err, service.ErrInvalidRole):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrConversationNotFound):
		status, msg = http.StatusNotFound, msgChatNotFound
	case errors.Is(err, repository.ErrConversationExists):
		status, msg = http.StatusConflict, msgChatExists
	default:
		logger := ctxutil.Logger(c.Request.Context())
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.AbortWithStatusJSON(status, model.ErrorResponse{Error: msg})
}

func abortWithBindError(c *gin.Context, err error) {
	log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("invalid request body")
	c.AbortWithStatusJSON(http.StatusBadRequest, model.ErrorResponse{Error: msgInvalidBody})
}
