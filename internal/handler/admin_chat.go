package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"realty_chat/internal/service"
	"realty_chat/pkg/logger"
)

// AdminChatHandler - консоль оператора
type AdminChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewAdminChatHandler(chatService service.ChatService, log logger.Logger) *AdminChatHandler {
	return &AdminChatHandler{
		chatService: chatService,
		log:         log,
	}
}

func (h *AdminChatHandler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	sessions, err := h.chatService.ListSessions(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *AdminChatHandler) GetSession(c *gin.Context) {
	snapshot, err := h.chatService.GetSnapshot(c.Request.Context(), sessionIDFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

type OperatorReplyRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *AdminChatHandler) Reply(c *gin.Context) {
	var req OperatorReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	operatorID, operatorName := operatorFrom(c)
	message, err := h.chatService.OperatorReply(c.Request.Context(), sessionIDFrom(c), operatorID, operatorName, req.Content)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

type TypingRequest struct {
	IsTyping *bool `json:"is_typing" binding:"required"`
}

func (h *AdminChatHandler) SetTyping(c *gin.Context) {
	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.chatService.SetTyping(c.Request.Context(), sessionIDFrom(c), *req.IsTyping); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AdminChatHandler) MarkRead(c *gin.Context) {
	operatorID, _ := operatorFrom(c)

	session, err := h.chatService.MarkRead(c.Request.Context(), sessionIDFrom(c), operatorID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, session)
}
