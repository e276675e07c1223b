package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"realty_chat/internal/domain"
	"realty_chat/internal/middleware"
	"realty_chat/internal/service"
	"realty_chat/pkg/logger"
)

// ChatHandler - публичный API виджета посетителя
type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

type StartSessionRequest struct {
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Locale string `json:"locale"`
}

type StartSessionResponse struct {
	Session  *domain.ChatSession `json:"session"`
	Snapshot *domain.Snapshot    `json:"snapshot"`
}

func (h *ChatHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	session, err := h.chatService.StartSession(c.Request.Context(), service.StartSessionInput{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Locale: req.Locale,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	snapshot, err := h.chatService.GetSnapshot(c.Request.Context(), session.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, StartSessionResponse{Session: session, Snapshot: snapshot})
}

func (h *ChatHandler) GetSnapshot(c *gin.Context) {
	snapshot, err := h.chatService.GetSnapshot(c.Request.Context(), sessionIDFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

type VisitorMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Locale  string `json:"locale"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req VisitorMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.chatService.HandleVisitorMessage(c.Request.Context(), sessionIDFrom(c), req.Content, req.Locale)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ChatHandler) EndChat(c *gin.Context) {
	snapshot, err := h.chatService.EndChat(c.Request.Context(), sessionIDFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func sessionIDFrom(c *gin.Context) uuid.UUID {
	id, _ := c.Get(middleware.ContextSessionID)
	sessionID, _ := id.(uuid.UUID)
	return sessionID
}

func operatorFrom(c *gin.Context) (uuid.UUID, string) {
	id, _ := c.Get(middleware.ContextOperatorID)
	operatorID, _ := id.(uuid.UUID)
	return operatorID, c.GetString(middleware.ContextOperatorName)
}
