package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invox/internal/service"
)

// ChatHandler handles question-answering endpoints over extracted invoices.
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type askInput struct {
	Message string `json:"message" binding:"required"`
}

// Ask handles POST /api/v1/invoices/:id/chat
func (h *ChatHandler) Ask(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input askInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	turn, err := h.chatService.Ask(c.Request.Context(), id, input.Message)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, turn)
}

// Suggest handles GET /api/v1/invoices/:id/chat/suggestions
func (h *ChatHandler) Suggest(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	questions, err := h.chatService.Suggest(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"questions": questions})
}
