package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/driftchat/drift/internal/service"
)

// SendMessageRequest is the send body. Content may be empty when an
// attachment is supplied; the nonce is echoed back so clients can match the
// response to an optimistic local message.
type SendMessageRequest struct {
	Content    string                   `json:"content"`
	Attachment *service.AttachmentInput `json:"attachment"`
	ReplyToID  *int64                   `json:"reply_to_id"`
	Nonce      string                   `json:"nonce"`
}

type UpdateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type MessageHandler struct {
	messageService service.IMessageService
}

func NewMessageHandler(messageService service.IMessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// SendMessage handles POST /channels/:id/messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, username, ok := actingUser(c)
	if !ok {
		return
	}

	resp, err := h.messageService.Send(c.Request.Context(), &service.SendRequest{
		ChannelID:  channelID,
		AuthorID:   userID,
		AuthorName: username,
		Content:    req.Content,
		Attachment: req.Attachment,
		ReplyToID:  req.ReplyToID,
		Nonce:      req.Nonce,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListMessages handles GET /channels/:id/messages with cursor pagination.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	userID, _, ok := actingUser(c)
	if !ok {
		return
	}

	// An absent count means the default page size; an explicit count=0 is a
	// valid request for an empty page.
	count := service.DefaultPageSize
	if raw := c.Query("count"); raw != "" {
		var err error
		count, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid count"})
			return
		}
	}

	var cursor *time.Time
	if raw := c.Query("cursor"); raw != "" {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		t := time.UnixMilli(millis)
		cursor = &t
	}

	messages, err := h.messageService.History(
		c.Request.Context(), channelID, userID, count, c.Query("cursor_type"), cursor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// UpdateMessage handles PATCH /channels/:id/messages/:messageId.
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID, _, ok := actingUser(c)
	if !ok {
		return
	}

	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.messageService.Update(c.Request.Context(), messageID, channelID, userID, req.Content); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteMessage handles DELETE /messages/:messageId.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID, _, ok := actingUser(c)
	if !ok {
		return
	}

	if err := h.messageService.Delete(c.Request.Context(), messageID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// NotifyTyping handles POST /channels/:id/typing.
func (h *MessageHandler) NotifyTyping(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	userID, username, ok := actingUser(c)
	if !ok {
		return
	}

	if err := h.messageService.Typing(c.Request.Context(), channelID, userID, username); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
