package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driftchat/drift/internal/service"
)

type ReadHandler struct {
	lastReadService service.ILastReadService
}

func NewReadHandler(lastReadService service.ILastReadService) *ReadHandler {
	return &ReadHandler{lastReadService: lastReadService}
}

// MarkRead handles POST /channels/:id/read.
func (h *ReadHandler) MarkRead(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	userID, _, ok := actingUser(c)
	if !ok {
		return
	}

	if err := h.lastReadService.MarkRead(c.Request.Context(), channelID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckoutRead handles POST /channels/:id/checkout. The response carries the
// cursor value from before the call (null on first checkout) so the client
// can compute its unread count; the stored cursor is already advanced.
func (h *ReadHandler) CheckoutRead(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	userID, _, ok := actingUser(c)
	if !ok {
		return
	}

	prev, err := h.lastReadService.Checkout(c.Request.Context(), channelID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if prev == nil {
		c.JSON(http.StatusOK, gin.H{"previous": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"previous": prev.UnixMilli()})
}
