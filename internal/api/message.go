package api

import (
	"fmt"
	"net/http"
	"strconv"

	"direct-chat-relay/backend/internal/models"
	"direct-chat-relay/backend/internal/service"
	"direct-chat-relay/backend/pkg/cache"
	"direct-chat-relay/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// MessageHandler serves conversation history. Pages are cached briefly; the
// websocket path never reads through this cache, so a slightly stale page is
// only ever a REST concern.
type MessageHandler struct {
	service  *service.MessageService
	cache    *cache.Cache
	pageSize int
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(service *service.MessageService, pageCache *cache.Cache, pageSize int, logger *logger.Logger) *MessageHandler {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &MessageHandler{
		service:  service,
		cache:    pageCache,
		pageSize: pageSize,
		logger:   logger,
	}
}

// History returns the caller's conversation with the named peer, ordered by
// timestamp, paginated with limit/offset query parameters
func (h *MessageHandler) History(c *gin.Context) {
	callerID := c.GetString("userID")
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	peerID := c.Param("peerID")
	if peerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "peerID is required"})
		return
	}

	limit := h.pageSize
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= h.pageSize {
			limit = parsed
		}
	}
	offset := 0
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	conversationID := models.ConversationKey(callerID, peerID)
	cacheKey := fmt.Sprintf("history:%s:%d:%d", conversationID, limit, offset)

	if h.cache != nil {
		if cached, found := h.cache.Get(cacheKey); found {
			if messages, ok := cached.([]models.Message); ok {
				c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "messages": messages})
				return
			}
		}
	}

	messages, err := h.service.History(conversationID, limit, offset)
	if err != nil {
		h.logger.Error("Error loading history", "conversation_id", conversationID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation history"})
		return
	}

	if h.cache != nil {
		h.cache.Set(cacheKey, messages)
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "messages": messages})
}
