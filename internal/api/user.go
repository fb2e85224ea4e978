package api

import (
	"net/http"

	"direct-chat-relay/backend/internal/models"
	"direct-chat-relay/backend/internal/service"
	"direct-chat-relay/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// UserHandler serves the user directory with live presence state
type UserHandler struct {
	service *service.UserService
	logger  *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(service *service.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

// ListUsers returns every user except the caller, with presence
func (h *UserHandler) ListUsers(c *gin.Context) {
	callerID := c.GetString("userID")

	users, err := h.service.ListUsers()
	if err != nil {
		h.logger.Error("Error listing users", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	responses := make([]models.UserResponse, 0, len(users))
	for i := range users {
		if users[i].ID == callerID {
			continue
		}
		responses = append(responses, users[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"users": responses})
}
