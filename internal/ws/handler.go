package ws

import (
	"net/http"
	"time"

	"direct-chat-relay/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// ServeWs verifies the caller's token and upgrades the request to a
// websocket. The token check is the only authentication the relay performs;
// past this point the connection carries a trusted user id and the session
// lifecycle takes over.
func ServeWs(hub *Hub, jwtService *jwt.Service, c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Authorization")
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.LogError(err, "Failed to upgrade connection")
		return
	}

	conn.EnableWriteCompression(true)

	client := hub.NewClient(uuid.New().String(), claims.UserID)
	client.Conn = conn

	go client.WritePump()
	go client.ReadPump()
}
