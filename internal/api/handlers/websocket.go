package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chess-arena/chess-backend/internal/game"
	"github.com/chess-arena/chess-backend/internal/websocket"
)

// WebSocketHandler 게임 방 WebSocket 연결 처리
type WebSocketHandler struct {
	hub   *websocket.Hub
	games *game.Manager
}

// NewWebSocketHandler WebSocketHandler 생성
func NewWebSocketHandler(hub *websocket.Hub, games *game.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		hub:   hub,
		games: games,
	}
}

// HandleWebSocket WebSocket 연결 엔드포인트
// GET /api/v1/ws/:roomId
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	roomID := c.Param("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room ID required"})
		return
	}

	// 인증 미들웨어에서 설정한 플레이어 정보 가져오기
	playerID, exists := c.Get("playerId")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	username := c.GetString("username")

	websocket.ServeWs(h.hub, h.games, c.Writer, c.Request, roomID, playerID.(string), username)
}
