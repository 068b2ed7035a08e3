package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chess-arena/chess-backend/internal/models"
	"github.com/chess-arena/chess-backend/internal/service"
)

// MatchmakingHandler 매치메이킹 API 처리
type MatchmakingHandler struct {
	matchmaking *service.MatchmakingService
}

// NewMatchmakingHandler MatchmakingHandler 생성
func NewMatchmakingHandler(matchmaking *service.MatchmakingService) *MatchmakingHandler {
	return &MatchmakingHandler{matchmaking: matchmaking}
}

// JoinQueueRequest 큐 참가 요청 바디
type JoinQueueRequest struct {
	MatchType     string `json:"matchType" binding:"required"`
	Rating        uint32 `json:"rating"`
	InviteTarget  string `json:"inviteTarget"`
	MaxRatingDiff uint32 `json:"maxRatingDiff"`
}

// JoinQueue 큐 참가
// POST /api/v1/matchmaking/join
func (h *MatchmakingHandler) JoinQueue(c *gin.Context) {
	playerID := c.GetString("playerId")

	var req JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	request := &models.MatchRequest{
		ID: uuid.New(),
		Player: models.PlayerSnapshot{
			ID:       playerID,
			Rating:   req.Rating,
			JoinedAt: time.Now(),
		},
		Kind:          models.MatchType(req.MatchType),
		InviteTarget:  req.InviteTarget,
		MaxRatingDiff: req.MaxRatingDiff,
	}

	resp, err := h.matchmaking.JoinQueue(c.Request.Context(), request)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown match type: " + req.MatchType})
		case errors.Is(err, service.ErrMissingInviteTarget):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Private match requires an invite target"})
		case errors.Is(err, service.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Matchmaking temporarily unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join queue"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelQueue 큐 참가 취소
// 이미 매칭됐거나 없는 요청이면 404 (재호출에도 같은 결과)
// DELETE /api/v1/matchmaking/:requestId
func (h *MatchmakingHandler) CancelQueue(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	removed, err := h.matchmaking.Cancel(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Matchmaking temporarily unavailable"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found in queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// QueueStatus 큐 상태 조회
// GET /api/v1/matchmaking/:requestId/status
func (h *MatchmakingHandler) QueueStatus(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	status, err := h.matchmaking.Status(c.Request.Context(), requestID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found in queue"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Matchmaking temporarily unavailable"})
		}
		return
	}

	c.JSON(http.StatusOK, status)
}

// PendingInvite 나에게 온 초대 조회
// GET /api/v1/matchmaking/invites
func (h *MatchmakingHandler) PendingInvite(c *gin.Context) {
	playerID := c.GetString("playerId")

	invite, err := h.matchmaking.CheckInvite(c.Request.Context(), playerID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Matchmaking temporarily unavailable"})
		return
	}
	if invite == nil {
		c.JSON(http.StatusOK, gin.H{"invite": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invite": invite})
}

// AcceptInviteRequest 초대 수락 요청 바디
type AcceptInviteRequest struct {
	Rating uint32 `json:"rating"`
}

// AcceptInvite 초대 수락, 성공 시 매치 생성
// POST /api/v1/matchmaking/invites/:requestId/accept
func (h *MatchmakingHandler) AcceptInvite(c *gin.Context) {
	playerID := c.GetString("playerId")

	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var req AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	accepting := models.PlayerSnapshot{
		ID:       playerID,
		Rating:   req.Rating,
		JoinedAt: time.Now(),
	}

	resp, err := h.matchmaking.AcceptInvite(c.Request.Context(), requestID, accepting)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInviteNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found or already accepted"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Matchmaking temporarily unavailable"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetMatch 성사된 매치 조회
// GET /api/v1/matches/:id
func (h *MatchmakingHandler) GetMatch(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
		return
	}

	match, ok := h.matchmaking.GetMatch(matchID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
		return
	}

	c.JSON(http.StatusOK, match)
}
