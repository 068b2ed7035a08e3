package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MatchType 매칭 종류
type MatchType string

const (
	MatchTypeRated   MatchType = "rated"
	MatchTypeCasual  MatchType = "casual"
	MatchTypePrivate MatchType = "private"
)

// IsValid 지원하는 매칭 종류인지 확인
func (t MatchType) IsValid() bool {
	switch t {
	case MatchTypeRated, MatchTypeCasual, MatchTypePrivate:
		return true
	}
	return false
}

// PlayerSnapshot 큐 진입 시점의 플레이어 스냅샷 (진입 후 불변)
type PlayerSnapshot struct {
	ID       string    `json:"id"`
	Rating   uint32    `json:"rating"`
	JoinedAt time.Time `json:"joinedAt"`
}

// MatchRequest 매칭 요청 (큐 엔트리로 JSON 직렬화됨)
// Lua 스크립트가 player.rating / maxRatingDiff 필드를 직접 읽으므로
// JSON 태그는 저장소 와이어 포맷의 일부
type MatchRequest struct {
	ID            uuid.UUID      `json:"id"`
	Player        PlayerSnapshot `json:"player"`
	Kind          MatchType      `json:"kind"`
	InviteTarget  string         `json:"inviteTarget,omitempty"`
	MaxRatingDiff uint32         `json:"maxRatingDiff,omitempty"`
}

// Encode 큐 저장용 JSON 직렬화
func (r *MatchRequest) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeMatchRequest 큐 엔트리 역직렬화
func DecodeMatchRequest(s string) (*MatchRequest, error) {
	var req MatchRequest
	if err := json.Unmarshal([]byte(s), &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Match 두 요청이 짝지어질 때 정확히 한 번 생성되는 불변 레코드
type Match struct {
	ID        uuid.UUID      `json:"id"`
	Player1   PlayerSnapshot `json:"player1"`
	Player2   PlayerSnapshot `json:"player2"`
	Kind      MatchType      `json:"kind"`
	CreatedAt time.Time      `json:"createdAt"`
}

// QueueStatus 큐 내 위치 조회 결과 (저장하지 않고 매번 계산)
type QueueStatus struct {
	RequestID            uuid.UUID `json:"requestId"`
	Position             int       `json:"position"`
	EstimatedWaitSeconds int       `json:"estimatedWaitSeconds"`
	Kind                 MatchType `json:"kind"`
}

// MatchmakingResponse 매칭 API 응답
type MatchmakingResponse struct {
	Status    string     `json:"status"`
	MatchID   *uuid.UUID `json:"matchId,omitempty"`
	RequestID uuid.UUID  `json:"requestId"`
}
