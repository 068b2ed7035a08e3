package websocket

import (
	"encoding/json"

	"github.com/chess-arena/chess-backend/internal/game"
	"github.com/chess-arena/chess-backend/pkg/chess"
)

// ProtocolVersion 모든 발신 메시지에 붙는 프로토콜 버전
const ProtocolVersion = "1.0"

// 클라이언트 -> 서버 메시지 타입
const (
	MsgJoin           = "join"
	MsgLeave          = "leave"
	MsgMove           = "move"
	MsgChat           = "chat"
	MsgTakebackOffer  = "takeback_offer"
	MsgTakebackAccept = "takeback_accept"
	MsgTakebackReject = "takeback_reject"
	MsgGameLog        = "game_log"
)

// 서버 -> 클라이언트 메시지 타입
const (
	MsgStateUpdate      = "state_update"
	MsgTakebackOffered  = "takeback_offered"
	MsgTakebackAccepted = "takeback_accepted"
	MsgTakebackRejected = "takeback_rejected"
	MsgError            = "error"
)

// 에러 코드
const (
	CodeAuthenticationError = "authentication_error"
	CodeInvalidMove         = "invalid_move"
	CodeNotYourTurn         = "not_your_turn"
	CodeGameNotFound        = "game_not_found"
	CodeRoomFull            = "room_full"
	CodeConflict            = "conflict"
	CodeInvalidMessage      = "invalid_message"
)

// Envelope 서버가 보내는 메시지 봉투
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Version string      `json:"version,omitempty"`
}

// clientEnvelope 클라이언트가 보내는 메시지 봉투 (payload 또는 data 키 허용)
type clientEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Data    json.RawMessage `json:"data"`
}

func (e *clientEnvelope) body() json.RawMessage {
	if len(e.Payload) > 0 {
		return e.Payload
	}
	return e.Data
}

// JoinRequest 방 입장 요청
type JoinRequest struct {
	PlayerName string `json:"player_name"`
}

// MoveRequest 수 두기 요청
type MoveRequest struct {
	Move          string `json:"move"`
	FEN           string `json:"fen,omitempty"`
	TimeRemaining uint32 `json:"time_remaining,omitempty"`
}

// ChatRequest 채팅 요청
type ChatRequest struct {
	Message string `json:"message"`
}

// JoinPayload 입장 브로드캐스트
type JoinPayload struct {
	RoomID       string             `json:"roomId"`
	PlayerID     string             `json:"playerId"`
	PlayerName   string             `json:"playerName"`
	Color        string             `json:"color"`
	Participants []game.Participant `json:"participants"`
	GameState    *chess.State       `json:"gameState,omitempty"`
}

// LeavePayload 퇴장 브로드캐스트
type LeavePayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// MovePayload 수 브로드캐스트
type MovePayload struct {
	PlayerID      string `json:"player_id"`
	GameID        string `json:"game_id"`
	Move          string `json:"move"`
	FEN           string `json:"fen"`
	TimeRemaining uint32 `json:"time_remaining"`
}

// StateUpdatePayload 게임 상태 브로드캐스트
type StateUpdatePayload struct {
	Status      string `json:"status"`
	CurrentTurn string `json:"current_turn"`
	WhiteTime   uint32 `json:"white_time"`
	BlackTime   uint32 `json:"black_time"`
}

// ChatPayload 채팅 브로드캐스트
type ChatPayload struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
}

// TakebackOfferedPayload 무르기 요청 브로드캐스트
type TakebackOfferedPayload struct {
	RoomID      string `json:"roomId"`
	RequesterID string `json:"requesterId"`
}

// TakebackAcceptedPayload 무르기 수락 브로드캐스트 (되돌린 상태 포함)
type TakebackAcceptedPayload struct {
	RoomID    string            `json:"roomId"`
	PlayerID  string            `json:"playerId"`
	GameState *chess.State      `json:"gameState"`
	Ledger    []game.MoveRecord `json:"ledger"`
}

// TakebackRejectedPayload 무르기 거절 브로드캐스트
type TakebackRejectedPayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// GameLogPayload 기보 응답 (요청자에게만 전송)
type GameLogPayload struct {
	RoomID string            `json:"roomId"`
	Moves  []game.MoveRecord `json:"moves"`
}

// ErrorPayload 에러 응답
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
