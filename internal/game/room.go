package game

import (
	"errors"
	"sync"
	"time"

	"github.com/chess-arena/chess-backend/pkg/chess"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrAlreadySeated     = errors.New("player already in room")
	ErrNotParticipant    = errors.New("player not in room")
	ErrGameNotStarted    = errors.New("game not started")
	ErrNotEnoughMoves    = errors.New("not enough moves to take back")
	ErrTakebackPending   = errors.New("a takeback offer is already pending")
	ErrNoTakebackPending = errors.New("no pending takeback offer")
	ErrSelfAccept        = errors.New("requester cannot accept their own takeback")
)

// Participant 방의 좌석을 차지한 플레이어
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// MoveRecord 기보 원장 엔트리 (append-only, 테이크백 수락 시에만
// 마지막 두 엔트리가 잘린다)
type MoveRecord struct {
	PlayerID  string    `json:"playerId"`
	Notation  string    `json:"notation"`
	Timestamp time.Time `json:"timestamp"`
}

// Clock 양측 잔여 시간 (초)
type Clock struct {
	White uint32 `json:"white"`
	Black uint32 `json:"black"`
}

// Room 한 게임 방의 가변 상태
// 한 방에 대한 모든 변경은 방 뮤텍스로 직렬화된다. 서로 다른 방은
// 완전히 병렬로 진행된다. 참가자는 최대 두 명이다.
type Room struct {
	mu              sync.Mutex
	id              string
	participants    []Participant
	ledger          []MoveRecord
	pendingTakeback string // 요청자 id, 빈 문자열이면 없음
	state           *chess.State
	clock           Clock
	engine          chess.Engine
}

func newRoom(id string, engine chess.Engine) *Room {
	return &Room{
		id:     id,
		engine: engine,
	}
}

// snapshotLocked 브로드캐스트용 복사본 (호출자가 잠금 보유)
func (r *Room) participantsLocked() []Participant {
	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

func (r *Room) ledgerLocked() []MoveRecord {
	out := make([]MoveRecord, len(r.ledger))
	copy(out, r.ledger)
	return out
}

func (r *Room) seatedLocked(playerID string) bool {
	for _, p := range r.participants {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// join 좌석 배정: 첫 참가자는 백, 두 번째는 흑
// 두 번째 좌석이 차면 룰 엔진으로 게임을 시작한다.
func (r *Room) join(playerID, name string) (*RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seatedLocked(playerID) {
		return nil, ErrAlreadySeated
	}
	if len(r.participants) >= 2 {
		return nil, ErrRoomFull
	}

	p := Participant{ID: playerID, Name: name}
	if len(r.participants) == 0 {
		p.Color = chess.TurnWhite
	} else {
		// 중도 퇴장 후 재충원된 좌석도 흑이고 게임은 새로 시작된다.
		// 기존 원장은 그대로 남는다.
		p.Color = chess.TurnBlack
		r.state = r.engine.NewGame()
	}
	r.participants = append(r.participants, p)

	return r.snapshotLocked(), nil
}

// leave 좌석 반환, 방이 비었는지 여부 반환
func (r *Room) leave(playerID string) (empty bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.participants {
		if p.ID == playerID {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			return len(r.participants) == 0, nil
		}
	}
	return false, ErrNotParticipant
}

// move 수 적용: 착수자 확인 → 엔진 위임 → 원장 추가
func (r *Room) move(playerID, notation string, timeRemaining uint32) (*RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.seatedLocked(playerID) {
		return nil, ErrNotParticipant
	}
	if r.state == nil {
		return nil, ErrGameNotStarted
	}

	moverTurn := r.state.Turn
	next, err := r.engine.Apply(r.state, notation)
	if err != nil {
		return nil, err
	}
	r.state = next

	r.ledger = append(r.ledger, MoveRecord{
		PlayerID:  playerID,
		Notation:  notation,
		Timestamp: time.Now(),
	})

	if moverTurn == chess.TurnWhite {
		r.clock.White = timeRemaining
	} else {
		r.clock.Black = timeRemaining
	}

	return r.snapshotLocked(), nil
}

// offerTakeback 테이크백 제안
// 좌석, 최소 두 수(한 풀무브), 중복 제안 없음을 요구한다.
func (r *Room) offerTakeback(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.seatedLocked(playerID) {
		return ErrNotParticipant
	}
	if len(r.ledger) < 2 {
		return ErrNotEnoughMoves
	}
	if r.pendingTakeback != "" {
		return ErrTakebackPending
	}

	r.pendingTakeback = playerID
	return nil
}

// acceptTakeback 제안 수락: 원장에서 정확히 마지막 두 엔트리를 잘라내고
// 초기 국면부터 남은 기보를 재생해 상태를 복원한다.
func (r *Room) acceptTakeback(playerID string) (*RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.seatedLocked(playerID) {
		return nil, ErrNotParticipant
	}
	if r.pendingTakeback == "" {
		return nil, ErrNoTakebackPending
	}
	if r.pendingTakeback == playerID {
		return nil, ErrSelfAccept
	}
	if len(r.ledger) < 2 {
		return nil, ErrNotEnoughMoves
	}

	// 재생이 전부 성공한 뒤에만 원장과 상태를 함께 확정한다
	trimmed := r.ledger[:len(r.ledger)-2]

	state := r.engine.NewGame()
	for _, mv := range trimmed {
		next, err := r.engine.Apply(state, mv.Notation)
		if err != nil {
			return nil, err
		}
		state = next
	}
	r.ledger = trimmed
	r.state = state
	r.pendingTakeback = ""

	return r.snapshotLocked(), nil
}

// rejectTakeback 제안 거절
func (r *Room) rejectTakeback(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.seatedLocked(playerID) {
		return ErrNotParticipant
	}
	if r.pendingTakeback == "" {
		return ErrNoTakebackPending
	}

	r.pendingTakeback = ""
	return nil
}

// gameLog 기보 원장 복사본
func (r *Room) gameLog() []MoveRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledgerLocked()
}

// RoomSnapshot 브로드캐스트 직전의 방 상태 복사본
type RoomSnapshot struct {
	RoomID       string        `json:"roomId"`
	Participants []Participant `json:"participants"`
	Ledger       []MoveRecord  `json:"ledger"`
	State        *chess.State  `json:"gameState,omitempty"`
	Clock        Clock         `json:"clock"`
}

func (r *Room) snapshotLocked() *RoomSnapshot {
	var state *chess.State
	if r.state != nil {
		s := *r.state
		state = &s
	}
	return &RoomSnapshot{
		RoomID:       r.id,
		Participants: r.participantsLocked(),
		Ledger:       r.ledgerLocked(),
		State:        state,
		Clock:        r.clock,
	}
}
