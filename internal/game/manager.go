package game

import (
	"sync"

	"github.com/chess-arena/chess-backend/pkg/chess"
	"github.com/chess-arena/chess-backend/pkg/logger"
)

// Manager 프로세스 전역 방 레지스트리
// 전역 변수가 아니라 엔트리 포인트에서 생성해 주입한다.
// 레지스트리 맵은 매니저 뮤텍스가, 각 방의 상태는 방 뮤텍스가 지킨다.
type Manager struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	engine chess.Engine
}

// NewManager 방 매니저 생성
func NewManager(engine chess.Engine) *Manager {
	return &Manager{
		rooms:  make(map[string]*Room),
		engine: engine,
	}
}

// getOrCreate 첫 입장 시 방을 만든다
func (m *Manager) getOrCreate(roomID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		room = newRoom(roomID, m.engine)
		m.rooms[roomID] = room
		logger.Debug("Room created", "roomId", roomID)
	}
	return room
}

func (m *Manager) get(roomID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	return room, ok
}

// Join 좌석 배정 (없는 방은 생성)
func (m *Manager) Join(roomID, playerID, name string) (*RoomSnapshot, error) {
	return m.getOrCreate(roomID).join(playerID, name)
}

// Leave 좌석 반환, 마지막 참가자가 나가면 방 레코드 제거
// 연결 단절은 여기로 오지 않으므로 재접속 시 원장이 유지된다.
func (m *Manager) Leave(roomID, playerID string) error {
	room, ok := m.get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	empty, err := room.leave(playerID)
	if err != nil {
		return err
	}
	if empty {
		m.mu.Lock()
		delete(m.rooms, roomID)
		m.mu.Unlock()
		logger.Debug("Room destroyed", "roomId", roomID)
	}
	return nil
}

// Move 수 적용 및 갱신된 방 상태 반환
func (m *Manager) Move(roomID, playerID, notation string, timeRemaining uint32) (*RoomSnapshot, error) {
	room, ok := m.get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.move(playerID, notation, timeRemaining)
}

// GameLog 기보 원장 조회
func (m *Manager) GameLog(roomID string) ([]MoveRecord, error) {
	room, ok := m.get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.gameLog(), nil
}

// OfferTakeback 테이크백 제안
func (m *Manager) OfferTakeback(roomID, playerID string) error {
	room, ok := m.get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return room.offerTakeback(playerID)
}

// AcceptTakeback 테이크백 수락, 복원된 방 상태 반환
func (m *Manager) AcceptTakeback(roomID, playerID string) (*RoomSnapshot, error) {
	room, ok := m.get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.acceptTakeback(playerID)
}

// RejectTakeback 테이크백 거절
func (m *Manager) RejectTakeback(roomID, playerID string) error {
	room, ok := m.get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return room.rejectTakeback(playerID)
}
