package websocket

import (
	"sync"

	"go.uber.org/zap"
)

// Hub 방 단위 WebSocket 연결 관리 및 브로드캐스트
type Hub struct {
	// 방별 연결 저장 (roomID -> 연결 집합)
	rooms map[string]map[*Client]bool
	mu    sync.RWMutex

	// 브로드캐스트 채널
	broadcast chan *roomMessage

	// 등록/해제 채널
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger
}

// roomMessage 한 방의 모든 연결에게 전달할 메시지
type roomMessage struct {
	roomID   string
	envelope *Envelope
}

// NewHub Hub 생성
func NewHub() *Hub {
	logger, _ := zap.NewProduction()
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *roomMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run Hub 실행
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// registerClient 클라이언트를 방에 등록 (이미 등록된 연결이면 무시)
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, exists := h.rooms[client.roomID]
	if !exists {
		clients = make(map[*Client]bool)
		h.rooms[client.roomID] = clients
	}
	if clients[client] {
		return
	}
	clients[client] = true

	h.logger.Info("WebSocket client registered",
		zap.String("roomId", client.roomID),
		zap.String("playerId", client.playerID),
		zap.Int("roomClients", len(clients)))
}

// unregisterClient 클라이언트 해제, 방이 비면 방 엔트리도 제거
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, exists := h.rooms[client.roomID]
	if !exists || !clients[client] {
		return
	}
	delete(clients, client)
	client.closeSend()
	if len(clients) == 0 {
		delete(h.rooms, client.roomID)
	}

	h.logger.Info("WebSocket client unregistered",
		zap.String("roomId", client.roomID),
		zap.String("playerId", client.playerID),
		zap.Int("roomClients", len(clients)))
}

// broadcastMessage 방의 모든 연결에게 메시지 전송 (best-effort:
// 한 연결의 실패가 나머지 전송을 막지 않는다)
func (h *Hub) broadcastMessage(message *roomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[message.roomID] {
		select {
		case client.send <- message.envelope:
		default:
			// 채널이 가득 찬 경우 연결 해제
			h.logger.Warn("Client send channel full, unregistering",
				zap.String("roomId", client.roomID),
				zap.String("playerId", client.playerID))
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

// Broadcast 방의 모든 연결에게 메시지 전송
func (h *Hub) Broadcast(roomID string, msgType string, payload interface{}) {
	h.broadcast <- &roomMessage{
		roomID: roomID,
		envelope: &Envelope{
			Type:    msgType,
			Payload: payload,
		},
	}
}

// RoomClients 현재 방에 등록된 연결 수
func (h *Hub) RoomClients(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
