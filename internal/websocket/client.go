package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chess-arena/chess-backend/internal/game"
	"github.com/chess-arena/chess-backend/pkg/chess"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Send pings to peer with this period
	pingPeriod = 15 * time.Second

	// Time allowed to read the next pong message from the peer
	// (ping 주기 + 유예 시간, 초과 시 연결 종료)
	pongWait = 25 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 프로덕션에서는 특정 origin만 허용
		return true
	},
}

// Client 한 방에 연결된 WebSocket 클라이언트
type Client struct {
	hub      *Hub
	games    *game.Manager
	conn     *websocket.Conn
	send     chan *Envelope
	roomID   string
	playerID string
	username string
	logger   *zap.Logger

	// send 채널 닫힘은 Hub가 closeSend로만 수행한다. readPump가
	// 동시에 enqueue하므로 닫힌 채널 전송이 없도록 뮤텍스로 직렬화.
	sendMu     sync.Mutex
	sendClosed bool
}

// NewClient 클라이언트 생성
func NewClient(hub *Hub, games *game.Manager, conn *websocket.Conn, roomID, playerID, username string) *Client {
	logger, _ := zap.NewProduction()
	return &Client{
		hub:      hub,
		games:    games,
		conn:     conn,
		send:     make(chan *Envelope, 256),
		roomID:   roomID,
		playerID: playerID,
		username: username,
		logger:   logger,
	}
}

// readPump 클라이언트 메시지 읽기 및 처리 (핑/퐁 유지)
// 연결이 끊겨도 방의 좌석/기보는 유지된다. 명시적 leave 메시지만
// 좌석을 반환한다.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error",
					zap.String("roomId", c.roomID),
					zap.String("playerId", c.playerID),
					zap.Error(err))
			}
			break
		}

		var env clientEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError(CodeInvalidMessage, "malformed message")
			continue
		}
		c.handleMessage(&env)
	}
}

// writePump Hub로부터 메시지를 받아 클라이언트에게 전송
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case envelope, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub가 채널을 닫음
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// 발신 직전에 프로토콜 버전 부여
			envelope.Version = ProtocolVersion
			data, err := json.Marshal(envelope)
			if err != nil {
				c.logger.Error("Failed to marshal message",
					zap.String("playerId", c.playerID),
					zap.Error(err))
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message",
					zap.String("playerId", c.playerID),
					zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 클라이언트 메시지 디스패치
func (c *Client) handleMessage(env *clientEnvelope) {
	switch env.Type {
	case MsgJoin:
		c.handleJoin(env.body())
	case MsgLeave:
		c.handleLeave()
	case MsgMove:
		c.handleMove(env.body())
	case MsgChat:
		c.handleChat(env.body())
	case MsgTakebackOffer:
		c.handleTakebackOffer()
	case MsgTakebackAccept:
		c.handleTakebackAccept()
	case MsgTakebackReject:
		c.handleTakebackReject()
	case MsgGameLog:
		c.handleGameLog()
	default:
		c.sendError(CodeInvalidMessage, "unknown message type: "+env.Type)
	}
}

func (c *Client) handleJoin(body json.RawMessage) {
	var req JoinRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			c.sendError(CodeInvalidMessage, "malformed join payload")
			return
		}
	}
	name := req.PlayerName
	if name == "" {
		name = c.username
	}

	snapshot, err := c.games.Join(c.roomID, c.playerID, name)
	if err != nil {
		c.sendGameError(err)
		return
	}

	var color string
	for _, p := range snapshot.Participants {
		if p.ID == c.playerID {
			color = p.Color
		}
	}
	c.hub.Broadcast(c.roomID, MsgJoin, JoinPayload{
		RoomID:       c.roomID,
		PlayerID:     c.playerID,
		PlayerName:   name,
		Color:        color,
		Participants: snapshot.Participants,
		GameState:    snapshot.State,
	})
}

func (c *Client) handleLeave() {
	if err := c.games.Leave(c.roomID, c.playerID); err != nil {
		c.sendGameError(err)
		return
	}
	c.hub.Broadcast(c.roomID, MsgLeave, LeavePayload{
		RoomID:   c.roomID,
		PlayerID: c.playerID,
	})
}

func (c *Client) handleMove(body json.RawMessage) {
	var req MoveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.sendError(CodeInvalidMessage, "malformed move payload")
		return
	}

	snapshot, err := c.games.Move(c.roomID, c.playerID, req.Move, req.TimeRemaining)
	if err != nil {
		c.sendGameError(err)
		return
	}

	c.hub.Broadcast(c.roomID, MsgMove, MovePayload{
		PlayerID:      c.playerID,
		GameID:        c.roomID,
		Move:          req.Move,
		FEN:           snapshot.State.FEN,
		TimeRemaining: req.TimeRemaining,
	})
	c.hub.Broadcast(c.roomID, MsgStateUpdate, StateUpdatePayload{
		Status:      snapshot.State.Status,
		CurrentTurn: snapshot.State.Turn,
		WhiteTime:   snapshot.Clock.White,
		BlackTime:   snapshot.Clock.Black,
	})
}

func (c *Client) handleChat(body json.RawMessage) {
	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Message == "" {
		c.sendError(CodeInvalidMessage, "malformed chat payload")
		return
	}
	c.hub.Broadcast(c.roomID, MsgChat, ChatPayload{
		RoomID:     c.roomID,
		PlayerID:   c.playerID,
		PlayerName: c.username,
		Message:    req.Message,
	})
}

func (c *Client) handleTakebackOffer() {
	if err := c.games.OfferTakeback(c.roomID, c.playerID); err != nil {
		c.sendGameError(err)
		return
	}
	c.hub.Broadcast(c.roomID, MsgTakebackOffered, TakebackOfferedPayload{
		RoomID:      c.roomID,
		RequesterID: c.playerID,
	})
}

func (c *Client) handleTakebackAccept() {
	snapshot, err := c.games.AcceptTakeback(c.roomID, c.playerID)
	if err != nil {
		c.sendGameError(err)
		return
	}
	c.hub.Broadcast(c.roomID, MsgTakebackAccepted, TakebackAcceptedPayload{
		RoomID:    c.roomID,
		PlayerID:  c.playerID,
		GameState: snapshot.State,
		Ledger:    snapshot.Ledger,
	})
}

func (c *Client) handleTakebackReject() {
	if err := c.games.RejectTakeback(c.roomID, c.playerID); err != nil {
		c.sendGameError(err)
		return
	}
	c.hub.Broadcast(c.roomID, MsgTakebackRejected, TakebackRejectedPayload{
		RoomID:   c.roomID,
		PlayerID: c.playerID,
	})
}

func (c *Client) handleGameLog() {
	moves, err := c.games.GameLog(c.roomID)
	if err != nil {
		c.sendGameError(err)
		return
	}
	// 기보는 요청자에게만 전송
	c.enqueue(&Envelope{
		Type: MsgGameLog,
		Payload: GameLogPayload{
			RoomID: c.roomID,
			Moves:  moves,
		},
	})
}

// sendGameError 게임 에러를 프로토콜 에러 코드로 변환해 전송
func (c *Client) sendGameError(err error) {
	switch {
	case errors.Is(err, game.ErrRoomNotFound), errors.Is(err, game.ErrGameNotStarted):
		c.sendError(CodeGameNotFound, err.Error())
	case errors.Is(err, game.ErrRoomFull):
		c.sendError(CodeRoomFull, err.Error())
	case errors.Is(err, chess.ErrInvalidMove), errors.Is(err, game.ErrNotEnoughMoves):
		c.sendError(CodeInvalidMove, err.Error())
	case errors.Is(err, game.ErrNotParticipant):
		c.sendError(CodeNotYourTurn, err.Error())
	default:
		c.sendError(CodeConflict, err.Error())
	}
}

func (c *Client) sendError(code, message string) {
	c.enqueue(&Envelope{
		Type: MsgError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// enqueue 이 클라이언트에게만 메시지 전송
// 버퍼가 가득 차거나 이미 해제된 연결이면 버린다.
func (c *Client) enqueue(envelope *Envelope) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return
	}
	select {
	case c.send <- envelope:
	default:
		c.logger.Warn("Client send channel full, dropping message",
			zap.String("playerId", c.playerID))
	}
}

// closeSend 전송 채널 닫기 (Hub 전용, 멱등)
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}

// ServeWs WebSocket 연결 업그레이드 및 클라이언트 시작
func ServeWs(hub *Hub, games *game.Manager, w http.ResponseWriter, r *http.Request, roomID, playerID, username string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger, _ := zap.NewProduction()
		logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := NewClient(hub, games, conn, roomID, playerID, username)
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
