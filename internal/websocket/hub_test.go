package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess-arena/chess-backend/internal/game"
	"github.com/chess-arena/chess-backend/pkg/chess"
)

// receivedEnvelope 테스트용 수신 봉투
type receivedEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Version string          `json:"version"`
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub()
	go hub.Run()
	games := game.NewManager(chess.NewRelayEngine())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		playerID := r.URL.Query().Get("player")
		ServeWs(hub, games, w, r, roomID, playerID, playerID)
	}))
	t.Cleanup(server.Close)

	return hub, server
}

func dial(t *testing.T, server *httptest.Server, roomID, playerID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?room=" + roomID + "&player=" + playerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) receivedEnvelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env receivedEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()

	env := map[string]interface{}{"type": msgType}
	if payload != nil {
		env["payload"] = payload
	}
	require.NoError(t, conn.WriteJSON(env))
}

func TestHub_BroadcastReachesAllRoomClients(t *testing.T) {
	hub, server := newTestServer(t)

	conn1 := dial(t, server, "room-1", "alice")
	conn2 := dial(t, server, "room-1", "bob")
	other := dial(t, server, "room-2", "carol")

	require.Eventually(t, func() bool {
		return hub.RoomClients("room-1") == 2
	}, time.Second, 10*time.Millisecond)

	sendMessage(t, conn1, MsgJoin, JoinRequest{PlayerName: "alice"})

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		env := readEnvelope(t, conn)
		assert.Equal(t, MsgJoin, env.Type)
		assert.Equal(t, ProtocolVersion, env.Version)

		var payload JoinPayload
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		assert.Equal(t, "room-1", payload.RoomID)
		assert.Equal(t, "alice", payload.PlayerID)
		assert.Equal(t, chess.TurnWhite, payload.Color)
	}

	// 다른 방의 연결에는 전달되지 않는다
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregisterDropsEmptyRoom(t *testing.T) {
	hub, server := newTestServer(t)

	conn := dial(t, server, "room-1", "alice")
	require.Eventually(t, func() bool {
		return hub.RoomClients("room-1") == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return hub.RoomClients("room-1") == 0
	}, time.Second, 10*time.Millisecond)
}

// waitForClients 등록 완료까지 대기 (등록 전 브로드캐스트 유실 방지)
func waitForClients(t *testing.T, hub *Hub, roomID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.RoomClients(roomID) == n
	}, time.Second, 10*time.Millisecond)
}

func TestHub_SlowClientUnregisterDoesNotPanic(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	games := game.NewManager(chess.NewRelayEngine())

	// 펌프 없이 등록만 하고 송신 버퍼를 가득 채운다
	client := NewClient(hub, games, nil, "room-1", "alice", "alice")
	hub.register <- client
	waitForClients(t, hub, "room-1", 1)

	for i := 0; i < cap(client.send); i++ {
		client.send <- &Envelope{Type: MsgChat}
	}

	// 가득 찬 버퍼로 인한 해제와 동시에 클라이언트 자신이 계속 전송한다
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			client.sendError(CodeConflict, "busy")
		}
	}()

	hub.Broadcast("room-1", MsgChat, nil)

	waitForClients(t, hub, "room-1", 0)
	<-done

	// 해제 이후의 전송은 조용히 버려진다
	client.sendError(CodeConflict, "late")
}

func TestClient_MoveBroadcastsStateUpdate(t *testing.T) {
	hub, server := newTestServer(t)

	conn1 := dial(t, server, "room-1", "alice")
	conn2 := dial(t, server, "room-1", "bob")
	waitForClients(t, hub, "room-1", 2)

	sendMessage(t, conn1, MsgJoin, nil)
	readEnvelope(t, conn1) // alice join
	sendMessage(t, conn2, MsgJoin, nil)
	readEnvelope(t, conn1) // bob join
	readEnvelope(t, conn2)
	readEnvelope(t, conn2)

	sendMessage(t, conn1, MsgMove, MoveRequest{Move: "e4", TimeRemaining: 290})

	env := readEnvelope(t, conn2)
	require.Equal(t, MsgMove, env.Type)

	var movePayload MovePayload
	require.NoError(t, json.Unmarshal(env.Payload, &movePayload))
	assert.Equal(t, "alice", movePayload.PlayerID)
	assert.Equal(t, "e4", movePayload.Move)
	assert.Equal(t, uint32(290), movePayload.TimeRemaining)

	env = readEnvelope(t, conn2)
	require.Equal(t, MsgStateUpdate, env.Type)

	var statePayload StateUpdatePayload
	require.NoError(t, json.Unmarshal(env.Payload, &statePayload))
	assert.Equal(t, chess.TurnBlack, statePayload.CurrentTurn)
	assert.Equal(t, uint32(290), statePayload.WhiteTime)
}

func TestClient_MoveBeforeStartRejected(t *testing.T) {
	_, server := newTestServer(t)

	conn := dial(t, server, "room-1", "alice")
	sendMessage(t, conn, MsgJoin, nil)
	readEnvelope(t, conn)

	// 상대가 없으면 게임이 시작되지 않았다
	sendMessage(t, conn, MsgMove, MoveRequest{Move: "e4", TimeRemaining: 300})

	env := readEnvelope(t, conn)
	require.Equal(t, MsgError, env.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, CodeGameNotFound, payload.Code)
}

func TestClient_MalformedMessage(t *testing.T) {
	_, server := newTestServer(t)

	conn := dial(t, server, "room-1", "alice")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	env := readEnvelope(t, conn)
	require.Equal(t, MsgError, env.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, CodeInvalidMessage, payload.Code)
}

func TestClient_TakebackFlow(t *testing.T) {
	hub, server := newTestServer(t)

	conn1 := dial(t, server, "room-1", "alice")
	conn2 := dial(t, server, "room-1", "bob")
	waitForClients(t, hub, "room-1", 2)

	sendMessage(t, conn1, MsgJoin, nil)
	readEnvelope(t, conn1)
	sendMessage(t, conn2, MsgJoin, nil)
	readEnvelope(t, conn1)
	readEnvelope(t, conn2)
	readEnvelope(t, conn2)

	// 두 수를 두고 무르기 요청
	sendMessage(t, conn1, MsgMove, MoveRequest{Move: "e4", TimeRemaining: 295})
	readEnvelope(t, conn1)
	readEnvelope(t, conn1)
	sendMessage(t, conn2, MsgMove, MoveRequest{Move: "e5", TimeRemaining: 296})
	readEnvelope(t, conn1)
	readEnvelope(t, conn1)

	sendMessage(t, conn1, MsgTakebackOffer, nil)
	env := readEnvelope(t, conn1)
	require.Equal(t, MsgTakebackOffered, env.Type)

	sendMessage(t, conn2, MsgTakebackAccept, nil)
	env = readEnvelope(t, conn1)
	require.Equal(t, MsgTakebackAccepted, env.Type)

	var payload TakebackAcceptedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Empty(t, payload.Ledger)
	assert.Equal(t, chess.TurnWhite, payload.GameState.Turn)
}

func TestClient_GameLogSentToRequesterOnly(t *testing.T) {
	hub, server := newTestServer(t)

	conn1 := dial(t, server, "room-1", "alice")
	conn2 := dial(t, server, "room-1", "bob")
	waitForClients(t, hub, "room-1", 2)

	sendMessage(t, conn1, MsgJoin, nil)
	readEnvelope(t, conn1)
	sendMessage(t, conn2, MsgJoin, nil)
	readEnvelope(t, conn1)
	readEnvelope(t, conn2)
	readEnvelope(t, conn2)

	sendMessage(t, conn1, MsgMove, MoveRequest{Move: "e4", TimeRemaining: 295})
	readEnvelope(t, conn1)
	readEnvelope(t, conn1)
	readEnvelope(t, conn2)
	readEnvelope(t, conn2)

	sendMessage(t, conn1, MsgGameLog, nil)
	env := readEnvelope(t, conn1)
	require.Equal(t, MsgGameLog, env.Type)

	var payload GameLogPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	require.Len(t, payload.Moves, 1)
	assert.Equal(t, "e4", payload.Moves[0].Notation)

	// 상대에게는 전송되지 않는다
	conn2.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn2.ReadMessage()
	assert.Error(t, err)
}
