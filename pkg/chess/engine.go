// Package chess 외부 체스 룰 엔진과의 경계
// 이 서버는 수의 적법성을 직접 검증하지 않고 엔진에 위임한다.
package chess

import "errors"

var ErrInvalidMove = errors.New("invalid move")

// 게임 진행 상태
const (
	StatusInProgress  = "in_progress"
	StatusCheckmate   = "checkmate"
	StatusStalemate   = "stalemate"
	StatusDraw        = "draw"
	StatusTimeForfeit = "time_forfeit"
)

const (
	TurnWhite = "white"
	TurnBlack = "black"
)

// 표준 초기 국면 FEN
const InitialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// State 엔진이 돌려주는 국면 핸들
// 코어는 내용을 해석하지 않고 그대로 중계한다.
type State struct {
	FEN    string `json:"fen"`
	Turn   string `json:"turn"`
	Status string `json:"status"`
}

// Engine 체스 룰 협력자 인터페이스
type Engine interface {
	// NewGame 초기 국면 생성
	NewGame() *State

	// Apply 현재 국면에 수를 적용한 새 국면 반환
	// 기보 표기는 불투명 문자열로 취급한다.
	Apply(state *State, notation string) (*State, error)
}

// RelayEngine 기본 구현: 차례만 교대하고 수는 그대로 중계
// 실제 배포에서는 적법성 검증을 하는 엔진으로 교체된다.
type RelayEngine struct{}

// NewRelayEngine RelayEngine 생성
func NewRelayEngine() *RelayEngine {
	return &RelayEngine{}
}

// NewGame 초기 국면 생성
func (e *RelayEngine) NewGame() *State {
	return &State{
		FEN:    InitialFEN,
		Turn:   TurnWhite,
		Status: StatusInProgress,
	}
}

// Apply 차례 교대 및 중계
func (e *RelayEngine) Apply(state *State, notation string) (*State, error) {
	if notation == "" {
		return nil, ErrInvalidMove
	}
	if state.Status != StatusInProgress {
		return nil, ErrInvalidMove
	}

	next := &State{
		FEN:    state.FEN,
		Status: state.Status,
	}
	if state.Turn == TurnWhite {
		next.Turn = TurnBlack
	} else {
		next.Turn = TurnWhite
	}
	return next, nil
}
