package models

import (
	"time"

	"github.com/google/uuid"
)

// TournamentPlayer 아레나 페어링 풀의 참가자
// RecentOpponents는 최근 상대 순서 기록이며 페어링 전략은 읽기만 한다.
type TournamentPlayer struct {
	ID              uuid.UUID   `json:"id"`
	Rating          uint32      `json:"rating"`
	JoinedAt        time.Time   `json:"joinedAt"`
	RecentOpponents []uuid.UUID `json:"recentOpponents"`
}

// LastOpponent 가장 최근 상대 (없으면 false)
func (p *TournamentPlayer) LastOpponent() (uuid.UUID, bool) {
	if len(p.RecentOpponents) == 0 {
		return uuid.UUID{}, false
	}
	return p.RecentOpponents[len(p.RecentOpponents)-1], true
}

// Pairing 아레나 라운드에서 맺어진 한 쌍
type Pairing struct {
	Player1 TournamentPlayer `json:"player1"`
	Player2 TournamentPlayer `json:"player2"`
}
