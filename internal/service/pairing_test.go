package service

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess-arena/chess-backend/internal/models"
)

func tournamentPlayer(rating uint32, recentOpponents ...uuid.UUID) models.TournamentPlayer {
	return models.TournamentPlayer{
		ID:              uuid.New(),
		Rating:          rating,
		JoinedAt:        time.Now(),
		RecentOpponents: recentOpponents,
	}
}

func TestArenaPairing_Basic(t *testing.T) {
	p1 := tournamentPlayer(1000)
	p2 := tournamentPlayer(1100)
	p3 := tournamentPlayer(1200)

	strategy := NewArenaPairingStrategy()
	pairings, remaining := strategy.Pair([]models.TournamentPlayer{p1, p2, p3})

	require.Len(t, pairings, 1)
	require.Len(t, remaining, 1)

	// 내림차순 탐욕: 1200이 다음 순위인 1100과 맺어지고 1000이 남는다
	assert.Equal(t, p3.ID, pairings[0].Player1.ID)
	assert.Equal(t, p2.ID, pairings[0].Player2.ID)
	assert.Equal(t, p1.ID, remaining[0].ID)
}

func TestArenaPairing_SkipsLastOpponent(t *testing.T) {
	p1 := tournamentPlayer(1000)
	p2 := tournamentPlayer(1100)
	p3 := tournamentPlayer(1200)

	// 상위 두 명이 직전 라운드에서 맞붙었다
	p3.RecentOpponents = []uuid.UUID{p2.ID}
	p2.RecentOpponents = []uuid.UUID{p3.ID}

	strategy := NewArenaPairingStrategy()
	pairings, remaining := strategy.Pair([]models.TournamentPlayer{p1, p2, p3})

	require.Len(t, pairings, 1)
	require.Len(t, remaining, 1)

	// 1200은 1100을 건너뛰고 1000과 맺어져야 한다
	assert.Equal(t, p3.ID, pairings[0].Player1.ID)
	assert.Equal(t, p1.ID, pairings[0].Player2.ID)
	assert.Equal(t, p2.ID, remaining[0].ID)
}

func TestArenaPairing_FallbackWhenOnlyRepeatAvailable(t *testing.T) {
	p1 := tournamentPlayer(1000)
	p2 := tournamentPlayer(1100)
	p1.RecentOpponents = []uuid.UUID{p2.ID}
	p2.RecentOpponents = []uuid.UUID{p1.ID}

	strategy := NewArenaPairingStrategy()
	pairings, remaining := strategy.Pair([]models.TournamentPlayer{p1, p2})

	// 소프트 제약: 다른 상대가 없으면 재대결이라도 맺는다
	require.Len(t, pairings, 1)
	assert.Empty(t, remaining)
}

func TestArenaPairing_OnlyLastOpponentCounts(t *testing.T) {
	p1 := tournamentPlayer(1000)
	p2 := tournamentPlayer(1100)
	p3 := tournamentPlayer(1200)

	// 1200과 1100의 대결은 직전이 아니라 그 이전 라운드였다
	p3.RecentOpponents = []uuid.UUID{p2.ID, p1.ID}
	p2.RecentOpponents = []uuid.UUID{p3.ID, p1.ID}

	strategy := NewArenaPairingStrategy()
	pairings, _ := strategy.Pair([]models.TournamentPlayer{p1, p2, p3})

	require.Len(t, pairings, 1)
	assert.Equal(t, p3.ID, pairings[0].Player1.ID)
	assert.Equal(t, p2.ID, pairings[0].Player2.ID)
}

func TestArenaPairing_EmptyAndSingle(t *testing.T) {
	strategy := NewArenaPairingStrategy()

	pairings, remaining := strategy.Pair(nil)
	assert.Empty(t, pairings)
	assert.Empty(t, remaining)

	solo := tournamentPlayer(1500)
	pairings, remaining = strategy.Pair([]models.TournamentPlayer{solo})
	assert.Empty(t, pairings)
	require.Len(t, remaining, 1)
	assert.Equal(t, solo.ID, remaining[0].ID)
}

func TestArenaPairing_LargePoolCompletesQuickly(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	players := make([]models.TournamentPlayer, 1000)
	for i := range players {
		players[i] = tournamentPlayer(uint32(800 + rng.Intn(1600)))
	}

	strategy := NewArenaPairingStrategy()

	start := time.Now()
	pairings, remaining := strategy.Pair(players)
	elapsed := time.Since(start)

	assert.Equal(t, 500, len(pairings))
	assert.Empty(t, remaining)
	assert.Less(t, elapsed, 100*time.Millisecond, "pairing 1000 players took %s", elapsed)
}
