package service

import (
	"sort"

	"github.com/chess-arena/chess-backend/internal/models"
)

// PairingStrategy 토너먼트 풀 페어링 전략
type PairingStrategy interface {
	// Pair 풀에서 가능한 쌍 목록과 짝을 찾지 못한 잔여 목록 반환
	Pair(players []models.TournamentPlayer) ([]models.Pairing, []models.TournamentPlayer)
}

// ArenaPairingStrategy 레이팅 근접 기반 그리디 페어링
// 직전 상대와의 재대결은 소프트 제약으로 회피한다.
// 전체 최적 매칭이 아니라 정렬 순서 기준 탐욕 선택이다.
type ArenaPairingStrategy struct{}

// NewArenaPairingStrategy 아레나 페어링 전략 생성
func NewArenaPairingStrategy() *ArenaPairingStrategy {
	return &ArenaPairingStrategy{}
}

// Pair 레이팅 내림차순 정렬 후 왼쪽부터 탐욕 페어링
// 각 플레이어에 대해 정렬 순서상 처음 만나는 비재대결 상대를 택하고,
// 없으면 재대결 여부와 무관하게 첫 잔여 상대로 폴백한다. O(n²)
func (s *ArenaPairingStrategy) Pair(players []models.TournamentPlayer) ([]models.Pairing, []models.TournamentPlayer) {
	if len(players) == 0 {
		return nil, nil
	}

	sorted := make([]models.TournamentPlayer, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rating > sorted[j].Rating
	})

	pairings := make([]models.Pairing, 0, len(sorted)/2)
	paired := make([]bool, len(sorted))

	for i := range sorted {
		if paired[i] {
			continue
		}

		bestIdx := -1
		fallbackIdx := -1

		for j := i + 1; j < len(sorted); j++ {
			if paired[j] {
				continue
			}
			if fallbackIdx < 0 {
				fallbackIdx = j
			}
			if !playedLastRound(&sorted[i], &sorted[j]) {
				bestIdx = j
				break
			}
		}

		target := bestIdx
		if target < 0 {
			target = fallbackIdx
		}
		if target < 0 {
			continue
		}

		paired[i] = true
		paired[target] = true
		pairings = append(pairings, models.Pairing{
			Player1: sorted[i],
			Player2: sorted[target],
		})
	}

	var remaining []models.TournamentPlayer
	for i, p := range sorted {
		if !paired[i] {
			remaining = append(remaining, p)
		}
	}

	return pairings, remaining
}

// playedLastRound 양쪽의 직전 상대 기록만 비교한다 (전체 히스토리 아님)
func playedLastRound(a, b *models.TournamentPlayer) bool {
	if last, ok := a.LastOpponent(); ok && last == b.ID {
		return true
	}
	if last, ok := b.LastOpponent(); ok && last == a.ID {
		return true
	}
	return false
}
