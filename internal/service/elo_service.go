package service

import "math"

// ELOService ELO 레이팅 계산 서비스
// 순수 함수만 제공하며 I/O나 상태가 없다. 동일 입력에 항상 동일 출력을
// 보장해야 정산된 매치를 외부 감사자가 독립 검증할 수 있다.
type ELOService struct{}

// NewELOService ELO 서비스 생성
func NewELOService() *ELOService {
	return &ELOService{}
}

// CalculateNewRatings 승패 결과에 따른 새 레이팅 계산
// delta = round(k * (1 - E)), E는 승자의 기대 승률.
// 승자는 uint32 상한에서, 패자는 0에서 포화한다. k=0이면 입력 그대로 반환.
func (s *ELOService) CalculateNewRatings(winner, loser, k uint32) (newWinner, newLoser uint32) {
	if k == 0 {
		return winner, loser
	}

	expected := s.expectedScore(float64(winner), float64(loser))

	delta := math.Round(float64(k) * (1.0 - expected))
	if delta <= 0 {
		delta = 0
	}

	newWinner = saturatingAdd(winner, delta)
	newLoser = saturatingSub(loser, delta)
	return newWinner, newLoser
}

// expectedScore 레이팅 차이에 따른 기대 승률
func (s *ELOService) expectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}

func saturatingAdd(r uint32, delta float64) uint32 {
	sum := float64(r) + delta
	if sum >= float64(math.MaxUint32) {
		return math.MaxUint32
	}
	return uint32(sum)
}

func saturatingSub(r uint32, delta float64) uint32 {
	if delta >= float64(r) {
		return 0
	}
	return r - uint32(delta)
}
