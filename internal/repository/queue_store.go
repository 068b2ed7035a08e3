package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chess-arena/chess-backend/internal/models"
)

var (
	// ErrStoreUnavailable 저장소 접근 실패, 재시도 가능
	ErrStoreUnavailable = errors.New("queue store unavailable")
)

// QueueStore 매칭 큐 저장소 추상화
// 레이팅/캐주얼 큐는 도착 시각을 점수로 하는 정렬 집합이고,
// 프라이빗 초대는 초대 대상 식별자를 키로 하는 테이블이다.
// 같은 엔트리를 두고 경합하는 연산은 애플리케이션 락이 아니라
// 저장소 쪽에서 원자적으로 직렬화되어야 한다 (다중 인스턴스 전제).
type QueueStore interface {
	// FindAndTakeRated 레이팅 큐를 도착 순서로 스캔해 |Δrating| <= maxDiff인
	// 첫 엔트리를 원자적으로 제거해 반환. 없으면 (nil, nil)
	FindAndTakeRated(ctx context.Context, rating, maxDiff uint32) (*models.MatchRequest, error)

	// TakeOldestCasual 캐주얼 큐에서 가장 오래 기다린 엔트리를 원자적으로
	// 꺼내 반환 (엄격한 FIFO). 비어 있으면 (nil, nil)
	TakeOldestCasual(ctx context.Context) (*models.MatchRequest, error)

	// Enqueue 레이팅/캐주얼 요청을 도착 시각 점수로 큐에 추가
	// 보존 기간이 지난 엔트리는 추가 전에 정리한다.
	Enqueue(ctx context.Context, req *models.MatchRequest) error

	// PutInvite 프라이빗 초대를 초대 대상 키로 저장
	PutInvite(ctx context.Context, req *models.MatchRequest) error

	// GetInviteFor 특정 플레이어 앞으로 온 대기 중 초대 조회. 없으면 (nil, nil)
	GetInviteFor(ctx context.Context, invitee string) (*models.MatchRequest, error)

	// TakeInviteByID 요청 id로 초대를 원자적으로 찾아 제거해 반환
	// 동시 수락 경합 시 정확히 한 호출만 성공한다. 없으면 (nil, nil)
	TakeInviteByID(ctx context.Context, requestID uuid.UUID) (*models.MatchRequest, error)

	// Remove 레이팅 큐 → 캐주얼 큐 → 초대 테이블 순으로 제거 시도
	// 첫 히트에서 멈추고 제거 여부를 반환한다.
	Remove(ctx context.Context, requestID uuid.UUID) (bool, error)

	// Locate 요청이 들어 있는 큐와 1-기반 도착 순위 반환. 없으면 ok=false
	Locate(ctx context.Context, requestID uuid.UUID) (kind models.MatchType, position int, ok bool, err error)

	// ExpandRatedRanges 대기 시간에 비례해 레이팅 허용 폭을 넓힌다
	// (분당 incrementPerMinute, 단조 증가). 엔트리별 갱신은 제거-후-삽입의
	// 원자 쌍이어야 하며, 동시에 매칭된 엔트리를 되살리면 안 된다.
	ExpandRatedRanges(ctx context.Context, incrementPerMinute, defaultMaxDiff uint32) error
}

// queue retention: rated/casual entries expire after this window
const DefaultRetention = time.Hour
