package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess-arena/chess-backend/internal/models"
	"github.com/chess-arena/chess-backend/internal/repository"
)

func newTestService() *MatchmakingService {
	store := repository.NewMemoryQueueStore(time.Hour)
	return NewMatchmakingService(store, time.Minute, nil)
}

func matchRequest(kind models.MatchType, rating uint32) *models.MatchRequest {
	return &models.MatchRequest{
		ID: uuid.New(),
		Player: models.PlayerSnapshot{
			ID:       uuid.New().String(),
			Rating:   rating,
			JoinedAt: time.Now(),
		},
		Kind: kind,
	}
}

func TestMatchmaking_RatedQueueThenMatch(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first := matchRequest(models.MatchTypeRated, 1500)
	resp, err := svc.JoinQueue(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, resp.Status)
	assert.Nil(t, resp.MatchID)

	// 호환 레이팅의 두 번째 요청은 즉시 매칭된다
	second := matchRequest(models.MatchTypeRated, 1550)
	resp, err = svc.JoinQueue(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, StatusMatched, resp.Status)
	require.NotNil(t, resp.MatchID)

	match, ok := svc.GetMatch(*resp.MatchID)
	require.True(t, ok)
	assert.Equal(t, first.Player.ID, match.Player1.ID)
	assert.Equal(t, second.Player.ID, match.Player2.ID)

	// 매칭된 요청은 더 이상 큐에서 조회되지 않는다
	_, err = svc.Status(ctx, first.ID)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestMatchmaking_RatedRespectsMaxDiff(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first := matchRequest(models.MatchTypeRated, 1200)
	_, err := svc.JoinQueue(ctx, first)
	require.NoError(t, err)

	// 기본 허용 폭 200 밖의 상대는 매칭되지 않고 함께 대기한다
	second := matchRequest(models.MatchTypeRated, 1600)
	resp, err := svc.JoinQueue(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, resp.Status)

	status, err := svc.Status(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Position)
}

func TestMatchmaking_CasualFIFO(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first := matchRequest(models.MatchTypeCasual, 900)
	_, err := svc.JoinQueue(ctx, first)
	require.NoError(t, err)

	// 캐주얼은 레이팅과 무관하게 가장 오래 기다린 상대와 맺어진다
	second := matchRequest(models.MatchTypeCasual, 2400)
	resp, err := svc.JoinQueue(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, StatusMatched, resp.Status)
}

func TestMatchmaking_CancelMatchedReturnsNotFound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first := matchRequest(models.MatchTypeRated, 1500)
	_, err := svc.JoinQueue(ctx, first)
	require.NoError(t, err)

	second := matchRequest(models.MatchTypeRated, 1500)
	resp, err := svc.JoinQueue(ctx, second)
	require.NoError(t, err)
	require.Equal(t, StatusMatched, resp.Status)

	// 이미 매칭된 요청의 취소는 false
	removed, err := svc.Cancel(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMatchmaking_CancelIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	req := matchRequest(models.MatchTypeRated, 1500)
	_, err := svc.JoinQueue(ctx, req)
	require.NoError(t, err)

	removed, err := svc.Cancel(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Cancel(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMatchmaking_PrivateRequiresInviteTarget(t *testing.T) {
	svc := newTestService()

	req := matchRequest(models.MatchTypePrivate, 1500)
	_, err := svc.JoinQueue(context.Background(), req)
	assert.ErrorIs(t, err, ErrMissingInviteTarget)
}

func TestMatchmaking_PrivateInviteFlow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	req := matchRequest(models.MatchTypePrivate, 1500)
	req.InviteTarget = "friend-1"
	resp, err := svc.JoinQueue(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusWaitingForInvite, resp.Status)

	invite, err := svc.CheckInvite(ctx, "friend-1")
	require.NoError(t, err)
	require.NotNil(t, invite)
	assert.Equal(t, req.ID, invite.ID)

	accepting := models.PlayerSnapshot{ID: "friend-1", Rating: 1480, JoinedAt: time.Now()}
	resp, err = svc.AcceptInvite(ctx, req.ID, accepting)
	require.NoError(t, err)
	assert.Equal(t, StatusMatched, resp.Status)
	require.NotNil(t, resp.MatchID)
}

func TestMatchmaking_ConcurrentInviteAcceptOneWinner(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	req := matchRequest(models.MatchTypePrivate, 1500)
	req.InviteTarget = "friend-1"
	_, err := svc.JoinQueue(ctx, req)
	require.NoError(t, err)

	const acceptors = 8
	var wg sync.WaitGroup
	results := make(chan *models.MatchmakingResponse, acceptors)
	failures := make(chan error, acceptors)

	for i := 0; i < acceptors; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			accepting := models.PlayerSnapshot{ID: uuid.New().String(), Rating: 1500, JoinedAt: time.Now()}
			resp, err := svc.AcceptInvite(ctx, req.ID, accepting)
			if err != nil {
				failures <- err
				return
			}
			results <- resp
		}(i)
	}
	wg.Wait()
	close(results)
	close(failures)

	// 정확히 한 명만 성공하고 Match도 정확히 하나 생성된다
	assert.Equal(t, 1, len(results))
	assert.Equal(t, acceptors-1, len(failures))
	for err := range failures {
		assert.ErrorIs(t, err, ErrInviteNotFound)
	}
	for resp := range results {
		require.NotNil(t, resp.MatchID)
		_, ok := svc.GetMatch(*resp.MatchID)
		assert.True(t, ok)
	}
}

func TestMatchmaking_StatusWaitEstimates(t *testing.T) {
	tests := []struct {
		kind     models.MatchType
		position int
		want     int
	}{
		{models.MatchTypeRated, 1, 45},
		{models.MatchTypeRated, 100, 300}, // 포화
		{models.MatchTypeCasual, 1, 25},
		{models.MatchTypeCasual, 50, 180}, // 포화
		{models.MatchTypePrivate, 1, 60},
	}

	for _, tt := range tests {
		got := estimateWaitSeconds(tt.kind, tt.position)
		assert.Equal(t, tt.want, got, "kind=%s position=%d", tt.kind, tt.position)
	}
}

func TestMatchmaking_UnknownKindRejected(t *testing.T) {
	svc := newTestService()

	req := matchRequest("blitz", 1500)
	_, err := svc.JoinQueue(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestMatchmaking_ExpandWidensMonotonically(t *testing.T) {
	store := repository.NewMemoryQueueStore(time.Hour)
	ctx := context.Background()

	req := matchRequest(models.MatchTypeRated, 1500)
	req.Player.JoinedAt = time.Now().Add(-2 * time.Minute)
	require.NoError(t, store.Enqueue(ctx, req))

	// 2분 대기 → 기본 200 + 2*50
	require.NoError(t, store.ExpandRatedRanges(ctx, RatingRangePerMinute, DefaultMaxRatingDiff))
	assert.Equal(t, uint32(300), req.MaxRatingDiff)

	// 반복 스윕은 허용 폭을 줄이지 않는다
	require.NoError(t, store.ExpandRatedRanges(ctx, RatingRangePerMinute, DefaultMaxRatingDiff))
	assert.GreaterOrEqual(t, req.MaxRatingDiff, uint32(300))
}
