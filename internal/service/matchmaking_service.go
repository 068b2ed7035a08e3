package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chess-arena/chess-backend/internal/models"
	"github.com/chess-arena/chess-backend/internal/repository"
	"github.com/chess-arena/chess-backend/pkg/logger"
)

const (
	// 레이팅 매칭 기본 허용 폭과 분당 확장 폭
	DefaultMaxRatingDiff   = 200
	RatingRangePerMinute   = 50
	privateWaitSeconds     = 60
	StatusMatched          = "matched"
	StatusQueued           = "queued"
	StatusWaitingForInvite = "waiting_for_invite"
)

// SweepLease 허용 폭 확장 스윕의 단일 수행자 보장
// nil이면 리스 없이 수행한다 (단일 인스턴스 배포).
type SweepLease interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// MatchmakingService 매칭 큐 조율자
// 큐 멤버십의 유일한 출처는 저장소이고, 방금 생성된 Match만
// 프로세스 로컬 테이블에 단일 뮤텍스로 보관한다.
type MatchmakingService struct {
	store repository.QueueStore
	lease SweepLease

	matchesMu sync.Mutex
	matches   map[uuid.UUID]*models.Match

	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewMatchmakingService 매칭 서비스 생성
func NewMatchmakingService(store repository.QueueStore, interval time.Duration, lease SweepLease) *MatchmakingService {
	return &MatchmakingService{
		store:    store,
		lease:    lease,
		matches:  make(map[uuid.UUID]*models.Match),
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// JoinQueue 매칭 요청 처리
// 레이팅/캐주얼은 먼저 대기 중 상대를 원자적으로 집어오고,
// 없으면 큐에 등록한다. 프라이빗은 초대 테이블에 넣는다.
func (s *MatchmakingService) JoinQueue(ctx context.Context, req *models.MatchRequest) (*models.MatchmakingResponse, error) {
	if !req.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown match type %q", ErrInvalidRequest, req.Kind)
	}

	switch req.Kind {
	case models.MatchTypeRated:
		maxDiff := req.MaxRatingDiff
		if maxDiff == 0 {
			maxDiff = DefaultMaxRatingDiff
		}
		opponent, err := s.store.FindAndTakeRated(ctx, req.Player.Rating, maxDiff)
		if err != nil {
			return nil, err
		}
		if opponent != nil {
			return s.matched(opponent.Player, req.Player, models.MatchTypeRated, req.ID), nil
		}

	case models.MatchTypeCasual:
		opponent, err := s.store.TakeOldestCasual(ctx)
		if err != nil {
			return nil, err
		}
		if opponent != nil {
			return s.matched(opponent.Player, req.Player, models.MatchTypeCasual, req.ID), nil
		}

	case models.MatchTypePrivate:
		if req.InviteTarget == "" {
			return nil, ErrMissingInviteTarget
		}
		if err := s.store.PutInvite(ctx, req); err != nil {
			return nil, err
		}
		return &models.MatchmakingResponse{
			Status:    StatusWaitingForInvite,
			RequestID: req.ID,
		}, nil
	}

	if err := s.store.Enqueue(ctx, req); err != nil {
		return nil, err
	}

	logger.Debug("Request queued",
		"requestId", req.ID,
		"kind", req.Kind,
		"rating", req.Player.Rating,
	)

	return &models.MatchmakingResponse{
		Status:    StatusQueued,
		RequestID: req.ID,
	}, nil
}

// Cancel 대기 중 요청 취소 (멱등)
// 이미 매칭되었거나 취소된 요청은 false
func (s *MatchmakingService) Cancel(ctx context.Context, requestID uuid.UUID) (bool, error) {
	return s.store.Remove(ctx, requestID)
}

// Status 큐 내 위치와 예상 대기 시간 조회
func (s *MatchmakingService) Status(ctx context.Context, requestID uuid.UUID) (*models.QueueStatus, error) {
	kind, position, ok, err := s.store.Locate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRequestNotFound
	}

	return &models.QueueStatus{
		RequestID:            requestID,
		Position:             position,
		EstimatedWaitSeconds: estimateWaitSeconds(kind, position),
		Kind:                 kind,
	}, nil
}

// estimateWaitSeconds 순위에 대한 단조 증가 포화 함수
func estimateWaitSeconds(kind models.MatchType, position int) int {
	switch kind {
	case models.MatchTypeRated:
		return minInt(300, 30+15*position)
	case models.MatchTypeCasual:
		return minInt(180, 15+10*position)
	default:
		return privateWaitSeconds
	}
}

// CheckInvite 특정 플레이어 앞으로 온 대기 중 초대 조회
func (s *MatchmakingService) CheckInvite(ctx context.Context, invitee string) (*models.MatchRequest, error) {
	return s.store.GetInviteFor(ctx, invitee)
}

// AcceptInvite 프라이빗 초대 수락
// 저장소의 원자적 찾고-제거하기로 동시 수락 중 한 명만 성공한다.
func (s *MatchmakingService) AcceptInvite(ctx context.Context, inviterRequestID uuid.UUID, accepting models.PlayerSnapshot) (*models.MatchmakingResponse, error) {
	invite, err := s.store.TakeInviteByID(ctx, inviterRequestID)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return nil, ErrInviteNotFound
	}

	return s.matched(invite.Player, accepting, models.MatchTypePrivate, inviterRequestID), nil
}

// GetMatch 프로세스 로컬 매치 테이블 조회
func (s *MatchmakingService) GetMatch(matchID uuid.UUID) (*models.Match, bool) {
	s.matchesMu.Lock()
	defer s.matchesMu.Unlock()
	m, ok := s.matches[matchID]
	return m, ok
}

// matched Match를 정확히 한 번 생성해 테이블에 보관
func (s *MatchmakingService) matched(player1, player2 models.PlayerSnapshot, kind models.MatchType, requestID uuid.UUID) *models.MatchmakingResponse {
	match := &models.Match{
		ID:        uuid.New(),
		Player1:   player1,
		Player2:   player2,
		Kind:      kind,
		CreatedAt: time.Now(),
	}

	s.matchesMu.Lock()
	s.matches[match.ID] = match
	s.matchesMu.Unlock()

	logger.Info("Match created",
		"matchId", match.ID,
		"kind", kind,
		"player1", player1.ID,
		"player2", player2.ID,
	)

	matchID := match.ID
	return &models.MatchmakingResponse{
		Status:    StatusMatched,
		MatchID:   &matchID,
		RequestID: requestID,
	}
}

// Start 허용 폭 확장 스윕 시작
func (s *MatchmakingService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	logger.Info("Starting matchmaking range expansion", "interval", s.interval)

	s.wg.Add(1)
	go s.expandLoop()
}

// Stop 스윕 중지
func (s *MatchmakingService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	logger.Info("Matchmaking range expansion stopped")
}

// expandLoop 주기적 스윕 실행
func (s *MatchmakingService) expandLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runExpansion()
		case <-s.stopChan:
			return
		}
	}
}

// runExpansion 리스를 잡은 인스턴스만 실제 스윕 수행
func (s *MatchmakingService) runExpansion() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.lease != nil {
		acquired, err := s.lease.TryAcquire(ctx)
		if err != nil {
			logger.Error("Failed to acquire sweep lease", "error", err)
			return
		}
		if !acquired {
			// 다른 인스턴스가 이번 주기를 맡았다
			return
		}
		defer func() {
			if err := s.lease.Release(context.Background()); err != nil {
				logger.Error("Failed to release sweep lease", "error", err)
			}
		}()
	}

	if err := s.store.ExpandRatedRanges(ctx, RatingRangePerMinute, DefaultMaxRatingDiff); err != nil {
		logger.Error("Failed to expand rating ranges", "error", err)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
