package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chess-arena/chess-backend/internal/models"
)

// MemoryQueueStore 프로세스 내 큐 저장소
// RedisQueueStore의 단일 인스턴스 전용 부분집합으로, 인스턴스 간
// 경합 보호가 없으므로 단일 배포와 테스트에서만 쓴다.
type MemoryQueueStore struct {
	mu        sync.Mutex
	rated     []memoryEntry
	casual    []memoryEntry
	invites   map[string]*models.MatchRequest
	retention time.Duration
}

type memoryEntry struct {
	req      *models.MatchRequest
	enqueued time.Time
}

// NewMemoryQueueStore 인메모리 큐 저장소 생성
func NewMemoryQueueStore(retention time.Duration) *MemoryQueueStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryQueueStore{
		invites:   make(map[string]*models.MatchRequest),
		retention: retention,
	}
}

func (s *MemoryQueueStore) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.retention)
	s.rated = pruneEntries(s.rated, cutoff)
	s.casual = pruneEntries(s.casual, cutoff)
}

func pruneEntries(entries []memoryEntry, cutoff time.Time) []memoryEntry {
	kept := entries[:0]
	for _, e := range entries {
		if e.enqueued.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}

// FindAndTakeRated 도착 순서로 첫 적합 상대를 제거해 반환
func (s *MemoryQueueStore) FindAndTakeRated(_ context.Context, rating, maxDiff uint32) (*models.MatchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(time.Now())

	for i, e := range s.rated {
		if ratingDiff(e.req.Player.Rating, rating) <= maxDiff {
			s.rated = append(s.rated[:i], s.rated[i+1:]...)
			return e.req, nil
		}
	}
	return nil, nil
}

// TakeOldestCasual 가장 오래 기다린 캐주얼 엔트리 반환 (FIFO)
func (s *MemoryQueueStore) TakeOldestCasual(_ context.Context) (*models.MatchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(time.Now())

	if len(s.casual) == 0 {
		return nil, nil
	}
	e := s.casual[0]
	s.casual = s.casual[1:]
	return e.req, nil
}

// Enqueue 도착 순서대로 큐에 추가
func (s *MemoryQueueStore) Enqueue(_ context.Context, req *models.MatchRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.pruneLocked(now)

	entry := memoryEntry{req: req, enqueued: now}
	if req.Kind == models.MatchTypeCasual {
		s.casual = append(s.casual, entry)
	} else {
		s.rated = append(s.rated, entry)
	}
	return nil
}

// PutInvite 초대 대상 키로 초대 저장
func (s *MemoryQueueStore) PutInvite(_ context.Context, req *models.MatchRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invites[req.InviteTarget] = req
	return nil
}

// GetInviteFor 특정 플레이어 앞으로 온 초대 조회
func (s *MemoryQueueStore) GetInviteFor(_ context.Context, invitee string) (*models.MatchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invites[invitee], nil
}

// TakeInviteByID 요청 id로 초대를 찾아 제거 (뮤텍스로 직렬화)
func (s *MemoryQueueStore) TakeInviteByID(_ context.Context, requestID uuid.UUID) (*models.MatchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for invitee, req := range s.invites {
		if req.ID == requestID {
			delete(s.invites, invitee)
			return req, nil
		}
	}
	return nil, nil
}

// Remove 레이팅 → 캐주얼 → 초대 순으로 제거 시도
func (s *MemoryQueueStore) Remove(_ context.Context, requestID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if removed, rest := removeEntry(s.rated, requestID); removed {
		s.rated = rest
		return true, nil
	}
	if removed, rest := removeEntry(s.casual, requestID); removed {
		s.casual = rest
		return true, nil
	}
	for invitee, req := range s.invites {
		if req.ID == requestID {
			delete(s.invites, invitee)
			return true, nil
		}
	}
	return false, nil
}

func removeEntry(entries []memoryEntry, requestID uuid.UUID) (bool, []memoryEntry) {
	for i, e := range entries {
		if e.req.ID == requestID {
			return true, append(entries[:i], entries[i+1:]...)
		}
	}
	return false, entries
}

// Locate 요청이 들어 있는 큐와 1-기반 순위 반환
func (s *MemoryQueueStore) Locate(_ context.Context, requestID uuid.UUID) (models.MatchType, int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(time.Now())

	for i, e := range s.rated {
		if e.req.ID == requestID {
			return models.MatchTypeRated, i + 1, true, nil
		}
	}
	for i, e := range s.casual {
		if e.req.ID == requestID {
			return models.MatchTypeCasual, i + 1, true, nil
		}
	}
	for _, req := range s.invites {
		if req.ID == requestID {
			return models.MatchTypePrivate, 1, true, nil
		}
	}
	return "", 0, false, nil
}

// ExpandRatedRanges 대기 분수에 비례해 허용 폭 확대 (단조 증가)
func (s *MemoryQueueStore) ExpandRatedRanges(_ context.Context, incrementPerMinute, defaultMaxDiff uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, e := range s.rated {
		minutes := uint32(now.Sub(e.req.Player.JoinedAt).Minutes())
		if minutes == 0 {
			continue
		}
		if e.req.MaxRatingDiff == 0 {
			e.req.MaxRatingDiff = defaultMaxDiff
		}
		e.req.MaxRatingDiff += minutes * incrementPerMinute
	}
	return nil
}

func ratingDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
