package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chess-arena/chess-backend/internal/models"
	"github.com/chess-arena/chess-backend/pkg/logger"
)

const (
	ratedQueueKey  = "matchmaking:queue:rated"
	casualQueueKey = "matchmaking:queue:casual"
	invitesKey     = "matchmaking:invites"
)

// RedisQueueStore Redis 정렬 집합 + Lua 스크립트 기반 큐 저장소
// 찾고-제거하기 연산은 서버 사이드 스크립트로 단일 라운드트립에 처리해
// 여러 인스턴스가 같은 상대를 동시에 집는 경합을 막는다.
type RedisQueueStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisQueueStore Redis 큐 저장소 생성
func NewRedisQueueStore(client *redis.Client, retention time.Duration) *RedisQueueStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisQueueStore{
		client:    client,
		retention: retention,
	}
}

func queueKey(kind models.MatchType) string {
	if kind == models.MatchTypeCasual {
		return casualQueueKey
	}
	return ratedQueueKey
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// FindAndTakeRated 도착 순서 스캔으로 첫 적합 상대를 원자적으로 제거
// 깨진 엔트리는 스캔에서 건너뛴다 (pcall).
func (s *RedisQueueStore) FindAndTakeRated(ctx context.Context, rating, maxDiff uint32) (*models.MatchRequest, error) {
	script := redis.NewScript(`
		local key = KEYS[1]
		local rating = tonumber(ARGV[1])
		local max_diff = tonumber(ARGV[2])

		local members = redis.call('ZRANGE', key, 0, -1)

		for i, member in ipairs(members) do
			local ok, req = pcall(cjson.decode, member)
			if ok and req.player and req.player.rating then
				local diff = math.abs(req.player.rating - rating)
				if diff <= max_diff then
					redis.call('ZREM', key, member)
					return member
				end
			end
		end

		return nil
	`)

	result, err := script.Run(ctx, s.client, []string{ratedQueueKey}, rating, maxDiff).Result()
	if err == redis.Nil || result == nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("rated find-and-take script", err)
	}

	req, err := models.DecodeMatchRequest(result.(string))
	if err != nil {
		// 스크립트가 골라낸 엔트리가 깨져 있으면 매칭 실패로 처리
		logger.Warn("Skipping malformed rated queue entry", "error", err)
		return nil, nil
	}
	return req, nil
}

// TakeOldestCasual 가장 낮은 도착 점수 엔트리를 꺼낸다 (엄격한 FIFO)
// 깨진 엔트리는 버리고 다음 엔트리를 계속 꺼낸다.
func (s *RedisQueueStore) TakeOldestCasual(ctx context.Context) (*models.MatchRequest, error) {
	for {
		popped, err := s.client.ZPopMin(ctx, casualQueueKey, 1).Result()
		if err != nil {
			return nil, storeErr("casual ZPOPMIN", err)
		}
		if len(popped) == 0 {
			return nil, nil
		}

		member, _ := popped[0].Member.(string)
		req, err := models.DecodeMatchRequest(member)
		if err != nil {
			logger.Warn("Discarding malformed casual queue entry", "error", err)
			continue
		}
		return req, nil
	}
}

// Enqueue 도착 시각을 점수로 큐에 추가
// 보존 기간을 넘긴 엔트리를 먼저 정리하고 키 TTL을 갱신한다.
func (s *RedisQueueStore) Enqueue(ctx context.Context, req *models.MatchRequest) error {
	key := queueKey(req.Kind)
	now := time.Now()

	value, err := req.Encode()
	if err != nil {
		return fmt.Errorf("encode match request: %w", err)
	}

	cutoff := float64(now.Add(-s.retention).Unix())
	if err := s.client.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%f", cutoff)).Err(); err != nil {
		return storeErr("queue expiry sweep", err)
	}

	if err := s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.Unix()),
		Member: value,
	}).Err(); err != nil {
		return storeErr("queue ZADD", err)
	}

	if err := s.client.Expire(ctx, key, s.retention).Err(); err != nil {
		return storeErr("queue EXPIRE", err)
	}

	return nil
}

// PutInvite 초대 대상 식별자를 키로 초대 저장
func (s *RedisQueueStore) PutInvite(ctx context.Context, req *models.MatchRequest) error {
	value, err := req.Encode()
	if err != nil {
		return fmt.Errorf("encode match request: %w", err)
	}

	if err := s.client.HSet(ctx, invitesKey, req.InviteTarget, value).Err(); err != nil {
		return storeErr("invite HSET", err)
	}
	return nil
}

// GetInviteFor 특정 플레이어 앞으로 온 초대 조회
func (s *RedisQueueStore) GetInviteFor(ctx context.Context, invitee string) (*models.MatchRequest, error) {
	value, err := s.client.HGet(ctx, invitesKey, invitee).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("invite HGET", err)
	}

	req, err := models.DecodeMatchRequest(value)
	if err != nil {
		logger.Warn("Skipping malformed invite entry", "invitee", invitee, "error", err)
		return nil, nil
	}
	return req, nil
}

// TakeInviteByID 요청 id로 초대를 원자적으로 찾아 제거
// 같은 초대를 두 명이 동시에 수락해도 한쪽만 엔트리를 가져간다.
func (s *RedisQueueStore) TakeInviteByID(ctx context.Context, requestID uuid.UUID) (*models.MatchRequest, error) {
	script := redis.NewScript(`
		local key = KEYS[1]
		local target_id = ARGV[1]

		local invites = redis.call('HGETALL', key)

		for i = 1, #invites, 2 do
			local field = invites[i]
			local value = invites[i + 1]
			local ok, req = pcall(cjson.decode, value)
			if ok and req.id == target_id then
				redis.call('HDEL', key, field)
				return value
			end
		end

		return nil
	`)

	result, err := script.Run(ctx, s.client, []string{invitesKey}, requestID.String()).Result()
	if err == redis.Nil || result == nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("invite take script", err)
	}

	req, err := models.DecodeMatchRequest(result.(string))
	if err != nil {
		logger.Warn("Skipping malformed invite entry", "requestId", requestID, "error", err)
		return nil, nil
	}
	return req, nil
}

// Remove 레이팅 큐 → 캐주얼 큐 → 초대 테이블 순으로 제거 시도
func (s *RedisQueueStore) Remove(ctx context.Context, requestID uuid.UUID) (bool, error) {
	for _, key := range []string{ratedQueueKey, casualQueueKey} {
		removed, err := s.removeFromQueue(ctx, key, requestID)
		if err != nil {
			return false, err
		}
		if removed {
			return true, nil
		}
	}

	invites, err := s.client.HGetAll(ctx, invitesKey).Result()
	if err != nil {
		return false, storeErr("invite HGETALL", err)
	}

	for field, value := range invites {
		req, err := models.DecodeMatchRequest(value)
		if err != nil {
			logger.Warn("Skipping malformed invite entry", "invitee", field, "error", err)
			continue
		}
		if req.ID == requestID {
			if err := s.client.HDel(ctx, invitesKey, field).Err(); err != nil {
				return false, storeErr("invite HDEL", err)
			}
			return true, nil
		}
	}

	return false, nil
}

func (s *RedisQueueStore) removeFromQueue(ctx context.Context, key string, requestID uuid.UUID) (bool, error) {
	members, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return false, storeErr("queue ZRANGE", err)
	}

	for _, member := range members {
		req, err := models.DecodeMatchRequest(member)
		if err != nil {
			logger.Warn("Skipping malformed queue entry", "key", key, "error", err)
			continue
		}
		if req.ID == requestID {
			if err := s.client.ZRem(ctx, key, member).Err(); err != nil {
				return false, storeErr("queue ZREM", err)
			}
			return true, nil
		}
	}

	return false, nil
}

// Locate 요청이 들어 있는 큐와 1-기반 도착 순위 반환
func (s *RedisQueueStore) Locate(ctx context.Context, requestID uuid.UUID) (models.MatchType, int, bool, error) {
	queues := []struct {
		key  string
		kind models.MatchType
	}{
		{ratedQueueKey, models.MatchTypeRated},
		{casualQueueKey, models.MatchTypeCasual},
	}

	for _, q := range queues {
		members, err := s.client.ZRange(ctx, q.key, 0, -1).Result()
		if err != nil {
			return "", 0, false, storeErr("queue ZRANGE", err)
		}
		for i, member := range members {
			req, err := models.DecodeMatchRequest(member)
			if err != nil {
				logger.Warn("Skipping malformed queue entry", "key", q.key, "error", err)
				continue
			}
			if req.ID == requestID {
				return q.kind, i + 1, true, nil
			}
		}
	}

	invites, err := s.client.HGetAll(ctx, invitesKey).Result()
	if err != nil {
		return "", 0, false, storeErr("invite HGETALL", err)
	}
	for field, value := range invites {
		req, err := models.DecodeMatchRequest(value)
		if err != nil {
			logger.Warn("Skipping malformed invite entry", "invitee", field, "error", err)
			continue
		}
		if req.ID == requestID {
			return models.MatchTypePrivate, 1, true, nil
		}
	}

	return "", 0, false, nil
}

// ExpandRatedRanges 대기 시간에 비례해 레이팅 허용 폭 확대
// 갱신은 ZREM 성공을 조건으로 한 제거-삽입 원자 쌍이라,
// 동시에 매칭되어 사라진 엔트리를 낡은 값으로 되살리지 않는다.
func (s *RedisQueueStore) ExpandRatedRanges(ctx context.Context, incrementPerMinute, defaultMaxDiff uint32) error {
	swap := redis.NewScript(`
		if redis.call('ZREM', KEYS[1], ARGV[1]) == 1 then
			redis.call('ZADD', KEYS[1], ARGV[3], ARGV[2])
			return 1
		end
		return 0
	`)

	members, err := s.client.ZRangeWithScores(ctx, ratedQueueKey, 0, -1).Result()
	if err != nil {
		return storeErr("rated ZRANGE", err)
	}

	now := time.Now()
	for _, z := range members {
		member, _ := z.Member.(string)
		req, err := models.DecodeMatchRequest(member)
		if err != nil {
			logger.Warn("Skipping malformed rated queue entry", "error", err)
			continue
		}

		minutes := uint32(now.Sub(req.Player.JoinedAt).Minutes())
		if minutes == 0 {
			continue
		}

		if req.MaxRatingDiff == 0 {
			req.MaxRatingDiff = defaultMaxDiff
		}
		req.MaxRatingDiff += minutes * incrementPerMinute

		updated, err := req.Encode()
		if err != nil {
			return fmt.Errorf("encode match request: %w", err)
		}

		swapped, err := swap.Run(ctx, s.client, []string{ratedQueueKey}, member, updated, z.Score).Int()
		if err != nil {
			return storeErr("rated range swap script", err)
		}
		if swapped == 0 {
			// 스윕 도중 매칭되거나 취소된 엔트리, 그대로 둔다
			logger.Debug("Rated entry vanished during range expansion", "requestId", req.ID)
		}
	}

	return nil
}
