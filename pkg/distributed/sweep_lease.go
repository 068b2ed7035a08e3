package distributed

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLeaseNotHeld = errors.New("lease not held")

// SweepLease Redis SETNX 기반 단일 수행자 리스
// 여러 인스턴스가 떠 있어도 주기적 유지보수 스윕(레이팅 허용 폭 확장)을
// 한 번에 한 인스턴스만 수행하도록 한다.
type SweepLease struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	holder string // 인스턴스 고유 ID
}

// NewSweepLease 스윕 리스 생성
func NewSweepLease(client *redis.Client, key string, ttl time.Duration) *SweepLease {
	return &SweepLease{
		client: client,
		key:    key,
		ttl:    ttl,
		holder: uuid.New().String(),
	}
}

// TryAcquire 리스 획득 시도, 이미 다른 인스턴스가 잡고 있으면 false
func (l *SweepLease) TryAcquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.holder, l.ttl).Result()
}

// Release 자신이 잡은 리스만 해제 (Lua compare-and-delete)
func (l *SweepLease) Release(ctx context.Context) error {
	script := redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`)

	released, err := script.Run(ctx, l.client, []string{l.key}, l.holder).Int()
	if err != nil {
		return err
	}
	if released == 0 {
		return ErrLeaseNotHeld
	}
	return nil
}
