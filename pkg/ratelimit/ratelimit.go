package ratelimit

import (
	"sync"
	"time"
)

// bucket 키 하나의 토큰 버킷
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// Limiter 키별 인메모리 Rate Limiter (Token Bucket)
// 단일 인스턴스용. 다중 인스턴스 배포에서는 RedisLimiter를 사용한다.
type Limiter struct {
	mu         sync.RWMutex
	buckets    map[string]*bucket
	capacity   float64
	refillRate float64 // 초당 토큰
}

// NewLimiter Limiter 생성
func NewLimiter(capacity, refillRate int64) *Limiter {
	l := &Limiter{
		buckets:    make(map[string]*bucket),
		capacity:   float64(capacity),
		refillRate: float64(refillRate),
	}
	go l.cleanupLoop(10 * time.Minute)
	return l
}

// Allow 키의 요청 허용 여부 확인, 허용 시 토큰 1개 소비
func (l *Limiter) Allow(key string) bool {
	b := l.getBucket(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * l.refillRate
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Reset 키의 버킷 제거
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

func (l *Limiter) getBucket(key string) *bucket {
	l.mu.RLock()
	b, exists := l.buckets[key]
	l.mu.RUnlock()
	if exists {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if b, exists = l.buckets[key]; exists {
		return b
	}
	b = &bucket{tokens: l.capacity, lastRefill: time.Now()}
	l.buckets[key] = b
	return b
}

// cleanupLoop 오래 쉰 버킷 제거 (메모리 누수 방지)
func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, b := range l.buckets {
			b.mu.Lock()
			idle := now.Sub(b.lastRefill) > interval
			b.mu.Unlock()
			if idle {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
