// Package lock реализует флаги занятости бронирований: пока действие над бронированием
// выполняется, второе действие над тем же бронированием отклоняется.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy возвращается, если над бронированием уже выполняется действие.
var ErrBusy = errors.New("reservation is busy")

// Key строит ключ флага занятости для бронирования владельца.
func Key(owner string, reservationID int64) string {
	return fmt.Sprintf("%s:%d", owner, reservationID)
}

// MemoryLocker хранит флаги занятости в памяти процесса.
type MemoryLocker struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewMemoryLocker создаёт локальный набор флагов занятости.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{busy: make(map[string]struct{})}
}

// Acquire ставит флаг занятости. Возвращённую функцию нужно вызвать по завершении действия.
func (l *MemoryLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.busy[key]; ok {
		return nil, ErrBusy
	}
	l.busy[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.busy, key)
			l.mu.Unlock()
		})
	}, nil
}

// Busy сообщает, стоит ли флаг занятости.
func (l *MemoryLocker) Busy(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.busy[key]
	return ok
}

// releaseScript снимает флаг, только если он принадлежит этому владельцу токена.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker хранит флаги занятости в Redis, чтобы они были общими для нескольких экземпляров панели.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLocker создаёт флаги занятости в Redis. ttl ограничивает жизнь флага,
// если экземпляр завершится, не сняв его.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, prefix: "ownerpanel:busy:", ttl: ttl}
}

// Acquire ставит флаг занятости через SET NX.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := l.prefix + key

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("set busy flag: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
		})
	}, nil
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
