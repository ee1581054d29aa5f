package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	l := NewRedisLimiter(client)
	key := "test:" + uuid.NewString()
	for i := 0; i < 3; i++ {
		ok, err := l.CheckAndIncrement(ctx, key, 3, 2*time.Second)
		if err != nil || !ok {
			t.Fatalf("call %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, _ := l.CheckAndIncrement(ctx, key, 3, 2*time.Second); ok {
		t.Fatalf("4th call allowed")
	}
	ttl := client.PTTL(ctx, keyPrefix+key).Val()
	if ttl <= 0 || ttl > 2*time.Second {
		t.Fatalf("unexpected ttl %s", ttl)
	}
	time.Sleep(2100 * time.Millisecond)
	if ok, _ := l.CheckAndIncrement(ctx, key, 3, 2*time.Second); !ok {
		t.Fatalf("call after window rejected")
	}
}
