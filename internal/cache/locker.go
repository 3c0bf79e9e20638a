package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// unlockScript удаляет ключ, только если он все еще принадлежит владельцу. Блокировка, истекшая по ttl и
// взятая другим процессом, не снимается.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type lockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisLocker блокировка задач планировщика между процессами (SET NX PX).
type RedisLocker struct {
	client lockClient
	l      *logrus.Entry
}

func NewRedisLocker(client *redis.Client, l *logrus.Logger) *RedisLocker {
	return newRedisLocker(client, l)
}

func newRedisLocker(client lockClient, l *logrus.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		l: l.WithFields(logrus.Fields{
			"component": "cache",
			"module":    "locker",
		}),
	}
}

// TryLock пытается взять блокировку key на ttl. ok=false - блокировку держит другой владелец.
// Возвращенная unlock снимает только свою блокировку.
func (r *RedisLocker) TryLock(
	ctx context.Context,
	key string,
	ttl time.Duration,
) (func(context.Context), bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func(c context.Context) {
		if unlockErr := unlockScript.Run(c, r.client, []string{key}, token).Err(); unlockErr != nil {
			// блокировка истечет сама по ttl.
			r.l.WithError(unlockErr).WithField("key", key).Warn("unlock")
		}
	}
	return unlock, true, nil
}
