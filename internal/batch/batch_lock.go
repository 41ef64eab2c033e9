package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	batcherrors "go-payroll/internal/batch/errors"
)

// Lock is a held distributed lock.
type Lock interface {
	Release(ctx context.Context) error
}

type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

type redisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb redis.UniversalClient) Locker {
	return &redisLocker{client: redislock.New(rdb)}
}

func (l *redisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, batcherrors.ErrBatchLocked
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

func lockKey(companyID, periodStart, periodEnd string) string {
	return fmt.Sprintf("payroll:batch:lock:%s:%s:%s", companyID, periodStart, periodEnd)
}
