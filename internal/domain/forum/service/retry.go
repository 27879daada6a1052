package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hobby_forum/internal/domain/forum/repository"
	"hobby_forum/pkg/metrics"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// DefaultMaxWriteAttempts 写事务默认最多尝试次数
const DefaultMaxWriteAttempts = 5

// txRunner 执行写事务，遇到 ErrConflict 时以指数退避整体重试
type txRunner struct {
	repo        repository.ForumRepository
	maxAttempts int
	log         *zap.Logger
	metrics     *metrics.MetricsCollector
}

func newTxRunner(repo repository.ForumRepository, maxAttempts int, log *zap.Logger, m *metrics.MetricsCollector) *txRunner {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxWriteAttempts
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &txRunner{repo: repo, maxAttempts: maxAttempts, log: log, metrics: m}
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	return b
}

// run 执行 fn；非冲突错误不重试，冲突重试耗尽后返回 ErrTransient
func (r *txRunner) run(ctx context.Context, op string, fn func(tx repository.Tx) error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := r.repo.WithTx(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, repository.ErrConflict) {
			r.metrics.RecordConflict(op)
			r.log.Debug("store conflict",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxTries(uint(r.maxAttempts)),
	)
	if err == nil {
		return nil
	}

	if errors.Is(err, repository.ErrConflict) {
		r.metrics.RecordRetryExhausted(op)
		r.log.Warn("store conflict retries exhausted",
			zap.String("op", op),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s", ErrTransient, op)
	}
	return err
}
