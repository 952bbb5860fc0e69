package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/support-console/backend/internal/metrics"
	"github.com/support-console/backend/internal/tracker"
	"github.com/support-console/backend/pkg/logger"
	"github.com/support-console/backend/pkg/utils"
)

type AnswerStore interface {
	GetAnswer(ctx context.Context, inputHash string) (string, bool, error)
	SetAnswer(ctx context.Context, inputHash, answer string, ttl time.Duration) error
}

// Runner serves repeated inputs from the answer store and otherwise
// delegates. Failures are never cached and store errors only cost a
// miss.
type Runner struct {
	next  tracker.Runner
	store AnswerStore
	ttl   time.Duration
	name  string
}

func NewRunner(name string, next tracker.Runner, store AnswerStore, ttl time.Duration) *Runner {
	return &Runner{next: next, store: store, ttl: ttl, name: name}
}

func (r *Runner) Run(ctx context.Context, input string) (string, error) {
	key := utils.HashString(input)

	answer, ok, err := r.store.GetAnswer(ctx, key)
	if err != nil {
		logger.Warn("Answer cache read failed", zap.String("cache", r.name), zap.Error(err))
	}
	if ok {
		metrics.CacheHits.WithLabelValues(r.name).Inc()
		return answer, nil
	}
	metrics.CacheMisses.WithLabelValues(r.name).Inc()

	answer, err = r.next.Run(ctx, input)
	if err != nil {
		return "", err
	}

	if err := r.store.SetAnswer(ctx, key, answer, r.ttl); err != nil {
		logger.Warn("Answer cache write failed", zap.String("cache", r.name), zap.Error(err))
	}
	return answer, nil
}
