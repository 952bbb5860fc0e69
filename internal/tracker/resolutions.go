package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/support-console/backend/internal/metrics"
	"github.com/support-console/backend/internal/storage/models"
	"github.com/support-console/backend/internal/store"
	"github.com/support-console/backend/pkg/logger"
	"go.uber.org/zap"
)

// Policy decides what a repeated request for a known key does.
type Policy int

const (
	// PolicyIgnore drops any repeat, whatever state the key is in.
	PolicyIgnore Policy = iota
	// PolicyToggle drops repeats while pending and otherwise flips
	// Expanded without fetching again.
	PolicyToggle
)

type Outcome string

const (
	OutcomeStarted Outcome = "started"
	OutcomeIgnored Outcome = "ignored"
	OutcomeToggled Outcome = "toggled"
)

// Resolutions tracks AI answers per key. Each key moves from absent to
// pending to fulfilled or failed and never back to pending.
type Resolutions struct {
	kind    string
	policy  Policy
	runner  Runner
	entries *store.Slice[map[string]models.Resolution]
	wg      sync.WaitGroup
}

// NewResolutions publishes on the slice named name; kind labels metrics
// and logs.
func NewResolutions(hub *store.Hub, name, kind string, policy Policy, runner Runner) *Resolutions {
	return &Resolutions{
		kind:    kind,
		policy:  policy,
		runner:  runner,
		entries: store.NewSlice(hub, name, map[string]models.Resolution{}),
	}
}

// Request starts one outbound call for key unless the policy says
// otherwise. input is what gets sent; key only identifies the entry.
func (r *Resolutions) Request(ctx context.Context, key, input string) (Outcome, models.Resolution) {
	var outcome Outcome
	var entry models.Resolution

	r.entries.UpdateIf(func(m map[string]models.Resolution) (map[string]models.Resolution, bool) {
		current, ok := m[key]
		switch {
		case !ok:
			entry = models.Resolution{Key: key, Loading: true, Expanded: true, UpdatedAt: time.Now()}
			m[key] = entry
			outcome = OutcomeStarted
			return m, true
		case r.policy == PolicyToggle && !current.Loading:
			current.Expanded = !current.Expanded
			current.UpdatedAt = time.Now()
			m[key] = current
			entry = current
			outcome = OutcomeToggled
			return m, true
		default:
			entry = current
			outcome = OutcomeIgnored
			return m, false
		}
	})

	if outcome == OutcomeStarted {
		r.wg.Add(1)
		go r.resolve(context.WithoutCancel(ctx), key, input)
	}
	return outcome, entry
}

func (r *Resolutions) resolve(ctx context.Context, key, input string) {
	defer r.wg.Done()

	response, err := r.runner.Run(ctx, input)
	outcome := "fulfilled"
	if err != nil {
		outcome = "failed"
		logger.Warn("AI resolution failed",
			zap.String("kind", r.kind),
			zap.String("key", key),
			zap.Error(err))
	}
	metrics.Resolutions.WithLabelValues(r.kind, outcome).Inc()

	r.entries.UpdateIf(func(m map[string]models.Resolution) (map[string]models.Resolution, bool) {
		entry := m[key]
		entry.Loading = false
		entry.UpdatedAt = time.Now()
		if err != nil {
			entry.Error = FailureText(err)
		} else {
			entry.Response = response
		}
		m[key] = entry
		return m, true
	})
}

func (r *Resolutions) Get(key string) (models.Resolution, bool) {
	var entry models.Resolution
	var ok bool
	r.entries.Read(func(m map[string]models.Resolution) {
		entry, ok = m[key]
	})
	return entry, ok
}

func (r *Resolutions) State(key string) models.ResolutionState {
	entry, ok := r.Get(key)
	if !ok {
		return models.StateAbsent
	}
	return entry.State()
}

// List returns every entry ordered by key.
func (r *Resolutions) List() []models.Resolution {
	var out []models.Resolution
	r.entries.Read(func(m map[string]models.Resolution) {
		out = make([]models.Resolution, 0, len(m))
		for _, entry := range m {
			out = append(out, entry)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r *Resolutions) Len() int {
	var n int
	r.entries.Read(func(m map[string]models.Resolution) { n = len(m) })
	return n
}

func (r *Resolutions) Version() uint64 {
	return r.entries.Version()
}

// Wait blocks until every started call has settled.
func (r *Resolutions) Wait() {
	r.wg.Wait()
}
