package status

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/support-console/backend/internal/metrics"
	"github.com/support-console/backend/internal/store"
	"github.com/support-console/backend/pkg/logger"
)

const probeTimeout = 5 * time.Second

// Probe checks one backend; nil means online.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type Backend struct {
	Name      string    `json:"name"`
	Online    bool      `json:"online"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
}

type State struct {
	Backends  map[string]Backend `json:"backends"`
	CheckedAt time.Time          `json:"checked_at"`
}

func (s State) Online(name string) bool {
	return s.Backends[name].Online
}

// Monitor probes the backends on a cron schedule and on demand.
type Monitor struct {
	probes   []Probe
	schedule string
	cron     *cron.Cron
	state    *store.Slice[State]

	startOnce sync.Once
}

func NewMonitor(hub *store.Hub, schedule string, probes ...Probe) (*Monitor, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid status schedule %q: %w", schedule, err)
	}
	backends := make(map[string]Backend, len(probes))
	for _, p := range probes {
		backends[p.Name] = Backend{Name: p.Name}
	}
	return &Monitor{
		probes:   probes,
		schedule: schedule,
		cron:     cron.New(),
		state:    store.NewSlice(hub, store.SliceStatus, State{Backends: backends}),
	}, nil
}

// Start runs a first check right away, then follows the schedule.
func (m *Monitor) Start() error {
	var err error
	m.startOnce.Do(func() {
		_, err = m.cron.AddFunc(m.schedule, func() {
			m.Check(context.Background())
		})
		if err != nil {
			return
		}
		m.cron.Start()
		go m.Check(context.Background())
		logger.Info("Status monitor started", zap.String("schedule", m.schedule))
	})
	return err
}

// Stop waits for a running check to finish.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

func (m *Monitor) State() State {
	return m.state.Get()
}

// Check probes every backend concurrently and publishes the result.
func (m *Monitor) Check(ctx context.Context) State {
	results := make([]Backend, len(m.probes))

	var g errgroup.Group
	for i, p := range m.probes {
		g.Go(func() error {
			results[i] = m.probe(ctx, p)
			return nil
		})
	}
	g.Wait()

	backends := make(map[string]Backend, len(results))
	for _, b := range results {
		backends[b.Name] = b
		metrics.SetBackendUp(b.Name, b.Online)
	}
	state := State{Backends: backends, CheckedAt: time.Now()}
	m.state.Set(state)
	return state
}

func (m *Monitor) probe(ctx context.Context, p Probe) Backend {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := p.Check(ctx)
	b := Backend{
		Name:      p.Name,
		Online:    err == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		CheckedAt: time.Now(),
	}
	if err != nil {
		b.Error = err.Error()
		logger.Debug("Backend probe failed", zap.String("backend", p.Name), zap.Error(err))
	}
	return b
}
