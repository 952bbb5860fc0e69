package filter

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/support-console/backend/internal/metrics"
	"github.com/support-console/backend/internal/storage/models"
	"github.com/support-console/backend/internal/store"
	"github.com/support-console/backend/internal/ticketing"
	"github.com/support-console/backend/pkg/logger"
	"go.uber.org/zap"
)

type Source string

const (
	SourceLocal    Source = "local"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// View is the derived ticket list as the UI renders it.
type View struct {
	Total     int             `json:"total"`
	Shown     int             `json:"shown"`
	Tickets   []models.Ticket `json:"tickets"`
	Source    Source          `json:"source"`
	Loading   bool            `json:"loading"`
	Searching bool            `json:"searching"`
	Error     string          `json:"error,omitempty"`
	LoadedAt  time.Time       `json:"loaded_at,omitempty"`
}

type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*ticketing.SearchResult, error)
}

// Engine owns the ticket collection and the criteria, and republishes
// the view from scratch after every change.
type Engine struct {
	searcher    Searcher
	searchLimit int

	mu         sync.Mutex
	all        []models.Ticket
	criteria   Criteria
	generation uint64
	remote     []models.Ticket
	source     Source
	loading    bool
	searching  bool
	loadErr    string
	loadedAt   time.Time

	view          *store.Slice[View]
	criteriaSlice *store.Slice[Criteria]
}

func NewEngine(hub *store.Hub, searcher Searcher, searchLimit int) *Engine {
	return &Engine{
		searcher:      searcher,
		searchLimit:   searchLimit,
		source:        SourceLocal,
		view:          store.NewSlice(hub, store.SliceTickets, View{Tickets: []models.Ticket{}, Source: SourceLocal}),
		criteriaSlice: store.NewSlice(hub, store.SliceCriteria, Criteria{}),
	}
}

func (e *Engine) View() View {
	return e.view.Get()
}

func (e *Engine) Criteria() Criteria {
	return e.criteriaSlice.Get()
}

func (e *Engine) ViewVersion() uint64 {
	return e.view.Version()
}

func (e *Engine) CriteriaVersion() uint64 {
	return e.criteriaSlice.Version()
}

// Tickets returns the full loaded collection.
func (e *Engine) Tickets() []models.Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Ticket(nil), e.all...)
}

func (e *Engine) Find(id int) (models.Ticket, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.all {
		if t.ID == id {
			return t, true
		}
	}
	return models.Ticket{}, false
}

func (e *Engine) BeginLoad() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = true
	return e.recomputeLocked()
}

// SetTickets replaces the collection wholesale. Any remote search
// result belongs to the old collection and is dropped.
func (e *Engine) SetTickets(tickets []models.Ticket) View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append([]models.Ticket(nil), tickets...)
	e.generation++
	e.clearRemoteLocked()
	e.loading = false
	e.loadErr = ""
	e.loadedAt = time.Now()
	return e.recomputeLocked()
}

// FailLoad keeps the previous collection and records msg on the view.
func (e *Engine) FailLoad(msg string) View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false
	e.loadErr = msg
	return e.recomputeLocked()
}

func (e *Engine) SetCriteria(c Criteria) View {
	return e.modify(func(current *Criteria) { *current = c })
}

func (e *Engine) SetSearch(q string) View {
	return e.modify(func(c *Criteria) { c.Search = q })
}

func (e *Engine) SetStatus(status string) View {
	return e.modify(func(c *Criteria) { c.Status = status })
}

func (e *Engine) SetPriority(priority string) View {
	return e.modify(func(c *Criteria) { c.Priority = priority })
}

func (e *Engine) SetCategory(category string) View {
	return e.modify(func(c *Criteria) { c.Category = category })
}

func (e *Engine) modify(fn func(*Criteria)) View {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.criteria
	fn(&c)
	if c.Search != e.criteria.Search {
		e.clearRemoteLocked()
	}
	e.criteria = c
	return e.recomputeLocked()
}

// Submit runs a remote search for query. An empty query restores local
// filtering. Any remote failure falls back to the local substring
// predicate; the list looks the same either way and only Source tells.
// A result that arrives after the query or the collection changed is
// discarded.
func (e *Engine) Submit(ctx context.Context, query string) View {
	query = strings.TrimSpace(query)

	e.mu.Lock()
	if e.criteria.Search != query {
		e.clearRemoteLocked()
	}
	e.criteria.Search = query
	if query == "" || e.searcher == nil {
		e.clearRemoteLocked()
		view := e.recomputeLocked()
		e.mu.Unlock()
		return view
	}
	generation := e.generation
	e.searching = true
	e.recomputeLocked()
	e.mu.Unlock()

	result, err := e.searcher.Search(context.WithoutCancel(ctx), query, e.searchLimit)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != generation || e.criteria.Search != query {
		logger.Debug("Discarding stale ticket search result", zap.String("query", query))
		return e.view.Get()
	}
	e.searching = false
	if err != nil {
		logger.Warn("Ticket search failed, filtering locally",
			zap.String("query", query),
			zap.Error(err))
		metrics.SearchFallbacks.Inc()
		e.remote = nil
		e.source = SourceFallback
	} else {
		e.remote = append([]models.Ticket(nil), result.Results...)
		e.source = SourceRemote
	}
	return e.recomputeLocked()
}

func (e *Engine) clearRemoteLocked() {
	e.remote = nil
	e.source = SourceLocal
	e.searching = false
}

func (e *Engine) recomputeLocked() View {
	var shown []models.Ticket
	if e.source == SourceRemote {
		shown = Apply(e.remote, e.criteria.Categorical())
	} else {
		shown = Apply(e.all, e.criteria)
	}
	metrics.FilterRecomputes.Inc()

	view := View{
		Total:     len(e.all),
		Shown:     len(shown),
		Tickets:   shown,
		Source:    e.source,
		Loading:   e.loading,
		Searching: e.searching,
		Error:     e.loadErr,
		LoadedAt:  e.loadedAt,
	}
	if e.criteriaSlice.Get() != e.criteria {
		e.criteriaSlice.Set(e.criteria)
	}
	e.view.Set(view)
	return view
}
