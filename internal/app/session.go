package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/support-console/backend/internal/filter"
	"github.com/support-console/backend/internal/storage/models"
	"github.com/support-console/backend/internal/store"
	"github.com/support-console/backend/internal/ticketing"
	"github.com/support-console/backend/internal/tracker"
	"github.com/support-console/backend/pkg/logger"
)

const TicketsLoadError = "Failed to load tickets. Please check if the ticketing API is running."

var ErrTicketNotFound = errors.New("ticket not found")

// TicketAPI is the part of the ticketing client a session uses.
type TicketAPI interface {
	ListTickets(ctx context.Context, limit int) ([]models.Ticket, error)
	Ticket(ctx context.Context, id int) (*models.Ticket, error)
	Search(ctx context.Context, query string, limit int) (*ticketing.SearchResult, error)
	Stats(ctx context.Context) (*models.TicketStats, error)
	Categories(ctx context.Context) ([]models.Category, error)
	Priorities(ctx context.Context) ([]models.Priority, error)
	Statuses(ctx context.Context) ([]models.Status, error)
}

// Options feed the filter dropdowns. Facets come from the loaded
// tickets and cover a ticketing API without reference endpoints.
type Options struct {
	Categories []models.Category `json:"categories"`
	Priorities []models.Priority `json:"priorities"`
	Statuses   []models.Status   `json:"statuses"`
	Facets     filter.Facets     `json:"facets"`
}

type TicketMeta struct {
	Stats   *models.TicketStats `json:"stats"`
	Options Options             `json:"options"`
}

type SessionDeps struct {
	Tickets     TicketAPI
	Runner      tracker.Runner
	HomeRunner  tracker.Runner
	Render      func(string) string
	ListLimit   int
	SearchLimit int
}

// Session is the state of one connected client: the four tabs and the
// hub their slices publish on.
type Session struct {
	ID        string
	CreatedAt time.Time

	Hub         *store.Hub
	Tickets     *filter.Engine
	Chat        *tracker.Chat
	Home        *tracker.Resolutions
	Resolutions *tracker.Resolutions

	api       TicketAPI
	listLimit int
	meta      *store.Slice[TicketMeta]
	lastSeen  atomic.Int64
}

func NewSession(id string, deps SessionDeps) *Session {
	hub := store.NewHub()
	homeRunner := deps.HomeRunner
	if homeRunner == nil {
		homeRunner = deps.Runner
	}
	s := &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		Hub:         hub,
		Tickets:     filter.NewEngine(hub, deps.Tickets, deps.SearchLimit),
		Chat:        tracker.NewChat(hub, deps.Runner, deps.Render),
		Home:        tracker.NewResolutions(hub, store.SliceHome, "home", tracker.PolicyToggle, homeRunner),
		Resolutions: tracker.NewResolutions(hub, store.SliceResolutions, "ticket", tracker.PolicyIgnore, deps.Runner),
		api:         deps.Tickets,
		listLimit:   deps.ListLimit,
		meta:        store.NewSlice(hub, store.SliceTicketMeta, TicketMeta{}),
	}
	s.Touch()
	return s
}

func (s *Session) Touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) Meta() TicketMeta {
	return s.meta.Get()
}

// ActivateTickets reloads the Tickets tab: tickets, stats and reference
// data in parallel. Only the ticket list failing is an error; the rest
// degrade to what was there before.
func (s *Session) ActivateTickets(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	s.Tickets.BeginLoad()

	var (
		tickets    []models.Ticket
		stats      *models.TicketStats
		categories []models.Category
		priorities []models.Priority
		statuses   []models.Status
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		tickets, err = s.api.ListTickets(ctx, s.listLimit)
		return err
	})
	g.Go(func() error {
		var err error
		if stats, err = s.api.Stats(ctx); err != nil {
			logger.Warn("Failed to load ticket stats", zap.String("session_id", s.ID), zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if categories, err = s.api.Categories(ctx); err != nil {
			logger.Warn("Failed to load categories", zap.String("session_id", s.ID), zap.Error(err))
		}
		if priorities, err = s.api.Priorities(ctx); err != nil {
			logger.Warn("Failed to load priorities", zap.String("session_id", s.ID), zap.Error(err))
		}
		if statuses, err = s.api.Statuses(ctx); err != nil {
			logger.Warn("Failed to load statuses", zap.String("session_id", s.ID), zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Failed to load tickets", zap.String("session_id", s.ID), zap.Error(err))
		s.Tickets.FailLoad(TicketsLoadError)
		return fmt.Errorf("failed to load tickets: %w", err)
	}

	view := s.Tickets.SetTickets(tickets)
	s.meta.Update(func(m TicketMeta) TicketMeta {
		if stats != nil {
			m.Stats = stats
		}
		if categories != nil {
			m.Options.Categories = categories
		}
		if priorities != nil {
			m.Options.Priorities = priorities
		}
		if statuses != nil {
			m.Options.Statuses = statuses
		}
		m.Options.Facets = filter.Distinct(tickets)
		return m
	})

	logger.Info("Tickets loaded", zap.String("session_id", s.ID), zap.Int("total", view.Total))
	return nil
}

// AskHome requests a quick-help answer. Asking again after the answer
// arrived folds or unfolds it.
func (s *Session) AskHome(ctx context.Context, query string) (tracker.Outcome, models.Resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", models.Resolution{}, tracker.ErrEmptyMessage
	}
	outcome, entry := s.Home.Request(ctx, query, query)
	return outcome, entry, nil
}

// ResolveTicket asks the assistant to resolve a ticket, once per ticket.
func (s *Session) ResolveTicket(ctx context.Context, id int) (tracker.Outcome, models.Resolution, error) {
	ticket, ok := s.Tickets.Find(id)
	if !ok {
		if _, seen := s.Resolutions.Get(strconv.Itoa(id)); !seen {
			fetched, err := s.api.Ticket(ctx, id)
			if err != nil {
				return "", models.Resolution{}, fmt.Errorf("%w: %d: %v", ErrTicketNotFound, id, err)
			}
			ticket = *fetched
		}
	}
	outcome, entry := s.Resolutions.Request(ctx, strconv.Itoa(id), ResolveInput(ticket))
	return outcome, entry, nil
}

// ResolveInput is the workflow input for a ticket resolution request.
func ResolveInput(t models.Ticket) string {
	var b strings.Builder
	b.WriteString("Please help resolve this customer support ticket.\n\n")
	fmt.Fprintf(&b, "Ticket: %s\n", t.TicketNumber)
	fmt.Fprintf(&b, "Title: %s\n", t.Title)
	fmt.Fprintf(&b, "Category: %s\n", t.CategoryName)
	fmt.Fprintf(&b, "Priority: %s\n", t.PriorityName)
	fmt.Fprintf(&b, "Status: %s\n", t.StatusName)
	fmt.Fprintf(&b, "Description: %s\n", t.Description)
	if tags := t.TagString(); tags != "" {
		fmt.Fprintf(&b, "Tags: %s\n", tags)
	}
	return b.String()
}

type Snapshot struct {
	ID          string              `json:"id"`
	CreatedAt   time.Time           `json:"created_at"`
	Home        []models.Resolution `json:"home"`
	Chat        tracker.ChatState   `json:"chat"`
	Tickets     filter.View         `json:"tickets"`
	Criteria    filter.Criteria     `json:"criteria"`
	Meta        TicketMeta          `json:"meta"`
	Resolutions []models.Resolution `json:"resolutions"`
	Versions    map[string]uint64   `json:"versions"`
}

// Snapshot reads the versions before the values, so a change that lands
// in between shows up again as a newer notification.
func (s *Session) Snapshot() Snapshot {
	versions := map[string]uint64{
		store.SliceTickets:     s.Tickets.ViewVersion(),
		store.SliceCriteria:    s.Tickets.CriteriaVersion(),
		store.SliceTicketMeta:  s.meta.Version(),
		store.SliceChat:        s.Chat.Version(),
		store.SliceHome:        s.Home.Version(),
		store.SliceResolutions: s.Resolutions.Version(),
	}
	return Snapshot{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		Home:        s.Home.List(),
		Chat:        s.Chat.State(),
		Tickets:     s.Tickets.View(),
		Criteria:    s.Tickets.Criteria(),
		Meta:        s.Meta(),
		Resolutions: s.Resolutions.List(),
		Versions:    versions,
	}
}

// Wait blocks until every outstanding AI call of the session settled.
func (s *Session) Wait() {
	s.Chat.Wait()
	s.Home.Wait()
	s.Resolutions.Wait()
}

func (s *Session) Close() {
	s.Hub.Close()
}
