package filter

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/support-console/backend/internal/remote"
	"github.com/support-console/backend/internal/storage/models"
	"github.com/support-console/backend/internal/store"
	"github.com/support-console/backend/internal/ticketing"
)

type fakeSearcher struct {
	calls   int
	results []models.Ticket
	err     error
	before  func()
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) (*ticketing.SearchResult, error) {
	f.calls++
	if f.before != nil {
		f.before()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ticketing.SearchResult{Query: query, Results: f.results}, nil
}

func TestEngineRecomputesOnEverySetter(t *testing.T) {
	hub := store.NewHub()
	ch, cancel := hub.Subscribe(32)
	defer cancel()

	e := NewEngine(hub, nil, 50)
	e.SetTickets(sampleTickets())
	if v := e.View(); v.Total != 4 || v.Shown != 4 || v.Source != SourceLocal {
		t.Fatalf("view after load = %+v", v)
	}

	e.SetStatus("Open")
	if got := ids(e.View().Tickets); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("status Open = %v", got)
	}
	e.SetPriority("Critical")
	if got := ids(e.View().Tickets); !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("plus Critical = %v", got)
	}
	e.SetCategory("Billing")
	if v := e.View(); v.Shown != 0 || v.Total != 4 {
		t.Fatalf("plus Billing = %+v", v)
	}
	e.SetCriteria(Criteria{})
	if v := e.View(); v.Shown != 4 {
		t.Fatalf("cleared = %+v", v)
	}
	if e.Criteria() != (Criteria{}) {
		t.Fatalf("criteria slice = %+v", e.Criteria())
	}

	seen := map[string]bool{}
	for len(ch) > 0 {
		seen[(<-ch).Slice] = true
	}
	if !seen[store.SliceTickets] || !seen[store.SliceCriteria] {
		t.Fatalf("notifications = %v", seen)
	}
}

func TestEngineReloadReplacesCollection(t *testing.T) {
	e := NewEngine(nil, nil, 50)
	e.SetTickets(sampleTickets())
	e.SetSearch("crash")
	e.SetTickets(sampleTickets()[:2])
	v := e.View()
	if v.Total != 2 || v.Shown != 0 {
		t.Fatalf("view = %+v", v)
	}
}

func TestSubmitAdoptsRemoteResults(t *testing.T) {
	searcher := &fakeSearcher{results: []models.Ticket{sampleTickets()[3], sampleTickets()[1]}}
	e := NewEngine(nil, searcher, 50)
	e.SetTickets(sampleTickets())

	v := e.Submit(context.Background(), "  money  ")
	if v.Source != SourceRemote {
		t.Fatalf("source = %s", v.Source)
	}
	if got := ids(v.Tickets); !reflect.DeepEqual(got, []int{4, 2}) {
		t.Fatalf("tickets = %v, want remote order", got)
	}
	if e.Criteria().Search != "money" {
		t.Fatalf("search = %q", e.Criteria().Search)
	}

	v = e.SetStatus("Closed")
	if v.Source != SourceRemote || !reflect.DeepEqual(ids(v.Tickets), []int{2}) {
		t.Fatalf("categorical over remote = %+v", v)
	}

	v = e.SetSearch("other")
	if v.Source != SourceLocal {
		t.Fatalf("changing search should drop remote result, source = %s", v.Source)
	}
}

func TestSubmitFallsBackLocally(t *testing.T) {
	failures := []error{
		remote.ErrUnavailable,
		&remote.StatusError{API: "ticketing", Op: "search", Code: 500},
		remote.ErrMalformedResponse,
	}
	for _, failure := range failures {
		t.Run(failure.Error(), func(t *testing.T) {
			e := NewEngine(nil, &fakeSearcher{err: failure}, 50)
			e.SetTickets(sampleTickets())
			v := e.Submit(context.Background(), "crash")
			if v.Source != SourceFallback {
				t.Fatalf("source = %s", v.Source)
			}
			local := ids(Apply(sampleTickets(), Criteria{Search: "crash"}))
			if got := ids(v.Tickets); !reflect.DeepEqual(got, local) {
				t.Fatalf("tickets = %v, want local %v", got, local)
			}
		})
	}
}

func TestSubmitEmptyQueryClearsRemote(t *testing.T) {
	searcher := &fakeSearcher{results: []models.Ticket{sampleTickets()[0]}}
	e := NewEngine(nil, searcher, 50)
	e.SetTickets(sampleTickets())
	e.Submit(context.Background(), "login")

	v := e.Submit(context.Background(), "   ")
	if searcher.calls != 1 {
		t.Fatalf("calls = %d, empty query must not hit the API", searcher.calls)
	}
	if v.Source != SourceLocal || v.Shown != 4 {
		t.Fatalf("view = %+v", v)
	}
}

func TestSubmitDiscardsStaleResult(t *testing.T) {
	e := NewEngine(nil, nil, 50)
	searcher := &fakeSearcher{results: []models.Ticket{sampleTickets()[0]}}
	searcher.before = func() { e.SetTickets(sampleTickets()[1:]) }
	e.searcher = searcher
	e.SetTickets(sampleTickets())

	e.Submit(context.Background(), "login")
	v := e.View()
	if v.Source != SourceLocal || v.Total != 3 {
		t.Fatalf("stale result applied: %+v", v)
	}
}

func TestSubmitIgnoresCallerCancellation(t *testing.T) {
	var sawCancelled bool
	e := NewEngine(nil, nil, 50)
	searcher := &fakeSearcher{results: []models.Ticket{}}
	e.searcher = searcher

	ctx, cancel := context.WithCancel(context.Background())
	searcher.before = cancel
	wrapped := searcherFunc(func(c context.Context, q string, limit int) (*ticketing.SearchResult, error) {
		res, err := searcher.Search(c, q, limit)
		sawCancelled = errors.Is(c.Err(), context.Canceled)
		return res, err
	})
	e.searcher = wrapped
	e.SetTickets(sampleTickets())

	v := e.Submit(ctx, "payment")
	if sawCancelled {
		t.Fatal("outbound search saw caller cancellation")
	}
	if v.Source != SourceRemote || v.Shown != 0 {
		t.Fatalf("view = %+v", v)
	}
}

type searcherFunc func(ctx context.Context, query string, limit int) (*ticketing.SearchResult, error)

func (f searcherFunc) Search(ctx context.Context, query string, limit int) (*ticketing.SearchResult, error) {
	return f(ctx, query, limit)
}

func TestFailLoadKeepsCollection(t *testing.T) {
	e := NewEngine(nil, nil, 50)
	e.SetTickets(sampleTickets())
	e.BeginLoad()
	if !e.View().Loading {
		t.Fatal("expected loading")
	}
	v := e.FailLoad("Failed to load tickets. Please check if the ticketing API is running.")
	if v.Loading || v.Error == "" || v.Total != 4 {
		t.Fatalf("view = %+v", v)
	}
	if v = e.SetTickets(nil); v.Error != "" || v.Total != 0 {
		t.Fatalf("after reload = %+v", v)
	}
}
