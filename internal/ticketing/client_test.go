package ticketing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/support-console/backend/internal/remote"
)

const ticketsJSON = `[
  {"id":1,"ticket_number":"TCK-001","title":"Login fails","description":"Cannot sign in","user_full_name":"Ada","category_name":"Account","priority_name":"High","status_name":"Open","created_at":"2024-01-02T10:00:00","tags":"login,auth","priority_color":"#f00"},
  {"id":2,"ticket_number":"TCK-002","title":"Invoice","description":"Wrong amount","user_full_name":"Bob","category_name":"Billing","priority_name":"Low","status_name":"Closed","created_at":"2024-01-03T10:00:00","tags":null}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 0)
}

func TestListTickets(t *testing.T) {
	var gotLimit string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tickets" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotLimit = r.URL.Query().Get("limit")
		io.WriteString(w, ticketsJSON)
	})

	tickets, err := client.ListTickets(context.Background(), 100)
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if gotLimit != "100" {
		t.Errorf("limit = %q", gotLimit)
	}
	if len(tickets) != 2 {
		t.Fatalf("len = %d", len(tickets))
	}
	if tickets[0].TagString() != "login,auth" || tickets[0].PriorityColor != "#f00" {
		t.Errorf("ticket 1 decoded as %+v", tickets[0])
	}
	if tickets[1].Tags != nil {
		t.Errorf("ticket 2 tags = %v, want nil", *tickets[1].Tags)
	}
}

func TestListTicketsWithoutLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("query = %q, want none", r.URL.RawQuery)
		}
		io.WriteString(w, `[]`)
	})
	tickets, err := client.ListTickets(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if tickets == nil || len(tickets) != 0 {
		t.Fatalf("tickets = %#v, want empty non-nil", tickets)
	}
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q := r.URL.Query(); q.Get("query") != "pay ment" || q.Get("limit") != "50" {
			t.Errorf("query = %v", q)
		}
		io.WriteString(w, `{"query":"pay ment","total_results":0,"results":[]}`)
	})
	result, err := client.Search(context.Background(), "pay ment", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Results) != 0 || result.Query != "pay ment" {
		t.Fatalf("result = %+v", result)
	}
}

func TestStatsAndReferenceData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stats":
			io.WriteString(w, `{"total_tickets":10,"open_tickets":4,"resolved_tickets":5,"critical_tickets":1,
				"tickets_by_category":[{"name":"Billing","count":3}],"tickets_by_priority":[{"name":"High","count":2}]}`)
		case "/categories":
			io.WriteString(w, `[{"id":1,"name":"Billing","description":"Money","sla_hours":24}]`)
		case "/priorities":
			io.WriteString(w, `[{"id":1,"name":"High","description":"","sla_hours":4,"color":"#f80"}]`)
		case "/statuses":
			io.WriteString(w, `[{"id":1,"name":"Open","description":"","color":"#0f0"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	stats, err := client.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalTickets != 10 || len(stats.TicketsByCategory) != 1 || stats.TicketsByCategory[0].Count != 3 {
		t.Errorf("stats = %+v", stats)
	}

	categories, err := client.Categories(ctx)
	if err != nil || len(categories) != 1 || categories[0].SLAHours != 24 {
		t.Errorf("Categories = %+v, %v", categories, err)
	}
	priorities, err := client.Priorities(ctx)
	if err != nil || len(priorities) != 1 || priorities[0].Color != "#f80" {
		t.Errorf("Priorities = %+v, %v", priorities, err)
	}
	statuses, err := client.Statuses(ctx)
	if err != nil || len(statuses) != 1 || statuses[0].Name != "Open" {
		t.Errorf("Statuses = %+v, %v", statuses, err)
	}
}

func TestTicketNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Ticket not found"}`, http.StatusNotFound)
	})
	_, err := client.Ticket(context.Background(), 42)
	var statusErr *remote.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 StatusError", err)
	}
	if remote.Classify(err) != remote.CategoryStatus {
		t.Fatalf("Classify = %q", remote.Classify(err))
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		wantErr bool
	}{
		{"ok", http.StatusOK, `{"status":"healthy"}`, false},
		{"no content", http.StatusNoContent, "", false},
		{"plain text body", http.StatusOK, "fine", false},
		{"down", http.StatusServiceUnavailable, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				io.WriteString(w, tt.body)
			})
			err := client.Health(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Health err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMalformedList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"detail":"not a list"}`)
	})
	_, err := client.ListTickets(context.Background(), 10)
	if !errors.Is(err, remote.ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}
