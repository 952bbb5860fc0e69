package workflow

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/support-console/backend/internal/remote"
)

func newTestClient(t *testing.T, encoding Encoding, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:    srv.URL,
		WorkflowID: "rag-customer-support-resolution-pipeline",
		Encoding:   encoding,
	})
}

func TestRunURLEncoded(t *testing.T) {
	client := newTestClient(t, EncodingURL, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/runs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("workflow_id"); got != "rag-customer-support-resolution-pipeline" {
			t.Errorf("workflow_id = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("workflow_input"); got != "I cannot log into my account" {
			t.Errorf("workflow_input = %q", got)
		}
		io.WriteString(w, `{"content":"Try resetting your password."}`)
	})

	got, err := client.Run(context.Background(), "I cannot log into my account")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "Try resetting your password." {
		t.Fatalf("Run = %q", got)
	}
}

func TestRunMultipart(t *testing.T) {
	client := newTestClient(t, EncodingMultipart, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("workflow_input"); got != "refund & chargeback?" {
			t.Errorf("workflow_input = %q", got)
		}
		io.WriteString(w, `{"content":"ok"}`)
	})

	if _, err := client.Run(context.Background(), "refund & chargeback?"); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunResponseFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"content", `{"content":"a"}`, "a"},
		{"output fallback", `{"output":"b"}`, "b"},
		{"content wins", `{"content":"a","output":"b"}`, "a"},
		{"missing", `{"run_id":"x"}`, NoContent},
		{"empty content", `{"content":""}`, NoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, EncodingURL, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})
			got, err := client.Run(context.Background(), "q")
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Run = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		client := newTestClient(t, EncodingURL, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := client.Run(context.Background(), "q")
		var statusErr *remote.StatusError
		if !errors.As(err, &statusErr) || statusErr.Code != http.StatusInternalServerError {
			t.Fatalf("err = %v, want StatusError 500", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		client := newTestClient(t, EncodingURL, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>not json</html>")
		})
		_, err := client.Run(context.Background(), "q")
		if !errors.Is(err, remote.ErrMalformedResponse) {
			t.Fatalf("err = %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		client := NewClient(Options{BaseURL: srv.URL, WorkflowID: "w"})
		_, err := client.Run(context.Background(), "q")
		if !errors.Is(err, remote.ErrUnavailable) {
			t.Fatalf("err = %v, want ErrUnavailable", err)
		}
	})
}

func TestRunSingleAttempt(t *testing.T) {
	calls := 0
	client := newTestClient(t, EncodingURL, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := client.Run(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestStatus(t *testing.T) {
	client := newTestClient(t, EncodingURL, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `{"status":"ok"}`)
	})
	if err := client.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
}
