package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/support-console/backend/internal/app"
	"github.com/support-console/backend/pkg/config"
)

const ticketsJSON = `[
	{"id":1,"ticket_number":"TK-1","title":"Cannot log in","description":"Password rejected","category_name":"Account","priority_name":"High","status_name":"Open","tags":"login"},
	{"id":2,"ticket_number":"TK-2","title":"Refund","description":"Charged twice","category_name":"Billing","priority_name":"Low","status_name":"Closed","tags":null}
]`

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeJSON := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, body)
		}
	}
	mux.HandleFunc("/tickets", writeJSON(ticketsJSON))
	mux.HandleFunc("/stats", writeJSON(`{"total_tickets":2,"open_tickets":1}`))
	mux.HandleFunc("/categories", writeJSON(`[{"id":1,"name":"Account"},{"id":2,"name":"Billing"}]`))
	mux.HandleFunc("/priorities", writeJSON(`[{"id":1,"name":"High"},{"id":2,"name":"Low"}]`))
	mux.HandleFunc("/statuses", writeJSON(`[{"id":1,"name":"Open"},{"id":2,"name":"Closed"}]`))
	mux.HandleFunc("/search", writeJSON(`{"query":"login","total_results":1,"results":[{"id":1,"ticket_number":"TK-1","title":"Cannot log in","status_name":"Open"}]}`))
	mux.HandleFunc("/health", writeJSON(`{"status":"healthy"}`))
	mux.HandleFunc("/status", writeJSON(`{"status":"ok"}`))
	mux.HandleFunc("/runs", writeJSON(`{"content":"Try resetting your password."}`))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) (*Server, *app.App) {
	t.Helper()
	backend := newBackend(t)
	dir := t.TempDir()

	a, err := app.New(&config.Config{
		Server:    config.ServerConfig{AllowOrigins: "*", IsDevelopment: true, BodyLimit: 4 * 1024 * 1024},
		Workflow:  config.WorkflowConfig{BaseURL: backend.URL, WorkflowID: "w", Encoding: "urlencoded"},
		Ticketing: config.TicketingConfig{BaseURL: backend.URL, ListLimit: 100, SearchLimit: 50},
		Assistant: config.AssistantConfig{Provider: "workflow"},
		SQLite:    config.SQLiteConfig{Path: filepath.Join(dir, "knowledge.db")},
		Knowledge: config.KnowledgeConfig{Dir: filepath.Join(dir, "documents")},
		Status:    config.StatusConfig{Schedule: "@every 1h"},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 1000},
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	srv := NewServer(a)
	t.Cleanup(func() {
		srv.Shutdown()
		a.Close()
	})
	return srv, a
}

func call(t *testing.T, srv *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return do(t, srv, req)
}

func do(t *testing.T, srv *Server, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := srv.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func createSession(t *testing.T, srv *Server) string {
	t.Helper()
	code, body := call(t, srv, "POST", "/api/v1/sessions", "")
	if code != http.StatusCreated {
		t.Fatalf("create session = %d %v", code, body)
	}
	return body["id"].(string)
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	code, body := call(t, srv, "GET", "/api/v1/sessions/"+id, "")
	if code != http.StatusOK || body["id"] != id {
		t.Fatalf("get = %d %v", code, body)
	}

	if code, _ := call(t, srv, "DELETE", "/api/v1/sessions/"+id, ""); code != http.StatusNoContent {
		t.Fatalf("delete = %d", code)
	}
	if code, body := call(t, srv, "GET", "/api/v1/sessions/"+id, ""); code != http.StatusNotFound || body["error"] != "Session not found" {
		t.Fatalf("get after delete = %d %v", code, body)
	}
}

func TestTicketsFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)
	base := "/api/v1/sessions/" + id + "/tickets"

	code, view := call(t, srv, "POST", base+"/refresh", "")
	if code != http.StatusOK || view["total"].(float64) != 2 {
		t.Fatalf("refresh = %d %v", code, view)
	}

	_, view = call(t, srv, "PUT", base+"/filters", `{"status":"Open"}`)
	if view["shown"].(float64) != 1 {
		t.Fatalf("filtered view = %v", view)
	}

	_, view = call(t, srv, "POST", base+"/search", `{"query":"login"}`)
	if view["source"] != "remote" || view["shown"].(float64) != 1 {
		t.Fatalf("search view = %v", view)
	}

	_, options := call(t, srv, "GET", base+"/options", "")
	if len(options["categories"].([]any)) != 2 {
		t.Fatalf("options = %v", options)
	}

	code, res := call(t, srv, "POST", base+"/1/resolve", "")
	if code != http.StatusAccepted || res["outcome"] != "started" {
		t.Fatalf("resolve = %d %v", code, res)
	}
	if _, res := call(t, srv, "POST", base+"/1/resolve", ""); res["outcome"] != "ignored" {
		t.Fatalf("second resolve = %v", res)
	}
	if code, _ := call(t, srv, "POST", base+"/abc/resolve", ""); code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", code)
	}
}

func TestChatFlow(t *testing.T) {
	srv, a := newTestServer(t)
	id := createSession(t, srv)
	path := "/api/v1/sessions/" + id + "/chat"

	if code, _ := call(t, srv, "POST", path, `{"text":"   "}`); code != http.StatusBadRequest {
		t.Fatalf("empty message = %d", code)
	}

	code, body := call(t, srv, "POST", path, `{"text":"I cannot log into my account"}`)
	if code != http.StatusAccepted {
		t.Fatalf("send = %d %v", code, body)
	}

	s, err := a.Sessions.Get(id)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	s.Wait()

	_, chat := call(t, srv, "GET", path, "")
	messages := chat["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("messages = %v", messages)
	}
	last := messages[2].(map[string]any)
	if last["sender"] != "ai" || last["text"] != "Try resetting your password." {
		t.Fatalf("last = %v", last)
	}
}

func TestHomeAsk(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv)

	_, home := call(t, srv, "GET", "/api/v1/sessions/"+id+"/home", "")
	if len(home["categories"].([]any)) != 4 {
		t.Fatalf("home = %v", home)
	}

	code, body := call(t, srv, "POST", "/api/v1/sessions/"+id+"/home/ask", `{"query":"How do I update my payment method?"}`)
	if code != http.StatusAccepted || body["outcome"] != "started" {
		t.Fatalf("ask = %d %v", code, body)
	}
}

func upload(t *testing.T, srv *Server, name, content string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	io.WriteString(part, content)
	w.Close()

	req := httptest.NewRequest("POST", "/api/v1/knowledge/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return do(t, srv, req)
}

func TestKnowledgeFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	if code, body := call(t, srv, "POST", "/api/v1/knowledge/build", ""); code != http.StatusBadRequest {
		t.Fatalf("empty build = %d %v", code, body)
	}

	code, body := upload(t, srv, "notes.txt", "plain text")
	if code != http.StatusBadRequest || body["error"] != "Please select a PDF file" {
		t.Fatalf("txt upload = %d %v", code, body)
	}

	code, body = upload(t, srv, "faq.html", "<html><body><h1>Refunds</h1>\n<p>Refunds take five days.</p></body></html>")
	if code != http.StatusCreated || body["name"] != "faq.html" {
		t.Fatalf("html upload = %d %v", code, body)
	}

	code, stats := call(t, srv, "POST", "/api/v1/knowledge/build", "")
	if code != http.StatusOK || stats["total_documents"].(float64) != 1 {
		t.Fatalf("build = %d %v", code, stats)
	}

	_, docs := call(t, srv, "GET", "/api/v1/knowledge/documents", "")
	if len(docs["documents"].([]any)) != 1 {
		t.Fatalf("documents = %v", docs)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	if code, body := call(t, srv, "GET", "/api/v1/health", ""); code != http.StatusOK || body["status"] != "healthy" {
		t.Fatalf("health = %d %v", code, body)
	}
	if code, body := call(t, srv, "GET", "/api/v1/ready", ""); code != http.StatusOK || body["status"] != "ready" {
		t.Fatalf("ready = %d %v", code, body)
	}

	code, body := call(t, srv, "GET", "/api/v1/status?refresh=true", "")
	backends, _ := body["backends"].(map[string]any)
	if code != http.StatusOK || len(backends) != 2 {
		t.Fatalf("status = %d %v", code, body)
	}

	if code, _ := call(t, srv, "GET", "/metrics", ""); code != http.StatusOK {
		t.Fatalf("metrics = %d", code)
	}

	if code, _ := call(t, srv, "GET", "/api/v1/ws/sessions/missing", ""); code != http.StatusUpgradeRequired {
		t.Fatalf("plain GET on websocket route = %d", code)
	}
}
