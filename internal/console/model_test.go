package console

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/support-console/backend/internal/app"
	"github.com/support-console/backend/pkg/config"
)

func testApp(t *testing.T) *app.App {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/tickets", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[
			{"id":1,"ticket_number":"TK-1","title":"Cannot log in","description":"Password rejected","category_name":"Account","priority_name":"High","status_name":"Open"},
			{"id":2,"ticket_number":"TK-2","title":"Refund","description":"Charged twice","category_name":"Billing","priority_name":"Low","status_name":"Closed"}
		]`)
	})
	mux.HandleFunc("/runs", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"content":"Try resetting your password."}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	dir := t.TempDir()
	a, err := app.New(&config.Config{
		Workflow:  config.WorkflowConfig{BaseURL: backend.URL, WorkflowID: "w", Encoding: "urlencoded"},
		Ticketing: config.TicketingConfig{BaseURL: backend.URL, ListLimit: 100, SearchLimit: 50},
		Assistant: config.AssistantConfig{Provider: "workflow"},
		SQLite:    config.SQLiteConfig{Path: filepath.Join(dir, "knowledge.db")},
		Knowledge: config.KnowledgeConfig{Dir: filepath.Join(dir, "documents")},
		Status:    config.StatusConfig{Schedule: "@every 1h"},
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func newTestModel(t *testing.T) (Model, *app.Session) {
	t.Helper()
	a := testApp(t)
	s := a.Sessions.Create()
	model := NewModel(a, s)
	t.Cleanup(model.Close)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), s
}

func press(t *testing.T, model Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := model.Update(msg)
	return updated.(Model), cmd
}

func typeText(t *testing.T, model Model, text string) Model {
	t.Helper()
	for _, r := range text {
		model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return model
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, model Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	updated, _ := model.Update(cmd())
	return updated.(Model)
}

var (
	tabKey   = tea.KeyMsg{Type: tea.KeyTab}
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	downKey  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestTabsCycle(t *testing.T) {
	model, _ := newTestModel(t)
	if model.tab != TabHome {
		t.Fatalf("initial tab = %v", model.tab)
	}
	model, _ = press(t, model, tabKey)
	if model.tab != TabChat {
		t.Fatalf("tab = %v", model.tab)
	}
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyShiftTab})
	if model.tab != TabHome {
		t.Fatalf("tab = %v", model.tab)
	}
	if !strings.Contains(model.View(), "Payment Issues") {
		t.Error("home view missing catalogue")
	}
}

func TestHomeAskAndToggle(t *testing.T) {
	model, s := newTestModel(t)

	model, _ = press(t, model, downKey)
	model, _ = press(t, model, enterKey)
	s.Wait()

	question := homeExamples()[1]
	entry, ok := s.Home.Get(question)
	if !ok || entry.Response != "Try resetting your password." {
		t.Fatalf("entry = %+v, %v", entry, ok)
	}
	if !strings.Contains(model.View(), "Try resetting your password.") {
		t.Error("answer not rendered")
	}

	press(t, model, enterKey)
	if entry, _ := s.Home.Get(question); entry.Expanded {
		t.Fatal("second enter should collapse the answer")
	}
}

func TestChatSubmit(t *testing.T) {
	model, s := newTestModel(t)
	model, _ = press(t, model, tabKey)

	model = typeText(t, model, "I cannot log into my account")
	model, _ = press(t, model, enterKey)
	if model.inputs[TabChat].Value() != "" {
		t.Fatal("input not cleared after submit")
	}
	s.Wait()

	messages := s.Chat.Messages()
	if len(messages) != 3 || messages[2].Text != "Try resetting your password." {
		t.Fatalf("messages = %+v", messages)
	}

	model, _ = press(t, model, enterKey)
	if len(s.Chat.Messages()) != 3 {
		t.Fatal("empty submit should be ignored")
	}
}

func TestTicketsTab(t *testing.T) {
	model, s := newTestModel(t)
	model, _ = press(t, model, tabKey)
	model, cmd := press(t, model, tabKey)
	model = run(t, model, cmd)

	if view := s.Tickets.View(); view.Total != 2 {
		t.Fatalf("view = %+v", view)
	}
	if !strings.Contains(model.View(), "TK-2") {
		t.Error("tickets not rendered")
	}

	model = typeText(t, model, "refund")
	if view := s.Tickets.View(); view.Shown != 1 || view.Tickets[0].ID != 2 {
		t.Fatalf("local search view = %+v", view)
	}

	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyCtrlX})
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyCtrlS})
	if got := s.Tickets.Criteria().Status; got != "Closed" {
		t.Fatalf("status filter = %q", got)
	}

	_, cmd = press(t, model, tea.KeyMsg{Type: tea.KeyCtrlE})
	if cmd == nil {
		t.Fatal("resolve should return a command")
	}
	cmd()
	s.Wait()
	if entry, ok := s.Resolutions.Get("2"); !ok || entry.Response == "" {
		t.Fatalf("resolution = %+v, %v", entry, ok)
	}
}

func TestKnowledgeUpload(t *testing.T) {
	model, _ := newTestModel(t)
	for i := 0; i < 3; i++ {
		model, _ = press(t, model, tabKey)
	}
	if model.tab != TabKnowledge {
		t.Fatalf("tab = %v", model.tab)
	}

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	model = typeText(t, model, path)
	model, cmd := press(t, model, enterKey)
	model = run(t, model, cmd)
	if model.notice != "Please select a PDF file" || !model.noticeErr {
		t.Fatalf("notice = %q", model.notice)
	}

	path = filepath.Join(t.TempDir(), "faq.html")
	if err := os.WriteFile(path, []byte("<html><body><p>Refunds take five days.</p></body></html>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	model.inputs[TabKnowledge].SetValue(path)
	model, cmd = press(t, model, enterKey)
	model = run(t, model, cmd)
	if model.noticeErr || !strings.Contains(model.View(), "faq.html") {
		t.Fatalf("notice = %q", model.notice)
	}

	model, cmd = press(t, model, tea.KeyMsg{Type: tea.KeyCtrlB})
	model = run(t, model, cmd)
	if model.noticeErr || !strings.HasPrefix(model.notice, "Knowledge base built") {
		t.Fatalf("notice = %q", model.notice)
	}
}

func TestCycle(t *testing.T) {
	options := []string{"Open", "Closed"}
	tests := []struct {
		current string
		want    string
	}{
		{"", "Open"},
		{"Open", "Closed"},
		{"Closed", ""},
		{"Gone", "Open"},
	}
	for _, tt := range tests {
		if got := cycle(options, tt.current); got != tt.want {
			t.Errorf("cycle(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
}
