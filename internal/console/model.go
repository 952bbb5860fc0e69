// Package console is the terminal front end: the four support tabs
// driving one in-process session.
package console

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/support-console/backend/internal/app"
	"github.com/support-console/backend/internal/filter"
	"github.com/support-console/backend/internal/knowledge"
	"github.com/support-console/backend/internal/store"
	"github.com/support-console/backend/internal/tracker"
)

type Tab int

const (
	TabHome Tab = iota
	TabChat
	TabTickets
	TabKnowledge
	tabCount
)

var tabNames = [tabCount]string{"Home", "AI Chat", "Tickets", "Knowledge Base"}

const subscriberBuffer = 32

type changeMsg struct {
	change store.Change
	source <-chan store.Change
}

type ticketsLoadedMsg struct{ err error }

type searchDoneMsg struct{ view filter.View }

type uploadDoneMsg struct {
	doc *knowledge.Document
	err error
}

type buildDoneMsg struct {
	stats *knowledge.Stats
	err   error
}

// Model implements tea.Model. Rendering reads the session and shared
// state directly; change notifications only trigger a redraw.
type Model struct {
	app     *app.App
	session *app.Session
	keys    KeyMap

	tab          Tab
	homeCursor   int
	ticketCursor int
	notice       string
	noticeErr    bool
	building     bool

	inputs   [tabCount]textinput.Model
	chatView viewport.Model
	spinner  spinner.Model
	help     help.Model

	width  int
	height int

	sessionChanges <-chan store.Change
	sharedChanges  <-chan store.Change
	unsubscribe    []func()
}

func NewModel(a *app.App, s *app.Session) Model {
	model := Model{
		app:      a,
		session:  s,
		keys:     DefaultKeyMap,
		chatView: viewport.New(80, 10),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		width:    80,
		height:   24,
	}

	placeholders := map[Tab]string{
		TabChat:      "Type your message here...",
		TabTickets:   "Search tickets (enter searches the ticketing API)",
		TabKnowledge: "Path to a PDF or HTML document",
	}
	for tab := Tab(0); tab < tabCount; tab++ {
		input := textinput.New()
		input.Placeholder = placeholders[tab]
		input.CharLimit = 2000
		model.inputs[tab] = input
	}

	var cancelSession, cancelShared func()
	model.sessionChanges, cancelSession = s.Hub.Subscribe(subscriberBuffer)
	model.sharedChanges, cancelShared = a.Hub.Subscribe(subscriberBuffer)
	model.unsubscribe = []func(){cancelSession, cancelShared}

	model.refreshChat()
	return model
}

// Close drops the change subscriptions.
func (model Model) Close() {
	for _, cancel := range model.unsubscribe {
		cancel()
	}
}

func (model Model) Init() tea.Cmd {
	return tea.Batch(
		listenForChange(model.sessionChanges),
		listenForChange(model.sharedChanges),
		model.spinner.Tick,
		textinput.Blink,
	)
}

// listenForChange blocks until the next change on source.
func listenForChange(source <-chan store.Change) tea.Cmd {
	return func() tea.Msg {
		change, ok := <-source
		if !ok {
			return nil
		}
		return changeMsg{change: change, source: source}
	}
}

func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.chatView.Width = message.Width
		model.chatView.Height = max(3, message.Height-8)
		for tab := range model.inputs {
			model.inputs[tab].Width = max(10, message.Width-6)
		}
		model.refreshChat()
		return model, nil

	case changeMsg:
		if message.change.Slice == store.SliceChat {
			model.refreshChat()
		}
		if message.change.Slice == store.SliceTickets {
			model.clampTicketCursor()
		}
		return model, listenForChange(message.source)

	case ticketsLoadedMsg:
		model.clampTicketCursor()
		return model, nil

	case searchDoneMsg:
		model.clampTicketCursor()
		if message.view.Source == filter.SourceFallback {
			model.setNotice("Ticket search is unavailable, showing local matches", true)
		}
		return model, nil

	case uploadDoneMsg:
		switch {
		case errors.Is(message.err, knowledge.ErrUnsupportedDocument):
			model.setNotice("Please select a PDF file", true)
		case message.err != nil:
			model.setNotice(message.err.Error(), true)
		default:
			model.inputs[TabKnowledge].Reset()
			model.setNotice("Uploaded "+message.doc.Name, false)
		}
		return model, nil

	case buildDoneMsg:
		model.building = false
		switch {
		case errors.Is(message.err, knowledge.ErrNoDocuments):
			model.setNotice("Upload at least one document before building", true)
		case message.err != nil:
			model.setNotice(message.err.Error(), true)
		default:
			model.setNotice(fmt.Sprintf("Knowledge base built: %d chunks", message.stats.TotalChunks), false)
		}
		return model, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		model.spinner, cmd = model.spinner.Update(message)
		return model, cmd

	case tea.KeyMsg:
		return model.handleKey(message)
	}

	return model.updateInput(message)
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit
	case key.Matches(message, model.keys.NextTab):
		return model.switchTab((model.tab + 1) % tabCount)
	case key.Matches(message, model.keys.PrevTab):
		return model.switchTab((model.tab + tabCount - 1) % tabCount)
	}

	switch model.tab {
	case TabHome:
		return model.handleHomeKeys(message)
	case TabChat:
		return model.handleChatKeys(message)
	case TabTickets:
		return model.handleTicketKeys(message)
	case TabKnowledge:
		return model.handleKnowledgeKeys(message)
	}
	return model, nil
}

// switchTab focuses the tab's input. Entering Tickets reloads the
// ticket list, the same as mounting the tab.
func (model Model) switchTab(tab Tab) (tea.Model, tea.Cmd) {
	model.inputs[model.tab].Blur()
	model.tab = tab
	model.notice = ""
	if tab != TabHome {
		model.inputs[tab].Focus()
	}

	if tab == TabTickets {
		return model, loadTickets(model.session)
	}
	return model, nil
}

func loadTickets(s *app.Session) tea.Cmd {
	return func() tea.Msg {
		return ticketsLoadedMsg{err: s.ActivateTickets(context.Background())}
	}
}

func (model Model) handleHomeKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	examples := homeExamples()
	switch {
	case key.Matches(message, model.keys.Up):
		if model.homeCursor > 0 {
			model.homeCursor--
		}
	case key.Matches(message, model.keys.Down):
		if model.homeCursor < len(examples)-1 {
			model.homeCursor++
		}
	case key.Matches(message, model.keys.Submit):
		model.session.AskHome(context.Background(), examples[model.homeCursor])
	}
	return model, nil
}

func (model Model) handleChatKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Submit):
		text := model.inputs[TabChat].Value()
		if _, err := model.session.Chat.Submit(context.Background(), text); errors.Is(err, tracker.ErrEmptyMessage) {
			return model, nil
		}
		model.inputs[TabChat].Reset()
		return model, nil
	case key.Matches(message, model.keys.Up):
		model.chatView.LineUp(1)
		return model, nil
	case key.Matches(message, model.keys.Down):
		model.chatView.LineDown(1)
		return model, nil
	}
	return model.updateInput(message)
}

func (model Model) handleTicketKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	engine := model.session.Tickets
	options := model.session.Meta().Options

	switch {
	case key.Matches(message, model.keys.Up):
		if model.ticketCursor > 0 {
			model.ticketCursor--
		}
		return model, nil
	case key.Matches(message, model.keys.Down):
		if model.ticketCursor < engine.View().Shown-1 {
			model.ticketCursor++
		}
		return model, nil
	case key.Matches(message, model.keys.Submit):
		return model, submitSearch(engine, model.inputs[TabTickets].Value())
	case key.Matches(message, model.keys.Refresh):
		return model, loadTickets(model.session)
	case key.Matches(message, model.keys.CycleStatus):
		engine.SetStatus(cycle(statusNames(options), engine.Criteria().Status))
	case key.Matches(message, model.keys.CyclePriority):
		engine.SetPriority(cycle(priorityNames(options), engine.Criteria().Priority))
	case key.Matches(message, model.keys.CycleCategory):
		engine.SetCategory(cycle(categoryNames(options), engine.Criteria().Category))
	case key.Matches(message, model.keys.ClearFilters):
		model.inputs[TabTickets].Reset()
		engine.SetCriteria(filter.Criteria{})
	case key.Matches(message, model.keys.Resolve):
		view := engine.View()
		if model.ticketCursor < len(view.Tickets) {
			id := view.Tickets[model.ticketCursor].ID
			return model, func() tea.Msg {
				model.session.ResolveTicket(context.Background(), id)
				return nil
			}
		}
		return model, nil
	default:
		before := model.inputs[TabTickets].Value()
		updated, cmd := model.updateInput(message)
		model = updated.(Model)
		if after := model.inputs[TabTickets].Value(); after != before {
			engine.SetSearch(after)
		}
		model.clampTicketCursor()
		return model, cmd
	}
	model.clampTicketCursor()
	return model, nil
}

func submitSearch(engine *filter.Engine, query string) tea.Cmd {
	return func() tea.Msg {
		return searchDoneMsg{view: engine.Submit(context.Background(), query)}
	}
}

func (model Model) handleKnowledgeKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Submit):
		path := strings.TrimSpace(model.inputs[TabKnowledge].Value())
		if path == "" {
			model.setNotice("Please select a PDF file", true)
			return model, nil
		}
		return model, uploadDocument(model.app, path)
	case key.Matches(message, model.keys.BuildKnowledge):
		if model.building {
			return model, nil
		}
		model.building = true
		model.notice = ""
		return model, buildKnowledge(model.app)
	}
	return model.updateInput(message)
}

func uploadDocument(a *app.App, path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return uploadDoneMsg{err: fmt.Errorf("cannot read %s: %w", path, err)}
		}
		doc, err := a.Knowledge.Upload(filepath.Base(path), data)
		return uploadDoneMsg{doc: doc, err: err}
	}
}

func buildKnowledge(a *app.App) tea.Cmd {
	return func() tea.Msg {
		stats, err := a.Knowledge.Build(context.Background())
		if err == nil {
			a.InvalidateAnswers(context.Background())
		}
		return buildDoneMsg{stats: stats, err: err}
	}
}

func (model Model) updateInput(message tea.Msg) (tea.Model, tea.Cmd) {
	if model.tab == TabHome {
		return model, nil
	}
	var cmd tea.Cmd
	model.inputs[model.tab], cmd = model.inputs[model.tab].Update(message)
	return model, cmd
}

func (model *Model) setNotice(text string, isErr bool) {
	model.notice = text
	model.noticeErr = isErr
}

func (model *Model) clampTicketCursor() {
	shown := model.session.Tickets.View().Shown
	if model.ticketCursor >= shown {
		model.ticketCursor = max(0, shown-1)
	}
}

func (model *Model) refreshChat() {
	model.chatView.SetContent(renderChat(model.session.Chat.State(), model.width, model.spinner.View()))
	model.chatView.GotoBottom()
}

func (model Model) View() string {
	var b strings.Builder
	b.WriteString(model.renderTabs())
	b.WriteString("\n\n")

	switch model.tab {
	case TabHome:
		b.WriteString(model.renderHome())
	case TabChat:
		b.WriteString(model.chatView.View())
		b.WriteString("\n")
		b.WriteString(model.inputs[TabChat].View())
	case TabTickets:
		b.WriteString(model.renderTickets())
	case TabKnowledge:
		b.WriteString(model.renderKnowledge())
	}

	if model.notice != "" {
		style := mutedStyle
		if model.noticeErr {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render(model.notice))
	}
	b.WriteString("\n\n")
	b.WriteString(model.help.View(model.keys.forTab(model.tab)))
	return b.String()
}

func (model Model) renderTabs() string {
	tabs := make([]string, 0, tabCount+1)
	for tab := Tab(0); tab < tabCount; tab++ {
		style := inactiveTabStyle
		if tab == model.tab {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(tabNames[tab]))
	}
	tabs = append(tabs, "  "+model.renderBackends())
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (model Model) renderBackends() string {
	state := model.app.Monitor.State()
	parts := make([]string, 0, 2)
	for _, name := range []string{app.BackendWorkflow, app.BackendTicketing} {
		if state.Online(name) {
			parts = append(parts, onlineStyle.Render("● "+name))
		} else {
			parts = append(parts, offlineStyle.Render("○ "+name))
		}
	}
	return strings.Join(parts, " ")
}
