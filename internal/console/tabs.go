package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/support-console/backend/internal/app"
	"github.com/support-console/backend/internal/storage/models"
	"github.com/support-console/backend/internal/tracker"
)

func homeExamples() []string {
	var examples []string
	for _, category := range app.HomeCatalogue() {
		examples = append(examples, category.Examples...)
	}
	return examples
}

func (model Model) renderHome() string {
	var b strings.Builder
	index := 0
	width := max(20, model.width-6)

	for _, category := range app.HomeCatalogue() {
		b.WriteString(titleStyle.Render(category.Title))
		b.WriteString("  " + mutedStyle.Render(category.Description) + "\n")
		for _, example := range category.Examples {
			line := "  " + example
			if index == model.homeCursor {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line + "\n")

			if entry, ok := model.session.Home.Get(example); ok && entry.Expanded {
				b.WriteString(renderResolution(entry, width, model.spinner.View(), "Getting AI response...") + "\n")
			}
			index++
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderResolution(entry models.Resolution, width int, spin, loadingText string) string {
	var body string
	switch entry.State() {
	case models.StatePending:
		body = spin + " " + loadingText
	case models.StateFailed:
		body = errorStyle.Render(entry.Error)
	default:
		body = entry.Response
	}
	return answerStyle.Width(width).MarginLeft(4).Render(body)
}

func renderChat(state tracker.ChatState, width int, spin string) string {
	width = max(20, width-2)
	var b strings.Builder
	for _, msg := range state.Messages {
		label := aiStyle.Render("AI Assistant")
		if msg.Sender == models.SenderUser {
			label = userStyle.Render("You")
		}
		b.WriteString(label + " " + mutedStyle.Render(msg.Timestamp.Format("15:04")) + "\n")

		text := msg.Text
		if msg.Error {
			text = errorStyle.Render(text)
		}
		b.WriteString(lipgloss.NewStyle().Width(width).Render(text) + "\n\n")
	}
	if state.Pending > 0 {
		b.WriteString(mutedStyle.Render(spin + " AI is typing..."))
	}
	return b.String()
}

func (model Model) renderTickets() string {
	var b strings.Builder
	view := model.session.Tickets.View()
	criteria := model.session.Tickets.Criteria()
	meta := model.session.Meta()

	if stats := meta.Stats; stats != nil {
		b.WriteString(fmt.Sprintf("Total %d · Open %d · Resolved %d · Critical %d\n",
			stats.TotalTickets, stats.OpenTickets, stats.ResolvedTickets, stats.CriticalTickets))
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Status: %s · Priority: %s · Category: %s · %d of %d (%s)",
		orAll(criteria.Status), orAll(criteria.Priority), orAll(criteria.Category),
		view.Shown, view.Total, view.Source)))
	b.WriteString("\n")
	b.WriteString(model.inputs[TabTickets].View())
	b.WriteString("\n\n")

	switch {
	case view.Loading:
		b.WriteString(model.spinner.View() + " Loading tickets...\n")
		return b.String()
	case view.Error != "":
		b.WriteString(errorStyle.Render(view.Error) + "\n")
		return b.String()
	case view.Searching:
		b.WriteString(model.spinner.View() + " Searching...\n")
	case view.Shown == 0:
		b.WriteString(mutedStyle.Render("No tickets match the current filters.") + "\n")
		return b.String()
	}

	rows := max(3, model.height-18)
	start := 0
	if model.ticketCursor >= rows {
		start = model.ticketCursor - rows + 1
	}
	end := min(len(view.Tickets), start+rows)
	for i := start; i < end; i++ {
		line := ticketRow(view.Tickets[i], model.width)
		if i == model.ticketCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if model.ticketCursor < len(view.Tickets) {
		b.WriteString("\n" + model.renderTicketDetail(view.Tickets[model.ticketCursor]))
	}
	return b.String()
}

func ticketRow(t models.Ticket, width int) string {
	priority := lipgloss.NewStyle().Foreground(priorityColors[t.PriorityClass()]).Render(fmt.Sprintf("%-8s", t.PriorityName))
	status := lipgloss.NewStyle().Foreground(statusColors[t.StatusClass()]).Render(fmt.Sprintf("%-12s", t.StatusName))
	title := t.Title
	if limit := width - 40; limit > 10 && len(title) > limit {
		title = title[:limit-1] + "…"
	}
	return fmt.Sprintf("%-10s %s %s %s", t.TicketNumber, priority, status, title)
}

func (model Model) renderTicketDetail(t models.Ticket) string {
	width := max(20, model.width-4)
	var b strings.Builder
	b.WriteString(titleStyle.Render(t.TicketNumber+" · "+t.Title) + "\n")
	meta := t.CategoryName
	if t.UserFullName != "" {
		meta += " · " + t.UserFullName
	}
	if created, ok := t.Created(); ok {
		meta += " · " + humanize.Time(created)
	}
	b.WriteString(mutedStyle.Render(meta) + "\n")
	b.WriteString(lipgloss.NewStyle().Width(width).Render(t.Description) + "\n")
	if tags := t.TagList(); len(tags) > 0 {
		b.WriteString(mutedStyle.Render("#"+strings.Join(tags, " #")) + "\n")
	}
	if entry, ok := model.session.Resolutions.Get(fmt.Sprint(t.ID)); ok {
		b.WriteString(titleStyle.Render("AI Resolution") + "\n")
		b.WriteString(renderResolution(entry, width-4, model.spinner.View(), "Getting AI resolution...") + "\n")
	}
	return b.String()
}

func (model Model) renderKnowledge() string {
	var b strings.Builder
	state := model.app.Knowledge.State()
	stats := state.Stats

	last := "never"
	if stats.LastUpdatedAgo != "" {
		last = stats.LastUpdatedAgo
	}
	b.WriteString(fmt.Sprintf("Documents %d · Chunks %d · Index %s · Last updated %s\n",
		state.Documents, stats.TotalChunks, stats.IndexSize, last))
	if model.building || state.Building {
		b.WriteString(model.spinner.View() + " Building knowledge base...\n")
	}
	b.WriteString("\n")

	docs, err := model.app.Knowledge.Documents()
	switch {
	case err != nil:
		b.WriteString(errorStyle.Render(err.Error()) + "\n")
	case len(docs) == 0:
		b.WriteString(mutedStyle.Render("No documents uploaded yet.") + "\n")
	default:
		for _, doc := range docs {
			b.WriteString(fmt.Sprintf("%-40s %10s %6d chunks  %s\n", doc.Name, doc.Size, doc.Chunks, doc.Uploaded))
		}
	}

	b.WriteString("\n" + model.inputs[TabKnowledge].View())
	return b.String()
}

func orAll(value string) string {
	if value == "" {
		return "All"
	}
	return value
}

// cycle returns the option after current, wrapping through "" (all).
func cycle(options []string, current string) string {
	if len(options) == 0 {
		return ""
	}
	for i, option := range options {
		if option == current {
			if i == len(options)-1 {
				return ""
			}
			return options[i+1]
		}
	}
	return options[0]
}

func statusNames(o app.Options) []string {
	names := make([]string, 0, len(o.Statuses))
	for _, s := range o.Statuses {
		names = append(names, s.Name)
	}
	if len(names) == 0 {
		return o.Facets.Statuses
	}
	return names
}

func priorityNames(o app.Options) []string {
	names := make([]string, 0, len(o.Priorities))
	for _, p := range o.Priorities {
		names = append(names, p.Name)
	}
	if len(names) == 0 {
		return o.Facets.Priorities
	}
	return names
}

func categoryNames(o app.Options) []string {
	names := make([]string, 0, len(o.Categories))
	for _, c := range o.Categories {
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		return o.Facets.Categories
	}
	return names
}
