package models

import (
	"strings"
	"time"
)

// Ticket is a snapshot record from the ticketing API. Only the fields
// up to Tags take part in filtering; the rest are passed through.
type Ticket struct {
	ID           int     `json:"id"`
	TicketNumber string  `json:"ticket_number"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	UserFullName string  `json:"user_full_name"`
	CategoryName string  `json:"category_name"`
	PriorityName string  `json:"priority_name"`
	StatusName   string  `json:"status_name"`
	CreatedAt    string  `json:"created_at"`
	Tags         *string `json:"tags,omitempty"`

	UserID           int     `json:"user_id,omitempty"`
	CategoryID       int     `json:"category_id,omitempty"`
	PriorityID       int     `json:"priority_id,omitempty"`
	StatusID         int     `json:"status_id,omitempty"`
	PriorityColor    string  `json:"priority_color,omitempty"`
	StatusColor      string  `json:"status_color,omitempty"`
	AssignedFullName *string `json:"assigned_full_name,omitempty"`
	UpdatedAt        string  `json:"updated_at,omitempty"`
	ResolvedAt       *string `json:"resolved_at,omitempty"`
	DueDate          *string `json:"due_date,omitempty"`
}

// TagString returns the raw comma-separated tag string, or "".
func (t Ticket) TagString() string {
	if t.Tags == nil {
		return ""
	}
	return *t.Tags
}

// TagList splits tags for chip rendering. Matching never uses it.
func (t Ticket) TagList() []string {
	raw := t.TagString()
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Created parses CreatedAt; the ticketing API emits ISO timestamps
// with or without a zone.
func (t Ticket) Created() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, t.CreatedAt); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func (t Ticket) PriorityClass() string {
	switch t.PriorityName {
	case "Critical":
		return "critical"
	case "High":
		return "high"
	case "Medium":
		return "medium"
	case "Low":
		return "low"
	default:
		return "medium"
	}
}

func (t Ticket) StatusClass() string {
	switch t.StatusName {
	case "Open":
		return "open"
	case "In Progress":
		return "in-progress"
	case "Waiting for Customer":
		return "waiting"
	case "Resolved":
		return "resolved"
	case "Closed":
		return "closed"
	case "Escalated":
		return "escalated"
	default:
		return "open"
	}
}

type CountByName struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type TicketStats struct {
	TotalTickets      int           `json:"total_tickets"`
	OpenTickets       int           `json:"open_tickets"`
	ResolvedTickets   int           `json:"resolved_tickets"`
	CriticalTickets   int           `json:"critical_tickets"`
	TicketsByCategory []CountByName `json:"tickets_by_category"`
	TicketsByPriority []CountByName `json:"tickets_by_priority"`
}

type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SLAHours    int    `json:"sla_hours"`
}

type Priority struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SLAHours    int    `json:"sla_hours"`
	Color       string `json:"color"`
}

type Status struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Error     bool      `json:"error,omitempty"`
	HTML      string    `json:"html,omitempty"`
}

// Resolution tracks one AI answer request keyed by query text or
// ticket id.
type Resolution struct {
	Key       string    `json:"key"`
	Response  string    `json:"response"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	Expanded  bool      `json:"expanded"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ResolutionState string

const (
	StateAbsent    ResolutionState = "absent"
	StatePending   ResolutionState = "pending"
	StateFulfilled ResolutionState = "fulfilled"
	StateFailed    ResolutionState = "failed"
)

func (r Resolution) State() ResolutionState {
	switch {
	case r.Loading:
		return StatePending
	case r.Error != "":
		return StateFailed
	default:
		return StateFulfilled
	}
}

type KnowledgeDocument struct {
	ID          string
	Name        string
	ContentType string
	Path        string
	SizeBytes   int64
	Chunks      int
	UploadedAt  time.Time
}

type KnowledgeBuild struct {
	ID             int
	TotalDocuments int
	TotalChunks    int
	IndexBytes     int64
	BuiltAt        time.Time
}
