package ticketing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/support-console/backend/internal/remote"
	"github.com/support-console/backend/internal/storage/models"
)

const apiName = "ticketing"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: remote.NewHTTPClient(timeout),
	}
}

type SearchResult struct {
	Query        string          `json:"query"`
	TotalResults int             `json:"total_results"`
	Results      []models.Ticket `json:"results"`
}

// ListTickets fetches GET /tickets; limit <= 0 leaves the server default.
func (c *Client) ListTickets(ctx context.Context, limit int) ([]models.Ticket, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var tickets []models.Ticket
	if err := c.get(ctx, "/tickets", query, "list_tickets", &tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	return tickets, nil
}

func (c *Client) Ticket(ctx context.Context, id int) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := c.get(ctx, "/tickets/"+strconv.Itoa(id), nil, "get_ticket", &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *Client) Search(ctx context.Context, q string, limit int) (*SearchResult, error) {
	query := url.Values{}
	query.Set("query", q)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var result SearchResult
	if err := c.get(ctx, "/search", query, "search", &result); err != nil {
		return nil, err
	}
	if result.Results == nil {
		result.Results = []models.Ticket{}
	}
	return &result, nil
}

func (c *Client) Stats(ctx context.Context) (*models.TicketStats, error) {
	var stats models.TicketStats
	if err := c.get(ctx, "/stats", nil, "stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Health probes GET /health; any 2xx is healthy and the body is ignored.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil, "health", nil)
}

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.get(ctx, "/categories", nil, "categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) Priorities(ctx context.Context) ([]models.Priority, error) {
	var priorities []models.Priority
	if err := c.get(ctx, "/priorities", nil, "priorities", &priorities); err != nil {
		return nil, err
	}
	return priorities, nil
}

func (c *Client) Statuses(ctx context.Context) ([]models.Status, error) {
	var statuses []models.Status
	if err := c.get(ctx, "/statuses", nil, "statuses", &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, op string, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return remote.Do(c.httpClient, req, apiName, op, out)
}
