package workflow

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/support-console/backend/internal/remote"
	"github.com/support-console/backend/pkg/logger"
	"go.uber.org/zap"
)

const apiName = "workflow"

// NoContent is the answer text when the run succeeded without a
// content or output field.
const NoContent = "No response content received"

type Encoding string

const (
	EncodingURL       Encoding = "urlencoded"
	EncodingMultipart Encoding = "multipart"
)

type Client struct {
	baseURL    string
	workflowID string
	encoding   Encoding
	httpClient *http.Client
}

type Options struct {
	BaseURL    string
	WorkflowID string
	Encoding   Encoding
	Timeout    time.Duration
}

func NewClient(opts Options) *Client {
	encoding := opts.Encoding
	if encoding == "" {
		encoding = EncodingURL
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		workflowID: opts.WorkflowID,
		encoding:   encoding,
		httpClient: remote.NewHTTPClient(opts.Timeout),
	}
}

type runResponse struct {
	Content *string `json:"content"`
	Output  *string `json:"output"`
}

// Run executes the configured workflow once with input as
// workflow_input and returns the generated text.
func (c *Client) Run(ctx context.Context, input string) (string, error) {
	body, contentType, err := c.encode(input)
	if err != nil {
		return "", fmt.Errorf("failed to encode workflow input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/runs?workflow_id=%s", c.baseURL, url.QueryEscape(c.workflowID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	var resp runResponse
	if err := remote.Do(c.httpClient, req, apiName, "run", &resp); err != nil {
		logger.Warn("Workflow run failed",
			zap.String("workflow_id", c.workflowID),
			zap.Error(err))
		return "", err
	}

	switch {
	case resp.Content != nil && *resp.Content != "":
		return *resp.Content, nil
	case resp.Output != nil && *resp.Output != "":
		return *resp.Output, nil
	default:
		return NoContent, nil
	}
}

func (c *Client) encode(input string) (*bytes.Buffer, string, error) {
	if c.encoding == EncodingMultipart {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		if err := writer.WriteField("workflow_input", input); err != nil {
			return nil, "", err
		}
		if err := writer.Close(); err != nil {
			return nil, "", err
		}
		return &buf, writer.FormDataContentType(), nil
	}

	form := url.Values{}
	form.Set("workflow_input", input)
	return bytes.NewBufferString(form.Encode()), "application/x-www-form-urlencoded", nil
}

// Status probes GET /status; any 2xx means the service is online.
func (c *Client) Status(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return remote.Do(c.httpClient, req, apiName, "status", nil)
}
