package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/support-console/backend/internal/metrics"
	"github.com/support-console/backend/internal/remote"
	"github.com/support-console/backend/pkg/logger"
)

const apiName = "openai"

const noContent = "No response content received"

const systemPrompt = `You are an AI customer support assistant. Answer the customer's question or
resolve the described support ticket.

Your responses must:
1. Be polite and concise
2. Give step-by-step instructions when the customer has to do something
3. Say so plainly when you need more details

Format the answer in Markdown.`

// Client answers support questions through the OpenAI chat API. It is
// the alternative to the workflow-run service and makes exactly one
// attempt per call.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func NewClient(opts Options) *Client {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	config.HTTPClient = remote.NewHTTPClient(opts.Timeout)

	logger.Info("LLM client initialized",
		zap.String("model", opts.Model),
		zap.Int("max_tokens", opts.MaxTokens),
	)

	return &Client{
		client:      openai.NewClientWithConfig(config),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

func (c *Client) Run(ctx context.Context, input string) (string, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	err = classify(err)

	outcome := string(remote.Classify(err))
	if outcome == "" {
		outcome = "ok"
	}
	metrics.ObserveOutbound(apiName, "run", outcome, time.Since(start))

	if err != nil {
		logger.Warn("LLM completion failed", zap.String("model", c.model), zap.Error(err))
		return "", err
	}

	logger.Debug("LLM completion generated",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return noContent, nil
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps go-openai errors onto the shared remote taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &remote.StatusError{API: apiName, Op: "run", Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 200 && reqErr.HTTPStatusCode < 300 {
			return fmt.Errorf("%s run: %w: %v", apiName, remote.ErrMalformedResponse, reqErr.Err)
		}
		return &remote.StatusError{API: apiName, Op: "run", Code: reqErr.HTTPStatusCode}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%s run: %w: %v", apiName, remote.ErrMalformedResponse, err)
	}
	return fmt.Errorf("%s run: %w: %v", apiName, remote.ErrUnavailable, err)
}
