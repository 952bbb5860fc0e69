package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/support-console/backend/internal/remote"
)

// Runner turns a free-text input into an AI answer. The workflow
// client, the OpenAI client and the cached runner all satisfy it.
type Runner interface {
	Run(ctx context.Context, input string) (string, error)
}

type RunnerFunc func(ctx context.Context, input string) (string, error)

func (f RunnerFunc) Run(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

const (
	TextConnectivity = "Sorry, I'm having trouble connecting to the support system. Please try again later."
	TextMalformed    = "The support system sent a response that could not be read. Please try again later."
	TextUnknown      = "Sorry, I encountered an error while processing your request. Please try again or contact support if the issue persists."
)

// FailureText is the user-facing message for a failed call.
func FailureText(err error) string {
	switch remote.Classify(err) {
	case remote.CategoryNetwork:
		return TextConnectivity
	case remote.CategoryStatus:
		var statusErr *remote.StatusError
		errors.As(err, &statusErr)
		return fmt.Sprintf("The support system returned an error (HTTP %d). Please try again later.", statusErr.Code)
	case remote.CategoryPayload:
		return TextMalformed
	default:
		return TextUnknown
	}
}
