// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"

	"github.com/finbot-ai/agent-platform/internal/model"
	"github.com/finbot-ai/agent-platform/internal/tool"
)

// StreamCallback is called for each text delta during streaming.
type StreamCallback func(text string, index int) error

// TurnRequest asks the model for one assistant turn over the transcript.
type TurnRequest struct {
	Model       string
	System      string
	Messages    []model.Message
	Tools       []tool.Definition
	MaxTokens   int
	Temperature float64
}

// TurnResult is the fully-accumulated outcome of one streamed model turn:
// the text produced, the tool calls the model requested (in declared
// order, with parsed inputs), and usage metadata.
type TurnResult struct {
	Text       string
	ToolCalls  []model.ToolCall
	StopReason string
	Model      string
	TokensIn   int
	TokensOut  int
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// StreamTurn streams one assistant turn, invoking callback for every
	// text delta as it arrives, and returns the accumulated result.
	StreamTurn(ctx context.Context, req *TurnRequest, callback StreamCallback) (*TurnResult, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewAnthropicClient(apiKey)
	}
}
