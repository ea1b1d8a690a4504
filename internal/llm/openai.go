package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/finbot-ai/agent-platform/internal/model"
	"github.com/finbot-ai/agent-platform/internal/tool"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIClient is the OpenAI LLM client.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Models returns available models.
func (c *OpenAIClient) Models() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-3.5-turbo",
	}
}

// StreamTurn streams one assistant turn using chat-completion function
// calling. Tool-call fragments are accumulated per choice index until the
// stream finishes, then parsed into structured inputs.
func (c *OpenAIClient) StreamTurn(ctx context.Context, req *TurnRequest, callback StreamCallback) (*TurnResult, error) {
	start := time.Now()

	modelName := req.Model
	if modelName == "" {
		modelName = defaultOpenAIModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    convertOpenAIMessages(req.System, req.Messages),
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
		Stream:      true,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertOpenAITools(req.Tools)
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}
	defer stream.Close()

	var text strings.Builder
	var stopReason string
	index := 0

	// Tool call fragments keyed by their declared position.
	type pendingCall struct {
		id   string
		name string
		args strings.Builder
	}
	var pending []*pendingCall

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("openai stream: %w", err)
		}
		if len(response.Choices) == 0 {
			continue
		}
		choice := response.Choices[0]

		if delta := choice.Delta.Content; delta != "" {
			text.WriteString(delta)
			if err := callback(delta, index); err != nil {
				return nil, err
			}
			index++
		}

		for _, tc := range choice.Delta.ToolCalls {
			pos := 0
			if tc.Index != nil {
				pos = *tc.Index
			} else if len(pending) > 0 {
				pos = len(pending) - 1
			}
			for len(pending) <= pos {
				pending = append(pending, &pendingCall{})
			}
			call := pending[pos]
			if tc.ID != "" {
				call.id = tc.ID
			}
			if tc.Function.Name != "" {
				call.name = tc.Function.Name
			}
			call.args.WriteString(tc.Function.Arguments)
		}

		if choice.FinishReason != "" {
			stopReason = string(choice.FinishReason)
		}
	}

	toolCalls := make([]model.ToolCall, 0, len(pending))
	for _, call := range pending {
		input := map[string]any{}
		raw := strings.TrimSpace(call.args.String())
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &input); err != nil {
				return nil, fmt.Errorf("parse input for tool %s: %w", call.name, err)
			}
		}
		toolCalls = append(toolCalls, model.ToolCall{ID: call.id, Name: call.name, Input: input})
	}

	return &TurnResult{
		Text:       text.String(),
		ToolCalls:  toolCalls,
		StopReason: stopReason,
		Model:      modelName,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func convertOpenAIMessages(system string, messages []model.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleUser:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
		case model.RoleAssistant:
			m := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			for _, call := range msg.ToolCalls {
				args, _ := json.Marshal(call.Input)
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, m)
		case model.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		}
	}
	return out
}

func convertOpenAITools(defs []tool.Definition) []openai.Tool {
	out := make([]openai.Tool, len(defs))
	for i, def := range defs {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.InputSchema,
			},
		}
	}
	return out
}
