package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/finbot-ai/agent-platform/internal/model"
	"github.com/finbot-ai/agent-platform/internal/tool"
)

const defaultAnthropicModel = "claude-3-5-sonnet-20241022"

// AnthropicClient is the Anthropic LLM client.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Models returns available models.
func (c *AnthropicClient) Models() []string {
	return []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
		"claude-3-haiku-20240307",
	}
}

// StreamTurn streams one assistant turn, forwarding text deltas through
// callback and accumulating tool_use blocks along with their incrementally
// delivered JSON input.
func (c *AnthropicClient) StreamTurn(ctx context.Context, req *TurnRequest, callback StreamCallback) (*TurnResult, error) {
	start := time.Now()

	modelName := req.Model
	if modelName == "" {
		modelName = defaultAnthropicModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.F(modelName),
		MaxTokens:   anthropic.F(int64(maxTokens)),
		Messages:    anthropic.F(convertMessages(req.Messages)),
		Temperature: anthropic.F(req.Temperature),
	}
	if req.System != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{{
			Type: anthropic.F(anthropic.TextBlockParamTypeText),
			Text: anthropic.F(req.System),
		}})
	}
	if len(req.Tools) > 0 {
		params.Tools = anthropic.F(convertTools(req.Tools))
	}

	stream := c.client.Messages.NewStreaming(ctx, params)

	var text strings.Builder
	var toolCalls []model.ToolCall
	inputJSON := make(map[string]*strings.Builder)
	var stopReason string
	var tokensIn, tokensOut int
	index := 0

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case anthropic.MessageStreamEventTypeMessageStart:
			tokensIn = int(event.Message.Usage.InputTokens)

		case anthropic.MessageStreamEventTypeContentBlockStart:
			block, _ := event.ContentBlock.(anthropic.ContentBlockStartEventContentBlock)
			if block.Type == anthropic.ContentBlockStartEventContentBlockTypeToolUse {
				toolCalls = append(toolCalls, model.ToolCall{
					ID:   block.ID,
					Name: block.Name,
				})
				inputJSON[block.ID] = &strings.Builder{}
			}

		case anthropic.MessageStreamEventTypeContentBlockDelta:
			delta, _ := event.Delta.(anthropic.ContentBlockDeltaEventDelta)
			switch delta.Type {
			case "text_delta":
				text.WriteString(delta.Text)
				if err := callback(delta.Text, index); err != nil {
					return nil, err
				}
				index++
			case "input_json_delta":
				// Tool input arrives as partial JSON for the block most
				// recently started.
				if len(toolCalls) > 0 {
					last := toolCalls[len(toolCalls)-1]
					if acc, ok := inputJSON[last.ID]; ok {
						acc.WriteString(delta.PartialJSON)
					}
				}
			}

		case anthropic.MessageStreamEventTypeMessageDelta:
			if delta, ok := event.Delta.(anthropic.MessageDeltaEventDelta); ok {
				stopReason = string(delta.StopReason)
			}
			tokensOut = int(event.Usage.OutputTokens)
		}
	}

	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic stream: %w", err)
	}

	for i := range toolCalls {
		acc := inputJSON[toolCalls[i].ID]
		raw := ""
		if acc != nil {
			raw = strings.TrimSpace(acc.String())
		}
		input := map[string]any{}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &input); err != nil {
				return nil, fmt.Errorf("parse input for tool %s: %w", toolCalls[i].Name, err)
			}
		}
		toolCalls[i].Input = input
	}

	return &TurnResult{
		Text:       text.String(),
		ToolCalls:  toolCalls,
		StopReason: stopReason,
		Model:      modelName,
		TokensIn:   tokensIn,
		TokensOut:  tokensOut,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// convertMessages maps the internal transcript to Anthropic message params.
// Tool messages become user-role tool_result blocks correlated by
// tool_use_id, which is how the API feeds tool output back to the model.
func convertMessages(messages []model.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleUser:
			out = append(out, anthropic.MessageParam{
				Role: anthropic.F(anthropic.MessageParamRoleUser),
				Content: anthropic.F([]anthropic.ContentBlockParamUnion{
					anthropic.TextBlockParam{
						Type: anthropic.F(anthropic.TextBlockParamTypeText),
						Text: anthropic.F(msg.Content),
					},
				}),
			})

		case model.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Blocks))
			for _, block := range msg.Blocks {
				switch block.Type {
				case model.BlockTypeText:
					blocks = append(blocks, anthropic.TextBlockParam{
						Type: anthropic.F(anthropic.TextBlockParamTypeText),
						Text: anthropic.F(block.Text),
					})
				case model.BlockTypeToolUse:
					blocks = append(blocks, anthropic.ToolUseBlockParam{
						Type:  anthropic.F(anthropic.ToolUseBlockParamTypeToolUse),
						ID:    anthropic.F(block.ID),
						Name:  anthropic.F(block.Name),
						Input: anthropic.F[interface{}](block.Input),
					})
				}
			}
			if len(blocks) == 0 && msg.Content != "" {
				blocks = append(blocks, anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(msg.Content),
				})
			}
			out = append(out, anthropic.MessageParam{
				Role:    anthropic.F(anthropic.MessageParamRoleAssistant),
				Content: anthropic.F(blocks),
			})

		case model.RoleTool:
			out = append(out, anthropic.MessageParam{
				Role: anthropic.F(anthropic.MessageParamRoleUser),
				Content: anthropic.F([]anthropic.ContentBlockParamUnion{
					anthropic.ToolResultBlockParam{
						Type:      anthropic.F(anthropic.ToolResultBlockParamTypeToolResult),
						ToolUseID: anthropic.F(msg.ToolCallID),
						Content: anthropic.F([]anthropic.ToolResultBlockParamContentUnion{
							anthropic.TextBlockParam{
								Type: anthropic.F(anthropic.TextBlockParamTypeText),
								Text: anthropic.F(msg.Content),
							},
						}),
					},
				}),
			})
		}
	}
	return out
}

func convertTools(defs []tool.Definition) []anthropic.ToolUnionUnionParam {
	out := make([]anthropic.ToolUnionUnionParam, len(defs))
	for i, def := range defs {
		out[i] = anthropic.ToolParam{
			Name:        anthropic.F(def.Name),
			Description: anthropic.F(def.Description),
			InputSchema: anthropic.F[interface{}](def.InputSchema),
		}
	}
	return out
}
