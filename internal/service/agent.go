// Package service provides business logic for the agent platform.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finbot-ai/agent-platform/internal/llm"
	"github.com/finbot-ai/agent-platform/internal/model"
	"github.com/finbot-ai/agent-platform/internal/store"
	"github.com/finbot-ai/agent-platform/internal/tool"
	"github.com/finbot-ai/agent-platform/pkg/logger"
	"github.com/finbot-ai/agent-platform/pkg/metrics"
)

// ErrMaxIterations is returned when a turn exceeds the configured tool
// iteration cap.
var ErrMaxIterations = errors.New("maximum tool iterations exceeded")

// Emitter receives stream events in emission order. Implementations must
// deliver each event before returning; a returned error aborts the turn.
type Emitter func(event model.StreamEvent) error

// AgentService runs the streaming tool-calling loop: it consults the
// model over the transcript, forwards text deltas as they arrive, executes
// requested tools, feeds their results back into the model's context, and
// repeats until the model answers without tools or the iteration cap hits.
type AgentService struct {
	store         store.Store
	registry      *tool.Registry
	llmClient     llm.Client
	maxIterations int
	logger        *logger.Logger
}

// NewAgentService creates a new agent service.
func NewAgentService(
	st store.Store,
	registry *tool.Registry,
	llmClient llm.Client,
	maxIterations int,
	log *logger.Logger,
) *AgentService {
	if maxIterations <= 0 {
		maxIterations = 8
	}
	return &AgentService{
		store:         st,
		registry:      registry,
		llmClient:     llmClient,
		maxIterations: maxIterations,
		logger:        log,
	}
}

const completeNote = "Use this conversation_id in your next request to continue the conversation"

// StreamChat executes one chat turn. Exactly one terminal event
// (message_complete or error) is emitted unless the client context is
// canceled first, in which case emission stops entirely. Transcript
// commits are per completed iteration: a failed iteration commits nothing.
func (s *AgentService) StreamChat(ctx context.Context, req *model.ChatRequest, emit Emitter) error {
	conv, isNew, err := s.store.GetOrCreate(req.ConversationID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	convID := conv.ID
	if isNew {
		metrics.ConversationsTotal.Inc()
	}

	userMsg := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      model.RoleUser,
		Content:   req.Message,
		CreatedAt: time.Now(),
	}
	if err := s.store.Append(convID, userMsg); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()

	if err := emit(model.StreamEvent{Type: model.EventStreamStart, Data: model.StreamStartData{
		ConversationID:    convID,
		MessageCount:      len(conv.Messages) + 1,
		IsNewConversation: isNew,
	}}); err != nil {
		return err
	}

	system := req.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	var tools []tool.Definition
	if req.Tools() {
		tools = s.registry.Definitions()
	}

	log := s.logger.WithConversation(convID)
	log.Info("starting tool calling loop",
		zap.Bool("new_conversation", isNew),
		zap.Int("tools", len(tools)),
	)

	iteration := 0
	for {
		iteration++
		if iteration > s.maxIterations {
			log.Warn("iteration cap exceeded", zap.Int("max_iterations", s.maxIterations))
			emitErr := emit(model.StreamEvent{Type: model.EventError, Data: model.ErrorData{
				Error:          fmt.Sprintf("%v (max_iterations=%d)", ErrMaxIterations, s.maxIterations),
				ConversationID: convID,
				Iteration:      iteration - 1,
			}})
			if emitErr != nil {
				return emitErr
			}
			return ErrMaxIterations
		}

		snapshot, err := s.store.Get(convID)
		if err != nil {
			return s.fail(emit, convID, iteration, fmt.Errorf("load transcript: %w", err))
		}

		if err := emit(model.StreamEvent{Type: model.EventMessageStart, Data: model.MessageStartData{
			ConversationID: convID,
			Iteration:      iteration,
		}}); err != nil {
			return err
		}

		streamStart := time.Now()
		result, err := s.llmClient.StreamTurn(ctx, &llm.TurnRequest{
			System:      system,
			Messages:    snapshot.Messages,
			Tools:       tools,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		}, func(text string, _ int) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return emit(model.StreamEvent{Type: model.EventTextDelta, Data: model.TextDeltaData{
				Text:           text,
				ConversationID: convID,
			}})
		})
		if err != nil {
			if ctx.Err() != nil {
				// Client disconnected; the turn stops with the last
				// committed iteration and no further events.
				log.Info("turn canceled", zap.Int("iteration", iteration))
				return ctx.Err()
			}
			metrics.RecordLLMStream(s.llmClient.Name(), "error", time.Since(streamStart).Seconds(), 0, 0)
			return s.fail(emit, convID, iteration, fmt.Errorf("model stream failed: %w", err))
		}
		metrics.RecordLLMStream(result.Model, "success", time.Since(streamStart).Seconds(), result.TokensIn, result.TokensOut)

		assistantMsg := buildAssistantMessage(result)

		if len(result.ToolCalls) == 0 {
			if err := s.store.Append(convID, assistantMsg); err != nil {
				return s.fail(emit, convID, iteration, fmt.Errorf("append assistant message: %w", err))
			}
			metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
			metrics.LoopIterations.Observe(float64(iteration))

			log.Info("turn complete", zap.Int("iterations", iteration))
			return emit(model.StreamEvent{Type: model.EventMessageComplete, Data: model.MessageCompleteData{
				ConversationID: convID,
				IterationsUsed: iteration,
				TotalMessages:  len(snapshot.Messages) + 1,
				Note:           completeNote,
			}})
		}

		// Execute requested tools in declared order, then commit the
		// whole iteration atomically with respect to the transcript.
		toolMessages := make([]model.Message, 0, len(result.ToolCalls))
		for _, call := range result.ToolCalls {
			select {
			case <-ctx.Done():
				log.Info("turn canceled during tool execution", zap.Int("iteration", iteration))
				return ctx.Err()
			default:
			}

			if err := emit(model.StreamEvent{Type: model.EventToolCall, Data: model.ToolCallData{
				ToolName:       call.Name,
				ToolID:         call.ID,
				ConversationID: convID,
			}}); err != nil {
				return err
			}

			toolResult := s.executeTool(ctx, call)
			log.Info("tool executed",
				zap.String("tool", call.Name),
				zap.Bool("success", toolResult.Success),
			)

			if err := emit(model.StreamEvent{Type: model.EventToolResult, Data: model.ToolResultData{
				ToolName:       call.Name,
				ToolID:         call.ID,
				Success:        toolResult.Success,
				Result:         toolResult.Result,
				ConversationID: convID,
			}}); err != nil {
				return err
			}

			toolMessages = append(toolMessages, model.Message{
				ID:         uuid.Must(uuid.NewV7()).String(),
				Role:       model.RoleTool,
				Content:    renderToolContent(toolResult),
				ToolCallID: call.ID,
				CreatedAt:  time.Now(),
			})
		}

		if err := s.store.Append(convID, assistantMsg); err != nil {
			return s.fail(emit, convID, iteration, fmt.Errorf("append assistant message: %w", err))
		}
		metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
		for _, msg := range toolMessages {
			if err := s.store.Append(convID, msg); err != nil {
				return s.fail(emit, convID, iteration, fmt.Errorf("append tool message: %w", err))
			}
			metrics.MessagesTotal.WithLabelValues(string(model.RoleTool)).Inc()
		}
	}
}

// fail emits a single error event and returns the loop error. Emission
// failures take precedence so the caller sees the broken transport.
func (s *AgentService) fail(emit Emitter, convID string, iteration int, err error) error {
	s.logger.WithConversation(convID).Error("turn failed",
		zap.Int("iteration", iteration),
		zap.Error(err),
	)
	if emitErr := emit(model.StreamEvent{Type: model.EventError, Data: model.ErrorData{
		Error:          err.Error(),
		ConversationID: convID,
		Iteration:      iteration,
	}}); emitErr != nil {
		return emitErr
	}
	return err
}

// executeTool resolves, validates, and runs one tool call. All failures at
// this boundary become failed results visible to the model, never loop
// aborts.
func (s *AgentService) executeTool(ctx context.Context, call model.ToolCall) model.ToolResult {
	t, err := s.registry.Resolve(call.Name)
	if err != nil {
		metrics.ToolExecutionsTotal.WithLabelValues(call.Name, "error").Inc()
		return failedResult(call.ID, nil, err)
	}

	if err := tool.ValidateInput(t.Definition(), call.Input); err != nil {
		metrics.ToolExecutionsTotal.WithLabelValues(call.Name, "error").Inc()
		return failedResult(call.ID, nil, err)
	}

	payload, err := t.Execute(ctx, call.Input)
	if err != nil {
		metrics.ToolExecutionsTotal.WithLabelValues(call.Name, "error").Inc()
		return failedResult(call.ID, payload, err)
	}

	metrics.ToolExecutionsTotal.WithLabelValues(call.Name, "success").Inc()
	return model.ToolResult{
		ToolCallID: call.ID,
		Result:     payload,
		Success:    true,
	}
}

func failedResult(callID string, payload any, err error) model.ToolResult {
	result := payload
	if m, ok := payload.(map[string]any); ok {
		m["error"] = err.Error()
	} else if payload == nil {
		result = err.Error()
	}
	return model.ToolResult{
		ToolCallID: callID,
		Result:     result,
		Success:    false,
		Error:      err.Error(),
	}
}

func buildAssistantMessage(result *llm.TurnResult) model.Message {
	var blocks []model.ContentBlock
	if strings.TrimSpace(result.Text) != "" {
		blocks = append(blocks, model.ContentBlock{
			Type: model.BlockTypeText,
			Text: result.Text,
		})
	}
	for _, call := range result.ToolCalls {
		blocks = append(blocks, model.ContentBlock{
			Type:  model.BlockTypeToolUse,
			ID:    call.ID,
			Name:  call.Name,
			Input: call.Input,
		})
	}

	msg := model.Message{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Role:       model.RoleAssistant,
		Content:    result.Text,
		Blocks:     blocks,
		CreatedAt:  time.Now(),
		Model:      &result.Model,
		TokensIn:   &result.TokensIn,
		TokensOut:  &result.TokensOut,
		StopReason: &result.StopReason,
		LatencyMs:  &result.LatencyMs,
	}
	if len(result.ToolCalls) > 0 {
		msg.ToolCalls = result.ToolCalls
	}
	return msg
}

// renderToolContent formats a tool result for the model's context. Results
// carrying a formatted_result string use it verbatim; other structured
// payloads are serialized as indented JSON.
func renderToolContent(result model.ToolResult) string {
	if m, ok := result.Result.(map[string]any); ok {
		if formatted, ok := m["formatted_result"].(string); ok {
			return formatted
		}
		if encoded, err := json.MarshalIndent(m, "", "  "); err == nil {
			return string(encoded)
		}
	}
	return fmt.Sprintf("%v", result.Result)
}
