package guide

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"backend/trips"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

const (
	// MaxMessageLength caps a user message after trimming, in runes.
	MaxMessageLength = 2000

	historyWindow       = 30
	maxCompletionTokens = 1000
	completionTemp      = 0.8
)

const systemPrompt = `You are a friendly, knowledgeable local guide for a family road trip. You have deep knowledge of every destination on the route. Be opinionated - recommend specific restaurants, viewpoints, trails, and hidden gems. Keep responses concise and practical for a family trip. Use specific names and addresses when possible.

When giving recommendations:
- Mention if something needs reservations or advance booking
- Note approximate costs when relevant
- Flag anything that might be closed or seasonal
- Mention time estimates for activities
- Suggest the best time of day to visit places

Be warm, enthusiastic, and conversational. You're like a friend who's lived everywhere they're visiting. Use short paragraphs and bullet points for readability.

You also have the ability to take actions for the user: adding, changing, replacing or removing itinerary activities, adding checklist items, logging expenses, and recording payments between members. When a user asks for one of these, use the provided tools. The user will need to approve any action before it takes effect. Only call tools when the user clearly wants to add or change something - don't call tools just because you're making a recommendation.`

// StreamEvent is one frame sent to the client while a turn is streaming.
type StreamEvent struct {
	Delta  string  `json:"delta,omitempty"`
	Action *Action `json:"action,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Engine runs guide conversation turns against a completion provider.
type Engine struct {
	client openai.Client
	model  openai.ChatModel
}

// NewEngine builds an Engine for the given API key. An empty model selects the
// default. Extra request options are used by tests to point at a stub backend.
func NewEngine(apiKey, model string, opts ...option.RequestOption) *Engine {
	if model == "" {
		model = openai.ChatModelGPT4_1Nano
	}
	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Engine{
		client: openai.NewClient(options...),
		model:  openai.ChatModel(model),
	}
}

// NormalizeMessage trims and caps an inbound user message. The second return
// is false when nothing usable remains.
func NormalizeMessage(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if runes := []rune(trimmed); len(runes) > MaxMessageLength {
		trimmed = string(runes[:MaxMessageLength])
	}
	return trimmed, true
}

// RunTurn executes one conversation turn: it persists the user message, streams
// the completion, forwards text deltas through emit, accumulates tool-call
// fragments, and finally persists the assistant message together with any
// pending action.
//
// Errors before the stream opens are returned to the caller (nothing has been
// sent yet, so a plain error response is still possible). Once streaming has
// begun, failures are reported as an error frame through emit and RunTurn
// returns nil.
func (e *Engine) RunTurn(ctx context.Context, app core.App, trip *core.Record, user *core.Record, message string, emit func(StreamEvent) error) error {
	blocks, err := ContextBlocks(app, trip, user.Id)
	if err != nil {
		return fmt.Errorf("load trip context: %w", err)
	}

	history, err := conversationHistory(app, trip, user)
	if err != nil {
		return fmt.Errorf("load chat history: %w", err)
	}

	// The stored conversation has to reflect exactly what the model saw, so
	// the user message is persisted before the completion call is made.
	if err := saveChatMessage(app, trip, user.Id, "user", message, nil); err != nil {
		return fmt.Errorf("save user message: %w", err)
	}

	system := systemPrompt
	if len(blocks) > 0 {
		system += "\n\n" + strings.Join(blocks, "\n\n")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(system))
	messages = append(messages, history...)
	messages = append(messages, openai.UserMessage(message))

	params := openai.ChatCompletionNewParams{
		Model:       e.model,
		Messages:    messages,
		Tools:       Tools(),
		MaxTokens:   openai.Int(maxCompletionTokens),
		Temperature: openai.Float(completionTemp),
	}

	var full strings.Builder
	calls := newToolCallBuffer()
	toolTurn := false

	stream := e.client.Chat.Completions.NewStreaming(ctx, params)
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			full.WriteString(choice.Delta.Content)
			if err := emit(StreamEvent{Delta: choice.Delta.Content}); err != nil {
				return nil
			}
		}
		for _, tc := range choice.Delta.ToolCalls {
			calls.add(tc)
		}
		if choice.FinishReason == "tool_calls" {
			toolTurn = true
		}
	}
	if err := stream.Err(); err != nil {
		app.Logger().Error("guide completion stream failed", "error", err, "tripId", trip.Id)
		_ = emit(StreamEvent{Error: err.Error()})
		return nil
	}

	var action *Action
	if toolTurn {
		call, dropped := calls.first()
		if dropped > 0 {
			app.Logger().Debug("guide turn requested multiple tool calls, keeping the first", "dropped", dropped, "tripId", trip.Id)
		}
		switch {
		case call == nil:
			// finish reason claimed a tool call but none was accumulated
		case call.name == ToolBudgetSummary:
			if err := e.answerBudgetQuery(ctx, app, trip, messages, call, &full, emit); err != nil {
				app.Logger().Error("guide budget follow-up failed", "error", err, "tripId", trip.Id)
				_ = emit(StreamEvent{Error: err.Error()})
				return nil
			}
		default:
			action = BuildAction(call.name, call.args)
			if action != nil {
				description := action.ProposalText()
				full.WriteString(description)
				if err := emit(StreamEvent{Delta: description, Action: action}); err != nil {
					return nil
				}
			}
		}
	}

	if err := saveChatMessage(app, trip, user.Id, "assistant", full.String(), action); err != nil {
		app.Logger().Error("guide failed to save assistant message", "error", err, "tripId", trip.Id)
		_ = emit(StreamEvent{Error: "failed to save assistant message"})
	}
	return nil
}

// answerBudgetQuery resolves the read-only budget tool within the same turn:
// the summary is fed back to the model as a tool result and a second streaming
// call produces the user-facing answer.
func (e *Engine) answerBudgetQuery(ctx context.Context, app core.App, trip *core.Record, messages []openai.ChatCompletionMessageParamUnion, call *toolCall, full *strings.Builder, emit func(StreamEvent) error) error {
	summary, err := trips.SummarizeBudget(app, trip)
	if err != nil {
		return fmt.Errorf("summarize budget: %w", err)
	}
	result, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	followup := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+2)
	followup = append(followup, messages...)
	followup = append(followup, openai.ChatCompletionMessageParamUnion{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{
			ToolCalls: []openai.ChatCompletionMessageToolCallUnionParam{{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: call.id,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      call.name,
						Arguments: call.args,
					},
				},
			}},
		},
	})
	followup = append(followup, openai.ToolMessage(string(result), call.id))

	stream := e.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:       e.model,
		Messages:    followup,
		MaxTokens:   openai.Int(maxCompletionTokens),
		Temperature: openai.Float(completionTemp),
	})
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		full.WriteString(chunk.Choices[0].Delta.Content)
		if err := emit(StreamEvent{Delta: chunk.Choices[0].Delta.Content}); err != nil {
			return nil
		}
	}
	return stream.Err()
}

func conversationHistory(app core.App, trip *core.Record, user *core.Record) ([]openai.ChatCompletionMessageParamUnion, error) {
	records, err := app.FindRecordsByFilter(
		"chat_messages",
		"trip = {:trip} && user = {:user}",
		"-created", historyWindow, 0,
		dbx.Params{"trip": trip.Id, "user": user.Id},
	)
	if err != nil {
		return nil, err
	}

	// newest-first from the store, chronological for the model
	history := make([]openai.ChatCompletionMessageParamUnion, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		content := record.GetString("content")
		if content == "" {
			continue
		}
		switch record.GetString("role") {
		case "user":
			history = append(history, openai.UserMessage(content))
		case "assistant":
			history = append(history, openai.AssistantMessage(content))
		}
	}
	return history, nil
}

func saveChatMessage(app core.App, trip *core.Record, userID, role, content string, action *Action) error {
	collection, err := app.FindCollectionByNameOrId("chat_messages")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("trip", trip.Id)
	record.Set("user", userID)
	record.Set("role", role)
	record.Set("content", content)
	if action != nil {
		raw, err := json.Marshal(action)
		if err != nil {
			return err
		}
		record.Set("metadata", types.JSONRaw(raw))
	}
	return app.Save(record)
}

type toolCall struct {
	id   string
	name string
	args string
}

// toolCallBuffer accumulates streamed tool-call argument fragments keyed by
// the provider's tool-call index.
type toolCallBuffer struct {
	byIndex map[int64]*toolCall
	indexes []int64
}

func newToolCallBuffer() *toolCallBuffer {
	return &toolCallBuffer{byIndex: map[int64]*toolCall{}}
}

func (b *toolCallBuffer) add(tc openai.ChatCompletionChunkChoiceDeltaToolCall) {
	entry, ok := b.byIndex[tc.Index]
	if !ok {
		entry = &toolCall{}
		b.byIndex[tc.Index] = entry
		b.indexes = append(b.indexes, tc.Index)
	}
	if tc.ID != "" {
		entry.id = tc.ID
	}
	if tc.Function.Name != "" {
		entry.name = tc.Function.Name
	}
	entry.args += tc.Function.Arguments
}

// first returns the lowest-index call and how many additional calls were
// accumulated. Only the first call in a turn is materialized.
func (b *toolCallBuffer) first() (*toolCall, int) {
	if len(b.indexes) == 0 {
		return nil, 0
	}
	sort.Slice(b.indexes, func(i, j int) bool { return b.indexes[i] < b.indexes[j] })
	return b.byIndex[b.indexes[0]], len(b.indexes) - 1
}
