package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/conversation"
	openai "github.com/sashabaranov/go-openai"
)

const openaiLogPrefix = "llm:openai"

// OpenAIClient calls the OpenAI chat completions API with function tools.
type OpenAIClient struct {
	api       *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIClient creates an OpenAI client. baseURL may be empty for the public API.
func NewOpenAIClient(apiKey, baseURL, model string, maxTokens int) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		api:       openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, turns []conversation.Turn, tools []catalog.Descriptor) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toOpenAIMessages(turns),
		MaxTokens: c.maxTokens,
	}
	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
		req.ToolChoice = "auto"
		req.ParallelToolCalls = false
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s - chat completion failed: %w", openaiLogPrefix, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &MalformedError{Reason: "no choices in response"}
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return newResponse(msg.Content, nil)
	}
	if len(msg.ToolCalls) > 1 {
		slog.Warn(fmt.Sprintf("%s - model returned %d tool calls, using the first", openaiLogPrefix, len(msg.ToolCalls)))
	}
	tc := msg.ToolCalls[0]
	args, err := ParseArguments([]byte(tc.Function.Arguments))
	if err != nil {
		return nil, err
	}
	return newResponse("", &Call{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
}

func toOpenAIMessages(turns []conversation.Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		switch t.Kind {
		case conversation.KindSystem:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: t.Text})
		case conversation.KindUser:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.Text})
		case conversation.KindAssistantText:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.Text})
		case conversation.KindAssistantCallRequest:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   t.CallID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      t.Capability,
						Arguments: t.ArgumentsJSON(),
					},
				}},
			})
		case conversation.KindCapabilityResult:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(t.Result),
				ToolCallID: t.CallID,
			})
		}
	}
	return msgs
}

func toOpenAITools(descs []catalog.Descriptor) []openai.Tool {
	tools := make([]openai.Tool, len(descs))
	for i, d := range descs {
		tools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		}
	}
	return tools
}

var _ Client = (*OpenAIClient)(nil)
