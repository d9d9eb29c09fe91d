package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/conversation"
)

const anthropicLogPrefix = "llm:anthropic"

// AnthropicClient calls the Anthropic Messages API with tool use.
type AnthropicClient struct {
	api       anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicClient creates an Anthropic client. Extra request options (base
// URL, HTTP client) are passed through to the SDK.
func NewAnthropicClient(apiKey, model string, maxTokens int, opts ...option.RequestOption) *AnthropicClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &AnthropicClient{
		api:       anthropic.NewClient(opts...),
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
	}
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, turns []conversation.Turn, tools []catalog.Descriptor) (*Response, error) {
	system, messages := toAnthropicMessages(turns)
	resp, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  messages,
		Tools:     toAnthropicTools(tools),
	})
	if err != nil {
		return nil, fmt.Errorf("%s - messages request failed: %w", anthropicLogPrefix, err)
	}

	var text string
	var call *Call
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += variant.Text
		case anthropic.ToolUseBlock:
			if call != nil {
				slog.Warn(fmt.Sprintf("%s - ignoring extra tool_use block %s", anthropicLogPrefix, variant.Name))
				continue
			}
			args, err := ParseArguments(variant.Input)
			if err != nil {
				return nil, err
			}
			call = &Call{ID: variant.ID, Name: variant.Name, Arguments: args}
		}
	}
	return newResponse(text, call)
}

func toAnthropicMessages(turns []conversation.Turn) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		switch t.Kind {
		case conversation.KindSystem:
			system = append(system, anthropic.TextBlockParam{Text: t.Text})
		case conversation.KindUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		case conversation.KindAssistantText:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		case conversation.KindAssistantCallRequest:
			messages = append(messages, anthropic.NewAssistantMessage(
				anthropic.NewToolUseBlock(t.CallID, t.Arguments, t.Capability)))
		case conversation.KindCapabilityResult:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(t.CallID, string(t.Result), false)))
		}
	}
	return system, messages
}

func toAnthropicTools(descs []catalog.Descriptor) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(descs))
	for i, d := range descs {
		tools[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: anthropic.String(d.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: d.Parameters["properties"],
					Required:   requiredNames(d.Parameters),
				},
			},
		}
	}
	return tools
}

var _ Client = (*AnthropicClient)(nil)
