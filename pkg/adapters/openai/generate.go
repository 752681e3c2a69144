package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const classifyTool = "select_option"

var (
	// ErrEmptyCompletion is returned when the service answers without choices.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrInvalidChoice is returned when a classification is outside the allowed options.
	ErrInvalidChoice = errors.New("classification outside allowed options")
)

var _ ports.TextGenerator = (*Client)(nil)

// Generate runs a chat completion.
func (c *Client) Generate(ctx context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    chatMessages(req.System, req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := retry(ctx, c, "chat", func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return c.api.CreateChatCompletion(ctx, chatReq)
	})
	if err != nil {
		return ports.Completion{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.Completion{}, ErrEmptyCompletion
	}

	c.logger.Debug("Chat completion",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return ports.Completion{Content: resp.Choices[0].Message.Content, Model: resp.Model}, nil
}

// Classify forces a single function call whose only parameter is an enum of
// req.Options, so the answer is schema constrained rather than parsed from prose.
func (c *Client) Classify(ctx context.Context, req ports.ClassificationRequest) (string, error) {
	if len(req.Options) == 0 {
		return "", fmt.Errorf("%w: no options", ErrInvalidChoice)
	}

	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"choice": {
				Type:        jsonschema.String,
				Enum:        req.Options,
				Description: req.Description,
			},
		},
		Required: []string{"choice"},
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: chatMessages(req.System, []domain.Message{domain.UserMessage(req.Input)}),
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        classifyTool,
				Description: "Select exactly one option.",
				Parameters:  params,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: classifyTool},
		},
	}

	resp, err := retry(ctx, c, "classify", func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return c.api.CreateChatCompletion(ctx, chatReq)
	})
	if err != nil {
		return "", fmt.Errorf("classification failed: %w", err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return "", ErrEmptyCompletion
	}

	var args struct {
		Choice string `json:"choice"`
	}
	call := resp.Choices[0].Message.ToolCalls[0]
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return "", fmt.Errorf("failed to parse %s arguments: %w", call.Function.Name, err)
	}
	choice := strings.TrimSpace(args.Choice)
	if !slices.Contains(req.Options, choice) {
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}
	return choice, nil
}

func chatMessages(system string, msgs []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case domain.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case domain.RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
