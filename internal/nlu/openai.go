package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

type OpenAI struct {
	client openai.Client
	model  openai.ChatModel
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	m := openai.ChatModel(model)
	if model == "" {
		m = openai.ChatModelGPT5Nano
	}
	return &OpenAI{client: client, model: m}
}

func (o *OpenAI) Resolve(ctx context.Context, utterance string, c Context) (Resolution, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(c)),
			openai.UserMessage(utterance),
		},
		Tools: openaiTools(),
		Model: o.model,
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Resolution{}, fmt.Errorf("no choices in response")
	}

	msg := resp.Choices[0].Message
	out := Resolution{Text: msg.Content}

	for _, tc := range msg.ToolCalls {
		call, err := decodeCall(tc.Function.Name, tc.Function.Arguments)
		if err != nil {
			return Resolution{}, err
		}
		out.Calls = append(out.Calls, call)
	}

	log.Debug("Resolved", "backend", "openai", "calls", len(out.Calls), "text", out.Text)
	return out, nil
}

func decodeCall(name, arguments string) (FunctionCall, error) {
	call := FunctionCall{Name: name, Args: map[string]any{}}
	if arguments == "" {
		return call, nil
	}
	if err := json.Unmarshal([]byte(arguments), &call.Args); err != nil {
		return FunctionCall{}, fmt.Errorf("unmarshal arguments of %s: %w (raw: %s)", name, err, arguments)
	}
	return call, nil
}

func openaiTools() []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		props := map[string]any{}
		for _, p := range t.Params {
			prop := map[string]any{"type": "string"}
			if p.Kind == kindNumber {
				prop["type"] = "number"
			}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			props[p.Name] = prop
		}

		out = append(out, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters: shared.FunctionParameters{
				"type":       "object",
				"properties": props,
				"required":   t.required(),
			},
		}))
	}
	return out
}
