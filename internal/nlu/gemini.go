package nlu

import (
	"context"
	"fmt"
	log "log/slog"
	"net/http"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type GeminiConfig struct {
	APIKey string
	// Project and Location select the Vertex AI backend when APIKey is empty.
	Project    string
	Location   string
	Model      string
	HTTPClient *http.Client
}

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{HTTPClient: cfg.HTTPClient}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "" && cfg.Location != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("gemini: either an API key or project and location must be set")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Resolve(ctx context.Context, utterance string, c Context) (Resolution, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt(c), genai.RoleUser),
		Tools:             []*genai.Tool{{FunctionDeclarations: geminiDeclarations()}},
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(utterance), cfg)
	if err != nil {
		return Resolution{}, fmt.Errorf("gemini generate content: %w", err)
	}

	var out Resolution
	for _, fc := range res.FunctionCalls() {
		out.Calls = append(out.Calls, FunctionCall{Name: fc.Name, Args: fc.Args})
	}
	if len(res.Candidates) > 0 {
		out.Text = res.Text()
	}

	log.Debug("Resolved", "backend", "gemini", "calls", len(out.Calls), "text", out.Text)
	return out, nil
}

func geminiDeclarations() []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{},
		}
		for _, p := range t.Params {
			ps := &genai.Schema{Description: p.Description, Enum: p.Enum}
			switch p.Kind {
			case kindNumber:
				ps.Type = genai.TypeNumber
			default:
				ps.Type = genai.TypeString
			}
			schema.Properties[p.Name] = ps
		}
		if req := t.required(); len(req) > 0 {
			schema.Required = req
		}

		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return decls
}
