package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/PabloGalante/ledger/internal/domain"
	"github.com/PabloGalante/ledger/internal/observability"
)

// GeminiConfig selects the Gemini backend. An empty APIKey means Vertex AI
// with Project and Location.
type GeminiConfig struct {
	Project     string
	Location    string
	APIKey      string
	ModelName   string
	Temperature float32
}

type GeminiClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

// NewGeminiClient creates a streaming ChatBackend based on Gemini.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	if cfg.APIKey != "" {
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	} else {
		if cfg.Project == "" || cfg.Location == "" {
			return nil, fmt.Errorf("gcp project and location are required for Vertex AI")
		}
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := cfg.ModelName
	if model == "" {
		model = "gemini-2.5-flash-lite"
	}

	return &GeminiClient{
		client:      client,
		modelName:   model,
		temperature: cfg.Temperature,
	}, nil
}

func toContents(conv domain.Conversation) []*genai.Content {
	contents := make([]*genai.Content, 0, len(conv))
	for _, m := range conv {
		var role genai.Role
		switch m.Role {
		case domain.RoleAssistant:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(m.Text(), role))
	}
	return contents
}

// StreamReply implements domain.ChatBackend.
func (g *GeminiClient) StreamReply(ctx context.Context, req domain.ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if len(req.Messages) == 0 {
			yield("", errors.New("gemini: empty conversation"))
			return
		}

		temp := g.temperature
		cfg := &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
			Temperature:       &temp,
		}

		log := observability.LoggerFromContext(ctx)
		chunks := 0
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.modelName, toContents(req.Messages), cfg) {
			if err != nil {
				log.Warn("gemini stream failed", zap.Int("chunks", chunks), zap.Error(err))
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			chunks++
			if !yield(text, nil) {
				return
			}
		}
		log.Debug("gemini stream complete", zap.String("model", g.modelName), zap.Int("chunks", chunks))
	}
}
