package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// contentGenerator is the slice of *genai.Models the backend needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiBackend asks a Gemini model for the summary.
type GeminiBackend struct {
	models contentGenerator
	model  string
}

// NewGeminiBackend creates a genai client for apiKey.
func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("summary: gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("summary: create genai client: %w", err)
	}
	return newGeminiBackend(client.Models, model), nil
}

func newGeminiBackend(models contentGenerator, model string) *GeminiBackend {
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	return &GeminiBackend{models: models, model: model}
}

func (b *GeminiBackend) Name() string { return "gemini" }

func (b *GeminiBackend) Generate(ctx context.Context, projectName string, items []string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt(projectName, items), genai.RoleUser)}
	resp, err := b.models.GenerateContent(ctx, b.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.4),
		MaxOutputTokens:   256,
	})
	if err != nil {
		return "", fmt.Errorf("summary: gemini: %w", err)
	}
	if resp == nil {
		return "", errors.New("summary: gemini returned no response")
	}
	return resp.Text(), nil
}

const systemInstruction = "You write two-sentence scope summaries for a software and business services studio. " +
	"Be concrete, mention the project by name, and list the included services. No markdown."

func prompt(projectName string, items []string) string {
	project := strings.TrimSpace(projectName)
	if project == "" {
		project = "the client's project"
	}
	scope := "a core build"
	if len(items) > 0 {
		scope = strings.Join(items, "; ")
	}
	return fmt.Sprintf("Project: %s\nSelected services: %s\nWrite the summary.", project, scope)
}
