package llm

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

const (
	geminiEnvVar       = "GEMINI_API_KEY"
	defaultGeminiModel = "gemini-2.0-flash"
)

// Gemini generates digests through Google's GenAI API.
type Gemini struct {
	model     string
	maxTokens int
}

func newGemini(opts Options) *Gemini {
	g := &Gemini{model: defaultGeminiModel, maxTokens: defaultMaxTokens}
	if opts.Model != "" {
		g.model = opts.Model
	}
	if opts.MaxTokens > 0 {
		g.maxTokens = opts.MaxTokens
	}
	return g
}

func (g *Gemini) Name() string        { return "Gemini" }
func (g *Gemini) RequiredEnv() string { return geminiEnvVar }
func (g *Gemini) Available() bool     { return os.Getenv(geminiEnvVar) != "" }

func (g *Gemini) GenerateDigest(ctx context.Context, req Request) (string, error) {
	apiKey := os.Getenv(geminiEnvVar)
	if apiKey == "" {
		return "", errors.Errorf("API key not found. Set %s environment variable.", geminiEnvVar)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to create Gemini client")
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens:   int32(g.maxTokens),
		SystemInstruction: genai.NewContentFromText(systemPrompt(req), genai.RoleUser),
	}
	contents := []*genai.Content{genai.NewContentFromText(userPrompt(req), genai.RoleUser)}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", errors.Wrap(err, "Gemini API error")
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("Empty response from Gemini API")
	}
	return text, nil
}
