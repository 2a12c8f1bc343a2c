package llm

import (
	"context"
	"os"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"
)

const (
	ollamaEnvVar       = "OLLAMA_HOST"
	defaultOllamaModel = "llama3.2"
)

// Ollama generates digests through a local Ollama server. The server
// address comes from OLLAMA_HOST, which doubles as the opt-in switch for
// provider auto-selection.
type Ollama struct {
	model     string
	maxTokens int
}

func newOllama(opts Options) *Ollama {
	o := &Ollama{model: defaultOllamaModel, maxTokens: defaultMaxTokens}
	if opts.Model != "" {
		o.model = opts.Model
	}
	if opts.MaxTokens > 0 {
		o.maxTokens = opts.MaxTokens
	}
	return o
}

func (o *Ollama) Name() string        { return "Ollama" }
func (o *Ollama) RequiredEnv() string { return ollamaEnvVar }
func (o *Ollama) Available() bool     { return os.Getenv(ollamaEnvVar) != "" }

func (o *Ollama) GenerateDigest(ctx context.Context, req Request) (string, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return "", errors.Wrap(err, "failed to create Ollama client")
	}

	chatReq := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt(req)},
			{Role: "user", Content: userPrompt(req)},
		},
		Options: map[string]any{
			"num_predict": o.maxTokens,
		},
	}

	var sb strings.Builder
	err = client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "Ollama API error")
	}
	if sb.Len() == 0 {
		return "", errors.New("Empty response from Ollama API")
	}
	return sb.String(), nil
}
