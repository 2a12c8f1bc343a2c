package llm

import (
	"context"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
)

const (
	claudeEnvVar       = "ANTHROPIC_API_KEY"
	defaultClaudeModel = "claude-sonnet-4-20250514"
)

// Claude generates digests through Anthropic's Messages API.
type Claude struct {
	model     string
	maxTokens int
}

func newClaude(opts Options) *Claude {
	c := &Claude{model: defaultClaudeModel, maxTokens: defaultMaxTokens}
	if opts.Model != "" {
		c.model = opts.Model
	}
	if opts.MaxTokens > 0 {
		c.maxTokens = opts.MaxTokens
	}
	return c
}

func (c *Claude) Name() string        { return "Claude" }
func (c *Claude) RequiredEnv() string { return claudeEnvVar }
func (c *Claude) Available() bool     { return os.Getenv(claudeEnvVar) != "" }

func (c *Claude) GenerateDigest(ctx context.Context, req Request) (string, error) {
	apiKey := os.Getenv(claudeEnvVar)
	if apiKey == "" {
		return "", errors.Errorf("API key not found. Set %s environment variable.", claudeEnvVar)
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: systemPrompt(req)}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req))),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "Claude API error")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("Empty response from Claude API")
	}
	return sb.String(), nil
}
