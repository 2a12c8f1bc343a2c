package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Request carries everything one digest generation needs.
type Request struct {
	// Transcript is the message log formatted channel by channel.
	Transcript   string
	ServerName   string
	ChannelCount int
	MessageCount int
	// TimeRange is the human-readable window, e.g.
	// "2024-01-01 10:00 UTC to 2024-01-01 16:00 UTC".
	TimeRange string
	// SystemPrompt overrides the built-in digest instructions when the
	// user picked a digest style. Empty selects the default.
	SystemPrompt string
}

// PromptSize is the combined character count of the prompts this request
// would send. Dry runs report it so the user can judge cost beforehand.
func (r Request) PromptSize() int {
	return len(systemPrompt(r)) + len(userPrompt(r))
}

// Provider generates a Markdown digest from a formatted transcript.
type Provider interface {
	// Name is the display name, e.g. "Claude".
	Name() string
	// RequiredEnv names the environment variable holding the credential.
	RequiredEnv() string
	// Available reports whether the provider is configured.
	Available() bool
	GenerateDigest(ctx context.Context, req Request) (string, error)
}

// Options tunes provider construction. Zero values select the
// per-provider defaults.
type Options struct {
	Model     string
	MaxTokens int
}

const defaultMaxTokens = 4096

// newProviders returns every known provider in auto-select preference
// order.
func newProviders(opts Options) []Provider {
	return []Provider{
		newClaude(opts),
		newOpenAI(opts),
		newGemini(opts),
		newOllama(opts),
	}
}

// Select returns the named provider, or auto-selects the first available
// one when name is empty.
func Select(name string, opts Options) (Provider, error) {
	providers := newProviders(opts)

	if name != "" {
		name = strings.ToLower(name)
		for _, p := range providers {
			if strings.ToLower(p.Name()) != name {
				continue
			}
			if !p.Available() {
				return nil, errors.Errorf(
					"Provider '%s' is not available. Please set the required API key: %s",
					name, p.RequiredEnv())
			}
			return p, nil
		}
		keys := make([]string, 0, len(providers))
		for _, p := range providers {
			keys = append(keys, strings.ToLower(p.Name()))
		}
		return nil, errors.Errorf("Unknown provider '%s'. Available: %s", name, strings.Join(keys, ", "))
	}

	for _, p := range providers {
		if p.Available() {
			return p, nil
		}
	}
	return nil, errors.New(
		"No LLM provider available. Please set one of: ANTHROPIC_API_KEY (for Claude), " +
			"OPENAI_API_KEY (for OpenAI), GEMINI_API_KEY (for Gemini), " +
			"or OLLAMA_HOST (for a local Ollama server)")
}

const defaultSystemPrompt = "You are a helpful assistant that creates concise, well-organized " +
	"digests of Discord server conversations.\n\n" +
	"Your task is to analyze the provided Discord messages and create a " +
	"comprehensive yet readable digest in Markdown format.\n\n" +
	"Guidelines:\n" +
	"1. Organize by themes/topics rather than by channel when possible\n" +
	"2. Highlight important discussions, decisions, and announcements\n" +
	"3. Note any questions that were asked but not answered\n" +
	"4. Identify action items or follow-ups mentioned\n" +
	"5. Keep the digest concise but informative\n" +
	"6. Use bullet points and headers for readability\n" +
	"7. Include relevant usernames when attributing specific statements\n" +
	"8. If there are no messages or minimal activity, state that clearly\n\n" +
	"Output format should be clean Markdown suitable for reading."

func systemPrompt(req Request) string {
	if req.SystemPrompt != "" {
		return req.SystemPrompt
	}
	return defaultSystemPrompt
}

func userPrompt(req Request) string {
	return fmt.Sprintf(`Please create a digest for the Discord server "%s".

Time period: %s
Channels with activity: %d
Total messages: %d

Here are the messages organized by channel:

%s

Please create a well-organized digest of this activity.`,
		req.ServerName, req.TimeRange, req.ChannelCount, req.MessageCount, req.Transcript)
}
