package llm

import (
	"context"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/responses"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkg/errors"
)

const (
	openaiEnvVar       = "OPENAI_API_KEY"
	defaultOpenAIModel = "gpt-4o"
)

// OpenAI generates digests through the Responses API.
type OpenAI struct {
	model     string
	maxTokens int
}

func newOpenAI(opts Options) *OpenAI {
	o := &OpenAI{model: defaultOpenAIModel, maxTokens: defaultMaxTokens}
	if opts.Model != "" {
		o.model = opts.Model
	}
	if opts.MaxTokens > 0 {
		o.maxTokens = opts.MaxTokens
	}
	return o
}

func (o *OpenAI) Name() string        { return "OpenAI" }
func (o *OpenAI) RequiredEnv() string { return openaiEnvVar }
func (o *OpenAI) Available() bool     { return os.Getenv(openaiEnvVar) != "" }

func (o *OpenAI) GenerateDigest(ctx context.Context, req Request) (string, error) {
	apiKey := os.Getenv(openaiEnvVar)
	if apiKey == "" {
		return "", errors.Errorf("API key not found. Set %s environment variable.", openaiEnvVar)
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	inputItems := responses.ResponseInputParam{
		responses.ResponseInputItemParamOfMessage(systemPrompt(req), responses.EasyInputMessageRoleSystem),
		responses.ResponseInputItemParamOfMessage(userPrompt(req), responses.EasyInputMessageRoleUser),
	}

	resp, err := client.Responses.New(ctx, responses.ResponseNewParams{
		Input:           responses.ResponseNewParamsInputUnion{OfInputItemList: inputItems},
		Model:           shared.ChatModel(o.model),
		MaxOutputTokens: openai.Int(int64(o.maxTokens)),
	})
	if err != nil {
		return "", errors.Wrap(err, "OpenAI API error")
	}

	text := resp.OutputText()
	if text == "" {
		return "", errors.New("Empty response from OpenAI API")
	}
	return text, nil
}
