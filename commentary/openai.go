package commentary

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/databricks/databricks-sdk-go"
	"github.com/sashabaranov/go-openai"

	"github.com/wfunc/trexbooth/config"
)

// OpenAICompleter talks to any OpenAI-compatible chat completions endpoint,
// including Databricks model serving.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAICompleter uses cfg.BaseURL and cfg.APIKey directly.
func NewOpenAICompleter(cfg config.LLMConfig, httpClient *http.Client) *OpenAICompleter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	clientCfg.HTTPClient = httpClient

	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.ServingEndpoint,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// NewDatabricksCompleter targets the workspace's serving endpoints and signs
// every request with the workspace credentials.
func NewDatabricksCompleter(w *databricks.WorkspaceClient, cfg config.LLMConfig) *OpenAICompleter {
	host := strings.TrimRight(w.Config.Host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	cfg.BaseURL = host + "/serving-endpoints"

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &workspaceAuthTransport{workspace: w, base: http.DefaultTransport},
	}
	return NewOpenAICompleter(cfg, httpClient)
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion on %s: %w", c.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

type workspaceAuthTransport struct {
	workspace *databricks.WorkspaceClient
	base      http.RoundTripper
}

func (t *workspaceAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	signed := req.Clone(req.Context())
	if err := t.workspace.Config.Authenticate(signed); err != nil {
		return nil, fmt.Errorf("authenticate serving request: %w", err)
	}
	return t.base.RoundTrip(signed)
}
