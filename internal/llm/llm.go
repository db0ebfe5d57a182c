package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Client summarizes commits with any OpenAI-compatible chat completion API.
// It stands in for Greptile when SUMMARIZER=openai.
type Client struct {
	client *openai.Client
	model  string
}

func NewClient(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

const systemPrompt = `You are a release engineer writing changelogs for the GitHub repository %s (branch %s).
You only see the commits and diffs given to you. Follow the formatting instructions in the user message exactly.`

// Summarize sends prompt as the user message. repo and branch only frame the
// system prompt; the model has no repository index. The reply is returned
// untouched; callers clean it with changelog.Clean.
func (c *Client) Summarize(ctx context.Context, repo, branch, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, repo, branch)},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM call for %s: %w", repo, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned for %s", repo)
	}

	return resp.Choices[0].Message.Content, nil
}
