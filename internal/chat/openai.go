package chat

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
)

const tutorPrompt = "You are a helpful, concise grammar tutor. Give a clear explanation " +
	"and one short example sentence. Answer in the language of the question."

// OpenAITutor answers grammar questions through OpenAI chat completions.
type OpenAITutor struct {
	client *openai.Client
	model  string
}

func NewOpenAITutor(apiKey, baseURL, model string) *OpenAITutor {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAITutor{client: openai.NewClientWithConfig(cfg), model: model}
}

func (t *OpenAITutor) Answer(ctx context.Context, query string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: tutorPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Temperature: 0.2,
		MaxTokens:   800,
	}

	start := time.Now()
	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Printf("openai-tutor: API call failed after %v: %v", time.Since(start), err)
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices in response")
	}
	log.Printf("openai-tutor: answered in %v", time.Since(start))
	return resp.Choices[0].Message.Content, nil
}
