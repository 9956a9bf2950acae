package rerank

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const judgePromptTemplate = `Rerank the following snippets for relevance to the query.
Query: %q

Snippets:
%s

Return a JSON list in this exact format:
[
  {"index": 1, "score": 0.92},
  {"index": 2, "score": 0.33}
]
Do NOT include any text or explanation outside JSON.`

// OpenAIJudge scores candidate snippets with a chat model through the
// OpenAI-compatible API. The model output is returned raw; parsing it is
// the reranker's job.
type OpenAIJudge struct {
	client *openai.Client
	model  string
}

// NewOpenAIJudge creates a relevance judge using the given chat model.
func NewOpenAIJudge(client *openai.Client, model string) *OpenAIJudge {
	return &OpenAIJudge{client: client, model: model}
}

// Judge presents the query and a numbered snippet list to the model and
// returns its raw response.
func (j *OpenAIJudge) Judge(ctx context.Context, query string, snippets []string) (string, error) {
	numbered := make([]string, len(snippets))
	for i, s := range snippets {
		numbered[i] = fmt.Sprintf("%d. %s", i+1, s)
	}

	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(judgePromptTemplate, query, strings.Join(numbered, "\n")),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("relevance judgement failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return resp.Choices[0].Message.Content, nil
}
