package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"github.com/postworthy/postbot/internal/biz/domain"
	"github.com/postworthy/postbot/internal/biz/repo"
	"github.com/postworthy/postbot/internal/conf"
)

const analysisTimeout = 60 * time.Second

// analysisRepo implements repo.AnalysisRepo over an OpenAI-compatible
// chat completion API
type analysisRepo struct {
	client  *openai.Client
	model   string
	prompts *conf.PromptsConfig
}

// NewAnalysisRepo creates an analysis repository. baseURL may point at
// any OpenAI-compatible endpoint; empty uses the OpenAI default.
func NewAnalysisRepo(apiKey, baseURL, model string, prompts *conf.PromptsConfig) repo.AnalysisRepo {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if prompts == nil {
		prompts = conf.DefaultPromptsConfig()
	}
	return &analysisRepo{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		prompts: prompts,
	}
}

// Analyze submits a transcript and returns the model's judgment.
// Content-shape problems become a Suggestion with Error=true; only hard
// call failures return an error.
func (r *analysisRepo) Analyze(ctx context.Context, transcript string) (*domain.Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	userMsg := r.prompts.Analysis.TranscriptHeader + "\n\n" + transcript

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.prompts.Analysis.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return errorSuggestion("analysis model returned no choices"), nil
	}
	return parseSuggestion(resp.Choices[0].Message.Content), nil
}

// parseSuggestion converts raw model output into a Suggestion. Models
// sometimes wrap JSON in code fences; malformed content is folded into
// an error-flagged suggestion so the orchestrator always receives a
// well-formed value.
func parseSuggestion(raw string) *domain.Suggestion {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if cleaned == "" {
		return errorSuggestion("empty analysis response")
	}

	var out struct {
		IsPostWorthy  bool    `json:"isPostWorthy"`
		Reasoning     string  `json:"reasoning"`
		LinkedInDraft *string `json:"linkedInDraft"`
		XDraft        *string `json:"xDraft"`
	}
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return errorSuggestion(fmt.Sprintf("unparseable analysis response: %v", err))
	}

	s := &domain.Suggestion{
		IsPostWorthy: out.IsPostWorthy,
		Reasoning:    out.Reasoning,
	}
	if out.LinkedInDraft != nil {
		s.LinkedInDraft = strings.TrimSpace(*out.LinkedInDraft)
	}
	if out.XDraft != nil {
		s.XDraft = strings.TrimSpace(*out.XDraft)
	}
	return s
}

// stripCodeFence removes a surrounding ``` or ```json fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag line
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func errorSuggestion(reason string) *domain.Suggestion {
	return &domain.Suggestion{
		IsPostWorthy: false,
		Reasoning:    reason,
		Error:        true,
	}
}
