package advisors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/boardview-ai/boardview/internal/domain"
)

// GeminiGenerator implements Generator against the Gemini API with
// structured JSON output.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiGenerator creates a generator backed by the Gemini API.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// generate runs one structured-output call. A finite timeout is always
// applied so a hung generation call fails instead of blocking a user forever.
func (g *GeminiGenerator) generate(ctx context.Context, system, prompt string, schema *genai.Schema) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    schema,
		},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	slog.Debug("generation call completed", "model", g.model, "duration", time.Since(start), "response_len", len(text))
	return text, nil
}

// SelectAdvisors generates the candidate advisor set for a situation.
func (g *GeminiGenerator) SelectAdvisors(ctx context.Context, situation string) ([]domain.Advisor, error) {
	raw, err := g.generate(ctx, selectAdvisorsSystem, selectAdvisorsPrompt(situation), advisorsSchema())
	if err != nil {
		return nil, domain.NewGenerationError("select advisors", err)
	}
	advisorsList, err := parseAdvisors(raw)
	if err != nil {
		return nil, domain.NewGenerationError("select advisors", err)
	}
	return advisorsList, nil
}

// GenerateAdvicePanel produces advice from the selected trio plus a synthesis.
func (g *GeminiGenerator) GenerateAdvicePanel(ctx context.Context, situation string, selected []domain.Advisor) (*domain.AdvicePanel, error) {
	if len(selected) != domain.RequiredSelections {
		return nil, domain.NewGenerationError("advice panel",
			fmt.Errorf("expected %d selected advisors, got %d", domain.RequiredSelections, len(selected)))
	}

	raw, err := g.generate(ctx, advicePanelSystem, advicePanelPrompt(situation, selected), panelSchema())
	if err != nil {
		return nil, domain.NewGenerationError("advice panel", err)
	}
	panel, err := parsePanel(raw, selected)
	if err != nil {
		return nil, domain.NewGenerationError("advice panel", err)
	}
	return panel, nil
}

// ContinueDialogue answers a follow-up question against the history.
func (g *GeminiGenerator) ContinueDialogue(ctx context.Context, history []domain.Turn, question string) (string, error) {
	raw, err := g.generate(ctx, continueDialogueSystem, continueDialoguePrompt(history, question), answerSchema())
	if err != nil {
		return "", domain.NewGenerationError("continue dialogue", err)
	}
	answer, err := parseAnswer(raw)
	if err != nil {
		return "", domain.NewGenerationError("continue dialogue", err)
	}
	return answer, nil
}

// AnalyzeSituation summarizes the key aspects of a situation.
func (g *GeminiGenerator) AnalyzeSituation(ctx context.Context, situation string) (string, error) {
	raw, err := g.generate(ctx, analyzeSituationSystem, analyzeSituationPrompt(situation), summarySchema())
	if err != nil {
		return "", domain.NewGenerationError("analyze situation", err)
	}
	summary, err := parseSummary(raw)
	if err != nil {
		return "", domain.NewGenerationError("analyze situation", err)
	}
	return summary, nil
}

func advisorsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"advisors": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":          {Type: genai.TypeString},
						"name":        {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"style":       {Type: genai.TypeString},
						"principles":  {Type: genai.TypeString},
						"tone":        {Type: genai.TypeString},
					},
					Required: []string{"id", "name", "description", "style", "principles", "tone"},
				},
			},
		},
		Required: []string{"advisors"},
	}
}

func panelSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"advisor_advices": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"advisor_id": {Type: genai.TypeString},
						"advice":     {Type: genai.TypeString},
					},
					Required: []string{"advisor_id", "advice"},
				},
			},
			"synthesis": {Type: genai.TypeString},
		},
		Required: []string{"advisor_advices", "synthesis"},
	}
}

func answerSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"answer": {Type: genai.TypeString},
		},
		Required: []string{"answer"},
	}
}

func summarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {Type: genai.TypeString},
		},
		Required: []string{"summary"},
	}
}
