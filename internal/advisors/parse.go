package advisors

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boardview-ai/boardview/internal/domain"
)

// Wire payloads for the structured generation responses. Kept separate from
// domain types so schema drift in the collaborator surfaces here, as a
// generation failure, and nowhere else.

type advisorPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Style       string `json:"style"`
	Principles  string `json:"principles"`
	Tone        string `json:"tone"`
}

type advisorsPayload struct {
	Advisors []advisorPayload `json:"advisors"`
}

type advicePayload struct {
	AdvisorID string `json:"advisor_id"`
	Advice    string `json:"advice"`
}

type panelPayload struct {
	AdvisorAdvices []advicePayload `json:"advisor_advices"`
	Synthesis      string          `json:"synthesis"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type summaryPayload struct {
	Summary string `json:"summary"`
}

// parseAdvisors decodes and validates a candidate-advisor response. The
// candidate set must contain exactly domain.CandidateCount entries with
// unique, non-empty ids and names.
func parseAdvisors(raw string) ([]domain.Advisor, error) {
	var payload advisorsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode advisors response: %w", err)
	}

	if got := len(payload.Advisors); got != domain.CandidateCount {
		return nil, fmt.Errorf("expected %d advisors, got %d", domain.CandidateCount, got)
	}

	seen := make(map[string]bool, domain.CandidateCount)
	out := make([]domain.Advisor, 0, domain.CandidateCount)
	for i, a := range payload.Advisors {
		id := strings.TrimSpace(a.ID)
		name := strings.TrimSpace(a.Name)
		if id == "" || name == "" {
			return nil, fmt.Errorf("advisor %d has empty id or name", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate advisor id %q", id)
		}
		seen[id] = true
		out = append(out, domain.Advisor{
			ID:          id,
			Name:        name,
			Description: strings.TrimSpace(a.Description),
			Style:       a.Style,
			Principles:  a.Principles,
			Tone:        a.Tone,
		})
	}
	return out, nil
}

// parsePanel decodes and validates an advice-panel response against the
// requested advisor set. Every requested advisor must be covered exactly
// once; ids outside the request are rejected outright, never fuzzy-matched.
func parsePanel(raw string, requested []domain.Advisor) (*domain.AdvicePanel, error) {
	var payload panelPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode advice panel response: %w", err)
	}

	if strings.TrimSpace(payload.Synthesis) == "" {
		return nil, fmt.Errorf("advice panel has empty synthesis")
	}
	if len(payload.AdvisorAdvices) == 0 {
		return nil, fmt.Errorf("advice panel has no advisor advices")
	}

	wanted := make(map[string]bool, len(requested))
	for _, a := range requested {
		wanted[a.ID] = true
	}

	covered := make(map[string]bool, len(requested))
	panel := &domain.AdvicePanel{Synthesis: strings.TrimSpace(payload.Synthesis)}
	for _, adv := range payload.AdvisorAdvices {
		id := strings.TrimSpace(adv.AdvisorID)
		if !wanted[id] {
			return nil, fmt.Errorf("advice references unknown advisor id %q", id)
		}
		if covered[id] {
			return nil, fmt.Errorf("duplicate advice for advisor id %q", id)
		}
		if strings.TrimSpace(adv.Advice) == "" {
			return nil, fmt.Errorf("empty advice for advisor id %q", id)
		}
		covered[id] = true
		panel.Advices = append(panel.Advices, domain.AdvisorAdvice{
			AdvisorID: id,
			Text:      strings.TrimSpace(adv.Advice),
		})
	}

	for _, a := range requested {
		if !covered[a.ID] {
			return nil, fmt.Errorf("advice panel missing advisor id %q", a.ID)
		}
	}

	return panel, nil
}

// parseAnswer decodes a dialogue-continuation response.
func parseAnswer(raw string) (string, error) {
	var payload answerPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("decode dialogue response: %w", err)
	}
	answer := strings.TrimSpace(payload.Answer)
	if answer == "" {
		return "", fmt.Errorf("dialogue response has empty answer")
	}
	return answer, nil
}

// parseSummary decodes a situation-analysis response.
func parseSummary(raw string) (string, error) {
	var payload summaryPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("decode analysis response: %w", err)
	}
	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		return "", fmt.Errorf("analysis response has empty summary")
	}
	return summary, nil
}
