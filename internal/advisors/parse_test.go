package advisors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/boardview-ai/boardview/internal/domain"
)

func advisorsJSON(count int) string {
	var items []string
	for i := 1; i <= count; i++ {
		items = append(items, fmt.Sprintf(
			`{"id":"a%d","name":"Advisor %d","description":"d","style":"s","principles":"p","tone":"t"}`, i, i))
	}
	return `{"advisors":[` + strings.Join(items, ",") + `]}`
}

func TestParseAdvisors(t *testing.T) {
	got, err := parseAdvisors(advisorsJSON(domain.CandidateCount))
	if err != nil {
		t.Fatalf("parseAdvisors failed: %v", err)
	}
	if len(got) != domain.CandidateCount {
		t.Errorf("Expected %d advisors, got %d", domain.CandidateCount, len(got))
	}
	if got[0].ID != "a1" || got[0].Name != "Advisor 1" {
		t.Errorf("Expected first advisor a1, got %+v", got[0])
	}
}

func TestParseAdvisorsRejectsWrongCount(t *testing.T) {
	for _, count := range []int{0, 3, 4, 6} {
		if _, err := parseAdvisors(advisorsJSON(count)); err == nil {
			t.Errorf("Expected error for %d advisors, got nil", count)
		}
	}
}

func TestParseAdvisorsRejectsDuplicates(t *testing.T) {
	raw := `{"advisors":[
		{"id":"a1","name":"A"},{"id":"a1","name":"B"},
		{"id":"a3","name":"C"},{"id":"a4","name":"D"},{"id":"a5","name":"E"}]}`
	if _, err := parseAdvisors(raw); err == nil {
		t.Error("Expected error for duplicate ids, got nil")
	}
}

func TestParseAdvisorsRejectsEmptyID(t *testing.T) {
	raw := `{"advisors":[
		{"id":" ","name":"A"},{"id":"a2","name":"B"},
		{"id":"a3","name":"C"},{"id":"a4","name":"D"},{"id":"a5","name":"E"}]}`
	if _, err := parseAdvisors(raw); err == nil {
		t.Error("Expected error for blank id, got nil")
	}
}

func TestParseAdvisorsRejectsInvalidJSON(t *testing.T) {
	if _, err := parseAdvisors("not json"); err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

func requestedTrio() []domain.Advisor {
	return []domain.Advisor{
		{ID: "a1", Name: "Advisor 1"},
		{ID: "a2", Name: "Advisor 2"},
		{ID: "a3", Name: "Advisor 3"},
	}
}

func TestParsePanel(t *testing.T) {
	raw := `{"advisor_advices":[
		{"advisor_id":"a1","advice":"one"},
		{"advisor_id":"a2","advice":"two"},
		{"advisor_id":"a3","advice":"three"}],
		"synthesis":"together"}`

	panel, err := parsePanel(raw, requestedTrio())
	if err != nil {
		t.Fatalf("parsePanel failed: %v", err)
	}
	if panel.Synthesis != "together" {
		t.Errorf("Expected synthesis %q, got %q", "together", panel.Synthesis)
	}
	if len(panel.Advices) != 3 {
		t.Errorf("Expected 3 advices, got %d", len(panel.Advices))
	}
	if advice, ok := panel.AdviceFor("a2"); !ok || advice != "two" {
		t.Errorf("Expected advice for a2, got %q (ok=%v)", advice, ok)
	}
}

func TestParsePanelRejectsMissingAdvisor(t *testing.T) {
	raw := `{"advisor_advices":[
		{"advisor_id":"a1","advice":"one"},
		{"advisor_id":"a2","advice":"two"}],
		"synthesis":"together"}`

	if _, err := parsePanel(raw, requestedTrio()); err == nil {
		t.Error("Expected error for missing advisor, got nil")
	}
}

func TestParsePanelRejectsUnknownAdvisor(t *testing.T) {
	// A fourth persona the user never selected must fail the whole panel,
	// not be silently dropped or matched by name.
	raw := `{"advisor_advices":[
		{"advisor_id":"a1","advice":"one"},
		{"advisor_id":"a2","advice":"two"},
		{"advisor_id":"a3","advice":"three"},
		{"advisor_id":"a9","advice":"extra"}],
		"synthesis":"together"}`

	if _, err := parsePanel(raw, requestedTrio()); err == nil {
		t.Error("Expected error for unknown advisor id, got nil")
	}
}

func TestParsePanelRejectsDuplicateAdvisor(t *testing.T) {
	raw := `{"advisor_advices":[
		{"advisor_id":"a1","advice":"one"},
		{"advisor_id":"a1","advice":"again"},
		{"advisor_id":"a2","advice":"two"},
		{"advisor_id":"a3","advice":"three"}],
		"synthesis":"together"}`

	if _, err := parsePanel(raw, requestedTrio()); err == nil {
		t.Error("Expected error for duplicate advisor advice, got nil")
	}
}

func TestParsePanelRejectsEmptySynthesis(t *testing.T) {
	raw := `{"advisor_advices":[
		{"advisor_id":"a1","advice":"one"},
		{"advisor_id":"a2","advice":"two"},
		{"advisor_id":"a3","advice":"three"}],
		"synthesis":"  "}`

	if _, err := parsePanel(raw, requestedTrio()); err == nil {
		t.Error("Expected error for empty synthesis, got nil")
	}
}

func TestParseAnswer(t *testing.T) {
	answer, err := parseAnswer(`{"answer":"  go for it  "}`)
	if err != nil {
		t.Fatalf("parseAnswer failed: %v", err)
	}
	if answer != "go for it" {
		t.Errorf("Expected trimmed answer, got %q", answer)
	}

	if _, err := parseAnswer(`{"answer":""}`); err == nil {
		t.Error("Expected error for empty answer, got nil")
	}
}

func TestParseSummary(t *testing.T) {
	summary, err := parseSummary(`{"summary":"key aspects"}`)
	if err != nil {
		t.Fatalf("parseSummary failed: %v", err)
	}
	if summary != "key aspects" {
		t.Errorf("Expected summary %q, got %q", "key aspects", summary)
	}

	if _, err := parseSummary(`{}`); err == nil {
		t.Error("Expected error for missing summary, got nil")
	}
}
