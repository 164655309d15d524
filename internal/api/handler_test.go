package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boardview-ai/boardview/internal/domain"
)

type fakeGenerator struct {
	selectErr error
	panelErr  error
}

func (f *fakeGenerator) SelectAdvisors(_ context.Context, _ string) ([]domain.Advisor, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	out := make([]domain.Advisor, 0, domain.CandidateCount)
	for i := 1; i <= domain.CandidateCount; i++ {
		out = append(out, domain.Advisor{
			ID:          fmt.Sprintf("a%d", i),
			Name:        fmt.Sprintf("Advisor %d", i),
			Description: "a specialist",
		})
	}
	return out, nil
}

func (f *fakeGenerator) GenerateAdvicePanel(_ context.Context, _ string, selected []domain.Advisor) (*domain.AdvicePanel, error) {
	if f.panelErr != nil {
		return nil, f.panelErr
	}
	panel := &domain.AdvicePanel{Synthesis: "Combined view."}
	for _, a := range selected {
		panel.Advices = append(panel.Advices, domain.AdvisorAdvice{AdvisorID: a.ID, Text: "Advice from " + a.Name})
	}
	return panel, nil
}

func (f *fakeGenerator) ContinueDialogue(_ context.Context, _ []domain.Turn, _ string) (string, error) {
	return "An answer.", nil
}

func (f *fakeGenerator) AnalyzeSituation(_ context.Context, _ string) (string, error) {
	return "A summary.", nil
}

type fakeRepo struct {
	granted  map[int64]int
	grantErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{granted: make(map[int64]int)}
}

func (r *fakeRepo) GetUsage(_ context.Context, userID int64) (*domain.UsageRecord, error) {
	return &domain.UsageRecord{UserID: userID}, nil
}

func (r *fakeRepo) SaveUsage(_ context.Context, _ *domain.UsageRecord) error { return nil }

func (r *fakeRepo) SaveIdentity(_ context.Context, _ int64, _, _, _ string) error { return nil }

func (r *fakeRepo) ConsumeConsultation(_ context.Context, userID int64) (*domain.UsageRecord, error) {
	return &domain.UsageRecord{UserID: userID, ConsultationsUsed: 1}, nil
}

func (r *fakeRepo) GrantQuota(_ context.Context, userID int64, amount int) error {
	if r.grantErr != nil {
		return r.grantErr
	}
	r.granted[userID] += amount
	return nil
}

func (r *fakeRepo) Ping(_ context.Context) error { return nil }
func (r *fakeRepo) Close() error                 { return nil }

func TestHandleAdvice(t *testing.T) {
	h := NewHandler(newFakeRepo(), &fakeGenerator{}, "")

	body := `{"situation":"I need to decide whether to take a new job offer."}`
	req := httptest.NewRequest(http.MethodPost, "/api/advice", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleAdvice(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp adviceResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Summary != "A summary." {
		t.Errorf("Expected summary, got %q", resp.Summary)
	}
	if len(resp.Advisors) != domain.RequiredSelections {
		t.Errorf("Expected %d advisors, got %d", domain.RequiredSelections, len(resp.Advisors))
	}
	if len(resp.Advices) != domain.RequiredSelections {
		t.Errorf("Expected %d advices, got %d", domain.RequiredSelections, len(resp.Advices))
	}
	if resp.Synthesis == "" {
		t.Error("Expected a non-empty synthesis")
	}
}

func TestHandleAdviceRejectsShortSituation(t *testing.T) {
	h := NewHandler(newFakeRepo(), &fakeGenerator{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/advice", strings.NewReader(`{"situation":"help"}`))
	w := httptest.NewRecorder()

	h.HandleAdvice(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleAdviceRejectsInvalidBody(t *testing.T) {
	h := NewHandler(newFakeRepo(), &fakeGenerator{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/advice", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	h.HandleAdvice(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleAdviceGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{selectErr: domain.NewGenerationError("select advisors", fmt.Errorf("upstream unavailable"))}
	h := NewHandler(newFakeRepo(), gen, "")

	body := `{"situation":"I need to decide whether to take a new job offer."}`
	req := httptest.NewRequest(http.MethodPost, "/api/advice", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleAdvice(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
}

func TestHandleAdviceUnexpectedFailure(t *testing.T) {
	gen := &fakeGenerator{selectErr: fmt.Errorf("connection refused")}
	h := NewHandler(newFakeRepo(), gen, "")

	body := `{"situation":"I need to decide whether to take a new job offer."}`
	req := httptest.NewRequest(http.MethodPost, "/api/advice", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleAdvice(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestHandleGrant(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, &fakeGenerator{}, "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/grant", strings.NewReader(`{"user_id":42,"amount":3}`))
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()

	h.HandleGrant(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if repo.granted[42] != 3 {
		t.Errorf("Expected 3 consultations granted to user 42, got %d", repo.granted[42])
	}
}

func TestHandleGrantUnauthorized(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, &fakeGenerator{}, "secret")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong token", "Bearer nope"},
		{"malformed header", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/grant", strings.NewReader(`{"user_id":42,"amount":3}`))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			h.HandleGrant(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", w.Code)
			}
		})
	}

	if len(repo.granted) != 0 {
		t.Errorf("Expected no grants, got %v", repo.granted)
	}
}

func TestHandleGrantDisabledWithoutToken(t *testing.T) {
	h := NewHandler(newFakeRepo(), &fakeGenerator{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/grant", strings.NewReader(`{"user_id":42,"amount":3}`))
	req.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()

	h.HandleGrant(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when no admin token configured, got %d", w.Code)
	}
}

func TestHandleGrantRejectsBadPayload(t *testing.T) {
	h := NewHandler(newFakeRepo(), &fakeGenerator{}, "secret")

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "not json"},
		{"missing user", `{"amount":3}`},
		{"zero amount", `{"user_id":42,"amount":0}`},
		{"negative amount", `{"user_id":42,"amount":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/grant", strings.NewReader(tt.body))
			req.Header.Set("Authorization", "Bearer secret")
			w := httptest.NewRecorder()

			h.HandleGrant(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}
