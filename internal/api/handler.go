// Package api provides HTTP handlers for the BoardView API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/boardview-ai/boardview/internal/advisors"
	"github.com/boardview-ai/boardview/internal/domain"
	"github.com/boardview-ai/boardview/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo       store.Repository
	gen        advisors.Generator
	adminToken string
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, gen advisors.Generator, adminToken string) *Handler {
	return &Handler{
		repo:       repo,
		gen:        gen,
		adminToken: adminToken,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// generationError maps a failed generation call to a status code: upstream
// generation failures are 502, anything else is an internal error.
func generationError(w http.ResponseWriter, err error, message string) {
	if domain.IsGenerationError(err) {
		Error(w, http.StatusBadGateway, message)
		return
	}
	Error(w, http.StatusInternalServerError, message)
}

// RegisterRoutes registers the API routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/advice", h.HandleAdvice)
	r.Post("/api/admin/grant", h.HandleGrant)
}

type adviceRequest struct {
	Situation string `json:"situation"`
}

type advisorView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type adviceItemView struct {
	AdvisorID string `json:"advisor_id"`
	Advice    string `json:"advice"`
}

type adviceResponse struct {
	Summary   string           `json:"summary"`
	Advisors  []advisorView    `json:"advisors"`
	Advices   []adviceItemView `json:"advices"`
	Synthesis string           `json:"synthesis"`
}

// HandleAdvice runs a one-shot consultation: it analyzes the situation,
// generates the candidate board, and produces a panel for the top three
// advisors in a single request. The web surface has no selection step.
func (h *Handler) HandleAdvice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	situation := strings.TrimSpace(req.Situation)
	if len(situation) < 10 {
		Error(w, http.StatusBadRequest, "situation must be at least 10 characters")
		return
	}

	ctx := r.Context()

	summary, err := h.gen.AnalyzeSituation(ctx, situation)
	if err != nil {
		slog.Error("Situation analysis failed", "error", err)
		generationError(w, err, "analysis failed")
		return
	}

	candidates, err := h.gen.SelectAdvisors(ctx, situation)
	if err != nil {
		slog.Error("Advisor selection failed", "error", err)
		generationError(w, err, "advisor selection failed")
		return
	}

	selected := candidates[:domain.RequiredSelections]

	panel, err := h.gen.GenerateAdvicePanel(ctx, situation, selected)
	if err != nil {
		slog.Error("Advice generation failed", "error", err)
		generationError(w, err, "advice generation failed")
		return
	}

	resp := adviceResponse{
		Summary:   summary,
		Synthesis: panel.Synthesis,
	}
	for _, a := range selected {
		resp.Advisors = append(resp.Advisors, advisorView{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
		})
	}
	for _, adv := range panel.Advices {
		resp.Advices = append(resp.Advices, adviceItemView{
			AdvisorID: adv.AdvisorID,
			Advice:    adv.Text,
		})
	}

	JSON(w, http.StatusOK, resp)
}

type grantRequest struct {
	UserID int64 `json:"user_id"`
	Amount int   `json:"amount"`
}

// HandleGrant raises a user's consultation quota. The endpoint is disabled
// unless an admin token is configured, and requires that token as a bearer
// credential.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	if h.adminToken == "" {
		Error(w, http.StatusNotFound, "not found")
		return
	}

	auth := r.Header.Get("Authorization")
	if auth != "Bearer "+h.adminToken {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 || req.Amount <= 0 {
		Error(w, http.StatusBadRequest, "user_id and positive amount required")
		return
	}

	if err := h.repo.GrantQuota(r.Context(), req.UserID, req.Amount); err != nil {
		slog.Error("Quota grant failed", "user_id", req.UserID, "error", err)
		Error(w, http.StatusInternalServerError, "grant failed")
		return
	}

	slog.Info("Quota granted", "user_id", req.UserID, "amount", req.Amount)
	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id": req.UserID,
		"granted": req.Amount,
	})
}
