package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/boardview-ai/boardview/internal/advisors"
	"github.com/boardview-ai/boardview/internal/domain"
	"github.com/boardview-ai/boardview/internal/store"
)

// User-facing notices. Every inbound event produces visible feedback; none
// of these leak internal error detail.
const (
	msgWelcome = "Hello! Describe your situation and I will suggest 5 advisors best suited for your personal board of directors."

	msgCandidatesReady = "I picked 5 potential advisors for your situation. Select exactly 3 of them:"

	msgCandidatesFailed = "I couldn't assemble an advisory board for your situation. Try rephrasing your description."

	msgUseButtons = "Please choose exactly 3 advisors by tapping the buttons above."

	msgSelectionLimit = "You can select only 3 advisors. Deselect one first."

	msgSessionExpired = "This selection has expired. Send /start to begin again."

	msgPreparingAdvice = "Great choice! Preparing your personalized advice..."

	msgAdviceFailed = "Sorry, I couldn't generate advice this time. Describe your situation again to retry."

	msgFollowUpIntro = "You can now ask up to 3 follow-up questions to any of the advisors. For example: \"Marie, what do you think about...\""

	msgFollowUpFailed = "Sorry, I couldn't answer that question. Describe your situation to start a new consultation."

	msgConsultationDone = "Hope that was useful! To start a new consultation, just describe your next situation."

	msgQuotaExhausted = "You have used all of your consultations. Contact the operator to get more."

	msgInternalError = "Something went wrong. Please start over with /start."
)

// Engine drives the conversation state machine. All public handlers must be
// invoked through per-user serial dispatch; the engine itself assumes events
// for one user never interleave.
type Engine struct {
	sessions Store
	usage    store.Repository
	gen      advisors.Generator
	sink     Sink
	limit    int
}

// NewEngine creates the state machine engine.
func NewEngine(sessions Store, usage store.Repository, gen advisors.Generator, sink Sink, consultationLimit int) *Engine {
	return &Engine{
		sessions: sessions,
		usage:    usage,
		gen:      gen,
		sink:     sink,
		limit:    consultationLimit,
	}
}

func (e *Engine) emit(eff Effect) {
	e.sink.Deliver(eff)
}

// recoverEvent is the safety valve: any panic during a transition resets the
// session and tells the user to restart. The error is logged, not surfaced.
func (e *Engine) recoverEvent(userID int64) {
	if r := recover(); r != nil {
		slog.Error("unexpected internal error handling event", "user_id", userID, "panic", r)
		e.resetSession(userID)
		e.emit(SendText{UserID: userID, Text: msgInternalError})
	}
}

// failEvent handles an unexpected internal error on an error-return path.
func (e *Engine) failEvent(userID int64, err error) {
	slog.Error("unexpected internal error handling event", "user_id", userID, "error", err)
	e.resetSession(userID)
	e.emit(SendText{UserID: userID, Text: msgInternalError})
}

func (e *Engine) resetSession(userID int64) {
	sess := e.sessions.Get(userID)
	if sess == nil {
		sess = domain.NewSession(userID)
	} else {
		sess.Reset()
	}
	e.sessions.Set(sess)
}

// Reset unconditionally returns the user to the initial stage and greets
// them. The persisted usage counter is untouched.
func (e *Engine) Reset(_ context.Context, userID int64) {
	defer e.recoverEvent(userID)

	e.resetSession(userID)
	e.emit(SendText{UserID: userID, Text: msgWelcome})
}

// HandleText routes an inbound free-text message by stage.
func (e *Engine) HandleText(ctx context.Context, user UserInfo, text string) {
	defer e.recoverEvent(user.ID)

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	sess := e.sessions.Get(user.ID)
	if sess == nil {
		sess = domain.NewSession(user.ID)
		e.sessions.Set(sess)
	}

	switch sess.Stage {
	case domain.StageAwaitingSituation:
		e.handleSituation(ctx, user, sess, text)
	case domain.StageAwaitingSelection:
		// Free text while selecting is always rejected, never dropped.
		e.emit(SendText{UserID: user.ID, Text: msgUseButtons})
	case domain.StageInDialogue:
		e.handleFollowUp(ctx, sess, text)
	default:
		e.failEvent(user.ID, fmt.Errorf("unknown stage %q", sess.Stage))
	}
}

// handleSituation starts a new consultation: quota check, candidate
// generation, transition to advisor selection.
func (e *Engine) handleSituation(ctx context.Context, user UserInfo, sess *domain.Session, situation string) {
	rec, err := e.usage.GetUsage(ctx, user.ID)
	if err != nil {
		e.failEvent(user.ID, fmt.Errorf("read usage record: %w", err))
		return
	}
	e.captureIdentity(ctx, rec, user)

	if err := checkQuota(rec, e.limit); errors.Is(err, domain.ErrQuotaExceeded) {
		slog.Info("consultation rejected", "user_id", user.ID, "error", err)
		e.emit(SendText{UserID: user.ID, Text: msgQuotaExhausted})
		e.emit(NotifyAdmin{Text: fmt.Sprintf("User %s (%d) is out of quota and asked for a consultation.", displayName(rec), user.ID)})
		return
	}

	e.emit(SendTyping{UserID: user.ID})

	candidates, err := e.gen.SelectAdvisors(ctx, situation)
	if err != nil {
		if !domain.IsGenerationError(err) {
			e.failEvent(user.ID, err)
			return
		}
		slog.Warn("candidate generation failed", "user_id", user.ID, "error", err)
		sess.Reset()
		e.sessions.Set(sess)
		e.emit(SendText{UserID: user.ID, Text: msgCandidatesFailed})
		return
	}

	sess.Reset()
	sess.Stage = domain.StageAwaitingSelection
	sess.ConsultationID = uuid.NewString()
	sess.Situation = situation
	sess.Candidates = candidates
	sess.SelectedIDs = []string{}
	e.sessions.Set(sess)

	e.emit(ShowSelection{
		UserID:      user.ID,
		Prompt:      msgCandidatesReady,
		Advisors:    candidates,
		SelectedIDs: nil,
	})
}

// HandleToggle processes a selection toggle for one advisor.
func (e *Engine) HandleToggle(ctx context.Context, userID int64, advisorID string, messageRef int, callbackRef string) {
	defer e.recoverEvent(userID)

	sess := e.sessions.Get(userID)
	if err := validateToggle(sess, advisorID); errors.Is(err, domain.ErrInvalidStageEvent) {
		e.emit(AckToggle{UserID: userID, CallbackRef: callbackRef, Warning: msgSessionExpired})
		return
	}

	switch {
	case sess.IsSelected(advisorID):
		// Deselect.
		kept := sess.SelectedIDs[:0]
		for _, id := range sess.SelectedIDs {
			if id != advisorID {
				kept = append(kept, id)
			}
		}
		sess.SelectedIDs = kept
		e.sessions.Set(sess)
		e.emit(AckToggle{UserID: userID, CallbackRef: callbackRef})
		e.emit(UpdateSelection{UserID: userID, MessageRef: messageRef, Advisors: sess.Candidates, SelectedIDs: sess.SelectedIDs})

	case sess.SelectionCount() < domain.RequiredSelections:
		sess.SelectedIDs = append(sess.SelectedIDs, advisorID)
		e.sessions.Set(sess)
		e.emit(AckToggle{UserID: userID, CallbackRef: callbackRef})

		if sess.SelectionCount() == domain.RequiredSelections {
			e.emit(ReplaceSelection{UserID: userID, MessageRef: messageRef, Text: msgPreparingAdvice})
			e.generateAdvice(ctx, sess)
			return
		}
		e.emit(UpdateSelection{UserID: userID, MessageRef: messageRef, Advisors: sess.Candidates, SelectedIDs: sess.SelectedIDs})

	default:
		// Already three selected and this one is not among them.
		e.emit(AckToggle{UserID: userID, CallbackRef: callbackRef, Warning: msgSelectionLimit, Alert: true})
	}
}

// generateAdvice runs the advice panel generation for a completed selection
// and seeds the dialogue.
func (e *Engine) generateAdvice(ctx context.Context, sess *domain.Session) {
	e.emit(SendTyping{UserID: sess.UserID})

	selected := sess.SelectedAdvisors()
	panel, err := e.gen.GenerateAdvicePanel(ctx, sess.Situation, selected)
	if err != nil {
		if !domain.IsGenerationError(err) {
			e.failEvent(sess.UserID, err)
			return
		}
		slog.Warn("advice generation failed", "user_id", sess.UserID, "consultation_id", sess.ConsultationID, "error", err)
		sess.Reset()
		e.sessions.Set(sess)
		e.emit(SendText{UserID: sess.UserID, Text: msgAdviceFailed})
		return
	}

	sess.History = nil
	sess.AppendTurn(domain.RoleUser, "My situation: "+sess.Situation)
	sess.AppendTurn(domain.RoleAssistant, panel.Synthesis)
	for _, a := range selected {
		if advice, ok := panel.AdviceFor(a.ID); ok {
			sess.AppendTurn(domain.RoleAssistant, fmt.Sprintf("Advice from %s: %s", a.Name, advice))
		}
	}
	sess.Stage = domain.StageInDialogue
	sess.FollowUpsRemaining = domain.MaxFollowUps
	e.sessions.Set(sess)

	e.emit(SendText{UserID: sess.UserID, Text: renderPanel(panel, selected), Markdown: true})
	e.emit(SendText{UserID: sess.UserID, Text: msgFollowUpIntro})
}

// handleFollowUp runs one follow-up exchange and completes the consultation
// when the budget is spent.
func (e *Engine) handleFollowUp(ctx context.Context, sess *domain.Session, question string) {
	e.emit(SendTyping{UserID: sess.UserID})

	answer, err := e.gen.ContinueDialogue(ctx, sess.History, question)
	if err != nil {
		if !domain.IsGenerationError(err) {
			e.failEvent(sess.UserID, err)
			return
		}
		slog.Warn("dialogue continuation failed", "user_id", sess.UserID, "error", err)
		sess.Reset()
		e.sessions.Set(sess)
		e.emit(SendText{UserID: sess.UserID, Text: msgFollowUpFailed})
		return
	}

	sess.AppendTurn(domain.RoleUser, question)
	sess.AppendTurn(domain.RoleAssistant, answer)
	sess.FollowUpsRemaining--
	e.sessions.Set(sess)

	e.emit(SendText{UserID: sess.UserID, Text: answer, Markdown: true})

	if sess.FollowUpsRemaining > 0 {
		e.emit(SendText{UserID: sess.UserID, Text: fmt.Sprintf("Questions remaining: %d.", sess.FollowUpsRemaining)})
		return
	}

	e.completeConsultation(ctx, sess)
}

// completeConsultation commits the consultation to the usage store and
// resets the session. The counter is incremented in place by the store so a
// grant applied mid-consultation is never clobbered by a stale copy.
func (e *Engine) completeConsultation(ctx context.Context, sess *domain.Session) {
	userID := sess.UserID

	rec, err := e.usage.ConsumeConsultation(ctx, userID)
	if err != nil {
		e.failEvent(userID, fmt.Errorf("consume consultation: %w", err))
		return
	}

	sess.Reset()
	e.sessions.Set(sess)

	if rec.Exhausted(e.limit) {
		e.emit(SendText{UserID: userID, Text: msgQuotaExhausted})
		e.emit(NotifyAdmin{Text: fmt.Sprintf("User %s (%d) has used their last consultation (%d total).", displayName(rec), userID, rec.ConsultationsUsed)})
		return
	}

	e.emit(SendText{UserID: userID, Text: msgConsultationDone})
}

// GrantQuota adds consultations to a user's quota. Exposed to the operator
// command and the admin API; it never touches session state.
func (e *Engine) GrantQuota(ctx context.Context, userID int64, amount int) error {
	if err := e.usage.GrantQuota(ctx, userID, amount); err != nil {
		return fmt.Errorf("grant quota: %w", err)
	}
	slog.Info("quota granted", "user_id", userID, "amount", amount)
	return nil
}

// captureIdentity refreshes display-name fields on the usage record when the
// transport reports changed values. The write touches only the identity
// columns, so it cannot lose a quota grant landing concurrently on the
// admin path. Best effort: a failure is logged and never fails the
// transition.
func (e *Engine) captureIdentity(ctx context.Context, rec *domain.UsageRecord, user UserInfo) {
	if user.FirstName == rec.FirstName && user.LastName == rec.LastName && user.Username == rec.Username {
		return
	}
	rec.FirstName = user.FirstName
	rec.LastName = user.LastName
	rec.Username = user.Username
	if err := e.usage.SaveIdentity(ctx, user.ID, user.FirstName, user.LastName, user.Username); err != nil {
		slog.Warn("failed to save user identity", "user_id", user.ID, "error", err)
	}
}

// checkQuota returns ErrQuotaExceeded when the user has no consultations
// left against the effective limit.
func checkQuota(rec *domain.UsageRecord, limit int) error {
	if rec.Exhausted(limit) {
		return fmt.Errorf("used %d of %d consultations: %w", rec.ConsultationsUsed, rec.Limit(limit), domain.ErrQuotaExceeded)
	}
	return nil
}

// validateToggle rejects toggles that arrive outside the selection stage or
// reference an advisor that is not in the current candidate set.
func validateToggle(sess *domain.Session, advisorID string) error {
	if sess == nil || sess.Stage != domain.StageAwaitingSelection {
		return fmt.Errorf("toggle outside selection stage: %w", domain.ErrInvalidStageEvent)
	}
	if _, ok := sess.CandidateByID(advisorID); !ok {
		return fmt.Errorf("advisor %q not in candidate set: %w", advisorID, domain.ErrInvalidStageEvent)
	}
	return nil
}

func displayName(rec *domain.UsageRecord) string {
	if rec.Username != "" {
		return "@" + rec.Username
	}
	name := strings.TrimSpace(rec.FirstName + " " + rec.LastName)
	if name == "" {
		return "unknown"
	}
	return name
}

// renderPanel formats the advice panel as a single Markdown message.
func renderPanel(panel *domain.AdvicePanel, selected []domain.Advisor) string {
	var b strings.Builder
	b.WriteString("*Board recommendations:*\n")
	b.WriteString(panel.Synthesis)
	b.WriteString("\n\n*Each advisor's take:*\n")
	for _, a := range selected {
		if advice, ok := panel.AdviceFor(a.ID); ok {
			fmt.Fprintf(&b, "\n*%s:*\n%s\n", a.Name, advice)
		}
	}
	return b.String()
}
