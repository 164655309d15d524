// Package session implements the per-chat conversation state machine and
// session lifecycle: stage transitions, the three-of-five selection quota,
// the follow-up budget, and consultation accounting.
package session

import (
	"github.com/boardview-ai/boardview/internal/domain"
)

// UserInfo carries the identity fields of an inbound event's sender.
type UserInfo struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// Effect is an outbound side effect produced by the engine. Effects are plain
// data so the state machine can be tested without a transport; the transport
// adapter renders them onto the messaging channel.
type Effect interface {
	effect()
}

// SendText delivers a text message to the user.
type SendText struct {
	UserID   int64
	Text     string
	Markdown bool
}

// SendTyping shows a typing indicator to the user.
type SendTyping struct {
	UserID int64
}

// ShowSelection presents the candidate advisors as selectable options.
type ShowSelection struct {
	UserID      int64
	Prompt      string
	Advisors    []domain.Advisor
	SelectedIDs []string
}

// UpdateSelection refreshes an already-presented selection prompt in place.
type UpdateSelection struct {
	UserID      int64
	MessageRef  int
	Advisors    []domain.Advisor
	SelectedIDs []string
}

// ReplaceSelection swaps the selection prompt for a plain progress note once
// the selection is complete.
type ReplaceSelection struct {
	UserID     int64
	MessageRef int
	Text       string
}

// AckToggle acknowledges a selection toggle, optionally with a warning.
type AckToggle struct {
	UserID      int64
	CallbackRef string
	Warning     string
	Alert       bool
}

// NotifyAdmin sends a fire-and-forget notification to the operator.
type NotifyAdmin struct {
	Text string
}

func (SendText) effect()         {}
func (SendTyping) effect()       {}
func (ShowSelection) effect()    {}
func (UpdateSelection) effect()  {}
func (ReplaceSelection) effect() {}
func (AckToggle) effect()        {}
func (NotifyAdmin) effect()      {}

// Sink receives effects as the engine produces them. Delivery order matters:
// a typing indicator is emitted before the generation call it covers, not
// after it returns.
type Sink interface {
	Deliver(Effect)
}
