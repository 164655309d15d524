// Package transport adapts the messaging channel to the session engine:
// inbound messages and button presses are routed into the engine through
// per-user serial dispatch, and engine effects are rendered back as Telegram
// messages, inline keyboards and callback acknowledgements.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/boardview-ai/boardview/internal/domain"
	"github.com/boardview-ai/boardview/internal/session"
)

const advisorCallbackPrefix = "advisor_"

// Telegram is the chat transport adapter.
type Telegram struct {
	bot            *tgbotapi.BotAPI
	engine         *session.Engine
	dispatcher     *session.Dispatcher
	operatorChatID int64
	pollTimeout    time.Duration
}

// NewTelegram connects to the Bot API and returns the adapter. The token is
// verified against the API during construction. The engine is wired in with
// Attach afterwards: the engine needs the adapter as its effect sink, so the
// adapter has to exist first.
func NewTelegram(token string, operatorChatID int64, pollTimeout time.Duration) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to bot api: %w", err)
	}

	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)

	return &Telegram{
		bot:            bot,
		operatorChatID: operatorChatID,
		pollTimeout:    pollTimeout,
	}, nil
}

// Attach wires the engine and dispatcher. Must be called before Run.
func (t *Telegram) Attach(engine *session.Engine, dispatcher *session.Dispatcher) {
	t.engine = engine
	t.dispatcher = dispatcher
}

// Run polls for updates until the context is cancelled. A 409 conflict means
// another process already holds the polling connection; that is returned as
// domain.ErrTransportConflict and must be treated as fatal by the caller.
func (t *Telegram) Run(ctx context.Context) error {
	offset := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = int(t.pollTimeout.Seconds())

		updates, err := t.bot.GetUpdates(cfg)
		if err != nil {
			if isConflict(err) {
				return fmt.Errorf("%w: %v", domain.ErrTransportConflict, err)
			}
			slog.Warn("polling failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			t.route(ctx, update)
		}
	}
}

func isConflict(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 409 {
		return true
	}
	return strings.Contains(err.Error(), "409")
}

// route hands an update to the engine on the sender's serial queue so events
// for one user are processed in arrival order.
func (t *Telegram) route(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		t.routeMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		t.routeCallback(ctx, update.CallbackQuery)
	}
}

func (t *Telegram) routeMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Text == "" {
		return
	}

	chatID := msg.Chat.ID
	user := session.UserInfo{ID: chatID}
	if msg.From != nil {
		user.FirstName = msg.From.FirstName
		user.LastName = msg.From.LastName
		user.Username = msg.From.UserName
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			t.dispatcher.Dispatch(chatID, func() {
				t.engine.Reset(ctx, chatID)
			})
		case "grant":
			t.handleGrant(ctx, chatID, msg.CommandArguments())
		default:
			t.sendPlain(chatID, "Unknown command. Send /start to begin.")
		}
		return
	}

	text := msg.Text
	t.dispatcher.Dispatch(chatID, func() {
		t.engine.HandleText(ctx, user, text)
	})
}

func (t *Telegram) routeCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || !strings.HasPrefix(cb.Data, advisorCallbackPrefix) {
		// Unknown payload: acknowledge so the client stops spinning.
		t.request(tgbotapi.NewCallback(cb.ID, ""))
		return
	}

	chatID := cb.Message.Chat.ID
	advisorID := strings.TrimPrefix(cb.Data, advisorCallbackPrefix)
	messageRef := cb.Message.MessageID
	callbackRef := cb.ID

	t.dispatcher.Dispatch(chatID, func() {
		t.engine.HandleToggle(ctx, chatID, advisorID, messageRef, callbackRef)
	})
}

// handleGrant runs the operator-only quota grant command:
// /grant <user_id> <amount>
func (t *Telegram) handleGrant(ctx context.Context, chatID int64, args string) {
	if t.operatorChatID == 0 || chatID != t.operatorChatID {
		t.sendPlain(chatID, "Unknown command. Send /start to begin.")
		return
	}

	fields := strings.Fields(args)
	if len(fields) != 2 {
		t.sendPlain(chatID, "Usage: /grant <user_id> <amount>")
		return
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		t.sendPlain(chatID, "Usage: /grant <user_id> <amount>")
		return
	}
	amount, err := strconv.Atoi(fields[1])
	if err != nil || amount <= 0 {
		t.sendPlain(chatID, "Usage: /grant <user_id> <amount>")
		return
	}

	if err := t.engine.GrantQuota(ctx, userID, amount); err != nil {
		slog.Error("quota grant failed", "user_id", userID, "error", err)
		t.sendPlain(chatID, "Grant failed, see logs.")
		return
	}
	t.sendPlain(chatID, fmt.Sprintf("Granted %d consultations to user %d.", amount, userID))
}

// Deliver renders an engine effect onto the channel. Send failures are
// logged; they never propagate back into the state machine.
func (t *Telegram) Deliver(eff session.Effect) {
	switch e := eff.(type) {
	case session.SendText:
		msg := tgbotapi.NewMessage(e.UserID, e.Text)
		if e.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		t.send(msg)

	case session.SendTyping:
		t.request(tgbotapi.NewChatAction(e.UserID, tgbotapi.ChatTyping))

	case session.ShowSelection:
		msg := tgbotapi.NewMessage(e.UserID, e.Prompt)
		msg.ReplyMarkup = selectionKeyboard(e.Advisors, e.SelectedIDs)
		t.send(msg)

	case session.UpdateSelection:
		t.request(tgbotapi.NewEditMessageReplyMarkup(e.UserID, e.MessageRef, selectionKeyboard(e.Advisors, e.SelectedIDs)))

	case session.ReplaceSelection:
		t.request(tgbotapi.NewEditMessageText(e.UserID, e.MessageRef, e.Text))

	case session.AckToggle:
		if e.Alert {
			t.request(tgbotapi.NewCallbackWithAlert(e.CallbackRef, e.Warning))
		} else {
			t.request(tgbotapi.NewCallback(e.CallbackRef, e.Warning))
		}

	case session.NotifyAdmin:
		if t.operatorChatID != 0 {
			t.send(tgbotapi.NewMessage(t.operatorChatID, e.Text))
		}

	default:
		slog.Warn("unhandled effect", "type", fmt.Sprintf("%T", eff))
	}
}

func (t *Telegram) sendPlain(chatID int64, text string) {
	t.send(tgbotapi.NewMessage(chatID, text))
}

func (t *Telegram) send(c tgbotapi.Chattable) {
	if _, err := t.bot.Send(c); err != nil {
		slog.Warn("send failed", "error", err)
	}
}

func (t *Telegram) request(c tgbotapi.Chattable) {
	if _, err := t.bot.Request(c); err != nil {
		slog.Warn("request failed", "error", err)
	}
}

// selectionKeyboard builds the advisor keyboard, one advisor per row, with a
// checkmark prefix on selected entries.
func selectionKeyboard(advisorsList []domain.Advisor, selectedIDs []string) tgbotapi.InlineKeyboardMarkup {
	selected := make(map[string]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = true
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(advisorsList))
	for _, a := range advisorsList {
		label := fmt.Sprintf("%s (%s)", a.Name, a.Description)
		if selected[a.ID] {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, advisorCallbackPrefix+a.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
