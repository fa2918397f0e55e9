// ABOUTME: Engine drives one widget instance's conversation lifecycle
// ABOUTME: send → typing → (stream | single-shot) → rating or contact fallback

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/konvoq/widget-engine/internal/feedback"
	"github.com/konvoq/widget-engine/internal/markdown"
	"github.com/konvoq/widget-engine/internal/session"
	"github.com/konvoq/widget-engine/internal/transport"
)

// State is the engine's position in the exchange lifecycle.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateAwaitingReply
	StateContactFallback
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateContactFallback:
		return "contact_fallback"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Local validation errors. These are surfaced inline by the presenter
// and never reach the network.
var (
	ErrNotConfigured = errors.New("widget endpoint not configured")
	ErrTooLong       = errors.New("message exceeds maximum length")
	ErrBusy          = errors.New("an exchange is already in flight")
	ErrContactMode   = errors.New("conversation is in contact-form mode")
)

// Dispatcher is the slice of the transport the engine needs for the
// message exchange itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg transport.OutboundMessage) (*transport.Exchange, error)
}

// Config carries the deployment-level settings the engine needs.
type Config struct {
	// PlanType gates the rating prompt and the quota fallback.
	PlanType string
	// Language is the resolved active language code sent with every
	// message.
	Language string
	// MaxMessageLength bounds user input; zero means the default.
	MaxMessageLength int
	// EndpointConfigured is false when the deployment gave no API URL;
	// Send then fails locally without a network call.
	EndpointConfigured bool
	// WelcomeMessage is rendered by ShowWelcome when non-empty.
	WelcomeMessage string
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Engine coordinates one widget instance's conversation. It owns the
// counters, rating flags, and session identity exclusively; collaborators
// only see them through its calls. Not safe for concurrent use.
type Engine struct {
	cfg        Config
	sessions   *session.Store
	dispatcher Dispatcher
	presenter  Presenter
	renderer   ContentRenderer
	rating     *feedback.Rating
	contact    *feedback.Contact
	logger     *slog.Logger
	now        func() time.Time

	state    State
	inFlight bool

	sess             session.Session
	userMessageCount int
	botMessageCount  int
	ratingShown      bool
	ratingSubmitted  bool
	pendingEndIntent bool
}

// New creates an Engine and loads persisted session state. A nil
// renderer defaults to the markdown renderer; a nil rating or contact
// workflow disables the corresponding side effect.
func New(
	cfg Config,
	sessions *session.Store,
	dispatcher Dispatcher,
	presenter Presenter,
	renderer ContentRenderer,
	rating *feedback.Rating,
	contact *feedback.Contact,
	logger *slog.Logger,
) *Engine {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = defaultMaxMessageLength
	}
	if renderer == nil {
		renderer = markdown.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		cfg:        cfg,
		sessions:   sessions,
		dispatcher: dispatcher,
		presenter:  presenter,
		renderer:   renderer,
		rating:     rating,
		contact:    contact,
		logger:     logger.With("component", "conversation"),
		now:        now,
		state:      StateIdle,
	}

	e.sess = sessions.Load()
	e.ratingShown = sessions.RatingShown(e.sess.ID)
	e.ratingSubmitted = sessions.RatingSubmitted(e.sess.ID)
	return e
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// SessionID returns the current (possibly server-reassigned) session id.
func (e *Engine) SessionID() string {
	return e.sess.ID
}

// ShowWelcome renders the configured welcome message as a bot bubble.
// It does not touch counters or rating state.
func (e *Engine) ShowWelcome() {
	if e.cfg.WelcomeMessage == "" {
		return
	}
	e.presenter.AppendBotMessage(e.renderer.Render(e.cfg.WelcomeMessage))
}

func (e *Engine) ratingEnabled() bool {
	return e.cfg.PlanType == planBasic && e.rating != nil
}

// Send runs one exchange. Local validation failures return a sentinel
// error after surfacing an inline message; transport and application
// failures are rendered as chat messages and return nil because the
// conversation remains usable.
func (e *Engine) Send(ctx context.Context, rawText string) error {
	if e.state == StateContactFallback {
		return ErrContactMode
	}
	if e.inFlight {
		return ErrBusy
	}
	if !e.cfg.EndpointConfigured {
		e.presenter.ShowInputError(msgNotConfigured)
		return ErrNotConfigured
	}
	if utf8.RuneCountInString(rawText) > e.cfg.MaxMessageLength {
		e.presenter.ShowInputError(fmt.Sprintf(msgTooLongFmt, e.cfg.MaxMessageLength))
		return ErrTooLong
	}

	text := strings.TrimSpace(rawText)
	if text == "" {
		e.presenter.ClearInputError()
		return nil
	}
	e.presenter.ClearInputError()

	if e.now().Sub(e.sess.FirstActivityAt) > inactivityWindow {
		e.resetConversation()
	}

	e.presenter.AppendUserMessage(e.renderer.Render(text))
	e.userMessageCount++
	e.pendingEndIntent = e.ratingEnabled() &&
		isConversationEnd(text) &&
		!e.ratingShown && !e.ratingSubmitted
	e.presenter.ClearInput()
	e.presenter.ShowTyping()

	e.inFlight = true
	e.state = StateSending
	defer func() {
		e.inFlight = false
		if e.state != StateContactFallback {
			e.state = StateIdle
		}
	}()

	ex, err := e.dispatcher.Dispatch(ctx, transport.OutboundMessage{
		Text:      text,
		SessionID: e.sess.ID,
		Language:  e.cfg.Language,
	})
	if err != nil {
		e.logger.Warn("dispatch failed", "error", err)
		e.presenter.ReplaceTyping(e.renderer.Render(msgNetworkError))
		e.pendingEndIntent = false
		return nil
	}

	if ex.Streaming {
		e.state = StateStreaming
		e.consumeStream(ex)
	} else {
		e.state = StateAwaitingReply
		e.applyReply(ex.Reply)
	}
	return nil
}

// resetConversation starts a new conversation epoch in the same storage
// namespace: counters zeroed, activity date renewed, rating state
// cleared for the current session id.
func (e *Engine) resetConversation() {
	e.logger.Debug("inactivity window elapsed, resetting conversation",
		"session_id", e.sess.ID,
	)

	e.sess.SuccessfulExchangeCount = 0
	e.userMessageCount = 0
	e.botMessageCount = 0
	e.sessions.SaveCount(0)
	e.sess.FirstActivityAt = e.now()
	e.sessions.SaveActivityDate(e.sess.FirstActivityAt)

	e.pendingEndIntent = false
	e.ratingShown = false
	e.ratingSubmitted = false
	e.sessions.SetRatingShown(e.sess.ID, false)
	e.sessions.SetRatingSubmitted(e.sess.ID, false)
	e.presenter.HideRatingPrompt()
}

// adoptSessionID switches to a backend-assigned continuation id and
// re-reads rating flags under the new id. The logical session is
// re-parented, not replaced.
func (e *Engine) adoptSessionID(id string) {
	e.sess.ID = id
	e.sessions.SaveSessionID(id)
	e.ratingShown = e.sessions.RatingShown(id)
	e.ratingSubmitted = e.sessions.RatingSubmitted(id)
}

// consumeStream assembles a streamed reply token by token, re-rendering
// the typing placeholder in place on every token.
func (e *Engine) consumeStream(ex *transport.Exchange) {
	var assembled string
	var doneSessionID string
	var sawError bool

	err := ex.Stream(func(ev transport.Event) {
		switch ev.Type {
		case "token":
			assembled += ev.Token
			e.presenter.ReplaceTyping(e.renderer.Render(assembled))
		case "done":
			if ev.SessionID != "" {
				doneSessionID = ev.SessionID
			}
		case "error":
			sawError = true
		}
	})
	if err != nil {
		e.logger.Warn("stream read failed", "error", err)
		e.presenter.ReplaceTyping(e.renderer.Render(msgNetworkError))
		e.pendingEndIntent = false
		return
	}

	if sawError {
		e.presenter.ReplaceTyping(e.renderer.Render(msgNetworkError))
		e.pendingEndIntent = false
		return
	}

	if doneSessionID != "" {
		e.adoptSessionID(doneSessionID)
	}

	if strings.TrimSpace(assembled) == "" {
		e.presenter.ReplaceTyping(e.renderer.Render(msgFallbackReply))
		e.pendingEndIntent = false
		return
	}

	e.finalizeReply(assembled)
	e.sess.SuccessfulExchangeCount++
	e.sessions.SaveCount(e.sess.SuccessfulExchangeCount)
}

// applyReply handles a parsed single-shot response.
func (e *Engine) applyReply(reply transport.Reply) {
	switch r := reply.(type) {
	case transport.Success:
		if r.SessionID != "" {
			e.adoptSessionID(r.SessionID)
		}
		text := r.Text
		if strings.TrimSpace(text) == "" {
			text = msgFallbackReply
		}
		e.sess.SuccessfulExchangeCount++
		e.sessions.SaveCount(e.sess.SuccessfulExchangeCount)
		e.finalizeReply(text)

	case transport.QuotaExceeded:
		if r.PlanType == e.cfg.PlanType && e.contact != nil {
			e.presenter.ReplaceTyping(e.renderer.Render(msgLimitReached))
			e.pendingEndIntent = false
			e.state = StateContactFallback
			e.presenter.EnterContactMode()
			return
		}
		message := r.Message
		if message == "" {
			message = msgFallbackReply
		}
		e.presenter.ReplaceTyping(e.renderer.Render(message))
		e.pendingEndIntent = false

	case transport.ServerError:
		message := r.Message
		if message == "" {
			message = msgFallbackReply
		}
		e.presenter.ReplaceTyping(e.renderer.Render(message))
		e.pendingEndIntent = false

	case transport.Unrecognized:
		e.presenter.ReplaceTyping(e.renderer.Render(msgNetworkError))
		e.pendingEndIntent = false

	default:
		e.logger.Error("unhandled reply kind", "reply", fmt.Sprintf("%T", reply))
		e.presenter.ReplaceTyping(e.renderer.Render(msgNetworkError))
		e.pendingEndIntent = false
	}
}

// finalizeReply completes a successful bot turn: the final render, the
// counter increment, and the one-time rating trigger.
func (e *Engine) finalizeReply(text string) {
	e.presenter.FinalizeReply(e.renderer.Render(text))
	e.botMessageCount++

	shouldShowRating := e.pendingEndIntent &&
		e.ratingEnabled() &&
		!e.ratingShown && !e.ratingSubmitted &&
		e.userMessageCount > 0 && e.botMessageCount > 0

	if shouldShowRating {
		e.presenter.ShowRatingPrompt()
		e.ratingShown = true
		e.sessions.SetRatingShown(e.sess.ID, true)
	}

	e.pendingEndIntent = false
}

// SubmitRating records the visitor's rating choice. Only valid while the
// prompt is visible; repeated submissions are ignored.
func (e *Engine) SubmitRating(ctx context.Context, rating string) {
	if e.rating == nil || !e.ratingShown || e.ratingSubmitted {
		return
	}
	e.presenter.HideRatingPrompt()
	e.ratingSubmitted = true
	e.rating.Submit(ctx, e.sess.ID, rating)
}

// ContactSubmitted reports whether the fallback form was successfully
// sent. The conversation is over at that point.
func (e *Engine) ContactSubmitted() bool {
	return e.contact != nil && e.contact.Submitted()
}

// SubmitContact forwards the contact form. Only meaningful in
// contact-fallback mode.
func (e *Engine) SubmitContact(ctx context.Context, name, email, message string) error {
	if e.contact == nil || e.state != StateContactFallback {
		return fmt.Errorf("contact form is not active")
	}
	return e.contact.Submit(ctx, e.sess.ID, name, email, message)
}
