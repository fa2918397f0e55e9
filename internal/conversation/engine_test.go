// ABOUTME: Tests for the conversation engine lifecycle
// ABOUTME: Covers validation, streaming, single-shot replies, rating, quota fallback, inactivity reset

package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konvoq/widget-engine/internal/feedback"
	"github.com/konvoq/widget-engine/internal/session"
	"github.com/konvoq/widget-engine/internal/storage"
	"github.com/konvoq/widget-engine/internal/transport"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// textRenderer passes content through untouched so assertions read plainly.
type textRenderer struct{}

func (textRenderer) Render(text string) string { return text }

type fakePresenter struct {
	userMessages  []string
	botMessages   []string
	typingShown   int
	typingUpdates []string
	finalized     []string
	inputErrors   []string
	errorsCleared int
	inputsCleared int
	ratingShown   int
	ratingHidden  int
	contactMode   int
	contactBusy   []bool
	emailInvalid  int
	confirmations int
}

func (p *fakePresenter) AppendUserMessage(html string) { p.userMessages = append(p.userMessages, html) }
func (p *fakePresenter) AppendBotMessage(html string)  { p.botMessages = append(p.botMessages, html) }
func (p *fakePresenter) ShowTyping()                   { p.typingShown++ }
func (p *fakePresenter) ReplaceTyping(html string)     { p.typingUpdates = append(p.typingUpdates, html) }
func (p *fakePresenter) FinalizeReply(html string)     { p.finalized = append(p.finalized, html) }
func (p *fakePresenter) ShowInputError(msg string)     { p.inputErrors = append(p.inputErrors, msg) }
func (p *fakePresenter) ClearInputError()              { p.errorsCleared++ }
func (p *fakePresenter) ClearInput()                   { p.inputsCleared++ }
func (p *fakePresenter) ShowRatingPrompt()             { p.ratingShown++ }
func (p *fakePresenter) HideRatingPrompt()             { p.ratingHidden++ }
func (p *fakePresenter) EnterContactMode()             { p.contactMode++ }
func (p *fakePresenter) SetContactBusy(busy bool)      { p.contactBusy = append(p.contactBusy, busy) }
func (p *fakePresenter) MarkContactEmailInvalid()      { p.emailInvalid++ }
func (p *fakePresenter) ShowContactConfirmation()      { p.confirmations++ }

type fakeDispatcher struct {
	fn    func(ctx context.Context, msg transport.OutboundMessage) (*transport.Exchange, error)
	calls []transport.OutboundMessage
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, msg transport.OutboundMessage) (*transport.Exchange, error) {
	d.calls = append(d.calls, msg)
	if d.fn == nil {
		return &transport.Exchange{Reply: transport.Success{Text: "ok"}}, nil
	}
	return d.fn(ctx, msg)
}

func singleShot(reply transport.Reply) *fakeDispatcher {
	return &fakeDispatcher{fn: func(context.Context, transport.OutboundMessage) (*transport.Exchange, error) {
		return &transport.Exchange{Reply: reply}, nil
	}}
}

type ratingRecorder struct {
	ratings []string
	err     error
}

func (r *ratingRecorder) PostRating(_ context.Context, _ string, rating string) error {
	r.ratings = append(r.ratings, rating)
	return r.err
}

type contactRecorder struct {
	emails []string
	err    error
}

func (c *contactRecorder) PostContact(_ context.Context, _, _, email, _ string) error {
	c.emails = append(c.emails, email)
	return c.err
}

type engineFixture struct {
	engine    *Engine
	presenter *fakePresenter
	kv        *storage.Memory
	sessions  *session.Store
	ratings   *ratingRecorder
	contacts  *contactRecorder
	clock     *time.Time
}

func newFixture(t *testing.T, cfg Config, dispatcher Dispatcher) *engineFixture {
	t.Helper()

	kv := storage.NewMemory()
	logger := quietLogger()
	n := 0
	sessions := session.NewWithIDProvider(kv, "wk", func() string {
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
	}, logger)

	presenter := &fakePresenter{}
	ratings := &ratingRecorder{}
	contacts := &contactRecorder{}
	rating := feedback.NewRating(ratings, sessions, logger)
	contact := feedback.NewContact(contacts, presenter, logger)

	start := time.Now()
	clock := &start
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return *clock }
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}

	engine := New(cfg, sessions, dispatcher, presenter, textRenderer{}, rating, contact, logger)
	return &engineFixture{
		engine:    engine,
		presenter: presenter,
		kv:        kv,
		sessions:  sessions,
		ratings:   ratings,
		contacts:  contacts,
		clock:     clock,
	}
}

func basicConfig() Config {
	return Config{PlanType: "basic", EndpointConfigured: true}
}

func TestSendNotConfigured(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	f := newFixture(t, Config{PlanType: "basic"}, dispatcher)

	err := f.engine.Send(context.Background(), "hello")

	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, []string{msgNotConfigured}, f.presenter.inputErrors)
	assert.Empty(t, dispatcher.calls)
}

func TestSendTooLong(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	cfg := basicConfig()
	cfg.MaxMessageLength = 5
	f := newFixture(t, cfg, dispatcher)

	err := f.engine.Send(context.Background(), "this is too long")

	assert.ErrorIs(t, err, ErrTooLong)
	require.Len(t, f.presenter.inputErrors, 1)
	assert.Contains(t, f.presenter.inputErrors[0], "Maximum 5 characters")
	assert.Empty(t, dispatcher.calls, "validation failure must not reach the network")
}

func TestSendTooLongCountsRunes(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	cfg := basicConfig()
	cfg.MaxMessageLength = 4
	f := newFixture(t, cfg, dispatcher)

	// four runes, five bytes: byte counting would reject this
	err := f.engine.Send(context.Background(), "héll")

	assert.NoError(t, err)
	assert.Len(t, dispatcher.calls, 1)
}

func TestSendWhitespaceOnly(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	f := newFixture(t, basicConfig(), dispatcher)

	err := f.engine.Send(context.Background(), "   \n\t ")

	assert.NoError(t, err)
	assert.Empty(t, dispatcher.calls)
	assert.Empty(t, f.presenter.userMessages)
	assert.Equal(t, 1, f.presenter.errorsCleared)
}

func TestSendDispatchFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{fn: func(context.Context, transport.OutboundMessage) (*transport.Exchange, error) {
		return nil, errors.New("connection refused")
	}}
	f := newFixture(t, basicConfig(), dispatcher)

	err := f.engine.Send(context.Background(), "thanks")

	assert.NoError(t, err, "transport failures keep the conversation usable")
	assert.Equal(t, []string{msgNetworkError}, f.presenter.typingUpdates)
	assert.Empty(t, f.presenter.finalized)
	assert.False(t, f.engine.pendingEndIntent)
	assert.Equal(t, StateIdle, f.engine.State())
}

func TestSendSingleShotSuccess(t *testing.T) {
	dispatcher := singleShot(transport.Success{Text: "Here is your answer."})
	f := newFixture(t, basicConfig(), dispatcher)

	err := f.engine.Send(context.Background(), "how does billing work?")

	require.NoError(t, err)
	assert.Equal(t, []string{"how does billing work?"}, f.presenter.userMessages)
	assert.Equal(t, 1, f.presenter.typingShown)
	assert.Equal(t, 1, f.presenter.inputsCleared)
	assert.Equal(t, []string{"Here is your answer."}, f.presenter.finalized)

	count, ok := f.kv.Get("konvoq_chat_wk_count")
	require.True(t, ok)
	assert.Equal(t, "1", count)

	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, "how does billing work?", dispatcher.calls[0].Text)
	assert.Equal(t, f.engine.SessionID(), dispatcher.calls[0].SessionID)
	assert.Equal(t, "en", dispatcher.calls[0].Language)
}

func TestSendSingleShotEmptyReplyText(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.Success{Text: "   "}))

	require.NoError(t, f.engine.Send(context.Background(), "hello"))

	assert.Equal(t, []string{msgFallbackReply}, f.presenter.finalized)
}

func TestSendSingleShotAdoptsSessionID(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.Success{Text: "ok", SessionID: "srv-assigned-id"}))

	require.NoError(t, f.engine.Send(context.Background(), "hello"))

	assert.Equal(t, "srv-assigned-id", f.engine.SessionID())
	stored, ok := f.kv.Get("konvoq_chat_wk_session_token")
	require.True(t, ok)
	assert.Equal(t, "srv-assigned-id", stored)
}

func TestSendServerErrorMessage(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.ServerError{Message: "backend exploded"}))

	require.NoError(t, f.engine.Send(context.Background(), "hello"))

	assert.Equal(t, []string{"backend exploded"}, f.presenter.typingUpdates)
	assert.Empty(t, f.presenter.finalized)
}

func TestSendServerErrorWithoutMessage(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.ServerError{}))

	require.NoError(t, f.engine.Send(context.Background(), "hello"))

	assert.Equal(t, []string{msgFallbackReply}, f.presenter.typingUpdates)
}

func TestSendUnrecognizedReply(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.Unrecognized{}))

	require.NoError(t, f.engine.Send(context.Background(), "hello"))

	assert.Equal(t, []string{msgNetworkError}, f.presenter.typingUpdates)
}

func TestSendRejectsReentry(t *testing.T) {
	var f *engineFixture
	dispatcher := &fakeDispatcher{fn: func(ctx context.Context, _ transport.OutboundMessage) (*transport.Exchange, error) {
		assert.ErrorIs(t, f.engine.Send(ctx, "again"), ErrBusy)
		return &transport.Exchange{Reply: transport.Success{Text: "ok"}}, nil
	}}
	f = newFixture(t, basicConfig(), dispatcher)

	require.NoError(t, f.engine.Send(context.Background(), "hello"))
	assert.Len(t, dispatcher.calls, 1)
}

// sseServer returns an httptest server answering every POST with the
// given event-stream body.
func sseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
	}))
}

func streamingClient(t *testing.T, srv *httptest.Server) *transport.Client {
	t.Helper()
	return transport.New(srv.URL+"/api/v1/webhook", srv.URL, "wk", quietLogger())
}

func TestSendStreamingAssemblesTokens(t *testing.T) {
	srv := sseServer(t, strings.Join([]string{
		`data: {"type":"token","token":"Hel"}`,
		"",
		`data: {"type":"token","token":"lo"}`,
		"",
		`data: {"type":"token","token":" world"}`,
		"",
		`data: {"type":"done","sessionId":"stream-session"}`,
		"",
		"",
	}, "\n"))
	defer srv.Close()

	f := newFixture(t, basicConfig(), streamingClient(t, srv))

	require.NoError(t, f.engine.Send(context.Background(), "hello"))

	assert.Equal(t, []string{"Hel", "Hello", "Hello world"}, f.presenter.typingUpdates)
	assert.Equal(t, []string{"Hello world"}, f.presenter.finalized, "the final render happens exactly once")
	assert.Equal(t, "stream-session", f.engine.SessionID())

	count, ok := f.kv.Get("konvoq_chat_wk_count")
	require.True(t, ok)
	assert.Equal(t, "1", count)
	assert.Equal(t, StateIdle, f.engine.State())
}

func TestSendStreamingErrorEvent(t *testing.T) {
	srv := sseServer(t, strings.Join([]string{
		`data: {"type":"token","token":"partial"}`,
		"",
		`data: {"type":"error"}`,
		"",
		"",
	}, "\n"))
	defer srv.Close()

	f := newFixture(t, basicConfig(), streamingClient(t, srv))

	require.NoError(t, f.engine.Send(context.Background(), "thanks"))

	require.NotEmpty(t, f.presenter.typingUpdates)
	assert.Equal(t, msgNetworkError, f.presenter.typingUpdates[len(f.presenter.typingUpdates)-1])
	assert.Empty(t, f.presenter.finalized)
	assert.False(t, f.engine.pendingEndIntent)

	count, ok := f.kv.Get("konvoq_chat_wk_count")
	require.True(t, ok)
	assert.Equal(t, "0", count, "failed exchanges do not count")
}

func TestSendStreamingEmptyStream(t *testing.T) {
	srv := sseServer(t, "data: {\"type\":\"done\"}\n\n")
	defer srv.Close()

	f := newFixture(t, basicConfig(), streamingClient(t, srv))

	require.NoError(t, f.engine.Send(context.Background(), "hello"))

	assert.Equal(t, []string{msgFallbackReply}, f.presenter.typingUpdates)
	assert.Empty(t, f.presenter.finalized)
}

func TestQuotaEntersContactFallback(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.QuotaExceeded{PlanType: "basic"}))

	require.NoError(t, f.engine.Send(context.Background(), "hello"))

	assert.Equal(t, []string{msgLimitReached}, f.presenter.typingUpdates)
	assert.Equal(t, 1, f.presenter.contactMode)
	assert.Equal(t, StateContactFallback, f.engine.State())

	assert.ErrorIs(t, f.engine.Send(context.Background(), "another"), ErrContactMode)

	require.NoError(t, f.engine.SubmitContact(context.Background(), "Ada", "ada@example.com", "please call me"))
	assert.Equal(t, []string{"ada@example.com"}, f.contacts.emails)
	assert.Equal(t, 1, f.presenter.confirmations)
}

func TestQuotaPlanMismatchStaysConversational(t *testing.T) {
	cfg := basicConfig()
	cfg.PlanType = "pro"
	f := newFixture(t, cfg, singleShot(transport.QuotaExceeded{PlanType: "basic", Message: "limit hit"}))

	require.NoError(t, f.engine.Send(context.Background(), "hello"))

	assert.Equal(t, []string{"limit hit"}, f.presenter.typingUpdates)
	assert.Zero(t, f.presenter.contactMode)
	assert.Equal(t, StateIdle, f.engine.State())
}

func TestSubmitContactOutsideFallback(t *testing.T) {
	f := newFixture(t, basicConfig(), &fakeDispatcher{})

	err := f.engine.SubmitContact(context.Background(), "Ada", "ada@example.com", "hi")

	assert.Error(t, err)
	assert.Empty(t, f.contacts.emails)
}

func TestRatingShownOnceAfterEndIntent(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.Success{Text: "glad to help"}))

	require.NoError(t, f.engine.Send(context.Background(), "thanks, bye!"))
	assert.Equal(t, 1, f.presenter.ratingShown)

	shown, ok := f.kv.Get("konvoq_chat_wk_rating_shown_" + f.engine.SessionID())
	require.True(t, ok)
	assert.Equal(t, "1", shown)

	// a second end-intent exchange in the same conversation must not
	// re-trigger the prompt
	require.NoError(t, f.engine.Send(context.Background(), "goodbye"))
	assert.Equal(t, 1, f.presenter.ratingShown)
}

func TestRatingNotShownWithoutEndIntent(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.Success{Text: "sure"}))

	require.NoError(t, f.engine.Send(context.Background(), "tell me about pricing"))

	assert.Zero(t, f.presenter.ratingShown)
}

func TestRatingGatedByPlan(t *testing.T) {
	cfg := basicConfig()
	cfg.PlanType = "pro"
	f := newFixture(t, cfg, singleShot(transport.Success{Text: "glad to help"}))

	require.NoError(t, f.engine.Send(context.Background(), "thanks, bye!"))

	assert.Zero(t, f.presenter.ratingShown)
}

func TestSubmitRating(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.Success{Text: "glad to help"}))
	require.NoError(t, f.engine.Send(context.Background(), "thanks"))
	require.Equal(t, 1, f.presenter.ratingShown)

	f.engine.SubmitRating(context.Background(), RatingUp)

	assert.Equal(t, 1, f.presenter.ratingHidden)
	assert.Equal(t, []string{"up"}, f.ratings.ratings)
	submitted, ok := f.kv.Get("konvoq_chat_wk_rating_submitted_" + f.engine.SessionID())
	require.True(t, ok)
	assert.Equal(t, "1", submitted)

	// repeated submission is a no-op
	f.engine.SubmitRating(context.Background(), RatingDown)
	assert.Equal(t, []string{"up"}, f.ratings.ratings)
}

func TestSubmitRatingWithoutPrompt(t *testing.T) {
	f := newFixture(t, basicConfig(), &fakeDispatcher{})

	f.engine.SubmitRating(context.Background(), RatingUp)

	assert.Empty(t, f.ratings.ratings)
	assert.Zero(t, f.presenter.ratingHidden)
}

func TestSubmitRatingSurvivesReportFailure(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.Success{Text: "glad to help"}))
	f.ratings.err = errors.New("feedback endpoint down")
	require.NoError(t, f.engine.Send(context.Background(), "thanks"))

	f.engine.SubmitRating(context.Background(), RatingDown)

	submitted, _ := f.kv.Get("konvoq_chat_wk_rating_submitted_" + f.engine.SessionID())
	assert.Equal(t, "1", submitted, "the submitted flag persists before the network call")
}

func TestInactivityResetsConversation(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.Success{Text: "glad to help"}))

	require.NoError(t, f.engine.Send(context.Background(), "thanks"))
	require.Equal(t, 1, f.presenter.ratingShown)
	sid := f.engine.SessionID()

	*f.clock = f.clock.Add(3 * time.Minute)

	require.NoError(t, f.engine.Send(context.Background(), "hello again"))

	assert.Equal(t, sid, f.engine.SessionID(), "inactivity keeps the session id")
	assert.GreaterOrEqual(t, f.presenter.ratingHidden, 1)

	shown, _ := f.kv.Get("konvoq_chat_wk_rating_shown_" + sid)
	assert.Equal(t, "0", shown)
	submitted, _ := f.kv.Get("konvoq_chat_wk_rating_submitted_" + sid)
	assert.Equal(t, "0", submitted)

	count, _ := f.kv.Get("konvoq_chat_wk_count")
	assert.Equal(t, "1", count, "the counter restarts from zero for the new epoch")
}

func TestInactivityResetReenablesRating(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.Success{Text: "glad to help"}))

	require.NoError(t, f.engine.Send(context.Background(), "thanks"))
	require.Equal(t, 1, f.presenter.ratingShown)

	*f.clock = f.clock.Add(3 * time.Minute)

	require.NoError(t, f.engine.Send(context.Background(), "thanks again, bye"))
	assert.Equal(t, 2, f.presenter.ratingShown)
}

func TestShortGapDoesNotReset(t *testing.T) {
	f := newFixture(t, basicConfig(), singleShot(transport.Success{Text: "ok"}))

	require.NoError(t, f.engine.Send(context.Background(), "one"))
	*f.clock = f.clock.Add(90 * time.Second)
	require.NoError(t, f.engine.Send(context.Background(), "two"))

	count, _ := f.kv.Get("konvoq_chat_wk_count")
	assert.Equal(t, "2", count)
}

func TestShowWelcome(t *testing.T) {
	cfg := basicConfig()
	cfg.WelcomeMessage = "Hi! How can we help?"
	f := newFixture(t, cfg, &fakeDispatcher{})

	f.engine.ShowWelcome()

	assert.Equal(t, []string{"Hi! How can we help?"}, f.presenter.botMessages)
}

func TestShowWelcomeEmpty(t *testing.T) {
	f := newFixture(t, basicConfig(), &fakeDispatcher{})

	f.engine.ShowWelcome()

	assert.Empty(t, f.presenter.botMessages)
}
