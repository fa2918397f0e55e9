// ABOUTME: SessionStore persists session identity, activity date, and counters
// ABOUTME: Keys are namespaced per widget deployment; rating flags per session id

package session

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/konvoq/widget-engine/internal/storage"
)

// Session is the persisted identity of one widget instance. The ID is
// opaque and may be reassigned by the backend mid-conversation; the
// first-activity timestamp and exchange count reset together when an
// inactivity window elapses.
type Session struct {
	ID                      string
	FirstActivityAt         time.Time
	SuccessfulExchangeCount int
}

// Store reads and writes session state through a KV adapter. A nil KV
// degrades to an in-memory medium for the lifetime of the process; no
// method returns an error.
type Store struct {
	kv        storage.KV
	widgetKey string
	newID     func() string
	logger    *slog.Logger
}

// New creates a Store namespaced by widgetKey. Session ids come from
// uuid.NewString.
func New(kv storage.KV, widgetKey string, logger *slog.Logger) *Store {
	return NewWithIDProvider(kv, widgetKey, uuid.NewString, logger)
}

// NewWithIDProvider creates a Store with a custom session-id generator.
// Generated ids should be UUID-shaped (8-4-4-4-12 hex groups).
func NewWithIDProvider(kv storage.KV, widgetKey string, newID func() string, logger *slog.Logger) *Store {
	if kv == nil {
		kv = storage.NewMemory()
	}
	if newID == nil {
		newID = uuid.NewString
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:        kv,
		widgetKey: widgetKey,
		newID:     newID,
		logger:    logger.With("component", "session"),
	}
}

func (s *Store) namespace() string {
	if s.widgetKey == "" {
		return "default"
	}
	return s.widgetKey
}

func (s *Store) key(suffix string) string {
	return "konvoq_chat_" + s.namespace() + "_" + suffix
}

// Load returns the persisted session, creating identity and zero/now
// defaults on first use.
func (s *Store) Load() Session {
	now := time.Now()
	sess := Session{FirstActivityAt: now}

	if raw, ok := s.kv.Get(s.key("date")); ok {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			sess.FirstActivityAt = parsed
		} else {
			s.logger.Warn("discarding unparseable activity date", "value", raw)
			s.kv.Set(s.key("date"), now.UTC().Format(time.RFC3339Nano))
		}
	} else {
		s.kv.Set(s.key("date"), now.UTC().Format(time.RFC3339Nano))
	}

	if raw, ok := s.kv.Get(s.key("count")); ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			sess.SuccessfulExchangeCount = n
		}
	} else {
		s.kv.Set(s.key("count"), "0")
	}

	if id, ok := s.kv.Get(s.key("session_token")); ok && id != "" {
		sess.ID = id
	} else {
		sess.ID = s.newID()
		s.kv.Set(s.key("session_token"), sess.ID)
	}

	return sess
}

// SaveCount persists the successful-exchange counter.
func (s *Store) SaveCount(n int) {
	s.kv.Set(s.key("count"), strconv.Itoa(n))
}

// SaveActivityDate persists the first-activity timestamp.
func (s *Store) SaveActivityDate(d time.Time) {
	s.kv.Set(s.key("date"), d.UTC().Format(time.RFC3339Nano))
}

// SaveSessionID persists a (possibly server-reassigned) session id.
func (s *Store) SaveSessionID(id string) {
	s.kv.Set(s.key("session_token"), id)
}

// RatingShown reports whether the rating prompt was shown for sessionID.
// Anything other than the literal "1" reads as false.
func (s *Store) RatingShown(sessionID string) bool {
	v, _ := s.kv.Get(s.key("rating_shown_" + sessionID))
	return v == "1"
}

// SetRatingShown records whether the rating prompt was shown for sessionID.
func (s *Store) SetRatingShown(sessionID string, value bool) {
	s.kv.Set(s.key("rating_shown_"+sessionID), flagValue(value))
}

// RatingSubmitted reports whether a rating was submitted for sessionID.
func (s *Store) RatingSubmitted(sessionID string) bool {
	v, _ := s.kv.Get(s.key("rating_submitted_" + sessionID))
	return v == "1"
}

// SetRatingSubmitted records whether a rating was submitted for sessionID.
func (s *Store) SetRatingSubmitted(sessionID string, value bool) {
	s.kv.Set(s.key("rating_submitted_"+sessionID), flagValue(value))
}

func flagValue(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
