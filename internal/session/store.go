package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abd-ghreeb/venture-pulse/internal/secrets"
)

const DefaultTTL = 24 * time.Hour

// Store loads and saves sessions through a primary KV. When a fallback is
// configured, primary failures degrade to it instead of surfacing.
type Store struct {
	primary  KV
	fallback KV
	ttl      time.Duration
	key      []byte
	prefix   string
	logger   *zap.Logger
}

type Option func(*Store)

// WithFallback routes reads and writes to kv whenever the primary errors.
func WithFallback(kv KV) Option {
	return func(s *Store) { s.fallback = kv }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithEncryptionKey seals payloads with AES-256-GCM before they reach a KV.
func WithEncryptionKey(key []byte) Option {
	return func(s *Store) { s.key = append([]byte{}, key...) }
}

func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(primary KV, opts ...Option) *Store {
	s := &Store{
		primary: primary,
		ttl:     DefaultTTL,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load never fails: absent keys, unreachable backends and undecodable
// payloads all yield an empty session.
func (s *Store) Load(ctx context.Context, sessionID string) Session {
	key := s.keyFor(sessionID)
	raw, err := s.primary.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		raw, err = s.getFallback(ctx, key)
		if err != nil {
			return New()
		}
	default:
		s.logger.Warn("session load failed on primary store", zap.String("session_id", sessionID), zap.Error(err))
		if s.fallback == nil {
			return New()
		}
		fallbackTotal.WithLabelValues("load").Inc()
		raw, err = s.getFallback(ctx, key)
		if err != nil {
			return New()
		}
	}
	sess, err := s.decode(key, raw)
	if err != nil {
		s.logger.Warn("discarding unreadable session payload", zap.String("session_id", sessionID), zap.Error(err))
		return New()
	}
	return sess
}

// Save writes with the store TTL. It only errors when the payload cannot be
// encoded or when no backend accepted the write.
func (s *Store) Save(ctx context.Context, sessionID string, sess Session) error {
	key := s.keyFor(sessionID)
	payload, err := s.encode(key, sess)
	if err != nil {
		return err
	}
	primaryErr := s.primary.Set(ctx, key, payload, s.ttl)
	if primaryErr == nil {
		return nil
	}
	s.logger.Warn("session save failed on primary store", zap.String("session_id", sessionID), zap.Error(primaryErr))
	if s.fallback == nil {
		return fmt.Errorf("save session: %w", primaryErr)
	}
	fallbackTotal.WithLabelValues("save").Inc()
	if err := s.fallback.Set(ctx, key, payload, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", errors.Join(primaryErr, err))
	}
	return nil
}

// Reset deletes the session from every backend. A primary failure is always
// returned, since the primary copy would reappear once the backend recovers.
func (s *Store) Reset(ctx context.Context, sessionID string) error {
	key := s.keyFor(sessionID)
	var errs []error
	if err := s.primary.Delete(ctx, key); err != nil {
		s.logger.Warn("session reset failed on primary store", zap.String("session_id", sessionID), zap.Error(err))
		errs = append(errs, err)
	}
	if s.fallback != nil {
		if err := s.fallback.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("reset session: %w", errors.Join(errs...))
	}
	return nil
}

// Ping reports whether the primary backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if pinger, ok := s.primary.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func (s *Store) getFallback(ctx context.Context, key string) ([]byte, error) {
	if s.fallback == nil {
		return nil, ErrNotFound
	}
	return s.fallback.Get(ctx, key)
}

func (s *Store) keyFor(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) encode(key string, sess Session) ([]byte, error) {
	sess.normalize()
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if len(s.key) == 0 {
		return payload, nil
	}
	sealed, err := secrets.Seal(s.key, payload, key)
	if err != nil {
		return nil, fmt.Errorf("seal session: %w", err)
	}
	return []byte(sealed), nil
}

func (s *Store) decode(key string, raw []byte) (Session, error) {
	if len(s.key) > 0 {
		opened, err := secrets.Open(s.key, string(raw), key)
		if err != nil {
			return Session{}, fmt.Errorf("open session: %w", err)
		}
		raw = opened
	}
	sess := New()
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	sess.normalize()
	return sess, nil
}
