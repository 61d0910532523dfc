package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-apotek/internal/pricing"
)

// Receipt is the outcome of a committed checkout, kept for the invoice view.
type Receipt struct {
	BillID        int64           `json:"billId"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	Lines         []pricing.Line  `json:"items"`
	Totals        pricing.Summary `json:"totals"`
	BilledAt      time.Time       `json:"billTimestamp"`
	// Warning is set when the bill committed but the session could not be updated.
	Warning       string          `json:"warning,omitempty"`
}

// Session is the per-login state passed explicitly to every cart operation.
type Session struct {
	ID          string   `json:"id"`
	Cart        Cart     `json:"cart"`
	LastReceipt *Receipt `json:"lastReceipt,omitempty"`
}

func (s *Session) blank() bool {
	return s.Cart.Empty() && s.LastReceipt == nil
}

// SessionStore persists sessions between requests.
type SessionStore interface {
	// Load returns the stored session or a fresh one when none exists.
	Load(ctx context.Context, id string) (*Session, error)
	// Save stores the session; a session with nothing in it is deleted.
	Save(ctx context.Context, s *Session) error
}

// RedisSessionStore keeps sessions as JSON with a sliding TTL.
type RedisSessionStore struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s *RedisSessionStore) key(id string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "cart:"
	}
	return prefix + id
}

func (s *RedisSessionStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 12 * time.Hour
	}
	return s.TTL
}

// Load implements SessionStore.
func (s *RedisSessionStore) Load(ctx context.Context, id string) (*Session, error) {
	if s == nil || s.R == nil {
		return nil, errors.New("session store not configured")
	}
	raw, err := s.R.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Session{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	sess.ID = id
	return &sess, nil
}

// Save implements SessionStore.
func (s *RedisSessionStore) Save(ctx context.Context, sess *Session) error {
	if s == nil || s.R == nil {
		return errors.New("session store not configured")
	}
	if sess.blank() {
		return s.R.Del(ctx, s.key(sess.ID)).Err()
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.R.Set(ctx, s.key(sess.ID), payload, s.ttl()).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// MemorySessionStore is an in-process SessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

// NewMemorySessionStore returns an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string][]byte{}}
}

// Load implements SessionStore.
func (m *MemorySessionStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	raw, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return &Session{ID: id}, nil
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Save implements SessionStore.
func (m *MemorySessionStore) Save(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess.blank() {
		delete(m.sessions, sess.ID)
		return nil
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	m.sessions[sess.ID] = raw
	return nil
}
