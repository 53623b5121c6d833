package service

import (
	"errors"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/assia/internal/cart"
	"github.com/RoyceAzure/lab/assia/internal/checkout"
	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/infra/assistant"
	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

const DefaultCheckoutResetDelay = 3 * time.Second

// Session 一位訪客的聊天視窗狀態
// 同一個 session 的操作以 mu 序列化
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	messages []model.ChatMessage
	turns    []assistant.Turn
	cart     *cart.Cart
	checkout *checkout.Flow
}

type ISessionStore interface {
	Create() *Session
	Get(id string) (*Session, error)
	Close(id string) bool
	Count() int
}

type SessionStore struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	resetDelay time.Duration
	now        func() time.Time
}

var _ ISessionStore = (*SessionStore)(nil)

func NewSessionStore(checkoutResetDelay time.Duration) *SessionStore {
	if checkoutResetDelay <= 0 {
		checkoutResetDelay = DefaultCheckoutResetDelay
	}
	return &SessionStore{
		sessions:   make(map[string]*Session),
		resetDelay: checkoutResetDelay,
		now:        time.Now,
	}
}

func (s *SessionStore) Create() *Session {
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: s.now(),
		cart:      cart.New(),
		checkout:  checkout.NewFlow(s.resetDelay),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close 移除 session 並取消尚未觸發的結帳重置
func (s *SessionStore) Close(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.checkout.Close()
	}
	return ok
}

func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
