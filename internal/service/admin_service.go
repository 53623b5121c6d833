package service

import (
	"crypto/subtle"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrAdminDisabled     = errors.New("admin passphrase not configured")
)

type IAdminService interface {
	Login(passphrase string) (string, error)
	Authorize(token string) bool
	Logout(token string)
}

// AdminService 單一共用密語，token 在程序結束前都有效
type AdminService struct {
	passphrase []byte
	mu         sync.RWMutex
	tokens     map[string]struct{}
}

var _ IAdminService = (*AdminService)(nil)

func NewAdminService(passphrase string) *AdminService {
	return &AdminService{
		passphrase: []byte(passphrase),
		tokens:     make(map[string]struct{}),
	}
}

func (a *AdminService) Login(passphrase string) (string, error) {
	if len(a.passphrase) == 0 {
		return "", ErrAdminDisabled
	}
	if subtle.ConstantTimeCompare([]byte(passphrase), a.passphrase) != 1 {
		return "", ErrInvalidPassphrase
	}

	token := uuid.New().String()
	a.mu.Lock()
	a.tokens[token] = struct{}{}
	a.mu.Unlock()
	return token, nil
}

func (a *AdminService) Authorize(token string) bool {
	if token == "" {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.tokens[token]
	return ok
}

func (a *AdminService) Logout(token string) {
	a.mu.Lock()
	delete(a.tokens, token)
	a.mu.Unlock()
}
