package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"realtime-canvas/internal/model"
	"realtime-canvas/internal/store"
)

// TokenService 안티포저리 토큰 발급/검증
type TokenService struct {
	store *store.Store
	clock clock.Clock
	ttl   time.Duration
}

// NewTokenService TokenService 생성
func NewTokenService(st *store.Store, clk clock.Clock, ttl time.Duration) *TokenService {
	return &TokenService{store: st, clock: clk, ttl: ttl}
}

// Issue 새 토큰 발급
func (s *TokenService) Issue(ctx context.Context) (*model.Token, error) {
	value, err := newTokenValue()
	if err != nil {
		return nil, err
	}
	return s.store.CreateToken(ctx, value, s.clock.Now().UTC())
}

// Check 토큰 유효성 확인 (존재 + 발급 후 TTL 이내)
func (s *TokenService) Check(ctx context.Context, value string) (*model.Token, error) {
	if value == "" {
		return nil, model.ErrTokenInvalid
	}
	return s.store.FindToken(ctx, value, s.clock.Now().UTC().Add(-s.ttl))
}

// newTokenValue returns a 64-char hex SHA-256 digest over random entropy.
func newTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	sum := sha256.Sum256(append(buf, uuid.NewString()...))
	return hex.EncodeToString(sum[:]), nil
}
