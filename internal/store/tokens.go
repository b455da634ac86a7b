package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"realtime-canvas/internal/model"
)

// CreateToken stores a freshly issued anti-forgery token.
func (s *Store) CreateToken(ctx context.Context, value string, issuedAt time.Time) (*model.Token, error) {
	tok := model.Token{CSRFToken: value, CreatedAt: issuedAt}
	if err := s.db.WithContext(ctx).Create(&tok).Error; err != nil {
		return nil, fmt.Errorf("%w: insert token: %v", model.ErrWriteFailure, err)
	}
	return &tok, nil
}

// FindToken returns the token with the given value issued after notBefore.
func (s *Store) FindToken(ctx context.Context, value string, notBefore time.Time) (*model.Token, error) {
	var tok model.Token
	err := s.db.WithContext(ctx).
		Where("csrf_token = ? AND created_at > ?", value, notBefore).
		First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}
