package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

const sessionKeyPrefix = "lab:assistant:session:"

// SessionRepository keeps assistant booking sessions in Redis under an opaque token.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository builds the repository.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// Save stores the session until its ExpiresAt.
func (r *SessionRepository) Save(ctx context.Context, session *models.BookingSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return appErrors.ErrSessionExpired
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

// Get loads a session; an unknown or expired token yields ErrSessionExpired.
func (r *SessionRepository) Get(ctx context.Context, token string) (*models.BookingSession, error) {
	raw, err := r.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrSessionExpired
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var session models.BookingSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Take loads and removes a session in one step, so only one caller can claim a token.
func (r *SessionRepository) Take(ctx context.Context, token string) (*models.BookingSession, error) {
	raw, err := r.client.GetDel(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrSessionExpired
		}
		return nil, fmt.Errorf("redis take session: %w", err)
	}
	var session models.BookingSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete drops a session. Deleting an unknown token is not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
