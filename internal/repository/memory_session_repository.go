package repository

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

// MemorySessionRepository keeps assistant sessions in process when Redis is disabled.
// Sessions are lost on restart.
type MemorySessionRepository struct {
	mu    sync.Mutex
	store *cache.Cache
}

// NewMemorySessionRepository builds the store; expired entries are purged every cleanupInterval.
func NewMemorySessionRepository(cleanupInterval time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{store: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (r *MemorySessionRepository) Save(_ context.Context, session *models.BookingSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return appErrors.ErrSessionExpired
	}
	r.store.Set(sessionKey(session.Token), cloneSession(session), ttl)
	return nil
}

func (r *MemorySessionRepository) Get(_ context.Context, token string) (*models.BookingSession, error) {
	raw, ok := r.store.Get(sessionKey(token))
	if !ok {
		return nil, appErrors.ErrSessionExpired
	}
	session, ok := raw.(*models.BookingSession)
	if !ok {
		return nil, appErrors.ErrSessionExpired
	}
	return cloneSession(session), nil
}

// Take removes and returns a session; concurrent takes of one token see it at most once.
func (r *MemorySessionRepository) Take(ctx context.Context, token string) (*models.BookingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, err := r.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	r.store.Delete(sessionKey(token))
	return session, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, token string) error {
	r.store.Delete(sessionKey(token))
	return nil
}

func cloneSession(session *models.BookingSession) *models.BookingSession {
	copied := *session
	copied.Windows = append([]models.AvailableWindow(nil), session.Windows...)
	if session.SelectedWindow != nil {
		selected := *session.SelectedWindow
		copied.SelectedWindow = &selected
	}
	return &copied
}
