package session

import (
	"context"
	"time"

	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/internal/repository"
)

// DBStore keeps sessions in the sessions table. Expired rows are removed by Purge.
type DBStore struct {
	repo repository.SessionRepository
}

// NewDBStore creates a database backed store
func NewDBStore(repo repository.SessionRepository) *DBStore {
	return &DBStore{repo: repo}
}

func (s *DBStore) Save(ctx context.Context, sess *Session) error {
	return s.repo.Create(ctx, &models.Session{
		Token:     sess.Token,
		UserID:    sess.UserID,
		IPAddress: sess.IPAddress,
		UserAgent: sess.UserAgent,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *DBStore) Get(ctx context.Context, token string) (*Session, error) {
	row, err := s.repo.FindByToken(ctx, token)
	if repository.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if row.IsExpired() {
		_ = s.repo.Delete(ctx, token)
		return nil, ErrNotFound
	}
	return &Session{
		Token:     row.Token,
		UserID:    row.UserID,
		IPAddress: row.IPAddress,
		UserAgent: row.UserAgent,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

func (s *DBStore) Delete(ctx context.Context, token string) error {
	return s.repo.Delete(ctx, token)
}

func (s *DBStore) Purge(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.DeleteExpired(ctx, now)
}
