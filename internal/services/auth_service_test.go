package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sjperalta/advance-portal/internal/config"
	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/internal/repository"
	"github.com/sjperalta/advance-portal/internal/session"
)

type mockUserRepo struct {
	repository.UserRepository
	users map[uint]*models.User
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	m := &mockUserRepo{users: map[uint]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	for _, u := range m.users {
		if u.Email == email && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = uint(len(m.users) + 1)
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateEmail(ctx context.Context, id uint, email string) error {
	m.users[id].Email = email
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id uint, hash string) error {
	m.users[id].Password = hash
	return nil
}

func (m *mockUserRepo) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	m.users[id].LastLogin = &at
	return nil
}

type mockSessionStore struct {
	session.Store
	sessions map[string]*session.Session
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: map[string]*session.Session{}}
}

func (m *mockSessionStore) Save(ctx context.Context, s *session.Session) error {
	m.sessions[s.Token] = s
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, token string) (*session.Session, error) {
	s, ok := m.sessions[token]
	if !ok || s.Expired(time.Now()) {
		return nil, session.ErrNotFound
	}
	return s, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func testUser(t *testing.T, id uint, email, password, status string) *models.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return &models.User{ID: id, Username: "user", Email: email, Password: hash, Role: models.RoleUser, Status: status}
}

func newTestAuthService(users *mockUserRepo, store *mockSessionStore) *AuthService {
	return NewAuthService(users, store, nil, &config.Config{SessionTTL: time.Hour})
}

func TestAuthService_Authenticate(t *testing.T) {
	users := newMockUserRepo(
		testUser(t, 1, "ana@example.com", "secret1", models.StatusActive),
		testUser(t, 2, "old@example.com", "secret2", models.StatusInactive),
	)
	svc := newTestAuthService(users, newMockSessionStore())
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"missing password", "ana@example.com", "", ErrCredentialsRequired},
		{"missing email", "  ", "secret1", ErrCredentialsRequired},
		{"bad format", "not-an-email", "secret1", ErrInvalidEmail},
		{"unknown", "nobody@example.com", "secret1", ErrUnknownEmail},
		{"inactive", "old@example.com", "secret2", ErrAccountInactive},
		{"wrong password", "ana@example.com", "nope", ErrInvalidPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Authenticate(ctx, tt.email, tt.password)
			assert.Nil(t, user)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	user, err := svc.Authenticate(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, user.ID)
}

func TestAuthService_LoginResolveLogout(t *testing.T) {
	users := newMockUserRepo(testUser(t, 1, "ana@example.com", "secret1", models.StatusActive))
	store := newMockSessionStore()
	svc := newTestAuthService(users, store)
	ctx := context.Background()

	result, err := svc.Login(ctx, "ana@example.com", "secret1", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Len(t, result.Token, 64)
	assert.Equal(t, "ana@example.com", result.User.Email)
	assert.NotNil(t, result.User.LastLogin)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)

	saved := store.sessions[result.Token]
	require.NotNil(t, saved)
	assert.Equal(t, "10.0.0.1", saved.IPAddress)

	user, sess, err := svc.Resolve(ctx, result.Token)
	require.NoError(t, err)
	assert.EqualValues(t, 1, user.ID)
	assert.Equal(t, result.Token, sess.Token)

	require.NoError(t, svc.Logout(ctx, Actor{UserID: 1}, result.Token))
	_, _, err = svc.Resolve(ctx, result.Token)
	assert.ErrorIs(t, err, ErrSessionRequired)
	assert.Equal(t, "Authentication required", Message(err))

	_, _, err = svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthService_ResolveDropsDeactivatedUser(t *testing.T) {
	users := newMockUserRepo(testUser(t, 1, "ana@example.com", "secret1", models.StatusActive))
	store := newMockSessionStore()
	svc := newTestAuthService(users, store)
	ctx := context.Background()

	result, err := svc.Login(ctx, "ana@example.com", "secret1", "", "")
	require.NoError(t, err)

	users.users[1].Status = models.StatusInactive
	_, _, err = svc.Resolve(ctx, result.Token)
	assert.ErrorIs(t, err, ErrSessionRequired)
	assert.Empty(t, store.sessions)
}

func TestAuthService_ChangePassword(t *testing.T) {
	users := newMockUserRepo(testUser(t, 1, "ana@example.com", "secret1", models.StatusActive))
	svc := newTestAuthService(users, newMockSessionStore())
	ctx := context.Background()
	actor := Actor{UserID: 1}

	assert.ErrorIs(t, svc.ChangePassword(ctx, actor, "secret1", "abc", "abc"), ErrPasswordTooShort)
	assert.ErrorIs(t, svc.ChangePassword(ctx, actor, "secret1", "abcdef", "abcdeg"), ErrPasswordMismatch)
	assert.ErrorIs(t, svc.ChangePassword(ctx, actor, "wrong", "abcdef", "abcdef"), ErrCurrentPassword)
	assert.ErrorIs(t, svc.ChangePassword(ctx, actor, "", "abcdef", "abcdef"), ErrValidation)

	require.NoError(t, svc.ChangePassword(ctx, actor, "secret1", "abcdef", "abcdef"))
	assert.True(t, VerifyPassword("abcdef", users.users[1].Password))

	_, err := svc.Authenticate(ctx, "ana@example.com", "abcdef")
	assert.NoError(t, err)
}

func TestAuthService_UpdateEmail(t *testing.T) {
	users := newMockUserRepo(
		testUser(t, 1, "ana@example.com", "secret1", models.StatusActive),
		testUser(t, 2, "bea@example.com", "secret2", models.StatusActive),
	)
	svc := newTestAuthService(users, newMockSessionStore())
	ctx := context.Background()
	actor := Actor{UserID: 1}

	_, err := svc.UpdateEmail(ctx, actor, "bea@example.com", "secret1")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.UpdateEmail(ctx, actor, "ana.new@example.com", "wrong")
	assert.ErrorIs(t, err, ErrCurrentPassword)

	_, err = svc.UpdateEmail(ctx, actor, "broken", "secret1")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	user, err := svc.UpdateEmail(ctx, actor, "ana.new@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ana.new@example.com", user.Email)
	assert.Equal(t, "ana.new@example.com", users.users[1].Email)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(users, newMockSessionStore())
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "root@example.com", "changeme")
	require.NoError(t, err)
	assert.True(t, created)

	admin := users.users[1]
	require.NotNil(t, admin)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "root", admin.Username)
	assert.True(t, VerifyPassword("changeme", admin.Password))

	created, err = svc.EnsureAdmin(ctx, "root@example.com", "changeme")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = svc.EnsureAdmin(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, VerifyPassword("secret1", hash))
	assert.False(t, VerifyPassword("secret2", hash))
}
