package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"task-scheduler/config"
	"task-scheduler/internal/dto"
	"task-scheduler/internal/model"
	"task-scheduler/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	nextID  uint
	users   map[uint]*model.User
	byEmail map[string]uint
	finds   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]*model.User{}, byEmail: map[string]uint{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	clone := *user
	r.users[user.ID] = &clone
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	clone := *r.users[id]
	return &clone, nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uint) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func newAuthFixture(t *testing.T) (AuthService, *fakeUserRepo) {
	t.Helper()
	cfg := testConfig()
	cfg.Auth = config.Auth{
		JWTSecret:     "test-secret",
		TokenDuration: time.Hour,
	}
	cfg.API.UserCacheTTL = time.Minute
	repo := newFakeUserRepo()
	svc := NewAuthService(cfg, testLogger(t), repo, cache.NewCache(time.Minute, time.Minute))
	return svc, repo
}

func registerRequest() dto.RegisterRequest {
	return dto.RegisterRequest{
		Email:     "dev@example.com",
		Password:  "hunter22",
		FirstName: "Dev",
		LastName:  "Example",
	}
}

func TestAuthRegisterLoginVerifyRoundTrip(t *testing.T) {
	svc, _ := newAuthFixture(t)

	user, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	token, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "dev@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerRequest())
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
}

func TestAuthLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email:    "dev@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "hunter22",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthVerifyTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.VerifyToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthGetUserUsesCache(t *testing.T) {
	svc, repo := newAuthFixture(t)
	user, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	first, err := svc.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.Email, second.Email)

	repo.mu.Lock()
	finds := repo.finds
	repo.mu.Unlock()
	assert.Equal(t, 1, finds)
}
