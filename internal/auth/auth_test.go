package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxypulse/proxypulse/internal/store"
)

type memUsers struct {
	users map[string]store.User
	next  int64
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]store.User{}}
}

func (m *memUsers) CreateUser(_ context.Context, username, hash string) (store.User, error) {
	m.next++
	u := store.User{ID: m.next, Username: username, PasswordHash: hash, CreatedAt: time.Now()}
	m.users[username] = u
	return u, nil
}

func (m *memUsers) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	u, ok := m.users[username]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func newTestService(t *testing.T) (*Service, *memUsers) {
	t.Helper()
	users := newMemUsers()
	svc, err := New(users, Config{JWTSecret: "test-secret", TokenTTL: time.Hour, BcryptCost: 4})
	require.NoError(t, err)
	return svc, users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotEqual(t, "s3cret", users.users["alice"].PasswordHash)

	tok, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.Type)
	assert.NotEmpty(t, tok.Value)

	claims, err := svc.Verify(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsGarbageAndForeignTokens(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// token signed with a different secret
	other, err := New(newMemUsers(), Config{JWTSecret: "other-secret", BcryptCost: 4})
	require.NoError(t, err)
	_, err = other.Register(context.Background(), "bob", "pw")
	require.NoError(t, err)
	tok, err := other.Login(context.Background(), "bob", "pw")
	require.NoError(t, err)
	_, err = svc.Verify(tok.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGinAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	tok, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/protected", svc.GinAuth(), func(c *gin.Context) {
		claims := c.MustGet(ClaimsKey).(*Claims)
		c.JSON(http.StatusOK, gin.H{"user": claims.Username})
	})

	// no header
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// bad token
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// valid token
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}
