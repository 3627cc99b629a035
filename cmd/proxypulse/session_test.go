package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSaveLoadClear(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	sm := NewSessionManager()

	loaded, err := sm.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	session := &Session{
		Token:     "tok",
		TokenType: "Bearer",
		ExpiresAt: time.Now().Add(time.Hour),
		Username:  "op",
		ServerURL: "http://localhost:8080",
	}
	require.NoError(t, sm.SaveSession(session))

	loaded, err = sm.LoadSession()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "tok", loaded.Token)
	assert.Equal(t, "op", loaded.Username)

	require.NoError(t, sm.ClearSession())
	loaded, err = sm.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestExpiredSessionIsDiscarded(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	sm := NewSessionManager()

	require.NoError(t, sm.SaveSession(&Session{
		Token:     "tok",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	loaded, err := sm.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
