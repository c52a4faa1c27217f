package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskchat/internal/apiclient"
	"taskchat/internal/apperror"
	"taskchat/internal/credential"
	"taskchat/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, mux *http.ServeMux) (*Service, *credential.Store) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	creds := credential.New(storage.NewMemoryStore(), nil)
	api := apiclient.New(creds, apiclient.Options{BaseURL: server.URL})
	return NewService(api, creds, nil), creds
}

func TestLoginStoresCredential(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Username != "alice" || body.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"jwt-1","token_type":"bearer"}`))
	})
	svc, creds := newService(t, mux)

	require.NoError(t, svc.Login(context.Background(), " alice ", "pw"))
	token, ok := creds.Get()
	require.True(t, ok)
	assert.Equal(t, "jwt-1", token)
}

func TestLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
	})
	svc, creds := newService(t, mux)

	err := svc.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", apperror.SafeMessage(err))
	assert.False(t, creds.Present())
}

func TestLoginValidation(t *testing.T) {
	svc, _ := newService(t, http.NewServeMux())
	err := svc.Login(context.Background(), "  ", "pw")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	err = svc.Login(context.Background(), "alice", "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestSignupDoesNotLogIn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /signup", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"User created successfully"}`))
	})
	svc, creds := newService(t, mux)

	msg, err := svc.Signup(context.Background(), "bob", "pw")
	require.NoError(t, err)
	assert.Equal(t, "User created successfully", msg)
	assert.False(t, creds.Present())
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	svc, creds := newService(t, mux)
	require.NoError(t, creds.Set("tok"))

	err := svc.Logout(context.Background())
	assert.Error(t, err)
	assert.False(t, creds.Present())
}

func TestLogoutWithoutCredentialIsLocal(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) { calls++ })
	svc, _ := newService(t, mux)

	require.NoError(t, svc.Logout(context.Background()))
	assert.Zero(t, calls)
}

func TestMe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"username":"alice","created_at":"2024-05-01T10:00:00Z"}`))
	})
	svc, creds := newService(t, mux)
	require.NoError(t, creds.Set("tok"))

	user, err := svc.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 2024, user.CreatedAt.Year())
}

func TestMeAcceptsTimestampWithoutZone(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"username":"alice","created_at":"2024-05-01T10:00:00.123000"}`))
	})
	svc, creds := newService(t, mux)
	require.NoError(t, creds.Set("tok"))

	user, err := svc.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC), user.CreatedAt.Time)
}
