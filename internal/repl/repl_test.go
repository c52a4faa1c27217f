package repl

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"taskchat/internal/apiclient"
	"taskchat/internal/auth"
	"taskchat/internal/chat"
	"taskchat/internal/credential"
	"taskchat/internal/i18n"
	"taskchat/internal/logging"
	"taskchat/internal/storage"
	"taskchat/internal/todo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validToken = "tok-bob"

type backend struct {
	mu       sync.Mutex
	reject   atomic.Bool
	requests atomic.Int32
	todos    todo.List
	nextID   int
	uploaded []string
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		b.requests.Add(1)
		if b.reject.Load() || r.Header.Get("Authorization") != "Bearer "+validToken {
			http.Error(w, `{"detail":"Could not validate credentials"}`, http.StatusUnauthorized)
			return false
		}
		return true
	}
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"` + validToken + `","token_type":"bearer"}`))
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = w.Write([]byte(`{"username":"bob"}`))
		}
	})
	mux.HandleFunc("GET /todos/{$}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(b.todos)
	})
	mux.HandleFunc("POST /todos/{$}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		var f todo.Fields
		_ = json.NewDecoder(r.Body).Decode(&f)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.nextID++
		t := todo.Todo{ID: b.nextID, Name: f.Name, IsCompleted: f.IsCompleted}
		b.todos = b.todos.Upsert(t)
		_ = json.NewEncoder(w).Encode(t)
	})
	mux.HandleFunc("/todos/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		id, _ := strconv.Atoi(r.PathValue("id"))
		b.mu.Lock()
		defer b.mu.Unlock()
		i := b.todos.Index(id)
		if i < 0 {
			http.Error(w, `{"detail":"Todo not found"}`, http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodPut:
			var f todo.Fields
			_ = json.NewDecoder(r.Body).Decode(&f)
			t := todo.Todo{ID: id, Name: f.Name, IsCompleted: f.IsCompleted}
			b.todos = b.todos.Replace(id, t)
			_ = json.NewEncoder(w).Encode(t)
		case http.MethodDelete:
			removed := b.todos[i]
			b.todos = b.todos.Remove(id)
			_ = json.NewEncoder(w).Encode(removed)
		}
	})
	mux.HandleFunc("GET /chat/history", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = w.Write([]byte(`{"history":[]}`))
		}
	})
	mux.HandleFunc("POST /chat/{$}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"response":"echo: ` + body["message"] + `","timestamp":"2024-05-01T10:00:00Z"}`))
	})
	mux.HandleFunc("POST /chat/clear", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = w.Write([]byte(`{"message":"cleared"}`))
		}
	})
	mux.HandleFunc("POST /chat/upload", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, `{"detail":"no file"}`, http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.uploaded = append(b.uploaded, header.Filename)
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"message":"File uploaded successfully","filename":"` + header.Filename + `"}`))
	})
	return mux
}

type fixture struct {
	backend *backend
	creds   *credential.Store
	deps    Deps
}

func newFixture(t *testing.T, seed ...todo.Todo) *fixture {
	t.Helper()
	b := &backend{todos: seed, nextID: len(seed)}
	server := httptest.NewServer(b.handler())
	t.Cleanup(server.Close)

	logger := logging.Discard()
	creds := credential.New(storage.NewMemoryStore(), logger)
	api := apiclient.New(creds, apiclient.Options{BaseURL: server.URL, Logger: logger})
	chatClient := chat.NewClient(api, chat.Texts{}, logger)
	return &fixture{
		backend: b,
		creds:   creds,
		deps: Deps{
			Creds:      creds,
			API:        api,
			Auth:       auth.NewService(api, creds, logger),
			Todos:      todo.NewClient(api),
			Chat:       chatClient,
			Manager:    chat.NewManager(chatClient, logger),
			Locale:     i18n.New("en"),
			Logger:     logger,
			ProjectDir: t.TempDir(),
		},
	}
}

func (f *fixture) run(t *testing.T, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := NewBasicInput(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
	loop := NewLoop(f.deps, in, &out)
	require.NoError(t, loop.Run(context.Background()))
	return out.String()
}

func TestProtectedCommandWithoutCredentialAsksForLogin(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, "/todos")

	assert.Contains(t, out, "Please log in to continue.")
	assert.Equal(t, int32(0), f.backend.requests.Load())
}

func TestLoginThenListAndEditTodos(t *testing.T) {
	f := newFixture(t, todo.Todo{ID: 1, Name: "a"}, todo.Todo{ID: 2, Name: "b"})

	out := f.run(t,
		"/login bob", "pw",
		"/toggle 1",
		"/add c",
		"/rename 2 bee",
		"/rm 1",
		"/todos",
	)

	assert.Contains(t, out, "Logged in.")
	assert.Contains(t, out, "  1. [x] a")
	assert.Contains(t, out, `Added "c".`)
	assert.Contains(t, out, `Updated "bee".`)
	assert.Contains(t, out, `Deleted "a".`)
	assert.Contains(t, out, "  1. [ ] bee")
	assert.Contains(t, out, "  2. [ ] c")
	assert.True(t, f.creds.Present())
}

func TestUnknownTodoNumber(t *testing.T) {
	f := newFixture(t, todo.Todo{ID: 1, Name: "a"})
	require.NoError(t, f.creds.Set(validToken))

	out := f.run(t, "/toggle 5")

	assert.Contains(t, out, "No todo number 5.")
}

func TestLoginFailureShowsDetail(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, "/login bob", "wrong")

	assert.Contains(t, out, "Invalid credentials")
	assert.False(t, f.creds.Present())
}

func TestRejectedCredentialMidSessionReportsExpiryOnce(t *testing.T) {
	f := newFixture(t, todo.Todo{ID: 1, Name: "a"})
	require.NoError(t, f.creds.Set(validToken))

	var out bytes.Buffer
	in := NewBasicInput(strings.NewReader("/todos\n/add b\n"), &out)
	loop := NewLoop(f.deps, in, &out)
	// Reject everything after the first listing.
	ctx := context.Background()
	loop.listTodos(ctx)
	f.backend.reject.Store(true)
	require.NoError(t, loop.Run(ctx))

	assert.Equal(t, 1, strings.Count(out.String(), "Your session has expired. Please log in again."))
	assert.False(t, f.creds.Present())
}

func TestChatModeSendsPlainLines(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.creds.Set(validToken))

	out := f.run(t, "hello?", "/chat", "hi there", "/clear")

	assert.Contains(t, out, "Not in chat mode.")
	assert.Contains(t, out, "Assistant: Hello! I'm your AI assistant")
	assert.Contains(t, out, "Assistant: echo: hi there")
	assert.Contains(t, out, "Conversation cleared.")
	messages := f.deps.Manager.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, chat.GreetingID, messages[0].ID)
}

func TestUploadAndServer(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.creds.Set(validToken))
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	out := f.run(t, "/upload "+path, "/server https://api.example.com/")

	assert.Contains(t, out, "File uploaded successfully")
	assert.Equal(t, []string{"notes.txt"}, f.backend.uploaded)
	assert.Contains(t, out, "Saved server URL")
	data, err := os.ReadFile(filepath.Join(f.deps.ProjectDir, ".taskchat", "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"base_url": "https://api.example.com"`)
}

func TestLogoutClearsCredential(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.creds.Set(validToken))

	out := f.run(t, "/whoami", "/logout", "/exit", "/todos")

	assert.Contains(t, out, "Signed in as bob")
	assert.Contains(t, out, "Logged out.")
	assert.NotContains(t, out, "Please log in")
	assert.False(t, f.creds.Present())
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	out := f.run(t, "/nope")
	assert.Contains(t, out, "Unknown command: /nope")
}

func TestFormatTodoTruncatesWideNames(t *testing.T) {
	f := newFixture(t)
	loop := NewLoop(f.deps, NewBasicInput(strings.NewReader(""), &bytes.Buffer{}), &bytes.Buffer{})
	loop.width = 20

	line := loop.formatTodo(1, todo.Todo{ID: 1, Name: "整理一下这个非常长的待办事项名称"})

	assert.True(t, strings.HasPrefix(line, "  1. [ ] "))
	assert.True(t, strings.HasSuffix(line, "…"))
	assert.LessOrEqual(t, len([]rune(line)), 20)
}
