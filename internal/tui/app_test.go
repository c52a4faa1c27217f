package tui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
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
	"taskchat/internal/session"
	"taskchat/internal/storage"
	"taskchat/internal/todo"

	tea "github.com/charmbracelet/bubbletea"
)

const validToken = "tok-alice"

// fakeBackend is a small in-memory version of the remote service.
type fakeBackend struct {
	mu      sync.Mutex
	reject  atomic.Bool
	todos   []todo.Todo
	nextID  int
	history []chat.HistoryEntry
}

func (b *fakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if b.reject.Load() || r.Header.Get("Authorization") != "Bearer "+validToken {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
		return false
	}
	return true
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "alice" || body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"` + validToken + `","token_type":"bearer"}`))
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Successfully logged out"}`))
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if b.authorized(w, r) {
			_, _ = w.Write([]byte(`{"username":"alice","created_at":"2024-05-01T10:00:00Z"}`))
		}
	})
	mux.HandleFunc("GET /todos/{$}", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(b.todos)
	})
	mux.HandleFunc("POST /todos/{$}", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		var f todo.Fields
		_ = json.NewDecoder(r.Body).Decode(&f)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.nextID++
		t := todo.Todo{ID: b.nextID, Name: f.Name, IsCompleted: f.IsCompleted}
		b.todos = append(b.todos, t)
		_ = json.NewEncoder(w).Encode(t)
	})
	mux.HandleFunc("/todos/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		id, _ := strconv.Atoi(r.PathValue("id"))
		b.mu.Lock()
		defer b.mu.Unlock()
		list := todo.List(b.todos)
		i := list.Index(id)
		if i < 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodPut:
			var f todo.Fields
			_ = json.NewDecoder(r.Body).Decode(&f)
			t := todo.Todo{ID: id, Name: f.Name, IsCompleted: f.IsCompleted}
			b.todos = list.Replace(id, t)
			_ = json.NewEncoder(w).Encode(t)
		case http.MethodDelete:
			removed := list[i]
			b.todos = list.Remove(id)
			_ = json.NewEncoder(w).Encode(removed)
		}
	})
	mux.HandleFunc("GET /chat/history", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"history": b.history})
	})
	mux.HandleFunc("POST /chat/{$}", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"response":"You said ` + body["message"] + `","timestamp":"2024-05-01T10:00:00Z"}`))
	})
	return mux
}

type harness struct {
	app     *App
	creds   *credential.Store
	backend *fakeBackend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := &fakeBackend{
		todos:   []todo.Todo{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}},
		nextID:  2,
		history: []chat.HistoryEntry{{Role: "user", Content: "earlier"}, {Role: "assistant", Content: "reply"}},
	}
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	logger := logging.Discard()
	creds := credential.New(storage.NewMemoryStore(), logger)
	api := apiclient.New(creds, apiclient.Options{BaseURL: server.URL, Logger: logger})
	chatClient := chat.NewClient(api, chat.Texts{}, logger)
	app := NewApp(Deps{
		Creds:   creds,
		API:     api,
		Auth:    auth.NewService(api, creds, logger),
		Todos:   todo.NewClient(api),
		Chat:    chatClient,
		Manager: chat.NewManager(chatClient, logger),
		Locale:  i18n.New("en"),
		Logger:  logger,
	})
	app.manualEvents = true
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return &harness{app: &app, creds: creds, backend: backend}
}

var ownPkg = reflect.TypeOf(App{}).PkgPath()

// run executes cmd synchronously and feeds this package's messages back
// into the app. Cursor blink and spinner ticks are dropped.
func (h *harness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			h.run(c)
		}
		return
	}
	if msg == nil || reflect.TypeOf(msg).PkgPath() != ownPkg {
		return
	}
	_, next := h.app.Update(msg)
	h.run(next)
	h.drain()
}

func (h *harness) drain() {
	for {
		select {
		case msg := <-h.app.events:
			_, next := h.app.Update(msg)
			h.run(next)
		default:
			return
		}
	}
}

func (h *harness) press(keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd := h.app.Update(msg)
		h.run(cmd)
	}
}

func TestStartWithoutCredentialRedirectsToLogin(t *testing.T) {
	h := newHarness(t)

	cmd := h.app.enter(ScreenTodos)
	if h.app.gateState != session.Unknown {
		t.Fatalf("gate should start unknown")
	}
	if !strings.Contains(h.app.View(), "Loading...") {
		t.Fatalf("unknown gate should render loading: %q", h.app.View())
	}
	h.run(cmd)

	if h.app.screen != ScreenLogin {
		t.Fatalf("expected login screen, got %v", h.app.screen)
	}
	if h.app.notice != "Please log in to continue." {
		t.Fatalf("unexpected notice: %q", h.app.notice)
	}
}

func TestLoginLoadsTodosAndProfile(t *testing.T) {
	h := newHarness(t)
	h.run(h.app.enter(ScreenLogin))

	h.press("alice", "enter", "secret", "enter")

	if h.app.screen != ScreenTodos || h.app.gateState != session.Authenticated {
		t.Fatalf("expected authenticated todos screen, got screen=%v state=%v err=%q", h.app.screen, h.app.gateState, h.app.lastError)
	}
	if len(h.app.todos) != 2 {
		t.Fatalf("expected 2 todos, got %#v", h.app.todos)
	}
	if h.app.user != "alice" {
		t.Fatalf("expected profile to load, got %q", h.app.user)
	}
	if !h.creds.Present() {
		t.Fatal("credential should be stored after login")
	}
}

func TestLoginFailureShowsServerDetail(t *testing.T) {
	h := newHarness(t)
	h.run(h.app.enter(ScreenLogin))

	h.press("alice", "tab", "nope", "enter")

	if h.app.screen != ScreenLogin {
		t.Fatalf("should stay on login")
	}
	if h.app.lastError != "Invalid credentials" {
		t.Fatalf("unexpected error: %q", h.app.lastError)
	}
}

func TestTodoKeysToggleAddDelete(t *testing.T) {
	h := newHarness(t)
	if err := h.creds.Set(validToken); err != nil {
		t.Fatal(err)
	}
	h.run(h.app.enter(ScreenTodos))

	h.press("space")
	if !h.app.todos[0].IsCompleted {
		t.Fatalf("first todo should be completed: %#v", h.app.todos)
	}

	h.press("a", "c", "enter")
	if len(h.app.todos) != 3 || h.app.todos[2].Name != "c" {
		t.Fatalf("expected new todo appended: %#v", h.app.todos)
	}

	h.press("k", "k", "d")
	if len(h.app.todos) != 2 || h.app.todos[0].ID != 2 {
		t.Fatalf("expected first todo removed: %#v", h.app.todos)
	}
}

func TestRejectedCredentialDuringUseRedirectsOnce(t *testing.T) {
	h := newHarness(t)
	if err := h.creds.Set(validToken); err != nil {
		t.Fatal(err)
	}
	h.run(h.app.enter(ScreenTodos))
	if h.app.gateState != session.Authenticated {
		t.Fatalf("expected authenticated, got %v", h.app.gateState)
	}

	h.backend.reject.Store(true)
	h.press("r")

	if h.app.screen != ScreenLogin {
		t.Fatalf("expected redirect to login, got %v", h.app.screen)
	}
	if h.app.lastError != "Your session has expired. Please log in again." {
		t.Fatalf("unexpected error: %q", h.app.lastError)
	}
	if h.creds.Present() {
		t.Fatal("credential should be cleared")
	}
	if len(h.app.events) != 0 {
		t.Fatalf("expected no pending events, got %d", len(h.app.events))
	}
}

func TestChatScreenSendsAndRenders(t *testing.T) {
	h := newHarness(t)
	if err := h.creds.Set(validToken); err != nil {
		t.Fatal(err)
	}
	h.run(h.app.enter(ScreenTodos))
	h.press("c")

	if h.app.screen != ScreenChat || h.app.gateState != session.Authenticated {
		t.Fatalf("expected chat screen, got %v/%v", h.app.screen, h.app.gateState)
	}
	messages := h.app.deps.Manager.Messages()
	if len(messages) != 3 || messages[0].ID != chat.GreetingID {
		t.Fatalf("expected greeting plus history: %#v", messages)
	}

	h.press("hello", "enter")
	messages = h.app.deps.Manager.Messages()
	last := messages[len(messages)-1]
	if last.Text != "You said hello" {
		t.Fatalf("unexpected reply: %#v", last)
	}
	if !strings.Contains(h.app.View(), "You said hello") {
		t.Fatalf("reply should be visible")
	}

	h.press("esc")
	if h.app.screen != ScreenTodos {
		t.Fatalf("esc should return to todos, got %v", h.app.screen)
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	if err := h.creds.Set(validToken); err != nil {
		t.Fatal(err)
	}
	h.run(h.app.enter(ScreenTodos))

	_, cmd := h.app.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	h.run(cmd)

	if h.app.screen != ScreenLogin || h.creds.Present() {
		t.Fatalf("expected logged out, screen=%v", h.app.screen)
	}
	if h.app.notice != "Logged out." {
		t.Fatalf("unexpected notice: %q", h.app.notice)
	}
}

func TestRenderFilesShowsSizes(t *testing.T) {
	h := newHarness(t)
	h.app.files = []chat.File{{Name: "notes.txt", Size: 12}, {Name: "report.pdf", Size: 5 << 20}}

	out := h.app.renderFiles(40, 10)

	for _, want := range []string{"notes.txt", "12 B", "report.pdf", "5.0 MiB"} {
		if !strings.Contains(out, want) {
			t.Errorf("files panel missing %q:\n%s", want, out)
		}
	}
}
