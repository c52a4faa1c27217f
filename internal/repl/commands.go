package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskchat/internal/chat"
	"taskchat/internal/config"
	"taskchat/internal/todo"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

var commandNames = []string{
	"/login", "/signup", "/logout", "/whoami",
	"/todos", "/add", "/toggle", "/rename", "/rm",
	"/chat", "/clear", "/upload", "/files", "/rmfile",
	"/server", "/help", "/exit", "/quit",
}

// handleCommand runs one slash command and reports whether the loop should
// exit.
func (l *Loop) handleCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}
	cmd := parts[0]
	rest := strings.TrimSpace(strings.TrimPrefix(input, cmd))
	locale := l.deps.Locale

	switch cmd {
	case "/exit", "/quit":
		return true
	case "/help":
		l.println(locale.T("repl.help"))
	case "/login":
		l.login(ctx, rest)
	case "/signup":
		l.signup(ctx, rest)
	case "/logout":
		l.logout(ctx)
	case "/whoami":
		l.whoami(ctx)
	case "/todos":
		l.chatMode = false
		l.listTodos(ctx)
	case "/add":
		if rest == "" {
			l.println(locale.T("repl.usage", "/add <name>"))
			return false
		}
		l.addTodo(ctx, rest)
	case "/toggle":
		if len(parts) != 2 {
			l.println(locale.T("repl.usage", "/toggle <n>"))
			return false
		}
		l.toggleTodo(ctx, parts[1])
	case "/rename":
		if len(parts) < 3 {
			l.println(locale.T("repl.usage", "/rename <n> <name>"))
			return false
		}
		l.renameTodo(ctx, parts[1], strings.TrimSpace(strings.TrimPrefix(rest, parts[1])))
	case "/rm":
		if len(parts) != 2 {
			l.println(locale.T("repl.usage", "/rm <n>"))
			return false
		}
		l.deleteTodo(ctx, parts[1])
	case "/chat":
		l.enterChat(ctx)
	case "/clear":
		l.clearChat(ctx)
	case "/upload":
		if rest == "" {
			l.println(locale.T("repl.usage", "/upload <path>"))
			return false
		}
		l.upload(ctx, rest)
	case "/files":
		l.listFiles(ctx)
	case "/rmfile":
		if rest == "" {
			l.println(locale.T("repl.usage", "/rmfile <name>"))
			return false
		}
		l.deleteFile(ctx, rest)
	case "/server":
		l.server(rest)
	default:
		l.println(locale.T("repl.unknown", cmd))
	}
	return false
}

func (l *Loop) login(ctx context.Context, username string) {
	locale := l.deps.Locale
	if username == "" {
		var err error
		username, err = l.in.ReadLine(locale.T("repl.username_prompt"))
		if err != nil {
			return
		}
	}
	password, err := l.in.ReadSecret(locale.T("repl.password_prompt"))
	if err != nil {
		return
	}
	l.dropGate()
	if err := l.deps.Auth.Login(ctx, username, password); err != nil {
		l.report(err)
		return
	}
	l.println(locale.T("login.success"))
	l.listTodos(ctx)
}

func (l *Loop) signup(ctx context.Context, username string) {
	locale := l.deps.Locale
	if username == "" {
		var err error
		username, err = l.in.ReadLine(locale.T("repl.username_prompt"))
		if err != nil {
			return
		}
	}
	password, err := l.in.ReadSecret(locale.T("repl.password_prompt"))
	if err != nil {
		return
	}
	message, err := l.deps.Auth.Signup(ctx, username, password)
	if err != nil {
		l.report(err)
		return
	}
	if message != "" {
		l.println(message)
	}
	l.println(locale.T("signup.success"))
}

func (l *Loop) logout(ctx context.Context) {
	// Logout is deliberate; the gate must not report it as an expiry.
	l.dropGate()
	l.chatMode = false
	l.todos = nil
	err := l.deps.Auth.Logout(ctx)
	l.println(l.deps.Locale.T("logout.done"))
	l.report(err)
}

func (l *Loop) whoami(ctx context.Context) {
	if !l.ensureSession(ctx) {
		return
	}
	user, err := l.deps.Auth.Me(ctx)
	if err != nil {
		l.report(err)
		return
	}
	line := l.deps.Locale.T("session.signed_in", user.Username)
	if claims, ok := l.deps.Creds.Claims(); ok && !claims.ExpiresAt.IsZero() {
		line += " (" + l.deps.Locale.T("session.expires", claims.ExpiresAt.Local().Format(time.DateTime)) + ")"
	}
	l.println(line)
}

func (l *Loop) listTodos(ctx context.Context) {
	if !l.ensureSession(ctx) {
		return
	}
	list, err := l.deps.Todos.List(ctx)
	if err != nil {
		l.report(err)
		return
	}
	l.todos = list
	l.printTodos()
}

func (l *Loop) printTodos() {
	locale := l.deps.Locale
	l.println(l.paint(ansiDim, locale.T("todos.count", l.todos.Pending(), len(l.todos))))
	if len(l.todos) == 0 {
		l.println(locale.T("todos.empty"))
		return
	}
	for i, t := range l.todos {
		l.println(l.formatTodo(i+1, t))
	}
}

func (l *Loop) formatTodo(n int, t todo.Todo) string {
	mark := "[ ]"
	if t.IsCompleted {
		mark = l.paint(ansiGreen, "[x]")
	}
	prefix := fmt.Sprintf("%3d. %s ", n, mark)
	limit := l.width - runewidth.StringWidth(fmt.Sprintf("%3d. [ ] ", n))
	if limit < 8 {
		limit = 8
	}
	return prefix + runewidth.Truncate(t.Name, limit, "…")
}

// todoAt resolves a 1-based number from the last listing, fetching the list
// first when nothing has been listed yet.
func (l *Loop) todoAt(ctx context.Context, arg string) (todo.Todo, bool) {
	if !l.ensureSession(ctx) {
		return todo.Todo{}, false
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		l.println(l.deps.Locale.T("repl.usage", "<n> must be a todo number"))
		return todo.Todo{}, false
	}
	if len(l.todos) == 0 {
		list, err := l.deps.Todos.List(ctx)
		if err != nil {
			l.report(err)
			return todo.Todo{}, false
		}
		l.todos = list
	}
	if n < 1 || n > len(l.todos) {
		l.println(l.deps.Locale.T("repl.no_such_todo", n))
		return todo.Todo{}, false
	}
	return l.todos[n-1], true
}

func (l *Loop) addTodo(ctx context.Context, name string) {
	if !l.ensureSession(ctx) {
		return
	}
	created, err := l.deps.Todos.Create(ctx, name)
	if err != nil {
		l.report(err)
		return
	}
	l.todos = l.todos.Upsert(created)
	l.println(l.deps.Locale.T("todos.created", created.Name))
}

func (l *Loop) toggleTodo(ctx context.Context, arg string) {
	t, ok := l.todoAt(ctx, arg)
	if !ok {
		return
	}
	updated, err := l.deps.Todos.Toggle(ctx, t)
	if err != nil {
		l.report(err)
		return
	}
	l.todos = l.todos.Replace(updated.ID, updated)
	l.println(l.formatTodo(l.todos.Index(updated.ID)+1, updated))
}

func (l *Loop) renameTodo(ctx context.Context, arg, name string) {
	t, ok := l.todoAt(ctx, arg)
	if !ok {
		return
	}
	updated, err := l.deps.Todos.Rename(ctx, t, name)
	if err != nil {
		l.report(err)
		return
	}
	l.todos = l.todos.Replace(updated.ID, updated)
	l.println(l.deps.Locale.T("todos.updated", updated.Name))
}

func (l *Loop) deleteTodo(ctx context.Context, arg string) {
	t, ok := l.todoAt(ctx, arg)
	if !ok {
		return
	}
	if _, err := l.deps.Todos.Delete(ctx, t.ID); err != nil {
		l.report(err)
		return
	}
	l.todos = l.todos.Remove(t.ID)
	l.println(l.deps.Locale.T("todos.deleted", t.Name))
}

func (l *Loop) enterChat(ctx context.Context) {
	if !l.ensureSession(ctx) {
		return
	}
	if err := l.deps.Manager.Activate(ctx); err != nil {
		l.report(err)
	}
	if !l.authenticated {
		return
	}
	l.chatMode = true
	l.println(l.paint(ansiDim, l.deps.Locale.T("repl.chat_mode")))
	for _, m := range l.deps.Manager.Messages() {
		l.printMessage(m)
	}
}

func (l *Loop) sendChat(ctx context.Context, text string) {
	before := len(l.deps.Manager.Messages())
	if err := l.deps.Manager.Send(ctx, text); err != nil {
		l.report(err)
	}
	if !l.chatMode {
		// The gate already announced the expired session.
		return
	}
	messages := l.deps.Manager.Messages()
	for i := before; i < len(messages); i++ {
		m := messages[i]
		switch {
		case m.Sender == chat.SenderBot:
			l.printMessage(m)
		case m.Status == chat.StatusFailed:
			l.println(l.paint(ansiDim, "  ("+l.deps.Locale.T("chat.failed")+")"))
		}
	}
}

func (l *Loop) printMessage(m chat.Message) {
	locale := l.deps.Locale
	if m.Sender == chat.SenderUser {
		l.println(l.paint(ansiCyan, locale.T("chat.you")+": ") + m.Text)
		return
	}
	l.println(l.paint(ansiYellow, locale.T("chat.bot")+": ") + m.Text)
}

func (l *Loop) clearChat(ctx context.Context) {
	if !l.ensureSession(ctx) {
		return
	}
	if err := l.deps.Manager.Clear(ctx); err != nil {
		l.report(err)
	}
	l.println(l.deps.Locale.T("chat.cleared"))
}

func (l *Loop) upload(ctx context.Context, path string) {
	if !l.ensureSession(ctx) {
		return
	}
	name, message, err := l.deps.Chat.UploadFile(ctx, path)
	if err != nil {
		l.report(err)
		return
	}
	if message == "" {
		message = l.deps.Locale.T("chat.uploaded", name)
	}
	l.println(message)
}

func (l *Loop) listFiles(ctx context.Context) {
	if !l.ensureSession(ctx) {
		return
	}
	files, err := l.deps.Chat.Files(ctx)
	if err != nil {
		l.report(err)
		return
	}
	if len(files) == 0 {
		l.println(l.deps.Locale.T("chat.no_files"))
		return
	}
	l.println(l.paint(ansiDim, l.deps.Locale.T("chat.files")))
	for _, f := range files {
		line := fmt.Sprintf("  %s  %s", f.Name, humanize.IBytes(uint64(f.Size)))
		if !f.UploadedAt.IsZero() {
			line += "  " + f.UploadedAt.Local().Format(time.DateTime)
		}
		l.println(line)
	}
}

func (l *Loop) deleteFile(ctx context.Context, name string) {
	if !l.ensureSession(ctx) {
		return
	}
	if err := l.deps.Chat.DeleteFile(ctx, name); err != nil {
		l.report(err)
		return
	}
	l.println(l.deps.Locale.T("chat.file_deleted", name))
}

func (l *Loop) server(url string) {
	if url == "" {
		l.println(l.deps.API.BaseURL())
		return
	}
	if err := config.WriteAPIBaseURL(l.deps.ProjectDir, url); err != nil {
		l.printError(err.Error())
		return
	}
	l.println(l.deps.Locale.T("repl.server_saved", url))
}
