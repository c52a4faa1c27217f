package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"taskchat/internal/apiclient"
	"taskchat/internal/apperror"
	"taskchat/internal/auth"
	"taskchat/internal/chat"
	"taskchat/internal/credential"
	"taskchat/internal/i18n"
	"taskchat/internal/session"
	"taskchat/internal/todo"

	"golang.org/x/term"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[90m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// Deps wires the REPL to the core services.
type Deps struct {
	Creds   *credential.Store
	API     *apiclient.Client
	Auth    *auth.Service
	Todos   *todo.Client
	Chat    *chat.Client
	Manager *chat.Manager
	Locale  *i18n.I18n
	Logger  *slog.Logger
	// ProjectDir receives the project config written by /server.
	ProjectDir string
}

// Loop 持有 REPL 状态：会话门控、当前模式与上次列出的待办
// Loop holds REPL state: the session gate, the current mode and the last
// todo listing that numbered commands refer to.
type Loop struct {
	deps  Deps
	in    LineInput
	out   io.Writer
	color bool
	width int

	gate          *session.Gate
	authenticated bool
	chatMode      bool
	todos         todo.List
}

// NewLoop builds a REPL loop reading from in and writing to out.
func NewLoop(deps Deps, in LineInput, out io.Writer) *Loop {
	if deps.Locale == nil {
		deps.Locale = i18n.New("")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	loop := &Loop{deps: deps, in: in, out: out, width: 80}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		loop.color = useColor()
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			loop.width = w
		}
	}
	return loop
}

// Run reads commands until /exit or end of input.
func (l *Loop) Run(ctx context.Context) error {
	defer l.dropGate()
	l.println(l.deps.Locale.T("repl.welcome", l.deps.API.BaseURL()))

	for {
		line, err := l.in.ReadLine(l.prompt())
		if err != nil {
			switch {
			case errors.Is(err, errInterrupt):
				fmt.Fprintln(l.out)
				continue
			case errors.Is(err, io.EOF):
				l.println(l.deps.Locale.T("repl.bye"))
				return nil
			default:
				return fmt.Errorf("read input: %w", err)
			}
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if exit := l.handleCommand(ctx, input); exit {
				l.println(l.deps.Locale.T("repl.bye"))
				return nil
			}
			continue
		}
		if !l.chatMode {
			l.println(l.deps.Locale.T("repl.not_a_command"))
			continue
		}
		l.sendChat(ctx, input)
	}
}

func (l *Loop) prompt() string {
	label := "todos"
	if l.chatMode {
		label = "chat"
	}
	if l.authenticated {
		if claims, ok := l.deps.Creds.Claims(); ok && claims.Subject != "" {
			label = claims.Subject + "@" + label
		}
	}
	return l.paint(ansiGreen, "["+label+"]") + "> "
}

// ensureSession mounts a gate unless the current one resolved authenticated
// and has not redirected since. The gate prints the redirect itself.
func (l *Loop) ensureSession(ctx context.Context) bool {
	if l.gate != nil && l.authenticated {
		return true
	}
	l.dropGate()
	var gate *session.Gate
	gate = session.NewGate(l.deps.Creds, l.deps.API, session.Options{
		Logger:     l.deps.Logger,
		OnRedirect: func() { l.redirect(gate) },
	})
	l.gate = gate
	l.authenticated = gate.Mount(ctx) == session.Authenticated
	return l.authenticated
}

func (l *Loop) redirect(gate *session.Gate) {
	locale := l.deps.Locale
	switch {
	case gate.Err() != nil:
		l.printError(locale.T("session.verify_failed", apperror.SafeMessage(gate.Err())))
	case l.authenticated:
		l.printError(locale.T("session.expired"))
	default:
		l.println(locale.T("login.required"))
	}
	l.authenticated = false
	l.chatMode = false
	l.todos = nil
}

func (l *Loop) dropGate() {
	if l.gate != nil {
		l.gate.Unmount()
		l.gate = nil
	}
	l.authenticated = false
}

// report prints err inline. Rejected credentials are reported by the gate.
func (l *Loop) report(err error) {
	if err == nil || apiclient.Classify(err) == apiclient.Unauthorized {
		return
	}
	l.deps.Logger.Debug("repl command failed", slog.Any("error", err))
	l.printError(apperror.SafeMessage(err))
}

func (l *Loop) println(text string) {
	fmt.Fprintln(l.out, text)
}

func (l *Loop) printError(text string) {
	fmt.Fprintln(l.out, l.paint(ansiRed, text))
}

func (l *Loop) paint(color, text string) string {
	if !l.color {
		return text
	}
	return color + text + ansiReset
}

func useColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}
