package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"taskchat/internal/apiclient"
	"taskchat/internal/apperror"
	"taskchat/internal/auth"
	"taskchat/internal/chat"
	"taskchat/internal/credential"
	"taskchat/internal/i18n"
	"taskchat/internal/session"
	"taskchat/internal/todo"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Screen 页面标识
// Screen identifies a screen
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenTodos
	ScreenChat
)

// Protected reports whether the screen sits behind a session gate.
func (s Screen) Protected() bool {
	return s != ScreenLogin
}

type inputMode int

const (
	inputNone inputMode = iota
	inputAdd
	inputEdit
	inputUpload
)

// Deps 应用依赖
// Deps wires the TUI to the core services
type Deps struct {
	Creds     *credential.Store
	API       *apiclient.Client
	Auth      *auth.Service
	Todos     *todo.Client
	Chat      *chat.Client
	Manager   *chat.Manager
	Tokenizer *chat.Tokenizer
	Locale    *i18n.I18n
	Markdown  bool
	Logger    *slog.Logger
}

// App Bubble Tea 主 Model
// App is the main Bubble Tea model
type App struct {
	deps Deps

	// 布局 / Layout
	width  int
	height int

	// 会话门控 / Session gate
	screen    Screen
	gate      *session.Gate
	gateGen   int
	gateState session.State
	events    chan tea.Msg
	// manualEvents leaves the event channel to the caller instead of
	// re-arming a blocking listener.
	manualEvents bool

	// 登录 / Login
	username   textinput.Model
	password   textinput.Model
	signupMode bool

	// 待办 / Todos
	todos  todo.List
	cursor int

	// 对话 / Chat
	chatView  viewport.Model
	chatInput textarea.Model
	files     []chat.File
	showFiles bool
	tokens    int

	// 单行输入 / Single-line prompt for add, edit and upload
	prompt    textinput.Model
	mode      inputMode
	editingID int

	// 状态 / State
	busy      bool
	spinner   spinner.Model
	notice    string
	lastError string
	user      string

	// 配置 / Config
	theme  Theme
	keys   KeyMap
	locale *i18n.I18n
}

// NewApp 创建 TUI 应用
// NewApp creates a new TUI application
func NewApp(deps Deps) App {
	if deps.Locale == nil {
		deps.Locale = i18n.New("")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	locale := deps.Locale

	username := textinput.New()
	username.Placeholder = locale.T("login.username")
	username.CharLimit = 128
	username.Focus()

	password := textinput.New()
	password.Placeholder = locale.T("login.password")
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 256

	ta := textarea.New()
	ta.Placeholder = locale.T("chat.placeholder")
	ta.CharLimit = 8192
	ta.ShowLineNumbers = false
	ta.SetHeight(3)

	prompt := textinput.New()
	prompt.CharLimit = 1024

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	app := App{
		deps:      deps,
		screen:    ScreenTodos,
		events:    make(chan tea.Msg, 64),
		username:  username,
		password:  password,
		chatView:  viewport.New(80, 20),
		chatInput: ta,
		prompt:    prompt,
		spinner:   sp,
		theme:     DarkTheme(),
		keys:      DefaultKeyMap(),
		locale:    locale,
	}
	if deps.Manager != nil {
		events := app.events
		deps.Manager.SetChangeCallback(func() {
			select {
			case events <- chatChangedMsg{}:
			default:
			}
		})
	}
	return app
}

// Init starts on the todos screen; its gate decides whether the user sees
// the list or the login form.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.listen(), a.spinner.Tick, a.enter(ScreenTodos))
}

func (a *App) listen() tea.Cmd {
	if a.manualEvents {
		return nil
	}
	events := a.events
	return func() tea.Msg {
		return <-events
	}
}

// enter switches screen. Every protected screen gets a fresh gate.
func (a *App) enter(screen Screen) tea.Cmd {
	if a.gate != nil {
		a.gate.Unmount()
		a.gate = nil
	}
	a.gateGen++
	a.screen = screen
	a.mode = inputNone
	a.prompt.Blur()
	a.busy = false
	a.showFiles = false

	if !screen.Protected() {
		a.gateState = session.Unauthenticated
		a.signupMode = false
		a.password.SetValue("")
		a.focusLoginField(false)
		return textinput.Blink
	}

	a.chatInput.Blur()
	gen := a.gateGen
	events := a.events
	var gate *session.Gate
	gate = session.NewGate(a.deps.Creds, a.deps.API, session.Options{
		Logger: a.deps.Logger,
		OnRedirect: func() {
			events <- redirectMsg{gen: gen, err: gate.Err()}
		},
	})
	a.gate = gate
	a.gateState = session.Unknown
	return func() tea.Msg {
		return gateResolvedMsg{gen: gen, screen: screen, state: gate.Mount(context.Background())}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.relayout()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case redirectMsg:
		return a, tea.Batch(a.listen(), a.handleRedirect(msg))

	case chatChangedMsg:
		a.refreshTranscript()
		return a, a.listen()

	case gateResolvedMsg:
		return a, a.handleGateResolved(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if a.gate != nil {
				a.gate.Unmount()
			}
			return a, tea.Quit
		}
		return a, a.handleKey(msg)
	}

	if cmd, ok := a.handleResult(msg); ok {
		return a, cmd
	}
	return a, a.updateFocused(msg)
}

func (a *App) handleRedirect(msg redirectMsg) tea.Cmd {
	if msg.gen != a.gateGen {
		return nil
	}
	wasAuthenticated := a.gateState == session.Authenticated
	cmd := a.enter(ScreenLogin)
	a.notice = ""
	a.lastError = ""
	a.user = ""
	a.todos = nil
	switch {
	case msg.err != nil:
		a.lastError = a.locale.T("session.verify_failed", apperror.SafeMessage(msg.err))
	case wasAuthenticated:
		a.lastError = a.locale.T("session.expired")
	default:
		a.notice = a.locale.T("login.required")
	}
	return cmd
}

func (a *App) handleGateResolved(msg gateResolvedMsg) tea.Cmd {
	if msg.gen != a.gateGen {
		return nil
	}
	// Unauthenticated is handled by the redirect that accompanies it.
	if msg.state != session.Authenticated {
		return nil
	}
	a.gateState = session.Authenticated
	switch msg.screen {
	case ScreenTodos:
		a.busy = true
		return tea.Batch(a.loadTodos(), a.loadProfile())
	case ScreenChat:
		a.busy = true
		a.chatInput.Focus()
		return tea.Batch(a.activateChat(), textarea.Blink)
	}
	return nil
}

// updateFocused forwards non-key messages (cursor blink) to whichever input
// has focus.
func (a *App) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case a.mode != inputNone:
		a.prompt, cmd = a.prompt.Update(msg)
	case a.screen == ScreenLogin:
		var c1, c2 tea.Cmd
		a.username, c1 = a.username.Update(msg)
		a.password, c2 = a.password.Update(msg)
		cmd = tea.Batch(c1, c2)
	case a.screen == ScreenChat:
		a.chatInput, cmd = a.chatInput.Update(msg)
	}
	return cmd
}

func (a *App) relayout() {
	width := a.contentWidth()
	height := a.height - 9
	if height < 3 {
		height = 3
	}
	a.chatView.Width = width
	a.chatView.Height = height
	a.chatInput.SetWidth(width)
	a.prompt.Width = width - 4
	a.refreshTranscript()
}

func (a *App) contentWidth() int {
	width := a.width
	if a.showFiles && width >= 80 {
		width -= a.sidebarWidth() + 1
	}
	if width < 20 {
		width = 20
	}
	return width
}

func (a *App) sidebarWidth() int {
	w := a.width * 30 / 100
	if w < 24 {
		w = 24
	}
	if w > 40 {
		w = 40
	}
	return w
}

func (a *App) refreshTranscript() {
	if a.deps.Manager == nil {
		return
	}
	messages := a.deps.Manager.Messages()
	a.chatView.SetContent(RenderTranscript(messages, a.chatView.Width, a.deps.Markdown, a.theme, a.locale))
	a.chatView.GotoBottom()
	if a.deps.Tokenizer != nil {
		a.tokens = a.deps.Tokenizer.Count(messages)
	}
}

func (a *App) showError(err error) {
	if err == nil {
		return
	}
	// A rejected credential is reported by the redirect instead.
	if apiclient.Classify(err) == apiclient.Unauthorized {
		return
	}
	a.notice = ""
	a.lastError = apperror.SafeMessage(err)
}

func (a *App) showNotice(text string) {
	a.lastError = ""
	a.notice = text
}

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return a.locale.T("status.loading")
	}

	header := a.renderHeader()
	var body string
	switch {
	case a.screen.Protected() && a.gateState == session.Unknown:
		body = a.spinner.View() + " " + a.locale.T("status.loading")
	case a.screen == ScreenLogin:
		body = a.renderLogin()
	case a.screen == ScreenTodos:
		body = a.renderTodos()
	case a.screen == ScreenChat:
		body = a.renderChat()
	}

	bodyHeight := a.height - lipgloss.Height(header) - 3
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	body = lipgloss.NewStyle().Width(a.width).Height(bodyHeight).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, a.renderMessageLine(), a.renderHint(), a.renderStatusBar(a.width))
}

func (a *App) renderHeader() string {
	tabs := []struct {
		screen Screen
		name   string
	}{
		{ScreenTodos, a.locale.T("todos.title")},
		{ScreenChat, a.locale.T("chat.title")},
	}
	if a.screen == ScreenLogin {
		title := a.locale.T("login.title")
		if a.signupMode {
			title = a.locale.T("signup.title")
		}
		return a.theme.ActiveTabStyle.Render(title)
	}
	parts := make([]string, 0, len(tabs))
	for _, tab := range tabs {
		style := a.theme.InactiveTabStyle
		if tab.screen == a.screen {
			style = a.theme.ActiveTabStyle
		}
		parts = append(parts, style.Render(tab.name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a *App) renderMessageLine() string {
	switch {
	case a.lastError != "":
		return a.theme.ErrorStyle.Render(" " + a.lastError)
	case a.notice != "":
		return a.theme.SuccessStyle.Render(" " + a.notice)
	default:
		return ""
	}
}

func (a *App) renderHint() string {
	var hint string
	switch {
	case a.mode != inputNone:
		hint = a.locale.T("todos.input_hint")
	case a.screen == ScreenLogin && a.signupMode:
		hint = a.locale.T("signup.hint")
	case a.screen == ScreenLogin:
		hint = a.locale.T("login.hint")
	case a.screen == ScreenTodos:
		hint = a.locale.T("todos.hint")
	case a.screen == ScreenChat:
		hint = a.locale.T("chat.hint")
	}
	return a.theme.MutedStyle.Render(" " + hint)
}

func (a *App) renderStatusBar(width int) string {
	status := a.locale.T("status.ready")
	switch {
	case a.screen.Protected() && a.gateState == session.Unknown:
		status = a.locale.T("status.loading")
	case a.screen == ScreenChat && a.deps.Manager != nil && a.deps.Manager.Loading():
		status = a.spinner.View() + a.locale.T("status.sending")
	case a.busy:
		status = a.spinner.View() + a.locale.T("status.working")
	}

	left := fmt.Sprintf(" %s · %s", a.locale.T("app.title"), status)
	rightParts := []string{}
	if a.user != "" {
		rightParts = append(rightParts, a.locale.T("session.signed_in", a.user))
	}
	if a.screen == ScreenChat && a.tokens > 0 {
		rightParts = append(rightParts, a.locale.T("status.tokens", a.tokens))
	}
	rightParts = append(rightParts, a.deps.API.BaseURL())
	right := strings.Join(rightParts, " · ") + "  "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return a.theme.StatusBarStyle.Width(width).Render(bar)
}

// Run 启动 Bubble Tea TUI
// Run starts the Bubble Tea TUI application
func Run(deps Deps) error {
	app := NewApp(deps)
	p := tea.NewProgram(&app, tea.WithAltScreen())
	_, err := p.Run()
	if app.gate != nil {
		app.gate.Unmount()
	}
	return err
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if a.mode != inputNone {
		return a.handlePromptKey(msg)
	}
	switch a.screen {
	case ScreenLogin:
		return a.handleLoginKey(msg)
	case ScreenTodos:
		return a.handleTodosKey(msg)
	case ScreenChat:
		return a.handleChatKey(msg)
	}
	return nil
}

// handleResult routes the completion message of an async call.
func (a *App) handleResult(msg tea.Msg) (tea.Cmd, bool) {
	if cmd, ok := a.handleLoginResult(msg); ok {
		return cmd, true
	}
	if cmd, ok := a.handleTodoResult(msg); ok {
		return cmd, true
	}
	return a.handleChatResult(msg)
}
