package tui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (a *App) focusLoginField(password bool) {
	if password {
		a.username.Blur()
		a.password.Focus()
		return
	}
	a.password.Blur()
	a.username.Focus()
}

func (a *App) handleLoginKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.NextField):
		a.focusLoginField(a.username.Focused())
		return nil
	case key.Matches(msg, a.keys.ToggleMode):
		a.signupMode = !a.signupMode
		a.lastError = ""
		a.notice = ""
		return nil
	case key.Matches(msg, a.keys.Submit):
		if a.busy {
			return nil
		}
		if a.username.Focused() && a.password.Value() == "" {
			a.focusLoginField(true)
			return nil
		}
		return a.submitLogin()
	}

	var cmd tea.Cmd
	if a.password.Focused() {
		a.password, cmd = a.password.Update(msg)
	} else {
		a.username, cmd = a.username.Update(msg)
	}
	return cmd
}

func (a *App) submitLogin() tea.Cmd {
	username := strings.TrimSpace(a.username.Value())
	password := a.password.Value()
	svc := a.deps.Auth
	a.busy = true
	a.lastError = ""
	if a.signupMode {
		return func() tea.Msg {
			message, err := svc.Signup(context.Background(), username, password)
			return signupDoneMsg{message: message, err: err}
		}
	}
	a.notice = a.locale.T("login.in_progress")
	return func() tea.Msg {
		return loginDoneMsg{err: svc.Login(context.Background(), username, password)}
	}
}

func (a *App) handleLoginResult(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		a.busy = false
		a.password.SetValue("")
		if msg.err != nil {
			a.showError(msg.err)
			a.focusLoginField(true)
			return nil, true
		}
		cmd := a.enter(ScreenTodos)
		a.showNotice(a.locale.T("login.success"))
		return cmd, true

	case signupDoneMsg:
		a.busy = false
		a.password.SetValue("")
		if msg.err != nil {
			a.showError(msg.err)
			return nil, true
		}
		a.signupMode = false
		a.focusLoginField(true)
		a.showNotice(a.locale.T("signup.success"))
		return nil, true

	case logoutDoneMsg:
		// Local credential is already gone; the server error is informational.
		cmd := a.enter(ScreenLogin)
		a.user = ""
		a.todos = nil
		a.showNotice(a.locale.T("logout.done"))
		if msg.err != nil {
			a.showError(msg.err)
		}
		return cmd, true

	case profileMsg:
		if msg.err != nil {
			a.deps.Logger.Debug("load profile", slog.Any("error", msg.err))
			return nil, true
		}
		a.user = msg.user.Username
		return nil, true
	}
	return nil, false
}

func (a *App) loadProfile() tea.Cmd {
	svc := a.deps.Auth
	return func() tea.Msg {
		user, err := svc.Me(context.Background())
		return profileMsg{user: user, err: err}
	}
}

func (a *App) logout() tea.Cmd {
	svc := a.deps.Auth
	if a.gate != nil {
		// Logout is deliberate; no redirect from this gate.
		a.gate.Unmount()
	}
	a.busy = true
	return func() tea.Msg {
		return logoutDoneMsg{err: svc.Logout(context.Background())}
	}
}

func (a *App) renderLogin() string {
	rows := []string{
		a.theme.TitleStyle.Render(a.locale.T("login.username")),
		a.username.View(),
		"",
		a.theme.TitleStyle.Render(a.locale.T("login.password")),
		a.password.View(),
	}
	form := a.theme.FormStyle.Width(minInt(a.width-4, 48)).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.Place(a.width, lipgloss.Height(form)+2, lipgloss.Center, lipgloss.Center, form)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
