package tui

import (
	"context"
	"fmt"
	"strings"

	"taskchat/internal/session"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

func (a *App) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Cancel):
		return a.enter(ScreenTodos)
	case a.gateState != session.Authenticated:
		return nil
	case key.Matches(msg, a.keys.Submit):
		if a.deps.Manager.Loading() {
			return nil
		}
		text := strings.TrimSpace(a.chatInput.Value())
		if text == "" {
			return nil
		}
		a.chatInput.Reset()
		return a.sendChat(text)
	case key.Matches(msg, a.keys.ClearChat):
		return a.clearChat()
	case key.Matches(msg, a.keys.Upload):
		return a.openPrompt(inputUpload, a.locale.T("chat.upload_prompt"), "")
	case key.Matches(msg, a.keys.ShowFiles):
		a.showFiles = !a.showFiles
		a.relayout()
		if a.showFiles {
			return a.loadFiles()
		}
		return nil
	case key.Matches(msg, a.keys.PageUp):
		a.chatView.SetYOffset(a.chatView.YOffset - a.chatView.Height/2)
		return nil
	case key.Matches(msg, a.keys.PageDown):
		a.chatView.SetYOffset(a.chatView.YOffset + a.chatView.Height/2)
		return nil
	}

	var cmd tea.Cmd
	a.chatInput, cmd = a.chatInput.Update(msg)
	return cmd
}

func (a *App) activateChat() tea.Cmd {
	manager := a.deps.Manager
	return func() tea.Msg {
		return chatActivatedMsg{err: manager.Activate(context.Background())}
	}
}

func (a *App) sendChat(text string) tea.Cmd {
	manager := a.deps.Manager
	return func() tea.Msg {
		return chatSentMsg{err: manager.Send(context.Background(), text)}
	}
}

func (a *App) clearChat() tea.Cmd {
	manager := a.deps.Manager
	a.busy = true
	return func() tea.Msg {
		return chatClearedMsg{err: manager.Clear(context.Background())}
	}
}

func (a *App) uploadFile(path string) tea.Cmd {
	client := a.deps.Chat
	a.busy = true
	return func() tea.Msg {
		name, message, err := client.UploadFile(context.Background(), path)
		return fileUploadedMsg{name: name, message: message, err: err}
	}
}

func (a *App) loadFiles() tea.Cmd {
	client := a.deps.Chat
	return func() tea.Msg {
		files, err := client.Files(context.Background())
		return filesLoadedMsg{files: files, err: err}
	}
}

func (a *App) handleChatResult(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case chatActivatedMsg:
		a.busy = false
		a.refreshTranscript()
		if msg.err != nil {
			a.showError(msg.err)
		}
		return nil, true

	case chatSentMsg:
		a.refreshTranscript()
		return nil, true

	case chatClearedMsg:
		a.busy = false
		a.refreshTranscript()
		if msg.err != nil {
			a.showError(msg.err)
		} else {
			a.showNotice(a.locale.T("chat.cleared"))
		}
		return nil, true

	case fileUploadedMsg:
		a.busy = false
		if msg.err != nil {
			a.showError(msg.err)
			return nil, true
		}
		a.showNotice(a.locale.T("chat.uploaded", msg.name))
		if a.showFiles {
			return a.loadFiles(), true
		}
		return nil, true

	case filesLoadedMsg:
		if msg.err != nil {
			a.showError(msg.err)
			return nil, true
		}
		a.files = msg.files
		return nil, true
	}
	return nil, false
}

func (a *App) renderChat() string {
	var input string
	if a.mode == inputUpload {
		input = a.theme.InputStyle.Width(a.contentWidth()).Render(a.prompt.View())
	} else {
		input = a.theme.InputStyle.Width(a.contentWidth()).Render(a.chatInput.View())
	}
	main := lipgloss.JoinVertical(lipgloss.Left, a.chatView.View(), input)
	if !a.showFiles || a.width < 80 {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, main, a.renderFiles(a.sidebarWidth(), lipgloss.Height(main)))
}

func (a *App) renderFiles(width, height int) string {
	parts := []string{a.theme.TitleStyle.Render(" " + a.locale.T("chat.files")), ""}
	if len(a.files) == 0 {
		parts = append(parts, a.theme.MutedStyle.Render("  "+a.locale.T("chat.no_files")))
	}
	for _, f := range a.files {
		parts = append(parts, fmt.Sprintf("  %s %s", f.Name, a.theme.MutedStyle.Render(humanize.IBytes(uint64(f.Size)))))
	}
	return a.theme.SidebarStyle.Width(width).Height(height).Render(strings.Join(parts, "\n"))
}
