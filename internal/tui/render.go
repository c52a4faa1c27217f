package tui

import (
	"fmt"
	"strings"

	"taskchat/internal/chat"
	"taskchat/internal/i18n"
	"taskchat/internal/todo"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// RenderMarkdown 使用 Glamour 渲染 markdown 文本
// RenderMarkdown renders markdown text using Glamour
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

// RenderTranscript 渲染对话记录
// RenderTranscript renders the chat transcript; bot replies go through
// Glamour when markdown is on
func RenderTranscript(messages []chat.Message, width int, markdown bool, theme Theme, locale *i18n.I18n) string {
	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		var header string
		if msg.Sender == chat.SenderUser {
			header = theme.UserStyle.Render(locale.T("chat.you"))
		} else {
			header = theme.BotStyle.Render(locale.T("chat.bot"))
		}
		header += " " + theme.MutedStyle.Render(msg.Timestamp.Format("15:04"))
		switch msg.Status {
		case chat.StatusPending:
			header += " " + theme.MutedStyle.Render("("+locale.T("chat.pending")+")")
		case chat.StatusFailed:
			header += " " + theme.ErrorStyle.Render("("+locale.T("chat.failed")+")")
		}

		body := msg.Text
		if markdown && msg.Sender == chat.SenderBot {
			if rendered := RenderMarkdown(msg.Text, width); rendered != "" {
				body = rendered
			}
		} else {
			body = lipgloss.NewStyle().Width(width).Render(body)
		}
		blocks = append(blocks, header+"\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}

// RenderTodoLine 渲染单条待办
// RenderTodoLine renders one todo row
func RenderTodoLine(t todo.Todo, selected bool, theme Theme) string {
	box := "[ ]"
	name := t.Name
	if t.IsCompleted {
		box = "[x]"
		name = theme.DoneStyle.Render(name)
	}
	pointer := "  "
	if selected {
		pointer = theme.CursorStyle.Render("> ")
	}
	return fmt.Sprintf("%s%s %s", pointer, box, name)
}
