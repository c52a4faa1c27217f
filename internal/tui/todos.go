package tui

import (
	"context"
	"strings"

	"taskchat/internal/session"
	"taskchat/internal/todo"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func (a *App) handleTodosKey(msg tea.KeyMsg) tea.Cmd {
	if a.gateState != session.Authenticated {
		return nil
	}
	switch {
	case key.Matches(msg, a.keys.QuitLetter):
		if a.gate != nil {
			a.gate.Unmount()
		}
		return tea.Quit
	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(a.todos)-1 {
			a.cursor++
		}
	case key.Matches(msg, a.keys.Add):
		return a.openPrompt(inputAdd, a.locale.T("todos.add_placeholder"), "")
	case key.Matches(msg, a.keys.Edit):
		if t, ok := a.selectedTodo(); ok {
			a.editingID = t.ID
			return a.openPrompt(inputEdit, a.locale.T("todos.edit_placeholder"), t.Name)
		}
	case key.Matches(msg, a.keys.Toggle):
		if t, ok := a.selectedTodo(); ok {
			return a.toggleTodo(t)
		}
	case key.Matches(msg, a.keys.Delete):
		if t, ok := a.selectedTodo(); ok {
			return a.deleteTodo(t)
		}
	case key.Matches(msg, a.keys.Refresh):
		a.busy = true
		return a.loadTodos()
	case key.Matches(msg, a.keys.OpenChat):
		return a.enter(ScreenChat)
	case key.Matches(msg, a.keys.Logout):
		return a.logout()
	}
	return nil
}

func (a *App) openPrompt(mode inputMode, placeholder, value string) tea.Cmd {
	a.mode = mode
	a.prompt.Placeholder = placeholder
	a.prompt.SetValue(value)
	a.prompt.CursorEnd()
	a.chatInput.Blur()
	a.prompt.Focus()
	return textinput.Blink
}

func (a *App) closePrompt() {
	a.mode = inputNone
	a.prompt.Blur()
	a.prompt.SetValue("")
	if a.screen == ScreenChat {
		a.chatInput.Focus()
	}
}

func (a *App) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Cancel):
		a.closePrompt()
		return nil
	case key.Matches(msg, a.keys.Submit):
		value := strings.TrimSpace(a.prompt.Value())
		mode := a.mode
		id := a.editingID
		a.closePrompt()
		switch mode {
		case inputAdd:
			return a.createTodo(value)
		case inputEdit:
			if i := a.todos.Index(id); i >= 0 {
				return a.renameTodo(a.todos[i], value)
			}
		case inputUpload:
			return a.uploadFile(value)
		}
		return nil
	}
	var cmd tea.Cmd
	a.prompt, cmd = a.prompt.Update(msg)
	return cmd
}

func (a *App) selectedTodo() (todo.Todo, bool) {
	if a.cursor < 0 || a.cursor >= len(a.todos) {
		return todo.Todo{}, false
	}
	return a.todos[a.cursor], true
}

func (a *App) loadTodos() tea.Cmd {
	client := a.deps.Todos
	return func() tea.Msg {
		list, err := client.List(context.Background())
		return todosLoadedMsg{list: list, err: err}
	}
}

func (a *App) createTodo(name string) tea.Cmd {
	client := a.deps.Todos
	a.busy = true
	return func() tea.Msg {
		t, err := client.Create(context.Background(), name)
		return todoSavedMsg{todo: t, created: true, err: err}
	}
}

func (a *App) renameTodo(t todo.Todo, name string) tea.Cmd {
	client := a.deps.Todos
	a.busy = true
	return func() tea.Msg {
		updated, err := client.Rename(context.Background(), t, name)
		return todoSavedMsg{todo: updated, err: err}
	}
}

func (a *App) toggleTodo(t todo.Todo) tea.Cmd {
	client := a.deps.Todos
	a.busy = true
	return func() tea.Msg {
		updated, err := client.Toggle(context.Background(), t)
		return todoSavedMsg{todo: updated, err: err}
	}
}

func (a *App) deleteTodo(t todo.Todo) tea.Cmd {
	client := a.deps.Todos
	a.busy = true
	return func() tea.Msg {
		removed, err := client.Delete(context.Background(), t.ID)
		if err == nil && removed.ID == 0 {
			removed = t
		}
		return todoDeletedMsg{todo: removed, err: err}
	}
}

func (a *App) handleTodoResult(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case todosLoadedMsg:
		a.busy = false
		if msg.err != nil {
			a.showError(msg.err)
			return nil, true
		}
		a.todos = msg.list
		a.clampCursor()
		return nil, true

	case todoSavedMsg:
		a.busy = false
		if msg.err != nil {
			a.showError(msg.err)
			return nil, true
		}
		if msg.created {
			a.todos = a.todos.Upsert(msg.todo)
			a.cursor = len(a.todos) - 1
			a.showNotice(a.locale.T("todos.created", msg.todo.Name))
		} else {
			a.todos = a.todos.Replace(msg.todo.ID, msg.todo)
			a.showNotice(a.locale.T("todos.updated", msg.todo.Name))
		}
		return nil, true

	case todoDeletedMsg:
		a.busy = false
		if msg.err != nil {
			a.showError(msg.err)
			return nil, true
		}
		a.todos = a.todos.Remove(msg.todo.ID)
		a.clampCursor()
		a.showNotice(a.locale.T("todos.deleted", msg.todo.Name))
		return nil, true
	}
	return nil, false
}

func (a *App) clampCursor() {
	if a.cursor >= len(a.todos) {
		a.cursor = len(a.todos) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) renderTodos() string {
	var b strings.Builder
	b.WriteString(a.theme.MutedStyle.Render(" " + a.locale.T("todos.count", a.todos.Pending(), len(a.todos))))
	b.WriteString("\n\n")
	if len(a.todos) == 0 {
		b.WriteString(a.theme.MutedStyle.Render("  " + a.locale.T("todos.empty")))
	}
	for i, t := range a.todos {
		if a.mode == inputEdit && t.ID == a.editingID {
			b.WriteString("  " + a.prompt.View() + "\n")
			continue
		}
		b.WriteString(RenderTodoLine(t, i == a.cursor, a.theme) + "\n")
	}
	if a.mode == inputAdd {
		b.WriteString("\n" + a.theme.InputStyle.Width(a.contentWidth()).Render(a.prompt.View()))
	}
	return b.String()
}
