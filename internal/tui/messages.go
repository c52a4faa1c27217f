package tui

import (
	"taskchat/internal/auth"
	"taskchat/internal/chat"
	"taskchat/internal/session"
	"taskchat/internal/todo"
)

// --- Tea Messages ---

// gateResolvedMsg 门控完成状态转换
// gateResolvedMsg carries the outcome of a gate mount
type gateResolvedMsg struct {
	gen    int
	screen Screen
	state  session.State
}

// redirectMsg 需要跳转到登录页
// redirectMsg asks the app to show the login screen
type redirectMsg struct {
	gen int
	err error
}

type loginDoneMsg struct{ err error }

type signupDoneMsg struct {
	message string
	err     error
}

type logoutDoneMsg struct{ err error }

type profileMsg struct {
	user auth.User
	err  error
}

type todosLoadedMsg struct {
	list todo.List
	err  error
}

type todoSavedMsg struct {
	todo    todo.Todo
	created bool
	err     error
}

type todoDeletedMsg struct {
	todo todo.Todo
	err  error
}

type chatActivatedMsg struct{ err error }

// chatChangedMsg 对话记录有变化
// chatChangedMsg signals a transcript mutation
type chatChangedMsg struct{}

type chatSentMsg struct{ err error }

type chatClearedMsg struct{ err error }

type fileUploadedMsg struct {
	name    string
	message string
	err     error
}

type filesLoadedMsg struct {
	files []chat.File
	err   error
}
