package i18n

// EnMessages English message catalog
var EnMessages = map[string]string{
	"app.title": "taskchat",

	// Status bar
	"status.loading": "Loading...",
	"status.ready":   "Ready",
	"status.sending": "Waiting for reply...",
	"status.working": "Working...",
	"status.tokens":  "~%d tokens",
	"status.server":  "Server",

	// Login / signup screen
	"login.title":       "Log in",
	"signup.title":      "Sign up",
	"login.username":    "Username",
	"login.password":    "Password",
	"login.hint":        "enter submit · tab next field · ctrl+s sign up · ctrl+c quit",
	"signup.hint":       "enter submit · tab next field · ctrl+s log in · ctrl+c quit",
	"login.success":     "Logged in.",
	"signup.success":    "Account created. Please log in.",
	"login.required":    "Please log in to continue.",
	"login.in_progress": "Logging in...",

	// Session
	"session.expired":       "Your session has expired. Please log in again.",
	"session.verify_failed": "Could not verify your session: %s",
	"session.signed_in":     "Signed in as %s",
	"session.expires":       "expires %s",
	"logout.done":           "Logged out.",

	// Todos screen
	"todos.title":            "Todos",
	"todos.empty":            "No todos yet. Press a to add one.",
	"todos.count":            "%d of %d open",
	"todos.add_placeholder":  "What needs doing?",
	"todos.edit_placeholder": "New name",
	"todos.created":          "Added %q.",
	"todos.updated":          "Updated %q.",
	"todos.deleted":          "Deleted %q.",
	"todos.hint":             "a add · e edit · space toggle · d delete · c chat · r refresh · ctrl+o logout · q quit",
	"todos.input_hint":       "enter save · esc cancel",

	// Chat screen
	"chat.title":           "Assistant",
	"chat.placeholder":     "Ask something...",
	"chat.hint":            "enter send · ctrl+l clear · ctrl+u upload · ctrl+f files · esc back",
	"chat.greeting":        "Hello! I'm your AI assistant powered by LangChain and LlamaIndex. How can I help you today?",
	"chat.login_required":  "Please log in to use the chatbot.",
	"chat.session_expired": "Your session has expired. Please log in again.",
	"chat.send_failed":     "Sorry, I encountered an error while processing your message. Please try again.",
	"chat.cleared":         "Conversation cleared.",
	"chat.upload_prompt":   "Path of the file to upload",
	"chat.uploaded":        "Uploaded %s.",
	"chat.files":           "Uploaded files",
	"chat.no_files":        "No files uploaded.",
	"chat.file_deleted":    "Deleted %s.",
	"chat.you":             "You",
	"chat.bot":             "Assistant",
	"chat.pending":         "sending",
	"chat.failed":          "not delivered",

	// REPL
	"repl.welcome":         "taskchat connected to %s. Type /help for commands.",
	"repl.help":            "Commands:\n  /login [user]        log in\n  /signup [user]       create an account\n  /logout              log out\n  /whoami              show the signed-in user\n  /todos               list todos\n  /add <name>          add a todo\n  /toggle <n>          toggle todo number n\n  /rename <n> <name>   rename todo number n\n  /rm <n>              delete todo number n\n  /chat                enter chat mode (plain lines are sent)\n  /clear               clear the conversation\n  /upload <path>       upload a file for the assistant\n  /files               list uploaded files\n  /rmfile <name>       delete an uploaded file\n  /server [url]        show or save the server URL\n  /help                show this help\n  /exit                quit",
	"repl.unknown":         "Unknown command: %s (try /help)",
	"repl.usage":           "Usage: %s",
	"repl.bye":             "Bye.",
	"repl.username_prompt": "Username: ",
	"repl.password_prompt": "Password: ",
	"repl.chat_mode":       "Chat mode. Plain lines go to the assistant; /todos leaves.",
	"repl.no_such_todo":    "No todo number %d.",
	"repl.server_saved":    "Saved server URL %s to the project config.",
	"repl.not_a_command":   "Not in chat mode. Use /chat to talk to the assistant or /help.",
}
