package chat

import (
	"time"

	"taskchat/internal/apiclient"
)

// Sender 消息发送方
// Sender identifies who wrote a message
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Status 消息状态
// Status tracks an optimistic user message through its request
type Status string

const (
	StatusSent    Status = "sent"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

// GreetingID is the id of the fixed first message.
const GreetingID = "greeting"

// Message 对话中的一条消息
// Message is one transcript entry
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// HistoryEntry is one item of the server-side conversation history.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the server's answer to one message.
type Reply struct {
	Response  string         `json:"response"`
	Timestamp apiclient.Time `json:"timestamp"`
}

// File is a document uploaded for the assistant to draw on.
type File struct {
	Name       string         `json:"name"`
	Size       int64          `json:"size"`
	UploadedAt apiclient.Time `json:"uploaded_at"`
}

// Texts are the fixed strings the chat surface shows. Callers localise them.
type Texts struct {
	Greeting       string
	LoginRequired  string
	SessionExpired string
	SendFailed     string
}

// DefaultTexts returns the English texts.
func DefaultTexts() Texts {
	return Texts{
		Greeting:       "Hello! I'm your AI assistant powered by LangChain and LlamaIndex. How can I help you today?",
		LoginRequired:  "Please log in to use the chatbot.",
		SessionExpired: "Your session has expired. Please log in again.",
		SendFailed:     "Sorry, I encountered an error while processing your message. Please try again.",
	}
}

func (t Texts) withDefaults() Texts {
	def := DefaultTexts()
	if t.Greeting == "" {
		t.Greeting = def.Greeting
	}
	if t.LoginRequired == "" {
		t.LoginRequired = def.LoginRequired
	}
	if t.SessionExpired == "" {
		t.SessionExpired = def.SessionExpired
	}
	if t.SendFailed == "" {
		t.SendFailed = def.SendFailed
	}
	return t
}

// FromHistory maps server entries onto transcript messages with stable ids.
func FromHistory(entries []HistoryEntry, at time.Time) []Message {
	out := make([]Message, 0, len(entries))
	for i, entry := range entries {
		sender := SenderBot
		if entry.Role == string(SenderUser) {
			sender = SenderUser
		}
		out = append(out, Message{
			ID:        historyID(i),
			Text:      entry.Content,
			Sender:    sender,
			Timestamp: at,
			Status:    StatusSent,
		})
	}
	return out
}
