package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"taskchat/internal/apiclient"
	"taskchat/internal/apperror"

	"github.com/google/uuid"
)

// Manager 对话会话管理
// Manager owns the transcript shown on the chat screen. The first message is
// always the greeting; history is never persisted locally.
type Manager struct {
	client *Client
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	messages   []Message
	loading    bool
	needsLogin bool
	onChange   func()
	// epoch changes on every reset so a late history load can tell that
	// the transcript it started from is gone.
	epoch int
}

// NewManager 创建会话管理器
// NewManager creates a Manager holding only the greeting
func NewManager(client *Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{client: client, logger: logger, now: time.Now}
	m.messages = []Message{m.greeting()}
	return m
}

// SetChangeCallback registers fn to run after every transcript mutation.
func (m *Manager) SetChangeCallback(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Activate resets the transcript and loads history when a credential exists.
func (m *Manager) Activate(ctx context.Context) error {
	hasCredential := m.client.HasCredential()
	var epoch int
	m.mutate(func() {
		m.reset()
		m.needsLogin = !hasCredential
		epoch = m.epoch
	})
	if !hasCredential {
		return nil
	}

	entries, err := m.client.LoadHistory(ctx)
	if err != nil {
		m.logger.Warn("load chat history", slog.Any("error", err))
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	history := FromHistory(entries, m.now())
	m.mutate(func() {
		if m.epoch != epoch {
			return
		}
		// Messages sent while the history was loading stay after it.
		merged := make([]Message, 0, len(m.messages)+len(history))
		merged = append(merged, m.messages[0])
		merged = append(merged, history...)
		m.messages = append(merged, m.messages[1:]...)
	})
	return nil
}

// Send appends the user's message optimistically, then the reply. The user
// message is kept on every branch; only its status changes.
func (m *Manager) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperror.NewValidation("Message must not be empty.")
	}

	userID := uuid.NewString()
	m.mutate(func() {
		m.messages = append(m.messages, Message{
			ID:        userID,
			Text:      text,
			Sender:    SenderUser,
			Timestamp: m.now(),
			Status:    StatusPending,
		})
		m.loading = true
	})

	reply, err := m.client.Send(ctx, text)

	texts := m.client.Texts()
	m.mutate(func() {
		defer func() { m.loading = false }()
		switch apiclient.Classify(err) {
		case apiclient.Success:
			m.setStatus(userID, StatusSent)
			m.messages = append(m.messages, m.botMessage(reply.Response, reply.Timestamp.Time))
		case apiclient.Unauthorized:
			m.setStatus(userID, StatusFailed)
			m.messages = append(m.messages, m.botMessage(texts.SessionExpired, m.now()))
		default:
			m.setStatus(userID, StatusFailed)
			m.messages = append(m.messages, m.botMessage(texts.SendFailed, m.now()))
		}
	})
	if err != nil {
		m.logger.Warn("send chat message", slog.Any("error", err))
	}
	return err
}

// Clear asks the server to forget the conversation when a credential exists,
// then resets the transcript to the greeting whatever the outcome.
func (m *Manager) Clear(ctx context.Context) error {
	var err error
	if m.client.HasCredential() {
		if err = m.client.Clear(ctx); err != nil {
			m.logger.Warn("clear chat history", slog.Any("error", err))
		}
	}
	m.mutate(m.reset)
	return err
}

// Messages returns a copy of the transcript.
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Loading reports whether a send is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// NeedsLogin is true after Activate found no credential.
func (m *Manager) NeedsLogin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.needsLogin
}

func (m *Manager) mutate(fn func()) {
	m.mu.Lock()
	fn()
	onChange := m.onChange
	m.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

// reset must be called with m.mu held.
func (m *Manager) reset() {
	m.messages = []Message{m.greeting()}
	m.epoch++
}

// setStatus must be called with m.mu held.
func (m *Manager) setStatus(id string, status Status) {
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages[i].Status = status
			return
		}
	}
}

func (m *Manager) greeting() Message {
	return Message{
		ID:        GreetingID,
		Text:      m.client.Texts().Greeting,
		Sender:    SenderBot,
		Timestamp: m.now(),
		Status:    StatusSent,
	}
}

func (m *Manager) botMessage(text string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SenderBot,
		Timestamp: at,
		Status:    StatusSent,
	}
}
