// Package chat is the assistant conversation: a resource client for the
// /chat endpoints and a Manager that owns the on-screen transcript.
package chat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"taskchat/internal/apiclient"
	"taskchat/internal/apperror"
	"taskchat/internal/config"
)

// Client 对话资源客户端
// Client talks to /chat
type Client struct {
	api    *apiclient.Client
	texts  Texts
	logger *slog.Logger
}

// NewClient 创建对话客户端
// NewClient creates a Client; zero-valued texts fall back to DefaultTexts
func NewClient(api *apiclient.Client, texts Texts, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, texts: texts.withDefaults(), logger: logger}
}

// Texts returns the strings this client answers with.
func (c *Client) Texts() Texts {
	return c.texts
}

// HasCredential reports whether requests would be authenticated.
func (c *Client) HasCredential() bool {
	return c.api.HasCredential()
}

// LoadHistory returns the server-side conversation. Without a credential, or
// when the server rejects it, the history is simply empty.
func (c *Client) LoadHistory(ctx context.Context) ([]HistoryEntry, error) {
	if !c.api.HasCredential() {
		return nil, nil
	}
	var resp struct {
		History []HistoryEntry `json:"history"`
	}
	err := c.api.Do(ctx, apiclient.Op{Method: http.MethodGet, Path: "/chat/history"}, &resp)
	switch apiclient.Classify(err) {
	case apiclient.Success:
		return resp.History, nil
	case apiclient.Unauthorized:
		return nil, nil
	default:
		return nil, fmt.Errorf("load chat history: %w", err)
	}
}

// Send posts one message. Without a credential no request is made and the
// fixed login-required reply is returned.
func (c *Client) Send(ctx context.Context, text string) (Reply, error) {
	if !c.api.HasCredential() {
		return Reply{Response: c.texts.LoginRequired, Timestamp: apiclient.Time{Time: time.Now()}}, nil
	}
	var reply Reply
	if err := c.api.Do(ctx, apiclient.Op{
		Method: http.MethodPost,
		Path:   "/chat/",
		Body:   map[string]string{"message": text},
	}, &reply); err != nil {
		return Reply{}, fmt.Errorf("send chat message: %w", err)
	}
	if reply.Timestamp.IsZero() {
		reply.Timestamp.Time = time.Now()
	}
	return reply, nil
}

// Clear asks the server to forget the conversation.
func (c *Client) Clear(ctx context.Context) error {
	if err := c.api.Do(ctx, apiclient.Op{Method: http.MethodPost, Path: "/chat/clear"}, nil); err != nil {
		return fmt.Errorf("clear chat history: %w", err)
	}
	return nil
}

// Upload sends a document as the multipart field "file".
func (c *Client) Upload(ctx context.Context, name string, content io.Reader) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", apperror.NewValidation("File name must not be empty.")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	written, err := io.Copy(part, content)
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	var resp struct {
		Message  string `json:"message"`
		Filename string `json:"filename"`
	}
	if err := c.api.Do(ctx, apiclient.Op{
		Method:      http.MethodPost,
		Path:        "/chat/upload",
		Raw:         &buf,
		ContentType: writer.FormDataContentType(),
	}, &resp); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	c.logger.Info("file uploaded", slog.String("name", name), slog.Int64("bytes", written))
	return resp.Message, nil
}

// UploadFile opens path, where a leading ~ is the home directory, and
// uploads it under its base name. It returns that name and the server's
// message.
func (c *Client) UploadFile(ctx context.Context, path string) (string, string, error) {
	resolved, err := config.ExpandPath(path)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if resolved == "" {
		return "", "", apperror.NewValidation("File path must not be empty.")
	}
	f, err := os.Open(resolved)
	if err != nil {
		return "", "", &apperror.Error{
			Kind:     apperror.KindValidation,
			Message:  fmt.Sprintf("Cannot open %s.", path),
			Internal: err,
		}
	}
	defer f.Close()
	name := filepath.Base(resolved)
	message, err := c.Upload(ctx, name, f)
	return name, message, err
}

// Files lists uploaded documents.
func (c *Client) Files(ctx context.Context) ([]File, error) {
	var resp struct {
		Files []File `json:"files"`
	}
	if err := c.api.Do(ctx, apiclient.Op{Method: http.MethodGet, Path: "/chat/files"}, &resp); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return resp.Files, nil
}

// DeleteFile removes an uploaded document.
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.NewValidation("File name must not be empty.")
	}
	if err := c.api.Do(ctx, apiclient.Op{
		Method: http.MethodDelete,
		Path:   "/chat/files/" + url.PathEscape(name),
	}, nil); err != nil {
		return fmt.Errorf("delete file %s: %w", name, err)
	}
	return nil
}

func historyID(i int) string {
	return "history-" + strconv.Itoa(i)
}
