// Package todo is the task list resource. Every mutating call returns the
// server's copy, which callers fold into their local List.
package todo

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"taskchat/internal/apiclient"
	"taskchat/internal/apperror"
)

// Todo 待办事项
// Todo is one task; IDs are assigned by the server
type Todo struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	IsCompleted bool   `json:"is_completed"`
}

// Fields is the writable part of a Todo.
type Fields struct {
	Name        string `json:"name"`
	IsCompleted bool   `json:"is_completed"`
}

// Client 待办资源客户端
// Client talks to /todos
type Client struct {
	api *apiclient.Client
}

// NewClient 创建待办客户端
// NewClient creates a Client
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// List returns every todo the server holds.
func (c *Client) List(ctx context.Context) (List, error) {
	var todos []Todo
	if err := c.api.Do(ctx, apiclient.Op{Method: http.MethodGet, Path: "/todos/"}, &todos); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	if todos == nil {
		todos = []Todo{}
	}
	return List(todos), nil
}

// Get returns one todo.
func (c *Client) Get(ctx context.Context, id int) (Todo, error) {
	var out Todo
	if err := c.api.Do(ctx, apiclient.Op{Method: http.MethodGet, Path: itemPath(id)}, &out); err != nil {
		return Todo{}, fmt.Errorf("get todo %d: %w", id, err)
	}
	return out, nil
}

// Create adds a new, not yet completed todo.
func (c *Client) Create(ctx context.Context, name string) (Todo, error) {
	name, err := validName(name)
	if err != nil {
		return Todo{}, err
	}
	var out Todo
	if err := c.api.Do(ctx, apiclient.Op{
		Method: http.MethodPost,
		Path:   "/todos/",
		Body:   Fields{Name: name},
	}, &out); err != nil {
		return Todo{}, fmt.Errorf("create todo: %w", err)
	}
	return out, nil
}

// Update replaces the whole record.
func (c *Client) Update(ctx context.Context, id int, fields Fields) (Todo, error) {
	name, err := validName(fields.Name)
	if err != nil {
		return Todo{}, err
	}
	fields.Name = name
	var out Todo
	if err := c.api.Do(ctx, apiclient.Op{
		Method: http.MethodPut,
		Path:   itemPath(id),
		Body:   fields,
	}, &out); err != nil {
		return Todo{}, fmt.Errorf("update todo %d: %w", id, err)
	}
	return out, nil
}

// Toggle flips the completion flag, sending the current name along since
// the update is a full-record replace.
func (c *Client) Toggle(ctx context.Context, t Todo) (Todo, error) {
	return c.Update(ctx, t.ID, Fields{Name: t.Name, IsCompleted: !t.IsCompleted})
}

// Rename keeps the completion flag and replaces the name.
func (c *Client) Rename(ctx context.Context, t Todo, name string) (Todo, error) {
	return c.Update(ctx, t.ID, Fields{Name: name, IsCompleted: t.IsCompleted})
}

// Delete removes a todo and returns the record the server dropped.
func (c *Client) Delete(ctx context.Context, id int) (Todo, error) {
	var out Todo
	if err := c.api.Do(ctx, apiclient.Op{Method: http.MethodDelete, Path: itemPath(id)}, &out); err != nil {
		return Todo{}, fmt.Errorf("delete todo %d: %w", id, err)
	}
	return out, nil
}

func itemPath(id int) string {
	return fmt.Sprintf("/todos/%d", id)
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.NewValidation("Todo name must not be empty.")
	}
	return name, nil
}
