// Package auth wraps the account endpoints. Only Login writes the credential;
// only Logout and the API client's Unauthorized branch remove it.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"taskchat/internal/apiclient"
	"taskchat/internal/apperror"
)

// CredentialWriter 登录后写入凭证
// CredentialWriter is the part of the credential store auth mutates
type CredentialWriter interface {
	Set(token string) error
	Clear() error
}

// User is the signed-in account as reported by /users/me.
type User struct {
	Username  string         `json:"username"`
	CreatedAt apiclient.Time `json:"created_at"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Service 账户服务
// Service performs login, signup, logout and profile lookups
type Service struct {
	api    *apiclient.Client
	creds  CredentialWriter
	logger *slog.Logger
}

// NewService 创建账户服务
// NewService creates a Service
func NewService(api *apiclient.Client, creds CredentialWriter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, creds: creds, logger: logger}
}

// Login exchanges a username and password for a credential and stores it in
// both slots.
func (s *Service) Login(ctx context.Context, username, password string) error {
	req, err := credentials(username, password)
	if err != nil {
		return err
	}
	var resp tokenResponse
	if err := s.api.Do(ctx, apiclient.Op{
		Method:    http.MethodPost,
		Path:      "/login",
		Body:      req,
		Anonymous: true,
	}, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := s.creds.Set(resp.AccessToken); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	s.logger.Info("logged in", slog.String("username", req.Username))
	return nil
}

// Signup creates an account. It does not log in; the caller switches back to
// the login form and shows the returned confirmation.
func (s *Service) Signup(ctx context.Context, username, password string) (string, error) {
	req, err := credentials(username, password)
	if err != nil {
		return "", err
	}
	var resp messageResponse
	if err := s.api.Do(ctx, apiclient.Op{
		Method:    http.MethodPost,
		Path:      "/signup",
		Body:      req,
		Anonymous: true,
	}, &resp); err != nil {
		return "", fmt.Errorf("signup: %w", err)
	}
	s.logger.Info("account created", slog.String("username", req.Username))
	return resp.Message, nil
}

// Logout tells the server to invalidate the credential, then clears it
// locally regardless of the server's answer. The server error, if any, is
// returned for display only.
func (s *Service) Logout(ctx context.Context) error {
	var remoteErr error
	if s.api.HasCredential() {
		remoteErr = s.api.Do(ctx, apiclient.Op{Method: http.MethodPost, Path: "/logout"}, nil)
		if remoteErr != nil {
			s.logger.Warn("remote logout failed", slog.Any("error", remoteErr))
		}
	}
	if err := s.creds.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if remoteErr != nil && apiclient.Classify(remoteErr) != apiclient.Unauthorized {
		return fmt.Errorf("logout: %w", remoteErr)
	}
	return nil
}

// Me returns the signed-in user.
func (s *Service) Me(ctx context.Context) (User, error) {
	var user User
	if err := s.api.Do(ctx, apiclient.Op{Method: http.MethodGet, Path: "/users/me"}, &user); err != nil {
		return User{}, fmt.Errorf("load profile: %w", err)
	}
	return user, nil
}

func credentials(username, password string) (loginRequest, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return loginRequest{}, apperror.NewValidation("Username must not be empty.")
	}
	if password == "" {
		return loginRequest{}, apperror.NewValidation("Password must not be empty.")
	}
	return loginRequest{Username: username, Password: password}, nil
}
