// Package credential owns the bearer credential. It keeps the two legacy
// slots mirrored: after every mutation both hold the same token or both are
// empty.
package credential

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"taskchat/internal/apperror"
	"taskchat/internal/storage"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SlotToken is the canonical slot. Get prefers it.
	SlotToken = "token"
	// SlotAccessToken is the compatibility slot read by older clients.
	SlotAccessToken = "access_token"
)

// Slots lists every slot in preference order.
var Slots = []string{SlotToken, SlotAccessToken}

// Store is the single owner of the credential.
type Store struct {
	mu     sync.Mutex
	slots  storage.SlotStore
	logger *slog.Logger
}

// New returns a Store backed by slots. A nil logger uses slog.Default().
func New(slots storage.SlotStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{slots: slots, logger: logger}
}

// Set writes token to both slots as one critical section.
func (s *Store) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperror.NewValidation("The server did not return a credential.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.slots.WriteSlots(mirrored(token)); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

// Get returns the token from the canonical slot, falling back to the
// compatibility slot, and repairs whichever slot disagrees.
func (s *Store) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.slots.ReadSlots(Slots...)
	if err != nil {
		s.logger.Warn("read credential slots", slog.Any("error", err))
		return "", false
	}
	token := strings.TrimSpace(values[SlotToken])
	if token == "" {
		token = strings.TrimSpace(values[SlotAccessToken])
	}
	if token == "" {
		return "", false
	}
	if values[SlotToken] != token || values[SlotAccessToken] != token {
		if err := s.slots.WriteSlots(mirrored(token)); err != nil {
			s.logger.Warn("repair credential mirror", slog.Any("error", err))
		} else {
			s.logger.Debug("repaired credential mirror")
		}
	}
	return token, true
}

// Present reports whether a credential is stored.
func (s *Store) Present() bool {
	_, ok := s.Get()
	return ok
}

// Clear removes the credential from both slots. Clearing an absent
// credential is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.slots.DeleteSlots(Slots...); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Claims is the display-only view of a JWT credential.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Claims decodes the stored token without verifying its signature. The
// result is only ever used for display; authentication is decided by the
// server.
func (s *Store) Claims() (Claims, bool) {
	token, ok := s.Get()
	if !ok {
		return Claims{}, false
	}
	return ParseClaims(token)
}

// ParseClaims decodes an unverified JWT. Opaque tokens yield false.
func ParseClaims(token string) (Claims, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &jwt.RegisteredClaims{})
	if err != nil {
		return Claims{}, false
	}
	registered, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return Claims{}, false
	}
	out := Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		out.ExpiresAt = registered.ExpiresAt.Time
	}
	return out, true
}

func mirrored(token string) map[string]string {
	out := make(map[string]string, len(Slots))
	for _, slot := range Slots {
		out[slot] = token
	}
	return out
}
