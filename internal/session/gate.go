// Package session decides whether a protected screen may render. A Gate is
// created per screen activation, resolves once, and turns any rejected
// credential into a single redirect to the login screen.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"taskchat/internal/apiclient"
)

// State 会话状态
// State is the gate's view of the session
type State int

const (
	Unknown State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// VerifyPath is the cheap protected call used to check a stored credential.
const VerifyPath = "/todos/"

// Options 门控选项
// Options configures a Gate
type Options struct {
	// OnRedirect runs at most once per gate when the user must log in.
	OnRedirect func()
	Logger     *slog.Logger
}

// Gate 受保护页面的会话门控
// Gate resolves the session state for one protected-screen activation
type Gate struct {
	creds  apiclient.Credentials
	api    *apiclient.Client
	logger *slog.Logger

	onRedirect func()
	redirect   sync.Once

	mu          sync.Mutex
	state       State
	err         error
	mounted     bool
	unsubscribe func()
}

// NewGate 创建门控
// NewGate creates a gate in the Unknown state
func NewGate(creds apiclient.Credentials, api *apiclient.Client, opts Options) *Gate {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		creds:      creds,
		api:        api,
		logger:     logger,
		onRedirect: opts.OnRedirect,
	}
}

// Mount 挂载门控并完成一次状态转换
// Mount performs the single Unknown -> terminal transition. Later calls
// return the current state without issuing a request.
func (g *Gate) Mount(ctx context.Context) State {
	g.mu.Lock()
	if g.mounted {
		state := g.state
		g.mu.Unlock()
		return state
	}
	g.mounted = true
	g.state = Unknown
	g.unsubscribe = g.api.Subscribe(g.handleUnauthorized)
	g.mu.Unlock()

	if _, ok := g.creds.Get(); !ok {
		if err := g.creds.Clear(); err != nil {
			g.logger.Warn("clear absent credential", slog.Any("error", err))
		}
		return g.resolve(Unauthenticated, nil)
	}

	err := g.api.Do(ctx, apiclient.Op{Method: http.MethodGet, Path: VerifyPath}, nil)
	switch apiclient.Classify(err) {
	case apiclient.Success:
		return g.resolve(Authenticated, nil)
	case apiclient.Unauthorized:
		// The client has already cleared the credential.
		return g.resolve(Unauthenticated, nil)
	default:
		g.logger.Warn("session verification failed", slog.Any("error", err))
		return g.resolve(Unauthenticated, err)
	}
}

// Unmount drops the unauthorized subscription. The gate stays in its
// terminal state.
func (g *Gate) Unmount() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err returns the verification failure that led to Unauthenticated when the
// server could not be reached or answered with an unexpected error.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

func (g *Gate) resolve(state State, err error) State {
	g.mu.Lock()
	if g.state == Unknown {
		g.state = state
		g.err = err
	}
	final := g.state
	g.mu.Unlock()

	g.logger.Debug("session gate resolved", slog.String("state", final.String()))
	if final == Unauthenticated {
		g.fireRedirect()
	}
	return final
}

// handleUnauthorized only redirects. A resolved gate keeps its terminal
// state until the screen is mounted again.
func (g *Gate) handleUnauthorized() {
	g.fireRedirect()
}

func (g *Gate) fireRedirect() {
	g.redirect.Do(func() {
		if g.onRedirect != nil {
			g.onRedirect()
		}
	})
}
