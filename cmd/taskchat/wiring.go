package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"taskchat/internal/apiclient"
	"taskchat/internal/auth"
	"taskchat/internal/chat"
	"taskchat/internal/config"
	"taskchat/internal/credential"
	"taskchat/internal/i18n"
	"taskchat/internal/repl"
	"taskchat/internal/storage"
	"taskchat/internal/todo"
	"taskchat/internal/tui"

	"golang.org/x/term"
)

// application holds the services shared by both interfaces.
type application struct {
	slots     storage.SlotStore
	creds     *credential.Store
	api       *apiclient.Client
	auth      *auth.Service
	todos     *todo.Client
	chat      *chat.Client
	manager   *chat.Manager
	tokenizer *chat.Tokenizer
	locale    *i18n.I18n
	logger    *slog.Logger
}

func build(cfg config.Config, locale *i18n.I18n, logger *slog.Logger) (*application, error) {
	slots, err := openSlots(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	creds := credential.New(slots, logger)
	api := apiclient.New(creds, apiclient.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.RequestTimeout(),
		Logger:  logger,
	})
	chatClient := chat.NewClient(api, chatTexts(locale), logger)
	return &application{
		slots:     slots,
		creds:     creds,
		api:       api,
		auth:      auth.NewService(api, creds, logger),
		todos:     todo.NewClient(api),
		chat:      chatClient,
		manager:   chat.NewManager(chatClient, logger),
		tokenizer: chat.DefaultTokenizer(),
		locale:    locale,
		logger:    logger,
	}, nil
}

func (a *application) Close() error {
	return a.slots.Close()
}

func (a *application) tuiDeps(cfg config.Config) tui.Deps {
	return tui.Deps{
		Creds:     a.creds,
		API:       a.api,
		Auth:      a.auth,
		Todos:     a.todos,
		Chat:      a.chat,
		Manager:   a.manager,
		Tokenizer: a.tokenizer,
		Locale:    a.locale,
		Markdown:  cfg.UI.Markdown,
		Logger:    a.logger,
	}
}

func (a *application) replDeps(projectDir string) repl.Deps {
	return repl.Deps{
		Creds:      a.creds,
		API:        a.api,
		Auth:       a.auth,
		Todos:      a.todos,
		Chat:       a.chat,
		Manager:    a.manager,
		Locale:     a.locale,
		Logger:     a.logger,
		ProjectDir: projectDir,
	}
}

// openSlots opens the configured credential backend. The SQLite backend
// imports the legacy JSON file once.
func openSlots(cfg config.StorageConfig, logger *slog.Logger) (storage.SlotStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	case config.BackendSQLite, "":
		store, err := storage.NewSQLiteStore(cfg.CredentialDBPath())
		if err != nil {
			return nil, fmt.Errorf("open credential store: %w", err)
		}
		logger.Debug("credential store opened", slog.String("path", store.Path()))
		imported, err := storage.ImportLegacyFile(cfg.LegacyFile, store, credential.Slots...)
		if err != nil {
			logger.Warn("legacy credential import failed", slog.Any("error", err))
		} else if imported {
			logger.Info("imported legacy credential file", slog.String("path", cfg.LegacyFile))
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func chatTexts(locale *i18n.I18n) chat.Texts {
	return chat.Texts{
		Greeting:       locale.T("chat.greeting"),
		LoginRequired:  locale.T("chat.login_required"),
		SessionExpired: locale.T("chat.session_expired"),
		SendFailed:     locale.T("chat.send_failed"),
	}
}

// resolveMode picks the interface. auto means the TUI on a terminal and the
// line REPL otherwise.
func resolveMode(mode string, terminal bool) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", config.ModeAuto:
		if terminal {
			return config.ModeTUI, nil
		}
		return config.ModeREPL, nil
	case config.ModeTUI:
		if !terminal {
			return "", errors.New("tui mode needs a terminal; use -mode repl")
		}
		return config.ModeTUI, nil
	case config.ModeREPL:
		return config.ModeREPL, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want auto, tui or repl)", mode)
	}
}

func stdioIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
