package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"taskchat/internal/config"
	"taskchat/internal/i18n"
	"taskchat/internal/logging"
	"taskchat/internal/repl"
	"taskchat/internal/tui"
)

func main() {
	var (
		configPath string
		mode       string
		locale     string
		initConfig bool
	)
	flag.StringVar(&configPath, "config", "", "Path to config JSON/JSONC")
	flag.StringVar(&mode, "mode", "", "Interface: auto, tui or repl")
	flag.StringVar(&locale, "lang", "", "Message language ("+strings.Join(i18n.Supported(), ", ")+")")
	flag.BoolVar(&initConfig, "init", false, "Write a project config scaffold and exit")
	flag.Parse()

	if initConfig {
		if err := config.InitProjectConfigScaffold(); err != nil {
			fmt.Fprintf(os.Stderr, "init config failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("wrote .taskchat/config.json")
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if mode != "" {
		cfg.UI.Mode = mode
	}
	if locale != "" {
		cfg.UI.Locale = locale
	}

	logger, closeLog, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging failed: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	app, err := build(cfg, i18n.New(cfg.UI.Locale), logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	selected, err := resolveMode(cfg.UI.Mode, stdioIsTerminal())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.Info("starting", "mode", selected, "api", cfg.API.BaseURL)

	if selected == config.ModeTUI {
		err = tui.Run(app.tuiDeps(cfg))
	} else {
		err = runREPL(app, cfg)
	}
	if err != nil {
		logger.Error("exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runREPL(app *application, cfg config.Config) error {
	input, inputErr := repl.NewLineInput(cfg.Storage.HistoryPath())
	if inputErr != nil {
		fmt.Fprintf(os.Stderr, "line editor unavailable, fallback to basic input: %v\n", inputErr)
	}
	defer input.Close()

	projectDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve cwd: %w", err)
	}
	loop := repl.NewLoop(app.replDeps(projectDir), input, os.Stdout)
	return loop.Run(context.Background())
}
