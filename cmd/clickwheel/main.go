package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clickwheel/clickwheel/internal/app"
	"github.com/clickwheel/clickwheel/internal/artwork"
	"github.com/clickwheel/clickwheel/internal/catalog/local"
	"github.com/clickwheel/clickwheel/internal/catalog/subsonic"
	"github.com/clickwheel/clickwheel/internal/config"
	"github.com/clickwheel/clickwheel/internal/engine"
	"github.com/clickwheel/clickwheel/internal/logging"
	"github.com/clickwheel/clickwheel/internal/mediactl"
	"github.com/clickwheel/clickwheel/internal/output"
	"github.com/clickwheel/clickwheel/internal/preload"
	"github.com/clickwheel/clickwheel/internal/scrobble"
	"github.com/clickwheel/clickwheel/internal/settings"
	"github.com/clickwheel/clickwheel/internal/ui"
)

var version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Clickwheel - a wheel-driven terminal music player

Usage: clickwheel [options]

Options:
  -config string
        Path to config file (default: ~/.config/clickwheel/config.toml)
  -theme string
        Override the configured theme (classic, night, mono, nocolor)
  -no-color
        Disable colors (NO_COLOR env var does the same)
  -version
        Print version and exit

Diagnostics:
  -doctor
        Check configuration and dependencies

Examples:
  clickwheel                 # Start the player
  clickwheel --doctor        # Check setup
  clickwheel --theme night   # One-off theme override

`)
	}

	cfgPath := flag.String("config", "", "")
	doctor := flag.Bool("doctor", false, "")
	showVersion := flag.Bool("version", false, "")
	themeFlag := flag.String("theme", "", "")
	noColorFlag := flag.Bool("no-color", false, "")
	flag.Parse()

	if *showVersion {
		fmt.Println("clickwheel", version)
		return
	}

	cfg, resolvedPath, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, logFile, err := logging.Setup()
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	defer logFile.Close()
	logger.Info("starting clickwheel", slog.String("config", resolvedPath))

	profile, _ := cfg.ProfileByID(cfg.ActiveProfile)
	cat, err := buildBackend(profile)
	if err != nil {
		logger.Error("backend init", slog.Any("err", err))
		log.Fatalf("init backend: %v", err)
	}

	if *doctor {
		runDoctor(cfg, cat)
		return
	}

	ctx := context.Background()

	out := output.NewMPV(output.Options{
		MPVPath: cfg.Player.MPVPath,
		IPCPath: cfg.Player.IPC,
		Logger:  logger,
	})
	if err := out.Start(ctx); err != nil {
		logger.Error("start output", slog.Any("err", err))
		log.Fatalf("start output: %v", err)
	}
	defer out.Stop()

	var store *settings.Store
	if stateDir, err := logging.StateDir(); err == nil {
		if err := os.MkdirAll(stateDir, 0o755); err == nil {
			store, err = settings.NewStore(filepath.Join(stateDir, "playback.db"))
			if err != nil {
				logger.Warn("settings store unavailable", slog.Any("err", err))
				store = nil
			} else {
				defer store.Close()
			}
		}
	}

	var warmer *preload.Manager
	if cfg.Preload.Enabled {
		warmer = preload.New(&preload.HTTPFetcher{}, logger,
			preload.WithSettleDelay(time.Duration(cfg.Preload.SettleMs)*time.Millisecond))
	}

	eng, err := engine.New(ctx, engine.Options{
		Catalog:      cat,
		Output:       out,
		Store:        store,
		Preload:      warmer,
		PreloadAhead: cfg.Preload.TracksAhead,
		Notifier:     scrobble.NewNotifier(cat, logger),
		Logger:       logger,
	})
	if err != nil {
		logger.Error("engine init", slog.Any("err", err))
		log.Fatalf("init engine: %v", err)
	}
	eng.Start(ctx)

	art, err := artwork.NewResolver(cat, 256)
	if err != nil {
		log.Fatalf("artwork resolver: %v", err)
	}
	bridge := mediactl.New(mediactl.NewLogSurface(logger), eng, art, logger)
	eng.Subscribe(bridge.Update)

	noColor := os.Getenv("NO_COLOR") != "" || *noColorFlag
	themeName := cfg.UI.Theme
	if *themeFlag != "" {
		themeName = *themeFlag
	}
	theme := ui.GetTheme(themeName, noColor)

	model := app.New(cfg, cat, eng, theme, logger)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		logger.Error("run tui", slog.Any("err", err))
		log.Fatalf("tui: %v", err)
	}
}

func buildBackend(p config.Profile) (app.Catalog, error) {
	switch p.Backend {
	case "subsonic":
		return subsonic.New(p.Settings)
	case "local":
		return local.New(p.Settings)
	default:
		return nil, fmt.Errorf("unknown backend %s", p.Backend)
	}
}

func runDoctor(cfg *config.Config, cat app.Catalog) {
	deps := app.DoctorDeps{}
	if sub, ok := cat.(*subsonic.Client); ok {
		deps.Ping = sub.Ping
	}
	ctx, cancel := cfg.DeadlineContext()
	defer cancel()

	fmt.Println("Clickwheel doctor")
	failed := false
	for _, r := range app.Doctor(ctx, cfg, deps) {
		mark := "OK"
		if !r.OK {
			mark = "FAIL"
			failed = true
		}
		fmt.Printf("  %-8s %-4s %s\n", r.Name, mark, r.Detail)
	}
	if failed {
		os.Exit(1)
	}
}
