package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/winahq/walnut_agent/internal/api"
	"github.com/winahq/walnut_agent/internal/archive"
	"github.com/winahq/walnut_agent/internal/bridge"
	"github.com/winahq/walnut_agent/internal/browser"
	"github.com/winahq/walnut_agent/internal/collection"
	"github.com/winahq/walnut_agent/internal/config"
	"github.com/winahq/walnut_agent/internal/controller"
	"github.com/winahq/walnut_agent/internal/netutil"
	"github.com/winahq/walnut_agent/internal/prefs"
	"github.com/winahq/walnut_agent/internal/storage"
	"github.com/winahq/walnut_agent/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("config loaded",
		"bind_addr", cfg.BindAddr,
		"cdp_url", cfg.CDPURL(),
		"tab_url_filter", cfg.TabURLFilter,
		"eval_timeout_ms", cfg.EvalTimeoutMS,
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	logs := collection.NewLogs(collection.Caps{
		Console:       cfg.ConsoleCap,
		Resources:     cfg.ResourceCap,
		Network:       cfg.NetworkCap,
		Accessibility: cfg.AccessibilityCap,
	})

	prefStore, err := prefs.NewStore(cfg.PrefsPath)
	if err != nil {
		slog.Error("failed to open preferences", "path", cfg.PrefsPath, "error", err)
		os.Exit(1)
	}

	arch, err := archive.Open(cfg.ArchivePath)
	if err != nil {
		slog.Error("failed to open archive", "path", cfg.ArchivePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = arch.Close() }()

	sessionID := uuid.New().String()[:8]
	writers := storage.NewWriterRegistry(filepath.Join(cfg.DataDir, "entries"), 256, cfg.ExportMaxSizeMB, sessionID)
	defer func() { _ = writers.Close() }()

	hub := stream.NewHub()

	var launcher *browser.Launcher
	if cfg.LaunchBrowser {
		launcher = browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.StartURL,
			ProfileDir: cfg.ProfileDir,
			Headless:   cfg.BrowserHeadless,
		})
		if err := launcher.Launch(context.Background()); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer launcher.Stop()
	}

	cdpClient := bridge.NewClient(cfg, logs, prefStore, hub, writers)
	if err := cdpClient.Connect(context.Background()); err != nil {
		slog.Error("failed to connect to browser", "cdp_url", cfg.CDPURL(), "error", err)
		os.Exit(1)
	}
	defer func() { _ = cdpClient.Close() }()

	svc := controller.NewService(cdpClient, logs, prefStore, arch)
	if cfg.NotifyEndpoint != "" {
		svc.SetNotifyEndpoint(cfg.NotifyEndpoint)
	}
	h := api.NewServer(svc, hub)

	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("agent listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs", "session_id", sessionID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("agent server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("agent shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
