package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nconklindev/datasweep/internal/config"
	"github.com/nconklindev/datasweep/internal/logging"
	"github.com/nconklindev/datasweep/internal/ui"
	"github.com/nconklindev/datasweep/internal/web"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	flags := pflag.NewFlagSet("datasweep", pflag.ContinueOnError)
	showVersion := flags.BoolP("version", "v", false, "print version and exit")
	configPath := flags.StringP("config", "c", "", "config file (yaml, toml or json)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  datasweep [flags] [files...]\n  datasweep [flags] serve\n\nFlags:\n%s", flags.FlagUsages())
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if *showVersion {
		fmt.Printf("datasweep %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		os.Exit(0)
	}

	// A missing .env is fine; a malformed one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	args := flags.Args()
	if len(args) > 0 && args[0] == "serve" {
		os.Exit(runServer(cfg))
	}
	os.Exit(runTUI(cfg, args))
}

func runTUI(cfg *config.Config, paths []string) int {
	// The terminal belongs to the UI, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if cfg.Log.File != "" {
		f, err := tea.LogToFile(cfg.Log.File, "datasweep")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, logOut)

	model := ui.InitialModel(paths, ui.Options{
		PreviewRows:     cfg.Preview.Rows,
		OutputDir:       cfg.Output.Dir,
		StrictDirection: cfg.Convert.StrictDirection,
		ChartWidth:      cfg.Chart.Width,
		ChartMaxRows:    cfg.Chart.MaxRows,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	return 0
}

func runServer(cfg *config.Config) int {
	var logOut io.Writer = os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(cfg)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		return 1
	}
	return 0
}
