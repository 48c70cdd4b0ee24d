package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"demystifier-backend/internal/app"
	"demystifier-backend/internal/client"
	"demystifier-backend/internal/console"
	"demystifier-backend/internal/document"
	"demystifier-backend/internal/storage"
	"demystifier-backend/pkg/logger"

	"github.com/muesli/termenv"
	"github.com/peterh/liner"
	"golang.org/x/term"
)

func main() {
	var (
		serverURL string
		dataDir   string
		logLevel  string
	)
	flag.StringVar(&serverURL, "server", "http://127.0.0.1:8080", "demystifier server URL")
	flag.StringVar(&dataDir, "data", "./data", "directory for preferences and input history")
	flag.StringVar(&logLevel, "log-level", "warn", "log level")
	flag.Parse()

	if err := logger.Init(logLevel, "text"); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	prefs := storage.NewBoltStorage(filepath.Join(dataDir, "preferences.db"))
	if err := prefs.Init(); err != nil {
		logger.Fatalf("Failed to open preferences: %v", err)
	}
	defer prefs.Close()

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	state := app.NewState(prefs, tty && termenv.HasDarkBackground())
	workspace := app.NewWorkspace(client.NewClient(serverURL))
	renderer := console.NewRenderer(os.Stdout, state.Snapshot().Theme, tty)
	c := console.New(workspace, state, document.DefaultPolicy(), renderer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyFile := filepath.Join(dataDir, "history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	if err := c.Run(ctx, line); err != nil {
		logger.Errorf("Console stopped: %v", err)
	}

	if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}
