// cmd/viewer/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-viewer/internal/config"
	"github.com/tamzrod/modbus-viewer/internal/logging"
	"github.com/tamzrod/modbus-viewer/internal/poller"
	"github.com/tamzrod/modbus-viewer/internal/tui"
	"github.com/tamzrod/modbus-viewer/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "viewer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "optional YAML config file")
	host := flag.String("host", "", "device endpoint host (pre-fills the dashboard)")
	port := flag.String("port", "", "device endpoint port (pre-fills the dashboard)")
	token := flag.String("token", "", "API token (pre-fills the dashboard)")
	ui := flag.String("ui", "", "dashboard: tui or web")
	listen := flag.String("listen", "", "web dashboard listen address")
	logLevel := flag.String("log-level", "", "error|warn|info|debug|trace")
	flag.Parse()

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	v := &cfg.Viewer
	override(&v.Host, *host)
	override(&v.Port, *port)
	override(&v.Token, *token)
	override(&v.UI, *ui)
	override(&v.Listen, *listen)
	override(&cfg.Log.Level, *logLevel)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	// the terminal dashboard owns the screen; logs go to a file
	if v.UI == "tui" && cfg.Log.File == "" {
		cfg.Log.File = "viewer.log"
	}

	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Poller
	// --------------------

	p, initial, closePoller, err := poller.Build(*v, log)
	if err != nil {
		return fmt.Errorf("poller build failed: %w", err)
	}
	defer closePoller()

	log.Info().Str("ui", v.UI).Str("url", initial.URL()).Msg("viewer starting")

	if v.UI == "web" {
		return runWeb(ctx, p, initial, v.Listen, log)
	}
	return runTUI(ctx, p, initial)
}

func runTUI(ctx context.Context, p *poller.Poller, initial poller.ConnectionConfig) error {
	prog := tea.NewProgram(tui.NewModel(ctx, p, initial), tea.WithAltScreen())

	// Send is a no-op once the program has exited.
	p.Subscribe(func(s poller.Snapshot) {
		prog.Send(tui.SnapshotMsg(s))
	})

	_, err := prog.Run()
	return err
}

func runWeb(ctx context.Context, p *poller.Poller, initial poller.ConnectionConfig, listen string, log zerolog.Logger) error {
	srv := web.New(ctx, p, initial, log)

	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", listen).Msg("web dashboard listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
