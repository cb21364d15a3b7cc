// cmd/gateway/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/ztrue/tracerr"

	"github.com/tamzrod/modbus-viewer/internal/api"
	"github.com/tamzrod/modbus-viewer/internal/config"
	"github.com/tamzrod/modbus-viewer/internal/gateway"
	"github.com/tamzrod/modbus-viewer/internal/logging"
	"github.com/tamzrod/modbus-viewer/internal/source"
	"github.com/tamzrod/modbus-viewer/internal/status"
	"github.com/tamzrod/modbus-viewer/internal/store"
	"github.com/tamzrod/modbus-viewer/internal/writer"
)

const usage = `usage: gateway <command> [flags]

commands:
  serve            poll the device into the database and serve the REST endpoint
  user             create or update a username/token pair
  write-coils      write coils from -address, e.g. -values 1,0,1,1
  write-registers  write holding registers from -address, e.g. -values 1,2,3

run "gateway <command> -h" for flags`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(os.Args[2:])
	case "user":
		err = user(os.Args[2:])
	case "write-coils":
		err = write(os.Args[2:], "coils")
	case "write-registers":
		err = write(os.Args[2:], "registers")
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "gateway: unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		// tracerr errors carry the stack of the failing store call
		fmt.Fprintln(os.Stderr, "gateway: "+tracerr.Sprint(err))
		os.Exit(1)
	}
}

// ---- shared flags ----

type common struct {
	config   *string
	database *string
	endpoint *string
	mode     *string
	unitID   *uint
	logLevel *string
}

func commonFlags(fs *flag.FlagSet) common {
	return common{
		config:   fs.String("config", "", "optional YAML config file"),
		database: fs.String("db", "", "sqlite database path"),
		endpoint: fs.String("endpoint", "", "device endpoint: host:port (tcp) or serial device (rtu)"),
		mode:     fs.String("mode", "", "device transport: tcp or rtu"),
		unitID:   fs.Uint("unit", 0, "device unit (slave) id"),
		logLevel: fs.String("log-level", "", "error|warn|info|debug|trace"),
	}
}

// load reads, overrides, validates and normalizes the config.
func (c common) load() (*config.Config, zerolog.Logger, func() error, error) {
	cfg, err := config.Load(*c.config)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}

	g := &cfg.Gateway
	override(&g.Database, *c.database)
	override(&g.Source.Endpoint, *c.endpoint)
	override(&g.Source.Mode, *c.mode)
	override(&cfg.Log.Level, *c.logLevel)
	if *c.unitID > 255 {
		return nil, zerolog.Nop(), nil, fmt.Errorf("unit id %d out of range", *c.unitID)
	}
	if *c.unitID != 0 {
		g.Source.UnitID = uint8(*c.unitID)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	return cfg, log, closeLog, nil
}

// ---- serve ----

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	c := commonFlags(fs)
	listen := fs.String("listen", "", "REST listen address")
	_ = fs.Parse(args)

	cfg, log, closeLog, err := c.load()
	if err != nil {
		return err
	}
	defer closeLog()

	g := cfg.Gateway
	override(&g.Listen, *listen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Store
	// --------------------

	st, err := store.Open(ctx, g.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	// --------------------
	// Device pipeline
	// --------------------

	src, closeSource, err := source.Build(g)
	if err != nil {
		return fmt.Errorf("source build failed: %w", err)
	}
	defer closeSource()

	plan := writer.BuildPlan(g)
	interval := time.Duration(g.Poll.IntervalMs) * time.Millisecond
	tracker := status.NewTracker(gateway.StalePolls * interval)

	pipe := &gateway.Pipeline{
		Source:  src,
		Writer:  writer.New(plan, st),
		Status:  writer.NewLogStatusWriter(log, plan.IP),
		Tracker: tracker,
		Log:     log,
	}

	pipeDone := make(chan struct{})
	go func() {
		defer close(pipeDone)
		pipe.Run(ctx)
	}()

	// --------------------
	// REST endpoint
	// --------------------

	httpSrv := &http.Server{
		Addr:              g.Listen,
		Handler:           api.New(st, tracker, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	log.Info().
		Str("listen", g.Listen).
		Str("device", g.Source.Endpoint).
		Uint8("unit", g.Source.UnitID).
		Str("db", g.Database).
		Msg("gateway started")

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
		stop()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	<-pipeDone
	log.Info().Msg("gateway stopped")
	return serveErr
}

// ---- user ----

func user(args []string) error {
	fs := flag.NewFlagSet("user", flag.ExitOnError)
	c := commonFlags(fs)
	name := fs.String("name", "", "username")
	token := fs.String("token", "", "token (prompted when empty)")
	_ = fs.Parse(args)

	cfg, log, closeLog, err := c.load()
	if err != nil {
		return err
	}
	defer closeLog()

	in := bufio.NewReader(os.Stdin)
	if *name == "" {
		*name = prompt(in, "Enter a username: ")
	}
	if *token == "" {
		*token = prompt(in, "Enter a token: ")
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Gateway.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.PutUser(ctx, *name, *token); err != nil {
		return err
	}
	log.Info().Str("user", strings.TrimSpace(*name)).Msg("user and token saved")
	return nil
}

// ---- write ----

func write(args []string, what string) error {
	fs := flag.NewFlagSet("write-"+what, flag.ExitOnError)
	c := commonFlags(fs)
	address := fs.Uint("address", 0, "first address")
	values := fs.String("values", "", "comma-separated values")
	_ = fs.Parse(args)

	if *address > 65535 {
		return fmt.Errorf("address %d out of range", *address)
	}

	cfg, log, closeLog, err := c.load()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Gateway.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	cmd, closeCmd, err := writer.BuildCommander(cfg.Gateway, st)
	if err != nil {
		return err
	}
	defer closeCmd()

	addr := uint16(*address)
	switch what {
	case "coils":
		bits, err := writer.ParseBits(*values)
		if err != nil {
			return err
		}
		if err := cmd.WriteCoils(ctx, addr, bits); err != nil {
			return err
		}
	default:
		regs, err := writer.ParseRegisters(*values)
		if err != nil {
			return err
		}
		if err := cmd.WriteRegisters(ctx, addr, regs); err != nil {
			return err
		}
	}

	log.Info().Str("what", what).Uint16("address", addr).Str("values", *values).Msg("write accepted")
	return nil
}

// ---- helpers ----

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
