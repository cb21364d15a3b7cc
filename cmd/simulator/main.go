// cmd/simulator/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tamzrod/modbus-viewer/internal/config"
	"github.com/tamzrod/modbus-viewer/internal/logging"
	"github.com/tamzrod/modbus-viewer/internal/sim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "optional YAML config file")
	listen := flag.String("listen", "", "Modbus TCP listen address")
	blockData := flag.String("blockdata", "", "block data YAML seeding di/co/ir/hr")
	logLevel := flag.String("log-level", "", "error|warn|info|debug|trace")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Simulator.Listen = *listen
	}
	if *blockData != "" {
		cfg.Simulator.BlockData = *blockData
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	bd, defaulted, err := sim.LoadBlockData(cfg.Simulator.BlockData)
	if err != nil {
		return err
	}

	s := sim.New(bd, log)

	fmt.Println()
	if defaulted {
		fmt.Printf("  ERROR: There is no '%s' file, using default blockdata\n\n", cfg.Simulator.BlockData)
	}
	s.WriteSummary(os.Stdout)

	if err := s.Listen(cfg.Simulator.Listen); err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("simulator stopped")
	return nil
}
