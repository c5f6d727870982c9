package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/strait-labs/straitd/internal/config"
	httpservice "github.com/strait-labs/straitd/internal/interface/http"
	"github.com/urfave/cli/v2"
)

// overridden at build time with -ldflags
var version = "dev"

func main() {
	app := &cli.App{
		Name:     "straitd",
		Usage:    "cross-domain asset bridge and exchange daemon",
		Version:  version,
		Flags:    config.Flags,
		Action:   startAction,
		Commands: commands,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func startAction(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	svc, err := httpservice.NewService(version, httpservice.Config{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
	}, cfg)
	if err != nil {
		return fmt.Errorf("failed to create service: %s", err)
	}

	log.Infof("straitd config: %s", cfg)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return fmt.Errorf("failed to start service: %s", err)
	}
	log.Infof("straitd listens on: %d", cfg.Port)

	log.RegisterExitHandler(svc.Stop)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(
		sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP, os.Interrupt,
	)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
	return nil
}
