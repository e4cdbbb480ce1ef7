// Package main - Entry point for the energy-quote HTTP server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"energy-quote/adapters/loader"
	"energy-quote/adapters/storage"
	"energy-quote/api"
	"energy-quote/core/pricing"
	"energy-quote/internal/config"
	"energy-quote/internal/logging"
)

const version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "energy-quote.hcl", "Config file (.hcl or .json)")
	addr := flag.String("addr", "", "Server address (overrides the config)")
	flag.Parse()

	if err := run(*cfgPath, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "energy-quote-server: %v\n", err)
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}

func run(cfgPath, addr string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	config.Set(cfg)
	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}
	log := logging.Named("server")

	snap, err := loader.LoadSnapshot(cfg.Data.RegionTable, cfg.Data.TariffTable)
	if err != nil {
		return err
	}
	log.Info("reference tables loaded",
		logging.Snapshot(snap.ID),
		zap.Int("regions", snap.Regions.Len()),
		zap.Int("tariffs", snap.Tariffs.Len()),
	)

	archive, err := storage.StoreFactory(storage.Backend(cfg.Archive.Backend), cfg.Archive.Path)
	if err != nil {
		return err
	}
	if archive != nil {
		defer archive.Close()
	}

	if addr == "" {
		addr = cfg.Server.Addr
	}
	srv := api.NewServer(version, pricing.NewStore(snap), archive, api.SettingsFromConfig(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("energy-quote server v%s\n", version)
	fmt.Printf("   API: http://localhost%s\n", addr)
	fmt.Println()

	shutdown := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	return srv.ListenAndServe(ctx, addr, shutdown)
}
