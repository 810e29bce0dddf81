package main

import (
	"context"
	"log"
	"os"

	"github.com/rbxmgr/rbxmgr/internal/buildinfo"
	"github.com/rbxmgr/rbxmgr/internal/cli"
	"github.com/rbxmgr/rbxmgr/internal/config"
	"github.com/rbxmgr/rbxmgr/internal/launcher"
	"github.com/rbxmgr/rbxmgr/internal/logging"
	"github.com/rbxmgr/rbxmgr/internal/registry"
	"github.com/rbxmgr/rbxmgr/internal/roblox"
	"github.com/rbxmgr/rbxmgr/internal/secrets"
	"github.com/rbxmgr/rbxmgr/internal/storage"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewDefault(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		log.Fatalf("data dir: %v", err)
	}

	store, err := storage.Open(ctx, cfg.DatabasePath(), logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	vault, err := secrets.Bootstrap(ctx, store)
	if err != nil {
		log.Fatalf("secrets vault: %v", err)
	}

	remote := roblox.New(roblox.DefaultEndpoints(), cfg.RequestTimeout, logger)
	browser := launcher.NewBrowser(cfg.DataDir, logger)

	reg := registry.New(registry.Deps{
		Store:   store,
		Client:  remote,
		Opener:  browser,
		Cleaner: browser,
		Vault:   vault,
		Log:     logger,
	}, registry.Options{ValidityMaxAge: cfg.ValidityMaxAge})

	app := cli.NewApp(reg, remote)
	reg.SetNotifier(app)

	if err := reg.Load(ctx); err != nil {
		log.Fatalf("load accounts: %v", err)
	}

	if reg.Settings().CheckOnStartup {
		reg.CheckStale(ctx)
	}

	app.Run(ctx)
}
