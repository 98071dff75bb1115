package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"

	"subtitlebot/internal/bot"
	"subtitlebot/internal/broadcast"
	"subtitlebot/internal/config"
	"subtitlebot/internal/logging"
	"subtitlebot/internal/maintenance"
	"subtitlebot/internal/session"
	"subtitlebot/internal/storage"
	"subtitlebot/internal/transport/telegram"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.Parse()

	if err := run(cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	// Optional; BOT_TOKEN may come from the environment directly.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Bootstrap read so logging can be configured before the manager exists.
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logCloser.Close()

	mgr := config.NewManager(cfgPath, log)
	if _, err := mgr.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: time.Duration(cfg.Storage.BusyTimeout),
	}, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: time.Duration(cfg.Telegram.PollTimeout),
	}, log)
	if err != nil {
		return fmt.Errorf("init telegram: %w", err)
	}

	bcast := broadcast.New(broadcastConfig(cfg.Broadcast), adapter, store, log)
	sessions := session.NewStore(time.Duration(cfg.Session.TTL))
	router := bot.New(adapter, store, bcast, sessions, cfg.Telegram.AdminUserIDs, log)

	maint := maintenance.New(cfg.Maintenance, store, sessions, log)
	if err := maint.Start(); err != nil {
		return fmt.Errorf("start maintenance: %w", err)
	}
	defer maint.Stop()

	// Hot-reloadable settings: broadcast tuning and the admin allowlist.
	// Token, storage path and log sinks need a restart.
	mgr.OnReload(func(c *config.Config) {
		bcast.Apply(broadcastConfig(c.Broadcast))
		router.SetAdmins(c.Telegram.AdminUserIDs)
	})
	go func() {
		if err := mgr.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("config watch stopped")
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	log.Info().Str("config", cfgPath).Msg("bot starting")
	return router.Run(ctx)
}

func broadcastConfig(c config.BroadcastConfig) broadcast.Config {
	return broadcast.Config{
		BatchSize:     c.BatchSize,
		BatchDelay:    time.Duration(c.BatchDelay),
		ProgressEvery: c.ProgressEvery,
		RatePerSec:    c.RatePerSec,
		SendTimeout:   time.Duration(c.SendTimeout),
	}
}
