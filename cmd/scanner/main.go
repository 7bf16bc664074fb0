package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"perpscanner/config"
	"perpscanner/internal/bybit/memorystore"
	"perpscanner/internal/bybit/snapshot"
	"perpscanner/internal/bybit/symbolmeta"
	"perpscanner/internal/detector"
	"perpscanner/internal/engine"
	"perpscanner/internal/notify"
	"perpscanner/internal/observability"
	"perpscanner/internal/schedule"
	"perpscanner/internal/status"
	"perpscanner/internal/subscriber"
	"perpscanner/internal/telegram"
	"perpscanner/logger"
	"perpscanner/pkg/bybit"
	"perpscanner/pkg/storage"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the YAML config file")
	pflag.Parse()

	// viper config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.Telegram.ChatID == 0 {
		log.Warn("telegram.chat_id not set, alerts go to watchlist subscribers only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("scanner failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	metrics := observability.NewMetrics()

	// exchange
	rest := bybit.NewRESTClient(cfg.Bybit.BaseURL(), cfg.Bybit.REST.Timeout)
	loader := snapshot.NewLoader(rest, bybit.Category(cfg.Bybit.Category), cfg.Bybit.REST.Timeout, log)
	instruments := memorystore.NewInstrumentStore()
	snapshots := memorystore.NewSnapshotStore()

	// watchlists
	var (
		store   subscriber.Store
		sources status.Sources
	)
	if cfg.Storage.Enabled {
		db, err := storage.Open(cfg.Storage, cfg.Log.Environment)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
		sources.Storage = db
		log.Info("watchlist storage enabled", zap.String("driver", cfg.Storage.Driver))
	}
	registry := subscriber.NewRegistry(store, log)
	sources.Subscribers = registry
	sources.Instruments = instruments
	if err := registry.Hydrate(ctx); err != nil {
		log.Warn("failed to restore watchlists", zap.Error(err))
	}

	// telegram
	api, err := telegram.NewAPI(cfg.Telegram.BotToken)
	if err != nil {
		return err
	}
	log.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

	dispatcher := notify.NewDispatcher(telegram.NewSender(api), registry, notify.Options{
		BroadcastChatID:   cfg.Telegram.ChatID,
		InterMessageDelay: cfg.Scanner.InterMessageDelay(),
		Metrics:           metrics,
	}, log)

	// scan loop
	opts := engine.OptionsFromConfig(cfg.Scanner)
	if cfg.Scanner.PerpetualsOnly {
		opts.Universe = instruments
	}
	opts.Metrics = metrics
	opts.AnnounceStartup = cfg.Telegram.ChatID != 0
	scanner := engine.New(loader, snapshots, detector.NewPipeline(detector.NewConfig(cfg.Scanner)), dispatcher, opts, log)

	ref := &status.EngineRef{}
	ref.Set(scanner)

	tasks := []schedule.Task{
		scanner,
		&symbolmeta.MidnightLoader{Load: loader.ListInstruments, Store: instruments, Logger: log},
		telegram.NewBot(api, registry, ref, cfg.Telegram.PollTimeout, log),
	}
	if cfg.Status.Enabled {
		info := status.Info{
			Testnet:            cfg.Bybit.Testnet,
			TelegramConfigured: cfg.Telegram.BotToken != "",
			Scanner:            cfg.Scanner,
		}
		tasks = append(tasks, status.NewServer(cfg.Status.Port, ref, rest, info, sources, metrics, log))
	}

	log.Info("starting bybit scanner",
		zap.String("base_url", cfg.Bybit.BaseURL()),
		zap.Bool("testnet", cfg.Bybit.Testnet),
		zap.Int("scan_interval_seconds", cfg.Scanner.ScanIntervalSeconds),
		zap.Int("max_symbols_per_cycle", cfg.Scanner.MaxSymbolsPerCycle))

	return schedule.RunAll(ctx, log, tasks...)
}
