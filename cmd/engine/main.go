package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xWizop/cypherx-engine/config"
	"github.com/0xWizop/cypherx-engine/internal/adapters/notify"
	"github.com/0xWizop/cypherx-engine/internal/adapters/oracle"
	"github.com/0xWizop/cypherx-engine/internal/adapters/storage"
	"github.com/0xWizop/cypherx-engine/internal/adapters/swap"
	"github.com/0xWizop/cypherx-engine/internal/api"
	"github.com/0xWizop/cypherx-engine/internal/application/ledger"
	"github.com/0xWizop/cypherx-engine/internal/application/orders"
	"github.com/0xWizop/cypherx-engine/internal/application/prediction"
	"github.com/0xWizop/cypherx-engine/internal/domain"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	serve := flag.Bool("serve", false, "start the HTTP API server")
	job := flag.String("job", "", "run one pass and exit: monitor|execute|resolve|payouts|all")
	positions := flag.String("positions", "", "print positions for the given wallet and exit")
	taxWallet := flag.String("tax-wallet", "", "print a tax report for the given wallet and exit")
	taxYear := flag.Int("tax-year", time.Now().UTC().Year(), "tax report year")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("cypherx engine starting",
		"config", *configPath,
		"serve", *serve,
		"job", *job,
		"auto_execute_payouts", cfg.Engine.AutoExecutePayouts,
		"signer", cfg.Swap.SignerKey() != "",
	)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	priceClient := oracle.NewClient(cfg.Oracle.PrimaryBase, cfg.Oracle.FallbackBase)
	prices := oracle.NewCache(priceClient, cfg.CacheTTL())
	router := swap.NewClient(cfg.Swap.Base, cfg.Swap.SignerKey())

	native := domain.NewNativeAssets(cfg.Engine.NativeAssets)

	orderEngine := orders.New(store, prices, router, store, orders.Config{
		MonitorBatch: cfg.Engine.MonitorBatch,
		ExecuteBatch: cfg.Engine.ExecuteBatch,
		SlippageBps:  cfg.Engine.SlippageBps,
	}, slog.Default())

	poolEngine := prediction.New(store, prices, router, prediction.Config{
		ResolveBatch:       cfg.Engine.ResolveBatch,
		PayoutBatch:        cfg.Engine.PayoutBatch,
		PerTradeGasUSD:     cfg.Engine.PerTradeGasUSD,
		AutoExecutePayouts: cfg.Engine.AutoExecutePayouts,
		SettlementToken:    cfg.Engine.SettlementToken,
	}, slog.Default())

	ledgerSvc := ledger.New(store, prices, native, slog.Default())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *positions != "":
		printPositions(ctx, ledgerSvc, *positions)
	case *taxWallet != "":
		printTaxReport(ctx, ledgerSvc, *taxWallet, *taxYear)
	case *job != "":
		runJob(ctx, *job, orderEngine, poolEngine)
	case *serve:
		runServer(ctx, cfg.Server.Addr, api.Dependencies{
			Orders:    store,
			Pools:     store,
			Oracle:    prices,
			OrderJobs: orderEngine,
			PoolJobs:  poolEngine,
			Ledger:    ledgerSvc,
		})
	default:
		flag.Usage()
		os.Exit(2)
	}

	slog.Info("cypherx engine stopped cleanly")
}

func runJob(ctx context.Context, job string, orderEngine *orders.Engine, poolEngine *prediction.Engine) {
	run := func(name string, f func(context.Context) error) {
		if err := f(ctx); err != nil {
			slog.Error("job failed", "job", name, "err", err)
			os.Exit(1)
		}
	}

	switch job {
	case "monitor":
		run(job, func(ctx context.Context) error { _, err := orderEngine.Monitor(ctx); return err })
	case "execute":
		run(job, func(ctx context.Context) error { _, err := orderEngine.Execute(ctx); return err })
	case "resolve":
		run(job, func(ctx context.Context) error { _, err := poolEngine.Resolve(ctx); return err })
	case "payouts":
		run(job, func(ctx context.Context) error { _, err := poolEngine.Payouts(ctx); return err })
	case "all":
		run("monitor", func(ctx context.Context) error { _, err := orderEngine.Monitor(ctx); return err })
		run("execute", func(ctx context.Context) error { _, err := orderEngine.Execute(ctx); return err })
		run("resolve", func(ctx context.Context) error { _, err := poolEngine.Resolve(ctx); return err })
		run("payouts", func(ctx context.Context) error { _, err := poolEngine.Payouts(ctx); return err })
	default:
		slog.Error("unknown job", "job", job)
		os.Exit(2)
	}
}

func runServer(ctx context.Context, addr string, deps api.Dependencies) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.SetupRoutes(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "err", err)
		}
	}()

	slog.Info("http server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func printPositions(ctx context.Context, svc *ledger.Service, wallet string) {
	positions, err := svc.Positions(ctx, wallet)
	if err != nil {
		slog.Error("build positions failed", "err", err, "wallet", wallet)
		os.Exit(1)
	}
	notify.NewConsole().PrintPositions(wallet, positions)
}

func printTaxReport(ctx context.Context, svc *ledger.Service, wallet string, year int) {
	report, err := svc.TaxReport(ctx, wallet, year)
	if err != nil {
		slog.Error("build tax report failed", "err", err, "wallet", wallet, "year", year)
		os.Exit(1)
	}
	notify.NewConsole().PrintTaxReport(report)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
