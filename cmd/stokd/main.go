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

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stokapp/stok/internal/config"
	"github.com/stokapp/stok/internal/domain/catalog"
	"github.com/stokapp/stok/internal/infra/db"
	httpx "github.com/stokapp/stok/internal/infra/http"
	"github.com/stokapp/stok/internal/infra/logger"
	"github.com/stokapp/stok/internal/infra/metrics"
	"github.com/stokapp/stok/internal/infra/notify"
	"github.com/stokapp/stok/internal/service"
	"github.com/stokapp/stok/internal/store"
	"github.com/stokapp/stok/internal/store/memory"
	"github.com/stokapp/stok/internal/store/sqlite"
)

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		if err := db.Migrate(cfg.Postgres.DSN, log); err != nil {
			return store.Store{}, nil, err
		}
		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return store.Store{}, nil, err
		}
		log.Info("db connected")
		return store.NewPostgres(pool), pool.Close, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return store.Store{}, nil, err
		}
		log.Info("sqlite opened", "path", s.Path())
		return s.Store(), func() { _ = s.Close() }, nil
	case "memory":
		log.Warn("memory store: data is lost on exit")
		return memory.New().Store(), func() {}, nil
	}
	return store.Store{}, nil, errors.New("unknown store driver: " + cfg.Store.Driver)
}

func startNotifier(ctx context.Context, cfg config.Config, svc *service.Service, m *metrics.Metrics, log *slog.Logger) {
	if cfg.Telegram.Token == "" || cfg.Telegram.AdminChatID == 0 {
		log.Info("telegram alerts disabled")
		return
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return
	}
	var alerts notify.Counter
	if m != nil {
		alerts = m
	}
	n := notify.New(api, log, cfg.Telegram.AdminChatID, cfg.Stock.LowThreshold, svc.Ledger(), alerts)

	changes, cancel := svc.Ledger().Subscribe(64)
	go func() {
		defer cancel()
		n.Watch(ctx, changes)
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()
	go func() {
		if err := n.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("telegram loop stopped", "err", err)
		}
	}()
	log.Info("telegram alerts enabled", "bot", api.Self.UserName, "threshold", cfg.Stock.LowThreshold)
}

func main() {
	cfgPath := flag.String("config", "config/example.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(os.Stdout, cfg.App.Env)

	if cfg.App.Timezone != "" {
		loc, err := time.LoadLocation(cfg.App.Timezone)
		if err != nil {
			log.Error("bad timezone", "tz", cfg.App.Timezone, "err", err)
			return
		}
		// export timestamps and history dates render in local time
		time.Local = loc
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("store open failed", "driver", cfg.Store.Driver, "err", err)
		return
	}
	defer closeStore()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	categories := make([]catalog.Category, 0, len(cfg.Stock.Categories))
	for _, c := range cfg.Stock.Categories {
		categories = append(categories, catalog.Category{Name: c.Name, Keywords: c.Keywords})
	}

	svc := service.New(st, log, service.Options{
		WarehouseActor: cfg.App.WarehouseActor,
		Categories:     categories,
		Metrics:        m,
	})

	startNotifier(ctx, cfg, svc, m, log)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, httpx.NewAPI(svc, log))
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
