package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"vpn-bot-backend/internal/bot"
	"vpn-bot-backend/internal/common/config"
	"vpn-bot-backend/internal/common/logger"
	accesssqlite "vpn-bot-backend/internal/features/access/repository/sqlite"
	accessservice "vpn-bot-backend/internal/features/access/service"
	billingsqlite "vpn-bot-backend/internal/features/billing/repository/sqlite"
	billingservice "vpn-bot-backend/internal/features/billing/service"
	menurepository "vpn-bot-backend/internal/features/menu/repository"
	menuservice "vpn-bot-backend/internal/features/menu/service"
	opshttp "vpn-bot-backend/internal/http"
	"vpn-bot-backend/internal/platform/redis"
	"vpn-bot-backend/internal/platform/sqlite"
	"vpn-bot-backend/internal/platform/telegram"
	"vpn-bot-backend/internal/platform/vpncli"
	"vpn-bot-backend/internal/platform/yookassa"
)

func main() {
	cfg := config.Load()
	logger.Init("vpn-bot-backend", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open sqlite store")
	}
	defer db.Close()

	rdb, err := redis.Open(ctx, fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	minTopUp, err := decimal.NewFromString(cfg.Billing.MinTopUp)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid MIN_TOPUP value")
	}

	tg := telegram.NewClient(cfg.Telegram.BotToken)
	gateway := yookassa.NewClient(
		&http.Client{Timeout: cfg.YooKassa.Timeout},
		cfg.YooKassa.BaseURL,
		cfg.YooKassa.ShopID,
		cfg.YooKassa.SecretKey,
	)
	provisioner := vpncli.NewRunner(cfg.Provision.Script, cfg.Provision.Timeout, cfg.Provision.Days)

	notifier := bot.NewNotifier(tg, cfg.Telegram.AdminID, cfg.Billing.Currency)

	paymentRepo := billingsqlite.NewPaymentRepository(db)
	billing := billingservice.NewBillingService(
		paymentRepo, gateway, notifier,
		cfg.Billing.Currency, cfg.YooKassa.ReturnURL, minTopUp,
	)

	userRepo := accesssqlite.NewUserRepository(db)
	access := accessservice.NewAccessService(userRepo, provisioner, notifier)

	menus := menuservice.NewMenuService(menurepository.NewRedisMenuRepository(rdb.Client), tg, cfg.Menu.Limit)

	reconciler := billingservice.NewReconciler(billing, paymentRepo, cfg.Billing.ReconcileInterval)
	reconciler.Start()
	defer reconciler.Stop()

	ops := opshttp.NewServer(opshttp.Options{
		Port:       cfg.HTTP.Port,
		Origin:     cfg.HTTP.Origin,
		AdminToken: cfg.HTTP.AdminToken,
		Debug:      cfg.Debug,
	}, db, rdb.Client, access)
	go func() {
		if err := ops.Run(); err != nil {
			logger.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	dispatcher := bot.NewDispatcher(bot.Deps{
		Telegram:    tg,
		Billing:     billing,
		Access:      access,
		Menus:       menus,
		Redis:       rdb.Client,
		AdminID:     cfg.Telegram.AdminID,
		Currency:    cfg.Billing.Currency,
		PollTimeout: cfg.Telegram.PollTimeout,
	})

	logger.Info().Msg("bot is up")
	if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("dispatcher stopped")
	}

	logger.Info().Msg("shutting down")
}
