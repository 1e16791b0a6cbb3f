package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lucianoherrera1000/vendobot/internal/config"
	"github.com/lucianoherrera1000/vendobot/internal/conversation"
	"github.com/lucianoherrera1000/vendobot/internal/database"
	"github.com/lucianoherrera1000/vendobot/internal/llama"
	"github.com/lucianoherrera1000/vendobot/internal/orders"
	"github.com/lucianoherrera1000/vendobot/internal/server"
	"github.com/lucianoherrera1000/vendobot/internal/telegram"
	"github.com/lucianoherrera1000/vendobot/internal/whatsapp"
)

const dedupRetention = 48 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		sugar.Fatalw("failed to open database", "path", cfg.DatabasePath, "error", err)
	}
	defer db.Close()

	writer, err := orders.NewWriter(cfg.OrdersDir)
	if err != nil {
		sugar.Fatalw("failed to prepare orders directory", "dir", cfg.OrdersDir, "error", err)
	}

	// The AI fallback is strictly flag-gated: a nil extractor disables it.
	var extractor conversation.Extractor
	if cfg.AIEnabled {
		extractor = llama.New(cfg.LlamaBaseURL, cfg.LlamaModel)
		sugar.Infow("AI extraction enabled", "base_url", cfg.LlamaBaseURL)
	}

	engine := conversation.New(cfg.DeliveryFee, extractor, writer, sugar)

	var sender whatsapp.Sender
	if cfg.WhatsAppAccessToken != "" && cfg.WhatsAppPhoneNumberID != "" {
		sender = whatsapp.New(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, "")
	} else {
		sender = whatsapp.Disabled{Log: sugar}
	}

	srv := server.New(engine, db, sender, cfg.WhatsAppVerifyToken, cfg.WhatsAppAppSecret, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TelegramBotToken != "" {
		bot, err := telegram.New(cfg.TelegramBotToken, engine, db, sugar)
		if err != nil {
			sugar.Fatalw("failed to start telegram bot", "error", err)
		}
		go func() {
			if err := bot.Start(ctx); err != nil {
				sugar.Errorw("telegram bot stopped", "error", err)
			}
		}()
	}

	go pruneLoop(ctx, db, sugar)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(cfg.Debug),
	}

	go func() {
		sugar.Infow("http server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("http shutdown failed", "error", err)
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// pruneLoop trims old webhook dedup records on a slow cadence.
func pruneLoop(ctx context.Context, db *database.DB, log *zap.SugaredLogger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.PruneEvents(dedupRetention); err != nil {
				log.Warnw("dedup prune failed", "error", err)
			}
		}
	}
}
