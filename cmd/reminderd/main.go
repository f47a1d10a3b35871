package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bill_reminder_service/internal/app"
	"bill_reminder_service/internal/domain/notify"
	"bill_reminder_service/internal/domain/reminder"
	"bill_reminder_service/internal/infra/config"
	idb "bill_reminder_service/internal/infra/database"
	"bill_reminder_service/internal/infra/httpserver"
	"bill_reminder_service/internal/infra/logger"
	"bill_reminder_service/internal/infra/mailer"
	"bill_reminder_service/internal/infra/redisledger"
	"bill_reminder_service/internal/infra/scheduler"
	"bill_reminder_service/internal/infra/telegram"

	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Bill Reminder Service starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. Environment: %s, LedgerBackend: %s, NotifyChannel: %s, Timezone: %s",
		cfg.Environment, cfg.LedgerBackend, cfg.NotifyChannel, cfg.ReminderTimezone)

	// Database connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	billRepo := idb.NewPostgresBillRepository(db)
	runLogRepo := idb.NewPostgresRunLog(db)

	// Dispatch ledger
	var ledger reminder.Ledger
	switch cfg.LedgerBackend {
	case config.LedgerBackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("FATAL: Invalid REDIS_URL: %v", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("FATAL: Could not connect to redis: %v", err)
		}
		ledger = redisledger.NewLedger(client)
		log.Info("Redis dispatch ledger initialized.")
	default:
		ledger = idb.NewPostgresLedger(db)
		log.Info("Postgres dispatch ledger initialized.")
	}

	// Notification sender
	var sender notify.Sender
	switch cfg.NotifyChannel {
	case config.NotifyChannelTelegram:
		bot, err := telebot.NewBot(telebot.Settings{Token: cfg.TelegramToken})
		if err != nil {
			log.Fatalf("FATAL: Could not create Telegram bot: %v", err)
		}
		sender = telegram.NewSender(bot)
		log.Info("Telegram sender initialized.")
	default:
		sender = mailer.NewHTTPSender(cfg.EmailFunctionURL, cfg.EmailFrom, cfg.SendTimeout)
		log.Info("Email sender initialized.")
	}

	svc := app.NewReminderService(
		billRepo,
		ledger,
		sender,
		runLogRepo,
		app.SystemClock{},
		log,
		cfg.Location(),
		cfg.WorkerCount,
		cfg.SendTimeout,
	)

	remScheduler := scheduler.NewReminderScheduler(svc, log, cfg.CronSpecDaily, cfg.Location())
	if err := remScheduler.Start(); err != nil {
		log.Fatalf("FATAL: Could not start reminder scheduler: %v", err)
	}

	httpSrv := httpserver.New(svc, log, cfg.HTTPListenAddr)
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Fatalf("FATAL: HTTP server failed: %v", err)
		}
	}()

	log.Info("Application setup complete. Scheduler and HTTP server are running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}
	remScheduler.Stop()
	log.Info("Application shut down gracefully.")
}
