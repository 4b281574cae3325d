package cmd

import (
	"context"
	"time"

	"task-scheduler/config"
	"task-scheduler/internal/service"
	"task-scheduler/pkg/cache"
	"task-scheduler/pkg/logger"
	"task-scheduler/pkg/postgres"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gopkg.in/telebot.v3"
)

type AppDependency struct {
	db        *postgres.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	notifier  service.Notifier
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return nil, err
	}

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		db:        db,
		echo:      echo.New(),
		cache:     cache.NewCache(cfg.API.UserCacheTTL, 10*time.Minute),
		notifier:  notifier,
	}, nil
}

func newNotifier(cfg *config.Config, log *logger.Logger) (service.Notifier, error) {
	if cfg.Notifier.TelegramBotToken == "" || cfg.Notifier.TelegramChatID == 0 {
		log.Info("No notification channel configured, logging outcomes only")
		return service.NewLogNotifier(log), nil
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token: cfg.Notifier.TelegramBotToken,
		OnError: func(err error, c telebot.Context) {
			log.Error("Telegram notifier error", zap.Error(err))
		},
	})
	if err != nil {
		log.Error("Failed to create telegram bot", zap.Error(err))
		return nil, err
	}
	return service.NewTelegramNotifier(log, bot, cfg.Notifier.TelegramChatID), nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
