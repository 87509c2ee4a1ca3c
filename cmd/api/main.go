package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/backend"
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/logger"
	"storefront/internal/server"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to .env file")
	migrate := pflag.Bool("migrate", true, "run AutoMigrate before serving")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	log := logger.New(cfg.LogLevel)

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect db")
	}
	if *migrate {
		if err := db.Migrate(gormDB); err != nil {
			log.WithError(err).Fatal("failed to migrate")
		}
	}

	//Usecase生成
	b := backend.NewGorm(gormDB, backend.SettingsFromConfig(cfg))

	//Handler生成
	h := server.Handlers{
		Auth:     handler.NewAuthHandler(b.Register, b.Login, b.Refresh, b.Logout, b.RefreshTTL, cfg.IsProduction(), log),
		Products: handler.NewProductHandler(b.Products),
		Profiles: handler.NewProfileHandler(b.Profiles),
		Orders:   handler.NewOrderHandler(b.Orders),
	}
	e := server.New(h, b.Tokens, log)

	//Server起動
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, e, cfg.Addr(), log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
