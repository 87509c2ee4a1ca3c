package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"storefront/internal/app"
	"storefront/internal/backend"
	"storefront/internal/config"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/storage"
	"storefront/internal/logger"
	"storefront/internal/remote"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const usage = `usage: storefront [--env-file FILE] <command> [args]

commands:
  products [--category C] [--q TEXT] [--featured] [--sort new|price_asc|price_desc] [--limit N]
  featured | new-arrivals | categories
  product <id>
  cart [show | add <id> [qty] | remove <id> | set <id> <qty> | clear]
  signup <email> <password>
  signin <email> <password>
  signout | whoami
  profile [--first-name X] [--last-name X] [--phone X] [--street X --city X --state X --zip X --country X]
  checkout [--street X --city X --state X --zip X --country X]
  orders
  seed
`

func main() {
	global := pflag.NewFlagSet("storefront", pflag.ExitOnError)
	envFile := global.String("env-file", ".env", "path to .env file")
	global.SetInterspersed(false)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	//標準出力は一覧表示に使うのでログはstderrへ
	log := logger.NewWithOutput(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger, cmd string, args []string) error {
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	if cmd == "seed" {
		return seed(ctx, infraRepo.NewProductGormRepository(gormDB), os.Stdout)
	}

	st, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	b := backend.NewGorm(gormDB, backend.SettingsFromConfig(cfg))
	client := remote.NewClient(b, st.Slot(storage.SessionNamespace), log)
	sf := app.New(ctx, client, st, log)

	c := &cli{sf: sf, out: os.Stdout}
	switch cmd {
	case "products":
		return c.products(ctx, args)
	case "featured":
		return c.featured(ctx)
	case "new-arrivals":
		return c.newArrivals(ctx)
	case "categories":
		return c.categories(ctx)
	case "product":
		return c.product(ctx, args)
	case "cart":
		return c.cart(ctx, args)
	case "signup":
		return c.signUp(ctx, args)
	case "signin":
		return c.signIn(ctx, args)
	case "signout":
		return c.signOut(ctx)
	case "whoami":
		return c.whoami()
	case "profile":
		return c.profile(ctx, args)
	case "checkout":
		return c.checkout(ctx, args)
	case "orders":
		return c.orders(ctx)
	}
	return fmt.Errorf("unknown command %q", cmd)
}
