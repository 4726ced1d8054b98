package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/auth"
	"github.com/xenking/kart-backoffice/internal/domain/money"
	"github.com/xenking/kart-backoffice/internal/domain/order"
	"github.com/xenking/kart-backoffice/internal/domain/product"
	"github.com/xenking/kart-backoffice/internal/domain/shipping"
	"github.com/xenking/kart-backoffice/internal/repository"
)

var demoProducts = []product.Product{
	{ID: "1", Name: "Waffle with Berries", Category: "Waffle", Price: money.MustParse("6.50"), Stock: 40},
	{ID: "2", Name: "Vanilla Bean Crème Brûlée", Category: "Crème Brûlée", Price: money.MustParse("7.00"), Stock: 25},
	{ID: "3", Name: "Macaron Mix of Five", Category: "Macaron", Price: money.MustParse("8.00"), Stock: 30},
	{ID: "4", Name: "Classic Tiramisu", Category: "Tiramisu", Price: money.MustParse("5.50"), Stock: 20},
	{ID: "5", Name: "Pistachio Baklava", Category: "Baklava", Price: money.MustParse("4.00"), Stock: 50},
	{ID: "6", Name: "Lemon Meringue Pie", Category: "Pie", Price: money.MustParse("5.00"), Stock: 15},
	{ID: "7", Name: "Red Velvet Cake", Category: "Cake", Price: money.MustParse("4.50"), Stock: 0},
}

var carriers = []shipping.Carrier{
	{ID: "laposte", Name: "La Poste"},
	{ID: "chronopost", Name: "Chronopost"},
}

var methods = []shipping.Method{
	{ID: "colissimo", Name: "Colissimo 48h", Price: money.MustParse("4.50"), Carrier: &carriers[0]},
	{ID: "chrono13", Name: "Chrono 13h", Price: money.MustParse("12.90"), Carrier: &carriers[1]},
}

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
		apiKeyUser   string
		apiKeyScopes string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or KART_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KART_API_KEY_PEPPER env)")
	flag.StringVar(&apiKeyUser, "api-key-user", "demo-user", "user id the seeded API key acts as")
	flag.StringVar(&apiKeyScopes, "api-key-scopes", auth.ScopeAdmin, "comma-separated scopes of the seeded API key")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	_ = godotenv.Load()
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("KART_SEED_API_KEY")
	}
	if apiKey == "" {
		lg.Fatal("API key is required: set --api-key or KART_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("KART_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	key := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey(apiKey, []byte(apiKeyPepper)),
		Name:    "Default key",
		UserID:  apiKeyUser,
		Scopes:  splitScopes(apiKeyScopes),
	}
	if err := run(ctx, lg, databaseURL, key); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}

	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, key auth.APIKeyInfo) error {
	lg.Info("Connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	var (
		statuses = repository.NewStatusRepository(pool)
		ship     = repository.NewShippingRepository(pool)
		products = repository.NewProductRepository(pool)
		keys     = repository.NewAPIKeyRepository(pool)
	)

	return repository.NewTxManager(pool).WithinTx(ctx, func(ctx context.Context) error {
		for _, label := range []string{order.StatusPendingPayment, order.StatusPaid, order.StatusShipped} {
			st, err := statuses.Ensure(ctx, label)
			if err != nil {
				return errors.Wrapf(err, "ensure status %q", label)
			}
			lg.Info("Status ready", zap.String("id", st.ID), zap.String("label", st.Label))
		}

		for _, c := range carriers {
			if err := ship.UpsertCarrier(ctx, c); err != nil {
				return err
			}
		}
		for _, m := range methods {
			if err := ship.UpsertMethod(ctx, m); err != nil {
				return err
			}
			lg.Info("Shipping method ready", zap.String("id", m.ID), zap.Stringer("price", m.Price))
		}

		for _, p := range demoProducts {
			if err := products.Upsert(ctx, p); err != nil {
				return err
			}
		}
		lg.Info("Products upserted", zap.Int("count", len(demoProducts)))

		if err := keys.Upsert(ctx, key); err != nil {
			return err
		}
		lg.Info("API key upserted",
			zap.String("id", key.ID),
			zap.String("user_id", key.UserID),
			zap.Strings("scopes", key.Scopes),
		)
		return nil
	})
}

func splitScopes(s string) []string {
	out := []string{}
	for _, scope := range strings.Split(s, ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			out = append(out, scope)
		}
	}
	return out
}
