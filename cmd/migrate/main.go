package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/cobrify/stock-service/internal/application"
	"github.com/cobrify/stock-service/internal/config"
	"github.com/cobrify/stock-service/internal/infrastructure/cache"
	mongoRepo "github.com/cobrify/stock-service/internal/infrastructure/mongodb"
	"github.com/cobrify/stock-service/pkg/cloudevents"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/mongodb"
)

// Migration tool that moves the flat stock of items created before
// multi-warehouse support into each business's default warehouse

const lockJob = "initialize-stocks"

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "Move legacy item stock into each business's default warehouse",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mongo-uri",
				Usage:   "MongoDB connection URI",
				EnvVars: []string{"STOCK_MONGODB_URI"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Database name",
				EnvVars: []string{"STOCK_MONGODB_DATABASE"},
			},
			&cli.StringSliceFlag{
				Name:  "business",
				Usage: "Business ids to migrate; empty migrates every business with stock",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what would change without writing",
				Value: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Overall time limit",
				Value: 10 * time.Minute,
			},
		},
		Action: migrate,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrate(c *cli.Context) error {
	cfg := config.Load()
	logger := logging.New(cfg.LoggingConfig()).WithComponent("migrate")

	mongoCfg := *cfg.MongoDB
	if uri := c.String("mongo-uri"); uri != "" {
		mongoCfg.URI = uri
	}
	if db := c.String("db"); db != "" {
		mongoCfg.Database = db
	}
	dryRun := c.Bool("dry-run")

	logger.Info("Starting warehouse stock migration", "database", mongoCfg.Database, "dryRun", dryRun)

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	client, err := mongodb.NewClient(ctx, &mongoCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer client.Close(context.Background())

	var locker *cache.BusinessLocker
	if cfg.Redis.Enabled() && !dryRun {
		if locker, err = cache.NewBusinessLocker(ctx, cfg.Redis, time.Minute); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer locker.Close()
	}

	ids := splitIDs(c.StringSlice("business"))
	if err := run(ctx, client, locker, ids, dryRun, logger); err != nil {
		logger.WithError(err).Error("Migration failed")
		return err
	}
	logger.Info("Migration completed")
	return nil
}

func run(ctx context.Context, client *mongodb.Client, locker *cache.BusinessLocker, ids []string, dryRun bool, logger *logging.Logger) error {
	if len(ids) == 0 {
		var err error
		if ids, err = discoverBusinesses(ctx, client); err != nil {
			return err
		}
	}
	logger.Info("Businesses to migrate", "count", len(ids))

	repos := mongoRepo.NewRepositories(client, cloudevents.NewEventFactory(cloudevents.SourceStock), nil)
	store := application.StockStore{
		Ingredients: repos.Ingredients,
		Products:    repos.Products,
		Movements:   repos.Movements,
		Tx:          client,
	}
	service := application.NewWarehouseService(repos.Warehouses, store, nil, logger, nil)

	var failed int
	fmt.Println("BUSINESS                              WAREHOUSE                  INGREDIENTS  PRODUCTS")
	fmt.Println("------------------------------------  -------------------------  -----------  --------")
	for _, id := range ids {
		var result *application.InitializeStocksDTO
		initialize := func(ctx context.Context) error {
			var err error
			result, err = service.InitializeWarehouseStocks(ctx, id, dryRun)
			return err
		}

		var err error
		if locker != nil {
			err = locker.WithLock(ctx, lockJob, id, initialize)
		} else {
			err = initialize(ctx)
		}
		if err != nil {
			failed++
			if errors.Is(err, cache.ErrLocked) {
				logger.Warn("Business is being migrated by another process", "businessId", id)
			} else {
				logger.Warn("Skipping business", "businessId", id, "error", err)
			}
			continue
		}
		fmt.Printf("%-36s  %-25s  %11d  %8d\n", id, result.WarehouseID, result.Ingredients, result.Products)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d businesses could not be migrated", failed, len(ids))
	}
	return nil
}

// discoverBusinesses lists every business that owns an ingredient or product
func discoverBusinesses(ctx context.Context, client *mongodb.Client) ([]string, error) {
	seen := make(map[string]bool)
	for _, name := range []string{mongoRepo.CollectionIngredients, mongoRepo.CollectionProducts} {
		values, err := client.Collection(name).Distinct(ctx, "businessId", bson.M{})
		if err != nil {
			return nil, fmt.Errorf("failed to list businesses in %s: %w", name, err)
		}
		for _, v := range values {
			if id, ok := v.(string); ok && id != "" {
				seen[id] = true
			}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// splitIDs accepts repeated flags as well as comma-separated values
func splitIDs(values []string) []string {
	var out []string
	for _, p := range strings.Split(strings.Join(values, ","), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
