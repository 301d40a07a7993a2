package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cobrify/stock-service/internal/config"
	mongoRepo "github.com/cobrify/stock-service/internal/infrastructure/mongodb"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/mongodb"
)

// Stock consistency audit. Reports items whose current stock drifted from
// the sum of their warehouse breakdown, items with negative stock and
// breakdown entries that point at deleted warehouses.

// auditor holds the filters shared by every check
type auditor struct {
	business  string
	tolerance float64
	limit     int64
}

type driftInfo struct {
	ID           string  `bson:"_id"`
	BusinessID   string  `bson:"businessId"`
	Name         string  `bson:"name"`
	CurrentStock float64 `bson:"currentStock"`
	WarehouseSum float64 `bson:"warehouseSum"`
}

type orphanInfo struct {
	ID          string `bson:"_id"`
	BusinessID  string `bson:"businessId"`
	Name        string `bson:"name"`
	WarehouseID string `bson:"warehouseId"`
}

func main() {
	app := &cli.App{
		Name:  "monitor",
		Usage: "Audit stored stock levels for inconsistencies",
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
			&cli.StringFlag{
				Name:  "business",
				Usage: "Restrict the audit to one business",
			},
			&cli.Float64Flag{
				Name:  "tolerance",
				Usage: "Allowed difference between current stock and the warehouse sum",
				Value: 1e-6,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results to display per check",
				Value: 50,
			},
		},
		Action: audit,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func audit(c *cli.Context) error {
	cfg := config.Load()
	logger := logging.New(cfg.LoggingConfig()).WithComponent("monitor")

	mongoCfg := *cfg.MongoDB
	if uri := c.String("mongo-uri"); uri != "" {
		mongoCfg.URI = uri
	}
	if db := c.String("db"); db != "" {
		mongoCfg.Database = db
	}

	ctx, cancel := context.WithTimeout(c.Context, 5*time.Minute)
	defer cancel()

	client, err := mongodb.NewClient(ctx, &mongoCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer client.Close(context.Background())

	a := &auditor{
		business:  c.String("business"),
		tolerance: c.Float64("tolerance"),
		limit:     int64(c.Int("limit")),
	}

	var issues int
	for _, name := range []string{mongoRepo.CollectionIngredients, mongoRepo.CollectionProducts} {
		n, err := a.auditCollection(ctx, client.Database(), name)
		if err != nil {
			return fmt.Errorf("audit of %s failed: %w", name, err)
		}
		issues += n
	}

	if issues > 0 {
		logger.Warn("Stock audit found inconsistencies", "issues", issues)
		return cli.Exit("", 2)
	}
	logger.Info("Stock audit passed")
	return nil
}

func (a *auditor) baseMatch() bson.M {
	if a.business != "" {
		return bson.M{"businessId": a.business}
	}
	return bson.M{}
}

func (a *auditor) auditCollection(ctx context.Context, db *mongo.Database, name string) (int, error) {
	collection := db.Collection(name)

	total, err := collection.CountDocuments(ctx, a.baseMatch())
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	fmt.Printf("\n=== Collection: %s ===\n", name)
	fmt.Printf("Items: %d\n\n", total)

	drift, err := a.findDrift(ctx, collection)
	if err != nil {
		return 0, err
	}
	negative, err := a.findNegative(ctx, collection)
	if err != nil {
		return 0, err
	}
	orphans, err := a.findOrphans(ctx, collection)
	if err != nil {
		return 0, err
	}

	if len(drift) == 0 {
		fmt.Println("OK   current stock matches the warehouse breakdown")
	} else {
		fmt.Printf("FAIL %d items where current stock differs from the warehouse sum:\n", len(drift))
		fmt.Println("  ITEM                       BUSINESS                   NAME                      CURRENT      SUM")
		for _, d := range drift {
			fmt.Printf("  %-25s  %-25s  %-24s  %9.3f  %9.3f\n", d.ID, d.BusinessID, d.Name, d.CurrentStock, d.WarehouseSum)
		}
	}

	if len(negative) == 0 {
		fmt.Println("OK   no negative stock")
	} else {
		fmt.Printf("FAIL %d items with negative stock:\n", len(negative))
		for _, d := range negative {
			fmt.Printf("  %-25s  %-25s  %-24s  %9.3f\n", d.ID, d.BusinessID, d.Name, d.CurrentStock)
		}
	}

	if len(orphans) == 0 {
		fmt.Println("OK   every breakdown entry points at an existing warehouse")
	} else {
		fmt.Printf("FAIL %d breakdown entries reference missing warehouses:\n", len(orphans))
		for _, o := range orphans {
			fmt.Printf("  %-25s  %-25s  %-24s  warehouse %s\n", o.ID, o.BusinessID, o.Name, o.WarehouseID)
		}
	}

	return len(drift) + len(negative) + len(orphans), nil
}

func (a *auditor) findDrift(ctx context.Context, collection *mongo.Collection) ([]driftInfo, error) {
	match := a.baseMatch()
	match["warehouseStocks.0"] = bson.M{"$exists": true}

	pipeline := []bson.M{
		{"$match": match},
		{
			"$project": bson.M{
				"businessId":   1,
				"name":         1,
				"currentStock": 1,
				"warehouseSum": bson.M{"$sum": "$warehouseStocks.stock"},
			},
		},
		{
			"$match": bson.M{
				"$expr": bson.M{
					"$gt": []any{
						bson.M{"$abs": bson.M{"$subtract": []any{"$currentStock", "$warehouseSum"}}},
						a.tolerance,
					},
				},
			},
		},
		{"$limit": a.limit},
	}

	var out []driftInfo
	if err := aggregate(ctx, collection, pipeline, &out); err != nil {
		return nil, fmt.Errorf("failed to check warehouse sums: %w", err)
	}
	return out, nil
}

func (a *auditor) findNegative(ctx context.Context, collection *mongo.Collection) ([]driftInfo, error) {
	match := a.baseMatch()
	match["$or"] = []bson.M{
		{"currentStock": bson.M{"$lt": 0}},
		{"warehouseStocks.stock": bson.M{"$lt": 0}},
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$project": bson.M{"businessId": 1, "name": 1, "currentStock": 1}},
		{"$limit": a.limit},
	}

	var out []driftInfo
	if err := aggregate(ctx, collection, pipeline, &out); err != nil {
		return nil, fmt.Errorf("failed to check negative stock: %w", err)
	}
	return out, nil
}

func (a *auditor) findOrphans(ctx context.Context, collection *mongo.Collection) ([]orphanInfo, error) {
	pipeline := []bson.M{
		{"$match": a.baseMatch()},
		{"$unwind": "$warehouseStocks"},
		{
			"$lookup": bson.M{
				"from":         mongoRepo.CollectionWarehouses,
				"localField":   "warehouseStocks.warehouseId",
				"foreignField": "_id",
				"as":           "warehouse",
			},
		},
		{"$match": bson.M{"warehouse": bson.M{"$size": 0}}},
		{
			"$project": bson.M{
				"businessId":  1,
				"name":        1,
				"warehouseId": "$warehouseStocks.warehouseId",
			},
		},
		{"$limit": a.limit},
	}

	var out []orphanInfo
	if err := aggregate(ctx, collection, pipeline, &out); err != nil {
		return nil, fmt.Errorf("failed to check warehouse references: %w", err)
	}
	return out, nil
}

func aggregate(ctx context.Context, collection *mongo.Collection, pipeline []bson.M, out any) error {
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
