package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cobrify/stock-service/internal/application"
	"github.com/cobrify/stock-service/pkg/metrics"
	"github.com/cobrify/stock-service/pkg/middleware"
)

// services are the use cases exposed over HTTP
type services struct {
	ingredients *application.IngredientService
	recipes     *application.RecipeService
	productions *application.ProductionService
	warehouses  *application.WarehouseService
}

// routerConfig carries what the router needs besides the services
type routerConfig struct {
	serviceName    string
	logger         *slog.Logger
	metrics        *metrics.Metrics
	requestTimeout time.Duration
	corsOrigins    []string
	ready          func(ctx context.Context) error
	status         func() gin.H
}

func newRouter(svc services, cfg routerConfig) *gin.Engine {
	router := gin.New()

	mwConfig := middleware.DefaultConfig(cfg.serviceName, cfg.logger)
	mwConfig.RequestTimeout = cfg.requestTimeout
	mwConfig.CORSOrigins = cfg.corsOrigins
	middleware.Setup(router, mwConfig)

	if cfg.metrics != nil {
		router.Use(middleware.MetricsMiddleware(cfg.metrics))
	}
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(cfg.serviceName)))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(cfg.serviceName))
	if cfg.ready != nil {
		router.GET("/ready", middleware.ReadinessCheck(cfg.serviceName, cfg.ready))
	}
	if cfg.metrics != nil {
		router.GET("/metrics", middleware.MetricsEndpoint(cfg.metrics))
	}
	if cfg.status != nil {
		router.GET("/status", func(c *gin.Context) { c.JSON(200, cfg.status()) })
	}

	api := router.Group("/api/v1")
	api.Use(middleware.BusinessContext())

	ingredients := api.Group("/ingredients")
	{
		ingredients.POST("", createIngredientHandler(svc.ingredients))
		ingredients.GET("", listIngredientsHandler(svc.ingredients))
		ingredients.GET("/low-stock", listLowStockHandler(svc.ingredients))
		ingredients.GET("/:id", getIngredientHandler(svc.ingredients))
		ingredients.PATCH("/:id", updateIngredientHandler(svc.ingredients))
		ingredients.DELETE("/:id", deleteIngredientHandler(svc.ingredients))
	}

	purchases := api.Group("/purchases")
	{
		purchases.POST("", registerPurchaseHandler(svc.ingredients))
		purchases.GET("", listPurchasesHandler(svc.ingredients))
		purchases.DELETE("/:id", deletePurchaseHandler(svc.ingredients))
	}

	stock := api.Group("/stock")
	{
		stock.POST("/adjust", adjustStockHandler(svc.ingredients))
		stock.POST("/sales", deductForSaleHandler(svc.ingredients))
		stock.GET("/movements", listMovementsHandler(svc.ingredients))
		stock.POST("/transfer", transferStockHandler(svc.warehouses))
		stock.GET("/by-branch", stockByBranchHandler(svc.warehouses))
		stock.GET("/by-branch/export", exportStockByBranchHandler(svc.warehouses))
	}

	recipes := api.Group("/recipes")
	{
		recipes.POST("", createRecipeHandler(svc.recipes))
		recipes.GET("", listRecipesHandler(svc.recipes))
		recipes.POST("/recalculate", recalculateRecipesHandler(svc.recipes))
		recipes.GET("/product/:productId", getRecipeByProductHandler(svc.recipes))
		recipes.GET("/product/:productId/check-stock", checkStockHandler(svc.recipes))
		recipes.GET("/product/:productId/profitability", profitabilityHandler(svc.recipes))
		recipes.GET("/:id", getRecipeHandler(svc.recipes))
		recipes.PATCH("/:id", updateRecipeHandler(svc.recipes))
		recipes.DELETE("/:id", deleteRecipeHandler(svc.recipes))
	}

	productions := api.Group("/productions")
	{
		productions.POST("", executeProductionHandler(svc.productions))
		productions.GET("", listProductionsHandler(svc.productions))
		productions.GET("/readiness", readinessHandler(svc.productions))
	}

	warehouses := api.Group("/warehouses")
	{
		warehouses.POST("", createWarehouseHandler(svc.warehouses))
		warehouses.GET("", listWarehousesHandler(svc.warehouses))
		warehouses.GET("/default", defaultWarehouseHandler(svc.warehouses))
		warehouses.POST("/initialize-stocks", initializeStocksHandler(svc.warehouses))
		warehouses.GET("/:id", getWarehouseHandler(svc.warehouses))
		warehouses.PATCH("/:id", updateWarehouseHandler(svc.warehouses))
		warehouses.DELETE("/:id", deleteWarehouseHandler(svc.warehouses))
	}

	return router
}
