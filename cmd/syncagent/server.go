package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cobrify/stock-service/internal/offline"
	apperrors "github.com/cobrify/stock-service/pkg/errors"
	"github.com/cobrify/stock-service/pkg/metrics"
	"github.com/cobrify/stock-service/pkg/middleware"
)

const serviceName = "stock-syncagent"

// agent is the local HTTP surface the point of sale talks to
type agent struct {
	queue        *offline.Queue
	coordinator  *offline.Coordinator
	connectivity offline.Connectivity
	// kick starts a background sync pass
	kick    func()
	breaker func() string
}

func newAgentRouter(a *agent, logger *slog.Logger, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger))
	if m != nil {
		router.Use(middleware.MetricsMiddleware(m))
		router.GET("/metrics", middleware.MetricsEndpoint(m))
	}
	router.NoRoute(middleware.NoRoute())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/status", middleware.WrapHandler(a.status))

	sales := router.Group("/sales")
	{
		sales.POST("", middleware.WrapHandler(a.enqueue))
		sales.GET("", middleware.WrapHandler(a.list))
		sales.DELETE("/completed", middleware.WrapHandler(a.clearCompleted))
		sales.POST("/:id/retry", middleware.WrapHandler(a.retry))
		sales.DELETE("/:id", middleware.WrapHandler(a.remove))
	}
	router.POST("/sync", middleware.WrapHandler(a.sync))
	router.GET("/events", a.events(logger))

	return router
}

func (a *agent) status(c *gin.Context) error {
	pending, err := a.queue.Count(c.Request.Context())
	if err != nil {
		return err
	}
	body := gin.H{
		"online":  a.connectivity.Online(),
		"syncing": a.coordinator.IsSyncing(),
		"pending": pending,
	}
	if a.breaker != nil {
		body["invoiceBreaker"] = a.breaker()
	}
	c.JSON(http.StatusOK, body)
	return nil
}

func (a *agent) enqueue(c *gin.Context) error {
	var req struct {
		UserID      string          `json:"userId" binding:"required,not_blank"`
		InvoiceData json.RawMessage `json:"invoiceData" binding:"required"`
	}
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	id, err := a.queue.Enqueue(c.Request.Context(), req.UserID, req.InvoiceData)
	if err != nil {
		return apperrors.ErrValidation(err.Error())
	}
	if a.kick != nil && a.connectivity.Online() {
		a.kick()
	}
	c.JSON(http.StatusCreated, gin.H{"offlineId": id, "status": offline.StatusPending})
	return nil
}

func (a *agent) list(c *gin.Context) error {
	var (
		sales []*offline.Sale
		err   error
	)
	if c.Query("status") == string(offline.StatusPending) {
		sales, err = a.queue.ListPending(c.Request.Context())
	} else {
		sales, err = a.queue.ListAll(c.Request.Context())
	}
	if err != nil {
		return err
	}
	if sales == nil {
		sales = []*offline.Sale{}
	}
	c.JSON(http.StatusOK, sales)
	return nil
}

// retry puts a sale that exhausted its attempts back in the queue
func (a *agent) retry(c *gin.Context) error {
	id, err := saleID(c)
	if err != nil {
		return err
	}
	pending := offline.StatusPending
	attempts := 0
	if err := a.queue.Update(c.Request.Context(), id, offline.Patch{Status: &pending, Attempts: &attempts}); err != nil {
		return saleError(err, id)
	}
	sale, err := a.queue.Get(c.Request.Context(), id)
	if err != nil {
		return saleError(err, id)
	}
	c.JSON(http.StatusOK, sale)
	return nil
}

func (a *agent) remove(c *gin.Context) error {
	id, err := saleID(c)
	if err != nil {
		return err
	}
	if err := a.queue.Remove(c.Request.Context(), id); err != nil {
		return saleError(err, id)
	}
	c.Status(http.StatusNoContent)
	return nil
}

func (a *agent) clearCompleted(c *gin.Context) error {
	n, err := a.queue.ClearCompleted(c.Request.Context())
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
	return nil
}

// sync runs a pass inline and reports its outcome
func (a *agent) sync(c *gin.Context) error {
	result, err := a.coordinator.ProcessPending(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, result)
	return nil
}

func saleID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apperrors.ErrValidation("invalid offline sale id").WithDetail("id", c.Param("id"))
	}
	return id, nil
}

func saleError(err error, id int64) error {
	if errors.Is(err, offline.ErrNotFound) {
		return apperrors.ErrNotFoundWithID("offline sale", strconv.FormatInt(id, 10))
	}
	return err
}
