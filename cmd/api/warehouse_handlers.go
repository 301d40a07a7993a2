package main

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cobrify/stock-service/internal/application"
	"github.com/cobrify/stock-service/internal/infrastructure/export"
	"github.com/cobrify/stock-service/pkg/middleware"
)

func createWarehouseHandler(service *application.WarehouseService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		var req struct {
			Name      string `json:"name" binding:"required,not_blank"`
			Location  string `json:"location"`
			BranchID  string `json:"branchId"`
			IsDefault bool   `json:"isDefault"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}

		warehouse, err := service.CreateWarehouse(c.Request.Context(), application.CreateWarehouseCommand{
			BusinessID: middleware.GetBusinessID(c),
			Name:       req.Name,
			Location:   req.Location,
			BranchID:   req.BranchID,
			IsDefault:  req.IsDefault,
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusCreated, warehouse)
		return nil
	})
}

func listWarehousesHandler(service *application.WarehouseService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		warehouses, err := service.ListWarehouses(c.Request.Context(), middleware.GetBusinessID(c))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, warehouses)
		return nil
	})
}

func defaultWarehouseHandler(service *application.WarehouseService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		warehouse, err := service.DefaultWarehouse(c.Request.Context(), middleware.GetBusinessID(c))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, warehouse)
		return nil
	})
}

func initializeStocksHandler(service *application.WarehouseService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		result, err := service.InitializeWarehouseStocks(c.Request.Context(), middleware.GetBusinessID(c), queryBool(c, "dryRun"))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, result)
		return nil
	})
}

func getWarehouseHandler(service *application.WarehouseService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		warehouse, err := service.GetWarehouse(c.Request.Context(), middleware.GetBusinessID(c), c.Param("id"))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, warehouse)
		return nil
	})
}

func updateWarehouseHandler(service *application.WarehouseService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		var req struct {
			Name      *string `json:"name" binding:"omitempty,not_blank"`
			Location  *string `json:"location"`
			BranchID  *string `json:"branchId"`
			IsDefault *bool   `json:"isDefault"`
			IsActive  *bool   `json:"isActive"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}

		warehouse, err := service.UpdateWarehouse(c.Request.Context(), application.UpdateWarehouseCommand{
			BusinessID:  middleware.GetBusinessID(c),
			WarehouseID: c.Param("id"),
			Name:        req.Name,
			Location:    req.Location,
			BranchID:    req.BranchID,
			IsDefault:   req.IsDefault,
			IsActive:    req.IsActive,
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, warehouse)
		return nil
	})
}

func deleteWarehouseHandler(service *application.WarehouseService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		if err := service.DeleteWarehouse(c.Request.Context(), middleware.GetBusinessID(c), c.Param("id")); err != nil {
			return err
		}
		c.Status(http.StatusNoContent)
		return nil
	})
}

func transferStockHandler(service *application.WarehouseService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		var req struct {
			ItemKind        string  `json:"itemType" binding:"item_kind"`
			ItemID          string  `json:"itemId" binding:"required"`
			FromWarehouseID string  `json:"fromWarehouseId" binding:"required"`
			ToWarehouseID   string  `json:"toWarehouseId" binding:"required"`
			Quantity        float64 `json:"quantity" binding:"gt=0"`
			Reason          string  `json:"reason"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}

		movement, err := service.TransferStock(c.Request.Context(), application.TransferStockCommand{
			BusinessID:      middleware.GetBusinessID(c),
			ItemKind:        req.ItemKind,
			ItemID:          req.ItemID,
			FromWarehouseID: req.FromWarehouseID,
			ToWarehouseID:   req.ToWarehouseID,
			Quantity:        req.Quantity,
			Reason:          req.Reason,
			UserID:          middleware.GetUserID(c),
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, movement)
		return nil
	})
}

func stockByBranchHandler(service *application.WarehouseService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		stocks, err := service.StockByBranch(c.Request.Context(), application.StockByBranchQuery{
			BusinessID: middleware.GetBusinessID(c),
			Branch:     c.Query("branch"),
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, stocks)
		return nil
	})
}

func exportStockByBranchHandler(service *application.WarehouseService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		branch := c.Query("branch")
		stocks, err := service.StockByBranch(c.Request.Context(), application.StockByBranchQuery{
			BusinessID: middleware.GetBusinessID(c),
			Branch:     branch,
		})
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := export.WriteStockByBranch(&buf, stocks); err != nil {
			return err
		}
		c.Header("Content-Disposition", "attachment; filename="+export.StockByBranchFilename(branch))
		c.Data(http.StatusOK, export.XLSXContentType, buf.Bytes())
		return nil
	})
}
