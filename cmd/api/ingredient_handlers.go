package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cobrify/stock-service/internal/application"
	"github.com/cobrify/stock-service/pkg/middleware"
)

func createIngredientHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		var req struct {
			Name         string  `json:"name" binding:"required,not_blank"`
			Category     string  `json:"category"`
			PurchaseUnit string  `json:"purchaseUnit" binding:"required,stock_unit"`
			CurrentStock float64 `json:"currentStock" binding:"gte=0"`
			AverageCost  float64 `json:"averageCost" binding:"gte=0"`
			MinimumStock float64 `json:"minimumStock" binding:"gte=0"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}

		ingredient, err := service.CreateIngredient(c.Request.Context(), application.CreateIngredientCommand{
			BusinessID:   middleware.GetBusinessID(c),
			Name:         req.Name,
			Category:     req.Category,
			PurchaseUnit: req.PurchaseUnit,
			CurrentStock: req.CurrentStock,
			AverageCost:  req.AverageCost,
			MinimumStock: req.MinimumStock,
			UserID:       middleware.GetUserID(c),
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusCreated, ingredient)
		return nil
	})
}

func listIngredientsHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		ingredients, err := service.ListIngredients(c.Request.Context(), middleware.GetBusinessID(c))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, ingredients)
		return nil
	})
}

func listLowStockHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		ingredients, err := service.ListLowStock(c.Request.Context(), middleware.GetBusinessID(c))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, ingredients)
		return nil
	})
}

func getIngredientHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		ingredient, err := service.GetIngredient(c.Request.Context(), middleware.GetBusinessID(c), c.Param("id"))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, ingredient)
		return nil
	})
}

func updateIngredientHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		var req struct {
			Name         *string  `json:"name" binding:"omitempty,not_blank"`
			Category     *string  `json:"category"`
			MinimumStock *float64 `json:"minimumStock" binding:"omitempty,gte=0"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}

		ingredient, err := service.UpdateIngredient(c.Request.Context(), application.UpdateIngredientCommand{
			BusinessID:   middleware.GetBusinessID(c),
			IngredientID: c.Param("id"),
			Name:         req.Name,
			Category:     req.Category,
			MinimumStock: req.MinimumStock,
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, ingredient)
		return nil
	})
}

func deleteIngredientHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		if err := service.DeleteIngredient(c.Request.Context(), middleware.GetBusinessID(c), c.Param("id"), middleware.GetUserID(c)); err != nil {
			return err
		}
		c.Status(http.StatusNoContent)
		return nil
	})
}

func registerPurchaseHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		var req struct {
			IngredientID  string     `json:"ingredientId" binding:"required"`
			Quantity      float64    `json:"quantity" binding:"gt=0"`
			Unit          string     `json:"unit" binding:"stock_unit"`
			UnitPrice     float64    `json:"unitPrice" binding:"gte=0"`
			Supplier      string     `json:"supplier"`
			InvoiceNumber string     `json:"invoiceNumber"`
			WarehouseID   string     `json:"warehouseId"`
			PurchaseDate  *time.Time `json:"purchaseDate"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}

		result, err := service.RegisterPurchase(c.Request.Context(), application.RegisterPurchaseCommand{
			BusinessID:    middleware.GetBusinessID(c),
			IngredientID:  req.IngredientID,
			Quantity:      req.Quantity,
			Unit:          req.Unit,
			UnitPrice:     req.UnitPrice,
			Supplier:      req.Supplier,
			InvoiceNumber: req.InvoiceNumber,
			WarehouseID:   req.WarehouseID,
			PurchaseDate:  req.PurchaseDate,
			UserID:        middleware.GetUserID(c),
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusCreated, result)
		return nil
	})
}

func listPurchasesHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		purchases, err := service.ListPurchases(c.Request.Context(), middleware.GetBusinessID(c), c.Query("ingredientId"))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, purchases)
		return nil
	})
}

func deletePurchaseHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		err := service.DeletePurchase(c.Request.Context(), application.DeletePurchaseCommand{
			BusinessID: middleware.GetBusinessID(c),
			PurchaseID: c.Param("id"),
			UserID:     middleware.GetUserID(c),
		})
		if err != nil {
			return err
		}
		c.Status(http.StatusNoContent)
		return nil
	})
}

func adjustStockHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		var req struct {
			ItemKind    string  `json:"itemType" binding:"item_kind"`
			ItemID      string  `json:"itemId" binding:"required"`
			WarehouseID string  `json:"warehouseId"`
			NewStock    float64 `json:"newStock" binding:"gte=0"`
			Reason      string  `json:"reason"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}

		movement, err := service.AdjustStock(c.Request.Context(), application.AdjustStockCommand{
			BusinessID:  middleware.GetBusinessID(c),
			ItemKind:    req.ItemKind,
			ItemID:      req.ItemID,
			WarehouseID: req.WarehouseID,
			NewStock:    req.NewStock,
			Reason:      req.Reason,
			UserID:      middleware.GetUserID(c),
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, movement)
		return nil
	})
}

type saleLineRequest struct {
	Kind     string  `json:"ingredientType" binding:"item_kind"`
	ItemID   string  `json:"ingredientId" binding:"required"`
	ItemName string  `json:"ingredientName"`
	Quantity float64 `json:"quantity" binding:"gt=0"`
	Unit     string  `json:"unit" binding:"stock_unit"`
}

func deductForSaleHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		var req struct {
			SaleID      string            `json:"saleId"`
			ProductName string            `json:"productName" binding:"required"`
			WarehouseID string            `json:"warehouseId"`
			Lines       []saleLineRequest `json:"ingredients" binding:"required,min=1,dive"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}

		lines := make([]application.SaleLine, 0, len(req.Lines))
		for _, l := range req.Lines {
			lines = append(lines, application.SaleLine{
				Kind:     l.Kind,
				ItemID:   l.ItemID,
				ItemName: l.ItemName,
				Quantity: l.Quantity,
				Unit:     l.Unit,
			})
		}

		result, err := service.DeductForSale(c.Request.Context(), application.DeductForSaleCommand{
			BusinessID:  middleware.GetBusinessID(c),
			Lines:       lines,
			SaleID:      req.SaleID,
			ProductName: req.ProductName,
			WarehouseID: req.WarehouseID,
			UserID:      middleware.GetUserID(c),
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, result)
		return nil
	})
}

func listMovementsHandler(service *application.IngredientService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		from, err := queryTime(c, "from")
		if err != nil {
			return err
		}
		to, err := queryTime(c, "to")
		if err != nil {
			return err
		}
		limit, err := queryInt(c, "limit", 0)
		if err != nil {
			return err
		}

		movements, err := service.ListMovements(c.Request.Context(), application.ListMovementsQuery{
			BusinessID:  middleware.GetBusinessID(c),
			ItemID:      c.Query("itemId"),
			WarehouseID: c.Query("warehouseId"),
			Type:        c.Query("type"),
			From:        from,
			To:          to,
			Limit:       limit,
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, movements)
		return nil
	})
}
