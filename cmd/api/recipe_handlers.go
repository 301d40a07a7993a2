package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cobrify/stock-service/internal/application"
	apperrors "github.com/cobrify/stock-service/pkg/errors"
	"github.com/cobrify/stock-service/pkg/middleware"
)

type recipeLineRequest struct {
	Kind     string  `json:"ingredientType" binding:"item_kind"`
	ItemID   string  `json:"ingredientId" binding:"required"`
	ItemName string  `json:"ingredientName"`
	Quantity float64 `json:"quantity" binding:"gt=0"`
	Unit     string  `json:"unit" binding:"stock_unit"`
}

func toRecipeLines(in []recipeLineRequest) []application.RecipeLineInput {
	if in == nil {
		return nil
	}
	lines := make([]application.RecipeLineInput, 0, len(in))
	for _, l := range in {
		lines = append(lines, application.RecipeLineInput(l))
	}
	return lines
}

func createRecipeHandler(service *application.RecipeService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		var req struct {
			ProductID   string              `json:"productId" binding:"required"`
			ProductName string              `json:"productName"`
			Lines       []recipeLineRequest `json:"ingredients" binding:"required,min=1,dive"`
			Portions    int                 `json:"portions" binding:"gte=0"`
			Notes       string              `json:"notes"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}

		recipe, err := service.CreateRecipe(c.Request.Context(), application.CreateRecipeCommand{
			BusinessID:  middleware.GetBusinessID(c),
			ProductID:   req.ProductID,
			ProductName: req.ProductName,
			Lines:       toRecipeLines(req.Lines),
			Portions:    req.Portions,
			Notes:       req.Notes,
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusCreated, recipe)
		return nil
	})
}

func listRecipesHandler(service *application.RecipeService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		recipes, err := service.ListRecipes(c.Request.Context(), middleware.GetBusinessID(c))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, recipes)
		return nil
	})
}

func recalculateRecipesHandler(service *application.RecipeService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		result, err := service.RecalculateAll(c.Request.Context(), middleware.GetBusinessID(c))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, result)
		return nil
	})
}

func getRecipeByProductHandler(service *application.RecipeService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		recipe, err := service.GetRecipeByProduct(c.Request.Context(), middleware.GetBusinessID(c), c.Param("productId"))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, recipe)
		return nil
	})
}

func checkStockHandler(service *application.RecipeService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		quantity, err := queryFloat(c, "quantity", 1)
		if err != nil {
			return err
		}
		if quantity <= 0 {
			return apperrors.ErrValidation("quantity must be positive").WithDetail("quantity", quantity)
		}

		result, err := service.CheckStock(c.Request.Context(), application.CheckStockQuery{
			BusinessID: middleware.GetBusinessID(c),
			ProductID:  c.Param("productId"),
			Quantity:   quantity,
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, result)
		return nil
	})
}

func profitabilityHandler(service *application.RecipeService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		price, err := queryFloat(c, "salePrice", 0)
		if err != nil {
			return err
		}

		result, err := service.Profitability(c.Request.Context(), application.ProfitabilityQuery{
			BusinessID: middleware.GetBusinessID(c),
			ProductID:  c.Param("productId"),
			SalePrice:  price,
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, result)
		return nil
	})
}

func getRecipeHandler(service *application.RecipeService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		recipe, err := service.GetRecipe(c.Request.Context(), middleware.GetBusinessID(c), c.Param("id"))
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, recipe)
		return nil
	})
}

func updateRecipeHandler(service *application.RecipeService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		var req struct {
			ProductName *string             `json:"productName"`
			Lines       []recipeLineRequest `json:"ingredients" binding:"omitempty,min=1,dive"`
			Portions    *int                `json:"portions" binding:"omitempty,gte=0"`
			Notes       *string             `json:"notes"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}

		recipe, err := service.UpdateRecipe(c.Request.Context(), application.UpdateRecipeCommand{
			BusinessID:  middleware.GetBusinessID(c),
			RecipeID:    c.Param("id"),
			ProductName: req.ProductName,
			Lines:       toRecipeLines(req.Lines),
			Portions:    req.Portions,
			Notes:       req.Notes,
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, recipe)
		return nil
	})
}

func deleteRecipeHandler(service *application.RecipeService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		if err := service.DeleteRecipe(c.Request.Context(), middleware.GetBusinessID(c), c.Param("id")); err != nil {
			return err
		}
		c.Status(http.StatusNoContent)
		return nil
	})
}

func executeProductionHandler(service *application.ProductionService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		var req struct {
			ProductID   string  `json:"productId" binding:"required"`
			Quantity    float64 `json:"quantity" binding:"gt=0"`
			Mode        string  `json:"mode" binding:"production_mode"`
			WarehouseID string  `json:"warehouseId"`
			Notes       string  `json:"notes"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}

		cmd := application.ExecuteProductionCommand{
			BusinessID:  middleware.GetBusinessID(c),
			ProductID:   req.ProductID,
			Quantity:    req.Quantity,
			WarehouseID: req.WarehouseID,
			Notes:       req.Notes,
			UserID:      middleware.GetUserID(c),
		}

		var (
			production *application.ProductionDTO
			err        error
		)
		if req.Mode == "manual" {
			production, err = service.ExecuteManual(c.Request.Context(), cmd)
		} else {
			production, err = service.ExecuteRecipe(c.Request.Context(), cmd)
		}
		if err != nil {
			return err
		}
		c.JSON(http.StatusCreated, production)
		return nil
	})
}

func listProductionsHandler(service *application.ProductionService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		from, err := queryTime(c, "dateFrom")
		if err != nil {
			return err
		}
		to, err := queryTime(c, "dateTo")
		if err != nil {
			return err
		}

		productions, err := service.ListProductions(c.Request.Context(), application.ListProductionsQuery{
			BusinessID: middleware.GetBusinessID(c),
			Mode:       c.Query("mode"),
			Search:     c.Query("search"),
			DateFrom:   from,
			DateTo:     to,
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, productions)
		return nil
	})
}

func readinessHandler(service *application.ProductionService) gin.HandlerFunc {
	return middleware.WrapHandler(func(c *gin.Context) error {
		productID := c.Query("productId")
		if productID == "" {
			return apperrors.ErrValidation("productId is required")
		}
		quantity, err := queryFloat(c, "quantity", 1)
		if err != nil {
			return err
		}
		if quantity <= 0 {
			return apperrors.ErrValidation("quantity must be positive").WithDetail("quantity", quantity)
		}

		result, err := service.CheckReadiness(c.Request.Context(), middleware.GetBusinessID(c), productID, quantity)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, result)
		return nil
	})
}
