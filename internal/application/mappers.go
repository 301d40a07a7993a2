package application

import "github.com/cobrify/stock-service/internal/domain"

func toWarehouseStockDTOs(stocks []domain.WarehouseStock) []WarehouseStockDTO {
	dtos := make([]WarehouseStockDTO, 0, len(stocks))
	for _, ws := range stocks {
		dtos = append(dtos, WarehouseStockDTO{WarehouseID: ws.WarehouseID, Stock: ws.Stock})
	}
	return dtos
}

// ToIngredientDTO converts a domain Ingredient to IngredientDTO
func ToIngredientDTO(ing *domain.Ingredient) *IngredientDTO {
	if ing == nil {
		return nil
	}
	return &IngredientDTO{
		ID:                ing.ID,
		Name:              ing.Name,
		Category:          ing.Category,
		PurchaseUnit:      ing.PurchaseUnit,
		CurrentStock:      ing.CurrentStock,
		WarehouseStocks:   toWarehouseStockDTOs(ing.WarehouseStocks),
		AverageCost:       ing.AverageCost,
		LastPurchasePrice: ing.LastPurchasePrice,
		LastPurchaseDate:  ing.LastPurchaseDate,
		MinimumStock:      ing.MinimumStock,
		IsLowStock:        ing.IsLowStock(),
		Version:           ing.Version,
		CreatedAt:         ing.CreatedAt,
		UpdatedAt:         ing.UpdatedAt,
	}
}

// ToIngredientDTOs converts a slice of ingredients
func ToIngredientDTOs(ingredients []*domain.Ingredient) []IngredientDTO {
	dtos := make([]IngredientDTO, 0, len(ingredients))
	for _, ing := range ingredients {
		dtos = append(dtos, *ToIngredientDTO(ing))
	}
	return dtos
}

// ToProductStockDTO converts a domain Product to ProductStockDTO
func ToProductStockDTO(p *domain.Product) *ProductStockDTO {
	if p == nil {
		return nil
	}
	return &ProductStockDTO{
		ID:              p.ID,
		Name:            p.Name,
		Unit:            p.Unit,
		Price:           p.Price,
		Cost:            p.Cost,
		Stock:           p.CurrentStock,
		WarehouseStocks: toWarehouseStockDTOs(p.WarehouseStocks),
		Version:         p.Version,
		UpdatedAt:       p.UpdatedAt,
	}
}

// ToPurchaseDTO converts a domain Purchase to PurchaseDTO
func ToPurchaseDTO(p *domain.Purchase) *PurchaseDTO {
	if p == nil {
		return nil
	}
	return &PurchaseDTO{
		ID:             p.ID,
		IngredientID:   p.IngredientID,
		IngredientName: p.IngredientName,
		Quantity:       p.Quantity,
		Unit:           p.Unit,
		UnitPrice:      p.UnitPrice,
		TotalCost:      p.TotalCost,
		Supplier:       p.Supplier,
		InvoiceNumber:  p.InvoiceNumber,
		WarehouseID:    p.WarehouseID,
		PurchaseDate:   p.PurchaseDate,
		CreatedAt:      p.CreatedAt,
	}
}

// ToPurchaseDTOs converts a slice of purchases
func ToPurchaseDTOs(purchases []*domain.Purchase) []PurchaseDTO {
	dtos := make([]PurchaseDTO, 0, len(purchases))
	for _, p := range purchases {
		dtos = append(dtos, *ToPurchaseDTO(p))
	}
	return dtos
}

// ToMovementDTOs converts stock movements
func ToMovementDTOs(movements []*domain.StockMovement) []MovementDTO {
	dtos := make([]MovementDTO, 0, len(movements))
	for _, m := range movements {
		dtos = append(dtos, MovementDTO{
			ID:                  m.ID,
			ItemID:              m.EntityID,
			ItemKind:            string(m.EntityKind),
			ItemName:            m.EntityName,
			Type:                string(m.Type),
			Quantity:            m.Quantity,
			Unit:                m.Unit,
			WarehouseID:         m.WarehouseID,
			FromWarehouseID:     m.FromWarehouseID,
			ToWarehouseID:       m.ToWarehouseID,
			Reason:              m.Reason,
			BeforeStock:         m.BeforeStock,
			AfterStock:          m.AfterStock,
			RelatedSaleID:       m.RelatedSaleID,
			RelatedPurchaseID:   m.RelatedPurchaseID,
			RelatedProductionID: m.RelatedProductionID,
			UserID:              m.UserID,
			CreatedAt:           m.CreatedAt,
		})
	}
	return dtos
}

// ToRecipeDTO converts a domain Recipe to RecipeDTO
func ToRecipeDTO(r *domain.Recipe) *RecipeDTO {
	if r == nil {
		return nil
	}
	lines := make([]RecipeLineDTO, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, RecipeLineDTO{
			Kind:     string(l.ItemKind()),
			ItemID:   l.ItemID,
			ItemName: l.ItemName,
			Quantity: l.Quantity,
			Unit:     l.Unit,
			Cost:     l.Cost,
		})
	}
	return &RecipeDTO{
		ID:          r.ID,
		ProductID:   r.ProductID,
		ProductName: r.ProductName,
		Lines:       lines,
		Portions:    r.Portions,
		TotalCost:   r.TotalCost,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ToRecipeDTOs converts a slice of recipes
func ToRecipeDTOs(recipes []*domain.Recipe) []RecipeDTO {
	dtos := make([]RecipeDTO, 0, len(recipes))
	for _, r := range recipes {
		dtos = append(dtos, *ToRecipeDTO(r))
	}
	return dtos
}

// ToProductionDTO converts a domain Production to ProductionDTO
func ToProductionDTO(p *domain.Production) *ProductionDTO {
	if p == nil {
		return nil
	}
	deducted := make([]DeductedItemDTO, 0, len(p.IngredientsDeducted))
	for _, d := range p.IngredientsDeducted {
		deducted = append(deducted, DeductedItemDTO{
			Kind:     string(d.Kind),
			ItemID:   d.ItemID,
			ItemName: d.ItemName,
			Quantity: d.Quantity,
			Unit:     d.Unit,
		})
	}
	return &ProductionDTO{
		ID:                  p.ID,
		ProductID:           p.ProductID,
		ProductName:         p.ProductName,
		Quantity:            p.Quantity,
		Mode:                string(p.Mode),
		RecipeID:            p.RecipeID,
		WarehouseID:         p.WarehouseID,
		IngredientsDeducted: deducted,
		TotalCost:           p.TotalCost,
		Notes:               p.Notes,
		UserID:              p.UserID,
		CreatedAt:           p.CreatedAt,
	}
}

// ToProductionDTOs converts a slice of productions
func ToProductionDTOs(productions []*domain.Production) []ProductionDTO {
	dtos := make([]ProductionDTO, 0, len(productions))
	for _, p := range productions {
		dtos = append(dtos, *ToProductionDTO(p))
	}
	return dtos
}

// ToWarehouseDTO converts a domain Warehouse to WarehouseDTO
func ToWarehouseDTO(w *domain.Warehouse) *WarehouseDTO {
	if w == nil {
		return nil
	}
	return &WarehouseDTO{
		ID:        w.ID,
		Name:      w.Name,
		Location:  w.Location,
		BranchID:  w.BranchID,
		IsDefault: w.IsDefault,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// ToWarehouseDTOs converts a slice of warehouses
func ToWarehouseDTOs(warehouses []*domain.Warehouse) []WarehouseDTO {
	dtos := make([]WarehouseDTO, 0, len(warehouses))
	for _, w := range warehouses {
		dtos = append(dtos, *ToWarehouseDTO(w))
	}
	return dtos
}

// toRecipeLines converts client input into domain lines. Untagged lines
// refer to ingredients.
func toRecipeLines(inputs []RecipeLineInput) []domain.RecipeLine {
	lines := make([]domain.RecipeLine, 0, len(inputs))
	for _, in := range inputs {
		kind := domain.ItemKind(in.Kind)
		if kind == "" {
			kind = domain.ItemIngredient
		}
		lines = append(lines, domain.RecipeLine{
			Kind:     kind,
			ItemID:   in.ItemID,
			ItemName: in.ItemName,
			Quantity: in.Quantity,
			Unit:     domain.NormalizeUnit(in.Unit),
		})
	}
	return lines
}
