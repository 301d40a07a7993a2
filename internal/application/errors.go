package application

import (
	"errors"

	"github.com/cobrify/stock-service/internal/domain"
	apperrors "github.com/cobrify/stock-service/pkg/errors"
)

var notFoundErrors = map[error]string{
	domain.ErrIngredientNotFound: "ingredient",
	domain.ErrProductNotFound:    "product",
	domain.ErrRecipeNotFound:     "recipe",
	domain.ErrPurchaseNotFound:   "purchase",
	domain.ErrWarehouseNotFound:  "warehouse",
}

var validationErrors = []error{
	domain.ErrInvalidIngredientName,
	domain.ErrInvalidProductName,
	domain.ErrInvalidWarehouseName,
	domain.ErrInvalidQuantity,
	domain.ErrNegativeStock,
	domain.ErrInvalidMoney,
	domain.ErrRecipeWithoutLines,
	domain.ErrInvalidRecipeLine,
	domain.ErrWarehouseRequired,
	domain.ErrSameWarehouse,
}

var conflictErrors = []error{
	domain.ErrRecipeAlreadyExists,
	domain.ErrWarehouseHasStock,
	domain.ErrConcurrentModification,
}

// toAppError maps domain failures to AppErrors. Anything unrecognised is
// returned unchanged and surfaces as an internal error.
func toAppError(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}

	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		return apperrors.ErrInsufficientStock("insufficient stock", insufficient.Missing).Wrap(err)
	}

	for target, resource := range notFoundErrors {
		if errors.Is(err, target) {
			return apperrors.ErrNotFound(resource).Wrap(err)
		}
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return apperrors.ErrValidation(target.Error()).Wrap(err)
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return apperrors.ErrConflict(target.Error()).Wrap(err)
		}
	}
	return err
}
