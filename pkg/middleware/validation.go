package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	apperrors "github.com/cobrify/stock-service/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var stockUnits = map[string]bool{
	"kg": true, "g": true, "l": true, "ml": true, "unidad": true,
}

var itemKinds = map[string]bool{
	"ingredient": true, "product": true,
}

var productionModes = map[string]bool{
	"recipe": true, "manual": true,
}

func register(v *validator.Validate) {
	_ = v.RegisterValidation("stock_unit", validateStockUnit)
	_ = v.RegisterValidation("item_kind", setValidator(itemKinds))
	_ = v.RegisterValidation("production_mode", setValidator(productionModes))
	_ = v.RegisterValidation("not_blank", validateNotBlank)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// InitValidator registers the custom validators on a standalone validator
// and on gin's binding validator.
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		register(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v)
		}
	})
	return validate
}

// Units are matched case-insensitively, like the rest of the stock code
func validateStockUnit(fl validator.FieldLevel) bool {
	value := strings.ToLower(strings.TrimSpace(fl.Field().String()))
	return value == "" || stockUnits[value]
}

func setValidator(allowed map[string]bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || allowed[value]
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ValidationErrorFormatter formats validation errors into a map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}
	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "not_blank":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "stock_unit":
		return "must be one of: kg, g, l, ml, unidad"
	case "item_kind":
		return "must be one of: ingredient, product"
	case "production_mode":
		return "must be one of: recipe, manual"
	case "oneof":
		return "must be one of: " + e.Param()
	case "dive":
		return "contains an invalid entry"
	default:
		return "is invalid"
	}
}

// BindAndValidate binds the JSON body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *apperrors.AppError {
	InitValidator()
	if err := c.ShouldBindJSON(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return apperrors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return apperrors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// ValidateStruct validates a struct using the validator
func ValidateStruct(obj interface{}) *apperrors.AppError {
	if err := InitValidator().Struct(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return apperrors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return apperrors.ErrBadRequest("validation failed: " + err.Error())
	}
	return nil
}

// SanitizeString removes null bytes and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// InputSanitizer middleware sanitizes query parameters
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for key, values := range query {
			for i, v := range values {
				values[i] = SanitizeString(v)
			}
			query[key] = values
		}
		c.Request.URL.RawQuery = query.Encode()

		c.Next()
	}
}

// ContentType middleware requires JSON bodies on POST/PUT/PATCH
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "POST", "PUT", "PATCH":
			contentType := c.GetHeader("Content-Type")
			if !strings.HasPrefix(contentType, "application/json") && c.Request.ContentLength > 0 {
				AbortWithAppError(c, apperrors.NewAppError(
					"INVALID_CONTENT_TYPE",
					"Content-Type must be application/json",
					415,
				))
				return
			}
		}
		c.Next()
	}
}
