package main

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/cobrify/stock-service/pkg/errors"
)

// queryTime accepts a bare date or an RFC 3339 timestamp
func queryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.ErrValidation("invalid date").WithDetail(key, raw)
}

func queryFloat(c *gin.Context, key string, fallback float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.ErrValidation("invalid number").WithDetail(key, raw)
	}
	return v, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ErrValidation("invalid number").WithDetail(key, raw)
	}
	return v, nil
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
