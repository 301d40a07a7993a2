package middleware

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cobrify/stock-service/pkg/errors"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	r := gin.New()
	Setup(r, DefaultConfig("stock-service", slog.New(slog.DiscardHandler)))
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBusinessContext(t *testing.T) {
	r := newTestRouter()
	r.GET("/ping", BusinessContext(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"business": logging.BusinessIDFromContext(c.Request.Context()),
			"user":     GetUserID(c),
		})
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "MISSING_BUSINESS_CONTEXT", decodeError(t, w).Code)
	})

	t.Run("propagates ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(HeaderBusinessID, "biz-1")
		req.Header.Set(HeaderUserID, "user-7")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"business":"biz-1","user":"user-7"}`, w.Body.String())
		assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
		assert.NotEmpty(t, w.Header().Get(HeaderCorrelationID))
	})
}

func TestErrorHandler_MapsAttachedErrors(t *testing.T) {
	r := newTestRouter()
	r.GET("/missing", WrapHandler(func(c *gin.Context) error {
		return errors.ErrNotFoundWithID("ingredient", "ing-1")
	}))
	r.GET("/plain", WrapHandler(func(c *gin.Context) error {
		return stderrors.New("boom")
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, errors.CodeNotFound, resp.Code)
	assert.Equal(t, "ing-1", resp.Details["id"])
	assert.Equal(t, "/missing", resp.Path)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecovery(t *testing.T) {
	r := newTestRouter()
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.CodeInternalError, decodeError(t, w).Code)
}

type adjustBody struct {
	Name  string  `json:"name" binding:"not_blank"`
	Unit  string  `json:"unit" binding:"stock_unit"`
	Kind  string  `json:"itemType" binding:"item_kind"`
	Delta float64 `json:"quantity" binding:"gt=0"`
}

func TestBindAndValidate(t *testing.T) {
	r := newTestRouter()
	r.POST("/bind", func(c *gin.Context) {
		var body adjustBody
		if appErr := BindAndValidate(c, &body); appErr != nil {
			AbortWithAppError(c, appErr)
			return
		}
		c.Status(http.StatusNoContent)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"name":"Harina","unit":"KG","itemType":"ingredient","quantity":2}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = post(`{"name":"  ","unit":"lb","itemType":"tool","quantity":0}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields, ok := decodeError(t, w).Details["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "must be one of: kg, g, l, ml, unidad", fields["unit"])
	assert.Equal(t, "must be one of: ingredient, product", fields["itemType"])
	assert.Equal(t, "must be greater than 0", fields["quantity"])
}

func TestContentType(t *testing.T) {
	r := newTestRouter()
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestCORS(t *testing.T) {
	preflight := func(r *gin.Engine, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	newRouter := func(origins []string) *gin.Engine {
		cfg := DefaultConfig("stock-service", slog.New(slog.DiscardHandler))
		cfg.CORSOrigins = origins
		r := gin.New()
		Setup(r, cfg)
		r.POST("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	t.Run("any origin by default", func(t *testing.T) {
		w := preflight(newRouter(nil), "https://pos.example.com")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origin", func(t *testing.T) {
		w := preflight(newRouter([]string{"https://app.example.com"}), "https://app.example.com")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unlisted origin", func(t *testing.T) {
		w := preflight(newRouter([]string{"https://app.example.com"}), "https://evil.example.com")

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
