package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/liquorledger/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouter(t *testing.T) {
	t.Run("defaults to v1", func(t *testing.T) {
		r := NewRouter(gin.New())
		assert.Equal(t, "v1", r.apiVersion)
		assert.Empty(t, r.registrars)
	})

	t.Run("mounts groups under the version prefix", func(t *testing.T) {
		engine := gin.New()
		group := NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
		NewRouter(engine, WithAPIVersion("v2")).Register(group).Setup()

		w := serve(engine, "GET", "/api/v2/test/ping")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pong", w.Body.String())
		assert.Equal(t, http.StatusNotFound, serve(engine, "GET", "/api/v1/test/ping").Code)
	})
}

func TestDomainGroup(t *testing.T) {
	status := func(code int) gin.HandlerFunc {
		return func(c *gin.Context) { c.Status(code) }
	}

	engine := gin.New()
	var order []string
	g := NewDomainGroup("purchases", "/purchases").
		Use(func(c *gin.Context) {
			order = append(order, "middleware")
			c.Next()
		}).
		GET("", status(http.StatusOK)).
		POST("", status(http.StatusCreated)).
		PUT("/:id", status(http.StatusOK)).
		DELETE("/:id", status(http.StatusNoContent))
	g.RegisterRoutes(engine.Group("/api/v1"))

	assert.Equal(t, "purchases", g.Name())
	assert.Equal(t, "/purchases", g.Prefix())

	tests := []struct {
		method string
		path   string
		code   int
	}{
		{"GET", "/api/v1/purchases", http.StatusOK},
		{"POST", "/api/v1/purchases", http.StatusCreated},
		{"PUT", "/api/v1/purchases/1", http.StatusOK},
		{"DELETE", "/api/v1/purchases/1", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.code, serve(engine, tt.method, tt.path).Code)
		})
	}
	assert.Len(t, order, len(tests))
}

func TestRegisterDocs(t *testing.T) {
	t.Run("serves the generated spec", func(t *testing.T) {
		engine := gin.New()
		RegisterDocs(engine, middleware.SwaggerConfig{Enabled: true})

		w := serve(engine, "GET", "/swagger/doc.json")
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"basePath": "/api/v1"`)
		assert.Contains(t, body, `"/day-end-reports/preview"`)
		assert.Contains(t, body, `"operationId": "createPurchase"`)
		assert.Contains(t, body, `"settlement.DayEndReportResult"`)

		assert.Equal(t, http.StatusOK, serve(engine, "GET", "/swagger/index.html").Code)
	})

	t.Run("disabled docs are not found", func(t *testing.T) {
		engine := gin.New()
		RegisterDocs(engine, middleware.SwaggerConfig{Enabled: false})

		assert.Equal(t, http.StatusNotFound, serve(engine, "GET", "/swagger/doc.json").Code)
	})
}
