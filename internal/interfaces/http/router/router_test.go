package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouter_Defaults(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouter_Setup(t *testing.T) {
	engine := gin.New()
	var order []string

	r := NewRouter(engine, WithGroupMiddleware(func(c *gin.Context) {
		order = append(order, "api")
		c.Next()
	}))
	group := NewDomainGroup("test", "/test").
		Use(func(c *gin.Context) {
			order = append(order, "group")
			c.Next()
		}).
		GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		}).
		DELETE("/:id", func(c *gin.Context) {
			c.String(http.StatusOK, c.Param("id"))
		})
	r.Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/test/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, []string{"api", "group"}, order)

	w = serve(engine, http.MethodDelete, "/api/v1/test/42")
	assert.Equal(t, "42", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/test/ping").Code)
}

func TestDomainGroup_Accessors(t *testing.T) {
	g := NewDomainGroup("sales", "/sales")
	assert.Equal(t, "sales", g.Name())
	assert.Equal(t, "/sales", g.Prefix())
}
