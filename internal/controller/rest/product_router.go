package rest

import (
	"ProductOrderSaga/internal/controller/rest/handlers"

	"github.com/gin-gonic/gin"
)

// ProductRouter serves the product service's REST surface.
type ProductRouter struct {
	product handlers.ProductHandler
}

func (r *ProductRouter) SetUp(engine *gin.Engine) {
	engine.POST("/products", r.product.Create)
	engine.GET("/products/:id", r.product.Get)
}

func NewProductRouter(product handlers.ProductHandler) *ProductRouter {
	return &ProductRouter{product: product}
}
