package rest

import (
	"ProductOrderSaga/internal/controller/rest/handlers"

	"github.com/gin-gonic/gin"
)

// OrderRouter serves the order service's REST surface.
type OrderRouter struct {
	order handlers.OrderHandler
}

func (r *OrderRouter) SetUp(engine *gin.Engine) {
	engine.POST("/orders", r.order.Create)
	engine.GET("/orders", r.order.Filter)
	engine.GET("/orders/product/:id", r.order.GetByProduct)
}

func NewOrderRouter(order handlers.OrderHandler) *OrderRouter {
	return &OrderRouter{order: order}
}
