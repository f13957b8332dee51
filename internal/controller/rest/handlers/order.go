package handlers

import (
	"context"
	"net/http"

	"ProductOrderSaga/internal/domain/order"

	"github.com/gin-gonic/gin"
)

type OrderService interface {
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (order.Order, error)
	GetOrdersByProduct(ctx context.Context, productID int64) ([]order.Order, error)
}

type OrderHandler struct {
	service OrderService
}

func NewOrderHandler(s OrderService) OrderHandler {
	return OrderHandler{service: s}
}

// Create answers 201 once the order is stored as waiting; the stock
// reservation happens asynchronously.
func (h *OrderHandler) Create(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	o, err := h.service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) GetByProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.listByProduct(c, id)
}

type ordersQuery struct {
	ProductID int64 `form:"product_id" binding:"required,min=1"`
}

func (h *OrderHandler) Filter(c *gin.Context) {
	var q ordersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	h.listByProduct(c, q.ProductID)
}

func (h *OrderHandler) listByProduct(c *gin.Context, productID int64) {
	orders, err := h.service.GetOrdersByProduct(c.Request.Context(), productID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}
