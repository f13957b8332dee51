package handlers

import (
	"context"
	"net/http"

	"ProductOrderSaga/internal/domain/product"

	"github.com/gin-gonic/gin"
)

type ProductService interface {
	GetByID(ctx context.Context, id int64) (product.Product, error)
	Create(ctx context.Context, req product.CreateProductRequest) (product.Product, error)
}

type ProductHandler struct {
	service ProductService
}

func NewProductHandler(s ProductService) ProductHandler {
	return ProductHandler{service: s}
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req product.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	p, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}
