package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"ProductOrderSaga/internal/domain/order"
	"ProductOrderSaga/internal/domain/product"

	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, product.ErrInvalidProduct),
		errors.Is(err, product.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, product.ErrNotFound), order.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, order.ErrProductUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "product service unavailable"})
	default:
		slog.ErrorContext(c.Request.Context(), "Request failed",
			"path", c.FullPath(),
			slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid " + param})
		return 0, false
	}
	return id, true
}
