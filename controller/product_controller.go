package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bargain-backend/model"
	"bargain-backend/usecase"
)

type ProductGetter interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
}

type ProductController struct {
	usecase ProductGetter
	logger  *zap.Logger
}

func NewProductController(usecase ProductGetter, logger *zap.Logger) *ProductController {
	return &ProductController{usecase: usecase, logger: logger}
}

// GetProduct serves GET /api/products/:id. Viewing a product counts as a view.
func (c *ProductController) GetProduct(ctx *gin.Context) {
	id := ctx.Param("id")

	p, err := c.usecase.GetProduct(ctx.Request.Context(), id)
	if errors.Is(err, usecase.ErrProductNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		c.logger.Error("failed to load product", zap.String("product_id", id), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, p)
}
