package router

import (
	"github.com/labstack/echo/v4"

	"circulapp/internal/adapter/api/handler"
	"circulapp/internal/adapter/api/middleware"
)

func SetupProductRouter(api *echo.Group, productHandler *handler.ProductHandler, authMiddleware *middleware.AuthMiddleware) {
	products := api.Group("/products")
	products.Use(authMiddleware.Authenticate)

	products.GET("", productHandler.ListProducts)
	products.POST("", productHandler.CreateProduct)
	products.GET("/:id", productHandler.GetProduct)
	products.PUT("/:id", productHandler.UpdateProduct)
	products.DELETE("/:id", productHandler.DeleteProduct)
}
