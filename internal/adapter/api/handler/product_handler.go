package handler

import (
	"github.com/labstack/echo/v4"

	"circulapp/internal/domain/entity"
	"circulapp/internal/usecase"
	"circulapp/pkg/response"
	"circulapp/pkg/utils"
)

type ProductHandler struct {
	productUseCase *usecase.ProductUseCase
}

func NewProductHandler(productUseCase *usecase.ProductUseCase) *ProductHandler {
	return &ProductHandler{
		productUseCase: productUseCase,
	}
}

type createProductRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=120"`
	Description string   `json:"description" validate:"max=2000"`
	Category    string   `json:"category" validate:"required,max=50"`
	Condition   string   `json:"condition" validate:"required,oneof=new like_new good fair"`
	Images      []string `json:"images" validate:"max=10,dive,url"`
}

type updateProductRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=3,max=120"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Category    *string  `json:"category" validate:"omitempty,max=50"`
	Condition   *string  `json:"condition" validate:"omitempty,oneof=new like_new good fair"`
	Images      []string `json:"images" validate:"omitempty,max=10,dive,url"`
	Status      *string  `json:"status" validate:"omitempty,oneof=available reserved exchanged"`
}

type productResponse struct {
	Product *entity.Product `json:"product"`
}

type productListResponse struct {
	Products   []*entity.Product   `json:"products"`
	Pagination response.Pagination `json:"pagination"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	product, err := h.productUseCase.CreateProduct(c.Request().Context(), userID, usecase.CreateProductInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		Images:      req.Images,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, productResponse{Product: product})
}

func (h *ProductHandler) ListProducts(c echo.Context) error {
	params, err := utils.GetPaginationParams(c, defaultChatPageSize, maxChatPageSize)
	if err != nil {
		return response.Error(c, err)
	}

	products, total, err := h.productUseCase.ListProducts(c.Request().Context(), usecase.ListProductsInput{
		Owner:    c.QueryParam("owner"),
		Category: c.QueryParam("category"),
		Status:   c.QueryParam("status"),
		Search:   c.QueryParam("search"),
		Offset:   params.Offset,
		Limit:    params.Limit,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, productListResponse{
		Products:   products,
		Pagination: response.NewPagination(params.Page, params.Limit, total),
	})
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	product, err := h.productUseCase.GetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, productResponse{Product: product})
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	var req updateProductRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	product, err := h.productUseCase.UpdateProduct(c.Request().Context(), userID, c.Param("id"), usecase.UpdateProductInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		Images:      req.Images,
		Status:      req.Status,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, productResponse{Product: product})
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.productUseCase.DeleteProduct(c.Request().Context(), userID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.Message(c, "Product deleted")
}
