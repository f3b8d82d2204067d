package handler

import (
	"github.com/labstack/echo/v4"

	"circulapp/internal/domain/entity"
	"circulapp/internal/usecase"
	"circulapp/pkg/response"
)

type AuthHandler struct {
	authUseCase *usecase.AuthUseCase
}

func NewAuthHandler(authUseCase *usecase.AuthUseCase) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
	}
}

type registerRequest struct {
	Name     string               `json:"name" validate:"required,min=2,max=100"`
	Email    string               `json:"email" validate:"required,email"`
	Password string               `json:"password" validate:"required,min=6,max=72"`
	Phone    string               `json:"phone" validate:"omitempty,max=30"`
	UserType string               `json:"userType" validate:"omitempty,oneof=individual producer comuna business"`
	Location *entity.UserLocation `json:"location"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name     *string              `json:"name" validate:"omitempty,min=2,max=100"`
	Phone    *string              `json:"phone" validate:"omitempty,max=30"`
	Avatar   *string              `json:"avatar" validate:"omitempty,url"`
	Location *entity.UserLocation `json:"location"`
}

type authResponse struct {
	Message string       `json:"message"`
	User    *entity.User `json:"user"`
	Token   string       `json:"token"`
}

type profileResponse struct {
	User *entity.User `json:"user"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	input := usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		UserType: req.UserType,
	}
	if req.Location != nil {
		input.Location = *req.Location
	}

	result, err := h.authUseCase.Register(c.Request().Context(), input)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, authResponse{Message: "User registered", User: result.User, Token: result.Token})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.authUseCase.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, authResponse{Message: "Login successful", User: result.User, Token: result.Token})
}

func (h *AuthHandler) GetProfile(c echo.Context) error {
	userID := c.Get("uid").(string)

	user, err := h.authUseCase.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, profileResponse{User: user})
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	user, err := h.authUseCase.UpdateProfile(c.Request().Context(), userID, usecase.UpdateProfileInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Avatar:   req.Avatar,
		Location: req.Location,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, profileResponse{User: user})
}
