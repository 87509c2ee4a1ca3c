package handler

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 自分のプロフィールだけ扱う
type ProfileHandler struct {
	uc *usecase.ProfileUsecase
}

func NewProfileHandler(uc *usecase.ProfileUsecase) *ProfileHandler {
	return &ProfileHandler{uc: uc}
}

func (h *ProfileHandler) RegisterRoutes(e *echo.Echo, verifier middleware.TokenVerifier) {
	g := e.Group("/profiles")
	g.Use(middleware.AuthJWT(verifier))

	g.POST("/me", h.create)
	g.GET("/me", h.get)
	g.PATCH("/me", h.update)
}

func (h *ProfileHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.CreateProfile(c.Request().Context(), userID, userID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

func (h *ProfileHandler) get(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	p, err := h.uc.GetProfile(c.Request().Context(), userID, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) update(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var patch model.ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.UpdateProfile(c.Request().Context(), userID, userID, patch); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
