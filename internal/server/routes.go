package server

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Products *handler.ProductHandler
	Profiles *handler.ProfileHandler
	Orders   *handler.OrderHandler
}

func RegisterRoutes(e *echo.Echo, h Handlers, verifier middleware.TokenVerifier) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	h.Auth.RegisterRoutes(e)
	h.Products.RegisterRoutes(e)
	h.Profiles.RegisterRoutes(e, verifier)
	h.Orders.RegisterRoutes(e, verifier)
}
