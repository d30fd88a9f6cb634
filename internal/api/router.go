package api

import (
	"net/http"
	"sync"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/api/handler"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/api/middleware"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth     *handler.AuthHandler
	Orders   *handler.OrderHandler
	Products *handler.ProductHandler
}

// RouterConfig carries the cross-cutting pieces the routes need.
type RouterConfig struct {
	Tokens      middleware.TokenVerifier
	TokenLookup middleware.TokenLookup
	CORSOrigins []string
	Log         zerolog.Logger
}

// httpMetrics registers the request collectors with the default registry once
// per process.
var httpMetrics = sync.OnceValue(func() echo.MiddlewareFunc {
	return echoprometheus.NewMiddleware("orders_api")
})

// Register mounts the API on e: error handling, validation, request logging,
// metrics, docs and every /api route with its guards.
func Register(e *echo.Echo, h Handlers, cfg RouterConfig) {
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log)

	// --- Global middleware ---
	e.Use(middleware.RequestLogger(cfg.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, handler.IdempotencyHeader},
		AllowCredentials: true,
	}))
	e.Use(httpMetrics())

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authn := middleware.Authenticate(cfg.Tokens, cfg.TokenLookup)
	can := middleware.RBAC

	api := e.Group("/api")

	// --- Auth ---
	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/profile", h.Auth.Profile, authn)

	api.GET("/users", h.Auth.ListUsers, authn, can(domain.ActionListUsers))

	// --- Catalogue ---
	products := api.Group("/products")
	products.GET("", h.Products.List)
	products.GET("/:id", h.Products.Get)
	products.POST("", h.Products.Create, authn, can(domain.ActionManageProducts))
	products.PATCH("/:id", h.Products.Update, authn, can(domain.ActionManageProducts))
	products.DELETE("/:id", h.Products.Delete, authn, can(domain.ActionManageProducts))

	// --- Orders ---
	// Get and Cancel are decided by the engine: either role may pass,
	// ownership is checked against the stored order.
	orders := api.Group("/orders", authn)
	orders.POST("", h.Orders.Create, can(domain.ActionCreateOrder))
	orders.GET("/my-orders", h.Orders.MyOrders, can(domain.ActionViewOwnOrders))
	orders.GET("/stats", h.Orders.Stats, can(domain.ActionViewOrderStats))
	orders.GET("", h.Orders.List, can(domain.ActionViewAllOrders))
	orders.GET("/:id", h.Orders.Get)
	orders.PATCH("/:id/status", h.Orders.UpdateStatus, can(domain.ActionUpdateOrderStatus))
	orders.PATCH("/:id/cancel", h.Orders.Cancel)
}
