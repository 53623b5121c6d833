package router

import (
	"net/http"

	"github.com/RoyceAzure/lab/assia/internal/api"
	"github.com/RoyceAzure/lab/assia/internal/api/handler"
	m "github.com/RoyceAzure/lab/assia/internal/api/middleware"
	"github.com/RoyceAzure/lab/assia/internal/api/response"
	"github.com/RoyceAzure/lab/assia/internal/constants"
	"github.com/RoyceAzure/lab/assia/internal/infra/metrics"
	"github.com/RoyceAzure/lab/assia/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func SetupRouter(server *api.Server, adminService service.IAdminService, mt *metrics.Metrics, logger *zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// 全局中間件
	r.Use(m.RequestIdMiddleware)
	r.Use(middleware.RealIP)
	r.Use(m.LoggerMiddleware(logger, mt))
	r.Use(m.RecoverMiddleware(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.SuccessJSON(w, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", server.MetricsHandler)

	// API 路由
	r.Route(constants.ApiVersionPrefix, func(r chi.Router) {
		r.Get("/store", server.ChatHandler.Store)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", server.ChatHandler.CreateSession)
			r.Route("/{sid}", func(r chi.Router) {
				r.Delete("/", server.ChatHandler.CloseSession)
				r.Get("/messages", server.ChatHandler.History)
				//會呼叫助理的路由，依來源 IP 與 session 限流
				r.Group(func(r chi.Router) {
					r.Use(m.RateLimitMiddleware(server.ClientRateLimiter, m.ClientKey))
					r.Use(m.RateLimitMiddleware(server.RateLimiter, m.URLParamKey(handler.SessionIDParam)))
					r.Post("/messages", server.ChatHandler.SendMessage)
					r.Post("/quick-options/{optionID}", server.ChatHandler.SelectQuickOption)
				})

				//購物車
				r.Get("/cart", server.StorefrontHandler.Cart)
				r.Post("/cart/items", server.StorefrontHandler.AddCartItem)
				r.Delete("/cart/items/{identity}", server.StorefrontHandler.RemoveCartItem)

				//結帳
				r.Route("/checkout", func(r chi.Router) {
					r.Get("/", server.StorefrontHandler.CheckoutState)
					r.Post("/open", server.StorefrontHandler.OpenCheckout)
					r.Post("/close", server.StorefrontHandler.CloseCheckout)
					r.Post("/back", server.StorefrontHandler.BackCheckout)
					r.Put("/delivery", server.StorefrontHandler.SetDelivery)
					r.Post("/delivery/advance", server.StorefrontHandler.AdvanceCheckout)
					r.Patch("/payment", server.StorefrontHandler.SetPaymentField)
					r.Post("/submit", server.StorefrontHandler.SubmitCheckout)
				})
			})
		})

		//後台
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", server.AdminHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(m.AdminAuthMiddleware(adminService))
				r.Post("/logout", server.AdminHandler.Logout)
				r.Get("/orders", server.AdminHandler.Orders)
				r.Get("/orders/{id}", server.AdminHandler.Order)
				r.Patch("/orders/{id}", server.AdminHandler.UpdateOrder)
				r.Delete("/orders/{id}", server.AdminHandler.DeleteOrder)
				r.Get("/stats", server.AdminHandler.Stats)
			})
		})
	})

	return r
}

// PrintRoutes 啟動時列出所有路由
func PrintRoutes(r chi.Routes, logger *zerolog.Logger) error {
	return chi.Walk(r, func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		logger.Debug().Str("method", method).Str("route", route).Msg("route registered")
		return nil
	})
}
