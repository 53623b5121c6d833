package api

import (
	"net/http"

	"github.com/RoyceAzure/lab/assia/internal/api/handler"
	"github.com/RoyceAzure/lab/assia/internal/infra/metrics"
	"github.com/RoyceAzure/lab/assia/internal/infra/ratelimit"
)

type Server struct {
	ChatHandler       *handler.ChatHandler
	StorefrontHandler *handler.StorefrontHandler
	AdminHandler      *handler.AdminHandler
	MetricsHandler    http.Handler
	RateLimiter       ratelimit.ILimiter
	ClientRateLimiter ratelimit.ILimiter
}

func NewServer(
	chatHandler *handler.ChatHandler,
	storefrontHandler *handler.StorefrontHandler,
	adminHandler *handler.AdminHandler,
	m *metrics.Metrics,
	limiter ratelimit.ILimiter,
	clientLimiter ratelimit.ILimiter,
) *Server {
	metricsHandler := http.NotFoundHandler()
	if m != nil {
		metricsHandler = m.Handler()
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if clientLimiter == nil {
		clientLimiter = ratelimit.Unlimited{}
	}
	return &Server{
		ChatHandler:       chatHandler,
		StorefrontHandler: storefrontHandler,
		AdminHandler:      adminHandler,
		MetricsHandler:    metricsHandler,
		RateLimiter:       limiter,
		ClientRateLimiter: clientLimiter,
	}
}
