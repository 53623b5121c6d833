package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/RoyceAzure/lab/assia/internal/api"
	"github.com/RoyceAzure/lab/assia/internal/api/handler"
	"github.com/RoyceAzure/lab/assia/internal/api/router"
	"github.com/RoyceAzure/lab/assia/internal/appcontext"
	"github.com/RoyceAzure/lab/assia/internal/config"
	"github.com/RoyceAzure/lab/assia/internal/constants"
	"github.com/rs/zerolog"
)

func main() {
	cf := config.GetConfig()
	logger := zerolog.New(os.Stdout).Level(cf.ZerologLevel()).With().Timestamp().Str("service", cf.ModulerName).Logger()

	app, err := appcontext.NewApplicationContext(cf, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to setup application")
		return
	}

	// 初始化 handler
	chatHandler := handler.NewChatHandler(app.ChatService, app.Sessions, app.Profile)
	storefrontHandler := handler.NewStorefrontHandler(app.CartService, app.CheckoutService)
	adminHandler := handler.NewAdminHandler(app.AdminService, app.OrderService)

	server := api.NewServer(chatHandler, storefrontHandler, adminHandler, app.Metrics, app.RateLimiter, app.ClientRateLimiter)

	// 設置路由
	r := router.SetupRouter(server, app.AdminService, app.Metrics, &logger)
	if err := router.PrintRoutes(r, &logger); err != nil {
		logger.Warn().Err(err).Msg("failed to walk routes")
	}

	// 設定服務器參數
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cf.ServerPort),
		Handler:           r,
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
		WriteTimeout:      constants.WriteTimeout,
	}

	// 設置訊號監聽
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	shutDonwCompleted := make(chan struct{}, 1)
	// 監聽退出訊號
	go func() {
		<-sigChan
		logger.Info().Msg("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server shutdown error")
		}

		if err := app.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Application shutdown error")
		}

		shutDonwCompleted <- struct{}{}
	}()

	// 啟動服務
	logger.Info().Str("addr", srv.Addr).Msg("Server starting")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server stopped unexpectedly")
	}
	<-shutDonwCompleted
	logger.Info().Msg("closed completed")
}
