package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agendazap/config"
	"agendazap/cron"
	"agendazap/database"
	reservationRepo "agendazap/database/repository/reservation"
	"agendazap/handlers"
	"agendazap/middleware"
	"agendazap/routes"
	"agendazap/services/agenda"
	"agendazap/services/flow"
	"agendazap/services/flow/barber"
	"agendazap/services/flow/clinic"
	"agendazap/services/intelligence"
	"agendazap/services/payment"
	"agendazap/services/tenant"
	"agendazap/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	utils.InitRedis()

	tenants, err := config.LoadTenants(config.AppConfig.TenantsFile)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to load tenant config: %v", err)
	}
	registry := tenant.NewRegistry(tenants, config.AppConfig.DefaultTenant)

	// repositories.
	var repo reservationRepo.Repository
	if config.AppConfig.DatabaseURL != "" {
		database.InitDB()
		repo = reservationRepo.NewMongoReservationRepo(database.DB())
	} else {
		logger.Sugar().Warn("main: DATABASE_URL not set, using in-memory reservation ledger")
		repo = reservationRepo.NewMemoryReservationRepo()
	}

	// services.
	agendaService := agenda.NewDefaultAgendaService(repo)
	paymentService := payment.NewMercadoPago()

	barberFlow := barber.New(agendaService, paymentService)
	for id, t := range tenants {
		if t.GeminiAPIKey == "" {
			continue
		}
		responder, err := intelligence.NewResponder(context.Background(), t.GeminiAPIKey)
		if err != nil {
			logger.Sugar().Warnf("main: FAQ responder disabled for tenant %s: %v", id, err)
			continue
		}
		barberFlow.Responders[id] = responder
	}

	dispatcher := flow.NewDispatcher(registry, map[string]flow.Handler{
		"barber": barberFlow,
		"clinic": clinic.New(),
	})

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(routes.CORSMiddleware())

	handlerBundle := &routes.HandlerBundle{
		Webhook: handlers.NewWebhookHandler(registry, dispatcher),
		Payment: handlers.NewPaymentHandler(registry, agendaService, paymentService),
		Health:  handlers.NewHealthHandler(registry),
	}
	routes.RegisterAll(router, handlerBundle)

	// Background reservation sweep (reminders + expiry notices).
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if config.AppConfig.EnableScheduler {
		go cron.NewScheduler(registry, agendaService).Run(schedCtx)
	}

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8000"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	stopScheduler()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
