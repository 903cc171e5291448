package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/arefiev/storefront/internal/cart"
	"github.com/arefiev/storefront/internal/catalog"
	"github.com/arefiev/storefront/internal/checkout"
	"github.com/arefiev/storefront/internal/config"
	"github.com/arefiev/storefront/internal/es"
	"github.com/arefiev/storefront/internal/httpserver"
	"github.com/arefiev/storefront/internal/logging"
	"github.com/arefiev/storefront/internal/models"
	"github.com/arefiev/storefront/internal/notify"
	"github.com/arefiev/storefront/internal/order"
	"github.com/arefiev/storefront/internal/payment"
	"github.com/arefiev/storefront/internal/search"
	"github.com/arefiev/storefront/internal/transport"
	"github.com/arefiev/storefront/pkg/db"
	"github.com/arefiev/storefront/pkg/kafka"
	loggingmw "github.com/arefiev/storefront/pkg/middleware/logging"
)

const currency = "usd"

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if err := migrate(gdb); err != nil {
		log.Fatalf("database migration error: %v", err)
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	dispatcher := notify.NewDispatcher(producer, logger)

	esClient, err := es.NewClient(cfg)
	if err != nil {
		log.Fatalf("elasticsearch init error: %v", err)
	}
	searchSvc := &search.Service{ES: esClient, Index: cfg.ESIndex}

	catalogSvc := &catalog.CatalogService{
		Repo:    &catalog.GormRepo{DB: gdb},
		Indexer: searchSvc,
	}
	cartSvc := &cart.CartService{Repo: &cart.GormRepo{DB: gdb}}
	orderSvc := &order.OrderService{
		Repo:    &order.GormRepo{DB: gdb},
		Alerter: dispatcher,
	}
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, time.Duration(cfg.PaymentTimeout)*time.Second)
	paymentSvc := &payment.Service{Repo: &payment.GormRepo{DB: gdb}}
	checkoutSvc := &checkout.Service{
		Catalog:  catalogSvc,
		Ledger:   orderSvc,
		Gateway:  gateway,
		Validate: transport.NewValidator(),
		Currency: currency,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		CartHandler:    &httpserver.CartHTTP{Svc: cartSvc},
		OrderHandler:   &httpserver.OrderHTTP{Checkout: checkoutSvc, Svc: orderSvc},
		PaymentHandler: &httpserver.PaymentHTTP{Svc: paymentSvc, Gateway: gateway, Currency: currency},
		ProductHandler: &httpserver.ProductHTTP{Svc: catalogSvc, Search: searchSvc},
		JWTSecret:      cfg.JWTSecret,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	dispatcher.Flush()
	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	)
}
