package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	internalaws "github.com/motbungchow/go-food-orderflow/internal/aws"
	"github.com/motbungchow/go-food-orderflow/internal/auth"
	"github.com/motbungchow/go-food-orderflow/internal/gateway"
	"github.com/motbungchow/go-food-orderflow/internal/handlers"
	"github.com/motbungchow/go-food-orderflow/internal/orders"
	pkgconfig "github.com/motbungchow/go-food-orderflow/pkg/config"
)

func setupRouter(cfg handlers.HandlerConfig, health gin.H) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, health)
	})

	handlers.RegisterOrdersRoutes(r, cfg)

	return r
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := pkgconfig.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	clients, err := internalaws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	gatewayClient := gateway.NewClient(gateway.Config{
		KeyID:         cfg.GatewayKeyID,
		KeySecret:     cfg.GatewayKeySecret,
		WebhookSecret: cfg.WebhookSecret,
		BaseURL:       cfg.GatewayBaseURL,
		Timeout:       cfg.GatewayTimeout,
	})

	var eventPublisher orders.EventPublisher
	if cfg.OrdersQueueURL != "" {
		eventPublisher = internalaws.NewPublisher(clients.SQS, cfg.OrdersQueueURL)
	} else {
		logger.Warn("ORDERS_QUEUE_URL not set, confirmed-order events disabled")
	}

	service := orders.NewService(orders.ServiceConfig{
		Store:    orders.NewStore(clients.DynamoDB, cfg.OrdersTable),
		Gateway:  gatewayClient,
		Events:   eventPublisher,
		Metrics:  internalaws.NewMetricsPublisher(clients.CloudWatch, cfg.MetricsNamespace),
		Logger:   logger,
		Currency: cfg.Currency,
	})

	handlerCfg := handlers.HandlerConfig{
		Service: service,
		Auth:    auth.NewManager(cfg.JWTSecret, 0),
		Logger:  logger,
	}

	r := setupRouter(handlerCfg, gin.H{
		"status":       "ok",
		"orders_table": cfg.OrdersTable,
		"events_queue": cfg.OrdersQueueURL != "",
		"currency":     cfg.Currency,
	})

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		runLocal(r, cfg.Port, logger)
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

func runLocal(r *gin.Engine, port string, logger *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Info("running local server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("local server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
