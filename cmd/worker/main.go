package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	internalaws "github.com/motbungchow/go-food-orderflow/internal/aws"
	"github.com/motbungchow/go-food-orderflow/internal/orders"
	pkgconfig "github.com/motbungchow/go-food-orderflow/pkg/config"
)

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

	processor := NewProcessor(
		orders.NewStore(clients.DynamoDB, cfg.OrdersTable),
		internalaws.NewMetricsPublisher(clients.CloudWatch, cfg.MetricsNamespace),
		logger,
	)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"order_id":"local-order-1","restaurant_id":"local-restaurant-1"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{Body: testBody},
			},
		}
		if err := processor.Handle(context.Background(), event); err != nil {
			logger.Fatal("local handler error", zap.Error(err))
		}
		return
	}

	lambda.Start(processor.Handle)
}
