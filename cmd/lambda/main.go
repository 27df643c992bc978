package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/infrastructure/config"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/di"
)

const modeAPI = "api"

func main() {
	start := time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The runtime freezes the process between invocations and never runs
	// cleanup, so it is dropped
	container, _, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	coldStart := true
	logger := container.Logger
	logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(start)),
		zap.String("mode", cfg.Server.LambdaMode),
	)

	if cfg.Server.LambdaMode == modeAPI {
		mux, ok := container.Handler.(*chi.Mux)
		if !ok {
			log.Fatal("Failed to cast handler to chi.Mux")
		}
		adapter := chiadapter.NewV2(mux)
		lambda.Start(func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
			logger.Debug("Lambda received request",
				zap.String("path", req.RequestContext.HTTP.Path),
				zap.String("method", req.RequestContext.HTTP.Method),
				zap.String("request_id", req.RequestContext.RequestID),
				zap.Bool("cold_start", coldStart),
			)
			coldStart = false
			return adapter.ProxyWithContextV2(ctx, req)
		})
		return
	}

	handler := NewEventHandler(container.Dispatcher, logger)
	lambda.Start(func(ctx context.Context, event events.CloudWatchEvent) error {
		if coldStart {
			logger.Debug("First event after cold start", zap.String("event_id", event.ID))
			coldStart = false
		}
		return handler.Handle(ctx, event)
	})
}
