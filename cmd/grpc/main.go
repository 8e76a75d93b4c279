package main

import (
	"comments/infra/grpc"
	"comments/infra/mongodb"
	"comments/pkg/config"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	zap.L().Info("Comments gRPC health service starting...")

	appConfig := config.Read()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repository, err := mongodb.NewMongoRepository(
		ctx,
		appConfig.MongoURI,
		appConfig.MongoDatabase,
		appConfig.MongoCommentsCollection,
		appConfig.MongoTimeout(),
	)
	if err != nil {
		zap.L().Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer repository.Close(context.Background())

	grpcServer, err := grpc.NewServer(appConfig)
	if err != nil {
		zap.L().Error("failed to create grpc server", zap.Error(err))
		os.Exit(1)
	}

	reporter := grpc.NewHealthReporter(grpcServer.Health(), repository, 15*time.Second, appConfig.MongoTimeout())
	go reporter.Run(ctx)

	zap.L().Info("starting gRPC server...", zap.String("port", appConfig.GRPCPort))
	go func() {
		if err := grpcServer.Start(); err != nil {
			zap.L().Error("failed to start grpc server", zap.Error(err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	zap.L().Info("Shutting down server...")
	cancel()
	grpcServer.GracefulStop()
	zap.L().Info("Server gracefully stopped")
}
