package main

import (
	"comments/app"
	"comments/domain"
	"comments/infra/mongodb"
	"comments/infra/rabbitmq"
	"comments/internal/middleware"
	"comments/pkg/config"
	"comments/pkg/events"
	"comments/pkg/httperror"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Request any
type Response any

type HandlerInterface[R Request, Res Response] interface {
	Handle(ctx context.Context, req *R) (*Res, error)
}

func handle[R Request, Res Response](handler HandlerInterface[R, Res]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req R

		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
				return writeError(c, httperror.BadRequest(
					"request.invalid_body",
					"Invalid body",
					fiber.Map{"error": err.Error()},
				))
			}
		}

		if err := c.ParamsParser(&req); err != nil {
			return writeError(c, httperror.BadRequest(
				"request.invalid_path_params",
				"Invalid path params",
				fiber.Map{"error": err.Error()},
			))
		}

		if err := c.QueryParser(&req); err != nil {
			return writeError(c, httperror.BadRequest(
				"request.invalid_query_params",
				"Invalid query params",
				fiber.Map{"error": err.Error()},
			))
		}

		ctx := c.UserContext()

		res, err := handler.Handle(ctx, &req)
		if err != nil {
			return writeError(c, err)
		}

		return c.JSON(res)
	}
}

func main() {
	appConfig := config.Read()

	logger := newLogger(appConfig)
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	zap.L().Info("app starting...")
	zap.L().Info("app config",
		zap.String("port", appConfig.Port),
		zap.String("env", appConfig.AppEnv),
		zap.String("mongoDatabase", appConfig.MongoDatabase),
		zap.String("mongoCollection", appConfig.MongoCommentsCollection),
		zap.Bool("eventsEnabled", appConfig.RabbitMQURL != ""),
	)

	ctx := context.Background()

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

	indexCtx, cancel := context.WithTimeout(ctx, appConfig.MongoTimeout())
	if err := repository.EnsureIndexes(indexCtx); err != nil {
		zap.L().Warn("Failed to ensure comment indexes", zap.Error(err))
	}
	cancel()

	var publisher events.Publisher
	if appConfig.RabbitMQURL != "" {
		rabbitPublisher, err := rabbitmq.NewPublisher(appConfig.RabbitMQURL, appConfig.ServiceName)
		if err != nil {
			zap.L().Fatal("Failed to create RabbitMQ publisher", zap.Error(err))
		}
		publisher = rabbitPublisher
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := newApp(appConfig, repository, publisher, registry)

	go func() {
		if err := server.Listen(fmt.Sprintf("0.0.0.0:%s", appConfig.Port)); err != nil {
			zap.L().Error("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	zap.L().Info("Server started on port", zap.String("port", appConfig.Port))

	gracefulShutdown(server, repository, publisher)
}

func newLogger(appConfig *config.AppConfig) *zap.Logger {
	if appConfig.IsProduction() {
		logger, err := zap.NewProduction()
		if err == nil {
			return logger
		}
	}

	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := zapConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newApp(appConfig *config.AppConfig, repository app.Repository, publisher events.Publisher, registry *prometheus.Registry) *fiber.App {
	server := fiber.New(fiber.Config{
		IdleTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Concurrency:  256 * 1024,
		ErrorHandler: writeError,
	})

	metrics := middleware.NewMetrics(registry, appConfig.ServiceName)

	// Metrics sit outside recover so panicking requests are still counted.
	server.Use(metrics.Handler())
	server.Use(recover.New())
	server.Use(middleware.NewTraceHeadersMiddleware(appConfig.ServiceName))

	server.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	server.Get("/readyz", readinessHandler(repository, publisher))
	server.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	registerCommentRoutes(server.Group("/api/comments"), repository, publisher)

	return server
}

func registerCommentRoutes(router fiber.Router, repository app.Repository, publisher events.Publisher) {
	getCommentsHandler := app.NewGetCommentsHandler(repository)
	deleteCommentHandler := app.NewDeleteCommentHandler(repository, publisher)

	router.Get("/", handle[app.GetCommentsRequest, app.GetCommentsResponse](getCommentsHandler))
	router.Delete("/:id", handle[app.DeleteCommentRequest, app.DeleteCommentResponse](deleteCommentHandler))
}

type healthReporter interface {
	IsHealthy() bool
}

// readinessHandler fails while the document store is unreachable, or while a
// configured publisher that can report its health says it is down.
func readinessHandler(repository app.Repository, publisher events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := repository.Ping(ctx); err != nil {
			return writeError(c, httperror.New(
				fiber.StatusServiceUnavailable,
				"health.not_ready",
				"Document store unavailable",
				nil,
			))
		}

		if reporter, ok := publisher.(healthReporter); ok && !reporter.IsHealthy() {
			return writeError(c, httperror.New(
				fiber.StatusServiceUnavailable,
				"health.not_ready",
				"Event publisher unavailable",
				nil,
			))
		}

		return c.SendString("ok")
	}
}

func gracefulShutdown(server *fiber.App, repository *mongodb.MongoRepository, publisher events.Publisher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	zap.L().Info("Shutting down server...")

	if err := server.ShutdownWithTimeout(5 * time.Second); err != nil {
		zap.L().Error("Error during server shutdown", zap.Error(err))
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			zap.L().Error("Error closing event publisher", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repository.Close(ctx); err != nil {
		zap.L().Error("Error disconnecting from MongoDB", zap.Error(err))
	}

	zap.L().Info("Server gracefully stopped")
}

// writeError is the single place that turns handler failures into responses.
func writeError(c *fiber.Ctx, err error) error {
	var httpErr *httperror.Error
	if errors.As(err, &httpErr) {
		payload := fiber.Map{
			"code":    httpErr.Code,
			"message": httpErr.Message,
		}

		if httpErr.Details != nil {
			payload["details"] = httpErr.Details
		}

		switch {
		case httpErr.Status >= fiber.StatusInternalServerError:
			zap.L().Error("Handler returned server error", zap.String("code", httpErr.Code), zap.Error(httpErr))
		case httpErr.Status == fiber.StatusNotFound:
			// A missing resource is an expected outcome, not a failure.
			zap.L().Debug("Handler returned not found", zap.String("code", httpErr.Code))
		default:
			zap.L().Warn("Handler returned client error", zap.String("code", httpErr.Code), zap.Error(httpErr))
		}

		return c.Status(httpErr.Status).JSON(payload)
	}

	if errors.Is(err, domain.ErrInvalidCommentID) {
		zap.L().Warn("Invalid comment id", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "request.invalid_id",
			"message": "Invalid comment id",
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		zap.L().Warn("Fiber error", zap.String("message", fiberErr.Message), zap.Error(err))
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"code":    "request.invalid",
			"message": fiberErr.Message,
		})
	}

	zap.L().Error("Unhandled error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":    "internal_server_error",
		"message": "Internal server error.",
	})
}
