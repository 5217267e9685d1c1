package rest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"yqhp/calc-engine/internal/config"
	"yqhp/calc-engine/internal/metrics"
	"yqhp/calc-engine/pkg/expression"
	"yqhp/calc-engine/pkg/logger"
)

// Server represents the REST API server.
type Server struct {
	app      *fiber.App
	engine   expression.Engine
	recorder *metrics.Recorder
	streamer *EvaluationStreamer
	config   *Config
}

// Config holds the configuration for the REST API server.
type Config struct {
	// Address is the address to listen on (e.g., ":8080").
	Address string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration

	// EnableCORS enables Cross-Origin Resource Sharing.
	EnableCORS bool

	// EnableWebSocket enables the /api/v1/stream evaluation stream.
	EnableWebSocket bool

	// CORSOrigins lists the allowed origins when CORS is enabled.
	CORSOrigins []string

	// MaxExpressionLength caps the size of a submitted expression in bytes.
	MaxExpressionLength int

	// Precision is the default number of fractional digits in "rounded".
	Precision int
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() *Config {
	return FromAppConfig(config.DefaultConfig())
}

// FromAppConfig extracts the server settings from the application config.
func FromAppConfig(cfg *config.Config) *Config {
	return &Config{
		Address:             cfg.Server.Address,
		ReadTimeout:         cfg.Server.ReadTimeout,
		WriteTimeout:        cfg.Server.WriteTimeout,
		EnableCORS:          cfg.Server.EnableCORS,
		EnableWebSocket:     cfg.Server.EnableStream,
		CORSOrigins:         cfg.Server.CORSOrigins,
		MaxExpressionLength: cfg.Server.MaxExpressionLength,
		Precision:           cfg.Eval.Precision,
	}
}

// NewServer creates a new REST API server. A nil engine or recorder is
// replaced with a default one.
func NewServer(engine expression.Engine, recorder *metrics.Recorder, cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if engine == nil {
		engine = expression.NewEngine()
	}
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          customErrorHandler,
		AppName:               "Calc Engine API",
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
	})

	server := &Server{
		app:      app,
		engine:   engine,
		recorder: recorder,
		config:   cfg,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	// Recovery middleware - recovers from panics
	s.app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))

	s.app.Use(requestLogger())

	// CORS middleware
	if s.config.EnableCORS {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(s.config.CORSOrigins, ","),
			AllowMethods:     "GET,POST,OPTIONS",
			AllowHeaders:     "Origin,Content-Type,Accept",
			AllowCredentials: false,
			MaxAge:           86400,
		}))
	}
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.app.Get("/health", s.healthCheck)

	api := s.app.Group("/api/v1")
	api.Get("/health", s.healthCheck)

	api.Post("/tokenize", s.tokenize)
	api.Post("/postfix", s.postfix)
	api.Post("/evaluate", s.evaluate)
	api.Post("/evaluate/postfix", s.evaluatePostfix)

	api.Get("/stats", s.stats)

	s.setupWebSocketRoutes()
}

// Start starts the REST API server.
func (s *Server) Start() error {
	logger.Info("REST API listening on " + s.config.Address)
	return s.app.Listen(s.config.Address)
}

// StartWithContext starts the REST API server and shuts it down when ctx is done.
func (s *Server) StartWithContext(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.Start()
	}()

	select {
	case <-ctx.Done():
		return s.ShutdownWithTimeout(10 * time.Second)
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ShutdownWithTimeout gracefully shuts down the server with a timeout.
func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Recorder returns the metrics recorder backing /api/v1/stats.
func (s *Server) Recorder() *metrics.Recorder {
	return s.recorder
}

// customErrorHandler handles errors returned by handlers.
func customErrorHandler(c *fiber.Ctx, err error) error {
	// Default to 500 Internal Server Error
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   fmt.Sprintf("error_%d", code),
		Message: message,
	})
}
