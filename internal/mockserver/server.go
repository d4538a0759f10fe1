// Package mockserver is a local stand-in for the remote interpretation
// service. It answers every route the client uses with canned demo data so
// the CLI works offline and the client can be tested end to end.
package mockserver

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iksnae/medisnap/internal"
)

// AnswerShape selects how chat answers are encoded on the wire.
type AnswerShape string

const (
	ShapeObject   AnswerShape = "object"   // {"answer": "..."}
	ShapeString   AnswerShape = "string"   // "..."
	ShapeEnvelope AnswerShape = "envelope" // {"erc":0,"msg":"ok","data":{"answer":"..."}}
	ShapeEmpty    AnswerShape = "empty"    // {"answer": ""}
)

// bodyLimit sits above the upload ceiling so oversized documents reach the
// validator and get a 413 with a readable message.
const bodyLimit = int(internal.MaxDocumentSize) + 2*1024*1024

// Option configures a Server.
type Option func(*Server)

// WithAnswerShape overrides ShapeObject.
func WithAnswerShape(shape AnswerShape) Option {
	return func(s *Server) { s.shape = shape }
}

// WithClock overrides time.Now for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithIDGenerator overrides uuid ids for results and messages.
func WithIDGenerator(gen func() string) Option {
	return func(s *Server) { s.newID = gen }
}

// Server serves the interpretation API from a Store.
type Server struct {
	app   *fiber.App
	store *Store
	shape AnswerShape
	now   func() time.Time
	newID func() string
}

// New builds the fiber app. The caller keeps ownership of store.
func New(store *Store, opts ...Option) *Server {
	s := &Server{
		store: store,
		shape: ShapeObject,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "medisnap-mock",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(requestLogger)
	s.registerRoutes(app.Group("/api"))
	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	internal.LogInfo("mock service listening on http://%s/api", addr)
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes(r fiber.Router) {
	r.Get("/health", s.health)

	i := r.Group("/interpret")
	i.Post("", s.interpret)
	i.Get("", s.list)
	i.Get("/:id", s.show)
	i.Delete("/:id", s.remove)
	i.Get("/:id/export/:format", s.export)

	c := r.Group("/chat")
	c.Post("", s.ask)
	c.Get("/:id", s.history)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		internal.L().Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// render the error now so the logged status is the real one
		err = errorHandler(c, err)
	}
	internal.L().Debug("mock request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", c.Get("X-Request-ID")),
	)
	return err
}
