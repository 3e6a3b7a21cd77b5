package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/theleywin/lostnfound-backend/src/lib"
	"github.com/theleywin/lostnfound-backend/src/middleware"
	"github.com/theleywin/lostnfound-backend/src/storage"
)

// AppOptions configures NewApp.
type AppOptions struct {
	Logger         *slog.Logger
	AllowedOrigins string
	MaxUploadMB    int
	// UploadsDir is served under /uploads when set.
	UploadsDir string
}

// NewApp builds the Fiber app with the shared middleware and every route.
func NewApp(opts AppOptions, h Handlers) *fiber.App {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = storage.MaxImageBytes >> 20
	}

	app := fiber.New(fiber.Config{
		AppName: "lostnfound",
		// Values read from a request outlive it in background notification tasks.
		Immutable: true,
		// Leaves room for the other multipart fields next to the image.
		BodyLimit:             (opts.MaxUploadMB + 1) << 20,
		ErrorHandler:          lib.ErrorHandler(opts.Logger, opts.MaxUploadMB),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.AccessLog(opts.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: opts.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	if opts.UploadsDir != "" {
		app.Static(storage.DiskURLPrefix, opts.UploadsDir)
	}

	Register(app, h)
	return app
}
