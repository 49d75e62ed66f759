package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"inmuebles_backend/internal/catalog"
	"inmuebles_backend/internal/controller"
	"inmuebles_backend/internal/middleware"
	"inmuebles_backend/internal/model"
	"inmuebles_backend/internal/service"
	"inmuebles_backend/internal/store"
	"inmuebles_backend/pkg/cache"
	"inmuebles_backend/pkg/config"
	"inmuebles_backend/pkg/cron"
	"inmuebles_backend/pkg/database"
	"inmuebles_backend/pkg/email"
	"inmuebles_backend/pkg/seed"
	"inmuebles_backend/pkg/utils/jwt"
	"inmuebles_backend/pkg/utils/storage"
)

const (
	defaultCompanyID = 1
	uploadsDir       = "./uploads"
)

type handlers struct {
	catalog  *controller.CatalogController
	auth     *controller.AuthController
	property *controller.PropertyController
	image    *controller.ImageController
	location *controller.LocationController
	settings *controller.SettingsController
	lead     *controller.LeadController
	stats    *controller.StatsController
	user     *controller.UserController
}

func setupRoutes(app *fiber.App, h handlers) {
	// Public catalog
	app.Get("/propiedades", h.catalog.ListProperties)
	app.Get("/propiedades/mapa", h.catalog.Map)
	app.Get("/propiedad/:id", h.catalog.GetProperty)
	app.Post("/contacto", h.catalog.Contact)

	api := app.Group("/api")

	// Auth Routes
	api.Post("/auth/login", h.auth.Login)
	api.Get("/me", middleware.AuthMiddleware(), h.auth.GetMe)

	admin := api.Group("/admin", middleware.AuthMiddleware())

	properties := admin.Group("/properties")
	properties.Get("/", h.property.List)
	properties.Post("/", h.property.Create)
	properties.Get("/:id", h.property.Get)
	properties.Put("/:id", h.property.Update)
	properties.Patch("/:id/public", h.property.TogglePublic)
	properties.Delete("/:id", h.property.Delete)

	// Images
	properties.Post("/:property_id/images", h.image.Upload)
	properties.Put("/:property_id/images/order", h.image.Reorder)
	admin.Patch("/images/:image_id/primary", h.image.SetPrimary)
	admin.Delete("/images/:image_id", h.image.Delete)

	// Locations
	locations := admin.Group("/locations")
	locations.Get("/", h.location.List)
	locations.Get("/geojson", h.location.GeoJSON)
	locations.Post("/nearby", h.location.Nearby)
	locations.Get("/:property_id", h.location.Get)
	locations.Put("/:property_id", h.location.Upsert)
	locations.Patch("/:property_id/toggle", h.location.Toggle)
	locations.Delete("/:property_id", h.location.Delete)

	// Settings
	categories := admin.Group("/categories")
	categories.Get("/", h.settings.ListCategories)
	categories.Post("/", h.settings.CreateCategory)
	categories.Put("/:id", h.settings.RenameCategory)
	categories.Delete("/:id", h.settings.DeleteCategory)
	admin.Post("/catalog/cache/clear", h.settings.ClearCatalogCache)

	leads := admin.Group("/leads")
	leads.Get("/", h.lead.List)
	leads.Put("/:id/status", h.lead.UpdateStatus)
	leads.Put("/:id/read", h.lead.MarkRead)

	admin.Get("/stats", h.stats.GetDashboardStats)

	// Users and roles are admin-only
	roles := admin.Group("/roles", middleware.RequireRole("admin"))
	roles.Get("/", h.user.ListRoles)
	roles.Post("/", h.user.CreateRole)
	roles.Put("/:id", h.user.UpdateRole)
	roles.Patch("/:id/status", h.user.SetRoleActive)
	roles.Delete("/:id", h.user.DeleteRole)

	users := admin.Group("/users", middleware.RequireRole("admin"))
	users.Get("/", h.user.ListUsers)
	users.Post("/", h.user.CreateUser)
	users.Put("/:id/roles", h.user.AssignRoles)
	users.Get("/:id/role", h.user.EffectiveRole)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	jwt.Init(cfg.JWT.Secret, time.Duration(cfg.JWT.TTLHours)*time.Hour)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.MigrateDatabase(db, model.All()...); err != nil {
		log.Printf("Migration warning: %v", err)
	}
	seed.SeedCategories(db)
	seed.SeedRoles(db, defaultCompanyID)

	ctx := context.Background()

	// Catalog cache: Redis when configured, otherwise in-process with a sweeper
	var cacheStore cache.Store
	if cfg.Redis.Addr != "" {
		r, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			log.Fatalf("Could not connect to redis: %v", err)
		}
		defer r.Close()
		cacheStore = r
	} else {
		mem := cache.NewMemory()
		sweeper, err := cron.InitCacheSweeperCron(mem, cfg.Catalog.SweepSchedule)
		if err != nil {
			log.Fatalf("Could not schedule cache sweeper: %v", err)
		}
		defer sweeper.Stop()
		cacheStore = mem
	}

	var objects storage.ObjectStorage
	if cfg.Storage.Enabled() {
		r2, err := storage.NewR2(ctx, cfg.Storage)
		if err != nil {
			log.Fatalf("Could not initialize object storage: %v", err)
		}
		objects = r2
	} else {
		log.Printf("R2 credentials not set, storing images under %s", uploadsDir)
		objects = storage.NewDisk(uploadsDir, "http://localhost:"+cfg.Server.Port+"/uploads/")
	}

	var notifier service.Notifier
	if cfg.Email.ResendAPIKey != "" {
		mailer, err := email.NewEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
		if err != nil {
			log.Fatal("Could not initialize email service:", err)
		}
		notifier = mailer
	} else {
		log.Println("RESEND_API_KEY not set, lead notifications disabled")
	}

	locationStore := store.NewLocationStore(db)
	engine := catalog.NewFilterEngine(db, locationStore, cacheStore, cfg.Catalog.CacheTTL(), cfg.Catalog.OptionsTTL())

	var source catalog.Source = engine
	if cfg.Catalog.Source == config.CatalogSourceExternal {
		source = catalog.NewExternalCatalog(cfg.Catalog.ExternalURL, cfg.Catalog.Timeout(), cacheStore, cfg.Catalog.CacheTTL(), cfg.Catalog.OptionsTTL())
	}
	log.Printf("Catalog source: %s", cfg.Catalog.Source)

	leadService := service.NewLeadService(db, notifier, cfg.Email.LeadsInbox)
	userService := service.NewUserService(db)
	roleService := service.NewRoleService(db)

	h := handlers{
		catalog:  controller.NewCatalogController(source, leadService),
		auth:     controller.NewAuthController(userService),
		property: controller.NewPropertyController(service.NewPropertyService(db, objects, engine)),
		image:    controller.NewImageController(service.NewImageService(db, objects)),
		location: controller.NewLocationController(service.NewLocationService(db, locationStore, engine)),
		settings: controller.NewSettingsController(service.NewCategoryService(db, engine), source),
		lead:     controller.NewLeadController(leadService),
		stats:    controller.NewStatsController(service.NewStatsService(db)),
		user:     controller.NewUserController(userService, roleService),
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(cors.New())

	prometheus := fiberprometheus.New("inmuebles")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	if !cfg.Storage.Enabled() {
		app.Static("/uploads", uploadsDir)
	}

	setupRoutes(app, h)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	log.Printf("Server is running on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Println("Server stopped")
}
