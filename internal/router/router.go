package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"gestionar/internal/cache"
	"gestionar/internal/config"
	"gestionar/internal/datastore"
	"gestionar/internal/handler"
	"gestionar/internal/ledger"
	"gestionar/internal/metrics"
	"gestionar/internal/middleware"
	"gestionar/internal/register"
	"gestionar/internal/sales"
	"gestionar/internal/worker"
)

// Deps are the long-lived components constructed once at startup and passed
// here by reference — nothing is recreated or looked up ambiently.
type Deps struct {
	Config      *config.Config
	Redis       *redis.Client
	Ledger      *ledger.Client
	Cache       *cache.Cache
	Datasets    *datastore.Datasets
	Register    *register.Controller
	Metrics     *metrics.Service
	Coordinator *sales.Coordinator
	Dispatcher  *worker.Dispatcher
}

// New wires the middleware chain and routes onto a configured Gin engine.
func New(d Deps) *gin.Engine {
	if d.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Handlers ─────────────────────────────────────────────────────────────
	registerH := handler.NewRegisterHandler(d.Register, d.Dispatcher, d.Config.SummaryEmailTo)
	salesH := handler.NewSalesHandler(d.Coordinator)
	dashboardH := handler.NewDashboardHandler(d.Metrics)
	reportsH := handler.NewReportsHandler(d.Datasets, d.Dispatcher)
	catalogH := handler.NewCatalogHandler(d.Datasets)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.Redis, d.Ledger, d.Cache))

	// Protected routes
	jwtMW := middleware.JWTAuth(d.Config.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cashier, supervisor, admin — declared per-endpoint
		reg := v1.Group("/register")
		{
			reg.GET("/state", middleware.RequireRole("cashier", "supervisor", "admin"), registerH.State)
			reg.POST("/open", middleware.RequireRole("cashier", "supervisor", "admin"), registerH.Open)
			reg.POST("/close", middleware.RequireRole("cashier", "supervisor", "admin"), registerH.Close)
			reg.POST("/refresh", middleware.RequireRole("cashier", "supervisor", "admin"), registerH.Refresh)
		}

		v1.POST("/sales", middleware.RequireRole("cashier", "supervisor", "admin"), salesH.Submit)

		v1.GET("/dashboard/metrics", middleware.RequireRole("supervisor", "admin"), dashboardH.Metrics)

		reports := v1.Group("/reports", middleware.RequireRole("supervisor", "admin"))
		{
			reports.GET("/daily", reportsH.Daily)
			reports.POST("/daily/pdf", reportsH.ExportPDF)
		}

		v1.GET("/products", middleware.RequireRole("cashier", "supervisor", "admin"), catalogH.Products)
		v1.GET("/clients", middleware.RequireRole("supervisor", "admin"), catalogH.Clients)
	}

	return r
}
