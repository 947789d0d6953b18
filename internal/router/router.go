package router

import (
	"time"

	"sigir/internal/config"
	"sigir/internal/handler"
	"sigir/internal/infra"
	"sigir/internal/middleware"
	"sigir/internal/repository"
	"sigir/internal/service"
	"sigir/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	lectura   = []string{"cajero", "supervisor", "administrador"}
	escritura = []string{"administrador"}
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))

	// ── Services ─────────────────────────────────────────────────────────────
	opts := service.CategoriaOptions{
		PrefijoDefault: cfg.CodigoPrefijoDefault,
		AnchoSecuencia: cfg.CodigoAnchoSecuencia,
		Eventos:        worker.NewDispatcher(rdb),
	}
	var cache *infra.ListaCache
	if cfg.CacheTTLSeconds > 0 {
		cache = infra.NewListaCache(rdb, time.Duration(cfg.CacheTTLSeconds)*time.Second)
		opts.Cache = cache
	}
	categoriaSvc := service.NewCategoriaService(repository.NewCategoriaRepository(db), opts)

	// ── Handlers ─────────────────────────────────────────────────────────────
	categoriasH := handler.NewCategoriasHandler(categoriaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, cache))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		cats := v1.Group("/categorias")

		// Reads: every authenticated role
		leer := middleware.RequireRole(lectura...)
		cats.GET("", leer, categoriasH.Listar)
		cats.GET("/papelera", leer, categoriasH.ListarPapelera)
		cats.GET("/:id", leer, categoriasH.ObtenerPorID)

		// Writes: administrador only
		admin := cats.Group("", middleware.RequireRole(escritura...))
		{
			admin.POST("", categoriasH.Crear)
			admin.PUT("/:id", categoriasH.Actualizar)
			admin.PATCH("/:id/estado", categoriasH.AlternarEstado)
			admin.DELETE("/:id", categoriasH.Eliminar)
			admin.POST("/:id/restaurar", categoriasH.Restaurar)
			admin.DELETE("/:id/definitivo", categoriasH.Purgar)
		}

		lote := cats.Group("/lote", middleware.RequireRole(escritura...))
		{
			lote.POST("/estado", categoriasH.EstadoLote)
			lote.POST("/eliminar", categoriasH.EliminarLote)
			lote.POST("/restaurar", categoriasH.RestaurarLote)
			lote.POST("/purgar", categoriasH.PurgarLote)
		}
	}

	// Swagger UI, outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
