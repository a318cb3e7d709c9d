package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/handler"
	"github.com/noah-isme/tutor-cockpit-api/internal/middleware"
	"github.com/noah-isme/tutor-cockpit-api/internal/service"
	"github.com/noah-isme/tutor-cockpit-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutor-cockpit-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutor-cockpit-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler mounted by the router.
type Handlers struct {
	Auth      *handler.AuthHandler
	Students  *handler.StudentHandler
	Lessons   *handler.LessonHandler
	Finance   *handler.FinanceHandler
	Materials *handler.MaterialHandler
	Variants  *handler.VariantHandler
	Dashboard *handler.DashboardHandler
	Backup    *handler.BackupHandler
	Exports   *handler.ExportHandler
	Ops       *handler.MetricsHandler
}

// Options tunes router construction.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         middleware.TokenValidator
}

// NewRouter assembles the gin engine with middleware and every route.
func NewRouter(opts Options, h Handlers) *gin.Engine {
	logr := opts.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, "/health", "/metrics"))

	r.GET("/health", h.Ops.Health)
	r.GET("/ready", h.Ops.Ready)
	r.GET("/metrics", h.Ops.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	auth := api.Group("/auth")
	auth.GET("/status", h.Auth.Status)
	auth.POST("/login", h.Auth.Login)

	// The download token is its own credential.
	api.GET("/exports/download", h.Exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Tokens))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.POST("/auth/passphrase", h.Auth.ChangePassphrase)

	students := secured.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)
	students.GET("/:id/lessons", h.Students.Lessons)

	lessons := secured.Group("/lessons")
	lessons.GET("", h.Lessons.List)
	lessons.POST("", h.Lessons.Create)
	lessons.GET("/day", h.Lessons.Day)
	lessons.GET("/calendar", h.Lessons.Calendar)
	lessons.GET("/time-slots", h.Lessons.TimeSlots)
	lessons.GET("/:id", h.Lessons.Get)
	lessons.PUT("/:id", h.Lessons.Update)
	lessons.DELETE("/:id", h.Lessons.Delete)

	finance := secured.Group("/finance")
	finance.GET("/payments", h.Finance.ListPayments)
	finance.POST("/payments", h.Finance.CreatePayment)
	finance.GET("/payments/:id", h.Finance.GetPayment)
	finance.PUT("/payments/:id", h.Finance.UpdatePayment)
	finance.DELETE("/payments/:id", h.Finance.DeletePayment)
	finance.GET("/expenses", h.Finance.ListExpenses)
	finance.POST("/expenses", h.Finance.CreateExpense)
	finance.GET("/expenses/:id", h.Finance.GetExpense)
	finance.PUT("/expenses/:id", h.Finance.UpdateExpense)
	finance.DELETE("/expenses/:id", h.Finance.DeleteExpense)
	finance.GET("/stats/monthly", h.Finance.MonthlyStats)
	finance.GET("/stats/series", h.Finance.StatsSeries)
	finance.GET("/summary", h.Finance.Summary)

	materials := secured.Group("/materials")
	materials.GET("/categories", h.Materials.ListCategories)
	materials.POST("/categories", h.Materials.CreateCategory)
	materials.GET("/categories/tree", h.Materials.CategoryTree)
	materials.GET("/categories/:id", h.Materials.GetCategory)
	materials.PUT("/categories/:id", h.Materials.UpdateCategory)
	materials.DELETE("/categories/:id", h.Materials.DeleteCategory)
	materials.GET("/categories/:id/children", h.Materials.CategoryChildren)
	materials.GET("/problems", h.Materials.ListProblems)
	materials.POST("/problems", h.Materials.CreateProblem)
	materials.GET("/problems/search", h.Materials.SearchProblems)
	materials.GET("/problems/:id", h.Materials.GetProblem)
	materials.PUT("/problems/:id", h.Materials.UpdateProblem)
	materials.DELETE("/problems/:id", h.Materials.DeleteProblem)
	materials.GET("/tags", h.Materials.Tags)
	materials.GET("/theories", h.Materials.ListTheories)
	materials.POST("/theories", h.Materials.CreateTheory)
	materials.GET("/theories/:id", h.Materials.GetTheory)
	materials.PUT("/theories/:id", h.Materials.UpdateTheory)
	materials.DELETE("/theories/:id", h.Materials.DeleteTheory)

	variants := materials.Group("/variants")
	variants.POST("/pool-stats", h.Variants.PoolStats)
	variants.POST("/preview", h.Variants.Preview)
	variants.GET("", h.Variants.List)
	variants.POST("", h.Variants.Create)
	variants.GET("/:id", h.Variants.Get)
	variants.DELETE("/:id", h.Variants.Delete)

	secured.GET("/dashboard", h.Dashboard.Summary)

	secured.GET("/backup", h.Backup.Export)
	secured.POST("/backup/import", h.Backup.Import)

	secured.POST("/exports", h.Exports.Request)
	secured.GET("/exports/:id", h.Exports.Status)

	return r
}
