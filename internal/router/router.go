package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/handler"
	"github.com/associacao-ensino/inscricoes-backend/internal/middleware"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/response"
	"github.com/associacao-ensino/inscricoes-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Course     *handler.CourseHandler
	Room       *handler.RoomHandler
	Class      *handler.ClassHandler
	ClassPair  *handler.ClassPairHandler
	Enrollment *handler.EnrollmentHandler
	Student    *handler.StudentHandler
	Audit      *handler.AuditHandler
	User       *handler.UserHandler
	Dashboard  *handler.DashboardHandler
	Setting    *handler.SettingHandler
	Function   *handler.FunctionHandler
	WS         *handler.WSHandler
	System     *handler.SystemHandler
}

// Role sets used by the route groups. Admins pass every check.
var (
	rolesEnroll   = []model.Role{model.RoleInscricaoSimples, model.RoleInscricaoCompleta}
	rolesStudents = []model.Role{model.RoleInscricaoCompleta}
	rolesPayments = []model.Role{model.RoleFinanceiro, model.RoleInscricaoCompleta}
	rolesInvoices = []model.Role{model.RoleFinanceiro, model.RoleInscricaoCompleta, model.RoleVisualizador}
	rolesClasses  = []model.Role{model.RoleGestorTurmas}
	rolesDocs     = []model.Role{model.RoleInscricaoSimples, model.RoleInscricaoCompleta, model.RoleFinanceiro, model.RoleVisualizador}
)

// SetupRouter configures all Gin route groups with appropriate middlewares.
// loginLimiter may be nil.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	loginLimiter *middleware.RateLimiter,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "Accept"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	if handlers.System != nil {
		router.GET("/health", handlers.System.GetHealth)
	} else {
		router.GET("/health", func(c *gin.Context) {
			response.Success(c, http.StatusOK, gin.H{"status": "ok"})
		})
	}

	authenticated := []gin.HandlerFunc{
		middleware.RequireJWT(authService),
		middleware.CheckTokenRevocation(authService),
	}

	registerUploads(router, cfg, authenticated)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		if loginLimiter != nil {
			auth.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
		} else {
			auth.POST("/login", handlers.Auth.Login)
		}
		auth.GET("/me", append(authenticated, handlers.Auth.Me)...)
	}

	// ─── 2. WebSocket Group (token query) ──────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(authenticated...)
	{
		ws.GET("/realtime", handlers.WS.RealtimeStream)
	}

	// ─── 3. Functions Group ────────────────────────────────────────────
	functions := router.Group("/functions/v1")
	functions.Use(authenticated...)
	{
		functions.POST("/assign-user-roles", middleware.RequireRole(model.RoleAdmin), handlers.Function.AssignUserRoles)
		// Admin check happens in the handler so the body shape matches.
		functions.POST("/reset-user-password", handlers.Function.ResetUserPassword)
		functions.POST("/send-files-email", middleware.RequireAnyRole(rolesEnroll...), handlers.Function.SendFilesEmail)
		functions.POST("/send-student-documents", middleware.RequireAnyRole(rolesEnroll...), handlers.Function.SendStudentDocuments)
	}

	// ─── 4. Admin Group (JWT + RBAC) ───────────────────────────────────
	// Reads are open to every staff role; writes are gated per concern.
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(authenticated...)
	{
		// Courses
		courses := adminAPI.Group("/courses")
		{
			courses.GET("", handlers.Course.ListCourses)
			courses.GET("/code/:code", handlers.Course.GetCourseByCode)
			courses.GET("/:id", handlers.Course.GetCourse)
			courses.POST("", middleware.RequireAnyRole(rolesClasses...), handlers.Course.CreateCourse)
			courses.PUT("/:id", middleware.RequireAnyRole(rolesClasses...), handlers.Course.UpdateCourse)
			courses.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), handlers.Course.DeleteCourse)
		}

		// Rooms
		rooms := adminAPI.Group("/rooms")
		{
			rooms.GET("", handlers.Room.ListRooms)
			rooms.GET("/code/:code", handlers.Room.GetRoomByCode)
			rooms.GET("/:id", handlers.Room.GetRoom)
			rooms.POST("", middleware.RequireAnyRole(rolesClasses...), handlers.Room.CreateRoom)
			rooms.PUT("/:id", middleware.RequireAnyRole(rolesClasses...), handlers.Room.UpdateRoom)
			rooms.DELETE("/:id", middleware.RequireAnyRole(rolesClasses...), handlers.Room.DeleteRoom)
		}

		// Classes
		classes := adminAPI.Group("/classes")
		{
			classes.GET("", handlers.Class.ListClasses)
			classes.GET("/:id", handlers.Class.GetClass)
			classes.PUT("/:id", middleware.RequireAnyRole(rolesClasses...), handlers.Class.UpdateClass)
			classes.POST("/:id/recount", middleware.RequireAnyRole(rolesClasses...), handlers.Class.RecountClass)
		}

		// Class pairs
		pairs := adminAPI.Group("/class-pairs")
		{
			pairs.GET("", handlers.ClassPair.ListClassPairs)
			pairs.GET("/:id", handlers.ClassPair.GetClassPair)
			pairs.GET("/:id/classes", handlers.ClassPair.ListPairClasses)
			pairs.POST("", middleware.RequireAnyRole(rolesClasses...), handlers.ClassPair.CreateClassPair)
			pairs.POST("/duplicate", middleware.RequireAnyRole(rolesClasses...), handlers.ClassPair.DuplicateClassPair)
			pairs.PUT("/:id", middleware.RequireAnyRole(rolesClasses...), handlers.ClassPair.UpdateClassPair)
			pairs.DELETE("/:id", middleware.RequireAnyRole(rolesClasses...), handlers.ClassPair.DeleteClassPair)
			pairs.POST("/:id/toggle-active", middleware.RequireAnyRole(rolesClasses...), handlers.ClassPair.ToggleClassPair)
		}

		// Enrollment
		adminAPI.POST("/enrollments", middleware.RequireAnyRole(rolesEnroll...), handlers.Enrollment.Enroll)

		// Students
		students := adminAPI.Group("/students")
		{
			students.GET("", handlers.Student.ListStudents)
			students.GET("/check-bi", middleware.RequireAnyRole(rolesEnroll...), handlers.Student.CheckIDNumber)
			students.GET("/export", middleware.RequireAnyRole(rolesInvoices...), handlers.Student.ExportStudents)
			students.GET("/:id", handlers.Student.GetStudent)
			students.GET("/:id/consistency", handlers.Student.CheckConsistency)
			students.GET("/:id/invoice", middleware.RequireAnyRole(rolesInvoices...), handlers.Student.DownloadInvoice)
			students.PUT("/:id", middleware.RequireAnyRole(rolesStudents...), handlers.Student.UpdateStudent)
			students.PATCH("/:id/payment", middleware.RequireAnyRole(rolesPayments...), handlers.Student.UpdatePayment)
			students.DELETE("/:id", middleware.RequireAnyRole(rolesStudents...), handlers.Student.DeleteStudent)
		}

		// Dashboard
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboardData)

		// Audit
		audit := adminAPI.Group("/audit")
		{
			audit.GET("", middleware.RequireRole(model.RoleAdmin), handlers.Audit.ListAuditLogs)
			audit.GET("/stats", middleware.RequireRole(model.RoleAdmin), handlers.Audit.GetAuditStats)
			audit.POST("/views", handlers.Audit.LogView) // Every staff role reports its own views
		}

		// Users
		users := adminAPI.Group("/users")
		users.Use(middleware.RequireRole(model.RoleAdmin))
		{
			users.GET("", handlers.User.ListUsers)
			users.POST("", handlers.User.CreateUser)
			users.DELETE("/:id/roles/:role", handlers.User.RevokeRole)
		}

		// App Settings Routes
		settingsGroup := adminAPI.Group("/settings")
		{
			settingsGroup.GET("", handlers.Setting.GetAllSettings)
			settingsGroup.GET("/tuition-fee", handlers.Setting.GetTuitionFee)
			settingsGroup.PUT("", middleware.RequireRole(model.RoleAdmin), handlers.Setting.UpdateSettings)
		}

		// System Monitoring
		if handlers.System != nil {
			adminAPI.GET("/system/metrics", middleware.RequireRole(model.RoleAdmin), handlers.System.SystemMetricsSSE)
		}
	}

	return router
}

// registerUploads serves enrollment documents stored on local disk. They are
// personal documents: staff only, never cached by shared caches.
func registerUploads(router *gin.Engine, cfg *config.Config, authenticated []gin.HandlerFunc) {
	if cfg.StorageDriver != "" && cfg.StorageDriver != config.StorageDriverLocal {
		return
	}
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(authenticated...)
	uploadsGroup.Use(middleware.RequireAnyRole(rolesDocs...), middleware.NoStore())
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}
}
