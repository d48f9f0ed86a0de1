package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalforge/assessment-platform/internal/config"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/services"
	"github.com/evalforge/assessment-platform/internal/utils"
)

type HandlerManager struct {
	questionHandler  *QuestionHandler
	testHandler      *TestHandler
	attemptHandler   *AttemptHandler
	billingHandler   *BillingHandler
	companyHandler   *CompanyHandler
	aiHandler        *AIHandler
	jobHandler       *JobHandler
	dashboardHandler *DashboardHandler
	authMiddleware   *CasdoorAuthMiddleware
	serviceManager   services.ServiceManager
	cronSecret       string
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	cfg *config.Config,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(cfg.Casdoor, userRepo)

	return &HandlerManager{
		questionHandler:  NewQuestionHandler(serviceManager.Question(), serviceManager.ImportExport(), cfg.Upload.TempDir, logger),
		testHandler:      NewTestHandler(serviceManager.Test(), logger),
		attemptHandler:   NewAttemptHandler(serviceManager.Attempt(), logger),
		billingHandler:   NewBillingHandler(serviceManager.Billing(), logger),
		companyHandler:   NewCompanyHandler(serviceManager.Company(), logger),
		aiHandler:        NewAIHandler(serviceManager.AI(), logger),
		jobHandler:       NewJobHandler(serviceManager.Job(), logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), logger),
		authMiddleware:   authMiddleware,
		serviceManager:   serviceManager,
		cronSecret:       cfg.CronSecret,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Invite redemption is unauthenticated; the token is the credential.
	router.POST("/api/v1/invites/:token/redeem", hm.companyHandler.RedeemInvite)

	// Scheduler callback, authenticated by shared secret.
	internal := router.Group("/api/v1/internal")
	internal.Use(CronSecretMiddleware(hm.cronSecret))
	{
		internal.POST("/jobs/sweep", hm.jobHandler.SweepJobs)
	}

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Question routes - staff and above manage, candidates have no access
		questions := v1.Group("/questions")
		{
			questions.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.questionHandler.CreateQuestion)
			questions.GET("", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.questionHandler.ListQuestions)
			questions.GET("/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.questionHandler.ExportQuestions)
			questions.POST("/import", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.questionHandler.ImportQuestions)
			questions.GET("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.questionHandler.DeleteQuestion)
			questions.GET("/:id/stats", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.questionHandler.GetQuestionStats)
		}

		// Test routes - viewing open to all authenticated users so
		// candidates can see what they are invited to take
		tests := v1.Group("/tests")
		{
			tests.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.testHandler.CreateTest)
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.testHandler.UpdateTest)
			tests.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.testHandler.DeleteTest)
			tests.PUT("/:id/status", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.testHandler.UpdateTestStatus)
			tests.POST("/:id/questions", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.testHandler.AddTestQuestion)
			tests.PUT("/:id/questions/reorder", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.testHandler.ReorderTestQuestions)
			tests.DELETE("/:id/questions/:question_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.testHandler.RemoveTestQuestion)
			tests.GET("/:id/stats", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.testHandler.GetTestStats)
		}

		// Attempt routes - candidates take tests, staff review results
		attempts := v1.Group("/attempts")
		{
			attempts.POST("", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
		}

		// Billing routes - creation is platform-side, payment tenant-side
		billing := v1.Group("/billing")
		{
			billing.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.billingHandler.CreateBillingRecord)
			billing.GET("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.billingHandler.ListBillingRecords)
			billing.GET("/revenue", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.billingHandler.GetRevenue)
			billing.GET("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.billingHandler.GetBillingRecord)
			billing.POST("/:id/pay", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.billingHandler.PayBillingRecord)
		}

		// Company routes - onboarding is platform operators only
		companies := v1.Group("/companies")
		{
			companies.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleSuperAdmin), hm.companyHandler.OnboardCompany)
			companies.GET("", hm.authMiddleware.RequireRoleMiddleware(models.RoleSuperAdmin), hm.companyHandler.ListCompanies)
			companies.GET("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleUser), hm.companyHandler.GetCompany)
		}

		// User routes
		users := v1.Group("/users")
		{
			users.GET("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.companyHandler.ListUsers)
		}

		// AI routes - staff and above
		ai := v1.Group("/ai")
		ai.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleUser))
		{
			ai.POST("/questions/generate", hm.aiHandler.GenerateQuestions)
		}

		// Job routes - platform operators only
		jobs := v1.Group("/jobs")
		jobs.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleSuperAdmin))
		{
			jobs.GET("/:id", hm.jobHandler.GetJob)
			jobs.POST("/:id/requeue", hm.jobHandler.RequeueJob)
		}

		// Dashboard routes - staff and above
		dashboard := v1.Group("/dashboard")
		dashboard.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleUser))
		{
			dashboard.GET("/overview", hm.dashboardHandler.GetOverview)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "assessment-platform",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "assessment-platform",
		})
	})
}
