package routes

import (
	"clinic-app-server/internal/config"
	"clinic-app-server/internal/handlers"
	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/reminder"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, scheduler *reminder.Scheduler, store reminder.Store) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	patientHandler := handlers.NewPatientHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, scheduler, store)
	cashFlowHandler := handlers.NewCashFlowHandler(db)
	salesHandler := handlers.NewSalesHandler(db)
	inventoryHandler := handlers.NewInventoryHandler(db)
	labelHandler := handlers.NewLabelHandler(db)
	subscriptionHandler := handlers.NewSubscriptionHandler(db, cfg)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Billing provider callback, authenticated by shared secret header
		public.POST("/subscription/webhook", subscriptionHandler.Webhook)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		subscriptionRoutes := private.Group("/subscription")
		{
			subscriptionRoutes.GET("/status", subscriptionHandler.GetStatus)
			subscriptionRoutes.POST("/cancel", subscriptionHandler.Cancel)
			subscriptionRoutes.POST("/reactivate", subscriptionHandler.Reactivate)
		}

		// Paid features below, gated by subscription state
		paid := private.Group("")
		paid.Use(middleware.SubscriptionMiddleware(db))
		{
			patientRoutes := paid.Group("/patients")
			{
				patientRoutes.POST("", patientHandler.CreatePatient)
				patientRoutes.GET("", patientHandler.GetPatients)
				patientRoutes.GET("/:id", patientHandler.GetPatientByID)
				patientRoutes.PUT("/:id", patientHandler.UpdatePatient)
				patientRoutes.DELETE("/:id", patientHandler.DeletePatient)
				patientRoutes.GET("/:id/invoices", patientHandler.GetPatientInvoices)
			}

			appointmentRoutes := paid.Group("/appointments")
			{
				appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
				appointmentRoutes.GET("", appointmentHandler.GetAppointments)
				appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
				appointmentRoutes.PUT("/:id", appointmentHandler.UpdateAppointment)
				appointmentRoutes.DELETE("/:id", appointmentHandler.DeleteAppointment)
			}

			cashFlowRoutes := paid.Group("/cash-flow")
			{
				cashFlowRoutes.GET("/period", cashFlowHandler.GetPeriodData)
				cashFlowRoutes.POST("/incomes", cashFlowHandler.CreateIncome)
				cashFlowRoutes.PUT("/incomes/:id", cashFlowHandler.UpdateIncome)
				cashFlowRoutes.DELETE("/incomes/:id", cashFlowHandler.DeleteIncome)
				cashFlowRoutes.POST("/expenses", cashFlowHandler.CreateExpense)
				cashFlowRoutes.PUT("/expenses/:id", cashFlowHandler.UpdateExpense)
				cashFlowRoutes.DELETE("/expenses/:id", cashFlowHandler.DeleteExpense)
				cashFlowRoutes.GET("/receivables", cashFlowHandler.GetReceivables)
				cashFlowRoutes.PATCH("/receivables/:id/pay", cashFlowHandler.MarkInstallmentAsPaid)
				cashFlowRoutes.PATCH("/transactions/:id/toggle-paid", cashFlowHandler.TogglePaidStatus)
			}

			salesRoutes := paid.Group("/sales")
			{
				salesRoutes.GET("/stages", salesHandler.GetStages)
				salesRoutes.POST("/stages", salesHandler.CreateStage)
				salesRoutes.PUT("/stages/:id", salesHandler.UpdateStage)
				salesRoutes.DELETE("/stages/:id", salesHandler.DeleteStage)
				salesRoutes.GET("/opportunities", salesHandler.GetOpportunities)
				salesRoutes.POST("/opportunities", salesHandler.CreateOpportunity)
				salesRoutes.PUT("/opportunities/:id", salesHandler.UpdateOpportunity)
				salesRoutes.DELETE("/opportunities/:id", salesHandler.DeleteOpportunity)
				salesRoutes.POST("/opportunities/:id/notes", salesHandler.CreateNote)
				salesRoutes.DELETE("/notes/:noteId", salesHandler.DeleteNote)
			}

			inventoryRoutes := paid.Group("/inventory")
			{
				inventoryRoutes.GET("", inventoryHandler.GetItems)
				inventoryRoutes.POST("", inventoryHandler.CreateItem)
				inventoryRoutes.PUT("/:id", inventoryHandler.UpdateItem)
				inventoryRoutes.DELETE("/:id", inventoryHandler.DeleteItem)
			}

			labelRoutes := paid.Group("/labels")
			{
				labelRoutes.GET("", labelHandler.GetLabels)
				labelRoutes.POST("", labelHandler.CreateLabel)
				labelRoutes.PUT("/:id", labelHandler.UpdateLabel)
				labelRoutes.DELETE("/:id", labelHandler.DeleteLabel)
			}
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
