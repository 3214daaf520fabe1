package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-health-api/internal/middleware"
	"github.com/noah-isme/school-health-api/internal/models"
)

// Handlers groups the HTTP handlers mounted under the API prefix. Sensor and
// Reports may be nil when the feature is disabled.
type Handlers struct {
	Auth         *AuthHandler
	Students     *StudentHandler
	Measurements *MeasurementHandler
	Sensor       *SensorHandler
	Programs     *FeedingProgramHandler
	Dashboard    *DashboardHandler
	Reports      *ReportHandler
}

// RegisterRoutes mounts every endpoint on api with authentication and role checks.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator, audit middleware.AuditWriter, logger *zap.Logger) {
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleNurse)
	everyone := middleware.RequireRoles(models.RoleAdmin, models.RoleNurse, models.RoleTeacher)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	audited := func(action, resource, idParam string) gin.HandlerFunc {
		return middleware.Audit(audit, logger, action, resource, idParam)
	}

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/users", adminOnly, h.Auth.RegisterUser)

	students := secured.Group("/students")
	students.GET("", everyone, h.Students.List)
	students.GET("/:id", everyone, h.Students.Get)
	students.POST("", staff, audited(models.AuditActionCreate, "student", ""), h.Students.Create)
	students.PUT("/:id", staff, audited(models.AuditActionUpdate, "student", "id"), h.Students.Update)
	students.DELETE("/:id", adminOnly, audited(models.AuditActionDelete, "student", "id"), h.Students.Deactivate)
	students.GET("/:id/measurements", everyone, h.Measurements.History)
	students.POST("/:id/measurements", staff, audited(models.AuditActionCreate, "measurement", "id"), h.Measurements.Record)
	students.GET("/:id/status", everyone, h.Measurements.Current)

	if h.Sensor != nil {
		sensor := secured.Group("/sensor/readings", staff)
		sensor.POST("", h.Sensor.Ingest)
		sensor.GET("/:deviceId", h.Sensor.Latest)
		sensor.POST("/:deviceId/commit", audited(models.AuditActionCreate, "measurement", "deviceId"), h.Sensor.Commit)
	}

	programs := secured.Group("/feeding-programs")
	programs.GET("", everyone, h.Programs.List)
	programs.GET("/:id", everyone, h.Programs.Get)
	programs.GET("/:id/detail", everyone, h.Programs.Detail)
	programs.POST("", staff, audited(models.AuditActionCreate, "feeding_program", ""), h.Programs.Create)
	programs.PUT("/:id", staff, audited(models.AuditActionUpdate, "feeding_program", "id"), h.Programs.Update)
	programs.POST("/:id/end", adminOnly, audited(models.AuditActionUpdate, "feeding_program", "id"), h.Programs.End)
	programs.POST("/:id/beneficiaries", staff, audited(models.AuditActionCreate, "beneficiary", "id"), h.Programs.AddBeneficiaries)
	programs.DELETE("/:id/beneficiaries/:studentId", staff, audited(models.AuditActionDelete, "beneficiary", "studentId"), h.Programs.RemoveBeneficiary)
	programs.POST("/:id/attendance", staff, h.Programs.RecordAttendance)
	secured.GET("/eligible-students", everyone, h.Programs.Eligible)

	secured.GET("/kpi/summary", everyone, h.Dashboard.KPISummary)
	secured.GET("/dashboard", everyone, h.Dashboard.Overview)

	if h.Reports != nil {
		reports := secured.Group("/reports", everyone)
		reports.POST("", h.Reports.Generate)
		reports.GET("", h.Reports.List)
		reports.GET("/:id", h.Reports.Status)
		api.GET("/export/:token", h.Reports.Download)
	}
}
