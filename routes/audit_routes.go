package routes

import (
	"github.com/gin-gonic/gin"

	"vaultdrive/controllers"
	"vaultdrive/middleware"
	"vaultdrive/services"
)

func RegisterAuditRoutes(rg *gin.RouterGroup, jwtSecret string, auditService *services.AuditService) {
	auditController := controllers.NewAuditController(auditService)

	audit := rg.Group("/audit")
	audit.Use(middleware.AuthMiddleware(jwtSecret))
	{
		audit.GET("/logs", auditController.List)
	}
}
