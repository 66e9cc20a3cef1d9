package routes

import (
	"github.com/gin-gonic/gin"

	"vaultdrive/controllers"
	"vaultdrive/middleware"
	"vaultdrive/services"
)

func RegisterTrashRoutes(rg *gin.RouterGroup, jwtSecret string, trashService *services.TrashService) {
	trashController := controllers.NewTrashController(trashService)

	trash := rg.Group("/trash")
	trash.Use(middleware.AuthMiddleware(jwtSecret))
	{
		trash.GET("/", trashController.ListTrash)
		trash.DELETE("/", trashController.EmptyTrash)
		trash.POST("/purge", trashController.PurgeBatch)
		trash.POST("/:id/restore", trashController.Restore)
		trash.DELETE("/:id", trashController.Purge)
	}

	// Soft delete lives beside the items it acts on.
	items := rg.Group("/vault")
	items.Use(middleware.AuthMiddleware(jwtSecret))
	{
		items.DELETE("/items/:id", trashController.SoftDelete)
	}
}
