package routes

import (
	"github.com/gin-gonic/gin"

	"vaultdrive/controllers"
	"vaultdrive/middleware"
	"vaultdrive/services"
)

func RegisterShareRoutes(rg *gin.RouterGroup, jwtSecret string, shareService *services.ShareService) {
	shareController := controllers.NewShareController(shareService)

	sharing := rg.Group("/vault/items/:id")
	sharing.Use(middleware.AuthMiddleware(jwtSecret))
	{
		sharing.POST("/share", shareController.Share)
		sharing.POST("/share/family", shareController.ShareWithFamily)
		sharing.DELETE("/share/:targetUid", shareController.Revoke)
		sharing.GET("/sharing", shareController.GetSharingInfo)
		sharing.POST("/share-links", shareController.CreateShareLink)
	}

	links := rg.Group("/share-links")
	{
		// Resolving a link is public; revoking it is not.
		links.POST("/:shareId/access", shareController.AccessShareLink)
		links.DELETE("/:shareId", middleware.AuthMiddleware(jwtSecret), shareController.RevokeShareLink)
	}
}
