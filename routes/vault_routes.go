package routes

import (
	"github.com/gin-gonic/gin"

	"vaultdrive/controllers"
	"vaultdrive/middleware"
	"vaultdrive/services"
)

func RegisterVaultRoutes(rg *gin.RouterGroup, jwtSecret string, vaultService *services.VaultService) {
	vaultController := controllers.NewVaultController(vaultService)

	vault := rg.Group("/vault")
	vault.Use(middleware.AuthMiddleware(jwtSecret))
	{
		vault.POST("/folders", vaultController.CreateFolder)
		vault.GET("/items", vaultController.ListItems)
		vault.PATCH("/items/:id/rename", vaultController.Rename)
		vault.PATCH("/items/:id/move", vaultController.Move)
		vault.GET("/items/:id/download-url", vaultController.GetDownloadURL)
		vault.GET("/download-url", vaultController.GetDownloadURLByKey)

		vault.POST("/files/upload-url", vaultController.RequestUploadURL)
		vault.POST("/files/:id/finalize", vaultController.FinalizeUpload)

		// Receives upload bodies for backends without presigned PUT support.
		vault.PUT("/upload/*key", vaultController.ProxyUpload)
	}
}
