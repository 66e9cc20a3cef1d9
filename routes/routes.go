package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"vaultdrive/services"
	"vaultdrive/storage"
)

// ServiceContainer holds the wired services the route groups share.
type ServiceContainer struct {
	DB        *mongo.Database
	JWTSecret string

	Vault *services.VaultService
	Share *services.ShareService
	Trash *services.TrashService
	Audit *services.AuditService
}

// NewServiceContainer wires every service against the database and storage
// manager.
func NewServiceContainer(db *mongo.Database, storageMgr *storage.Manager, logger *zap.SugaredLogger, jwtSecret string, maxFileSize, maxStorage int64, trashRetention time.Duration) *ServiceContainer {
	access := services.NewAccessService()
	audit := services.NewAuditService(db, logger)
	vault := services.NewVaultService(db, storageMgr, access, audit, logger, maxFileSize, maxStorage)
	share := services.NewShareService(db, vault, access, audit, logger)
	trash := services.NewTrashService(db, storageMgr, vault, access, audit, logger, trashRetention)

	return &ServiceContainer{
		DB:        db,
		JWTSecret: jwtSecret,
		Vault:     vault,
		Share:     share,
		Trash:     trash,
		Audit:     audit,
	}
}

// SetupRoutes registers every route group on the API root.
func SetupRoutes(api *gin.RouterGroup, container *ServiceContainer) {
	RegisterVaultRoutes(api, container.JWTSecret, container.Vault)
	RegisterTrashRoutes(api, container.JWTSecret, container.Trash)
	RegisterShareRoutes(api, container.JWTSecret, container.Share)
	RegisterAuditRoutes(api, container.JWTSecret, container.Audit)
}
