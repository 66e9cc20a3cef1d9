package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"vaultdrive/services"
	"vaultdrive/utils"
)

type VaultController struct {
	vault *services.VaultService
}

func NewVaultController(vault *services.VaultService) *VaultController {
	return &VaultController{vault: vault}
}

// currentUID reads the authenticated identity the auth middleware stored.
func currentUID(c *gin.Context) (string, bool) {
	uid := c.GetString("uid")
	if uid == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return "", false
	}
	return uid, true
}

func (vc *VaultController) CreateFolder(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req struct {
		Name     string  `json:"name" binding:"required,min=1,max=255"`
		ParentID *string `json:"parent_id,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data", err.Error())
		return
	}

	folder, err := vc.vault.CreateFolder(c.Request.Context(), uid, req.Name, req.ParentID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Folder created", folder)
}

func (vc *VaultController) RequestUploadURL(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req struct {
		FileName    string  `json:"file_name" binding:"required"`
		MimeType    string  `json:"mime_type,omitempty"`
		ParentID    *string `json:"parent_id,omitempty"`
		FileSize    int64   `json:"file_size" binding:"required"`
		IsEncrypted bool    `json:"is_encrypted,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data", err.Error())
		return
	}

	ticket, err := vc.vault.RequestUploadURL(c.Request.Context(), uid, services.UploadRequest{
		FileName:    req.FileName,
		MimeType:    req.MimeType,
		ParentID:    req.ParentID,
		FileSize:    req.FileSize,
		IsEncrypted: req.IsEncrypted,
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Upload URL generated", ticket)
}

func (vc *VaultController) FinalizeUpload(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req struct {
		Size           int64             `json:"size,omitempty"`
		EncryptionMeta map[string]string `json:"encryption_meta,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data", err.Error())
		return
	}

	result, err := vc.vault.FinalizeUpload(c.Request.Context(), uid, c.Param("id"), req.Size, req.EncryptionMeta)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Upload finalized", result)
}

// ProxyUpload receives the upload body for backends without presigned PUT
// support. The URL in the ticket points here; the key is the wildcard rest
// of the path.
func (vc *VaultController) ProxyUpload(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		utils.BadRequestResponse(c, "Missing object key", nil)
		return
	}

	contentType := c.GetHeader("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := vc.vault.ProxyUpload(c.Request.Context(), uid, key, contentType, c.Request.Body); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Upload stored", gin.H{"storage_path": key})
}

func (vc *VaultController) ListItems(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var parentID *string
	if v := c.Query("parent_id"); v != "" {
		parentID = &v
	}

	items, err := vc.vault.ListItems(c.Request.Context(), uid, parentID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Items retrieved", gin.H{"items": items, "count": len(items)})
}

func (vc *VaultController) Rename(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required,min=1,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data", err.Error())
		return
	}

	if err := vc.vault.Rename(c.Request.Context(), uid, c.Param("id"), req.Name); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Item renamed", nil)
}

func (vc *VaultController) Move(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req struct {
		ParentID *string `json:"parent_id,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data", err.Error())
		return
	}

	if err := vc.vault.Move(c.Request.Context(), uid, c.Param("id"), req.ParentID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Item moved", nil)
}

func (vc *VaultController) GetDownloadURL(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	url, err := vc.vault.GetDownloadURL(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Download URL generated", gin.H{"download_url": url})
}

// GetDownloadURLByKey resolves a download URL from a storage path instead of
// an item id.
func (vc *VaultController) GetDownloadURLByKey(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	key := c.Query("key")
	if key == "" {
		utils.BadRequestResponse(c, "Missing key parameter", nil)
		return
	}

	url, err := vc.vault.GetDownloadURLByKey(c.Request.Context(), uid, key)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Download URL generated", gin.H{"download_url": url})
}
