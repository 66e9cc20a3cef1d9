package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"vaultdrive/models"
	"vaultdrive/services"
	"vaultdrive/utils"
)

type ShareController struct {
	share *services.ShareService
}

func NewShareController(share *services.ShareService) *ShareController {
	return &ShareController{share: share}
}

func (sc *ShareController) Share(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req struct {
		TargetUIDs []string `json:"target_uids" binding:"required"`
		Level      string   `json:"level" binding:"required"`
		Recursive  bool     `json:"recursive,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data", err.Error())
		return
	}

	err := sc.share.Share(c.Request.Context(), uid, c.Param("id"), req.TargetUIDs, models.AccessLevel(req.Level), req.Recursive)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Item shared", nil)
}

func (sc *ShareController) ShareWithFamily(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req struct {
		Level     string `json:"level" binding:"required"`
		Recursive bool   `json:"recursive,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data", err.Error())
		return
	}

	err := sc.share.ShareWithFamily(c.Request.Context(), uid, c.Param("id"), models.AccessLevel(req.Level), req.Recursive)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Item shared with family", nil)
}

func (sc *ShareController) Revoke(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	target := c.Param("targetUid")
	if target == "" {
		utils.BadRequestResponse(c, "Missing target user", nil)
		return
	}

	recursive := c.Query("recursive") == "true"
	if err := sc.share.Revoke(c.Request.Context(), uid, c.Param("id"), target, recursive); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Access revoked", nil)
}

func (sc *ShareController) GetSharingInfo(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	info, err := sc.share.GetSharingInfo(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Sharing info retrieved", info)
}

func (sc *ShareController) CreateShareLink(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req struct {
		ExpiresInHours *int64 `json:"expires_in_hours,omitempty"`
		Password       string `json:"password,omitempty"`
		AllowDownload  bool   `json:"allow_download,omitempty"`
		MaxAccessCount *int64 `json:"max_access_count,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data", err.Error())
		return
	}

	opts := services.ShareLinkOptions{
		Password:       req.Password,
		AllowDownload:  req.AllowDownload,
		MaxAccessCount: req.MaxAccessCount,
	}
	if req.ExpiresInHours != nil {
		expiry := time.Now().UTC().Add(time.Duration(*req.ExpiresInHours) * time.Hour)
		opts.ExpiresAt = &expiry
	}

	link, err := sc.share.CreateShareLink(c.Request.Context(), uid, c.Param("id"), opts)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Share link created", link)
}

// AccessShareLink is the public endpoint; no auth middleware applies.
func (sc *ShareController) AccessShareLink(c *gin.Context) {
	var req struct {
		Password string `json:"password,omitempty"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request data", err.Error())
			return
		}
	}

	access, err := sc.share.AccessShareLink(c.Request.Context(), c.Param("shareId"), req.Password)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Share link resolved", access)
}

func (sc *ShareController) RevokeShareLink(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	if err := sc.share.RevokeShareLink(c.Request.Context(), uid, c.Param("shareId")); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Share link revoked", nil)
}
