package controllers

import (
	"github.com/gin-gonic/gin"

	"vaultdrive/services"
	"vaultdrive/utils"
)

type TrashController struct {
	trash *services.TrashService
}

func NewTrashController(trash *services.TrashService) *TrashController {
	return &TrashController{trash: trash}
}

func (tc *TrashController) SoftDelete(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	count, err := tc.trash.SoftDelete(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Moved to trash", gin.H{"deleted_count": count})
}

func (tc *TrashController) ListTrash(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	items, err := tc.trash.ListTrash(c.Request.Context(), uid)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Trash retrieved", gin.H{"items": items, "count": len(items)})
}

func (tc *TrashController) Restore(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	count, err := tc.trash.Restore(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Item restored", gin.H{"restored_count": count})
}

func (tc *TrashController) Purge(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	result, err := tc.trash.Purge(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Item permanently deleted", result)
}

// PurgeBatch permanently deletes an explicit list of trashed items, or the
// whole trash when all is set. Refuses to act without an explicit confirm.
func (tc *TrashController) PurgeBatch(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req struct {
		ItemIDs []string `json:"item_ids,omitempty"`
		All     bool     `json:"all,omitempty"`
		Confirm bool     `json:"confirm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data", err.Error())
		return
	}
	if !req.Confirm {
		utils.BadRequestResponse(c, "Purge is irreversible and must be confirmed", nil)
		return
	}
	if !req.All && len(req.ItemIDs) == 0 {
		utils.BadRequestResponse(c, "Provide item_ids or set all", nil)
		return
	}

	var (
		result *services.PurgeResult
		err    error
	)
	if req.All {
		result, err = tc.trash.EmptyTrash(c.Request.Context(), uid)
	} else {
		result, err = tc.trash.PurgeMany(c.Request.Context(), uid, req.ItemIDs)
	}
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Items permanently deleted", result)
}

func (tc *TrashController) EmptyTrash(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	result, err := tc.trash.EmptyTrash(c.Request.Context(), uid)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Trash emptied", result)
}
