package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"vaultdrive/services"
	"vaultdrive/utils"
)

type AuditController struct {
	audit *services.AuditService
}

func NewAuditController(audit *services.AuditService) *AuditController {
	return &AuditController{audit: audit}
}

// List returns the caller's own audit trail, optionally filtered by item
// and action. Users only ever see entries they are the actor of.
func (ac *AuditController) List(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var limit int64
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid limit parameter", nil)
			return
		}
		limit = parsed
	}

	entries, err := ac.audit.List(c.Request.Context(), services.AuditQuery{
		ActorID: uid,
		ItemID:  c.Query("item_id"),
		Action:  c.Query("action"),
		Before:  c.Query("before"),
		Limit:   limit,
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	cursor := ""
	if len(entries) > 0 {
		cursor = entries[len(entries)-1].ID.Hex()
	}
	utils.SuccessResponse(c, "Audit logs retrieved", gin.H{
		"entries":     entries,
		"count":       len(entries),
		"next_cursor": cursor,
	})
}
