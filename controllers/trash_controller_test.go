package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// The batch purge endpoint must refuse to act before touching the service
// unless the caller explicitly confirms. The controller is built with a nil
// service: reaching it would panic, so a clean 400 proves the guard fires
// first.
func TestPurgeBatchRequiresConfirmation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing confirm", body: `{"all": true}`},
		{name: "confirm false", body: `{"item_ids": ["abc"], "confirm": false}`},
		{name: "confirmed but no selection", body: `{"confirm": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/trash/purge", func(c *gin.Context) {
				c.Set("uid", "alice")
				NewTrashController(nil).PurgeBatch(c)
			})

			req := httptest.NewRequest(http.MethodPost, "/trash/purge", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
