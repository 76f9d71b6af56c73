package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/pkg/utils"
)

// HeaderUserID carries the caller identity set by the upstream gateway
const HeaderUserID = "X-User-ID"

const (
	ctxUserID     = "user_id"
	ctxIsApprover = "is_approver"
)

// identityMiddleware resolves the caller and its approver capability
func identityMiddleware(approvers port.ApproverDirectory, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if !utils.ValidUserID(userID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing or invalid " + HeaderUserID + " header",
			})
			return
		}

		isApprover, err := approvers.IsApprover(c.Request.Context(), userID)
		if err != nil {
			logger.Error("Failed to resolve approver capability", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   "internal error",
			})
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxIsApprover, isApprover)
		c.Next()
	}
}

// requireApprover rejects callers without the approver capability
func requireApprover() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxIsApprover) {
			c.AbortWithStatusJSON(http.StatusForbidden, Response{
				Success: false,
				Error:   "approver capability required",
			})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func isApprover(c *gin.Context) bool {
	return c.GetBool(ctxIsApprover)
}
