package admin

import (
	"github.com/certvault/internal/constants"
	handlershared "github.com/certvault/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, constants.ContextKeyAdminID)
}

func getAdminRole(c *gin.Context) string {
	return handlershared.GetContextString(c, constants.ContextKeyAdminRole)
}
