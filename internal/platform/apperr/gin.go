package apperr

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"academy-backend/internal/platform/logging"
)

// Respond writes the {success:false, code, message} envelope for err. Server-side
// failures are logged with their cause first.
func Respond(c *gin.Context, err error) {
	status := HTTPStatus(err)
	if status >= 500 {
		logging.From(c).Error("request failed", zap.String("code", string(CodeOf(err))), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"code":    CodeOf(err),
		"message": Message(err),
	})
}
