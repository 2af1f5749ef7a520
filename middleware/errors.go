package middleware

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/yourusername/invoice-desk/errors"
	"github.com/yourusername/invoice-desk/logger"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error attached with c.Error. Hints become the
// message and reportable details are passed through.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)

		if status >= 500 {
			logger.FromGin(c).Error("request failed", zap.Error(err))
		}

		response := ierr.ErrorResponse{
			Success: false,
			Error: ierr.ErrorDetail{
				Display: ierr.DisplayMessage(err, "An unexpected error occurred"),
			},
		}
		if details := ierr.ReportableDetails(err); len(details) > 0 {
			response.Error.Details = details
		}
		c.JSON(status, response)
	}
}
