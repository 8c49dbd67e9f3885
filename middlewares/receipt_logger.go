package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// ReceiptLoggerMiddleware logs every receipt rendered for an order.
func ReceiptLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := logrus.Fields{
			"order_id":   c.Param("order_id"),
			"format":     receiptFormat(c.FullPath()),
			"request_id": c.GetString(ContextRequestID),
		}

		c.Next()

		if c.Writer.Status() == 200 {
			utils.InfoLogger.WithFields(fields).Info("receipt generated")
		} else {
			utils.ErrorLogger.WithFields(fields).Errorf("receipt failed with status %d", c.Writer.Status())
		}
	}
}

func receiptFormat(route string) string {
	if strings.HasSuffix(route, ".pdf") {
		return "pdf"
	}
	return "json"
}
