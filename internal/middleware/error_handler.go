package middleware

import (
	"github.com/gin-gonic/gin"

	"realty_chat/pkg/errors"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Ответ уже записан обработчиком
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		statusCode := errors.HTTPStatusFromError(err.Err)

		message := err.Error()
		if statusCode >= 500 {
			// Детали ошибок хранилища наружу не отдаем
			message = errors.ErrInternalServer.Error()
		}

		c.JSON(statusCode, errors.NewAPIError(message, statusCode))
	}
}
