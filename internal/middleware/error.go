package middleware

import (
	"errors"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/logger"
)

// exposeInternal is off until SetProduction(false) opts in.
var exposeInternal atomic.Bool

// SetProduction hides wrapped internal errors from response bodies when
// production is true and shows them otherwise.
func SetProduction(production bool) {
	exposeInternal.Store(!production)
}

// ErrorBody builds the JSON body for err. AppErrors keep their code and
// status; a structured Detail replaces the plain message. Anything else is
// reported as a generic internal error.
func ErrorBody(err error) (int, gin.H) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	body := gin.H{"detail": appErr.Message, "code": appErr.Code}
	if appErr.Detail != nil {
		body["detail"] = appErr.Detail
	}
	if appErr.Internal != nil && exposeInternal.Load() {
		body["internal"] = appErr.Internal.Error()
	}
	return appErr.StatusCode, body
}

// WriteError logs err when it carries an internal cause and writes the error
// response.
func WriteError(c *gin.Context, err error) {
	status, body := ErrorBody(err)
	logError(c, err)
	c.JSON(status, body)
}

// AbortWithError writes the error response and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	status, body := ErrorBody(err)
	logError(c, err)
	c.AbortWithStatusJSON(status, body)
}

func logError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Get().Errorw("unexpected error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"request_id", RequestID(c),
		)
		return
	}
	if appErr.Internal != nil {
		logger.Get().Errorw("app error",
			"code", appErr.Code,
			"internal", appErr.Internal.Error(),
			"path", c.Request.URL.Path,
			"request_id", RequestID(c),
		)
	}
}

// ErrorHandler converts errors attached with c.Error into JSON responses when
// the handler has not written one itself.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		WriteError(c, c.Errors.Last().Err)
	}
}
