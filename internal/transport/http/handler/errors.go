package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"books-api/internal/app"
	"books-api/internal/transport/http/middleware"
	"books-api/internal/transport/http/response"
)

// handleServiceError renders err from the app layer. Internal causes are
// logged and never reach the client.
func handleServiceError(c *gin.Context, log logrus.FieldLogger, err error) {
	var verr *app.ValidationError
	var pageErr *app.PageEmptyError
	switch {
	case errors.As(err, &verr):
		items := make([]response.ValidationItem, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			items = append(items, response.ValidationItem{
				Loc:  []string{f.Location, f.Field},
				Msg:  f.Message,
				Type: f.Type,
			})
		}
		response.Validation(c, items)
	case errors.As(err, &pageErr):
		response.Error(c, http.StatusNotFound, pageErr.Error())
	case errors.Is(err, app.ErrBookNotFound):
		response.Error(c, http.StatusNotFound, response.MsgBookNotFound)
	case errors.Is(err, app.ErrUsernameExists):
		response.Error(c, http.StatusBadRequest, response.MsgUsernameTaken)
	case errors.Is(err, app.ErrInvalidCredential):
		response.Unauthorized(c, response.MsgIncorrectLogin)
	case errors.Is(err, app.ErrUnauthenticated):
		response.Unauthorized(c, response.MsgInvalidCredentials)
	case errors.Is(err, app.ErrInvalidInput):
		response.Validation(c, []response.ValidationItem{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}})
	case errors.Is(err, app.ErrStoreUnavailable):
		requestLog(c, log).WithError(err).Error("store unavailable")
		response.Error(c, http.StatusServiceUnavailable, response.MsgDatabaseError)
	default:
		requestLog(c, log).WithError(err).Error("unhandled service error")
		response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
	}
}

func requestLog(c *gin.Context, log logrus.FieldLogger) logrus.FieldLogger {
	if id := c.GetString(middleware.ContextRequestIDKey); id != "" {
		return log.WithField("request_id", id)
	}
	return log
}
