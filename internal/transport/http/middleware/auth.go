package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"books-api/internal/app"
	"books-api/internal/model"
	"books-api/internal/transport/http/response"
)

const ContextUserKey = "current_user"

type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*model.User, error)
}

// Auth requires a bearer token that resolves to a stored user.
func Auth(resolver IdentityResolver, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, response.MsgNotAuthenticated)
			return
		}

		user, err := resolver.ResolveIdentity(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrUnauthenticated):
				response.Unauthorized(c, response.MsgInvalidCredentials)
			case errors.Is(err, app.ErrStoreUnavailable):
				log.WithError(err).Error("resolve identity failed")
				response.Error(c, http.StatusServiceUnavailable, response.MsgDatabaseError)
			default:
				log.WithError(err).Error("resolve identity failed")
				response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
			}
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
