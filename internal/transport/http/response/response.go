package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	MsgNotAuthenticated   = "Not authenticated"
	MsgInvalidCredentials = "Could not validate credentials"
	MsgIncorrectLogin     = "Incorrect username or password"
	MsgUsernameTaken      = "Username already registered"
	MsgBookNotFound       = "Book not found"
	MsgDatabaseError      = "Database error occurred"
	MsgTooManyRequests    = "Too many requests"
	MsgInternalError      = "Internal server error"
	MsgValidationError    = "Validation error"
	MsgNotFound           = "Not Found"
	MsgMethodNotAllowed   = "Method Not Allowed"
)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ValidationItem is one rejected field. Loc is the path to the field, for
// example ["body", "title"] or ["query", "size"].
type ValidationItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type ValidationResponse struct {
	Detail  []ValidationItem `json:"detail"`
	Message string           `json:"message"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func Error(c *gin.Context, httpStatus int, detail string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{Detail: detail})
}

// Unauthorized renders a 401 with the bearer challenge header.
func Unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	Error(c, http.StatusUnauthorized, detail)
}

func Validation(c *gin.Context, items []ValidationItem) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ValidationResponse{
		Detail:  items,
		Message: MsgValidationError,
	})
}

func Token(c *gin.Context, httpStatus int, token, tokenType string) {
	c.JSON(httpStatus, TokenResponse{AccessToken: token, TokenType: tokenType})
}
