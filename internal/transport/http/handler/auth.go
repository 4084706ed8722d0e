package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"books-api/internal/app"
	"books-api/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
	log         logrus.FieldLogger
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8,max=50"`
}

// LoginRequest is the OAuth2 password grant form.
type LoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func NewAuthHandler(authService *app.AuthService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, response.BindingItems("body", err))
		return
	}

	result, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	response.Token(c, http.StatusCreated, result.Token, result.TokenType)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		response.Validation(c, response.BindingItems("body", err))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	response.Token(c, http.StatusOK, result.Token, result.TokenType)
}
