package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/abduss/contactbook/internal/logger"
	"github.com/abduss/contactbook/internal/user"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes mounts signup, login, refresh_token and secret on router.
func RegisterRoutes(router gin.IRouter, service *Service, resolver identityResolver) {
	handler := &httpHandler{service: service}
	router.POST("/signup", handler.signup)
	router.POST("/login", handler.login)
	router.GET("/refresh_token", handler.refresh)
	router.GET("/secret", AuthMiddleware(resolver), handler.secret)
}

// RegisterEmailRoutes mounts the email confirmation endpoints on router.
func RegisterEmailRoutes(router gin.IRouter, service *Service) {
	handler := &httpHandler{service: service}
	router.POST("/request_email", handler.requestEmail)
	router.GET("/confirmed_email/:token", handler.confirmEmail)
}

type httpHandler struct {
	service *Service
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// loginRequest accepts either a JSON body or an OAuth2 password form.
type loginRequest struct {
	Email    string `json:"email" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Confirmed bool      `json:"confirmed"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (h *httpHandler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Signup(c.Request.Context(), SignupInput{Email: req.Email, Password: req.Password})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrInvalidPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			internalError(c, "failed to register user", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":   marshalUser(created),
		"detail": "User successfully created. Check your email for confirmation.",
	})
}

func (h *httpHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.service.Login(c.Request.Context(), LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		internalError(c, "failed to authenticate", err)
		return
	}

	c.JSON(http.StatusOK, marshalTokens(pair))
}

func (h *httpHandler) refresh(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" {
		abortUnauthenticated(c, "not authenticated")
		return
	}

	pair, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrReusedRefreshToken):
			abortUnauthenticated(c, ErrReusedRefreshToken.Error())
		case errors.Is(err, ErrUnauthenticated):
			logger.FromGin(c).Debug("refresh rejected", zap.Error(err))
			abortUnauthenticated(c, ErrUnauthenticated.Error())
		default:
			internalError(c, "failed to refresh token", err)
		}
		return
	}

	c.JSON(http.StatusOK, marshalTokens(pair))
}

func (h *httpHandler) secret(c *gin.Context) {
	u, ok := RequireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "secret router", "owner": u.Email})
}

func (h *httpHandler) requestEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.RequestConfirmation(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Check your email for confirmation."})
	case errors.Is(err, ErrAlreadyConfirmed):
		c.JSON(http.StatusOK, gin.H{"message": "Your email is already confirmed"})
	default:
		internalError(c, "failed to send confirmation", err)
	}
}

func (h *httpHandler) confirmEmail(c *gin.Context) {
	err := h.service.ConfirmEmail(c.Request.Context(), c.Param("token"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Email confirmed"})
	case errors.Is(err, ErrAlreadyConfirmed):
		c.JSON(http.StatusOK, gin.H{"message": "Your email is already confirmed"})
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInvalidScope):
		c.JSON(http.StatusBadRequest, gin.H{"error": "verification error"})
	default:
		internalError(c, "failed to confirm email", err)
	}
}

func internalError(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func marshalUser(u user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC(),
		Confirmed: u.Confirmed,
	}
}

func marshalTokens(p TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
	}
}
