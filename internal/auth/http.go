package auth

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/abduss/easyshare/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes mounts the login, registration and logout pages.
func RegisterRoutes(router gin.IRoutes, service *Service) {
	handler := &httpHandler{service: service}
	router.GET("/", handler.loginPage)
	router.GET("/register", handler.registerPage)
	router.POST("/register", handler.register)
	router.POST("/login", handler.login)
	router.POST("/logout", handler.logout)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Error":  c.Query("error"),
		"Notice": c.Query("notice"),
	})
}

func (h *httpHandler) registerPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{
		"Error": c.Query("error"),
	})
}

func (h *httpHandler) register(c *gin.Context) {
	_, err := h.service.Register(c.Request.Context(), RegisterInput{
		Username:        c.PostForm("username"),
		Password:        c.PostForm("password"),
		ConfirmPassword: c.PostForm("confirmPassword"),
	})
	if err != nil {
		var message string
		switch {
		case errors.Is(err, ErrPasswordMismatch):
			message = "Password and Confirm Password do not match"
		case errors.Is(err, ErrWeakPassword):
			message = "Password must be at least 6 characters long with one uppercase, one lowercase, and one special symbol"
		case errors.Is(err, ErrDuplicateUsername):
			message = "Username already exists"
		case errors.Is(err, ErrInvalidUsername):
			message = "Please choose a username of up to 64 characters without surrounding spaces"
		default:
			logger.FromContext(c).Error("register account", zap.Error(err))
			message = "Registration failed, please try again"
		}
		c.Redirect(http.StatusSeeOther, "/register?error="+url.QueryEscape(message))
		return
	}

	c.Redirect(http.StatusSeeOther, "/?notice="+url.QueryEscape("Registration successful, please log in"))
}

func (h *httpHandler) login(c *gin.Context) {
	username := c.PostForm("username")

	user, err := h.service.Authenticate(c.Request.Context(), username, c.PostForm("password"))
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			logger.FromContext(c).Error("authenticate", zap.Error(err))
		}
		c.Redirect(http.StatusSeeOther, "/?error="+url.QueryEscape("Invalid username or password"))
		return
	}

	session, err := h.service.IssueSession(user)
	if err != nil {
		logger.FromContext(c).Error("issue session", zap.Error(err))
		c.Redirect(http.StatusSeeOther, "/?error="+url.QueryEscape("Login failed, please try again"))
		return
	}

	setSessionCookie(c, h.service, session)
	c.Redirect(http.StatusSeeOther, "/upload?username="+url.QueryEscape(user.Username))
}

func (h *httpHandler) logout(c *gin.Context) {
	clearSessionCookie(c, h.service)
	c.Redirect(http.StatusSeeOther, "/")
}
