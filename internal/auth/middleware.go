package auth

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "easyshareUser"

// ContextUser represents the authenticated principal stored in the request context.
type ContextUser struct {
	ID       uuid.UUID
	Username string
}

// SessionMiddleware requires a valid session cookie and injects the user.
// Requests without one are sent back to the login page.
func SessionMiddleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(service.cfg.CookieName)
		if err != nil || token == "" {
			redirectToLogin(c, "Please log in to continue")
			return
		}

		claims, err := service.ValidateSession(token)
		if err != nil {
			clearSessionCookie(c, service)
			redirectToLogin(c, "Your session has expired, please log in again")
			return
		}

		c.Set(string(userContextKey), ContextUser{
			ID:       claims.UserID,
			Username: claims.Username,
		})

		c.Next()
	}
}

// CurrentUser extracts the authenticated user from the context.
func CurrentUser(c *gin.Context) (ContextUser, bool) {
	value, exists := c.Get(string(userContextKey))
	if !exists {
		return ContextUser{}, false
	}
	user, ok := value.(ContextUser)
	return user, ok
}

func redirectToLogin(c *gin.Context, message string) {
	c.Redirect(http.StatusSeeOther, "/?error="+url.QueryEscape(message))
	c.Abort()
}

func setSessionCookie(c *gin.Context, service *Service, session Session) {
	maxAge := int(session.ExpiresAt.Sub(service.nowFunc()).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(service.cfg.CookieName, session.Token, maxAge, "/", "", service.cfg.CookieSecure, true)
}

func clearSessionCookie(c *gin.Context, service *Service) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(service.cfg.CookieName, "", -1, "/", "", service.cfg.CookieSecure, true)
}
