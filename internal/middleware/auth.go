package middleware

import (
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/logger"
	"finora/internal/models"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
	ContextUser   = "user"
)

// AccessTokenCookie is the cookie carrying the session token for browsers.
const AccessTokenCookie = "access_token"

// TokenAuthenticator resolves an access token to an active user.
type TokenAuthenticator interface {
	Authenticate(token string) (*models.User, error)
}

// TokenFromRequest returns the bearer token, falling back to the access
// token cookie. fromCookie reports which source was used.
func TokenFromRequest(c *gin.Context) (token string, fromCookie bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1]), false
		}
		return "", false
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// AuthMiddleware requires a valid token for an active user and stores the
// user in the context.
func AuthMiddleware(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := TokenFromRequest(c)
		if token == "" {
			AbortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		user, err := auth.Authenticate(token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextEmail, user.Email)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// RequireAdmin rejects authenticated users without administrator rights.
// It must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			AbortWithError(c, apperrors.ErrUnauthorized)
			return
		}
		if !user.IsAdmin {
			logger.Get().Warnw("Non-admin access to admin route",
				"user_id", user.ID,
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
			)
			AbortWithError(c, apperrors.ErrAdminRequired)
			return
		}
		c.Next()
	}
}

// AdminIPAllowlist restricts a route group to the given addresses or CIDR
// ranges. An empty list allows every address.
func AdminIPAllowlist(allowed []string) gin.HandlerFunc {
	var prefixes []netip.Prefix
	for _, entry := range allowed {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			logger.Get().Warnw("Ignoring invalid admin allow-list entry", "entry", entry)
			continue
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}
		addr, err := netip.ParseAddr(c.ClientIP())
		if err == nil {
			addr = addr.Unmap()
			for _, prefix := range prefixes {
				if prefix.Contains(addr) {
					c.Next()
					return
				}
			}
		}
		logger.Get().Warnw("Admin access from address outside allow-list",
			"client_ip", c.ClientIP(),
			"path", c.Request.URL.Path,
		)
		AbortWithError(c, apperrors.ErrIPNotAllowed)
	}
}
