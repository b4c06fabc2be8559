package middleware

import (
	"net/http"
	"strings"
	"time"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/security"
	"secbank-cbs/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	principalKey = "principal"
)

// CookieConfig controls how auth cookies are written.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func cookieMode(secure bool) http.SameSite {
	// Cross-origin deployments need SameSite=None, which browsers only accept with Secure.
	if secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, cfg CookieConfig, accessToken, refreshToken string) {
	c.SetSameSite(cookieMode(cfg.Secure))
	c.SetCookie(AccessTokenCookie, accessToken, int(cfg.AccessTTL.Seconds()), "/", "", cfg.Secure, true)
	if refreshToken != "" {
		c.SetCookie(RefreshTokenCookie, refreshToken, int(cfg.RefreshTTL.Seconds()), "/", "", cfg.Secure, true)
	}
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context, secure bool) {
	c.SetSameSite(cookieMode(secure))
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", secure, true)
}

// bearerToken reads the Authorization header, falling back to the access_token cookie.
func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if token, err := c.Cookie(AccessTokenCookie); err == nil && token != "" {
		return token, true
	}
	return "", false
}

// Authenticate resolves the caller's principal from the access token. Authorities
// are loaded fresh on every request.
func Authenticate(auth *security.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "Authentication is required")
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			code := apperr.CodeOf(err)
			if code == apperr.CodeInternal {
				Logger(c).Error("failed to resolve principal", "error", err)
				abort(c, http.StatusInternalServerError, code, "Failed to verify credentials")
				return
			}
			abort(c, http.StatusUnauthorized, code, err.Error())
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireAuthority lets the request through only if the principal holds every listed authority.
func RequireAuthority(authorities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "Authentication is required")
			return
		}
		for _, a := range authorities {
			if !p.HasAuthority(a) {
				abort(c, http.StatusForbidden, apperr.CodeForbidden, "Access denied: missing permission '"+a+"'")
				return
			}
		}
		c.Next()
	}
}

// RequireAnyAuthority lets the request through if the principal holds at least one authority.
func RequireAnyAuthority(authorities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "Authentication is required")
			return
		}
		if !p.HasAnyAuthority(authorities...) {
			abort(c, http.StatusForbidden, apperr.CodeForbidden, "Access denied: requires one of "+strings.Join(authorities, ", "))
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the principal stored by Authenticate.
func CurrentPrincipal(c *gin.Context) (*security.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*security.Principal)
	return p, ok && p != nil
}

func abort(c *gin.Context, status int, code apperr.Code, msg string) {
	c.AbortWithStatusJSON(status, response.ErrorWithCode(status, string(code), msg, nil))
}
