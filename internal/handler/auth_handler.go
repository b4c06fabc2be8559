package handler

import (
	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/audit"
	"secbank-cbs/internal/middleware"
	"secbank-cbs/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
	cookies     middleware.CookieConfig
}

func NewAuthHandler(authService service.AuthService, cookies middleware.CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

// RegisterRoutes binds login and refresh on the public group, logout and me on the authenticated one.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/auth/login", h.Login)
	public.POST("/auth/refresh", h.Refresh)

	protected.POST("/auth/logout", h.Logout)
	protected.GET("/auth/me", h.Me)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	client := audit.Client{IP: middleware.ClientIP(c), UserAgent: c.Request.UserAgent()}
	res, err := h.authService.Login(c.Request.Context(), req, client)
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.SetTokenCookies(c, h.cookies, res.AccessToken, res.RefreshToken)
	ok(c, res)
}

// Refresh handles POST /auth/refresh. The token comes from the body or the refresh cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req service.RefreshRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(middleware.RefreshTokenCookie)
	}
	if token == "" {
		writeError(c, apperr.New(apperr.CodeInvalidToken, "Refresh token is required"))
		return
	}
	res, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.SetTokenCookies(c, h.cookies, res.AccessToken, "")
	ok(c, res)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	h.authService.Logout(c.Request.Context(), p)
	middleware.ClearTokenCookies(c, h.cookies.Secure)
	ok(c, gin.H{"message": "Logged out"})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	ok(c, h.authService.Me(c.Request.Context(), p))
}
