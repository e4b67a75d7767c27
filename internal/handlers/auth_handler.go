package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/advance-portal/internal/config"
	"github.com/sjperalta/advance-portal/internal/jobs"
	"github.com/sjperalta/advance-portal/internal/middleware"
	"github.com/sjperalta/advance-portal/internal/services"
	"github.com/sjperalta/advance-portal/pkg/logger"
)

// WorkerStats reports background worker counters
type WorkerStats interface {
	GetStats() jobs.WorkerStats
}

type HealthHandler struct {
	worker WorkerStats
}

func NewHealthHandler(worker WorkerStats) *HealthHandler {
	return &HealthHandler{worker: worker}
}

// @Summary Health Check
// @Description Checks if the API is running
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Index(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"service": "advance-portal",
		"version": "1.0.0",
	}
	if h.worker != nil {
		body["worker"] = h.worker.GetStats()
	}
	c.JSON(http.StatusOK, body)
}

type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

// @Summary Login
// @Description Authenticates a user and sets the session cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login Credentials"
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid JSON data")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}

	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.SessionCookie, result.Token, maxAge, "/", "", h.cfg.CookieSecure, true)

	respondOK(c, "Login successful", gin.H{
		"user":      result.User,
		"expiresAt": result.ExpiresAt,
		"redirect":  "dashboard",
	})
}

// @Summary Logout
// @Description Destroys the session and redirects to the login page
// @Tags Auth
// @Success 302
// @Router /logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	token, _ := c.Cookie(h.cfg.SessionCookie)

	if token != "" {
		actor := middleware.GetActor(c)
		if user, _, err := h.authService.Resolve(ctx, token); err == nil {
			actor.UserID = user.ID
			actor.Email = user.Email
			actor.Role = user.Role
		}
		if err := h.authService.Logout(ctx, actor, token); err != nil {
			logger.FromContext(ctx).Error("[Auth] Logout failed", "error", services.Cause(err))
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.SessionCookie, "", -1, "/", "", h.cfg.CookieSecure, true)
	c.Redirect(http.StatusFound, "/login")
}
