package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/models"
	"finora/internal/notify"
	"finora/internal/pagination"
	"finora/internal/services"
)

const (
	recentAttemptsLimit = 50
	testAlertTimeout    = 10 * time.Second
)

// AlertSender delivers an alert on every configured channel.
type AlertSender interface {
	Send(ctx context.Context, message string) map[notify.Channel]bool
}

// AdminHandler handles administrator requests
type AdminHandler struct {
	userService         services.UserServicer
	authService         services.AuthServicer
	subscriptionService services.SubscriptionServicer
	alerts              AlertSender
	auditService        services.AuditServicer
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	userService services.UserServicer,
	authService services.AuthServicer,
	subscriptionService services.SubscriptionServicer,
	alerts AlertSender,
	auditService services.AuditServicer,
) *AdminHandler {
	return &AdminHandler{
		userService:         userService,
		authService:         authService,
		subscriptionService: subscriptionService,
		alerts:              alerts,
		auditService:        auditService,
	}
}

// CreateAdminRequest represents the payload for creating an administrator
type CreateAdminRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,max=120"`
	Password string `json:"password" binding:"required,max=128"`
}

// UnblockRequest represents the payload for clearing a login lockout
type UnblockRequest struct {
	Email   string `json:"email" binding:"required,email"`
	IsAdmin bool   `json:"is_admin"`
}

// UnblockResponse reports how many lockout rows were cleared
type UnblockResponse struct {
	Cleared int64 `json:"cleared"`
}

// TestAlertResponse reports delivery per channel
type TestAlertResponse struct {
	Results map[notify.Channel]bool `json:"results"`
}

// ChangePassword handles administrator self-service password change
// @Summary     Change administrator password
// @Description Change the password with the elevated administrator rules
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ChangePasswordRequest true "Current and new password"
// @Success     200 {object} MessageResponse "Password changed"
// @Failure     403 {object} ErrorResponse "Not an administrator"
// @Failure     422 {object} ErrorResponse "Weak or reused password"
// @Router      /admin/password [post]
func (h *AdminHandler) ChangePassword(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ChangePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.userService.ChangeAdminPassword(userID, req.Current, req.New, req.Confirm); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditChangePassword, "user", userID, c.ClientIP(),
		map[string]interface{}{"admin": true})
	respondMessage(c, "Password changed")
}

// CreateAdmin creates a new administrator account
// @Summary     Create administrator
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAdminRequest true "Administrator details"
// @Success     201 {object} UserResponse "Administrator created"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     422 {object} ErrorResponse "Weak password"
// @Router      /admin/users [post]
func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAdminRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.CreateAdmin(req.Email, req.Name, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, services.AuditCreateAdmin, "user", user.ID, c.ClientIP(),
		map[string]interface{}{"email": user.Email})
	c.JSON(http.StatusCreated, toUserResponse(user))
}

// ListUsers returns a page of users
// @Summary     List users
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       active    query bool false "Filter by active flag"
// @Param       page      query int  false "Page number (default 1)"
// @Param       page_size query int  false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[UserResponse] "Paginated users"
// @Router      /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	active, err := queryBool(c, "active")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.userService.ListUsers(active, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pagination.Map(*result, func(u models.User) UserResponse {
		return toUserResponse(&u)
	}))
}

// DeactivateUser soft-disables an account
// @Summary     Deactivate user
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "User ID"
// @Success     200 {object} MessageResponse "User deactivated"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     422 {object} ErrorResponse "Cannot deactivate yourself"
// @Router      /admin/users/{id}/deactivate [post]
func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.userService.Deactivate(actorID, userID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, services.AuditDeactivateUser, "user", userID, c.ClientIP(), nil)
	respondMessage(c, "User deactivated")
}

// UnblockLogin clears a login lockout
// @Summary     Unblock login
// @Description Clear the brute-force lockout for an (email, admin) pair
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UnblockRequest true "Locked pair"
// @Success     200 {object} UnblockResponse "Lockout rows cleared"
// @Router      /admin/login-attempts/unblock [post]
func (h *AdminHandler) UnblockLogin(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UnblockRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	cleared, err := h.authService.Unblock(req.Email, req.IsAdmin)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, services.AuditUnblockLogin, "login_attempt", req.Email, c.ClientIP(),
		map[string]interface{}{"is_admin": req.IsAdmin, "cleared": cleared})
	c.JSON(http.StatusOK, UnblockResponse{Cleared: cleared})
}

// LoginAttempts lists recent login attempts for an email
// @Summary     Recent login attempts
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       email query string true "Email address"
// @Success     200 {array} models.LoginAttempt "Latest attempts, newest first"
// @Failure     422 {object} ErrorResponse "Missing email"
// @Router      /admin/login-attempts [get]
func (h *AdminHandler) LoginAttempts(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "email is required"))
		return
	}

	attempts, err := h.authService.RecentAttempts(email, recentAttemptsLimit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// BillingStats summarizes subscriptions
// @Summary     Billing statistics
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.BillingStats "Subscription counts"
// @Router      /admin/billing/stats [get]
func (h *AdminHandler) BillingStats(c *gin.Context) {
	stats, err := h.subscriptionService.Stats()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TestAlert sends a test message on every configured channel
// @Summary     Send test alert
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} TestAlertResponse "Delivery result per channel"
// @Router      /admin/alerts/test [post]
func (h *AdminHandler) TestAlert(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), testAlertTimeout)
	defer cancel()

	results := h.alerts.Send(ctx, "Test alert requested by administrator "+userID)
	c.JSON(http.StatusOK, TestAlertResponse{Results: results})
}
