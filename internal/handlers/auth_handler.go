package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"finora/internal/middleware"
	"finora/internal/models"
	"finora/internal/services"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService  services.UserServicer
	authService  services.AuthServicer
	auditService services.AuditServicer
	production   bool
}

// NewAuthHandler creates a new AuthHandler. production enables Secure and
// SameSite=Strict session cookies.
func NewAuthHandler(userService services.UserServicer, authService services.AuthServicer, auditService services.AuditServicer, production bool) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		authService:  authService,
		auditService: auditService,
		production:   production,
	}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,max=120"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest represents the profile update payload
type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=120"`
	Email *string `json:"email" binding:"omitempty,email,max=255"`
}

// ChangePasswordRequest represents the password change payload
type ChangePasswordRequest struct {
	Current string `json:"current" binding:"required"`
	New     string `json:"new" binding:"required,max=128"`
	Confirm string `json:"confirm" binding:"required"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	IsActive     bool       `json:"is_active"`
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	LastAccessAt *time.Time `json:"last_access_at,omitempty"`
}

// AuthResponse represents the authentication response with token
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		IsActive:     u.IsActive,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		LastAccessAt: u.LastAccessAt,
	}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	if h.production {
		c.SetSameSite(http.SameSiteStrictMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(middleware.AccessTokenCookie, token, maxAge, "/", "", h.production, true)
}

func (h *AuthHandler) respondWithSession(c *gin.Context, status int, result *services.LoginResult) {
	h.setSessionCookie(c, result.Token, int(h.authService.TokenTTL().Seconds()))
	c.JSON(status, AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserResponse(result.User),
	})
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register a new user and open a session
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} AuthResponse "User registered and token generated"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     422 {object} ErrorResponse "Invalid input or weak password"
// @Failure     429 {object} ErrorResponse "Rate limited"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.Register(req.Email, req.Name, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.authService.IssueToken(user)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.respondWithSession(c, http.StatusCreated, result)
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate a user, set the session cookie and return a token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthResponse "User authenticated and token generated"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     403 {object} ErrorResponse "Account inactive"
// @Failure     429 {object} ErrorResponse "Account locked or rate limited"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	h.login(c, false)
}

// AdminLogin handles administrator login
// @Summary     Login administrator
// @Description Authenticate an administrator; a security alert is published on success
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "Administrator credentials"
// @Success     200 {object} AuthResponse "Administrator authenticated"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     403 {object} ErrorResponse "Not an administrator"
// @Failure     429 {object} ErrorResponse "Account locked or rate limited"
// @Router      /auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, true)
}

func (h *AuthHandler) login(c *gin.Context, admin bool) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.authService.Login(services.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		Admin:     admin,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	action := services.AuditLogin
	if admin {
		action = services.AuditAdminLogin
	}
	h.auditService.Log(result.User.ID, action, "user", result.User.ID, c.ClientIP(), nil)

	h.respondWithSession(c, http.StatusOK, result)
}

// Logout clears the session cookie
// @Summary     Logout
// @Description Clear the session cookie
// @Tags        auth
// @Produce     json
// @Success     200 {object} MessageResponse "Logged out"
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	respondMessage(c, "Logged out")
}

// GetProfile returns the user's profile
// @Summary     Get current user
// @Description Get the authenticated user's profile information
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserResponse "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /auth/me [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUser(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateProfile changes the user's name or email
// @Summary     Update current user
// @Description Update the authenticated user's name and/or email
// @Tags        auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateProfileRequest true "Profile fields"
// @Success     200 {object} UserResponse "Updated profile"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     422 {object} ErrorResponse "Invalid input"
// @Router      /auth/me [patch]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.UpdateProfile(userID, req.Name, req.Email)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// ChangePassword changes the user's password
// @Summary     Change password
// @Description Change the authenticated user's password
// @Tags        auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ChangePasswordRequest true "Current and new password"
// @Success     200 {object} MessageResponse "Password changed"
// @Failure     401 {object} ErrorResponse "Current password is wrong"
// @Failure     422 {object} ErrorResponse "Weak password or confirmation mismatch"
// @Router      /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
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

	if err := h.userService.ChangePassword(userID, req.Current, req.New, req.Confirm); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditChangePassword, "user", userID, c.ClientIP(), nil)
	respondMessage(c, "Password changed")
}
