package auth

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/posdz/internal/entities"
)

// ActivityRecorder receives account events for the operation log.
type ActivityRecorder interface {
	LogAsync(entry entities.LogEntry)
}

// UserView is a user without its password hash.
type UserView struct {
	ID        uint              `json:"id"`
	Username  string            `json:"username"`
	Role      entities.UserRole `json:"role"`
	CreatedAt time.Time         `json:"createdAt"`
}

func viewOf(u *entities.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
}

// AuthController handles login, logout and account management endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	activity       ActivityRecorder
}

// NewAuthController creates a new authentication controller. sessionManager
// may be nil when auth is disabled.
func NewAuthController(service *Service, sessionManager *SessionManager, activity ActivityRecorder) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		activity:       activity,
	}
}

// RegisterRoutes registers authentication routes on the API group.
func (ac *AuthController) RegisterRoutes(api *gin.RouterGroup, mw *Middleware) {
	api.POST("/login", ac.Login)
	api.POST("/logout", ac.Logout)
	api.GET("/me", ac.Me)
	api.PUT("/me/password", ac.ChangePassword)

	users := api.Group("/users", mw.RequireRole(entities.UserRoleAdmin))
	users.GET("", ac.ListUsers)
	users.POST("", ac.CreateUser)
	users.DELETE("/:id", ac.DeleteUser)
	users.PUT("/:id/password", ac.SetPassword)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and opens a session.
func (ac *AuthController) Login(c *gin.Context) {
	if ac.sessionManager == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authentication is disabled"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := ac.service.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		ac.record(entities.LogEntry{
			Action:      entities.LogActionLogin,
			Description: "Failed login",
			Username:    req.Username,
			Status:      entities.LogStatusFailed,
			Error:       err.Error(),
		})
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidCredentials.Error()})
			return
		}
		zap.L().Error("login failed", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if err := ac.sessionManager.CreateSession(c.Request, user, ac.service.db.Now()); err != nil {
		zap.L().Error("failed to create session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ac.record(entities.LogEntry{
		Action:      entities.LogActionLogin,
		Description: "Logged in",
		Username:    user.Username,
		EntityType:  "user",
		EntityID:    &user.ID,
		Status:      entities.LogStatusSuccess,
	})
	c.JSON(http.StatusOK, viewOf(user))
}

// Logout ends the session.
func (ac *AuthController) Logout(c *gin.Context) {
	username := GetUsername(c)
	if ac.sessionManager != nil {
		if err := ac.sessionManager.DestroySession(c.Request); err != nil {
			zap.L().Error("failed to destroy session", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
	}

	ac.record(entities.LogEntry{
		Action:      entities.LogActionLogout,
		Description: "Logged out",
		Username:    username,
		Status:      entities.LogStatusSuccess,
	})
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// Me returns the current operator.
func (ac *AuthController) Me(c *gin.Context) {
	if GetAuthType(c) == AuthTypeNone {
		c.JSON(http.StatusOK, gin.H{
			"username": GetUsername(c),
			"role":     GetUserRole(c),
			"authMode": ac.service.GetAuthMode(),
		})
		return
	}

	user, err := ac.service.GetUserByID(c.Request.Context(), GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrAuthRequired.Error()})
		return
	}
	c.JSON(http.StatusOK, viewOf(user))
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// ChangePassword lets a logged-in operator replace their own password.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no account is logged in"})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "oldPassword and newPassword are required"})
		return
	}

	err := ac.service.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "password changed"})
	case errors.Is(err, ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is wrong"})
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		zap.L().Error("failed to change password", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// ListUsers returns every account.
func (ac *AuthController) ListUsers(c *gin.Context) {
	users, err := ac.service.ListUsers(c.Request.Context())
	if err != nil {
		zap.L().Error("failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	views := make([]UserView, len(users))
	for i := range users {
		views[i] = viewOf(&users[i])
	}
	c.JSON(http.StatusOK, views)
}

type createUserRequest struct {
	Username string            `json:"username" binding:"required"`
	Password string            `json:"password" binding:"required"`
	Role     entities.UserRole `json:"role"`
}

// CreateUser adds an operator account.
func (ac *AuthController) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	if req.Role == "" {
		req.Role = entities.UserRoleCashier
	}

	user, err := ac.service.CreateUser(c.Request.Context(), req.Username, req.Password, req.Role)
	switch {
	case err == nil:
	case errors.Is(err, ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ErrUsernameInvalid), errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		zap.L().Error("failed to create user", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ac.record(entities.LogEntry{
		Action:      entities.LogActionUser,
		Description: "Created user " + user.Username,
		Username:    GetUsername(c),
		EntityType:  "user",
		EntityID:    &user.ID,
		Status:      entities.LogStatusSuccess,
	})
	c.JSON(http.StatusCreated, viewOf(user))
}

// DeleteUser removes an account.
func (ac *AuthController) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	err := ac.service.DeleteUser(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrLastAdmin):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		zap.L().Error("failed to delete user", zap.Uint("user_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type setPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// SetPassword resets another operator's password.
func (ac *AuthController) SetPassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req setPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	err := ac.service.SetPassword(c.Request.Context(), id, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "password changed"})
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		zap.L().Error("failed to set password", zap.Uint("user_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (ac *AuthController) record(entry entities.LogEntry) {
	if ac.activity != nil {
		ac.activity.LogAsync(entry)
	}
}
