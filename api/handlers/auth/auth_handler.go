package auth

import (
	"errors"
	"net/http"

	"shopassist/internal/auth"
	"shopassist/internal/common"
	"shopassist/internal/logger"
	"shopassist/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtService  *auth.JWTService
	userService *user.Service
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(jwtService *auth.JWTService, userService *user.Service) *AuthHandler {
	return &AuthHandler{jwtService: jwtService, userService: userService}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register 用户注册
// @Summary 用户注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body user.RegisterRequest true "注册信息"
// @Success 201 {object} user.Profile
// @Failure 400 {object} common.ErrorBody
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken), errors.Is(err, user.ErrInvalidInput):
			common.ResponseError(c, http.StatusBadRequest, err.Error())
		default:
			logger.WithContext(c.Request.Context()).Error("注册失败", zap.Error(err))
			common.ResponseError(c, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	common.ResponseCreated(c, user.NewProfile(u))
}

// Login 用户登录
// @Summary 用户登录
// @Description 使用邮箱和密码登录，获取访问令牌和刷新令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录请求参数"
// @Success 200 {object} auth.TokenPair
// @Failure 400 {object} common.ErrorBody
// @Failure 401 {object} common.ErrorBody
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			common.ResponseError(c, http.StatusUnauthorized, err.Error())
			return
		}
		logger.WithContext(c.Request.Context()).Error("登录失败", zap.Error(err))
		common.ResponseError(c, http.StatusInternalServerError, "login failed")
		return
	}

	pair, err := h.jwtService.GenerateTokenPair(u.ID, auth.RolesFor(u.IsStaff, u.IsSuperuser))
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("生成令牌失败", zap.Error(err))
		common.ResponseError(c, http.StatusInternalServerError, "login failed")
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh 刷新访问令牌
// @Summary 刷新访问令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "刷新令牌"
// @Success 200 {object} auth.TokenPair
// @Failure 401 {object} common.ErrorBody
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseError(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.jwtService.RefreshTokenPair(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.ResponseError(c, http.StatusUnauthorized, "Token is invalid or expired.")
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout 用户登出，访问令牌加入黑名单
// @Summary 用户登出
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userCtx, _ := auth.GetUserContext(c)
	if userCtx != nil && userCtx.Token != "" {
		if err := h.jwtService.InvalidateToken(c.Request.Context(), userCtx.Token); err != nil {
			// 黑名单失败不影响登出
			logger.WithContext(c.Request.Context()).Warn("令牌注销失败", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out."})
}

// Me 当前用户信息
// @Summary 当前用户
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} user.Profile
// @Failure 401 {object} common.ErrorBody
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.ResponseError(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	u, err := h.userService.GetByID(c.Request.Context(), userCtx.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			common.ResponseError(c, http.StatusNotFound, err.Error())
			return
		}
		logger.WithContext(c.Request.Context()).Error("查询用户失败", zap.Error(err))
		common.ResponseError(c, http.StatusInternalServerError, "failed to load user")
		return
	}

	profile := user.NewProfile(u)
	profile.Roles = userCtx.Roles
	c.JSON(http.StatusOK, profile)
}
