package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"shopassist/internal/common"

	"github.com/gin-gonic/gin"
)

// ContextKey 上下文键类型
type ContextKey string

// UserContextKey 用户上下文键
const UserContextKey ContextKey = "user"

// UserContext 当前请求的用户
type UserContext struct {
	UserID uint
	Roles  []string
	Token  string
}

// IsStaff 是否为员工
func (u *UserContext) IsStaff() bool {
	return u != nil && hasRole(u.Roles, []string{RoleStaff})
}

// AuthMiddleware JWT 认证中间件
func AuthMiddleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.AbortWithError(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		token := ExtractTokenFromBearer(authHeader)
		if token == "" {
			common.AbortWithError(c, http.StatusUnauthorized, "Invalid authorization header.")
			return
		}

		claims, err := jwtService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			common.AbortWithError(c, http.StatusUnauthorized, "Token is invalid or expired.")
			return
		}

		// 刷新令牌不能访问资源
		if claims.TokenType != TokenTypeAccess {
			common.AbortWithError(c, http.StatusUnauthorized, "Token is invalid or expired.")
			return
		}

		setUser(c, &UserContext{UserID: claims.UserID, Roles: claims.Roles, Token: token})
		c.Next()
	}
}

// OptionalAuthMiddleware 可选认证中间件（有令牌则验证，无效令牌不拦截）
func OptionalAuthMiddleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractTokenFromBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}

		claims, err := jwtService.ValidateToken(c.Request.Context(), token)
		if err == nil && claims.TokenType == TokenTypeAccess {
			setUser(c, &UserContext{UserID: claims.UserID, Roles: claims.Roles, Token: token})
		}
		c.Next()
	}
}

// RequireRole 角色检查中间件
func RequireRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			common.AbortWithError(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		if !hasRole(userCtx.Roles, requiredRoles) {
			common.AbortWithError(c, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		c.Next()
	}
}

func setUser(c *gin.Context, u *UserContext) {
	c.Set(string(UserContextKey), u)
	// 限流中间件按 user_id 区分客户端
	c.Set("user_id", strconv.FormatUint(uint64(u.UserID), 10))
	c.Request = c.Request.WithContext(SetUserContext(c.Request.Context(), u))
}

// GetUserContext 从 Gin Context 获取用户上下文
func GetUserContext(c *gin.Context) (*UserContext, bool) {
	userCtx, exists := c.Get(string(UserContextKey))
	if !exists {
		return nil, false
	}
	u, ok := userCtx.(*UserContext)
	return u, ok
}

// SetUserContext 在标准 context.Context 中设置用户上下文
func SetUserContext(ctx context.Context, userCtx *UserContext) context.Context {
	return context.WithValue(ctx, UserContextKey, userCtx)
}

// GetUserContextFromStdContext 从标准 context.Context 获取用户上下文
func GetUserContextFromStdContext(ctx context.Context) (*UserContext, bool) {
	userCtx, ok := ctx.Value(UserContextKey).(*UserContext)
	return userCtx, ok
}

func hasRole(userRoles []string, requiredRoles []string) bool {
	roleMap := make(map[string]bool, len(userRoles))
	for _, role := range userRoles {
		roleMap[strings.ToLower(role)] = true
	}
	for _, required := range requiredRoles {
		if roleMap[strings.ToLower(required)] {
			return true
		}
	}
	return false
}
