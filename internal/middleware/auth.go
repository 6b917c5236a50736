// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"doc-vector-go/pkg/log"
	"doc-vector-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 创建一个 Gin 中间件，用于服务令牌认证。
// 它会从请求头中提取 token，验证其有效性，并将 ServiceClaims 存入 Gin 的上下文中。
// 带项目范围的令牌只能操作声明中的项目。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权头"})
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权头格式"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效或已过期的 token"})
			return
		}

		// 项目范围检查：令牌声明了项目时，请求只能操作该项目
		projectID := c.Query("projectId")
		if projectID == "" {
			projectID = c.Param("projectId")
		}
		if claims.ProjectID != "" && projectID != "" && claims.ProjectID != projectID {
			log.Warnf("[AuthMiddleware] 令牌项目范围不匹配, token: %s, request: %s", claims.ProjectID, projectID)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "令牌无权操作该项目"})
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}
