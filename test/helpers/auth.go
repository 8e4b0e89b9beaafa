package helpers

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/middleware"
	"github.com/richxcame/gigmarket/pkg/models"
)

// SetAuthContext stores the caller the way the auth middleware does
func SetAuthContext(c *gin.Context, userID uuid.UUID, role models.UserRole, perms ...models.Permission) {
	set := models.PermissionSet{}
	for _, p := range perms {
		set[p] = struct{}{}
	}
	c.Set("user_id", userID)
	c.Set("user_role", role)
	c.Set("permissions", set)
}

// AuthAs returns a middleware that authenticates every request as userID
func AuthAs(userID uuid.UUID, role models.UserRole, perms ...models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetAuthContext(c, userID, role, perms...)
		c.Next()
	}
}

// SignToken issues an HS256 token accepted by middleware.AuthMiddleware
func SignToken(t *testing.T, secret string, userID uuid.UUID, role models.UserRole, adminRole models.AdminRole, perms ...string) string {
	t.Helper()
	claims := middleware.Claims{
		UserID:      userID.String(),
		Role:        string(role),
		AdminRole:   string(adminRole),
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
