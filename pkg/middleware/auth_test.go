package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(userID uuid.UUID, role models.UserRole) Claims {
	return Claims{
		UserID: userID.String(),
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newAuthRouter(extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(testSecret)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id, err := GetUserID(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.String())
	})
	r.GET("/protected", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()

	expired := validClaims(userID, models.RoleBuyer)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	badSubject := validClaims(userID, models.RoleBuyer)
	badSubject.UserID = "not-a-uuid"

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{"missing header", "", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", validClaims(userID, models.RoleBuyer)), "", http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, expired), "", http.StatusUnauthorized},
		{"bad subject", "Bearer " + signToken(t, testSecret, badSubject), "", http.StatusUnauthorized},
		{"valid header", "Bearer " + signToken(t, testSecret, validClaims(userID, models.RoleBuyer)), "", http.StatusOK},
		{"query token fallback", "", signToken(t, testSecret, validClaims(userID, models.RoleSeller)), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/protected"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newAuthRouter().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, userID.String(), w.Body.String())
			}
		})
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims(uuid.New(), models.RoleAdmin))
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(signed, testSecret)
	assert.Error(t, err)
}

func TestRequirePermission(t *testing.T) {
	userID := uuid.New()

	moderator := validClaims(userID, models.RoleAdmin)
	moderator.AdminRole = string(models.AdminRoleModerator)
	moderator.Permissions = []string{string(models.PermissionManageReports)}

	superAdmin := validClaims(userID, models.RoleAdmin)
	superAdmin.AdminRole = string(models.AdminRoleSuperAdmin)

	buyerWithGrant := validClaims(userID, models.RoleBuyer)
	buyerWithGrant.Permissions = []string{string(models.PermissionManageFraud)}

	tests := []struct {
		name       string
		claims     Claims
		permission models.Permission
		wantStatus int
	}{
		{"moderator with grant", moderator, models.PermissionManageReports, http.StatusOK},
		{"moderator without grant", moderator, models.PermissionManageFraud, http.StatusForbidden},
		{"super admin holds all", superAdmin, models.PermissionManageFraud, http.StatusOK},
		{"non admin is refused", buyerWithGrant, models.PermissionManageFraud, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, tt.claims))
			w := httptest.NewRecorder()
			newAuthRouter(RequirePermission(tt.permission)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(uuid.New(), models.RoleBuyer)))
	w := httptest.NewRecorder()
	newAuthRouter(RequireRole(models.RoleSeller, models.RoleAdmin)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
